package stepflow_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corewire/stepflow"
)

type orderResult struct {
	OrderID string `json:"orderId"`
	Amount  int    `json:"amount"`
}

func TestAsDirectTypeMatch(t *testing.T) {
	v, err := stepflow.As[string]("r1")
	require.NoError(t, err)
	assert.Equal(t, "r1", v)
}

func TestAsJSONRoundTrip(t *testing.T) {
	// Simulates the shape Step actually returns after a JSON decode: a
	// map[string]any, which As must convert into the requested struct.
	decoded := map[string]any{"orderId": "o-1", "amount": float64(1999)}
	v, err := stepflow.As[orderResult](decoded)
	require.NoError(t, err)
	assert.Equal(t, orderResult{OrderID: "o-1", Amount: 1999}, v)
}

func TestAsNilYieldsZeroValue(t *testing.T) {
	v, err := stepflow.As[orderResult](nil)
	require.NoError(t, err)
	assert.Equal(t, orderResult{}, v)

	s, err := stepflow.As[string](nil)
	require.NoError(t, err)
	assert.Equal(t, "", s)
}

func TestAsIncompatibleTypeFails(t *testing.T) {
	_, err := stepflow.As[int]("not a number")
	assert.Error(t, err)
}
