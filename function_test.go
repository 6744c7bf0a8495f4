package stepflow_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corewire/stepflow"
	"github.com/corewire/stepflow/dispatch"
	"github.com/corewire/stepflow/store"
)

func noopHandler(ctx context.Context, event stepflow.Event) (any, error) { return nil, nil }

func TestCreateFunctionFilterShapes(t *testing.T) {
	fn, err := stepflow.CreateFunction("f1", "order.placed", noopHandler)
	require.NoError(t, err)
	assert.True(t, fn.Filter(stepflow.Event{Type: "order.placed"}))
	assert.False(t, fn.Filter(stepflow.Event{Type: "order.cancelled"}))

	fn, err = stepflow.CreateFunction("f2", []string{"a", "b"}, noopHandler)
	require.NoError(t, err)
	assert.True(t, fn.Filter(stepflow.Event{Type: "a"}))
	assert.True(t, fn.Filter(stepflow.Event{Type: "b"}))
	assert.False(t, fn.Filter(stepflow.Event{Type: "c"}))

	fn, err = stepflow.CreateFunction("f3", stepflow.Predicate(func(e stepflow.Event) bool { return len(e.Type) > 3 }), noopHandler)
	require.NoError(t, err)
	assert.True(t, fn.Filter(stepflow.Event{Type: "order.placed"}))
	assert.False(t, fn.Filter(stepflow.Event{Type: "ok"}))
}

func TestCreateFunctionValidation(t *testing.T) {
	_, err := stepflow.CreateFunction("", "foo", noopHandler)
	assert.ErrorIs(t, err, stepflow.ErrFunctionIDEmpty)

	_, err = stepflow.CreateFunction("f1", "foo", nil)
	assert.ErrorIs(t, err, stepflow.ErrHandlerNil)

	_, err = stepflow.CreateFunction("f1", nil, noopHandler)
	assert.ErrorIs(t, err, stepflow.ErrFilterNil)
}

func TestNewMountRejectsDuplicateFunctionID(t *testing.T) {
	fn1, err := stepflow.CreateFunction("dup", "foo", noopHandler)
	require.NoError(t, err)
	fn2, err := stepflow.CreateFunction("dup", "bar", noopHandler)
	require.NoError(t, err)

	_, err = stepflow.NewMount(stepflow.MountOptions{
		Functions:     []stepflow.Function{fn1, fn2},
		ExecutionMode: stepflow.RunUntilError,
		Store:         store.NewMemoryStore(),
	})
	assert.ErrorIs(t, err, stepflow.ErrDuplicateFunctionID)
}

func TestNewMountRequiresStore(t *testing.T) {
	fn, err := stepflow.CreateFunction("f1", "foo", noopHandler)
	require.NoError(t, err)
	_, err = stepflow.NewMount(stepflow.MountOptions{Functions: []stepflow.Function{fn}})
	assert.Error(t, err)
}

func TestNewMountRequiresDispatcherInIsolatedMode(t *testing.T) {
	fn, err := stepflow.CreateFunction("f1", "foo", noopHandler)
	require.NoError(t, err)
	_, err = stepflow.NewMount(stepflow.MountOptions{
		Functions:     []stepflow.Function{fn},
		ExecutionMode: stepflow.Isolated,
		Store:         store.NewMemoryStore(),
	})
	assert.Error(t, err)

	_, err = stepflow.NewMount(stepflow.MountOptions{
		Functions:     []stepflow.Function{fn},
		ExecutionMode: stepflow.Isolated,
		Store:         store.NewMemoryStore(),
		Dispatcher:    dispatch.NewInProcessDispatcher(),
	})
	assert.NoError(t, err)
}
