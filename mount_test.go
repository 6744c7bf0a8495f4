package stepflow_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corewire/stepflow"
	"github.com/corewire/stepflow/dispatch"
	"github.com/corewire/stepflow/schema"
	"github.com/corewire/stepflow/store"
)

const orderPlacedProcessSchema = `{
	"type": "object",
	"properties": {"orderId": {"type": "string"}},
	"required": ["orderId"]
}`

func newProcessTestMount(t *testing.T, validator schema.EventSchema) (*stepflow.Mount, *dispatch.InProcessDispatcher) {
	t.Helper()
	inproc := dispatch.NewInProcessDispatcher()
	fn, err := stepflow.CreateFunction("func1", "order.placed", noopHandler)
	require.NoError(t, err)
	mount, err := stepflow.NewMount(stepflow.MountOptions{
		Functions:     []stepflow.Function{fn},
		ExecutionMode: stepflow.Isolated,
		Store:         store.NewMemoryStore(),
		Dispatcher:    inproc,
		Schema:        validator,
	})
	require.NoError(t, err)
	return mount, inproc
}

func TestProcessRejectsMalformedEnvelopeJSON(t *testing.T) {
	mount, _ := newProcessTestMount(t, nil)
	err := mount.Process(context.Background(), []byte("not json"))
	require.Error(t, err)
	var ee *stepflow.EngineError
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, "INVALID_EVENT", ee.Code)
}

func TestProcessWithNoSchemaAcceptsAnyPayload(t *testing.T) {
	mount, _ := newProcessTestMount(t, nil)
	err := mount.Process(context.Background(), []byte(`{"event":{"type":"order.placed","data":{}}}`))
	require.NoError(t, err)
}

func TestProcessRejectsPayloadFailingRegisteredSchema(t *testing.T) {
	validator := schema.NewJSONSchemaValidator()
	require.NoError(t, validator.RegisterSchema("order.placed", []byte(orderPlacedProcessSchema)))
	mount, _ := newProcessTestMount(t, validator)

	err := mount.Process(context.Background(), []byte(`{"event":{"type":"order.placed","data":{}}}`))
	require.Error(t, err)
	var ee *stepflow.EngineError
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, "INVALID_EVENT", ee.Code)
}

func TestProcessAcceptsPayloadSatisfyingRegisteredSchema(t *testing.T) {
	validator := schema.NewJSONSchemaValidator()
	require.NoError(t, validator.RegisterSchema("order.placed", []byte(orderPlacedProcessSchema)))
	mount, inproc := newProcessTestMount(t, validator)

	err := mount.Process(context.Background(), []byte(`{"event":{"type":"order.placed","data":{"orderId":"o1"}}}`))
	require.NoError(t, err)
	assert.Empty(t, inproc.Published(), "a noop handler with no steps publishes no continuation")
}

func TestExecuteToleratesRedeliveryAfterDisposalViaProcess(t *testing.T) {
	memStore := store.NewMemoryStore()
	inproc := dispatch.NewInProcessDispatcher()
	fn, err := stepflow.CreateFunction("func1", "order.placed", noopHandler)
	require.NoError(t, err)
	mount, err := stepflow.NewMount(stepflow.MountOptions{
		Functions:     []stepflow.Function{fn},
		ExecutionMode: stepflow.Isolated,
		Store:         memStore,
		Dispatcher:    inproc,
	})
	require.NoError(t, err)

	require.NoError(t, memStore.BeginExecution(context.Background(), "e1"))
	require.NoError(t, memStore.DisposeExecution(context.Background(), "e1"))

	payload := []byte(`{"event":{"type":"order.placed","data":{}},"context":{"executionId":"e1","timestamp":1,"taskId":"func1"}}`)
	err = mount.Process(context.Background(), payload)
	assert.NoError(t, err, "a redelivery for a disposed execution is tolerated, not an error")
}
