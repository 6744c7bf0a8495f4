package stepflow_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corewire/stepflow"
	"github.com/corewire/stepflow/dispatch"
	"github.com/corewire/stepflow/metrics"
	"github.com/corewire/stepflow/store"
)

func TestWorkerPublishDispatchesEnvelope(t *testing.T) {
	inproc := dispatch.NewInProcessDispatcher()
	w := stepflow.NewWorker(stepflow.WithDispatcher(inproc))

	err := w.Publish(context.Background(), stepflow.Event{Type: "order.placed"}, nil, nil)
	require.NoError(t, err)

	published := inproc.Published()
	require.Len(t, published, 1)
	var env stepflow.Envelope
	require.NoError(t, json.Unmarshal(published[0], &env))
	assert.Equal(t, "order.placed", env.Event.Type)
	assert.Nil(t, env.Context)
}

func TestWorkerPublishRequiresDispatcher(t *testing.T) {
	w := stepflow.NewWorker()
	err := w.Publish(context.Background(), stepflow.Event{Type: "foo"}, nil, nil)
	assert.Error(t, err)
}

func TestWorkerPublishRecordsMetricOnlyForTopLevel(t *testing.T) {
	inproc := dispatch.NewInProcessDispatcher()
	collector := metrics.NewCollector(nil)
	w := stepflow.NewWorker(stepflow.WithDispatcher(inproc), stepflow.WithMetrics(collector))

	require.NoError(t, w.Publish(context.Background(), stepflow.Event{Type: "foo"}, nil, nil))
	assert.InDelta(t, 1, testutil.ToFloat64(collector.Publishes), 0)

	taskID := "func1:step1"
	require.NoError(t, w.Publish(context.Background(), stepflow.Event{Type: "foo"}, &stepflow.ExecutionContext{ExecutionID: "e1", TaskID: &taskID}, nil))
	assert.InDelta(t, 1, testutil.ToFloat64(collector.Publishes), 0, "a non-top-level publish must not bump the Publishes counter")
}

func TestWorkerConfigureAtomicallyReplacesOptions(t *testing.T) {
	w := stepflow.NewWorker(stepflow.WithExecutionMode(stepflow.Isolated))
	assert.Equal(t, stepflow.Isolated, w.GetOptions().ExecutionMode)

	w.Configure(stepflow.WithExecutionMode(stepflow.RunUntilError))
	assert.Equal(t, stepflow.RunUntilError, w.GetOptions().ExecutionMode)
}

func TestWorkerMountSnapshotsOptionsAtConstructionTime(t *testing.T) {
	memStore := store.NewMemoryStore()
	w := stepflow.NewWorker(stepflow.WithStore(memStore), stepflow.WithExecutionMode(stepflow.RunUntilError))

	fn, err := stepflow.CreateFunction("f1", "foo", noopHandler)
	require.NoError(t, err)
	mount, err := w.Mount([]stepflow.Function{fn})
	require.NoError(t, err)
	assert.NotNil(t, mount)

	// A later Configure does not reach the already-built mount: it still
	// runs against memStore, not the nil store configured afterwards.
	w.Configure(stepflow.WithStore(nil), stepflow.WithExecutionMode(stepflow.Isolated))
	require.NoError(t, mount.Execute(context.Background(), stepflow.Event{Type: "foo"}, nil))
}
