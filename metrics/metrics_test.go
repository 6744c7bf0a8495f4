package metrics_test

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corewire/stepflow/metrics"
)

func TestNewCollectorRegistersAllMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := metrics.NewCollector(reg)

	c.StepsCommitted.WithLabelValues("func1").Inc()
	c.InterruptsRaised.WithLabelValues("triggered").Inc()
	c.TaskInProgressSkipped.WithLabelValues("func1").Inc()
	c.Publishes.Inc()
	c.ExecutionsDisposed.Inc()

	assert.InDelta(t, 1, testutil.ToFloat64(c.StepsCommitted.WithLabelValues("func1")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(c.Publishes), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(c.ExecutionsDisposed), 0)

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.Len(t, families, 5)
}

func TestNewCollectorWithNilRegistererSkipsRegistration(t *testing.T) {
	assert.NotPanics(t, func() {
		c := metrics.NewCollector(nil)
		c.Publishes.Inc()
	})
}
