package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestPrometheusProvider_Instruments(t *testing.T) {
	reg := prometheus.NewRegistry()
	p := NewPrometheusProvider(reg, WithBuckets([]float64{0.01, 0.1, 1}))

	c := p.Counter(JobsSubmitted, WithDescription("jobs submitted"))
	require.Same(t, c, p.Counter(JobsSubmitted))
	c.Add(2)
	c.Add(-5) // ignored
	c.Add(1)
	require.Equal(t, 3.0, testutil.ToFloat64(c.(*promCounter).c))

	g := p.UpDownCounter(WorkersBusy)
	g.Add(4)
	g.Add(-1)
	require.Equal(t, 3.0, testutil.ToFloat64(g.(*promGauge).g))

	h := p.Histogram(JobDuration, WithAttributes(map[string]string{"pool": "test"}))
	h.Record(0.05)
	h.Record(0.5)
	require.Equal(t, 1, testutil.CollectAndCount(h.(*promHistogram).h))

	n, err := testutil.GatherAndCount(reg)
	require.NoError(t, err)
	require.Equal(t, 3, n)
}

func TestPrometheusProvider_SharedRegistryReusesCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()

	first := NewPrometheusProvider(reg)
	second := NewPrometheusProvider(reg)

	first.Counter(JobsCompleted).Add(2)
	second.Counter(JobsCompleted).Add(3)

	require.Equal(t, 5.0, testutil.ToFloat64(second.Counter(JobsCompleted).(*promCounter).c))
}
