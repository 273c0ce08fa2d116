package monitor

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/telemetry-agent/pkg/metrics"
)

func newTestMetrics(t *testing.T) (*LoopMetrics, *prometheus.Registry) {
	t.Helper()
	reg := metrics.NewRegistry(false)
	return NewLoopMetrics(metrics.NewMetricFactory(metrics.NewPromRegistry(reg))), reg
}

func value(t *testing.T, m prometheus.Metric) *dto.Metric {
	t.Helper()
	out := &dto.Metric{}
	require.NoError(t, m.Write(out))
	return out
}

func TestLoopMetricsObserve(t *testing.T) {
	m, reg := newTestMetrics(t)
	r, err := NewRecord(10, 100, 101, 50, 102, 103)
	require.NoError(t, err)

	m.Observe(r)
	m.TickDone(0.25)
	m.TickFailed("transmit")
	m.TickFailed("transmit")

	assert.Equal(t, 10.0, value(t, m.CPUPercent).GetGauge().GetValue())
	assert.Equal(t, 100.0, value(t, m.MemoryUsed).GetGauge().GetValue())
	assert.Equal(t, 101.0, value(t, m.MemoryTotal).GetGauge().GetValue())
	assert.Equal(t, 50.0, value(t, m.ProcessCount).GetGauge().GetValue())
	assert.Equal(t, 102.0, value(t, m.DiskReadBytes).GetGauge().GetValue())
	assert.Equal(t, 103.0, value(t, m.DiskWrittenBytes).GetGauge().GetValue())
	assert.Equal(t, 1.0, value(t, m.Ticks).GetCounter().GetValue())
	assert.Equal(t, uint64(1), value(t, m.TickDuration).GetHistogram().GetSampleCount())
	assert.Equal(t, 2.0, value(t, m.TickErrors.WithLabelValues("transmit")).GetCounter().GetValue())

	families, err := reg.Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "agent_ticks_total")
	assert.Contains(t, names, "agent_tick_errors_total")
	assert.Contains(t, names, "host_cpu_percent")
}

func TestLoopMetricsNilSafe(t *testing.T) {
	var m *LoopMetrics
	assert.NotPanics(t, func() {
		m.Observe(Record{})
		m.TickDone(1)
		m.TickFailed("provider")
	})
}

func TestLoopMetricsDuplicateRegistrationPanics(t *testing.T) {
	reg := metrics.NewRegistry(false)
	f := metrics.NewMetricFactory(metrics.NewPromRegistry(reg))
	NewLoopMetrics(f)
	assert.Panics(t, func() { NewLoopMetrics(f) })
}
