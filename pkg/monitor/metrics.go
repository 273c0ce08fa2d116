package monitor

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/telemetry-agent/pkg/metrics"
)

// LoopMetrics 采集循环自监控指标
type LoopMetrics struct {
	Ticks        prometheus.Counter
	TickErrors   *prometheus.CounterVec // 按 stage 统计
	TickDuration prometheus.Histogram

	CPUPercent       prometheus.Gauge
	MemoryUsed       prometheus.Gauge
	MemoryTotal      prometheus.Gauge
	ProcessCount     prometheus.Gauge
	DiskReadBytes    prometheus.Gauge
	DiskWrittenBytes prometheus.Gauge
}

// NewLoopMetrics 通过指标工厂创建并注册全部指标
func NewLoopMetrics(f *metrics.MetricFactory) *LoopMetrics {
	return &LoopMetrics{
		Ticks:            f.NewAgentTicksTotal(),
		TickErrors:       f.NewAgentTickErrorsTotal(),
		TickDuration:     f.NewAgentTickDurationSeconds(),
		CPUPercent:       f.NewHostCPUPercent(),
		MemoryUsed:       f.NewHostMemoryUsedBytes(),
		MemoryTotal:      f.NewHostMemoryTotalBytes(),
		ProcessCount:     f.NewHostProcessCount(),
		DiskReadBytes:    f.NewHostDiskReadBytes(),
		DiskWrittenBytes: f.NewHostDiskWrittenBytes(),
	}
}

// Observe 把一次成功上报的读数写入主机指标；m 为 nil 时忽略
func (m *LoopMetrics) Observe(r Record) {
	if m == nil {
		return
	}
	m.CPUPercent.Set(r.CPUPercent())
	m.MemoryUsed.Set(float64(r.UsedMemory()))
	m.MemoryTotal.Set(float64(r.TotalMemory()))
	m.ProcessCount.Set(float64(r.ProcessCount()))
	m.DiskReadBytes.Set(float64(r.DiskBytesRead()))
	m.DiskWrittenBytes.Set(float64(r.DiskBytesWrite()))
}

// TickFailed 记录某阶段失败；m 为 nil 时忽略
func (m *LoopMetrics) TickFailed(stage string) {
	if m == nil {
		return
	}
	m.TickErrors.WithLabelValues(stage).Inc()
}

// TickDone 记录一次完整 tick 的耗时
func (m *LoopMetrics) TickDone(seconds float64) {
	if m == nil {
		return
	}
	m.Ticks.Inc()
	m.TickDuration.Observe(seconds)
}
