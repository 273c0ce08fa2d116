package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// -------------------------- 主机指标（最近一次上报的读数） --------------------------

func (m *MetricFactory) NewHostCPUPercent() prometheus.Gauge {
	return m.gauge("host_cpu_percent", "CPU usage percentage (0-100) of the last report")
}

func (m *MetricFactory) NewHostMemoryUsedBytes() prometheus.Gauge {
	return m.gauge("host_memory_used_bytes", "Used physical memory in bytes of the last report")
}

func (m *MetricFactory) NewHostMemoryTotalBytes() prometheus.Gauge {
	return m.gauge("host_memory_total_bytes", "Total physical memory in bytes of the last report")
}

func (m *MetricFactory) NewHostProcessCount() prometheus.Gauge {
	return m.gauge("host_process_count", "Number of running processes of the last report")
}

// NewHostDiskReadBytes 磁盘累计读字节数；来源本身是累计值，因此用 Gauge 直接 Set
func (m *MetricFactory) NewHostDiskReadBytes() prometheus.Gauge {
	return m.gauge("host_disk_read_bytes", "Cumulative bytes read from disks of the last report")
}

func (m *MetricFactory) NewHostDiskWrittenBytes() prometheus.Gauge {
	return m.gauge("host_disk_written_bytes", "Cumulative bytes written to disks of the last report")
}

func (m *MetricFactory) gauge(name, help string) prometheus.Gauge {
	g := prometheus.NewGauge(prometheus.GaugeOpts{Name: name, Help: help})
	m.reg.MustRegister(g)
	return g
}
