package metrics

import "github.com/prometheus/client_golang/prometheus"

// NewAgentTicksTotal 创建「成功上报次数」指标
// 指标类型：Counter，每完成一次 采集→校验→上报 的 tick 加一
func (m *MetricFactory) NewAgentTicksTotal() prometheus.Counter {
	c := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "agent_ticks_total",
		Help: "Total collection ticks that produced and handed off a report",
	})
	m.reg.MustRegister(c)
	return c
}

// NewAgentTickErrorsTotal 创建「tick 失败次数」指标
// 标签说明：
// stage: 失败阶段（provider 采集读数、validation 数据校验、transmit 上报、panic 异常恢复）
func (m *MetricFactory) NewAgentTickErrorsTotal() *prometheus.CounterVec {
	c := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "agent_tick_errors_total",
		Help: "Total tick failures by stage",
	}, []string{"stage"})
	m.reg.MustRegister(c)
	return c
}

// NewAgentTickDurationSeconds 创建「单次 tick 耗时分布」指标
// 分桶说明：0.001s ~ 0.512s，覆盖本地采集与一次 HTTP 上报
func (m *MetricFactory) NewAgentTickDurationSeconds() prometheus.Histogram {
	h := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "agent_tick_duration_seconds",
		Help:    "Duration of one collection tick",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 10),
	})
	m.reg.MustRegister(h)
	return h
}
