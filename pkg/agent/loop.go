// Package agent 采集循环：周期性地 采集 → 校验 → 生成报告 → 上报
package agent

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/telemetry-agent/pkg/logger"
	"github.com/telemetry-agent/pkg/monitor"
	"github.com/telemetry-agent/pkg/report"
)

// 周期范围与默认值
const (
	MinPeriod = time.Second
	MaxPeriod = time.Duration(math.MaxInt32) * time.Second

	DefaultResolution  = 100 * time.Millisecond
	DefaultSendTimeout = 5 * time.Second
)

// tick 失败阶段，对应 agent_tick_errors_total 的 stage 标签
const (
	StageProvider   = "provider"
	StageValidation = "validation"
	StageTransmit   = "transmit"
	StagePanic      = "panic"
)

// ErrInvalidConfiguration 周期不在 [MinPeriod, MaxPeriod] 内或协作者为空时由 New 返回
var ErrInvalidConfiguration = errors.New("invalid configuration")

// Provider 主机读数提供者（六个读数）
// 读数失败时返回零值 + 错误
type Provider interface {
	CPUPercent() (float64, error)
	UsedMemory() (uint64, error)
	TotalMemory() (uint64, error)
	ProcessCount() (uint32, error)
	DiskBytesRead() (uint64, error)
	DiskBytesWritten() (uint64, error)
}

// Refresher 可选接口：Provider 实现后，每次采集前调用一次 Refresh，
// 使同一 tick 内的读数来自同一份快照。错误由各读数方法自行返回
type Refresher interface {
	Refresh() error
}

// Transmitter 把报告发送到 destination
type Transmitter interface {
	Transmit(ctx context.Context, destination string, doc report.Document) error
}

// Loop 采集循环；Run 与 Stop 可在不同 goroutine 中调用
// running / stopRequested 是唯一跨 goroutine 共享的状态
type Loop struct {
	period      time.Duration
	resolution  time.Duration
	sendTimeout time.Duration
	destination string

	provider    Provider
	transmitter Transmitter
	metrics     *monitor.LoopMetrics

	running       atomic.Bool
	stopRequested atomic.Bool
}

// Option 构造选项
type Option func(*Loop)

// WithDestination 上报地址，原样交给 Transmitter
func WithDestination(destination string) Option {
	return func(l *Loop) { l.destination = destination }
}

// WithResolution 两次 tick 之间检查停止信号的粒度，<=0 时保持默认 100ms
func WithResolution(d time.Duration) Option {
	return func(l *Loop) {
		if d > 0 {
			l.resolution = d
		}
	}
}

// WithSendTimeout 单次 Transmit 的超时时间
func WithSendTimeout(d time.Duration) Option {
	return func(l *Loop) {
		if d > 0 {
			l.sendTimeout = d
		}
	}
}

// WithMetrics 自监控指标，nil 表示不记录
func WithMetrics(m *monitor.LoopMetrics) Option {
	return func(l *Loop) { l.metrics = m }
}

// New 校验周期并创建循环，不会启动采集
func New(period time.Duration, provider Provider, transmitter Transmitter, opts ...Option) (*Loop, error) {
	if period < MinPeriod || period > MaxPeriod {
		return nil, fmt.Errorf("%w: period %s must be between %s and %s",
			ErrInvalidConfiguration, period, MinPeriod, MaxPeriod)
	}
	if provider == nil {
		return nil, fmt.Errorf("%w: nil provider", ErrInvalidConfiguration)
	}
	if transmitter == nil {
		return nil, fmt.Errorf("%w: nil transmitter", ErrInvalidConfiguration)
	}
	l := &Loop{
		period:      period,
		resolution:  DefaultResolution,
		sendTimeout: DefaultSendTimeout,
		provider:    provider,
		transmitter: transmitter,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Period 上报周期
func (l *Loop) Period() time.Duration { return l.period }

// Running 循环是否正在运行
func (l *Loop) Running() bool { return l.running.Load() }

// Run 阻塞运行：立即执行一次 tick，之后每个周期一次，直到 Stop
// 已在运行时直接返回（记录告警），不影响正在运行的循环
func (l *Loop) Run() {
	if !l.running.CompareAndSwap(false, true) {
		logger.Warn("collection loop already running")
		return
	}
	// 先清 running 再清 stopRequested，与 Stop 中的二次检查配合
	defer func() {
		l.running.Store(false)
		l.stopRequested.Store(false)
	}()

	logger.Info("collection loop started",
		zap.Duration("period", l.period),
		zap.Duration("resolution", l.resolution),
		zap.String("destination", l.destination))

	for {
		l.Tick()
		if InterruptibleSleep(l.period, l.resolution, &l.stopRequested) == Interrupted {
			break
		}
	}
	logger.Info("collection loop stopped")
}

// Stop 请求运行中的循环在下一个检查点退出，不等待；未运行时无效果
func (l *Loop) Stop() {
	if !l.running.Load() {
		return
	}
	l.stopRequested.Store(true)
	// Run 可能在上面两步之间退出，此时不能留下过期的停止请求
	if !l.running.Load() {
		l.stopRequested.Store(false)
	}
}

// Collect 读取一次 Provider 并构造 Record
// 读数错误记录日志并计数，留下的零值照常参与 Record 校验
func (l *Loop) Collect() (monitor.Record, error) {
	if r, ok := l.provider.(Refresher); ok {
		_ = r.Refresh()
	}
	var errs []error
	cpu, err := l.provider.CPUPercent()
	errs = append(errs, err)
	used, err := l.provider.UsedMemory()
	errs = append(errs, err)
	total, err := l.provider.TotalMemory()
	errs = append(errs, err)
	procs, err := l.provider.ProcessCount()
	errs = append(errs, err)
	read, err := l.provider.DiskBytesRead()
	errs = append(errs, err)
	written, err := l.provider.DiskBytesWritten()
	errs = append(errs, err)

	if err := errors.Join(errs...); err != nil {
		l.failed(StageProvider, err)
	}
	return monitor.NewRecord(cpu, used, total, procs, read, written)
}

// Tick 执行一次 采集 → 报告 → 上报，错误与 panic 都不会向外传播
func (l *Loop) Tick() {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			l.failed(StagePanic, fmt.Errorf("%v", r))
		}
	}()

	record, err := l.Collect()
	if err != nil {
		l.failed(StageValidation, err)
		return
	}
	l.metrics.Observe(record)

	doc := report.Build(record)
	ctx, cancel := context.WithTimeout(context.Background(), l.sendTimeout)
	defer cancel()
	if err := l.transmitter.Transmit(ctx, l.destination, doc); err != nil {
		l.failed(StageTransmit, err)
		return
	}
	l.metrics.TickDone(time.Since(start).Seconds())
	logger.Debug("tick completed", zap.Stringer("report", doc))
}

// failed 按阶段计数并记录日志，panic 记为 ERROR，其余为 WARN
func (l *Loop) failed(stage string, err error) {
	l.metrics.TickFailed(stage)
	if stage == StagePanic {
		logger.Error("tick failed", zap.String("stage", stage), zap.Error(err))
		return
	}
	logger.Warn("tick failed", zap.String("stage", stage), zap.Error(err))
}
