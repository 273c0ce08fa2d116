package agent

import (
	"sync/atomic"
	"time"
)

// SleepResult 可中断等待的结果
type SleepResult int

const (
	// Timeout 等满了整个时长
	Timeout SleepResult = iota
	// Interrupted 等待期间观察到中断标志
	Interrupted
)

func (r SleepResult) String() string {
	switch r {
	case Timeout:
		return "timeout"
	case Interrupted:
		return "interrupted"
	default:
		return "unknown"
	}
}

// InterruptibleSleep 以 resolution 为步长睡眠 d，每步之后检查 interrupt
// 中断最迟在一个 resolution 内被观察到
func InterruptibleSleep(d, resolution time.Duration, interrupt *atomic.Bool) SleepResult {
	if resolution <= 0 {
		resolution = DefaultResolution
	}
	deadline := time.Now().Add(d)
	for {
		if interrupt != nil && interrupt.Load() {
			return Interrupted
		}
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return Timeout
		}
		time.Sleep(min(resolution, remaining))
	}
}
