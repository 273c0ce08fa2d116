package collector

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"
	"go.uber.org/zap"

	"github.com/telemetry-agent/pkg/logger"
	"github.com/telemetry-agent/pkg/monitor"
)

// hostSnapshot 一次 Refresh 得到的内存与磁盘读数
// used/total 与 read/written 各自来自同一次系统调用
type hostSnapshot struct {
	usedMemory  uint64
	totalMemory uint64
	memErr      error

	diskRead    uint64
	diskWritten uint64
	diskErr     error
}

// HostCollector 基于 gopsutil 的主机读数提供者
// 每个读数方法失败时返回零值 + 错误，错误由调用方决定如何上报
// 内存与磁盘读数来自最近一次 Refresh 的快照，CPU 与进程数实时读取
type HostCollector struct {
	name        string
	ignoreDisks []string

	virtualMemory func() (*mem.VirtualMemoryStat, error)
	ioCounters    func(names ...string) (map[string]disk.IOCountersStat, error)

	mu   sync.Mutex
	snap *hostSnapshot
}

// NewHostCollector 创建主机采集器，ignoreDisks 为需要忽略的磁盘名前缀（如 loop、ram）
func NewHostCollector(ignoreDisks []string) *HostCollector {
	return &HostCollector{
		name:          "host-collector",
		ignoreDisks:   ignoreDisks,
		virtualMemory: mem.VirtualMemory,
		ioCounters:    disk.IOCounters,
	}
}

// Name 返回采集器名称
func (c *HostCollector) Name() string { return c.name }

// Init 预检查CPU可用性
func (c *HostCollector) Init() error {
	if _, err := cpu.Counts(false); err != nil {
		logger.Error("failed to get CPU counts", zap.String("name", c.name), zap.Error(err))
		return fmt.Errorf("cpu counts: %w", err)
	}
	return nil
}

// Refresh 读取一次内存与磁盘快照，供本轮采集的四个读数共用
func (c *HostCollector) Refresh() error {
	snap := c.readSnapshot()
	c.mu.Lock()
	c.snap = snap
	c.mu.Unlock()
	return errors.Join(snap.memErr, snap.diskErr)
}

func (c *HostCollector) readSnapshot() *hostSnapshot {
	snap := &hostSnapshot{}

	if vm, err := c.virtualMemory(); err != nil {
		snap.memErr = fmt.Errorf("get memory info failed: %w", err)
	} else {
		snap.totalMemory = vm.Total
		// 已用物理内存 = Total - Available
		if vm.Available <= vm.Total {
			snap.usedMemory = vm.Total - vm.Available
		}
	}

	counters, err := c.ioCounters()
	if err != nil {
		snap.diskErr = fmt.Errorf("read disk performance failed: %w", err)
		return snap
	}
	for name, io := range counters {
		if c.ignored(name) {
			continue
		}
		snap.diskRead += io.ReadBytes
		snap.diskWritten += io.WriteBytes
	}
	return snap
}

// current 返回最近一次快照；从未 Refresh 过时先读取一次
func (c *HostCollector) current() *hostSnapshot {
	c.mu.Lock()
	snap := c.snap
	c.mu.Unlock()
	if snap == nil {
		_ = c.Refresh()
		c.mu.Lock()
		snap = c.snap
		c.mu.Unlock()
	}
	return snap
}

// CPUPercent 总体CPU使用率（0-100），与上次调用之间的平均值
func (c *HostCollector) CPUPercent() (float64, error) {
	usage, err := cpu.Percent(0, false)
	if err != nil {
		return 0, fmt.Errorf("get cpu usage failed: %w", err)
	}
	if len(usage) == 0 {
		return 0, fmt.Errorf("get cpu usage failed: empty result")
	}
	return clampPercent(usage[0]), nil
}

// UsedMemory 已用物理内存
func (c *HostCollector) UsedMemory() (uint64, error) {
	snap := c.current()
	if snap.memErr != nil {
		return 0, snap.memErr
	}
	return snap.usedMemory, nil
}

// TotalMemory 物理内存总量
func (c *HostCollector) TotalMemory() (uint64, error) {
	snap := c.current()
	if snap.memErr != nil {
		return 0, snap.memErr
	}
	return snap.totalMemory, nil
}

// ProcessCount 当前进程数
func (c *HostCollector) ProcessCount() (uint32, error) {
	pids, err := process.Pids()
	if err != nil {
		return 0, fmt.Errorf("enumerate processes failed: %w", err)
	}
	if uint64(len(pids)) > math.MaxUint32 {
		return math.MaxUint32, nil
	}
	return uint32(len(pids)), nil
}

// DiskBytesRead 所有磁盘累计读字节数
func (c *HostCollector) DiskBytesRead() (uint64, error) {
	snap := c.current()
	if snap.diskErr != nil {
		return 0, snap.diskErr
	}
	return snap.diskRead, nil
}

// DiskBytesWritten 所有磁盘累计写字节数
func (c *HostCollector) DiskBytesWritten() (uint64, error) {
	snap := c.current()
	if snap.diskErr != nil {
		return 0, snap.diskErr
	}
	return snap.diskWritten, nil
}

func (c *HostCollector) ignored(device string) bool {
	for _, prefix := range c.ignoreDisks {
		if strings.HasPrefix(device, prefix) {
			return true
		}
	}
	return false
}

// Close 释放资源
func (c *HostCollector) Close() error {
	return nil
}

func clampPercent(v float64) float64 {
	switch {
	case math.IsNaN(v):
		return monitor.MinCPUPercent
	case v < monitor.MinCPUPercent:
		return monitor.MinCPUPercent
	case v > monitor.MaxCPUPercent:
		return monitor.MaxCPUPercent
	default:
		return v
	}
}
