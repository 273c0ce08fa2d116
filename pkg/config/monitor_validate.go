package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"
)

const (
	minInterval   = time.Second
	maxInterval   = 3600 * time.Second
	minResolution = 10 * time.Millisecond
	maxResolution = time.Second
)

// Validate HTTP服务配置校验
func (h *ServerConfig) Validate() error {
	if err := valid.Struct(h); err != nil {
		return err
	}
	// 	校验Addr格式(必须是 ":port" 或 "ip:port")
	if h.Addr == "" {
		return errors.New("server.addr cannot be empty")
	}
	if _, err := net.ResolveTCPAddr("tcp", h.Addr); err != nil {
		return fmt.Errorf("server.addr format invalid (expected: :port or ip:port), got %s: %w", h.Addr, err)
	}
	return nil
}

// Validate 采集周期必须在 1s ~ 3600s 之间，检查粒度不能超过周期
func (m *MonitorConfig) Validate() error {
	if err := valid.Struct(m); err != nil {
		return err
	}
	if m.Interval < minInterval || m.Interval > maxInterval {
		return fmt.Errorf("monitor.interval must be between 1 and 3600 seconds, got %s", m.Interval)
	}
	if m.Resolution < minResolution || m.Resolution > maxResolution {
		return fmt.Errorf("monitor.resolution must be between %s and %s, got %s", minResolution, maxResolution, m.Resolution)
	}

	seen := map[string]bool{}
	for _, d := range m.IgnoreDisks {
		if strings.TrimSpace(d) == "" {
			return fmt.Errorf("monitor.ignore_disks cannot contain empty string")
		}
		if strings.ContainsAny(d, " \t\r\n") {
			return fmt.Errorf("monitor.ignore_disks: disk %q contains whitespace", d)
		}
		if seen[d] {
			return fmt.Errorf("monitor.ignore_disks contains duplicate disk name: %s", d)
		}
		seen[d] = true
	}
	return nil
}

// Validate 上报地址为空时走日志上报；否则必须是 http/https 绝对地址
func (t *TransmitConfig) Validate() error {
	if err := valid.Struct(t); err != nil {
		return err
	}
	if t.Destination == "" {
		return nil
	}
	u, err := url.Parse(t.Destination)
	if err != nil {
		return fmt.Errorf("transmit.destination invalid: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("transmit.destination must use http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("transmit.destination has no host: %s", t.Destination)
	}
	return nil
}
