package agent

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/telemetry-agent/cmd/server"
	agentloop "github.com/telemetry-agent/pkg/agent"
	"github.com/telemetry-agent/pkg/collector"
	"github.com/telemetry-agent/pkg/config"
	"github.com/telemetry-agent/pkg/logger"
	"github.com/telemetry-agent/pkg/metrics"
	"github.com/telemetry-agent/pkg/monitor"
	"github.com/telemetry-agent/pkg/signal"
	"github.com/telemetry-agent/pkg/transmit"
)

func runServer(ctx context.Context, cfg *config.Config) error {
	// 1. 初始化日志
	if _, err := logger.InitLogger(&cfg.Log); err != nil {
		return fmt.Errorf("日志初始化失败: %w", err)
	}
	defer logger.Sync()
	logger.SetDefaultCollector("host")
	logger.Info("log initialization successful",
		zap.String("path", cfg.Log.Path),
		zap.String("level", cfg.Log.Level),
		zap.String("format", cfg.Log.Format))

	// 2. 自监控指标
	const enableProcess = true
	registry := metrics.NewRegistry(enableProcess)
	loopMetrics := monitor.NewLoopMetrics(metrics.NewMetricFactory(metrics.NewPromRegistry(registry)))

	// 3. 采集器与上报通道
	host := collector.NewHostCollector(cfg.Monitor.IgnoreDisks)
	if err := host.Init(); err != nil {
		return fmt.Errorf("init %s failed: %w", host.Name(), err)
	}
	defer host.Close()

	loop, err := agentloop.New(cfg.Monitor.Interval, host, newTransmitter(&cfg.Transmit),
		agentloop.WithDestination(cfg.Transmit.Destination),
		agentloop.WithResolution(cfg.Monitor.Resolution),
		agentloop.WithSendTimeout(cfg.Transmit.Timeout),
		agentloop.WithMetrics(loopMetrics),
	)
	if err != nil {
		return fmt.Errorf("create collection loop failed: %w", err)
	}

	// 4. HTTP 服务（可选）
	var httpServer *server.Server
	if cfg.Server.Enable {
		httpServer = server.NewHTTPServer(&cfg.Server, registry, loop.Running)
		if err := httpServer.Start(); err != nil {
			return fmt.Errorf("start HTTP server failed: %w", err)
		}
	}

	// 5. 采集循环在独立 goroutine 中阻塞运行
	loopDone := make(chan struct{})
	go func() {
		defer close(loopDone)
		loop.Run()
	}()

	if ctx == nil {
		ctx = context.Background()
	}
	var closers []func(context.Context) error
	if httpServer != nil {
		closers = append(closers, httpServer.Shutdown)
	}
	signal.WaitForShutdown(ctx, shutdownTimeout(cfg),
		newShutdown(loop, loopDone, cfg.Monitor.Resolution, closers...))
	return nil
}

// shutdownTimeout 关闭预算：一次卡在超时上的上报 + 一个检查粒度 + HTTP 关闭
func shutdownTimeout(cfg *config.Config) time.Duration {
	return cfg.Transmit.Timeout + cfg.Monitor.Resolution + signal.DefaultShutdownTimeout
}

// newShutdown 关闭顺序：采集循环 → closers（HTTP服务）
func newShutdown(loop *agentloop.Loop, loopDone <-chan struct{}, every time.Duration,
	closers ...func(context.Context) error) func(context.Context) error {
	return func(ctx context.Context) error {
		if err := stopLoop(ctx, loop, loopDone, every); err != nil {
			return err
		}
		for _, closeFn := range closers {
			if err := closeFn(ctx); err != nil {
				return fmt.Errorf("shutdown HTTP server failed: %w", err)
			}
		}
		logger.Info("all services shutdown successfully")
		return nil
	}
}

// stopLoop 每隔 every 重发一次 Stop，直到循环退出
// Run 尚未置 running 时 Stop 不生效，只发一次可能丢失
func stopLoop(ctx context.Context, loop *agentloop.Loop, loopDone <-chan struct{}, every time.Duration) error {
	if every <= 0 {
		every = agentloop.DefaultResolution
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		loop.Stop()
		select {
		case <-loopDone:
			return nil
		case <-ctx.Done():
			return fmt.Errorf("collection loop did not stop: %w", ctx.Err())
		case <-ticker.C:
		}
	}
}

// newTransmitter 未配置上报地址时只写日志
func newTransmitter(cfg *config.TransmitConfig) agentloop.Transmitter {
	if cfg.Destination == "" {
		return transmit.NewLog()
	}
	return transmit.NewHTTP(&http.Client{Timeout: cfg.Timeout}, cfg.Gzip)
}
