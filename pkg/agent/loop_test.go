package agent

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/telemetry-agent/pkg/logger"
	"github.com/telemetry-agent/pkg/metrics"
	"github.com/telemetry-agent/pkg/monitor"
	"github.com/telemetry-agent/pkg/report"
)

type fakeProvider struct {
	cpu      float64
	used     uint64
	total    uint64
	procs    uint32
	read     uint64
	written  uint64
	diskErr  error
	panicMsg string
}

func sampleProvider() *fakeProvider {
	return &fakeProvider{cpu: 10, used: 100, total: 101, procs: 50, read: 102, written: 103}
}

func (p *fakeProvider) CPUPercent() (float64, error) {
	if p.panicMsg != "" {
		panic(p.panicMsg)
	}
	return p.cpu, nil
}
func (p *fakeProvider) UsedMemory() (uint64, error) { return p.used, nil }
func (p *fakeProvider) TotalMemory() (uint64, error) { return p.total, nil }
func (p *fakeProvider) ProcessCount() (uint32, error) { return p.procs, nil }
func (p *fakeProvider) DiskBytesRead() (uint64, error) {
	if p.diskErr != nil {
		return 0, p.diskErr
	}
	return p.read, nil
}
func (p *fakeProvider) DiskBytesWritten() (uint64, error) {
	if p.diskErr != nil {
		return 0, p.diskErr
	}
	return p.written, nil
}

type recordingTransmitter struct {
	mu           sync.Mutex
	docs         []report.Document
	destinations []string
	err          error
}

func (r *recordingTransmitter) Transmit(ctx context.Context, destination string, doc report.Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := ctx.Deadline(); !ok {
		return errors.New("missing deadline")
	}
	r.docs = append(r.docs, doc)
	r.destinations = append(r.destinations, destination)
	return r.err
}

func (r *recordingTransmitter) sent() []report.Document {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]report.Document(nil), r.docs...)
}

func observeLogs(t *testing.T) *observer.ObservedLogs {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	logger.ReplaceLogger(zap.New(core))
	t.Cleanup(func() { logger.ReplaceLogger(nil) })
	return logs
}

func newLoopMetrics(t *testing.T) *monitor.LoopMetrics {
	t.Helper()
	reg := prometheus.NewRegistry()
	return monitor.NewLoopMetrics(metrics.NewMetricFactory(metrics.NewPromRegistry(reg)))
}

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	out := &dto.Metric{}
	require.NoError(t, c.Write(out))
	return out.GetCounter().GetValue()
}

func waitRunning(t *testing.T, l *Loop) {
	t.Helper()
	require.Eventually(t, l.Running, time.Second, time.Millisecond)
}

func TestNewRejectsInvalidPeriod(t *testing.T) {
	periods := []time.Duration{
		0,
		-time.Second,
		time.Millisecond,
		999 * time.Millisecond,
		MaxPeriod + time.Second,
	}
	for _, p := range periods {
		t.Run(p.String(), func(t *testing.T) {
			l, err := New(p, sampleProvider(), &recordingTransmitter{})
			assert.Nil(t, l)
			assert.ErrorIs(t, err, ErrInvalidConfiguration)
		})
	}
}

func TestNewRejectsNilCollaborators(t *testing.T) {
	_, err := New(time.Second, nil, &recordingTransmitter{})
	assert.ErrorIs(t, err, ErrInvalidConfiguration)
	_, err = New(time.Second, sampleProvider(), nil)
	assert.ErrorIs(t, err, ErrInvalidConfiguration)
}

func TestNewDoesNotStart(t *testing.T) {
	tr := &recordingTransmitter{}
	for _, p := range []time.Duration{MinPeriod, time.Minute, MaxPeriod} {
		l, err := New(p, sampleProvider(), tr)
		require.NoError(t, err)
		assert.Equal(t, p, l.Period())
		assert.False(t, l.Running())
	}
	assert.Empty(t, tr.sent())
}

func TestTickProducesDocument(t *testing.T) {
	tr := &recordingTransmitter{}
	m := newLoopMetrics(t)
	l, err := New(time.Second, sampleProvider(), tr, WithDestination("http://collector:8080/ingest"), WithMetrics(m))
	require.NoError(t, err)

	assert.NotPanics(t, l.Tick)

	docs := tr.sent()
	require.Len(t, docs, 1)
	assert.Equal(t, map[string]any{
		"cpu_percent":           10.0,
		"used_memory_in_bytes":  uint64(100),
		"total_memory_in_bytes": uint64(101),
		"process_count":         uint32(50),
		"total_disk_read":       uint64(102),
		"total_disk_write":      uint64(103),
	}, docs[0].Map())
	assert.Equal(t, []string{"http://collector:8080/ingest"}, tr.destinations)
	assert.Equal(t, 1.0, counterValue(t, m.Ticks))
}

func TestTickSkipsTransmitOnValidationError(t *testing.T) {
	logs := observeLogs(t)
	p := sampleProvider()
	p.procs = 0
	tr := &recordingTransmitter{}
	m := newLoopMetrics(t)
	l, err := New(time.Second, p, tr, WithMetrics(m))
	require.NoError(t, err)

	assert.NotPanics(t, l.Tick)

	assert.Empty(t, tr.sent())
	assert.Equal(t, 1.0, counterValue(t, m.TickErrors.WithLabelValues(StageValidation)))
	assert.Equal(t, 0.0, counterValue(t, m.Ticks))
	entries := logs.FilterMessage("tick failed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, StageValidation, entries[0].ContextMap()["stage"])
}

func TestTickSwallowsTransmitError(t *testing.T) {
	observeLogs(t)
	tr := &recordingTransmitter{err: errors.New("connection refused")}
	m := newLoopMetrics(t)
	l, err := New(time.Second, sampleProvider(), tr, WithMetrics(m))
	require.NoError(t, err)

	assert.NotPanics(t, l.Tick)

	assert.Len(t, tr.sent(), 1)
	assert.Equal(t, 1.0, counterValue(t, m.TickErrors.WithLabelValues(StageTransmit)))
	assert.Equal(t, 0.0, counterValue(t, m.Ticks))
}

func TestTickProviderErrorStillReports(t *testing.T) {
	logs := observeLogs(t)
	p := sampleProvider()
	p.diskErr = errors.New("no disks")
	tr := &recordingTransmitter{}
	m := newLoopMetrics(t)
	l, err := New(time.Second, p, tr, WithMetrics(m))
	require.NoError(t, err)

	l.Tick()

	docs := tr.sent()
	require.Len(t, docs, 1)
	v, _ := docs[0].Get(report.KeyDiskRead)
	assert.Equal(t, uint64(0), v)
	assert.Equal(t, 1.0, counterValue(t, m.TickErrors.WithLabelValues(StageProvider)))
	assert.Equal(t, 1, logs.FilterField(zap.String("stage", StageProvider)).Len())
}

func TestTickRecoversPanic(t *testing.T) {
	logs := observeLogs(t)
	p := sampleProvider()
	p.panicMsg = "boom"
	m := newLoopMetrics(t)
	l, err := New(time.Second, p, &recordingTransmitter{}, WithMetrics(m))
	require.NoError(t, err)

	assert.NotPanics(t, l.Tick)
	assert.Equal(t, 1.0, counterValue(t, m.TickErrors.WithLabelValues(StagePanic)))
	assert.Equal(t, 1, logs.FilterLevelExact(zapcore.ErrorLevel).Len())
}

func TestCollect(t *testing.T) {
	l, err := New(time.Second, sampleProvider(), &recordingTransmitter{})
	require.NoError(t, err)

	r, err := l.Collect()
	require.NoError(t, err)
	assert.Equal(t, 10.0, r.CPUPercent())
	assert.Equal(t, uint32(50), r.ProcessCount())

	p := sampleProvider()
	p.cpu = 140
	l, err = New(time.Second, p, &recordingTransmitter{})
	require.NoError(t, err)
	_, err = l.Collect()
	assert.ErrorIs(t, err, monitor.ErrValidation)
}

func TestRunStopAndRerun(t *testing.T) {
	tr := &recordingTransmitter{}
	l, err := New(time.Second, sampleProvider(), tr, WithResolution(100*time.Millisecond))
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		done := make(chan struct{})
		go func() {
			defer close(done)
			l.Run()
		}()
		waitRunning(t, l)
		time.Sleep(10 * time.Millisecond)

		stopped := time.Now()
		l.Stop()
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("Run did not return after Stop")
		}
		assert.Less(t, time.Since(stopped), 500*time.Millisecond)
		assert.False(t, l.Running())
	}
	// one immediate tick per run, both stopped before the second period
	assert.Len(t, tr.sent(), 2)
}

func TestRunWhileRunningReturnsImmediately(t *testing.T) {
	observeLogs(t)
	tr := &recordingTransmitter{}
	l, err := New(time.Second, sampleProvider(), tr, WithResolution(10*time.Millisecond))
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		defer close(done)
		l.Run()
	}()
	waitRunning(t, l)

	returned := make(chan struct{})
	go func() {
		l.Run()
		close(returned)
	}()
	select {
	case <-returned:
	case <-time.After(time.Second):
		t.Fatal("second Run blocked")
	}
	assert.True(t, l.Running())

	l.Stop()
	<-done
	assert.Len(t, tr.sent(), 1)
}

func TestStopWhenNotRunningIsNoop(t *testing.T) {
	tr := &recordingTransmitter{}
	l, err := New(time.Second, sampleProvider(), tr, WithResolution(10*time.Millisecond))
	require.NoError(t, err)

	l.Stop()
	assert.False(t, l.Running())

	done := make(chan struct{})
	go func() {
		defer close(done)
		l.Run()
	}()
	waitRunning(t, l)

	// an earlier Stop must not be queued
	select {
	case <-done:
		t.Fatal("Run exited on a Stop issued before it started")
	case <-time.After(100 * time.Millisecond):
	}
	l.Stop()
	<-done
}

func TestRunTicksEveryPeriod(t *testing.T) {
	if testing.Short() {
		t.Skip("waits for a full period")
	}
	tr := &recordingTransmitter{}
	l, err := New(time.Second, sampleProvider(), tr, WithResolution(50*time.Millisecond))
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		defer close(done)
		l.Run()
	}()
	require.Eventually(t, func() bool { return len(tr.sent()) >= 2 }, 3*time.Second, 20*time.Millisecond)
	l.Stop()
	<-done
}

type refreshingProvider struct {
	*fakeProvider
	refreshes int
}

func (p *refreshingProvider) Refresh() error {
	p.refreshes++
	return errors.New("partial snapshot")
}

func TestCollectRefreshesOncePerTick(t *testing.T) {
	p := &refreshingProvider{fakeProvider: sampleProvider()}
	tr := &recordingTransmitter{}
	l, err := New(time.Second, p, tr)
	require.NoError(t, err)

	l.Tick()
	l.Tick()

	assert.Equal(t, 2, p.refreshes)
	// accessors own error reporting, a refresh error alone does not fail the tick
	assert.Len(t, tr.sent(), 2)
}

func TestConcurrentStopLeavesNoStaleRequest(t *testing.T) {
	l, err := New(time.Second, sampleProvider(), &recordingTransmitter{}, WithResolution(time.Millisecond))
	require.NoError(t, err)

	for i := 0; i < 50; i++ {
		done := make(chan struct{})
		go func() {
			defer close(done)
			l.Run()
		}()
		waitRunning(t, l)

		var wg sync.WaitGroup
		for j := 0; j < 4; j++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				l.Stop()
			}()
		}
		wg.Wait()
		<-done
		require.False(t, l.stopRequested.Load(), "iteration %d left a stop request behind", i)
	}

	// the next run must not exit on a leftover request
	done := make(chan struct{})
	go func() {
		defer close(done)
		l.Run()
	}()
	waitRunning(t, l)
	select {
	case <-done:
		t.Fatal("Run exited without a Stop")
	case <-time.After(50 * time.Millisecond):
	}
	l.Stop()
	<-done
}
