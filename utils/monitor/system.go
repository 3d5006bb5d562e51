package monitor

import (
	"context"
	"runtime"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// Sample is one reading of the process runtime
type Sample struct {
	Goroutines  int
	HeapAlloc   uint64
	HeapObjects uint64
	GCPause     time.Duration
	Uptime      time.Duration
}

// SystemMonitor publishes runtime gauges for the scanner process
type SystemMonitor struct {
	ctx     context.Context
	cancel  context.CancelFunc
	logger  *zap.Logger
	started time.Time
	metrics struct {
		goroutines  prometheus.Gauge
		heapObjects prometheus.Gauge
		heapAlloc   prometheus.Gauge
		gcPause     prometheus.Gauge
		uptime      prometheus.Gauge
	}
	wg sync.WaitGroup
}

// NewSystemMonitor registers the gauges on reg and samples every interval
// until ctx is done or Cleanup is called
func NewSystemMonitor(ctx context.Context, namespace string, reg prometheus.Registerer, interval time.Duration, logger *zap.Logger) *SystemMonitor {
	ctx, cancel := context.WithCancel(ctx)
	m := &SystemMonitor{
		ctx:     ctx,
		cancel:  cancel,
		logger:  logger.With(zap.String("component", "system-monitor")),
		started: time.Now(),
	}

	factory := promauto.With(reg)
	m.metrics.goroutines = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "system_goroutines",
		Help:      "Current number of goroutines",
	})
	m.metrics.heapObjects = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "system_heap_objects",
		Help:      "Current number of heap objects",
	})
	m.metrics.heapAlloc = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "system_heap_alloc_bytes",
		Help:      "Current heap allocation in bytes",
	})
	m.metrics.gcPause = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "system_gc_pause_seconds",
		Help:      "Most recent GC pause",
	})
	m.metrics.uptime = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "system_uptime_seconds",
		Help:      "Seconds since the monitor started",
	})

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.monitor(interval)
	}()

	return m
}

func (m *SystemMonitor) monitor(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	m.collect()
	for {
		select {
		case <-m.ctx.Done():
			return
		case <-ticker.C:
			s := m.collect()
			m.logger.Debug("Runtime sample",
				zap.Int("goroutines", s.Goroutines),
				zap.Uint64("heap_alloc", s.HeapAlloc),
				zap.Duration("gc_pause", s.GCPause),
			)
		}
	}
}

// collect reads a sample and publishes it
func (m *SystemMonitor) collect() Sample {
	s := m.Sample()
	m.metrics.goroutines.Set(float64(s.Goroutines))
	m.metrics.heapObjects.Set(float64(s.HeapObjects))
	m.metrics.heapAlloc.Set(float64(s.HeapAlloc))
	m.metrics.gcPause.Set(s.GCPause.Seconds())
	m.metrics.uptime.Set(s.Uptime.Seconds())
	return s
}

// Sample reads the runtime without publishing
func (m *SystemMonitor) Sample() Sample {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	return Sample{
		Goroutines:  runtime.NumGoroutine(),
		HeapAlloc:   memStats.HeapAlloc,
		HeapObjects: memStats.HeapObjects,
		GCPause:     time.Duration(memStats.PauseNs[(memStats.NumGC+255)%256]),
		Uptime:      time.Since(m.started),
	}
}

// Cleanup stops sampling
func (m *SystemMonitor) Cleanup() {
	m.cancel()
	m.wg.Wait()
}
