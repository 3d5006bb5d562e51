package monitor

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestSystemMonitorPublishesGauges(t *testing.T) {
	reg := prometheus.NewRegistry()
	mon := NewSystemMonitor(context.Background(), "test", reg, 10*time.Millisecond, zaptest.NewLogger(t))

	require.Eventually(t, func() bool {
		return testutil.ToFloat64(mon.metrics.goroutines) > 0
	}, 2*time.Second, 10*time.Millisecond)

	assert.Greater(t, testutil.ToFloat64(mon.metrics.heapAlloc), 0.0)

	count, err := testutil.GatherAndCount(reg,
		"test_system_goroutines",
		"test_system_heap_alloc_bytes",
		"test_system_uptime_seconds",
	)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	mon.Cleanup()

	s := mon.Sample()
	assert.Greater(t, s.Goroutines, 0)
	assert.Greater(t, s.HeapAlloc, uint64(0))
	assert.GreaterOrEqual(t, s.GCPause, time.Duration(0))
}

func TestSystemMonitorStopsWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	mon := NewSystemMonitor(ctx, "test", prometheus.NewRegistry(), time.Hour, zaptest.NewLogger(t))

	cancel()
	done := make(chan struct{})
	go func() {
		mon.Cleanup()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("monitor did not stop")
	}
}
