package control

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/michaelpento.lv/arbscanner/state"
	"github.com/michaelpento.lv/arbscanner/types"
	"github.com/michaelpento.lv/arbscanner/utils/metrics"
)

type stateController struct {
	*state.RunState
}

func (c stateController) Start(_ context.Context, dryRun bool) error {
	return c.RunState.Start(dryRun)
}

func newTestServer(t *testing.T) (*state.RunState, *metrics.Metrics, http.Handler) {
	m := metrics.NewForTesting()
	s, err := state.New(state.DefaultOptions(), map[types.Strategy]bool{types.StrategyFeeTier: true}, m)
	require.NoError(t, err)

	srv := NewServer(Config{Listen: "127.0.0.1:0", Gatherer: m.Registry()}, stateController{s}, zaptest.NewLogger(t))
	return s, m, srv.Handler()
}

func do(t *testing.T, h http.Handler, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var decoded map[string]any
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decoded))
	}
	return rec, decoded
}

func TestHealth(t *testing.T) {
	_, _, h := newTestServer(t)

	rec, body := do(t, h, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, false, body["running"])
}

func TestStartDefaultsToDryRunAndConflicts(t *testing.T) {
	s, _, h := newTestServer(t)

	rec, body := do(t, h, http.MethodPost, "/start", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["dryRun"])
	assert.True(t, s.Running())
	assert.True(t, s.DryRun())

	rec, body = do(t, h, http.MethodPost, "/start", `{"dryRun":false}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, body["error"], "already running")

	rec, body = do(t, h, http.MethodPost, "/stop", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["wasRunning"])
	assert.False(t, s.Running())

	rec, _ = do(t, h, http.MethodPost, "/start", `{"dryRun":false}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, s.DryRun())
}

func TestStartRejectsMalformedBody(t *testing.T) {
	_, _, h := newTestServer(t)

	rec, _ := do(t, h, http.MethodPost, "/start", `{"dryRun":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestToggleStrategy(t *testing.T) {
	s, _, h := newTestServer(t)

	rec, body := do(t, h, http.MethodPost, "/strategies/triangular/toggle", `{"enabled":true}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["enabled"])
	assert.True(t, s.StrategyEnabled(types.StrategyTriangular))

	rec, _ = do(t, h, http.MethodPost, "/strategies/simple-fee-tier/toggle", `{"enabled":false}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, s.StrategyEnabled(types.StrategyFeeTier))

	rec, _ = do(t, h, http.MethodPost, "/strategies/arbitrage-9000/toggle", `{"enabled":true}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = do(t, h, http.MethodPost, "/strategies/triangular/toggle", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStatusSnapshot(t *testing.T) {
	s, _, h := newTestServer(t)
	require.NoError(t, s.Start(true))
	s.RecordTick("base")

	rec, body := do(t, h, http.MethodGet, "/status", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["running"])

	stats := body["stats"].(map[string]any)
	assert.Equal(t, float64(1), stats["ticks"])
	assert.Equal(t, "base", stats["currentChain"])
	assert.Len(t, body["strategies"], len(types.AllStrategies))
}

func TestMetricsEndpoint(t *testing.T) {
	_, m, h := newTestServer(t)
	m.Scan.Ticks.Inc()

	rec, _ := do(t, h, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "test_ticks_total 1")
}

func TestUnknownMethod(t *testing.T) {
	_, _, h := newTestServer(t)

	rec, _ := do(t, h, http.MethodGet, "/start", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
