package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DaviRain-Su/zigQuant-sub014/internal/adapter"
	"github.com/DaviRain-Su/zigQuant-sub014/internal/bus"
	"github.com/DaviRain-Su/zigQuant-sub014/internal/domain"
	"github.com/DaviRain-Su/zigQuant-sub014/internal/execution"
	"github.com/DaviRain-Su/zigQuant-sub014/internal/indicator"
	"github.com/DaviRain-Su/zigQuant-sub014/internal/manager"
	"github.com/DaviRain-Su/zigQuant-sub014/internal/runner"
	"github.com/DaviRain-Su/zigQuant-sub014/internal/strategy"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) (*Server, *manager.Manager) {
	t.Helper()
	b := bus.New(zerolog.Nop())
	mgr := manager.New(b, zerolog.Nop())
	s := New(Config{Log: zerolog.Nop(), Manager: mgr, Addr: ":0", DevMode: true})
	return s, mgr
}

func startStrategy(t *testing.T, mgr *manager.Manager, id string) chan domain.Candle {
	t.Helper()
	cache, err := indicator.NewCache(64)
	require.NoError(t, err)
	exec := execution.New(adapter.NewMockExecutionClient(id), execution.RiskLimits{}, execution.DefaultRetryConfig, nil, zerolog.Nop())
	ticks := make(chan domain.Candle)
	cfg := domain.StrategyConfig{Pair: domain.TradingPair{Base: "BTC", Quote: "USD"}}
	r := runner.New(id, strategy.NewDualMovingAverage(5, 20), cfg, cache, exec, ticks, nil, zerolog.Nop())
	require.NoError(t, mgr.StartStrategy(id, r, exec))
	return ticks
}

func TestHandleHealthReportsRegistryCounts(t *testing.T) {
	s, mgr := newTestServer(t)
	ticks := startStrategy(t, mgr, "s1")
	defer close(ticks)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp healthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, 1, resp.StrategiesRunning)
	require.False(t, resp.KillSwitchActive)
}

func TestHandleListAndGetStrategy(t *testing.T) {
	s, mgr := newTestServer(t)
	ticks := startStrategy(t, mgr, "s1")
	defer close(ticks)

	req := httptest.NewRequest(http.MethodGet, "/api/strategies/", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/strategies/s1/status", nil)
	rec = httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/strategies/missing/status", nil)
	rec = httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleKillSwitchLifecycle(t *testing.T) {
	s, mgr := newTestServer(t)
	ticks := startStrategy(t, mgr, "s1")
	defer close(ticks)

	body, _ := json.Marshal(killSwitchActivateRequest{Reason: "drill"})
	req := httptest.NewRequest(http.MethodPost, "/api/kill-switch/activate", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var result manager.KillSwitchResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	require.Equal(t, 1, result.StrategiesStopped)

	req = httptest.NewRequest(http.MethodGet, "/api/kill-switch/", nil)
	rec = httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	var status map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	require.Equal(t, true, status["active"])

	req = httptest.NewRequest(http.MethodPost, "/api/kill-switch/deactivate", nil)
	rec = httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNoContent, rec.Code)

	active, _ := mgr.IsKillSwitchActive()
	require.False(t, active)
}
