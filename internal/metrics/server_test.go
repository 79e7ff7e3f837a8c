package metrics

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/I-Onlabs/sigmax/internal/adapters"
	"github.com/I-Onlabs/sigmax/internal/config"
	"github.com/I-Onlabs/sigmax/internal/engine"
	"github.com/I-Onlabs/sigmax/internal/privacy"
	"github.com/I-Onlabs/sigmax/internal/research"
	"github.com/I-Onlabs/sigmax/internal/safety"
	"github.com/I-Onlabs/sigmax/internal/temporal"
)

func testServer(t *testing.T) *Server {
	t.Helper()

	cfg := config.Default()

	simTime := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	gateway := temporal.NewGateway(simTime, temporal.Adapters{
		Data: adapters.NewPaperDataAdapter(),
		News: adapters.NewPaperNewsAdapter(),
	}, temporal.Options{
		Now: func() time.Time { return time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC) },
	})

	scanner, err := privacy.NewScanner()
	require.NoError(t, err)
	enforcer := safety.NewEnforcer(cfg.Safety, scanner)

	eng := engine.New(cfg, engine.Deps{
		Research: research.NewService(cfg.Planner, research.ExecutorDeps{Gateway: gateway}, nil),
		Gateway:  gateway,
		Safety:   enforcer,
		Scanner:  scanner,
	})

	return NewServer(0, eng)
}

func TestHealthEndpoint(t *testing.T) {
	s := testServer(t)

	rec := httptest.NewRecorder()
	s.handleHealth(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

func TestStatusEndpoint(t *testing.T) {
	s := testServer(t)

	rec := httptest.NewRecorder()
	s.handleStatus(rec, httptest.NewRequest(http.MethodGet, "/status", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var status engine.Status
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.False(t, status.Paused)
	assert.Equal(t, "balanced", status.RiskProfile)
}

func TestPauseAndResumeEndpoints(t *testing.T) {
	s := testServer(t)

	rec := httptest.NewRecorder()
	s.handlePause(rec, httptest.NewRequest(http.MethodPost, "/pause?reason=drill", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	s.handleStatus(rec, httptest.NewRequest(http.MethodGet, "/status", nil))
	var status engine.Status
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.True(t, status.Paused)
	assert.Equal(t, "drill", status.PauseReason)

	rec = httptest.NewRecorder()
	s.handleResume(rec, httptest.NewRequest(http.MethodPost, "/resume?force=true", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	s.handleStatus(rec, httptest.NewRequest(http.MethodGet, "/status", nil))
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.False(t, status.Paused)
}

func TestPauseRejectsGet(t *testing.T) {
	s := testServer(t)

	rec := httptest.NewRecorder()
	s.handlePause(rec, httptest.NewRequest(http.MethodGet, "/pause", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestDecisionsEndpointValidation(t *testing.T) {
	s := testServer(t)

	rec := httptest.NewRecorder()
	s.handleDecisions(rec, httptest.NewRequest(http.MethodGet, "/decisions", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	s.handleDecisions(rec, httptest.NewRequest(http.MethodGet, "/decisions?symbol=BTC/USDT&since=yesterday", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	s.handleDecisions(rec, httptest.NewRequest(http.MethodGet, "/decisions?symbol=BTC/USDT", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuditEndpoint(t *testing.T) {
	s := testServer(t)

	rec := httptest.NewRecorder()
	s.handleAudit(rec, httptest.NewRequest(http.MethodGet, "/audit", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var result map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Contains(t, result, "passed")
}

func TestShutdownWithoutStart(t *testing.T) {
	s := testServer(t)
	assert.NoError(t, s.Shutdown(context.Background()))
}
