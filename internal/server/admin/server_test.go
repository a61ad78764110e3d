package admin

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/autodeployer/internal/metrics"
	"git.home.luguber.info/inful/autodeployer/internal/server/responses"
)

type stubDaemon struct{}

func (stubDaemon) State() string                       { return "checking_version" }
func (stubDaemon) StartTime() time.Time                { return time.Now() }
func (stubDaemon) InstalledTag() string                { return "v1.2.0" }
func (stubDaemon) LastResult() *responses.CycleSummary { return nil }

type stubHistory struct{}

func (stubHistory) Recent(context.Context, int) ([]responses.HistoryEvent, error) {
	return []responses.HistoryEvent{{DeploymentID: "d1", Type: "DeploymentStarted"}}, nil
}

func TestAdminRoutes(t *testing.T) {
	reg := metrics.NewRegistry()
	rec := metrics.NewPrometheusRecorder(reg)
	rec.IncCycleOutcome("up_to_date")

	s := New(Sources{Daemon: stubDaemon{}, History: stubHistory{}, Metrics: metrics.HTTPHandler(reg)}, Options{})
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	var health responses.HealthResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	_ = resp.Body.Close()
	require.Equal(t, "checking_version", health.State)
	require.Equal(t, "v1.2.0", health.InstalledTag)

	resp, err = http.Get(ts.URL + "/history?limit=1")
	require.NoError(t, err)
	var history responses.HistoryResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&history))
	_ = resp.Body.Close()
	require.Equal(t, 1, history.Count)

	resp, err = http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	require.NoError(t, err)
	require.Contains(t, string(body), `autodeployer_cycle_outcomes_total{outcome="up_to_date"} 1`)
}

func TestAdminHistoryDisabled(t *testing.T) {
	s := New(Sources{Daemon: stubDaemon{}}, Options{})
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/history", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAdminStartStop(t *testing.T) {
	s := New(Sources{Daemon: stubDaemon{}}, Options{Bind: "127.0.0.1", Port: 0})
	require.NoError(t, s.Stop(t.Context()))
	require.NoError(t, s.Start(t.Context()))
	addr := s.Addr()
	require.NotEmpty(t, addr)

	resp, err := http.Get("http://" + addr + "/healthz")
	require.NoError(t, err)
	_ = resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, s.Stop(t.Context()))
	require.Empty(t, s.Addr())
	_, err = http.Get("http://" + addr + "/healthz")
	require.Error(t, err)
}
