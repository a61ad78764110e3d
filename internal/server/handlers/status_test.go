package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/autodeployer/internal/status"
)

func TestHandleStatusBeforePublishReturnsEmptyObject(t *testing.T) {
	h := NewStatusHandlers(status.NewStore())

	rec := httptest.NewRecorder()
	h.HandleStatus(rec, httptest.NewRequest(http.MethodGet, "/status", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	require.Equal(t, "no-cache", rec.Header().Get("Cache-Control"))
	require.Equal(t, "{}", rec.Body.String())
}

func TestHandleStatusReturnsSnapshot(t *testing.T) {
	store := status.NewStore()
	store.Update("Maintenance server started", 0)
	store.Update("Stopping app...", 10)
	h := NewStatusHandlers(store)

	rec := httptest.NewRecorder()
	h.HandleStatus(rec, httptest.NewRequest(http.MethodGet, "/status", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Status    string   `json:"status"`
		Progress  int      `json:"progress"`
		Logs      []string `json:"logs"`
		Timestamp float64  `json:"timestamp"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "Stopping app...", body.Status)
	require.Equal(t, 10, body.Progress)
	require.Equal(t, []string{"Maintenance server started", "Stopping app..."}, body.Logs)
	require.InDelta(t, float64(time.Now().Unix()), body.Timestamp, 5)
}

func TestHandleStatusRejectsPost(t *testing.T) {
	h := NewStatusHandlers(status.NewStore())
	rec := httptest.NewRecorder()
	h.HandleStatus(rec, httptest.NewRequest(http.MethodPost, "/status", nil))
	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	require.Equal(t, "GET, HEAD", rec.Header().Get("Allow"))
}

func TestNewStatusResponseTimestampHasFraction(t *testing.T) {
	ts := time.Unix(1700000000, 500_000_000)
	resp := NewStatusResponse(status.DeploymentStatus{Message: "m", ObservedAt: ts})
	require.InDelta(t, 1700000000.5, resp.Timestamp, 1e-6)
	require.NotNil(t, resp.Logs)
}
