package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"git.home.luguber.info/inful/autodeployer/internal/logfields"
	"git.home.luguber.info/inful/autodeployer/internal/server/responses"
	"git.home.luguber.info/inful/autodeployer/internal/status"
)

// SnapshotSource supplies the current deployment status.
type SnapshotSource interface {
	Snapshot() status.DeploymentStatus
}

// StatusHandlers serves the live deployment status polled by the maintenance page.
type StatusHandlers struct {
	source SnapshotSource
}

// NewStatusHandlers creates status handlers reading from source.
func NewStatusHandlers(source SnapshotSource) *StatusHandlers {
	return &StatusHandlers{source: source}
}

// HandleStatus writes the current snapshot, or {} before anything was published.
func (h *StatusHandlers) HandleStatus(w http.ResponseWriter, r *http.Request) {
	if !allowReadOnly(w, r) {
		return
	}

	body := []byte("{}")
	if snap := h.source.Snapshot(); !snap.IsZero() {
		b, err := json.Marshal(NewStatusResponse(snap))
		if err != nil {
			slog.Error("failed to encode status", logfields.Error(err))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
		body = b
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

// NewStatusResponse converts a snapshot to its wire form.
func NewStatusResponse(snap status.DeploymentStatus) responses.StatusResponse {
	logs := snap.Logs
	if logs == nil {
		logs = []string{}
	}
	return responses.StatusResponse{
		Status:    snap.Message,
		Progress:  snap.Progress,
		Logs:      logs,
		Timestamp: float64(snap.ObservedAt.UnixNano()) / 1e9,
	}
}
