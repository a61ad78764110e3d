package handlers

import (
	"log/slog"
	"net/http"
	"time"

	foundationerrors "git.home.luguber.info/inful/autodeployer/internal/foundation/errors"
	"git.home.luguber.info/inful/autodeployer/internal/server/responses"
	"git.home.luguber.info/inful/autodeployer/internal/version"
)

// DaemonInterface defines the daemon methods needed by monitoring handlers.
type DaemonInterface interface {
	State() string
	StartTime() time.Time
	InstalledTag() string
	LastResult() *responses.CycleSummary
}

// MonitoringHandlers contains health related HTTP handlers.
type MonitoringHandlers struct {
	daemon       DaemonInterface
	errorAdapter *foundationerrors.HTTPErrorAdapter
}

// NewMonitoringHandlers creates a new monitoring handlers instance.
func NewMonitoringHandlers(daemon DaemonInterface) *MonitoringHandlers {
	return &MonitoringHandlers{
		daemon:       daemon,
		errorAdapter: foundationerrors.NewHTTPErrorAdapter(slog.Default()),
	}
}

// HandleHealthCheck reports liveness, orchestrator state and the last cycle.
func (h *MonitoringHandlers) HandleHealthCheck(w http.ResponseWriter, r *http.Request) {
	if !allowReadOnly(w, r) {
		return
	}

	health := &responses.HealthResponse{
		Status:       "healthy",
		Timestamp:    time.Now().UTC(),
		Version:      version.Version,
		Uptime:       time.Since(h.daemon.StartTime()).Seconds(),
		State:        h.daemon.State(),
		InstalledTag: h.daemon.InstalledTag(),
		LastResult:   h.daemon.LastResult(),
	}

	if err := writeJSONPretty(w, r, http.StatusOK, health); err != nil {
		internalErr := foundationerrors.WrapError(err, foundationerrors.CategoryInternal, "failed to write health response").
			Build()
		h.errorAdapter.WriteErrorResponse(w, r, internalErr)
	}
}
