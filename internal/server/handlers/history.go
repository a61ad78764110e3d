package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	foundationerrors "git.home.luguber.info/inful/autodeployer/internal/foundation/errors"
	"git.home.luguber.info/inful/autodeployer/internal/server/responses"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 500
)

// HistorySource lists recent deployment events, newest first.
type HistorySource interface {
	Recent(ctx context.Context, limit int) ([]responses.HistoryEvent, error)
}

// HistoryHandlers serves persisted deployment history.
type HistoryHandlers struct {
	source       HistorySource
	errorAdapter *foundationerrors.HTTPErrorAdapter
}

// NewHistoryHandlers creates history handlers. A nil source answers 404.
func NewHistoryHandlers(source HistorySource) *HistoryHandlers {
	return &HistoryHandlers{
		source:       source,
		errorAdapter: foundationerrors.NewHTTPErrorAdapter(slog.Default()),
	}
}

// HandleHistory lists the most recent events. ?limit=N bounds the result.
func (h *HistoryHandlers) HandleHistory(w http.ResponseWriter, r *http.Request) {
	if !allowReadOnly(w, r) {
		return
	}
	if h.source == nil {
		err := foundationerrors.NewError(foundationerrors.CategoryNotFound, "deployment history is disabled").Build()
		h.errorAdapter.WriteErrorResponse(w, r, err)
		return
	}

	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			verr := foundationerrors.ValidationError("limit must be a positive integer").
				WithContext("limit", raw).
				Build()
			h.errorAdapter.WriteErrorResponse(w, r, verr)
			return
		}
		limit = min(n, maxHistoryLimit)
	}

	events, err := h.source.Recent(r.Context(), limit)
	if err != nil {
		h.errorAdapter.WriteErrorResponse(w, r, foundationerrors.WrapError(err, foundationerrors.CategoryEventStore, "failed to read deployment history").Build())
		return
	}
	if events == nil {
		events = []responses.HistoryEvent{}
	}

	if err := writeJSONPretty(w, r, http.StatusOK, responses.HistoryResponse{Events: events, Count: len(events)}); err != nil {
		h.errorAdapter.WriteErrorResponse(w, r, foundationerrors.WrapError(err, foundationerrors.CategoryInternal, "failed to write history response").Build())
	}
}
