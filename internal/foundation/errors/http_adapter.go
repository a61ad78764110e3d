package errors

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// HTTPErrorAdapter writes classified errors as JSON for the status and admin servers.
type HTTPErrorAdapter struct {
	logger *slog.Logger
}

// NewHTTPErrorAdapter creates an adapter; a nil logger means slog.Default().
func NewHTTPErrorAdapter(logger *slog.Logger) *HTTPErrorAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPErrorAdapter{logger: logger}
}

// HTTPErrorResponse is the JSON error payload.
type HTTPErrorResponse struct {
	Error   string         `json:"error"`
	Code    string         `json:"code,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

// StatusCodeFor maps the categories the servers can surface; anything else is 500.
func StatusCodeFor(err error) int {
	switch GetCategory(err) {
	case CategoryValidation:
		return http.StatusBadRequest
	case CategoryNotFound:
		return http.StatusNotFound
	case CategoryEventStore:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// WriteErrorResponse writes err as JSON and logs it at its severity.
func (a *HTTPErrorAdapter) WriteErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusCodeFor(err)
	payload := HTTPErrorResponse{Error: err.Error()}
	if c, ok := AsClassified(err); ok {
		payload = HTTPErrorResponse{Error: c.Message(), Code: string(c.Category())}
		if len(c.Context()) > 0 {
			payload.Details = map[string]any(c.Context())
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if jerr := json.NewEncoder(w).Encode(payload); jerr != nil {
		a.logger.Warn("Failed to encode error response", slog.String("error", jerr.Error()))
	}

	a.logger.Log(r.Context(), LogLevel(err), err.Error(),
		slog.String("path", r.URL.Path),
		slog.Int("status", status))
}
