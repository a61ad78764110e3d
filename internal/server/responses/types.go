// Package responses defines JSON response types used by the deployer's HTTP handlers.
package responses

import "time"

// StatusResponse is the maintenance page payload served at /status.
// Timestamp is Unix seconds with sub-second precision.
type StatusResponse struct {
	Status    string   `json:"status"`
	Progress  int      `json:"progress"`
	Logs      []string `json:"logs"`
	Timestamp float64  `json:"timestamp"`
}

// HealthResponse represents the admin health check response.
type HealthResponse struct {
	Status       string        `json:"status"`
	Timestamp    time.Time     `json:"timestamp"`
	Version      string        `json:"version"`
	Uptime       float64       `json:"uptime"`
	State        string        `json:"state"`
	InstalledTag string        `json:"installed_tag,omitempty"`
	LastResult   *CycleSummary `json:"last_result,omitempty"`
}

// CycleSummary summarises the most recent deployment cycle.
type CycleSummary struct {
	DeploymentID string    `json:"deployment_id,omitempty"`
	Outcome      string    `json:"outcome"`
	Tag          string    `json:"tag,omitempty"`
	PreviousTag  string    `json:"previous_tag,omitempty"`
	Commit       string    `json:"commit,omitempty"`
	FailedStep   string    `json:"failed_step,omitempty"`
	StartedAt    time.Time `json:"started_at"`
	FinishedAt   time.Time `json:"finished_at"`
	Error        string    `json:"error,omitempty"`
}

// HistoryEvent is one persisted deployment event.
type HistoryEvent struct {
	DeploymentID string         `json:"deployment_id"`
	Type         string         `json:"type"`
	Timestamp    time.Time      `json:"timestamp"`
	Payload      map[string]any `json:"payload,omitempty"`
}

// HistoryResponse lists recent deployment events, newest first.
type HistoryResponse struct {
	Events []HistoryEvent `json:"events"`
	Count  int            `json:"count"`
}
