package eventstore

import (
	"context"
	"encoding/json"
	"time"

	foundationerrors "git.home.luguber.info/inful/autodeployer/internal/foundation/errors"
)

// Event type names stored in the event_type column.
const (
	TypeDeploymentStarted  = "DeploymentStarted"
	TypeStepFinished       = "StepFinished"
	TypeDeploymentFinished = "DeploymentFinished"
)

// DeploymentStarted is recorded when a maintenance window opens.
type DeploymentStarted struct {
	Tag         string    `json:"tag"`
	PreviousTag string    `json:"previous_tag"`
	Service     string    `json:"service"`
	StartedAt   time.Time `json:"started_at"`
}

// StepFinished is recorded after each command the orchestrator runs.
type StepFinished struct {
	Step       string `json:"step"`
	Command    string `json:"command"`
	Progress   int    `json:"progress"`
	Success    bool   `json:"success"`
	DurationMS int64  `json:"duration_ms"`
}

// DeploymentFinished is recorded once per cycle that opened a window.
type DeploymentFinished struct {
	Outcome    string    `json:"outcome"`
	Tag        string    `json:"tag"`
	Commit     string    `json:"commit,omitempty"`
	FailedStep string    `json:"failed_step,omitempty"`
	Error      string    `json:"error,omitempty"`
	FinishedAt time.Time `json:"finished_at"`
	DurationMS int64     `json:"duration_ms"`
}

// NewDeploymentStarted creates a DeploymentStarted event.
func NewDeploymentStarted(deploymentID string, meta DeploymentStarted) (*BaseEvent, error) {
	return newEvent(deploymentID, TypeDeploymentStarted, meta)
}

// NewStepFinished creates a StepFinished event.
func NewStepFinished(deploymentID string, meta StepFinished) (*BaseEvent, error) {
	return newEvent(deploymentID, TypeStepFinished, meta)
}

// NewDeploymentFinished creates a DeploymentFinished event.
func NewDeploymentFinished(deploymentID string, meta DeploymentFinished) (*BaseEvent, error) {
	return newEvent(deploymentID, TypeDeploymentFinished, meta)
}

func newEvent(deploymentID, eventType string, payload any) (*BaseEvent, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, foundationerrors.WrapError(err, foundationerrors.CategoryEventStore, "failed to marshal event payload").
			WithContext("event_type", eventType).
			Build()
	}
	return &BaseEvent{
		EventDeploymentID: deploymentID,
		EventType:         eventType,
		EventTimestamp:    time.Now(),
		EventPayload:      data,
	}, nil
}

// AppendEvent stores a constructed event.
func AppendEvent(ctx context.Context, s Store, e Event) error {
	return s.Append(ctx, e.DeploymentID(), e.Type(), e.Payload(), e.Metadata())
}
