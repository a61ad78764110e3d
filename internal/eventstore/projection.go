package eventstore

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"
)

const deploymentStatusRunning = "running"

// DeploymentSummary is a read model summarizing one deployment attempt.
type DeploymentSummary struct {
	DeploymentID string        `json:"deployment_id"`
	Status       string        `json:"status"` // "running" or the cycle outcome
	Tag          string        `json:"tag"`
	PreviousTag  string        `json:"previous_tag,omitempty"`
	Commit       string        `json:"commit,omitempty"`
	StartedAt    time.Time     `json:"started_at"`
	FinishedAt   *time.Time    `json:"finished_at,omitempty"`
	Duration     time.Duration `json:"duration,omitempty"`
	StepCount    int           `json:"step_count"`
	FailedStep   string        `json:"failed_step,omitempty"`
	ErrorMessage string        `json:"error_message,omitempty"`
}

// DeploymentHistoryProjection maintains an in-memory view of deployment
// history reconstructed from the event store.
type DeploymentHistoryProjection struct {
	mu          sync.RWMutex
	store       Store
	deployments map[string]*DeploymentSummary
	history     []*DeploymentSummary // finished attempts, newest first
	maxSize     int
}

// NewDeploymentHistoryProjection creates a projection backed by store.
func NewDeploymentHistoryProjection(store Store, maxHistorySize int) *DeploymentHistoryProjection {
	if maxHistorySize <= 0 {
		maxHistorySize = 100
	}
	return &DeploymentHistoryProjection{
		store:       store,
		deployments: make(map[string]*DeploymentSummary),
		history:     make([]*DeploymentSummary, 0, maxHistorySize),
		maxSize:     maxHistorySize,
	}
}

// Rebuild reconstructs the projection from all events in the store.
func (p *DeploymentHistoryProjection) Rebuild(ctx context.Context) error {
	events, err := p.store.GetRange(ctx, time.Time{}, time.Now().Add(time.Hour))
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.deployments = make(map[string]*DeploymentSummary)
	p.history = make([]*DeploymentSummary, 0, p.maxSize)
	for _, event := range events {
		p.applyEventLocked(event)
	}

	sort.SliceStable(p.history, func(i, j int) bool {
		return p.history[i].StartedAt.After(p.history[j].StartedAt)
	})
	if len(p.history) > p.maxSize {
		p.history = p.history[:p.maxSize]
	}
	p.pruneLocked()
	return nil
}

// Apply processes a single event.
func (p *DeploymentHistoryProjection) Apply(event Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.applyEventLocked(event)
}

func (p *DeploymentHistoryProjection) applyEventLocked(event Event) {
	id := event.DeploymentID()
	if id == "" {
		return
	}

	summary, exists := p.deployments[id]
	if !exists {
		summary = &DeploymentSummary{
			DeploymentID: id,
			Status:       deploymentStatusRunning,
			StartedAt:    event.Timestamp(),
		}
		p.deployments[id] = summary
	}

	switch event.Type() {
	case TypeDeploymentStarted:
		var payload DeploymentStarted
		if err := json.Unmarshal(event.Payload(), &payload); err == nil {
			summary.Tag = payload.Tag
			summary.PreviousTag = payload.PreviousTag
			if !payload.StartedAt.IsZero() {
				summary.StartedAt = payload.StartedAt
			}
		}

	case TypeStepFinished:
		summary.StepCount++

	case TypeDeploymentFinished:
		var payload DeploymentFinished
		if err := json.Unmarshal(event.Payload(), &payload); err != nil {
			return
		}
		finished := payload.FinishedAt
		if finished.IsZero() {
			finished = event.Timestamp()
		}
		summary.FinishedAt = &finished
		summary.Duration = finished.Sub(summary.StartedAt)
		summary.Status = payload.Outcome
		summary.Commit = payload.Commit
		summary.FailedStep = payload.FailedStep
		summary.ErrorMessage = payload.Error
		if summary.Tag == "" {
			summary.Tag = payload.Tag
		}
		p.addToHistoryLocked(summary)
	}
}

func (p *DeploymentHistoryProjection) addToHistoryLocked(summary *DeploymentSummary) {
	for _, h := range p.history {
		if h.DeploymentID == summary.DeploymentID {
			return
		}
	}
	p.history = append([]*DeploymentSummary{summary}, p.history...)
	if len(p.history) > p.maxSize {
		p.history = p.history[:p.maxSize]
	}
	p.pruneLocked()
}

// pruneLocked drops finished attempts that fell out of the bounded history.
func (p *DeploymentHistoryProjection) pruneLocked() {
	keep := make(map[string]struct{}, len(p.history))
	for _, h := range p.history {
		keep[h.DeploymentID] = struct{}{}
	}
	for id, summary := range p.deployments {
		if summary.Status == deploymentStatusRunning {
			continue
		}
		if _, ok := keep[id]; !ok {
			delete(p.deployments, id)
		}
	}
}

// GetHistory returns finished deployments, newest first.
func (p *DeploymentHistoryProjection) GetHistory() []DeploymentSummary {
	p.mu.RLock()
	defer p.mu.RUnlock()

	result := make([]DeploymentSummary, len(p.history))
	for i, h := range p.history {
		result[i] = *h
	}
	return result
}

// GetDeployment returns the summary for one attempt.
func (p *DeploymentHistoryProjection) GetDeployment(deploymentID string) (DeploymentSummary, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	summary, ok := p.deployments[deploymentID]
	if !ok {
		return DeploymentSummary{}, false
	}
	return *summary, true
}

// LastFinished returns the most recently finished deployment.
func (p *DeploymentHistoryProjection) LastFinished() (DeploymentSummary, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if len(p.history) == 0 {
		return DeploymentSummary{}, false
	}
	return *p.history[0], true
}
