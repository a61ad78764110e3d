package daemon

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"git.home.luguber.info/inful/autodeployer/internal/deploy"
	"git.home.luguber.info/inful/autodeployer/internal/eventstore"
	"git.home.luguber.info/inful/autodeployer/internal/logfields"
	"git.home.luguber.info/inful/autodeployer/internal/server/responses"
)

// historyRecorder appends orchestrator events to the event store and keeps
// the projection current. Store failures are logged and never affect a cycle.
type historyRecorder struct {
	store      eventstore.Store
	projection *eventstore.DeploymentHistoryProjection
	logger     *slog.Logger
}

func newHistoryRecorder(store eventstore.Store, projection *eventstore.DeploymentHistoryProjection, logger *slog.Logger) *historyRecorder {
	return &historyRecorder{store: store, projection: projection, logger: logger}
}

func (h *historyRecorder) CycleStarted(ctx context.Context, a deploy.Attempt) {
	e, err := eventstore.NewDeploymentStarted(a.DeploymentID, eventstore.DeploymentStarted{
		Tag:         a.Tag,
		PreviousTag: a.PreviousTag,
		Service:     a.Service,
		StartedAt:   a.StartedAt,
	})
	h.record(ctx, e, err)
}

func (h *historyRecorder) StepFinished(ctx context.Context, r deploy.StepReport) {
	e, err := eventstore.NewStepFinished(r.DeploymentID, eventstore.StepFinished{
		Step:       r.Step.Name,
		Command:    r.Step.Command,
		Progress:   r.Step.Progress,
		Success:    r.Success,
		DurationMS: r.Duration.Milliseconds(),
	})
	h.record(ctx, e, err)
}

// CycleFinished records verdicts of cycles that opened a maintenance window.
func (h *historyRecorder) CycleFinished(ctx context.Context, res deploy.Result) {
	if !res.Deployed() {
		return
	}
	meta := eventstore.DeploymentFinished{
		Outcome:    string(res.Outcome),
		Tag:        res.Tag,
		Commit:     res.Commit,
		FailedStep: res.FailedStep,
		FinishedAt: res.FinishedAt,
		DurationMS: res.Duration().Milliseconds(),
	}
	if res.Err != nil {
		meta.Error = res.Err.Error()
	}
	e, err := eventstore.NewDeploymentFinished(res.DeploymentID, meta)
	h.record(ctx, e, err)
}

func (h *historyRecorder) record(ctx context.Context, e *eventstore.BaseEvent, err error) {
	if err == nil {
		err = eventstore.AppendEvent(ctx, h.store, e)
	}
	if err != nil {
		h.logger.Warn("Failed to record deployment event", logfields.Error(err))
		return
	}
	if h.projection != nil {
		h.projection.Apply(e)
	}
}

// prune deletes events older than retention.
func (h *historyRecorder) prune(ctx context.Context, retention time.Duration) {
	removed, err := h.store.Prune(ctx, time.Now().Add(-retention))
	if err != nil {
		h.logger.Warn("Failed to prune deployment history", logfields.Error(err))
		return
	}
	if removed > 0 {
		h.logger.Info("Pruned deployment history", slog.Int64("events", removed))
	}
}

// historySource adapts the event store to the /history handler.
type historySource struct {
	store eventstore.Store
}

func (s historySource) Recent(ctx context.Context, limit int) ([]responses.HistoryEvent, error) {
	events, err := s.store.Recent(ctx, limit)
	if err != nil {
		return nil, err
	}
	out := make([]responses.HistoryEvent, 0, len(events))
	for _, e := range events {
		item := responses.HistoryEvent{
			DeploymentID: e.DeploymentID(),
			Type:         e.Type(),
			Timestamp:    e.Timestamp().UTC(),
		}
		var payload map[string]any
		if err := json.Unmarshal(e.Payload(), &payload); err == nil && len(payload) > 0 {
			item.Payload = payload
		}
		out = append(out, item)
	}
	return out, nil
}

// summaryFromResult converts a cycle result to its health representation.
func summaryFromResult(res deploy.Result) *responses.CycleSummary {
	s := &responses.CycleSummary{
		DeploymentID: res.DeploymentID,
		Outcome:      string(res.Outcome),
		Tag:          res.Tag,
		PreviousTag:  res.PreviousTag,
		Commit:       res.Commit,
		FailedStep:   res.FailedStep,
		StartedAt:    res.StartedAt,
		FinishedAt:   res.FinishedAt,
	}
	if res.Err != nil {
		s.Error = res.Err.Error()
	}
	return s
}

// summaryFromHistory seeds the last result from a persisted deployment.
func summaryFromHistory(d eventstore.DeploymentSummary) *responses.CycleSummary {
	s := &responses.CycleSummary{
		DeploymentID: d.DeploymentID,
		Outcome:      d.Status,
		Tag:          d.Tag,
		PreviousTag:  d.PreviousTag,
		Commit:       d.Commit,
		FailedStep:   d.FailedStep,
		StartedAt:    d.StartedAt,
		Error:        d.ErrorMessage,
	}
	if d.FinishedAt != nil {
		s.FinishedAt = *d.FinishedAt
	}
	return s
}
