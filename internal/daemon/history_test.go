package daemon

import (
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/autodeployer/internal/deploy"
	"git.home.luguber.info/inful/autodeployer/internal/eventstore"
)

func TestHistoryRecorderRecordsDeployment(t *testing.T) {
	store, err := eventstore.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	projection := eventstore.NewDeploymentHistoryProjection(store, 10)
	rec := newHistoryRecorder(store, projection, slog.Default())
	ctx := t.Context()

	start := time.Now()
	rec.CycleStarted(ctx, deploy.Attempt{DeploymentID: "dep-1", Tag: "v2.0", PreviousTag: "v1.0", StartedAt: start})
	rec.StepFinished(ctx, deploy.StepReport{DeploymentID: "dep-1", Step: deploy.Step{Name: "fetch"}, Success: true})
	rec.CycleFinished(ctx, deploy.Result{
		DeploymentID: "dep-1",
		Outcome:      deploy.OutcomeFailed,
		Tag:          "v2.0",
		FailedStep:   "checkout",
		StartedAt:    start,
		FinishedAt:   start.Add(time.Second),
		Err:          errors.New("checkout failed"),
	})
	rec.CycleFinished(ctx, deploy.Result{Outcome: deploy.OutcomeUpToDate})

	events, err := historySource{store: store}.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, events, 3)
	require.Equal(t, eventstore.TypeDeploymentFinished, events[0].Type)
	require.Equal(t, "checkout", events[0].Payload["failed_step"])
	require.Equal(t, eventstore.TypeDeploymentStarted, events[2].Type)

	last, ok := projection.LastFinished()
	require.True(t, ok)
	require.Equal(t, "failed", last.Status)

	summary := summaryFromHistory(last)
	require.Equal(t, "dep-1", summary.DeploymentID)
	require.Equal(t, "checkout failed", summary.Error)
}

func TestHistoryRecorderPrune(t *testing.T) {
	store, err := eventstore.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	rec := newHistoryRecorder(store, nil, slog.Default())
	rec.CycleStarted(t.Context(), deploy.Attempt{DeploymentID: "dep-1"})

	rec.prune(t.Context(), time.Hour)
	events, err := store.Recent(t.Context(), 10)
	require.NoError(t, err)
	require.Len(t, events, 1)

	rec.prune(t.Context(), -time.Second)
	events, err = store.Recent(t.Context(), 10)
	require.NoError(t, err)
	require.Empty(t, events)
}
