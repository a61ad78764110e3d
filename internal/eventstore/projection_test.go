package eventstore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func appendEvent(t *testing.T, store Store, e *BaseEvent, err error) {
	t.Helper()
	require.NoError(t, err)
	require.NoError(t, AppendEvent(t.Context(), store, e))
}

func TestDeploymentHistoryProjection_ApplyEvents(t *testing.T) {
	store := newTestStore(t)
	projection := NewDeploymentHistoryProjection(store, 10)

	started, err := NewDeploymentStarted("dep-1", DeploymentStarted{Tag: "v2.0", PreviousTag: "v1.0", StartedAt: time.Now()})
	require.NoError(t, err)
	projection.Apply(started)

	summary, ok := projection.GetDeployment("dep-1")
	require.True(t, ok)
	require.Equal(t, "running", summary.Status)
	require.Equal(t, "v2.0", summary.Tag)
	require.Equal(t, "v1.0", summary.PreviousTag)

	_, ok = projection.LastFinished()
	require.False(t, ok)

	step, err := NewStepFinished("dep-1", StepFinished{Step: "fetch", Success: true})
	require.NoError(t, err)
	projection.Apply(step)

	finished, err := NewDeploymentFinished("dep-1", DeploymentFinished{Outcome: "succeeded", Tag: "v2.0", Commit: "abc123", FinishedAt: time.Now()})
	require.NoError(t, err)
	projection.Apply(finished)

	last, ok := projection.LastFinished()
	require.True(t, ok)
	require.Equal(t, "succeeded", last.Status)
	require.Equal(t, "abc123", last.Commit)
	require.Equal(t, 1, last.StepCount)
	require.NotNil(t, last.FinishedAt)
}

func TestDeploymentHistoryProjection_Rebuild(t *testing.T) {
	store := newTestStore(t)

	base := time.Now().Add(-time.Hour)
	for i, id := range []string{"old", "new"} {
		e, err := NewDeploymentStarted(id, DeploymentStarted{Tag: id, StartedAt: base.Add(time.Duration(i) * time.Minute)})
		appendEvent(t, store, e, err)
	}
	e, err := NewDeploymentFinished("old", DeploymentFinished{Outcome: "failed", FailedStep: "checkout", Error: "exit 1"})
	appendEvent(t, store, e, err)
	e, err = NewDeploymentFinished("new", DeploymentFinished{Outcome: "succeeded"})
	appendEvent(t, store, e, err)

	projection := NewDeploymentHistoryProjection(store, 10)
	require.NoError(t, projection.Rebuild(t.Context()))

	history := projection.GetHistory()
	require.Len(t, history, 2)
	require.Equal(t, "new", history[0].DeploymentID)
	require.Equal(t, "old", history[1].DeploymentID)
	require.Equal(t, "checkout", history[1].FailedStep)
	require.Equal(t, "exit 1", history[1].ErrorMessage)
}

func TestDeploymentHistoryProjection_BoundedHistory(t *testing.T) {
	store := newTestStore(t)
	projection := NewDeploymentHistoryProjection(store, 2)

	for _, id := range []string{"a", "b", "c"} {
		s, err := NewDeploymentStarted(id, DeploymentStarted{Tag: id})
		require.NoError(t, err)
		projection.Apply(s)
		f, err := NewDeploymentFinished(id, DeploymentFinished{Outcome: "succeeded"})
		require.NoError(t, err)
		projection.Apply(f)
	}

	history := projection.GetHistory()
	require.Len(t, history, 2)
	require.Equal(t, "c", history[0].DeploymentID)
	_, ok := projection.GetDeployment("a")
	require.False(t, ok)
}

func TestNewEventsIgnoreEmptyDeploymentID(t *testing.T) {
	projection := NewDeploymentHistoryProjection(newTestStore(t), 1)
	e, err := NewDeploymentFinished("", DeploymentFinished{Outcome: "failed"})
	require.NoError(t, err)
	projection.Apply(e)
	require.Empty(t, projection.GetHistory())
}
