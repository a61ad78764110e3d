package daemon

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/autodeployer/internal/deploy"
)

type countingRunner struct {
	calls atomic.Int32
	fn    func(n int32) (deploy.Result, error)
}

func (c *countingRunner) RunCycle(context.Context) (deploy.Result, error) {
	n := c.calls.Add(1)
	if c.fn != nil {
		return c.fn(n)
	}
	return deploy.Result{Outcome: deploy.OutcomeUpToDate}, nil
}

func runLoop(t *testing.T, l *Loop) (context.CancelFunc, <-chan struct{}) {
	t.Helper()
	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan struct{})
	go func() {
		defer close(done)
		l.Run(ctx)
	}()
	return cancel, done
}

func TestLoopRunsFirstCycleImmediately(t *testing.T) {
	runner := &countingRunner{}
	cancel, done := runLoop(t, &Loop{Runner: runner, Interval: time.Hour})

	require.Eventually(t, func() bool { return runner.calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	cancel()
	<-done
	require.EqualValues(t, 1, runner.calls.Load())
}

func TestLoopRunsOnInterval(t *testing.T) {
	runner := &countingRunner{}
	cancel, done := runLoop(t, &Loop{Runner: runner, Interval: 10 * time.Millisecond})
	defer func() { cancel(); <-done }()

	require.Eventually(t, func() bool { return runner.calls.Load() >= 3 }, 2*time.Second, 5*time.Millisecond)
}

func TestLoopTriggerRunsEarly(t *testing.T) {
	runner := &countingRunner{}
	trigger := NewTrigger()
	cancel, done := runLoop(t, &Loop{Runner: runner, Interval: time.Hour, Trigger: trigger})
	defer func() { cancel(); <-done }()

	require.Eventually(t, func() bool { return runner.calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	trigger.Fire()
	trigger.Fire()
	require.Eventually(t, func() bool { return runner.calls.Load() == 2 }, time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	require.EqualValues(t, 2, runner.calls.Load())
}

func TestLoopSurvivesErrorsAndPanics(t *testing.T) {
	runner := &countingRunner{fn: func(n int32) (deploy.Result, error) {
		switch n {
		case 1:
			panic("boom")
		case 2:
			return deploy.Result{Outcome: deploy.OutcomeFailed}, errors.New("step failed")
		default:
			return deploy.Result{Outcome: deploy.OutcomeUpToDate}, nil
		}
	}}
	cancel, done := runLoop(t, &Loop{Runner: runner, Interval: 5 * time.Millisecond})
	defer func() { cancel(); <-done }()

	require.Eventually(t, func() bool { return runner.calls.Load() >= 3 }, 2*time.Second, 5*time.Millisecond)
}

func TestTriggerCoalesces(t *testing.T) {
	trigger := NewTrigger()
	trigger.Fire()
	trigger.Fire()
	<-trigger.C()
	select {
	case <-trigger.C():
		t.Fatal("expected a single pending trigger")
	default:
	}
}
