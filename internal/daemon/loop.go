package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"git.home.luguber.info/inful/autodeployer/internal/deploy"
	foundationerrors "git.home.luguber.info/inful/autodeployer/internal/foundation/errors"
	"git.home.luguber.info/inful/autodeployer/internal/logfields"
)

// CycleRunner runs one deployment cycle.
type CycleRunner interface {
	RunCycle(ctx context.Context) (deploy.Result, error)
}

// Trigger requests an early cycle. Requests coalesce while one is pending.
type Trigger struct {
	ch chan struct{}
}

// NewTrigger returns a Trigger with room for one pending request.
func NewTrigger() *Trigger {
	return &Trigger{ch: make(chan struct{}, 1)}
}

// Fire requests an early cycle without blocking.
func (t *Trigger) Fire() {
	select {
	case t.ch <- struct{}{}:
	default:
	}
}

// C is signalled when a request is pending.
func (t *Trigger) C() <-chan struct{} { return t.ch }

// drain discards a pending request.
func (t *Trigger) drain() {
	select {
	case <-t.ch:
	default:
	}
}

// Loop invokes the runner immediately and then every interval, or earlier
// when the trigger fires, until ctx is cancelled.
type Loop struct {
	Runner   CycleRunner
	Interval time.Duration
	Trigger  *Trigger
	Logger   *slog.Logger
}

// Run blocks until ctx is cancelled. A failing or panicking cycle never stops
// the loop.
func (l *Loop) Run(ctx context.Context) {
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}
	trigger := l.Trigger
	if trigger == nil {
		trigger = NewTrigger()
	}

	logger.Info("Starting deployment loop", logfields.Duration(l.Interval))
	for {
		l.runOnce(ctx, logger)
		// Requests that arrived during the cycle are already served.
		trigger.drain()

		timer := time.NewTimer(l.Interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			logger.Info("Deployment loop stopped")
			return
		case <-trigger.C():
			timer.Stop()
			logger.Info("Early deployment check triggered")
		case <-timer.C:
		}
	}
}

func (l *Loop) runOnce(ctx context.Context, logger *slog.Logger) {
	defer func() {
		if r := recover(); r != nil {
			err := foundationerrors.InternalError("deployment cycle panicked").
				WithContext("panic", fmt.Sprint(r)).
				Build()
			logger.Error("Error during deployment check",
				logfields.Error(err),
				slog.String("stack", string(debug.Stack())))
		}
	}()

	res, err := l.Runner.RunCycle(ctx)
	if err != nil {
		logger.Log(ctx, foundationerrors.LogLevel(err), "Deployment cycle did not succeed",
			logfields.Outcome(string(res.Outcome)),
			logfields.Error(err))
		return
	}
	logger.Debug("Deployment cycle finished", logfields.Outcome(string(res.Outcome)))
}
