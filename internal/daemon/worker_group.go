package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"slices"
	"sync"

	foundationerrors "git.home.luguber.info/inful/autodeployer/internal/foundation/errors"
	"git.home.luguber.info/inful/autodeployer/internal/logfields"
)

// WorkerGroup runs the daemon's named background goroutines and waits for
// them at shutdown. A panicking worker is logged and does not take the
// deployment loop down with it.
type WorkerGroup struct {
	Logger *slog.Logger

	mu       sync.Mutex
	wg       sync.WaitGroup
	stopping bool
	running  map[string]int
}

// Go starts fn under name unless shutdown has begun.
func (g *WorkerGroup) Go(ctx context.Context, name string, fn func(context.Context)) bool {
	if fn == nil {
		return false
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.stopping {
		return false
	}
	if g.running == nil {
		g.running = make(map[string]int)
	}
	g.running[name]++

	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		defer g.finished(name)
		defer g.recoverPanic(name)
		fn(ctx)
	}()
	return true
}

// Running returns the names of workers that have not returned yet.
func (g *WorkerGroup) Running() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	names := make([]string, 0, len(g.running))
	for name := range g.running {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// StopAndWait refuses new workers and waits for the current ones, bounded by
// ctx. On timeout the error names the workers still running.
func (g *WorkerGroup) StopAndWait(ctx context.Context) error {
	g.mu.Lock()
	g.stopping = true
	g.mu.Unlock()

	done := make(chan struct{})
	go func() {
		g.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return foundationerrors.WrapError(ctx.Err(), foundationerrors.CategoryRuntime, "background workers did not stop").
			WithSeverity(foundationerrors.SeverityWarning).
			WithContext("workers", g.Running()).
			Build()
	}
}

func (g *WorkerGroup) finished(name string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.running[name]--; g.running[name] <= 0 {
		delete(g.running, name)
	}
}

func (g *WorkerGroup) recoverPanic(name string) {
	r := recover()
	if r == nil {
		return
	}
	logger := g.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Error("Background worker panicked",
		logfields.JobName(name),
		slog.String("panic", fmt.Sprint(r)),
		slog.String("stack", string(debug.Stack())))
}
