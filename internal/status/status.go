// Package status holds the live deployment status shown to operators while a
// maintenance window is open.
//
// A Store publishes immutable DeploymentStatus snapshots with a single atomic
// pointer swap. Readers never lock and always see a complete snapshot.
package status

import (
	"slices"
	"sync"
	"sync/atomic"
	"time"
)

// MaxLogEntries bounds the rolling log kept in every snapshot.
const MaxLogEntries = 10

// DeploymentStatus is an immutable snapshot of deployment progress.
type DeploymentStatus struct {
	Message    string
	Progress   int
	Logs       []string
	ObservedAt time.Time
}

// IsZero reports whether nothing has been published since the last reset.
func (s DeploymentStatus) IsZero() bool {
	return s.Message == "" && s.Progress == 0 && len(s.Logs) == 0 && s.ObservedAt.IsZero()
}

// Store is the concurrency-safe holder of the current DeploymentStatus.
// Writers are serialised; Snapshot is lock-free.
type Store struct {
	mu      sync.Mutex
	current atomic.Pointer[DeploymentStatus]
	now     func() time.Time
	onPub   []func(DeploymentStatus)
}

// NewStore returns an empty Store.
func NewStore() *Store {
	s := &Store{now: time.Now}
	s.current.Store(&DeploymentStatus{})
	return s
}

// Subscribe registers fn to be called with every snapshot published by Update.
// Callbacks run synchronously on the writer's goroutine and must not call back
// into the Store.
func (s *Store) Subscribe(fn func(DeploymentStatus)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onPub = append(s.onPub, fn)
}

// Update appends message to the rolling log, replaces message and progress and
// publishes the new snapshot. Progress is clamped to 0-100 and never falls
// below the value already published in the current attempt.
func (s *Store) Update(message string, progress int) DeploymentStatus {
	s.mu.Lock()
	prev := s.current.Load()

	progress = min(max(progress, 0), 100)
	if progress < prev.Progress {
		progress = prev.Progress
	}

	logs := make([]string, 0, MaxLogEntries)
	if n := len(prev.Logs); n >= MaxLogEntries {
		logs = append(logs, prev.Logs[n-MaxLogEntries+1:]...)
	} else {
		logs = append(logs, prev.Logs...)
	}
	logs = append(logs, message)

	next := &DeploymentStatus{
		Message:    message,
		Progress:   progress,
		Logs:       logs,
		ObservedAt: s.now(),
	}
	s.current.Store(next)
	subs := s.onPub
	s.mu.Unlock()

	snap := next.clone()
	for _, fn := range subs {
		fn(snap)
	}
	return snap
}

// Snapshot returns the current status. The zero value is returned before the
// first Update and after Reset.
func (s *Store) Snapshot() DeploymentStatus {
	return s.current.Load().clone()
}

// Reset publishes the empty snapshot, starting a new attempt.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current.Store(&DeploymentStatus{})
}

func (s *DeploymentStatus) clone() DeploymentStatus {
	out := *s
	out.Logs = slices.Clone(s.Logs)
	return out
}
