// Package eventstore persists deployment events in SQLite and projects them
// into a deployment history.
package eventstore

import (
	"context"
	"time"
)

// Store defines the interface for persisting and retrieving events.
type Store interface {
	// Append adds a new event to the store.
	Append(ctx context.Context, deploymentID, eventType string, payload []byte, metadata map[string]string) error

	// GetByDeploymentID retrieves all events for one deployment attempt, oldest first.
	GetByDeploymentID(ctx context.Context, deploymentID string) ([]Event, error)

	// GetRange retrieves events within a time range, oldest first.
	GetRange(ctx context.Context, start, end time.Time) ([]Event, error)

	// Recent retrieves the newest limit events, newest first.
	Recent(ctx context.Context, limit int) ([]Event, error)

	// Prune deletes events older than before and returns how many were removed.
	Prune(ctx context.Context, before time.Time) (int64, error)

	// Close closes the store and releases resources.
	Close() error
}
