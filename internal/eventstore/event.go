package eventstore

import "time"

// Event represents a persisted deployment event.
type Event interface {
	ID() int64
	DeploymentID() string
	Type() string
	Timestamp() time.Time
	Payload() []byte
	Metadata() map[string]string
}

// BaseEvent provides a default implementation of Event.
type BaseEvent struct {
	EventID           int64
	EventDeploymentID string
	EventType         string
	EventTimestamp    time.Time
	EventPayload      []byte
	EventMetadata     map[string]string
}

func (e *BaseEvent) ID() int64                   { return e.EventID }
func (e *BaseEvent) DeploymentID() string        { return e.EventDeploymentID }
func (e *BaseEvent) Type() string                { return e.EventType }
func (e *BaseEvent) Timestamp() time.Time        { return e.EventTimestamp }
func (e *BaseEvent) Payload() []byte             { return e.EventPayload }
func (e *BaseEvent) Metadata() map[string]string { return e.EventMetadata }
