// Package notify publishes status snapshots and cycle verdicts to NATS.
package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"git.home.luguber.info/inful/autodeployer/internal/deploy"
	foundationerrors "git.home.luguber.info/inful/autodeployer/internal/foundation/errors"
	"git.home.luguber.info/inful/autodeployer/internal/logfields"
	"git.home.luguber.info/inful/autodeployer/internal/status"
	"git.home.luguber.info/inful/autodeployer/internal/version"
)

// ResultSuffix is appended to the subject for cycle verdicts.
const ResultSuffix = ".result"

// Conn is the subset of *nats.Conn the publisher uses.
type Conn interface {
	Publish(subject string, data []byte) error
	Drain() error
}

// StatusMessage is published on the base subject for every status update.
type StatusMessage struct {
	DeploymentID string    `json:"deployment_id,omitempty"`
	Status       string    `json:"status"`
	Progress     int       `json:"progress"`
	Logs         []string  `json:"logs"`
	Timestamp    time.Time `json:"timestamp"`
}

// ResultMessage is published on the result subject once per cycle.
type ResultMessage struct {
	DeploymentID string    `json:"deployment_id,omitempty"`
	Outcome      string    `json:"outcome"`
	Tag          string    `json:"tag,omitempty"`
	PreviousTag  string    `json:"previous_tag,omitempty"`
	Commit       string    `json:"commit,omitempty"`
	FailedStep   string    `json:"failed_step,omitempty"`
	Error        string    `json:"error,omitempty"`
	StartedAt    time.Time `json:"started_at"`
	FinishedAt   time.Time `json:"finished_at"`
}

// Publisher sends best-effort notifications. Publish failures are logged and
// never surface to the caller.
type Publisher struct {
	conn    Conn
	subject string
	logger  *slog.Logger

	mu           sync.Mutex
	deploymentID string
}

// Connect dials the NATS server at url. The connection keeps retrying in the
// background, so an unreachable server does not fail startup.
func Connect(url, subject string, logger *slog.Logger) (*Publisher, error) {
	conn, err := nats.Connect(url,
		nats.Name(version.UserAgent()),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, foundationerrors.WrapError(err, foundationerrors.CategoryNetwork, "failed to connect to NATS").
			WithContext("url", url).
			Build()
	}
	p := NewPublisher(conn, subject, logger)
	p.logger.Info("NATS publisher initialized", logfields.URL(url), slog.String("subject", subject))
	return p, nil
}

// NewPublisher wraps an existing connection.
func NewPublisher(conn Conn, subject string, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{conn: conn, subject: subject, logger: logger}
}

// PublishStatus sends one status snapshot. It is registered as a status
// store subscriber.
func (p *Publisher) PublishStatus(snap status.DeploymentStatus) {
	p.mu.Lock()
	id := p.deploymentID
	p.mu.Unlock()

	p.publish(p.subject, StatusMessage{
		DeploymentID: id,
		Status:       snap.Message,
		Progress:     snap.Progress,
		Logs:         snap.Logs,
		Timestamp:    snap.ObservedAt,
	})
}

// CycleStarted remembers the attempt id for subsequent status messages.
func (p *Publisher) CycleStarted(_ context.Context, attempt deploy.Attempt) {
	p.mu.Lock()
	p.deploymentID = attempt.DeploymentID
	p.mu.Unlock()
}

// StepFinished is a no-op; step progress reaches subscribers as status messages.
func (p *Publisher) StepFinished(context.Context, deploy.StepReport) {}

// CycleFinished publishes the verdict.
func (p *Publisher) CycleFinished(_ context.Context, res deploy.Result) {
	p.mu.Lock()
	p.deploymentID = ""
	p.mu.Unlock()

	msg := ResultMessage{
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
		msg.Error = res.Err.Error()
	}
	p.publish(p.subject+ResultSuffix, msg)
}

func (p *Publisher) publish(subject string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		p.logger.Warn("Failed to encode notification", logfields.Error(err))
		return
	}
	if err := p.conn.Publish(subject, data); err != nil {
		p.logger.Warn("Failed to publish notification",
			slog.String("subject", subject),
			logfields.Error(err))
		return
	}
	p.logger.Debug("Published notification", slog.String("subject", subject))
}

// Close drains pending messages and closes the connection.
func (p *Publisher) Close() error {
	if p.conn == nil {
		return nil
	}
	return p.conn.Drain()
}
