// Package retry implements the backoff policy used for transient failures.
package retry

import (
	"context"
	"time"

	"git.home.luguber.info/inful/autodeployer/internal/config"
	foundationerrors "git.home.luguber.info/inful/autodeployer/internal/foundation/errors"
)

// Policy encapsulates retry/backoff settings. The zero value never retries.
type Policy struct {
	Mode       config.RetryBackoffMode // fixed|linear|exponential
	Initial    time.Duration           // base delay
	Max        time.Duration           // cap for growth
	MaxRetries int                     // retries after the first failure
}

// DefaultPolicy returns linear backoff with a 1s initial delay and 30s cap.
// Retries are off unless configured.
func DefaultPolicy() Policy {
	return Policy{
		Mode:       config.RetryBackoffLinear,
		Initial:    config.DefaultReleaseRetryDelay,
		Max:        config.DefaultReleaseRetryMaxDelay,
		MaxRetries: config.DefaultReleaseRetries,
	}
}

// NewPolicy builds a policy from raw config fields; zero/invalid values fall back to defaults.
func NewPolicy(mode config.RetryBackoffMode, initial, maxDuration time.Duration, maxRetries int) Policy {
	p := DefaultPolicy()
	if maxRetries >= 0 {
		p.MaxRetries = maxRetries
	}
	if initial > 0 {
		p.Initial = initial
	}
	if maxDuration > 0 {
		p.Max = maxDuration
	}
	if mode != "" {
		p.Mode = config.NormalizeRetryBackoffMode(string(mode))
	}
	if p.Initial > p.Max {
		p.Initial = p.Max
	}
	return p
}

// FromConfig builds the release check policy.
func FromConfig(cfg *config.Config) Policy {
	return NewPolicy(cfg.ReleaseRetryBackoff, cfg.ReleaseRetryDelay, cfg.ReleaseRetryMaxDelay, cfg.ReleaseRetryCount())
}

// Delay returns the backoff delay for the given retry attempt number (1-based: first retry => 1).
func (p Policy) Delay(retryCount int) time.Duration {
	if retryCount <= 0 {
		return 0
	}
	switch p.Mode {
	case config.RetryBackoffFixed:
		return p.Initial
	case config.RetryBackoffExponential:
		d := p.Initial * (1 << (retryCount - 1))
		if d > p.Max || d <= 0 {
			return p.Max
		}
		return d
	default: // linear
		d := time.Duration(retryCount) * p.Initial
		if d > p.Max {
			return p.Max
		}
		return d
	}
}

// Validate ensures invariants; returns error if policy impossible to apply.
func (p Policy) Validate() error {
	if p.MaxRetries < 0 {
		return foundationerrors.ValidationError("max retries cannot be negative").
			WithContext("max_retries", p.MaxRetries).
			Build()
	}
	if p.MaxRetries == 0 {
		return nil
	}
	if p.Initial <= 0 {
		return foundationerrors.ValidationError("initial delay must be >0").Build()
	}
	if p.Max <= 0 {
		return foundationerrors.ValidationError("max delay must be >0").Build()
	}
	return nil
}

// Do runs fn until it succeeds, returns an error retryable rejects, or the
// retries are exhausted. onRetry, when set, is called before each wait.
// The last error is returned; cancellation of ctx ends the waiting early.
func (p Policy) Do(ctx context.Context, retryable func(error) bool, onRetry func(attempt int, delay time.Duration, err error), fn func(context.Context) error) error {
	var err error
	for attempt := 0; ; attempt++ {
		if err = fn(ctx); err == nil {
			return nil
		}
		if attempt >= p.MaxRetries || (retryable != nil && !retryable(err)) {
			return err
		}
		delay := p.Delay(attempt + 1)
		if onRetry != nil {
			onRetry(attempt+1, delay, err)
		}
		t := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return err
		case <-t.C:
		}
	}
}
