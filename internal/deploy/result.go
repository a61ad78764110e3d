package deploy

import "time"

// Outcome is the verdict of one cycle.
type Outcome string

const (
	OutcomeSucceeded Outcome = "succeeded"
	OutcomeFailed    Outcome = "failed"
	OutcomeUpToDate  Outcome = "up_to_date"
	OutcomeNoRelease Outcome = "no_release"
)

// Result summarizes a finished cycle. DeploymentID is empty when no
// maintenance window was opened.
type Result struct {
	DeploymentID string
	Outcome      Outcome
	Tag          string
	PreviousTag  string
	Commit       string
	FailedStep   string
	StartedAt    time.Time
	FinishedAt   time.Time
	Err          error
}

// Duration is the wall time of the cycle.
func (r Result) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// Deployed reports whether a maintenance window was opened.
func (r Result) Deployed() bool { return r.DeploymentID != "" }

// Attempt describes a cycle that is about to open a maintenance window.
type Attempt struct {
	DeploymentID string
	Tag          string
	PreviousTag  string
	Service      string
	StartedAt    time.Time
}

// StepReport describes one finished command inside a maintenance window.
type StepReport struct {
	DeploymentID string
	Step         Step
	Success      bool
	Duration     time.Duration
}
