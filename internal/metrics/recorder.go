package metrics

import "time"

// ResultLabel enumerates step result categories for counters.
type ResultLabel string

const (
	ResultSuccess ResultLabel = "success"
	ResultFailed  ResultLabel = "failed"
)

// ResultFor maps a boolean outcome to a label.
func ResultFor(ok bool) ResultLabel {
	if ok {
		return ResultSuccess
	}
	return ResultFailed
}

// Recorder defines observability hooks for deployment cycles and steps.
type Recorder interface {
	ObserveCycleDuration(d time.Duration)
	IncCycleOutcome(outcome string)
	ObserveStepDuration(step string, d time.Duration)
	IncStepResult(step string, result ResultLabel)
	IncReleaseCheck(result ResultLabel)
	SetMaintenanceActive(active bool)
	SetLastSuccess(t time.Time)
}

// NoopRecorder is a Recorder that does nothing (default when metrics are not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveCycleDuration(time.Duration)        {}
func (NoopRecorder) IncCycleOutcome(string)                    {}
func (NoopRecorder) ObserveStepDuration(string, time.Duration) {}
func (NoopRecorder) IncStepResult(string, ResultLabel)         {}
func (NoopRecorder) IncReleaseCheck(ResultLabel)               {}
func (NoopRecorder) SetMaintenanceActive(bool)                 {}
func (NoopRecorder) SetLastSuccess(time.Time)                  {}
