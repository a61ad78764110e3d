package deploy

import "context"

// Observer receives cycle lifecycle notifications. Calls are synchronous on
// the orchestrator's goroutine and must not block for long.
type Observer interface {
	CycleStarted(ctx context.Context, attempt Attempt)
	StepFinished(ctx context.Context, report StepReport)
	CycleFinished(ctx context.Context, result Result)
}

// Observers fans notifications out to every member in order.
type Observers []Observer

func (o Observers) CycleStarted(ctx context.Context, attempt Attempt) {
	for _, obs := range o {
		obs.CycleStarted(ctx, attempt)
	}
}

func (o Observers) StepFinished(ctx context.Context, report StepReport) {
	for _, obs := range o {
		obs.StepFinished(ctx, report)
	}
}

func (o Observers) CycleFinished(ctx context.Context, result Result) {
	for _, obs := range o {
		obs.CycleFinished(ctx, result)
	}
}
