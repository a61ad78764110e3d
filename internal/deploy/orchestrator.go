package deploy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/autodeployer/internal/config"
	foundationerrors "git.home.luguber.info/inful/autodeployer/internal/foundation/errors"
	"git.home.luguber.info/inful/autodeployer/internal/git"
	"git.home.luguber.info/inful/autodeployer/internal/logfields"
	"git.home.luguber.info/inful/autodeployer/internal/metrics"
	"git.home.luguber.info/inful/autodeployer/internal/observability"
	"git.home.luguber.info/inful/autodeployer/internal/process"
	"git.home.luguber.info/inful/autodeployer/internal/release"
	"git.home.luguber.info/inful/autodeployer/internal/status"
)

const serverStopTimeout = 5 * time.Second

// TagStore persists the last successfully deployed tag.
type TagStore interface {
	Read() (string, error)
	Write(tag string) error
}

// StatusServer is the maintenance endpoint opened for the duration of a window.
type StatusServer interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// CheckoutInspector resolves the checked-out commit after an update.
type CheckoutInspector interface {
	Inspect(repoPath, tag string) (git.Checkout, error)
}

// Options are the static settings of an orchestrator.
type Options struct {
	Repo              string
	Service           string
	TargetDir         string
	StopCommand       string
	StartCommand      string
	ExtraSteps        []config.StepConfig
	AssetDir          string
	AssetBuildCommand string
	Hold              time.Duration
}

// OptionsFromConfig maps the loaded configuration onto orchestrator options.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Repo:              cfg.Repo,
		Service:           cfg.ServiceName,
		TargetDir:         cfg.TargetDir,
		StopCommand:       cfg.ServiceStopCommand,
		StartCommand:      cfg.ServiceStartCommand,
		ExtraSteps:        cfg.ExtraSteps,
		AssetDir:          cfg.AssetDir,
		AssetBuildCommand: cfg.AssetBuildCommand,
		Hold:              cfg.StatusHold,
	}
}

// Dependencies are the collaborators driven by an orchestrator. Recorder,
// Observer and Inspector are optional.
type Dependencies struct {
	Releases  release.Source
	Runner    process.Runner
	Server    StatusServer
	Tags      TagStore
	Status    *status.Store
	Inspector CheckoutInspector
	Recorder  metrics.Recorder
	Observer  Observer
}

// Orchestrator runs deployment cycles. At most one cycle is in flight.
type Orchestrator struct {
	opts     Options
	releases release.Source
	runner   process.Runner
	server   StatusServer
	tags     TagStore
	status   *status.Store
	inspect  CheckoutInspector
	recorder metrics.Recorder
	observer Observer

	state    atomic.Value // State
	inFlight atomic.Bool

	now   func() time.Time
	newID func() string
	hold  func(ctx context.Context, d time.Duration)
}

// New creates an orchestrator.
func New(opts Options, deps Dependencies) *Orchestrator {
	o := &Orchestrator{
		opts:     opts,
		releases: deps.Releases,
		runner:   deps.Runner,
		server:   deps.Server,
		tags:     deps.Tags,
		status:   deps.Status,
		inspect:  deps.Inspector,
		recorder: deps.Recorder,
		observer: deps.Observer,
		now:      time.Now,
		newID:    uuid.NewString,
		hold:     sleepContext,
	}
	if o.recorder == nil {
		o.recorder = metrics.NoopRecorder{}
	}
	if o.observer == nil {
		o.observer = Observers(nil)
	}
	if o.status == nil {
		o.status = status.NewStore()
	}
	o.state.Store(StateIdle)
	return o
}

// State returns the current cycle state.
func (o *Orchestrator) State() State {
	return o.state.Load().(State)
}

func (o *Orchestrator) setState(s State) {
	o.state.Store(s)
}

// RunCycle performs one check and, when the latest release differs from the
// installed tag, one deployment. The returned error is the classified cause of
// a failed or no_release cycle.
func (o *Orchestrator) RunCycle(ctx context.Context) (Result, error) {
	if !o.inFlight.CompareAndSwap(false, true) {
		return Result{Outcome: OutcomeFailed}, foundationerrors.DeployError("deployment cycle already in flight").Build()
	}
	defer o.inFlight.Store(false)
	defer o.setState(StateIdle)

	res := o.cycle(ctx)
	res.FinishedAt = o.now()

	o.recorder.IncCycleOutcome(string(res.Outcome))
	o.recorder.ObserveCycleDuration(res.Duration())
	if res.Outcome == OutcomeSucceeded {
		o.recorder.SetLastSuccess(res.FinishedAt)
	}
	o.observer.CycleFinished(context.WithoutCancel(ctx), res)

	if res.Outcome == OutcomeFailed || res.Outcome == OutcomeNoRelease {
		return res, res.Err
	}
	return res, nil
}

func (o *Orchestrator) cycle(ctx context.Context) Result {
	res := Result{StartedAt: o.now()}

	o.setState(StateCheckingVersion)
	installed, err := o.tags.Read()
	if err != nil {
		slog.Error("Failed to read installed tag", logfields.Error(err))
		res.Outcome = OutcomeFailed
		res.Err = err
		o.setState(StateFailed)
		return res
	}
	res.PreviousTag = installed

	latest, err := o.releases.Latest(ctx, o.opts.Repo)
	o.recorder.IncReleaseCheck(metrics.ResultFor(err == nil))
	if err != nil {
		slog.Warn("Latest release unavailable",
			logfields.Repository(o.opts.Repo),
			logfields.Error(err))
		res.Outcome = OutcomeNoRelease
		res.Err = err
		return res
	}
	res.Tag = latest.TagName
	if err := release.ValidateTag(latest.TagName); err != nil {
		slog.Warn("Latest release tag rejected",
			logfields.Repository(o.opts.Repo),
			logfields.Error(err))
		res.Outcome = OutcomeNoRelease
		res.Err = err
		return res
	}

	if latest.TagName == installed {
		slog.Info("No update needed", logfields.Tag(installed))
		res.Outcome = OutcomeUpToDate
		return res
	}

	slog.Info("New release found",
		logfields.Tag(latest.TagName),
		logfields.PreviousTag(installed))
	return o.deploy(ctx, res)
}

// deploy runs the maintenance window. Everything from here on runs on a
// context that ignores cancellation so the service is always restarted.
func (o *Orchestrator) deploy(parent context.Context, res Result) Result {
	res.DeploymentID = o.newID()
	ctx := context.WithoutCancel(parent)
	ctx = observability.WithDeploymentID(ctx, res.DeploymentID)
	ctx = observability.WithTag(ctx, res.Tag)
	ctx = observability.WithService(ctx, o.opts.Service)

	o.observer.CycleStarted(ctx, Attempt{
		DeploymentID: res.DeploymentID,
		Tag:          res.Tag,
		PreviousTag:  res.PreviousTag,
		Service:      o.opts.Service,
		StartedAt:    res.StartedAt,
	})

	o.ensureAssets(ctx, res.DeploymentID)

	o.setState(StateMaintenanceStarting)
	o.status.Reset()
	if err := o.server.Start(ctx); err != nil {
		observability.ErrorContext(ctx, "Maintenance server failed to start", logfields.Error(err))
		res.Outcome = OutcomeFailed
		res.FailedStep = "maintenance-server"
		res.Err = foundationerrors.WrapError(err, foundationerrors.CategoryDeploy, "maintenance server failed to start").Build()
		o.setState(StateFailed)
		return res
	}
	o.recorder.SetMaintenanceActive(true)
	defer o.closeWindow(parent, ctx)

	o.publish(ctx, "Maintenance server started", ProgressMaintenanceStarted)

	o.setState(StateStoppingService)
	o.publish(ctx, fmt.Sprintf("Stopping %s...", o.opts.Service), ProgressStopping)
	stop := Step{Name: "stop", Command: o.opts.StopCommand, Message: "Stopping service", Progress: ProgressStopping}
	if !o.runStep(ctx, res.DeploymentID, stop) {
		o.publish(ctx, "Failed to stop service.", ProgressStopping)
		res.Outcome = OutcomeFailed
		res.FailedStep = stop.Name
		res.Err = foundationerrors.DeployError("failed to stop service").
			WithContext("service", o.opts.Service).
			Build()
		o.setState(StateFailed)
		return res
	}

	var failed *Step
	plan := BuildPlan(res.Tag, o.opts.TargetDir, o.opts.ExtraSteps)
	for i := range plan {
		step := plan[i]
		o.setState(stateUpdating(i))
		o.publish(ctx, step.Message, step.Progress)
		if !o.runStep(ctx, res.DeploymentID, step) {
			o.publish(ctx, "Error during: "+step.Message, step.Progress)
			failed = &step
			break
		}
	}
	if failed == nil {
		o.publish(ctx, "Finalizing update...", ProgressFinalizing)
	}

	o.setState(StateRestarting)
	o.publish(ctx, fmt.Sprintf("Restarting %s...", o.opts.Service), ProgressRestarting)
	restart := Step{Name: "restart", Command: o.opts.StartCommand, Message: "Restarting service", Progress: ProgressRestarting}
	if !o.runStep(ctx, res.DeploymentID, restart) {
		observability.WarnContext(ctx, "Service restart failed")
		o.publish(ctx, fmt.Sprintf("Failed to restart %s.", o.opts.Service), ProgressRestarting)
	}

	if failed != nil {
		observability.ErrorContext(ctx, "Update failed", logfields.Step(failed.Name))
		res.Outcome = OutcomeFailed
		res.FailedStep = failed.Name
		res.Err = foundationerrors.DeployError("deployment step failed").
			WithContext("step", failed.Name).
			WithContext("command", failed.Command).
			Build()
		o.setState(StateFailed)
		return res
	}

	o.setState(StateFinalizing)
	if err := o.tags.Write(res.Tag); err != nil {
		observability.ErrorContext(ctx, "Failed to record deployed tag", logfields.Error(err))
		o.publish(ctx, "Failed to record deployed version.", ProgressRestarting)
		res.Outcome = OutcomeFailed
		res.FailedStep = "record-tag"
		res.Err = foundationerrors.WrapError(err, foundationerrors.CategoryDeploy, "failed to record deployed version").Build()
		o.setState(StateFailed)
		return res
	}
	res.Commit = o.inspectCheckout(ctx, res.Tag)

	o.publish(ctx, "Update complete!", ProgressComplete)
	observability.InfoContext(ctx, "Successfully updated", logfields.Commit(res.Commit))
	res.Outcome = OutcomeSucceeded
	o.setState(StateSucceeded)
	return res
}

// closeWindow holds the final status for operators, then stops the server.
// The hold is cut short when parent is cancelled.
func (o *Orchestrator) closeWindow(parent, ctx context.Context) {
	o.hold(parent, o.opts.Hold)

	stopCtx, cancel := context.WithTimeout(ctx, serverStopTimeout)
	defer cancel()
	if err := o.server.Stop(stopCtx); err != nil {
		observability.WarnContext(ctx, "Maintenance server did not stop cleanly", logfields.Error(err))
	}
	o.recorder.SetMaintenanceActive(false)
}

func (o *Orchestrator) publish(ctx context.Context, message string, progress int) {
	o.status.Update(message, progress)
	observability.InfoContext(ctx, message, logfields.Progress(progress))
}

func (o *Orchestrator) runStep(ctx context.Context, deploymentID string, step Step) bool {
	start := o.now()
	ok := o.runner.Run(ctx, step.Command, step.Dir)
	elapsed := o.now().Sub(start)

	o.recorder.ObserveStepDuration(step.Name, elapsed)
	o.recorder.IncStepResult(step.Name, metrics.ResultFor(ok))
	o.observer.StepFinished(ctx, StepReport{
		DeploymentID: deploymentID,
		Step:         step,
		Success:      ok,
		Duration:     elapsed,
	})
	if !ok {
		observability.WarnContext(ctx, "Step failed",
			logfields.Step(step.Name),
			logfields.Command(step.Command))
	}
	return ok
}

// ensureAssets runs the asset build when configured and the asset directory
// is missing. Failure leaves the embedded page to be served.
func (o *Orchestrator) ensureAssets(ctx context.Context, deploymentID string) {
	if o.opts.AssetBuildCommand == "" || o.opts.AssetDir == "" {
		return
	}
	if _, err := os.Stat(o.opts.AssetDir); err == nil || !errors.Is(err, os.ErrNotExist) {
		return
	}
	observability.InfoContext(ctx, "Building web assets", logfields.Dir(o.opts.AssetDir))
	step := Step{Name: "asset-build", Command: o.opts.AssetBuildCommand, Message: "Building web assets"}
	if !o.runStep(ctx, deploymentID, step) {
		observability.WarnContext(ctx, "Asset build failed, serving fallback page")
	}
}

func (o *Orchestrator) inspectCheckout(ctx context.Context, tag string) string {
	if o.inspect == nil {
		return ""
	}
	checkout, err := o.inspect.Inspect(o.opts.TargetDir, tag)
	if err != nil {
		observability.WarnContext(ctx, "Checkout inspection failed", logfields.Error(err))
		return checkout.Head
	}
	if !checkout.Matches() {
		observability.WarnContext(ctx, "Checked-out commit does not match tag",
			logfields.Commit(checkout.Head),
			slog.String("tag_commit", checkout.TagCommit))
	}
	return checkout.Head
}

func sleepContext(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}
