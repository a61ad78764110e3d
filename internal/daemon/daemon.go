// Package daemon wires the deployer's components and runs the perpetual
// deployment loop together with its background helpers.
package daemon

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/autodeployer/internal/config"
	"git.home.luguber.info/inful/autodeployer/internal/deploy"
	"git.home.luguber.info/inful/autodeployer/internal/eventstore"
	foundationerrors "git.home.luguber.info/inful/autodeployer/internal/foundation/errors"
	"git.home.luguber.info/inful/autodeployer/internal/git"
	"git.home.luguber.info/inful/autodeployer/internal/logfields"
	"git.home.luguber.info/inful/autodeployer/internal/metrics"
	"git.home.luguber.info/inful/autodeployer/internal/notify"
	"git.home.luguber.info/inful/autodeployer/internal/process"
	"git.home.luguber.info/inful/autodeployer/internal/release"
	"git.home.luguber.info/inful/autodeployer/internal/retry"
	"git.home.luguber.info/inful/autodeployer/internal/server/admin"
	"git.home.luguber.info/inful/autodeployer/internal/server/maintenance"
	"git.home.luguber.info/inful/autodeployer/internal/server/responses"
	"git.home.luguber.info/inful/autodeployer/internal/statefile"
	"git.home.luguber.info/inful/autodeployer/internal/status"
)

const (
	shutdownTimeout = 10 * time.Second
	pruneInterval   = time.Hour
	historyKeep     = 100
)

// Daemon owns every long-lived component of the deployer.
type Daemon struct {
	cfg       *config.Config
	logger    *slog.Logger
	startTime time.Time

	status      *status.Store
	tags        *trackedTags
	releases    *release.Client
	orch        *deploy.Orchestrator
	maintenance *maintenance.Server
	admin       *admin.Server
	registry    *prom.Registry

	history    eventstore.Store
	historyRec *historyRecorder
	publisher  *notify.Publisher

	trigger *Trigger
	workers WorkerGroup

	installed atomic.Value // string
	mu        sync.RWMutex
	last      *responses.CycleSummary
}

// New builds a daemon from cfg. Optional components (history, NATS, admin)
// are created only when configured.
func New(cfg *config.Config, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil {
		return nil, foundationerrors.ConfigError("configuration is required").Fatal().Build()
	}
	if logger == nil {
		logger = slog.Default()
	}

	d := &Daemon{
		cfg:       cfg,
		logger:    logger,
		startTime: time.Now(),
		status:    status.NewStore(),
		registry:  metrics.NewRegistry(),
		trigger:   NewTrigger(),
	}
	d.workers.Logger = logger
	d.tags = &trackedTags{File: statefile.New(cfg.StateFile), onWrite: d.setInstalled}
	if tag, err := d.tags.Read(); err == nil {
		d.setInstalled(tag)
	} else {
		d.setInstalled("")
		logger.Warn("Installed tag unavailable", logfields.Path(cfg.StateFile), logfields.Error(err))
	}

	d.releases = release.NewClient(release.Options{
		APIURL:  cfg.ReleaseAPIURL,
		Token:   cfg.GitHubToken,
		Timeout: cfg.ReleaseTimeout,
		Logger:  logger,
		Retry:   retry.FromConfig(cfg),
	})
	d.maintenance = maintenance.New(d.status, maintenance.Options{
		Bind:     cfg.MaintenanceBind,
		Port:     cfg.MaintenancePort.Int(),
		AssetDir: cfg.AssetDir,
		Logger:   logger,
	})

	observers := deploy.Observers{d}
	if cfg.HistoryEnabled() {
		if err := d.openHistory(); err != nil {
			return nil, err
		}
		observers = append(observers, d.historyRec)
	}
	if cfg.NotificationsEnabled() {
		pub, err := notify.Connect(cfg.NATSURL, cfg.NATSSubject, logger)
		if err != nil {
			d.Close()
			return nil, err
		}
		d.publisher = pub
		d.status.Subscribe(pub.PublishStatus)
		observers = append(observers, pub)
	}

	d.orch = deploy.New(deploy.OptionsFromConfig(cfg), deploy.Dependencies{
		Releases:  d.releases,
		Runner:    &process.ShellRunner{Shell: process.DefaultShell, Logger: logger},
		Server:    d.maintenance,
		Tags:      d.tags,
		Status:    d.status,
		Inspector: git.NewInspector(),
		Recorder:  metrics.NewPrometheusRecorder(d.registry),
		Observer:  observers,
	})

	if cfg.AdminEnabled() {
		src := admin.Sources{Daemon: d, Metrics: metrics.HTTPHandler(d.registry)}
		if d.history != nil {
			src.History = historySource{store: d.history}
		}
		d.admin = admin.New(src, admin.Options{
			Bind:   cfg.MaintenanceBind,
			Port:   cfg.AdminPort.Int(),
			Logger: logger,
		})
	}
	return d, nil
}

func (d *Daemon) openHistory() error {
	store, err := eventstore.NewSQLiteStore(d.cfg.HistoryDB)
	if err != nil {
		return err
	}
	projection := eventstore.NewDeploymentHistoryProjection(store, historyKeep)
	if err := projection.Rebuild(context.Background()); err != nil {
		d.logger.Warn("Failed to rebuild deployment history", logfields.Error(err))
	} else if last, ok := projection.LastFinished(); ok {
		d.last = summaryFromHistory(last)
	}
	d.history = store
	d.historyRec = newHistoryRecorder(store, projection, d.logger)
	return nil
}

// Run starts the background helpers and blocks in the deployment loop until
// ctx is cancelled.
func (d *Daemon) Run(ctx context.Context) error {
	if d.admin != nil {
		if err := d.admin.Start(ctx); err != nil {
			return err
		}
	}

	var sched *Scheduler
	if d.historyRec != nil {
		s, err := NewScheduler(d.logger)
		if err != nil {
			d.logger.Warn("Housekeeping disabled", logfields.Error(err))
		} else if _, err := s.ScheduleEvery(ctx, "history-prune", pruneInterval, func(ctx context.Context) {
			d.historyRec.prune(ctx, d.cfg.HistoryRetention)
		}); err != nil {
			d.logger.Warn("Housekeeping disabled", logfields.Error(err))
		} else {
			s.Start()
			sched = s
		}
	}

	var watcher *StateFileWatcher
	if d.cfg.WatchStateFileEnabled() {
		w, err := NewStateFileWatcher(d.cfg.StateFile, DefaultWatchDebounce, d.onStateFileChanged, d.logger)
		if err != nil {
			d.logger.Warn("State file watcher disabled", logfields.Error(err))
		} else {
			watcher = w
			d.workers.Go(ctx, "state-file-watcher", w.Run)
		}
	}

	loop := &Loop{Runner: d.orch, Interval: d.cfg.CheckInterval, Trigger: d.trigger, Logger: d.logger}
	loop.Run(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if watcher != nil {
		_ = watcher.Close()
	}
	if err := d.workers.StopAndWait(shutdownCtx); err != nil {
		d.logger.Warn("Background workers did not stop in time", logfields.Error(err))
	}
	if sched != nil {
		if err := sched.Stop(); err != nil {
			d.logger.Warn("Scheduler shutdown failed", logfields.Error(err))
		}
	}
	if d.admin != nil {
		if err := d.admin.Stop(shutdownCtx); err != nil {
			d.logger.Warn("Admin server shutdown failed", logfields.Error(err))
		}
	}
	return d.maintenance.Stop(shutdownCtx)
}

// RunOnce performs a single deployment cycle.
func (d *Daemon) RunOnce(ctx context.Context) (deploy.Result, error) {
	return d.orch.RunCycle(ctx)
}

// Check reports the latest release and the installed tag without side effects.
func (d *Daemon) Check(ctx context.Context) (latest, installed string, err error) {
	installed, err = d.tags.Read()
	if err != nil {
		return "", "", err
	}
	rel, err := d.releases.Latest(ctx, d.cfg.Repo)
	if err != nil {
		return "", installed, err
	}
	return rel.TagName, installed, nil
}

// Close releases the history database and the NATS connection.
func (d *Daemon) Close() {
	if d.publisher != nil {
		if err := d.publisher.Close(); err != nil {
			d.logger.Warn("Failed to close NATS connection", logfields.Error(err))
		}
	}
	if d.history != nil {
		if err := d.history.Close(); err != nil {
			d.logger.Warn("Failed to close history store", logfields.Error(err))
		}
	}
}

// onStateFileChanged triggers an early cycle unless the file still holds the
// tag this daemon knows about, which filters out its own writes.
func (d *Daemon) onStateFileChanged() {
	tag, err := d.tags.Read()
	if err == nil && tag == d.InstalledTag() {
		d.logger.Debug("State file unchanged", logfields.Tag(tag))
		return
	}
	d.logger.Info("State file changed externally", logfields.Tag(tag))
	d.trigger.Fire()
}

func (d *Daemon) setInstalled(tag string) { d.installed.Store(tag) }

// State reports the orchestrator state.
func (d *Daemon) State() string { return string(d.orch.State()) }

// StartTime reports when the daemon was created.
func (d *Daemon) StartTime() time.Time { return d.startTime }

// InstalledTag reports the last tag known to be deployed.
func (d *Daemon) InstalledTag() string {
	tag, _ := d.installed.Load().(string)
	return tag
}

// LastResult reports the most recent cycle, or nil before the first one.
func (d *Daemon) LastResult() *responses.CycleSummary {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.last == nil {
		return nil
	}
	cp := *d.last
	return &cp
}

// Status exposes the status store.
func (d *Daemon) Status() *status.Store { return d.status }

// CycleStarted implements deploy.Observer.
func (d *Daemon) CycleStarted(context.Context, deploy.Attempt) {}

// StepFinished implements deploy.Observer.
func (d *Daemon) StepFinished(context.Context, deploy.StepReport) {}

// CycleFinished records the verdict for the health endpoint.
func (d *Daemon) CycleFinished(_ context.Context, res deploy.Result) {
	if res.Outcome == deploy.OutcomeUpToDate {
		d.setInstalled(res.Tag)
	}
	d.mu.Lock()
	d.last = summaryFromResult(res)
	d.mu.Unlock()
}

// trackedTags records every successful write so the watcher can tell the
// daemon's own updates from external ones.
type trackedTags struct {
	*statefile.File
	onWrite func(tag string)
}

func (t *trackedTags) Write(tag string) error {
	if err := t.File.Write(tag); err != nil {
		return err
	}
	t.onWrite(tag)
	return nil
}
