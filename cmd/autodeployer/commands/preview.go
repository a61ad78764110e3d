package commands

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"git.home.luguber.info/inful/autodeployer/internal/logfields"
	"git.home.luguber.info/inful/autodeployer/internal/server/maintenance"
	"git.home.luguber.info/inful/autodeployer/internal/status"
)

// PreviewStep is one demo status shown by the preview command.
type PreviewStep struct {
	Message  string
	Progress int
}

// DemoSteps are cycled by the preview command.
var DemoSteps = []PreviewStep{
	{"Checking for updates...", 10},
	{"Downloading latest release...", 30},
	{"Extracting files...", 50},
	{"Running migrations...", 70},
	{"Restarting services...", 90},
	{"Update complete!", 100},
}

// PreviewCmd serves the maintenance page without touching any service.
type PreviewCmd struct {
	Port     int           `name:"port" default:"8080" help:"Maintenance server port."`
	Bind     string        `name:"bind" default:"" help:"Listen address; empty binds all interfaces."`
	AssetDir string        `name:"asset-dir" default:"dist" help:"Static asset directory; the embedded page is used when missing."`
	Interval time.Duration `name:"interval" default:"2s" help:"Delay between demo statuses."`
}

func (p *PreviewCmd) Run(g *Global, _ *CLI) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store := status.NewStore()
	srv := maintenance.New(store, maintenance.Options{
		Bind:     p.Bind,
		Port:     p.Port,
		AssetDir: p.AssetDir,
		Logger:   g.Logger,
	})
	if err := srv.Start(ctx); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(g.stdout(), "Maintenance preview on http://%s\n", srv.Addr())

	runPreview(ctx, store, p.Interval, g)

	g.Logger.Info("Stopping preview server")
	stopCtx, stopCancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer stopCancel()
	return srv.Stop(stopCtx)
}

// runPreview publishes DemoSteps repeatedly until ctx is cancelled.
func runPreview(ctx context.Context, store *status.Store, interval time.Duration, g *Global) {
	for {
		store.Reset()
		for _, step := range DemoSteps {
			store.Update(step.Message, step.Progress)
			g.Logger.Info("Preview status", logfields.Progress(step.Progress), logfields.Stage(step.Message))
			if !sleep(ctx, interval) {
				return
			}
		}
		g.Logger.Debug("Restarting status cycle")
		if !sleep(ctx, interval/2) {
			return
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
