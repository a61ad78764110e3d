package commands

import (
	"context"
	"os/signal"
	"syscall"

	"git.home.luguber.info/inful/autodeployer/internal/daemon"
	"git.home.luguber.info/inful/autodeployer/internal/logfields"
	"git.home.luguber.info/inful/autodeployer/internal/version"
)

// RunCmd implements the 'run' command.
type RunCmd struct{}

func (r *RunCmd) Run(g *Global, root *CLI) error {
	cfg, err := loadConfig(g, root)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	d, err := daemon.New(cfg, g.Logger)
	if err != nil {
		return err
	}
	defer d.Close()

	g.Logger.Info("Starting autodeployer",
		logfields.Repository(cfg.Repo),
		logfields.Service(cfg.ServiceName),
		logfields.Duration(cfg.CheckInterval),
		logfields.Port(cfg.MaintenancePort.Int()),
		logfields.UserAgent(version.UserAgent()))

	if err := d.Run(ctx); err != nil {
		return err
	}
	g.Logger.Info("Autodeployer stopped")
	return nil
}
