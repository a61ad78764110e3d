package commands

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"git.home.luguber.info/inful/autodeployer/internal/daemon"
)

// OnceCmd implements the 'once' command: one cycle, exit code reflects the verdict.
type OnceCmd struct{}

func (o *OnceCmd) Run(g *Global, root *CLI) error {
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

	res, err := d.RunOnce(ctx)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(g.stdout(), "%s %s\n", res.Outcome, res.Tag)
	return nil
}
