package commands

import (
	"context"
	"fmt"
	"time"

	"git.home.luguber.info/inful/autodeployer/internal/daemon"
)

// CheckCmd implements the 'check' command.
type CheckCmd struct {
	Timeout time.Duration `help:"Overall time limit for the release query" default:"1m"`
}

func (c *CheckCmd) Run(g *Global, root *CLI) error {
	cfg, err := loadConfig(g, root)
	if err != nil {
		return err
	}
	// Check never deploys, so optional side channels stay off.
	cfg.HistoryDB = ""
	cfg.NATSURL = ""

	d, err := daemon.New(cfg, g.Logger)
	if err != nil {
		return err
	}
	defer d.Close()

	ctx, cancel := context.WithTimeout(context.Background(), c.Timeout)
	defer cancel()

	latest, installed, err := d.Check(ctx)
	if err != nil {
		return err
	}
	if installed == "" {
		installed = "(none)"
	}
	out := g.stdout()
	_, _ = fmt.Fprintf(out, "repository: %s\n", cfg.Repo)
	_, _ = fmt.Fprintf(out, "latest:     %s\n", latest)
	_, _ = fmt.Fprintf(out, "installed:  %s\n", installed)
	_, _ = fmt.Fprintf(out, "update:     %t\n", latest != installed)
	return nil
}
