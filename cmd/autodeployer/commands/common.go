// Package commands implements the autodeployer command line.
package commands

import (
	"io"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/autodeployer/internal/config"
	"git.home.luguber.info/inful/autodeployer/internal/observability"
)

// Global carries state shared by every command.
type Global struct {
	Logger *slog.Logger
	Stdout io.Writer
}

// CLI definition and global flags.
type CLI struct {
	Config  string           `short:"c" help:"Configuration file path" default:"config.json" type:"path"`
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	Run     RunCmd     `cmd:"" default:"1" help:"Run the deployment daemon (default)"`
	Once    OnceCmd    `cmd:"" help:"Run a single deployment cycle and exit"`
	Check   CheckCmd   `cmd:"" help:"Report the latest release and the installed tag"`
	Preview PreviewCmd `cmd:"" help:"Serve the maintenance page cycling demo statuses"`
}

// AfterApply runs after flag parsing; setup logging once.
// nolint:unparam // AfterApply currently never returns an error.
func (c *CLI) AfterApply(g *Global) error {
	level := slog.LevelInfo
	if c.Verbose {
		level = slog.LevelDebug
	}
	g.Logger = observability.NewLogger(os.Stdout, level, "text")
	slog.SetDefault(g.Logger)
	return nil
}

// loadConfig loads the configuration file and reconfigures logging from it.
// --verbose wins over LOG_LEVEL.
func loadConfig(g *Global, root *CLI) (*config.Config, error) {
	cfg, err := config.Load(root.Config)
	if err != nil {
		return nil, err
	}
	level := observability.ParseLevel(string(cfg.LogLevel))
	if root.Verbose {
		level = slog.LevelDebug
	}
	g.Logger = observability.NewLogger(os.Stdout, level, string(cfg.LogFormat))
	slog.SetDefault(g.Logger)
	return cfg, nil
}

func (g *Global) stdout() io.Writer {
	if g.Stdout == nil {
		return os.Stdout
	}
	return g.Stdout
}
