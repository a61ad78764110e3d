package main

import (
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/autodeployer/cmd/autodeployer/commands"
	foundationerrors "git.home.luguber.info/inful/autodeployer/internal/foundation/errors"
	"git.home.luguber.info/inful/autodeployer/internal/version"
)

func main() {
	cli := &commands.CLI{}
	global := &commands.Global{Logger: slog.Default(), Stdout: os.Stdout}
	parser := kong.Parse(cli,
		kong.Bind(global),
		kong.Name("autodeployer"),
		kong.Description("Self-updating deployment daemon with a live maintenance page."),
		kong.UsageOnError(),
		kong.Vars{"version": version.String()},
	)

	if err := parser.Run(cli); err != nil {
		foundationerrors.NewCLIErrorAdapter(cli.Verbose, slog.Default()).HandleError(err)
	}
}
