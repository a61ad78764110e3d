package deploy

import (
	"fmt"
	"strings"

	"git.home.luguber.info/inful/autodeployer/internal/config"
)

// Progress values published at fixed points of a cycle.
const (
	ProgressMaintenanceStarted = 0
	ProgressStopping           = 10
	ProgressFetch              = 30
	ProgressCheckout           = 60
	ProgressFinalizing         = 80
	ProgressRestarting         = 90
	ProgressComplete           = 100
)

// Step is one command of the update plan.
type Step struct {
	Name     string
	Command  string
	Message  string
	Progress int
	Dir      string
}

// BuildPlan returns the ordered update steps for tag: fetch, checkout, then
// the configured extra steps. Steps without a Dir run in targetDir.
func BuildPlan(tag, targetDir string, extra []config.StepConfig) []Step {
	plan := []Step{
		{
			Name:     "fetch",
			Command:  "git fetch --tags --all",
			Message:  "Fetching latest updates...",
			Progress: ProgressFetch,
			Dir:      targetDir,
		},
		{
			Name:     "checkout",
			Command:  "git checkout " + shellQuote("tags/"+tag),
			Message:  fmt.Sprintf("Switching to %s...", tag),
			Progress: ProgressCheckout,
			Dir:      targetDir,
		},
	}
	for i, s := range extra {
		dir := s.Dir
		if dir == "" {
			dir = targetDir
		}
		plan = append(plan, Step{
			Name:     fmt.Sprintf("extra-%d", i+1),
			Command:  s.Command,
			Message:  s.Message,
			Progress: s.Progress,
			Dir:      dir,
		})
	}
	return plan
}

// shellQuote wraps s in single quotes for sh -c.
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
