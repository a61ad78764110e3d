package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	foundationerrors "git.home.luguber.info/inful/autodeployer/internal/foundation/errors"
)

const minimalJSON = `{
  "REPO": "acme/app",
  "SERVICE_NAME": "app",
  "TARGET_DIR": "/srv/app",
  "STATE_FILE": "/var/lib/autodeployer/last_tag"
}`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := load(writeConfig(t, minimalJSON), map[string]string{})
	require.NoError(t, err)

	require.Equal(t, "acme/app", cfg.Repo)
	require.Equal(t, DefaultMaintenancePort, cfg.MaintenancePort)
	require.Equal(t, DefaultAssetDir, cfg.AssetDir)
	require.Equal(t, DefaultCheckInterval, cfg.CheckInterval)
	require.Equal(t, DefaultStatusHold, cfg.StatusHold)
	require.Equal(t, DefaultReleaseAPIURL, cfg.ReleaseAPIURL)
	require.Equal(t, DefaultReleaseTimeout, cfg.ReleaseTimeout)
	require.Equal(t, "sudo systemctl stop app", cfg.ServiceStopCommand)
	require.Equal(t, "sudo systemctl start app", cfg.ServiceStartCommand)
	require.Equal(t, DefaultNATSSubject, cfg.NATSSubject)
	require.Equal(t, LogLevelInfo, cfg.LogLevel)
	require.Equal(t, LogFormatText, cfg.LogFormat)
	require.True(t, cfg.WatchStateFileEnabled())
	require.False(t, cfg.HistoryEnabled())
	require.False(t, cfg.NotificationsEnabled())
	require.False(t, cfg.AdminEnabled())
}

func TestLoadAcceptsPortAsString(t *testing.T) {
	cfg, err := load(writeConfig(t, `{
  "REPO": "acme/app", "SERVICE_NAME": "app", "TARGET_DIR": "/srv/app",
  "STATE_FILE": "/tmp/tag", "MAINTENANCE_PORT": "9090"
}`), map[string]string{})
	require.NoError(t, err)
	require.Equal(t, 9090, cfg.MaintenancePort.Int())
}

func TestLoadYAMLWithExtraSteps(t *testing.T) {
	cfg, err := load(writeConfig(t, `
REPO: acme/app
SERVICE_NAME: app
TARGET_DIR: /srv/app
STATE_FILE: /tmp/tag
MAINTENANCE_PORT: 8181
CHECK_INTERVAL: 5m
WATCH_STATE_FILE: false
LOG_FORMAT: JSON
EXTRA_STEPS:
  - COMMAND: npm ci
    MESSAGE: Installing dependencies...
    PROGRESS: 65
  - COMMAND: npm run build
    MESSAGE: Building...
    PROGRESS: 75
    DIR: /srv/app/web
`), map[string]string{})
	require.NoError(t, err)
	require.Equal(t, 8181, cfg.MaintenancePort.Int())
	require.Equal(t, 5*time.Minute, cfg.CheckInterval)
	require.False(t, cfg.WatchStateFileEnabled())
	require.Equal(t, LogFormatJSON, cfg.LogFormat)
	require.Len(t, cfg.ExtraSteps, 2)
	require.Equal(t, "npm run build", cfg.ExtraSteps[1].Command)
	require.Equal(t, "/srv/app/web", cfg.ExtraSteps[1].Dir)
}

func TestLoadExpandsEnvironmentReferences(t *testing.T) {
	cfg, err := load(writeConfig(t, `{
  "REPO": "acme/app", "SERVICE_NAME": "app", "TARGET_DIR": "${APP_HOME}",
  "STATE_FILE": "/tmp/tag", "GITHUB_TOKEN": "${GH_TOKEN}"
}`), map[string]string{"APP_HOME": "/opt/app", "GH_TOKEN": "secret"})
	require.NoError(t, err)
	require.Equal(t, "/opt/app", cfg.TargetDir)
	require.Equal(t, "secret", cfg.GitHubToken)
}

func TestLoadKeepsShellVariablesInCommands(t *testing.T) {
	cfg, err := load(writeConfig(t, `{
  "REPO": "acme/app", "SERVICE_NAME": "app", "TARGET_DIR": "${APP_HOME}",
  "STATE_FILE": "/tmp/tag",
  "SERVICE_STOP_COMMAND": "kill $(cat /run/app.pid) && echo $$",
  "SERVICE_START_COMMAND": "systemctl start \"${UNIT:-app}\"",
  "ASSET_BUILD_COMMAND": "cd web && npm run build -- --out $OUT",
  "EXTRA_STEPS": [
    {"COMMAND": "for f in migrations/*.sql; do psql -f $f; done", "MESSAGE": "Migrating ${APP_HOME}", "PROGRESS": 70}
  ]
}`), map[string]string{"APP_HOME": "/opt/app", "f": "WRONG", "OUT": "WRONG", "UNIT": "WRONG"})
	require.NoError(t, err)
	require.Equal(t, "/opt/app", cfg.TargetDir)
	require.Equal(t, "kill $(cat /run/app.pid) && echo $$", cfg.ServiceStopCommand)
	require.Equal(t, `systemctl start "${UNIT:-app}"`, cfg.ServiceStartCommand)
	require.Equal(t, "cd web && npm run build -- --out $OUT", cfg.AssetBuildCommand)
	require.Equal(t, "for f in migrations/*.sql; do psql -f $f; done", cfg.ExtraSteps[0].Command)
	require.Equal(t, "Migrating /opt/app", cfg.ExtraSteps[0].Message)
}

func TestLoadExpandsTypedValues(t *testing.T) {
	cfg, err := load(writeConfig(t, `{
  "REPO": "acme/app", "SERVICE_NAME": "app", "TARGET_DIR": "/srv/app",
  "STATE_FILE": "/tmp/tag", "MAINTENANCE_PORT": "${PORT}", "WATCH_STATE_FILE": "${WATCH}",
  "CHECK_INTERVAL": "${EVERY}"
}`), map[string]string{"PORT": "9090", "WATCH": "false", "EVERY": "5m"})
	require.NoError(t, err)
	require.Equal(t, 9090, cfg.MaintenancePort.Int())
	require.False(t, cfg.WatchStateFileEnabled())
	require.Equal(t, 5*time.Minute, cfg.CheckInterval)
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	cfg, err := load(writeConfig(t, minimalJSON), map[string]string{
		"AUTODEPLOY_SERVICE_NAME":     "other",
		"AUTODEPLOY_MAINTENANCE_PORT": "9999",
		"AUTODEPLOY_CHECK_INTERVAL":   "30s",
		"AUTODEPLOY_ADMIN_PORT":       "9100",
	})
	require.NoError(t, err)
	require.Equal(t, "other", cfg.ServiceName)
	require.Equal(t, "sudo systemctl stop other", cfg.ServiceStopCommand)
	require.Equal(t, 9999, cfg.MaintenancePort.Int())
	require.Equal(t, 30*time.Second, cfg.CheckInterval)
	require.True(t, cfg.AdminEnabled())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := load(filepath.Join(t.TempDir(), "nope.json"), map[string]string{})
	require.Error(t, err)
	require.True(t, foundationerrors.HasCategory(err, foundationerrors.CategoryConfig))
	require.Equal(t, 7, foundationerrors.NewCLIErrorAdapter(false, nil).ExitCodeFor(err))
}

func TestLoadMalformedFile(t *testing.T) {
	_, err := load(writeConfig(t, `{"REPO": `), map[string]string{})
	require.Error(t, err)
	require.True(t, foundationerrors.HasCategory(err, foundationerrors.CategoryConfig))
}

func TestLoadRejectsInvalidPortString(t *testing.T) {
	_, err := load(writeConfig(t, `{
  "REPO": "acme/app", "SERVICE_NAME": "app", "TARGET_DIR": "/srv/app",
  "STATE_FILE": "/tmp/tag", "MAINTENANCE_PORT": "http"
}`), map[string]string{})
	require.Error(t, err)
	require.True(t, foundationerrors.HasCategory(err, foundationerrors.CategoryConfig))
}
