// Package config loads the deployer configuration file.
//
// The file is a JSON or YAML document with upper-case keys (REPO,
// SERVICE_NAME, ...). Values may reference environment variables as ${VAR},
// and every key can be overridden by an AUTODEPLOY_-prefixed environment
// variable.
package config

import (
	"time"
)

// Config is the immutable runtime configuration of the deployer.
type Config struct {
	Repo        string `yaml:"REPO" env:"REPO"`
	ServiceName string `yaml:"SERVICE_NAME" env:"SERVICE_NAME"`
	TargetDir   string `yaml:"TARGET_DIR" env:"TARGET_DIR"`
	StateFile   string `yaml:"STATE_FILE" env:"STATE_FILE"`

	// Maintenance window status server.
	MaintenancePort   Port          `yaml:"MAINTENANCE_PORT" env:"MAINTENANCE_PORT"`
	MaintenanceBind   string        `yaml:"MAINTENANCE_BIND" env:"MAINTENANCE_BIND"`
	AssetDir          string        `yaml:"ASSET_DIR" env:"ASSET_DIR"`
	AssetBuildCommand string        `yaml:"ASSET_BUILD_COMMAND" env:"ASSET_BUILD_COMMAND"`
	StatusHold        time.Duration `yaml:"STATUS_HOLD" env:"STATUS_HOLD"`

	CheckInterval  time.Duration `yaml:"CHECK_INTERVAL" env:"CHECK_INTERVAL"`
	ReleaseAPIURL  string        `yaml:"RELEASE_API_URL" env:"RELEASE_API_URL"`
	ReleaseTimeout time.Duration `yaml:"RELEASE_TIMEOUT" env:"RELEASE_TIMEOUT"`
	GitHubToken    string        `yaml:"GITHUB_TOKEN" env:"GITHUB_TOKEN"`

	// Retries of transient release check failures within one cycle.
	ReleaseRetries       *int             `yaml:"RELEASE_RETRIES" env:"RELEASE_RETRIES"`
	ReleaseRetryBackoff  RetryBackoffMode `yaml:"RELEASE_RETRY_BACKOFF" env:"RELEASE_RETRY_BACKOFF"`
	ReleaseRetryDelay    time.Duration    `yaml:"RELEASE_RETRY_DELAY" env:"RELEASE_RETRY_DELAY"`
	ReleaseRetryMaxDelay time.Duration    `yaml:"RELEASE_RETRY_MAX_DELAY" env:"RELEASE_RETRY_MAX_DELAY"`

	ServiceStopCommand  string       `yaml:"SERVICE_STOP_COMMAND" env:"SERVICE_STOP_COMMAND"`
	ServiceStartCommand string       `yaml:"SERVICE_START_COMMAND" env:"SERVICE_START_COMMAND"`
	ExtraSteps          []StepConfig `yaml:"EXTRA_STEPS" envPrefix:"EXTRA_STEPS_"`

	AdminPort        Port          `yaml:"ADMIN_PORT" env:"ADMIN_PORT"`
	HistoryDB        string        `yaml:"HISTORY_DB" env:"HISTORY_DB"`
	HistoryRetention time.Duration `yaml:"HISTORY_RETENTION" env:"HISTORY_RETENTION"`
	NATSURL          string        `yaml:"NATS_URL" env:"NATS_URL"`
	NATSSubject      string        `yaml:"NATS_SUBJECT" env:"NATS_SUBJECT"`
	WatchStateFile   *bool         `yaml:"WATCH_STATE_FILE" env:"WATCH_STATE_FILE"`

	LogLevel  LogLevel  `yaml:"LOG_LEVEL" env:"LOG_LEVEL"`
	LogFormat LogFormat `yaml:"LOG_FORMAT" env:"LOG_FORMAT"`
}

// StepConfig describes an additional update step run after the tag checkout.
type StepConfig struct {
	Command  string `yaml:"COMMAND" env:"COMMAND"`
	Message  string `yaml:"MESSAGE" env:"MESSAGE"`
	Progress int    `yaml:"PROGRESS" env:"PROGRESS"`
	Dir      string `yaml:"DIR" env:"DIR"`
}

// WatchStateFileEnabled reports whether the state file watcher should run.
func (c *Config) WatchStateFileEnabled() bool {
	return c.WatchStateFile == nil || *c.WatchStateFile
}

// ReleaseRetryCount returns the configured retry count; unset means DefaultReleaseRetries.
func (c *Config) ReleaseRetryCount() int {
	if c.ReleaseRetries == nil {
		return DefaultReleaseRetries
	}
	return *c.ReleaseRetries
}

// HistoryEnabled reports whether deployment history is persisted.
func (c *Config) HistoryEnabled() bool { return c.HistoryDB != "" }

// NotificationsEnabled reports whether status snapshots are published to NATS.
func (c *Config) NotificationsEnabled() bool { return c.NATSURL != "" }

// AdminEnabled reports whether the admin server should be started.
func (c *Config) AdminEnabled() bool { return c.AdminPort > 0 }
