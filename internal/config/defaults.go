package config

import (
	"fmt"
	"time"
)

const (
	DefaultMaintenancePort      Port = 8080
	DefaultAssetDir                  = "dist"
	DefaultCheckInterval             = 2 * time.Minute
	DefaultStatusHold                = 2 * time.Second
	DefaultReleaseAPIURL             = "https://api.github.com"
	DefaultReleaseTimeout            = 30 * time.Second
	DefaultReleaseRetries            = 0
	DefaultReleaseRetryDelay         = time.Second
	DefaultReleaseRetryMaxDelay      = 30 * time.Second
	DefaultHistoryRetention          = 30 * 24 * time.Hour
	DefaultNATSSubject               = "autodeployer.status"
)

// DefaultApplier applies defaults for a specific configuration domain.
type DefaultApplier interface {
	ApplyDefaults(cfg *Config)
	Domain() string
}

// MaintenanceDefaultApplier fills the status server settings.
type MaintenanceDefaultApplier struct{}

func (MaintenanceDefaultApplier) Domain() string { return "maintenance" }

func (MaintenanceDefaultApplier) ApplyDefaults(cfg *Config) {
	if cfg.MaintenancePort == 0 {
		cfg.MaintenancePort = DefaultMaintenancePort
	}
	if cfg.AssetDir == "" {
		cfg.AssetDir = DefaultAssetDir
	}
	if cfg.StatusHold <= 0 {
		cfg.StatusHold = DefaultStatusHold
	}
}

// DeployDefaultApplier fills release polling and service command settings.
type DeployDefaultApplier struct{}

func (DeployDefaultApplier) Domain() string { return "deploy" }

func (DeployDefaultApplier) ApplyDefaults(cfg *Config) {
	if cfg.CheckInterval <= 0 {
		cfg.CheckInterval = DefaultCheckInterval
	}
	if cfg.ReleaseAPIURL == "" {
		cfg.ReleaseAPIURL = DefaultReleaseAPIURL
	}
	if cfg.ReleaseTimeout <= 0 {
		cfg.ReleaseTimeout = DefaultReleaseTimeout
	}
	cfg.ReleaseRetryBackoff = NormalizeRetryBackoffMode(string(cfg.ReleaseRetryBackoff))
	if cfg.ReleaseRetryDelay <= 0 {
		cfg.ReleaseRetryDelay = DefaultReleaseRetryDelay
	}
	if cfg.ReleaseRetryMaxDelay <= 0 {
		cfg.ReleaseRetryMaxDelay = DefaultReleaseRetryMaxDelay
	}
	if cfg.ServiceStopCommand == "" {
		cfg.ServiceStopCommand = fmt.Sprintf("sudo systemctl stop %s", cfg.ServiceName)
	}
	if cfg.ServiceStartCommand == "" {
		cfg.ServiceStartCommand = fmt.Sprintf("sudo systemctl start %s", cfg.ServiceName)
	}
}

// ObservabilityDefaultApplier fills history, notification and logging settings.
type ObservabilityDefaultApplier struct{}

func (ObservabilityDefaultApplier) Domain() string { return "observability" }

func (ObservabilityDefaultApplier) ApplyDefaults(cfg *Config) {
	if cfg.HistoryRetention <= 0 {
		cfg.HistoryRetention = DefaultHistoryRetention
	}
	if cfg.NATSSubject == "" {
		cfg.NATSSubject = DefaultNATSSubject
	}
	cfg.LogLevel = NormalizeLogLevel(string(cfg.LogLevel))
	cfg.LogFormat = NormalizeLogFormat(string(cfg.LogFormat))
}

// DefaultAppliers returns the appliers in the order they run.
func DefaultAppliers() []DefaultApplier {
	return []DefaultApplier{
		MaintenanceDefaultApplier{},
		DeployDefaultApplier{},
		ObservabilityDefaultApplier{},
	}
}

func applyDefaults(cfg *Config) {
	for _, a := range DefaultAppliers() {
		a.ApplyDefaults(cfg)
	}
}
