package config

import (
	"errors"
	"io/fs"
	"log/slog"

	env "github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "AUTODEPLOY_"

var envFiles = []string{".env", ".env.local"}

// loadEnvFile loads the first available .env file. Existing process
// environment variables are not overwritten.
func loadEnvFile() {
	for _, path := range envFiles {
		err := godotenv.Load(path)
		if err == nil {
			slog.Debug("Loaded environment variables", slog.String("path", path))
			return
		}
		if !errors.Is(err, fs.ErrNotExist) {
			slog.Warn("Could not load env file", slog.String("path", path), slog.String("error", err.Error()))
		}
	}
}

// applyEnvOverrides overlays AUTODEPLOY_* variables onto cfg.
func applyEnvOverrides(cfg *Config, environ map[string]string) error {
	opts := env.Options{Prefix: EnvPrefix}
	if environ != nil {
		opts.Environment = environ
	}
	return env.ParseWithOptions(cfg, opts)
}
