package config

import (
	"errors"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"

	foundationerrors "git.home.luguber.info/inful/autodeployer/internal/foundation/errors"
)

// Load reads, expands, decodes, overrides, defaults and validates the
// configuration at path. Every failure is a CategoryConfig error.
func Load(path string) (*Config, error) {
	loadEnvFile()
	return load(path, nil)
}

// load is Load without the .env side effect; environ replaces the process
// environment for overrides when non-nil.
func load(path string, environ map[string]string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, foundationerrors.WrapError(err, foundationerrors.CategoryConfig, "configuration file not found").
				WithSeverity(foundationerrors.SeverityFatal).
				WithContext("path", path).
				Build()
		}
		return nil, foundationerrors.WrapError(err, foundationerrors.CategoryConfig, "failed to read configuration file").
			WithSeverity(foundationerrors.SeverityFatal).
			WithContext("path", path).
			Build()
	}

	cfg, err := Parse(data, environ)
	if err != nil {
		if ce, ok := foundationerrors.AsClassified(err); ok {
			return nil, ce.WithContext("path", path)
		}
		return nil, err
	}
	return cfg, nil
}

// Parse decodes a configuration document (JSON or YAML) and finishes it the
// same way Load does.
func Parse(data []byte, environ map[string]string) (*Config, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, foundationerrors.WrapError(err, foundationerrors.CategoryConfig, "malformed configuration").
			WithSeverity(foundationerrors.SeverityFatal).
			Build()
	}

	var cfg Config
	if root.Kind != 0 {
		expandNode(&root, environ)
		if err := root.Decode(&cfg); err != nil {
			return nil, foundationerrors.WrapError(err, foundationerrors.CategoryConfig, "malformed configuration").
				WithSeverity(foundationerrors.SeverityFatal).
				Build()
		}
	}

	if err := applyEnvOverrides(&cfg, environ); err != nil {
		return nil, foundationerrors.WrapError(err, foundationerrors.CategoryConfig, "invalid environment override").
			WithSeverity(foundationerrors.SeverityFatal).
			Build()
	}

	applyDefaults(&cfg)

	if err := ValidateConfig(&cfg); err != nil {
		return nil, foundationerrors.WrapError(err, foundationerrors.CategoryConfig, "configuration validation failed").
			WithSeverity(foundationerrors.SeverityFatal).
			Build()
	}
	return &cfg, nil
}

// commandKeys hold shell commands; their $ references belong to the shell.
var commandKeys = map[string]bool{
	"SERVICE_STOP_COMMAND":  true,
	"SERVICE_START_COMMAND": true,
	"ASSET_BUILD_COMMAND":   true,
	"COMMAND":               true,
}

// expandNode replaces ${VAR} references in scalar values, skipping command keys.
// A changed value is re-resolved so "${PORT}" can decode as a number or bool.
func expandNode(n *yaml.Node, environ map[string]string) {
	switch n.Kind {
	case yaml.DocumentNode, yaml.SequenceNode:
		for _, c := range n.Content {
			expandNode(c, environ)
		}
	case yaml.MappingNode:
		for i := 0; i+1 < len(n.Content); i += 2 {
			if commandKeys[n.Content[i].Value] {
				continue
			}
			expandNode(n.Content[i+1], environ)
		}
	case yaml.ScalarNode:
		expanded := expandEnv(n.Value, environ)
		if expanded != n.Value {
			n.Value = expanded
			n.Tag = ""
			n.Style = 0
		}
	}
}

func expandEnv(s string, environ map[string]string) string {
	if environ == nil {
		return os.ExpandEnv(s)
	}
	return os.Expand(s, func(k string) string { return environ[k] })
}
