package config

import (
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Port is a TCP port number. It decodes from a number or a numeric string so
// configuration files written by older setup tooling ("8080") keep working.
type Port int

// UnmarshalYAML implements yaml.Unmarshaler.
func (p *Port) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: port must be a scalar", value.Line)
	}
	return p.UnmarshalText([]byte(value.Value))
}

// UnmarshalText implements encoding.TextUnmarshaler (used for environment overrides).
func (p *Port) UnmarshalText(text []byte) error {
	raw := strings.TrimSpace(string(text))
	if raw == "" {
		*p = 0
		return nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fmt.Errorf("invalid port %q: not a number", raw)
	}
	*p = Port(n)
	return nil
}

// Int returns the port as an int.
func (p Port) Int() int { return int(p) }

func (p Port) valid() bool { return p >= 1 && p <= 65535 }
