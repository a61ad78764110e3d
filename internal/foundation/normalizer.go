// Package foundation holds small generic helpers shared by the deployer's
// packages. Error classification lives in the errors subpackage.
package foundation

import (
	"strings"

	foundationerrors "git.home.luguber.info/inful/autodeployer/internal/foundation/errors"
)

func normalizeKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Normalizer maps free-form configuration strings onto a closed set of values.
// Lookups ignore case and surrounding whitespace.
type Normalizer[T comparable] struct {
	values       map[string]T
	defaultValue T
}

// NewNormalizer creates a normalizer from spelling -> value pairs. Several
// spellings may map to the same value.
func NewNormalizer[T comparable](values map[string]T, defaultValue T) *Normalizer[T] {
	normalized := make(map[string]T, len(values))
	for k, v := range values {
		normalized[normalizeKey(k)] = v
	}
	return &Normalizer[T]{values: normalized, defaultValue: defaultValue}
}

// Normalize returns the value for raw, or the default when raw is unknown or empty.
func (n *Normalizer[T]) Normalize(raw string) T {
	if value, ok := n.values[normalizeKey(raw)]; ok {
		return value
	}
	return n.defaultValue
}

// NormalizeStrict returns the value for raw or a validation error naming it.
func (n *Normalizer[T]) NormalizeStrict(raw string) (T, error) {
	if value, ok := n.values[normalizeKey(raw)]; ok {
		return value, nil
	}
	var zero T
	return zero, foundationerrors.ValidationError("unrecognized value").
		WithContext("value", raw).
		Build()
}
