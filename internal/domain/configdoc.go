package domain

import (
	"fmt"
	"strings"
)

// Well-known key paths in experiment configs consumed by the inference runner.
var (
	KeyModelSingle = []string{"model-config", "model-single"}
	KeyExperiment  = []string{"experiment-config"}
	KeyCrop        = []string{"crop"}
)

// ModelKey returns the path to a field of model-config.model-single.
func ModelKey(field string) []string {
	return append(append([]string{}, KeyModelSingle...), field)
}

// ExperimentKey returns the path to a field of experiment-config.
func ExperimentKey(field string) []string {
	return append(append([]string{}, KeyExperiment...), field)
}

// ConfigDoc is a decoded experiment configuration: nested string-keyed maps,
// slices and scalars, as produced by a YAML decoder.
type ConfigDoc map[string]any

// Clone returns a deep copy so generators never mutate a shared template.
func (d ConfigDoc) Clone() ConfigDoc {
	if d == nil {
		return ConfigDoc{}
	}
	return cloneValue(map[string]any(d)).(map[string]any)
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case ConfigDoc:
		return cloneValue(map[string]any(t))
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, vv := range t {
			out[k] = cloneValue(vv)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, vv := range t {
			out[i] = cloneValue(vv)
		}
		return out
	default:
		return v
	}
}

// Lookup walks keys and returns the value found there.
func (d ConfigDoc) Lookup(keys ...string) (any, bool) {
	var cur any = map[string]any(d)
	for _, k := range keys {
		m, ok := asMap(cur)
		if !ok {
			return nil, false
		}
		cur, ok = m[k]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// String returns the string at keys.
func (d ConfigDoc) String(keys ...string) (string, error) {
	v, ok := d.Lookup(keys...)
	if !ok {
		return "", missingKey(keys)
	}
	s, ok := v.(string)
	if !ok {
		return "", wrongType(keys, "string", v)
	}
	return s, nil
}

// Bool returns the boolean at keys.
func (d ConfigDoc) Bool(keys ...string) (bool, error) {
	v, ok := d.Lookup(keys...)
	if !ok {
		return false, missingKey(keys)
	}
	b, ok := v.(bool)
	if !ok {
		return false, wrongType(keys, "bool", v)
	}
	return b, nil
}

// Set stores value at keys. Every intermediate key must already hold a map;
// only the final key may be created.
func (d ConfigDoc) Set(value any, keys ...string) error {
	if len(keys) == 0 {
		return InvalidConfig("configdoc.set", "", "empty key path")
	}
	var cur any = map[string]any(d)
	for i, k := range keys[:len(keys)-1] {
		m, ok := asMap(cur)
		if !ok {
			return wrongType(keys[:i], "mapping", cur)
		}
		next, ok := m[k]
		if !ok {
			return missingKey(keys[:i+1])
		}
		cur = next
	}
	m, ok := asMap(cur)
	if !ok {
		return wrongType(keys[:len(keys)-1], "mapping", cur)
	}
	m[keys[len(keys)-1]] = value
	return nil
}

func asMap(v any) (map[string]any, bool) {
	switch t := v.(type) {
	case map[string]any:
		return t, true
	case ConfigDoc:
		return map[string]any(t), true
	}
	return nil, false
}

func missingKey(keys []string) error {
	return &OpError{
		Op:   "configdoc.lookup",
		Kind: KindNotFound,
		Err:  fmt.Errorf("key %s: %w", strings.Join(keys, "."), ErrNotFound),
	}
}

func wrongType(keys []string, want string, got any) error {
	return InvalidConfig("configdoc.lookup", "", "key %s: expected %s, got %T", strings.Join(keys, "."), want, got)
}
