package config

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
)

// Keys consumed by the configured renderer.
const (
	KeyName      = "name"
	KeyLoaders   = "loaders"
	KeyOptions   = "options"
	KeyFunctions = "functions"
)

// ErrMissingKey reports that a required configuration key is absent or empty.
var ErrMissingKey = errors.New("config: missing required key")

// Provider is the read side of a configuration source. Get reports whether
// the key is present so callers can distinguish absent keys from zero values.
type Provider interface {
	Get(key string) (any, bool)
}

// Values is a map-backed Provider. It is the shape produced by Load and the
// easiest way to configure a renderer programmatically.
type Values map[string]any

// Ensure Values implements Provider.
var _ Provider = Values(nil)

// Get returns the raw value stored under key.
func (v Values) Get(key string) (any, bool) {
	if v == nil {
		return nil, false
	}
	value, ok := v[key]
	return value, ok
}

// GetOr returns the value stored under key or fallback when it is absent.
func GetOr(p Provider, key string, fallback any) any {
	if p == nil {
		return fallback
	}
	value, ok := p.Get(key)
	if !ok || value == nil {
		return fallback
	}
	return value
}

// LoaderSpec names a registered loader and the arguments handed to its
// factory.
type LoaderSpec struct {
	Name string
	Args []any
}

// Name returns the trimmed `name` value, failing when it is absent, blank or
// not a string.
func Name(p Provider) (string, error) {
	if p == nil {
		return "", fmt.Errorf("%w %q", ErrMissingKey, KeyName)
	}
	raw, ok := p.Get(KeyName)
	if !ok || raw == nil {
		return "", fmt.Errorf("%w %q", ErrMissingKey, KeyName)
	}
	name, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("config: %q must be a string, got %T", KeyName, raw)
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("%w %q", ErrMissingKey, KeyName)
	}
	return name, nil
}

// Loaders normalises the `loaders` value into an ordered list. Ordered input
// ([]LoaderSpec) keeps its order; map input is applied in sorted key order.
// A missing key yields an empty list.
func Loaders(p Provider) ([]LoaderSpec, error) {
	raw := GetOr(p, KeyLoaders, nil)
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case []LoaderSpec:
		out := make([]LoaderSpec, 0, len(v))
		for _, spec := range v {
			name := strings.TrimSpace(spec.Name)
			if name == "" {
				return nil, fmt.Errorf("config: %q contains an unnamed loader", KeyLoaders)
			}
			out = append(out, LoaderSpec{Name: name, Args: spec.Args})
		}
		return out, nil
	case Values:
		return Loaders(Values{KeyLoaders: map[string]any(v)})
	case map[string][]any:
		out := make([]LoaderSpec, 0, len(v))
		for _, name := range sortedKeys(v) {
			out = append(out, LoaderSpec{Name: name, Args: v[name]})
		}
		return out, nil
	case map[string]any:
		out := make([]LoaderSpec, 0, len(v))
		for _, name := range sortedKeys(v) {
			out = append(out, LoaderSpec{Name: name, Args: argumentList(v[name])})
		}
		return out, nil
	default:
		return nil, fmt.Errorf("config: %q has unsupported type %T", KeyLoaders, raw)
	}
}

// Options returns the `options` mapping, or an empty map when absent.
func Options(p Provider) (map[string]any, error) {
	raw := GetOr(p, KeyOptions, nil)
	switch v := raw.(type) {
	case nil:
		return map[string]any{}, nil
	case map[string]any:
		return v, nil
	case Values:
		return map[string]any(v), nil
	default:
		return nil, fmt.Errorf("config: %q must be a mapping, got %T", KeyOptions, raw)
	}
}

// Functions returns the `functions` mapping. Every value must be a Go func.
func Functions(p Provider) (map[string]any, error) {
	raw := GetOr(p, KeyFunctions, nil)
	if raw == nil {
		return nil, nil
	}
	var fns map[string]any
	switch v := raw.(type) {
	case map[string]any:
		fns = v
	case Values:
		fns = v
	default:
		return nil, fmt.Errorf("config: %q must be a mapping, got %T", KeyFunctions, raw)
	}
	out := make(map[string]any, len(fns))
	for name, fn := range fns {
		trimmed := strings.TrimSpace(name)
		if trimmed == "" {
			return nil, fmt.Errorf("config: %q contains an unnamed function", KeyFunctions)
		}
		if fn == nil || reflect.ValueOf(fn).Kind() != reflect.Func {
			return nil, fmt.Errorf("config: function %q is not callable (%T)", trimmed, fn)
		}
		out[trimmed] = fn
	}
	return out, nil
}

func argumentList(raw any) []any {
	switch v := raw.(type) {
	case nil:
		return nil
	case []any:
		return v
	case []string:
		out := make([]any, 0, len(v))
		for _, item := range v {
			out = append(out, item)
		}
		return out
	default:
		return []any{v}
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
