package pongo

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
)

// Keys accepted by OptionsFromMap.
const (
	OptionDebug         = "debug"
	OptionCache         = "cache"
	OptionAutoescape    = "autoescape"
	OptionBannedTags    = "banned_tags"
	OptionBannedFilters = "banned_filters"
	OptionGlobals       = "globals"
	OptionStrict        = "strict_functions"
)

// OptionsFromMap translates a configuration `options` mapping into engine
// options. Unknown keys and mistyped values are errors.
func OptionsFromMap(raw map[string]any) ([]Option, error) {
	keys := make([]string, 0, len(raw))
	for key := range raw {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var out []Option
	for _, key := range keys {
		value := raw[key]
		switch strings.TrimSpace(key) {
		case OptionDebug:
			b, err := boolOption(key, value)
			if err != nil {
				return nil, err
			}
			out = append(out, WithDebug(b))
		case OptionCache:
			b, err := boolOption(key, value)
			if err != nil {
				return nil, err
			}
			out = append(out, WithCache(b))
		case OptionAutoescape:
			b, err := boolOption(key, value)
			if err != nil {
				return nil, err
			}
			out = append(out, WithAutoescape(b))
		case OptionStrict:
			b, err := boolOption(key, value)
			if err != nil {
				return nil, err
			}
			out = append(out, WithStrictFunctions(b))
		case OptionBannedTags:
			names, err := stringsOption(key, value)
			if err != nil {
				return nil, err
			}
			out = append(out, WithBannedTags(names...))
		case OptionBannedFilters:
			names, err := stringsOption(key, value)
			if err != nil {
				return nil, err
			}
			out = append(out, WithBannedFilters(names...))
		case OptionGlobals:
			globals, err := mappingOption(key, value)
			if err != nil {
				return nil, err
			}
			out = append(out, WithGlobalData(globals))
		default:
			return nil, fmt.Errorf("pongo: unsupported option %q", key)
		}
	}
	return out, nil
}

func boolOption(key string, value any) (bool, error) {
	b, ok := value.(bool)
	if !ok {
		return false, fmt.Errorf("pongo: option %q must be a bool, got %T", key, value)
	}
	return b, nil
}

func stringsOption(key string, value any) ([]string, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case string:
		return []string{v}, nil
	case []string:
		return v, nil
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("pongo: option %q must contain strings, got %T", key, item)
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("pongo: option %q must be a list of strings, got %T", key, value)
	}
}

// mappingOption accepts any string-keyed map, including named map types such
// as config.Values.
func mappingOption(key string, value any) (map[string]any, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case map[string]any:
		return v, nil
	}
	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Map || rv.Type().Key().Kind() != reflect.String {
		return nil, fmt.Errorf("pongo: option %q must be a mapping, got %T", key, value)
	}
	out := make(map[string]any, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		out[iter.Key().String()] = iter.Value().Interface()
	}
	return out, nil
}
