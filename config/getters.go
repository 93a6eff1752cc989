package config

import (
	"reflect"
	"strings"
	"time"

	"github.com/pkg/errors"
)

var ErrNotFound = errors.New("field not found")

type Option func(options *options)

type options struct {
	withDefault  bool
	defaultValue interface{}
}

func getOptions(opts ...Option) *options {
	defaultOptions := &options{
		withDefault:  false,
		defaultValue: nil,
	}

	for _, opt := range opts {
		opt(defaultOptions)
	}

	return defaultOptions
}

func WithDefault(value interface{}) Option {
	return func(options *options) {
		options.withDefault = true
		options.defaultValue = value
	}
}

// GetInterface get's the given potentially nested field irrelevant of it's type.
// This will recursively descend into submaps.
func GetInterface(config map[string]interface{}, field string, opts ...Option) (interface{}, error) {
	options := getOptions(opts...)
	i := strings.Index(field, ".")
	if i == -1 {
		element, ok := config[field]
		if options.withDefault && !ok {
			return options.defaultValue, nil
		}
		if !ok {
			return nil, ErrNotFound
		}
		return element, nil
	}

	element, ok := config[field[:i]]
	if options.withDefault && !ok {
		return options.defaultValue, nil
	}
	if !ok {
		return nil, ErrNotFound
	}
	submap, ok := element.(map[string]interface{})
	if !ok {
		return nil, errors.Errorf("%v should be a map, got: %v", field[:i], reflect.TypeOf(element))
	}

	out, err := GetInterface(submap, field[i+1:], opts...)
	if err != nil {
		return nil, errors.Wrapf(err, "couldn't get interface from %v", field[i+1:])
	}

	return out, nil
}

// getTyped gets the field and converts it with convert.
// The default value, if any, is returned as-is when the field is missing.
func getTyped[T any](config map[string]interface{}, field string, convert func(interface{}) (T, bool), opts ...Option) (T, error) {
	var zero T
	options := getOptions(opts...)
	out, err := GetInterface(config, field)
	if err != nil {
		if options.withDefault && errors.Cause(err) == ErrNotFound {
			return options.defaultValue.(T), nil
		}
		return zero, errors.Wrapf(err, "couldn't get %s", field)
	}

	typed, ok := convert(out)
	if !ok {
		return zero, errors.Errorf("expected %v for %s, got %v", reflect.TypeOf(zero), field, reflect.TypeOf(out))
	}
	return typed, nil
}

// GetInterfaceList gets a list from the given field.
func GetInterfaceList(config map[string]interface{}, field string, opts ...Option) ([]interface{}, error) {
	return getTyped(config, field, func(value interface{}) ([]interface{}, bool) {
		if value == nil {
			return nil, true
		}
		out, ok := value.([]interface{})
		return out, ok
	}, opts...)
}

// GetMap gets a sub-map from the given field.
func GetMap(config map[string]interface{}, field string, opts ...Option) (map[string]interface{}, error) {
	return getTyped(config, field, func(value interface{}) (map[string]interface{}, bool) {
		out, ok := value.(map[string]interface{})
		return out, ok
	}, opts...)
}

func GetString(config map[string]interface{}, field string, opts ...Option) (string, error) {
	return getTyped(config, field, func(value interface{}) (string, bool) {
		out, ok := value.(string)
		return out, ok
	}, opts...)
}

// GetStringList gets a string list from the given field.
func GetStringList(config map[string]interface{}, field string, opts ...Option) ([]string, error) {
	return getTyped(config, field, func(value interface{}) ([]string, bool) {
		list, ok := value.([]interface{})
		if !ok {
			return nil, false
		}
		out := make([]string, len(list))
		for i := range list {
			if out[i], ok = list[i].(string); !ok {
				return nil, false
			}
		}
		return out, true
	}, opts...)
}

func GetInt(config map[string]interface{}, field string, opts ...Option) (int, error) {
	return getTyped(config, field, func(value interface{}) (int, bool) {
		out, ok := value.(int)
		return out, ok
	}, opts...)
}

func GetBool(config map[string]interface{}, field string, opts ...Option) (bool, error) {
	return getTyped(config, field, func(value interface{}) (bool, bool) {
		out, ok := value.(bool)
		return out, ok
	}, opts...)
}

// GetFloat64 gets a float64 from the given field. Integers are accepted too.
func GetFloat64(config map[string]interface{}, field string, opts ...Option) (float64, error) {
	return getTyped(config, field, func(value interface{}) (float64, bool) {
		switch value := value.(type) {
		case float64:
			return value, true
		case int:
			return float64(value), true
		}
		return 0, false
	}, opts...)
}

// GetDuration parses a duration string, like "30s", from the given field.
func GetDuration(config map[string]interface{}, field string, opts ...Option) (time.Duration, error) {
	return getTyped(config, field, func(value interface{}) (time.Duration, bool) {
		str, ok := value.(string)
		if !ok {
			return 0, false
		}
		out, err := time.ParseDuration(str)
		return out, err == nil
	}, opts...)
}
