// Package registry provides registries for the asteroids runtime.
// This file registers all built-in filter kinds and writer formats
// during initialization.
package registry

import (
	"fmt"
	"time"

	"github.com/seulgie/asteroid-data-processor/internal/output"
	"github.com/seulgie/asteroid-data-processor/internal/query"
)

func init() {
	registerBuiltinFilterKinds()
	registerBuiltinWriterFormats()
}

// registerBuiltinFilterKinds registers all built-in filter kinds.
func registerBuiltinFilterKinds() {
	// distance - approach distance bound in astronomical units
	RegisterFilter("distance", func(op query.Operator, value interface{}) (query.Filter, error) {
		v, err := floatValue("distance", value)
		if err != nil {
			return nil, err
		}
		return query.NewDistanceFilter(op, v)
	})

	// velocity - relative velocity bound in km/s
	RegisterFilter("velocity", func(op query.Operator, value interface{}) (query.Filter, error) {
		v, err := floatValue("velocity", value)
		if err != nil {
			return nil, err
		}
		return query.NewVelocityFilter(op, v)
	})

	// date - approach date comparison at calendar day granularity
	RegisterFilter("date", func(op query.Operator, value interface{}) (query.Filter, error) {
		v, ok := value.(time.Time)
		if !ok {
			return nil, newValueError("date", "time.Time", value)
		}
		return query.NewDateFilter(op, v)
	})

	// diameter - object diameter bound in kilometers
	RegisterFilter("diameter", func(op query.Operator, value interface{}) (query.Filter, error) {
		v, err := floatValue("diameter", value)
		if err != nil {
			return nil, err
		}
		return query.NewDiameterFilter(op, v)
	})

	// hazardous - hazardous classification match
	RegisterFilter("hazardous", func(op query.Operator, value interface{}) (query.Filter, error) {
		v, ok := value.(bool)
		if !ok {
			return nil, newValueError("hazardous", "bool", value)
		}
		return query.NewHazardousFilter(op, v)
	})

	// where - expression predicate over the serialized approach
	RegisterFilter("where", func(_ query.Operator, value interface{}) (query.Filter, error) {
		src, ok := value.(string)
		if !ok {
			return nil, newValueError("where", "string", value)
		}
		return query.NewExpressionFilter(src)
	})

	// script - JavaScript predicate defining matches(approach)
	RegisterFilter("script", func(_ query.Operator, value interface{}) (query.Filter, error) {
		src, ok := value.(string)
		if !ok {
			return nil, newValueError("script", "string", value)
		}
		return query.NewScriptFilter(src)
	})
}

// registerBuiltinWriterFormats registers all built-in writer formats.
func registerBuiltinWriterFormats() {
	// csv - header row plus one row per approach
	RegisterWriter(output.FormatCSV, func(path string, _ string) (output.Writer, error) {
		return output.NewCSVWriter(path), nil
	})

	// json - single top-level array of approach objects
	RegisterWriter(output.FormatJSON, func(path string, _ string) (output.Writer, error) {
		return output.NewJSONWriter(path), nil
	})

	// template - one rendered line per approach
	RegisterWriter(output.FormatTemplate, func(path string, template string) (output.Writer, error) {
		return output.NewTemplateWriter(path, template)
	})
}

// floatValue coerces a numeric filter value, accepting the int that
// YAML parsing produces for whole numbers.
func floatValue(kind string, value interface{}) (float64, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	default:
		return 0, newValueError(kind, "float64", value)
	}
}

// newValueError builds the ConfigurationError for a filter value of the
// wrong type.
func newValueError(kind, expected string, value interface{}) *query.ConfigurationError {
	return &query.ConfigurationError{
		Code:    query.ErrCodeInvalidValue,
		Message: fmt.Sprintf("%s filter: expected %s value, got %T", kind, expected, value),
		Details: map[string]interface{}{
			"kind":     kind,
			"expected": expected,
		},
	}
}
