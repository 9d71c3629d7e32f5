package query

import (
	"time"
)

// Criteria holds the optional query criteria collected from CLI flags
// or a query file. Nil members leave the corresponding attribute
// unconstrained; a zero Criteria builds an empty filter set, which
// matches every approach.
type Criteria struct {
	// Date constrains approaches to one exact calendar day.
	Date *time.Time
	// StartDate constrains approaches to that day or later.
	StartDate *time.Time
	// EndDate constrains approaches to that day or earlier.
	EndDate *time.Time

	// MinDistance and MaxDistance bound the approach distance (au), inclusive.
	MinDistance *float64
	MaxDistance *float64

	// MinVelocity and MaxVelocity bound the relative velocity (km/s), inclusive.
	MinVelocity *float64
	MaxVelocity *float64

	// MinDiameter and MaxDiameter bound the object diameter (km), inclusive.
	// Objects with an unknown diameter never satisfy either bound.
	MinDiameter *float64
	MaxDiameter *float64

	// Hazardous constrains the object's hazardous classification.
	Hazardous *bool

	// Where is an optional expression predicate source, compiled into
	// an ExpressionFilter.
	Where string

	// Script is an optional JavaScript predicate source, compiled into
	// a ScriptFilter.
	Script string

	// ScriptFile is an optional path to a JavaScript predicate file.
	// Mutually exclusive with Script.
	ScriptFile string
}

// IsZero reports whether no criterion is set.
func (c Criteria) IsZero() bool {
	return c.Date == nil && c.StartDate == nil && c.EndDate == nil &&
		c.MinDistance == nil && c.MaxDistance == nil &&
		c.MinVelocity == nil && c.MaxVelocity == nil &&
		c.MinDiameter == nil && c.MaxDiameter == nil &&
		c.Hazardous == nil && c.Where == "" && c.Script == "" &&
		c.ScriptFile == ""
}

// BuildFilters constructs the filter set for the given criteria:
// exact date maps to =, start/min bounds to >=, end/max bounds to <=,
// hazardous to =. Construction is eager; the first invalid member
// aborts with a *ConfigurationError before any query runs.
func BuildFilters(c Criteria) ([]Filter, error) {
	var filters []Filter

	appendFilter := func(f Filter, err error) error {
		if err != nil {
			return err
		}
		filters = append(filters, f)
		return nil
	}

	if c.Date != nil {
		if err := appendFilter(NewDateFilter(OpEq, *c.Date)); err != nil {
			return nil, err
		}
	}
	if c.StartDate != nil {
		if err := appendFilter(NewDateFilter(OpGe, *c.StartDate)); err != nil {
			return nil, err
		}
	}
	if c.EndDate != nil {
		if err := appendFilter(NewDateFilter(OpLe, *c.EndDate)); err != nil {
			return nil, err
		}
	}

	if c.MinDistance != nil {
		if err := appendFilter(NewDistanceFilter(OpGe, *c.MinDistance)); err != nil {
			return nil, err
		}
	}
	if c.MaxDistance != nil {
		if err := appendFilter(NewDistanceFilter(OpLe, *c.MaxDistance)); err != nil {
			return nil, err
		}
	}

	if c.MinVelocity != nil {
		if err := appendFilter(NewVelocityFilter(OpGe, *c.MinVelocity)); err != nil {
			return nil, err
		}
	}
	if c.MaxVelocity != nil {
		if err := appendFilter(NewVelocityFilter(OpLe, *c.MaxVelocity)); err != nil {
			return nil, err
		}
	}

	if c.MinDiameter != nil {
		if err := appendFilter(NewDiameterFilter(OpGe, *c.MinDiameter)); err != nil {
			return nil, err
		}
	}
	if c.MaxDiameter != nil {
		if err := appendFilter(NewDiameterFilter(OpLe, *c.MaxDiameter)); err != nil {
			return nil, err
		}
	}

	if c.Hazardous != nil {
		if err := appendFilter(NewHazardousFilter(OpEq, *c.Hazardous)); err != nil {
			return nil, err
		}
	}

	if c.Where != "" {
		if err := appendFilter(NewExpressionFilter(c.Where)); err != nil {
			return nil, err
		}
	}

	if c.Script != "" && c.ScriptFile != "" {
		return nil, &ConfigurationError{
			Code:    ErrCodeInvalidScript,
			Message: "script filter: inline script and script file are mutually exclusive",
			Err:     ErrInvalidScript,
		}
	}
	if c.Script != "" {
		if err := appendFilter(NewScriptFilter(c.Script)); err != nil {
			return nil, err
		}
	}
	if c.ScriptFile != "" {
		if err := appendFilter(NewScriptFilterFromFile(c.ScriptFile)); err != nil {
			return nil, err
		}
	}

	return filters, nil
}
