package query

import (
	"fmt"
	"time"

	"github.com/seulgie/asteroid-data-processor/pkg/neo"
)

// Operator is a comparison operator applied between an attribute value
// extracted from a close approach and a filter's reference value.
type Operator string

// The five supported comparison operators.
const (
	OpEq Operator = "="
	OpLt Operator = "<"
	OpGt Operator = ">"
	OpLe Operator = "<="
	OpGe Operator = ">="
)

// Valid reports whether op is one of the supported comparators.
func (op Operator) Valid() bool {
	switch op {
	case OpEq, OpLt, OpGt, OpLe, OpGe:
		return true
	}
	return false
}

// Filter is one predicate over a close approach, possibly reaching
// through to its NEO. Filters are immutable and stateless after
// construction, so they may be evaluated in any order. The engine
// depends only on this interface; new filter kinds plug in without
// touching it.
type Filter interface {
	// Matches reports whether the approach satisfies the predicate.
	// It never fails: comparisons against unknown values are false.
	Matches(ca *neo.CloseApproach) bool

	// String describes the predicate for logs and dry-run previews.
	String() string
}

// compareFloat applies op between an extracted float value and the
// reference value.
func compareFloat(op Operator, got, want float64) bool {
	switch op {
	case OpEq:
		return got == want
	case OpLt:
		return got < want
	case OpGt:
		return got > want
	case OpLe:
		return got <= want
	case OpGe:
		return got >= want
	}
	return false
}

// compareTime applies op between two instants.
func compareTime(op Operator, got, want time.Time) bool {
	switch op {
	case OpEq:
		return got.Equal(want)
	case OpLt:
		return got.Before(want)
	case OpGt:
		return got.After(want)
	case OpLe:
		return !got.After(want)
	case OpGe:
		return !got.Before(want)
	}
	return false
}

// compareBool applies op between two booleans. Ordering between
// booleans is not defined: the strict operators never hold and the
// inclusive ones reduce to equality.
func compareBool(op Operator, got, want bool) bool {
	switch op {
	case OpEq, OpLe, OpGe:
		return got == want
	}
	return false
}

// truncateToDay drops the time-of-day component, normalizing to UTC.
// Date filters compare at calendar-day granularity.
func truncateToDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// DistanceFilter compares an approach's nominal distance, in
// astronomical units, against a reference value.
type DistanceFilter struct {
	Op    Operator
	Value float64
}

// NewDistanceFilter creates a distance filter. It returns a
// *ConfigurationError if op is not a supported comparator.
func NewDistanceFilter(op Operator, value float64) (*DistanceFilter, error) {
	if !op.Valid() {
		return nil, newOperatorError("distance", op)
	}
	return &DistanceFilter{Op: op, Value: value}, nil
}

// Matches reports whether the approach distance satisfies the predicate.
func (f *DistanceFilter) Matches(ca *neo.CloseApproach) bool {
	return compareFloat(f.Op, ca.Distance, f.Value)
}

func (f *DistanceFilter) String() string {
	return fmt.Sprintf("distance %s %v au", f.Op, f.Value)
}

// VelocityFilter compares an approach's relative velocity, in
// kilometers per second, against a reference value.
type VelocityFilter struct {
	Op    Operator
	Value float64
}

// NewVelocityFilter creates a velocity filter. It returns a
// *ConfigurationError if op is not a supported comparator.
func NewVelocityFilter(op Operator, value float64) (*VelocityFilter, error) {
	if !op.Valid() {
		return nil, newOperatorError("velocity", op)
	}
	return &VelocityFilter{Op: op, Value: value}, nil
}

// Matches reports whether the approach velocity satisfies the predicate.
func (f *VelocityFilter) Matches(ca *neo.CloseApproach) bool {
	return compareFloat(f.Op, ca.Velocity, f.Value)
}

func (f *VelocityFilter) String() string {
	return fmt.Sprintf("velocity %s %v km/s", f.Op, f.Value)
}

// DateFilter compares an approach's date, truncated to calendar-day
// granularity in UTC, against a reference date.
type DateFilter struct {
	Op    Operator
	Value time.Time
}

// NewDateFilter creates a date filter. The reference value is
// truncated to its calendar day at construction. It returns a
// *ConfigurationError if op is not a supported comparator.
func NewDateFilter(op Operator, value time.Time) (*DateFilter, error) {
	if !op.Valid() {
		return nil, newOperatorError("date", op)
	}
	return &DateFilter{Op: op, Value: truncateToDay(value)}, nil
}

// Matches reports whether the approach date satisfies the predicate.
func (f *DateFilter) Matches(ca *neo.CloseApproach) bool {
	return compareTime(f.Op, truncateToDay(ca.Time), f.Value)
}

func (f *DateFilter) String() string {
	return fmt.Sprintf("date %s %s", f.Op, f.Value.Format("2006-01-02"))
}

// DiameterFilter compares the diameter of the approaching object, in
// kilometers, against a reference value. The extraction traverses the
// approach's NEO back-reference.
type DiameterFilter struct {
	Op    Operator
	Value float64
}

// NewDiameterFilter creates a diameter filter. It returns a
// *ConfigurationError if op is not a supported comparator.
func NewDiameterFilter(op Operator, value float64) (*DiameterFilter, error) {
	if !op.Valid() {
		return nil, newOperatorError("diameter", op)
	}
	return &DiameterFilter{Op: op, Value: value}, nil
}

// Matches reports whether the object's diameter satisfies the
// predicate. An unknown diameter never matches, whatever the operator.
func (f *DiameterFilter) Matches(ca *neo.CloseApproach) bool {
	if ca.NEO == nil || !ca.NEO.DiameterKnown() {
		return false
	}
	return compareFloat(f.Op, *ca.NEO.Diameter, f.Value)
}

func (f *DiameterFilter) String() string {
	return fmt.Sprintf("diameter %s %v km", f.Op, f.Value)
}

// HazardousFilter compares the hazardous classification of the
// approaching object against a reference value. The extraction
// traverses the approach's NEO back-reference.
type HazardousFilter struct {
	Op    Operator
	Value bool
}

// NewHazardousFilter creates a hazardous filter. It returns a
// *ConfigurationError if op is not a supported comparator.
func NewHazardousFilter(op Operator, value bool) (*HazardousFilter, error) {
	if !op.Valid() {
		return nil, newOperatorError("hazardous", op)
	}
	return &HazardousFilter{Op: op, Value: value}, nil
}

// Matches reports whether the object's hazardous flag satisfies the
// predicate. An approach with no linked NEO never matches.
func (f *HazardousFilter) Matches(ca *neo.CloseApproach) bool {
	if ca.NEO == nil {
		return false
	}
	return compareBool(f.Op, ca.NEO.Hazardous, f.Value)
}

func (f *HazardousFilter) String() string {
	return fmt.Sprintf("hazardous %s %v", f.Op, f.Value)
}

// Compile-time interface checks.
var (
	_ Filter = (*DistanceFilter)(nil)
	_ Filter = (*VelocityFilter)(nil)
	_ Filter = (*DateFilter)(nil)
	_ Filter = (*DiameterFilter)(nil)
	_ Filter = (*HazardousFilter)(nil)
)
