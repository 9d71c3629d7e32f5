// Package neo provides public types for near-Earth objects and their
// close-approach events. This package is intended to be importable by
// external projects that need to consume query results from the
// asteroids runtime.
package neo

import (
	"fmt"
	"time"
)

// TimeLayout is the layout used for approach times in display strings
// and serialized output.
const TimeLayout = "2006-01-02 15:04"

// NearEarthObject represents a celestial body whose orbit brings it
// near Earth. It owns the collection of close approaches recorded for
// it; approaches are linked once at load time and never mutated
// afterward.
type NearEarthObject struct {
	// Designation is the primary designation, the unique key for this object
	Designation string

	// Name is the IAU name. Empty when the object has not been named.
	Name string

	// Diameter is the estimated diameter in kilometers.
	// Nil when the diameter is unknown.
	Diameter *float64

	// Hazardous reports whether the object is classified as potentially
	// hazardous to Earth.
	Hazardous bool

	// Approaches holds the close approaches recorded for this object,
	// in dataset order. Populated by the database at link time.
	Approaches []*CloseApproach
}

// FullName returns the designation followed by the IAU name in
// parentheses, or the bare designation for unnamed objects.
func (n *NearEarthObject) FullName() string {
	if n.Name != "" {
		return fmt.Sprintf("%s (%s)", n.Designation, n.Name)
	}
	return n.Designation
}

// DiameterKnown reports whether a diameter estimate exists for this object.
func (n *NearEarthObject) DiameterKnown() bool {
	return n.Diameter != nil
}

// String returns a human-readable description of this object.
func (n *NearEarthObject) String() string {
	hazard := "is not"
	if n.Hazardous {
		hazard = "is"
	}
	if !n.DiameterKnown() {
		return fmt.Sprintf("NEO %s has an unknown diameter and %s potentially hazardous", n.FullName(), hazard)
	}
	return fmt.Sprintf("NEO %s has a diameter of %.3f km and %s potentially hazardous", n.FullName(), *n.Diameter, hazard)
}

// Serialize returns the stable map projection of this object used by
// the JSON writer, the expression filter, and the template writer.
// A missing name projects as an empty string and a missing diameter
// as nil (JSON null).
func (n *NearEarthObject) Serialize() map[string]interface{} {
	var diameter interface{}
	if n.Diameter != nil {
		diameter = *n.Diameter
	}
	return map[string]interface{}{
		"designation":           n.Designation,
		"name":                  n.Name,
		"diameter_km":           diameter,
		"potentially_hazardous": n.Hazardous,
	}
}

// CloseApproach represents one recorded approach of an NEO to Earth.
// Values are immutable after construction; the NEO back-reference is
// resolved once by the database and is non-owning.
type CloseApproach struct {
	// Designation identifies the approaching object. Used by the
	// database to resolve the NEO back-reference.
	Designation string

	// Time is the calendar date and time of closest approach, in UTC.
	Time time.Time

	// Distance is the nominal approach distance in astronomical units.
	Distance float64

	// Velocity is the relative approach velocity in kilometers per second.
	Velocity float64

	// NEO is the back-reference to the approaching object. Set by the
	// database at link time; nil only before linking.
	NEO *NearEarthObject
}

// TimeStr returns the approach time formatted with TimeLayout.
func (ca *CloseApproach) TimeStr() string {
	return ca.Time.Format(TimeLayout)
}

// String returns a human-readable description of this approach.
func (ca *CloseApproach) String() string {
	name := ca.Designation
	if ca.NEO != nil {
		name = ca.NEO.FullName()
	}
	return fmt.Sprintf("On %s, %q approaches Earth at a distance of %.2f au and a velocity of %.2f km/s",
		ca.TimeStr(), name, ca.Distance, ca.Velocity)
}

// Serialize returns the stable map projection of this approach, with
// the owning object's projection nested under the "neo" key.
func (ca *CloseApproach) Serialize() map[string]interface{} {
	var nested interface{}
	if ca.NEO != nil {
		nested = ca.NEO.Serialize()
	}
	return map[string]interface{}{
		"datetime_utc":  ca.TimeStr(),
		"distance_au":   ca.Distance,
		"velocity_km_s": ca.Velocity,
		"neo":           nested,
	}
}

// QueryResult represents the outcome of one query execution.
type QueryResult struct {
	// QueryName identifies the executed query ("ad-hoc" for flag-built queries).
	QueryName string `json:"queryName"`

	// Status is the execution status ("success" or "error").
	Status string `json:"status"`

	// StartedAt is when execution started.
	StartedAt time.Time `json:"startedAt"`

	// CompletedAt is when execution completed.
	CompletedAt time.Time `json:"completedAt"`

	// RecordsMatched is the number of approaches that passed the filter set
	// (after the limiter).
	RecordsMatched int `json:"recordsMatched"`

	// RecordsWritten is the number of rows the writer emitted.
	RecordsWritten int `json:"recordsWritten"`

	// OutputPath is the destination the writer targeted. Empty for stdout.
	OutputPath string `json:"outputPath,omitempty"`

	// DryRun indicates the query was evaluated without writing output.
	DryRun bool `json:"dryRun,omitempty"`

	// FilterPreview describes the constructed filter set (set in dry-run mode).
	FilterPreview []string `json:"filterPreview,omitempty"`

	// Error contains error details if execution failed.
	Error *QueryError `json:"error,omitempty"`
}

// QueryError contains details about a query execution failure.
type QueryError struct {
	// Code is the error code.
	Code string `json:"code"`

	// Message is the human-readable error message.
	Message string `json:"message"`

	// Stage is the pipeline stage where the error occurred
	// ("configuration", "load", "query", "output").
	Stage string `json:"stage,omitempty"`

	// Details contains additional error context.
	Details map[string]interface{} `json:"details,omitempty"`
}
