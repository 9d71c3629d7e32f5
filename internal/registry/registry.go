// Package registry provides registries for filter kinds and output
// writer formats.
//
// # Overview
//
// The registry package enables extensible filter and writer
// registration for the asteroids runtime. Instead of hard-coded switch
// statements, constructors register themselves by kind string. This
// allows contributors to add new filter kinds and output formats
// without modifying the factory or the query engine.
//
// # Adding a New Filter Kind
//
// To add a new filter kind (e.g. a "designation" prefix filter):
//
//  1. Implement query.Filter
//  2. Create a constructor function matching FilterConstructor
//  3. Register the constructor in an init() function
//
// Example:
//
//	package designation
//
//	import (
//	    "github.com/seulgie/asteroid-data-processor/internal/query"
//	    "github.com/seulgie/asteroid-data-processor/internal/registry"
//	)
//
//	func init() {
//	    registry.RegisterFilter("designation", NewDesignationFilter)
//	}
//
//	func NewDesignationFilter(op query.Operator, value interface{}) (query.Filter, error) {
//	    // Validate the value and return your implementation
//	    return &DesignationFilter{...}, nil
//	}
//
// # Built-in Kinds
//
// Built-in filter kinds (distance, velocity, date, diameter, hazardous,
// where, script) and writer formats (csv, json, template) are
// registered automatically at startup via init() functions.
package registry

import (
	"sync"

	"github.com/seulgie/asteroid-data-processor/internal/output"
	"github.com/seulgie/asteroid-data-processor/internal/query"
)

// FilterConstructor is a function that creates a filter from a
// comparison operator and a reference value. Constructors validate the
// value's type and return a *query.ConfigurationError when it does not
// fit the kind. Predicate kinds (where, script) ignore the operator.
type FilterConstructor func(op query.Operator, value interface{}) (query.Filter, error)

// WriterConstructor is a function that creates an output writer for a
// destination path. The template argument carries the per-record
// template source and is ignored by formats that do not render one.
type WriterConstructor func(path string, template string) (output.Writer, error)

// filterRegistry holds registered filter constructors.
var (
	filterMu       sync.RWMutex
	filterRegistry = make(map[string]FilterConstructor)
)

// writerRegistry holds registered writer constructors.
var (
	writerMu       sync.RWMutex
	writerRegistry = make(map[string]WriterConstructor)
)

// RegisterFilter registers a filter constructor by kind string.
// Calling RegisterFilter with an already registered kind will overwrite
// the previous constructor.
//
// This function is safe for concurrent use and is typically called from
// init() functions.
func RegisterFilter(kind string, constructor FilterConstructor) {
	filterMu.Lock()
	defer filterMu.Unlock()
	filterRegistry[kind] = constructor
}

// RegisterWriter registers a writer constructor by format string.
// Calling RegisterWriter with an already registered format will
// overwrite the previous constructor.
//
// This function is safe for concurrent use and is typically called from
// init() functions.
func RegisterWriter(format string, constructor WriterConstructor) {
	writerMu.Lock()
	defer writerMu.Unlock()
	writerRegistry[format] = constructor
}

// GetFilterConstructor returns the registered constructor for a filter kind.
// Returns nil if no constructor is registered for the given kind.
func GetFilterConstructor(kind string) FilterConstructor {
	filterMu.RLock()
	defer filterMu.RUnlock()
	return filterRegistry[kind]
}

// GetWriterConstructor returns the registered constructor for a writer format.
// Returns nil if no constructor is registered for the given format.
func GetWriterConstructor(format string) WriterConstructor {
	writerMu.RLock()
	defer writerMu.RUnlock()
	return writerRegistry[format]
}

// ListFilterKinds returns all registered filter kind names.
// Useful for documentation and error messages.
func ListFilterKinds() []string {
	filterMu.RLock()
	defer filterMu.RUnlock()
	kinds := make([]string, 0, len(filterRegistry))
	for k := range filterRegistry {
		kinds = append(kinds, k)
	}
	return kinds
}

// ListWriterFormats returns all registered writer format names.
// Useful for documentation and error messages.
func ListWriterFormats() []string {
	writerMu.RLock()
	defer writerMu.RUnlock()
	formats := make([]string, 0, len(writerRegistry))
	for f := range writerRegistry {
		formats = append(formats, f)
	}
	return formats
}

// ClearRegistries removes all registered constructors.
// This is intended for testing purposes only.
func ClearRegistries() {
	filterMu.Lock()
	filterRegistry = make(map[string]FilterConstructor)
	filterMu.Unlock()

	writerMu.Lock()
	writerRegistry = make(map[string]WriterConstructor)
	writerMu.Unlock()
}
