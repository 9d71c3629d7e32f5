// Package factory provides filter and writer creation for the query
// runtime. It centralizes the logic for instantiating filters from
// query criteria and writers from output destinations using the
// registry.
//
// # Filter Creation
//
// Built-in criteria (date and attribute bounds, hazardous flag,
// expression and script predicates) build through BuildFilters.
// CreateFilter builds a single filter by kind via the registry, which
// is the extension point for kinds the criteria struct does not know
// about.
//
// # Adding New Kinds
//
// To add a new filter kind or output format, see the documentation in
// internal/registry. You do NOT need to modify this factory; just
// register your constructor.
package factory

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/seulgie/asteroid-data-processor/internal/output"
	"github.com/seulgie/asteroid-data-processor/internal/query"
	"github.com/seulgie/asteroid-data-processor/internal/registry"
)

// ErrCodeUnknownKind is the error code for an unregistered filter kind.
const ErrCodeUnknownKind = "UNKNOWN_FILTER_KIND"

// ErrCodeUnknownFormat is the error code for an unregistered or
// uninferable output format.
const ErrCodeUnknownFormat = "UNKNOWN_OUTPUT_FORMAT"

// BuildFilters constructs the filter set for the given criteria.
// Construction is eager; the first invalid criterion aborts with a
// *query.ConfigurationError before any query runs.
func BuildFilters(criteria query.Criteria) ([]query.Filter, error) {
	return query.BuildFilters(criteria)
}

// CreateFilter creates a single filter by kind via the registry.
// Returns a *query.ConfigurationError listing the registered kinds when
// the kind is unknown.
func CreateFilter(kind string, op query.Operator, value interface{}) (query.Filter, error) {
	constructor := registry.GetFilterConstructor(kind)
	if constructor == nil {
		return nil, &query.ConfigurationError{
			Code:    ErrCodeUnknownKind,
			Message: fmt.Sprintf("unknown filter kind %q (registered kinds: %s)", kind, registeredKinds()),
			Details: map[string]interface{}{"kind": kind},
		}
	}
	return constructor(op, value)
}

// CreateWriter creates an output writer for the given format via the
// registry. The template argument carries the per-record template
// source for the template format. Returns a *query.ConfigurationError
// listing the registered formats when the format is unknown.
func CreateWriter(format, path, template string) (output.Writer, error) {
	constructor := registry.GetWriterConstructor(format)
	if constructor == nil {
		return nil, &query.ConfigurationError{
			Code:    ErrCodeUnknownFormat,
			Message: fmt.Sprintf("unknown output format %q (registered formats: %s)", format, registeredFormats()),
			Err:     output.ErrUnknownFormat,
			Details: map[string]interface{}{"format": format},
		}
	}
	return constructor(path, template)
}

// ResolveOutput resolves the effective output format and template for a
// destination. An explicit format always wins. Otherwise the extension
// of the destination path decides (.csv or .json); a pathless query
// falls back to the template format, rendering the one-line approach
// summary when no template is given.
func ResolveOutput(format, path, template string) (string, string, error) {
	if format != "" {
		return format, template, nil
	}

	if path == "" {
		if template == "" {
			template = output.DefaultTemplate
		}
		return output.FormatTemplate, template, nil
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return output.FormatCSV, template, nil
	case ".json":
		return output.FormatJSON, template, nil
	}

	return "", "", &query.ConfigurationError{
		Code:    ErrCodeUnknownFormat,
		Message: fmt.Sprintf("cannot infer output format from path %q (registered formats: %s)", path, registeredFormats()),
		Err:     output.ErrUnknownFormat,
		Details: map[string]interface{}{"path": path},
	}
}

// registeredKinds returns the registered filter kinds as a sorted,
// comma-separated list for error messages.
func registeredKinds() string {
	kinds := registry.ListFilterKinds()
	sort.Strings(kinds)
	return strings.Join(kinds, ", ")
}

// registeredFormats returns the registered writer formats as a sorted,
// comma-separated list for error messages.
func registeredFormats() string {
	formats := registry.ListWriterFormats()
	sort.Strings(formats)
	return strings.Join(formats, ", ")
}
