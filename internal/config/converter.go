// Package config provides functionality for parsing and validating
// saved query files (JSON/YAML).
package config

import (
	"fmt"
	"time"

	"github.com/seulgie/asteroid-data-processor/internal/query"
)

// QueryFile is a saved query definition decoded from a parsed query
// document.
type QueryFile struct {
	// Name identifies the query in logs and result metadata.
	Name string
	// Description is free-form text carried through unmodified.
	Description string
	// Criteria holds the decoded filter criteria.
	Criteria query.Criteria
	// Limit is the maximum number of results. -1 means unbounded;
	// an explicit 0 produces an empty result set.
	Limit int
	// Output names the destination and serialization format.
	Output OutputSpec
}

// OutputSpec is the output section of a query file.
type OutputSpec struct {
	// Format is the serialization format (csv, json, template).
	// Empty when the query file has no output section.
	Format string
	// Path is the destination file path. Empty writes to stdout.
	Path string
	// Template is the per-record template source for the template format.
	Template string
}

// dateLayout is the calendar date form accepted in query filters.
const dateLayout = "2006-01-02"

// ConvertToQuery converts a parsed query document to a QueryFile.
// The input data should have been validated against the schema before
// calling this function.
//
// The document is expected to have this structure:
//
//	{
//	  "query": {
//	    "name": "...",
//	    "filters": {...},
//	    "limit": 10
//	  },
//	  "output": {...}
//	}
func ConvertToQuery(data map[string]interface{}) (*QueryFile, error) {
	if data == nil {
		return nil, fmt.Errorf("query data is nil")
	}

	// Extract query section
	queryData, ok := data["query"].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("missing or invalid 'query' section")
	}

	qf := &QueryFile{
		Limit: -1,
	}

	// Extract required fields
	var name string
	if name, ok = queryData["name"].(string); !ok {
		return nil, fmt.Errorf("missing required field 'query.name'")
	}
	qf.Name = name

	// Extract optional fields
	if description, okDesc := queryData["description"].(string); okDesc {
		qf.Description = description
	}

	if limit, okLimit := extractInt(queryData, "limit"); okLimit {
		if limit < 0 {
			return nil, fmt.Errorf("invalid 'query.limit': must not be negative, got %d", limit)
		}
		qf.Limit = limit
	}

	// Extract filter criteria (optional)
	if filtersData, okFilters := queryData["filters"].(map[string]interface{}); okFilters {
		criteria, err := convertCriteria(filtersData)
		if err != nil {
			return nil, fmt.Errorf("invalid filters: %w", err)
		}
		qf.Criteria = criteria
	}

	// Extract output section (optional)
	if outputData, okOutput := data["output"].(map[string]interface{}); okOutput {
		spec, err := convertOutputSpec(outputData)
		if err != nil {
			return nil, fmt.Errorf("invalid output: %w", err)
		}
		qf.Output = spec
	}

	return qf, nil
}

// convertCriteria converts the filters section of a query document to
// query criteria. Keys match the schema: camelCase bounds plus the
// where and script predicates.
func convertCriteria(data map[string]interface{}) (query.Criteria, error) {
	var criteria query.Criteria

	for _, field := range []struct {
		key  string
		dest **time.Time
	}{
		{"date", &criteria.Date},
		{"startDate", &criteria.StartDate},
		{"endDate", &criteria.EndDate},
	} {
		value, ok, err := extractDate(data, field.key)
		if err != nil {
			return query.Criteria{}, err
		}
		if ok {
			*field.dest = value
		}
	}

	for _, field := range []struct {
		key  string
		dest **float64
	}{
		{"minDistance", &criteria.MinDistance},
		{"maxDistance", &criteria.MaxDistance},
		{"minVelocity", &criteria.MinVelocity},
		{"maxVelocity", &criteria.MaxVelocity},
		{"minDiameter", &criteria.MinDiameter},
		{"maxDiameter", &criteria.MaxDiameter},
	} {
		value, ok, err := extractNumber(data, field.key)
		if err != nil {
			return query.Criteria{}, err
		}
		if ok {
			*field.dest = value
		}
	}

	if raw, exists := data["hazardous"]; exists {
		hazardous, ok := raw.(bool)
		if !ok {
			return query.Criteria{}, fmt.Errorf("invalid 'hazardous': expected boolean, got %T", raw)
		}
		criteria.Hazardous = &hazardous
	}

	if where, ok := data["where"].(string); ok {
		criteria.Where = where
	}

	if script, ok := data["script"].(string); ok {
		criteria.Script = script
	}

	return criteria, nil
}

// convertOutputSpec converts the output section of a query document.
func convertOutputSpec(data map[string]interface{}) (OutputSpec, error) {
	spec := OutputSpec{}

	format, ok := data["format"].(string)
	if !ok {
		return spec, fmt.Errorf("missing required field 'format'")
	}
	spec.Format = format

	if path, okPath := data["path"].(string); okPath {
		spec.Path = path
	}

	if template, okTemplate := data["template"].(string); okTemplate {
		spec.Template = template
	}

	return spec, nil
}

// extractDate reads an optional calendar date field. The second return
// reports whether the field was present.
func extractDate(data map[string]interface{}, key string) (*time.Time, bool, error) {
	raw, exists := data[key]
	if !exists {
		return nil, false, nil
	}

	str, ok := raw.(string)
	if !ok {
		return nil, false, fmt.Errorf("invalid '%s': expected date string, got %T", key, raw)
	}

	parsed, err := time.Parse(dateLayout, str)
	if err != nil {
		return nil, false, fmt.Errorf("invalid '%s': %q is not a valid calendar date", key, str)
	}
	parsed = parsed.UTC()

	return &parsed, true, nil
}

// extractNumber reads an optional numeric field. JSON parsing yields
// float64 while YAML yields int for whole numbers; both are accepted.
func extractNumber(data map[string]interface{}, key string) (*float64, bool, error) {
	raw, exists := data[key]
	if !exists {
		return nil, false, nil
	}

	switch v := raw.(type) {
	case float64:
		return &v, true, nil
	case int:
		f := float64(v)
		return &f, true, nil
	default:
		return nil, false, fmt.Errorf("invalid '%s': expected number, got %T", key, raw)
	}
}

// extractInt reads an optional integer field, tolerating the float64
// that JSON parsing produces for whole numbers.
func extractInt(data map[string]interface{}, key string) (int, bool) {
	raw, exists := data[key]
	if !exists {
		return 0, false
	}

	switch v := raw.(type) {
	case int:
		return v, true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}
