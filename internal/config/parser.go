// Package config loads saved query files. A query file is a JSON or
// YAML document naming a query, its filter criteria, an optional
// result limit, and an output destination. Loading runs in three
// stages: decode the file into a generic document, check the document
// against the embedded schema, then convert it into query criteria.
package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Query file formats.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// ParseError kinds.
const (
	ErrorTypeIO     = "io"
	ErrorTypeSyntax = "syntax"
	ErrorTypeFormat = "format"
)

// ParseError describes a failure to decode a query file, with
// location information when the decoder provides it.
type ParseError struct {
	// Path is the file path where the error occurred
	Path string
	// Line is the line number (1-based, 0 if unknown)
	Line int
	// Column is the column number (1-based, 0 if unknown)
	Column int
	// Offset is the byte offset in the file (0 if unknown)
	Offset int64
	// Message is the error message
	Message string
	// Type categorizes the error (io, syntax, format)
	Type string
}

// Error implements the error interface.
func (e ParseError) Error() string {
	var sb strings.Builder
	if e.Path != "" {
		sb.WriteString(e.Path)
		sb.WriteString(": ")
	}
	if e.Line > 0 {
		sb.WriteString(fmt.Sprintf("line %d", e.Line))
		if e.Column > 0 {
			sb.WriteString(fmt.Sprintf(", column %d", e.Column))
		}
		sb.WriteString(": ")
	}
	sb.WriteString(e.Message)
	return sb.String()
}

// Result is the outcome of loading a query file.
type Result struct {
	// Data contains the decoded query document
	Data map[string]interface{}
	// ParseErrors contains decode failures
	ParseErrors []ParseError
	// ValidationErrors contains schema violations
	ValidationErrors []ValidationError
	// FilePath is the path to the query file
	FilePath string
	// Format is the detected format (json, yaml)
	Format string
}

// IsValid reports whether the file decoded and passed schema checks.
func (r *Result) IsValid() bool {
	return len(r.ParseErrors) == 0 && len(r.ValidationErrors) == 0
}

// ParseQueryFile loads, decodes, and validates a query file. The
// format comes from the file extension; files with neither a .json
// nor a .yaml/.yml extension are sniffed from their content.
func ParseQueryFile(filepath string) *Result {
	result := &Result{
		FilePath: filepath,
	}

	content, err := os.ReadFile(filepath)
	if err != nil {
		result.ParseErrors = append(result.ParseErrors, ParseError{
			Path:    filepath,
			Message: fmt.Sprintf("failed to read file: %v", err),
			Type:    ErrorTypeIO,
		})
		return result
	}

	format := formatFromExtension(filepath)
	if format == "" {
		format = sniffFormat(content)
	}
	if format == "" {
		result.ParseErrors = append(result.ParseErrors, ParseError{
			Path:    filepath,
			Message: "unable to detect query file format: not valid JSON or YAML",
			Type:    ErrorTypeFormat,
		})
		return result
	}
	result.Format = format

	var errs []ParseError
	switch format {
	case FormatJSON:
		result.Data, errs = decodeJSON(content)
	case FormatYAML:
		result.Data, errs = decodeYAML(content)
	}
	for i := range errs {
		if errs[i].Path == "" {
			errs[i].Path = filepath
		}
	}
	result.ParseErrors = errs
	if len(errs) > 0 {
		return result
	}

	result.ValidationErrors = ValidateQuery(result.Data)
	return result
}

// formatFromExtension maps a file extension to a format. Returns
// empty when the extension gives no hint.
func formatFromExtension(filepath string) string {
	switch strings.ToLower(path.Ext(filepath)) {
	case ".json":
		return FormatJSON
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return ""
	}
}

// sniffFormat guesses the document format from its content. JSON is
// also valid YAML, so JSON is recognized first.
func sniffFormat(content []byte) string {
	trimmed := bytes.TrimSpace(content)
	if len(trimmed) == 0 {
		return ""
	}
	if trimmed[0] == '{' || trimmed[0] == '[' {
		return FormatJSON
	}
	var doc interface{}
	if err := yaml.Unmarshal(content, &doc); err == nil && doc != nil {
		return FormatYAML
	}
	return ""
}

// decodeJSON decodes a JSON query document. A document must be a
// single top-level object.
func decodeJSON(content []byte) (map[string]interface{}, []ParseError) {
	if len(bytes.TrimSpace(content)) == 0 {
		return nil, []ParseError{{
			Message: "empty content: expected JSON object",
			Type:    ErrorTypeSyntax,
		}}
	}

	var doc interface{}
	if err := json.Unmarshal(content, &doc); err != nil {
		return nil, []ParseError{jsonParseError(err, content)}
	}
	if doc == nil {
		// "null" decodes cleanly but carries no document; the schema
		// check reports it.
		return nil, nil
	}

	dataMap, ok := doc.(map[string]interface{})
	if !ok {
		return nil, []ParseError{{
			Message: fmt.Sprintf("invalid query file: expected JSON object, got %T", doc),
			Type:    ErrorTypeFormat,
		}}
	}
	return dataMap, nil
}

// jsonParseError extracts location details from a JSON decode error.
func jsonParseError(err error, content []byte) ParseError {
	parseErr := ParseError{
		Message: err.Error(),
		Type:    ErrorTypeSyntax,
	}

	if syntaxErr, ok := err.(*json.SyntaxError); ok {
		parseErr.Offset = syntaxErr.Offset
		parseErr.Line, parseErr.Column = offsetToLineColumn(content, syntaxErr.Offset)
		parseErr.Message = fmt.Sprintf("JSON syntax error at offset %d: %s", syntaxErr.Offset, syntaxErr.Error())
	}

	if typeErr, ok := err.(*json.UnmarshalTypeError); ok {
		parseErr.Offset = typeErr.Offset
		parseErr.Line, parseErr.Column = offsetToLineColumn(content, typeErr.Offset)
		parseErr.Message = fmt.Sprintf("type error at field '%s': expected %s, got %s",
			typeErr.Field, typeErr.Type.String(), typeErr.Value)
	}

	return parseErr
}

// offsetToLineColumn converts a byte offset to line and column numbers (1-based).
func offsetToLineColumn(content []byte, offset int64) (line, column int) {
	if offset <= 0 {
		return 1, 1
	}

	line = 1
	column = 1
	for i := int64(0); i < offset && i < int64(len(content)); i++ {
		if content[i] == '\n' {
			line++
			column = 1
		} else {
			column++
		}
	}
	return line, column
}

// decodeYAML decodes a YAML query document. A document must be a
// single top-level mapping.
func decodeYAML(content []byte) (map[string]interface{}, []ParseError) {
	if len(bytes.TrimSpace(content)) == 0 {
		return nil, []ParseError{{
			Message: "empty content: expected YAML document",
			Type:    ErrorTypeSyntax,
		}}
	}

	var doc interface{}
	if err := yaml.Unmarshal(content, &doc); err != nil {
		return nil, []ParseError{yamlParseError(err)}
	}
	if doc == nil {
		// Null documents and comment-only files decode cleanly but
		// carry no document; the schema check reports it.
		return nil, nil
	}

	doc = normalizeYAMLValue(doc)

	dataMap, ok := doc.(map[string]interface{})
	if !ok {
		return nil, []ParseError{{
			Message: fmt.Sprintf("invalid query file: expected YAML mapping, got %T", doc),
			Type:    ErrorTypeFormat,
		}}
	}
	return dataMap, nil
}

// normalizeYAMLValue recursively converts YAML-specific scalar types to
// their JSON equivalents. yaml.v3 resolves unquoted scalars like
// 2026-01-01 into time.Time values; schema validation and query
// extraction both expect plain strings.
func normalizeYAMLValue(value interface{}) interface{} {
	switch v := value.(type) {
	case map[string]interface{}:
		for key, item := range v {
			v[key] = normalizeYAMLValue(item)
		}
		return v
	case []interface{}:
		for i, item := range v {
			v[i] = normalizeYAMLValue(item)
		}
		return v
	case time.Time:
		// Date-only scalars render back to YYYY-MM-DD; anything with a
		// clock component keeps full RFC 3339 form.
		if v.Hour() == 0 && v.Minute() == 0 && v.Second() == 0 && v.Nanosecond() == 0 {
			return v.Format("2006-01-02")
		}
		return v.Format(time.RFC3339)
	default:
		return value
	}
}

// yamlParseError extracts location details from a YAML decode error.
func yamlParseError(err error) ParseError {
	parseErr := ParseError{
		Message: err.Error(),
		Type:    ErrorTypeSyntax,
	}

	if typeErr, ok := err.(*yaml.TypeError); ok {
		parseErr.Message = fmt.Sprintf("YAML type error: %s", strings.Join(typeErr.Errors, "; "))
	}

	// yaml.v3 folds line info into the message as "yaml: line X: ...".
	if strings.Contains(err.Error(), "yaml: line ") {
		var line int
		if _, scanErr := fmt.Sscanf(err.Error(), "yaml: line %d:", &line); scanErr == nil {
			parseErr.Line = line
		}
	}

	return parseErr
}
