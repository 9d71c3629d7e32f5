// Package template provides template evaluation for line-oriented output
// of close approaches. It supports variable substitution using
// {{field}} syntax with optional default values, resolved against the
// serialized form of a close approach.
package template

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/seulgie/asteroid-data-processor/internal/logger"
)

// Template syntax constants
const (
	// TemplatePrefix is the opening delimiter for template variables
	TemplatePrefix = "{{"
	// TemplateSuffix is the closing delimiter for template variables
	TemplateSuffix = "}}"
	// DefaultValueSeparator separates variable path from default value
	DefaultValueSeparator = "|"
	// DefaultKeyword indicates a default value follows
	DefaultKeyword = "default:"
)

// Error messages for template evaluation
const (
	ErrMsgInvalidTemplateSyntax = "invalid template syntax"
	ErrMsgMissingClosingBrace   = "missing closing }}"
	ErrMsgEmptyVariablePath     = "empty variable path"
)

// templateVarRegex matches template variables like {{neo.name}} or {{neo.diameter_km | default: "unknown"}}
// Group 1: variable path (e.g., "neo.diameter_km")
// Group 2: optional default value clause including quotes (e.g., " | default: \"unknown\"")
// Group 3: the default value itself (may be empty string)
var templateVarRegex = regexp.MustCompile(`\{\{\s*([^|}]+?)(\s*\|\s*default:\s*"([^"]*)")?\s*\}\}`)

// Variable represents a parsed template variable
type Variable struct {
	FullMatch    string // The full matched string including {{ }}
	Path         string // The variable path (e.g., "neo.name")
	DefaultValue string // Default value if specified (empty string if not)
	HasDefault   bool   // Whether a default value was specified
}

// Evaluator evaluates template strings using approach data.
// It supports:
//   - Variable substitution: {{datetime_utc}}
//   - Nested field access: {{neo.designation}}
//   - Array indexing: {{items[0]}}
//   - Default values: {{neo.diameter_km | default: "unknown"}}
//
// Performance: The evaluator caches parsed template variables to avoid
// re-parsing the same template strings. The cache is unbounded and grows
// with the number of unique template strings evaluated. A writer holds
// one template, so the cache stays small in practice.
// The cache is not thread-safe and should not be shared across goroutines.
type Evaluator struct {
	// Cache for parsed template variables per template string.
	// Not thread-safe - each goroutine should use its own Evaluator instance.
	cache map[string][]Variable
}

// NewEvaluator creates a new template evaluator.
func NewEvaluator() *Evaluator {
	return &Evaluator{
		cache: make(map[string][]Variable),
	}
}

// HasVariables checks if a string contains template variables.
func HasVariables(s string) bool {
	return strings.Contains(s, TemplatePrefix) && strings.Contains(s, TemplateSuffix)
}

// ParseVariables extracts all template variables from a template string.
// Returns a slice of Variable structs.
func (e *Evaluator) ParseVariables(template string) []Variable {
	// Check cache first
	if cached, ok := e.cache[template]; ok {
		return cached
	}

	matches := templateVarRegex.FindAllStringSubmatch(template, -1)
	variables := make([]Variable, 0, len(matches))

	for _, match := range matches {
		if len(match) >= 2 {
			v := Variable{
				FullMatch: match[0],
				Path:      strings.TrimSpace(match[1]),
			}

			// Group 2 is the full default clause, group 3 is the value
			// inside the quotes (which may be the empty string)
			if len(match) >= 4 && match[2] != "" {
				v.DefaultValue = match[3]
				v.HasDefault = true
			}

			variables = append(variables, v)
		}
	}

	// Cache the result
	e.cache[template] = variables

	return variables
}

// Evaluate evaluates a template string using the provided approach data.
// Returns the evaluated string with all template variables replaced.
//
// Template syntax:
//   - {{datetime_utc}} - Access a field of the serialized approach
//   - {{neo.name}} - Access nested fields using dot notation
//   - {{approach.distance_au}} - The "approach." prefix is optional
//   - {{neo.diameter_km | default: "unknown"}} - Use default if missing/null
//
// Missing fields return empty string unless a default is specified.
// Null values are converted to empty string.
func (e *Evaluator) Evaluate(template string, approach map[string]interface{}) string {
	if !HasVariables(template) {
		return template
	}

	variables := e.ParseVariables(template)
	if len(variables) == 0 {
		return template
	}

	logger.Debug("evaluating template",
		slog.String("template", truncateForLog(template, 100)),
		slog.Int("variable_count", len(variables)),
	)

	result := template

	for _, v := range variables {
		value := e.resolveVariable(v, approach)
		result = strings.Replace(result, v.FullMatch, value, 1)
	}

	return result
}

// truncateForLog truncates a string for logging purposes.
func truncateForLog(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

// resolveVariable resolves a single template variable using approach data.
func (e *Evaluator) resolveVariable(v Variable, approach map[string]interface{}) string {
	// The "approach." prefix is cosmetic and stripped before lookup
	path := strings.TrimPrefix(v.Path, "approach.")

	// Get the value from the serialized approach
	value, found := GetNestedValue(approach, path)

	// Handle missing or null values
	if !found || value == nil {
		if v.HasDefault {
			logger.Debug("template variable using default",
				slog.String("path", v.Path),
				slog.String("default", v.DefaultValue),
			)
			return v.DefaultValue
		}
		// A missing variable without a default usually means a typo in
		// the template, so it is worth a warning
		logger.Warn("template variable missing, using empty string",
			slog.String("path", v.Path),
			slog.String("field", path),
		)
		return ""
	}

	// Convert value to string
	return ValueToString(value)
}

// GetNestedValue extracts a value from a nested object using dot notation.
// Supports array indexing with [n] syntax.
// Returns the value and a boolean indicating if the field was found.
func GetNestedValue(obj map[string]interface{}, path string) (interface{}, bool) {
	if path == "" {
		return nil, false
	}

	parts := strings.Split(path, ".")
	current := interface{}(obj)

	for _, part := range parts {
		// Handle array indexing (e.g., "items[0]")
		arrayIdx := -1
		key, index, hasIndex := parseArrayNotation(part)
		if hasIndex {
			arrayIdx = index
			part = key
		}

		// Navigate to the field
		switch v := current.(type) {
		case map[string]interface{}:
			if v == nil {
				return nil, false
			}
			val, ok := v[part]
			if !ok {
				return nil, false
			}
			current = val
		default:
			return nil, false
		}

		// Handle array indexing
		if arrayIdx >= 0 {
			switch arr := current.(type) {
			case []interface{}:
				if arrayIdx >= len(arr) {
					return nil, false
				}
				current = arr[arrayIdx]
			default:
				return nil, false
			}
		}
	}

	return current, true
}

// parseArrayNotation parses a path part for array indexing.
// Returns the key, index, and whether an index was found.
// E.g., "items[0]" returns ("items", 0, true)
func parseArrayNotation(part string) (string, int, bool) {
	idx := strings.Index(part, "[")
	if idx == -1 {
		return part, -1, false
	}

	endIdx := strings.Index(part, "]")
	if endIdx == -1 || endIdx < idx+1 || endIdx != len(part)-1 {
		return part, -1, false
	}

	indexStr := part[idx+1 : endIdx]
	var index int
	_, err := fmt.Sscanf(indexStr, "%d", &index)
	if err != nil || index < 0 {
		return part, -1, false
	}

	return part[:idx], index, true
}

// ValueToString converts any value to its string representation.
func ValueToString(value interface{}) string {
	if value == nil {
		return ""
	}

	switch v := value.(type) {
	case string:
		return v
	case float64:
		// Format integers without decimal point
		if v == float64(int64(v)) {
			return fmt.Sprintf("%d", int64(v))
		}
		return fmt.Sprintf("%v", v)
	case int:
		return fmt.Sprintf("%d", v)
	case int64:
		return fmt.Sprintf("%d", v)
	case bool:
		return fmt.Sprintf("%t", v)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// ValidateSyntax validates that a template string has valid syntax.
// Returns an error if the syntax is invalid (e.g., unmatched braces).
func ValidateSyntax(template string) error {
	if template == "" {
		return nil
	}

	// Count opening and closing braces
	openCount := strings.Count(template, TemplatePrefix)
	closeCount := strings.Count(template, TemplateSuffix)

	if openCount != closeCount {
		return fmt.Errorf("%s: unmatched template delimiters (found %d '{{' and %d '}}')",
			ErrMsgInvalidTemplateSyntax, openCount, closeCount)
	}

	// Check each template variable has content and that all {{/}} form valid expressions
	if openCount > 0 {
		// First check for completely empty braces: {{}} or {{ }}
		emptyBracesRegex := regexp.MustCompile(`\{\{\s*\}\}`)
		if emptyBracesRegex.MatchString(template) {
			return fmt.Errorf("%s: %s", ErrMsgInvalidTemplateSyntax, ErrMsgEmptyVariablePath)
		}

		// Validate properly formed variables
		variables := templateVarRegex.FindAllStringSubmatch(template, -1)
		for _, match := range variables {
			if len(match) >= 2 && strings.TrimSpace(match[1]) == "" {
				return fmt.Errorf("%s: %s", ErrMsgInvalidTemplateSyntax, ErrMsgEmptyVariablePath)
			}
		}

		// Ensure every {{ and }} is part of a valid match (e.g. "}}{{" has balanced count but invalid pairing)
		remainder := templateVarRegex.ReplaceAllString(template, "")
		if strings.Contains(remainder, TemplatePrefix) || strings.Contains(remainder, TemplateSuffix) {
			return fmt.Errorf("%s: template delimiters must form valid {{...}} expressions (stray '{{' or '}}' found)",
				ErrMsgInvalidTemplateSyntax)
		}
	}

	return nil
}
