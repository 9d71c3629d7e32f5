package config

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

//go:embed schema/query-schema.json
var embeddedSchema []byte

// The compiled schema is built once and cached for the process.
var (
	schemaOnce     sync.Once
	compiledSchema *jsonschema.Schema
	schemaInitErr  error
)

// ValidationError describes a schema violation in a query document.
type ValidationError struct {
	// Path is the JSON path where the violation occurred (e.g., "/query/filters/maxDistance")
	Path string
	// Type is the violation type (required, type, format, enum, etc.)
	Type string
	// Message is the error message
	Message string
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s", e.Path, e.Message)
	}
	return e.Message
}

// getCompiledSchema returns the compiled query schema, compiling it on
// first use. Safe for concurrent callers.
func getCompiledSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		var schemaDoc interface{}
		if err := json.Unmarshal(embeddedSchema, &schemaDoc); err != nil {
			schemaInitErr = fmt.Errorf("failed to parse embedded schema: %w", err)
			return
		}

		compiler := jsonschema.NewCompiler()
		schemaURL := "https://seulgie.github.io/asteroid-data-processor/schemas/query/v1.0.0/query-schema.json"
		if err := compiler.AddResource(schemaURL, schemaDoc); err != nil {
			schemaInitErr = fmt.Errorf("failed to add schema resource: %w", err)
			return
		}

		var err error
		compiledSchema, err = compiler.Compile(schemaURL)
		if err != nil {
			schemaInitErr = fmt.Errorf("failed to compile schema: %w", err)
		}
	})

	if schemaInitErr != nil {
		return nil, schemaInitErr
	}
	return compiledSchema, nil
}

// ValidateQuery checks a decoded query document against the embedded
// query schema. A nil return means the document is valid.
func ValidateQuery(data map[string]interface{}) []ValidationError {
	if data == nil {
		return []ValidationError{{
			Path:    "/",
			Type:    "required",
			Message: "query data is nil",
		}}
	}
	if len(data) == 0 {
		return []ValidationError{{
			Path:    "/",
			Type:    "required",
			Message: "query data is empty",
		}}
	}

	schema, err := getCompiledSchema()
	if err != nil {
		return []ValidationError{{
			Path:    "/",
			Type:    "schema",
			Message: fmt.Sprintf("failed to load schema: %v", err),
		}}
	}

	validationErr := schema.Validate(data)
	if validationErr == nil {
		return nil
	}

	if detailed, ok := validationErr.(*jsonschema.ValidationError); ok {
		return flattenSchemaErrors(detailed)
	}
	return []ValidationError{{
		Path:    "/",
		Type:    "validation",
		Message: validationErr.Error(),
	}}
}

// flattenSchemaErrors walks a jsonschema error tree and collects one
// ValidationError per leaf cause.
func flattenSchemaErrors(err *jsonschema.ValidationError) []ValidationError {
	var errors []ValidationError

	if err.ErrorKind != nil {
		errors = append(errors, ValidationError{
			Path:    formatInstanceLocation(err.InstanceLocation),
			Type:    classifySchemaError(err),
			Message: err.Error(),
		})
	}

	for _, cause := range err.Causes {
		errors = append(errors, flattenSchemaErrors(cause)...)
	}

	return errors
}

// formatInstanceLocation formats the instance location as a JSON path.
func formatInstanceLocation(loc []string) string {
	if len(loc) == 0 {
		return "/"
	}
	return "/" + strings.Join(loc, "/")
}

// classifySchemaError derives a simplified violation type from the
// validation error message.
func classifySchemaError(err *jsonschema.ValidationError) string {
	msg := strings.ToLower(err.Error())

	switch {
	case strings.Contains(msg, "required"):
		return "required"
	case strings.Contains(msg, "type"):
		return "type"
	case strings.Contains(msg, "pattern"):
		return "pattern"
	case strings.Contains(msg, "enum"):
		return "enum"
	case strings.Contains(msg, "minimum") || strings.Contains(msg, "maximum"):
		return "range"
	case strings.Contains(msg, "format"):
		return "format"
	case strings.Contains(msg, "additionalproperties"):
		return "additionalProperties"
	default:
		return "validation"
	}
}
