// Package output provides implementations for output writers.
// Writers are responsible for serializing matched close approaches to
// their destination: a CSV file, a JSON file, or template-driven lines.
//
// Writers are terminal consumers of the approach stream. File-backed
// writers are all-or-nothing: output is staged to a temporary file that
// only replaces the target path after every approach has been written.
package output

import (
	"errors"
	"fmt"
	"iter"

	"github.com/seulgie/asteroid-data-processor/pkg/neo"
)

// Supported output formats.
const (
	FormatCSV      = "csv"
	FormatJSON     = "json"
	FormatTemplate = "template"
)

// DefaultTemplate renders the classic one-line approach summary. It is
// the fallback template when a query writes to stdout without an
// explicit format or template.
const DefaultTemplate = "On {{datetime_utc}}, {{neo.designation}} approaches Earth at a distance of {{distance_au}} au and a velocity of {{velocity_km_s}} km/s."

// Error types for output writers
var (
	ErrUnknownFormat   = errors.New("unknown output format")
	ErrMissingTemplate = errors.New("template is required for template output")
)

// Writer represents an output writer that serializes close approaches.
type Writer interface {
	// Write consumes the stream and serializes every approach.
	// Returns the number of approaches written and any error. On
	// failure no output file is left behind and the count is 0.
	Write(approaches iter.Seq[*neo.CloseApproach]) (int, error)
}

// WriteError represents an output failure with format and path context.
type WriteError struct {
	Format      string
	Path        string // "" when writing to stdout
	Message     string
	OriginalErr error
}

func (e *WriteError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("write error (%s, %s): %s", e.Format, e.Path, e.Message)
	}
	return fmt.Sprintf("write error (%s): %s", e.Format, e.Message)
}

func (e *WriteError) Unwrap() error {
	return e.OriginalErr
}

// newWriteError builds a WriteError wrapping the underlying cause.
func newWriteError(format, path, message string, err error) *WriteError {
	return &WriteError{
		Format:      format,
		Path:        path,
		Message:     message,
		OriginalErr: err,
	}
}
