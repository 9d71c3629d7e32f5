package output

import (
	"encoding/json"
	"iter"

	"github.com/seulgie/asteroid-data-processor/internal/logger"
	"github.com/seulgie/asteroid-data-processor/pkg/neo"
)

// JSONWriter serializes close approaches as a JSON array of objects in
// their serialized form. An empty result produces an empty array, and
// an unknown diameter is emitted as null.
type JSONWriter struct {
	path string // "" means stdout
}

// NewJSONWriter creates a JSON writer targeting the given path. An
// empty path writes to stdout.
func NewJSONWriter(path string) *JSONWriter {
	return &JSONWriter{path: path}
}

// Write serializes the stream as a JSON array.
func (w *JSONWriter) Write(approaches iter.Seq[*neo.CloseApproach]) (int, error) {
	records := make([]map[string]interface{}, 0)
	for ca := range approaches {
		records = append(records, ca.Serialize())
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return 0, newWriteError(FormatJSON, w.path, "encoding records", err)
	}
	data = append(data, '\n')

	out, err := openSink(w.path)
	if err != nil {
		return 0, newWriteError(FormatJSON, w.path, "opening destination", err)
	}

	if _, err := out.Write(data); err != nil {
		out.Abort()
		return 0, newWriteError(FormatJSON, w.path, "writing records", err)
	}

	if err := out.Commit(); err != nil {
		return 0, newWriteError(FormatJSON, w.path, "committing output", err)
	}

	logger.Debug("json output written", "path", w.path, "records", len(records))

	return len(records), nil
}
