package output

import (
	"fmt"
	"iter"
	"strings"

	"github.com/seulgie/asteroid-data-processor/internal/logger"
	"github.com/seulgie/asteroid-data-processor/internal/template"
	"github.com/seulgie/asteroid-data-processor/pkg/neo"
)

// TemplateWriter serializes close approaches as template-driven lines,
// one line per approach. Template variables resolve against the
// serialized form of each approach, e.g.
//
//	"{{neo.designation}} passes at {{distance_au}} au on {{datetime_utc}}"
type TemplateWriter struct {
	path      string // "" means stdout
	template  string
	evaluator *template.Evaluator
}

// NewTemplateWriter creates a template writer targeting the given path.
// The template is validated eagerly so malformed templates fail before
// any data is read.
func NewTemplateWriter(path, tmpl string) (*TemplateWriter, error) {
	if strings.TrimSpace(tmpl) == "" {
		return nil, ErrMissingTemplate
	}
	if err := template.ValidateSyntax(tmpl); err != nil {
		return nil, fmt.Errorf("validating template: %w", err)
	}

	return &TemplateWriter{
		path:      path,
		template:  tmpl,
		evaluator: template.NewEvaluator(),
	}, nil
}

// Write serializes the stream as template lines.
func (w *TemplateWriter) Write(approaches iter.Seq[*neo.CloseApproach]) (int, error) {
	out, err := openSink(w.path)
	if err != nil {
		return 0, newWriteError(FormatTemplate, w.path, "opening destination", err)
	}

	count := 0
	for ca := range approaches {
		line := w.evaluator.Evaluate(w.template, ca.Serialize())
		if _, err := out.Write([]byte(line + "\n")); err != nil {
			out.Abort()
			return 0, newWriteError(FormatTemplate, w.path, "writing line", err)
		}
		count++
	}

	if err := out.Commit(); err != nil {
		return 0, newWriteError(FormatTemplate, w.path, "committing output", err)
	}

	logger.Debug("template output written", "path", w.path, "records", count)

	return count, nil
}
