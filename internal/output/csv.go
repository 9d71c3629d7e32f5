package output

import (
	"encoding/csv"
	"iter"
	"strconv"

	"github.com/seulgie/asteroid-data-processor/internal/logger"
	"github.com/seulgie/asteroid-data-processor/pkg/neo"
)

// csvHeader is the fixed column order of CSV output.
var csvHeader = []string{
	"datetime_utc",
	"distance_au",
	"velocity_km_s",
	"designation",
	"name",
	"diameter_km",
	"potentially_hazardous",
}

// CSVWriter serializes close approaches as CSV rows, one approach per
// row. The header row is always written, so an empty result produces a
// header-only file. Missing names and unknown diameters become empty
// fields.
type CSVWriter struct {
	path string // "" means stdout
}

// NewCSVWriter creates a CSV writer targeting the given path. An empty
// path writes to stdout.
func NewCSVWriter(path string) *CSVWriter {
	return &CSVWriter{path: path}
}

// Write serializes the stream as CSV.
func (w *CSVWriter) Write(approaches iter.Seq[*neo.CloseApproach]) (int, error) {
	out, err := openSink(w.path)
	if err != nil {
		return 0, newWriteError(FormatCSV, w.path, "opening destination", err)
	}

	cw := csv.NewWriter(out)

	if err := cw.Write(csvHeader); err != nil {
		out.Abort()
		return 0, newWriteError(FormatCSV, w.path, "writing header", err)
	}

	count := 0
	for ca := range approaches {
		if err := cw.Write(csvRow(ca)); err != nil {
			out.Abort()
			return 0, newWriteError(FormatCSV, w.path, "writing row", err)
		}
		count++
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		out.Abort()
		return 0, newWriteError(FormatCSV, w.path, "flushing rows", err)
	}

	if err := out.Commit(); err != nil {
		return 0, newWriteError(FormatCSV, w.path, "committing output", err)
	}

	logger.Debug("csv output written", "path", w.path, "records", count)

	return count, nil
}

// csvRow converts one approach into its CSV row.
func csvRow(ca *neo.CloseApproach) []string {
	row := []string{
		ca.TimeStr(),
		strconv.FormatFloat(ca.Distance, 'f', -1, 64),
		strconv.FormatFloat(ca.Velocity, 'f', -1, 64),
		ca.Designation,
		"",
		"",
		"false",
	}

	if ca.NEO != nil {
		row[4] = ca.NEO.Name
		if ca.NEO.DiameterKnown() {
			row[5] = strconv.FormatFloat(*ca.NEO.Diameter, 'f', -1, 64)
		}
		row[6] = strconv.FormatBool(ca.NEO.Hazardous)
	}

	return row
}
