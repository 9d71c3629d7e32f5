// Package extract loads the NEO and close approach datasets from disk.
// Extraction is responsible for reading raw dataset files and producing
// domain objects; linking the two collections is the database's job.
package extract

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/seulgie/asteroid-data-processor/internal/logger"
	"github.com/seulgie/asteroid-data-processor/pkg/neo"
)

// Column names in the NEO dataset (CSV).
const (
	colDesignation = "pdes"
	colName        = "name"
	colDiameter    = "diameter"
	colHazardous   = "pha"
)

// Field names in the close approach dataset (JSON).
const (
	fieldDesignation = "des"
	fieldTime        = "cd"
	fieldDistance    = "dist"
	fieldVelocity    = "v_rel"
)

// cadTimeLayout is the calendar date format used by the close approach
// dataset (e.g. "2020-Jan-01 12:30").
const cadTimeLayout = "2006-Jan-02 15:04"

// Error types for dataset extraction
var (
	ErrMissingColumn = errors.New("required column missing from NEO dataset header")
	ErrMissingField  = errors.New("required field missing from close approach dataset")
	ErrEmptyDataset  = errors.New("dataset contains no header row")
)

// cadEnvelope is the wire shape of the close approach dataset: field
// names in "fields", row values in "data".
type cadEnvelope struct {
	Fields []string        `json:"fields"`
	Data   [][]interface{} `json:"data"`
}

// LoadNEOs reads near-Earth objects from a CSV dataset.
//
// The reader locates the relevant columns by header name, so extra
// columns and column order do not matter. Rows without a designation are
// skipped. A blank diameter means the diameter is unknown; a blank or
// non-"Y" hazardous flag means not hazardous.
func LoadNEOs(path string) ([]*neo.NearEarthObject, error) {
	start := time.Now()

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening NEO dataset: %w", err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil {
			logger.Warn("failed to close NEO dataset", "path", path, "error", closeErr.Error())
		}
	}()

	reader := csv.NewReader(f)

	header, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("reading NEO dataset header: %w", ErrEmptyDataset)
	}
	if err != nil {
		return nil, fmt.Errorf("reading NEO dataset header: %w", err)
	}

	index := make(map[string]int, len(header))
	for i, col := range header {
		index[col] = i
	}
	for _, col := range []string{colDesignation, colName, colDiameter, colHazardous} {
		if _, ok := index[col]; !ok {
			return nil, fmt.Errorf("%w: %q", ErrMissingColumn, col)
		}
	}

	var neos []*neo.NearEarthObject
	skipped := 0
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading NEO dataset: %w", err)
		}

		designation := row[index[colDesignation]]
		if designation == "" {
			skipped++
			continue
		}

		n := &neo.NearEarthObject{
			Designation: designation,
			Name:        row[index[colName]],
			Hazardous:   row[index[colHazardous]] == "Y",
		}

		if raw := row[index[colDiameter]]; raw != "" {
			diameter, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				// Unparseable diameters degrade to unknown
				logger.Warn("skipping malformed diameter",
					"designation", designation,
					"value", raw,
				)
			} else {
				n.Diameter = &diameter
			}
		}

		neos = append(neos, n)
	}

	logger.Debug("NEO dataset loaded",
		"path", path,
		"count", len(neos),
		"skipped", skipped,
		"duration", time.Since(start).String(),
	)

	return neos, nil
}

// LoadApproaches reads close approaches from a JSON dataset.
//
// The dataset stores field names under "fields" and row values under
// "data"; the reader locates the relevant fields by name. Rows with
// missing or unparseable values are skipped with a warning.
func LoadApproaches(path string) ([]*neo.CloseApproach, error) {
	start := time.Now()

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening close approach dataset: %w", err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil {
			logger.Warn("failed to close approach dataset", "path", path, "error", closeErr.Error())
		}
	}()

	var envelope cadEnvelope
	decoder := json.NewDecoder(f)
	if err := decoder.Decode(&envelope); err != nil {
		return nil, fmt.Errorf("parsing close approach dataset: %w", err)
	}

	index := make(map[string]int, len(envelope.Fields))
	for i, field := range envelope.Fields {
		index[field] = i
	}
	for _, field := range []string{fieldDesignation, fieldTime, fieldDistance, fieldVelocity} {
		if _, ok := index[field]; !ok {
			return nil, fmt.Errorf("%w: %q", ErrMissingField, field)
		}
	}

	approaches := make([]*neo.CloseApproach, 0, len(envelope.Data))
	skipped := 0
	for i, row := range envelope.Data {
		ca, err := parseApproach(row, index)
		if err != nil {
			skipped++
			logger.Warn("skipping malformed approach row",
				"row", i,
				"error", err.Error(),
			)
			continue
		}
		approaches = append(approaches, ca)
	}

	logger.Debug("close approach dataset loaded",
		"path", path,
		"count", len(approaches),
		"skipped", skipped,
		"duration", time.Since(start).String(),
	)

	return approaches, nil
}

// parseApproach converts one data row into a CloseApproach.
func parseApproach(row []interface{}, index map[string]int) (*neo.CloseApproach, error) {
	designation, err := stringAt(row, index[fieldDesignation])
	if err != nil {
		return nil, fmt.Errorf("designation: %w", err)
	}

	rawTime, err := stringAt(row, index[fieldTime])
	if err != nil {
		return nil, fmt.Errorf("time: %w", err)
	}
	t, err := time.Parse(cadTimeLayout, rawTime)
	if err != nil {
		return nil, fmt.Errorf("time: %w", err)
	}

	distance, err := floatAt(row, index[fieldDistance])
	if err != nil {
		return nil, fmt.Errorf("distance: %w", err)
	}

	velocity, err := floatAt(row, index[fieldVelocity])
	if err != nil {
		return nil, fmt.Errorf("velocity: %w", err)
	}

	return &neo.CloseApproach{
		Designation: designation,
		Time:        t.UTC(),
		Distance:    distance,
		Velocity:    velocity,
	}, nil
}

// stringAt extracts a string value from a data row.
func stringAt(row []interface{}, idx int) (string, error) {
	if idx >= len(row) {
		return "", fmt.Errorf("row has %d values, need index %d", len(row), idx)
	}
	s, ok := row[idx].(string)
	if !ok || s == "" {
		return "", fmt.Errorf("value at index %d is not a string", idx)
	}
	return s, nil
}

// floatAt extracts a numeric value from a data row. The dataset encodes
// numbers as strings.
func floatAt(row []interface{}, idx int) (float64, error) {
	s, err := stringAt(row, idx)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	return v, nil
}
