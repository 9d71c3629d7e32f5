// Package runtime provides the query execution engine.
// It orchestrates the execution stages: load, filter, limit, output.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/seulgie/asteroid-data-processor/internal/database"
	"github.com/seulgie/asteroid-data-processor/internal/errhandling"
	"github.com/seulgie/asteroid-data-processor/internal/logger"
	"github.com/seulgie/asteroid-data-processor/internal/output"
	"github.com/seulgie/asteroid-data-processor/internal/query"
	"github.com/seulgie/asteroid-data-processor/pkg/neo"
)

// Error codes for query execution errors
const (
	ErrCodeLoadFailed   = "LOAD_FAILED"
	ErrCodeOutputFailed = "OUTPUT_FAILED"
	ErrCodeInvalidQuery = "INVALID_QUERY"
	ErrCodeCanceled     = "CANCELED"
)

// Execution status values
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// outputResult holds the result of the output stage.
type outputResult struct {
	matched int
	written int
	err     error
}

// Common errors
var (
	// ErrNilQuery is returned when the query configuration is nil
	ErrNilQuery = errors.New("query configuration is nil")

	// ErrNilLoader is returned when the dataset loader is nil
	ErrNilLoader = errors.New("dataset loader is nil")

	// ErrNilDatabase is returned when the database is nil
	ErrNilDatabase = errors.New("database is nil")

	// ErrNilWriter is returned when the output writer is nil
	ErrNilWriter = errors.New("output writer is nil")
)

// Query identifies one execution for logs and results: the query name
// and the metadata of the output destination. The machinery itself
// (loader, filter set, limiter, writer) lives on the Executor.
type Query struct {
	// Name identifies the query ("ad-hoc" for flag-built queries).
	Name string
	// OutputFormat is the configured writer format (csv, json, template).
	OutputFormat string
	// OutputPath is the output destination; empty for stdout.
	OutputPath string
}

// Executor runs one configured query against the dataset.
// It orchestrates the execution flow: Load -> Filter -> Limit -> Output.
//
// The Executor interacts with its stages only through their public
// interfaces: the loader and writer fields are interface values, and
// the filter set is evaluated through the Filter interface. Concrete
// stage implementations stay independent of the runtime.
//
// Filtering is lazy. The database exposes the dataset as a sequence,
// the filter set and limiter wrap it, and the writer drives the pull:
// no approach is evaluated until the writer asks for it, and a reached
// limit stops the upstream without touching the rest of the dataset.
type Executor struct {
	loader  Loader
	filters []query.Filter
	limit   int
	writer  output.Writer
	dryRun  bool
}

// NewExecutor creates a query executor with all stages configured.
//
// Parameters:
//   - loader: loads the dataset (FileLoader for disk, DatabaseLoader
//     for an already-loaded dataset)
//   - filters: the filter set; every filter must accept an approach for
//     it to match (nil or empty matches everything)
//   - limit: maximum number of matches to write; negative means no limit
//   - writer: the output writer (may be nil in dry-run mode)
//   - dryRun: if true, evaluates the query and reports counts without
//     writing any output
func NewExecutor(loader Loader, filters []query.Filter, limit int, writer output.Writer, dryRun bool) *Executor {
	return &Executor{
		loader:  loader,
		filters: filters,
		limit:   limit,
		writer:  writer,
		dryRun:  dryRun,
	}
}

// stageTimings holds timing measurements for each execution stage.
type stageTimings struct {
	loadDuration   time.Duration
	filterDuration time.Duration
	outputDuration time.Duration
}

// Execute runs the query with a background context.
// For cancellation support, use ExecuteWithContext instead.
func (e *Executor) Execute(q *Query) (*neo.QueryResult, error) {
	return e.ExecuteWithContext(context.Background(), q)
}

// ExecuteWithContext runs the query with the given context.
//
// Execution flow:
//  1. Validate the query configuration
//  2. Load the dataset
//  3. Stream the dataset through the filter set and limiter
//  4. Write matches through the output writer (skipped in dry-run mode)
//  5. Return a QueryResult with status and counts
//
// Cancellation is honored between stages and between records during
// dry-run evaluation. A write in progress always runs to completion so
// that file output stays all-or-nothing.
//
// Returns both result and error; the result carries the structured
// error details when execution fails.
func (e *Executor) ExecuteWithContext(ctx context.Context, q *Query) (*neo.QueryResult, error) {
	startedAt := time.Now()
	result := e.newErrorResult(startedAt)
	var timings stageTimings

	// Validate query and stages first (before logging, in case q is nil)
	if err := e.validateExecution(q, result); err != nil {
		if q != nil {
			execCtx := e.queryContext(q, "")
			logger.LogQueryStart(execCtx)
			logger.LogQueryEnd(execCtx, StatusError, 0, time.Since(startedAt))
		}
		return result, err
	}

	result.QueryName = q.Name
	result.OutputPath = q.OutputPath
	result.DryRun = e.dryRun

	execCtx := e.queryContext(q, "")
	logger.LogQueryStart(execCtx)

	db, loadDuration, err := e.executeLoad(ctx, q, result)
	timings.loadDuration = loadDuration
	if err != nil {
		logger.LogQueryEnd(execCtx, StatusError, 0, time.Since(startedAt))
		return result, err
	}

	if e.dryRun {
		result.FilterPreview = query.Describe(e.filters)

		matched, evalDuration, err := e.executeEvaluate(ctx, q, db, result)
		timings.filterDuration = evalDuration
		if err != nil {
			logger.LogQueryEnd(execCtx, StatusError, 0, time.Since(startedAt))
			return result, err
		}

		result.RecordsMatched = matched
		e.finalizeSuccess(result, q, startedAt, timings, db.ApproachCount())
		return result, nil
	}

	outRes, outputDuration := e.executeOutput(ctx, q, db, result)
	timings.outputDuration = outputDuration
	if outRes.err != nil {
		logger.LogQueryEnd(execCtx, StatusError, outRes.written, time.Since(startedAt))
		return result, outRes.err
	}

	result.RecordsMatched = outRes.matched
	result.RecordsWritten = outRes.written

	e.finalizeSuccess(result, q, startedAt, timings, db.ApproachCount())
	return result, nil
}

// newErrorResult creates a new QueryResult initialized with error status.
func (e *Executor) newErrorResult(startedAt time.Time) *neo.QueryResult {
	return &neo.QueryResult{
		StartedAt: startedAt,
		Status:    StatusError,
	}
}

// buildQueryError creates a QueryError with classified category details.
func buildQueryError(code, stage string, err error) *neo.QueryError {
	qe := &neo.QueryError{
		Code:    code,
		Message: err.Error(),
		Stage:   stage,
	}
	cl := errhandling.ClassifyError(err)
	qe.Details = map[string]interface{}{
		"category": string(cl.Category),
		"fatal":    errhandling.IsFatal(err),
	}
	return qe
}

// validateExecution validates the query and stages before execution.
func (e *Executor) validateExecution(q *Query, result *neo.QueryResult) error {
	if q == nil {
		logger.Error("query execution failed: nil query configuration")
		result.CompletedAt = time.Now()
		result.Error = buildQueryError(ErrCodeInvalidQuery, "configuration", ErrNilQuery)
		return ErrNilQuery
	}

	if e.loader == nil {
		logger.Error("query execution failed: dataset loader is nil",
			slog.String("query_name", q.Name))
		result.CompletedAt = time.Now()
		result.Error = buildQueryError(ErrCodeInvalidQuery, "configuration", ErrNilLoader)
		return ErrNilLoader
	}

	if e.writer == nil && !e.dryRun {
		logger.Error("query execution failed: output writer is nil",
			slog.String("query_name", q.Name))
		result.CompletedAt = time.Now()
		result.Error = buildQueryError(ErrCodeInvalidQuery, "configuration", ErrNilWriter)
		return ErrNilWriter
	}

	return nil
}

// queryContext builds the logging context for the given stage.
func (e *Executor) queryContext(q *Query, stage string) logger.QueryContext {
	return logger.QueryContext{
		QueryName:    q.Name,
		Stage:        stage,
		FilterCount:  len(e.filters),
		OutputFormat: q.OutputFormat,
		OutputPath:   q.OutputPath,
		DryRun:       e.dryRun,
	}
}

// executeLoad loads the dataset and returns the database and duration.
func (e *Executor) executeLoad(ctx context.Context, q *Query, result *neo.QueryResult) (*database.NEODatabase, time.Duration, error) {
	stageCtx := e.queryContext(q, "load")
	logger.LogStageStart(stageCtx)

	loadStart := time.Now()
	db, err := e.loader.Load(ctx)
	loadDuration := time.Since(loadStart)

	if err != nil {
		result.CompletedAt = time.Now()
		result.Error = buildQueryError(ErrCodeLoadFailed, "load", err)
		logger.LogStageEnd(stageCtx, 0, loadDuration, &logger.StageError{
			Code:    ErrCodeLoadFailed,
			Message: err.Error(),
		})
		return nil, loadDuration, fmt.Errorf("loading dataset: %w", err)
	}

	logger.LogStageEnd(stageCtx, db.ApproachCount(), loadDuration, nil)
	return db, loadDuration, nil
}

// executeEvaluate streams the dataset through the filter set and
// limiter without writing, counting matches. Used in dry-run mode.
// Cancellation is checked between records.
func (e *Executor) executeEvaluate(ctx context.Context, q *Query, db *database.NEODatabase, result *neo.QueryResult) (int, time.Duration, error) {
	stageCtx := e.queryContext(q, "query")
	logger.LogStageStart(stageCtx)

	evalStart := time.Now()
	matched := 0
	stream := query.WithContext(ctx, query.Limit(query.Apply(db.Approaches(), e.filters), e.limit))
	for range stream {
		matched++
	}
	evalDuration := time.Since(evalStart)

	if err := ctx.Err(); err != nil {
		result.CompletedAt = time.Now()
		result.Error = buildQueryError(ErrCodeCanceled, "query", err)
		logger.LogStageEnd(stageCtx, matched, evalDuration, &logger.StageError{
			Code:    ErrCodeCanceled,
			Message: err.Error(),
		})
		return matched, evalDuration, fmt.Errorf("evaluating query: %w", err)
	}

	logger.LogStageEnd(stageCtx, matched, evalDuration, nil)
	return matched, evalDuration, nil
}

// executeOutput streams the dataset through the filter set and limiter
// into the writer. The writer drives the pull, so filter evaluation is
// interleaved with serialization and attributed to this stage. The
// match count is taken by a tap between the limiter and the writer.
func (e *Executor) executeOutput(ctx context.Context, q *Query, db *database.NEODatabase, result *neo.QueryResult) (outputResult, time.Duration) {
	stageCtx := e.queryContext(q, "output")
	logger.LogStageStart(stageCtx)

	outputStart := time.Now()

	// Cancellation is checked before the write starts, not during it:
	// an interrupted write must not commit a truncated file.
	if err := ctx.Err(); err != nil {
		outputDuration := time.Since(outputStart)
		result.CompletedAt = time.Now()
		result.Error = buildQueryError(ErrCodeCanceled, "output", err)
		logger.LogStageEnd(stageCtx, 0, outputDuration, &logger.StageError{
			Code:    ErrCodeCanceled,
			Message: err.Error(),
		})
		return outputResult{err: fmt.Errorf("writing output: %w", err)}, outputDuration
	}

	matched := 0
	stream := query.Limit(query.Apply(db.Approaches(), e.filters), e.limit)
	counted := func(yield func(*neo.CloseApproach) bool) {
		for ca := range stream {
			matched++
			if !yield(ca) {
				return
			}
		}
	}

	written, err := e.writer.Write(counted)
	outputDuration := time.Since(outputStart)

	if err != nil {
		result.CompletedAt = time.Now()
		result.RecordsMatched = matched
		result.Error = buildQueryError(ErrCodeOutputFailed, "output", err)
		logger.LogStageEnd(stageCtx, written, outputDuration, &logger.StageError{
			Code:    ErrCodeOutputFailed,
			Message: err.Error(),
		})
		return outputResult{matched: matched, err: fmt.Errorf("writing output: %w", err)}, outputDuration
	}

	logger.LogStageEnd(stageCtx, written, outputDuration, nil)
	return outputResult{matched: matched, written: written}, outputDuration
}

// finalizeSuccess marks the execution as successful and logs completion
// with collected metrics.
func (e *Executor) finalizeSuccess(result *neo.QueryResult, q *Query, startedAt time.Time, timings stageTimings, recordsLoaded int) {
	result.Status = StatusSuccess
	result.CompletedAt = time.Now()
	result.Error = nil

	totalDuration := time.Since(startedAt)

	var recordsPerSecond float64
	if recordsLoaded > 0 && totalDuration > 0 {
		recordsPerSecond = float64(recordsLoaded) / totalDuration.Seconds()
	}

	execCtx := e.queryContext(q, "")
	metrics := logger.QueryMetrics{
		TotalDuration:    totalDuration,
		LoadDuration:     timings.loadDuration,
		FilterDuration:   timings.filterDuration,
		OutputDuration:   timings.outputDuration,
		RecordsLoaded:    recordsLoaded,
		RecordsMatched:   result.RecordsMatched,
		RecordsWritten:   result.RecordsWritten,
		RecordsPerSecond: recordsPerSecond,
	}

	logger.LogQueryEnd(execCtx, StatusSuccess, result.RecordsWritten, totalDuration)
	logger.LogMetrics(execCtx, metrics)
}
