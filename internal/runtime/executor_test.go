package runtime

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"iter"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/seulgie/asteroid-data-processor/internal/database"
	"github.com/seulgie/asteroid-data-processor/internal/logger"
	"github.com/seulgie/asteroid-data-processor/internal/query"
	"github.com/seulgie/asteroid-data-processor/pkg/neo"
)

// =============================================================================
// Mock Implementations for Testing
// =============================================================================

// mockLoader is a test mock for the Loader interface
type mockLoader struct {
	db         *database.NEODatabase
	err        error
	loadCalled bool
}

func (m *mockLoader) Load(_ context.Context) (*database.NEODatabase, error) {
	m.loadCalled = true
	if m.err != nil {
		return nil, m.err
	}
	return m.db, nil
}

// mockWriter is a test mock for the output.Writer interface.
// It materializes the stream it is given.
type mockWriter struct {
	received    []*neo.CloseApproach
	err         error
	writeCalled bool
}

func (m *mockWriter) Write(approaches iter.Seq[*neo.CloseApproach]) (int, error) {
	m.writeCalled = true
	if m.err != nil {
		return 0, m.err
	}
	for ca := range approaches {
		m.received = append(m.received, ca)
	}
	return len(m.received), nil
}

// testDatabase builds a small dataset with three approaches:
// two close hazardous objects and one distant non-hazardous object.
func testDatabase() *database.NEODatabase {
	neos := []*neo.NearEarthObject{
		{Designation: "2020 AB", Name: "Alpha", Hazardous: true},
		{Designation: "2021 CD", Hazardous: false},
		{Designation: "2022 EF", Name: "Echo", Hazardous: true},
	}
	approaches := []*neo.CloseApproach{
		{Designation: "2020 AB", Time: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC), Distance: 0.02, Velocity: 5.0},
		{Designation: "2021 CD", Time: time.Date(2026, 2, 1, 6, 30, 0, 0, time.UTC), Distance: 0.5, Velocity: 20.0},
		{Designation: "2022 EF", Time: time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC), Distance: 0.08, Velocity: 30.0},
	}
	return database.New(neos, approaches)
}

func mustFilters(t *testing.T, criteria query.Criteria) []query.Filter {
	t.Helper()
	filters, err := query.BuildFilters(criteria)
	if err != nil {
		t.Fatalf("BuildFilters() error = %v", err)
	}
	return filters
}

// =============================================================================
// Unit Tests for Query Execution
// =============================================================================

func TestExecutor_Execute_Success(t *testing.T) {
	// Arrange
	loader := &mockLoader{db: testDatabase()}
	writer := &mockWriter{}

	q := &Query{
		Name:         "test-query",
		OutputFormat: "csv",
		OutputPath:   "results.csv",
	}

	executor := NewExecutor(loader, nil, -1, writer, false)

	// Act
	result, err := executor.Execute(q)

	// Assert
	if err != nil {
		t.Fatalf("Execute() returned unexpected error: %v", err)
	}

	if result == nil {
		t.Fatal("Execute() returned nil result")
	}

	if result.Status != StatusSuccess {
		t.Errorf("Expected status 'success', got '%s'", result.Status)
	}

	if result.QueryName != "test-query" {
		t.Errorf("Expected QueryName 'test-query', got '%s'", result.QueryName)
	}

	if result.RecordsMatched != 3 {
		t.Errorf("Expected RecordsMatched 3, got %d", result.RecordsMatched)
	}

	if result.RecordsWritten != 3 {
		t.Errorf("Expected RecordsWritten 3, got %d", result.RecordsWritten)
	}

	if result.OutputPath != "results.csv" {
		t.Errorf("Expected OutputPath 'results.csv', got '%s'", result.OutputPath)
	}

	if !loader.loadCalled {
		t.Error("Loader.Load() was not called")
	}

	if !writer.writeCalled {
		t.Error("Writer.Write() was not called")
	}

	if len(writer.received) != 3 {
		t.Errorf("Expected 3 approaches written, got %d", len(writer.received))
	}
}

func TestExecutor_Execute_FilterAndLimit(t *testing.T) {
	// Two approaches pass the distance bound; the limit keeps the first.
	loader := &mockLoader{db: testDatabase()}
	writer := &mockWriter{}

	maxDistance := 0.1
	filters := mustFilters(t, query.Criteria{MaxDistance: &maxDistance})

	executor := NewExecutor(loader, filters, 1, writer, false)

	result, err := executor.Execute(&Query{Name: "close-approaches"})
	if err != nil {
		t.Fatalf("Execute() returned unexpected error: %v", err)
	}

	if result.RecordsMatched != 1 {
		t.Errorf("Expected RecordsMatched 1, got %d", result.RecordsMatched)
	}
	if result.RecordsWritten != 1 {
		t.Errorf("Expected RecordsWritten 1, got %d", result.RecordsWritten)
	}
	if len(writer.received) != 1 {
		t.Fatalf("Expected 1 approach written, got %d", len(writer.received))
	}
	if writer.received[0].Designation != "2020 AB" {
		t.Errorf("Expected first matching approach '2020 AB', got '%s'", writer.received[0].Designation)
	}
}

func TestExecutor_Execute_PreservesDatasetOrder(t *testing.T) {
	loader := &mockLoader{db: testDatabase()}
	writer := &mockWriter{}

	executor := NewExecutor(loader, nil, -1, writer, false)

	_, err := executor.Execute(&Query{Name: "order-check"})
	if err != nil {
		t.Fatalf("Execute() returned unexpected error: %v", err)
	}

	want := []string{"2020 AB", "2021 CD", "2022 EF"}
	for i, ca := range writer.received {
		if ca.Designation != want[i] {
			t.Errorf("approach %d: expected %s, got %s", i, want[i], ca.Designation)
		}
	}
}

func TestExecutor_Execute_LimitZero(t *testing.T) {
	loader := &mockLoader{db: testDatabase()}
	writer := &mockWriter{}

	executor := NewExecutor(loader, nil, 0, writer, false)

	result, err := executor.Execute(&Query{Name: "limit-zero"})
	if err != nil {
		t.Fatalf("Execute() returned unexpected error: %v", err)
	}

	if result.Status != StatusSuccess {
		t.Errorf("Expected status 'success', got '%s'", result.Status)
	}
	if result.RecordsMatched != 0 {
		t.Errorf("Expected RecordsMatched 0, got %d", result.RecordsMatched)
	}
	if !writer.writeCalled {
		t.Error("Writer.Write() should still be called with an empty stream")
	}
	if len(writer.received) != 0 {
		t.Errorf("Expected no approaches written, got %d", len(writer.received))
	}
}

func TestExecutor_Execute_EmptyDataset(t *testing.T) {
	loader := &mockLoader{db: database.New(nil, nil)}
	writer := &mockWriter{}

	executor := NewExecutor(loader, nil, -1, writer, false)

	result, err := executor.Execute(&Query{Name: "empty"})
	if err != nil {
		t.Fatalf("Execute() returned unexpected error: %v", err)
	}

	if result.Status != StatusSuccess {
		t.Errorf("Expected status 'success', got '%s'", result.Status)
	}
	if result.RecordsMatched != 0 || result.RecordsWritten != 0 {
		t.Errorf("Expected 0 matched and written, got %d and %d", result.RecordsMatched, result.RecordsWritten)
	}
}

func TestExecutor_Execute_TimestampTracking(t *testing.T) {
	loader := &mockLoader{db: testDatabase()}
	writer := &mockWriter{}

	executor := NewExecutor(loader, nil, -1, writer, false)

	beforeExec := time.Now()
	result, err := executor.Execute(&Query{Name: "timestamps"})
	afterExec := time.Now()

	if err != nil {
		t.Fatalf("Execute() returned unexpected error: %v", err)
	}

	if result.StartedAt.Before(beforeExec) || result.StartedAt.After(afterExec) {
		t.Errorf("StartedAt %v is not between %v and %v", result.StartedAt, beforeExec, afterExec)
	}
	if result.CompletedAt.Before(result.StartedAt) {
		t.Errorf("CompletedAt %v is before StartedAt %v", result.CompletedAt, result.StartedAt)
	}
	if result.CompletedAt.After(afterExec) {
		t.Errorf("CompletedAt %v is after execution end %v", result.CompletedAt, afterExec)
	}
}

func TestExecutor_Execute_LoadError(t *testing.T) {
	// Arrange
	loadErr := errors.New("failed to read dataset file")
	loader := &mockLoader{err: loadErr}
	writer := &mockWriter{}

	executor := NewExecutor(loader, nil, -1, writer, false)

	// Act
	result, err := executor.Execute(&Query{Name: "load-error"})

	// Assert - error should be returned AND result with error details
	if err == nil {
		t.Fatal("Execute() should return error when loading fails")
	}
	if result == nil {
		t.Fatal("Execute() should return result even on error")
	}

	if result.Status != StatusError {
		t.Errorf("Expected status 'error', got '%s'", result.Status)
	}

	if result.Error == nil {
		t.Error("Expected Error details in result")
	} else {
		if result.Error.Code != ErrCodeLoadFailed {
			t.Errorf("Expected error code %s, got %s", ErrCodeLoadFailed, result.Error.Code)
		}
		if result.Error.Stage != "load" {
			t.Errorf("Expected error stage 'load', got '%s'", result.Error.Stage)
		}
	}

	// Writer should NOT be called when loading fails
	if writer.writeCalled {
		t.Error("Writer.Write() should NOT be called when loading fails")
	}
}

func TestExecutor_Execute_OutputError(t *testing.T) {
	// Arrange
	writeErr := errors.New("failed to write output file")
	loader := &mockLoader{db: testDatabase()}
	writer := &mockWriter{err: writeErr}

	executor := NewExecutor(loader, nil, -1, writer, false)

	// Act
	result, err := executor.Execute(&Query{Name: "output-error"})

	// Assert
	if err == nil {
		t.Fatal("Execute() should return error when the writer fails")
	}
	if result == nil {
		t.Fatal("Execute() should return result even on error")
	}

	if result.Status != StatusError {
		t.Errorf("Expected status 'error', got '%s'", result.Status)
	}

	if result.Error == nil {
		t.Error("Expected Error details in result")
	} else {
		if result.Error.Code != ErrCodeOutputFailed {
			t.Errorf("Expected error code %s, got %s", ErrCodeOutputFailed, result.Error.Code)
		}
		if result.Error.Stage != "output" {
			t.Errorf("Expected error stage 'output', got '%s'", result.Error.Stage)
		}
	}
}

func TestExecutor_Execute_NilQuery(t *testing.T) {
	loader := &mockLoader{db: testDatabase()}
	writer := &mockWriter{}

	executor := NewExecutor(loader, nil, -1, writer, false)

	result, err := executor.Execute(nil)
	if !errors.Is(err, ErrNilQuery) {
		t.Fatalf("Expected ErrNilQuery, got %v", err)
	}
	if result == nil {
		t.Fatal("Execute() should return result even on error")
	}
	if result.Error == nil || result.Error.Code != ErrCodeInvalidQuery {
		t.Errorf("Expected error code %s in result", ErrCodeInvalidQuery)
	}
}

func TestExecutor_Execute_NilLoader(t *testing.T) {
	executor := NewExecutor(nil, nil, -1, &mockWriter{}, false)

	_, err := executor.Execute(&Query{Name: "nil-loader"})
	if !errors.Is(err, ErrNilLoader) {
		t.Fatalf("Expected ErrNilLoader, got %v", err)
	}
}

func TestExecutor_Execute_NilWriter(t *testing.T) {
	loader := &mockLoader{db: testDatabase()}

	executor := NewExecutor(loader, nil, -1, nil, false)

	_, err := executor.Execute(&Query{Name: "nil-writer"})
	if !errors.Is(err, ErrNilWriter) {
		t.Fatalf("Expected ErrNilWriter, got %v", err)
	}
}

func TestExecutor_Execute_Canceled(t *testing.T) {
	loader := &mockLoader{db: testDatabase()}
	writer := &mockWriter{}

	executor := NewExecutor(loader, nil, -1, writer, false)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := executor.ExecuteWithContext(ctx, &Query{Name: "canceled"})
	if err == nil {
		t.Fatal("Execute() should return error when context is canceled")
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled in chain, got %v", err)
	}
	if result.Error == nil || result.Error.Code != ErrCodeCanceled {
		t.Errorf("Expected error code %s in result", ErrCodeCanceled)
	}
	if writer.writeCalled {
		t.Error("Writer.Write() should NOT be called after cancellation")
	}
}

// =============================================================================
// Dry-Run Tests
// =============================================================================

func TestExecutor_DryRun(t *testing.T) {
	// Arrange: dry-run needs no writer
	loader := &mockLoader{db: testDatabase()}

	maxDistance := 0.1
	filters := mustFilters(t, query.Criteria{MaxDistance: &maxDistance})

	executor := NewExecutor(loader, filters, -1, nil, true)

	// Act
	result, err := executor.Execute(&Query{Name: "dry-run-check"})

	// Assert
	if err != nil {
		t.Fatalf("Execute() returned unexpected error: %v", err)
	}

	if result.Status != StatusSuccess {
		t.Errorf("Expected status 'success', got '%s'", result.Status)
	}
	if !result.DryRun {
		t.Error("Expected DryRun true in result")
	}
	if result.RecordsMatched != 2 {
		t.Errorf("Expected RecordsMatched 2, got %d", result.RecordsMatched)
	}
	if result.RecordsWritten != 0 {
		t.Errorf("Expected RecordsWritten 0 in dry-run mode, got %d", result.RecordsWritten)
	}
	if len(result.FilterPreview) != 1 {
		t.Fatalf("Expected 1 filter preview entry, got %d", len(result.FilterPreview))
	}
	if !strings.Contains(result.FilterPreview[0], "distance") {
		t.Errorf("Expected filter preview to describe the distance bound, got %q", result.FilterPreview[0])
	}
}

func TestExecutor_DryRun_WriterNotCalled(t *testing.T) {
	loader := &mockLoader{db: testDatabase()}
	writer := &mockWriter{}

	executor := NewExecutor(loader, nil, -1, writer, true)

	result, err := executor.Execute(&Query{Name: "dry-run-no-write"})
	if err != nil {
		t.Fatalf("Execute() returned unexpected error: %v", err)
	}

	if writer.writeCalled {
		t.Error("Writer.Write() should NOT be called in dry-run mode")
	}
	if result.RecordsMatched != 3 {
		t.Errorf("Expected RecordsMatched 3, got %d", result.RecordsMatched)
	}
}

func TestExecutor_DryRun_RespectsLimit(t *testing.T) {
	loader := &mockLoader{db: testDatabase()}

	executor := NewExecutor(loader, nil, 2, nil, true)

	result, err := executor.Execute(&Query{Name: "dry-run-limit"})
	if err != nil {
		t.Fatalf("Execute() returned unexpected error: %v", err)
	}

	if result.RecordsMatched != 2 {
		t.Errorf("Expected RecordsMatched 2 with limit, got %d", result.RecordsMatched)
	}
}

func TestExecutor_DryRun_EmptyFilterSetHasNoPreview(t *testing.T) {
	loader := &mockLoader{db: testDatabase()}

	executor := NewExecutor(loader, nil, -1, nil, true)

	result, err := executor.Execute(&Query{Name: "dry-run-empty"})
	if err != nil {
		t.Fatalf("Execute() returned unexpected error: %v", err)
	}

	if len(result.FilterPreview) != 0 {
		t.Errorf("Expected empty filter preview, got %v", result.FilterPreview)
	}
}

func TestExecutor_DryRun_Canceled(t *testing.T) {
	loader := &mockLoader{db: testDatabase()}

	executor := NewExecutor(loader, nil, -1, nil, true)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := executor.ExecuteWithContext(ctx, &Query{Name: "dry-run-canceled"})
	if err == nil {
		t.Fatal("Execute() should return error when context is canceled")
	}
	if result.Error == nil || result.Error.Code != ErrCodeCanceled {
		t.Errorf("Expected error code %s in result", ErrCodeCanceled)
	}
	if result.Error != nil && result.Error.Stage != "query" {
		t.Errorf("Expected error stage 'query', got '%s'", result.Error.Stage)
	}
}

// =============================================================================
// Loader Tests
// =============================================================================

func TestFileLoader_Load(t *testing.T) {
	dir := t.TempDir()

	neoPath := filepath.Join(dir, "neos.csv")
	neoCSV := "pdes,name,diameter,pha\n" +
		"2020 AB,Alpha,1.5,Y\n" +
		"2021 CD,,,N\n"
	if err := os.WriteFile(neoPath, []byte(neoCSV), 0644); err != nil {
		t.Fatalf("writing NEO fixture: %v", err)
	}

	cadPath := filepath.Join(dir, "cad.json")
	cadJSON := `{
		"fields": ["des", "cd", "dist", "v_rel"],
		"data": [
			["2020 AB", "2026-Jan-01 12:00", "0.02", "5.0"],
			["2021 CD", "2026-Feb-01 06:30", "0.5", "20.0"]
		]
	}`
	if err := os.WriteFile(cadPath, []byte(cadJSON), 0644); err != nil {
		t.Fatalf("writing CAD fixture: %v", err)
	}

	loader := &FileLoader{NEOPath: neoPath, CADPath: cadPath}
	db, err := loader.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if db.NEOCount() != 2 {
		t.Errorf("Expected 2 NEOs, got %d", db.NEOCount())
	}
	if db.ApproachCount() != 2 {
		t.Errorf("Expected 2 approaches, got %d", db.ApproachCount())
	}

	// Approaches are linked to their objects after loading
	for ca := range db.Approaches() {
		if ca.NEO == nil {
			t.Errorf("approach %s is not linked to its NEO", ca.Designation)
		}
	}
}

func TestFileLoader_Load_MissingNEOFile(t *testing.T) {
	loader := &FileLoader{
		NEOPath: filepath.Join(t.TempDir(), "missing.csv"),
		CADPath: "unused.json",
	}

	_, err := loader.Load(context.Background())
	if err == nil {
		t.Fatal("Load() should fail for a missing NEO file")
	}
}

func TestFileLoader_Load_Canceled(t *testing.T) {
	dir := t.TempDir()

	neoPath := filepath.Join(dir, "neos.csv")
	if err := os.WriteFile(neoPath, []byte("pdes,name,diameter,pha\n"), 0644); err != nil {
		t.Fatalf("writing NEO fixture: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	loader := &FileLoader{NEOPath: neoPath, CADPath: filepath.Join(dir, "cad.json")}
	_, err := loader.Load(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Expected context.Canceled, got %v", err)
	}
}

func TestDatabaseLoader_Load(t *testing.T) {
	db := testDatabase()
	loader := &DatabaseLoader{DB: db}

	got, err := loader.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got != db {
		t.Error("Expected the wrapped database to be returned")
	}
}

func TestDatabaseLoader_Load_NilDatabase(t *testing.T) {
	loader := &DatabaseLoader{}

	_, err := loader.Load(context.Background())
	if !errors.Is(err, ErrNilDatabase) {
		t.Fatalf("Expected ErrNilDatabase, got %v", err)
	}
}

// =============================================================================
// Logging Tests
// =============================================================================

// captureLogs routes the package logger into a buffer for the test.
func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	originalLogger := logger.Logger
	t.Cleanup(func() { logger.Logger = originalLogger })
	logger.Logger = slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	return &buf
}

// logEntries parses captured JSON log lines.
func logEntries(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()
	var entries []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		var entry map[string]interface{}
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			t.Fatalf("unparseable log line %q: %v", line, err)
		}
		entries = append(entries, entry)
	}
	return entries
}

func TestExecutor_Execute_LogsQueryStart(t *testing.T) {
	buf := captureLogs(t)

	loader := &mockLoader{db: testDatabase()}
	executor := NewExecutor(loader, nil, -1, &mockWriter{}, false)

	_, err := executor.Execute(&Query{Name: "logging-check", OutputFormat: "csv"})
	if err != nil {
		t.Fatalf("Execute() returned unexpected error: %v", err)
	}

	found := false
	for _, entry := range logEntries(t, buf) {
		if entry["msg"] == "query started" {
			found = true
			if entry["query_name"] != "logging-check" {
				t.Errorf("Expected query_name 'logging-check', got %v", entry["query_name"])
			}
			break
		}
	}
	if !found {
		t.Error("Expected to find 'query started' log entry")
	}
}

func TestExecutor_Execute_LogsStages(t *testing.T) {
	buf := captureLogs(t)

	loader := &mockLoader{db: testDatabase()}
	executor := NewExecutor(loader, nil, -1, &mockWriter{}, false)

	_, err := executor.Execute(&Query{Name: "stage-logging"})
	if err != nil {
		t.Fatalf("Execute() returned unexpected error: %v", err)
	}

	stagesFound := make(map[string]bool)
	for _, entry := range logEntries(t, buf) {
		if entry["msg"] == "stage started" {
			if stage, ok := entry["stage"].(string); ok {
				stagesFound[stage] = true
			}
		}
	}

	if !stagesFound["load"] {
		t.Error("Expected to find 'stage started' log for 'load' stage")
	}
	if !stagesFound["output"] {
		t.Error("Expected to find 'stage started' log for 'output' stage")
	}
}

func TestExecutor_Execute_LogsQueryEnd(t *testing.T) {
	buf := captureLogs(t)

	loader := &mockLoader{db: testDatabase()}
	executor := NewExecutor(loader, nil, -1, &mockWriter{}, false)

	_, err := executor.Execute(&Query{Name: "end-logging"})
	if err != nil {
		t.Fatalf("Execute() returned unexpected error: %v", err)
	}

	var sawEnd, sawMetrics bool
	for _, entry := range logEntries(t, buf) {
		switch entry["msg"] {
		case "query completed":
			sawEnd = true
			if entry["status"] != StatusSuccess {
				t.Errorf("Expected status 'success' in log, got %v", entry["status"])
			}
		case "query metrics":
			sawMetrics = true
			if entry["records_loaded"] != float64(3) {
				t.Errorf("Expected records_loaded 3 in metrics, got %v", entry["records_loaded"])
			}
		}
	}
	if !sawEnd {
		t.Error("Expected to find 'query completed' log entry")
	}
	if !sawMetrics {
		t.Error("Expected to find 'query metrics' log entry")
	}
}
