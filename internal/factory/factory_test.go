package factory

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/seulgie/asteroid-data-processor/internal/output"
	"github.com/seulgie/asteroid-data-processor/internal/query"
	"github.com/seulgie/asteroid-data-processor/internal/registry"
)

func floatPtr(v float64) *float64 { return &v }
func boolPtr(v bool) *bool        { return &v }

func TestBuildFilters_Empty(t *testing.T) {
	got, err := BuildFilters(query.Criteria{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected no filters for empty criteria, got %d", len(got))
	}
}

func TestBuildFilters_MultipleCriteria(t *testing.T) {
	criteria := query.Criteria{
		MaxDistance: floatPtr(0.1),
		MinVelocity: floatPtr(20),
		Hazardous:   boolPtr(true),
		Where:       "distance_au < 0.05",
	}

	got, err := BuildFilters(criteria)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 4 {
		t.Fatalf("expected 4 filters, got %d", len(got))
	}
}

func TestBuildFilters_InvalidExpression(t *testing.T) {
	criteria := query.Criteria{Where: "distance_au <"}

	_, err := BuildFilters(criteria)
	if err == nil {
		t.Fatal("expected error for invalid expression")
	}

	var cfgErr *query.ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigurationError, got %T", err)
	}
}

func TestCreateFilter_Registered(t *testing.T) {
	got, err := CreateFilter("distance", query.OpLe, 0.2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got == nil {
		t.Fatal("expected non-nil filter")
	}
}

func TestCreateFilter_Unknown(t *testing.T) {
	got, err := CreateFilter("unknownKind", query.OpEq, 1.0)
	if err == nil {
		t.Fatal("expected error for unknown kind")
	}
	if got != nil {
		t.Error("expected nil filter for unknown kind")
	}

	var cfgErr *query.ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigurationError, got %T", err)
	}
	if cfgErr.Code != ErrCodeUnknownKind {
		t.Errorf("expected code %s, got %s", ErrCodeUnknownKind, cfgErr.Code)
	}
	if !strings.Contains(err.Error(), "distance") {
		t.Errorf("expected error to list registered kinds, got %q", err.Error())
	}
}

func TestCreateFilter_CustomRegistered(t *testing.T) {
	// Register a custom kind for this test
	customCalled := false
	original := registry.GetFilterConstructor("designation")
	registry.RegisterFilter("designation", func(op query.Operator, value interface{}) (query.Filter, error) {
		customCalled = true
		return query.NewHazardousFilter(op, true)
	})
	defer func() {
		// Restore the original constructor or a benign stand-in; the
		// registry has no unregister operation.
		if original != nil {
			registry.RegisterFilter("designation", original)
		} else {
			registry.RegisterFilter("designation", func(op query.Operator, value interface{}) (query.Filter, error) {
				return nil, nil
			})
		}
	}()

	got, err := CreateFilter("designation", query.OpEq, "2020 AB")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !customCalled {
		t.Error("custom constructor was not called")
	}
	if got == nil {
		t.Fatal("expected non-nil filter")
	}
}

func TestCreateFilter_ConstructorError(t *testing.T) {
	_, err := CreateFilter("distance", query.Operator("!="), 0.2)
	if err == nil {
		t.Fatal("expected error from constructor for invalid operator")
	}
}

func TestCreateWriter_CSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.csv")

	got, err := CreateWriter(output.FormatCSV, path, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got == nil {
		t.Fatal("expected non-nil writer")
	}
}

func TestCreateWriter_JSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.json")

	got, err := CreateWriter(output.FormatJSON, path, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got == nil {
		t.Fatal("expected non-nil writer")
	}
}

func TestCreateWriter_Template(t *testing.T) {
	got, err := CreateWriter(output.FormatTemplate, "", "{{datetime_utc}} {{distance_au}}")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got == nil {
		t.Fatal("expected non-nil writer")
	}
}

func TestCreateWriter_TemplateMissingTemplate(t *testing.T) {
	_, err := CreateWriter(output.FormatTemplate, "", "")
	if err == nil {
		t.Fatal("expected error for template format without template")
	}
	if !errors.Is(err, output.ErrMissingTemplate) {
		t.Errorf("expected ErrMissingTemplate, got %v", err)
	}
}

func TestCreateWriter_Unknown(t *testing.T) {
	got, err := CreateWriter("xml", "results.xml", "")
	if err == nil {
		t.Fatal("expected error for unknown format")
	}
	if got != nil {
		t.Error("expected nil writer for unknown format")
	}

	if !errors.Is(err, output.ErrUnknownFormat) {
		t.Errorf("expected ErrUnknownFormat, got %v", err)
	}

	var cfgErr *query.ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigurationError, got %T", err)
	}
	if cfgErr.Code != ErrCodeUnknownFormat {
		t.Errorf("expected code %s, got %s", ErrCodeUnknownFormat, cfgErr.Code)
	}
	if !strings.Contains(err.Error(), output.FormatCSV) {
		t.Errorf("expected error to list registered formats, got %q", err.Error())
	}
}

func TestResolveOutput(t *testing.T) {
	tests := []struct {
		name         string
		format       string
		path         string
		template     string
		wantFormat   string
		wantTemplate string
		wantErr      bool
	}{
		{
			name:       "explicit format wins over extension",
			format:     output.FormatJSON,
			path:       "results.csv",
			wantFormat: output.FormatJSON,
		},
		{
			name:       "csv inferred from extension",
			path:       "results.csv",
			wantFormat: output.FormatCSV,
		},
		{
			name:       "extension match is case insensitive",
			path:       "RESULTS.CSV",
			wantFormat: output.FormatCSV,
		},
		{
			name:       "json inferred from extension",
			path:       "out/results.json",
			wantFormat: output.FormatJSON,
		},
		{
			name:         "no format and no path falls back to default template",
			wantFormat:   output.FormatTemplate,
			wantTemplate: output.DefaultTemplate,
		},
		{
			name:         "no format and no path keeps explicit template",
			template:     "{{datetime_utc}}",
			wantFormat:   output.FormatTemplate,
			wantTemplate: "{{datetime_utc}}",
		},
		{
			name:    "unknown extension is an error",
			path:    "results.txt",
			wantErr: true,
		},
		{
			name:    "path without extension is an error",
			path:    "results",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotFormat, gotTemplate, err := ResolveOutput(tt.format, tt.path, tt.template)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if gotFormat != tt.wantFormat {
				t.Errorf("format = %q, want %q", gotFormat, tt.wantFormat)
			}
			if tt.wantTemplate != "" && gotTemplate != tt.wantTemplate {
				t.Errorf("template = %q, want %q", gotTemplate, tt.wantTemplate)
			}
		})
	}
}

func TestResolveOutput_UnknownExtensionError(t *testing.T) {
	_, _, err := ResolveOutput("", "results.txt", "")
	if err == nil {
		t.Fatal("expected error")
	}

	var cfgErr *query.ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigurationError, got %T", err)
	}
	if cfgErr.Code != ErrCodeUnknownFormat {
		t.Errorf("expected code %s, got %s", ErrCodeUnknownFormat, cfgErr.Code)
	}
}
