package query

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/dop251/goja"

	"github.com/seulgie/asteroid-data-processor/internal/logger"
	"github.com/seulgie/asteroid-data-processor/internal/pathutil"
	"github.com/seulgie/asteroid-data-processor/pkg/neo"
)

// MaxScriptLength is the maximum allowed script length in bytes (100KB).
const MaxScriptLength = 100 * 1024

// ScriptFilter evaluates a user-supplied JavaScript predicate against
// each approach. The script must define a matches(approach) function;
// it receives the approach's serialized projection and its return
// value is taken by JavaScript truthiness.
//
//	function matches(approach) {
//	    return approach.velocity_km_s > 25 && approach.neo.name !== "";
//	}
//
// Goja runtimes are not goroutine-safe; each filter owns one runtime
// and Matches must not be called concurrently on the same instance,
// which the single-threaded pipeline guarantees.
type ScriptFilter struct {
	source  string
	runtime *goja.Runtime
	matchFn goja.Callable
}

// NewScriptFilter compiles an inline JavaScript predicate. It returns
// a *ConfigurationError if the source is empty, exceeds
// MaxScriptLength, fails to compile, or does not define a matches
// function.
func NewScriptFilter(source string) (*ScriptFilter, error) {
	if err := validateScriptSource(source); err != nil {
		return nil, err
	}

	vm := goja.New()
	if _, err := vm.RunString(source); err != nil {
		return nil, &ConfigurationError{
			Code:    ErrCodeInvalidScript,
			Message: fmt.Sprintf("script filter: compilation failed: %v", err),
			Err:     fmt.Errorf("%w: %v", ErrInvalidScript, err),
		}
	}

	matchFn, err := getMatchesFunction(vm)
	if err != nil {
		return nil, err
	}

	logger.Debug("script filter initialized",
		slog.Int("script_length", len(source)),
	)

	return &ScriptFilter{
		source:  source,
		runtime: vm,
		matchFn: matchFn,
	}, nil
}

// NewScriptFilterFromFile loads a JavaScript predicate from a file.
// The path is validated against traversal and the file size is capped
// at MaxScriptLength before reading.
func NewScriptFilterFromFile(path string) (*ScriptFilter, error) {
	if err := pathutil.ValidateFilePath(path); err != nil {
		return nil, &ConfigurationError{
			Code:    ErrCodeInvalidScript,
			Message: fmt.Sprintf("script filter: invalid script file: %v", err),
			Err:     err,
			Details: map[string]interface{}{"path": path},
		}
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, &ConfigurationError{
			Code:    ErrCodeInvalidScript,
			Message: fmt.Sprintf("script filter: failed to stat script file %q: %v", path, err),
			Err:     err,
			Details: map[string]interface{}{"path": path},
		}
	}
	if info.Size() > MaxScriptLength {
		return nil, &ConfigurationError{
			Code:    ErrCodeInvalidScript,
			Message: fmt.Sprintf("script filter: script file %q exceeds maximum length of %d bytes", path, MaxScriptLength),
			Err:     ErrInvalidScript,
			Details: map[string]interface{}{"path": path, "size": info.Size()},
		}
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, &ConfigurationError{
			Code:    ErrCodeInvalidScript,
			Message: fmt.Sprintf("script filter: failed to open script file %q: %v", path, err),
			Err:     err,
			Details: map[string]interface{}{"path": path},
		}
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			logger.Warn("failed to close script file",
				slog.String("file", path),
				slog.String("error", closeErr.Error()),
			)
		}
	}()

	// Cap the read even if the file grew between Stat and Open.
	content, err := io.ReadAll(io.LimitReader(file, MaxScriptLength+1))
	if err != nil {
		return nil, &ConfigurationError{
			Code:    ErrCodeInvalidScript,
			Message: fmt.Sprintf("script filter: failed to read script file %q: %v", path, err),
			Err:     err,
			Details: map[string]interface{}{"path": path},
		}
	}
	if len(content) > MaxScriptLength {
		return nil, &ConfigurationError{
			Code:    ErrCodeInvalidScript,
			Message: fmt.Sprintf("script filter: script file %q exceeds maximum length of %d bytes", path, MaxScriptLength),
			Err:     ErrInvalidScript,
			Details: map[string]interface{}{"path": path},
		}
	}

	return NewScriptFilter(string(content))
}

// validateScriptSource checks the source is non-empty and within limits.
func validateScriptSource(source string) error {
	if isWhitespaceOnly(source) {
		return &ConfigurationError{
			Code:    ErrCodeInvalidScript,
			Message: "script filter: script cannot be empty",
			Err:     ErrInvalidScript,
		}
	}
	if len(source) > MaxScriptLength {
		return &ConfigurationError{
			Code:    ErrCodeInvalidScript,
			Message: fmt.Sprintf("script filter: script exceeds maximum length of %d bytes", MaxScriptLength),
			Err:     ErrInvalidScript,
		}
	}
	return nil
}

// isWhitespaceOnly checks if a string contains only whitespace characters.
func isWhitespaceOnly(s string) bool {
	for _, r := range s {
		if r != ' ' && r != '\t' && r != '\n' && r != '\r' {
			return false
		}
	}
	return true
}

// getMatchesFunction retrieves and validates the matches function from
// the runtime.
func getMatchesFunction(vm *goja.Runtime) (goja.Callable, error) {
	matchVal := vm.Get("matches")
	if matchVal == nil || goja.IsUndefined(matchVal) {
		return nil, &ConfigurationError{
			Code:    ErrCodeInvalidScript,
			Message: "script filter: matches function not found in script",
			Err:     ErrInvalidScript,
		}
	}

	matchFn, ok := goja.AssertFunction(matchVal)
	if !ok {
		return nil, &ConfigurationError{
			Code:    ErrCodeInvalidScript,
			Message: "script filter: matches is not a function",
			Err:     ErrInvalidScript,
		}
	}

	return matchFn, nil
}

// Matches calls the script's matches function with the approach's
// serialized projection. A thrown exception excludes the record.
func (f *ScriptFilter) Matches(ca *neo.CloseApproach) bool {
	result, err := f.matchFn(goja.Undefined(), f.runtime.ToValue(ca.Serialize()))
	if err != nil {
		logger.Debug("script evaluation failed; excluding record",
			slog.String("error", err.Error()),
		)
		return false
	}
	return result.ToBoolean()
}

func (f *ScriptFilter) String() string {
	return fmt.Sprintf("script (%d bytes)", len(f.source))
}

var _ Filter = (*ScriptFilter)(nil)
