package query

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/seulgie/asteroid-data-processor/internal/logger"
	"github.com/seulgie/asteroid-data-processor/pkg/neo"
)

// ExpressionFilter evaluates a compiled expression against the
// serialized projection of each approach. The environment exposes the
// projection keys: datetime_utc, distance_au, velocity_km_s and the
// nested neo object (designation, name, diameter_km,
// potentially_hazardous). Example:
//
//	distance_au < 0.05 && neo.potentially_hazardous
//
// The expression is compiled once at construction; a record for which
// evaluation fails or yields a non-truthy value is excluded, never an
// error, keeping the engine's "evaluation is pure boolean logic"
// contract.
type ExpressionFilter struct {
	source  string
	program *vm.Program
}

// NewExpressionFilter compiles source into an expression filter.
// It returns a *ConfigurationError if the source is empty or does not
// compile.
func NewExpressionFilter(source string) (*ExpressionFilter, error) {
	if strings.TrimSpace(source) == "" {
		return nil, &ConfigurationError{
			Code:    ErrCodeInvalidExpression,
			Message: "expression filter: expression cannot be empty",
			Err:     ErrEmptyExpression,
		}
	}

	// AllowUndefinedVariables() handles records with missing fields
	// gracefully instead of failing compilation.
	program, err := expr.Compile(source, expr.AllowUndefinedVariables())
	if err != nil {
		return nil, &ConfigurationError{
			Code:    ErrCodeInvalidExpression,
			Message: fmt.Sprintf("expression filter: %v", err),
			Err:     fmt.Errorf("%w: %v", ErrInvalidExpression, err),
			Details: map[string]interface{}{"expression": source},
		}
	}

	logger.Debug("expression filter initialized",
		slog.String("expression", source),
	)

	return &ExpressionFilter{
		source:  source,
		program: program,
	}, nil
}

// Matches evaluates the expression against the approach's serialized
// projection. Evaluation failures and non-boolean results fall back to
// truthiness; a failed evaluation excludes the record.
func (f *ExpressionFilter) Matches(ca *neo.CloseApproach) bool {
	output, err := expr.Run(f.program, ca.Serialize())
	if err != nil {
		logger.Debug("expression evaluation failed; excluding record",
			slog.String("expression", f.source),
			slog.String("error", err.Error()),
		)
		return false
	}

	if result, ok := output.(bool); ok {
		return result
	}
	return toBool(output)
}

func (f *ExpressionFilter) String() string {
	return fmt.Sprintf("where %q", f.source)
}

// toBool converts an expression result to a boolean truthiness value.
func toBool(value interface{}) bool {
	if value == nil {
		return false
	}
	switch v := value.(type) {
	case bool:
		return v
	case int:
		return v != 0
	case int64:
		return v != 0
	case float64:
		return v != 0
	case string:
		return v != ""
	default:
		return true
	}
}

var _ Filter = (*ExpressionFilter)(nil)
