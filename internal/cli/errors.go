// Package cli provides CLI output formatting and display functions.
package cli

import (
	"fmt"
	"os"

	"github.com/seulgie/asteroid-data-processor/internal/config"
)

// PrintQueryFileErrors reports query file load failures to stderr.
// Parse errors and validation errors print under separate headings;
// a file that failed to decode is never schema-checked, so at most
// one heading appears per call. verbose adds violation types, quiet
// suppresses the trailing hint.
func PrintQueryFileErrors(result *config.Result, verbose, quiet bool) {
	if len(result.ParseErrors) > 0 {
		fmt.Fprintln(os.Stderr, "✗ Parse errors:")
		for _, err := range result.ParseErrors {
			printParseError(err, verbose)
		}
		return
	}

	if len(result.ValidationErrors) > 0 {
		fmt.Fprintln(os.Stderr, "✗ Validation errors:")
		for _, err := range result.ValidationErrors {
			printValidationError(err, verbose)
		}
		if !quiet {
			fmt.Fprintln(os.Stderr)
			fmt.Fprintln(os.Stderr, "Hint: Use --verbose for detailed error information")
		}
	}
}

// printParseError prints one decode failure as path:line:column
// followed by the message.
func printParseError(err config.ParseError, verbose bool) {
	location := err.Path
	if location != "" && err.Line > 0 {
		location += fmt.Sprintf(":%d", err.Line)
		if err.Column > 0 {
			location += fmt.Sprintf(":%d", err.Column)
		}
	}

	if location != "" {
		fmt.Fprintf(os.Stderr, "  %s: %s\n", location, err.Message)
	} else {
		fmt.Fprintf(os.Stderr, "  %s\n", err.Message)
	}

	if verbose && err.Type != "" {
		fmt.Fprintf(os.Stderr, "    Type: %s\n", err.Type)
	}
}

// printValidationError prints one schema violation keyed by its JSON
// path. Compact mode truncates long messages.
func printValidationError(err config.ValidationError, verbose bool) {
	path := err.Path
	if path == "" {
		path = "/"
	}

	if verbose {
		fmt.Fprintf(os.Stderr, "  %s:\n", path)
		fmt.Fprintf(os.Stderr, "    Message: %s\n", err.Message)
		if err.Type != "" {
			fmt.Fprintf(os.Stderr, "    Type: %s\n", err.Type)
		}
		return
	}

	msg := err.Message
	if len(msg) > 80 {
		msg = msg[:77] + "..."
	}
	fmt.Fprintf(os.Stderr, "  %s: %s\n", path, msg)
}
