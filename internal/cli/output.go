// Package cli provides CLI output formatting and display functions.
package cli

import (
	"fmt"
	"os"

	"github.com/seulgie/asteroid-data-processor/pkg/neo"
)

// OutputOptions configures CLI output behavior.
type OutputOptions struct {
	Verbose bool
	Quiet   bool
	DryRun  bool
}

// PrintQueryResult displays the query execution result.
//
// Successful queries that streamed to stdout print nothing extra: the
// results themselves are the output. File-backed queries print a short
// confirmation with the counts and destination.
func PrintQueryResult(result *neo.QueryResult, err error, opts OutputOptions) {
	if result == nil {
		fmt.Fprintln(os.Stderr, "✗ No query result available")
		return
	}

	if err != nil {
		fmt.Fprintln(os.Stderr, "✗ Query failed")
		if result.Error != nil {
			if result.Error.Stage != "" {
				fmt.Fprintf(os.Stderr, "  Stage: %s\n", result.Error.Stage)
			}
			fmt.Fprintf(os.Stderr, "  Error: %s\n", result.Error.Message)
			if opts.Verbose && result.Error.Code != "" {
				fmt.Fprintf(os.Stderr, "  Code: %s\n", result.Error.Code)
			}
		}
		return
	}

	if opts.Quiet {
		return
	}

	if result.DryRun {
		PrintFilterPreview(result.FilterPreview, result.RecordsMatched)
		return
	}

	// Results already streamed to stdout; a banner would pollute them.
	if result.OutputPath == "" {
		return
	}

	fmt.Println("✓ Query completed")
	fmt.Printf("  Records matched: %d\n", result.RecordsMatched)
	fmt.Printf("  Records written: %d\n", result.RecordsWritten)
	fmt.Printf("  Output: %s\n", result.OutputPath)
	if opts.Verbose {
		fmt.Printf("  Duration: %v\n", result.CompletedAt.Sub(result.StartedAt))
	}
}

// PrintFilterPreview displays the constructed filter set and the match
// count for dry-run mode.
func PrintFilterPreview(preview []string, matched int) {
	fmt.Println("Dry run: no output was written")
	if len(preview) == 0 {
		fmt.Println("  Filters: none (every approach matches)")
	} else {
		fmt.Println("  Filters:")
		for _, f := range preview {
			fmt.Printf("    %s\n", f)
		}
	}
	fmt.Printf("  Records matched: %d\n", matched)
}

// PrintNEO displays one object and, in verbose mode, its recorded close
// approaches.
func PrintNEO(n *neo.NearEarthObject, verbose bool) {
	fmt.Println(n.String())
	if !verbose {
		return
	}

	if len(n.Approaches) == 0 {
		fmt.Println("  No close approaches recorded")
		return
	}

	fmt.Printf("  Close approaches (%d):\n", len(n.Approaches))
	for _, ca := range n.Approaches {
		fmt.Printf("  - %s\n", ca.String())
	}
}

// PrintQuerySummary prints the query name and description if available.
// Used after successful validation of a query file.
func PrintQuerySummary(data map[string]interface{}) {
	if data == nil {
		return
	}

	q, ok := data["query"].(map[string]interface{})
	if !ok {
		return
	}

	if name, ok := q["name"].(string); ok {
		fmt.Printf("  Query: %s\n", name)
	}
	if desc, ok := q["description"].(string); ok && desc != "" {
		fmt.Printf("  Description: %s\n", desc)
	}
}
