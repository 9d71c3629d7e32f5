// Package main provides the CLI entry point for the asteroids runtime.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/seulgie/asteroid-data-processor/internal/cli"
	"github.com/seulgie/asteroid-data-processor/internal/config"
	"github.com/seulgie/asteroid-data-processor/internal/database"
	"github.com/seulgie/asteroid-data-processor/internal/errhandling"
	"github.com/seulgie/asteroid-data-processor/internal/factory"
	"github.com/seulgie/asteroid-data-processor/internal/logger"
	"github.com/seulgie/asteroid-data-processor/internal/output"
	"github.com/seulgie/asteroid-data-processor/internal/pathutil"
	"github.com/seulgie/asteroid-data-processor/internal/query"
	"github.com/seulgie/asteroid-data-processor/internal/runtime"
	"github.com/seulgie/asteroid-data-processor/pkg/neo"
)

// Exit codes
const (
	ExitSuccess         = 0
	ExitValidationError = 1
	ExitParseError      = 2
	ExitRuntimeError    = 3
)

// dateLayout is the calendar date form accepted by date flags.
const dateLayout = "2006-01-02"

// Default dataset locations.
const (
	defaultNEOFile = "data/neos.csv"
	defaultCADFile = "data/cad.json"
)

var (
	// Global flags
	verbose   bool
	quiet     bool
	logLevel  string
	logFormat string

	// Dataset flags (query and inspect commands)
	neoFile string
	cadFile string

	// Query command flags
	dateFlag      string
	startDateFlag string
	endDateFlag   string
	minDistance   float64
	maxDistance   float64
	minVelocity   float64
	maxVelocity   float64
	minDiameter   float64
	maxDiameter   float64
	hazardous     bool
	notHazardous  bool
	whereExpr     string
	scriptFile    string
	limitFlag     int
	outputFormat  string
	outputPath    string
	templateFlag  string
	dryRun        bool

	// Inspect command flags
	inspectPdes string
	inspectName string

	// Build information (set via ldflags during build)
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(ExitRuntimeError)
	}
}

var rootCmd = &cobra.Command{
	Use:   "asteroids",
	Short: "Asteroids - Near-Earth object close approach explorer",
	Long: `Asteroids is a CLI tool for exploring close approaches of
near-Earth objects (NEOs).

It loads the NEO and close approach datasets, filters the approaches
by attribute criteria, and serializes the matches to CSV, JSON, or
template-driven lines.

Examples:
  # Close, slow approaches in early 2020, first ten matches as CSV
  asteroids query --start-date 2020-01-01 --end-date 2020-03-31 \
    --max-distance 0.05 --limit 10 --output-path results.csv

  # Hazardous objects passing within 0.1 au, as JSON on stdout
  asteroids query --hazardous --max-distance 0.1 --output-format json

  # Look up one object and its recorded approaches
  asteroids inspect --pdes 433 --verbose

  # Validate and run a saved query file
  asteroids validate queries/close-fast.yaml
  asteroids run queries/close-fast.yaml`,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetLevelAndFormat(resolveLogLevel(), resolveLogFormat())
	},
}

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Query close approaches by attribute criteria",
	Long: `Query the close approach dataset with attribute filters.

Every given criterion must hold for an approach to match; with no
criteria every approach matches. Date flags take calendar dates
(YYYY-MM-DD) compared at day granularity. Bounds are inclusive, and
objects with an unknown diameter never satisfy a diameter bound.

The output format is taken from --output-format, or inferred from the
--output-path extension (.csv, .json). Without a path, results stream
to stdout; without a format or template they render as one summary
line per approach.

Exit codes:
  0 - Query completed
  1 - Invalid filter criteria or output configuration
  3 - Dataset or output failure

Examples:
  asteroids query --date 2020-01-01
  asteroids query --max-distance 0.05 --min-velocity 20 --limit 5
  asteroids query --hazardous --where 'neo.diameter_km > 1' --output-path big.json
  asteroids query --min-diameter 0.5 --dry-run`,
	Args: cobra.NoArgs,
	Run:  runQuery,
}

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Inspect one near-Earth object",
	Long: `Inspect a single near-Earth object by primary designation or
by IAU name. With --verbose the object's recorded close approaches are
listed as well.

Exit codes:
  0 - Object found
  1 - No object matches
  3 - Dataset failure

Examples:
  asteroids inspect --pdes 433
  asteroids inspect --name Eros --verbose`,
	Args: cobra.NoArgs,
	Run:  runInspect,
}

var validateCmd = &cobra.Command{
	Use:   "validate <query-file>",
	Short: "Validate a saved query file",
	Long: `Validate a saved query file against the schema.

Supports both JSON and YAML formats. The format is auto-detected
based on file extension (.json, .yaml, .yml) or content.

Exit codes:
  0 - Query file is valid
  1 - Validation errors (schema violations)
  2 - Parse errors (invalid JSON/YAML syntax)

Examples:
  asteroids validate queries/close-fast.json
  asteroids validate --verbose queries/close-fast.yaml`,
	Args: cobra.ExactArgs(1),
	Run:  runValidate,
}

var runCmd = &cobra.Command{
	Use:   "run <query-file>",
	Short: "Run a saved query file",
	Long: `Run a query defined in a saved query file.

The file is first validated against the schema. If validation fails,
the query will not be executed.

Flags:
  --dry-run   Build the filter set and count matches without writing output

Exit codes:
  0 - Query completed
  1 - Validation errors or invalid filter criteria
  2 - Parse errors
  3 - Dataset or output failure

Examples:
  asteroids run queries/close-fast.json
  asteroids run --dry-run queries/close-fast.yaml`,
	Args: cobra.ExactArgs(1),
	Run:  runQueryFile,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  "Print version, commit hash, and build date information.",
	Run:   runVersion,
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Suppress non-error output")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "human", "Log format (json, human)")

	// Dataset flags
	for _, cmd := range []*cobra.Command{queryCmd, inspectCmd, runCmd} {
		cmd.Flags().StringVar(&neoFile, "neofile", defaultNEOFile, "Path to the NEO dataset (CSV)")
		cmd.Flags().StringVar(&cadFile, "cadfile", defaultCADFile, "Path to the close approach dataset (JSON)")
	}

	// Query command flags
	queryCmd.Flags().StringVar(&dateFlag, "date", "", "Match approaches on exactly this date (YYYY-MM-DD)")
	queryCmd.Flags().StringVar(&startDateFlag, "start-date", "", "Match approaches on or after this date (YYYY-MM-DD)")
	queryCmd.Flags().StringVar(&endDateFlag, "end-date", "", "Match approaches on or before this date (YYYY-MM-DD)")
	queryCmd.Flags().Float64Var(&minDistance, "min-distance", 0, "Minimum approach distance in au, inclusive")
	queryCmd.Flags().Float64Var(&maxDistance, "max-distance", 0, "Maximum approach distance in au, inclusive")
	queryCmd.Flags().Float64Var(&minVelocity, "min-velocity", 0, "Minimum relative velocity in km/s, inclusive")
	queryCmd.Flags().Float64Var(&maxVelocity, "max-velocity", 0, "Maximum relative velocity in km/s, inclusive")
	queryCmd.Flags().Float64Var(&minDiameter, "min-diameter", 0, "Minimum object diameter in km, inclusive")
	queryCmd.Flags().Float64Var(&maxDiameter, "max-diameter", 0, "Maximum object diameter in km, inclusive")
	queryCmd.Flags().BoolVar(&hazardous, "hazardous", false, "Match only potentially hazardous objects")
	queryCmd.Flags().BoolVar(&notHazardous, "not-hazardous", false, "Match only objects that are not potentially hazardous")
	queryCmd.MarkFlagsMutuallyExclusive("hazardous", "not-hazardous")
	queryCmd.Flags().StringVar(&whereExpr, "where", "", "Expression predicate over the serialized approach")
	queryCmd.Flags().StringVar(&scriptFile, "script-file", "", "JavaScript file defining matches(approach)")
	queryCmd.Flags().IntVar(&limitFlag, "limit", -1, "Maximum number of results (0 produces none; omit for unbounded)")
	queryCmd.Flags().StringVar(&outputFormat, "output-format", "", "Output format (csv, json, template)")
	queryCmd.Flags().StringVar(&outputPath, "output-path", "", "Output file path (omit for stdout)")
	queryCmd.Flags().StringVar(&templateFlag, "template", "", "Per-record template for template output")
	queryCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Build the filter set and count matches without writing output")

	// Inspect command flags
	inspectCmd.Flags().StringVar(&inspectPdes, "pdes", "", "Primary designation of the object")
	inspectCmd.Flags().StringVar(&inspectName, "name", "", "IAU name of the object")
	inspectCmd.MarkFlagsMutuallyExclusive("pdes", "name")
	inspectCmd.MarkFlagsOneRequired("pdes", "name")

	// Run command flags
	runCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Build the filter set and count matches without writing output")

	// Add commands
	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(versionCmd)
}

// resolveLogLevel picks the log level from --verbose/--quiet, the
// --log-level flag, or the ASTEROIDS_LOG_LEVEL environment variable, in
// that order of precedence.
func resolveLogLevel() slog.Level {
	if verbose {
		return slog.LevelDebug
	}
	if quiet {
		return slog.LevelError
	}

	name := logLevel
	if name == "" {
		name = os.Getenv("ASTEROIDS_LOG_LEVEL")
	}

	switch name {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// resolveLogFormat maps the --log-format flag to a logger format.
func resolveLogFormat() logger.OutputFormat {
	if logFormat == "json" {
		return logger.FormatJSON
	}
	return logger.FormatHuman
}

// exitCodeFor maps a classified error to the CLI exit code.
func exitCodeFor(err error) int {
	switch errhandling.GetErrorCategory(err) {
	case errhandling.CategoryConfiguration, errhandling.CategoryValidation, errhandling.CategoryNotFound:
		return ExitValidationError
	case errhandling.CategoryParse:
		return ExitParseError
	default:
		return ExitRuntimeError
	}
}

// buildCriteria collects query criteria from the command's flags.
// Only flags the user actually set become criteria, so a zero value
// like --min-distance 0 still constrains the query when given.
func buildCriteria(cmd *cobra.Command) (query.Criteria, error) {
	var criteria query.Criteria
	flags := cmd.Flags()

	for _, f := range []struct {
		name  string
		value string
		dest  **time.Time
	}{
		{"date", dateFlag, &criteria.Date},
		{"start-date", startDateFlag, &criteria.StartDate},
		{"end-date", endDateFlag, &criteria.EndDate},
	} {
		if !flags.Changed(f.name) {
			continue
		}
		parsed, err := time.Parse(dateLayout, f.value)
		if err != nil {
			return query.Criteria{}, errhandling.NewConfigurationError(
				fmt.Sprintf("invalid --%s: %q is not a valid calendar date (expected YYYY-MM-DD)", f.name, f.value), err)
		}
		parsed = parsed.UTC()
		*f.dest = &parsed
	}

	for _, f := range []struct {
		name  string
		value float64
		dest  **float64
	}{
		{"min-distance", minDistance, &criteria.MinDistance},
		{"max-distance", maxDistance, &criteria.MaxDistance},
		{"min-velocity", minVelocity, &criteria.MinVelocity},
		{"max-velocity", maxVelocity, &criteria.MaxVelocity},
		{"min-diameter", minDiameter, &criteria.MinDiameter},
		{"max-diameter", maxDiameter, &criteria.MaxDiameter},
	} {
		if !flags.Changed(f.name) {
			continue
		}
		if f.value < 0 {
			return query.Criteria{}, errhandling.NewConfigurationError(
				fmt.Sprintf("invalid --%s: must not be negative, got %v", f.name, f.value), nil)
		}
		value := f.value
		*f.dest = &value
	}

	if flags.Changed("hazardous") {
		value := true
		criteria.Hazardous = &value
	}
	if flags.Changed("not-hazardous") {
		value := false
		criteria.Hazardous = &value
	}

	criteria.Where = whereExpr
	criteria.ScriptFile = scriptFile

	return criteria, nil
}

// loadDatabase loads and links the datasets for commands that read them
// outside an executor.
func loadDatabase(cmd *cobra.Command) (*database.NEODatabase, error) {
	loader := &runtime.FileLoader{NEOPath: neoFile, CADPath: cadFile}
	return loader.Load(cmd.Context())
}

func runQuery(cmd *cobra.Command, _ []string) {
	criteria, err := buildCriteria(cmd)
	if err != nil {
		fmt.Fprintf(os.Stderr, "✗ %v\n", err)
		os.Exit(ExitValidationError)
	}

	filters, err := factory.BuildFilters(criteria)
	if err != nil {
		fmt.Fprintf(os.Stderr, "✗ %v\n", err)
		os.Exit(exitCodeFor(err))
	}

	execQuery("ad-hoc", filters, limitFlag, outputFormat, outputPath, templateFlag, cmd)
}

func runInspect(cmd *cobra.Command, _ []string) {
	db, err := loadDatabase(cmd)
	if err != nil {
		fmt.Fprintf(os.Stderr, "✗ Failed to load dataset: %v\n", err)
		os.Exit(ExitRuntimeError)
	}

	n, err := lookupNEO(db)
	if err != nil {
		fmt.Fprintf(os.Stderr, "✗ %v\n", err)
		os.Exit(exitCodeFor(err))
	}

	cli.PrintNEO(n, verbose)
	os.Exit(ExitSuccess)
}

// lookupNEO resolves the inspected object from the --pdes or --name flag.
func lookupNEO(db *database.NEODatabase) (*neo.NearEarthObject, error) {
	if inspectPdes != "" {
		return db.GetByDesignation(inspectPdes)
	}
	return db.GetByName(inspectName)
}

func runValidate(_ *cobra.Command, args []string) {
	queryPath := args[0]

	if !quiet {
		fmt.Printf("Validating query file: %s\n", queryPath)
	}

	result := config.ParseQueryFile(queryPath)

	if !result.IsValid() {
		cli.PrintQueryFileErrors(result, verbose, quiet)
		if len(result.ParseErrors) > 0 {
			os.Exit(ExitParseError)
		}
		os.Exit(ExitValidationError)
	}

	if !quiet {
		fmt.Printf("✓ Query file is valid (format: %s)\n", result.Format)
		if verbose {
			cli.PrintQuerySummary(result.Data)
		}
	}

	os.Exit(ExitSuccess)
}

func runQueryFile(cmd *cobra.Command, args []string) {
	queryPath := args[0]

	if !quiet {
		fmt.Printf("Loading query file: %s\n", queryPath)
	}

	result := config.ParseQueryFile(queryPath)

	if !result.IsValid() {
		cli.PrintQueryFileErrors(result, verbose, quiet)
		if len(result.ParseErrors) > 0 {
			os.Exit(ExitParseError)
		}
		os.Exit(ExitValidationError)
	}

	qf, err := config.ConvertToQuery(result.Data)
	if err != nil {
		fmt.Fprintf(os.Stderr, "✗ Failed to convert query file: %v\n", err)
		os.Exit(ExitValidationError)
	}

	if verbose {
		fmt.Printf("  Query: %s\n", qf.Name)
		if qf.Description != "" {
			fmt.Printf("  Description: %s\n", qf.Description)
		}
	}

	filters, err := factory.BuildFilters(qf.Criteria)
	if err != nil {
		fmt.Fprintf(os.Stderr, "✗ %v\n", err)
		os.Exit(exitCodeFor(err))
	}

	execQuery(qf.Name, filters, qf.Limit, qf.Output.Format, qf.Output.Path, qf.Output.Template, cmd)
}

// execQuery resolves the output destination, runs the executor, and
// exits with the mapped code. Shared by the query and run commands.
func execQuery(name string, filters []query.Filter, limit int, format, path, template string, cmd *cobra.Command) {
	if path != "" {
		if err := pathutil.ValidateFilePath(path); err != nil {
			fmt.Fprintf(os.Stderr, "✗ Invalid output path: %v\n", err)
			os.Exit(ExitValidationError)
		}
	}

	format, template, err := factory.ResolveOutput(format, path, template)
	if err != nil {
		fmt.Fprintf(os.Stderr, "✗ %v\n", err)
		os.Exit(exitCodeFor(err))
	}

	var writer output.Writer
	if !dryRun {
		writer, err = factory.CreateWriter(format, path, template)
		if err != nil {
			fmt.Fprintf(os.Stderr, "✗ %v\n", err)
			os.Exit(exitCodeFor(err))
		}
	}

	loader := &runtime.FileLoader{NEOPath: neoFile, CADPath: cadFile}
	executor := runtime.NewExecutor(loader, filters, limit, writer, dryRun)

	execResult, err := executor.ExecuteWithContext(cmd.Context(), &runtime.Query{
		Name:         name,
		OutputFormat: format,
		OutputPath:   path,
	})

	cli.PrintQueryResult(execResult, err, cli.OutputOptions{
		Verbose: verbose,
		Quiet:   quiet,
		DryRun:  dryRun,
	})

	if err != nil {
		os.Exit(exitCodeFor(err))
	}

	os.Exit(ExitSuccess)
}

func runVersion(_ *cobra.Command, _ []string) {
	fmt.Printf("Version: %s\n", version)
	fmt.Printf("Commit: %s\n", commit)
	fmt.Printf("Build Date: %s\n", buildDate)
}
