package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"archlens/internal/architecture"
	"archlens/internal/config"
	archerrors "archlens/internal/errors"
	"archlens/internal/history"
	"archlens/internal/identity"
	"archlens/internal/rules"
	"archlens/internal/violations"
)

var (
	analyzeFormat    string
	analyzeIDs       string
	analyzeBuiltin   bool
	analyzeRules     string
	analyzeRecord    bool
	analyzeFailOn    string
	analyzeTimeout   time.Duration
	analyzeJobs      int
	analyzeThreshold int
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [root...]",
	Short: "Check project dependency graphs against architecture rules",
	Long: `Run the dependency analyzer over each project root and report circular
dependencies, layer violations and entry bloat.

Without --ids every module is identified by its root-relative path.
With --ids only modules present in the JSON path→id map are reported.

Exit codes:
  0  no warnings at or above --fail-on
  1  warnings at or above --fail-on
  2  analysis unavailable (analyzer missing, timed out, failed or malformed output)
  3  project or configuration not found, invalid arguments

Examples:
  archlens analyze
  archlens analyze --builtin --format=sarif > arch.sarif
  archlens analyze ./web ./admin --jobs=2
  archlens analyze --ids=ids.json --format=json`,
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeFormat, "format", "human", "Output format (human, json, yaml, sarif)")
	analyzeCmd.Flags().StringVar(&analyzeIDs, "ids", "", "JSON file mapping module paths to identifiers")
	analyzeCmd.Flags().BoolVar(&analyzeBuiltin, "builtin", false, "Use the bundled analyzer instead of analyzer.command")
	analyzeCmd.Flags().StringVar(&analyzeRules, "rules", "", "Rule document (default: discovered at the project root)")
	analyzeCmd.Flags().BoolVar(&analyzeRecord, "record", false, "Record the run in the history database")
	analyzeCmd.Flags().StringVar(&analyzeFailOn, "fail-on", "error", "Lowest severity that fails the command (error, warn, info, none)")
	analyzeCmd.Flags().DurationVar(&analyzeTimeout, "timeout", 0, "Analyzer timeout (default: analyzer.timeoutMs)")
	analyzeCmd.Flags().IntVar(&analyzeJobs, "jobs", 4, "Projects analyzed in parallel")
	analyzeCmd.Flags().IntVar(&analyzeThreshold, "entry-bloat-threshold", -1, "Override the entry-bloat threshold")
	rootCmd.AddCommand(analyzeCmd)
}

// analyzeResult is the outcome of analyzing one root.
type analyzeResult struct {
	Root   string
	Report *architecture.Report
	Err    error
}

// descriptorCache is shared by every analyzer of one process.
var descriptorCache = architecture.NewDescriptorCache()

type analyzeJob struct {
	root   string
	cfg    *config.Config
	ids    map[string]string
	logger *slog.Logger
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	format := outputFormat(analyzeFormat)
	if !format.valid(formatHuman, formatJSON, formatYAML, formatSARIF) {
		return usageError(fmt.Errorf("unsupported format %q", analyzeFormat))
	}
	failOn, err := parseFailOn(analyzeFailOn)
	if err != nil {
		return usageError(err)
	}
	if len(args) == 0 {
		args = []string{"."}
	}

	var ids map[string]string
	if analyzeIDs != "" {
		if ids, err = identity.LoadMap(analyzeIDs); err != nil {
			return usageError(err)
		}
	}

	// configs and the logger are set up before fanning out
	jobs := make([]analyzeJob, len(args))
	for i := range args {
		root, err := rootArg(args, i)
		if err != nil {
			return usageError(err)
		}
		cfg, logger, err := loadConfig(root)
		if err != nil {
			return usageError(err)
		}
		applyAnalyzeFlags(cfg)
		jobs[i] = analyzeJob{root: root, cfg: cfg, ids: ids, logger: logger}
	}

	ctx, cancel := newContext()
	defer cancel()

	results := make([]analyzeResult, len(jobs))
	var g errgroup.Group
	g.SetLimit(max(analyzeJobs, 1))
	for i, job := range jobs {
		g.Go(func() error {
			results[i] = analyzeRoot(ctx, job)
			return nil
		})
	}
	_ = g.Wait()

	if err := writeResults(os.Stdout, results, format); err != nil {
		return &exitError{code: exitUsage, err: err}
	}
	if code := exitCode(results, failOn); code != exitOK {
		return &exitError{code: code}
	}
	return nil
}

func applyAnalyzeFlags(cfg *config.Config) {
	if analyzeBuiltin {
		cfg.Analyzer.Builtin = true
	}
	if analyzeRules != "" {
		cfg.Rules.ConfigFile = analyzeRules
	}
	if analyzeThreshold >= 0 {
		cfg.Rules.EntryBloatThreshold = analyzeThreshold
	}
	if analyzeRecord {
		cfg.History.Enabled = true
	}
}

func analyzeRoot(ctx context.Context, job analyzeJob) analyzeResult {
	analyzer := architecture.NewAnalyzer(job.cfg, job.logger)
	analyzer.Cache = descriptorCache
	started := time.Now()

	report, err := analyzer.Run(ctx, architecture.Request{
		Root:    job.root,
		IDs:     job.ids,
		Timeout: analyzeTimeout,
	})
	if job.cfg.History.Enabled && !archerrors.Is(err, archerrors.ConfigNotFound) {
		record(ctx, job, report, started, err)
	}
	return analyzeResult{Root: job.root, Report: report, Err: err}
}

// record stores a run in the history database. Failures are logged only.
func record(ctx context.Context, job analyzeJob, report *architecture.Report, started time.Time, runErr error) {
	store, err := history.Open(job.cfg.HistoryPath(job.root), job.logger)
	if err != nil {
		job.logger.Warn("Run history unavailable", "error", err.Error())
		return
	}
	defer func() { _ = store.Close() }()

	if runErr != nil {
		_, err = store.RecordFailure(ctx, job.root, started, runErr)
	} else {
		err = store.RecordRun(ctx, report)
	}
	if err != nil {
		job.logger.Warn("Failed to record run", "error", err.Error())
		return
	}
	if job.cfg.History.Keep > 0 {
		if _, err := store.Prune(ctx, job.cfg.History.Keep); err != nil {
			job.logger.Warn("Failed to prune run history", "error", err.Error())
		}
	}
}

// parseFailOn maps --fail-on to a minimum severity. "none" never fails.
func parseFailOn(s string) (rules.Severity, error) {
	if s == "none" {
		return "", nil
	}
	sev := rules.Severity(s)
	if !sev.Valid() || sev == rules.SeverityIgnore {
		return "", fmt.Errorf("invalid --fail-on %q (error, warn, info, none)", s)
	}
	return sev, nil
}

// exitCode picks the process exit code for a set of results: the most
// severe failure wins, then violations at or above failOn.
func exitCode(results []analyzeResult, failOn rules.Severity) int {
	code := exitOK
	for _, r := range results {
		if r.Err != nil {
			code = max(code, exitCodeForError(r.Err))
		}
	}
	if code != exitOK || failOn == "" {
		return code
	}
	for _, r := range results {
		if r.Report != nil && violations.MaxSeverity(r.Report.Warnings).Rank() >= failOn.Rank() {
			return exitViolations
		}
	}
	return exitOK
}

func usageError(err error) error {
	return &exitError{code: exitUsage, err: err}
}

// exitCodeForError maps a single command error to an exit code.
func exitCodeForError(err error) int {
	if archerrors.IsAnalysisUnavailable(err) {
		return exitUnavailable
	}
	return exitUsage
}
