package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"archlens/internal/project"
	"archlens/internal/rules"
	"archlens/internal/scan"
)

var (
	scanConfig  string
	scanWorkers int
	scanPretty  bool
)

var scanCmd = &cobra.Command{
	Use:   "scan [--config rules] <root>",
	Short: "Bundled dependency analyzer (JSON on stdout)",
	Long: `Scan a TypeScript/JavaScript project and write its module dependency
document to stdout. This is the analyzer used by "archlens analyze --builtin";
its output has the same shape as dependency-cruiser's JSON reporter.

Path aliases come from tsconfig.json or jsconfig.json at the root. With
--config, options.tsPreCompilationDeps of the rule document decides whether
"import type" statements count as dependencies.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runScan,
}

func init() {
	scanCmd.Flags().StringVar(&scanConfig, "config", "", "Rule document to read options from")
	scanCmd.Flags().IntVar(&scanWorkers, "workers", 0, "Files parsed in parallel (default: GOMAXPROCS)")
	scanCmd.Flags().BoolVar(&scanPretty, "pretty", false, "Indent the JSON output")
	rootCmd.AddCommand(scanCmd)
}

func runScan(cmd *cobra.Command, args []string) error {
	logger, err := newLogger(nil)
	if err != nil {
		return usageError(err)
	}
	root, err := rootArg(args, 0)
	if err != nil {
		return usageError(err)
	}
	if info, err := os.Stat(root); err != nil || !info.IsDir() {
		return usageError(fmt.Errorf("not a directory: %s", root))
	}

	opts := rules.DefaultOptions()
	if scanConfig != "" {
		rs, err := rules.Load(scanConfig)
		if err != nil {
			return &exitError{code: 1, err: err}
		}
		opts = rs.Options
	}

	resolution, err := project.LoadResolution(root)
	if err != nil {
		logger.Warn("Ignoring module resolution config", "error", err.Error())
	}

	ctx, cancel := newContext()
	defer cancel()

	doc, err := scan.New(root, scan.Options{
		TSPreCompilationDeps: opts.TSPreCompilationDeps,
		Resolution:           resolution,
		Workers:              scanWorkers,
		Logger:               logger,
	}).Scan(ctx)
	if err != nil {
		return &exitError{code: 1, err: err}
	}

	if scanPretty {
		return writeJSON(os.Stdout, doc)
	}
	return writeCompactJSON(os.Stdout, doc)
}
