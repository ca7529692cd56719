package main

import (
	"fmt"
	"io"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"archlens/internal/architecture"
	"archlens/internal/config"
	"archlens/internal/extractor"
	"archlens/internal/project"
)

var doctorFormat string

var doctorCmd = &cobra.Command{
	Use:   "doctor [root]",
	Short: "Diagnose archlens settings and environment",
	Long: `Check that a project can be analyzed: settings, project descriptor,
rule document, module resolution settings, analyzer binary and history
database location. Exits 2 when a check fails.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runDoctor,
}

func init() {
	doctorCmd.Flags().StringVar(&doctorFormat, "format", "human", "Output format (human, json)")
	rootCmd.AddCommand(doctorCmd)
}

type checkStatus string

const (
	checkPass checkStatus = "pass"
	checkWarn checkStatus = "warn"
	checkFail checkStatus = "fail"
)

type doctorCheck struct {
	Name    string      `json:"name"`
	Status  checkStatus `json:"status"`
	Message string      `json:"message"`
}

func runDoctor(cmd *cobra.Command, args []string) error {
	format := outputFormat(doctorFormat)
	if !format.valid(formatHuman, formatJSON) {
		return usageError(fmt.Errorf("unsupported format %q", doctorFormat))
	}
	root, err := rootArg(args, 0)
	if err != nil {
		return usageError(err)
	}

	checks := diagnose(root, extractor.NewRealRunner())

	if format == formatJSON {
		if err := writeJSON(os.Stdout, checks); err != nil {
			return err
		}
	} else {
		writeChecksHuman(os.Stdout, checks)
	}
	for _, c := range checks {
		if c.Status == checkFail {
			return &exitError{code: exitUnavailable}
		}
	}
	return nil
}

// diagnose runs every check for root. Later checks still run when an
// earlier one fails.
func diagnose(root string, runner extractor.ExecRunner) []doctorCheck {
	var checks []doctorCheck

	cfg, logger, err := loadConfig(root)
	if err != nil {
		checks = append(checks, doctorCheck{"settings", checkFail, err.Error()})
		cfg = config.DefaultConfig()
	} else if err := cfg.Validate(); err != nil {
		checks = append(checks, doctorCheck{"settings", checkFail, err.Error()})
	} else {
		checks = append(checks, doctorCheck{"settings", checkPass, "valid"})
	}

	desc, err := project.LoadDescriptor(root)
	if err != nil {
		checks = append(checks, doctorCheck{"project", checkFail, err.Error()})
	} else {
		msg := fmt.Sprintf("%s (%s)", desc.Manifest, project.LanguageDisplayName(desc.Language))
		if desc.Name != "" {
			msg = desc.Name + ": " + msg
		}
		checks = append(checks, doctorCheck{"project", checkPass, msg})
	}

	if desc != nil {
		rs, _, err := architecture.NewAnalyzer(cfg, logger).EffectiveRuleSet(root, cfg.Rules.ConfigFile)
		switch {
		case err != nil:
			checks = append(checks, doctorCheck{"rules", checkFail, err.Error()})
		case desc.HasRuleConfig():
			checks = append(checks, doctorCheck{"rules", checkPass, fmt.Sprintf("%d rules from %s", len(rs.Forbidden), desc.RuleConfig)})
		default:
			checks = append(checks, doctorCheck{"rules", checkWarn, fmt.Sprintf("no rule document, %d built-in rules", len(rs.Forbidden))})
		}
	}

	res, err := project.LoadResolution(root)
	switch {
	case err != nil:
		checks = append(checks, doctorCheck{"resolution", checkWarn, err.Error()})
	case res.File == "":
		checks = append(checks, doctorCheck{"resolution", checkPass, "no tsconfig.json or jsconfig.json"})
	default:
		checks = append(checks, doctorCheck{"resolution", checkPass, fmt.Sprintf("%s (%d aliases)", res.File, len(res.Aliases))})
	}

	if cfg.Analyzer.Builtin {
		checks = append(checks, doctorCheck{"analyzer", checkPass, "built-in scanner"})
	} else if p, err := runner.LookPath(cfg.Analyzer.Command); err != nil {
		checks = append(checks, doctorCheck{"analyzer", checkFail,
			fmt.Sprintf("%s not found on PATH; install it or set analyzer.builtin", cfg.Analyzer.Command)})
	} else if desc != nil && desc.HasRuleConfig() {
		checks = append(checks, doctorCheck{"analyzer", checkWarn,
			fmt.Sprintf("%s; it receives %s and exits non-zero when those rules are violated, which fails the run (use --builtin or analyzer.builtin)",
				p, desc.RuleConfig)})
	} else {
		checks = append(checks, doctorCheck{"analyzer", checkPass, p})
	}

	hp := cfg.HistoryPath(root)
	switch _, err := os.Stat(hp); {
	case err == nil:
		checks = append(checks, doctorCheck{"history", checkPass, hp})
	case !cfg.History.Enabled:
		checks = append(checks, doctorCheck{"history", checkPass, "disabled"})
	default:
		checks = append(checks, doctorCheck{"history", checkWarn, hp + " will be created on first run"})
	}
	return checks
}

func writeChecksHuman(w io.Writer, checks []doctorCheck) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Check", "Status", "Detail"})
	for _, c := range checks {
		t.AppendRow(table.Row{c.Name, c.Status, c.Message})
	}
	t.Render()
}
