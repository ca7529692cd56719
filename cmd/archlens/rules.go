package main

import (
	"fmt"
	"io"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"

	"archlens/internal/architecture"
	"archlens/internal/rules"
)

var (
	rulesFormat string
	rulesFile   string
)

var rulesCmd = &cobra.Command{
	Use:   "rules [root]",
	Short: "Show the effective rule set for a project",
	Long: `Print the built-in rules merged with the project's rule document.

A project rule with the same name as a built-in rule replaces it; other
rules are added after the built-in ones.

Examples:
  archlens rules
  archlens rules --format=yaml > .archlens.yaml
  archlens rules --format=toml --rules=custom.json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRules,
}

func init() {
	rulesCmd.Flags().StringVar(&rulesFormat, "format", "human", "Output format (human, json, yaml, toml)")
	rulesCmd.Flags().StringVar(&rulesFile, "rules", "", "Rule document (default: discovered at the project root)")
	rootCmd.AddCommand(rulesCmd)
}

func runRules(cmd *cobra.Command, args []string) error {
	format := outputFormat(rulesFormat)
	if !format.valid(formatHuman, formatJSON, formatYAML, formatTOML) {
		return usageError(fmt.Errorf("unsupported format %q", rulesFormat))
	}
	root, err := rootArg(args, 0)
	if err != nil {
		return usageError(err)
	}
	cfg, logger, err := loadConfig(root)
	if err != nil {
		return usageError(err)
	}

	rs, _, err := architecture.NewAnalyzer(cfg, logger).EffectiveRuleSet(root, rulesFile)
	if err != nil {
		return &exitError{code: exitCodeForError(err), err: err}
	}
	return writeRuleSet(os.Stdout, rs, format)
}

func writeRuleSet(w io.Writer, rs rules.RuleSet, format outputFormat) error {
	switch format {
	case formatJSON:
		return writeJSON(w, rs)
	case formatYAML:
		return writeYAML(w, rs)
	case formatTOML:
		return toml.NewEncoder(w).Encode(rs)
	default:
		writeRuleSetHuman(w, rs)
		return nil
	}
}
