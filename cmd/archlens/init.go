package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"archlens/internal/config"
	archerrors "archlens/internal/errors"
	"archlens/internal/paths"
	"archlens/internal/project"
	"archlens/internal/rules"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init [root]",
	Short: "Initialize archlens settings and a starter rule document",
	Long: `Creates .archlens/config.json with default settings and, unless the
project already has a rule document, a .archlens.yaml with the built-in
rules to edit.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "Overwrite existing settings and starter rules")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	root, err := rootArg(args, 0)
	if err != nil {
		return usageError(err)
	}
	logger, err := newLogger(nil)
	if err != nil {
		return usageError(err)
	}

	settingsPath := filepath.Join(paths.DataDir(root), "config.json")
	if _, statErr := os.Stat(settingsPath); statErr == nil && !initForce {
		// already initialized is success
		fmt.Println("archlens already initialized.")
		fmt.Printf("Settings at: %s\n", settingsPath)
		fmt.Println("\nRun 'archlens init --force' to reinitialize.")
		return nil
	}

	cfg := config.DefaultConfig()
	if err := cfg.Save(root); err != nil {
		return archerrors.New(archerrors.InternalError, "failed to write settings", err)
	}
	logger.Info("Wrote settings", "path", settingsPath)
	fmt.Printf("Settings written to %s\n", settingsPath)

	existing := project.FindRuleConfig(root)
	starter := filepath.Join(root, ".archlens.yaml")
	if existing != "" && (existing != starter || !initForce) {
		fmt.Printf("Using existing rule document %s\n", existing)
		return nil
	}
	if err := writeStarterRules(starter); err != nil {
		return archerrors.New(archerrors.InternalError, "failed to write starter rules", err)
	}
	fmt.Printf("Starter rules written to %s\n", starter)
	return nil
}

// writeStarterRules writes the built-in rule set as an editable YAML rule document.
func writeStarterRules(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	fmt.Fprintln(f, "# archlens rule document. Rules named like a built-in rule replace it.")
	if err := writeYAML(f, rules.Defaults()); err != nil {
		return err
	}
	return f.Close()
}
