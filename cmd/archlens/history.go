package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"archlens/internal/history"
)

var (
	historyRoot     string
	historyFormat   string
	historyLimit    int
	historyKeep     int
	historyDocument bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect recorded analysis runs",
	Long: `Runs are recorded by "archlens analyze --record" or with history.enabled
in the settings file. The database lives at <root>/.archlens/history.db
unless history.path says otherwise.`,
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent runs, newest first",
	Args:  cobra.NoArgs,
	RunE:  runHistoryList,
}

var historyShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show one run and its warnings",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryShow,
}

var historyPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete all but the newest runs of each project",
	Args:  cobra.NoArgs,
	RunE:  runHistoryPrune,
}

func init() {
	historyCmd.PersistentFlags().StringVar(&historyRoot, "root", ".", "Project root whose history database is used")
	historyCmd.PersistentFlags().StringVar(&historyFormat, "format", "human", "Output format (human, json, yaml)")
	historyListCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Number of runs to show")
	historyShowCmd.Flags().BoolVar(&historyDocument, "document", false, "Print the stored analyzer document instead")
	historyPruneCmd.Flags().IntVar(&historyKeep, "keep", -1, "Runs to keep per project (default: history.keep)")

	historyCmd.AddCommand(historyListCmd, historyShowCmd, historyPruneCmd)
	rootCmd.AddCommand(historyCmd)
}

// openHistory opens the history database of --root.
func openHistory() (*history.Store, string, int, error) {
	root, err := rootArg([]string{historyRoot}, 0)
	if err != nil {
		return nil, "", 0, err
	}
	cfg, logger, err := loadConfig(root)
	if err != nil {
		return nil, "", 0, err
	}
	store, err := history.Open(cfg.HistoryPath(root), logger)
	if err != nil {
		return nil, "", 0, err
	}
	return store, root, cfg.History.Keep, nil
}

func runHistoryList(cmd *cobra.Command, args []string) error {
	format := outputFormat(historyFormat)
	if !format.valid(formatHuman, formatJSON, formatYAML) {
		return usageError(fmt.Errorf("unsupported format %q", historyFormat))
	}
	store, root, _, err := openHistory()
	if err != nil {
		return usageError(err)
	}
	defer func() { _ = store.Close() }()

	ctx, cancel := newContext()
	defer cancel()
	runs, err := store.ListRuns(ctx, root, historyLimit)
	if err != nil {
		return err
	}

	switch format {
	case formatJSON:
		return writeJSON(os.Stdout, runs)
	case formatYAML:
		return writeYAML(os.Stdout, runs)
	}
	writeRunsHuman(os.Stdout, runs)
	return nil
}

func runHistoryShow(cmd *cobra.Command, args []string) error {
	format := outputFormat(historyFormat)
	if !format.valid(formatHuman, formatJSON, formatYAML) {
		return usageError(fmt.Errorf("unsupported format %q", historyFormat))
	}
	store, _, _, err := openHistory()
	if err != nil {
		return usageError(err)
	}
	defer func() { _ = store.Close() }()

	ctx, cancel := newContext()
	defer cancel()

	if historyDocument {
		doc, err := store.RunDocument(ctx, args[0])
		if err != nil {
			return usageError(err)
		}
		if doc == nil {
			return usageError(fmt.Errorf("run %s has no stored document", args[0]))
		}
		_, err = os.Stdout.Write(append(doc, '\n'))
		return err
	}

	run, err := store.GetRun(ctx, args[0])
	if err != nil {
		return usageError(err)
	}
	switch format {
	case formatJSON:
		return writeJSON(os.Stdout, run)
	case formatYAML:
		return writeYAML(os.Stdout, run)
	}

	writeRunsHuman(os.Stdout, []history.Run{*run})
	if run.ErrorMessage != "" {
		fmt.Fprintf(os.Stdout, "error: %s\n", run.ErrorMessage)
	}
	if len(run.Warnings) > 0 {
		writeResultHuman(os.Stdout, resultView{Root: run.Root, Warnings: run.Warnings})
	}
	return nil
}

func runHistoryPrune(cmd *cobra.Command, args []string) error {
	store, _, keep, err := openHistory()
	if err != nil {
		return usageError(err)
	}
	defer func() { _ = store.Close() }()

	if historyKeep >= 0 {
		keep = historyKeep
	}
	ctx, cancel := newContext()
	defer cancel()

	removed, err := store.Prune(ctx, keep)
	if err != nil {
		return err
	}
	fmt.Printf("Removed %d runs (keeping %d per project)\n", removed, keep)
	return nil
}

func writeRunsHuman(w io.Writer, runs []history.Run) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "No recorded runs.")
		return
	}
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Run", "Started", "Status", "Warnings", "Modules", "Edges", "Duration"})
	for _, r := range runs {
		status := string(r.Status)
		if r.ErrorCode != "" {
			status += " " + r.ErrorCode
		}
		t.AppendRow(table.Row{
			r.ID,
			r.StartedAt.Local().Format(time.DateTime),
			status,
			r.WarningCount,
			r.Modules,
			r.Edges,
			r.Duration.Round(time.Millisecond),
		})
	}
	t.Render()
}
