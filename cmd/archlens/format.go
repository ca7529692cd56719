package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"gopkg.in/yaml.v3"

	"archlens/internal/architecture"
	archerrors "archlens/internal/errors"
	"archlens/internal/rules"
	"archlens/internal/version"
	"archlens/internal/violations"
)

// outputFormat is the --format value of a command.
type outputFormat string

const (
	formatHuman outputFormat = "human"
	formatJSON  outputFormat = "json"
	formatYAML  outputFormat = "yaml"
	formatTOML  outputFormat = "toml"
	formatSARIF outputFormat = "sarif"
)

func (f outputFormat) valid(allowed ...outputFormat) bool {
	for _, a := range allowed {
		if f == a {
			return true
		}
	}
	return false
}

// resultView is the machine-readable form of one analyzed root.
type resultView struct {
	Root        string                    `json:"root" yaml:"root"`
	RunID       string                    `json:"runId,omitempty" yaml:"runId,omitempty"`
	Project     string                    `json:"project,omitempty" yaml:"project,omitempty"`
	Analyzer    string                    `json:"analyzer,omitempty" yaml:"analyzer,omitempty"`
	DurationMs  int64                     `json:"durationMs" yaml:"durationMs"`
	Warnings    []violations.Warning      `json:"warnings" yaml:"warnings"`
	Entrypoints []architecture.Entrypoint `json:"entrypoints,omitempty" yaml:"entrypoints,omitempty"`
	Stats       *architecture.Stats       `json:"stats,omitempty" yaml:"stats,omitempty"`
	Error       *errorView                `json:"error,omitempty" yaml:"error,omitempty"`
}

type errorView struct {
	Code           archerrors.ErrorCode   `json:"code" yaml:"code"`
	Message        string                 `json:"message" yaml:"message"`
	Details        any                    `json:"details,omitempty" yaml:"details,omitempty"`
	SuggestedFixes []archerrors.FixAction `json:"suggestedFixes,omitempty" yaml:"suggestedFixes,omitempty"`
}

func newErrorView(err error) *errorView {
	var e *archerrors.Error
	if !errors.As(err, &e) {
		return &errorView{Code: archerrors.InternalError, Message: err.Error()}
	}
	msg := e.Message
	if cause := errors.Unwrap(e); cause != nil {
		msg += ": " + cause.Error()
	}
	return &errorView{Code: e.Code, Message: msg, Details: e.Details, SuggestedFixes: e.SuggestedFixes}
}

func newResultView(r analyzeResult) resultView {
	v := resultView{Root: r.Root, Warnings: []violations.Warning{}}
	if r.Err != nil {
		v.Error = newErrorView(r.Err)
		return v
	}
	rep := r.Report
	v.RunID = rep.RunID
	if rep.Project != nil {
		v.Project = rep.Project.Name
	}
	if rep.Analyzer != nil {
		v.Analyzer = strings.TrimSpace(rep.Analyzer.Name + " " + rep.Analyzer.Version)
	}
	v.DurationMs = rep.Duration.Milliseconds()
	if rep.Warnings != nil {
		v.Warnings = rep.Warnings
	}
	v.Entrypoints = rep.Entries
	stats := rep.Stats
	v.Stats = &stats
	return v
}

// writeResults renders analyze results. A single root renders as one
// object, several as a list.
func writeResults(w io.Writer, results []analyzeResult, format outputFormat) error {
	views := make([]resultView, len(results))
	for i, r := range results {
		views[i] = newResultView(r)
	}

	var payload any = views
	if len(views) == 1 {
		payload = views[0]
	}

	switch format {
	case formatJSON:
		return writeJSON(w, payload)
	case formatYAML:
		return writeYAML(w, payload)
	case formatSARIF:
		out, err := formatWarningsAsSARIF(results, version.Version)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, out)
		return err
	default:
		for i, v := range views {
			if i > 0 {
				fmt.Fprintln(w)
			}
			writeResultHuman(w, v)
		}
		return nil
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeCompactJSON(w io.Writer, v any) error {
	return json.NewEncoder(w).Encode(v)
}

func writeYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}

func writeResultHuman(w io.Writer, v resultView) {
	title := v.Root
	if v.Project != "" {
		title = fmt.Sprintf("%s (%s)", v.Root, v.Project)
	}
	fmt.Fprintln(w, title)

	if v.Error != nil {
		fmt.Fprintf(w, "  analysis unavailable [%s]: %s\n", v.Error.Code, v.Error.Message)
		for _, fix := range v.Error.SuggestedFixes {
			if fix.Command != "" {
				fmt.Fprintf(w, "  hint: %s (%s)\n", fix.Description, fix.Command)
			} else {
				fmt.Fprintf(w, "  hint: %s\n", fix.Description)
			}
		}
		return
	}

	if len(v.Warnings) == 0 {
		fmt.Fprintln(w, "  no architecture warnings")
	} else {
		t := table.NewWriter()
		t.SetOutputMirror(w)
		t.SetStyle(table.StyleLight)
		t.AppendHeader(table.Row{"Severity", "Type", "File", "Message"})
		for _, warn := range sortedWarnings(v.Warnings) {
			file := warn.Path
			if warn.FileID != "" && warn.FileID != warn.Path {
				file = fmt.Sprintf("%s [%s]", warn.Path, warn.FileID)
			}
			t.AppendRow(table.Row{warn.Severity, warn.Type, file, warn.Message})
		}
		t.Render()
	}

	if v.Stats != nil {
		fmt.Fprintf(w, "%d warnings (%s) · %d modules, %d edges, %d in cycles · %dms\n",
			len(v.Warnings), countsLine(v.Stats.ByType), v.Stats.Modules, v.Stats.Edges, v.Stats.CycleMembers, v.DurationMs)
		if v.Stats.Dropped > 0 {
			fmt.Fprintf(w, "%d warnings dropped for modules without an identifier\n", v.Stats.Dropped)
		}
	}
}

// sortedWarnings orders by severity, then type, then path.
func sortedWarnings(ws []violations.Warning) []violations.Warning {
	out := append([]violations.Warning(nil), ws...)
	sort.SliceStable(out, func(i, j int) bool {
		if ri, rj := out[i].Severity.Rank(), out[j].Severity.Rank(); ri != rj {
			return ri > rj
		}
		if out[i].Type != out[j].Type {
			return out[i].Type < out[j].Type
		}
		return out[i].Path < out[j].Path
	})
	return out
}

func countsLine(counts map[violations.Type]int) string {
	parts := make([]string, 0, 3)
	for _, t := range []violations.Type{violations.TypeCircular, violations.TypeLayer, violations.TypeEntryBloat} {
		parts = append(parts, fmt.Sprintf("%d %s", counts[t], t))
	}
	return strings.Join(parts, ", ")
}

// writeRuleSetHuman prints a rule set as a table.
func writeRuleSetHuman(w io.Writer, rs rules.RuleSet) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Rule", "Severity", "From", "To"})
	for _, r := range rs.Forbidden {
		to := describePattern(r.To)
		if r.Circular {
			to = "(circular)"
		}
		t.AppendRow(table.Row{r.Name, r.Severity, describePattern(r.From), to})
	}
	eb := rs.Options.EntryBloat
	if !eb.Disabled {
		t.AppendRow(table.Row{rules.EntryBloatRule, eb.Severity, "*", fmt.Sprintf("> %d direct dependencies", eb.Threshold)})
	}
	t.Render()

	source := rs.Source
	if source == "" {
		source = "built-in defaults"
	}
	fmt.Fprintf(w, "source: %s · tsPreCompilationDeps=%v · trustToolCycles=%v\n",
		source, rs.Options.TSPreCompilationDeps, rs.Options.TrustToolCycles)
}

func describePattern(p rules.PathPattern) string {
	switch {
	case p.Path == "" && p.PathNot == "":
		return "*"
	case p.PathNot == "":
		return p.Path
	case p.Path == "":
		return "not " + p.PathNot
	default:
		return p.Path + " not " + p.PathNot
	}
}
