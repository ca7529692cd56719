// Package violations turns rule findings into typed warnings.
package violations

import (
	"fmt"

	"archlens/internal/rules"
)

// Type is the category of an architecture warning.
type Type string

const (
	TypeCircular   Type = "circular-dependency"
	TypeLayer      Type = "layer-violation"
	TypeEntryBloat Type = "entry-bloat"
)

// Warning is one architecture problem attached to a module.
// FileID is empty until the identity resolver has run.
type Warning struct {
	Type     Type           `json:"type" yaml:"type"`
	FileID   string         `json:"fileId" yaml:"fileId"`
	Message  string         `json:"message" yaml:"message"`
	Severity rules.Severity `json:"severity" yaml:"severity"`

	Path string `json:"path,omitempty" yaml:"path,omitempty"`
	Rule string `json:"rule,omitempty" yaml:"rule,omitempty"`

	module string
}

// Module returns the absolute path of the module the warning was raised for.
func (w Warning) Module() string {
	return w.module
}

// WithModule returns w attached to the module at path.
func (w Warning) WithModule(path string) Warning {
	w.module = path
	return w
}

// Options tunes classification.
type Options struct {
	// DefaultSeverity applies to circular and layer findings whose rule has no severity.
	DefaultSeverity rules.Severity
	// EntryBloatSeverity applies to entry-bloat findings without a severity.
	EntryBloatSeverity rules.Severity
}

// DefaultOptions returns error for rule findings and warn for entry bloat.
func DefaultOptions() Options {
	return Options{
		DefaultSeverity:    rules.SeverityError,
		EntryBloatSeverity: rules.SeverityWarn,
	}
}

type key struct {
	module string
	typ    Type
}

// Classify maps findings to warnings, keeping only the first warning for
// each (module, type) pair. Input order is preserved.
func Classify(findings []rules.Finding, opts Options) []Warning {
	if opts.DefaultSeverity == "" {
		opts.DefaultSeverity = rules.SeverityError
	}
	if opts.EntryBloatSeverity == "" {
		opts.EntryBloatSeverity = rules.SeverityWarn
	}

	seen := make(map[key]bool, len(findings))
	out := make([]Warning, 0, len(findings))

	for _, f := range findings {
		w, ok := classify(f, opts)
		if !ok {
			continue
		}
		k := key{module: f.Module, typ: w.Type}
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, w)
	}
	return out
}

func classify(f rules.Finding, opts Options) (Warning, bool) {
	w := Warning{
		Severity: f.Severity,
		Path:     f.ModuleRel,
		Rule:     f.Rule,
		module:   f.Module,
	}

	switch f.Kind {
	case rules.KindCircular:
		w.Type = TypeCircular
		w.Message = fmt.Sprintf("Circular dependency: %s is part of an import cycle (%s)", f.ModuleRel, f.Rule)
	case rules.KindPath:
		w.Type = TypeLayer
		w.Message = fmt.Sprintf("Layer violation: %s imports %s (%s)", f.ModuleRel, f.TargetRel, f.Rule)
	case rules.KindFanOut:
		w.Type = TypeEntryBloat
		w.Message = fmt.Sprintf("Entry bloat: %s has %d direct dependencies (threshold %d)", f.ModuleRel, f.Degree, f.Threshold)
		if w.Severity == "" {
			w.Severity = opts.EntryBloatSeverity
		}
	default:
		return Warning{}, false
	}

	if w.Severity == "" {
		w.Severity = opts.DefaultSeverity
	}
	return w, true
}

// Counts tallies warnings by type.
func Counts(ws []Warning) map[Type]int {
	out := make(map[Type]int, 3)
	for _, w := range ws {
		out[w.Type]++
	}
	return out
}

// MaxSeverity returns the most severe severity among ws, or "" for none.
func MaxSeverity(ws []Warning) rules.Severity {
	var top rules.Severity
	for _, w := range ws {
		if w.Severity.Rank() > top.Rank() {
			top = w.Severity
		}
	}
	return top
}
