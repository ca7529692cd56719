// Package rules defines architecture rules and evaluates them against a
// dependency graph.
package rules

import (
	"fmt"
	"regexp"
)

// Severity of a rule violation.
type Severity string

const (
	SeverityError  Severity = "error"
	SeverityWarn   Severity = "warn"
	SeverityInfo   Severity = "info"
	SeverityIgnore Severity = "ignore"
)

// Valid reports whether s is a known severity. Empty means "use the default".
func (s Severity) Valid() bool {
	switch s {
	case "", SeverityError, SeverityWarn, SeverityInfo, SeverityIgnore:
		return true
	}
	return false
}

// Rank orders severities; higher is more severe.
func (s Severity) Rank() int {
	switch s {
	case SeverityError:
		return 3
	case SeverityWarn:
		return 2
	case SeverityInfo:
		return 1
	}
	return 0
}

// DefaultEntryBloatThreshold is the number of direct dependencies a module
// may have before it is reported as entry bloat.
const DefaultEntryBloatThreshold = 15

// EntryBloatRule names findings produced by the fan-out check.
const EntryBloatRule = "entry-bloat"

// PathPattern selects modules by their root-relative path. Path and PathNot
// are regular expressions matched anywhere in the path. An empty Path matches
// every module.
type PathPattern struct {
	Path    string `json:"path,omitempty" yaml:"path,omitempty" toml:"path,omitempty"`
	PathNot string `json:"pathNot,omitempty" yaml:"pathNot,omitempty" toml:"pathNot,omitempty"`

	path    *regexp.Regexp
	pathNot *regexp.Regexp
}

// Compile compiles the expressions. It is safe to call more than once.
func (p *PathPattern) Compile() error {
	if p.Path != "" && p.path == nil {
		re, err := regexp.Compile(p.Path)
		if err != nil {
			return fmt.Errorf("path %q: %w", p.Path, err)
		}
		p.path = re
	}
	if p.PathNot != "" && p.pathNot == nil {
		re, err := regexp.Compile(p.PathNot)
		if err != nil {
			return fmt.Errorf("pathNot %q: %w", p.PathNot, err)
		}
		p.pathNot = re
	}
	return nil
}

// Match reports whether rel satisfies the pattern. Compile must have succeeded.
func (p *PathPattern) Match(rel string) bool {
	if p.path != nil && !p.path.MatchString(rel) {
		return false
	}
	if p.pathNot != nil && p.pathNot.MatchString(rel) {
		return false
	}
	return true
}

// IsEmpty reports whether the pattern places no restriction.
func (p *PathPattern) IsEmpty() bool {
	return p.Path == "" && p.PathNot == ""
}

// Rule forbids a class of dependencies.
type Rule struct {
	Name     string      `json:"name" yaml:"name" toml:"name"`
	Severity Severity    `json:"severity,omitempty" yaml:"severity,omitempty" toml:"severity,omitempty"`
	Comment  string      `json:"comment,omitempty" yaml:"comment,omitempty" toml:"comment,omitempty"`
	From     PathPattern `json:"from" yaml:"from" toml:"from"`
	To       PathPattern `json:"to" yaml:"to" toml:"to"`
	// Circular restricts the rule to dependencies that are part of a cycle.
	Circular bool `json:"circular,omitempty" yaml:"circular,omitempty" toml:"circular,omitempty"`
}

// Compile compiles both patterns.
func (r *Rule) Compile() error {
	if err := r.From.Compile(); err != nil {
		return fmt.Errorf("rule %q from: %w", r.Name, err)
	}
	if err := r.To.Compile(); err != nil {
		return fmt.Errorf("rule %q to: %w", r.Name, err)
	}
	return nil
}

// EntryBloatOptions configures the fan-out check.
type EntryBloatOptions struct {
	Threshold int      `json:"threshold" yaml:"threshold" toml:"threshold"`
	Severity  Severity `json:"severity" yaml:"severity" toml:"severity"`
	Disabled  bool     `json:"disabled,omitempty" yaml:"disabled,omitempty" toml:"disabled,omitempty"`
}

// Options are rule-set wide settings.
type Options struct {
	// TSPreCompilationDeps keeps type-only imports as dependencies.
	TSPreCompilationDeps bool `json:"tsPreCompilationDeps" yaml:"tsPreCompilationDeps" toml:"tsPreCompilationDeps"`
	// TrustToolCycles uses the analyzer's circular annotations instead of
	// computing cycles from the graph.
	TrustToolCycles bool              `json:"trustToolCycles,omitempty" yaml:"trustToolCycles,omitempty" toml:"trustToolCycles,omitempty"`
	EntryBloat      EntryBloatOptions `json:"entryBloat" yaml:"entryBloat" toml:"entryBloat"`
}

// DefaultOptions returns the options used when a rule document sets none.
func DefaultOptions() Options {
	return Options{
		TSPreCompilationDeps: true,
		EntryBloat: EntryBloatOptions{
			Threshold: DefaultEntryBloatThreshold,
			Severity:  SeverityWarn,
		},
	}
}

// RuleSet is an ordered list of rules plus options. It is not modified
// after loading.
type RuleSet struct {
	Forbidden []Rule  `json:"forbidden" yaml:"forbidden" toml:"forbidden"`
	Options   Options `json:"options" yaml:"options" toml:"options"`
	Source    string  `json:"-" yaml:"-" toml:"-"`
}

// Compile compiles every rule.
func (rs *RuleSet) Compile() error {
	for i := range rs.Forbidden {
		if err := rs.Forbidden[i].Compile(); err != nil {
			return err
		}
	}
	return nil
}

// Rule returns the rule with the given name.
func (rs *RuleSet) Rule(name string) (Rule, bool) {
	for _, r := range rs.Forbidden {
		if r.Name == name {
			return r, true
		}
	}
	return Rule{}, false
}

// Defaults returns the built-in rule set: no circular dependencies and no
// imports from a utils layer into an api layer.
func Defaults() RuleSet {
	rs := RuleSet{
		Forbidden: []Rule{
			{
				Name:     "no-circular",
				Severity: SeverityError,
				Comment:  "Modules must not be part of an import cycle",
				Circular: true,
			},
			{
				Name:     "no-utils-to-api",
				Severity: SeverityError,
				Comment:  "Utility code must not depend on the api layer",
				From:     PathPattern{Path: "(^|/)utils/"},
				To:       PathPattern{Path: "(^|/)api/"},
			},
		},
		Options: DefaultOptions(),
		Source:  "built-in",
	}
	if err := rs.Compile(); err != nil {
		panic(err)
	}
	return rs
}
