package rules

import (
	"sort"

	"archlens/internal/depgraph"
)

// FindingKind distinguishes what a finding was raised for.
type FindingKind string

const (
	// KindCircular is a dependency on a cycle matched by a circular rule
	KindCircular FindingKind = "circular"
	// KindPath is a dependency matched by a from/to path rule
	KindPath FindingKind = "path"
	// KindFanOut is a module whose out-degree exceeds the entry-bloat threshold
	KindFanOut FindingKind = "fan-out"
)

// Finding is a raw rule match before classification. Module is the
// absolute path of the flagged (source) module.
type Finding struct {
	Kind      FindingKind
	Rule      string
	Severity  Severity
	Module    string
	ModuleRel string
	Target    string
	TargetRel string
	Degree    int
	Threshold int
}

// Engine evaluates a RuleSet against dependency graphs. It holds no
// per-run state and may be shared.
type Engine struct {
	rules RuleSet
}

// NewEngine compiles rs and returns an engine for it.
func NewEngine(rs RuleSet) (*Engine, error) {
	rs.Forbidden = append([]Rule(nil), rs.Forbidden...)
	if err := rs.Compile(); err != nil {
		return nil, err
	}
	return &Engine{rules: rs}, nil
}

// Evaluate returns every finding for g, rules in rule-set order, modules in
// path order and entry-bloat findings last.
func (e *Engine) Evaluate(g *depgraph.Graph) []Finding {
	mods := g.Modules()
	var findings []Finding

	for i := range e.rules.Forbidden {
		r := &e.rules.Forbidden[i]
		if r.Severity == SeverityIgnore {
			continue
		}
		for _, m := range mods {
			if !r.From.Match(m.Rel) {
				continue
			}
			targets := sortedSuccessors(g, m.Path)
			if r.Circular {
				if f, ok := circularFinding(g, r, m, targets); ok {
					findings = append(findings, f)
				}
				continue
			}
			if r.To.IsEmpty() && r.From.IsEmpty() {
				// a rule without any constraint would flag every import
				continue
			}
			for _, t := range targets {
				tRel := g.Rel(t)
				if !r.To.Match(tRel) {
					continue
				}
				findings = append(findings, Finding{
					Kind:      KindPath,
					Rule:      r.Name,
					Severity:  r.Severity,
					Module:    m.Path,
					ModuleRel: m.Rel,
					Target:    t,
					TargetRel: tRel,
				})
			}
		}
	}

	eb := e.rules.Options.EntryBloat
	if !eb.Disabled && eb.Severity != SeverityIgnore {
		for _, m := range mods {
			if deg := g.OutDegree(m.Path); deg > eb.Threshold {
				findings = append(findings, Finding{
					Kind:      KindFanOut,
					Rule:      EntryBloatRule,
					Severity:  eb.Severity,
					Module:    m.Path,
					ModuleRel: m.Rel,
					Degree:    deg,
					Threshold: eb.Threshold,
				})
			}
		}
	}
	return findings
}

// circularFinding flags m once if any of its dependencies lies on the same
// cycle and matches the rule's target pattern.
func circularFinding(g *depgraph.Graph, r *Rule, m *depgraph.Module, targets []string) (Finding, bool) {
	for _, t := range targets {
		if !g.SameCycle(m.Path, t) {
			continue
		}
		tRel := g.Rel(t)
		if !r.To.Match(tRel) {
			continue
		}
		return Finding{
			Kind:      KindCircular,
			Rule:      r.Name,
			Severity:  r.Severity,
			Module:    m.Path,
			ModuleRel: m.Rel,
			Target:    t,
			TargetRel: tRel,
		}, true
	}
	return Finding{}, false
}

func sortedSuccessors(g *depgraph.Graph, p string) []string {
	succ := append([]string(nil), g.Successors(p)...)
	sort.Strings(succ)
	return succ
}
