package architecture

import (
	"time"

	"archlens/internal/extractor"
	"archlens/internal/project"
	"archlens/internal/rules"
	"archlens/internal/violations"
)

// Request describes one analysis run.
type Request struct {
	Root string
	// IDs maps module paths to stable identifiers. A nil map identifies
	// modules by their root-relative path.
	IDs map[string]string
	// RuleConfig overrides rule document discovery.
	RuleConfig string
	// Timeout overrides the configured analyzer timeout.
	Timeout time.Duration
}

// Report is the outcome of a successful run.
type Report struct {
	RunID     string                  `json:"runId"`
	Root      string                  `json:"root"`
	Project   *project.Descriptor     `json:"project"`
	StartedAt time.Time               `json:"startedAt"`
	Duration  time.Duration           `json:"durationNs"`
	Warnings  []violations.Warning    `json:"warnings"`
	Entries   []Entrypoint            `json:"entrypoints,omitempty"`
	Stats     Stats                   `json:"stats"`
	RuleSet   rules.RuleSet           `json:"-"`
	Document  *extractor.Document     `json:"-"`
	Analyzer  *extractor.AnalyzerInfo `json:"analyzer,omitempty"`
}

// Stats summarises the graph and the filtering applied to a run.
type Stats struct {
	Modules      int                     `json:"modules" yaml:"modules"`
	Edges        int                     `json:"edges" yaml:"edges"`
	CycleMembers int                     `json:"cycleMembers" yaml:"cycleMembers"`
	Findings     int                     `json:"findings" yaml:"findings"`
	Classified   int                     `json:"classified" yaml:"classified"`
	Dropped      int                     `json:"dropped" yaml:"dropped"`
	ByType       map[violations.Type]int `json:"byType" yaml:"byType"`
}
