package extractor

import (
	"bytes"
	"encoding/json"
	"fmt"

	"archlens/internal/depgraph"
	"archlens/internal/paths"
)

// Document is the JSON report an analyzer writes to stdout.
// The shape follows dependency-cruiser's JSON reporter.
type Document struct {
	Modules  []ModuleEntry `json:"modules"`
	Summary  Summary       `json:"summary"`
	Analyzer *AnalyzerInfo `json:"analyzer,omitempty"`
}

// ModuleEntry is one cruised module and its outgoing dependencies.
type ModuleEntry struct {
	Source          string       `json:"source"`
	Dependencies    []Dependency `json:"dependencies"`
	Orphan          bool         `json:"orphan,omitempty"`
	CoreModule      bool         `json:"coreModule,omitempty"`
	CouldNotResolve bool         `json:"couldNotResolve,omitempty"`
}

// Dependency is a single import edge as reported by the analyzer.
type Dependency struct {
	Resolved        string   `json:"resolved"`
	Module          string   `json:"module"`
	Circular        bool     `json:"circular,omitempty"`
	CoreModule      bool     `json:"coreModule,omitempty"`
	CouldNotResolve bool     `json:"couldNotResolve,omitempty"`
	DependencyTypes []string `json:"dependencyTypes,omitempty"`
}

// Summary carries counters and any violations the analyzer evaluated itself.
type Summary struct {
	TotalCruised int               `json:"totalCruised"`
	Violations   []json.RawMessage `json:"violations,omitempty"`
}

// AnalyzerInfo identifies the tool that produced a Document.
type AnalyzerInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// DecodeDocument parses analyzer stdout. The document must be a single JSON
// object with a "modules" array whose entries name their source.
func DecodeDocument(data []byte) (*Document, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("empty output")
	}

	var probe map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &probe); err != nil {
		return nil, fmt.Errorf("not a JSON object: %w", err)
	}
	if _, ok := probe["modules"]; !ok {
		return nil, fmt.Errorf(`missing "modules" array`)
	}

	var doc Document
	if err := json.Unmarshal(trimmed, &doc); err != nil {
		return nil, fmt.Errorf("unexpected document shape: %w", err)
	}
	for i, m := range doc.Modules {
		if m.Source == "" {
			return nil, fmt.Errorf("modules[%d] has no source", i)
		}
	}
	return &doc, nil
}

// Graph converts the document into a dependency graph rooted at root.
// Edges to core modules or unresolvable targets are skipped and
// duplicate edges collapse. Analyzer cycle annotations are kept on the graph.
func (d *Document) Graph(root string) *depgraph.Graph {
	g := depgraph.New(root)

	for _, m := range d.Modules {
		from := paths.ModulePath(root, m.Source)
		g.AddModule(depgraph.Module{
			Path:       from,
			Orphan:     m.Orphan,
			CoreModule: m.CoreModule,
			Unresolved: m.CouldNotResolve,
		})
	}

	for _, m := range d.Modules {
		if m.CoreModule || m.CouldNotResolve {
			continue
		}
		from := paths.ModulePath(root, m.Source)
		for _, dep := range m.Dependencies {
			if dep.CoreModule || dep.CouldNotResolve || dep.Resolved == "" {
				continue
			}
			to := paths.ModulePath(root, dep.Resolved)
			if target, ok := g.Module(to); ok && (target.CoreModule || target.Unresolved) {
				continue
			}
			g.AddEdge(from, to)
			if dep.Circular {
				g.MarkCircular(from, to)
			}
		}
	}
	return g
}
