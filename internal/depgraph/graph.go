// Package depgraph holds the module dependency graph of a single analysis run.
package depgraph

import (
	"sort"

	"archlens/internal/paths"
)

// Module is a source file known to the analyzer, identified by its
// absolute slash-separated path.
type Module struct {
	Path       string `json:"path"`
	Rel        string `json:"rel"`
	CoreModule bool   `json:"coreModule,omitempty"`
	Unresolved bool   `json:"unresolved,omitempty"`
	Orphan     bool   `json:"orphan,omitempty"`
}

// Edge is a directed import from one module to another.
type Edge struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Graph is a module dependency graph. It may contain cycles.
// A Graph is built once per run and treated as read-only afterwards.
type Graph struct {
	Root string

	modules map[string]*Module
	succ    map[string][]string
	edges   map[Edge]struct{}
	order   []Edge

	annotated map[Edge]bool
	trustTool bool

	sccDone  bool
	sccID    map[string]int
	sccSize  map[int]int
	selfLoop map[string]bool
}

// New creates an empty graph for the project at root.
func New(root string) *Graph {
	return &Graph{
		Root:      paths.NormalizePath(root),
		modules:   make(map[string]*Module),
		succ:      make(map[string][]string),
		edges:     make(map[Edge]struct{}),
		annotated: make(map[Edge]bool),
	}
}

// AddModule registers a module, merging flags when it already exists.
func (g *Graph) AddModule(m Module) *Module {
	if existing, ok := g.modules[m.Path]; ok {
		existing.CoreModule = existing.CoreModule || m.CoreModule
		existing.Unresolved = existing.Unresolved || m.Unresolved
		existing.Orphan = existing.Orphan || m.Orphan
		return existing
	}
	if m.Rel == "" {
		m.Rel = paths.RelativeTo(g.Root, m.Path)
	}
	mod := m
	g.modules[m.Path] = &mod
	g.sccDone = false
	return &mod
}

// AddEdge adds from→to, creating either module if needed.
// Returns false if the edge already existed.
func (g *Graph) AddEdge(from, to string) bool {
	e := Edge{From: from, To: to}
	if _, ok := g.edges[e]; ok {
		return false
	}
	g.AddModule(Module{Path: from})
	g.AddModule(Module{Path: to})

	g.edges[e] = struct{}{}
	g.order = append(g.order, e)
	g.succ[from] = append(g.succ[from], to)
	g.sccDone = false
	return true
}

// MarkCircular records that the analyzer reported from→to as part of a cycle.
func (g *Graph) MarkCircular(from, to string) {
	g.annotated[Edge{From: from, To: to}] = true
}

// TrustAnnotations makes cycle queries use MarkCircular annotations
// instead of the locally computed strongly connected components.
func (g *Graph) TrustAnnotations(trust bool) {
	g.trustTool = trust
}

// Module returns the module at path.
func (g *Graph) Module(path string) (*Module, bool) {
	m, ok := g.modules[path]
	return m, ok
}

// Modules returns all modules sorted by path.
func (g *Graph) Modules() []*Module {
	out := make([]*Module, 0, len(g.modules))
	for _, m := range g.modules {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// Edges returns every edge sorted by source then target.
func (g *Graph) Edges() []Edge {
	out := make([]Edge, len(g.order))
	copy(out, g.order)
	sort.Slice(out, func(i, j int) bool {
		if out[i].From != out[j].From {
			return out[i].From < out[j].From
		}
		return out[i].To < out[j].To
	})
	return out
}

// Successors returns the direct dependencies of path in insertion order.
func (g *Graph) Successors(path string) []string {
	return g.succ[path]
}

// OutDegree is the number of distinct direct dependencies of path.
func (g *Graph) OutDegree(path string) int {
	return len(g.succ[path])
}

// ModuleCount returns the number of modules.
func (g *Graph) ModuleCount() int { return len(g.modules) }

// EdgeCount returns the number of distinct edges.
func (g *Graph) EdgeCount() int { return len(g.edges) }

// Rel returns path relative to the graph root.
func (g *Graph) Rel(path string) string {
	if m, ok := g.modules[path]; ok {
		return m.Rel
	}
	return paths.RelativeTo(g.Root, path)
}
