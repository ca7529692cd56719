// Package identity attaches caller-supplied stable identifiers to warnings.
package identity

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"archlens/internal/depgraph"
	"archlens/internal/paths"
	"archlens/internal/violations"
)

// Resolver maps module paths to stable identifiers.
type Resolver struct {
	root string
	ids  map[string]string
}

// NewResolver normalizes every key of ids against root. Relative keys are
// taken relative to root. Paths inside root are matched after resolving
// symlinks, so a root reached through a link still finds its identifiers.
func NewResolver(root string, ids map[string]string) *Resolver {
	r := &Resolver{root: root, ids: make(map[string]string, len(ids))}
	for p, id := range ids {
		if id == "" {
			continue
		}
		r.ids[r.normalize(p)] = id
	}
	return r
}

// Lookup returns the identifier for a module path.
func (r *Resolver) Lookup(modulePath string) (string, bool) {
	id, ok := r.ids[r.normalize(modulePath)]
	return id, ok
}

func (r *Resolver) normalize(p string) string {
	abs := paths.ModulePath(r.root, p)
	native := filepath.FromSlash(abs)
	if !paths.IsWithinRepo(native, r.root) {
		return abs
	}
	rel, err := paths.CanonicalizePath(native, r.root)
	if err != nil {
		return abs
	}
	return paths.ModulePath(r.root, rel)
}

// Len returns the number of known identifiers.
func (r *Resolver) Len() int { return len(r.ids) }

type key struct {
	id  string
	typ violations.Type
}

// Resolve sets FileID on each warning. Warnings for modules without an
// identifier are dropped, as are repeats of the same (identifier, type).
func (r *Resolver) Resolve(ws []violations.Warning) []violations.Warning {
	seen := make(map[key]bool, len(ws))
	out := make([]violations.Warning, 0, len(ws))

	for _, w := range ws {
		id, ok := r.Lookup(w.Module())
		if !ok {
			continue
		}
		k := key{id: id, typ: w.Type}
		if seen[k] {
			continue
		}
		seen[k] = true
		w.FileID = id
		out = append(out, w)
	}
	return out
}

// PathIdentity assigns every non-core module of g its path relative to
// root as identifier.
func PathIdentity(root string, g *depgraph.Graph) map[string]string {
	ids := make(map[string]string, g.ModuleCount())
	for _, m := range g.Modules() {
		if m.CoreModule {
			continue
		}
		ids[m.Path] = paths.RelativeTo(root, m.Path)
	}
	return ids
}

// LoadMap reads a JSON object of path → identifier.
func LoadMap(file string) (map[string]string, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, err
	}
	var ids map[string]string
	if err := json.Unmarshal(data, &ids); err != nil {
		return nil, fmt.Errorf("parsing identifier map %s: %w", filepath.Base(file), err)
	}
	if ids == nil {
		ids = map[string]string{}
	}
	return ids, nil
}

// SaveMap writes ids as an indented JSON object.
func SaveMap(file string, ids map[string]string) error {
	data, err := json.MarshalIndent(ids, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(file, append(data, '\n'), 0644)
}
