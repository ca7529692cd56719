package scan

import (
	"os"
	"path"
	"path/filepath"
	"strings"

	"archlens/internal/paths"
	"archlens/internal/project"
)

// Dependency type labels, as dependency-cruiser names them.
const (
	TypeLocal     = "local"
	TypeAliased   = "aliased"
	TypeBaseURL   = "aliased-tsconfig-base-url"
	TypeCore      = "core"
	TypeNPM       = "npm"
	TypeUndefined = "undetermined"
)

// resolveExtensions are tried in order when a specifier has no file extension.
var resolveExtensions = []string{".ts", ".tsx", ".js", ".jsx", ".mjs", ".cjs", ".mts", ".cts", ".json"}

// compiledCounterparts maps emitted extensions to their TypeScript sources,
// so "./x.js" finds "./x.ts".
var compiledCounterparts = map[string][]string{
	".js":  {".ts", ".tsx"},
	".jsx": {".tsx"},
	".mjs": {".mts"},
	".cjs": {".cts"},
}

// Target is where a specifier resolved to.
type Target struct {
	// Resolved is root-relative for files, node_modules/<pkg> for packages
	// and the raw specifier for core or unresolvable modules.
	Resolved   string
	Core       bool
	Unresolved bool
	Types      []string
}

// Resolver maps import specifiers to project files.
// It is not safe for concurrent use.
type Resolver struct {
	root       string
	resolution project.Resolution
	stats      map[string]bool
}

// NewResolver creates a resolver for root using the project's tsconfig paths.
func NewResolver(root string, resolution project.Resolution) *Resolver {
	return &Resolver{
		root:       filepath.ToSlash(filepath.Clean(root)),
		resolution: resolution,
		stats:      make(map[string]bool),
	}
}

// Resolve resolves spec imported from the root-relative file from.
func (r *Resolver) Resolve(from, spec string) Target {
	if IsBuiltin(spec) {
		return Target{Resolved: spec, Core: true, Types: []string{TypeCore}}
	}

	if isRelativeSpec(spec) || path.IsAbs(spec) {
		base := spec
		if !path.IsAbs(spec) {
			base = path.Join(r.root, path.Dir(from), spec)
		}
		if file, ok := r.file(base); ok {
			return Target{Resolved: r.rel(file), Types: []string{TypeLocal}}
		}
		return Target{Resolved: spec, Unresolved: true, Types: []string{TypeUndefined}}
	}

	for _, alias := range r.resolution.Aliases {
		capture, ok := alias.Match(spec)
		if !ok {
			continue
		}
		for _, candidate := range alias.Expand(capture) {
			if file, ok := r.file(candidate); ok {
				return Target{Resolved: r.rel(file), Types: []string{TypeAliased, TypeLocal}}
			}
		}
	}

	if r.resolution.BaseURL != "" {
		if file, ok := r.file(path.Join(r.resolution.BaseURL, spec)); ok {
			return Target{Resolved: r.rel(file), Types: []string{TypeBaseURL, TypeLocal}}
		}
	}

	return Target{Resolved: "node_modules/" + PackageName(spec), Types: []string{TypeNPM}}
}

// file finds the source file base refers to: base itself, its TypeScript
// counterpart, base plus a known extension, or an index file inside base.
func (r *Resolver) file(base string) (string, bool) {
	if r.isFile(base) {
		return base, true
	}

	ext := path.Ext(base)
	for _, alt := range compiledCounterparts[ext] {
		if candidate := strings.TrimSuffix(base, ext) + alt; r.isFile(candidate) {
			return candidate, true
		}
	}

	for _, ext := range resolveExtensions {
		if r.isFile(base + ext) {
			return base + ext, true
		}
	}
	for _, ext := range resolveExtensions {
		if candidate := path.Join(base, "index"+ext); r.isFile(candidate) {
			return candidate, true
		}
	}
	return "", false
}

func (r *Resolver) isFile(p string) bool {
	if ok, seen := r.stats[p]; seen {
		return ok
	}
	info, err := os.Stat(filepath.FromSlash(p))
	ok := err == nil && info.Mode().IsRegular()
	r.stats[p] = ok
	return ok
}

func (r *Resolver) rel(file string) string {
	return paths.RelativeTo(r.root, paths.NormalizePath(file))
}

func isRelativeSpec(spec string) bool {
	return spec == "." || spec == ".." || strings.HasPrefix(spec, "./") || strings.HasPrefix(spec, "../")
}
