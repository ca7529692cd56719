// Package scan is the bundled dependency analyzer behind `archlens scan`.
// It walks a TypeScript/JavaScript tree, resolves every import and emits the
// same JSON document an external analyzer would.
package scan

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"archlens/internal/depgraph"
	"archlens/internal/extractor"
	"archlens/internal/paths"
	"archlens/internal/project"
	"archlens/internal/slogutil"
	"archlens/internal/version"
)

// AnalyzerName identifies documents written by the scanner.
const AnalyzerName = "archlens-scan"

// SourceExtensions are the file types that become modules.
var SourceExtensions = []string{".ts", ".tsx", ".js", ".jsx", ".mjs", ".cjs"}

// IgnoredDirs are never descended into.
var IgnoredDirs = []string{"node_modules", ".git", "dist", "build", "out", "coverage"}

// Options control a scan.
type Options struct {
	// TSPreCompilationDeps keeps `import type` and `export type` edges.
	TSPreCompilationDeps bool
	Resolution           project.Resolution
	// Workers bounds concurrent file parsing. Zero means GOMAXPROCS.
	Workers int
	// Imports overrides the build's default ImportExtractor.
	Imports ImportExtractor
	Logger  *slog.Logger
}

// Scanner produces a dependency document for one project root.
type Scanner struct {
	root    string
	opts    Options
	imports ImportExtractor
	logger  *slog.Logger
}

// New creates a Scanner for root.
func New(root string, opts Options) *Scanner {
	imports := opts.Imports
	if imports == nil {
		imports = NewImportExtractor()
	}
	if opts.Workers <= 0 {
		opts.Workers = runtime.GOMAXPROCS(0)
	}
	return &Scanner{
		root:    filepath.Clean(root),
		opts:    opts,
		imports: imports,
		logger:  slogutil.OrDiscard(opts.Logger),
	}
}

// Files returns the root-relative, slash-separated source files under root in
// lexical order.
func (s *Scanner) Files(ctx context.Context) ([]string, error) {
	var files []string
	err := filepath.WalkDir(s.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			if p != s.root && ignoredDir(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || !isSource(d.Name()) {
			return nil
		}
		rel, err := filepath.Rel(s.root, p)
		if err != nil {
			return err
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", s.root, err)
	}
	sort.Strings(files)
	return files, nil
}

// Scan parses every source file and resolves its imports.
func (s *Scanner) Scan(ctx context.Context) (*extractor.Document, error) {
	files, err := s.Files(ctx)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("Scanning sources", "root", s.root, "files", len(files), "workers", s.opts.Workers)

	imports := make([][]Import, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Workers)
	for i, rel := range files {
		g.Go(func() error {
			abs := filepath.Join(s.root, filepath.FromSlash(rel))
			src, err := os.ReadFile(abs)
			if err != nil {
				return err
			}
			found, err := s.imports.Imports(gctx, abs, src)
			if err != nil {
				return fmt.Errorf("%s: %w", rel, err)
			}
			imports[i] = mergeImports(found)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	doc := s.document(files, imports)
	s.logger.Debug("Scan complete", "modules", doc.Summary.TotalCruised)
	return doc, nil
}

func (s *Scanner) document(files []string, imports [][]Import) *extractor.Document {
	resolver := NewResolver(s.root, s.opts.Resolution)
	scanned := make(map[string]bool, len(files))
	for _, f := range files {
		scanned[f] = true
	}

	modules := make([]extractor.ModuleEntry, len(files))
	external := make(map[string]extractor.ModuleEntry)
	graph := depgraph.New(s.root)
	dependents := make(map[string]int)

	for i, from := range files {
		entry := extractor.ModuleEntry{Source: from, Dependencies: []extractor.Dependency{}}
		for _, imp := range imports[i] {
			if imp.TypeOnly && !s.opts.TSPreCompilationDeps {
				continue
			}
			target := resolver.Resolve(from, imp.Specifier)
			entry.Dependencies = append(entry.Dependencies, extractor.Dependency{
				Resolved:        target.Resolved,
				Module:          imp.Specifier,
				CoreModule:      target.Core,
				CouldNotResolve: target.Unresolved,
				DependencyTypes: target.Types,
			})

			switch {
			case target.Core || target.Unresolved:
				s.logger.Debug("Dependency not followed", "from", from, "module", imp.Specifier, "core", target.Core)
			default:
				graph.AddEdge(s.abs(from), s.abs(target.Resolved))
				dependents[target.Resolved]++
			}
			if !scanned[target.Resolved] {
				if _, ok := external[target.Resolved]; !ok {
					external[target.Resolved] = extractor.ModuleEntry{
						Source:          target.Resolved,
						Dependencies:    []extractor.Dependency{},
						CoreModule:      target.Core,
						CouldNotResolve: target.Unresolved,
					}
				}
			}
		}
		modules[i] = entry
	}

	for i := range modules {
		m := &modules[i]
		for j := range m.Dependencies {
			d := &m.Dependencies[j]
			if d.CoreModule || d.CouldNotResolve {
				continue
			}
			d.Circular = graph.SameCycle(s.abs(m.Source), s.abs(d.Resolved))
		}
		m.Orphan = len(m.Dependencies) == 0 && dependents[m.Source] == 0
	}

	extra := make([]string, 0, len(external))
	for k := range external {
		extra = append(extra, k)
	}
	sort.Strings(extra)
	for _, k := range extra {
		modules = append(modules, external[k])
	}

	return &extractor.Document{
		Modules: modules,
		Summary: extractor.Summary{TotalCruised: len(modules)},
		Analyzer: &extractor.AnalyzerInfo{
			Name:    AnalyzerName,
			Version: version.Version,
		},
	}
}

func (s *Scanner) abs(rel string) string {
	return paths.ModulePath(s.root, rel)
}

func ignoredDir(name string) bool {
	if strings.HasPrefix(name, ".") {
		return true
	}
	for _, d := range IgnoredDirs {
		if name == d {
			return true
		}
	}
	return false
}

func isSource(name string) bool {
	if strings.HasSuffix(name, ".d.ts") {
		return false
	}
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range SourceExtensions {
		if ext == e {
			return true
		}
	}
	return false
}
