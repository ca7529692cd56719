package architecture

import (
	"encoding/json"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"archlens/internal/depgraph"
	"archlens/internal/paths"
	"archlens/internal/project"
)

// Entrypoint kinds
const (
	EntrypointMain   = "main"
	EntrypointCLI    = "cli"
	EntrypointServer = "server"
)

// Entrypoint is a module that starts execution, together with its fan-out.
type Entrypoint struct {
	Path      string `json:"path" yaml:"path"`
	Kind      string `json:"kind" yaml:"kind"`
	Source    string `json:"source" yaml:"source"` // "manifest" or "filename"
	OutDegree int    `json:"outDegree" yaml:"outDegree"`
}

// entryNames are file stems recognised as entrypoints at the root or in src/.
var entryNames = map[string]bool{
	"index": true, "main": true, "cli": true, "server": true, "app": true,
}

var entryDirs = map[string]bool{"": true, "src": true, "bin": true}

// DetectEntrypoints finds entry modules of the graph from the package.json
// main/module/bin fields and from conventional file names.
func DetectEntrypoints(desc *project.Descriptor, g *depgraph.Graph) []Entrypoint {
	found := make(map[string]Entrypoint)

	if desc != nil && desc.ManifestKind == project.ManifestPackageJSON {
		for _, rel := range packageEntries(filepath.FromSlash(desc.Manifest)) {
			p := paths.ModulePath(desc.Root, rel)
			if _, ok := g.Module(p); !ok {
				continue
			}
			kind := inferEntrypointKind(p)
			found[p] = Entrypoint{Path: g.Rel(p), Kind: kind, Source: "manifest", OutDegree: g.OutDegree(p)}
		}
	}

	for _, m := range g.Modules() {
		if _, ok := found[m.Path]; ok || m.CoreModule {
			continue
		}
		dir, base := path.Split(m.Rel)
		stem := strings.TrimSuffix(base, path.Ext(base))
		if !entryDirs[strings.TrimSuffix(dir, "/")] || !entryNames[stem] {
			continue
		}
		found[m.Path] = Entrypoint{Path: m.Rel, Kind: inferEntrypointKind(m.Path), Source: "filename", OutDegree: g.OutDegree(m.Path)}
	}

	out := make([]Entrypoint, 0, len(found))
	for _, e := range found {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// packageEntries returns the main, module and bin targets of a package.json.
func packageEntries(manifest string) []string {
	data, err := os.ReadFile(manifest)
	if err != nil {
		return nil
	}
	var pkg struct {
		Main   string `json:"main"`
		Module string `json:"module"`
		Bin    any    `json:"bin"`
	}
	if err := json.Unmarshal(data, &pkg); err != nil {
		return nil
	}

	var out []string
	for _, e := range []string{pkg.Main, pkg.Module} {
		if e != "" {
			out = append(out, e)
		}
	}
	switch bin := pkg.Bin.(type) {
	case string:
		out = append(out, bin)
	case map[string]any:
		names := make([]string, 0, len(bin))
		for name := range bin {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			if s, ok := bin[name].(string); ok {
				out = append(out, s)
			}
		}
	}
	return out
}

// inferEntrypointKind infers the kind of entrypoint from filename
func inferEntrypointKind(filePath string) string {
	baseName := strings.ToLower(path.Base(filePath))
	dir := path.Base(path.Dir(filePath))

	if strings.Contains(baseName, "cli") || dir == "bin" {
		return EntrypointCLI
	}
	if strings.Contains(baseName, "server") {
		return EntrypointServer
	}
	return EntrypointMain
}
