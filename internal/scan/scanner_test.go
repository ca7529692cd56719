package scan

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"testing"

	"archlens/internal/extractor"
	"archlens/internal/paths"
)

func fixture(t *testing.T) string {
	t.Helper()
	return writeFiles(t, map[string]string{
		"package.json":         `{"name":"fixture"}`,
		"src/a.ts":             "import { b } from './b';\nimport type { T } from './types';\nexport const a = () => b();\n",
		"src/b.ts":             "import { a } from './a';\nimport { readFileSync } from 'fs';\nexport const b = () => a();\n",
		"src/types.ts":         "export type T = string;\n",
		"src/utils/utils.ts":   "import { get } from '../api/api';\nimport _ from 'lodash';\n",
		"src/api/api.ts":       "export const get = 1;\n",
		"src/broken.js":        "const x = require('./does-not-exist');\n",
		"src/lonely.ts":        "export const lonely = true;\n",
		"src/types.d.ts":       "declare const x: number;\n",
		"node_modules/x/i.js":  "require('./y');\n",
		"dist/bundle.js":       "import './src/a';\n",
		".cache/tmp.ts":        "import './x';\n",
		"src/styles/theme.css": "body {}\n",
	})
}

func moduleBySource(doc *extractor.Document, source string) (extractor.ModuleEntry, bool) {
	for _, m := range doc.Modules {
		if m.Source == source {
			return m, true
		}
	}
	return extractor.ModuleEntry{}, false
}

func depByModule(m extractor.ModuleEntry, spec string) (extractor.Dependency, bool) {
	for _, d := range m.Dependencies {
		if d.Module == spec {
			return d, true
		}
	}
	return extractor.Dependency{}, false
}

func TestScanner_Files(t *testing.T) {
	root := fixture(t)
	files, err := New(root, Options{}).Files(context.Background())
	if err != nil {
		t.Fatalf("Files() error = %v", err)
	}
	want := []string{
		"src/a.ts",
		"src/api/api.ts",
		"src/b.ts",
		"src/broken.js",
		"src/lonely.ts",
		"src/types.ts",
		"src/utils/utils.ts",
	}
	if !reflect.DeepEqual(files, want) {
		t.Errorf("Files() = %v, want %v", files, want)
	}
}

func TestScanner_Scan(t *testing.T) {
	root := fixture(t)
	doc, err := New(root, Options{TSPreCompilationDeps: true}).Scan(context.Background())
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}

	if doc.Analyzer == nil || doc.Analyzer.Name != AnalyzerName {
		t.Errorf("Analyzer = %+v, want name %q", doc.Analyzer, AnalyzerName)
	}
	if doc.Summary.TotalCruised != len(doc.Modules) {
		t.Errorf("TotalCruised = %d, want %d", doc.Summary.TotalCruised, len(doc.Modules))
	}

	a, ok := moduleBySource(doc, "src/a.ts")
	if !ok {
		t.Fatal("src/a.ts missing from document")
	}
	ab, ok := depByModule(a, "./b")
	if !ok || ab.Resolved != "src/b.ts" || !ab.Circular {
		t.Errorf("a→b = %+v, want resolved src/b.ts and circular", ab)
	}
	at, ok := depByModule(a, "./types")
	if !ok || at.Circular {
		t.Errorf("a→types = %+v, want present and not circular", at)
	}

	b, _ := moduleBySource(doc, "src/b.ts")
	fs, ok := depByModule(b, "fs")
	if !ok || !fs.CoreModule {
		t.Errorf("b→fs = %+v, want core module", fs)
	}
	if core, ok := moduleBySource(doc, "fs"); !ok || !core.CoreModule {
		t.Errorf("core module entry = %+v, %v", core, ok)
	}

	utils, _ := moduleBySource(doc, "src/utils/utils.ts")
	if d, ok := depByModule(utils, "../api/api"); !ok || d.Resolved != "src/api/api.ts" || d.Circular {
		t.Errorf("utils→api = %+v", d)
	}
	if d, ok := depByModule(utils, "lodash"); !ok || d.Resolved != "node_modules/lodash" {
		t.Errorf("utils→lodash = %+v", d)
	}

	broken, _ := moduleBySource(doc, "src/broken.js")
	if d, ok := depByModule(broken, "./does-not-exist"); !ok || !d.CouldNotResolve {
		t.Errorf("broken→missing = %+v, want couldNotResolve", d)
	}

	if lonely, _ := moduleBySource(doc, "src/lonely.ts"); !lonely.Orphan {
		t.Error("src/lonely.ts should be an orphan")
	}
	if api, _ := moduleBySource(doc, "src/api/api.ts"); api.Orphan {
		t.Error("src/api/api.ts has a dependent and is not an orphan")
	}

	for _, m := range doc.Modules {
		if strings.HasPrefix(m.Source, "dist/") || strings.HasPrefix(m.Source, ".cache/") {
			t.Errorf("ignored directory scanned: %s", m.Source)
		}
	}
}

func TestScanner_TypeOnlyImportsDropped(t *testing.T) {
	root := fixture(t)
	doc, err := New(root, Options{TSPreCompilationDeps: false}).Scan(context.Background())
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	a, _ := moduleBySource(doc, "src/a.ts")
	if _, ok := depByModule(a, "./types"); ok {
		t.Error("type-only import kept with TSPreCompilationDeps=false")
	}
	if _, ok := depByModule(a, "./b"); !ok {
		t.Error("value import dropped")
	}
}

// A scanned document decodes and converts like any analyzer output.
func TestScanner_DocumentGraph(t *testing.T) {
	root := fixture(t)
	doc, err := New(root, Options{TSPreCompilationDeps: true}).Scan(context.Background())
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}

	g := doc.Graph(root)
	a := paths.ModulePath(root, "src/a.ts")
	b := paths.ModulePath(root, "src/b.ts")
	if !g.InCycle(a) || !g.InCycle(b) {
		t.Error("a and b should be cycle members")
	}
	if g.InCycle(paths.ModulePath(root, "src/utils/utils.ts")) {
		t.Error("utils is not in a cycle")
	}
	if got := g.OutDegree(b); got != 1 {
		t.Errorf("OutDegree(b) = %d, want 1 (core edge skipped)", got)
	}
}

func TestScanner_ManyFiles(t *testing.T) {
	files := map[string]string{}
	var index strings.Builder
	for i := 0; i < 20; i++ {
		fmt.Fprintf(&index, "import './m%02d';\n", i)
		files[fmt.Sprintf("src/m%02d.ts", i)] = "export {};\n"
	}
	files["src/index.ts"] = index.String()
	root := writeFiles(t, files)

	doc, err := New(root, Options{Workers: 3}).Scan(context.Background())
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	idx, ok := moduleBySource(doc, "src/index.ts")
	if !ok {
		t.Fatal("src/index.ts missing")
	}
	if len(idx.Dependencies) != 20 {
		t.Errorf("index dependencies = %d, want 20", len(idx.Dependencies))
	}
}

func TestScanner_Canceled(t *testing.T) {
	root := fixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := New(root, Options{}).Scan(ctx); err == nil {
		t.Error("Scan() with canceled context should fail")
	}
}
