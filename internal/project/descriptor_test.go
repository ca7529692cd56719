package project

import (
	"os"
	"path/filepath"
	"testing"

	archerrors "archlens/internal/errors"
)

func TestLoadDescriptor(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"package.json":             `{"name": "web"}`,
		"tsconfig.json":            `{"compilerOptions": {"baseUrl": ".", "paths": {"@/*": ["src/*"]}}}`,
		".archlens.yaml":           "forbidden: []\n",
		".dependency-cruiser.json": `{"forbidden": []}`,
		"src/index.ts":             "",
	})

	desc, err := LoadDescriptor(dir)
	if err != nil {
		t.Fatalf("LoadDescriptor() error = %v", err)
	}

	if desc.Name != "web" {
		t.Errorf("Name = %q, want web", desc.Name)
	}
	if desc.ManifestKind != ManifestPackageJSON {
		t.Errorf("ManifestKind = %q", desc.ManifestKind)
	}
	if desc.Language != LangTypeScript {
		t.Errorf("Language = %q", desc.Language)
	}
	if filepath.Base(desc.RuleConfig) != ".dependency-cruiser.json" {
		t.Errorf("RuleConfig = %q, want .dependency-cruiser.json first", desc.RuleConfig)
	}
	if len(desc.Resolution.Aliases) != 1 {
		t.Errorf("Aliases = %+v", desc.Resolution.Aliases)
	}
	if !filepath.IsAbs(filepath.FromSlash(desc.Root)) {
		t.Errorf("Root %q should be absolute", desc.Root)
	}
}

func TestLoadDescriptor_RelativeRoot(t *testing.T) {
	dir := writeFiles(t, map[string]string{"go.mod": "module example.com/x\n"})
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	rel, err := filepath.Rel(wd, dir)
	if err != nil {
		t.Skipf("temp dir not relative to cwd: %v", err)
	}

	desc, err := LoadDescriptor(rel)
	if err != nil {
		t.Fatalf("LoadDescriptor() error = %v", err)
	}
	if desc.Name != "example.com/x" {
		t.Errorf("Name = %q", desc.Name)
	}
	if desc.HasRuleConfig() {
		t.Error("no rule config expected")
	}
}

func TestLoadDescriptor_ConfigNotFound(t *testing.T) {
	tests := []struct {
		name string
		root func(t *testing.T) string
	}{
		{"no manifest", func(t *testing.T) string { return writeFiles(t, map[string]string{"src/a.ts": ""}) }},
		{"missing root", func(t *testing.T) string { return filepath.Join(t.TempDir(), "nope") }},
		{"root is a file", func(t *testing.T) string {
			dir := writeFiles(t, map[string]string{"file.txt": ""})
			return filepath.Join(dir, "file.txt")
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadDescriptor(tt.root(t))
			if !archerrors.Is(err, archerrors.ConfigNotFound) {
				t.Errorf("LoadDescriptor() error = %v, want CONFIG_NOT_FOUND", err)
			}
		})
	}
}

func TestLoadDescriptor_UnparseableManifestStillIdentifies(t *testing.T) {
	dir := writeFiles(t, map[string]string{"package.json": "{not json"})

	desc, err := LoadDescriptor(dir)
	if err != nil {
		t.Fatalf("LoadDescriptor() error = %v", err)
	}
	if desc.Name != "" {
		t.Errorf("Name = %q, want empty", desc.Name)
	}
}

func TestLoadDescriptorWith_RuleConfigOverride(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"package.json":      `{}`,
		".archlens.yaml":    "",
		"rules/strict.json": `{"forbidden": []}`,
	})

	desc, err := LoadDescriptorWith(dir, LoadOptions{RuleConfig: "rules/strict.json"})
	if err != nil {
		t.Fatalf("LoadDescriptorWith() error = %v", err)
	}
	if filepath.Base(desc.RuleConfig) != "strict.json" {
		t.Errorf("RuleConfig = %q", desc.RuleConfig)
	}

	_, err = LoadDescriptorWith(dir, LoadOptions{RuleConfig: "rules/missing.json"})
	if !archerrors.Is(err, archerrors.ConfigNotFound) {
		t.Errorf("missing override error = %v, want CONFIG_NOT_FOUND", err)
	}
}

func TestFindRuleConfig_Order(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		".archlens.toml": "",
		".archlens.yml":  "",
	})
	if got := filepath.Base(FindRuleConfig(dir)); got != ".archlens.yml" {
		t.Errorf("FindRuleConfig() = %q, want .archlens.yml", got)
	}
	if FindRuleConfig(t.TempDir()) != "" {
		t.Error("empty dir should have no rule config")
	}
}
