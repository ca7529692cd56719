// Package project locates a project's manifest, module resolution settings
// and rule configuration.
package project

import (
	"os"
	"path/filepath"
)

// Language represents a programming language.
type Language string

const (
	LangGo         Language = "go"
	LangTypeScript Language = "typescript"
	LangJavaScript Language = "javascript"
	LangPython     Language = "python"
	LangRust       Language = "rust"
	LangUnknown    Language = "unknown"
)

// ManifestKind names the manifest file that establishes project identity.
type ManifestKind string

const (
	ManifestPackageJSON ManifestKind = "package.json"
	ManifestGoMod       ManifestKind = "go.mod"
	ManifestCargo       ManifestKind = "Cargo.toml"
	ManifestPyProject   ManifestKind = "pyproject.toml"
)

// manifestOrder is the lookup order for project identity.
var manifestOrder = []struct {
	kind ManifestKind
	lang Language
}{
	{ManifestPackageJSON, LangTypeScript},
	{ManifestGoMod, LangGo},
	{ManifestCargo, LangRust},
	{ManifestPyProject, LangPython},
}

// DetectManifest returns the first manifest present in root.
func DetectManifest(root string) (ManifestKind, string, bool) {
	for _, m := range manifestOrder {
		p := filepath.Join(root, string(m.kind))
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return m.kind, p, true
		}
	}
	return "", "", false
}

// DetectLanguage detects the primary language of a project from its manifest.
// Returns the language, manifest file name, and whether detection succeeded.
func DetectLanguage(root string) (Language, string, bool) {
	kind, _, ok := DetectManifest(root)
	if !ok {
		return LangUnknown, "", false
	}
	for _, m := range manifestOrder {
		if m.kind != kind {
			continue
		}
		if kind == ManifestPackageJSON {
			return detectJSorTS(root), string(kind), true
		}
		return m.lang, string(kind), true
	}
	return LangUnknown, "", false
}

// detectJSorTS checks if a package.json project is TypeScript or JavaScript.
func detectJSorTS(root string) Language {
	if _, err := os.Stat(filepath.Join(root, "tsconfig.json")); err == nil {
		return LangTypeScript
	}
	for _, dir := range []string{root, filepath.Join(root, "src")} {
		if hasFileWithExt(dir, ".ts", ".tsx") {
			return LangTypeScript
		}
	}
	return LangJavaScript
}

func hasFileWithExt(dir string, exts ...string) bool {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return false
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := filepath.Ext(e.Name())
		for _, want := range exts {
			if ext == want {
				return true
			}
		}
	}
	return false
}

// LanguageDisplayName returns a human-readable name for the language.
func LanguageDisplayName(lang Language) string {
	switch lang {
	case LangGo:
		return "Go"
	case LangTypeScript:
		return "TypeScript"
	case LangJavaScript:
		return "JavaScript"
	case LangPython:
		return "Python"
	case LangRust:
		return "Rust"
	default:
		return "Unknown"
	}
}
