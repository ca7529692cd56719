package scan

import (
	"context"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

// ImportKind is the syntactic form an import was written in.
type ImportKind string

const (
	KindImport  ImportKind = "import"
	KindExport  ImportKind = "export"
	KindRequire ImportKind = "require"
	KindDynamic ImportKind = "dynamic-import"
)

// Import is one module specifier found in a source file.
type Import struct {
	Specifier string
	Kind      ImportKind
	// TypeOnly is set for `import type` and `export type` statements.
	TypeOnly bool
	offset   int
}

// ImportExtractor finds the import specifiers of a single source file.
// Implementations must be safe for concurrent use.
type ImportExtractor interface {
	Imports(ctx context.Context, path string, src []byte) ([]Import, error)
}

// NewImportExtractor returns the best extractor available in this build:
// tree-sitter when cgo is enabled, regular expressions otherwise.
func NewImportExtractor() ImportExtractor {
	return newImportExtractor()
}

var (
	importFromPattern    = regexp.MustCompile(`\bimport\s+(type\s+)?([\w$*\s,{}]+?)\s*from\s*['"]([^'"]+)['"]`)
	sideEffectPattern    = regexp.MustCompile(`\bimport\s*['"]([^'"]+)['"]`)
	exportFromPattern    = regexp.MustCompile(`\bexport\s+(type\s+)?(\*(?:\s+as\s+[\w$]+)?|\{[^}]*\})\s*from\s*['"]([^'"]+)['"]`)
	requirePattern       = regexp.MustCompile(`\brequire\s*\(\s*['"]([^'"]+)['"]\s*\)`)
	dynamicImportPattern = regexp.MustCompile(`\bimport\s*\(\s*['"]([^'"]+)['"]\s*\)`)
)

// RegexExtractor extracts imports with regular expressions over the source
// text after comments are blanked out.
type RegexExtractor struct{}

// Imports implements ImportExtractor.
func (RegexExtractor) Imports(_ context.Context, _ string, src []byte) ([]Import, error) {
	text := string(blankComments(src))
	var out []Import

	for _, m := range importFromPattern.FindAllStringSubmatchIndex(text, -1) {
		out = append(out, Import{
			Specifier: text[m[6]:m[7]],
			Kind:      KindImport,
			TypeOnly:  m[2] >= 0,
			offset:    m[0],
		})
	}
	for _, m := range sideEffectPattern.FindAllStringSubmatchIndex(text, -1) {
		out = append(out, Import{Specifier: text[m[2]:m[3]], Kind: KindImport, offset: m[0]})
	}
	for _, m := range exportFromPattern.FindAllStringSubmatchIndex(text, -1) {
		out = append(out, Import{
			Specifier: text[m[6]:m[7]],
			Kind:      KindExport,
			TypeOnly:  m[2] >= 0,
			offset:    m[0],
		})
	}
	for _, m := range requirePattern.FindAllStringSubmatchIndex(text, -1) {
		out = append(out, Import{Specifier: text[m[2]:m[3]], Kind: KindRequire, offset: m[0]})
	}
	for _, m := range dynamicImportPattern.FindAllStringSubmatchIndex(text, -1) {
		out = append(out, Import{Specifier: text[m[2]:m[3]], Kind: KindDynamic, offset: m[0]})
	}

	sortByOffset(out)
	return out, nil
}

func sortByOffset(imports []Import) {
	sort.SliceStable(imports, func(i, j int) bool { return imports[i].offset < imports[j].offset })
}

// blankComments replaces // and /* */ comments with spaces, keeping string
// and template literals intact and byte offsets unchanged.
func blankComments(src []byte) []byte {
	out := make([]byte, len(src))
	copy(out, src)

	var quote byte
	for i := 0; i < len(out); i++ {
		c := out[i]
		if quote != 0 {
			if c == '\\' {
				i++
			} else if c == quote || (c == '\n' && quote != '`') {
				quote = 0
			}
			continue
		}
		switch {
		case c == '\'' || c == '"' || c == '`':
			quote = c
		case c == '/' && i+1 < len(out) && out[i+1] == '/':
			for i < len(out) && out[i] != '\n' {
				out[i] = ' '
				i++
			}
		case c == '/' && i+1 < len(out) && out[i+1] == '*':
			out[i], out[i+1] = ' ', ' '
			i += 2
			for i < len(out) && !(out[i] == '*' && i+1 < len(out) && out[i+1] == '/') {
				if out[i] != '\n' {
					out[i] = ' '
				}
				i++
			}
			if i < len(out) {
				out[i], out[i+1] = ' ', ' '
				i++
			}
		}
	}
	return out
}

// mergeImports collapses repeated specifiers. A specifier is type-only when
// every occurrence is.
func mergeImports(imports []Import) []Import {
	index := make(map[string]int, len(imports))
	var out []Import
	for _, imp := range imports {
		if i, ok := index[imp.Specifier]; ok {
			out[i].TypeOnly = out[i].TypeOnly && imp.TypeOnly
			continue
		}
		index[imp.Specifier] = len(out)
		out = append(out, imp)
	}
	return out
}

// grammarFor names the tree-sitter grammar for a file extension.
func grammarFor(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".ts", ".mts", ".cts":
		return "typescript"
	case ".tsx":
		return "tsx"
	default:
		return "javascript"
	}
}
