//go:build cgo

package scan

import (
	"context"
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

func newImportExtractor() ImportExtractor {
	return TreeSitterExtractor{}
}

// TreeSitterExtractor parses each file with the matching tree-sitter grammar.
// Files that fail to parse fall back to RegexExtractor.
type TreeSitterExtractor struct{}

// Imports implements ImportExtractor.
func (TreeSitterExtractor) Imports(ctx context.Context, path string, src []byte) ([]Import, error) {
	root, err := parse(ctx, path, src)
	if err != nil {
		return RegexExtractor{}.Imports(ctx, path, src)
	}

	var out []Import
	walk(root, func(n *sitter.Node) bool {
		switch n.Type() {
		case "import_statement":
			if spec, ok := stringField(n, "source", src); ok {
				out = append(out, Import{Specifier: spec, Kind: KindImport, TypeOnly: hasKeyword(n, "type"), offset: int(n.StartByte())})
			}
			return false
		case "export_statement":
			if spec, ok := stringField(n, "source", src); ok {
				out = append(out, Import{Specifier: spec, Kind: KindExport, TypeOnly: hasKeyword(n, "type"), offset: int(n.StartByte())})
				return false
			}
		case "call_expression":
			if imp, ok := callImport(n, src); ok {
				out = append(out, imp)
			}
		}
		return true
	})

	sortByOffset(out)
	return out, nil
}

func parse(ctx context.Context, path string, src []byte) (*sitter.Node, error) {
	var lang *sitter.Language
	switch grammarFor(path) {
	case "typescript":
		lang = typescript.GetLanguage()
	case "tsx":
		lang = tsx.GetLanguage()
	default:
		lang = javascript.GetLanguage()
	}

	// sitter.Parser is not safe for concurrent use
	parser := sitter.NewParser()
	parser.SetLanguage(lang)
	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, fmt.Errorf("parse error: %w", err)
	}
	return tree.RootNode(), nil
}

// walk visits n and its descendants depth first. Returning false from fn
// skips the children of the visited node.
func walk(n *sitter.Node, fn func(*sitter.Node) bool) {
	if n == nil || !fn(n) {
		return
	}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		walk(n.NamedChild(i), fn)
	}
}

// hasKeyword reports whether n has an anonymous child token kw,
// as in `import type {...}`.
func hasKeyword(n *sitter.Node, kw string) bool {
	for i := 0; i < int(n.ChildCount()); i++ {
		c := n.Child(i)
		if !c.IsNamed() && c.Type() == kw {
			return true
		}
	}
	return false
}

func stringField(n *sitter.Node, field string, src []byte) (string, bool) {
	return stringLiteral(n.ChildByFieldName(field), src)
}

func stringLiteral(n *sitter.Node, src []byte) (string, bool) {
	if n == nil {
		return "", false
	}
	switch n.Type() {
	case "string":
	case "template_string":
		if n.NamedChildCount() > 0 && hasSubstitution(n) {
			return "", false
		}
	default:
		return "", false
	}
	s := strings.Trim(n.Content(src), "'\"`")
	return s, s != ""
}

func hasSubstitution(n *sitter.Node) bool {
	for i := 0; i < int(n.NamedChildCount()); i++ {
		if n.NamedChild(i).Type() == "template_substitution" {
			return true
		}
	}
	return false
}

// callImport recognizes require("x") and import("x").
func callImport(n *sitter.Node, src []byte) (Import, bool) {
	fn := n.ChildByFieldName("function")
	args := n.ChildByFieldName("arguments")
	if fn == nil || args == nil || args.NamedChildCount() == 0 {
		return Import{}, false
	}

	var kind ImportKind
	switch {
	case fn.Type() == "import":
		kind = KindDynamic
	case fn.Type() == "identifier" && fn.Content(src) == "require":
		kind = KindRequire
	default:
		return Import{}, false
	}

	spec, ok := stringLiteral(args.NamedChild(0), src)
	if !ok {
		return Import{}, false
	}
	return Import{Specifier: spec, Kind: kind, offset: int(n.StartByte())}, true
}
