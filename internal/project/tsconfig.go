package project

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// resolutionFiles are checked in order for module resolution settings.
var resolutionFiles = []string{"tsconfig.json", "jsconfig.json"}

// maxExtendsDepth bounds "extends" chains.
const maxExtendsDepth = 5

// Alias is one compilerOptions.paths entry, e.g. "@app/*" → ["src/app/*"].
// Targets are absolute slash paths.
type Alias struct {
	Pattern string   `json:"pattern"`
	Targets []string `json:"targets"`
}

// Resolution holds the module resolution settings of a project.
type Resolution struct {
	File    string  `json:"file,omitempty"`
	BaseURL string  `json:"baseUrl,omitempty"`
	Aliases []Alias `json:"aliases,omitempty"`
}

type tsconfig struct {
	Extends         string `json:"extends"`
	CompilerOptions struct {
		BaseURL *string             `json:"baseUrl"`
		Paths   map[string][]string `json:"paths"`
	} `json:"compilerOptions"`
}

// FindResolutionFile returns the resolution config LoadResolution would read
// for root, or "" when there is none.
func FindResolutionFile(root string) string {
	for _, name := range resolutionFiles {
		p := filepath.Join(root, name)
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p
		}
	}
	return ""
}

// LoadResolution reads tsconfig.json or jsconfig.json from root.
// It returns an empty Resolution when neither exists.
func LoadResolution(root string) (Resolution, error) {
	p := FindResolutionFile(root)
	if p == "" {
		return Resolution{}, nil
	}
	return loadTSConfig(p, 0)
}

func loadTSConfig(path string, depth int) (Resolution, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Resolution{}, err
	}

	var cfg tsconfig
	if err := json.Unmarshal(StripJSONC(data), &cfg); err != nil {
		return Resolution{}, fmt.Errorf("parsing %s: %w", path, err)
	}

	dir := filepath.Dir(path)
	res := Resolution{File: path}

	// relative extends are merged underneath; package extends are not followed
	if cfg.Extends != "" && depth < maxExtendsDepth && isRelative(cfg.Extends) {
		parentPath := filepath.Join(dir, cfg.Extends)
		if filepath.Ext(parentPath) != ".json" {
			parentPath += ".json"
		}
		if parent, err := loadTSConfig(parentPath, depth+1); err == nil {
			res.BaseURL = parent.BaseURL
			res.Aliases = parent.Aliases
		}
	}

	base := res.BaseURL
	if cfg.CompilerOptions.BaseURL != nil {
		base = filepath.ToSlash(filepath.Clean(filepath.Join(dir, *cfg.CompilerOptions.BaseURL)))
		res.BaseURL = base
	}
	if cfg.CompilerOptions.Paths != nil {
		if base == "" {
			base = filepath.ToSlash(dir)
		}
		res.Aliases = buildAliases(base, cfg.CompilerOptions.Paths)
	}
	return res, nil
}

func buildAliases(base string, pathsMap map[string][]string) []Alias {
	patterns := make([]string, 0, len(pathsMap))
	for p := range pathsMap {
		patterns = append(patterns, p)
	}
	// longest prefix first, the way TypeScript picks the most specific pattern
	sort.Slice(patterns, func(i, j int) bool {
		pi, pj := aliasPrefix(patterns[i]), aliasPrefix(patterns[j])
		if len(pi) != len(pj) {
			return len(pi) > len(pj)
		}
		return patterns[i] < patterns[j]
	})

	aliases := make([]Alias, 0, len(patterns))
	for _, p := range patterns {
		var targets []string
		for _, t := range pathsMap[p] {
			targets = append(targets, filepath.ToSlash(filepath.Clean(filepath.Join(base, t))))
		}
		aliases = append(aliases, Alias{Pattern: p, Targets: targets})
	}
	return aliases
}

func aliasPrefix(pattern string) string {
	if i := strings.IndexByte(pattern, '*'); i >= 0 {
		return pattern[:i]
	}
	return pattern
}

// Match reports whether spec matches the alias and returns the wildcard capture.
func (a Alias) Match(spec string) (string, bool) {
	i := strings.IndexByte(a.Pattern, '*')
	if i < 0 {
		return "", spec == a.Pattern
	}
	prefix, suffix := a.Pattern[:i], a.Pattern[i+1:]
	if len(spec) < len(prefix)+len(suffix) {
		return "", false
	}
	if !strings.HasPrefix(spec, prefix) || !strings.HasSuffix(spec, suffix) {
		return "", false
	}
	return spec[len(prefix) : len(spec)-len(suffix)], true
}

// Expand substitutes capture into every target.
func (a Alias) Expand(capture string) []string {
	out := make([]string, len(a.Targets))
	for i, t := range a.Targets {
		out[i] = strings.Replace(t, "*", capture, 1)
	}
	return out
}

func isRelative(p string) bool {
	return strings.HasPrefix(p, "./") || strings.HasPrefix(p, "../")
}

// StripJSONC removes // and /* */ comments and trailing commas so that
// tsconfig-style documents decode with encoding/json. String contents are preserved.
func StripJSONC(data []byte) []byte {
	return stripTrailingCommas(stripComments(data))
}

func stripComments(data []byte) []byte {
	out := make([]byte, 0, len(data))
	inString := false

	for i := 0; i < len(data); i++ {
		c := data[i]

		if inString {
			out = append(out, c)
			if c == '\\' && i+1 < len(data) {
				i++
				out = append(out, data[i])
			} else if c == '"' {
				inString = false
			}
			continue
		}

		switch {
		case c == '"':
			inString = true
			out = append(out, c)
		case c == '/' && i+1 < len(data) && data[i+1] == '/':
			for i < len(data) && data[i] != '\n' {
				i++
			}
			if i < len(data) {
				out = append(out, '\n')
			}
		case c == '/' && i+1 < len(data) && data[i+1] == '*':
			i += 2
			for i+1 < len(data) && !(data[i] == '*' && data[i+1] == '/') {
				i++
			}
			i++
			out = append(out, ' ')
		default:
			out = append(out, c)
		}
	}
	return out
}

func stripTrailingCommas(data []byte) []byte {
	out := make([]byte, 0, len(data))
	inString := false

	for i := 0; i < len(data); i++ {
		c := data[i]

		if inString {
			out = append(out, c)
			if c == '\\' && i+1 < len(data) {
				i++
				out = append(out, data[i])
			} else if c == '"' {
				inString = false
			}
			continue
		}

		if c == '"' {
			inString = true
		}
		if c == ',' {
			j := i + 1
			for j < len(data) && isSpace(data[j]) {
				j++
			}
			if j < len(data) && (data[j] == '}' || data[j] == ']') {
				continue
			}
		}
		out = append(out, c)
	}
	return out
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}
