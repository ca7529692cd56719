package project

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	archerrors "archlens/internal/errors"
	"archlens/internal/paths"
	"archlens/internal/slogutil"
)

// RuleConfigFiles are the rule configuration documents looked up at the
// project root, in order.
var RuleConfigFiles = []string{
	".dependency-cruiser.json",
	".archlens.yaml",
	".archlens.yml",
	".archlens.json",
	".archlens.toml",
}

// Descriptor is everything archlens needs to know about a project before
// running the analyzer.
type Descriptor struct {
	Root         string       `json:"root"`
	Name         string       `json:"name,omitempty"`
	Manifest     string       `json:"manifest"`
	ManifestKind ManifestKind `json:"manifestKind"`
	Language     Language     `json:"language"`
	RuleConfig   string       `json:"ruleConfig,omitempty"`
	Resolution   Resolution   `json:"resolution"`
}

// HasRuleConfig reports whether the project supplies its own rule document.
func (d *Descriptor) HasRuleConfig() bool {
	return d.RuleConfig != ""
}

// LoadOptions tunes LoadDescriptorWith.
type LoadOptions struct {
	// RuleConfig overrides rule document discovery. Relative paths resolve against the root.
	RuleConfig string
	Logger     *slog.Logger
}

// LoadDescriptor resolves root and loads its project descriptor.
// A root without a recognised manifest yields a CONFIG_NOT_FOUND error.
func LoadDescriptor(root string) (*Descriptor, error) {
	return LoadDescriptorWith(root, LoadOptions{})
}

// LoadDescriptorWith is LoadDescriptor with options.
func LoadDescriptorWith(root string, opts LoadOptions) (*Descriptor, error) {
	logger := slogutil.OrDiscard(opts.Logger)

	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, archerrors.New(archerrors.ConfigNotFound, fmt.Sprintf("cannot resolve root %q", root), err)
	}
	abs = filepath.Clean(abs)

	info, err := os.Stat(abs)
	if err != nil {
		return nil, archerrors.New(archerrors.ConfigNotFound, fmt.Sprintf("project root %s does not exist", abs), err)
	}
	if !info.IsDir() {
		return nil, archerrors.Newf(archerrors.ConfigNotFound, "project root %s is not a directory", abs)
	}

	kind, manifest, ok := DetectManifest(abs)
	if !ok {
		return nil, archerrors.Newf(archerrors.ConfigNotFound, "no project manifest found in %s", abs).
			WithDetails(map[string]any{"root": abs, "looked_for": manifestNames()})
	}

	desc := &Descriptor{
		Root:         paths.NormalizePath(abs),
		Manifest:     paths.NormalizePath(manifest),
		ManifestKind: kind,
	}
	desc.Language, _, _ = DetectLanguage(abs)

	name, err := ManifestName(kind, manifest)
	if err != nil {
		logger.Debug("Manifest name unavailable", "manifest", manifest, "error", err.Error())
	}
	desc.Name = name

	res, err := LoadResolution(abs)
	if err != nil {
		logger.Debug("Ignoring unreadable module resolution config", "error", err.Error())
	}
	desc.Resolution = res

	if opts.RuleConfig != "" {
		p := opts.RuleConfig
		if !filepath.IsAbs(p) {
			p = filepath.Join(abs, p)
		}
		if _, err := os.Stat(p); err != nil {
			return nil, archerrors.New(archerrors.ConfigNotFound, fmt.Sprintf("rule config %s not found", p), err)
		}
		desc.RuleConfig = paths.NormalizePath(p)
	} else {
		desc.RuleConfig = FindRuleConfig(abs)
	}

	logger.Debug("Loaded project descriptor",
		"root", desc.Root,
		"manifest", string(desc.ManifestKind),
		"language", string(desc.Language),
		"rule_config", desc.RuleConfig,
		"aliases", len(desc.Resolution.Aliases),
	)
	return desc, nil
}

// FindRuleConfig returns the first rule document present at root, or "".
func FindRuleConfig(root string) string {
	for _, name := range RuleConfigFiles {
		p := filepath.Join(root, name)
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return paths.NormalizePath(p)
		}
	}
	return ""
}

func manifestNames() []string {
	out := make([]string, len(manifestOrder))
	for i, m := range manifestOrder {
		out[i] = string(m.kind)
	}
	return out
}
