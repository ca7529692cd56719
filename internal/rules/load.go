package rules

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	archerrors "archlens/internal/errors"
)

// document mirrors the on-disk rule format. It accepts dependency-cruiser
// configuration (circular under "to", path as string or list).
type document struct {
	Forbidden []ruleDoc   `mapstructure:"forbidden"`
	Options   *optionsDoc `mapstructure:"options"`
}

type ruleDoc struct {
	Name     string     `mapstructure:"name"`
	Severity string     `mapstructure:"severity"`
	Comment  string     `mapstructure:"comment"`
	From     patternDoc `mapstructure:"from"`
	To       patternDoc `mapstructure:"to"`
	Circular *bool      `mapstructure:"circular"`
}

type patternDoc struct {
	Path     any   `mapstructure:"path"`
	PathNot  any   `mapstructure:"pathNot"`
	Circular *bool `mapstructure:"circular"`
}

type optionsDoc struct {
	TSPreCompilationDeps any            `mapstructure:"tsPreCompilationDeps"`
	TrustToolCycles      *bool          `mapstructure:"trustToolCycles"`
	EntryBloat           *entryBloatDoc `mapstructure:"entryBloat"`
}

type entryBloatDoc struct {
	Threshold *int    `mapstructure:"threshold"`
	Severity  *string `mapstructure:"severity"`
	Disabled  *bool   `mapstructure:"disabled"`
}

// Load reads a rule document (JSON, YAML or TOML by extension) and
// returns it merged onto DefaultOptions. Rules are not merged with Defaults.
func Load(path string) (RuleSet, error) {
	return LoadWith(path, DefaultOptions())
}

// LoadWith is Load with caller supplied base options.
// Invalid documents yield an ANALYSIS_FAILED error.
func LoadWith(path string, base Options) (RuleSet, error) {
	if _, err := os.Stat(path); err != nil {
		return RuleSet{}, archerrors.New(archerrors.AnalysisFailed, fmt.Sprintf("rule config %s unreadable", path), err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	if t := configType(path); t != "" {
		v.SetConfigType(t)
	}
	if err := v.ReadInConfig(); err != nil {
		return RuleSet{}, invalid(path, err)
	}

	var doc document
	if err := v.Unmarshal(&doc); err != nil {
		return RuleSet{}, invalid(path, err)
	}

	rs, err := doc.ruleSet(base)
	if err != nil {
		return RuleSet{}, invalid(path, err)
	}
	rs.Source = path
	return rs, nil
}

func invalid(path string, err error) error {
	return archerrors.New(archerrors.AnalysisFailed, fmt.Sprintf("invalid rule config %s", filepath.Base(path)), err).
		WithDetails(map[string]any{"path": path})
}

// configType maps rule file extensions to viper config types.
func configType(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return "json"
	case ".yaml", ".yml":
		return "yaml"
	case ".toml":
		return "toml"
	}
	return ""
}

func (d *document) ruleSet(base Options) (RuleSet, error) {
	rs := RuleSet{Options: base}

	seen := make(map[string]bool)
	for i, rd := range d.Forbidden {
		r, err := rd.rule()
		if err != nil {
			return RuleSet{}, fmt.Errorf("forbidden[%d]: %w", i, err)
		}
		if r.Name == "" {
			r.Name = fmt.Sprintf("unnamed-%d", i)
		}
		if seen[r.Name] {
			return RuleSet{}, fmt.Errorf("forbidden[%d]: duplicate rule name %q", i, r.Name)
		}
		seen[r.Name] = true
		rs.Forbidden = append(rs.Forbidden, r)
	}

	if d.Options != nil {
		if err := d.Options.apply(&rs.Options); err != nil {
			return RuleSet{}, err
		}
	}
	return rs, nil
}

func (rd ruleDoc) rule() (Rule, error) {
	r := Rule{
		Name:     rd.Name,
		Severity: Severity(strings.ToLower(rd.Severity)),
		Comment:  rd.Comment,
	}
	if !r.Severity.Valid() {
		return Rule{}, fmt.Errorf("rule %q: unknown severity %q", rd.Name, rd.Severity)
	}

	var err error
	if r.From, err = rd.From.pattern(); err != nil {
		return Rule{}, fmt.Errorf("rule %q from: %w", rd.Name, err)
	}
	if r.To, err = rd.To.pattern(); err != nil {
		return Rule{}, fmt.Errorf("rule %q to: %w", rd.Name, err)
	}

	switch {
	case rd.To.Circular != nil:
		r.Circular = *rd.To.Circular
	case rd.Circular != nil:
		r.Circular = *rd.Circular
	}

	if err := r.Compile(); err != nil {
		return Rule{}, err
	}
	return r, nil
}

func (pd patternDoc) pattern() (PathPattern, error) {
	path, err := joinPattern(pd.Path)
	if err != nil {
		return PathPattern{}, fmt.Errorf("path: %w", err)
	}
	pathNot, err := joinPattern(pd.PathNot)
	if err != nil {
		return PathPattern{}, fmt.Errorf("pathNot: %w", err)
	}
	return PathPattern{Path: path, PathNot: pathNot}, nil
}

// joinPattern accepts a string or a list of strings. Lists become one
// alternation.
func joinPattern(v any) (string, error) {
	switch val := v.(type) {
	case nil:
		return "", nil
	case string:
		return val, nil
	case []any:
		parts := make([]string, 0, len(val))
		for _, item := range val {
			s, ok := item.(string)
			if !ok {
				return "", fmt.Errorf("expected string, got %T", item)
			}
			parts = append(parts, s)
		}
		return alternation(parts), nil
	case []string:
		return alternation(val), nil
	}
	return "", fmt.Errorf("expected string or list, got %T", v)
}

func alternation(parts []string) string {
	switch len(parts) {
	case 0:
		return ""
	case 1:
		return parts[0]
	}
	return "(" + strings.Join(parts, ")|(") + ")"
}

func (od *optionsDoc) apply(o *Options) error {
	switch v := od.TSPreCompilationDeps.(type) {
	case nil:
	case bool:
		o.TSPreCompilationDeps = v
	case string:
		// dependency-cruiser's "specify" keeps type-only imports
		o.TSPreCompilationDeps = v != "false"
	default:
		return fmt.Errorf("options.tsPreCompilationDeps: unexpected %T", v)
	}

	if od.TrustToolCycles != nil {
		o.TrustToolCycles = *od.TrustToolCycles
	}

	if eb := od.EntryBloat; eb != nil {
		if eb.Threshold != nil {
			if *eb.Threshold < 0 {
				return fmt.Errorf("options.entryBloat.threshold must not be negative")
			}
			o.EntryBloat.Threshold = *eb.Threshold
		}
		if eb.Severity != nil {
			s := Severity(strings.ToLower(*eb.Severity))
			if s == "" || !s.Valid() {
				return fmt.Errorf("options.entryBloat.severity: unknown severity %q", *eb.Severity)
			}
			o.EntryBloat.Severity = s
		}
		if eb.Disabled != nil {
			o.EntryBloat.Disabled = *eb.Disabled
		}
	}
	return nil
}

// Merge combines the built-in rules with user rules. A user rule replaces
// the default of the same name in place; other user rules are appended.
// Options come from user.
func Merge(defaults, user RuleSet) RuleSet {
	out := RuleSet{
		Forbidden: make([]Rule, 0, len(defaults.Forbidden)+len(user.Forbidden)),
		Options:   user.Options,
		Source:    user.Source,
	}

	override := make(map[string]Rule, len(user.Forbidden))
	for _, r := range user.Forbidden {
		override[r.Name] = r
	}

	used := make(map[string]bool)
	for _, r := range defaults.Forbidden {
		if u, ok := override[r.Name]; ok {
			out.Forbidden = append(out.Forbidden, u)
			used[r.Name] = true
			continue
		}
		out.Forbidden = append(out.Forbidden, r)
	}
	for _, r := range user.Forbidden {
		if !used[r.Name] {
			out.Forbidden = append(out.Forbidden, r)
		}
	}
	return out
}
