package extractor

import (
	"fmt"

	"github.com/Masterminds/semver/v3"
)

// parseConstraint parses an analyzer version constraint such as ">=16 <17".
// An empty string yields a nil constraint.
func parseConstraint(raw string) (*semver.Constraints, error) {
	if raw == "" {
		return nil, nil
	}
	c, err := semver.NewConstraint(raw)
	if err != nil {
		return nil, fmt.Errorf("parse constraint %q: %w", raw, err)
	}
	return c, nil
}

// checkVersion reports an error if the analyzer version does not satisfy c.
// A nil constraint or a document without version information always passes.
func checkVersion(info *AnalyzerInfo, c *semver.Constraints) error {
	if c == nil || info == nil || info.Version == "" {
		return nil
	}

	v, err := semver.NewVersion(info.Version)
	if err != nil {
		return fmt.Errorf("parse analyzer version %q: %w", info.Version, err)
	}
	if ok, errs := c.Validate(v); !ok {
		if len(errs) > 0 {
			return fmt.Errorf("analyzer %s %s: %w", info.Name, v, errs[0])
		}
		return fmt.Errorf("analyzer %s %s does not satisfy %s", info.Name, v, c)
	}
	return nil
}
