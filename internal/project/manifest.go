package project

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
	"golang.org/x/mod/modfile"
)

// ManifestName reads the project name declared by a manifest.
func ManifestName(kind ManifestKind, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}

	switch kind {
	case ManifestPackageJSON:
		var pkg struct {
			Name string `json:"name"`
		}
		if err := json.Unmarshal(data, &pkg); err != nil {
			return "", fmt.Errorf("parsing %s: %w", path, err)
		}
		return pkg.Name, nil

	case ManifestGoMod:
		mod := modfile.ModulePath(data)
		if mod == "" {
			return "", fmt.Errorf("parsing %s: no module directive", path)
		}
		return mod, nil

	case ManifestCargo:
		var cargo struct {
			Package struct {
				Name string `toml:"name"`
			} `toml:"package"`
			Workspace *struct{} `toml:"workspace"`
		}
		if err := toml.Unmarshal(data, &cargo); err != nil {
			return "", fmt.Errorf("parsing %s: %w", path, err)
		}
		return cargo.Package.Name, nil

	case ManifestPyProject:
		var py struct {
			Project struct {
				Name string `toml:"name"`
			} `toml:"project"`
			Tool struct {
				Poetry struct {
					Name string `toml:"name"`
				} `toml:"poetry"`
			} `toml:"tool"`
		}
		if err := toml.Unmarshal(data, &py); err != nil {
			return "", fmt.Errorf("parsing %s: %w", path, err)
		}
		if py.Project.Name != "" {
			return py.Project.Name, nil
		}
		return py.Tool.Poetry.Name, nil
	}
	return "", fmt.Errorf("unknown manifest kind %q", kind)
}
