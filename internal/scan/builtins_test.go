package scan

import "testing"

func TestIsBuiltin(t *testing.T) {
	tests := []struct {
		spec string
		want bool
	}{
		{"fs", true},
		{"node:fs", true},
		{"fs/promises", true},
		{"node:test", true},
		{"path", true},
		{"react", false},
		{"./fs", false},
		{"@types/node", false},
	}
	for _, tt := range tests {
		if got := IsBuiltin(tt.spec); got != tt.want {
			t.Errorf("IsBuiltin(%q) = %v, want %v", tt.spec, got, tt.want)
		}
	}
}

func TestPackageName(t *testing.T) {
	tests := []struct {
		spec, want string
	}{
		{"lodash", "lodash"},
		{"lodash/fp", "lodash"},
		{"@scope/pkg", "@scope/pkg"},
		{"@scope/pkg/deep/file", "@scope/pkg"},
		{"@scope", "@scope"},
	}
	for _, tt := range tests {
		if got := PackageName(tt.spec); got != tt.want {
			t.Errorf("PackageName(%q) = %q, want %q", tt.spec, got, tt.want)
		}
	}
}
