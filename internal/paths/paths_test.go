package paths

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"src/a.ts", "src/a.ts"},
		{`src\utils\utils.ts`, "src/utils/utils.ts"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := NormalizePath(tt.in); got != tt.want {
			t.Errorf("NormalizePath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestModulePath(t *testing.T) {
	root := filepath.FromSlash("/repo")

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"relative", "src/a.ts", "/repo/src/a.ts"},
		{"dot relative", "./src/../src/a.ts", "/repo/src/a.ts"},
		{"absolute", "/repo/src/b.ts", "/repo/src/b.ts"},
		{"absolute unclean", "/repo/src//utils/../b.ts", "/repo/src/b.ts"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ModulePath(root, tt.in); got != tt.want {
				t.Errorf("ModulePath(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestRelativeTo(t *testing.T) {
	tests := []struct {
		root string
		path string
		want string
	}{
		{"/repo", "/repo/src/a.ts", "src/a.ts"},
		{"/repo/", "/repo/src/a.ts", "src/a.ts"},
		{"/repo", "/repository/x.ts", "/repository/x.ts"},
		{"/repo", "/other/x.ts", "/other/x.ts"},
	}

	for _, tt := range tests {
		if got := RelativeTo(tt.root, tt.path); got != tt.want {
			t.Errorf("RelativeTo(%q, %q) = %q, want %q", tt.root, tt.path, got, tt.want)
		}
	}
}

func TestCanonicalizePath(t *testing.T) {
	realDir := t.TempDir()
	file := filepath.Join(realDir, "src", "a.ts")
	if err := os.MkdirAll(filepath.Dir(file), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(file, []byte("export {}"), 0644); err != nil {
		t.Fatal(err)
	}
	link := filepath.Join(t.TempDir(), "link")
	if err := os.Symlink(realDir, link); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	tests := []struct {
		name string
		path string
		root string
		want string
	}{
		{"plain", file, realDir, "src/a.ts"},
		{"path through link", filepath.Join(link, "src", "a.ts"), realDir, "src/a.ts"},
		{"root through link", file, link, "src/a.ts"},
		{"missing file under link", filepath.Join(link, "src", "gone", "b.ts"), realDir, "src/gone/b.ts"},
		{"outside", filepath.Dir(realDir), realDir, ".."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CanonicalizePath(tt.path, tt.root)
			if err != nil {
				t.Fatalf("CanonicalizePath failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("CanonicalizePath = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestIsWithinRepo(t *testing.T) {
	root := t.TempDir()
	link := filepath.Join(t.TempDir(), "link")
	if err := os.Symlink(root, link); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	tests := []struct {
		path string
		want bool
	}{
		{filepath.Join(root, "src", "a.ts"), true},
		{filepath.Join(link, "src", "a.ts"), true},
		{root, true},
		{filepath.Dir(root), false},
		{filepath.Join(filepath.Dir(root), "sibling", "x.ts"), false},
	}

	for _, tt := range tests {
		if got := IsWithinRepo(tt.path, root); got != tt.want {
			t.Errorf("IsWithinRepo(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestDataPaths(t *testing.T) {
	root := t.TempDir()

	dir, err := EnsureDataDir(root)
	if err != nil {
		t.Fatalf("EnsureDataDir failed: %v", err)
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		t.Fatalf("data dir not created: %v", err)
	}
	if filepath.Dir(HistoryPath(root)) != dir {
		t.Errorf("HistoryPath %q not under %q", HistoryPath(root), dir)
	}
	if filepath.Dir(filepath.Dir(LogPath(root))) != dir {
		t.Errorf("LogPath %q not under %q", LogPath(root), dir)
	}
}
