package paths

import (
	"os"
	"path/filepath"
	"strings"
)

// DataDirName is the per-project directory holding archlens state (config, logs, history).
const DataDirName = ".archlens"

// CanonicalizePath returns absolutePath relative to repoRoot with forward
// slashes, after resolving symlinks in both. Components that do not exist yet
// are kept as written.
func CanonicalizePath(absolutePath string, repoRoot string) (string, error) {
	resolved, err := realPath(absolutePath)
	if err != nil {
		return "", err
	}
	rootResolved, err := realPath(repoRoot)
	if err != nil {
		return "", err
	}
	rel, err := filepath.Rel(rootResolved, resolved)
	if err != nil {
		return "", err
	}
	return filepath.ToSlash(rel), nil
}

// IsWithinRepo reports whether path lies inside repoRoot once symlinks are resolved.
func IsWithinRepo(path string, repoRoot string) bool {
	canonical, err := CanonicalizePath(path, repoRoot)
	if err != nil {
		return false
	}
	return canonical != ".." && !strings.HasPrefix(canonical, "../")
}

// realPath resolves symlinks in the longest existing prefix of p.
func realPath(p string) (string, error) {
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", err
	}
	var missing []string
	for {
		resolved, err := filepath.EvalSymlinks(abs)
		if err == nil {
			return filepath.Join(append([]string{resolved}, missing...)...), nil
		}
		if !os.IsNotExist(err) {
			return "", err
		}
		parent := filepath.Dir(abs)
		if parent == abs {
			return filepath.Join(append([]string{abs}, missing...)...), nil
		}
		missing = append([]string{filepath.Base(abs)}, missing...)
		abs = parent
	}
}

// NormalizePath normalizes a path by converting backslashes to forward slashes
// This is useful for paths that are already relative but need normalization
func NormalizePath(path string) string {
	return strings.ReplaceAll(filepath.ToSlash(path), "\\", "/")
}

// ModulePath returns the identity form of a module path: absolute, cleaned and
// slash-separated. Relative paths are resolved against root.
// Two spellings of the same file always produce the same ModulePath.
func ModulePath(root, p string) string {
	p = NormalizePath(p)
	if !filepath.IsAbs(filepath.FromSlash(p)) && !strings.HasPrefix(p, "/") {
		p = filepath.Join(root, filepath.FromSlash(p))
	}
	return NormalizePath(filepath.Clean(filepath.FromSlash(p)))
}

// RelativeTo returns modulePath relative to root with forward slashes.
// Paths outside root are returned unchanged.
func RelativeTo(root, modulePath string) string {
	rootNorm := NormalizePath(filepath.Clean(root))
	if !strings.HasSuffix(rootNorm, "/") {
		rootNorm += "/"
	}
	if strings.HasPrefix(modulePath, rootNorm) {
		return strings.TrimPrefix(modulePath, rootNorm)
	}
	return modulePath
}

// DataDir returns <root>/.archlens
func DataDir(root string) string {
	return filepath.Join(root, DataDirName)
}

// EnsureDataDir creates <root>/.archlens if needed and returns it.
func EnsureDataDir(root string) (string, error) {
	dir := DataDir(root)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	return dir, nil
}

// HistoryPath returns the default run-history database path for a project.
func HistoryPath(root string) string {
	return filepath.Join(DataDir(root), "history.db")
}

// LogPath returns the default log file path for a project.
func LogPath(root string) string {
	return filepath.Join(DataDir(root), "logs", "archlens.log")
}
