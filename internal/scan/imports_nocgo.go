//go:build !cgo

package scan

func newImportExtractor() ImportExtractor {
	return RegexExtractor{}
}
