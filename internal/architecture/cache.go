package architecture

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"archlens/internal/paths"
	"archlens/internal/project"
)

// CachedDescriptor is a project descriptor together with the modification
// times of the files it was read from.
type CachedDescriptor struct {
	Descriptor *project.Descriptor
	LoadedAt   time.Time
	stamps     map[string]time.Time
}

// DescriptorCache keeps project descriptors between runs. An entry is
// reused only while its manifest, resolution config and rule document are unchanged.
type DescriptorCache struct {
	mu    sync.RWMutex
	cache map[string]*CachedDescriptor
}

// NewDescriptorCache creates a new descriptor cache
func NewDescriptorCache() *DescriptorCache {
	return &DescriptorCache{
		cache: make(map[string]*CachedDescriptor),
	}
}

// Get returns the descriptor cached for root if none of its source files changed.
func (c *DescriptorCache) Get(root string) (*project.Descriptor, bool) {
	c.mu.RLock()
	cached, found := c.cache[cacheKey(root)]
	c.mu.RUnlock()

	if !found || !cached.fresh() {
		return nil, false
	}
	return cached.Descriptor, true
}

// Set stores a descriptor under its root.
func (c *DescriptorCache) Set(desc *project.Descriptor) {
	entry := &CachedDescriptor{
		Descriptor: desc,
		LoadedAt:   time.Now(),
		stamps:     make(map[string]time.Time),
	}
	for _, p := range sourceFiles(desc) {
		entry.stamps[p] = modTime(p)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache[cacheKey(desc.Root)] = entry
}

func (e *CachedDescriptor) fresh() bool {
	for p, t := range e.stamps {
		if !modTime(p).Equal(t) {
			return false
		}
	}
	// config files added since loading change discovery
	root := filepath.FromSlash(e.Descriptor.Root)
	if e.Descriptor.RuleConfig == "" && project.FindRuleConfig(root) != "" {
		return false
	}
	found := project.FindResolutionFile(root)
	return paths.NormalizePath(found) == paths.NormalizePath(e.Descriptor.Resolution.File)
}

func sourceFiles(desc *project.Descriptor) []string {
	files := []string{filepath.FromSlash(desc.Manifest)}
	if desc.RuleConfig != "" {
		files = append(files, filepath.FromSlash(desc.RuleConfig))
	}
	if desc.Resolution.File != "" {
		files = append(files, desc.Resolution.File)
	}
	return files
}

// modTime returns the zero time for missing files.
func modTime(p string) time.Time {
	info, err := os.Stat(p)
	if err != nil {
		return time.Time{}
	}
	return info.ModTime()
}

func cacheKey(root string) string {
	if abs, err := filepath.Abs(root); err == nil {
		root = abs
	}
	return filepath.ToSlash(filepath.Clean(root))
}
