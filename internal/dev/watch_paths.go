package dev

import (
	"os"
	"path/filepath"

	"github.com/vango-dev/routekit/internal/config"
)

// CollectWatchPaths returns the existing, deduplicated directories the dev
// loop watches: the routes directory plus dev.watch entries.
func CollectWatchPaths(cfg *config.Config) []string {
	paths := cfg.WatchPaths()

	unique := make([]string, 0, len(paths))
	seen := make(map[string]struct{}, len(paths))
	for _, path := range paths {
		if path == "" {
			continue
		}
		clean := filepath.Clean(path)
		if _, ok := seen[clean]; ok {
			continue
		}
		seen[clean] = struct{}{}
		if info, err := os.Stat(clean); err != nil || !info.IsDir() {
			continue
		}
		unique = append(unique, clean)
	}
	return unique
}
