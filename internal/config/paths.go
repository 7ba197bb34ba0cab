package config

import (
	"os"
	"path/filepath"
)

// FileName is the configuration file both binaries look for.
const FileName = "mgnrega-portal.toml"

// SearchPaths returns TOML files to auto-discover (first match wins).
// Binary-relative paths are tried first, with CWD and Docker fallbacks after.
// Paths are deduplicated via filepath.Abs.
func SearchPaths() []string {
	candidates := []string{
		FileName,
		filepath.Join("config", FileName),
		filepath.Join("docker", FileName),
	}

	var paths []string
	if exe, err := os.Executable(); err == nil {
		binDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(binDir, FileName),
			filepath.Join(binDir, "config", FileName),
		)
	}
	paths = append(paths, candidates...)

	seen := make(map[string]bool, len(paths))
	deduped := make([]string, 0, len(paths))
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			abs = p
		}
		if seen[abs] {
			continue
		}
		seen[abs] = true
		deduped = append(deduped, p)
	}
	return deduped
}

// DiscoverFile returns the first existing file of SearchPaths, or "".
func DiscoverFile() string {
	for _, path := range SearchPaths() {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}
