package config

import (
	"os"
	"path/filepath"
	"strings"
)

// FileNames are the topology file names Discover looks for, in priority
// order.
var FileNames = []string{
	"identigraph.yaml",
	"identigraph.yml",
	"identigraph.toml",
	"identigraph.json",
	".identigraph.yaml",
	".identigraph.yml",
	".identigraph.toml",
	".identigraph.json",
}

// Discover walks up from dir looking for a topology file. It stops at the
// filesystem root or the user's home directory.
func Discover(dir string) (string, bool) {
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", false
		}
		dir = wd
	}
	home, _ := os.UserHomeDir()

	for {
		for _, name := range FileNames {
			candidate := filepath.Join(dir, name)
			if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
				return candidate, true
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break // Reached filesystem root
		}
		// Don't go above home directory
		if home != "" && dir == home {
			break
		}
		dir = parent
	}
	return "", false
}

// IsTopologyFile reports whether name looks like a topology file:
// identigraph.<ext>, .identigraph.<ext> or <anything>.identigraph.<ext>.
func IsTopologyFile(name string) bool {
	if Format(name) == "" {
		return false
	}
	stem := strings.TrimSuffix(name, filepath.Ext(name))
	return stem == "identigraph" || strings.HasSuffix(stem, ".identigraph")
}

// ScanTopologies walks root up to maxDepth directories deep and returns
// every topology file found. Hidden directories are skipped.
func ScanTopologies(root string, maxDepth int) []string {
	root = expandHome(root)
	if maxDepth <= 0 {
		maxDepth = 3
	}
	var results []string

	rootDepth := strings.Count(filepath.Clean(root), string(filepath.Separator))

	_ = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			currentDepth := strings.Count(filepath.Clean(path), string(filepath.Separator)) - rootDepth
			if currentDepth > maxDepth {
				return filepath.SkipDir
			}
			if path != root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if IsTopologyFile(d.Name()) {
			results = append(results, path)
		}
		return nil
	})

	return results
}

func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}
