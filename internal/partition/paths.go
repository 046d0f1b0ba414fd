package partition

import (
	"os"
	"path/filepath"
)

// resolveDir locates the artifact directory for a partition. Precedence:
// explicit per-partition override, then the configured root directory, then
// the fallback search paths, in order. First existing directory wins.
func (s *Store) resolveDir(id string) (string, bool) {
	if override, ok := s.cfg.Overrides[id]; ok && dirExists(override) {
		return override, true
	}

	if s.cfg.RootDir != "" {
		if dir := filepath.Join(s.cfg.RootDir, id); dirExists(dir) {
			return dir, true
		}
	}

	for _, root := range s.cfg.FallbackDirs {
		if dir := filepath.Join(root, id); dirExists(dir) {
			return dir, true
		}
	}
	return "", false
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
