package watcher

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// =============================================================================
// FILE SELECTION
// =============================================================================

// Candidate is a session file found in one of the watched directories.
type Candidate struct {
	Path    string
	ModTime time.Time
	Size    int64
}

// RankFiles lists files ending in ext across dirs (one level deep), most
// recently modified first. Directories that cannot be read are skipped.
// Files with equal modification times keep listing order: directories in
// the order given, entries by name.
func RankFiles(dirs []string, ext string) []Candidate {
	var candidates []Candidate
	for _, dir := range dirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, entry := range entries {
			if entry.IsDir() || !strings.HasSuffix(entry.Name(), ext) {
				continue
			}
			info, err := entry.Info()
			if err != nil || !info.Mode().IsRegular() {
				continue
			}
			candidates = append(candidates, Candidate{
				Path:    filepath.Join(dir, entry.Name()),
				ModTime: info.ModTime(),
				Size:    info.Size(),
			})
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].ModTime.After(candidates[j].ModTime)
	})
	return candidates
}

// SelectFile returns the path of the rank-th most recently modified file
// (0 = newest). It reports false when fewer than rank+1 files exist.
func SelectFile(dirs []string, ext string, rank int) (string, bool) {
	if rank < 0 {
		return "", false
	}
	candidates := RankFiles(dirs, ext)
	if rank >= len(candidates) {
		return "", false
	}
	return candidates[rank].Path, true
}

// matchesExt reports whether path has the tracked extension and lives
// directly in one of dirs.
func matchesExt(dirs []string, ext, path string) bool {
	if !strings.HasSuffix(path, ext) {
		return false
	}
	parent := filepath.Clean(filepath.Dir(path))
	for _, dir := range dirs {
		if filepath.Clean(dir) == parent {
			return true
		}
	}
	return false
}
