package feed

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Discover locates the feed file matching prefix and suffix inside dir. When
// several files match, the most recently modified one wins. A missing file is
// a precondition failure for the run.
func Discover(dir, prefix, suffix string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("failed to read feed directory %s: %w", dir, err)
	}

	var newest string
	var newestMod int64
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, suffix) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if newest == "" || info.ModTime().UnixNano() > newestMod {
			newest = name
			newestMod = info.ModTime().UnixNano()
		}
	}

	if newest == "" {
		return "", fmt.Errorf("no feed file matching %s*%s in %s", prefix, suffix, dir)
	}
	return filepath.Join(dir, newest), nil
}
