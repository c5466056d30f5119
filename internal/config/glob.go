package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ExpandGlobs expands trace file paths and glob patterns into a sorted,
// de-duplicated list. Plain paths must exist; a pattern without matches is
// an error so a typo cannot silently produce an empty run.
func ExpandGlobs(patterns []string) ([]string, error) {
	if len(patterns) == 0 {
		return nil, fmt.Errorf("no trace files given")
	}

	files := make([]string, 0, len(patterns))
	seen := make(map[string]struct{})
	add := func(path string) {
		if _, ok := seen[path]; ok {
			return
		}
		seen[path] = struct{}{}
		files = append(files, path)
	}

	for _, pattern := range patterns {
		if !strings.ContainsAny(pattern, "*?[") {
			if _, err := os.Stat(pattern); err != nil {
				return nil, err
			}
			add(pattern)
			continue
		}

		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, err
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("no matches for pattern %q", pattern)
		}
		for _, match := range matches {
			add(match)
		}
	}

	sort.Strings(files)
	return files, nil
}
