package indexer

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
)

// ResetEntry is one top-level item of the results directory.
type ResetEntry struct {
	Name  string `json:"name"`
	IsDir bool   `json:"is_dir"`
}

// ResetResult lists what a reset found and what it removed.
type ResetResult struct {
	Dir          string       `json:"dir"`
	Entries      []ResetEntry `json:"entries"`
	RemovedFiles int          `json:"removed_files"`
	RemovedDirs  int          `json:"removed_dirs"`
	// Failures maps entry names to the error that kept them in place.
	Failures map[string]string `json:"failures,omitempty"`
}

// ListResults returns the top-level contents of dir, sorted by name. A
// missing dir yields no entries.
func ListResults(dir string) ([]ResetEntry, error) {
	items, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("listing %s: %w", dir, err)
	}
	entries := make([]ResetEntry, 0, len(items))
	for _, it := range items {
		entries = append(entries, ResetEntry{Name: it.Name(), IsDir: it.IsDir()})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries, nil
}

// Reset removes everything inside dir but keeps dir itself. With dryRun it
// only lists. An entry that cannot be removed is reported in Failures and
// does not stop the others.
func Reset(dir string, dryRun bool) (*ResetResult, error) {
	entries, err := ListResults(dir)
	if err != nil {
		return nil, err
	}
	result := &ResetResult{Dir: dir, Entries: entries}
	if dryRun {
		return result, nil
	}
	logger := slog.Default().With("component", "reset", "dir", dir)
	for _, e := range entries {
		path := filepath.Join(dir, e.Name)
		if e.IsDir {
			err = os.RemoveAll(path)
		} else {
			err = os.Remove(path)
		}
		if err != nil {
			if result.Failures == nil {
				result.Failures = make(map[string]string)
			}
			result.Failures[e.Name] = err.Error()
			logger.Warn("could not remove entry", "entry", e.Name, "error", err)
			continue
		}
		if e.IsDir {
			result.RemovedDirs++
		} else {
			result.RemovedFiles++
		}
	}
	logger.Info("results directory cleared",
		"files", result.RemovedFiles,
		"dirs", result.RemovedDirs,
		"failures", len(result.Failures),
	)
	return result, nil
}
