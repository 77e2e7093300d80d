// Package source lists and reads the extracted document texts consumed by a
// normalization run, either from a local directory or from an S3-compatible
// bucket.
package source

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	apperrors "github.com/Adithya-Monish-Kumar-K/Document-Retrieval-Engine/pkg/errors"
)

// Source provides extracted document texts by name.
type Source interface {
	// List returns the names of every text ending in suffix, sorted.
	List(ctx context.Context, suffix string) ([]string, error)
	// Read returns the text stored under name. Failures wrap ErrIO.
	Read(ctx context.Context, name string) ([]byte, error)
	// String describes the source for logs.
	String() string
}

// Dir reads texts from a local directory. Subdirectories are ignored.
type Dir struct {
	Path string
}

// NewDir returns a Source over the files of path.
func NewDir(path string) *Dir {
	return &Dir{Path: path}
}

func (d *Dir) List(ctx context.Context, suffix string) ([]string, error) {
	entries, err := os.ReadDir(d.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperrors.Newf(apperrors.ErrConfiguration, 0, "text directory not found: %s", d.Path)
		}
		return nil, fmt.Errorf("listing %s: %w", d.Path, err)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !hasSuffixFold(entry.Name(), suffix) {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)
	return names, nil
}

func (d *Dir) Read(ctx context.Context, name string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(d.Path, name))
	if err != nil {
		return nil, apperrors.Newf(apperrors.ErrIO, 0, "reading %s: %v", name, err)
	}
	return data, nil
}

func (d *Dir) String() string {
	return "dir:" + d.Path
}

func hasSuffixFold(name, suffix string) bool {
	return len(name) >= len(suffix) && strings.EqualFold(name[len(name)-len(suffix):], suffix)
}
