package indexer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// ArtifactSink persists the space-joined normalized tokens of each text.
type ArtifactSink interface {
	Write(ctx context.Context, name, normalized string) error
}

// DirSink writes each artifact to Dir under the text's own name.
type DirSink struct {
	Dir  string
	once sync.Once
	err  error
}

// NewDirSink returns a sink writing into dir, created on first use.
func NewDirSink(dir string) *DirSink {
	return &DirSink{Dir: dir}
}

func (s *DirSink) Write(ctx context.Context, name, normalized string) error {
	s.once.Do(func() {
		if err := os.MkdirAll(s.Dir, 0755); err != nil {
			s.err = fmt.Errorf("creating normalized directory: %w", err)
		}
	})
	if s.err != nil {
		return s.err
	}
	if err := os.WriteFile(filepath.Join(s.Dir, name), []byte(normalized), 0644); err != nil {
		return fmt.Errorf("writing normalized %s: %w", name, err)
	}
	return nil
}
