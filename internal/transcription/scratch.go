package transcription

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
)

// scratch tracks every temporary file one pipeline invocation creates.
// Names carry a per-invocation token plus a sequence number, so concurrent
// requests sharing the temp directory never collide.
type scratch struct {
	dir   string
	token string

	mu    sync.Mutex
	seq   int
	files map[string]struct{}
}

func newScratch(dir string) (*scratch, error) {
	if dir == "" {
		dir = os.TempDir()
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create temp directory: %w", err)
	}
	return &scratch{
		dir:   dir,
		token: uuid.New().String(),
		files: make(map[string]struct{}),
	}, nil
}

// path reserves a unique file name and registers it for cleanup
func (s *scratch) path(label, ext string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	p := filepath.Join(s.dir, fmt.Sprintf("%s_%s_%04d%s", s.token, label, s.seq, ext))
	s.files[p] = struct{}{}
	return p
}

// release deletes one registered file
func (s *scratch) release(path string) {
	if path == "" {
		return
	}

	s.mu.Lock()
	_, ok := s.files[path]
	delete(s.files, path)
	s.mu.Unlock()

	if !ok {
		return
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		log.Printf("Failed to cleanup temp file %s: %v", path, err)
	}
}

// releaseAll deletes everything still registered
func (s *scratch) releaseAll() {
	s.mu.Lock()
	paths := make([]string, 0, len(s.files))
	for p := range s.files {
		paths = append(paths, p)
	}
	s.mu.Unlock()

	for _, p := range paths {
		s.release(p)
	}
}
