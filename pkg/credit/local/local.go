package local

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Store keeps the balance as text in a local file.
type Store struct {
	path string
}

func New(path string) *Store {
	return &Store{path: path}
}

func (s *Store) Load(ctx context.Context) (int, bool, error) {
	b, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("local: couldn't read %q: %w", s.path, err)
	}
	txt := strings.TrimSpace(string(b))
	if txt == "" {
		return 0, false, nil
	}
	v, err := strconv.Atoi(txt)
	if err != nil {
		return 0, false, fmt.Errorf("local: invalid balance %q in %q: %w", txt, s.path, err)
	}
	return v, true, nil
}

func (s *Store) Save(ctx context.Context, v int) error {
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("local: couldn't create folder %q: %w", dir, err)
		}
	}
	// Write to a temporary file and rename it so readers never see a partial
	// value
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, []byte(strconv.Itoa(v)), 0644); err != nil {
		return fmt.Errorf("local: couldn't write %q: %w", tmp, err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("local: couldn't rename %q: %w", tmp, err)
	}
	return nil
}
