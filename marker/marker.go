// Package marker persists the timestamp of the last successful sync run.
// An absent marker means "beginning of time": the first run imports
// everything.
package marker

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Store reads and writes the marker file.
type Store struct {
	path string
}

// NewStore builds a Store for the given file path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Read returns the recorded timestamp, or the zero time when the marker
// file does not exist yet.
func (s *Store) Read() (time.Time, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("reading marker %s: %w", s.path, err)
	}

	stamp := strings.TrimSpace(string(data))
	if stamp == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, stamp)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing marker %s: %w", s.path, err)
	}
	return t, nil
}

// Write atomically replaces the marker with the given timestamp.
func (s *Store) Write(t time.Time) error {
	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp")
	if err != nil {
		return fmt.Errorf("creating marker temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.WriteString(t.UTC().Format(time.RFC3339) + "\n"); err != nil {
		tmp.Close()
		return fmt.Errorf("writing marker: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing marker temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replacing marker %s: %w", s.path, err)
	}
	return nil
}
