package seen

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
)

// Set holds the base ids of items emitted by earlier runs. Only presence
// checks matter; no per-id metadata is kept.
type Set map[string]struct{}

func NewSet(ids ...string) Set {
	s := make(Set, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

func (s Set) Has(id string) bool {
	_, ok := s[id]
	return ok
}

func (s Set) Add(id string) {
	s[id] = struct{}{}
}

// Sorted returns the ids in ascending order.
func (s Set) Sorted() []string {
	ids := make([]string, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Trim bounds the set to at most max ids, dropping the lexicographically
// smallest. arXiv ids sort roughly by age, so the oldest go first. The exact
// eviction order is not load-bearing, the record is only a presence check.
func (s Set) Trim(max int) {
	if max <= 0 || len(s) <= max {
		return
	}
	ids := s.Sorted()
	for _, id := range ids[:len(ids)-max] {
		delete(s, id)
	}
}

// Store persists the seen-record between runs.
type Store interface {
	Load() (Set, error)
	Save(Set) error
}

// FileStore keeps the record in a small JSON file
// ({"seen_ids": ["2501.00123", ...]}).
type FileStore struct {
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load reads the record. A missing file is an empty record, not an error.
func (s *FileStore) Load() (Set, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return NewSet(), nil
		}
		return nil, fmt.Errorf("seen: failed to read %s: %w", s.path, err)
	}

	var state struct {
		SeenIDs []string `json:"seen_ids"`
	}
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("seen: failed to parse %s: %w", s.path, err)
	}
	return NewSet(state.SeenIDs...), nil
}

// Save rewrites the record atomically via a temp file rename.
func (s *FileStore) Save(set Set) error {
	state := struct {
		SeenIDs []string `json:"seen_ids"`
	}{SeenIDs: set.Sorted()}

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("seen: failed to marshal record: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("seen: failed to create %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".state_*")
	if err != nil {
		return fmt.Errorf("seen: failed to create temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("seen: failed to write record: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("seen: failed to close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("seen: failed to replace %s: %w", s.path, err)
	}
	return nil
}
