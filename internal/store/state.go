package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/ibeckermayer/threadwatch/internal/types"
)

// State is the processed-set: every post id that has been reported on.
type State struct {
	Processed map[string]types.ProcessingRecord `json:"processed"`
	LastRunAt *time.Time                        `json:"lastRunAt"`
}

// Has reports whether id was already processed.
func (s *State) Has(id string) bool {
	_, ok := s.Processed[id]
	return ok
}

// Mark records id as processed.
func (s *State) Mark(id string, rec types.ProcessingRecord) {
	if s.Processed == nil {
		s.Processed = make(map[string]types.ProcessingRecord)
	}
	s.Processed[id] = rec
}

// Forget removes id so it becomes eligible again. Returns false if absent.
func (s *State) Forget(id string) bool {
	if !s.Has(id) {
		return false
	}
	delete(s.Processed, id)
	return true
}

// IDs returns processed ids in numeric order.
func (s *State) IDs() []string {
	ids := make([]string, 0, len(s.Processed))
	for id := range s.Processed {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return CompareIDs(ids[i], ids[j]) < 0 })
	return ids
}

// CompareIDs orders post ids numerically, falling back to string order for
// ids that are not integers.
func CompareIDs(a, b string) int {
	x, okA := new(big.Int).SetString(a, 10)
	y, okB := new(big.Int).SetString(b, 10)
	if okA && okB {
		return x.Cmp(y)
	}
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// StateFile persists State as a single JSON document, read fully at run
// start and rewritten fully at run end. There is no locking: only one
// process may use a state file at a time.
type StateFile struct {
	path string
}

// NewStateFile creates a state file handle for path.
func NewStateFile(path string) *StateFile {
	return &StateFile{path: path}
}

// Path returns the file location.
func (f *StateFile) Path() string {
	return f.path
}

// Load reads the state, creating the file with an empty processed map if
// it does not exist yet.
func (f *StateFile) Load() (*State, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		st := &State{Processed: map[string]types.ProcessingRecord{}}
		if err := f.write(st); err != nil {
			return nil, fmt.Errorf("failed to create state file: %w", err)
		}
		return st, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read state file: %w", err)
	}

	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("failed to parse state file %s: %w", f.path, err)
	}
	if st.Processed == nil {
		st.Processed = map[string]types.ProcessingRecord{}
	}
	return &st, nil
}

// Save stamps lastRunAt and rewrites the whole file.
func (f *StateFile) Save(st *State, now time.Time) error {
	ts := now.UTC()
	st.LastRunAt = &ts
	if err := f.write(st); err != nil {
		return fmt.Errorf("failed to write state file: %w", err)
	}
	return nil
}

// Put rewrites the whole file without touching lastRunAt.
func (f *StateFile) Put(st *State) error {
	if err := f.write(st); err != nil {
		return fmt.Errorf("failed to write state file: %w", err)
	}
	return nil
}

// write replaces the file through a temp file in the same directory.
func (f *StateFile) write(st *State) error {
	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')

	tmp, err := os.CreateTemp(dir, filepath.Base(f.path)+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), f.path)
}
