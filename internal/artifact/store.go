// Package artifact implements the process-wide, per-scenario
// String -> ArtifactValue map: a single coarse mutex is enough since
// the store is read-seldom and written-seldom relative to the I/O the
// activities themselves do. Reaching for sharded or lock-free storage
// here for a write-once map would be over-engineering.
package artifact

import (
	"fmt"
	"sync"

	"github.com/firestige/otus-bench/internal/model"
)

// Store is a single-writer, clone-on-read artifact map.
type Store struct {
	mu   sync.Mutex
	data map[string]model.ArtifactValue
}

// NewStore creates an empty artifact store.
func NewStore() *Store {
	return &Store{data: make(map[string]model.ArtifactValue)}
}

// Set inserts value under key. Re-inserting an already-present key is
// an error, treated as a scenario-wiring bug.
func (s *Store) Set(key string, value model.ArtifactValue) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[key]; exists {
		return fmt.Errorf("artifact %q already set", key)
	}
	s.data[key] = value
	return nil
}

// Get returns a clone of the value stored under key. A missing key is
// an error, also treated as a wiring bug.
func (s *Store) Get(key string) (model.ArtifactValue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, exists := s.data[key]
	if !exists {
		return model.ArtifactValue{}, fmt.Errorf("artifact %q not set", key)
	}
	return cloneValue(v), nil
}

func cloneValue(v model.ArtifactValue) model.ArtifactValue {
	out := model.ArtifactValue{}
	if v.StringList != nil {
		out.StringList = append([]string(nil), v.StringList...)
	}
	if v.Str != nil {
		s := *v.Str
		out.Str = &s
	}
	return out
}
