// Package cache provides the instance cache used to avoid redundant
// expensive construction (filter design, encoder setup). Keys are a
// deterministic serialization of the configuration that produced the
// instance. Correctness never depends on the cache being present.
package cache

import (
	"encoding/json"
	"os"
	"sync"
)

// Store is an in-memory instance cache safe for concurrent use. At most one
// construction runs per key; concurrent readers of a cached instance are
// safe as long as the instances themselves are immutable.
type Store struct {
	mu       sync.RWMutex
	entries  map[string]any
	inflight map[string]*call
}

type call struct {
	done  chan struct{}
	value any
	err   error
}

// NewStore creates an empty cache.
func NewStore() *Store {
	return &Store{
		entries:  make(map[string]any),
		inflight: make(map[string]*call),
	}
}

// Key derives the deterministic cache key for a configuration value.
// encoding/json sorts map keys and walks struct fields in order, so equal
// configurations serialize identically.
func Key(cfg any) (string, error) {
	data, err := json.Marshal(cfg)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Get returns the cached instance for key, if any.
func (s *Store) Get(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.entries[key]
	return v, ok
}

// Put stores an instance under key, replacing any previous value.
func (s *Store) Put(key string, instance any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = instance
}

// Len returns the number of cached instances.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// GetOrCreate returns the cached instance for key, constructing it with
// build if absent. Concurrent callers with the same key share a single
// build; a failed build is not cached.
func (s *Store) GetOrCreate(key string, build func() (any, error)) (any, error) {
	s.mu.Lock()
	if v, ok := s.entries[key]; ok {
		s.mu.Unlock()
		return v, nil
	}
	if c, ok := s.inflight[key]; ok {
		s.mu.Unlock()
		<-c.done
		return c.value, c.err
	}
	c := &call{done: make(chan struct{})}
	s.inflight[key] = c
	s.mu.Unlock()

	c.value, c.err = build()

	s.mu.Lock()
	delete(s.inflight, key)
	if c.err == nil {
		s.entries[key] = c.value
	}
	s.mu.Unlock()
	close(c.done)
	return c.value, c.err
}

// Save persists the JSON-serializable entries to path. Entries that do not
// marshal are skipped: the cache is an accelerator, not a source of truth.
func (s *Store) Save(path string) error {
	s.mu.RLock()
	out := make(map[string]json.RawMessage, len(s.entries))
	for k, v := range s.entries {
		data, err := json.Marshal(v)
		if err != nil {
			continue
		}
		out[k] = data
	}
	s.mu.RUnlock()
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Load reads previously saved entries into the cache as raw JSON messages.
// Callers that need typed instances re-decode or rebuild on first use.
func (s *Store) Load(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	var in map[string]json.RawMessage
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, v := range in {
		s.entries[k] = v
	}
	return nil
}
