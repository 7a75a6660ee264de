package checkpoint

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"sort"
	"sync"
)

// Store keeps named snapshots in memory. Snapshots are deep copied on the way
// in and on the way out.
type Store struct {
	mu      sync.RWMutex
	entries map[string][]byte
}

// NewStore constructs an empty Store.
func NewStore() *Store {
	return &Store{entries: make(map[string][]byte)}
}

// Save stores snap under name, replacing any snapshot stored before.
func (s *Store) Save(name string, snap Snapshot) error {
	if name == "" {
		return fmt.Errorf("checkpoint: name must be non-empty")
	}

	var buf bytes.Buffer

	err := gob.NewEncoder(&buf).Encode(snap)
	if err != nil {
		return fmt.Errorf("checkpoint: unable to encode %q: %w", name, err)
	}

	s.mu.Lock()
	s.entries[name] = buf.Bytes()
	s.mu.Unlock()

	return nil
}

// Load returns a copy of the snapshot stored under name.
func (s *Store) Load(name string) (Snapshot, error) {
	s.mu.RLock()
	data, ok := s.entries[name]
	s.mu.RUnlock()

	var snap Snapshot

	if !ok {
		return snap, fmt.Errorf("checkpoint: %q is not stored", name)
	}

	err := gob.NewDecoder(bytes.NewReader(data)).Decode(&snap)
	if err != nil {
		return snap, fmt.Errorf("checkpoint: unable to decode %q: %w", name, err)
	}

	return snap, nil
}

// Discard drops the snapshot stored under name.
func (s *Store) Discard(name string) {
	s.mu.Lock()
	delete(s.entries, name)
	s.mu.Unlock()
}

// Names lists the stored snapshots in alphabetical order.
func (s *Store) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.entries))
	for name := range s.entries {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}
