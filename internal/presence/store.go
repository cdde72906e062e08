package presence

import (
	"log/slog"
	"sort"
	"sync"
)

// Store holds one DevicePresence per device key. Values are stored and
// returned by copy so callers never share mutable state with the store.
type Store struct {
	mu      sync.RWMutex
	entries map[string]DevicePresence
}

func NewStore() *Store {
	return &Store{
		entries: make(map[string]DevicePresence),
	}
}

func (s *Store) Get(key string) (DevicePresence, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, exists := s.entries[key]
	return p, exists
}

func (s *Store) Upsert(key string, p DevicePresence) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p.DeviceKey = key
	s.entries[key] = p
}

// Snapshot returns a point-in-time copy of every entry ordered by device key.
// The lock is held only for the copy.
func (s *Store) Snapshot() []DevicePresence {
	s.mu.RLock()
	out := make([]DevicePresence, 0, len(s.entries))
	for _, p := range s.entries {
		out = append(out, p)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].DeviceKey < out[j].DeviceKey
	})
	return out
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func (s *Store) Dump() {
	for _, p := range s.Snapshot() {
		slog.Debug("Presence Dump",
			"device_key", p.DeviceKey,
			"status", p.Status,
			"last_seen_at", p.LastSeenAt,
			"status_changed_at", p.StatusChangedAt,
		)
	}
}
