package gascache

import (
	"sync"
)

// Store holds the latest snapshot per chain. Entries are created lazily
// on first access and live for the process lifetime; the set of chains
// is small and statically configured, so there is no eviction.
//
// Locking is per entry: the store-wide mutex only guards the entry map
// itself, so unrelated chains never contend.
type Store struct {
	mu      sync.Mutex
	entries map[uint64]*storeEntry
}

type storeEntry struct {
	mu       sync.Mutex
	snapshot *Snapshot
}

func NewStore() *Store {
	return &Store{
		entries: make(map[uint64]*storeEntry),
	}
}

func (s *Store) entry(chainID uint64) *storeEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[chainID]
	if !ok {
		entry = new(storeEntry)
		s.entries[chainID] = entry
	}
	return entry
}

// Get returns the latest snapshot for the chain. Absence is a normal
// value, not an error.
func (s *Store) Get(chainID uint64) (Snapshot, bool) {
	entry := s.entry(chainID)
	entry.mu.Lock()
	defer entry.mu.Unlock()
	if entry.snapshot == nil {
		return Snapshot{}, false
	}
	return *entry.snapshot, true
}

// Put installs a new snapshot, replacing any previous one. Whichever
// fetch completes last wins, regardless of which started first.
func (s *Store) Put(chainID uint64, snapshot Snapshot) {
	entry := s.entry(chainID)
	entry.mu.Lock()
	entry.snapshot = &snapshot
	entry.mu.Unlock()
}

// Len returns the number of chains holding a snapshot.
func (s *Store) Len() int {
	s.mu.Lock()
	entries := make([]*storeEntry, 0, len(s.entries))
	for _, entry := range s.entries {
		entries = append(entries, entry)
	}
	s.mu.Unlock()

	count := 0
	for _, entry := range entries {
		entry.mu.Lock()
		if entry.snapshot != nil {
			count++
		}
		entry.mu.Unlock()
	}
	return count
}
