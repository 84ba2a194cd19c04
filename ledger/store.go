package ledger

import (
	"context"
	"sync"
	"time"
)

// Entry is one committed key-value write. Deleted entries remove the key.
type Entry struct {
	Contract Address
	Key      Key
	Value    []byte
	Deleted  bool
}

// Event is a contract event recorded alongside the writes of its invocation.
type Event struct {
	ID        string
	Contract  Address
	Topic     string
	Data      []byte
	Sequence  uint64
	Timestamp time.Time
}

// ChangeSet holds everything one invocation commits.
type ChangeSet struct {
	Sequence uint64
	Entries  []Entry
	Events   []Event
}

// Store is the persistent key-value engine behind the host. Commit must apply
// a change set entirely or not at all.
type Store interface {
	Load(ctx context.Context, contract Address, key Key) ([]byte, bool, error)
	Commit(ctx context.Context, cs ChangeSet) error
	Events(ctx context.Context, contract Address) ([]Event, error)
}

// MemoryStore keeps ledger state in process memory.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[Address]map[Key][]byte
	events  []Event
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[Address]map[Key][]byte)}
}

func (s *MemoryStore) Load(_ context.Context, contract Address, key Key) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.entries[contract][key]
	if !ok {
		return nil, false, nil
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, true, nil
}

func (s *MemoryStore) Commit(_ context.Context, cs ChangeSet) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range cs.Entries {
		space := s.entries[e.Contract]
		if e.Deleted {
			delete(space, e.Key)
			continue
		}
		if space == nil {
			space = make(map[Key][]byte)
			s.entries[e.Contract] = space
		}
		space[e.Key] = e.Value
	}
	s.events = append(s.events, cs.Events...)
	return nil
}

func (s *MemoryStore) Events(_ context.Context, contract Address) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Event
	for _, ev := range s.events {
		if ev.Contract == contract {
			out = append(out, ev)
		}
	}
	return out, nil
}
