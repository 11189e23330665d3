package ratelimit

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Every this many increments the store sweeps out elapsed records.
const defaultPruneEvery = 1024

type memoryEntry struct {
	mu      sync.Mutex
	rec     Record
	removed bool
}

// MemoryStore keeps records in process memory.
//
// Each key has its own lock, so increments for different tokens never wait on
// each other. Elapsed records are dropped by Prune, which Increment also runs
// periodically, so memory tracks the tokens seen in the current window rather
// than every token ever seen. State is local to the process and is not shared
// across replicas; use RedisStore or PostgresStore when more than one instance
// serves traffic.
type MemoryStore struct {
	entries    sync.Map // key -> *memoryEntry
	increments atomic.Uint64
	pruneEvery uint64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{pruneEvery: defaultPruneEvery}
}

func (m *MemoryStore) Load(ctx context.Context, key string) (Record, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}
	v, ok := m.entries.Load(key)
	if !ok {
		return Record{}, nil
	}
	e := v.(*memoryEntry)
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.removed {
		return Record{}, nil
	}
	return e.rec, nil
}

func (m *MemoryStore) Increment(ctx context.Context, key string, kind Kind, now, expiresAt time.Time) (Record, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}
	if m.pruneEvery > 0 && m.increments.Add(1)%m.pruneEvery == 0 {
		m.Prune(now)
	}

	for {
		v, _ := m.entries.LoadOrStore(key, &memoryEntry{})
		e := v.(*memoryEntry)

		e.mu.Lock()
		if e.removed {
			// Pruned between lookup and lock; the next LoadOrStore sees a fresh entry.
			e.mu.Unlock()
			continue
		}
		if e.rec.Expired(now) {
			e.rec = Record{}
		}
		switch kind {
		case Successful:
			e.rec.Successful++
		case Error:
			e.rec.Errors++
		}
		e.rec.ExpiresAt = expiresAt
		rec := e.rec
		e.mu.Unlock()
		return rec, nil
	}
}

// Prune drops every record whose window elapsed at now and reports how many
// were removed.
func (m *MemoryStore) Prune(now time.Time) int {
	removed := 0
	m.entries.Range(func(key, v any) bool {
		e := v.(*memoryEntry)
		e.mu.Lock()
		if !e.removed && e.rec.Expired(now) {
			e.removed = true
			m.entries.CompareAndDelete(key, e)
			removed++
		}
		e.mu.Unlock()
		return true
	})
	return removed
}

// Len reports how many records are held, elapsed or not.
func (m *MemoryStore) Len() int {
	n := 0
	m.entries.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

func (m *MemoryStore) Ping(ctx context.Context) error {
	return ctx.Err()
}
