package application

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// KeyedMutex provides per-auction mutual exclusion. Operations on different
// auctions never contend; operations on the same auction are serialized in the
// order their acquisitions are granted. Entries are reference-counted and
// removed once the last holder or waiter releases, so the map does not grow
// with the number of auctions ever seen.
type KeyedMutex struct {
	mu      sync.Mutex
	entries map[uuid.UUID]*lockEntry
}

type lockEntry struct {
	sem  chan struct{} // capacity 1
	refs int
}

func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{entries: make(map[uuid.UUID]*lockEntry)}
}

// Acquire blocks until the key's exclusive section is granted or ctx is done.
// On success it returns the release func; callers must invoke it exactly once.
func (km *KeyedMutex) Acquire(ctx context.Context, key uuid.UUID) (func(), error) {
	km.mu.Lock()
	e, ok := km.entries[key]
	if !ok {
		e = &lockEntry{sem: make(chan struct{}, 1)}
		km.entries[key] = e
	}
	e.refs++
	km.mu.Unlock()

	select {
	case e.sem <- struct{}{}:
		return func() {
			<-e.sem
			km.release(key, e)
		}, nil
	case <-ctx.Done():
		km.release(key, e)
		return nil, ctx.Err()
	}
}

func (km *KeyedMutex) release(key uuid.UUID, e *lockEntry) {
	km.mu.Lock()
	e.refs--
	if e.refs == 0 {
		delete(km.entries, key)
	}
	km.mu.Unlock()
}
