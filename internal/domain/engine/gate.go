package engine

import (
	"container/list"
	"context"
	"sync"

	"github.com/GriffinCanCode/scriptengine/internal/shared/utils"
)

// DefaultGateCapacity bounds how many idle fingerprints the gate remembers.
const DefaultGateCapacity = 10000

// Fingerprint is the serialization key for a script: its SHA-256 hex digest.
func Fingerprint(script string) string {
	return utils.DefaultHasher().HashString(script)
}

// Gate serializes work per fingerprint. Work under different fingerprints
// runs in parallel. Entries are created on demand and evicted least recently
// used first, but only while nobody holds or waits on them.
type Gate struct {
	mu       sync.Mutex
	capacity int
	entries  map[string]*list.Element
	lru      *list.List // front is most recently used
}

type gateEntry struct {
	fingerprint string
	slot        chan struct{}
	refs        int
}

// NewGate creates a gate remembering up to capacity idle fingerprints.
func NewGate(capacity int) *Gate {
	if capacity <= 0 {
		capacity = DefaultGateCapacity
	}
	return &Gate{
		capacity: capacity,
		entries:  make(map[string]*list.Element),
		lru:      list.New(),
	}
}

// Acquire blocks until the fingerprint is free or ctx is done. The returned
// release func is idempotent.
func (g *Gate) Acquire(ctx context.Context, fingerprint string) (func(), error) {
	e := g.retain(fingerprint)

	select {
	case e.slot <- struct{}{}:
	case <-ctx.Done():
		g.drop(e)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-e.slot
			g.drop(e)
		})
	}, nil
}

// Do runs fn while holding the fingerprint. The lock is released even if fn
// panics.
func (g *Gate) Do(ctx context.Context, fingerprint string, fn func() error) error {
	release, err := g.Acquire(ctx, fingerprint)
	if err != nil {
		return err
	}
	defer release()
	return fn()
}

// Len returns the number of remembered fingerprints.
func (g *Gate) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.lru.Len()
}

func (g *Gate) retain(fingerprint string) *gateEntry {
	g.mu.Lock()
	defer g.mu.Unlock()

	if el, ok := g.entries[fingerprint]; ok {
		g.lru.MoveToFront(el)
		e := el.Value.(*gateEntry)
		e.refs++
		return e
	}

	e := &gateEntry{fingerprint: fingerprint, slot: make(chan struct{}, 1), refs: 1}
	g.entries[fingerprint] = g.lru.PushFront(e)
	g.evictLocked()
	return e
}

func (g *Gate) drop(e *gateEntry) {
	g.mu.Lock()
	defer g.mu.Unlock()
	e.refs--
	g.evictLocked()
}

// evictLocked removes idle entries from the back until within capacity.
// Busy entries are skipped, so the gate may briefly exceed capacity.
func (g *Gate) evictLocked() {
	el := g.lru.Back()
	for g.lru.Len() > g.capacity && el != nil {
		prev := el.Prev()
		if e := el.Value.(*gateEntry); e.refs == 0 {
			g.lru.Remove(el)
			delete(g.entries, e.fingerprint)
		}
		el = prev
	}
}
