// Package registry implements the reference-counted snapshot
// registration protocol: every query acquires a registration
// against the current index snapshot on entry and releases it on exit;
// index mutation (flush, merge, swap) blocks until the registration
// count for the snapshot being replaced drains to zero. The handle is
// an atomic refcount with close-at-zero teardown, generalized from the
// usual single-open-file guard to one whole index snapshot.
package registry

import (
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"
)

// Snapshot is one immutable, atomically-swappable view of the index:
// whatever the caller needs to run a query (compact index readers, a
// doclen table, segment lists) plus a teardown callback invoked once
// every query holding a registration against it has released.
type Snapshot struct {
	ID      uint64
	Payload interface{}

	refCount atomic.Int64
	draining atomic.Bool
	drained  chan struct{}
	once     sync.Once
	teardown func()
}

// NewSnapshot wraps payload (e.g. a struct of open readers) as a
// registry snapshot. teardown may be nil.
func NewSnapshot(id uint64, payload interface{}, teardown func()) *Snapshot {
	return &Snapshot{ID: id, Payload: payload, drained: make(chan struct{}), teardown: teardown}
}

func (s *Snapshot) acquire() { s.refCount.Add(1) }

func (s *Snapshot) release() {
	if s.refCount.Add(-1) == 0 && s.draining.Load() {
		s.finish()
	}
}

// markDraining flags the snapshot as being retired, the request half of
// two-phase unmount; if no query is registered against it already,
// teardown runs immediately.
func (s *Snapshot) markDraining() {
	s.draining.Store(true)
	if s.refCount.Load() == 0 {
		s.finish()
	}
}

func (s *Snapshot) finish() {
	s.once.Do(func() {
		close(s.drained)
		if s.teardown != nil {
			s.teardown()
		}
	})
}

// WaitDrained blocks until every registration against s has released
// (the "wait-for-drain" half of two-phase unmount).
func (s *Snapshot) WaitDrained() { <-s.drained }

// Handle is a query's registration against one snapshot. The query
// must call Release exactly once when it exits.
type Handle struct {
	snap *Snapshot
}

// Snapshot returns the registered snapshot.
func (h *Handle) Snapshot() *Snapshot { return h.snap }

// Release drops this query's registration, allowing a draining
// snapshot to complete teardown once the last holder releases.
func (h *Handle) Release() { h.snap.release() }

// Registry holds the single current snapshot and swaps it atomically
// under mutation, so a running query keeps the segment set it started
// with.
type Registry struct {
	mu  sync.Mutex
	cur *Snapshot

	buildGroup singleflight.Group
}

// New creates a registry pointed at the given initial snapshot.
func New(initial *Snapshot) *Registry {
	return &Registry{cur: initial}
}

// Acquire registers the caller against the current snapshot and
// returns a handle to it. Safe for concurrent use by many queries,
// each on its own goroutine.
func (r *Registry) Acquire() *Handle {
	r.mu.Lock()
	s := r.cur
	s.acquire()
	r.mu.Unlock()
	return &Handle{snap: s}
}

// Swap installs next as the current snapshot and blocks until every
// registration against the outgoing snapshot has drained, at which
// point its teardown (closing readers, unmapping files) has already
// run. Swap itself does not run concurrently with other Swaps; callers
// needing that must serialize externally or via SwapBuilding.
func (r *Registry) Swap(next *Snapshot) {
	r.mu.Lock()
	old := r.cur
	r.cur = next
	r.mu.Unlock()

	if old != nil {
		old.markDraining()
		old.WaitDrained()
	}
}

// SwapBuilding collapses concurrent requests to build and install the
// same next snapshot (e.g. two merge completions racing to publish a
// result for the same generation key) into a single build call via
// singleflight; that call installs the result with Swap once, and
// every caller returns after it has.
func (r *Registry) SwapBuilding(key string, build func() (*Snapshot, error)) error {
	_, err, _ := r.buildGroup.Do(key, func() (interface{}, error) {
		next, err := build()
		if err != nil {
			return nil, err
		}
		r.Swap(next)
		return next, nil
	})
	return err
}

// Current returns the registry's current snapshot without registering
// against it; used for read-only introspection (e.g. stats reporting)
// that does not hold a query open.
func (r *Registry) Current() *Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cur
}
