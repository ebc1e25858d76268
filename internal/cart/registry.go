package cart

import (
	"context"
	"io"
	"log"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"storefront-service/internal/store"
)

// rehydrateTimeout bounds one snapshot load. Loads do not inherit the request's
// cancellation, so a client going away cannot turn a stored cart into an empty one.
const rehydrateTimeout = 5 * time.Second

type entry struct {
	store      *Store
	lastAccess time.Time
}

// Registry hands out one Store per cart session, rehydrating it on first use.
// Only stores whose snapshot was read are kept; after a failed load the next Get
// tries again.
type Registry struct {
	storer store.SnapshotStorer
	logger *log.Logger
	now    func() time.Time

	loads singleflight.Group

	mu      sync.Mutex
	entries map[string]*entry
}

func NewRegistry(storer store.SnapshotStorer, logger *log.Logger) *Registry {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Registry{
		storer:  storer,
		logger:  logger,
		now:     time.Now,
		entries: make(map[string]*entry),
	}
}

// Get returns the cart of sessionID, creating it from its persisted snapshot if needed.
// Concurrent first requests for one session share a single load; other sessions are
// never blocked by it.
func (r *Registry) Get(ctx context.Context, sessionID string) *Store {
	if s, ok := r.lookup(sessionID); ok {
		return s
	}

	v, _, _ := r.loads.Do(sessionID, func() (interface{}, error) {
		if s, ok := r.lookup(sessionID); ok {
			return s, nil
		}
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), rehydrateTimeout)
		defer cancel()

		s := NewStore(loadCtx, r.storer, Key(sessionID), r.logger)
		if !s.Loaded() {
			return s, nil
		}
		r.mu.Lock()
		r.entries[sessionID] = &entry{store: s, lastAccess: r.now()}
		r.mu.Unlock()
		return s, nil
	})
	return v.(*Store)
}

func (r *Registry) lookup(sessionID string) (*Store, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[sessionID]
	if !ok {
		return nil, false
	}
	e.lastAccess = r.now()
	return e.store, true
}

// Len reports how many carts are held in memory.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Evict drops carts not accessed for longer than idle and returns how many were
// dropped. Their snapshots stay in the SnapshotStorer and are read again on the
// next Get.
func (r *Registry) Evict(idle time.Duration) int {
	cutoff := r.now().Add(-idle)
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for id, e := range r.entries {
		if e.lastAccess.Before(cutoff) {
			delete(r.entries, id)
			n++
		}
	}
	return n
}

// RunEviction calls Evict every interval until ctx is done.
func (r *Registry) RunEviction(ctx context.Context, interval, idle time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := r.Evict(idle); n > 0 {
				r.logger.Printf("INFO: evicted %d idle carts, %d still in memory", n, r.Len())
			}
		}
	}
}
