package cart

import (
	"context"
	"errors"
	"io"
	"log"
	"sync"

	"github.com/shopspring/decimal"

	"storefront-service/internal/domain"
	"storefront-service/internal/store"
)

// Store holds one cart. Every mutation runs the reducer, writes the full snapshot
// to the SnapshotStorer and then notifies subscribers. Persistence failures are
// logged and never fail the operation.
type Store struct {
	key    string
	storer store.SnapshotStorer
	logger *log.Logger

	mu     sync.Mutex
	items  []domain.LineItem
	seq    uint64 // transition counter, stamped under mu
	loaded bool   // false when the snapshot could not be read

	subMu   sync.Mutex
	subs    map[int]*subscription
	nextSub int
}

// subscription delivers transitions to one subscriber in order, dropping any
// that arrive after a newer one was delivered.
type subscription struct {
	mu   sync.Mutex
	last uint64
	fn   func([]domain.LineItem)
}

func (sub *subscription) deliver(seq uint64, items []domain.LineItem) {
	sub.mu.Lock()
	defer sub.mu.Unlock()
	if seq <= sub.last {
		return
	}
	sub.last = seq
	sub.fn(items)
}

// NewStore creates a cart persisted under key and rehydrates it from the last
// snapshot. A missing or corrupt snapshot gives an empty cart. When the snapshot
// cannot be read at all the cart also starts empty, but it is never saved, so the
// stored cart survives until a later load succeeds (see Loaded).
func NewStore(ctx context.Context, storer store.SnapshotStorer, key string, logger *log.Logger) *Store {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	s := &Store{
		key:    key,
		storer: storer,
		logger: logger,
		items:  []domain.LineItem{},
		subs:   make(map[int]*subscription),
	}
	s.items, s.loaded = s.load(ctx)
	return s
}

func (s *Store) load(ctx context.Context) ([]domain.LineItem, bool) {
	data, err := s.storer.LoadSnapshot(ctx, s.key)
	if err != nil {
		if errors.Is(err, store.ErrSnapshotNotFound) {
			return []domain.LineItem{}, true
		}
		s.logger.Printf("WARN: cart %s: loading snapshot failed, starting empty: %v", s.key, err)
		return []domain.LineItem{}, false
	}
	items, err := Decode(data)
	if err != nil {
		s.logger.Printf("WARN: cart %s: corrupt snapshot, starting empty: %v", s.key, err)
		return []domain.LineItem{}, true
	}
	return items, true
}

// Loaded reports whether the snapshot was read (or known to be absent).
// A store that is not loaded keeps its changes in memory only.
func (s *Store) Loaded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loaded
}

func (s *Store) AddToCart(ctx context.Context, p domain.Product) { s.dispatch(ctx, Add(p)) }

func (s *Store) RemoveFromCart(ctx context.Context, productID int64) {
	s.dispatch(ctx, Remove(productID))
}

func (s *Store) IncreaseQuantity(ctx context.Context, productID int64) {
	s.dispatch(ctx, Increase(productID))
}

func (s *Store) DecreaseQuantity(ctx context.Context, productID int64) {
	s.dispatch(ctx, Decrease(productID))
}

func (s *Store) ClearCart(ctx context.Context) { s.dispatch(ctx, Clear()) }

func (s *Store) dispatch(ctx context.Context, a Action) {
	s.mu.Lock()
	s.items = Reduce(s.items, a)
	s.seq++
	seq := s.seq
	snapshot := clone(s.items)
	s.persist(ctx, snapshot)
	s.mu.Unlock()

	s.notify(seq, snapshot)
}

// persist runs under s.mu so the stored snapshot always matches the latest transition.
func (s *Store) persist(ctx context.Context, items []domain.LineItem) {
	if !s.loaded {
		s.logger.Printf("WARN: cart %s: snapshot was never read, change kept in memory only", s.key)
		return
	}
	data, err := Encode(items)
	if err != nil {
		s.logger.Printf("ERROR: cart %s: %v", s.key, err)
		return
	}
	if err := s.storer.SaveSnapshot(ctx, s.key, data); err != nil {
		s.logger.Printf("ERROR: cart %s: saving snapshot failed: %v", s.key, err)
	}
}

// Items returns a copy of the line items in insertion order.
func (s *Store) Items() []domain.LineItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return clone(s.items)
}

// ItemCount is the sum of quantities, as shown on the cart badge.
func (s *Store) ItemCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return itemCount(s.items)
}

// Total is the sum of price * quantity over all lines.
func (s *Store) Total() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return total(s.items)
}

// View is a consistent read of the cart.
type View struct {
	Items     []domain.LineItem
	ItemCount int
	Total     decimal.Decimal
}

// View returns items, badge count and total taken under one lock.
func (s *Store) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return View{
		Items:     clone(s.items),
		ItemCount: itemCount(s.items),
		Total:     total(s.items),
	}
}

// Subscribe registers fn to receive the line items after every transition and
// returns a func that removes it. fn is called outside the cart lock, one call at
// a time, and never sees an older cart after a newer one. A slow fn may miss
// intermediate transitions but always ends on the latest. fn must not mutate the
// cart it is subscribed to.
func (s *Store) Subscribe(fn func([]domain.LineItem)) (unsubscribe func()) {
	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = &subscription{fn: fn}
	s.subMu.Unlock()

	return func() {
		s.subMu.Lock()
		delete(s.subs, id)
		s.subMu.Unlock()
	}
}

func (s *Store) notify(seq uint64, items []domain.LineItem) {
	s.subMu.Lock()
	subs := make([]*subscription, 0, len(s.subs))
	for _, sub := range s.subs {
		subs = append(subs, sub)
	}
	s.subMu.Unlock()

	for _, sub := range subs {
		sub.deliver(seq, clone(items))
	}
}

func itemCount(items []domain.LineItem) int {
	n := 0
	for _, it := range items {
		n += it.Quantity
	}
	return n
}

func total(items []domain.LineItem) decimal.Decimal {
	sum := decimal.Zero
	for _, it := range items {
		sum = sum.Add(decimal.NewFromFloat(it.Price).Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	return sum
}
