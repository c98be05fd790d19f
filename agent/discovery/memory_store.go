package discovery

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// InMemoryStore is a RecordStore backed by an in-memory map.
type InMemoryStore struct {
	mu      sync.RWMutex
	records map[string]*AgentRecord

	features StoreFeatures
}

// MemoryStoreOption configures an InMemoryStore.
type MemoryStoreOption func(*InMemoryStore)

// WithoutCombinedOrdering makes the store advertise that membership filters
// and ordering cannot be combined, like the hosted document store.
func WithoutCombinedOrdering() MemoryStoreOption {
	return func(s *InMemoryStore) {
		s.features.CombinedArrayOrdering = false
	}
}

// NewInMemoryStore creates a new InMemoryStore seeded with records.
func NewInMemoryStore(records []*AgentRecord, opts ...MemoryStoreOption) *InMemoryStore {
	s := &InMemoryStore{
		records:  make(map[string]*AgentRecord, len(records)),
		features: StoreFeatures{CombinedArrayOrdering: true},
	}
	for _, opt := range opts {
		opt(s)
	}
	for _, rec := range records {
		if rec != nil {
			s.records[rec.ID] = rec.Clone()
		}
	}
	return s
}

// Query returns records matching q. Without ordering, records come back in id order.
func (s *InMemoryStore) Query(ctx context.Context, q *StoreQuery) ([]*AgentRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if q != nil && !s.features.CombinedArrayOrdering && q.needsCombined() {
		return nil, fmt.Errorf("memory store: membership filter cannot be combined with ordering")
	}

	s.mu.RLock()
	all := make([]*AgentRecord, 0, len(s.records))
	for _, rec := range s.records {
		all = append(all, rec.Clone())
	}
	s.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	return ApplyStoreQuery(all, q), nil
}

func (s *InMemoryStore) Get(ctx context.Context, id string) (*AgentRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[id]
	if !ok {
		return nil, fmt.Errorf("agent %s: %w", id, ErrNotFound)
	}
	return rec.Clone(), nil
}

func (s *InMemoryStore) Put(_ context.Context, rec *AgentRecord) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[rec.ID] = rec.Clone()
	return nil
}

func (s *InMemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[id]; !ok {
		return fmt.Errorf("agent %s: %w", id, ErrNotFound)
	}
	delete(s.records, id)
	return nil
}

// Features reports the configured capabilities.
func (s *InMemoryStore) Features() StoreFeatures {
	return s.features
}

// Len returns the number of stored records.
func (s *InMemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Ensure InMemoryStore implements RecordStore.
var _ RecordStore = (*InMemoryStore)(nil)
