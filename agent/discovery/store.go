package discovery

import (
	"context"
	"sort"
)

// RecordStore is the persistence contract for the agent catalog.
// Implementations can back the catalog with different storage backends
// (in-memory, SQL, document store, cache decorators).
type RecordStore interface {
	// Query returns records matching q. Order and limit follow q.
	Query(ctx context.Context, q *StoreQuery) ([]*AgentRecord, error)

	// Get returns the record with id, or an error wrapping ErrNotFound.
	Get(ctx context.Context, id string) (*AgentRecord, error)

	// Put inserts or replaces a record.
	Put(ctx context.Context, rec *AgentRecord) error

	// Delete removes a record. Deleting a missing record wraps ErrNotFound.
	Delete(ctx context.Context, id string) error

	// Features reports what the backend can do in a single query.
	Features() StoreFeatures
}

// StoreFeatures describes backend query capabilities.
type StoreFeatures struct {
	// CombinedArrayOrdering reports whether capability membership filters and
	// multi-field ordering can be combined in one query.
	CombinedArrayOrdering bool
}

// OrderClause is one ordering term of a store query.
type OrderClause struct {
	Field SortField
	Desc  bool
}

// StoreQuery is a backend-neutral record query.
type StoreQuery struct {
	// CapabilitiesAll keeps records whose capability list contains every entry.
	CapabilitiesAll []string

	MaxPrice      *float64
	MinReputation *int

	// OrderBy lists ordering terms, most significant first.
	OrderBy []OrderClause

	// Limit caps the result count. Zero means unbounded.
	Limit int
}

// needsCombined reports whether q combines membership filtering with ordering.
func (q *StoreQuery) needsCombined() bool {
	return len(q.CapabilitiesAll) > 0 && len(q.OrderBy) > 0
}

// PlanStoreQuery splits q into the part sent to a backend and the part that
// must be applied in memory afterwards. When the backend cannot combine
// membership filters with ordering, the pushed query keeps only scalar
// filters with no ordering or limit, and residual carries the full query.
func PlanStoreQuery(q *StoreQuery, features StoreFeatures) (pushed *StoreQuery, residual *StoreQuery) {
	if q == nil || features.CombinedArrayOrdering || !q.needsCombined() {
		return q, nil
	}
	pushed = &StoreQuery{
		MaxPrice:      q.MaxPrice,
		MinReputation: q.MinReputation,
	}
	return pushed, q
}

// QueryStore runs q against store, applying the in-memory fallback when the
// backend cannot serve it in one query.
func QueryStore(ctx context.Context, store RecordStore, q *StoreQuery) ([]*AgentRecord, error) {
	pushed, residual := PlanStoreQuery(q, store.Features())
	records, err := store.Query(ctx, pushed)
	if err != nil {
		return nil, err
	}
	if residual == nil {
		return records, nil
	}
	return ApplyStoreQuery(records, residual), nil
}

// MatchesStoreQuery reports whether rec passes the filters of q.
func MatchesStoreQuery(rec *AgentRecord, q *StoreQuery) bool {
	if q == nil {
		return true
	}
	if q.MaxPrice != nil && rec.Price > *q.MaxPrice {
		return false
	}
	if q.MinReputation != nil && rec.Reputation < *q.MinReputation {
		return false
	}
	for _, want := range q.CapabilitiesAll {
		found := false
		for _, c := range rec.Capabilities {
			if c == want {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// ApplyStoreQuery filters, orders and limits records in memory. The input
// order is kept among records with equal keys.
func ApplyStoreQuery(records []*AgentRecord, q *StoreQuery) []*AgentRecord {
	out := make([]*AgentRecord, 0, len(records))
	for _, rec := range records {
		if MatchesStoreQuery(rec, q) {
			out = append(out, rec)
		}
	}
	if q == nil {
		return out
	}

	if len(q.OrderBy) > 0 {
		sort.SliceStable(out, func(i, j int) bool {
			for _, o := range q.OrderBy {
				if c := compareField(out[i], out[j], o.Field); c != 0 {
					if o.Desc {
						return c > 0
					}
					return c < 0
				}
			}
			return false
		})
	}

	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out
}

func compareField(a, b *AgentRecord, field SortField) int {
	switch field {
	case SortByPrice:
		switch {
		case a.Price < b.Price:
			return -1
		case a.Price > b.Price:
			return 1
		}
		return 0
	case SortByName:
		switch {
		case a.Name < b.Name:
			return -1
		case a.Name > b.Name:
			return 1
		}
		return 0
	default:
		return a.Reputation - b.Reputation
	}
}
