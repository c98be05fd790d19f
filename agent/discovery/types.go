package discovery

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// PriceFloor is the smallest price used when computing value scores.
// Records priced at or below it are treated as costing PriceFloor.
const PriceFloor = 0.01

// AgentRecord is one provider entry in the catalog.
type AgentRecord struct {
	// ID is the unique, immutable store key.
	ID string `json:"agent_id"`

	// Name is the display name.
	Name string `json:"agent_name"`

	// Description is free text searched by name filters.
	Description string `json:"description"`

	// Capabilities is the ordered list of capability tags.
	Capabilities []string `json:"capabilities"`

	// Endpoint is the provider's opaque connection address.
	Endpoint string `json:"agent_url,omitempty"`

	// Price is the cost per request.
	Price float64 `json:"agent_pricing"`

	// Reputation is the provider's karma score.
	Reputation int `json:"karma"`
}

// UnmarshalJSON decodes a record, defaulting a missing price to PriceFloor.
func (r *AgentRecord) UnmarshalJSON(data []byte) error {
	type alias AgentRecord
	aux := struct {
		*alias
		Price      *float64 `json:"agent_pricing"`
		Reputation *int     `json:"karma"`
	}{alias: (*alias)(r)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	r.Price = PriceFloor
	if aux.Price != nil {
		r.Price = *aux.Price
	}
	r.Reputation = 0
	if aux.Reputation != nil {
		r.Reputation = *aux.Reputation
	}
	return nil
}

// Validate checks the record invariants.
func (r *AgentRecord) Validate() error {
	if r == nil {
		return fmt.Errorf("%w: record is nil", ErrInvalidQuery)
	}
	if strings.TrimSpace(r.ID) == "" {
		return fmt.Errorf("%w: agent id is empty", ErrInvalidQuery)
	}
	if r.Price < 0 {
		return fmt.Errorf("%w: agent %s has negative price", ErrInvalidQuery, r.ID)
	}
	if r.Reputation < 0 {
		return fmt.Errorf("%w: agent %s has negative karma", ErrInvalidQuery, r.ID)
	}
	return nil
}

// Clone returns a deep copy of the record.
func (r *AgentRecord) Clone() *AgentRecord {
	if r == nil {
		return nil
	}
	c := *r
	if r.Capabilities != nil {
		c.Capabilities = make([]string, len(r.Capabilities))
		copy(c.Capabilities, r.Capabilities)
	}
	return &c
}

// ValueScore returns reputation per unit of price, flooring the price at PriceFloor.
func (r *AgentRecord) ValueScore() float64 {
	price := r.Price
	if price < PriceFloor {
		price = PriceFloor
	}
	return float64(r.Reputation) / price
}

// MatchKind classifies how a requested capability matched a candidate.
type MatchKind string

const (
	// MatchKindExact means the requested capability is literally present.
	MatchKindExact MatchKind = "exact"
	// MatchKindPartial means a case-insensitive substring relation holds.
	MatchKindPartial MatchKind = "partial"
	// MatchKindNone means neither relation holds.
	MatchKindNone MatchKind = "none"
)

// Match weights.
const (
	ExactWeight   = 2
	PartialWeight = 1
)

// CapabilityMatch is the outcome of matching one requested capability.
type CapabilityMatch struct {
	Kind        MatchKind `json:"kind"`
	Weight      int       `json:"weight"`
	Explanation string    `json:"explanation,omitempty"`
}

// MatchResult annotates a record for a single search call.
type MatchResult struct {
	// Record is the annotated catalog entry.
	Record *AgentRecord `json:"agent"`

	// MatchScore is the sum of per-capability weights.
	MatchScore int `json:"capability_match_score,omitempty"`

	// MatchedCapabilities explains each matched capability in request order.
	MatchedCapabilities []string `json:"matched_capabilities,omitempty"`

	// ValueScore is reputation / max(price, PriceFloor), set by value ranking.
	ValueScore float64 `json:"value_score,omitempty"`
}

// SortField is the primary ordering key for search results.
type SortField string

const (
	// SortByReputation orders by karma.
	SortByReputation SortField = "reputation"
	// SortByPrice orders by price.
	SortByPrice SortField = "price"
	// SortByName orders by display name.
	SortByName SortField = "name"
)

// ParseSortField accepts both the catalog field names and the short names.
func ParseSortField(s string) (SortField, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "karma", "reputation":
		return SortByReputation, nil
	case "agent_pricing", "price", "pricing":
		return SortByPrice, nil
	case "agent_name", "name":
		return SortByName, nil
	default:
		return "", fmt.Errorf("%w: unknown sort field %q", ErrInvalidQuery, s)
	}
}

// SortOrder is the direction of the primary ordering.
type SortOrder string

const (
	// SortDesc orders from high to low.
	SortDesc SortOrder = "desc"
	// SortAsc orders from low to high.
	SortAsc SortOrder = "asc"
)

// ParseSortOrder parses "asc" or "desc"; empty means desc.
func ParseSortOrder(s string) (SortOrder, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "desc", "descending":
		return SortDesc, nil
	case "asc", "ascending":
		return SortAsc, nil
	default:
		return "", fmt.Errorf("%w: unknown sort order %q", ErrInvalidQuery, s)
	}
}

// SearchQuery holds the parameters of a general search.
type SearchQuery struct {
	// Capabilities is the requested capability set. Empty disables capability filtering.
	Capabilities []string `json:"capabilities,omitempty"`

	// MaxPrice keeps records with price <= MaxPrice.
	MaxPrice *float64 `json:"max_price,omitempty"`

	// MinReputation keeps records with karma >= MinReputation.
	MinReputation *int `json:"min_karma,omitempty"`

	// SortBy is the primary ordering key.
	SortBy SortField `json:"sort_by,omitempty"`

	// SortOrder is the primary ordering direction.
	SortOrder SortOrder `json:"sort_order,omitempty"`

	// Limit caps the number of results. Zero selects the configured default.
	Limit int `json:"limit,omitempty"`

	// NameContains filters by case-insensitive substring of name or description.
	NameContains string `json:"name_contains,omitempty"`

	// PartialMatch enables fuzzy capability matching.
	PartialMatch bool `json:"partial_match"`
}

// NewSearchQuery returns a query with the default ordering and partial matching enabled.
func NewSearchQuery(capabilities ...string) *SearchQuery {
	return &SearchQuery{
		Capabilities: capabilities,
		SortBy:       SortByReputation,
		SortOrder:    SortDesc,
		PartialMatch: true,
	}
}

// UnmarshalJSON decodes a query, defaulting a missing partial_match to true
// as NewSearchQuery does. Unknown fields are rejected.
func (q *SearchQuery) UnmarshalJSON(data []byte) error {
	type alias SearchQuery
	aux := struct {
		*alias
		PartialMatch *bool `json:"partial_match"`
	}{alias: (*alias)(q)}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&aux); err != nil {
		return err
	}

	q.PartialMatch = true
	if aux.PartialMatch != nil {
		q.PartialMatch = *aux.PartialMatch
	}
	return nil
}

// Clone returns a deep copy of the query.
func (q *SearchQuery) Clone() *SearchQuery {
	if q == nil {
		return nil
	}
	c := *q
	if q.Capabilities != nil {
		c.Capabilities = append([]string(nil), q.Capabilities...)
	}
	if q.MaxPrice != nil {
		v := *q.MaxPrice
		c.MaxPrice = &v
	}
	if q.MinReputation != nil {
		v := *q.MinReputation
		c.MinReputation = &v
	}
	return &c
}

// Validate rejects out-of-range parameters.
func (q *SearchQuery) Validate() error {
	if q == nil {
		return fmt.Errorf("%w: query is nil", ErrInvalidQuery)
	}
	if q.Limit < 0 {
		return fmt.Errorf("%w: limit must not be negative, got %d", ErrInvalidQuery, q.Limit)
	}
	if q.MaxPrice != nil && *q.MaxPrice < 0 {
		return fmt.Errorf("%w: max price must not be negative", ErrInvalidQuery)
	}
	if q.MinReputation != nil && *q.MinReputation < 0 {
		return fmt.Errorf("%w: min karma must not be negative", ErrInvalidQuery)
	}
	if _, err := ParseSortField(string(q.SortBy)); err != nil {
		return err
	}
	if _, err := ParseSortOrder(string(q.SortOrder)); err != nil {
		return err
	}
	for _, c := range q.Capabilities {
		if strings.TrimSpace(c) == "" {
			return fmt.Errorf("%w: empty capability in request", ErrInvalidQuery)
		}
	}
	return nil
}

// Float64 returns a pointer to v.
func Float64(v float64) *float64 { return &v }

// Int returns a pointer to v.
func Int(v int) *int { return &v }
