package discovery

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const instrumentationName = "github.com/BaSui01/agentmarket/agent/discovery"

// Operation names reported to observers and spans.
const (
	OpSearch          = "search"
	OpGetByID         = "get_by_id"
	OpTopByCapability = "top_by_capability"
	OpBestValue       = "best_value"
	OpFallback        = "fallback"
)

// SearchObserver receives out-of-band outcomes of facade calls.
type SearchObserver interface {
	ObserveSearch(operation, status string, results int, duration time.Duration)
	ObserveStoreError(operation string)
}

// BroadeningObserver is implemented by observers that also count applied
// broadening steps.
type BroadeningObserver interface {
	ObserveBroadening(step string)
}

// ServiceConfig holds configuration for the search service.
type ServiceConfig struct {
	// DefaultLimit applies when a call passes limit 0.
	DefaultLimit int `json:"default_limit" yaml:"default_limit" env:"DEFAULT_LIMIT"`

	// PartialOverfetch multiplies the fetch window of partial searches.
	PartialOverfetch int `json:"partial_overfetch" yaml:"partial_overfetch" env:"PARTIAL_OVERFETCH"`

	// TopOverfetch multiplies the fetch window of partial top-by-capability calls.
	TopOverfetch int `json:"top_overfetch" yaml:"top_overfetch" env:"TOP_OVERFETCH"`

	// BestValueCandidateCap bounds the candidates scored by BestValue. Zero means unbounded.
	BestValueCandidateCap int `json:"best_value_candidate_cap" yaml:"best_value_candidate_cap" env:"BEST_VALUE_CANDIDATE_CAP"`

	// Broadening configures the relaxation factors.
	Broadening BroadeningConfig `json:"broadening" yaml:"broadening" env:"BROADENING"`
}

// DefaultServiceConfig returns a ServiceConfig with sensible defaults.
func DefaultServiceConfig() *ServiceConfig {
	return &ServiceConfig{
		DefaultLimit:     10,
		PartialOverfetch: 3,
		TopOverfetch:     5,
		Broadening:       DefaultBroadeningConfig(),
	}
}

// SearchService is the search facade over a RecordStore. It keeps no mutable
// state between calls and is safe for concurrent use.
type SearchService struct {
	store     RecordStore
	config    *ServiceConfig
	broadener *Broadener
	observer  SearchObserver
	logger    *zap.Logger

	tracer   trace.Tracer
	requests metric.Int64Counter
}

// ServiceOption configures a SearchService.
type ServiceOption func(*SearchService)

// WithObserver attaches an observer for search outcomes and store failures.
func WithObserver(o SearchObserver) ServiceOption {
	return func(s *SearchService) { s.observer = o }
}

// WithTracer overrides the tracer taken from the global provider.
func WithTracer(t trace.Tracer) ServiceOption {
	return func(s *SearchService) { s.tracer = t }
}

// NewSearchService creates a new search service.
func NewSearchService(store RecordStore, config *ServiceConfig, logger *zap.Logger, opts ...ServiceOption) *SearchService {
	if config == nil {
		config = DefaultServiceConfig()
	}
	cfg := *config
	config = &cfg
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.DefaultLimit <= 0 {
		config.DefaultLimit = 10
	}
	if config.PartialOverfetch <= 0 {
		config.PartialOverfetch = 3
	}
	if config.TopOverfetch <= 0 {
		config.TopOverfetch = 5
	}

	s := &SearchService{
		store:     store,
		config:    config,
		broadener: NewBroadener(config.Broadening),
		logger:    logger.With(zap.String("component", "search_service")),
		tracer:    otel.Tracer(instrumentationName),
	}
	for _, opt := range opts {
		opt(s)
	}

	counter, err := otel.Meter(instrumentationName).Int64Counter("discovery.search.total",
		metric.WithDescription("Total number of discovery facade calls"),
		metric.WithUnit("{call}"))
	if err != nil {
		s.logger.Warn("failed to create search counter", zap.Error(err))
	} else {
		s.requests = counter
	}
	return s
}

// Broadener returns the broadener configured for this service.
func (s *SearchService) Broadener() *Broadener {
	return s.broadener
}

// Search runs a general search. Store failures yield an empty result and are
// reported to the observer; only ErrInvalidQuery is returned.
func (s *SearchService) Search(ctx context.Context, query *SearchQuery) ([]*MatchResult, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}
	q := query.Clone()
	q.SortBy, _ = ParseSortField(string(q.SortBy))
	q.SortOrder, _ = ParseSortOrder(string(q.SortOrder))
	limit := s.limit(q.Limit)
	partial := q.PartialMatch && len(q.Capabilities) > 0

	ctx, span := s.startSpan(ctx, OpSearch,
		attribute.StringSlice("discovery.capabilities", q.Capabilities),
		attribute.Bool("discovery.partial_match", q.PartialMatch),
		attribute.String("discovery.sort_by", string(q.SortBy)),
		attribute.Int("discovery.limit", limit))
	start := time.Now()

	sq := &StoreQuery{
		MaxPrice:      q.MaxPrice,
		MinReputation: q.MinReputation,
		OrderBy:       []OrderClause{{Field: q.SortBy, Desc: q.SortOrder == SortDesc}},
		Limit:         limit,
	}
	if partial {
		sq.Limit = limit * s.config.PartialOverfetch
	} else {
		sq.CapabilitiesAll = q.Capabilities
	}

	records, err := QueryStore(ctx, s.store, sq)
	if err != nil {
		s.finish(ctx, span, OpSearch, start, 0, err)
		return []*MatchResult{}, nil
	}

	results := make([]*MatchResult, 0, len(records))
	for _, rec := range records {
		var res *MatchResult
		switch {
		case partial:
			res = annotatePartial(rec, q.Capabilities)
		case len(q.Capabilities) > 0:
			res = annotateExact(rec, q.Capabilities)
		default:
			res = &MatchResult{Record: rec}
		}
		if res == nil || !containsFold(rec, q.NameContains) {
			continue
		}
		results = append(results, res)
	}

	opts := RankOptions{Mode: RankByField, SortBy: q.SortBy, SortOrder: q.SortOrder}
	if partial {
		opts.Mode = RankByMatch
	}
	results = Truncate(Rank(results, opts), limit)

	s.finish(ctx, span, OpSearch, start, len(results), nil)
	return results, nil
}

// GetByID looks up a single record. The boolean is false when no record has id.
func (s *SearchService) GetByID(ctx context.Context, id string) (*AgentRecord, bool, error) {
	if strings.TrimSpace(id) == "" {
		return nil, false, fmt.Errorf("%w: agent id is empty", ErrInvalidQuery)
	}
	ctx, span := s.startSpan(ctx, OpGetByID, attribute.String("discovery.agent_id", id))
	start := time.Now()

	rec, err := s.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			s.finish(ctx, span, OpGetByID, start, 0, nil)
			return nil, false, nil
		}
		s.finish(ctx, span, OpGetByID, start, 0, err)
		return nil, false, nil
	}
	s.finish(ctx, span, OpGetByID, start, 1, nil)
	return rec, true, nil
}

// TopByCapability returns the best providers for a single capability. In
// partial mode it over-fetches the whole catalog ordering without price or
// reputation filters and ranks by match score.
func (s *SearchService) TopByCapability(ctx context.Context, capability string, limit int, sortBy SortField, partial bool) ([]*MatchResult, error) {
	if strings.TrimSpace(capability) == "" {
		return nil, fmt.Errorf("%w: capability is required", ErrInvalidQuery)
	}
	if limit < 0 {
		return nil, fmt.Errorf("%w: limit must not be negative, got %d", ErrInvalidQuery, limit)
	}
	field, err := ParseSortField(string(sortBy))
	if err != nil {
		return nil, err
	}
	limit = s.limit(limit)

	ctx, span := s.startSpan(ctx, OpTopByCapability,
		attribute.String("discovery.capability", capability),
		attribute.Bool("discovery.partial_match", partial),
		attribute.String("discovery.sort_by", string(field)),
		attribute.Int("discovery.limit", limit))
	start := time.Now()

	sq := &StoreQuery{Limit: limit}
	switch field {
	case SortByReputation:
		sq.OrderBy = []OrderClause{{Field: SortByReputation, Desc: true}}
	case SortByPrice:
		sq.OrderBy = []OrderClause{{Field: SortByPrice}}
	}
	if partial {
		sq.Limit = limit * s.config.TopOverfetch
	} else {
		sq.CapabilitiesAll = []string{capability}
	}

	records, err := QueryStore(ctx, s.store, sq)
	if err != nil {
		s.finish(ctx, span, OpTopByCapability, start, 0, err)
		return []*MatchResult{}, nil
	}

	requested := []string{capability}
	results := make([]*MatchResult, 0, len(records))
	for _, rec := range records {
		if partial {
			if res := annotatePartial(rec, requested); res != nil {
				results = append(results, res)
			}
			continue
		}
		results = append(results, annotateExact(rec, requested))
	}

	if partial {
		Rank(results, RankOptions{Mode: RankByMatch, SortBy: field})
	}
	results = Truncate(results, limit)

	s.finish(ctx, span, OpTopByCapability, start, len(results), nil)
	return results, nil
}

// BestValue ranks providers by reputation per unit of price. The capability
// filter is optional. All candidates are scored before truncation because
// value score cannot be ordered by the store.
func (s *SearchService) BestValue(ctx context.Context, capability string, limit int, partial bool) ([]*MatchResult, error) {
	if limit < 0 {
		return nil, fmt.Errorf("%w: limit must not be negative, got %d", ErrInvalidQuery, limit)
	}
	limit = s.limit(limit)
	capability = strings.TrimSpace(capability)
	usePartial := partial && capability != ""

	ctx, span := s.startSpan(ctx, OpBestValue,
		attribute.String("discovery.capability", capability),
		attribute.Bool("discovery.partial_match", partial),
		attribute.Int("discovery.limit", limit))
	start := time.Now()

	sq := &StoreQuery{
		OrderBy: []OrderClause{
			{Field: SortByReputation, Desc: true},
			{Field: SortByPrice},
		},
		Limit: s.config.BestValueCandidateCap,
	}
	if capability != "" && !usePartial {
		sq.CapabilitiesAll = []string{capability}
	}

	records, err := QueryStore(ctx, s.store, sq)
	if err != nil {
		s.finish(ctx, span, OpBestValue, start, 0, err)
		return []*MatchResult{}, nil
	}

	requested := []string{capability}
	results := make([]*MatchResult, 0, len(records))
	for _, rec := range records {
		var res *MatchResult
		switch {
		case usePartial:
			res = annotatePartial(rec, requested)
		case capability != "":
			res = annotateExact(rec, requested)
		default:
			res = &MatchResult{Record: rec}
		}
		if res != nil {
			results = append(results, res)
		}
	}

	AssignValueScores(results)
	results = Truncate(Rank(results, RankOptions{Mode: RankByValue, MatchFirst: usePartial}), limit)

	s.finish(ctx, span, OpBestValue, start, len(results), nil)
	return results, nil
}

// Fallback ignores every filter and returns the catalog ordered by reputation
// descending then price ascending. It is the terminal broadening step.
func (s *SearchService) Fallback(ctx context.Context, limit int) ([]*MatchResult, error) {
	if limit < 0 {
		return nil, fmt.Errorf("%w: limit must not be negative, got %d", ErrInvalidQuery, limit)
	}
	limit = s.limit(limit)

	ctx, span := s.startSpan(ctx, OpFallback, attribute.Int("discovery.limit", limit))
	start := time.Now()

	records, err := QueryStore(ctx, s.store, &StoreQuery{
		OrderBy: []OrderClause{
			{Field: SortByReputation, Desc: true},
			{Field: SortByPrice},
		},
		Limit: limit,
	})
	if err != nil {
		s.finish(ctx, span, OpFallback, start, 0, err)
		return []*MatchResult{}, nil
	}

	results := make([]*MatchResult, 0, len(records))
	for _, rec := range records {
		results = append(results, &MatchResult{Record: rec})
	}
	AssignValueScores(results)
	results = Truncate(results, limit)

	s.finish(ctx, span, OpFallback, start, len(results), nil)
	return results, nil
}

// Broaden applies step to query and runs the resulting search. The fallback
// step runs Fallback with the query's limit.
func (s *SearchService) Broaden(ctx context.Context, query *SearchQuery, step BroadeningStep) (*SearchQuery, []*MatchResult, error) {
	relaxed, err := s.broadener.Apply(query, step)
	if err != nil {
		return nil, nil, err
	}
	if bo, ok := s.observer.(BroadeningObserver); ok {
		bo.ObserveBroadening(string(step))
	}
	if step == StepFallback {
		results, err := s.Fallback(ctx, relaxed.Limit)
		return relaxed, results, err
	}
	results, err := s.Search(ctx, relaxed)
	return relaxed, results, err
}

func (s *SearchService) limit(limit int) int {
	if limit <= 0 {
		return s.config.DefaultLimit
	}
	return limit
}

func (s *SearchService) startSpan(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, "discovery."+op, trace.WithAttributes(attrs...))
}

func (s *SearchService) finish(ctx context.Context, span trace.Span, op string, start time.Time, n int, storeErr error) {
	defer span.End()

	status := "ok"
	if storeErr != nil {
		status = "store_error"
		span.RecordError(storeErr)
		span.SetStatus(codes.Error, storeErr.Error())
		s.logger.Warn("record store failure absorbed",
			zap.String("operation", op),
			zap.Error(storeErr))
		if s.observer != nil {
			s.observer.ObserveStoreError(op)
		}
	}
	span.SetAttributes(attribute.Int("discovery.results", n))

	if s.requests != nil {
		s.requests.Add(ctx, 1, metric.WithAttributes(
			attribute.String("operation", op),
			attribute.String("status", status)))
	}
	if s.observer != nil {
		s.observer.ObserveSearch(op, status, n, time.Since(start))
	}
}
