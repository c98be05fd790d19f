// Package cachestore decorates a discovery.RecordStore with a Redis
// read-through cache.
//
// Single-record lookups are cached under agent:<id>. Query results are
// optionally cached under query:<digest> for a short TTL. Every write
// evicts the written record and the whole query namespace.
package cachestore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/agentmarket/agent/discovery"
	"github.com/BaSui01/agentmarket/internal/cache"
)

const (
	recordPrefix = "agent:"
	queryPrefix  = "query:"
)

// Cache is the subset of cache.Manager used by the decorator.
type Cache interface {
	GetJSON(ctx context.Context, key string, dest any) error
	SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	DeletePrefix(ctx context.Context, prefix string) (int64, error)
}

// Config controls cache lifetimes.
type Config struct {
	// RecordTTL is the lifetime of cached records. Zero uses the cache default.
	RecordTTL time.Duration `yaml:"record_ttl" json:"record_ttl" env:"RECORD_TTL"`

	// QueryTTL is the lifetime of cached query results. Zero disables query caching.
	QueryTTL time.Duration `yaml:"query_ttl" json:"query_ttl" env:"QUERY_TTL"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		RecordTTL: 5 * time.Minute,
		QueryTTL:  30 * time.Second,
	}
}

// HitRecorder receives cache hit and miss events, labelled "record" or "query".
type HitRecorder interface {
	RecordCacheHit(cacheType string)
	RecordCacheMiss(cacheType string)
}

type nopRecorder struct{}

func (nopRecorder) RecordCacheHit(string)  {}
func (nopRecorder) RecordCacheMiss(string) {}

// Option configures a Store.
type Option func(*Store)

// WithHitRecorder reports hits and misses to r.
func WithHitRecorder(r HitRecorder) Option {
	return func(s *Store) {
		if r != nil {
			s.hits = r
		}
	}
}

// Store is a caching RecordStore.
type Store struct {
	inner  discovery.RecordStore
	cache  Cache
	config Config
	hits   HitRecorder
	logger *zap.Logger
}

// New wraps inner with c.
func New(inner discovery.RecordStore, c Cache, config Config, logger *zap.Logger, opts ...Option) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Store{
		inner:  inner,
		cache:  c,
		config: config,
		hits:   nopRecorder{},
		logger: logger.With(zap.String("component", "cached_record_store")),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Query serves cached results when query caching is enabled.
func (s *Store) Query(ctx context.Context, q *discovery.StoreQuery) ([]*discovery.AgentRecord, error) {
	if s.config.QueryTTL <= 0 {
		return s.inner.Query(ctx, q)
	}

	key, err := queryKey(q)
	if err != nil {
		return s.inner.Query(ctx, q)
	}

	var cached []*discovery.AgentRecord
	err = s.cache.GetJSON(ctx, key, &cached)
	if err == nil {
		s.hits.RecordCacheHit("query")
		return cached, nil
	}
	s.hits.RecordCacheMiss("query")
	if !cache.IsCacheMiss(err) {
		s.logger.Debug("query cache read failed", zap.Error(err))
	}

	records, err := s.inner.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	if err := s.cache.SetJSON(ctx, key, records, s.config.QueryTTL); err != nil {
		s.logger.Debug("query cache write failed", zap.Error(err))
	}
	return records, nil
}

// Get reads through the cache.
func (s *Store) Get(ctx context.Context, id string) (*discovery.AgentRecord, error) {
	var cached discovery.AgentRecord
	err := s.cache.GetJSON(ctx, recordPrefix+id, &cached)
	if err == nil {
		s.hits.RecordCacheHit("record")
		return &cached, nil
	}
	s.hits.RecordCacheMiss("record")
	if !cache.IsCacheMiss(err) {
		s.logger.Debug("record cache read failed", zap.String("agent_id", id), zap.Error(err))
	}

	rec, err := s.inner.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.cache.SetJSON(ctx, recordPrefix+id, rec, s.config.RecordTTL); err != nil {
		s.logger.Debug("record cache write failed", zap.String("agent_id", id), zap.Error(err))
	}
	return rec, nil
}

// Put writes through to the inner store and evicts stale entries.
func (s *Store) Put(ctx context.Context, rec *discovery.AgentRecord) error {
	if err := s.inner.Put(ctx, rec); err != nil {
		return err
	}
	s.evict(ctx, rec.ID)
	return nil
}

// Delete removes from the inner store and evicts stale entries.
func (s *Store) Delete(ctx context.Context, id string) error {
	if err := s.inner.Delete(ctx, id); err != nil {
		return err
	}
	s.evict(ctx, id)
	return nil
}

// Features reports the inner store's capabilities.
func (s *Store) Features() discovery.StoreFeatures {
	return s.inner.Features()
}

func (s *Store) evict(ctx context.Context, id string) {
	if err := s.cache.Delete(ctx, recordPrefix+id); err != nil {
		s.logger.Warn("record cache eviction failed", zap.String("agent_id", id), zap.Error(err))
	}
	if s.config.QueryTTL <= 0 {
		return
	}
	if _, err := s.cache.DeletePrefix(ctx, queryPrefix); err != nil {
		s.logger.Warn("query cache eviction failed", zap.Error(err))
	}
}

func queryKey(q *discovery.StoreQuery) (string, error) {
	data, err := json.Marshal(q)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return queryPrefix + hex.EncodeToString(sum[:]), nil
}

// Ensure Store implements discovery.RecordStore.
var _ discovery.RecordStore = (*Store)(nil)
var _ Cache = (*cache.Manager)(nil)
