// Package sqlstore implements discovery.RecordStore on top of GORM.
//
// Records live in agent_records and their capability tags in
// agent_capabilities, one row per tag with its list position. Capability
// membership is expressed as one id subquery per requested tag, so filters,
// ordering and limit are all evaluated by the database.
package sqlstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/BaSui01/agentmarket/agent/discovery"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AgentRow is the agent_records table.
type AgentRow struct {
	ID          string    `gorm:"primaryKey;size:128" json:"agent_id"`
	Name        string    `gorm:"size:200;not null;index:idx_agent_name" json:"agent_name"`
	Description string    `gorm:"type:text" json:"description"`
	Endpoint    string    `gorm:"size:500" json:"agent_url"`
	Price       float64   `gorm:"not null;default:0.01;index:idx_agent_price" json:"agent_pricing"`
	Karma       int       `gorm:"not null;default:0;index:idx_agent_karma" json:"karma"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (AgentRow) TableName() string {
	return "agent_records"
}

// CapabilityRow is the agent_capabilities table.
type CapabilityRow struct {
	AgentID    string `gorm:"primaryKey;size:128" json:"agent_id"`
	Capability string `gorm:"primaryKey;size:128;index:idx_capability" json:"capability"`
	Position   int    `gorm:"not null" json:"position"`
}

func (CapabilityRow) TableName() string {
	return "agent_capabilities"
}

var orderColumns = map[discovery.SortField]string{
	discovery.SortByReputation: "karma",
	discovery.SortByPrice:      "price",
	discovery.SortByName:       "name",
}

// TxRunner runs fn inside a transaction.
type TxRunner func(ctx context.Context, fn func(tx *gorm.DB) error) error

// Option configures a Store.
type Option func(*Store)

// WithTxRunner routes Put and Delete through run, e.g. a pool manager that
// retries deadlocks.
func WithTxRunner(run TxRunner) Option {
	return func(s *Store) {
		s.runTx = run
	}
}

// mysqlTableOptions matches the versioned MySQL migrations.
const mysqlTableOptions = "ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_bin"

// Store is a GORM-backed RecordStore.
type Store struct {
	db     *gorm.DB
	runTx  TxRunner
	logger *zap.Logger
}

// New creates a Store over db.
func New(db *gorm.DB, logger *zap.Logger, opts ...Option) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Store{
		db:     db,
		logger: logger.With(zap.String("component", "sql_record_store")),
	}
	s.runTx = func(ctx context.Context, fn func(tx *gorm.DB) error) error {
		return s.db.WithContext(ctx).Transaction(fn)
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AutoMigrate creates or updates the tables. Production deployments use the
// versioned migrations instead.
func (s *Store) AutoMigrate() error {
	db := s.db
	if db.Dialector.Name() == "mysql" {
		// ids and tags compare case-sensitively
		db = db.Set("gorm:table_options", mysqlTableOptions)
	}
	if err := db.AutoMigrate(&AgentRow{}, &CapabilityRow{}); err != nil {
		return fmt.Errorf("failed to auto migrate: %w", err)
	}
	return nil
}

// Query returns records matching q, ordered and limited by the database.
// Ties are broken by id.
func (s *Store) Query(ctx context.Context, q *discovery.StoreQuery) ([]*discovery.AgentRecord, error) {
	if q == nil {
		q = &discovery.StoreQuery{}
	}

	tx := s.db.WithContext(ctx).Model(&AgentRow{})
	for _, c := range q.CapabilitiesAll {
		sub := s.db.Model(&CapabilityRow{}).Select("agent_id").Where("capability = ?", c)
		tx = tx.Where("id IN (?)", sub)
	}
	if q.MaxPrice != nil {
		tx = tx.Where("price <= ?", *q.MaxPrice)
	}
	if q.MinReputation != nil {
		tx = tx.Where("karma >= ?", *q.MinReputation)
	}
	for _, o := range q.OrderBy {
		col, ok := orderColumns[o.Field]
		if !ok {
			return nil, fmt.Errorf("%w: unsupported order field %q", discovery.ErrInvalidQuery, o.Field)
		}
		tx = tx.Order(clause.OrderByColumn{Column: clause.Column{Name: col}, Desc: o.Desc})
	}
	tx = tx.Order(clause.OrderByColumn{Column: clause.Column{Name: "id"}})
	if q.Limit > 0 {
		tx = tx.Limit(q.Limit)
	}

	var rows []AgentRow
	if err := tx.Find(&rows).Error; err != nil {
		return nil, s.unavailable("query", err)
	}
	if len(rows) == 0 {
		return []*discovery.AgentRecord{}, nil
	}

	ids := make([]string, len(rows))
	for i, r := range rows {
		ids[i] = r.ID
	}
	caps, err := s.loadCapabilities(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := make([]*discovery.AgentRecord, len(rows))
	for i, r := range rows {
		out[i] = toRecord(r, caps[r.ID])
	}
	return out, nil
}

// Get returns the record with id.
func (s *Store) Get(ctx context.Context, id string) (*discovery.AgentRecord, error) {
	var row AgentRow
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("agent %s: %w", id, discovery.ErrNotFound)
		}
		return nil, s.unavailable("get", err)
	}

	caps, err := s.loadCapabilities(ctx, []string{id})
	if err != nil {
		return nil, err
	}
	return toRecord(row, caps[id]), nil
}

// Put upserts rec and replaces its capability rows in one transaction.
func (s *Store) Put(ctx context.Context, rec *discovery.AgentRecord) error {
	if err := rec.Validate(); err != nil {
		return err
	}

	row := AgentRow{
		ID:          rec.ID,
		Name:        rec.Name,
		Description: rec.Description,
		Endpoint:    rec.Endpoint,
		Price:       rec.Price,
		Karma:       rec.Reputation,
	}
	capRows := make([]CapabilityRow, 0, len(rec.Capabilities))
	seen := make(map[string]struct{}, len(rec.Capabilities))
	for i, c := range rec.Capabilities {
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		capRows = append(capRows, CapabilityRow{AgentID: rec.ID, Capability: c, Position: i})
	}

	err := s.runTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "description", "endpoint", "price", "karma", "updated_at"}),
		}).Create(&row).Error; err != nil {
			return err
		}
		if err := tx.Where("agent_id = ?", rec.ID).Delete(&CapabilityRow{}).Error; err != nil {
			return err
		}
		if len(capRows) == 0 {
			return nil
		}
		return tx.Create(&capRows).Error
	})
	if err != nil {
		return s.unavailable("put", err)
	}
	return nil
}

// Delete removes the record with id and its capability rows.
func (s *Store) Delete(ctx context.Context, id string) error {
	var affected int64
	err := s.runTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Where("agent_id = ?", id).Delete(&CapabilityRow{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&AgentRow{})
		affected = res.RowsAffected
		return res.Error
	})
	if err != nil {
		return s.unavailable("delete", err)
	}
	if affected == 0 {
		return fmt.Errorf("agent %s: %w", id, discovery.ErrNotFound)
	}
	return nil
}

// Features reports that SQL combines membership subqueries with ordering.
func (s *Store) Features() discovery.StoreFeatures {
	return discovery.StoreFeatures{CombinedArrayOrdering: true}
}

// Count returns the number of stored records.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&AgentRow{}).Count(&n).Error; err != nil {
		return 0, s.unavailable("count", err)
	}
	return n, nil
}

func (s *Store) loadCapabilities(ctx context.Context, ids []string) (map[string][]string, error) {
	var rows []CapabilityRow
	err := s.db.WithContext(ctx).
		Where("agent_id IN ?", ids).
		Order("agent_id ASC, position ASC").
		Find(&rows).Error
	if err != nil {
		return nil, s.unavailable("load_capabilities", err)
	}
	out := make(map[string][]string, len(ids))
	for _, r := range rows {
		out[r.AgentID] = append(out[r.AgentID], r.Capability)
	}
	return out, nil
}

func (s *Store) unavailable(op string, err error) error {
	s.logger.Debug("sql store operation failed", zap.String("operation", op), zap.Error(err))
	return fmt.Errorf("%w: %s: %v", discovery.ErrStoreUnavailable, op, err)
}

func toRecord(r AgentRow, caps []string) *discovery.AgentRecord {
	if caps == nil {
		caps = []string{}
	}
	return &discovery.AgentRecord{
		ID:           r.ID,
		Name:         r.Name,
		Description:  r.Description,
		Capabilities: caps,
		Endpoint:     r.Endpoint,
		Price:        r.Price,
		Reputation:   r.Karma,
	}
}

// Ensure Store implements discovery.RecordStore.
var _ discovery.RecordStore = (*Store)(nil)
