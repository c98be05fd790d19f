package sqlstore

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/BaSui01/agentmarket/agent/discovery"
	"github.com/BaSui01/agentmarket/testutil/fixtures"
)

func setupStore(t *testing.T) *Store {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	// Each pooled connection would otherwise see its own empty in-memory database.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	store := New(db, zap.NewNop())
	require.NoError(t, store.AutoMigrate())

	ctx := context.Background()
	for _, rec := range fixtures.Records() {
		require.NoError(t, store.Put(ctx, rec))
	}
	return store
}

func recordIDs(records []*discovery.AgentRecord) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.ID
	}
	return out
}

func TestStore_GetRoundTripsCapabilityOrder(t *testing.T) {
	store := setupStore(t)

	rec, err := store.Get(context.Background(), fixtures.DataAnalysisID)
	require.NoError(t, err)
	assert.Equal(t, []string{"data_analysis", "sql", "business_intelligence", "statistics"}, rec.Capabilities)
	assert.Equal(t, 2500, rec.Reputation)
	assert.InDelta(t, 0.05, rec.Price, 1e-9)

	_, err = store.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, discovery.ErrNotFound)
}

func TestStore_QueryMembershipWithOrdering(t *testing.T) {
	store := setupStore(t)

	records, err := store.Query(context.Background(), &discovery.StoreQuery{
		CapabilitiesAll: []string{"nlp"},
		OrderBy:         []discovery.OrderClause{{Field: discovery.SortByPrice}},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{fixtures.TranslationID, fixtures.SentimentID}, recordIDs(records))

	records, err = store.Query(context.Background(), &discovery.StoreQuery{
		CapabilitiesAll: []string{"nlp", "localization"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{fixtures.TranslationID}, recordIDs(records))
}

func TestStore_QueryScalarFiltersAndLimit(t *testing.T) {
	store := setupStore(t)

	records, err := store.Query(context.Background(), &discovery.StoreQuery{
		MaxPrice:      discovery.Float64(0.03),
		MinReputation: discovery.Int(1000),
		OrderBy:       []discovery.OrderClause{{Field: discovery.SortByReputation, Desc: true}},
		Limit:         1,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{fixtures.SentimentID}, recordIDs(records))
}

func TestStore_MatchesInMemoryStore(t *testing.T) {
	store := setupStore(t)
	mem := discovery.NewInMemoryStore(fixtures.Records())
	ctx := context.Background()

	queries := []*discovery.StoreQuery{
		{},
		{OrderBy: []discovery.OrderClause{{Field: discovery.SortByReputation, Desc: true}, {Field: discovery.SortByPrice}}},
		{CapabilitiesAll: []string{"nlp"}, OrderBy: []discovery.OrderClause{{Field: discovery.SortByName, Desc: true}}},
		{MaxPrice: discovery.Float64(0.02), Limit: 2},
	}
	for _, q := range queries {
		want, err := mem.Query(ctx, q)
		require.NoError(t, err)
		got, err := store.Query(ctx, q)
		require.NoError(t, err)
		assert.Equal(t, recordIDs(want), recordIDs(got))
	}
}

func TestStore_PutReplacesCapabilities(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	rec, err := store.Get(ctx, fixtures.WebScraperID)
	require.NoError(t, err)
	rec.Capabilities = []string{"crawling", "crawling", "automation"}
	rec.Reputation = 999
	require.NoError(t, store.Put(ctx, rec))

	got, err := store.Get(ctx, fixtures.WebScraperID)
	require.NoError(t, err)
	assert.Equal(t, []string{"crawling", "automation"}, got.Capabilities)
	assert.Equal(t, 999, got.Reputation)

	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(len(fixtures.Records())), n)
}

func TestStore_CapabilitiesAndIDsAreCaseSensitive(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, &discovery.AgentRecord{
		ID: "ml-upper", Name: "Upper", Capabilities: []string{"ML", "ml"}, Price: 0.02, Reputation: 10,
	}))
	require.NoError(t, store.Put(ctx, &discovery.AgentRecord{
		ID: "ML-UPPER", Name: "Shouting", Capabilities: []string{"ml"}, Price: 0.03, Reputation: 20,
	}))

	got, err := store.Get(ctx, "ml-upper")
	require.NoError(t, err)
	assert.Equal(t, []string{"ML", "ml"}, got.Capabilities)

	records, err := store.Query(ctx, &discovery.StoreQuery{CapabilitiesAll: []string{"ML"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"ml-upper"}, recordIDs(records))

	records, err = store.Query(ctx, &discovery.StoreQuery{
		CapabilitiesAll: []string{"ml"},
		OrderBy:         []discovery.OrderClause{{Field: discovery.SortByReputation, Desc: true}},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"ML-UPPER", "ml-upper"}, recordIDs(records))
}

func TestStore_Delete(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	require.NoError(t, store.Delete(ctx, fixtures.TranslationID))
	_, err := store.Get(ctx, fixtures.TranslationID)
	assert.ErrorIs(t, err, discovery.ErrNotFound)
	assert.ErrorIs(t, store.Delete(ctx, fixtures.TranslationID), discovery.ErrNotFound)
}

func TestStore_SearchServiceIntegration(t *testing.T) {
	store := setupStore(t)
	svc := discovery.NewSearchService(store, nil, zap.NewNop())

	results, err := svc.BestValue(context.Background(), "nlp", 5, false)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, fixtures.TranslationID, results[0].Record.ID)
}

func TestStore_DatabaseFailureWrapsUnavailable(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer mockDB.Close()

	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: mockDB}), &gorm.Config{})
	require.NoError(t, err)

	mock.ExpectQuery(`SELECT (.+) FROM "agent_records"`).WillReturnError(errors.New("connection refused"))

	store := New(gormDB, nil)
	_, err = store.Query(context.Background(), &discovery.StoreQuery{})
	assert.ErrorIs(t, err, discovery.ErrStoreUnavailable)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_WritesGoThroughTxRunner(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	calls := 0
	store := New(db, zap.NewNop(), WithTxRunner(func(ctx context.Context, fn func(tx *gorm.DB) error) error {
		calls++
		return db.WithContext(ctx).Transaction(fn)
	}))
	require.NoError(t, store.AutoMigrate())

	ctx := context.Background()
	rec := fixtures.Records()[0]
	require.NoError(t, store.Put(ctx, rec))
	require.NoError(t, store.Delete(ctx, rec.ID))
	assert.Equal(t, 2, calls)

	failing := New(db, zap.NewNop(), WithTxRunner(func(context.Context, func(tx *gorm.DB) error) error {
		return errors.New("deadlock detected")
	}))
	assert.ErrorIs(t, failing.Put(ctx, rec), discovery.ErrStoreUnavailable)
}
