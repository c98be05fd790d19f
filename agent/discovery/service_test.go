package discovery

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type recordingObserver struct {
	mu          sync.Mutex
	searches    map[string]int
	storeErrors map[string]int
}

func newRecordingObserver() *recordingObserver {
	return &recordingObserver{
		searches:    make(map[string]int),
		storeErrors: make(map[string]int),
	}
}

func (o *recordingObserver) ObserveSearch(operation, status string, _ int, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.searches[operation+"/"+status]++
}

func (o *recordingObserver) ObserveStoreError(operation string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.storeErrors[operation]++
}

type failingStore struct{}

func (failingStore) Query(context.Context, *StoreQuery) ([]*AgentRecord, error) {
	return nil, ErrStoreUnavailable
}
func (failingStore) Get(context.Context, string) (*AgentRecord, error) {
	return nil, ErrStoreUnavailable
}
func (failingStore) Put(context.Context, *AgentRecord) error { return ErrStoreUnavailable }
func (failingStore) Delete(context.Context, string) error    { return ErrStoreUnavailable }
func (failingStore) Features() StoreFeatures                 { return StoreFeatures{} }

func TestSearch_PartialMatchFindsFuzzyProvider(t *testing.T) {
	svc := newTestService(t, []*AgentRecord{
		{ID: "solo", Name: "Solo", Capabilities: []string{"data_analysis"}, Price: 0.05, Reputation: 100},
	})

	results, err := svc.Search(context.Background(), NewSearchQuery("analysis"))
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "solo", results[0].Record.ID)
	assert.Equal(t, 1, results[0].MatchScore)
	assert.Equal(t, []string{"analysis → data_analysis (partial)"}, results[0].MatchedCapabilities)
}

func TestSearch_PartialRanksByMatchScoreFirst(t *testing.T) {
	svc := newTestService(t, sampleRecords())

	q := NewSearchQuery("nlp", "sentiment")
	q.SortBy = SortByPrice
	q.SortOrder = SortAsc

	results, err := svc.Search(context.Background(), q)
	require.NoError(t, err)
	assert.Equal(t, []string{"sentiment-analyzer-v3", "translation-service-v1"}, ids(results))
	assert.Equal(t, 3, results[0].MatchScore)
	assert.Equal(t, 2, results[1].MatchScore)
}

func TestSearch_PartialTiesBrokenByKarma(t *testing.T) {
	svc := newTestService(t, sampleRecords())

	results, err := svc.Search(context.Background(), NewSearchQuery("analysis"))
	require.NoError(t, err)
	assert.Equal(t, []string{"data-analysis-pro-v1", "sentiment-analyzer-v3"}, ids(results))
}

func TestSearch_ExactMode(t *testing.T) {
	for _, opts := range [][]MemoryStoreOption{nil, {WithoutCombinedOrdering()}} {
		svc := newTestService(t, sampleRecords(), opts...)

		q := NewSearchQuery("nlp")
		q.PartialMatch = false

		results, err := svc.Search(context.Background(), q)
		require.NoError(t, err)
		assert.Equal(t, []string{"sentiment-analyzer-v3", "translation-service-v1"}, ids(results))
		assert.Equal(t, []string{"nlp (exact)"}, results[0].MatchedCapabilities)
	}
}

func TestSearch_ExactModeDoesNotUseSubstrings(t *testing.T) {
	svc := newTestService(t, sampleRecords())

	q := NewSearchQuery("analysis")
	q.PartialMatch = false

	results, err := svc.Search(context.Background(), q)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearch_ScalarFiltersAndLimit(t *testing.T) {
	svc := newTestService(t, sampleRecords())

	q := NewSearchQuery()
	q.MaxPrice = Float64(0.03)
	q.MinReputation = Int(1000)
	q.SortBy = SortByPrice
	q.SortOrder = SortAsc

	results, err := svc.Search(context.Background(), q)
	require.NoError(t, err)
	assert.Equal(t, []string{"translation-service-v1", "sentiment-analyzer-v3"}, ids(results))

	q.Limit = 1
	results, err = svc.Search(context.Background(), q)
	require.NoError(t, err)
	assert.Equal(t, []string{"translation-service-v1"}, ids(results))
}

func TestSearch_NameContainsChecksDescription(t *testing.T) {
	svc := newTestService(t, sampleRecords())

	q := NewSearchQuery()
	q.NameContains = "CUSTOMER"

	results, err := svc.Search(context.Background(), q)
	require.NoError(t, err)
	assert.Equal(t, []string{"sentiment-analyzer-v3"}, ids(results))
}

func TestSearch_EmptyResultIsNotBroadened(t *testing.T) {
	svc := newTestService(t, []*AgentRecord{
		{ID: "a", Name: "A", Capabilities: []string{"x"}, Price: 0.02, Reputation: 10},
		{ID: "b", Name: "B", Capabilities: []string{"y"}, Price: 0.05, Reputation: 20},
	})

	q := NewSearchQuery()
	q.MaxPrice = Float64(0.01)

	results, err := svc.Search(context.Background(), q)
	require.NoError(t, err)
	assert.NotNil(t, results)
	assert.Empty(t, results)
}

func TestSearch_InvalidQuery(t *testing.T) {
	svc := newTestService(t, sampleRecords())
	ctx := context.Background()

	cases := map[string]func(q *SearchQuery){
		"negative limit":   func(q *SearchQuery) { q.Limit = -1 },
		"negative price":   func(q *SearchQuery) { q.MaxPrice = Float64(-0.1) },
		"negative karma":   func(q *SearchQuery) { q.MinReputation = Int(-5) },
		"unknown sort":     func(q *SearchQuery) { q.SortBy = "popularity" },
		"unknown order":    func(q *SearchQuery) { q.SortOrder = "sideways" },
		"empty capability": func(q *SearchQuery) { q.Capabilities = []string{" "} },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			q := NewSearchQuery("nlp")
			mutate(q)
			_, err := svc.Search(ctx, q)
			assert.ErrorIs(t, err, ErrInvalidQuery)
		})
	}
}

func TestSearch_StoreFailureIsAbsorbed(t *testing.T) {
	observer := newRecordingObserver()
	svc := NewSearchService(failingStore{}, nil, zaptest.NewLogger(t), WithObserver(observer))
	ctx := context.Background()

	results, err := svc.Search(ctx, NewSearchQuery("nlp"))
	require.NoError(t, err)
	assert.Empty(t, results)

	top, err := svc.TopByCapability(ctx, "nlp", 5, SortByReputation, false)
	require.NoError(t, err)
	assert.Empty(t, top)

	best, err := svc.BestValue(ctx, "", 5, false)
	require.NoError(t, err)
	assert.Empty(t, best)

	rec, found, err := svc.GetByID(ctx, "anything")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, rec)

	assert.Equal(t, 1, observer.storeErrors[OpSearch])
	assert.Equal(t, 1, observer.storeErrors[OpTopByCapability])
	assert.Equal(t, 1, observer.storeErrors[OpBestValue])
	assert.Equal(t, 1, observer.storeErrors[OpGetByID])
	assert.Equal(t, 1, observer.searches[OpSearch+"/store_error"])
}

func TestTopByCapability(t *testing.T) {
	svc := newTestService(t, sampleRecords())
	ctx := context.Background()

	results, err := svc.TopByCapability(ctx, "nlp", 5, SortByPrice, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"translation-service-v1", "sentiment-analyzer-v3"}, ids(results))

	results, err = svc.TopByCapability(ctx, "data", 5, SortByReputation, true)
	require.NoError(t, err)
	assert.Equal(t, []string{"data-analysis-pro-v1", "web-scraper-bot-v4"}, ids(results))
	assert.Equal(t, []string{"data → data_analysis (partial)"}, results[0].MatchedCapabilities)

	results, err = svc.TopByCapability(ctx, "data", 1, SortByReputation, true)
	require.NoError(t, err)
	assert.Len(t, results, 1)

	_, err = svc.TopByCapability(ctx, "", 5, SortByReputation, true)
	assert.ErrorIs(t, err, ErrInvalidQuery)
}

func TestBestValue_RanksByValueScore(t *testing.T) {
	svc := newTestService(t, []*AgentRecord{
		{ID: "famous", Name: "Famous", Capabilities: []string{"x"}, Price: 0.05, Reputation: 2500},
		{ID: "bargain", Name: "Bargain", Capabilities: []string{"x"}, Price: 0.02, Reputation: 1800},
	})

	for _, partial := range []bool{false, true} {
		results, err := svc.BestValue(context.Background(), "", 10, partial)
		require.NoError(t, err)
		require.Equal(t, []string{"bargain", "famous"}, ids(results), "partial=%v", partial)
		assert.InDelta(t, 90000, results[0].ValueScore, 1e-6)
		assert.InDelta(t, 50000, results[1].ValueScore, 1e-6)
	}
}

func TestBestValue_WithCapability(t *testing.T) {
	svc := newTestService(t, sampleRecords())
	ctx := context.Background()

	results, err := svc.BestValue(ctx, "nlp", 10, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"translation-service-v1", "sentiment-analyzer-v3"}, ids(results))

	results, err = svc.BestValue(ctx, "analysis", 10, true)
	require.NoError(t, err)
	assert.Equal(t, []string{"sentiment-analyzer-v3", "data-analysis-pro-v1"}, ids(results))

	results, err = svc.BestValue(ctx, "", 1, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"translation-service-v1"}, ids(results))
}

func TestFallback_IgnoresFilters(t *testing.T) {
	svc := newTestService(t, sampleRecords(), WithoutCombinedOrdering())

	results, err := svc.Fallback(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"data-analysis-pro-v1", "sentiment-analyzer-v3", "translation-service-v1"}, ids(results))
	for _, r := range results {
		assert.Greater(t, r.ValueScore, 0.0)
	}
}

func TestBroaden_StepsAreIndependent(t *testing.T) {
	config := DefaultServiceConfig()
	config.Broadening = BroadeningConfig{PriceFactor: 2.0, ReputationFactor: 0.5}
	svc := NewSearchService(NewInMemoryStore([]*AgentRecord{
		{ID: "a", Name: "A", Capabilities: []string{"x"}, Price: 0.02, Reputation: 10},
		{ID: "b", Name: "B", Capabilities: []string{"y"}, Price: 0.05, Reputation: 20},
	}), config, nil)
	ctx := context.Background()

	q := NewSearchQuery()
	q.MaxPrice = Float64(0.01)

	relaxed, results, err := svc.Broaden(ctx, q, StepRelaxPrice)
	require.NoError(t, err)
	assert.InDelta(t, 0.02, *relaxed.MaxPrice, 1e-12)
	assert.Equal(t, []string{"a"}, ids(results))
	assert.Equal(t, 0.01, *q.MaxPrice, "the input query must not be modified")

	_, results, err = svc.Broaden(ctx, q, StepFallback)
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a"}, ids(results))

	_, _, err = svc.Broaden(ctx, q, "unknown")
	assert.ErrorIs(t, err, ErrInvalidQuery)
}

func TestSearch_RepeatedCallsAgree(t *testing.T) {
	// equal karma and price across providers so ordering rests on tie-breaking
	records := []*AgentRecord{
		{ID: "c", Name: "Gamma", Capabilities: []string{"nlp", "text_summary"}, Price: 0.02, Reputation: 500},
		{ID: "a", Name: "Alpha", Capabilities: []string{"nlp_tools"}, Price: 0.02, Reputation: 500},
		{ID: "b", Name: "Beta", Capabilities: []string{"nlp"}, Price: 0.02, Reputation: 500},
		{ID: "d", Name: "Delta", Capabilities: []string{"summary", "nlp"}, Price: 0.02, Reputation: 500},
	}
	ctx := context.Background()

	for _, opts := range [][]MemoryStoreOption{nil, {WithoutCombinedOrdering()}} {
		svc := newTestService(t, records, opts...)

		exact := NewSearchQuery("nlp")
		exact.PartialMatch = false
		partial := NewSearchQuery("nlp", "summary")
		partial.SortBy = SortByPrice

		for _, q := range []*SearchQuery{exact, partial} {
			first, err := svc.Search(ctx, q)
			require.NoError(t, err)
			require.NotEmpty(t, first)

			second, err := svc.Search(ctx, q)
			require.NoError(t, err)
			assert.Equal(t, first, second, "partial=%v", q.PartialMatch)
		}
	}
}

func TestBroaden_ZeroPriceCeiling(t *testing.T) {
	svc := newTestService(t, []*AgentRecord{
		{ID: "a", Name: "A", Capabilities: []string{"x"}, Price: 0.02, Reputation: 10},
	})
	ctx := context.Background()

	q := NewSearchQuery()
	q.MaxPrice = Float64(0)

	relaxed, results, err := svc.Broaden(ctx, q, StepRelaxPrice)
	require.NoError(t, err)
	assert.Greater(t, *relaxed.MaxPrice, 0.0)
	assert.Empty(t, results)

	relaxed, results, err = svc.Broaden(ctx, relaxed, StepRelaxPrice)
	require.NoError(t, err)
	assert.Greater(t, *relaxed.MaxPrice, 0.02)
	assert.Equal(t, []string{"a"}, ids(results))
}

func TestNewSearchService_DoesNotModifyCallerConfig(t *testing.T) {
	config := &ServiceConfig{Broadening: DefaultBroadeningConfig()}
	svc := NewSearchService(NewInMemoryStore(sampleRecords()), config, nil)

	assert.Equal(t, ServiceConfig{Broadening: DefaultBroadeningConfig()}, *config)

	results, err := svc.Search(context.Background(), NewSearchQuery())
	require.NoError(t, err)
	assert.Len(t, results, len(sampleRecords()))
}

func TestSearchService_ConcurrentCalls(t *testing.T) {
	svc := newTestService(t, sampleRecords())
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results, err := svc.Search(ctx, NewSearchQuery("analysis"))
			assert.NoError(t, err)
			assert.Len(t, results, 2)
		}()
	}
	wg.Wait()
}
