// Package discovery provides capability search and ranking over a marketplace
// catalog of agent providers.
//
// The discovery package implements:
//   - Capability Matching: exact and partial (substring) matching of requested capability tags
//   - Ranking: match-score, field and value-score orderings with stable tie handling
//   - Progressive Broadening: independent relaxation steps applied by the caller
//   - Search Facade: search, lookup by id, top-by-capability and best-value entry points
//
// # Architecture
//
// Data flows one way through the package:
//
//   - RecordStore: fetches a candidate superset (memory, SQL, document store or cache)
//   - Matcher: scores each candidate against the requested capabilities
//   - Rank: orders and truncates the annotated results
//   - SearchService: composes the above and absorbs store failures
//
// # Basic Usage
//
//	store := discovery.NewInMemoryStore(records)
//	svc := discovery.NewSearchService(store, discovery.DefaultServiceConfig(), logger)
//
//	q := discovery.NewSearchQuery("statistical_analysis")
//	q.MaxPrice = discovery.Float64(0.05)
//	results, err := svc.Search(ctx, q)
//
// # Broadening
//
// Search never retries on its own. When a result is empty or too small, the
// caller applies the next step and searches again:
//
//	b := svc.Broadener()
//	for _, step := range b.Steps()[1:] {
//	    relaxed, results, err := svc.Broaden(ctx, q, step)
//	    if err != nil || len(results) > 0 {
//	        break
//	    }
//	    q = relaxed
//	}
//
// # Store Fallback
//
// Backends that cannot combine a capability membership filter with ordering
// in a single query report so through StoreFeatures. QueryStore then fetches
// with scalar filters only and applies membership, ordering and limit in
// memory.
package discovery
