package discovery

import (
	"fmt"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resultsFrom(scores, karma []int, prices []float64) []*MatchResult {
	n := len(scores)
	if len(karma) < n {
		n = len(karma)
	}
	if len(prices) < n {
		n = len(prices)
	}
	out := make([]*MatchResult, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, &MatchResult{
			Record: &AgentRecord{
				ID:         fmt.Sprintf("agent-%d", i),
				Name:       fmt.Sprintf("Agent %d", i),
				Price:      prices[i],
				Reputation: karma[i],
			},
			MatchScore: scores[i],
		})
	}
	return out
}

func TestRank_ByMatchIgnoresSortOrder(t *testing.T) {
	results := resultsFrom([]int{1, 3, 3, 2}, []int{100, 50, 900, 700}, []float64{0.1, 0.2, 0.3, 0.4})

	Rank(results, RankOptions{Mode: RankByMatch, SortBy: SortByReputation, SortOrder: SortAsc})
	assert.Equal(t, []string{"agent-2", "agent-1", "agent-3", "agent-0"}, ids(results))

	Rank(results, RankOptions{Mode: RankByMatch, SortBy: SortByName})
	assert.Equal(t, []string{"agent-1", "agent-2", "agent-3", "agent-0"}, ids(results),
		"non-reputation keys fall back to price ascending")
}

func TestRank_ByField(t *testing.T) {
	results := resultsFrom([]int{0, 0, 0}, []int{10, 30, 20}, []float64{0.3, 0.1, 0.2})

	Rank(results, RankOptions{Mode: RankByField, SortBy: SortByPrice, SortOrder: SortAsc})
	assert.Equal(t, []string{"agent-1", "agent-2", "agent-0"}, ids(results))

	Rank(results, RankOptions{Mode: RankByField, SortBy: SortByReputation, SortOrder: SortDesc})
	assert.Equal(t, []string{"agent-1", "agent-2", "agent-0"}, ids(results))

	Rank(results, RankOptions{Mode: RankByField, SortBy: SortByName, SortOrder: SortDesc})
	assert.Equal(t, []string{"agent-2", "agent-1", "agent-0"}, ids(results))
}

func TestRank_StableOnTies(t *testing.T) {
	results := resultsFrom([]int{1, 1, 1}, []int{5, 5, 5}, []float64{0.1, 0.1, 0.1})
	Rank(results, RankOptions{Mode: RankByMatch, SortBy: SortByReputation})
	assert.Equal(t, []string{"agent-0", "agent-1", "agent-2"}, ids(results))
}

func TestRank_ByValueWithMatchFirst(t *testing.T) {
	results := resultsFrom([]int{1, 2}, []int{2500, 100}, []float64{0.01, 0.5})
	AssignValueScores(results)

	Rank(results, RankOptions{Mode: RankByValue})
	assert.Equal(t, []string{"agent-0", "agent-1"}, ids(results))

	Rank(results, RankOptions{Mode: RankByValue, MatchFirst: true})
	assert.Equal(t, []string{"agent-1", "agent-0"}, ids(results))
}

func TestTruncate(t *testing.T) {
	results := resultsFrom([]int{0, 0, 0}, []int{1, 2, 3}, []float64{1, 1, 1})
	require.Len(t, Truncate(results, 2), 2)
	require.Len(t, Truncate(results, 10), 3)
	require.Len(t, Truncate(results, 0), 3)
}

func rankInputGen() gopter.Gen {
	return gopter.CombineGens(
		gen.SliceOfN(12, gen.IntRange(0, 4)),
		gen.SliceOfN(12, gen.IntRange(0, 3000)),
		gen.SliceOfN(12, gen.Float64Range(0, 1)),
		gen.IntRange(1, 15),
	)
}

func TestProperty_RankByMatchIsNonIncreasing(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("match score then karma never increase", prop.ForAll(
		func(values []interface{}) bool {
			results := resultsFrom(values[0].([]int), values[1].([]int), values[2].([]float64))
			Rank(results, RankOptions{Mode: RankByMatch, SortBy: SortByReputation})
			for i := 1; i < len(results); i++ {
				prev, cur := results[i-1], results[i]
				if cur.MatchScore > prev.MatchScore {
					return false
				}
				if cur.MatchScore == prev.MatchScore && cur.Record.Reputation > prev.Record.Reputation {
					return false
				}
			}
			return true
		},
		rankInputGen(),
	))

	properties.Property("ranking is idempotent", prop.ForAll(
		func(values []interface{}) bool {
			results := resultsFrom(values[0].([]int), values[1].([]int), values[2].([]float64))
			once := ids(Rank(results, RankOptions{Mode: RankByMatch, SortBy: SortByPrice}))
			twice := ids(Rank(results, RankOptions{Mode: RankByMatch, SortBy: SortByPrice}))
			return fmt.Sprint(once) == fmt.Sprint(twice)
		},
		rankInputGen(),
	))

	properties.Property("truncation is a prefix no longer than limit", prop.ForAll(
		func(values []interface{}) bool {
			results := resultsFrom(values[0].([]int), values[1].([]int), values[2].([]float64))
			limit := values[3].(int)
			full := ids(Rank(results, RankOptions{Mode: RankByMatch, SortBy: SortByReputation}))
			cut := ids(Truncate(results, limit))
			if len(cut) > limit {
				return false
			}
			for i := range cut {
				if cut[i] != full[i] {
					return false
				}
			}
			return true
		},
		rankInputGen(),
	))

	properties.TestingRun(t)
}

func TestProperty_ValueScoreIsFinite(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	properties := gopter.NewProperties(parameters)

	properties.Property("value score never divides by zero", prop.ForAll(
		func(price float64, karma int) bool {
			rec := &AgentRecord{ID: "x", Price: price, Reputation: karma}
			v := rec.ValueScore()
			return v >= 0 && v <= float64(karma)/PriceFloor
		},
		gen.Float64Range(0, 10),
		gen.IntRange(0, 5000),
	))

	properties.TestingRun(t)
}
