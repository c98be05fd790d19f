package discovery

import "sort"

// RankMode selects the ordering rule applied by Rank.
type RankMode int

const (
	// RankByField orders by the primary sort field only.
	RankByField RankMode = iota
	// RankByMatch orders by match score first, then by a secondary key.
	RankByMatch
	// RankByValue orders by value score, with match score first when requested.
	RankByValue
)

// RankOptions configures a ranking pass.
type RankOptions struct {
	Mode      RankMode
	SortBy    SortField
	SortOrder SortOrder

	// MatchFirst puts match score ahead of value score in RankByValue mode.
	MatchFirst bool
}

// Rank orders results in place and returns the same slice. The sort is
// stable so equal keys keep their store order.
func Rank(results []*MatchResult, opts RankOptions) []*MatchResult {
	var less func(a, b *MatchResult) bool

	switch opts.Mode {
	case RankByMatch:
		less = func(a, b *MatchResult) bool {
			if a.MatchScore != b.MatchScore {
				return a.MatchScore > b.MatchScore
			}
			if opts.SortBy == SortByReputation {
				return a.Record.Reputation > b.Record.Reputation
			}
			return a.Record.Price < b.Record.Price
		}
	case RankByValue:
		less = func(a, b *MatchResult) bool {
			if opts.MatchFirst && a.MatchScore != b.MatchScore {
				return a.MatchScore > b.MatchScore
			}
			return a.ValueScore > b.ValueScore
		}
	default:
		less = fieldLess(opts.SortBy, opts.SortOrder)
	}

	sort.SliceStable(results, func(i, j int) bool {
		return less(results[i], results[j])
	})
	return results
}

func fieldLess(field SortField, order SortOrder) func(a, b *MatchResult) bool {
	desc := order != SortAsc
	return func(a, b *MatchResult) bool {
		switch field {
		case SortByPrice:
			if desc {
				return a.Record.Price > b.Record.Price
			}
			return a.Record.Price < b.Record.Price
		case SortByName:
			if desc {
				return a.Record.Name > b.Record.Name
			}
			return a.Record.Name < b.Record.Name
		default:
			if desc {
				return a.Record.Reputation > b.Record.Reputation
			}
			return a.Record.Reputation < b.Record.Reputation
		}
	}
}

// Truncate returns at most limit leading results. A non-positive limit returns
// the input unchanged.
func Truncate(results []*MatchResult, limit int) []*MatchResult {
	if limit <= 0 || len(results) <= limit {
		return results
	}
	return results[:limit]
}

// AssignValueScores sets ValueScore on every result.
func AssignValueScores(results []*MatchResult) {
	for _, r := range results {
		r.ValueScore = r.Record.ValueScore()
	}
}
