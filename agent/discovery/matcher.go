package discovery

import (
	"fmt"
	"strings"
)

// MatchCapability classifies requested against a candidate capability set.
//
// An exact match is case-sensitive membership. Otherwise the first candidate,
// in the candidate's own order, that contains or is contained by requested
// (case-insensitively) yields a partial match. The scan stops at that first
// hit even if a later candidate would be a closer match.
func MatchCapability(requested string, candidates []string) CapabilityMatch {
	for _, c := range candidates {
		if c == requested {
			return CapabilityMatch{
				Kind:        MatchKindExact,
				Weight:      ExactWeight,
				Explanation: fmt.Sprintf("%s (exact)", requested),
			}
		}
	}

	req := strings.ToLower(requested)
	for _, c := range candidates {
		lc := strings.ToLower(c)
		if strings.Contains(req, lc) || strings.Contains(lc, req) {
			return CapabilityMatch{
				Kind:        MatchKindPartial,
				Weight:      PartialWeight,
				Explanation: fmt.Sprintf("%s → %s (partial)", requested, c),
			}
		}
	}

	return CapabilityMatch{Kind: MatchKindNone}
}

// MatchCapabilities scores every requested capability against candidates and
// returns the total weight with one explanation per matched capability.
func MatchCapabilities(requested, candidates []string) (int, []string) {
	score := 0
	var explanations []string
	for _, r := range requested {
		m := MatchCapability(r, candidates)
		if m.Kind == MatchKindNone {
			continue
		}
		score += m.Weight
		explanations = append(explanations, m.Explanation)
	}
	return score, explanations
}

// annotateExact records exact explanations for a record that the store
// already filtered by full capability membership.
func annotateExact(rec *AgentRecord, requested []string) *MatchResult {
	res := &MatchResult{Record: rec}
	for _, r := range requested {
		res.MatchScore += ExactWeight
		res.MatchedCapabilities = append(res.MatchedCapabilities, fmt.Sprintf("%s (exact)", r))
	}
	return res
}

// annotatePartial scores rec against requested. It returns nil when nothing matched.
func annotatePartial(rec *AgentRecord, requested []string) *MatchResult {
	score, explanations := MatchCapabilities(requested, rec.Capabilities)
	if score == 0 {
		return nil
	}
	return &MatchResult{
		Record:              rec,
		MatchScore:          score,
		MatchedCapabilities: explanations,
	}
}

// containsFold reports whether needle is a case-insensitive substring of
// the record's name or description.
func containsFold(rec *AgentRecord, needle string) bool {
	if needle == "" {
		return true
	}
	n := strings.ToLower(needle)
	return strings.Contains(strings.ToLower(rec.Name), n) ||
		strings.Contains(strings.ToLower(rec.Description), n)
}
