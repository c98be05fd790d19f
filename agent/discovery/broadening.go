package discovery

import (
	"fmt"
	"math"
)

// BroadeningStep names one relaxation step. Steps are applied by the caller,
// one at a time, in the order returned by Broadener.Steps.
type BroadeningStep string

const (
	StepAsGiven         BroadeningStep = "as_given"
	StepRelaxPrice      BroadeningStep = "relax_price"
	StepRelaxReputation BroadeningStep = "relax_reputation"
	StepRelaxExactness  BroadeningStep = "relax_exactness"
	StepFallback        BroadeningStep = "fallback"
)

// ParseBroadeningStep parses a step name.
func ParseBroadeningStep(s string) (BroadeningStep, error) {
	switch BroadeningStep(s) {
	case StepAsGiven, StepRelaxPrice, StepRelaxReputation, StepRelaxExactness, StepFallback:
		return BroadeningStep(s), nil
	default:
		return "", fmt.Errorf("%w: unknown broadening step %q", ErrInvalidQuery, s)
	}
}

// minReputationFactor bounds how far one reputation step may cut.
const minReputationFactor = 0.5

// BroadeningConfig configures the relaxation factors.
type BroadeningConfig struct {
	// PriceFactor multiplies the price ceiling. Range [1.5, 2.0].
	PriceFactor float64 `json:"price_factor" yaml:"price_factor" env:"PRICE_FACTOR"`

	// ReputationFactor multiplies the reputation floor. Range [0.5, 0.75].
	ReputationFactor float64 `json:"reputation_factor" yaml:"reputation_factor" env:"REPUTATION_FACTOR"`
}

// DefaultBroadeningConfig returns a BroadeningConfig with sensible defaults.
func DefaultBroadeningConfig() BroadeningConfig {
	return BroadeningConfig{
		PriceFactor:      1.5,
		ReputationFactor: 0.75,
	}
}

// Validate checks the factors are within range.
func (c BroadeningConfig) Validate() error {
	if c.PriceFactor < 1.5 || c.PriceFactor > 2.0 {
		return fmt.Errorf("price factor must be within [1.5, 2.0], got %v", c.PriceFactor)
	}
	if c.ReputationFactor < 0.5 || c.ReputationFactor > 0.75 {
		return fmt.Errorf("reputation factor must be within [0.5, 0.75], got %v", c.ReputationFactor)
	}
	return nil
}

// Broadener derives relaxed queries. It holds no state between calls and
// never runs a search itself.
type Broadener struct {
	config BroadeningConfig
}

// NewBroadener creates a Broadener. An invalid config falls back to the defaults.
func NewBroadener(config BroadeningConfig) *Broadener {
	if config.Validate() != nil {
		config = DefaultBroadeningConfig()
	}
	return &Broadener{config: config}
}

// Config returns the effective factors.
func (b *Broadener) Config() BroadeningConfig {
	return b.config
}

// Steps returns the recommended step order.
func (b *Broadener) Steps() []BroadeningStep {
	return []BroadeningStep{StepAsGiven, StepRelaxPrice, StepRelaxReputation, StepRelaxExactness, StepFallback}
}

// RelaxPrice raises the price ceiling. A ceiling below PriceFloor is raised
// from PriceFloor so that a zero ceiling still loosens. A query without a
// ceiling is returned unchanged.
func (b *Broadener) RelaxPrice(q *SearchQuery) *SearchQuery {
	out := q.Clone()
	if out.MaxPrice != nil {
		out.MaxPrice = Float64(max(*out.MaxPrice, PriceFloor) * b.config.PriceFactor)
	}
	return out
}

// RelaxReputation lowers the reputation floor, rounding down. The cut is
// clamped to at most half of the floor, and a positive floor always drops
// by at least one: a floor of 1 becomes 0 since no integer lies in the band.
func (b *Broadener) RelaxReputation(q *SearchQuery) *SearchQuery {
	out := q.Clone()
	if out.MinReputation != nil {
		out.MinReputation = Int(relaxFloor(*out.MinReputation, b.config.ReputationFactor))
	}
	return out
}

func relaxFloor(floor int, factor float64) int {
	if floor <= 0 {
		return floor
	}
	relaxed := int(math.Floor(float64(floor) * factor))
	relaxed = max(relaxed, int(math.Ceil(float64(floor)*minReputationFactor)))
	return min(relaxed, floor-1)
}

// RelaxExactness turns on partial capability matching.
func (b *Broadener) RelaxExactness(q *SearchQuery) *SearchQuery {
	out := q.Clone()
	out.PartialMatch = true
	return out
}

// Apply returns the query for step. The fallback step has no query form and
// returns q unchanged; callers run SearchService.Fallback for it.
func (b *Broadener) Apply(q *SearchQuery, step BroadeningStep) (*SearchQuery, error) {
	if q == nil {
		return nil, fmt.Errorf("%w: query is nil", ErrInvalidQuery)
	}
	switch step {
	case StepAsGiven, StepFallback:
		return q.Clone(), nil
	case StepRelaxPrice:
		return b.RelaxPrice(q), nil
	case StepRelaxReputation:
		return b.RelaxReputation(q), nil
	case StepRelaxExactness:
		return b.RelaxExactness(q), nil
	default:
		return nil, fmt.Errorf("%w: unknown broadening step %q", ErrInvalidQuery, step)
	}
}
