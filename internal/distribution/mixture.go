package distribution

import (
	"fmt"
	"math"
)

// weightTolerance bounds the allowed deviation of mixture weights from 1.
const weightTolerance = 1e-9

// Weighted pairs a component distribution with its mixture weight.
type Weighted struct {
	Weight float64
	Dist   Distribution
}

// Mixture combines two or more distributions with fixed weights summing
// to 1. Each component's Ppf is evaluated at the same shared propensity
// and the results are weight-summed. This assumes positive dependence
// across components under a single propensity — a deliberate choice, not
// independent sampling — so that ranks stay consistent across runs and
// scenarios.
type Mixture struct {
	components []Weighted
}

// NewMixture validates that the weights sum to 1 and returns the mixture.
func NewMixture(components ...Weighted) (Mixture, error) {
	if len(components) < 2 {
		return Mixture{}, fmt.Errorf("distribution: mixture needs at least two components, got %d", len(components))
	}
	total := 0.0
	for _, c := range components {
		if c.Weight < 0 {
			return Mixture{}, fmt.Errorf("distribution: negative mixture weight %v", c.Weight)
		}
		if c.Dist == nil {
			return Mixture{}, fmt.Errorf("distribution: nil mixture component")
		}
		total += c.Weight
	}
	if math.Abs(total-1) > weightTolerance {
		return Mixture{}, fmt.Errorf("distribution: mixture weights sum to %v, want 1", total)
	}
	return Mixture{components: components}, nil
}

// Ppf evaluates every component at the shared propensity and returns the
// weighted sum.
func (m Mixture) Ppf(p float64) float64 {
	v := 0.0
	for _, c := range m.components {
		v += c.Weight * c.Dist.Ppf(p)
	}
	return v
}
