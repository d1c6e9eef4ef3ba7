// Package coverage models fortification coverage: the population share
// consuming a fortified vehicle, its exponential scale-up after an
// intervention starts, and the per-individual coverage status derived
// from a fixed propensity. Coverage only ever rises, so an individual
// who becomes covered stays covered.
package coverage

import (
	"math"
	"time"

	"github.com/fortisim/fortisim/internal/engine"
)

// ScaleUp is the exponential coverage ramp: coverage converges from
// Baseline toward Target at a fixed annual proportional rate, never
// overshooting and never reaching Target exactly.
type ScaleUp struct {
	Baseline   float64
	Target     float64
	Start      time.Time
	AnnualRate float64
	// Delay shifts the elapsed-time origin for effective coverage,
	// modeling the lag between a household starting to consume the
	// vehicle and the effect reaching exposure.
	Delay time.Duration
}

// CoverageAt returns the population coverage at a point in time.
// Elapsed time before Start clamps to zero, so the ramp never dips
// below Baseline.
func (s ScaleUp) CoverageAt(t time.Time) float64 {
	dt := engine.Years(t.Sub(s.Start))
	if dt < 0 {
		dt = 0
	}
	cov := s.Target - (s.Target-s.Baseline)*math.Pow(1-s.AnnualRate, dt)
	if cov < s.Baseline {
		cov = s.Baseline
	}
	return cov
}

// EffectiveCoverageAt returns the coverage whose effect has reached
// exposure: the same ramp with the origin shifted forward by Delay.
// Before Start+Delay it equals Baseline.
func (s ScaleUp) EffectiveCoverageAt(t time.Time) float64 {
	return s.CoverageAt(t.Add(-s.Delay))
}
