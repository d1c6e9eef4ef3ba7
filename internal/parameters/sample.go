package parameters

import (
	"fmt"

	"github.com/fortisim/fortisim/internal/randomness"
)

// Sampler draws concrete parameter values from a Set. One propensity
// backs all three coverage time points of a vehicle, so scale-up is
// monotone within a draw even under parameter uncertainty.
type Sampler struct {
	set    Set
	stream *randomness.Stream
}

// NewSampler binds a parameter set to a randomness stream.
func NewSampler(set Set, stream *randomness.Stream) *Sampler {
	return &Sampler{set: set, stream: stream}
}

// Coverage samples location-level coverage for a vehicle at one of the
// three reported time points, weighting across sub-national strata.
func (s *Sampler) Coverage(v Vehicle, at CoverageTime) (float64, error) {
	vp, err := s.set.Vehicle(v)
	if err != nil {
		return 0, err
	}
	p := s.stream.DrawOne(0, fmt.Sprintf("%s_coverage", v))
	var total float64
	for _, stratum := range vp.Coverage {
		d, ok := stratum.Levels[at]
		if !ok {
			return 0, fmt.Errorf("parameters: vehicle %q has no coverage at %q", v, at)
		}
		total += stratum.Weight * d.Ppf(p)
	}
	return total, nil
}

// RelativeRisk samples the vehicle's relative risk of its deficiency
// outcome among the unfortified.
func (s *Sampler) RelativeRisk(v Vehicle) (float64, error) {
	vp, err := s.set.Vehicle(v)
	if err != nil {
		return 0, err
	}
	p := s.stream.DrawOne(0, fmt.Sprintf("%s_relative_risk", v))
	return vp.RelativeRisk.Ppf(p), nil
}

// VitaminATimeToEffect samples the lag, in years, between vitamin A
// consumption starting and its effect applying.
func (s *Sampler) VitaminATimeToEffect() float64 {
	p := s.stream.DrawOne(0, "vitamin_a_time_to_effect")
	return s.set.VitaminA.TimeToEffect.Ppf(p)
}

// IronBirthWeightShift samples the grams of birth weight added per
// reference dose of fortified flour.
func (s *Sampler) IronBirthWeightShift() float64 {
	p := s.stream.DrawOne(0, "iron_birth_weight_shift")
	return s.set.Iron.BirthWeightShift.Ppf(p)
}
