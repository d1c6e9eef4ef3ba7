// Package parameters holds the per-location input data for the
// fortification models: coverage distributions for each vehicle at
// baseline and at the start and end of scale-up, relative risks of the
// deficiency outcomes, and the auxiliary effect parameters. Every value
// is a distribution; a run samples once per (seed, draw) so uncertainty
// propagates across runs while a single run stays internally consistent.
package parameters

import (
	"fmt"

	"github.com/fortisim/fortisim/internal/distribution"
)

// Vehicle names a fortification vehicle.
type Vehicle string

const (
	FolicAcid Vehicle = "folic_acid"
	VitaminA  Vehicle = "vitamin_a"
	Iron      Vehicle = "iron"
)

// Vehicles lists every vehicle in a stable order.
var Vehicles = []Vehicle{FolicAcid, VitaminA, Iron}

// CoverageTime names one of the three points the coverage data is
// reported at.
type CoverageTime string

const (
	CoverageBaseline          CoverageTime = "baseline"
	CoverageInterventionStart CoverageTime = "intervention_start"
	CoverageInterventionEnd   CoverageTime = "intervention_end"
)

// CoverageStratum is the coverage data for one sub-national stratum.
// Location-level coverage is the population-weighted sum over strata,
// evaluated at a shared propensity so the three time points stay
// ordered within a draw.
type CoverageStratum struct {
	Weight float64
	Levels map[CoverageTime]distribution.Distribution
}

// VehicleParams bundles everything one vehicle needs.
type VehicleParams struct {
	Coverage     []CoverageStratum
	RelativeRisk distribution.Distribution
	// TimeToEffect is the lag, in years, between starting to consume
	// the fortified vehicle and the effect applying. Zero-valued
	// vehicles take the scenario default.
	TimeToEffect distribution.Distribution
	// BirthWeightShift is the grams of birth weight added per
	// reference dose; only the iron vehicle carries it.
	BirthWeightShift distribution.Distribution
}

// Set is the full parameter set for one location.
type Set struct {
	Location  string
	FolicAcid VehicleParams
	VitaminA  VehicleParams
	Iron      VehicleParams
}

// Vehicle returns the parameters for the named vehicle.
func (s Set) Vehicle(v Vehicle) (VehicleParams, error) {
	switch v {
	case FolicAcid:
		return s.FolicAcid, nil
	case VitaminA:
		return s.VitaminA, nil
	case Iron:
		return s.Iron, nil
	}
	return VehicleParams{}, fmt.Errorf("parameters: unknown vehicle %q", v)
}

func betaStats(mean, lower, upper float64) distribution.Distribution {
	return distribution.BetaFromStatistics(mean, lower, upper)
}

func betaShape(alpha, beta float64) distribution.Distribution {
	return distribution.Beta{Alpha: alpha, Beta: beta, Lower: 0, Upper: 1}
}

func levels(baseline, start, end distribution.Distribution) map[CoverageTime]distribution.Distribution {
	return map[CoverageTime]distribution.Distribution{
		CoverageBaseline:          baseline,
		CoverageInterventionStart: start,
		CoverageInterventionEnd:   end,
	}
}

// Flour fortification coverage in Ethiopia is near zero at baseline;
// the scale-up estimates come from regulatory timelines rather than
// survey statistics, hence the explicit shape parameters.
var ethiopiaFlourCoverage = []CoverageStratum{{
	Weight: 1,
	Levels: levels(
		betaShape(0.1, 9.9),
		betaShape(0.5, 3.1),
		betaShape(0.8, 2.36),
	),
}}

var indiaFlourCoverage = []CoverageStratum{{
	Weight: 1,
	Levels: levels(
		betaStats(0.063, 0.048, 0.079),
		betaStats(0.071, 0.056, 0.091),
		betaStats(0.832, 0.795, 0.865),
	),
}}

// Nigeria is modeled as a Kano/Lagos mix weighted by population share.
var nigeriaFlourCoverage = []CoverageStratum{
	{
		Weight: 4.0 / 25.0, // Kano
		Levels: levels(
			betaStats(0.227, 0.200, 0.255),
			betaStats(0.838, 0.814, 0.862),
			betaStats(0.839, 0.815, 0.863),
		),
	},
	{
		Weight: 21.0 / 25.0, // Lagos
		Levels: levels(
			betaStats(0.054, 0.038, 0.069),
			betaStats(0.138, 0.115, 0.161),
			betaStats(0.142, 0.118, 0.165),
		),
	},
}

var vitaminACoverage = map[string][]CoverageStratum{
	"Ethiopia": {{
		Weight: 1,
		Levels: levels(
			betaShape(0.1, 9.9),
			betaStats(0.440, 0.340, 0.540),
			betaStats(0.550, 0.450, 0.650),
		),
	}},
	"India": {{
		Weight: 1,
		Levels: levels(
			betaStats(0.243, 0.211, 0.279),
			betaStats(0.894, 0.870, 0.918),
			distribution.Constant(1.0),
		),
	}},
	"Nigeria": {
		{
			Weight: 4.0 / 25.0, // Kano
			Levels: levels(
				betaStats(0.076, 0.059, 0.094),
				betaStats(0.359, 0.327, 0.391),
				betaStats(0.984, 0.976, 0.992),
			),
		},
		{
			Weight: 21.0 / 25.0, // Lagos
			Levels: levels(
				betaStats(0.072, 0.055, 0.089),
				betaStats(0.227, 0.199, 0.255),
				betaStats(0.986, 0.978, 0.993),
			),
		},
	},
}

var (
	folicAcidRelativeRisk = distribution.LogNormalFromStatistics(1.71, 2.04)
	vitaminARelativeRisk  = distribution.LogNormalFromStatistics(2.22, 5.26)
	ironRelativeRisk      = distribution.LogNormalFromStatistics(1.71, 2.04)

	vitaminATimeToEffect = distribution.LogNormalFromStatistics(5.0/12.0, 1.0)

	ironBirthWeightShift = distribution.NormalFromStatistics(15.1, 24.2)
)

// ForLocation returns the full parameter set for a modeled location.
// Unknown locations are a configuration error.
func ForLocation(location string) (Set, error) {
	var flour, vitA []CoverageStratum
	switch location {
	case "Ethiopia":
		flour = ethiopiaFlourCoverage
	case "India":
		flour = indiaFlourCoverage
	case "Nigeria":
		flour = nigeriaFlourCoverage
	default:
		return Set{}, fmt.Errorf("parameters: no data for location %q", location)
	}
	vitA = vitaminACoverage[location]

	return Set{
		Location: location,
		FolicAcid: VehicleParams{
			Coverage:     flour,
			RelativeRisk: folicAcidRelativeRisk,
		},
		VitaminA: VehicleParams{
			Coverage:     vitA,
			RelativeRisk: vitaminARelativeRisk,
			TimeToEffect: vitaminATimeToEffect,
		},
		Iron: VehicleParams{
			// Iron rides the same wheat-flour vehicle as folic acid,
			// so it shares the flour coverage data.
			Coverage:         flour,
			RelativeRisk:     ironRelativeRisk,
			BirthWeightShift: ironBirthWeightShift,
		},
	}, nil
}

// Locations lists the modeled locations.
func Locations() []string {
	return []string{"Ethiopia", "India", "Nigeria"}
}
