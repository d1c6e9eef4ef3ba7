package parameters

import (
	"fmt"

	"github.com/fortisim/fortisim/internal/distribution"
	"github.com/fortisim/fortisim/internal/engine"
)

// Epi bundles the per-location epidemiological inputs the disease and
// hemoglobin models consume.
type Epi struct {
	// NTDBirthPrevalence is the baseline prevalence of neural tube
	// defects among live births.
	NTDBirthPrevalence *engine.Lookup
	// NTDDisabilityWeight applies over the life of the condition.
	NTDDisabilityWeight *engine.Lookup

	// VADPrevalence is the baseline vitamin A deficiency prevalence.
	VADPrevalence *engine.Lookup
	// VADDisabilityWeight applies while deficient.
	VADDisabilityWeight *engine.Lookup
	// VADDiarrheaRelativeRisk multiplies diarrhea incidence among the
	// deficient.
	VADDiarrheaRelativeRisk float64

	// DiarrheaIncidence and DiarrheaRemission are rates per person-year.
	DiarrheaIncidence        *engine.Lookup
	DiarrheaRemission        *engine.Lookup
	DiarrheaDisabilityWeight *engine.Lookup

	// HemoglobinMean and HemoglobinSD parameterize the hemoglobin
	// ensemble, in g/L.
	HemoglobinMean *engine.Lookup
	HemoglobinSD   *engine.Lookup
	// IronResponsiveFraction is the share of low hemoglobin that
	// responds to iron.
	IronResponsiveFraction *engine.Lookup
}

// FlourConsumption returns the empirical daily-grams distribution of
// fortifiable flour, shared across locations.
func FlourConsumption() (distribution.Distribution, error) {
	return distribution.NewPiecewiseQuantile([]distribution.Anchor{
		{Quantile: 0, Value: 0},
		{Quantile: 0.25, Value: 77.5},
		{Quantile: 0.5, Value: 100},
		{Quantile: 0.75, Value: 200},
		{Quantile: 1, Value: 350.5},
	})
}

// hemoglobinLookup builds the age pattern around a location's
// one-to-four mean: newborns run higher and the first half year sits
// between.
func hemoglobinLookup(meanOneToFour float64) *engine.Lookup {
	return engine.NewLookup([]engine.Row{
		{AgeStart: 0, AgeEnd: 28.0 / 365.25, YearStart: 0, YearEnd: 1 << 31, Value: meanOneToFour + 35},
		{AgeStart: 28.0 / 365.25, AgeEnd: 0.5, YearStart: 0, YearEnd: 1 << 31, Value: meanOneToFour + 10},
		{AgeStart: 0.5, AgeEnd: 1e9, YearStart: 0, YearEnd: 1 << 31, Value: meanOneToFour},
	})
}

var epiByLocation = map[string]func() Epi{
	"Ethiopia": func() Epi {
		return Epi{
			NTDBirthPrevalence:       engine.Scalar(0.0013),
			NTDDisabilityWeight:      engine.Scalar(0.181),
			VADPrevalence:            engine.Scalar(0.45),
			VADDisabilityWeight:      engine.Scalar(0.002),
			VADDiarrheaRelativeRisk:  1.23,
			DiarrheaIncidence:        engine.Scalar(2.5),
			DiarrheaRemission:        engine.Scalar(36.5),
			DiarrheaDisabilityWeight: engine.Scalar(0.188),
			HemoglobinMean:           hemoglobinLookup(106),
			HemoglobinSD:             engine.Scalar(14),
			IronResponsiveFraction:   engine.Scalar(0.7),
		}
	},
	"India": func() Epi {
		return Epi{
			NTDBirthPrevalence:       engine.Scalar(0.0008),
			NTDDisabilityWeight:      engine.Scalar(0.181),
			VADPrevalence:            engine.Scalar(0.20),
			VADDisabilityWeight:      engine.Scalar(0.002),
			VADDiarrheaRelativeRisk:  1.23,
			DiarrheaIncidence:        engine.Scalar(1.9),
			DiarrheaRemission:        engine.Scalar(36.5),
			DiarrheaDisabilityWeight: engine.Scalar(0.188),
			HemoglobinMean:           hemoglobinLookup(100),
			HemoglobinSD:             engine.Scalar(15),
			IronResponsiveFraction:   engine.Scalar(0.7),
		}
	},
	"Nigeria": func() Epi {
		return Epi{
			NTDBirthPrevalence:       engine.Scalar(0.001),
			NTDDisabilityWeight:      engine.Scalar(0.181),
			VADPrevalence:            engine.Scalar(0.29),
			VADDisabilityWeight:      engine.Scalar(0.002),
			VADDiarrheaRelativeRisk:  1.23,
			DiarrheaIncidence:        engine.Scalar(3.0),
			DiarrheaRemission:        engine.Scalar(36.5),
			DiarrheaDisabilityWeight: engine.Scalar(0.188),
			HemoglobinMean:           hemoglobinLookup(103),
			HemoglobinSD:             engine.Scalar(16),
			IronResponsiveFraction:   engine.Scalar(0.7),
		}
	},
}

// EpiForLocation returns the epidemiological inputs for a modeled
// location.
func EpiForLocation(location string) (Epi, error) {
	build, ok := epiByLocation[location]
	if !ok {
		return Epi{}, fmt.Errorf("parameters: no epidemiological data for location %q", location)
	}
	return build(), nil
}

// ironHemoglobinShift is the g/L hemoglobin gain at reference
// consumption among iron-responsive individuals.
var ironHemoglobinShift = distribution.NormalFromStatistics(3.0, 4.9)

// IronHemoglobinShift samples the hemoglobin gain per reference dose.
func (s *Sampler) IronHemoglobinShift() float64 {
	p := s.stream.DrawOne(0, "iron_hemoglobin_shift")
	return ironHemoglobinShift.Ppf(p)
}
