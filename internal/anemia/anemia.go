// Package anemia models hemoglobin concentration and the anemia
// severity derived from it. Hemoglobin is a continuous exposure sampled
// from a gamma/mirrored-Gumbel ensemble at a fixed per-individual
// propensity; severity is a pure threshold classification over the
// current hemoglobin level, so interventions that shift hemoglobin move
// individuals across severity classes without any re-randomization.
package anemia

import (
	"fmt"

	"github.com/fortisim/fortisim/internal/distribution"
	"github.com/fortisim/fortisim/internal/engine"
	"github.com/fortisim/fortisim/internal/population"
)

// MaxHemoglobin caps the mirrored Gumbel component, in g/L.
const MaxHemoglobin = 220.0

// ExposureValue names the hemoglobin pipeline.
const ExposureValue = "hemoglobin.exposure"

// Severity labels, ordered from healthy to worst.
const (
	SeverityNone     = "none"
	SeverityMild     = "mild"
	SeverityModerate = "moderate"
	SeveritySevere   = "severe"
)

// Severities lists the severity labels in a stable order.
var Severities = []string{SeverityNone, SeverityMild, SeverityModerate, SeveritySevere}

// neonatalAge is the upper age bound, in years, for the neonatal
// threshold set.
const neonatalAge = 28.0 / 365.25

// Severity classifies a hemoglobin level in g/L. Neonates carry higher
// thresholds than older children. Bands are closed on the left and open
// on the right, so a level exactly at a cutoff takes the milder class.
func Severity(hemoglobin, ageYears float64) string {
	if ageYears < neonatalAge {
		switch {
		case hemoglobin < 90:
			return SeveritySevere
		case hemoglobin < 130:
			return SeverityModerate
		case hemoglobin < 150:
			return SeverityMild
		default:
			return SeverityNone
		}
	}
	switch {
	case hemoglobin < 70:
		return SeveritySevere
	case hemoglobin < 100:
		return SeverityModerate
	case hemoglobin < 110:
		return SeverityMild
	default:
		return SeverityNone
	}
}

// Disability weights per person-year by severity.
var disabilityWeights = map[string]float64{
	SeverityNone:     0,
	SeverityMild:     0.004,
	SeverityModerate: 0.052,
	SeveritySevere:   0.149,
}

// DisabilityWeight returns the per-person-year disability weight for a
// severity class.
func DisabilityWeight(severity string) (float64, error) {
	w, ok := disabilityWeights[severity]
	if !ok {
		return 0, fmt.Errorf("anemia: unknown severity %q", severity)
	}
	return w, nil
}

// Hemoglobin is the hemoglobin exposure component. The population
// distribution at each stratum is a fixed 40/60 ensemble of a gamma and
// a mirrored Gumbel sharing the stratum mean and standard deviation.
type Hemoglobin struct {
	mean           *engine.Lookup
	sd             *engine.Lookup
	propResponsive *engine.Lookup

	clock      *engine.Clock
	pop        *population.Table
	propensity *population.Float64Column
	responsive *population.BoolColumn
	exposure   *engine.Value
}

// NewHemoglobin creates the component. mean and sd are in g/L by
// stratum; propResponsive is the share of low hemoglobin that responds
// to iron.
func NewHemoglobin(mean, sd, propResponsive *engine.Lookup) *Hemoglobin {
	return &Hemoglobin{mean: mean, sd: sd, propResponsive: propResponsive}
}

// Name implements engine.Component.
func (h *Hemoglobin) Name() string { return "hemoglobin" }

// Condition names the outcome for the disability observer.
func (h *Hemoglobin) Condition() string { return "anemia" }

// Setup implements engine.Component.
func (h *Hemoglobin) Setup(b *engine.Builder) error {
	h.clock = b.Clock
	h.pop = b.Population
	stream := b.Randomness.Register("hemoglobin")

	var err error
	if h.propensity, err = b.Population.NewFloat64Column("hemoglobin_propensity", 0); err != nil {
		return err
	}
	if h.responsive, err = b.Population.NewBoolColumn("iron_responsive", false); err != nil {
		return err
	}
	if h.exposure, err = b.Values.RegisterProducer(ExposureValue, h.exposureSource); err != nil {
		return err
	}

	b.Population.RegisterInitializer(func(ids []int) error {
		for _, id := range ids {
			h.propensity.Set(id, stream.DrawOne(id, "propensity"))
			prop, err := h.propResponsive.At(b.Population.SexOf(id), b.Population.Age(id), b.Clock.Year())
			if err != nil {
				return err
			}
			h.responsive.Set(id, stream.DrawOne(id, "iron_responsiveness") < prop)
		}
		return nil
	})
	return nil
}

func (h *Hemoglobin) exposureSource(ids []int) ([]float64, error) {
	vals := make([]float64, len(ids))
	for i, id := range ids {
		sex, age, year := h.pop.SexOf(id), h.pop.Age(id), h.clock.Year()
		mean, err := h.mean.At(sex, age, year)
		if err != nil {
			return nil, err
		}
		sd, err := h.sd.At(sex, age, year)
		if err != nil {
			return nil, err
		}
		ensemble, err := distribution.NewMixture(
			distribution.Weighted{Weight: 0.4, Dist: distribution.Gamma{Mean: mean, SD: sd}},
			distribution.Weighted{Weight: 0.6, Dist: distribution.MirroredGumbel{Mean: mean, SD: sd, Max: MaxHemoglobin}},
		)
		if err != nil {
			return nil, err
		}
		vals[i] = ensemble.Ppf(h.propensity.Get(id))
	}
	return vals, nil
}

// Exposure returns the current hemoglobin levels, with every registered
// effect applied.
func (h *Hemoglobin) Exposure(ids []int) ([]float64, error) {
	return h.exposure.Get(ids)
}

// IronResponsive reports whether the individual's hemoglobin responds
// to iron.
func (h *Hemoglobin) IronResponsive(id int) bool { return h.responsive.Get(id) }

// SeverityOf classifies the individual's current anemia severity.
func (h *Hemoglobin) SeverityOf(id int) (string, error) {
	vals, err := h.exposure.Get([]int{id})
	if err != nil {
		return "", err
	}
	return Severity(vals[0], h.pop.Age(id)), nil
}

// DisabilityWeightOf returns the individual's current anemia
// disability weight.
func (h *Hemoglobin) DisabilityWeightOf(id int) (float64, error) {
	severity, err := h.SeverityOf(id)
	if err != nil {
		return 0, err
	}
	return DisabilityWeight(severity)
}
