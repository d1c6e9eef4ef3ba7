// Package effect wires fortification coverage into the risk models.
// Each effect registers pipeline modifiers and PAF contributions during
// setup; the coverage and disease components stay unaware of which
// effects are active, so scenarios compose by component list alone.
package effect

import (
	"fmt"

	"github.com/fortisim/fortisim/internal/coverage"
	"github.com/fortisim/fortisim/internal/disease"
	"github.com/fortisim/fortisim/internal/engine"
	"github.com/fortisim/fortisim/internal/parameters"
	"github.com/fortisim/fortisim/internal/population"
)

// RelativeRisk raises a condition's exposure among individuals the
// vehicle has not reached. The exposure producer risk-deletes the
// baseline through the PAF pipeline, so population prevalence matches
// the input data while the unfortified carry the excess risk.
type RelativeRisk struct {
	vehicle   parameters.Vehicle
	condition string
	rr        float64
	// baselineCoverage is the sampled coverage already reflected in the
	// input exposure data. The PAF is a constant of it: scale-up moves
	// individuals across the covered boundary, never the deletion term,
	// so baseline data stay calibrated while interventions take effect.
	baselineCoverage float64
	// minAge gates the effect for vehicles that act through diet after
	// weaning rather than in utero.
	minAge float64
	// groupAtBirth keys coverage off the fortification group fixed at
	// entry instead of current effective coverage; used when the
	// effect acts before birth.
	groupAtBirth bool

	pop     *population.Table
	group   *population.StringColumn
	covered *engine.Value
}

// NewRelativeRisk creates the effect of a vehicle on a condition.
func NewRelativeRisk(v parameters.Vehicle, condition string, rr, baselineCoverage, minAge float64, groupAtBirth bool) *RelativeRisk {
	return &RelativeRisk{
		vehicle:          v,
		condition:        condition,
		rr:               rr,
		baselineCoverage: baselineCoverage,
		minAge:           minAge,
		groupAtBirth:     groupAtBirth,
	}
}

// Name implements engine.Component.
func (e *RelativeRisk) Name() string {
	return fmt.Sprintf("effect_of_%s_fortification_on_%s", e.vehicle, e.condition)
}

// Setup implements engine.Component. The vehicle's coverage component
// and the condition's disease component must be registered first.
func (e *RelativeRisk) Setup(b *engine.Builder) error {
	e.pop = b.Population

	var err error
	if e.covered, err = b.Values.Value(coverage.EffectivelyCoveredValue(e.vehicle)); err != nil {
		return err
	}
	if e.groupAtBirth {
		if e.group, err = b.Population.StringColumn(coverage.GroupColumn(e.vehicle)); err != nil {
			return err
		}
	}

	if err := b.Values.ContributeToList(disease.PAFValue(e.condition), e.pafSource); err != nil {
		return err
	}
	b.Values.RegisterModifier(disease.ExposureValue(e.condition), e.applyRisk)
	return nil
}

// pafSource computes (mean_rr - 1) / mean_rr from the baseline
// coverage, where mean_rr = rr*(1-coverage) + coverage. The baseline
// is deliberately a constant: a PAF that followed the live coverage
// pipeline would cancel the intervention out of the risk-deleted
// exposure.
func (e *RelativeRisk) pafSource(ids []int) ([]float64, error) {
	meanRR := e.rr*(1-e.baselineCoverage) + e.baselineCoverage
	paf := (meanRR - 1) / meanRR
	vals := make([]float64, len(ids))
	for i := range vals {
		vals[i] = paf
	}
	return vals, nil
}

func (e *RelativeRisk) applyRisk(ids []int, vals []float64) error {
	if e.groupAtBirth {
		for i, id := range ids {
			if e.group.Get(id) == coverage.GroupUncovered {
				vals[i] *= e.rr
			}
		}
		return nil
	}
	covered, err := e.covered.Get(ids)
	if err != nil {
		return err
	}
	for i, id := range ids {
		if covered[i] == 0 && e.pop.Age(id) >= e.minAge {
			vals[i] *= e.rr
		}
	}
	return nil
}
