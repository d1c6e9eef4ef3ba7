package effect

import (
	"fmt"

	"github.com/fortisim/fortisim/internal/disease"
	"github.com/fortisim/fortisim/internal/engine"
	"github.com/fortisim/fortisim/internal/population"
)

// DiseaseRisk raises a rate-based condition's incidence among
// individuals currently in another condition's with-state. The target's
// incidence producer risk-deletes the population effect through the PAF
// pipeline, so the affected carry the excess. The PAF comes from the
// risk condition's baseline prevalence, not its live exposure: a PAF
// that fell with the intervention would cancel the averted cases back
// out of the risk-deleted incidence.
type DiseaseRisk struct {
	risk               string
	target             string
	rr                 float64
	baselinePrevalence *engine.Lookup

	clock *engine.Clock
	pop   *population.Table
	state *population.StringColumn
}

// NewDiseaseRisk creates the effect of one condition on another, e.g.
// vitamin A deficiency on diarrheal diseases. baselinePrevalence is
// the risk condition's unmodified prevalence by stratum.
func NewDiseaseRisk(risk, target string, rr float64, baselinePrevalence *engine.Lookup) *DiseaseRisk {
	return &DiseaseRisk{risk: risk, target: target, rr: rr, baselinePrevalence: baselinePrevalence}
}

// Name implements engine.Component.
func (e *DiseaseRisk) Name() string {
	return fmt.Sprintf("effect_of_%s_on_%s", e.risk, e.target)
}

// Setup implements engine.Component. Both disease components must be
// registered first.
func (e *DiseaseRisk) Setup(b *engine.Builder) error {
	e.clock = b.Clock
	e.pop = b.Population

	var err error
	if e.state, err = b.Population.StringColumn(e.risk); err != nil {
		return err
	}
	if err := b.Values.ContributeToList(disease.PAFValue(e.target), e.pafSource); err != nil {
		return err
	}
	b.Values.RegisterModifier(disease.IncidenceValue(e.target), e.applyRisk)
	return nil
}

// pafSource computes (mean_rr - 1) / mean_rr from the risk condition's
// baseline prevalence, where mean_rr = rr*prevalence + (1-prevalence).
func (e *DiseaseRisk) pafSource(ids []int) ([]float64, error) {
	vals := make([]float64, len(ids))
	for i, id := range ids {
		x, err := e.baselinePrevalence.At(e.pop.SexOf(id), e.pop.Age(id), e.clock.Year())
		if err != nil {
			return nil, err
		}
		meanRR := e.rr*x + (1 - x)
		vals[i] = (meanRR - 1) / meanRR
	}
	return vals, nil
}

func (e *DiseaseRisk) applyRisk(ids []int, vals []float64) error {
	for i, id := range ids {
		if e.state.Get(id) == e.risk {
			vals[i] *= e.rr
		}
	}
	return nil
}
