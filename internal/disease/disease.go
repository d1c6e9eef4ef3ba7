// Package disease provides the two disease state machines the
// simulation uses: a threshold model for conditions fully attributable
// to a risk exposure (the state is a deterministic function of a fixed
// propensity and a moving exposure level), and a rate-based
// susceptible-infected-susceptible model for acute conditions.
package disease

import (
	"fmt"
	"math"

	"github.com/fortisim/fortisim/internal/engine"
	"github.com/fortisim/fortisim/internal/population"
	"github.com/fortisim/fortisim/internal/randomness"
)

// SusceptibleState names the susceptible state for a condition.
func SusceptibleState(condition string) string {
	return "susceptible_to_" + condition
}

// ExposureValue names a condition's exposure pipeline.
func ExposureValue(condition string) string {
	return condition + ".exposure_parameters"
}

// PAFValue names a condition's population-attributable-fraction list
// pipeline. Effects contribute to it; the exposure and incidence
// producers consume the union-combined total.
func PAFValue(condition string) string {
	return condition + ".paf"
}

// IncidenceValue names a rate-based condition's incidence pipeline.
func IncidenceValue(condition string) string {
	return condition + ".incidence_rate"
}

// StateModel is what the stratified observers need from a disease
// component: its state space and the per-individual current and
// previous states.
type StateModel interface {
	Condition() string
	// States lists every valid state, susceptible first.
	States() []string
	StateOf(id int) string
	PreviousStateOf(id int) string
	// DisabilityWeightOf returns the individual's current disability
	// weight in years lost per person-year.
	DisabilityWeightOf(id int) (float64, error)
}

// RiskAttributable models a condition that is present exactly when a
// fixed per-individual propensity falls under the current exposure
// level. Exposure moves with interventions through the PAF pipeline, so
// individuals at the margin can be reclassified in either direction.
type RiskAttributable struct {
	name             string
	baseExposure     *engine.Lookup
	disabilityWeight *engine.Lookup
	// congenital freezes the state assigned at entry; the condition is
	// determined before birth, so later exposure changes cannot
	// reclassify anyone already born.
	congenital bool

	clock      *engine.Clock
	pop        *population.Table
	propensity *population.Float64Column
	state      *population.StringColumn
	previous   *population.StringColumn
	eventTime  *population.TimeColumn
	eventCount *population.IntColumn
	exposure   *engine.Value
	paf        *engine.ListValue
}

// NewRiskAttributable creates a threshold condition. baseExposure is
// the unmodified exposure prevalence by stratum; disabilityWeight
// applies while in the with-condition state.
func NewRiskAttributable(name string, baseExposure, disabilityWeight *engine.Lookup, congenital bool) *RiskAttributable {
	return &RiskAttributable{
		name:             name,
		baseExposure:     baseExposure,
		disabilityWeight: disabilityWeight,
		congenital:       congenital,
	}
}

// Name implements engine.Component.
func (r *RiskAttributable) Name() string { return r.name }

// Condition implements StateModel.
func (r *RiskAttributable) Condition() string { return r.name }

// States implements StateModel.
func (r *RiskAttributable) States() []string {
	return []string{SusceptibleState(r.name), r.name}
}

// StateOf implements StateModel.
func (r *RiskAttributable) StateOf(id int) string { return r.state.Get(id) }

// PreviousStateOf implements StateModel.
func (r *RiskAttributable) PreviousStateOf(id int) string { return r.previous.Get(id) }

// DisabilityWeightOf implements StateModel.
func (r *RiskAttributable) DisabilityWeightOf(id int) (float64, error) {
	if r.state.Get(id) != r.name {
		return 0, nil
	}
	return r.disabilityWeight.At(r.pop.SexOf(id), r.pop.Age(id), r.clock.Year())
}

// Setup implements engine.Component.
func (r *RiskAttributable) Setup(b *engine.Builder) error {
	r.clock = b.Clock
	r.pop = b.Population
	stream := b.Randomness.Register(r.name)

	var err error
	if r.propensity, err = b.Population.NewFloat64Column(r.name+"_propensity", 0); err != nil {
		return err
	}
	if r.state, err = b.Population.NewStringColumn(r.name, SusceptibleState(r.name)); err != nil {
		return err
	}
	if r.previous, err = b.Population.NewStringColumn(r.name+"_previous_state", SusceptibleState(r.name)); err != nil {
		return err
	}
	if r.eventTime, err = b.Population.NewTimeColumn(r.name + "_event_time"); err != nil {
		return err
	}
	if r.eventCount, err = b.Population.NewIntColumn(r.name + "_event_count"); err != nil {
		return err
	}
	if r.paf, err = b.Values.RegisterList(PAFValue(r.name)); err != nil {
		return err
	}
	if r.exposure, err = b.Values.RegisterProducer(ExposureValue(r.name), r.exposureSource); err != nil {
		return err
	}

	b.Population.RegisterInitializer(func(ids []int) error {
		for _, id := range ids {
			r.propensity.Set(id, stream.DrawOne(id, "propensity"))
		}
		exposures, err := r.exposure.Get(ids)
		if err != nil {
			return err
		}
		for i, id := range ids {
			if r.propensity.Get(id) < exposures[i] {
				r.state.Set(id, r.name)
				r.previous.Set(id, r.name)
			}
		}
		return nil
	})

	b.RegisterListener(engine.TimeStepPrepare, r.onPrepare)
	if !r.congenital {
		b.RegisterListener(engine.TimeStep, r.onTimeStep)
	}
	return nil
}

func (r *RiskAttributable) exposureSource(ids []int) ([]float64, error) {
	pafs, err := r.paf.Get(ids)
	if err != nil {
		return nil, err
	}
	vals := make([]float64, len(ids))
	for i, id := range ids {
		base, err := r.baseExposure.At(r.pop.SexOf(id), r.pop.Age(id), r.clock.Year())
		if err != nil {
			return nil, err
		}
		vals[i] = base * (1 - pafs[i])
	}
	return vals, nil
}

func (r *RiskAttributable) onPrepare(ev engine.Event) error {
	for _, id := range ev.Index {
		r.previous.Set(id, r.state.Get(id))
	}
	return nil
}

func (r *RiskAttributable) onTimeStep(ev engine.Event) error {
	exposures, err := r.exposure.Get(ev.Index)
	if err != nil {
		return err
	}
	for i, id := range ev.Index {
		next := SusceptibleState(r.name)
		if r.propensity.Get(id) < exposures[i] {
			next = r.name
		}
		if next != r.state.Get(id) {
			r.state.Set(id, next)
			r.eventTime.Set(id, ev.Time)
			r.eventCount.Incr(id)
		}
	}
	return nil
}

// SIS models an acute condition with constant-hazard infection and
// remission. Transition draws are keyed by the step timestamp, so
// re-running a step gives identical outcomes while distinct steps stay
// independent.
type SIS struct {
	name             string
	incidenceRates   *engine.Lookup
	remissionRates   *engine.Lookup
	disabilityWeight *engine.Lookup

	clock      *engine.Clock
	pop        *population.Table
	stream     *randomness.Stream
	state      *population.StringColumn
	previous   *population.StringColumn
	eventTime  *population.TimeColumn
	eventCount *population.IntColumn
	incidence  *engine.Value
	paf        *engine.ListValue
}

// NewSIS creates a rate-based condition. incidence and remission are
// rates per person-year; disabilityWeight applies while infected.
func NewSIS(name string, incidence, remission, disabilityWeight *engine.Lookup) *SIS {
	return &SIS{
		name:             name,
		incidenceRates:   incidence,
		remissionRates:   remission,
		disabilityWeight: disabilityWeight,
	}
}

// Name implements engine.Component.
func (s *SIS) Name() string { return s.name }

// Condition implements StateModel.
func (s *SIS) Condition() string { return s.name }

// States implements StateModel.
func (s *SIS) States() []string {
	return []string{SusceptibleState(s.name), s.name}
}

// StateOf implements StateModel.
func (s *SIS) StateOf(id int) string { return s.state.Get(id) }

// PreviousStateOf implements StateModel.
func (s *SIS) PreviousStateOf(id int) string { return s.previous.Get(id) }

// DisabilityWeightOf implements StateModel.
func (s *SIS) DisabilityWeightOf(id int) (float64, error) {
	if s.state.Get(id) != s.name {
		return 0, nil
	}
	return s.disabilityWeight.At(s.pop.SexOf(id), s.pop.Age(id), s.clock.Year())
}

// Setup implements engine.Component.
func (s *SIS) Setup(b *engine.Builder) error {
	s.clock = b.Clock
	s.pop = b.Population
	s.stream = b.Randomness.Register(s.name)

	var err error
	if s.state, err = b.Population.NewStringColumn(s.name, SusceptibleState(s.name)); err != nil {
		return err
	}
	if s.previous, err = b.Population.NewStringColumn(s.name+"_previous_state", SusceptibleState(s.name)); err != nil {
		return err
	}
	if s.eventTime, err = b.Population.NewTimeColumn(s.name + "_event_time"); err != nil {
		return err
	}
	if s.eventCount, err = b.Population.NewIntColumn(s.name + "_event_count"); err != nil {
		return err
	}
	if s.paf, err = b.Values.RegisterList(PAFValue(s.name)); err != nil {
		return err
	}
	if s.incidence, err = b.Values.RegisterProducer(IncidenceValue(s.name), s.incidenceSource); err != nil {
		return err
	}

	b.RegisterListener(engine.TimeStepPrepare, s.onPrepare)
	b.RegisterListener(engine.TimeStep, s.onTimeStep)
	return nil
}

func (s *SIS) incidenceSource(ids []int) ([]float64, error) {
	pafs, err := s.paf.Get(ids)
	if err != nil {
		return nil, err
	}
	vals := make([]float64, len(ids))
	for i, id := range ids {
		base, err := s.incidenceRates.At(s.pop.SexOf(id), s.pop.Age(id), s.clock.Year())
		if err != nil {
			return nil, err
		}
		vals[i] = base * (1 - pafs[i])
	}
	return vals, nil
}

func (s *SIS) onPrepare(ev engine.Event) error {
	for _, id := range ev.Index {
		s.previous.Set(id, s.state.Get(id))
	}
	return nil
}

func (s *SIS) onTimeStep(ev engine.Event) error {
	rates, err := s.incidence.Get(ev.Index)
	if err != nil {
		return err
	}
	dt := engine.Years(ev.StepSize)
	stepKey := ev.Time.UTC().Format("2006-01-02T15:04:05")
	susceptible := SusceptibleState(s.name)
	for i, id := range ev.Index {
		switch s.state.Get(id) {
		case susceptible:
			p := 1 - math.Exp(-rates[i]*dt)
			if s.stream.DrawOne(id, "infection_"+stepKey) < p {
				s.state.Set(id, s.name)
				s.eventTime.Set(id, ev.Time)
				s.eventCount.Incr(id)
			}
		case s.name:
			remission, err := s.remissionRates.At(s.pop.SexOf(id), s.pop.Age(id), s.clock.Year())
			if err != nil {
				return err
			}
			p := 1 - math.Exp(-remission*dt)
			if s.stream.DrawOne(id, "remission_"+stepKey) < p {
				s.state.Set(id, susceptible)
				s.eventTime.Set(id, ev.Time)
				s.eventCount.Incr(id)
			}
		default:
			return fmt.Errorf("disease: id %d in unknown %s state %q", id, s.name, s.state.Get(id))
		}
	}
	return nil
}
