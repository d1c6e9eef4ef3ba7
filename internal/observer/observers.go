package observer

import (
	"fmt"
	"math"

	"github.com/fortisim/fortisim/internal/coverage"
	"github.com/fortisim/fortisim/internal/disease"
	"github.com/fortisim/fortisim/internal/engine"
	"github.com/fortisim/fortisim/internal/parameters"
	"github.com/fortisim/fortisim/internal/population"
)

var sexes = []population.Sex{population.Male, population.Female}

var groups = []string{coverage.GroupCovered, coverage.GroupUncovered}

func strataKey(measure string, year int, sex population.Sex, ageGroup string) string {
	return fmt.Sprintf("%s_in_%d_among_%s_in_age_group_%s", measure, year, sex, ageGroup)
}

func groupedKey(measure string, year int, sex population.Sex, ageGroup string, v parameters.Vehicle, group string) string {
	return fmt.Sprintf("%s_%s_fortification_group_%s", strataKey(measure, year, sex, ageGroup), v, group)
}

// DiseaseObserver tabulates person-time per disease state and new-case
// counts, stratified by year, sex, age group, and the vehicle's
// fortification group.
type DiseaseObserver struct {
	model   disease.StateModel
	vehicle parameters.Vehicle
	years   []int
	acc     *Accumulator

	pop    *population.Table
	group  *population.StringColumn
	states map[string]bool
}

// NewDiseaseObserver creates the observer for one condition,
// stratifying by the given vehicle's fortification group.
func NewDiseaseObserver(model disease.StateModel, v parameters.Vehicle, years []int, acc *Accumulator) *DiseaseObserver {
	return &DiseaseObserver{model: model, vehicle: v, years: years, acc: acc}
}

// Name implements engine.Component.
func (o *DiseaseObserver) Name() string {
	return o.model.Condition() + "_observer"
}

// Setup implements engine.Component.
func (o *DiseaseObserver) Setup(b *engine.Builder) error {
	o.pop = b.Population
	var err error
	if o.group, err = b.Population.StringColumn(coverage.GroupColumn(o.vehicle)); err != nil {
		return err
	}

	o.states = make(map[string]bool)
	countMeasure := o.model.Condition() + "_counts"
	for _, state := range o.model.States() {
		o.states[state] = true
	}
	for _, year := range o.years {
		for _, sex := range sexes {
			for _, ag := range AgeGroups {
				for _, grp := range groups {
					for _, state := range o.model.States() {
						o.acc.Seed(groupedKey(state+"_person_time", year, sex, ag, o.vehicle, grp))
					}
					o.acc.Seed(groupedKey(countMeasure, year, sex, ag, o.vehicle, grp))
				}
			}
		}
	}

	b.RegisterListener(engine.TimeStepPrepare, o.onPrepare)
	b.RegisterListener(engine.CollectMetrics, o.onCollect)
	return nil
}

// onPrepare accrues person-time against the state each individual
// occupies entering the step.
func (o *DiseaseObserver) onPrepare(ev engine.Event) error {
	dt := engine.Years(ev.StepSize)
	year := ev.Time.Year()
	for _, id := range ev.Index {
		state := o.model.StateOf(id)
		if !o.states[state] {
			return fmt.Errorf("observer: id %d in unknown %s state %q", id, o.model.Condition(), state)
		}
		ag, err := AgeGroupOf(o.pop.Age(id))
		if err != nil {
			return err
		}
		key := groupedKey(state+"_person_time", year, o.pop.SexOf(id), ag, o.vehicle, o.group.Get(id))
		if err := o.acc.Add(key, dt); err != nil {
			return err
		}
	}
	return nil
}

// onCollect counts transitions into the with-condition state.
// Individuals who aged out of the modeled range mid-step are skipped;
// their person-time up to this step is already on the books.
func (o *DiseaseObserver) onCollect(ev engine.Event) error {
	condition := o.model.Condition()
	year := ev.Time.Year()
	for _, id := range ev.Index {
		if !o.pop.IsTracked(id) {
			continue
		}
		state := o.model.StateOf(id)
		if !o.states[state] {
			return fmt.Errorf("observer: id %d in unknown %s state %q", id, condition, state)
		}
		if state != condition || o.model.PreviousStateOf(id) == state {
			continue
		}
		ag, err := AgeGroupOf(o.pop.Age(id))
		if err != nil {
			return err
		}
		key := groupedKey(condition+"_counts", year, o.pop.SexOf(id), ag, o.vehicle, o.group.Get(id))
		if err := o.acc.Add(key, 1); err != nil {
			return err
		}
	}
	return nil
}

// DisabilitySource is any component reporting a per-individual
// disability weight.
type DisabilitySource interface {
	Condition() string
	DisabilityWeightOf(id int) (float64, error)
}

// DisabilityObserver accrues years lived with disability per condition,
// stratified by year, sex, and age group.
type DisabilityObserver struct {
	sources []DisabilitySource
	years   []int
	acc     *Accumulator

	pop *population.Table
}

// NewDisabilityObserver creates the observer over a fixed set of
// disability sources.
func NewDisabilityObserver(sources []DisabilitySource, years []int, acc *Accumulator) *DisabilityObserver {
	return &DisabilityObserver{sources: sources, years: years, acc: acc}
}

// Name implements engine.Component.
func (o *DisabilityObserver) Name() string { return "disability_observer" }

// Setup implements engine.Component.
func (o *DisabilityObserver) Setup(b *engine.Builder) error {
	o.pop = b.Population
	for _, src := range o.sources {
		for _, year := range o.years {
			for _, sex := range sexes {
				for _, ag := range AgeGroups {
					o.acc.Seed(strataKey("ylds_due_to_"+src.Condition(), year, sex, ag))
				}
			}
		}
	}
	b.RegisterListener(engine.TimeStepPrepare, o.onPrepare)
	return nil
}

func (o *DisabilityObserver) onPrepare(ev engine.Event) error {
	dt := engine.Years(ev.StepSize)
	year := ev.Time.Year()
	for _, src := range o.sources {
		for _, id := range ev.Index {
			dw, err := src.DisabilityWeightOf(id)
			if err != nil {
				return err
			}
			if dw == 0 {
				continue
			}
			ag, err := AgeGroupOf(o.pop.Age(id))
			if err != nil {
				return err
			}
			key := strataKey("ylds_due_to_"+src.Condition(), year, o.pop.SexOf(id), ag)
			if err := o.acc.Add(key, dw*dt); err != nil {
				return err
			}
		}
	}
	return nil
}

// BirthObserver counts live births and births with a congenital
// condition, stratified by year, sex, and the vehicle's fortification
// group.
type BirthObserver struct {
	model   disease.StateModel
	vehicle parameters.Vehicle
	years   []int
	acc     *Accumulator

	pop   *population.Table
	group *population.StringColumn
}

// NewBirthObserver creates the observer. model is the congenital
// condition assigned at birth.
func NewBirthObserver(model disease.StateModel, v parameters.Vehicle, years []int, acc *Accumulator) *BirthObserver {
	return &BirthObserver{model: model, vehicle: v, years: years, acc: acc}
}

// Name implements engine.Component.
func (o *BirthObserver) Name() string { return "birth_observer" }

// Setup implements engine.Component.
func (o *BirthObserver) Setup(b *engine.Builder) error {
	o.pop = b.Population
	var err error
	if o.group, err = b.Population.StringColumn(coverage.GroupColumn(o.vehicle)); err != nil {
		return err
	}
	born := "born_with_" + o.model.Condition()
	for _, year := range o.years {
		for _, sex := range sexes {
			for _, grp := range groups {
				o.acc.Seed(o.birthKey("live_births", year, sex, grp))
				o.acc.Seed(o.birthKey(born, year, sex, grp))
			}
		}
	}
	b.RegisterListener(engine.CollectMetrics, o.onCollect)
	return nil
}

func (o *BirthObserver) birthKey(measure string, year int, sex population.Sex, group string) string {
	return fmt.Sprintf("%s_in_%d_among_%s_%s_fortification_group_%s", measure, year, sex, o.vehicle, group)
}

// onCollect scans the whole live population rather than the step index:
// this step's newborns were created after the index snapshot.
func (o *BirthObserver) onCollect(ev engine.Event) error {
	year := ev.Time.Year()
	for _, id := range o.pop.Alive() {
		if !o.pop.Entrance(id).Equal(ev.Time) {
			continue
		}
		sex, grp := o.pop.SexOf(id), o.group.Get(id)
		if err := o.acc.Add(o.birthKey("live_births", year, sex, grp), 1); err != nil {
			return err
		}
		if o.model.StateOf(id) == o.model.Condition() {
			if err := o.acc.Add(o.birthKey("born_with_"+o.model.Condition(), year, sex, grp), 1); err != nil {
				return err
			}
		}
	}
	return nil
}

// Clinical cutoffs for the birth-weight statistics.
const (
	lowBirthWeightGrams = 2500.0
	pretermWeeks        = 37.0
)

// BirthWeightObserver reports running birth-weight statistics for
// births during the run: mean, standard deviation, and the proportions
// low birth weight and preterm, stratified by year and the iron
// fortification group.
type BirthWeightObserver struct {
	years []int
	acc   *Accumulator

	pop         *population.Table
	group       *population.StringColumn
	birthWeight *population.Float64Column
	gestation   *population.Float64Column
	stats       map[string]*runningStats
}

type runningStats struct {
	n       float64
	sum     float64
	sumSq   float64
	low     float64
	preterm float64
}

// NewBirthWeightObserver creates the observer.
func NewBirthWeightObserver(years []int, acc *Accumulator) *BirthWeightObserver {
	return &BirthWeightObserver{years: years, acc: acc, stats: make(map[string]*runningStats)}
}

// Name implements engine.Component.
func (o *BirthWeightObserver) Name() string { return "birth_weight_observer" }

// Setup implements engine.Component.
func (o *BirthWeightObserver) Setup(b *engine.Builder) error {
	o.pop = b.Population
	var err error
	if o.group, err = b.Population.StringColumn(coverage.GroupColumn(parameters.Iron)); err != nil {
		return err
	}
	if o.birthWeight, err = b.Population.Float64Column("birth_weight"); err != nil {
		return err
	}
	if o.gestation, err = b.Population.Float64Column("gestational_age"); err != nil {
		return err
	}
	for _, year := range o.years {
		for _, grp := range groups {
			for _, measure := range []string{
				"birth_weight_mean", "birth_weight_sd",
				"proportion_low_birth_weight", "proportion_preterm",
			} {
				o.acc.Seed(o.bwKey(measure, year, grp))
			}
		}
	}
	b.RegisterListener(engine.CollectMetrics, o.onCollect)
	return nil
}

func (o *BirthWeightObserver) bwKey(measure string, year int, group string) string {
	return fmt.Sprintf("%s_in_%d_%s_fortification_group_%s", measure, year, parameters.Iron, group)
}

func (o *BirthWeightObserver) onCollect(ev engine.Event) error {
	year := ev.Time.Year()
	for _, id := range o.pop.Alive() {
		if !o.pop.Entrance(id).Equal(ev.Time) {
			continue
		}
		grp := o.group.Get(id)
		cell := fmt.Sprintf("%d|%s", year, grp)
		rs, ok := o.stats[cell]
		if !ok {
			rs = &runningStats{}
			o.stats[cell] = rs
		}
		w := o.birthWeight.Get(id)
		rs.n++
		rs.sum += w
		rs.sumSq += w * w
		if w < lowBirthWeightGrams {
			rs.low++
		}
		if o.gestation.Get(id) < pretermWeeks {
			rs.preterm++
		}

		mean := rs.sum / rs.n
		var sd float64
		if rs.n > 1 {
			sd = math.Sqrt((rs.sumSq - rs.n*mean*mean) / (rs.n - 1))
		}
		if err := o.acc.Set(o.bwKey("birth_weight_mean", year, grp), mean); err != nil {
			return err
		}
		if err := o.acc.Set(o.bwKey("birth_weight_sd", year, grp), sd); err != nil {
			return err
		}
		if err := o.acc.Set(o.bwKey("proportion_low_birth_weight", year, grp), rs.low/rs.n); err != nil {
			return err
		}
		if err := o.acc.Set(o.bwKey("proportion_preterm", year, grp), rs.preterm/rs.n); err != nil {
			return err
		}
	}
	return nil
}

// PopulationObserver accrues total person-time by stratum and tracks
// the current population counts.
type PopulationObserver struct {
	years []int
	acc   *Accumulator

	pop *population.Table
}

// NewPopulationObserver creates the observer.
func NewPopulationObserver(years []int, acc *Accumulator) *PopulationObserver {
	return &PopulationObserver{years: years, acc: acc}
}

// Name implements engine.Component.
func (o *PopulationObserver) Name() string { return "population_observer" }

// Setup implements engine.Component.
func (o *PopulationObserver) Setup(b *engine.Builder) error {
	o.pop = b.Population
	for _, year := range o.years {
		for _, sex := range sexes {
			for _, ag := range AgeGroups {
				o.acc.Seed(strataKey("person_time", year, sex, ag))
			}
		}
	}
	o.acc.Seed("total_population_alive")
	o.acc.Seed("total_population_dead")
	b.RegisterListener(engine.TimeStepPrepare, o.onPrepare)
	b.RegisterListener(engine.CollectMetrics, o.onCollect)
	return nil
}

func (o *PopulationObserver) onPrepare(ev engine.Event) error {
	dt := engine.Years(ev.StepSize)
	year := ev.Time.Year()
	for _, id := range ev.Index {
		ag, err := AgeGroupOf(o.pop.Age(id))
		if err != nil {
			return err
		}
		if err := o.acc.Add(strataKey("person_time", year, o.pop.SexOf(id), ag), dt); err != nil {
			return err
		}
	}
	return nil
}

func (o *PopulationObserver) onCollect(ev engine.Event) error {
	if err := o.acc.Set("total_population_alive", float64(len(o.pop.Alive()))); err != nil {
		return err
	}
	return o.acc.Set("total_population_dead", float64(len(o.pop.Dead())))
}
