package effect

import (
	"github.com/fortisim/fortisim/internal/anemia"
	"github.com/fortisim/fortisim/internal/coverage"
	"github.com/fortisim/fortisim/internal/distribution"
	"github.com/fortisim/fortisim/internal/engine"
	"github.com/fortisim/fortisim/internal/parameters"
	"github.com/fortisim/fortisim/internal/population"
)

// ConsumptionColumn holds daily fortifiable-flour consumption in grams.
const ConsumptionColumn = "flour_consumption"

// ReferenceConsumption is the daily grams the iron effect sizes were
// estimated at; individual effects scale linearly with consumption
// relative to it.
const ReferenceConsumption = 100.0

// Consumption assigns each individual a fixed daily flour consumption
// from an empirical quantile table.
type Consumption struct {
	dist distribution.Distribution
	col  *population.Float64Column
}

// NewConsumption creates the consumption component.
func NewConsumption(dist distribution.Distribution) *Consumption {
	return &Consumption{dist: dist}
}

// Name implements engine.Component.
func (c *Consumption) Name() string { return ConsumptionColumn }

// Setup implements engine.Component.
func (c *Consumption) Setup(b *engine.Builder) error {
	stream := b.Randomness.Register(ConsumptionColumn)
	var err error
	if c.col, err = b.Population.NewFloat64Column(ConsumptionColumn, 0); err != nil {
		return err
	}
	b.Population.RegisterInitializer(func(ids []int) error {
		for _, id := range ids {
			c.col.Set(id, c.dist.Ppf(stream.DrawOne(id, "propensity")))
		}
		return nil
	})
	return nil
}

// Lag boundaries: the iron effect needs about half a year of
// consumption to saturate, and consumers younger than 1.5 years ramp
// in with age as complementary feeding displaces milk.
const (
	lagAgeCut      = 1.5
	lagDurationCut = 0.5
)

// lagFraction is the share of the full iron effect realized for a
// consumer who started fortified flour at startAge and has consumed it
// for duration (both in years).
func lagFraction(startAge, duration float64) float64 {
	const ageCut, durCut = lagAgeCut, lagDurationCut
	switch {
	case startAge >= ageCut && duration >= durCut:
		return 1
	case startAge >= ageCut:
		return duration / durCut
	case duration >= durCut:
		f := (startAge + duration) / 2.0
		if f > 1 {
			f = 1
		}
		return f
	default:
		return (duration / durCut) * (startAge + durCut) / 2.0
	}
}

// HemoglobinShift raises hemoglobin among iron-responsive individuals
// consuming fortified flour. The population hemoglobin data already
// includes the baseline fortification effect, so the modifier first
// removes the population-mean baseline shift and then adds each
// individual's own.
type HemoglobinShift struct {
	shift            float64
	baselineCoverage float64
	responsive       func(id int) bool

	clock       *engine.Clock
	pop         *population.Table
	consumption *population.Float64Column
	start       *population.TimeColumn
}

// NewHemoglobinShift creates the iron hemoglobin effect. shift is the
// g/L gain at reference consumption; responsive gates individuals whose
// anemia responds to iron.
func NewHemoglobinShift(shift, baselineCoverage float64, responsive func(id int) bool) *HemoglobinShift {
	return &HemoglobinShift{shift: shift, baselineCoverage: baselineCoverage, responsive: responsive}
}

// Name implements engine.Component.
func (e *HemoglobinShift) Name() string { return "effect_of_iron_fortification_on_hemoglobin" }

// Setup implements engine.Component. The consumption, hemoglobin, and
// iron coverage components must be registered first.
func (e *HemoglobinShift) Setup(b *engine.Builder) error {
	e.clock = b.Clock
	e.pop = b.Population

	var err error
	if e.consumption, err = b.Population.Float64Column(ConsumptionColumn); err != nil {
		return err
	}
	if e.start, err = b.Population.TimeColumn(coverage.StartColumn(parameters.Iron)); err != nil {
		return err
	}
	b.Values.RegisterModifier(anemia.ExposureValue, e.applyShift)
	return nil
}

func (e *HemoglobinShift) applyShift(ids []int, vals []float64) error {
	now := e.clock.Now()
	for i, id := range ids {
		if !e.responsive(id) {
			continue
		}
		// Remove the baseline fortification effect embedded in the
		// input hemoglobin distribution.
		vals[i] -= e.baselineCoverage * e.shift
		stamp, ok := e.start.Get(id)
		if !ok {
			continue
		}
		duration := engine.Years(now.Sub(stamp))
		age := e.pop.Age(id)
		startAge := age - duration
		if startAge < 0 {
			startAge = 0
		}
		dose := e.consumption.Get(id) / ReferenceConsumption
		vals[i] += e.shift * dose * lagFraction(startAge, duration)
	}
	return nil
}

// BirthWeightShift raises birth weight for newborns whose mother
// consumed iron-fortified flour during pregnancy. It acts once, at
// entry; birth weight never changes afterward. Like the hemoglobin
// shift, the input birth-weight distribution already reflects baseline
// fortification, so the population-mean baseline shift is removed from
// every newborn before the covered gain is added.
type BirthWeightShift struct {
	shift            float64
	baselineCoverage float64
}

// NewBirthWeightShift creates the iron birth-weight effect. shift is
// grams at reference consumption; baselineCoverage is the pre-existing
// coverage embedded in the input birth-weight distribution.
func NewBirthWeightShift(shift, baselineCoverage float64) *BirthWeightShift {
	return &BirthWeightShift{shift: shift, baselineCoverage: baselineCoverage}
}

// Name implements engine.Component.
func (e *BirthWeightShift) Name() string { return "effect_of_iron_fortification_on_birth_weight" }

// Setup implements engine.Component. The demography, consumption, and
// iron coverage components must be registered first.
func (e *BirthWeightShift) Setup(b *engine.Builder) error {
	birthWeight, err := b.Population.Float64Column("birth_weight")
	if err != nil {
		return err
	}
	gestation, err := b.Population.Float64Column("gestational_age")
	if err != nil {
		return err
	}
	consumption, err := b.Population.Float64Column(ConsumptionColumn)
	if err != nil {
		return err
	}
	covered, err := b.Values.Value(coverage.EffectivelyCoveredValue(parameters.Iron))
	if err != nil {
		return err
	}
	b.Population.RegisterInitializer(func(ids []int) error {
		coveredVals, err := covered.Get(ids)
		if err != nil {
			return err
		}
		for i, id := range ids {
			// Only births during the run carry a maternal exposure
			// window inside the model.
			if b.Population.Age(id) > 0 {
				continue
			}
			dose := consumption.Get(id) / ReferenceConsumption
			// Remove the baseline fortification effect embedded in
			// the input birth-weight distribution.
			birthWeight.Add(id, -e.baselineCoverage*e.shift*dose)
			if coveredVals[i] == 0 {
				continue
			}
			// The mother is the consumer: an adult starter whose
			// exposure window is the pregnancy, so only a very
			// preterm birth cuts the effect short.
			pregnancy := gestation.Get(id) * 7 / 365.25
			birthWeight.Add(id, e.shift*dose*lagFraction(lagAgeCut, pregnancy))
		}
		return nil
	})
	return nil
}
