package coverage

import (
	"fmt"
	"time"

	"github.com/fortisim/fortisim/internal/engine"
	"github.com/fortisim/fortisim/internal/parameters"
	"github.com/fortisim/fortisim/internal/population"
)

// Fortification group labels for the stratified observers.
const (
	GroupCovered   = "covered"
	GroupUncovered = "uncovered"
)

// CoveredAtBaseline is the sentinel coverage-start stamp for
// individuals already covered when the simulation begins; their true
// start predates the simulated window.
var CoveredAtBaseline = time.Date(1990, time.January, 1, 0, 0, 0, 0, time.UTC)

// PropensityColumn names the per-vehicle coverage propensity column.
func PropensityColumn(v parameters.Vehicle) string {
	return fmt.Sprintf("%s_fortification_propensity", v)
}

// StartColumn names the per-vehicle coverage-start timestamp column.
func StartColumn(v parameters.Vehicle) string {
	return fmt.Sprintf("%s_coverage_start", v)
}

// GroupColumn names the per-vehicle fortification group column.
func GroupColumn(v parameters.Vehicle) string {
	return fmt.Sprintf("%s_fortification_group", v)
}

// LevelValue names the vehicle's population coverage pipeline.
func LevelValue(v parameters.Vehicle) string {
	return fmt.Sprintf("%s.coverage_level", v)
}

// EffectiveLevelValue names the vehicle's effective coverage pipeline.
func EffectiveLevelValue(v parameters.Vehicle) string {
	return fmt.Sprintf("%s.effective_coverage_level", v)
}

// EffectivelyCoveredValue names the 0/1 per-individual pipeline
// reporting whether the vehicle's effect has reached the individual.
func EffectivelyCoveredValue(v parameters.Vehicle) string {
	return fmt.Sprintf("%s.effectively_covered", v)
}

// Component tracks one vehicle's coverage across the population. It
// produces the coverage pipelines at the sampled baseline level;
// scenario interventions raise them by registering modifiers, so this
// component is identical across scenarios.
type Component struct {
	vehicle  parameters.Vehicle
	baseline float64
	// fixedAtBirth pins an individual's fortification group at entry;
	// used for vehicles whose effect acts before birth, where later
	// coverage changes cannot reclassify the individual.
	fixedAtBirth bool

	clock      *engine.Clock
	pop        *population.Table
	propensity *population.Float64Column
	start      *population.TimeColumn
	group      *population.StringColumn
	level      *engine.Value
	effective  *engine.Value
}

// New creates the coverage component for one vehicle at its sampled
// baseline coverage.
func New(v parameters.Vehicle, baseline float64, fixedAtBirth bool) *Component {
	return &Component{vehicle: v, baseline: baseline, fixedAtBirth: fixedAtBirth}
}

// Name implements engine.Component.
func (c *Component) Name() string {
	return fmt.Sprintf("%s_fortification_coverage", c.vehicle)
}

// Setup implements engine.Component.
func (c *Component) Setup(b *engine.Builder) error {
	c.clock = b.Clock
	c.pop = b.Population
	stream := b.Randomness.Register(c.Name())

	var err error
	if c.propensity, err = b.Population.NewFloat64Column(PropensityColumn(c.vehicle), 0); err != nil {
		return err
	}
	if c.start, err = b.Population.NewTimeColumn(StartColumn(c.vehicle)); err != nil {
		return err
	}
	if c.group, err = b.Population.NewStringColumn(GroupColumn(c.vehicle), GroupUncovered); err != nil {
		return err
	}

	if c.level, err = b.Values.RegisterProducer(LevelValue(c.vehicle), c.levelSource); err != nil {
		return err
	}
	if c.effective, err = b.Values.RegisterProducer(EffectiveLevelValue(c.vehicle), c.effectiveSource); err != nil {
		return err
	}
	if _, err = b.Values.RegisterProducer(EffectivelyCoveredValue(c.vehicle), c.effectivelyCovered); err != nil {
		return err
	}

	b.Population.RegisterInitializer(func(ids []int) error {
		for _, id := range ids {
			c.propensity.Set(id, stream.DrawOne(id, "propensity"))
		}
		levels, err := c.level.Get(ids)
		if err != nil {
			return err
		}
		for i, id := range ids {
			if c.propensity.Get(id) >= levels[i] {
				continue
			}
			c.group.Set(id, GroupCovered)
			// A starting age of zero means a birth during the run;
			// anyone older was covered before the window opened.
			if b.Population.Age(id) == 0 {
				c.start.Set(id, b.Clock.Now())
			} else {
				c.start.Set(id, CoveredAtBaseline)
			}
		}
		return nil
	})

	b.RegisterListener(engine.TimeStep, c.onTimeStep)
	return nil
}

func (c *Component) levelSource(ids []int) ([]float64, error) {
	vals := make([]float64, len(ids))
	for i := range vals {
		vals[i] = c.baseline
	}
	return vals, nil
}

func (c *Component) effectiveSource(ids []int) ([]float64, error) {
	return c.levelSource(ids)
}

func (c *Component) effectivelyCovered(ids []int) ([]float64, error) {
	levels, err := c.effective.Get(ids)
	if err != nil {
		return nil, err
	}
	vals := make([]float64, len(ids))
	for i, id := range ids {
		if c.propensity.Get(id) < levels[i] {
			vals[i] = 1
		}
	}
	return vals, nil
}

// onTimeStep stamps a coverage start for individuals whose propensity
// the rising coverage level has overtaken. Group membership follows,
// unless the group was fixed at entry.
func (c *Component) onTimeStep(ev engine.Event) error {
	levels, err := c.level.Get(ev.Index)
	if err != nil {
		return err
	}
	for i, id := range ev.Index {
		if c.start.Valid(id) || c.propensity.Get(id) >= levels[i] {
			continue
		}
		c.start.Set(id, ev.Time)
		if !c.fixedAtBirth {
			c.group.Set(id, GroupCovered)
		}
	}
	return nil
}
