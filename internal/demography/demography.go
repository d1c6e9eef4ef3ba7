// Package demography owns the population's vital dynamics: the initial
// under-five cohort, sex assignment, birth weight and gestational age
// at birth, aging, crude-birth-rate births during the run, and exit
// from the modeled age range. It carries no mortality; the simulated
// conditions here disable rather than kill.
package demography

import (
	"fmt"
	"math"

	"github.com/fortisim/fortisim/internal/distribution"
	"github.com/fortisim/fortisim/internal/engine"
	"github.com/fortisim/fortisim/internal/population"
	"github.com/fortisim/fortisim/internal/randomness"
)

// maxAge is the exit bound of the modeled age range, in years.
const maxAge = 5.0

// Config sizes the population and its birth characteristics.
type Config struct {
	// CohortSize is the number of individuals alive at the start.
	CohortSize int
	// CrudeBirthRate is births per 1000 population per year.
	CrudeBirthRate float64
	// Birth weight in grams at birth.
	BirthWeightMean float64
	BirthWeightSD   float64
	// Gestational age in weeks at birth.
	GestationMean float64
	GestationSD   float64
}

// Component drives the population dynamics. It must be registered
// before any component whose initializer reads sex or birth columns.
type Component struct {
	cfg Config

	clock       *engine.Clock
	pop         *population.Table
	stream      *randomness.Stream
	birthWeight *population.Float64Column
	gestation   *population.Float64Column
	// birthDebt carries the fractional birth expectation across steps
	// so small populations still average out to the configured rate.
	birthDebt float64
}

// New creates the demography component.
func New(cfg Config) *Component {
	return &Component{cfg: cfg}
}

// Name implements engine.Component.
func (c *Component) Name() string { return "demography" }

// Setup implements engine.Component.
func (c *Component) Setup(b *engine.Builder) error {
	if c.cfg.CohortSize <= 0 {
		return fmt.Errorf("demography: cohort size must be positive, got %d", c.cfg.CohortSize)
	}
	c.clock = b.Clock
	c.pop = b.Population
	c.stream = b.Randomness.Register("demography")

	var err error
	if c.birthWeight, err = b.Population.NewFloat64Column("birth_weight", 0); err != nil {
		return err
	}
	if c.gestation, err = b.Population.NewFloat64Column("gestational_age", 0); err != nil {
		return err
	}

	bw := distribution.Normal{Mean: c.cfg.BirthWeightMean, SD: c.cfg.BirthWeightSD}
	ga := distribution.Normal{Mean: c.cfg.GestationMean, SD: c.cfg.GestationSD}
	b.Population.RegisterInitializer(func(ids []int) error {
		for _, id := range ids {
			if c.stream.DrawOne(id, "sex") < 0.5 {
				b.Population.SetSex(id, population.Female)
			} else {
				b.Population.SetSex(id, population.Male)
			}
			c.birthWeight.Set(id, bw.Ppf(c.stream.DrawOne(id, "birth_weight")))
			c.gestation.Set(id, ga.Ppf(c.stream.DrawOne(id, "gestational_age")))
		}
		return nil
	})

	b.RegisterListener(engine.TimeStep, c.onTimeStep)
	return nil
}

// Bootstrap implements engine.Bootstrapper: it creates the initial
// cohort with ages uniform over the modeled range.
func (c *Component) Bootstrap() error {
	if c.pop.Len() != 0 {
		return fmt.Errorf("demography: population already has %d members", c.pop.Len())
	}
	ages := make([]float64, c.cfg.CohortSize)
	for i := range ages {
		ages[i] = maxAge * c.stream.DrawOne(i, "initial_age")
	}
	_, err := c.pop.Create(c.cfg.CohortSize, c.clock.Now(), ages)
	return err
}

func (c *Component) onTimeStep(ev engine.Event) error {
	dt := engine.Years(ev.StepSize)
	c.pop.AdvanceAge(ev.Index, dt)
	for _, id := range ev.Index {
		if c.pop.Age(id) >= maxAge {
			c.pop.Untrack(id, ev.Time)
		}
	}

	expected := c.cfg.CrudeBirthRate / 1000 * float64(len(ev.Index)) * dt
	c.birthDebt += expected
	births := int(math.Floor(c.birthDebt))
	c.birthDebt -= float64(births)
	if births > 0 {
		if _, err := c.pop.Create(births, ev.Time, nil); err != nil {
			return err
		}
	}
	return nil
}
