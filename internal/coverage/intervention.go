package coverage

import (
	"fmt"

	"github.com/fortisim/fortisim/internal/engine"
	"github.com/fortisim/fortisim/internal/parameters"
)

// Intervention raises one vehicle's coverage pipelines along a scale-up
// ramp. It registers modifiers only; the coverage component it rides on
// stays untouched, so scenarios differ by exactly this component's
// presence.
type Intervention struct {
	vehicle parameters.Vehicle
	scaleUp ScaleUp
}

// NewIntervention creates the scale-up intervention for a vehicle.
func NewIntervention(v parameters.Vehicle, s ScaleUp) *Intervention {
	return &Intervention{vehicle: v, scaleUp: s}
}

// Name implements engine.Component.
func (iv *Intervention) Name() string {
	return fmt.Sprintf("%s_fortification_intervention", iv.vehicle)
}

// Setup implements engine.Component.
func (iv *Intervention) Setup(b *engine.Builder) error {
	clock := b.Clock
	b.Values.RegisterModifier(LevelValue(iv.vehicle), func(ids []int, vals []float64) error {
		cov := iv.scaleUp.CoverageAt(clock.Now())
		for i := range vals {
			vals[i] = cov
		}
		return nil
	})
	b.Values.RegisterModifier(EffectiveLevelValue(iv.vehicle), func(ids []int, vals []float64) error {
		cov := iv.scaleUp.EffectiveCoverageAt(clock.Now())
		for i := range vals {
			vals[i] = cov
		}
		return nil
	})
	return nil
}
