// Package engine provides the simulation framework: the component
// registry, the step-synchronous event loop, the simulation clock, the
// value pipeline registry, and interpolated lookup tables. Components are
// registered in an explicit ordered list; each step the engine invokes
// the prepare, time-step, and collect-metrics listeners in registration
// order, so the whole step is atomic and deterministic.
package engine

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"time"

	"github.com/fortisim/fortisim/internal/population"
	"github.com/fortisim/fortisim/internal/randomness"
)

// Component is the unit of simulation behavior. Setup wires the
// component into the builder: creating columns, registering streams,
// value producers, listeners, and initializers.
type Component interface {
	Name() string
	Setup(b *Builder) error
}

// Parent is implemented by components that own sub-components; the
// engine sets up the parent first, then its children, depth-first.
type Parent interface {
	SubComponents() []Component
}

// Bootstrapper is implemented by components that create the initial
// cohort. Bootstrap runs once, after every component's Setup.
type Bootstrapper interface {
	Bootstrap() error
}

// Phase names a listener slot within a step.
type Phase string

const (
	// TimeStepPrepare runs before any state mutation; observers read
	// person-time and snapshot previous states here.
	TimeStepPrepare Phase = "time_step__prepare"
	// TimeStep is the main state-update phase.
	TimeStep Phase = "time_step"
	// CollectMetrics runs after state updates; observers tabulate
	// transition counts and cross-sectional statistics here.
	CollectMetrics Phase = "collect_metrics"
)

// Event carries the step context to listeners.
type Event struct {
	Time     time.Time
	StepSize time.Duration
	Index    []int // live, tracked individuals
}

// Listener handles one phase of one step.
type Listener func(ev Event) error

// Clock tracks simulation time. It advances only after all phases of a
// step complete.
type Clock struct {
	now  time.Time
	step time.Duration
}

// Now returns the current simulation time.
func (c *Clock) Now() time.Time { return c.now }

// StepSize returns the duration of one step.
func (c *Clock) StepSize() time.Duration { return c.step }

// Year returns the current simulation calendar year.
func (c *Clock) Year() int { return c.now.Year() }

func (c *Clock) advance() { c.now = c.now.Add(c.step) }

// Years converts a duration to fractional years.
func Years(d time.Duration) float64 {
	return d.Hours() / (24 * 365.25)
}

// Builder is handed to each component's Setup. It owns the shared
// simulation services.
type Builder struct {
	Logger     *slog.Logger
	Clock      *Clock
	Population *population.Table
	Randomness *randomness.Registry
	Values     *Values

	listeners map[Phase][]Listener
}

// RegisterListener subscribes a listener to a step phase. Listeners run
// in registration order.
func (b *Builder) RegisterListener(phase Phase, l Listener) {
	b.listeners[phase] = append(b.listeners[phase], l)
}

// Options configures an engine run.
type Options struct {
	Start      time.Time
	End        time.Time
	Step       time.Duration
	Seed       uint64
	Draw       int
	Logger     *slog.Logger
	Components []Component
}

// Engine drives the step loop over a fixed component list.
type Engine struct {
	b     *Builder
	end   time.Time
	steps int
}

// New builds the shared services, sets up every component depth-first in
// registration order, and runs bootstrappers. Setup failures are
// configuration errors and abort construction.
func New(opts Options) (*Engine, error) {
	if !opts.End.After(opts.Start) {
		return nil, fmt.Errorf("engine: end %v is not after start %v", opts.End, opts.Start)
	}
	if opts.Step <= 0 {
		return nil, fmt.Errorf("engine: step size must be positive, got %v", opts.Step)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.Level(math.MaxInt)}))
	}

	b := &Builder{
		Logger:     logger,
		Clock:      &Clock{now: opts.Start, step: opts.Step},
		Population: population.NewTable(),
		Randomness: randomness.NewRegistry(opts.Seed, opts.Draw),
		Values:     NewValues(),
		listeners:  make(map[Phase][]Listener),
	}

	var setup func(c Component) error
	setup = func(c Component) error {
		if err := c.Setup(b); err != nil {
			return fmt.Errorf("engine: setup of %q: %w", c.Name(), err)
		}
		if p, ok := c.(Parent); ok {
			for _, sub := range p.SubComponents() {
				if err := setup(sub); err != nil {
					return err
				}
			}
		}
		return nil
	}
	for _, c := range opts.Components {
		if err := setup(c); err != nil {
			return nil, err
		}
	}

	for _, c := range opts.Components {
		if boot, ok := c.(Bootstrapper); ok {
			if err := boot.Bootstrap(); err != nil {
				return nil, fmt.Errorf("engine: bootstrap of %q: %w", c.Name(), err)
			}
		}
	}

	return &Engine{b: b, end: opts.End}, nil
}

// Builder exposes the shared services, for observers that need to read
// results after a run.
func (e *Engine) Builder() *Builder { return e.b }

// Step runs one atomic simulation step: prepare, time-step, and
// collect-metrics listeners in order, then the clock advance. Any
// listener error aborts the step.
func (e *Engine) Step() error {
	ev := Event{
		Time:     e.b.Clock.Now(),
		StepSize: e.b.Clock.StepSize(),
		Index:    e.b.Population.Alive(),
	}
	for _, phase := range []Phase{TimeStepPrepare, TimeStep, CollectMetrics} {
		for _, l := range e.b.listeners[phase] {
			if err := l(ev); err != nil {
				return fmt.Errorf("engine: step at %v, phase %s: %w", ev.Time, phase, err)
			}
		}
		// State may have changed mid-step; later phases see the
		// same index, matching the whole-step-atomic contract.
	}
	e.b.Clock.advance()
	e.steps++
	return nil
}

// Run advances the simulation until the end time. Cancellation is
// honored between steps only; a step never suspends mid-flight.
func (e *Engine) Run(ctx context.Context) error {
	for e.b.Clock.Now().Before(e.end) {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := e.Step(); err != nil {
			return err
		}
	}
	e.b.Logger.Info("simulation complete",
		"steps", e.steps,
		"population", e.b.Population.Len(),
		"alive", len(e.b.Population.Alive()))
	return nil
}

// Steps returns the number of completed steps.
func (e *Engine) Steps() int { return e.steps }
