// Package scenario provides run configuration loading. A scenario file
// is YAML; every field that matters to reproducibility is explicit, so
// a stored config plus a seed and draw fully determines a run.
package scenario

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/fortisim/fortisim/internal/parameters"
)

// Scenario names.
const (
	Baseline      = "baseline"
	Fortification = "fortification"
)

// Config describes one simulation run.
type Config struct {
	// Location selects the parameter set: "Ethiopia", "India", or "Nigeria".
	Location string `yaml:"location"`

	// Scenario is "baseline" or "fortification".
	Scenario string `yaml:"scenario"`

	// Seed and Draw pin the random streams and the input parameter draw.
	Seed uint64 `yaml:"seed"`
	Draw int    `yaml:"draw"`

	// PopulationSize is the initial under-five cohort.
	PopulationSize int `yaml:"population_size"`

	// StartYear and EndYear bound the simulated window; both runs start
	// on January 1.
	StartYear int `yaml:"start_year"`
	EndYear   int `yaml:"end_year"`

	// StepDays is the time-step length in days.
	StepDays int `yaml:"step_days"`

	// InterventionStartYear is when fortification scale-up begins in
	// the fortification scenario.
	InterventionStartYear int `yaml:"intervention_start_year"`

	// CrudeBirthRate is births per 1000 population per year.
	CrudeBirthRate float64 `yaml:"crude_birth_rate"`

	// Output is the results database path.
	Output string `yaml:"output"`

	// LogLevel is "debug", "info", "warn", or "error".
	LogLevel string `yaml:"log_level"`
}

// Default returns a runnable configuration with every field populated;
// file values override it.
func Default() Config {
	return Config{
		Location:              "India",
		Scenario:              Baseline,
		Seed:                  8675309,
		Draw:                  0,
		PopulationSize:        10000,
		StartYear:             2020,
		EndYear:               2025,
		StepDays:              28,
		InterventionStartYear: 2021,
		CrudeBirthRate:        35,
		Output:                "fortisim.db",
		LogLevel:              "info",
	}
}

// Load reads a YAML scenario file over the defaults and validates it.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("scenario: reading %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("scenario: parsing %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the configuration, failing fast on the first error.
func (c Config) Validate() error {
	if _, err := parameters.ForLocation(c.Location); err != nil {
		return err
	}
	switch c.Scenario {
	case Baseline, Fortification:
	default:
		return fmt.Errorf("scenario: unknown scenario %q", c.Scenario)
	}
	if c.PopulationSize <= 0 {
		return fmt.Errorf("scenario: population size must be positive, got %d", c.PopulationSize)
	}
	if c.EndYear <= c.StartYear {
		return fmt.Errorf("scenario: end year %d is not after start year %d", c.EndYear, c.StartYear)
	}
	if c.StepDays <= 0 {
		return fmt.Errorf("scenario: step days must be positive, got %d", c.StepDays)
	}
	if c.InterventionStartYear < c.StartYear || c.InterventionStartYear > c.EndYear {
		return fmt.Errorf("scenario: intervention start year %d outside run window %d-%d",
			c.InterventionStartYear, c.StartYear, c.EndYear)
	}
	if c.CrudeBirthRate < 0 {
		return fmt.Errorf("scenario: crude birth rate must not be negative, got %v", c.CrudeBirthRate)
	}
	if c.Draw < 0 {
		return fmt.Errorf("scenario: draw must not be negative, got %d", c.Draw)
	}
	return nil
}

// Start returns the simulation start time.
func (c Config) Start() time.Time {
	return time.Date(c.StartYear, time.January, 1, 0, 0, 0, 0, time.UTC)
}

// End returns the simulation end time.
func (c Config) End() time.Time {
	return time.Date(c.EndYear, time.January, 1, 0, 0, 0, 0, time.UTC)
}

// InterventionStart returns when fortification scale-up begins.
func (c Config) InterventionStart() time.Time {
	return time.Date(c.InterventionStartYear, time.January, 1, 0, 0, 0, 0, time.UTC)
}

// Step returns the time-step duration.
func (c Config) Step() time.Duration {
	return time.Duration(c.StepDays) * 24 * time.Hour
}

// Years lists every calendar year the run touches.
func (c Config) Years() []int {
	years := make([]int, 0, c.EndYear-c.StartYear+1)
	for y := c.StartYear; y <= c.EndYear; y++ {
		years = append(years, y)
	}
	return years
}
