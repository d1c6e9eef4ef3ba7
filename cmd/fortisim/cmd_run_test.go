package main

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/fortisim/fortisim/internal/engine"
	"github.com/fortisim/fortisim/internal/results"
	"github.com/fortisim/fortisim/internal/scenario"
)

func testConfig(t *testing.T) scenario.Config {
	t.Helper()
	cfg := scenario.Default()
	cfg.Location = "Nigeria"
	cfg.PopulationSize = 300
	cfg.StartYear = 2020
	cfg.EndYear = 2022
	cfg.InterventionStartYear = 2021
	cfg.Output = filepath.Join(t.TempDir(), "results.db")
	cfg.LogLevel = "error"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	return cfg
}

func TestBuildComponentsPerScenario(t *testing.T) {
	cfg := testConfig(t)
	baseline, err := buildComponents(cfg)
	if err != nil {
		t.Fatalf("buildComponents(baseline): %v", err)
	}
	cfg.Scenario = scenario.Fortification
	fortified, err := buildComponents(cfg)
	if err != nil {
		t.Fatalf("buildComponents(fortification): %v", err)
	}
	// The scenarios differ by exactly the three coverage interventions.
	if len(fortified) != len(baseline)+3 {
		t.Errorf("component counts: baseline %d, fortification %d", len(baseline), len(fortified))
	}

	names := make(map[string]bool)
	for _, c := range fortified {
		if names[c.Name()] {
			t.Errorf("duplicate component name %q", c.Name())
		}
		names[c.Name()] = true
	}
}

func TestScenariosShareBaselineParameters(t *testing.T) {
	cfg := testConfig(t)
	run := func(scen string) *engine.Engine {
		cfg := cfg
		cfg.Scenario = scen
		components, err := buildComponents(cfg)
		if err != nil {
			t.Fatalf("buildComponents: %v", err)
		}
		e, err := engine.New(engine.Options{
			Start:      cfg.Start(),
			End:        cfg.End(),
			Step:       cfg.Step(),
			Seed:       cfg.Seed,
			Draw:       cfg.Draw,
			Components: components,
		})
		if err != nil {
			t.Fatalf("engine.New: %v", err)
		}
		return e
	}
	a := run(scenario.Baseline).Builder().Population
	b := run(scenario.Fortification).Builder().Population
	if a.Len() != b.Len() {
		t.Fatalf("cohort sizes differ: %d vs %d", a.Len(), b.Len())
	}
	// Common random numbers: the cohorts are individual-for-individual
	// identical across scenarios.
	for id := 0; id < a.Len(); id++ {
		if a.Age(id) != b.Age(id) || a.SexOf(id) != b.SexOf(id) {
			t.Fatalf("cohorts diverge at id %d before any intervention applies", id)
		}
	}
}

func TestRunScenarioWritesResults(t *testing.T) {
	cfg := testConfig(t)
	cfg.Scenario = scenario.Fortification
	if err := runScenario(context.Background(), cfg); err != nil {
		t.Fatalf("runScenario: %v", err)
	}

	store, err := results.Open(cfg.Output)
	if err != nil {
		t.Fatalf("results.Open: %v", err)
	}
	defer store.Close()
	runs, err := store.ListRuns(context.Background())
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("stored %d runs, want 1", len(runs))
	}
	if runs[0].Scenario != scenario.Fortification || runs[0].Location != "Nigeria" {
		t.Errorf("stored run = %+v", runs[0])
	}
	_, metrics, err := store.ReadRun(context.Background(), runs[0].ID)
	if err != nil {
		t.Fatalf("ReadRun: %v", err)
	}
	if len(metrics) == 0 {
		t.Fatal("run stored no metrics")
	}
	var personTime float64
	for k, v := range metrics {
		if len(k) > 12 && k[:12] == "person_time_" {
			personTime += v
		}
	}
	if personTime <= 0 {
		t.Error("no person-time accumulated")
	}
}
