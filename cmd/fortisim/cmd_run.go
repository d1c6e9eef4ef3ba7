package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/fortisim/fortisim/internal/anemia"
	"github.com/fortisim/fortisim/internal/coverage"
	"github.com/fortisim/fortisim/internal/demography"
	"github.com/fortisim/fortisim/internal/disease"
	"github.com/fortisim/fortisim/internal/effect"
	"github.com/fortisim/fortisim/internal/engine"
	"github.com/fortisim/fortisim/internal/logging"
	"github.com/fortisim/fortisim/internal/observer"
	"github.com/fortisim/fortisim/internal/parameters"
	"github.com/fortisim/fortisim/internal/randomness"
	"github.com/fortisim/fortisim/internal/results"
	"github.com/fortisim/fortisim/internal/scenario"
)

func newRunCmd() *cobra.Command {
	var configPath string
	cfg := scenario.Default()

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one simulation scenario",
		Long: `Run one scenario for one (location, seed, draw) triple and write the
stratified metrics to the results database. Comparing scenarios means
running this twice with identical seed and draw and differing only in
--scenario.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if configPath != "" {
				loaded, err := scenario.Load(configPath)
				if err != nil {
					return err
				}
				cfg = loaded
			}
			if err := applyFlagOverrides(cmd, &cfg); err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runScenario(ctx, cfg)
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "Scenario YAML file")
	cmd.Flags().StringVar(&cfg.Location, "location", cfg.Location, "Modeled location")
	cmd.Flags().StringVar(&cfg.Scenario, "scenario", cfg.Scenario, "baseline or fortification")
	cmd.Flags().Uint64Var(&cfg.Seed, "seed", cfg.Seed, "Random seed")
	cmd.Flags().IntVar(&cfg.Draw, "draw", cfg.Draw, "Input parameter draw")
	cmd.Flags().IntVar(&cfg.PopulationSize, "population", cfg.PopulationSize, "Initial cohort size")
	cmd.Flags().StringVar(&cfg.Output, "output", cfg.Output, "Results database path")
	return cmd
}

// applyFlagOverrides lets explicit flags win over the config file.
func applyFlagOverrides(cmd *cobra.Command, cfg *scenario.Config) error {
	var err error
	flagSetters := map[string]func() error{
		"location": func() error { cfg.Location, err = cmd.Flags().GetString("location"); return err },
		"scenario": func() error { cfg.Scenario, err = cmd.Flags().GetString("scenario"); return err },
		"seed":     func() error { cfg.Seed, err = cmd.Flags().GetUint64("seed"); return err },
		"draw":     func() error { cfg.Draw, err = cmd.Flags().GetInt("draw"); return err },
		"population": func() error {
			cfg.PopulationSize, err = cmd.Flags().GetInt("population")
			return err
		},
		"output": func() error { cfg.Output, err = cmd.Flags().GetString("output"); return err },
	}
	for name, set := range flagSetters {
		if cmd.Flags().Changed(name) {
			if err := set(); err != nil {
				return err
			}
		}
	}
	return nil
}

func runScenario(ctx context.Context, cfg scenario.Config) error {
	logger := logging.NewLogger(cfg.LogLevel, os.Stderr)
	logger.Info("starting run",
		"location", cfg.Location,
		"scenario", cfg.Scenario,
		"seed", cfg.Seed,
		"draw", cfg.Draw,
		"population", cfg.PopulationSize)
	startedAt := time.Now()

	components, err := buildComponents(cfg)
	if err != nil {
		return err
	}
	acc := observer.NewAccumulator()
	components = append(components, buildObservers(cfg, components, acc)...)

	eng, err := engine.New(engine.Options{
		Start:      cfg.Start(),
		End:        cfg.End(),
		Step:       cfg.Step(),
		Seed:       cfg.Seed,
		Draw:       cfg.Draw,
		Logger:     logger,
		Components: components,
	})
	if err != nil {
		return err
	}
	if err := eng.Run(ctx); err != nil {
		return err
	}

	store, err := results.Open(cfg.Output)
	if err != nil {
		return err
	}
	defer store.Close()

	run := results.Run{
		ID:             results.NewRunID(),
		Location:       cfg.Location,
		Scenario:       cfg.Scenario,
		Seed:           cfg.Seed,
		Draw:           cfg.Draw,
		PopulationSize: cfg.PopulationSize,
		StartedAt:      startedAt,
		FinishedAt:     time.Now(),
	}
	if err := store.WriteRun(ctx, run, acc.Snapshot()); err != nil {
		return err
	}
	logger.Info("run complete", "run_id", run.ID, "metrics", acc.Len(), "output", cfg.Output)
	fmt.Println(run.ID)
	return nil
}

// yearsDuration converts fractional years to a duration.
func yearsDuration(y float64) time.Duration {
	return time.Duration(y * 365.25 * 24 * float64(time.Hour))
}

// buildComponents assembles the model for one scenario. Registration
// order is load-bearing: demography first (sex and birth columns),
// then coverage, then the risk and disease models, then effects.
func buildComponents(cfg scenario.Config) ([]engine.Component, error) {
	set, err := parameters.ForLocation(cfg.Location)
	if err != nil {
		return nil, err
	}
	epi, err := parameters.EpiForLocation(cfg.Location)
	if err != nil {
		return nil, err
	}
	// Parameter sampling shares the run's seed and draw, so the same
	// uncertainty draw backs both scenarios of a comparison.
	sampler := parameters.NewSampler(set,
		randomness.NewRegistry(cfg.Seed, cfg.Draw).Register("parameter_sampling"))

	baselines := make(map[parameters.Vehicle]float64, len(parameters.Vehicles))
	for _, v := range parameters.Vehicles {
		if baselines[v], err = sampler.Coverage(v, parameters.CoverageBaseline); err != nil {
			return nil, err
		}
	}

	consumption, err := parameters.FlourConsumption()
	if err != nil {
		return nil, err
	}
	hemoglobin := anemia.NewHemoglobin(epi.HemoglobinMean, epi.HemoglobinSD, epi.IronResponsiveFraction)

	components := []engine.Component{
		demography.New(demography.Config{
			CohortSize:      cfg.PopulationSize,
			CrudeBirthRate:  cfg.CrudeBirthRate,
			BirthWeightMean: 3000,
			BirthWeightSD:   450,
			GestationMean:   39,
			GestationSD:     2.5,
		}),
		// Folic acid acts in utero, so its group is fixed at birth.
		coverage.New(parameters.FolicAcid, baselines[parameters.FolicAcid], true),
		coverage.New(parameters.VitaminA, baselines[parameters.VitaminA], false),
		coverage.New(parameters.Iron, baselines[parameters.Iron], false),
		effect.NewConsumption(consumption),
		hemoglobin,
		disease.NewRiskAttributable("neural_tube_defects",
			epi.NTDBirthPrevalence, epi.NTDDisabilityWeight, true),
		disease.NewRiskAttributable("vitamin_a_deficiency",
			epi.VADPrevalence, epi.VADDisabilityWeight, false),
		disease.NewSIS("diarrheal_diseases",
			epi.DiarrheaIncidence, epi.DiarrheaRemission, epi.DiarrheaDisabilityWeight),
	}

	rrFolicAcid, err := sampler.RelativeRisk(parameters.FolicAcid)
	if err != nil {
		return nil, err
	}
	rrVitaminA, err := sampler.RelativeRisk(parameters.VitaminA)
	if err != nil {
		return nil, err
	}
	components = append(components,
		effect.NewRelativeRisk(parameters.FolicAcid, "neural_tube_defects",
			rrFolicAcid, baselines[parameters.FolicAcid], 0, true),
		// Vitamin A reaches children through complementary food, so
		// the effect starts at six months.
		effect.NewRelativeRisk(parameters.VitaminA, "vitamin_a_deficiency",
			rrVitaminA, baselines[parameters.VitaminA], 0.5, false),
		effect.NewDiseaseRisk("vitamin_a_deficiency", "diarrheal_diseases",
			epi.VADDiarrheaRelativeRisk, epi.VADPrevalence),
		effect.NewHemoglobinShift(sampler.IronHemoglobinShift(), baselines[parameters.Iron], hemoglobin.IronResponsive),
		effect.NewBirthWeightShift(sampler.IronBirthWeightShift(), baselines[parameters.Iron]),
	)

	if cfg.Scenario == scenario.Fortification {
		interventions, err := buildInterventions(cfg, sampler, baselines)
		if err != nil {
			return nil, err
		}
		components = append(components, interventions...)
	}
	return components, nil
}

// annualScaleUpRate is the proportional annual convergence toward the
// target coverage once fortification legislation takes effect.
const annualScaleUpRate = 0.1

func buildInterventions(cfg scenario.Config, sampler *parameters.Sampler, baselines map[parameters.Vehicle]float64) ([]engine.Component, error) {
	// Folic acid and iron ride flour supply chains; a year passes
	// before newly fortified flour displaces household stocks. Vitamin
	// A in oil has its own observed lag.
	delays := map[parameters.Vehicle]time.Duration{
		parameters.FolicAcid: yearsDuration(1),
		parameters.Iron:      yearsDuration(1),
		parameters.VitaminA:  yearsDuration(sampler.VitaminATimeToEffect()),
	}
	var components []engine.Component
	for _, v := range parameters.Vehicles {
		target, err := sampler.Coverage(v, parameters.CoverageInterventionEnd)
		if err != nil {
			return nil, err
		}
		components = append(components, coverage.NewIntervention(v, coverage.ScaleUp{
			Baseline:   baselines[v],
			Target:     target,
			Start:      cfg.InterventionStart(),
			AnnualRate: annualScaleUpRate,
			Delay:      delays[v],
		}))
	}
	return components, nil
}

// buildObservers wires the shared accumulator over the disease models
// in the component list.
func buildObservers(cfg scenario.Config, components []engine.Component, acc *observer.Accumulator) []engine.Component {
	years := cfg.Years()
	var ntd, vad, diarrhea disease.StateModel
	var hemoglobin *anemia.Hemoglobin
	for _, c := range components {
		switch v := c.(type) {
		case *anemia.Hemoglobin:
			hemoglobin = v
		case disease.StateModel:
			switch v.Condition() {
			case "neural_tube_defects":
				ntd = v
			case "vitamin_a_deficiency":
				vad = v
			case "diarrheal_diseases":
				diarrhea = v
			}
		}
	}

	return []engine.Component{
		observer.NewDiseaseObserver(ntd, parameters.FolicAcid, years, acc),
		observer.NewDiseaseObserver(vad, parameters.VitaminA, years, acc),
		observer.NewDiseaseObserver(diarrhea, parameters.VitaminA, years, acc),
		observer.NewDisabilityObserver([]observer.DisabilitySource{
			ntd.(observer.DisabilitySource),
			vad.(observer.DisabilitySource),
			diarrhea.(observer.DisabilitySource),
			hemoglobin,
		}, years, acc),
		observer.NewBirthObserver(ntd, parameters.FolicAcid, years, acc),
		observer.NewBirthWeightObserver(years, acc),
		observer.NewPopulationObserver(years, acc),
	}
}
