package demography

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/fortisim/fortisim/internal/engine"
	"github.com/fortisim/fortisim/internal/population"
)

var start = time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC)

func defaultConfig() Config {
	return Config{
		CohortSize:      2000,
		CrudeBirthRate:  35,
		BirthWeightMean: 3000,
		BirthWeightSD:   450,
		GestationMean:   39,
		GestationSD:     2.5,
	}
}

func newEngine(t *testing.T, cfg Config, years int) *engine.Engine {
	t.Helper()
	e, err := engine.New(engine.Options{
		Start:      start,
		End:        start.AddDate(years, 0, 0),
		Step:       28 * 24 * time.Hour,
		Seed:       9,
		Components: []engine.Component{New(cfg)},
	})
	if err != nil {
		t.Fatalf("engine.New: %v", err)
	}
	return e
}

func TestBootstrapCohort(t *testing.T) {
	e := newEngine(t, defaultConfig(), 1)
	b := e.Builder()

	if got := b.Population.Len(); got != 2000 {
		t.Fatalf("cohort size = %d, want 2000", got)
	}
	var female int
	var ageSum float64
	bw, err := b.Population.Float64Column("birth_weight")
	if err != nil {
		t.Fatalf("Float64Column: %v", err)
	}
	for _, id := range b.Population.Alive() {
		age := b.Population.Age(id)
		if age < 0 || age >= 5 {
			t.Fatalf("initial age %v outside [0,5)", age)
		}
		ageSum += age
		if b.Population.SexOf(id) == population.Female {
			female++
		}
		if w := bw.Get(id); w < 1000 || w > 5500 {
			t.Fatalf("birth weight %v implausible", w)
		}
	}
	if frac := float64(female) / 2000; frac < 0.46 || frac > 0.54 {
		t.Errorf("female fraction = %v, want about 0.5", frac)
	}
	if mean := ageSum / 2000; mean < 2.3 || mean > 2.7 {
		t.Errorf("mean initial age = %v, want about 2.5", mean)
	}
}

func TestBirthsTrackCrudeBirthRate(t *testing.T) {
	cfg := defaultConfig()
	e := newEngine(t, cfg, 1)
	b := e.Builder()

	before := b.Population.Len()
	if err := e.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	births := b.Population.Len() - before
	// 35 births per 1000 person-years over roughly 2000 person-years.
	want := cfg.CrudeBirthRate / 1000 * float64(before)
	if math.Abs(float64(births)-want) > want*0.15 {
		t.Errorf("births in one year = %d, want about %.0f", births, want)
	}
	for id := before; id < b.Population.Len(); id++ {
		if b.Population.Entrance(id).Before(start) {
			t.Fatalf("newborn %d entered before the run started", id)
		}
	}
}

func TestAgingOutUntracksAtFive(t *testing.T) {
	e := newEngine(t, defaultConfig(), 3)
	b := e.Builder()

	if err := e.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	for _, id := range b.Population.Alive() {
		if b.Population.Age(id) >= 5 {
			t.Fatalf("id %d still tracked at age %v", id, b.Population.Age(id))
		}
	}
	untracked := 0
	for id := 0; id < b.Population.Len(); id++ {
		if b.Population.IsAlive(id) && !b.Population.IsTracked(id) {
			untracked++
			if b.Population.Exit(id).IsZero() {
				t.Fatalf("untracked id %d has no exit time", id)
			}
		}
	}
	// Three years of aging pushes roughly the oldest three fifths of
	// the initial cohort past five.
	if untracked < 1000 {
		t.Errorf("only %d aged out after three years", untracked)
	}
}

func TestIdenticalSeedsGiveIdenticalCohorts(t *testing.T) {
	a := newEngine(t, defaultConfig(), 1).Builder()
	b := newEngine(t, defaultConfig(), 1).Builder()
	for id := 0; id < a.Population.Len(); id++ {
		if a.Population.Age(id) != b.Population.Age(id) {
			t.Fatalf("ages differ for id %d", id)
		}
		if a.Population.SexOf(id) != b.Population.SexOf(id) {
			t.Fatalf("sexes differ for id %d", id)
		}
	}
}
