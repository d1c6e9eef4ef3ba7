package engine

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/fortisim/fortisim/internal/population"
)

type recorder struct {
	name   string
	subs   []Component
	phases *[]string
	boot   *[]string
}

func (r *recorder) Name() string { return r.name }

func (r *recorder) Setup(b *Builder) error {
	for _, p := range []Phase{TimeStepPrepare, TimeStep, CollectMetrics} {
		phase := p
		b.RegisterListener(phase, func(ev Event) error {
			*r.phases = append(*r.phases, r.name+":"+string(phase))
			return nil
		})
	}
	return nil
}

func (r *recorder) SubComponents() []Component { return r.subs }

func (r *recorder) Bootstrap() error {
	*r.boot = append(*r.boot, r.name)
	return nil
}

func TestStepPhaseOrder(t *testing.T) {
	var phases, boot []string
	child := &recorder{name: "child", phases: &phases, boot: &boot}
	parent := &recorder{name: "parent", subs: []Component{child}, phases: &phases, boot: &boot}

	start := time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC)
	e, err := New(Options{
		Start:      start,
		End:        start.AddDate(0, 0, 28),
		Step:       28 * 24 * time.Hour,
		Components: []Component{parent},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if len(boot) != 1 || boot[0] != "parent" {
		t.Errorf("bootstrap order = %v", boot)
	}

	if err := e.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	want := []string{
		"parent:time_step__prepare", "child:time_step__prepare",
		"parent:time_step", "child:time_step",
		"parent:collect_metrics", "child:collect_metrics",
	}
	if len(phases) != len(want) {
		t.Fatalf("phases = %v, want %v", phases, want)
	}
	for i := range want {
		if phases[i] != want[i] {
			t.Errorf("phase[%d] = %s, want %s", i, phases[i], want[i])
		}
	}
	if e.Steps() != 1 {
		t.Errorf("Steps() = %d, want 1", e.Steps())
	}
}

func TestClockAdvancesAfterStep(t *testing.T) {
	start := time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC)
	e, err := New(Options{
		Start: start,
		End:   start.AddDate(1, 0, 0),
		Step:  28 * 24 * time.Hour,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	var seen time.Time
	e.Builder().RegisterListener(TimeStep, func(ev Event) error {
		seen = ev.Time
		return nil
	})
	if err := e.Step(); err != nil {
		t.Fatalf("Step: %v", err)
	}
	if !seen.Equal(start) {
		t.Errorf("listener saw %v, want the pre-advance time %v", seen, start)
	}
	if got := e.Builder().Clock.Now(); !got.Equal(start.Add(28 * 24 * time.Hour)) {
		t.Errorf("clock = %v after one step", got)
	}
}

func TestValuePipelineAppliesModifiersInOrder(t *testing.T) {
	vs := NewValues()
	vs.RegisterModifier("incidence_rate", func(ids []int, vals []float64) error {
		for i := range vals {
			vals[i] *= 2
		}
		return nil
	})
	if _, err := vs.RegisterProducer("incidence_rate", func(ids []int) ([]float64, error) {
		vals := make([]float64, len(ids))
		for i := range vals {
			vals[i] = 0.25
		}
		return vals, nil
	}); err != nil {
		t.Fatalf("RegisterProducer: %v", err)
	}
	vs.RegisterModifier("incidence_rate", func(ids []int, vals []float64) error {
		for i := range vals {
			vals[i] += 0.1
		}
		return nil
	})

	v, err := vs.Value("incidence_rate")
	if err != nil {
		t.Fatalf("Value: %v", err)
	}
	got, err := v.Get([]int{0, 1})
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	// 0.25*2 + 0.1, regardless of which modifier registered first or
	// whether it registered before the producer.
	for _, x := range got {
		if math.Abs(x-0.6) > 1e-12 {
			t.Errorf("pipeline value = %v, want 0.6", x)
		}
	}
}

func TestValueUnknownAndDuplicateProducer(t *testing.T) {
	vs := NewValues()
	if _, err := vs.Value("never_registered"); err == nil {
		t.Error("unknown value lookup should fail")
	}
	src := func(ids []int) ([]float64, error) { return make([]float64, len(ids)), nil }
	if _, err := vs.RegisterProducer("x", src); err != nil {
		t.Fatalf("RegisterProducer: %v", err)
	}
	if _, err := vs.RegisterProducer("x", src); err == nil {
		t.Error("second producer for the same value should fail")
	}
}

func TestListValueUnionCombines(t *testing.T) {
	vs := NewValues()
	if _, err := vs.RegisterList("diarrheal_diseases.paf"); err != nil {
		t.Fatalf("RegisterList: %v", err)
	}
	constant := func(x float64) Source {
		return func(ids []int) ([]float64, error) {
			vals := make([]float64, len(ids))
			for i := range vals {
				vals[i] = x
			}
			return vals, nil
		}
	}
	if err := vs.ContributeToList("diarrheal_diseases.paf", constant(0.2)); err != nil {
		t.Fatalf("ContributeToList: %v", err)
	}
	if err := vs.ContributeToList("diarrheal_diseases.paf", constant(0.5)); err != nil {
		t.Fatalf("ContributeToList: %v", err)
	}
	lv, err := vs.List("diarrheal_diseases.paf")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	got, err := lv.Get([]int{0})
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	want := 1 - (1-0.2)*(1-0.5)
	if math.Abs(got[0]-want) > 1e-12 {
		t.Errorf("union of 0.2 and 0.5 = %v, want %v", got[0], want)
	}

	empty, err := vs.RegisterList("other.paf")
	if err != nil {
		t.Fatalf("RegisterList: %v", err)
	}
	zero, err := empty.Get([]int{0, 1})
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if zero[0] != 0 || zero[1] != 0 {
		t.Errorf("empty list value = %v, want zeros", zero)
	}
}

func TestLookupBinsAndMisses(t *testing.T) {
	l := NewLookup([]Row{
		{Sex: population.Female, AgeStart: 0, AgeEnd: 5, YearStart: 2022, YearEnd: 2027, Value: 1.5},
		{Sex: population.Male, AgeStart: 0, AgeEnd: 5, YearStart: 2022, YearEnd: 2027, Value: 2.5},
	})
	got, err := l.At(population.Male, 4.999, 2026)
	if err != nil {
		t.Fatalf("At: %v", err)
	}
	if got != 2.5 {
		t.Errorf("At = %v, want 2.5", got)
	}
	if _, err := l.At(population.Male, 5, 2026); err == nil {
		t.Error("age at the open right bound should miss")
	}
	if _, err := l.At(population.Male, 2, 2027); err == nil {
		t.Error("year at the open right bound should miss")
	}

	s := Scalar(0.9)
	for _, sex := range []population.Sex{population.Male, population.Female} {
		got, err := s.At(sex, 80, 1950)
		if err != nil {
			t.Fatalf("Scalar At: %v", err)
		}
		if got != 0.9 {
			t.Errorf("Scalar At = %v, want 0.9", got)
		}
	}
}

func TestYears(t *testing.T) {
	if got := Years(365.25 * 24 * time.Hour); math.Abs(got-1) > 1e-12 {
		t.Errorf("Years(365.25d) = %v, want 1", got)
	}
	if got := Years(28 * 24 * time.Hour); math.Abs(got-28.0/365.25) > 1e-12 {
		t.Errorf("Years(28d) = %v", got)
	}
}
