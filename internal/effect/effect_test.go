package effect

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/fortisim/fortisim/internal/anemia"
	"github.com/fortisim/fortisim/internal/coverage"
	"github.com/fortisim/fortisim/internal/disease"
	"github.com/fortisim/fortisim/internal/distribution"
	"github.com/fortisim/fortisim/internal/engine"
	"github.com/fortisim/fortisim/internal/parameters"
)

var start = time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC)

func newEngine(t *testing.T, components ...engine.Component) *engine.Engine {
	t.Helper()
	e, err := engine.New(engine.Options{
		Start:      start,
		End:        start.AddDate(3, 0, 0),
		Step:       28 * 24 * time.Hour,
		Seed:       11,
		Components: components,
	})
	if err != nil {
		t.Fatalf("engine.New: %v", err)
	}
	return e
}

func TestLagFraction(t *testing.T) {
	cases := []struct {
		startAge, duration, want float64
	}{
		{2, 1, 1},            // old starter, long exposure
		{2, 0.25, 0.5},       // old starter, short exposure
		{0.5, 1, 0.75},       // young starter, long exposure
		{1.5, 0.5, 1},        // both cuts exactly
		{0.5, 0.25, 0.25},    // young starter, short exposure
		{0, 40, 1},           // covered since before the window
		{2, 0, 0},            // just started
	}
	for _, c := range cases {
		if got := lagFraction(c.startAge, c.duration); math.Abs(got-c.want) > 1e-12 {
			t.Errorf("lagFraction(%v, %v) = %v, want %v", c.startAge, c.duration, got, c.want)
		}
	}
}

func TestLagFractionContinuity(t *testing.T) {
	const eps = 1e-9
	for _, d := range []float64{0.1, 0.3, 0.5, 0.8, 2} {
		lo, hi := lagFraction(1.5-eps, d), lagFraction(1.5+eps, d)
		if math.Abs(lo-hi) > 1e-6 {
			t.Errorf("discontinuous across the age cut at duration %v: %v vs %v", d, lo, hi)
		}
	}
	for _, a := range []float64{0, 0.5, 1, 1.5, 3} {
		lo, hi := lagFraction(a, 0.5-eps), lagFraction(a, 0.5+eps)
		if math.Abs(lo-hi) > 1e-6 {
			t.Errorf("discontinuous across the duration cut at start age %v: %v vs %v", a, lo, hi)
		}
	}
	// Monotone in duration for a fixed start age.
	for _, a := range []float64{0, 1, 2} {
		prev := -1.0
		for d := 0.0; d <= 3; d += 0.05 {
			f := lagFraction(a, d)
			if f < prev-1e-12 {
				t.Fatalf("lagFraction(%v, %v) = %v decreased from %v", a, d, f, prev)
			}
			prev = f
		}
	}
}

func TestRelativeRiskRedistributesExposure(t *testing.T) {
	const baseExposure, rr, cov = 0.2, 2.0, 0.3
	c := coverage.New(parameters.FolicAcid, cov, true)
	d := disease.NewRiskAttributable("neural_tube_defects", engine.Scalar(baseExposure), engine.Scalar(0.2), true)
	e := NewRelativeRisk(parameters.FolicAcid, "neural_tube_defects", rr, cov, 0, true)
	eng := newEngine(t, c, d, e)
	b := eng.Builder()

	ids, err := b.Population.Create(4000, start, nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	paf, err := b.Values.List(disease.PAFValue("neural_tube_defects"))
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	pafs, err := paf.Get(ids[:1])
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	meanRR := rr*(1-cov) + cov
	wantPAF := (meanRR - 1) / meanRR
	if math.Abs(pafs[0]-wantPAF) > 1e-12 {
		t.Errorf("PAF = %v, want %v", pafs[0], wantPAF)
	}

	exposure, err := b.Values.Value(disease.ExposureValue("neural_tube_defects"))
	if err != nil {
		t.Fatalf("Value: %v", err)
	}
	vals, err := exposure.Get(ids)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	group, err := b.Population.StringColumn(coverage.GroupColumn(parameters.FolicAcid))
	if err != nil {
		t.Fatalf("StringColumn: %v", err)
	}
	riskDeleted := baseExposure * (1 - wantPAF)
	var sum float64
	for i, id := range ids {
		want := riskDeleted
		if group.Get(id) == coverage.GroupUncovered {
			want = riskDeleted * rr
		}
		if math.Abs(vals[i]-want) > 1e-12 {
			t.Fatalf("exposure for id %d (%s) = %v, want %v", id, group.Get(id), vals[i], want)
		}
		sum += vals[i]
	}
	// Redistribution preserves the population mean.
	if mean := sum / float64(len(vals)); math.Abs(mean-baseExposure) > 0.01 {
		t.Errorf("mean exposure = %v, want about %v", mean, baseExposure)
	}
}

func TestRelativeRiskPAFIgnoresScaleUp(t *testing.T) {
	// The PAF must stay at the sampled baseline while the intervention
	// raises coverage; a PAF that followed the live pipeline would
	// cancel the intervention out of the risk-deleted exposure.
	const baseExposure, rr, baselineCov = 0.3, 2.0, 0.1
	c := coverage.New(parameters.VitaminA, baselineCov, false)
	d := disease.NewRiskAttributable("vitamin_a_deficiency", engine.Scalar(baseExposure), engine.Scalar(0.05), false)
	e := NewRelativeRisk(parameters.VitaminA, "vitamin_a_deficiency", rr, baselineCov, 0, false)
	iv := coverage.NewIntervention(parameters.VitaminA, coverage.ScaleUp{
		Baseline:   baselineCov,
		Target:     0.999,
		Start:      start,
		AnnualRate: 0.9,
	})
	eng := newEngine(t, c, d, e, iv)
	b := eng.Builder()

	ids, err := b.Population.Create(2000, start, nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := eng.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	meanRR := rr*(1-baselineCov) + baselineCov
	wantPAF := (meanRR - 1) / meanRR
	paf, err := b.Values.List(disease.PAFValue("vitamin_a_deficiency"))
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	pafs, err := paf.Get(ids[:1])
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if math.Abs(pafs[0]-wantPAF) > 1e-12 {
		t.Errorf("PAF after scale-up = %v, want baseline %v", pafs[0], wantPAF)
	}

	// With nearly everyone covered the mean exposure approaches the
	// risk-deleted level instead of sitting at the raw baseline.
	exposure, err := b.Values.Value(disease.ExposureValue("vitamin_a_deficiency"))
	if err != nil {
		t.Fatalf("Value: %v", err)
	}
	vals, err := exposure.Get(ids)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	var sum float64
	for _, v := range vals {
		sum += v
	}
	mean := sum / float64(len(vals))
	riskDeleted := baseExposure * (1 - wantPAF)
	if math.Abs(mean-riskDeleted) > 0.02 {
		t.Errorf("mean exposure after scale-up = %v, want about %v", mean, riskDeleted)
	}
	if mean > 0.25 {
		t.Errorf("mean exposure %v still at the unfortified level %v", mean, baseExposure)
	}
}

func TestHemoglobinShiftScalesWithConsumption(t *testing.T) {
	const shift = 10.0
	build := func(withEffect bool) ([]int, []float64) {
		h := anemia.NewHemoglobin(engine.Scalar(110), engine.Scalar(15), engine.Scalar(1))
		components := []engine.Component{
			h,
			coverage.New(parameters.Iron, 1.0, false),
			NewConsumption(distribution.Constant(2 * ReferenceConsumption)),
		}
		if withEffect {
			components = append(components, NewHemoglobinShift(shift, 1.0, h.IronResponsive))
		}
		eng := newEngine(t, components...)
		ages := make([]float64, 500)
		for i := range ages {
			ages[i] = 2.0
		}
		ids, err := eng.Builder().Population.Create(500, start, ages)
		if err != nil {
			t.Fatalf("Create: %v", err)
		}
		vals, err := h.Exposure(ids)
		if err != nil {
			t.Fatalf("Exposure: %v", err)
		}
		return ids, vals
	}

	_, plain := build(false)
	_, shifted := build(true)
	// Everyone is covered since baseline at double the reference dose:
	// the fully lagged-in effect is -1.0*shift + 2*shift = +shift.
	for i := range plain {
		if math.Abs(shifted[i]-plain[i]-shift) > 1e-9 {
			t.Fatalf("shift for id %d = %v, want %v", i, shifted[i]-plain[i], shift)
		}
	}
}

// birthColumns supplies the birth columns demography normally owns.
type birthColumns struct {
	gestationWeeks float64
}

func (birthColumns) Name() string { return "birth_columns" }

func (c birthColumns) Setup(b *engine.Builder) error {
	if _, err := b.Population.NewFloat64Column("birth_weight", 3000); err != nil {
		return err
	}
	_, err := b.Population.NewFloat64Column("gestational_age", c.gestationWeeks)
	return err
}

func TestBirthWeightShiftSubtractsBaselineAndAddsCoveredGain(t *testing.T) {
	const shift, cov = 15.0, 0.5
	eng := newEngine(t,
		birthColumns{gestationWeeks: 39},
		coverage.New(parameters.Iron, cov, false),
		NewConsumption(distribution.Constant(ReferenceConsumption)),
		NewBirthWeightShift(shift, cov),
	)
	b := eng.Builder()

	newborns, err := b.Population.Create(200, start, nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	ages := []float64{2, 2, 2}
	olders, err := b.Population.Create(3, start, ages)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	bw, err := b.Population.Float64Column("birth_weight")
	if err != nil {
		t.Fatalf("Float64Column: %v", err)
	}
	group, err := b.Population.StringColumn(coverage.GroupColumn(parameters.Iron))
	if err != nil {
		t.Fatalf("StringColumn: %v", err)
	}
	// A full-term pregnancy saturates the lag, so a covered birth nets
	// the full shift on top of the unconditional baseline subtraction.
	covered, uncovered := 0, 0
	for _, id := range newborns {
		want := 3000 - cov*shift
		if group.Get(id) == coverage.GroupCovered {
			want += shift
			covered++
		} else {
			uncovered++
		}
		if got := bw.Get(id); math.Abs(got-want) > 1e-9 {
			t.Fatalf("newborn %d (%s) birth weight = %v, want %v", id, group.Get(id), got, want)
		}
	}
	if covered == 0 || uncovered == 0 {
		t.Fatalf("coverage split %d/%d leaves a branch untested", covered, uncovered)
	}
	for _, id := range olders {
		if got := bw.Get(id); got != 3000 {
			t.Errorf("initial-cohort birth weight = %v, want 3000", got)
		}
	}
}

func TestBirthWeightShiftLagsVeryPretermBirths(t *testing.T) {
	const shift, weeks = 15.0, 13.0
	eng := newEngine(t,
		birthColumns{gestationWeeks: weeks},
		coverage.New(parameters.Iron, 1.0, false),
		NewConsumption(distribution.Constant(ReferenceConsumption)),
		NewBirthWeightShift(shift, 0),
	)
	b := eng.Builder()

	newborns, err := b.Population.Create(10, start, nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	bw, err := b.Population.Float64Column("birth_weight")
	if err != nil {
		t.Fatalf("Float64Column: %v", err)
	}
	want := 3000 + shift*lagFraction(lagAgeCut, weeks*7/365.25)
	for _, id := range newborns {
		if got := bw.Get(id); math.Abs(got-want) > 1e-9 {
			t.Errorf("preterm birth weight = %v, want %v", got, want)
		}
	}
}
