package parameters

import (
	"testing"

	"github.com/fortisim/fortisim/internal/randomness"
)

func newStream(t *testing.T) *randomness.Stream {
	t.Helper()
	return randomness.NewRegistry(12345, 0).Register("parameter_sampling")
}

func TestForLocationKnownAndUnknown(t *testing.T) {
	for _, loc := range Locations() {
		set, err := ForLocation(loc)
		if err != nil {
			t.Fatalf("ForLocation(%s): %v", loc, err)
		}
		for _, v := range Vehicles {
			vp, err := set.Vehicle(v)
			if err != nil {
				t.Fatalf("Vehicle(%s): %v", v, err)
			}
			if len(vp.Coverage) == 0 {
				t.Errorf("%s/%s has no coverage strata", loc, v)
			}
			var w float64
			for _, s := range vp.Coverage {
				w += s.Weight
			}
			if diff := w - 1; diff > 1e-12 || diff < -1e-12 {
				t.Errorf("%s/%s stratum weights sum to %v", loc, v, w)
			}
		}
	}
	if _, err := ForLocation("Atlantis"); err == nil {
		t.Error("unknown location should fail")
	}
}

func TestCoverageScaleUpIsMonotoneWithinDraw(t *testing.T) {
	s := newStream(t)
	for _, loc := range Locations() {
		set, err := ForLocation(loc)
		if err != nil {
			t.Fatalf("ForLocation: %v", err)
		}
		sampler := NewSampler(set, s)
		for _, v := range Vehicles {
			baseline, err := sampler.Coverage(v, CoverageBaseline)
			if err != nil {
				t.Fatalf("Coverage baseline: %v", err)
			}
			start, err := sampler.Coverage(v, CoverageInterventionStart)
			if err != nil {
				t.Fatalf("Coverage start: %v", err)
			}
			end, err := sampler.Coverage(v, CoverageInterventionEnd)
			if err != nil {
				t.Fatalf("Coverage end: %v", err)
			}
			if baseline < 0 || end > 1 {
				t.Errorf("%s/%s coverage outside [0,1]: %v..%v", loc, v, baseline, end)
			}
			// The shared propensity keeps the three points ordered.
			if !(baseline <= start && start <= end) {
				t.Errorf("%s/%s coverage not monotone: %v, %v, %v", loc, v, baseline, start, end)
			}
		}
	}
}

func TestCoverageIsReproducible(t *testing.T) {
	set, err := ForLocation("Nigeria")
	if err != nil {
		t.Fatalf("ForLocation: %v", err)
	}
	a, err := NewSampler(set, newStream(t)).Coverage(FolicAcid, CoverageBaseline)
	if err != nil {
		t.Fatalf("Coverage: %v", err)
	}
	b, err := NewSampler(set, newStream(t)).Coverage(FolicAcid, CoverageBaseline)
	if err != nil {
		t.Fatalf("Coverage: %v", err)
	}
	if a != b {
		t.Errorf("same seed and draw gave %v and %v", a, b)
	}

	other := randomness.NewRegistry(12345, 7).Register("parameter_sampling")
	c, err := NewSampler(set, other).Coverage(FolicAcid, CoverageBaseline)
	if err != nil {
		t.Fatalf("Coverage: %v", err)
	}
	if a == c {
		t.Error("different draws should sample different coverage")
	}
}

func TestRelativeRisksExceedOne(t *testing.T) {
	set, err := ForLocation("India")
	if err != nil {
		t.Fatalf("ForLocation: %v", err)
	}
	sampler := NewSampler(set, newStream(t))
	for _, v := range Vehicles {
		rr, err := sampler.RelativeRisk(v)
		if err != nil {
			t.Fatalf("RelativeRisk(%s): %v", v, err)
		}
		if rr <= 0 {
			t.Errorf("relative risk for %s = %v, want positive", v, rr)
		}
	}
	tte := sampler.VitaminATimeToEffect()
	if tte <= 0 {
		t.Errorf("vitamin A time to effect = %v, want positive", tte)
	}
}
