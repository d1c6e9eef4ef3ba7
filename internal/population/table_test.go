package population

import (
	"errors"
	"testing"
	"time"
)

var t0 = time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC)

func TestCreateRunsInitializersInOrder(t *testing.T) {
	tab := NewTable()
	col, err := tab.NewFloat64Column("propensity", 0)
	if err != nil {
		t.Fatalf("NewFloat64Column: %v", err)
	}

	var order []string
	tab.RegisterInitializer(func(ids []int) error {
		order = append(order, "first")
		for _, id := range ids {
			col.Set(id, 0.25)
		}
		return nil
	})
	tab.RegisterInitializer(func(ids []int) error {
		order = append(order, "second")
		for _, id := range ids {
			if col.Get(id) != 0.25 {
				return errors.New("earlier initializer output not visible")
			}
		}
		return nil
	})

	ids, err := tab.Create(3, t0, nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if len(ids) != 3 || ids[0] != 0 || ids[2] != 2 {
		t.Errorf("ids = %v, want [0 1 2]", ids)
	}
	if len(order) != 2 || order[0] != "first" || order[1] != "second" {
		t.Errorf("initializer order = %v", order)
	}
}

func TestCreateGrowsExistingColumns(t *testing.T) {
	tab := NewTable()
	if _, err := tab.Create(2, t0, []float64{1.5, 3.0}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	col, err := tab.NewFloat64Column("hemoglobin", 110)
	if err != nil {
		t.Fatalf("NewFloat64Column: %v", err)
	}
	ids, err := tab.Create(2, t0.AddDate(0, 0, 28), nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	// Pre-existing rows and new rows both carry the default.
	for id := 0; id < tab.Len(); id++ {
		if col.Get(id) != 110 {
			t.Errorf("column default missing for id %d: %v", id, col.Get(id))
		}
	}
	if tab.Age(ids[0]) != 0 {
		t.Errorf("newborn age = %v, want 0", tab.Age(ids[0]))
	}
	if tab.Age(0) != 1.5 {
		t.Errorf("initial cohort age = %v, want 1.5", tab.Age(0))
	}
}

func TestDuplicateAndMissingColumns(t *testing.T) {
	tab := NewTable()
	if _, err := tab.NewStringColumn("state", "susceptible"); err != nil {
		t.Fatalf("NewStringColumn: %v", err)
	}
	if _, err := tab.NewStringColumn("state", ""); err == nil {
		t.Error("duplicate column creation should fail")
	}
	if _, err := tab.StringColumn("missing"); err == nil {
		t.Error("looking up a missing column should fail")
	}
}

func TestAliveExcludesDeadAndUntracked(t *testing.T) {
	tab := NewTable()
	ids, err := tab.Create(4, t0, nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	tab.MarkDead(ids[1], t0.AddDate(0, 1, 0))
	tab.Untrack(ids[3], t0.AddDate(0, 2, 0))

	alive := tab.Alive()
	if len(alive) != 2 || alive[0] != 0 || alive[1] != 2 {
		t.Errorf("Alive() = %v, want [0 2]", alive)
	}
	dead := tab.Dead()
	if len(dead) != 1 || dead[0] != 1 {
		t.Errorf("Dead() = %v, want [1]", dead)
	}
	if got := tab.Exit(ids[1]); got.IsZero() {
		t.Error("death did not record an exit time")
	}
}

func TestTimeColumnNullability(t *testing.T) {
	tab := NewTable()
	ids, err := tab.Create(2, t0, nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	col, err := tab.NewTimeColumn("coverage_start")
	if err != nil {
		t.Fatalf("NewTimeColumn: %v", err)
	}
	if col.Valid(ids[0]) {
		t.Error("unset timestamp should be null")
	}
	stamp := t0.AddDate(1, 0, 0)
	col.Set(ids[0], stamp)
	got, ok := col.Get(ids[0])
	if !ok || !got.Equal(stamp) {
		t.Errorf("Get() = %v, %v after Set(%v)", got, ok, stamp)
	}
	if col.Valid(ids[1]) {
		t.Error("setting one row leaked into another")
	}
}

func TestAdvanceAge(t *testing.T) {
	tab := NewTable()
	ids, err := tab.Create(2, t0, []float64{0.0, 1.0})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	tab.AdvanceAge(ids, 28.0/365.25)
	if got := tab.Age(ids[0]); got != 28.0/365.25 {
		t.Errorf("age = %v, want %v", got, 28.0/365.25)
	}
}
