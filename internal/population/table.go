// Package population provides the columnar population table the
// simulation mutates in place. Individuals are rows identified by a
// stable integer id; components create the columns they own at setup and
// look up the columns they require by name. The table is single-writer
// and step-synchronous: all mutation happens inside clearly ordered step
// phases, never concurrently.
package population

import (
	"fmt"
	"time"
)

// Sex labels an individual's sex.
type Sex string

const (
	Male   Sex = "male"
	Female Sex = "female"
)

// Initializer is run for every newly created cohort, in registration
// order, with the ids of the new individuals.
type Initializer func(ids []int) error

// Table is the columnar population store. Built-in demographic columns
// (age, sex, alive, tracked, entrance/exit time) are fields; model state
// lives in named typed columns.
type Table struct {
	n        int
	alive    []bool
	tracked  []bool
	age      []float64 // years
	sex      []Sex
	entrance []time.Time
	exit     []time.Time

	f64s  map[string]*Float64Column
	ints  map[string]*IntColumn
	bools map[string]*BoolColumn
	strs  map[string]*StringColumn
	times map[string]*TimeColumn
	inits []Initializer
}

// NewTable creates an empty population table.
func NewTable() *Table {
	return &Table{
		f64s:  make(map[string]*Float64Column),
		ints:  make(map[string]*IntColumn),
		bools: make(map[string]*BoolColumn),
		strs:  make(map[string]*StringColumn),
		times: make(map[string]*TimeColumn),
	}
}

// RegisterInitializer adds a cohort initializer. Initializers run in
// registration order, so a component may rely on columns filled by
// components registered before it.
func (t *Table) RegisterInitializer(fn Initializer) {
	t.inits = append(t.inits, fn)
}

// Create appends count individuals entering at entrance and runs every
// registered initializer over the new ids. ages gives starting ages in
// years; nil means newborns (age zero). The new ids are returned.
func (t *Table) Create(count int, entrance time.Time, ages []float64) ([]int, error) {
	if count <= 0 {
		return nil, fmt.Errorf("population: cohort size must be positive, got %d", count)
	}
	if ages != nil && len(ages) != count {
		return nil, fmt.Errorf("population: %d ages for cohort of %d", len(ages), count)
	}

	ids := make([]int, count)
	for i := range ids {
		ids[i] = t.n + i
	}
	t.n += count

	t.alive = append(t.alive, make([]bool, count)...)
	t.tracked = append(t.tracked, make([]bool, count)...)
	t.age = append(t.age, make([]float64, count)...)
	t.sex = append(t.sex, make([]Sex, count)...)
	t.entrance = append(t.entrance, make([]time.Time, count)...)
	t.exit = append(t.exit, make([]time.Time, count)...)
	for _, id := range ids {
		t.alive[id] = true
		t.tracked[id] = true
		t.entrance[id] = entrance
	}
	if ages != nil {
		for i, id := range ids {
			t.age[id] = ages[i]
		}
	}

	for _, c := range t.f64s {
		c.grow(count)
	}
	for _, c := range t.ints {
		c.grow(count)
	}
	for _, c := range t.bools {
		c.grow(count)
	}
	for _, c := range t.strs {
		c.grow(count)
	}
	for _, c := range t.times {
		c.grow(count)
	}

	for _, fn := range t.inits {
		if err := fn(ids); err != nil {
			return nil, fmt.Errorf("population: initializing cohort: %w", err)
		}
	}
	return ids, nil
}

// Len returns the number of individuals ever created.
func (t *Table) Len() int { return t.n }

// Alive returns the ids of all living, tracked individuals.
func (t *Table) Alive() []int {
	ids := make([]int, 0, t.n)
	for id := 0; id < t.n; id++ {
		if t.alive[id] && t.tracked[id] {
			ids = append(ids, id)
		}
	}
	return ids
}

// Dead returns the ids of all dead individuals.
func (t *Table) Dead() []int {
	ids := make([]int, 0)
	for id := 0; id < t.n; id++ {
		if !t.alive[id] {
			ids = append(ids, id)
		}
	}
	return ids
}

// Age returns the individual's age in years.
func (t *Table) Age(id int) float64 { return t.age[id] }

// SetAge overwrites the individual's age in years.
func (t *Table) SetAge(id int, years float64) { t.age[id] = years }

// AdvanceAge ages every given individual by dt years.
func (t *Table) AdvanceAge(ids []int, dtYears float64) {
	for _, id := range ids {
		t.age[id] += dtYears
	}
}

// SexOf returns the individual's sex.
func (t *Table) SexOf(id int) Sex { return t.sex[id] }

// SetSex assigns the individual's sex.
func (t *Table) SetSex(id int, s Sex) { t.sex[id] = s }

// IsAlive reports whether the individual is alive.
func (t *Table) IsAlive(id int) bool { return t.alive[id] }

// IsTracked reports whether the individual is still tracked.
func (t *Table) IsTracked(id int) bool { return t.tracked[id] }

// Entrance returns the individual's entrance time.
func (t *Table) Entrance(id int) time.Time { return t.entrance[id] }

// Exit returns the individual's exit time; the zero time means they have
// not exited.
func (t *Table) Exit(id int) time.Time { return t.exit[id] }

// MarkDead records a death at the given time. Death and untracking are
// driven by collaborators outside the risk models; the table only records
// the fact.
func (t *Table) MarkDead(id int, at time.Time) {
	t.alive[id] = false
	t.exit[id] = at
}

// Untrack removes the individual from the simulated population without a
// death event.
func (t *Table) Untrack(id int, at time.Time) {
	t.tracked[id] = false
	t.exit[id] = at
}
