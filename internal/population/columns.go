package population

import (
	"fmt"
	"time"
)

// Float64Column is a dense real-valued column.
type Float64Column struct {
	name string
	def  float64
	vals []float64
}

func (c *Float64Column) Name() string          { return c.name }
func (c *Float64Column) Get(id int) float64    { return c.vals[id] }
func (c *Float64Column) Set(id int, v float64) { c.vals[id] = v }
func (c *Float64Column) Add(id int, v float64) { c.vals[id] += v }

func (c *Float64Column) grow(n int) {
	for i := 0; i < n; i++ {
		c.vals = append(c.vals, c.def)
	}
}

// IntColumn is a dense integer column, used for event counts.
type IntColumn struct {
	name string
	vals []int
}

func (c *IntColumn) Name() string      { return c.name }
func (c *IntColumn) Get(id int) int    { return c.vals[id] }
func (c *IntColumn) Set(id int, v int) { c.vals[id] = v }
func (c *IntColumn) Incr(id int)       { c.vals[id]++ }

func (c *IntColumn) grow(n int) {
	c.vals = append(c.vals, make([]int, n)...)
}

// BoolColumn is a dense boolean column.
type BoolColumn struct {
	name string
	def  bool
	vals []bool
}

func (c *BoolColumn) Name() string       { return c.name }
func (c *BoolColumn) Get(id int) bool    { return c.vals[id] }
func (c *BoolColumn) Set(id int, v bool) { c.vals[id] = v }

func (c *BoolColumn) grow(n int) {
	for i := 0; i < n; i++ {
		c.vals = append(c.vals, c.def)
	}
}

// StringColumn is a dense label column, used for state and group names.
type StringColumn struct {
	name string
	def  string
	vals []string
}

func (c *StringColumn) Name() string         { return c.name }
func (c *StringColumn) Get(id int) string    { return c.vals[id] }
func (c *StringColumn) Set(id int, v string) { c.vals[id] = v }

func (c *StringColumn) grow(n int) {
	for i := 0; i < n; i++ {
		c.vals = append(c.vals, c.def)
	}
}

// TimeColumn is a nullable timestamp column, used for event times and
// coverage starts. Entries are null until first set.
type TimeColumn struct {
	name  string
	vals  []time.Time
	valid []bool
}

func (c *TimeColumn) Name() string { return c.name }

// Get returns the timestamp and whether it has been set.
func (c *TimeColumn) Get(id int) (time.Time, bool) { return c.vals[id], c.valid[id] }

// Valid reports whether the timestamp has been set.
func (c *TimeColumn) Valid(id int) bool { return c.valid[id] }

// Set stamps the timestamp. Once set a value is only ever overwritten,
// never cleared.
func (c *TimeColumn) Set(id int, v time.Time) {
	c.vals[id] = v
	c.valid[id] = true
}

func (c *TimeColumn) grow(n int) {
	c.vals = append(c.vals, make([]time.Time, n)...)
	c.valid = append(c.valid, make([]bool, n)...)
}

// NewFloat64Column creates a named real column with a default value.
// Creating a column that already exists is a configuration error.
func (t *Table) NewFloat64Column(name string, def float64) (*Float64Column, error) {
	if _, ok := t.f64s[name]; ok {
		return nil, fmt.Errorf("population: column %q already exists", name)
	}
	c := &Float64Column{name: name, def: def}
	c.grow(t.n)
	t.f64s[name] = c
	return c, nil
}

// Float64Column looks up a real column created by another component.
func (t *Table) Float64Column(name string) (*Float64Column, error) {
	c, ok := t.f64s[name]
	if !ok {
		return nil, fmt.Errorf("population: required column %q does not exist", name)
	}
	return c, nil
}

// NewIntColumn creates a named integer column.
func (t *Table) NewIntColumn(name string) (*IntColumn, error) {
	if _, ok := t.ints[name]; ok {
		return nil, fmt.Errorf("population: column %q already exists", name)
	}
	c := &IntColumn{name: name}
	c.grow(t.n)
	t.ints[name] = c
	return c, nil
}

// IntColumn looks up an integer column created by another component.
func (t *Table) IntColumn(name string) (*IntColumn, error) {
	c, ok := t.ints[name]
	if !ok {
		return nil, fmt.Errorf("population: required column %q does not exist", name)
	}
	return c, nil
}

// NewBoolColumn creates a named boolean column with a default value.
func (t *Table) NewBoolColumn(name string, def bool) (*BoolColumn, error) {
	if _, ok := t.bools[name]; ok {
		return nil, fmt.Errorf("population: column %q already exists", name)
	}
	c := &BoolColumn{name: name, def: def}
	c.grow(t.n)
	t.bools[name] = c
	return c, nil
}

// BoolColumn looks up a boolean column created by another component.
func (t *Table) BoolColumn(name string) (*BoolColumn, error) {
	c, ok := t.bools[name]
	if !ok {
		return nil, fmt.Errorf("population: required column %q does not exist", name)
	}
	return c, nil
}

// NewStringColumn creates a named label column with a default value.
func (t *Table) NewStringColumn(name, def string) (*StringColumn, error) {
	if _, ok := t.strs[name]; ok {
		return nil, fmt.Errorf("population: column %q already exists", name)
	}
	c := &StringColumn{name: name, def: def}
	c.grow(t.n)
	t.strs[name] = c
	return c, nil
}

// StringColumn looks up a label column created by another component.
func (t *Table) StringColumn(name string) (*StringColumn, error) {
	c, ok := t.strs[name]
	if !ok {
		return nil, fmt.Errorf("population: required column %q does not exist", name)
	}
	return c, nil
}

// NewTimeColumn creates a named nullable timestamp column.
func (t *Table) NewTimeColumn(name string) (*TimeColumn, error) {
	if _, ok := t.times[name]; ok {
		return nil, fmt.Errorf("population: column %q already exists", name)
	}
	c := &TimeColumn{name: name}
	c.grow(t.n)
	t.times[name] = c
	return c, nil
}

// TimeColumn looks up a timestamp column created by another component.
func (t *Table) TimeColumn(name string) (*TimeColumn, error) {
	c, ok := t.times[name]
	if !ok {
		return nil, fmt.Errorf("population: required column %q does not exist", name)
	}
	return c, nil
}
