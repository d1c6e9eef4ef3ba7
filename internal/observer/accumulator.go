// Package observer tabulates per-individual state into stratified
// population metrics: person-time, transition counts, disability-years,
// births, and birth-weight statistics. Observers pre-seed their entire
// stratification keyspace at setup, so results always carry every
// stratum (zero cells included) and a metric landing outside the
// keyspace is caught as data corruption instead of silently creating a
// new cell.
package observer

import (
	"fmt"
	"sort"
)

// Accumulator is the shared metric store for one run. Keys must be
// seeded before they accept values.
type Accumulator struct {
	values map[string]float64
}

// NewAccumulator creates an empty accumulator.
func NewAccumulator() *Accumulator {
	return &Accumulator{values: make(map[string]float64)}
}

// Seed registers a key at zero. Seeding an existing key is a no-op, so
// observers sharing strata can seed independently.
func (a *Accumulator) Seed(key string) {
	if _, ok := a.values[key]; !ok {
		a.values[key] = 0
	}
}

// Add accumulates a flow measure into a seeded key.
func (a *Accumulator) Add(key string, v float64) error {
	if _, ok := a.values[key]; !ok {
		return fmt.Errorf("observer: metric key %q was never seeded", key)
	}
	a.values[key] += v
	return nil
}

// Set overwrites a point-in-time measure in a seeded key.
func (a *Accumulator) Set(key string, v float64) error {
	if _, ok := a.values[key]; !ok {
		return fmt.Errorf("observer: metric key %q was never seeded", key)
	}
	a.values[key] = v
	return nil
}

// Get returns a seeded key's current value.
func (a *Accumulator) Get(key string) (float64, error) {
	v, ok := a.values[key]
	if !ok {
		return 0, fmt.Errorf("observer: metric key %q was never seeded", key)
	}
	return v, nil
}

// Len returns the number of seeded keys.
func (a *Accumulator) Len() int { return len(a.values) }

// Keys returns every seeded key in sorted order.
func (a *Accumulator) Keys() []string {
	keys := make([]string, 0, len(a.values))
	for k := range a.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Snapshot returns a copy of the full metric table.
func (a *Accumulator) Snapshot() map[string]float64 {
	out := make(map[string]float64, len(a.values))
	for k, v := range a.values {
		out[k] = v
	}
	return out
}
