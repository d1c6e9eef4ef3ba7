package engine

import "fmt"

// Source produces a base series of values for a set of individuals.
type Source func(ids []int) ([]float64, error)

// Modifier rewrites a series in place. Modifiers compose in registration
// order on top of a value's source.
type Modifier func(ids []int, vals []float64) error

// Value is a named pipeline: one source plus any number of modifiers.
// Interventions act by registering modifiers on values produced by the
// baseline models, so the models themselves never know which scenario is
// running.
type Value struct {
	name      string
	source    Source
	modifiers []Modifier
}

// Name returns the pipeline name.
func (v *Value) Name() string { return v.name }

// Get evaluates the source and then every modifier, in order.
func (v *Value) Get(ids []int) ([]float64, error) {
	if v.source == nil {
		return nil, fmt.Errorf("engine: value %q has no registered producer", v.name)
	}
	vals, err := v.source(ids)
	if err != nil {
		return nil, fmt.Errorf("engine: value %q source: %w", v.name, err)
	}
	if len(vals) != len(ids) {
		return nil, fmt.Errorf("engine: value %q source returned %d values for %d ids", v.name, len(vals), len(ids))
	}
	for _, m := range v.modifiers {
		if err := m(ids, vals); err != nil {
			return nil, fmt.Errorf("engine: value %q modifier: %w", v.name, err)
		}
	}
	return vals, nil
}

// ListValue is a list-combined pipeline: every source contributes one
// series, and Get union-combines them as 1 - prod(1 - x_i). It backs the
// population-attributable-fraction pipelines, where independent effects
// must aggregate without double counting.
type ListValue struct {
	name    string
	sources []Source
}

// Name returns the pipeline name.
func (v *ListValue) Name() string { return v.name }

// Get evaluates every contributed series and union-combines them.
func (v *ListValue) Get(ids []int) ([]float64, error) {
	combined := make([]float64, len(ids))
	for i := range combined {
		combined[i] = 1
	}
	for _, src := range v.sources {
		vals, err := src(ids)
		if err != nil {
			return nil, fmt.Errorf("engine: list value %q source: %w", v.name, err)
		}
		if len(vals) != len(ids) {
			return nil, fmt.Errorf("engine: list value %q source returned %d values for %d ids", v.name, len(vals), len(ids))
		}
		for i, x := range vals {
			combined[i] *= 1 - x
		}
	}
	for i := range combined {
		combined[i] = 1 - combined[i]
	}
	return combined, nil
}

// Values is the pipeline registry. Producers and modifiers may register
// in any order during setup; a value accessed before its producer exists
// fails at evaluation time.
type Values struct {
	values map[string]*Value
	lists  map[string]*ListValue
}

// NewValues creates an empty pipeline registry.
func NewValues() *Values {
	return &Values{
		values: make(map[string]*Value),
		lists:  make(map[string]*ListValue),
	}
}

func (vs *Values) value(name string) *Value {
	v, ok := vs.values[name]
	if !ok {
		v = &Value{name: name}
		vs.values[name] = v
	}
	return v
}

// RegisterProducer registers the source for a named value. Registering a
// second producer for the same name is a configuration error.
func (vs *Values) RegisterProducer(name string, src Source) (*Value, error) {
	v := vs.value(name)
	if v.source != nil {
		return nil, fmt.Errorf("engine: value %q already has a producer", name)
	}
	v.source = src
	return v, nil
}

// RegisterModifier appends a modifier to a named value. Modifiers may
// register before the producer; order among modifiers is registration
// order.
func (vs *Values) RegisterModifier(name string, m Modifier) *Value {
	v := vs.value(name)
	v.modifiers = append(v.modifiers, m)
	return v
}

// Value returns the named pipeline, failing fast if nothing has touched
// it — an unknown name during setup indicates a wiring error.
func (vs *Values) Value(name string) (*Value, error) {
	v, ok := vs.values[name]
	if !ok {
		return nil, fmt.Errorf("engine: unknown value %q", name)
	}
	return v, nil
}

// RegisterList registers a named list-combined value. Registering the
// same list twice is a configuration error.
func (vs *Values) RegisterList(name string) (*ListValue, error) {
	if _, ok := vs.lists[name]; ok {
		return nil, fmt.Errorf("engine: list value %q already registered", name)
	}
	v := &ListValue{name: name}
	vs.lists[name] = v
	return v, nil
}

// ContributeToList appends a source to a named list value.
func (vs *Values) ContributeToList(name string, src Source) error {
	v, ok := vs.lists[name]
	if !ok {
		return fmt.Errorf("engine: unknown list value %q", name)
	}
	v.sources = append(v.sources, src)
	return nil
}

// List returns the named list-combined pipeline.
func (vs *Values) List(name string) (*ListValue, error) {
	v, ok := vs.lists[name]
	if !ok {
		return nil, fmt.Errorf("engine: unknown list value %q", name)
	}
	return v, nil
}
