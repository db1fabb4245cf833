package rack

import (
	"fmt"
	"math"
	"sync/atomic"
)

// ParamSpec declares a continuous parameter and its range.
type ParamSpec struct {
	Name    string
	Min     float64
	Max     float64
	Default float64
}

// Params is an ordered table of parameters. Each value is stored in its own
// atomic slot, so a single control writer and a render reader never block
// each other. Params is embedded by units to implement parameter access.
type Params struct {
	specs  []ParamSpec
	index  map[string]int
	values []atomic.Uint64
}

// NewParams creates parameters table with default values. It panics if
// specs are inconsistent, since they are declared by unit implementations.
func NewParams(specs ...ParamSpec) *Params {
	p := &Params{
		specs:  make([]ParamSpec, len(specs)),
		index:  make(map[string]int, len(specs)),
		values: make([]atomic.Uint64, len(specs)),
	}
	copy(p.specs, specs)
	for i, s := range specs {
		if _, ok := p.index[s.Name]; ok {
			panic(fmt.Sprintf("duplicate parameter %q", s.Name))
		}
		if s.Min > s.Max || s.Default < s.Min || s.Default > s.Max {
			panic(fmt.Sprintf("inconsistent parameter %q", s.Name))
		}
		p.index[s.Name] = i
		p.values[i].Store(math.Float64bits(s.Default))
	}
	return p
}

// SetParameter stores new value. Unknown name or value outside of the range
// is rejected and previous value is kept.
func (p *Params) SetParameter(name string, value float64) error {
	i, ok := p.index[name]
	if !ok {
		return fmt.Errorf("%w: unknown %q", ErrInvalidParameter, name)
	}
	s := p.specs[i]
	if math.IsNaN(value) || value < s.Min || value > s.Max {
		return fmt.Errorf("%w: %s=%v outside [%v, %v]", ErrInvalidParameter, name, value, s.Min, s.Max)
	}
	p.values[i].Store(math.Float64bits(value))
	return nil
}

// Parameter returns current value.
func (p *Params) Parameter(name string) (float64, error) {
	i, ok := p.index[name]
	if !ok {
		return 0, fmt.Errorf("%w: unknown %q", ErrInvalidParameter, name)
	}
	return p.Load(i), nil
}

// Load returns value by declaration index. It's intended for render
// side, where map lookups are avoided.
func (p *Params) Load(i int) float64 {
	return math.Float64frombits(p.values[i].Load())
}

// Specs returns parameter declarations in order.
func (p *Params) Specs() []ParamSpec {
	specs := make([]ParamSpec, len(p.specs))
	copy(specs, p.specs)
	return specs
}
