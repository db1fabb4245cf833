// Package filter provides a resonant low pass filter unit.
package filter

import (
	"math"

	"github.com/pipelined/rack"
)

// Parameter names.
const (
	Cutoff    = "cutoff"
	Resonance = "resonance"
)

const (
	cutoff = iota
	resonance
)

var specs = []rack.ParamSpec{
	{Name: Cutoff, Min: 20, Max: 20000, Default: 2000},
	{Name: Resonance, Min: 0, Max: 1, Default: 0.2},
}

type state struct {
	low  float64
	band float64
}

// LowPass is a state-variable low pass filter. State is kept per channel.
type LowPass struct {
	*rack.Params
	name       string
	sampleRate float64
	states     []state
}

// New returns a new filter with state allocated for stereo signal.
func New(name string, sampleRate int) *LowPass {
	return &LowPass{
		Params:     rack.NewParams(specs...),
		name:       name,
		sampleRate: float64(sampleRate),
		states:     make([]state, 2),
	}
}

// Name returns filter name.
func (f *LowPass) Name() string {
	return f.name
}

// Process filters in into out. Nil input results in silence.
func (f *LowPass) Process(in, out rack.Buffer) {
	if in == nil {
		out.Silence()
		return
	}
	if len(f.states) < len(out) {
		// grows only when chain has more channels than expected
		f.states = append(f.states, make([]state, len(out)-len(f.states))...)
	}
	// keep cutoff below the stability limit of the filter
	fc := math.Min(f.Load(cutoff), f.sampleRate/6)
	k := 2 * math.Sin(math.Pi*fc/f.sampleRate)
	damp := 2 * (1 - 0.97*f.Load(resonance))
	for c := range out {
		src := in[c%len(in)]
		s := &f.states[c]
		for i := range out[c] {
			high := src[i] - s.low - damp*s.band
			s.band += k * high
			s.low += k * s.band
			out[c][i] = s.low
		}
	}
}

// Reset clears filter state. It must not be called while rendering.
func (f *LowPass) Reset() {
	clear(f.states)
}
