// Package reverb provides a Schroeder-style reverb unit with comb and
// allpass filters.
package reverb

import (
	"github.com/pipelined/rack"
)

// Parameter names.
const (
	Room     = "room"
	Feedback = "feedback"
	Wet      = "wet"
)

const (
	room = iota
	feedback
	wet
)

var specs = []rack.ParamSpec{
	{Name: Room, Min: 0.05, Max: 1, Default: 0.5},
	{Name: Feedback, Min: 0, Max: 0.95, Default: 0.7},
	{Name: Wet, Min: 0, Max: 1, Default: 0.3},
}

// delay lengths relative to the base length, prime-ish ratios to avoid
// resonances.
var (
	combRatios    = [4]float64{1, 1.117, 1.271, 1.437}
	allpassRatios = [2]float64{0.347, 0.213}
)

type delay struct {
	buf []float64
	pos int
}

// comb runs one sample through the delay line of effective length n.
func (d *delay) comb(x, fb float64, n int) float64 {
	if d.pos >= n {
		d.pos = 0
	}
	out := d.buf[d.pos]
	d.buf[d.pos] = x + out*fb
	d.pos++
	return out
}

func (d *delay) allpass(x float64, n int) float64 {
	if d.pos >= n {
		d.pos = 0
	}
	buffered := d.buf[d.pos]
	d.buf[d.pos] = x + buffered*0.5
	d.pos++
	return buffered - x
}

// Reverb mixes mono reverberation into every channel. Delay lines are
// allocated for the largest room, room parameter shortens them.
type Reverb struct {
	*rack.Params
	name    string
	base    float64 // base delay length at full room, in samples
	combs   [4]delay
	allpass [2]delay
}

// New returns a new reverb.
func New(name string, sampleRate int) *Reverb {
	r := &Reverb{
		Params: rack.NewParams(specs...),
		name:   name,
		base:   float64(sampleRate) * 0.05,
	}
	for i := range r.combs {
		r.combs[i].buf = make([]float64, length(r.base, combRatios[i], 1))
	}
	for i := range r.allpass {
		r.allpass[i].buf = make([]float64, length(r.base, allpassRatios[i], 1))
	}
	return r
}

func length(base, ratio, room float64) int {
	return max(int(base*ratio*room), 1)
}

// Name returns reverb name.
func (r *Reverb) Name() string {
	return r.name
}

// Process adds reverberation of in to out. Nil input results in silence.
func (r *Reverb) Process(in, out rack.Buffer) {
	if in == nil {
		out.Silence()
		return
	}
	var (
		size = r.Load(room)
		fb   = r.Load(feedback)
		mix  = r.Load(wet)
		cl   [4]int
		al   [2]int
	)
	for i := range cl {
		cl[i] = length(r.base, combRatios[i], size)
	}
	for i := range al {
		al[i] = length(r.base, allpassRatios[i], size)
	}
	frames := out.Size()
	for i := 0; i < frames; i++ {
		var mono float64
		for c := range in {
			mono += in[c][i]
		}
		mono /= float64(len(in))

		var wetSample float64
		for j := range r.combs {
			wetSample += r.combs[j].comb(mono, fb, cl[j])
		}
		wetSample *= 0.25
		for j := range r.allpass {
			wetSample = r.allpass[j].allpass(wetSample, al[j])
		}
		for c := range out {
			out[c][i] = in[c%len(in)][i]*(1-mix) + wetSample*mix
		}
	}
}
