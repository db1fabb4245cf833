package rack

import (
	"github.com/viterin/vek"
)

// MixerLevel is the only parameter of mixer.
const MixerLevel = "level"

// Mixer sums up multiple inputs into a single output. The sum is
// normalized by number of inputs and scaled by level.
type Mixer struct {
	*Params
	name string
}

// NewMixer returns a new mixer with unit level.
func NewMixer(name string) *Mixer {
	return &Mixer{
		Params: NewParams(ParamSpec{Name: MixerLevel, Min: 0, Max: 2, Default: 1}),
		name:   name,
	}
}

// Name returns mixer name.
func (m *Mixer) Name() string {
	return m.name
}

// Process mixes single input into out.
func (m *Mixer) Process(in, out Buffer) {
	if in == nil {
		out.Silence()
		return
	}
	m.Mix(out, in)
}

// Mix sums inputs into out. Inputs with fewer channels are spread over
// output channels. Frames missing in shorter inputs are treated as
// silence.
func (m *Mixer) Mix(out Buffer, inputs ...Buffer) {
	out.Silence()
	signals := 0
	for _, in := range inputs {
		if len(in) == 0 {
			continue
		}
		signals++
		for c := range out {
			src := in[c%len(in)]
			n := min(len(src), len(out[c]))
			if n == 0 {
				continue
			}
			vek.Add_Inplace(out[c][:n], src[:n])
		}
	}
	if signals == 0 {
		return
	}
	gain := m.Load(0) / float64(signals)
	for c := range out {
		if len(out[c]) > 0 {
			vek.MulNumber_Inplace(out[c], gain)
		}
	}
}
