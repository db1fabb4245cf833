// Package osc provides a polyphonic noise and saw oscillator instrument.
package osc

import (
	"fmt"
	"math"

	"github.com/pipelined/rack"
	"github.com/pipelined/rack/internal/ring"
)

// Parameter names.
const (
	Volume     = "volume"
	Noise      = "noise"
	LFO2Rate   = "lfo2rate"
	LFO2Amount = "lfo2amount"
	Attack     = "attack"
	Release    = "release"
)

// indexes of parameters in declaration order.
const (
	volume = iota
	noise
	lfo2Rate
	lfo2Amount
	attack
	release
)

const (
	voices     = rack.MaxPitch + 1
	queueSize  = 256
	maxLFOHz   = 10.0
	maxVibrato = 0.06 // fraction of frequency at full lfo amount
	silence    = 1e-4
)

var specs = []rack.ParamSpec{
	{Name: Volume, Min: 0, Max: 1, Default: 0.5},
	{Name: Noise, Min: 0, Max: 1, Default: 0.2},
	{Name: LFO2Rate, Min: 0, Max: 1, Default: 0.5},
	{Name: LFO2Amount, Min: 0, Max: 1, Default: 0.1},
	{Name: Attack, Min: 0.001, Max: 2, Default: 0.01},
	{Name: Release, Min: 0.001, Max: 5, Default: 0.3},
}

type voice struct {
	active bool
	gate   bool
	freq   float64
	phase  float64
	env    float64
}

// NoiseMaker is an instrument which mixes saw oscillator with white noise
// for each sounding pitch. Repeated note on retriggers the voice.
type NoiseMaker struct {
	*rack.Params
	name       string
	sampleRate float64
	events     *ring.Queue

	// render state
	voices   [voices]voice
	lfoPhase float64
	seed     uint32
}

// New returns a new instrument.
func New(name string, sampleRate int) *NoiseMaker {
	return &NoiseMaker{
		Params:     rack.NewParams(specs...),
		name:       name,
		sampleRate: float64(sampleRate),
		events:     ring.New(queueSize),
		seed:       2463534242,
	}
}

// Name returns instrument name.
func (n *NoiseMaker) Name() string {
	return n.name
}

// NoteOn starts a voice for the pitch.
func (n *NoiseMaker) NoteOn(channel, pitch int) error {
	return n.push(true, channel, pitch)
}

// NoteOff releases the voice for the pitch.
func (n *NoiseMaker) NoteOff(channel, pitch int) error {
	return n.push(false, channel, pitch)
}

func (n *NoiseMaker) push(on bool, channel, pitch int) error {
	if err := rack.ValidateNote(channel, pitch); err != nil {
		return err
	}
	if !n.events.Push(ring.Event{On: on, Channel: uint8(channel), Pitch: uint8(pitch)}) {
		return fmt.Errorf("%s: %w", n.name, rack.ErrNoteQueueFull)
	}
	return nil
}

// Sounding returns number of active voices. It's meant to be called on the
// render schedule or after render is stopped.
func (n *NoiseMaker) Sounding() int {
	s := 0
	for i := range n.voices {
		if n.voices[i].active {
			s++
		}
	}
	return s
}

// Process ignores the input and renders all sounding voices.
func (n *NoiseMaker) Process(_, out rack.Buffer) {
	n.drain()

	var (
		gain      = n.Load(volume) * 0.25
		noiseMix  = n.Load(noise)
		lfoStep   = n.Load(lfo2Rate) * maxLFOHz / n.sampleRate
		vibrato   = n.Load(lfo2Amount) * maxVibrato
		attackK   = coefficient(n.Load(attack), n.sampleRate)
		releaseK  = coefficient(n.Load(release), n.sampleRate)
		frames    = out.Size()
		hasVoices = n.Sounding() > 0
	)
	for i := 0; i < frames; i++ {
		mod := 1 + vibrato*math.Sin(2*math.Pi*n.lfoPhase)
		n.lfoPhase += lfoStep
		if n.lfoPhase >= 1 {
			n.lfoPhase -= math.Floor(n.lfoPhase)
		}
		var sample float64
		if hasVoices {
			white := n.white()
			for p := range n.voices {
				v := &n.voices[p]
				if !v.active {
					continue
				}
				saw := 2*v.phase - 1
				v.phase += v.freq * mod / n.sampleRate
				if v.phase >= 1 {
					v.phase -= math.Floor(v.phase)
				}
				if v.gate {
					v.env += (1 - v.env) * attackK
				} else {
					v.env -= v.env * releaseK
					if v.env < silence {
						v.active = false
						v.env = 0
					}
				}
				sample += (saw*(1-noiseMix) + white*noiseMix) * v.env
			}
		}
		sample *= gain
		for c := range out {
			out[c][i] = sample
		}
	}
}

// drain applies pending note events. Note off of silent pitch is ignored.
func (n *NoiseMaker) drain() {
	for {
		e, ok := n.events.Pop()
		if !ok {
			return
		}
		v := &n.voices[e.Pitch]
		if e.On {
			if !v.active {
				v.phase = 0
				v.env = 0
			}
			v.active = true
			v.gate = true
			v.freq = Frequency(int(e.Pitch))
			continue
		}
		if v.active {
			v.gate = false
		}
	}
}

// white returns next xorshift noise sample in [-1, 1).
func (n *NoiseMaker) white() float64 {
	n.seed ^= n.seed << 13
	n.seed ^= n.seed >> 17
	n.seed ^= n.seed << 5
	return float64(n.seed)/float64(math.MaxUint32)*2 - 1
}

// coefficient returns one-pole smoothing coefficient for the time in
// seconds.
func coefficient(seconds, sampleRate float64) float64 {
	return 1 - math.Exp(-1/(seconds*sampleRate))
}

// Frequency returns frequency of the equal-tempered pitch, A4 = 69 = 440Hz.
func Frequency(pitch int) float64 {
	return 440 * math.Pow(2, float64(pitch-69)/12)
}
