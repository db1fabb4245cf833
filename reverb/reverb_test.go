package reverb_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pipelined/rack"
	"github.com/pipelined/rack/reverb"
)

func TestTail(t *testing.T) {
	const sampleRate = 8000
	r := reverb.New("reverb", sampleRate)
	assert.NoError(t, r.SetParameter(reverb.Wet, 1))

	impulse := rack.NewBuffer(1, sampleRate)
	impulse[0][0] = 1
	out := rack.NewBuffer(2, sampleRate)
	r.Process(impulse, out)

	// dry signal is fully replaced, impulse is delayed into the tail
	assert.Equal(t, 0.0, out[0][0])
	var energy float64
	for _, s := range out[0][1:] {
		energy += s * s
	}
	assert.Greater(t, energy, 0.0)
	assert.Equal(t, out[0], out[1])
}

func TestDry(t *testing.T) {
	r := reverb.New("reverb", 8000)
	assert.NoError(t, r.SetParameter(reverb.Wet, 0))
	in := rack.Buffer{{0.5, -0.5, 0.25}}
	out := rack.NewBuffer(1, 3)
	r.Process(in, out)
	assert.Equal(t, in, out)

	r.Process(nil, out)
	assert.Equal(t, rack.Buffer{{0, 0, 0}}, out)
}

func TestRoom(t *testing.T) {
	r := reverb.New("reverb", 8000)
	assert.NoError(t, r.SetParameter(reverb.Room, 0.05))
	assert.ErrorIs(t, r.SetParameter(reverb.Room, 0), rack.ErrInvalidParameter)
	assert.ErrorIs(t, r.SetParameter(reverb.Feedback, 1), rack.ErrInvalidParameter)
	out := rack.NewBuffer(1, 100)
	r.Process(rack.NewBuffer(1, 100), out)
	assert.Equal(t, "reverb", r.Name())
}
