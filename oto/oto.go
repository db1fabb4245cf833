// Package oto plays rendered signal with oto.
package oto

import (
	"github.com/ebitengine/oto/v3"

	"github.com/pipelined/rack"
)

// Output plays rendered signal. Oto pulls the stream from its own
// goroutine, so renderer is called on the audio thread.
type Output struct {
	ctx    *oto.Context
	player *oto.Player
}

// Open creates oto context and starts playback of renderer.
func Open(r rack.Renderer, sampleRate, channels, bufferSize int) (*Output, error) {
	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: channels,
		Format:       oto.FormatFloat32LE,
	})
	if err != nil {
		return nil, err
	}
	<-ready
	player := ctx.NewPlayer(rack.NewStream(r, channels, bufferSize))
	player.Play()
	return &Output{
		ctx:    ctx,
		player: player,
	}, nil
}

// Close stops playback.
func (o *Output) Close() error {
	return o.player.Close()
}
