// Package portaudio plays rendered signal with default output device.
package portaudio

import (
	"errors"

	"github.com/gordonklaus/portaudio"

	"github.com/pipelined/rack"
)

// Output pulls blocks from renderer in portaudio callback. Renderer is
// called on the audio thread.
type Output struct {
	stream   *portaudio.Stream
	renderer rack.Renderer
}

// Open initializes portaudio and starts default output stream.
func Open(r rack.Renderer, sampleRate, channels, framesPerBuffer int) (*Output, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, err
	}
	o := &Output{renderer: r}
	stream, err := portaudio.OpenDefaultStream(0, channels, float64(sampleRate), framesPerBuffer, o.process)
	if err != nil {
		return nil, errors.Join(err, portaudio.Terminate())
	}
	if err := stream.Start(); err != nil {
		return nil, errors.Join(err, stream.Close(), portaudio.Terminate())
	}
	o.stream = stream
	return o, nil
}

func (o *Output) process(out [][]float32) {
	if len(out) == 0 {
		return
	}
	b := o.renderer.Render(len(out[0]))
	for c := range out {
		for i := range out[c] {
			if len(b) == 0 {
				out[c][i] = 0
				continue
			}
			out[c][i] = float32(b[c%len(b)][i])
		}
	}
}

// Close stops the stream and terminates portaudio.
func (o *Output) Close() error {
	return errors.Join(o.stream.Stop(), o.stream.Close(), portaudio.Terminate())
}
