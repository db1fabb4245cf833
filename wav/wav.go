// Package wav encodes rendered blocks into wav files.
package wav

import (
	"errors"
	"fmt"
	"io"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/pipelined/rack"
)

// ErrUnsupportedBitDepth is returned when unsupported bit depth is used.
var ErrUnsupportedBitDepth = errors.New("only 16 and 32 bit depth is supported")

// pcm is wav audio format of integer samples.
const pcm = 1

// Sink encodes blocks into wav stream. Samples outside of [-1, 1] are
// clipped.
type Sink struct {
	encoder  *wav.Encoder
	channels int
	max      float64
	ib       *audio.IntBuffer
	frames   int64
}

// NewSink creates new wav sink which writes into ws. Header is written
// on Close.
func NewSink(ws io.WriteSeeker, sampleRate, channels, bitDepth int) (*Sink, error) {
	switch bitDepth {
	case 16, 32:
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedBitDepth, bitDepth)
	}
	if sampleRate <= 0 || channels <= 0 {
		return nil, fmt.Errorf("invalid format: %d Hz, %d channels", sampleRate, channels)
	}
	return &Sink{
		encoder:  wav.NewEncoder(ws, sampleRate, bitDepth, channels, pcm),
		channels: channels,
		max:      float64(int64(1)<<(bitDepth-1) - 1),
		ib: &audio.IntBuffer{
			Format: &audio.Format{
				NumChannels: channels,
				SampleRate:  sampleRate,
			},
			SourceBitDepth: bitDepth,
		},
	}, nil
}

// Write encodes the block. Buffers with fewer channels are spread over
// sink channels.
func (s *Sink) Write(b rack.Buffer) error {
	if b.NumChannels() == 0 {
		return nil
	}
	size := b.Size()
	if cap(s.ib.Data) < size*s.channels {
		s.ib.Data = make([]int, size*s.channels)
	}
	s.ib.Data = s.ib.Data[:size*s.channels]
	for i := 0; i < size; i++ {
		for c := 0; c < s.channels; c++ {
			v := b[c%len(b)][i]
			v = max(-1, min(1, v))
			s.ib.Data[i*s.channels+c] = int(v * s.max)
		}
	}
	s.frames += int64(size)
	return s.encoder.Write(s.ib)
}

// Frames returns number of written frames.
func (s *Sink) Frames() int64 {
	return s.frames
}

// Close flushes encoder and writes header. Underlying writer isn't
// closed.
func (s *Sink) Close() error {
	return s.encoder.Close()
}
