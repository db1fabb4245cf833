package rack

import (
	"encoding/binary"
	"io"
	"math"
)

// Stream reads rendered blocks as interleaved little-endian float32
// frames. It's the format of oto and ebiten audio players.
type Stream struct {
	r         Renderer
	channels  int
	blockSize int
}

// NewStream returns stream of provided renderer. Renderer is called with
// at most blockSize frames.
func NewStream(r Renderer, channels, blockSize int) *Stream {
	return &Stream{
		r:         r,
		channels:  max(channels, 1),
		blockSize: max(blockSize, 1),
	}
}

// Read renders as many whole frames as fit into p.
func (s *Stream) Read(p []byte) (int, error) {
	frameBytes := 4 * s.channels
	frames := len(p) / frameBytes
	if frames == 0 {
		return 0, io.ErrShortBuffer
	}
	n := 0
	for frames > 0 {
		size := min(frames, s.blockSize)
		b := s.r.Render(size)
		for i := 0; i < size; i++ {
			for c := 0; c < s.channels; c++ {
				var v float32
				if len(b) > 0 {
					v = float32(b[c%len(b)][i])
				}
				binary.LittleEndian.PutUint32(p[n:], math.Float32bits(v))
				n += 4
			}
		}
		frames -= size
	}
	return n, nil
}
