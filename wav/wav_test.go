package wav_test

import (
	"os"
	"path/filepath"
	"testing"

	gowav "github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pipelined/rack"
	"github.com/pipelined/rack/wav"
)

func TestSink(t *testing.T) {
	tests := []struct {
		bitDepth int
		max      int
	}{
		{bitDepth: 16, max: 1<<15 - 1},
		{bitDepth: 32, max: 1<<31 - 1},
	}
	for _, test := range tests {
		path := filepath.Join(t.TempDir(), "out.wav")
		f, err := os.Create(path)
		require.NoError(t, err)

		s, err := wav.NewSink(f, 44100, 2, test.bitDepth)
		require.NoError(t, err)
		b := rack.NewBuffer(2, 10)
		for i := range b[0] {
			b[0][i] = 1
			b[1][i] = -2 // clipped
		}
		require.NoError(t, s.Write(b))
		require.NoError(t, s.Write(b[:1]))
		assert.Equal(t, int64(20), s.Frames())
		require.NoError(t, s.Close())
		require.NoError(t, f.Close())

		f, err = os.Open(path)
		require.NoError(t, err)
		d := gowav.NewDecoder(f)
		buf, err := d.FullPCMBuffer()
		require.NoError(t, err)
		assert.Equal(t, 2, buf.Format.NumChannels)
		assert.Equal(t, 44100, buf.Format.SampleRate)
		assert.Equal(t, test.bitDepth, int(d.BitDepth))
		assert.Len(t, buf.Data, 40)
		assert.Equal(t, test.max, buf.Data[0])
		assert.Equal(t, -test.max, buf.Data[1])
		// mono block is spread over channels
		assert.Equal(t, test.max, buf.Data[21])
		require.NoError(t, f.Close())
	}
}

func TestUnsupportedBitDepth(t *testing.T) {
	f, err := os.Create(filepath.Join(t.TempDir(), "out.wav"))
	require.NoError(t, err)
	defer f.Close()
	_, err = wav.NewSink(f, 44100, 2, 24)
	assert.ErrorIs(t, err, wav.ErrUnsupportedBitDepth)
}
