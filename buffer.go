package rack

// Buffer holds non-interleaved samples. First dimension is channel.
type Buffer [][]float64

// NewBuffer allocates a zeroed buffer.
func NewBuffer(numChannels, size int) Buffer {
	b := make(Buffer, numChannels)
	for i := range b {
		b[i] = make([]float64, size)
	}
	return b
}

// NumChannels returns number of channels.
func (b Buffer) NumChannels() int {
	return len(b)
}

// Size returns number of frames per channel.
func (b Buffer) Size() int {
	if len(b) == 0 {
		return 0
	}
	return len(b[0])
}

// Silence zeroes all samples.
func (b Buffer) Silence() {
	for i := range b {
		clear(b[i])
	}
}

// block is a pre-allocated buffer with a reusable view. Resizing the view
// doesn't allocate unless capacity is exceeded.
type block struct {
	data Buffer
	view Buffer
}

func newBlock(numChannels, size int) block {
	return block{
		data: NewBuffer(numChannels, size),
		view: make(Buffer, numChannels),
	}
}

// frames returns view of the block with provided frames per channel.
func (b *block) frames(n int) Buffer {
	if n < 0 {
		n = 0
	}
	if b.data.Size() < n {
		b.data = NewBuffer(len(b.data), n)
	}
	for i := range b.view {
		b.view[i] = b.data[i][:n]
	}
	return b.view
}
