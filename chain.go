package rack

import (
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"

	"github.com/rs/xid"

	"github.com/pipelined/rack/metric"
)

// Builder accumulates units of the chain. Builder is a value: each call
// returns a new builder and never changes the receiver.
type Builder struct {
	options []Option
	units   []Unit
	err     error
}

// Chain is an ordered signal path of units terminated by a mixer. Shape of
// the chain is immutable, only parameters and notes can be changed.
type Chain struct {
	uid        string
	units      []Unit
	mixer      *Mixer
	bufferSize int
	channels   int
	sampleRate int
	metricName string

	stages [2]block // ping-pong buffers for stages
	out    block    // mixer output
	meter  metric.MeasureFunc
	faults atomic.Int64
}

// NewBuilder returns a builder for a new chain.
func NewBuilder(options ...Option) Builder {
	return Builder{options: options}
}

// Link starts the chain with the source unit. Units linked before are
// discarded.
func (b Builder) Link(source Unit) Builder {
	return Builder{options: b.options, err: b.err}.To(source)
}

// To appends a processing stage which receives output of the previous
// stage.
func (b Builder) To(u Unit) Builder {
	if u == nil && b.err == nil {
		b.err = fmt.Errorf("stage %d: %w", len(b.units), ErrNilUnit)
	}
	units := make([]Unit, len(b.units), len(b.units)+1)
	copy(units, b.units)
	b.units = append(units, u)
	return b
}

// ToMixer terminates the chain with mixer and binds all stages together.
// A unit belongs to a single chain: units bound to another chain result in
// ErrUnitInUse until that chain is released.
func (b Builder) ToMixer() (*Chain, error) {
	if b.err != nil {
		return nil, b.err
	}
	if len(b.units) == 0 {
		return nil, ErrEmptyChain
	}
	names := make(map[string]struct{}, len(b.units))
	for _, u := range b.units {
		if _, ok := names[u.Name()]; ok {
			return nil, fmt.Errorf("unit %q: %w", u.Name(), ErrDuplicateName)
		}
		names[u.Name()] = struct{}{}
	}
	c := &Chain{
		uid:        xid.New().String(),
		units:      b.units,
		mixer:      NewMixer("mixer"),
		bufferSize: DefaultBufferSize,
		channels:   DefaultChannels,
		sampleRate: DefaultSampleRate,
	}
	for _, option := range b.options {
		if err := option(c); err != nil {
			return nil, err
		}
	}
	for i := range c.stages {
		c.stages[i] = newBlock(c.channels, c.bufferSize)
	}
	c.out = newBlock(c.channels, c.bufferSize)
	if err := owners.claim(c); err != nil {
		return nil, err
	}
	if c.metricName != "" {
		c.meter = metric.Meter(c.metricName, c.sampleRate)
	}
	return c, nil
}

// Render walks all stages once and returns the mixer output with exactly
// frames per channel. Returned buffer is valid until the next call. Render
// must be called from a single render schedule. Panic in any unit results
// in silence for the block.
func (c *Chain) Render(frames int) (out Buffer) {
	defer func() {
		if r := recover(); r != nil {
			c.faults.Add(1)
			out = c.out.frames(frames)
			out.Silence()
		}
	}()
	var in Buffer
	for i, u := range c.units {
		dst := c.stages[i%2].frames(frames)
		u.Process(in, dst)
		in = dst
	}
	out = c.out.frames(frames)
	c.mixer.Process(in, out)
	if c.meter != nil {
		c.meter(int64(len(out[0])))
	}
	return out
}

// Release unbinds units from the chain, so they can be linked into a new
// one. Released chain must not be rendered anymore.
func (c *Chain) Release() {
	owners.release(c)
}

// registry binds units to chains which own them.
type registry struct {
	sync.Mutex
	m map[Unit]string
}

var owners = registry{m: make(map[Unit]string)}

// claim binds all units of the chain or none of them.
func (r *registry) claim(c *Chain) error {
	r.Lock()
	defer r.Unlock()
	for _, u := range c.units {
		if !reflect.TypeOf(u).Comparable() {
			continue
		}
		if id, ok := r.m[u]; ok {
			return fmt.Errorf("unit %q owned by chain %s: %w", u.Name(), id, ErrUnitInUse)
		}
	}
	for _, u := range c.units {
		if reflect.TypeOf(u).Comparable() {
			r.m[u] = c.uid
		}
	}
	return nil
}

func (r *registry) release(c *Chain) {
	r.Lock()
	defer r.Unlock()
	for _, u := range c.units {
		if reflect.TypeOf(u).Comparable() && r.m[u] == c.uid {
			delete(r.m, u)
		}
	}
}

// ID returns unique id of the chain.
func (c *Chain) ID() string {
	return c.uid
}

// Head returns the source unit of the chain.
func (c *Chain) Head() Unit {
	return c.units[0]
}

// Instrument returns the head of the chain if it accepts notes. Otherwise
// nil is returned.
func (c *Chain) Instrument() Instrument {
	if i, ok := c.units[0].(Instrument); ok {
		return i
	}
	return nil
}

// Units returns stages of the chain in signal order.
func (c *Chain) Units() []Unit {
	units := make([]Unit, len(c.units))
	copy(units, c.units)
	return units
}

// Unit returns stage by its name.
func (c *Chain) Unit(name string) (Unit, bool) {
	for _, u := range c.units {
		if u.Name() == name {
			return u, true
		}
	}
	return nil, false
}

// Len returns number of stages.
func (c *Chain) Len() int {
	return len(c.units)
}

// Mixer returns terminal mixer of the chain.
func (c *Chain) Mixer() *Mixer {
	return c.mixer
}

// Channels returns number of rendered channels.
func (c *Chain) Channels() int {
	return c.channels
}

// BufferSize returns number of pre-allocated frames.
func (c *Chain) BufferSize() int {
	return c.bufferSize
}

// SampleRate returns sample rate of the chain.
func (c *Chain) SampleRate() int {
	return c.sampleRate
}

// Faults returns number of blocks rendered as silence due to unit
// failure.
func (c *Chain) Faults() int64 {
	return c.faults.Load()
}

// String returns chain stages, i.e: osc -> filter -> mixer.
func (c *Chain) String() string {
	s := ""
	for _, u := range c.units {
		s += u.Name() + " -> "
	}
	return s + c.mixer.Name()
}
