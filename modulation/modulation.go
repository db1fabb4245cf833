// Package modulation automates a unit parameter with a periodic function
// of the frame counter.
package modulation

import (
	"fmt"
	"math"
	"sync/atomic"

	"github.com/pipelined/rack"
)

// DefaultRate is a phase increment per frame.
const DefaultRate = 0.03

// Option provides a way to set functional parameters to driver.
type Option func(*Driver) error

// WithRate sets phase increment per frame.
func WithRate(rate float64) Option {
	return func(d *Driver) error {
		if !(rate > 0) || math.IsInf(rate, 0) {
			return fmt.Errorf("rate %v must be positive", rate)
		}
		d.rate = rate
		return nil
	}
}

// WithRange sets output range of the driver. It must be within the
// parameter range.
func WithRange(lo, hi float64) Option {
	return func(d *Driver) error {
		if lo > hi || lo < d.spec.Min || hi > d.spec.Max {
			return fmt.Errorf("%w: range [%v, %v] outside %s [%v, %v]",
				rack.ErrInvalidParameter, lo, hi, d.spec.Name, d.spec.Min, d.spec.Max)
		}
		d.lo, d.hi = lo, hi
		return nil
	}
}

// WithFunc sets periodic function. Its output is expected in [-1, 1],
// values outside are clamped.
func WithFunc(fn func(float64) float64) Option {
	return func(d *Driver) error {
		if fn == nil {
			return fmt.Errorf("nil modulation function")
		}
		d.fn = fn
		return nil
	}
}

// Driver computes value = MapRange(fn(frame * rate), -1, 1, lo, hi) and
// sets it to the target parameter once per frame. Its only state is the
// frame counter.
type Driver struct {
	target rack.Unit
	spec   rack.ParamSpec
	rate   float64
	lo, hi float64
	fn     func(float64) float64
	frame  atomic.Int64
}

// New returns driver for the parameter of target unit. By default the
// whole parameter range is swept with sine.
func New(target rack.Unit, param string, options ...Option) (*Driver, error) {
	if target == nil {
		return nil, fmt.Errorf("modulation: %w", rack.ErrNilUnit)
	}
	d := &Driver{
		target: target,
		rate:   DefaultRate,
		fn:     math.Sin,
	}
	var found bool
	for _, s := range target.Specs() {
		if s.Name == param {
			d.spec, found = s, true
			break
		}
	}
	if !found {
		return nil, fmt.Errorf("%w: unit %q has no %q", rack.ErrInvalidParameter, target.Name(), param)
	}
	d.lo, d.hi = d.spec.Min, d.spec.Max
	for _, option := range options {
		if err := option(d); err != nil {
			return nil, err
		}
	}
	return d, nil
}

// ValueAt returns value for the frame.
func (d *Driver) ValueAt(frame int64) float64 {
	return MapRange(d.fn(float64(frame)*d.rate), -1, 1, d.lo, d.hi)
}

// Tick applies value of the current frame and advances the counter.
func (d *Driver) Tick() (float64, error) {
	frame := d.frame.Add(1) - 1
	v := d.ValueAt(frame)
	if err := d.target.SetParameter(d.spec.Name, v); err != nil {
		return v, fmt.Errorf("frame %d: %w", frame, err)
	}
	return v, nil
}

// Frame returns number of ticks since start or reset.
func (d *Driver) Frame() int64 {
	return d.frame.Load()
}

// Reset rewinds the frame counter.
func (d *Driver) Reset() {
	d.frame.Store(0)
}

// Target returns modulated unit and parameter names.
func (d *Driver) Target() (unit, param string) {
	return d.target.Name(), d.spec.Name
}

// MapRange linearly maps v from [inLo, inHi] to [outLo, outHi]. Result is
// clamped to the output range.
func MapRange(v, inLo, inHi, outLo, outHi float64) float64 {
	if inHi == inLo {
		return outLo
	}
	r := outLo + (v-inLo)/(inHi-inLo)*(outHi-outLo)
	lo, hi := math.Min(outLo, outHi), math.Max(outLo, outHi)
	return math.Max(lo, math.Min(hi, r))
}
