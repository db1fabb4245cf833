// Package clock provides a tempo-driven beat clock. Beat times are
// computed from the beat index within a tempo, so chunked or irregular
// advances never drop or duplicate beats and rounding doesn't accumulate
// from beat to beat.
package clock

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"
)

// ErrInvalidTempo is returned when tempo is not positive.
var ErrInvalidTempo = errors.New("invalid tempo")

// DefaultTempo is a tempo of new clock, in beats per minute.
const DefaultTempo = 120.0

// Beat is emitted every time phase crosses a beat boundary.
type Beat struct {
	// Index is a number of beat since start, starting with 1.
	Index int64
	// At is transport time of the beat since start.
	At time.Duration
}

type subscriber struct {
	id int
	fn func(Beat)
}

// Clock fires beat events to subscribers while running. Clock is safe for
// concurrent use, but subscribers are called from the goroutine which
// advances the clock.
type Clock struct {
	mu      sync.Mutex
	running bool
	gen     uint64  // changed by every start and stop
	tempo   float64 // most recently set tempo
	bpm     float64 // tempo of current segment

	// current segment starts at anchor, after anchorBeats beats
	anchor      time.Duration
	anchorBeats int64

	elapsed time.Duration // transport time since start
	beats   int64
	subs    []subscriber
	nextID  int
}

// New returns stopped clock.
func New(bpm float64) (*Clock, error) {
	c := &Clock{}
	if err := c.SetTempo(bpm); err != nil {
		return nil, err
	}
	c.bpm = c.tempo
	return c, nil
}

// Period returns length of the beat at provided tempo, rounded to
// nanoseconds.
func Period(bpm float64) time.Duration {
	return time.Duration(float64(time.Minute) / bpm)
}

// offset returns time of n-th beat within a segment at provided tempo.
func offset(n int64, bpm float64) time.Duration {
	return time.Duration(math.Round(float64(n) * float64(time.Minute) / bpm))
}

// SetTempo changes tempo. While running, new tempo takes effect after the
// current beat interval is completed.
func (c *Clock) SetTempo(bpm float64) error {
	if !(bpm > 0) || Period(bpm) <= 0 {
		return fmt.Errorf("%w: %v", ErrInvalidTempo, bpm)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tempo = bpm
	if !c.running {
		c.bpm = bpm
	}
	return nil
}

// Tempo returns most recently set tempo.
func (c *Clock) Tempo() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tempo
}

// Start resets transport time and starts emitting beats. First beat is
// emitted one period after start. Start of running clock is a no-op.
func (c *Clock) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		return
	}
	c.running = true
	c.gen++
	c.bpm = c.tempo
	c.anchor = 0
	c.anchorBeats = 0
	c.elapsed = 0
	c.beats = 0
}

// Stop halts beat emission. Partial beat is never fired, beats pending
// delivery in a concurrent Advance are dropped.
func (c *Clock) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.running = false
	c.gen++
}

// Running returns true if clock is started.
func (c *Clock) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// Elapsed returns transport time since start.
func (c *Clock) Elapsed() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.elapsed
}

// Beats returns number of beats fired since start.
func (c *Clock) Beats() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.beats
}

// Subscribe adds beat listener. Returned function removes it.
func (c *Clock) Subscribe(fn func(Beat)) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextID
	c.nextID++
	c.subs = append(c.subs, subscriber{id: id, fn: fn})
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		for i, s := range c.subs {
			if s.id == id {
				c.subs = append(c.subs[:i:i], c.subs[i+1:]...)
				return
			}
		}
	}
}

// Advance moves transport time forward and fires every crossed beat in
// order. Delivery stops as soon as the clock is stopped or restarted. It
// returns number of fired beats.
func (c *Clock) Advance(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return 0
	}
	c.elapsed += d
	var beats []Beat
	for {
		next := c.anchor + offset(c.beats-c.anchorBeats+1, c.bpm)
		if next > c.elapsed {
			break
		}
		c.beats++
		beats = append(beats, Beat{Index: c.beats, At: next})
		if c.tempo != c.bpm {
			c.anchor, c.anchorBeats, c.bpm = next, c.beats, c.tempo
		}
	}
	gen := c.gen
	subs := c.subs
	c.mu.Unlock()

	fired := 0
	for _, b := range beats {
		if !c.current(gen) {
			break
		}
		for _, s := range subs {
			s.fn(b)
		}
		fired++
	}
	return fired
}

func (c *Clock) current(gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running && c.gen == gen
}

// Run advances the clock with wall time on every tick until context is
// done.
func (c *Clock) Run(ctx context.Context, tick time.Duration) error {
	t := time.NewTicker(tick)
	defer t.Stop()
	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-t.C:
			c.Advance(now.Sub(last))
			last = now
		}
	}
}
