// Package session binds manager, clock, transport and modulation into a
// playable rig. It's the control schedule of the rack: hosts deliver keys
// and frames to the session and pull audio from it.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/pipelined/rack"
	"github.com/pipelined/rack/clock"
	"github.com/pipelined/rack/metric"
	"github.com/pipelined/rack/modulation"
	"github.com/pipelined/rack/transport"
)

// Keys claimed by session. All other keys are passed to manager.
const (
	KeyTogglePlaying = ' '
	KeyNoteDown      = '['
	KeyNoteUp        = ']'
)

// DefaultFPS is a frame rate of modulation.
const DefaultFPS = 60

// Option provides a way to set functional parameters to session.
type Option func(*Session) error

// WithSampleRate sets sample rate used to convert rendered frames into
// transport time.
func WithSampleRate(sampleRate int) Option {
	return func(s *Session) error {
		if sampleRate <= 0 {
			return fmt.Errorf("sample rate %d must be positive", sampleRate)
		}
		s.sampleRate = sampleRate
		return nil
	}
}

// WithModulation adds modulation driver ticked once per frame.
func WithModulation(d *modulation.Driver) Option {
	return func(s *Session) error {
		s.driver = d
		return nil
	}
}

// WithLogger sets logger to session.
func WithLogger(l rack.Logger) Option {
	return func(s *Session) error {
		if l == nil {
			l = rack.SilentLogger{}
		}
		s.log = l
		return nil
	}
}

// Session is a rig of chains driven by clock. Transport is subscribed to
// clock beats for the session lifetime.
type Session struct {
	manager     *rack.Manager
	clock       *clock.Clock
	transport   *transport.Transport
	driver      *modulation.Driver
	sampleRate  int
	log         rack.Logger
	unsubscribe func()
}

// New creates session and subscribes transport to the clock.
func New(m *rack.Manager, c *clock.Clock, t *transport.Transport, options ...Option) (*Session, error) {
	if m == nil || c == nil || t == nil {
		return nil, errors.New("session requires manager, clock and transport")
	}
	s := &Session{
		manager:    m,
		clock:      c,
		transport:  t,
		sampleRate: rack.DefaultSampleRate,
		log:        rack.SilentLogger{},
	}
	for _, option := range options {
		if err := option(s); err != nil {
			return nil, err
		}
	}
	s.unsubscribe = c.Subscribe(t.Beat)
	return s, nil
}

// Manager returns manager of the session.
func (s *Session) Manager() *rack.Manager {
	return s.manager
}

// Clock returns clock of the session.
func (s *Session) Clock() *clock.Clock {
	return s.clock
}

// Transport returns transport of the session.
func (s *Session) Transport() *transport.Transport {
	return s.transport
}

// Start starts the clock.
func (s *Session) Start() {
	s.clock.Start()
}

// Render renders all chains of manager. It's called on the render
// schedule.
func (s *Session) Render(frames int) rack.Buffer {
	return s.manager.Render(frames)
}

// Key dispatches key press. It returns false if key wasn't claimed.
func (s *Session) Key(key rune) (bool, error) {
	var err error
	switch key {
	case KeyTogglePlaying:
		err = s.transport.TogglePlaying()
	case KeyNoteDown:
		err = s.transport.Shift(-1)
	case KeyNoteUp:
		err = s.transport.Shift(1)
	default:
		return s.manager.KeyPressed(key), nil
	}
	if err != nil {
		s.log.Warn(fmt.Sprintf("key %q: %v", key, err))
	}
	return true, err
}

// Frame advances modulation by one frame.
func (s *Session) Frame() error {
	if s.driver == nil {
		return nil
	}
	_, err := s.driver.Tick()
	return err
}

// Offline renders frames in blocks without wall clock. Before every block
// the clock is advanced by the duration of the previous block and
// modulation is ticked as many times as fps frames elapsed. Rendered
// blocks are passed to sink.
func (s *Session) Offline(frames, blockSize, fps int, sink func(rack.Buffer) error) error {
	if blockSize <= 0 || fps <= 0 {
		return fmt.Errorf("block size %d and fps %d must be positive", blockSize, fps)
	}
	var (
		pos  int64
		last time.Duration
	)
	for pos < int64(frames) {
		n := min(int64(blockSize), int64(frames)-pos)
		// integer positions keep clock and frames free of drift
		at := metric.DurationOf(s.sampleRate, pos)
		s.clock.Advance(at - last)
		last = at
		for f := pos * int64(fps) / int64(s.sampleRate); f < (pos+n)*int64(fps)/int64(s.sampleRate); f++ {
			if err := s.Frame(); err != nil {
				return err
			}
		}
		if err := sink(s.manager.Render(int(n))); err != nil {
			return fmt.Errorf("sink at frame %d: %w", pos, err)
		}
		pos += n
	}
	s.clock.Advance(metric.DurationOf(s.sampleRate, pos) - last)
	return nil
}

// Run advances clock with wall time and ticks modulation fps times per
// second until context is done. Done context isn't reported as error.
func (s *Session) Run(ctx context.Context, fps int, tick time.Duration) error {
	if fps <= 0 {
		return fmt.Errorf("fps %d must be positive", fps)
	}
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.clock.Run(ctx, tick)
	})
	g.Go(func() error {
		t := time.NewTicker(time.Second / time.Duration(fps))
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-t.C:
				if err := s.Frame(); err != nil {
					s.log.Warn(fmt.Sprintf("modulation: %v", err))
				}
			}
		}
	})
	err := g.Wait()
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	return err
}

// Close stops the clock, unsubscribes transport and saves presets of all
// chains.
func (s *Session) Close() error {
	s.clock.Stop()
	s.unsubscribe()
	if s.transport.Playing() {
		if err := s.transport.TogglePlaying(); err != nil {
			s.log.Warn(fmt.Sprintf("stop transport: %v", err))
		}
	}
	return s.manager.Exit()
}
