// Package transport sequences notes of an instrument on clock beats.
package transport

import (
	"fmt"
	"sync"

	"github.com/pipelined/rack"
	"github.com/pipelined/rack/clock"
)

const (
	// DefaultNote is a pitch played by new transport, middle C.
	DefaultNote = 60
	// DefaultChannel is a channel used for all note events.
	DefaultChannel = 1
)

// Option provides a way to set functional parameters to transport.
type Option func(*Transport) error

// WithNote sets initial pitch.
func WithNote(pitch int) Option {
	return func(t *Transport) error {
		if err := rack.ValidateNote(t.channel, pitch); err != nil {
			return err
		}
		t.note = pitch
		return nil
	}
}

// WithChannel sets note channel.
func WithChannel(channel int) Option {
	return func(t *Transport) error {
		if err := rack.ValidateNote(channel, t.note); err != nil {
			return err
		}
		t.channel = channel
		return nil
	}
}

// WithLogger sets logger to transport. Instrument errors on beats are
// reported with it.
func WithLogger(l rack.Logger) Option {
	return func(t *Transport) error {
		if l == nil {
			l = rack.SilentLogger{}
		}
		t.log = l
		return nil
	}
}

// Transport sends note on for the current pitch on every beat while
// playing. Notes are not released between beats, only stop releases the
// current pitch.
type Transport struct {
	mu      sync.Mutex
	inst    rack.Instrument
	channel int
	note    int
	playing bool
	log     rack.Logger
}

// New returns stopped transport for the instrument.
func New(inst rack.Instrument, options ...Option) (*Transport, error) {
	if inst == nil {
		return nil, fmt.Errorf("transport: %w", rack.ErrNilUnit)
	}
	t := &Transport{
		inst:    inst,
		channel: DefaultChannel,
		note:    DefaultNote,
		log:     rack.SilentLogger{},
	}
	for _, option := range options {
		if err := option(t); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// Beat triggers current pitch if transport is playing. It's meant to be
// subscribed to the clock.
func (t *Transport) Beat(b clock.Beat) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.playing {
		return
	}
	if err := t.inst.NoteOn(t.channel, t.note); err != nil {
		t.log.Warn(fmt.Sprintf("beat %d: %v", b.Index, err))
	}
}

// TogglePlaying flips playing state. Current pitch is released when
// transport stops.
func (t *Transport) TogglePlaying() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.playing = !t.playing
	if t.playing {
		return nil
	}
	return t.inst.NoteOff(t.channel, t.note)
}

// SetNote changes current pitch. If transport is playing, the old pitch
// is released first and new pitch sounds on the next beat. Invalid pitch
// is rejected and state is unchanged.
func (t *Transport) SetNote(pitch int) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.setNote(pitch)
}

// Shift moves current pitch by delta semitones.
func (t *Transport) Shift(delta int) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.setNote(t.note + delta)
}

func (t *Transport) setNote(pitch int) error {
	if err := rack.ValidateNote(t.channel, pitch); err != nil {
		return err
	}
	if t.playing {
		// stop, change, resume
		if err := t.inst.NoteOff(t.channel, t.note); err != nil {
			return err
		}
	}
	t.log.Debug(fmt.Sprintf("note %d -> %d", t.note, pitch))
	t.note = pitch
	return nil
}

// Playing returns true if transport is playing.
func (t *Transport) Playing() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.playing
}

// Note returns current pitch.
func (t *Transport) Note() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.note
}
