// Package record captures note events of an instrument into standard MIDI
// files.
package record

import (
	"fmt"
	"io"
	"sync"
	"time"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/pipelined/rack"
)

// Resolution is a number of ticks per quarter note in written files.
const Resolution = 960

// DefaultVelocity is a velocity of recorded note on events.
const DefaultVelocity = 100

// Timer provides transport time and tempo. Clock implements it.
type Timer interface {
	Elapsed() time.Duration
	Tempo() float64
}

type event struct {
	at  time.Duration
	msg midi.Message
}

// Recorder forwards note events to the instrument and records every
// accepted one with transport time.
type Recorder struct {
	rack.Instrument
	timer Timer

	mu     sync.Mutex
	events []event
}

// New wraps instrument with recorder.
func New(inst rack.Instrument, timer Timer) *Recorder {
	return &Recorder{
		Instrument: inst,
		timer:      timer,
	}
}

// NoteOn forwards and records note on. Rejected notes aren't recorded.
func (r *Recorder) NoteOn(channel, pitch int) error {
	if err := r.Instrument.NoteOn(channel, pitch); err != nil {
		return err
	}
	// midi channels are 0-based
	r.record(midi.NoteOn(uint8(channel-1), uint8(pitch), DefaultVelocity))
	return nil
}

// NoteOff forwards and records note off.
func (r *Recorder) NoteOff(channel, pitch int) error {
	if err := r.Instrument.NoteOff(channel, pitch); err != nil {
		return err
	}
	r.record(midi.NoteOff(uint8(channel-1), uint8(pitch)))
	return nil
}

func (r *Recorder) record(msg midi.Message) {
	at := r.timer.Elapsed()
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event{at: at, msg: msg})
}

// Len returns number of recorded events.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

// Reset drops recorded events.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}

// WriteTo writes recorded events as a single track file at the current
// tempo of the timer.
func (r *Recorder) WriteTo(w io.Writer) (int64, error) {
	r.mu.Lock()
	events := make([]event, len(r.events))
	copy(events, r.events)
	r.mu.Unlock()

	bpm := r.timer.Tempo()
	ticks := smf.MetricTicks(Resolution)
	var tr smf.Track
	tr.Add(0, smf.MetaTempo(bpm))
	var last time.Duration
	for _, e := range events {
		// events are appended from a single control schedule, but keep
		// deltas non-negative anyway
		delta := max(e.at-last, 0)
		tr.Add(ticks.Ticks(bpm, delta), e.msg)
		last += delta
	}
	tr.Close(0)

	s := smf.New()
	s.TimeFormat = ticks
	if err := s.Add(tr); err != nil {
		return 0, fmt.Errorf("add track: %w", err)
	}
	return s.WriteTo(w)
}
