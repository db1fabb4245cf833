// Package mock provides units which record calls, to test chains and
// controllers.
package mock

import (
	"sync"

	"github.com/pipelined/rack"
)

type (
	// Unit is a unit with configurable parameters. It adds Value to every
	// input sample. Head unit outputs Value.
	Unit struct {
		*rack.Params
		UnitName string
		Value    float64
		Panic    bool // panic on process

		mu        sync.Mutex
		processed int
	}

	// Note is a recorded note event.
	Note struct {
		On      bool
		Channel int
		Pitch   int
	}

	// Instrument records note events in order.
	Instrument struct {
		Unit
		// Error is returned by note calls, when set.
		Error error

		notesMu sync.Mutex
		notes   []Note
	}
)

// Gain is a parameter of mock units.
const Gain = "gain"

// NewUnit returns unit with a single gain parameter in range [0, 1].
func NewUnit(name string, value float64) *Unit {
	return &Unit{
		Params:   rack.NewParams(rack.ParamSpec{Name: Gain, Min: 0, Max: 1, Default: 1}),
		UnitName: name,
		Value:    value,
	}
}

// NewInstrument returns recording instrument.
func NewInstrument(name string) *Instrument {
	return &Instrument{
		Unit: Unit{
			Params:   rack.NewParams(rack.ParamSpec{Name: Gain, Min: 0, Max: 1, Default: 1}),
			UnitName: name,
			Value:    1,
		},
	}
}

// Name returns unit name.
func (u *Unit) Name() string {
	return u.UnitName
}

// Process adds value to every input sample.
func (u *Unit) Process(in, out rack.Buffer) {
	if u.Panic {
		panic("mock unit failure")
	}
	u.mu.Lock()
	u.processed++
	u.mu.Unlock()
	for c := range out {
		for i := range out[c] {
			var s float64
			if in != nil {
				s = in[c%len(in)][i]
			}
			out[c][i] = s + u.Value
		}
	}
}

// Processed returns number of processed blocks.
func (u *Unit) Processed() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.processed
}

// NoteOn records note on event.
func (i *Instrument) NoteOn(channel, pitch int) error {
	return i.record(Note{On: true, Channel: channel, Pitch: pitch})
}

// NoteOff records note off event.
func (i *Instrument) NoteOff(channel, pitch int) error {
	return i.record(Note{On: false, Channel: channel, Pitch: pitch})
}

func (i *Instrument) record(n Note) error {
	if i.Error != nil {
		return i.Error
	}
	if err := rack.ValidateNote(n.Channel, n.Pitch); err != nil {
		return err
	}
	i.notesMu.Lock()
	defer i.notesMu.Unlock()
	i.notes = append(i.notes, n)
	return nil
}

// Notes returns recorded events in order.
func (i *Instrument) Notes() []Note {
	i.notesMu.Lock()
	defer i.notesMu.Unlock()
	notes := make([]Note, len(i.notes))
	copy(notes, i.notes)
	return notes
}

// Count returns number of note on and note off events.
func (i *Instrument) Count() (on, off int) {
	for _, n := range i.Notes() {
		if n.On {
			on++
		} else {
			off++
		}
	}
	return
}

// Reset clears recorded events.
func (i *Instrument) Reset() {
	i.notesMu.Lock()
	defer i.notesMu.Unlock()
	i.notes = nil
}
