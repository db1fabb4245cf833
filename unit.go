package rack

import "fmt"

// Note ranges accepted by instruments. Channels are 1-based.
const (
	MinChannel = 1
	MaxChannel = 16
	MinPitch   = 0
	MaxPitch   = 127
)

type (
	// Unit is a single audio processing node with named parameters.
	// Parameter access must be safe to call while Process runs
	// concurrently.
	Unit interface {
		// Name is a stable identity of the unit within its chain.
		Name() string
		SetParameter(name string, value float64) error
		Parameter(name string) (float64, error)
		Specs() []ParamSpec
		// Process renders out from in. In is nil for the head of the
		// chain. Out is always sized to the requested frame count and
		// must be fully written. Process is called on the render
		// schedule only.
		Process(in, out Buffer)
	}

	// Instrument is a unit which accepts note events. Note off for a
	// pitch which isn't sounding is a no-op.
	Instrument interface {
		Unit
		NoteOn(channel, pitch int) error
		NoteOff(channel, pitch int) error
	}

	// Renderer produces output blocks on the render schedule.
	Renderer interface {
		Render(frames int) Buffer
	}
)

// ValidateNote checks channel and pitch ranges.
func ValidateNote(channel, pitch int) error {
	if channel < MinChannel || channel > MaxChannel {
		return fmt.Errorf("%w: channel %d", ErrInvalidNote, channel)
	}
	if pitch < MinPitch || pitch > MaxPitch {
		return fmt.Errorf("%w: pitch %d", ErrInvalidNote, pitch)
	}
	return nil
}

// Snapshot captures current parameter values of the unit.
func Snapshot(u Unit) map[string]float64 {
	specs := u.Specs()
	values := make(map[string]float64, len(specs))
	for _, s := range specs {
		if v, err := u.Parameter(s.Name); err == nil {
			values[s.Name] = v
		}
	}
	return values
}
