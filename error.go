package rack

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidParameter is returned when parameter name is unknown or
	// value is outside of the declared range.
	ErrInvalidParameter = errors.New("invalid parameter")
	// ErrInvalidNote is returned when note channel or pitch is out of range.
	ErrInvalidNote = errors.New("invalid note")
	// ErrNoteQueueFull is returned when render side didn't consume pending
	// note events yet.
	ErrNoteQueueFull = errors.New("note queue full")
	// ErrEmptyChain is returned when chain is finalized without units.
	ErrEmptyChain = errors.New("empty chain")
	// ErrNilUnit is returned when nil unit is linked into chain.
	ErrNilUnit = errors.New("nil unit")
	// ErrUnitInUse is returned when unit already belongs to another chain.
	ErrUnitInUse = errors.New("unit in use")
	// ErrDuplicateName is returned when name is already taken.
	ErrDuplicateName = errors.New("duplicate name")
	// ErrNotFound is returned when requested entity is not registered.
	ErrNotFound = errors.New("not found")
	// ErrPresetMismatch is returned when preset set doesn't match the chain.
	ErrPresetMismatch = errors.New("preset mismatch")
)

// PresetMismatchError is returned when preset set was applied only
// partially. All matching parameters are applied.
type PresetMismatchError struct {
	Preset   string
	Missing  []string // units present in the set but not in the chain
	Rejected []error  // parameters rejected by units
}

func (e *PresetMismatchError) Error() string {
	s := make([]string, 0, 2)
	if len(e.Missing) > 0 {
		s = append(s, fmt.Sprintf("missing units: %s", strings.Join(e.Missing, ",")))
	}
	if len(e.Rejected) > 0 {
		r := make([]string, 0, len(e.Rejected))
		for _, err := range e.Rejected {
			r = append(r, err.Error())
		}
		s = append(s, fmt.Sprintf("rejected: %s", strings.Join(r, ",")))
	}
	return fmt.Sprintf("preset %q mismatch: %s", e.Preset, strings.Join(s, "; "))
}

// Is checks if error matches preset mismatch or any of rejected errors.
func (e *PresetMismatchError) Is(err error) bool {
	if err == ErrPresetMismatch {
		return true
	}
	for _, r := range e.Rejected {
		if errors.Is(r, err) {
			return true
		}
	}
	return false
}

// ret returns untyped nil if nothing mismatched.
func (e *PresetMismatchError) ret() error {
	if len(e.Missing) > 0 || len(e.Rejected) > 0 {
		return e
	}
	return nil
}
