package rack

import (
	"fmt"
	"sort"
	"sync"
)

// DefaultPreset is the name of preset associated with newly registered
// chains.
const DefaultPreset = "default"

type (
	// PresetSet is a named snapshot of parameter values of chain units.
	// Units are keyed by unit name, parameters by parameter name.
	PresetSet struct {
		Name  string                        `yaml:"name"`
		Units map[string]map[string]float64 `yaml:"units"`
	}

	// PresetStore persists preset sets per chain. Load returns error
	// matching ErrNotFound if preset doesn't exist. Stores must be safe
	// for concurrent use.
	PresetStore interface {
		Load(chain, preset string) (PresetSet, error)
		Save(chain string, set PresetSet) error
		List(chain string) ([]string, error)
	}
)

// NewPresetSet captures parameters of provided units.
func NewPresetSet(name string, units ...Unit) PresetSet {
	s := PresetSet{
		Name:  name,
		Units: make(map[string]map[string]float64, len(units)),
	}
	for _, u := range units {
		s.Units[u.Name()] = Snapshot(u)
	}
	return s
}

// Copy returns a deep copy of preset set.
func (s PresetSet) Copy() PresetSet {
	c := PresetSet{
		Name:  s.Name,
		Units: make(map[string]map[string]float64, len(s.Units)),
	}
	for unit, params := range s.Units {
		p := make(map[string]float64, len(params))
		for k, v := range params {
			p[k] = v
		}
		c.Units[unit] = p
	}
	return c
}

// Apply sets parameters of provided units. Units and parameters which
// don't match are reported with PresetMismatchError, all others are
// applied.
func (s PresetSet) Apply(units ...Unit) error {
	byName := make(map[string]Unit, len(units))
	for _, u := range units {
		byName[u.Name()] = u
	}
	mismatch := &PresetMismatchError{Preset: s.Name}
	for _, name := range sortedKeys(s.Units) {
		u, ok := byName[name]
		if !ok {
			mismatch.Missing = append(mismatch.Missing, name)
			continue
		}
		params := s.Units[name]
		for _, param := range sortedKeys(params) {
			if err := u.SetParameter(param, params[param]); err != nil {
				mismatch.Rejected = append(mismatch.Rejected, fmt.Errorf("unit %q: %w", name, err))
			}
		}
	}
	return mismatch.ret()
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// memoryStore keeps preset sets in memory.
type memoryStore struct {
	sync.Mutex
	sets map[string]map[string]PresetSet
}

// NewMemoryStore returns preset store which keeps deep copies of preset
// sets in memory.
func NewMemoryStore() PresetStore {
	return &memoryStore{
		sets: make(map[string]map[string]PresetSet),
	}
}

func (s *memoryStore) Load(chain, preset string) (PresetSet, error) {
	s.Lock()
	defer s.Unlock()
	if set, ok := s.sets[chain][preset]; ok {
		return set.Copy(), nil
	}
	return PresetSet{}, fmt.Errorf("preset %q of chain %q: %w", preset, chain, ErrNotFound)
}

func (s *memoryStore) Save(chain string, set PresetSet) error {
	s.Lock()
	defer s.Unlock()
	if _, ok := s.sets[chain]; !ok {
		s.sets[chain] = make(map[string]PresetSet)
	}
	s.sets[chain][set.Name] = set.Copy()
	return nil
}

func (s *memoryStore) List(chain string) ([]string, error) {
	s.Lock()
	defer s.Unlock()
	return sortedKeys(s.sets[chain]), nil
}
