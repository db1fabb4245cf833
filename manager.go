package rack

import (
	"errors"
	"fmt"
	"image/color"
	"strings"
	"sync"
	"sync/atomic"
)

// Keys claimed by manager.
const (
	KeyToggleDebug = 'd'
	KeyFocusNext   = 'n'
	KeySavePreset  = 's'
	KeyLoadPreset  = 'l'
)

// UserPreset is the preset name used when presets are saved with a key.
const UserPreset = "user"

// RegisteredChain is a display view of a chain owned by manager.
type RegisteredChain struct {
	Name    string
	Color   color.RGBA
	Chain   *Chain
	Focused bool
	Preset  string
}

// registration is a mutable state of registered chain.
type registration struct {
	name   string
	color  color.RGBA
	chain  *Chain
	preset string
}

// mix is an immutable set of chains published to the render schedule.
type mix struct {
	chains []*Chain
	inputs []Buffer
	out    block
}

// Manager owns registered chains, tracks focus and mediates presets. All
// methods except Render are called on the control schedule.
type Manager struct {
	mu      sync.Mutex
	order   []*registration
	byName  map[string]*registration
	byChain map[*Chain]*registration
	focused *registration
	debug   bool

	store  PresetStore
	log    Logger
	master *Mixer
	live   atomic.Pointer[mix]
}

// NewManager creates a new manager and applies provided options.
func NewManager(options ...ManagerOption) (*Manager, error) {
	m := &Manager{
		byName:  make(map[string]*registration),
		byChain: make(map[*Chain]*registration),
		store:   NewMemoryStore(),
		log:     defaultLogger,
		master:  NewMixer("master"),
	}
	for _, option := range options {
		if err := option(m); err != nil {
			return nil, err
		}
	}
	m.publish()
	return m, nil
}

// Add registers chain under display name. First registered chain gets
// focus.
func (m *Manager) Add(c *Chain, name string, clr color.RGBA) error {
	if c == nil {
		return ErrEmptyChain
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byName[name]; ok {
		return fmt.Errorf("chain %q: %w", name, ErrDuplicateName)
	}
	if r, ok := m.byChain[c]; ok {
		return fmt.Errorf("chain already registered as %q: %w", r.name, ErrDuplicateName)
	}
	r := &registration{
		name:   name,
		color:  clr,
		chain:  c,
		preset: DefaultPreset,
	}
	m.order = append(m.order, r)
	m.byName[name] = r
	m.byChain[c] = r
	if m.focused == nil {
		m.focused = r
	}
	m.publish()
	m.log.Debug(fmt.Sprintf("added chain %q: %v", name, c))
	return nil
}

// publish replaces chains seen by render schedule.
func (m *Manager) publish() {
	channels := 0
	chains := make([]*Chain, 0, len(m.order))
	for _, r := range m.order {
		chains = append(chains, r.chain)
		channels = max(channels, r.chain.Channels())
	}
	bufferSize := DefaultBufferSize
	if len(chains) > 0 {
		bufferSize = chains[0].BufferSize()
	} else {
		channels = DefaultChannels
	}
	m.live.Store(&mix{
		chains: chains,
		inputs: make([]Buffer, len(chains)),
		out:    newBlock(channels, bufferSize),
	})
}

// Render renders all registered chains and mixes them into a single
// output. It must be called from a single render schedule.
func (m *Manager) Render(frames int) Buffer {
	mx := m.live.Load()
	out := mx.out.frames(frames)
	for i, c := range mx.chains {
		mx.inputs[i] = c.Render(frames)
	}
	m.master.Mix(out, mx.inputs...)
	return out
}

// Master returns master mixer.
func (m *Manager) Master() *Mixer {
	return m.master
}

// SetFocus moves focus to chain with provided name.
func (m *Manager) SetFocus(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.byName[name]
	if !ok {
		return fmt.Errorf("chain %q: %w", name, ErrNotFound)
	}
	m.focused = r
	return nil
}

// FocusNext moves focus to the next registered chain in insertion order.
func (m *Manager) FocusNext() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.order) == 0 {
		return
	}
	for i, r := range m.order {
		if r == m.focused {
			m.focused = m.order[(i+1)%len(m.order)]
			return
		}
	}
	m.focused = m.order[0]
}

// Focused returns focused chain.
func (m *Manager) Focused() (RegisteredChain, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.focused == nil {
		return RegisteredChain{}, false
	}
	return m.view(m.focused), true
}

// Chains returns registered chains in insertion order.
func (m *Manager) Chains() []RegisteredChain {
	m.mu.Lock()
	defer m.mu.Unlock()
	chains := make([]RegisteredChain, 0, len(m.order))
	for _, r := range m.order {
		chains = append(chains, m.view(r))
	}
	return chains
}

// Chain returns chain registered under provided name.
func (m *Manager) Chain(name string) (*Chain, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.byName[name]
	if !ok {
		return nil, fmt.Errorf("chain %q: %w", name, ErrNotFound)
	}
	return r.chain, nil
}

func (m *Manager) view(r *registration) RegisteredChain {
	return RegisteredChain{
		Name:    r.name,
		Color:   r.color,
		Chain:   r.chain,
		Focused: r == m.focused,
		Preset:  r.preset,
	}
}

func (m *Manager) lookup(c *Chain) (*registration, error) {
	r, ok := m.byChain[c]
	if !ok {
		return nil, fmt.Errorf("chain %v: %w", c, ErrNotFound)
	}
	return r, nil
}

// LoadPresets applies current preset of the chain. If preset wasn't saved
// yet, nothing is applied. Partially applied preset results in error
// matching ErrPresetMismatch. Store isn't accessed under the manager lock.
func (m *Manager) LoadPresets(c *Chain) error {
	m.mu.Lock()
	r, err := m.lookup(c)
	if err != nil {
		m.mu.Unlock()
		return err
	}
	name, preset := r.name, r.preset
	m.mu.Unlock()

	set, err := m.store.Load(name, preset)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			m.log.Debug(fmt.Sprintf("chain %q has no preset %q", name, preset))
			return nil
		}
		return fmt.Errorf("load preset %q of chain %q: %w", preset, name, err)
	}
	if err := set.Apply(c.units...); err != nil {
		m.log.Warn(fmt.Sprintf("chain %q: %v", name, err))
		return err
	}
	m.log.Info(fmt.Sprintf("chain %q: loaded preset %q", name, preset))
	return nil
}

// SavePresets snapshots parameters of all units into named preset set and
// makes it current for the chain.
func (m *Manager) SavePresets(c *Chain, preset string) error {
	m.mu.Lock()
	r, err := m.lookup(c)
	m.mu.Unlock()
	if err != nil {
		return err
	}
	if err := m.save(r, preset); err != nil {
		return err
	}
	m.log.Info(fmt.Sprintf("chain %q: saved preset %q", r.name, preset))
	return nil
}

// save writes preset outside of the manager lock. Registration name and
// chain never change, so they are read without it.
func (m *Manager) save(r *registration, preset string) error {
	if err := m.store.Save(r.name, NewPresetSet(preset, r.chain.units...)); err != nil {
		return fmt.Errorf("save preset %q of chain %q: %w", preset, r.name, err)
	}
	m.mu.Lock()
	r.preset = preset
	m.mu.Unlock()
	return nil
}

// Presets lists saved presets of the chain.
func (m *Manager) Presets(c *Chain) ([]string, error) {
	m.mu.Lock()
	r, err := m.lookup(c)
	m.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return m.store.List(r.name)
}

// ToggleDebugUI flips debug UI visibility.
func (m *Manager) ToggleDebugUI() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.debug = !m.debug
}

// DebugUI returns true if debug UI should be rendered.
func (m *Manager) DebugUI() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.debug
}

// DebugLines returns text lines of the debug UI: every chain with its
// focus, color, preset and unit parameters.
func (m *Manager) DebugLines() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	lines := make([]string, 0, len(m.order)*4)
	for _, r := range m.order {
		marker := " "
		if r == m.focused {
			marker = ">"
		}
		lines = append(lines, fmt.Sprintf("%s %s #%02x%02x%02x [%s] %v", marker, r.name, r.color.R, r.color.G, r.color.B, r.preset, r.chain))
		for _, u := range r.chain.units {
			params := make([]string, 0)
			for _, s := range u.Specs() {
				v, _ := u.Parameter(s.Name)
				params = append(params, fmt.Sprintf("%s=%.3f", s.Name, v))
			}
			lines = append(lines, fmt.Sprintf("    %s: %s", u.Name(), strings.Join(params, " ")))
		}
	}
	return lines
}

// KeyPressed handles raw key events. It returns false if key wasn't
// claimed by manager.
func (m *Manager) KeyPressed(key rune) bool {
	switch key {
	case KeyToggleDebug:
		m.ToggleDebugUI()
	case KeyFocusNext:
		m.FocusNext()
	case KeySavePreset, KeyLoadPreset:
		f, ok := m.Focused()
		if !ok {
			return true
		}
		var err error
		if key == KeySavePreset {
			err = m.SavePresets(f.Chain, UserPreset)
		} else {
			err = m.LoadPresets(f.Chain)
		}
		if err != nil {
			m.log.Warn(fmt.Sprintf("chain %q: %v", f.Name, err))
		}
	default:
		return false
	}
	return true
}

// Exit saves current preset of every chain.
func (m *Manager) Exit() error {
	type current struct {
		r      *registration
		preset string
	}
	m.mu.Lock()
	chains := make([]current, 0, len(m.order))
	for _, r := range m.order {
		chains = append(chains, current{r: r, preset: r.preset})
	}
	m.mu.Unlock()

	var errs []error
	for _, c := range chains {
		if err := m.save(c.r, c.preset); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
