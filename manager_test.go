package rack_test

import (
	"errors"
	"image/color"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pipelined/rack"
	"github.com/pipelined/rack/mock"
)

var blue = color.RGBA{B: 255, A: 255}

func newChain(t *testing.T, names ...string) *rack.Chain {
	t.Helper()
	b := rack.NewBuilder(rack.WithBufferSize(16))
	for i, name := range names {
		if i == 0 {
			b = b.Link(mock.NewUnit(name, 1))
			continue
		}
		b = b.To(mock.NewUnit(name, 0))
	}
	c, err := b.ToMixer()
	require.NoError(t, err)
	return c
}

func newManager(t *testing.T, options ...rack.ManagerOption) *rack.Manager {
	t.Helper()
	m, err := rack.NewManager(options...)
	require.NoError(t, err)
	return m
}

func TestManagerAdd(t *testing.T) {
	m := newManager(t)
	first := newChain(t, "a")
	require.NoError(t, m.Add(first, "first", blue))

	err := m.Add(newChain(t, "b"), "first", color.RGBA{R: 255})
	assert.ErrorIs(t, err, rack.ErrDuplicateName)
	chains := m.Chains()
	require.Len(t, chains, 1)
	assert.Equal(t, first, chains[0].Chain)
	assert.Equal(t, blue, chains[0].Color)

	assert.ErrorIs(t, m.Add(first, "again", blue), rack.ErrDuplicateName)
	assert.ErrorIs(t, m.Add(nil, "nil", blue), rack.ErrEmptyChain)

	c, err := m.Chain("first")
	assert.NoError(t, err)
	assert.Equal(t, first, c)
	_, err = m.Chain("missing")
	assert.ErrorIs(t, err, rack.ErrNotFound)

	_, err = rack.NewManager(rack.WithStore(nil))
	assert.Error(t, err)
}

func TestManagerFocus(t *testing.T) {
	m := newManager(t)
	_, ok := m.Focused()
	assert.False(t, ok)
	m.FocusNext()

	for _, name := range []string{"one", "two", "three"} {
		require.NoError(t, m.Add(newChain(t, "u"), name, blue))
	}
	f, ok := m.Focused()
	assert.True(t, ok)
	assert.Equal(t, "one", f.Name)

	assert.ErrorIs(t, m.SetFocus("missing"), rack.ErrNotFound)
	require.NoError(t, m.SetFocus("three"))
	m.FocusNext()
	f, _ = m.Focused()
	assert.Equal(t, "one", f.Name)

	var focused []string
	for _, c := range m.Chains() {
		if c.Focused {
			focused = append(focused, c.Name)
		}
	}
	assert.Equal(t, []string{"one"}, focused)
	names := make([]string, 0)
	for _, c := range m.Chains() {
		names = append(names, c.Name)
	}
	assert.Equal(t, []string{"one", "two", "three"}, names)
}

func TestPresetRoundTrip(t *testing.T) {
	m := newManager(t)
	c := newChain(t, "a", "b", "c")
	require.NoError(t, m.Add(c, "chain", blue))

	// nothing saved yet
	assert.NoError(t, m.LoadPresets(c))

	values := map[string]float64{"a": 0.1, "b": 0.2, "c": 0.3}
	for _, u := range c.Units() {
		require.NoError(t, u.SetParameter(mock.Gain, values[u.Name()]))
	}
	require.NoError(t, m.SavePresets(c, "user"))
	require.NoError(t, m.LoadPresets(c))
	for _, u := range c.Units() {
		v, _ := u.Parameter(mock.Gain)
		assert.Equal(t, values[u.Name()], v)
	}

	for _, u := range c.Units() {
		require.NoError(t, u.SetParameter(mock.Gain, 1))
	}
	require.NoError(t, m.LoadPresets(c))
	for _, u := range c.Units() {
		v, _ := u.Parameter(mock.Gain)
		assert.Equal(t, values[u.Name()], v)
	}

	names, err := m.Presets(c)
	assert.NoError(t, err)
	assert.Equal(t, []string{"user"}, names)
	assert.Equal(t, "user", m.Chains()[0].Preset)

	_, err = m.Presets(newChain(t, "x"))
	assert.ErrorIs(t, err, rack.ErrNotFound)
	assert.ErrorIs(t, m.LoadPresets(newChain(t, "x")), rack.ErrNotFound)
	assert.ErrorIs(t, m.SavePresets(newChain(t, "x"), "user"), rack.ErrNotFound)
}

func TestPresetMismatch(t *testing.T) {
	store := rack.NewMemoryStore()
	m := newManager(t, rack.WithStore(store))
	c := newChain(t, "a", "b")
	require.NoError(t, m.Add(c, "chain", blue))
	require.NoError(t, store.Save("chain", rack.PresetSet{
		Name: rack.DefaultPreset,
		Units: map[string]map[string]float64{
			"a":       {mock.Gain: 0.25},
			"b":       {mock.Gain: 5, "unknown": 1},
			"removed": {mock.Gain: 0.5},
		},
	}))

	err := m.LoadPresets(c)
	assert.ErrorIs(t, err, rack.ErrPresetMismatch)
	assert.ErrorIs(t, err, rack.ErrInvalidParameter)
	var mismatch *rack.PresetMismatchError
	require.True(t, errors.As(err, &mismatch))
	assert.Equal(t, []string{"removed"}, mismatch.Missing)
	assert.Len(t, mismatch.Rejected, 2)

	a, _ := c.Units()[0].Parameter(mock.Gain)
	b, _ := c.Units()[1].Parameter(mock.Gain)
	assert.Equal(t, 0.25, a)
	assert.Equal(t, 1.0, b)
}

func TestPresetSet(t *testing.T) {
	u := mock.NewUnit("u", 0)
	set := rack.NewPresetSet("p", u)
	assert.Equal(t, map[string]map[string]float64{"u": {mock.Gain: 1}}, set.Units)

	cp := set.Copy()
	cp.Units["u"][mock.Gain] = 0
	assert.Equal(t, 1.0, set.Units["u"][mock.Gain])

	assert.NoError(t, set.Apply(u))
	assert.ErrorIs(t, set.Apply(), rack.ErrPresetMismatch)
}

func TestMemoryStore(t *testing.T) {
	s := rack.NewMemoryStore()
	_, err := s.Load("c", "p")
	assert.ErrorIs(t, err, rack.ErrNotFound)

	set := rack.PresetSet{Name: "p", Units: map[string]map[string]float64{"u": {"x": 1}}}
	require.NoError(t, s.Save("c", set))
	set.Units["u"]["x"] = 2
	loaded, err := s.Load("c", "p")
	require.NoError(t, err)
	assert.Equal(t, 1.0, loaded.Units["u"]["x"])
	names, _ := s.List("c")
	assert.Equal(t, []string{"p"}, names)
}

func TestKeyPressed(t *testing.T) {
	m := newManager(t)
	assert.True(t, m.KeyPressed(rack.KeySavePreset))
	assert.True(t, m.KeyPressed(rack.KeyLoadPreset))

	c := newChain(t, "a")
	require.NoError(t, m.Add(c, "one", blue))
	require.NoError(t, m.Add(newChain(t, "b"), "two", blue))

	assert.True(t, m.KeyPressed(rack.KeyToggleDebug))
	assert.True(t, m.DebugUI())
	assert.NotEmpty(t, m.DebugLines())
	assert.Contains(t, m.DebugLines()[0], "> one")

	require.NoError(t, c.Units()[0].SetParameter(mock.Gain, 0.5))
	assert.True(t, m.KeyPressed(rack.KeySavePreset))
	require.NoError(t, c.Units()[0].SetParameter(mock.Gain, 0.7))
	assert.True(t, m.KeyPressed(rack.KeyLoadPreset))
	v, _ := c.Units()[0].Parameter(mock.Gain)
	assert.Equal(t, 0.5, v)
	assert.Equal(t, rack.UserPreset, m.Chains()[0].Preset)

	assert.True(t, m.KeyPressed(rack.KeyFocusNext))
	f, _ := m.Focused()
	assert.Equal(t, "two", f.Name)

	assert.False(t, m.KeyPressed('x'))
	assert.False(t, m.KeyPressed(' '))
}

func TestExit(t *testing.T) {
	store := rack.NewMemoryStore()
	m := newManager(t, rack.WithStore(store))
	c := newChain(t, "a")
	require.NoError(t, m.Add(c, "chain", blue))
	require.NoError(t, c.Units()[0].SetParameter(mock.Gain, 0.3))
	require.NoError(t, m.Exit())

	set, err := store.Load("chain", rack.DefaultPreset)
	require.NoError(t, err)
	assert.Equal(t, 0.3, set.Units["a"][mock.Gain])
}

func TestManagerRender(t *testing.T) {
	m := newManager(t)
	out := m.Render(8)
	assert.Len(t, out[0], 8)
	assert.Equal(t, 0.0, out[0][0])

	require.NoError(t, m.Add(newChain(t, "a"), "one", blue))
	require.NoError(t, m.Add(newChain(t, "b", "c"), "two", blue))
	out = m.Render(8)
	assert.Equal(t, rack.DefaultChannels, out.NumChannels())
	assert.Len(t, out[0], 8)
	// both chains output 1, master normalizes by number of chains
	assert.Equal(t, 1.0, out[0][7])

	require.NoError(t, m.Master().SetParameter(rack.MixerLevel, 2))
	assert.Equal(t, 2.0, m.Render(8)[1][0])
}

func TestConcurrentParameters(t *testing.T) {
	m := newManager(t)
	c := newChain(t, "a", "b")
	require.NoError(t, m.Add(c, "chain", blue))

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			m.Render(16)
		}
	}()
	for i := 0; i < 1000; i++ {
		_ = c.Units()[1].SetParameter(mock.Gain, float64(i%10)/10)
	}
	wg.Wait()
}

// slowStore blocks loads until released.
type slowStore struct {
	rack.PresetStore
	loading chan struct{}
	release chan struct{}
}

func (s *slowStore) Load(chain, preset string) (rack.PresetSet, error) {
	s.loading <- struct{}{}
	<-s.release
	return s.PresetStore.Load(chain, preset)
}

func TestLoadPresetsUnlocked(t *testing.T) {
	store := &slowStore{
		PresetStore: rack.NewMemoryStore(),
		loading:     make(chan struct{}),
		release:     make(chan struct{}),
	}
	m := newManager(t, rack.WithStore(store))
	c := newChain(t, "a")
	require.NoError(t, m.Add(c, "chain", blue))
	require.NoError(t, m.SavePresets(c, "user"))

	done := make(chan error, 1)
	go func() {
		done <- m.LoadPresets(c)
	}()
	<-store.loading

	views := make(chan []rack.RegisteredChain, 1)
	go func() {
		m.DebugLines()
		views <- m.Chains()
	}()
	select {
	case chains := <-views:
		assert.Len(t, chains, 1)
	case <-time.After(5 * time.Second):
		t.Fatal("manager is locked while preset is loading")
	}
	close(store.release)
	assert.NoError(t, <-done)
}

func TestSilentLogger(t *testing.T) {
	var l rack.Logger = rack.SilentLogger{}
	assert.NotPanics(t, func() {
		l.Debug("debug")
		l.Info("info")
		l.Warn("warn")
	})

	m := newManager(t, rack.WithLogger(nil))
	require.NoError(t, m.Add(newChain(t, "a"), "chain", blue))
	assert.NotPanics(t, func() {
		m.KeyPressed(rack.KeySavePreset)
		m.KeyPressed(rack.KeyLoadPreset)
	})
}
