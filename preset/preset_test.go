package preset_test

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pipelined/rack"
	"github.com/pipelined/rack/filter"
	"github.com/pipelined/rack/mock"
	"github.com/pipelined/rack/preset"
)

func TestRoundTrip(t *testing.T) {
	s := preset.NewFileStore(t.TempDir())
	set := rack.PresetSet{
		Name: "user",
		Units: map[string]map[string]float64{
			"osc":    {"volume": 0.123456789, "noise": 0},
			"filter": {"cutoff": 1234.5},
		},
	}
	require.NoError(t, s.Save("tal-one", set))

	loaded, err := s.Load("tal-one", "user")
	require.NoError(t, err)
	assert.Equal(t, set, loaded)

	names, err := s.List("tal-one")
	require.NoError(t, err)
	assert.Equal(t, []string{"user"}, names)
}

func TestNotFound(t *testing.T) {
	s := preset.NewFileStore(t.TempDir())
	_, err := s.Load("tal-one", "missing")
	assert.ErrorIs(t, err, rack.ErrNotFound)

	names, err := s.List("tal-one")
	assert.NoError(t, err)
	assert.Empty(t, names)
}

func TestInvalidName(t *testing.T) {
	s := preset.NewFileStore(t.TempDir())
	for _, name := range []string{"", "..", "a/b", `a\b`} {
		_, err := s.Load(name, "user")
		assert.ErrorIs(t, err, preset.ErrInvalidName)
		assert.ErrorIs(t, s.Save("chain", rack.PresetSet{Name: name}), preset.ErrInvalidName)
	}
}

func TestList(t *testing.T) {
	dir := t.TempDir()
	s := preset.NewFileStore(dir)
	for _, name := range []string{"b", "a", "c"} {
		require.NoError(t, s.Save("chain", rack.PresetSet{Name: name}))
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "chain", "notes.txt"), nil, 0o644))
	names, err := s.List("chain")
	assert.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, names)
}

func TestConcurrentSave(t *testing.T) {
	s := preset.NewFileStore(t.TempDir())
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, s.Save("chain", rack.PresetSet{
				Name:  "user",
				Units: map[string]map[string]float64{"osc": {"volume": float64(i)}},
			}))
		}(i)
	}
	wg.Wait()

	names, err := s.List("chain")
	require.NoError(t, err)
	assert.Equal(t, []string{"user"}, names)
	set, err := s.Load("chain", "user")
	require.NoError(t, err)
	assert.Contains(t, []string{"0", "1", "2", "3", "4", "5", "6", "7"}, fmt.Sprint(set.Units["osc"]["volume"]))

	entries, err := os.ReadDir(filepath.Join(s.Dir(), "chain"))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestManager(t *testing.T) {
	s := preset.NewFileStore(t.TempDir())
	f := filter.New("filter", 44100)
	u := mock.NewUnit("unit", 0)
	c, err := rack.NewBuilder().Link(u).To(f).ToMixer()
	require.NoError(t, err)
	m, err := rack.NewManager(rack.WithStore(s))
	require.NoError(t, err)
	require.NoError(t, m.Add(c, "chain", color.RGBA{}))

	require.NoError(t, f.SetParameter(filter.Cutoff, 440))
	require.NoError(t, u.SetParameter(mock.Gain, 0.25))
	require.NoError(t, m.SavePresets(c, "user"))

	require.NoError(t, f.SetParameter(filter.Cutoff, 880))
	require.NoError(t, u.SetParameter(mock.Gain, 0.75))
	require.NoError(t, m.LoadPresets(c))

	cutoff, _ := f.Parameter(filter.Cutoff)
	gain, _ := u.Parameter(mock.Gain)
	assert.Equal(t, 440.0, cutoff)
	assert.Equal(t, 0.25, gain)
}
