package patch_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pipelined/rack"
	"github.com/pipelined/rack/config"
	"github.com/pipelined/rack/internal/patch"
	"github.com/pipelined/rack/osc"
	"github.com/pipelined/rack/session"
)

func testConfig(t *testing.T) config.Config {
	cfg := config.Default()
	cfg.PresetDir = t.TempDir()
	cfg.SampleRate = 8000
	cfg.BufferSize = 256
	return cfg
}

func TestNew(t *testing.T) {
	rig, err := patch.New(testConfig(t), patch.WithRecording())
	require.NoError(t, err)
	assert.Equal(t, "noisemaker -> filter -> reverb -> mixer", rig.Chain.String())
	assert.Equal(t, rack.Instrument(rig.Instrument), rig.Chain.Instrument())
	assert.NotNil(t, rig.Recorder)

	m := rig.Session.Manager()
	f, ok := m.Focused()
	require.True(t, ok)
	assert.Equal(t, "tal-one", f.Name)
	assert.True(t, m.DebugUI())

	rig.Session.Start()
	_, err = rig.Session.Key(session.KeyTogglePlaying)
	require.NoError(t, err)
	var peak float64
	err = rig.Session.Offline(8000, 256, 60, func(b rack.Buffer) error {
		for _, s := range b[0] {
			peak = max(peak, s, -s)
		}
		return nil
	})
	require.NoError(t, err)
	assert.Greater(t, peak, 0.0)
	assert.Equal(t, 2, rig.Recorder.Len())

	v, err := rig.Instrument.Parameter(osc.LFO2Rate)
	require.NoError(t, err)
	assert.True(t, v >= 0.4 && v <= 0.6)
	require.NoError(t, rig.Session.Close())
}

func TestPresetsPersist(t *testing.T) {
	cfg := testConfig(t)
	rig, err := patch.New(cfg)
	require.NoError(t, err)
	require.NoError(t, rig.Instrument.SetParameter(osc.Volume, 0.9))
	require.NoError(t, rig.Session.Close())

	rig, err = patch.New(cfg)
	require.NoError(t, err)
	v, _ := rig.Instrument.Parameter(osc.Volume)
	assert.Equal(t, 0.9, v)
}

func TestInvalid(t *testing.T) {
	cfg := testConfig(t)
	cfg.Modulation.Unit = "missing"
	_, err := patch.New(cfg)
	assert.ErrorIs(t, err, rack.ErrNotFound)

	cfg = testConfig(t)
	cfg.Modulation.Parameter = "missing"
	_, err = patch.New(cfg)
	assert.ErrorIs(t, err, rack.ErrInvalidParameter)

	cfg = testConfig(t)
	cfg.Tempo = 0
	_, err = patch.New(cfg)
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
}
