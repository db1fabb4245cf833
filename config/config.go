// Package config loads rack configuration from YAML files.
package config

import (
	"errors"
	"fmt"
	"image/color"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/pipelined/rack"
)

// ErrInvalidConfig is returned when configuration values are out of range.
var ErrInvalidConfig = errors.New("invalid config")

// Output names.
const (
	OutputPortaudio = "portaudio"
	OutputOto       = "oto"
)

type (
	// Config describes the rig: audio format, tempo, chain and
	// modulation.
	Config struct {
		SampleRate int        `yaml:"sampleRate"`
		BufferSize int        `yaml:"bufferSize"`
		Channels   int        `yaml:"channels"`
		Tempo      float64    `yaml:"tempo"`
		Note       int        `yaml:"note"`
		FPS        int        `yaml:"fps"`
		PresetDir  string     `yaml:"presetDir"`
		Output     string     `yaml:"output"`
		Chain      Chain      `yaml:"chain"`
		Modulation Modulation `yaml:"modulation"`
	}

	// Chain describes registered chain.
	Chain struct {
		Name  string `yaml:"name"`
		Color string `yaml:"color"`
	}

	// Modulation describes modulated parameter of the chain.
	Modulation struct {
		Unit      string  `yaml:"unit"`
		Parameter string  `yaml:"parameter"`
		Rate      float64 `yaml:"rate"`
		Min       float64 `yaml:"min"`
		Max       float64 `yaml:"max"`
	}
)

// Default returns default configuration.
func Default() Config {
	return Config{
		SampleRate: rack.DefaultSampleRate,
		BufferSize: rack.DefaultBufferSize,
		Channels:   rack.DefaultChannels,
		Tempo:      120,
		Note:       60,
		FPS:        60,
		PresetDir:  "presets",
		Output:     OutputPortaudio,
		Chain: Chain{
			Name:  "tal-one",
			Color: "#0000ff",
		},
		Modulation: Modulation{
			Unit:      "noisemaker",
			Parameter: "lfo2rate",
			Rate:      0.03,
			Min:       0.4,
			Max:       0.6,
		},
	}
}

// Load reads configuration file. Values missing in the file keep
// defaults.
func Load(path string) (Config, error) {
	c := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	if err := yaml.Unmarshal(data, &c); err != nil {
		return Config{}, fmt.Errorf("decode %s: %w", path, err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// Validate checks configuration values.
func (c Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...interface{}) {
		if !ok {
			errs = append(errs, fmt.Errorf("%w: "+format, append([]interface{}{ErrInvalidConfig}, args...)...))
		}
	}
	check(c.SampleRate > 0, "sample rate %d", c.SampleRate)
	check(c.BufferSize > 0, "buffer size %d", c.BufferSize)
	check(c.Channels > 0, "channels %d", c.Channels)
	check(c.Tempo > 0, "tempo %v", c.Tempo)
	check(c.Note >= rack.MinPitch && c.Note <= rack.MaxPitch, "note %d", c.Note)
	check(c.FPS > 0, "fps %d", c.FPS)
	check(c.Output == OutputPortaudio || c.Output == OutputOto, "output %q", c.Output)
	check(c.Chain.Name != "", "empty chain name")
	check(c.Modulation.Rate > 0, "modulation rate %v", c.Modulation.Rate)
	check(c.Modulation.Min <= c.Modulation.Max, "modulation range [%v, %v]", c.Modulation.Min, c.Modulation.Max)
	if _, err := ParseColor(c.Chain.Color); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Save writes configuration file.
func (c Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

var names = map[string]color.RGBA{
	"red":   {R: 0xff, A: 0xff},
	"green": {G: 0xff, A: 0xff},
	"blue":  {B: 0xff, A: 0xff},
	"white": {R: 0xff, G: 0xff, B: 0xff, A: 0xff},
}

// ParseColor parses color name or #rrggbb notation.
func ParseColor(s string) (color.RGBA, error) {
	if c, ok := names[strings.ToLower(s)]; ok {
		return c, nil
	}
	if len(s) != 7 || s[0] != '#' {
		return color.RGBA{}, fmt.Errorf("%w: color %q", ErrInvalidConfig, s)
	}
	v, err := strconv.ParseUint(s[1:], 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("%w: color %q", ErrInvalidConfig, s)
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}, nil
}
