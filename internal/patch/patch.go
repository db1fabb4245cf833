// Package patch assembles the default rig from configuration: a noise
// maker followed by filter and reverb, sequenced by clock and modulated
// every frame.
package patch

import (
	"errors"
	"fmt"

	"github.com/pipelined/rack"
	"github.com/pipelined/rack/clock"
	"github.com/pipelined/rack/config"
	"github.com/pipelined/rack/filter"
	"github.com/pipelined/rack/modulation"
	"github.com/pipelined/rack/osc"
	"github.com/pipelined/rack/preset"
	"github.com/pipelined/rack/record"
	"github.com/pipelined/rack/reverb"
	"github.com/pipelined/rack/session"
	"github.com/pipelined/rack/transport"
)

// Unit names of the chain.
const (
	NoiseMaker = "noisemaker"
	Filter     = "filter"
	Reverb     = "reverb"
)

// Rig is an assembled session with its parts.
type Rig struct {
	Session    *session.Session
	Chain      *rack.Chain
	Instrument *osc.NoiseMaker
	// Recorder is nil unless recording is enabled.
	Recorder *record.Recorder
}

type options struct {
	log    rack.Logger
	record bool
	store  rack.PresetStore
}

// Option configures the rig.
type Option func(*options)

// WithLogger sets logger to all rig components.
func WithLogger(l rack.Logger) Option {
	return func(o *options) {
		o.log = l
	}
}

// WithRecording records transport notes.
func WithRecording() Option {
	return func(o *options) {
		o.record = true
	}
}

// WithStore replaces file preset store.
func WithStore(s rack.PresetStore) Option {
	return func(o *options) {
		o.store = s
	}
}

// New builds the rig and loads presets of the chain. Preset mismatch is
// logged and isn't fatal.
func New(cfg config.Config, opts ...Option) (*Rig, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	o := options{
		store: preset.NewFileStore(cfg.PresetDir),
	}
	for _, opt := range opts {
		opt(&o)
	}
	clr, err := config.ParseColor(cfg.Chain.Color)
	if err != nil {
		return nil, err
	}

	nm := osc.New(NoiseMaker, cfg.SampleRate)
	chain, err := rack.NewBuilder(
		rack.WithBufferSize(cfg.BufferSize),
		rack.WithChannels(cfg.Channels),
		rack.WithSampleRate(cfg.SampleRate),
		rack.WithMetric(cfg.Chain.Name),
	).
		Link(nm).
		To(filter.New(Filter, cfg.SampleRate)).
		To(reverb.New(Reverb, cfg.SampleRate)).
		ToMixer()
	if err != nil {
		return nil, err
	}

	managerOptions := []rack.ManagerOption{rack.WithStore(o.store)}
	if o.log != nil {
		managerOptions = append(managerOptions, rack.WithLogger(o.log))
	}
	m, err := rack.NewManager(managerOptions...)
	if err != nil {
		return nil, err
	}
	if err := m.Add(chain, cfg.Chain.Name, clr); err != nil {
		return nil, err
	}
	m.ToggleDebugUI()
	if err := m.LoadPresets(chain); err != nil && !errors.Is(err, rack.ErrPresetMismatch) {
		return nil, err
	}

	clk, err := clock.New(cfg.Tempo)
	if err != nil {
		return nil, err
	}
	rig := &Rig{
		Chain:      chain,
		Instrument: nm,
	}
	var inst rack.Instrument = nm
	if o.record {
		rig.Recorder = record.New(nm, clk)
		inst = rig.Recorder
	}
	transportOptions := []transport.Option{transport.WithNote(cfg.Note)}
	if o.log != nil {
		transportOptions = append(transportOptions, transport.WithLogger(o.log))
	}
	tr, err := transport.New(inst, transportOptions...)
	if err != nil {
		return nil, err
	}

	target, ok := chain.Unit(cfg.Modulation.Unit)
	if !ok {
		return nil, fmt.Errorf("modulation unit %q: %w", cfg.Modulation.Unit, rack.ErrNotFound)
	}
	driver, err := modulation.New(target, cfg.Modulation.Parameter,
		modulation.WithRate(cfg.Modulation.Rate),
		modulation.WithRange(cfg.Modulation.Min, cfg.Modulation.Max),
	)
	if err != nil {
		return nil, err
	}

	sessionOptions := []session.Option{
		session.WithSampleRate(cfg.SampleRate),
		session.WithModulation(driver),
	}
	if o.log != nil {
		sessionOptions = append(sessionOptions, session.WithLogger(o.log))
	}
	rig.Session, err = session.New(m, clk, tr, sessionOptions...)
	if err != nil {
		return nil, err
	}
	return rig, nil
}
