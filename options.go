package rack

import "fmt"

const (
	// DefaultBufferSize is a number of frames pre-allocated per block.
	DefaultBufferSize = 512
	// DefaultChannels is a number of output channels.
	DefaultChannels = 2
	// DefaultSampleRate is a sample rate of rendered signal.
	DefaultSampleRate = 44100
)

type (
	// Option provides a way to set functional parameters to chain.
	Option func(c *Chain) error

	// ManagerOption provides a way to set functional parameters to
	// manager.
	ManagerOption func(m *Manager) error
)

// WithBufferSize sets number of frames pre-allocated for each stage.
func WithBufferSize(frames int) Option {
	return func(c *Chain) error {
		if frames <= 0 {
			return fmt.Errorf("buffer size %d must be positive", frames)
		}
		c.bufferSize = frames
		return nil
	}
}

// WithChannels sets number of channels rendered by chain.
func WithChannels(n int) Option {
	return func(c *Chain) error {
		if n <= 0 {
			return fmt.Errorf("channels %d must be positive", n)
		}
		c.channels = n
		return nil
	}
}

// WithSampleRate sets sample rate of the chain. It's used for metrics.
func WithSampleRate(sampleRate int) Option {
	return func(c *Chain) error {
		if sampleRate <= 0 {
			return fmt.Errorf("sample rate %d must be positive", sampleRate)
		}
		c.sampleRate = sampleRate
		return nil
	}
}

// WithMetric enables render metrics for chain under provided name.
func WithMetric(name string) Option {
	return func(c *Chain) error {
		c.metricName = name
		return nil
	}
}

// WithLogger sets logger to Manager. If this option is not provided or
// logger is nil, silent logger is used.
func WithLogger(logger Logger) ManagerOption {
	return func(m *Manager) error {
		if logger == nil {
			logger = SilentLogger{}
		}
		m.log = logger
		return nil
	}
}

// WithStore sets preset store to Manager. If this option is not provided,
// presets are kept in memory.
func WithStore(store PresetStore) ManagerOption {
	return func(m *Manager) error {
		if store == nil {
			return fmt.Errorf("nil preset store")
		}
		m.store = store
		return nil
	}
}

// Logger is a global interface for rack loggers.
type Logger interface {
	Debug(...interface{})
	Info(...interface{})
	Warn(...interface{})
}

// SilentLogger discards all messages. It's the default logger of rack
// components.
type SilentLogger struct{}

// Debug does nothing.
func (SilentLogger) Debug(args ...interface{}) {}

// Info does nothing.
func (SilentLogger) Info(args ...interface{}) {}

// Warn does nothing.
func (SilentLogger) Warn(args ...interface{}) {}

var defaultLogger Logger = SilentLogger{}
