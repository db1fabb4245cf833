// Package metric publishes render counters of chains with expvar.
package metric

import (
	"expvar"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

const chainsLabel = "rack.chains"

const (
	// BlockCounter measures number of rendered blocks.
	BlockCounter = "Blocks"
	// SampleCounter measures number of rendered frames.
	SampleCounter = "Samples"
	// LatencyCounter measures latency between render calls.
	LatencyCounter = "Latency"
	// DurationCounter counts what's the duration of rendered signal.
	DurationCounter = "Duration"
	// ChainCounter counts number of meters created for the key.
	ChainCounter = "Chains"
)

var (
	chains = metrics{
		m: make(map[string]metric),
	}

	counters = []string{
		BlockCounter,
		SampleCounter,
		LatencyCounter,
		DurationCounter,
		ChainCounter,
	}
)

// Get metrics values for provided chain name.
func Get(name string) map[string]string {
	return getCounters(name)
}

// GetAll returns counters for all measured chains.
func GetAll() map[string]map[string]string {
	m := make(map[string]map[string]string)
	chains.Lock()
	defer chains.Unlock()
	for name := range chains.m {
		m[name] = getCounters(name)
	}
	return m
}

func getCounters(name string) map[string]string {
	m := make(map[string]string)
	for _, counter := range counters {
		v := expvar.Get(key(name, counter))
		if v != nil {
			m[counter] = v.String()
		}
	}
	return m
}

// MeasureFunc captures metrics when block is rendered. It doesn't allocate
// and can be called on the render schedule.
type MeasureFunc func(frames int64)

// Meter creates new meter closure to capture chain counters.
func Meter(name string, sampleRate int) MeasureFunc {
	metric := chains.get(name)
	metric.chains.Add(1)
	calledAt := time.Now()
	var (
		frames        int64
		blockDuration time.Duration
	)
	return func(s int64) {
		metric.latency.set(time.Since(calledAt))
		metric.blocks.Add(1)
		metric.samples.Add(s)
		// recalculate block duration only when block size has changed
		if frames != s {
			frames = s
			blockDuration = DurationOf(sampleRate, s)
		}
		metric.duration.add(blockDuration)
		calledAt = time.Now()
	}
}

// DurationOf returns time duration of frames at provided sample rate.
func DurationOf(sampleRate int, frames int64) time.Duration {
	if sampleRate <= 0 {
		return 0
	}
	return time.Duration(frames) * time.Second / time.Duration(sampleRate)
}

type metrics struct {
	sync.Mutex
	m map[string]metric
}

func (m *metrics) get(name string) metric {
	m.Lock()
	defer m.Unlock()
	if metric, ok := m.m[name]; ok {
		// return existing metric if available
		return metric
	}
	metric := newMetric(name)
	m.m[name] = metric
	return metric
}

type metric struct {
	chains   *expvar.Int
	blocks   *expvar.Int
	samples  *expvar.Int
	latency  *duration
	duration *duration
}

func newMetric(name string) metric {
	m := metric{
		chains:   expvar.NewInt(key(name, ChainCounter)),
		blocks:   expvar.NewInt(key(name, BlockCounter)),
		samples:  expvar.NewInt(key(name, SampleCounter)),
		latency:  &duration{},
		duration: &duration{},
	}
	expvar.Publish(key(name, LatencyCounter), m.latency)
	expvar.Publish(key(name, DurationCounter), m.duration)
	return m
}

func key(name, counter string) string {
	return fmt.Sprintf("%s.%s.%s", chainsLabel, name, counter)
}

// duration allows to format time.Duration metric values.
type duration struct {
	d int64
}

func (v *duration) String() string {
	return fmt.Sprintf("%q", time.Duration(atomic.LoadInt64(&v.d)).String())
}

func (v *duration) add(delta time.Duration) {
	atomic.AddInt64(&v.d, int64(delta))
}

func (v *duration) set(value time.Duration) {
	atomic.StoreInt64(&v.d, int64(value))
}
