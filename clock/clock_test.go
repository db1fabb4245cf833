package clock_test

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/goleak"

	"github.com/pipelined/rack/clock"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func record(c *clock.Clock) *[]clock.Beat {
	var beats []clock.Beat
	c.Subscribe(func(b clock.Beat) {
		beats = append(beats, b)
	})
	return &beats
}

func TestNew(t *testing.T) {
	tests := []struct {
		bpm float64
		err error
	}{
		{bpm: 120},
		{bpm: 0.5},
		{bpm: 0, err: clock.ErrInvalidTempo},
		{bpm: -10, err: clock.ErrInvalidTempo},
		{bpm: math.NaN(), err: clock.ErrInvalidTempo},
	}
	for _, test := range tests {
		c, err := clock.New(test.bpm)
		if test.err != nil {
			assert.ErrorIs(t, err, test.err)
			assert.Nil(t, c)
			continue
		}
		assert.NoError(t, err)
		assert.Equal(t, test.bpm, c.Tempo())
		assert.False(t, c.Running())
	}
}

func TestAdvanceIrregular(t *testing.T) {
	chunks := [][]time.Duration{
		{2 * time.Second},
		{300 * time.Millisecond, 170 * time.Millisecond, time.Millisecond, 529 * time.Millisecond, 250 * time.Millisecond, 750 * time.Millisecond},
		{499 * time.Millisecond, time.Millisecond, 499 * time.Millisecond, time.Millisecond, time.Second},
	}
	for _, advances := range chunks {
		c, err := clock.New(120)
		assert.NoError(t, err)
		beats := record(c)
		c.Start()
		var total time.Duration
		for _, d := range advances {
			c.Advance(d)
			total += d
		}
		assert.Equal(t, 2*time.Second, total)
		assert.Equal(t, []clock.Beat{
			{Index: 1, At: 500 * time.Millisecond},
			{Index: 2, At: time.Second},
			{Index: 3, At: 1500 * time.Millisecond},
			{Index: 4, At: 2 * time.Second},
		}, *beats)
		assert.Equal(t, 2*time.Second, c.Elapsed())
	}
}

func TestAdvanceCatchUp(t *testing.T) {
	c, _ := clock.New(120)
	beats := record(c)
	c.Start()
	assert.Equal(t, 3, c.Advance(1600*time.Millisecond))
	assert.Equal(t, int64(3), c.Beats())
	assert.Equal(t, 1500*time.Millisecond, (*beats)[2].At)
}

func TestStopWhileFiring(t *testing.T) {
	c, _ := clock.New(120)
	var beats []clock.Beat
	c.Subscribe(func(b clock.Beat) {
		beats = append(beats, b)
		c.Stop()
	})
	c.Start()
	assert.Equal(t, 1, c.Advance(1600*time.Millisecond))
	assert.Equal(t, []clock.Beat{{Index: 1, At: 500 * time.Millisecond}}, beats)
	assert.False(t, c.Running())

	// restart from a subscriber drops the rest of the old run
	beats = nil
	c, _ = clock.New(120)
	restarted := false
	c.Subscribe(func(b clock.Beat) {
		beats = append(beats, b)
		if !restarted {
			restarted = true
			c.Stop()
			c.Start()
		}
	})
	c.Start()
	assert.Equal(t, 1, c.Advance(1600*time.Millisecond))
	assert.Len(t, beats, 1)
	assert.True(t, c.Running())
	assert.Equal(t, time.Duration(0), c.Elapsed())
}

func TestNoDrift(t *testing.T) {
	tests := []float64{70, 93, 133, 177}
	for _, bpm := range tests {
		c, _ := clock.New(bpm)
		beats := record(c)
		c.Start()
		const minutes = 30
		for i := 0; i < minutes*600; i++ {
			c.Advance(100 * time.Millisecond)
		}
		want := int64(math.Floor(bpm * minutes))
		assert.Equal(t, want, c.Beats(), "bpm %v", bpm)
		last := (*beats)[len(*beats)-1]
		exact := float64(last.Index) * float64(time.Minute) / bpm
		assert.InDelta(t, exact, float64(last.At), 1, "bpm %v", bpm)
	}

	c, _ := clock.New(70)
	beats := record(c)
	c.Start()
	c.Advance(time.Minute)
	assert.Len(t, *beats, 70)
	assert.Equal(t, time.Minute, (*beats)[69].At)
}

func TestStopped(t *testing.T) {
	c, _ := clock.New(120)
	beats := record(c)
	assert.Equal(t, 0, c.Advance(time.Second))

	c.Start()
	c.Advance(400 * time.Millisecond)
	c.Stop()
	assert.Equal(t, 0, c.Advance(time.Second))
	assert.Empty(t, *beats)

	// start resets the phase.
	c.Start()
	c.Advance(400 * time.Millisecond)
	assert.Empty(t, *beats)
	c.Advance(100 * time.Millisecond)
	assert.Equal(t, []clock.Beat{{Index: 1, At: 500 * time.Millisecond}}, *beats)
}

func TestSetTempo(t *testing.T) {
	c, _ := clock.New(120)
	beats := record(c)
	c.Start()
	c.Advance(200 * time.Millisecond)

	assert.ErrorIs(t, c.SetTempo(0), clock.ErrInvalidTempo)
	assert.Equal(t, 120.0, c.Tempo())

	assert.NoError(t, c.SetTempo(60))
	assert.Equal(t, 60.0, c.Tempo())
	// current interval keeps old tempo.
	c.Advance(300 * time.Millisecond)
	c.Advance(999 * time.Millisecond)
	assert.Len(t, *beats, 1)
	c.Advance(time.Millisecond)
	assert.Equal(t, []clock.Beat{
		{Index: 1, At: 500 * time.Millisecond},
		{Index: 2, At: 1500 * time.Millisecond},
	}, *beats)
}

func TestSubscribe(t *testing.T) {
	c, _ := clock.New(120)
	var first, second int
	unsubscribe := c.Subscribe(func(clock.Beat) { first++ })
	c.Subscribe(func(clock.Beat) { second++ })
	c.Start()
	c.Advance(time.Second)
	unsubscribe()
	c.Advance(time.Second)
	assert.Equal(t, 2, first)
	assert.Equal(t, 4, second)
}

func TestRun(t *testing.T) {
	c, _ := clock.New(6000) // 10ms
	beats := make(chan clock.Beat, 1)
	c.Subscribe(func(b clock.Beat) {
		select {
		case beats <- b:
		default:
		}
	})
	c.Start()

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() {
		errc <- c.Run(ctx, time.Millisecond)
	}()
	select {
	case b := <-beats:
		assert.Equal(t, int64(1), b.Index)
	case <-time.After(5 * time.Second):
		t.Fatal("no beats")
	}
	cancel()
	assert.ErrorIs(t, <-errc, context.Canceled)
}
