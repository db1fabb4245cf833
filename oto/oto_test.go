//go:build oto

package oto_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/pipelined/rack"
	"github.com/pipelined/rack/mock"
	"github.com/pipelined/rack/oto"
)

func TestOutput(t *testing.T) {
	u := mock.NewUnit("silence", 0)
	c, err := rack.NewBuilder().Link(u).ToMixer()
	assert.NoError(t, err)

	out, err := oto.Open(c, rack.DefaultSampleRate, c.Channels(), c.BufferSize())
	assert.NoError(t, err)
	time.Sleep(200 * time.Millisecond)
	assert.NoError(t, out.Close())
	assert.Greater(t, u.Processed(), 0)
}
