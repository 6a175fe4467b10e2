package server

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func TestRateLimiterBurstAndRefill(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	rl := newRateLimiterWithClock(3, time.Second, clock.now)

	for i := 0; i < 3; i++ {
		assert.True(t, rl.allow(), "token %d", i)
	}
	assert.False(t, rl.allow(), "bucket is empty")

	clock.advance(time.Second / 2)
	assert.True(t, rl.allow(), "one and a half tokens refilled")
	assert.False(t, rl.allow())

	clock.advance(time.Hour)
	for i := 0; i < 3; i++ {
		assert.True(t, rl.allow(), "refill is capped at capacity, token %d", i)
	}
	assert.False(t, rl.allow())
}

func TestRateLimiterRepairsInvalidParameters(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	rl := newRateLimiterWithClock(0, 0, clock.now)

	assert.True(t, rl.allow())
	assert.False(t, rl.allow())

	clock.advance(time.Second)
	assert.True(t, rl.allow())
}
