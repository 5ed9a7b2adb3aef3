package traffic

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newWindow(t *testing.T, limit int, window time.Duration, capacity int) (*SlidingWindow, *fakeClock) {
	t.Helper()
	clock := &fakeClock{t: time.Date(2025, 8, 15, 9, 0, 0, 0, time.UTC)}
	w, err := NewSlidingWindow(limit, window, capacity)
	require.NoError(t, err)
	return w.WithClock(clock.now), clock
}

func TestSlidingWindowRejectsOverLimit(t *testing.T) {
	w, clock := newWindow(t, 3, time.Minute, 10)

	for i := 0; i < 3; i++ {
		ok, _ := w.Allow("U1")
		require.True(t, ok, "request %d", i)
		clock.advance(10 * time.Second)
	}

	ok, retry := w.Allow("U1")
	assert.False(t, ok)
	assert.Equal(t, 30*time.Second, retry)

	ok, _ = w.Allow("U2")
	assert.True(t, ok, "other requesters are independent")
}

func TestSlidingWindowSlides(t *testing.T) {
	w, clock := newWindow(t, 2, time.Minute, 10)

	ok, _ := w.Allow("U1")
	require.True(t, ok)
	clock.advance(40 * time.Second)
	ok, _ = w.Allow("U1")
	require.True(t, ok)

	ok, _ = w.Allow("U1")
	require.False(t, ok)

	clock.advance(21 * time.Second)
	ok, _ = w.Allow("U1")
	assert.True(t, ok, "first request left the window")

	// Hits at t=40s and t=61s remain; the t=40s one leaves at t=100s.
	ok, retry := w.Allow("U1")
	assert.False(t, ok)
	assert.Equal(t, 39*time.Second, retry)
}

func TestSlidingWindowRejectionDoesNotConsume(t *testing.T) {
	w, clock := newWindow(t, 1, time.Minute, 10)
	ok, _ := w.Allow("U1")
	require.True(t, ok)
	for i := 0; i < 5; i++ {
		ok, _ = w.Allow("U1")
		require.False(t, ok)
	}
	clock.advance(time.Minute)
	ok, _ = w.Allow("U1")
	assert.True(t, ok)
}

func TestSlidingWindowBoundedKeys(t *testing.T) {
	w, _ := newWindow(t, 1, time.Minute, 2)
	for i := 0; i < 5; i++ {
		ok, _ := w.Allow(fmt.Sprintf("U%d", i))
		require.True(t, ok)
	}
	assert.Equal(t, 2, w.Tracked())

	ok, _ := w.Allow("U0")
	assert.True(t, ok, "evicted requester starts fresh")
}

func TestNewSlidingWindowValidates(t *testing.T) {
	_, err := NewSlidingWindow(0, time.Minute, 1)
	assert.Error(t, err)
	_, err = NewSlidingWindow(1, 0, 1)
	assert.Error(t, err)
}
