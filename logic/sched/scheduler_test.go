package sched

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	return c.now
}

func (c *fakeClock) advance(d time.Duration) {
	c.now = c.now.Add(d)
}

func newFake() *fakeClock {
	return &fakeClock{now: time.Unix(1000, 0)}
}

func Test_SchedulerCadence(t *testing.T) {
	c := newFake()
	s := New(c, 50*time.Millisecond, 3*time.Second)
	n := 0
	tick := func() { n++ }

	ran, wait := s.Poll(true, tick)
	assert.True(t, ran)
	assert.Equal(t, 50*time.Millisecond, wait)

	c.advance(20 * time.Millisecond)
	ran, wait = s.Poll(true, tick)
	assert.False(t, ran)
	assert.Equal(t, 30*time.Millisecond, wait)

	c.advance(30 * time.Millisecond)
	ran, _ = s.Poll(true, tick)
	assert.True(t, ran)
	assert.Equal(t, 2, n)
}

func Test_SchedulerNoBurst(t *testing.T) {
	c := newFake()
	s := New(c, 50*time.Millisecond, 3*time.Second)
	n := 0
	tick := func() { n++ }

	s.Poll(true, tick)
	c.advance(time.Second)

	ran, wait := s.Poll(true, tick)
	assert.True(t, ran)
	assert.Equal(t, 50*time.Millisecond, wait)
	assert.Equal(t, uint64(1), s.Realigned())

	ran, _ = s.Poll(true, tick)
	assert.False(t, ran)
	assert.Equal(t, 2, n)
}

func Test_SchedulerSmallLag(t *testing.T) {
	c := newFake()
	s := New(c, 50*time.Millisecond, 3*time.Second)
	n := 0
	tick := func() { n++ }

	s.Poll(true, tick)
	c.advance(80 * time.Millisecond)
	ran, wait := s.Poll(true, tick)
	assert.True(t, ran)
	assert.Equal(t, 20*time.Millisecond, wait)
	assert.Equal(t, uint64(0), s.Realigned())
}

func Test_SchedulerIdle(t *testing.T) {
	c := newFake()
	s := New(c, 50*time.Millisecond, 3*time.Second)
	n := 0
	tick := func() { n++ }

	ran, wait := s.Poll(false, tick)
	assert.False(t, ran)
	assert.Equal(t, 3*time.Second, wait)

	c.advance(10 * time.Second)
	ran, wait = s.Poll(true, tick)
	assert.True(t, ran)
	assert.Equal(t, 50*time.Millisecond, wait)
	assert.Equal(t, uint64(0), s.Realigned())
	assert.Equal(t, 1, n)
}
