package drawer

import (
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock fires timers only when advanced.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

type fakeTimer struct {
	clock   *fakeClock
	at      time.Time
	f       func()
	stopped bool
	fired   bool
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{clock: c, at: c.now.Add(d), f: f}
	c.timers = append(c.timers, t)
	return t
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

// Advance moves time forward and runs every due timer in order.
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	var due []*fakeTimer
	for _, t := range c.timers {
		if !t.stopped && !t.fired && !t.at.After(c.now) {
			t.fired = true
			due = append(due, t)
		}
	}
	c.mu.Unlock()

	sort.Slice(due, func(i, j int) bool { return due[i].at.Before(due[j].at) })
	for _, t := range due {
		t.f()
	}
}

func (c *fakeClock) pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

func newDrawer(t *testing.T) (*Controller, *fakeClock, *[]bool) {
	t.Helper()
	clock := newFakeClock()
	c := New(clock, nil)
	var events []bool
	c.Subscribe(func(v bool) { events = append(events, v) })
	return c, clock, &events
}

func TestDrawer_StartsClosed(t *testing.T) {
	c, _, _ := newDrawer(t)
	assert.False(t, c.Visible())
	assert.Equal(t, Closed, c.State())
}

func TestDrawer_LockIgnoresProgrammaticClose(t *testing.T) {
	c, clock, events := newDrawer(t)

	c.Open()
	require.True(t, c.Visible())
	assert.Equal(t, OpenLocked, c.State())

	clock.Advance(time.Second)
	assert.False(t, c.Close(), "programmatic close inside the lock window must be ignored")
	assert.True(t, c.Visible())

	clock.Advance(2500 * time.Millisecond)
	assert.False(t, c.Visible(), "auto-close bypasses the lock")
	assert.Equal(t, 0, clock.pending())

	clock.Advance(time.Minute)
	assert.Equal(t, []bool{true, false}, *events, "no further timer fires after auto-close")
}

func TestDrawer_DismissCancelsAutoClose(t *testing.T) {
	c, clock, events := newDrawer(t)

	c.Open()
	c.Dismiss()
	assert.False(t, c.Visible())
	assert.Equal(t, Closed, c.State())
	assert.Equal(t, 0, clock.pending())

	clock.Advance(10 * time.Second)
	assert.Equal(t, []bool{true, false}, *events)
}

func TestDrawer_ReopenRearmsTimer(t *testing.T) {
	c, clock, _ := newDrawer(t)

	c.Open()
	clock.Advance(2 * time.Second)
	c.Open()
	assert.Equal(t, 1, clock.pending())

	clock.Advance(2 * time.Second)
	assert.True(t, c.Visible(), "first timer was cancelled by the re-open")

	clock.Advance(1500 * time.Millisecond)
	assert.False(t, c.Visible())
}

func TestDrawer_LockExpires(t *testing.T) {
	clock := newFakeClock()
	c := New(clock, nil, WithAutoCloseDelay(time.Hour))

	c.Open()
	clock.Advance(LockWindow)
	assert.Equal(t, Open, c.State())
	assert.True(t, c.Close(), "programmatic close succeeds once the lock expired")
	assert.Equal(t, Closed, c.State())
	assert.Equal(t, 0, clock.pending())
}

func TestDrawer_UserOpenHasTimerButNoLock(t *testing.T) {
	c, clock, _ := newDrawer(t)

	assert.True(t, c.Set(true, false))
	assert.Equal(t, Open, c.State())
	assert.Equal(t, 1, clock.pending())

	clock.Advance(AutoCloseDelay)
	assert.Equal(t, Closed, c.State())
}

func TestDrawer_StaleTimerCallbackIsNoop(t *testing.T) {
	c, clock, _ := newDrawer(t)

	c.Open()
	staleGen := c.gen
	c.Open()

	c.fire(staleGen)
	assert.True(t, c.Visible(), "callback of a replaced timer must not close the drawer")

	clock.Advance(AutoCloseDelay)
	assert.False(t, c.Visible())
}
