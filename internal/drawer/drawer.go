// Package drawer controls the visibility of the cart drawer shown after an
// item is added.
//
// A programmatic open locks the drawer against programmatic closes for
// LockWindow, which absorbs spurious close requests fired by unrelated state
// updates, and schedules an auto-close after AutoCloseDelay. The auto-close
// and explicit user dismissals are non-programmatic and always succeed.
package drawer

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	// LockWindow is how long a programmatic open rejects programmatic closes.
	LockWindow = 8 * time.Second
	// AutoCloseDelay is how long the drawer stays open before closing itself.
	AutoCloseDelay = 3500 * time.Millisecond
)

// State is the externally visible state of the drawer.
type State int

const (
	Closed State = iota
	// OpenLocked is open with programmatic closes rejected.
	OpenLocked
	// Open is open without a lock; an auto-close is still pending.
	Open
)

func (s State) String() string {
	switch s {
	case OpenLocked:
		return "open-locked"
	case Open:
		return "open"
	default:
		return "closed"
	}
}

// Timer is a cancellable pending callback.
type Timer interface {
	Stop() bool
}

// Clock provides current time and timers (for testability).
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

func (systemClock) AfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }

// SystemClock is the wall clock.
var SystemClock Clock = systemClock{}

// Option customizes a Controller.
type Option func(*Controller)

// WithLockWindow overrides LockWindow.
func WithLockWindow(d time.Duration) Option {
	return func(c *Controller) { c.lockWindow = d }
}

// WithAutoCloseDelay overrides AutoCloseDelay.
func WithAutoCloseDelay(d time.Duration) Option {
	return func(c *Controller) { c.autoCloseDelay = d }
}

// Controller is the drawer visibility state machine. It is not persisted.
type Controller struct {
	clock          Clock
	log            *zap.Logger
	lockWindow     time.Duration
	autoCloseDelay time.Duration

	mu        sync.Mutex
	visible   bool
	lockUntil time.Time
	autoClose Timer
	// gen invalidates a timer callback that was already running when it got cancelled.
	gen  uint64
	subs []func(bool)
}

// New creates a closed, unlocked drawer. A nil clock means the wall clock.
func New(clock Clock, log *zap.Logger, opts ...Option) *Controller {
	if clock == nil {
		clock = SystemClock
	}
	if log == nil {
		log = zap.NewNop()
	}
	c := &Controller{
		clock:          clock,
		log:            log,
		lockWindow:     LockWindow,
		autoCloseDelay: AutoCloseDelay,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Set requests a visibility change and reports whether it was applied.
// A programmatic close is ignored while the lock is active.
func (c *Controller) Set(show, programmatic bool) bool {
	c.mu.Lock()
	now := c.clock.Now()

	if !show && programmatic && now.Before(c.lockUntil) {
		lockUntil := c.lockUntil
		c.mu.Unlock()
		c.log.Debug("ignored programmatic close of cart drawer due to lock",
			zap.Time("now", now), zap.Time("lock_until", lockUntil))
		return false
	}

	if show && programmatic {
		c.lockUntil = now.Add(c.lockWindow)
	}
	c.applyLocked(show, programmatic)
	return true
}

// applyLocked sets visibility and notifies subscribers. It releases c.mu.
func (c *Controller) applyLocked(show, programmatic bool) {
	if show {
		c.armAutoCloseLocked()
	} else {
		c.cancelAutoCloseLocked()
	}

	changed := c.visible != show
	c.visible = show
	subs := append(([]func(bool))(nil), c.subs...)
	c.mu.Unlock()

	c.log.Debug("cart drawer visibility", zap.Bool("show", show), zap.Bool("programmatic", programmatic))
	if changed {
		for _, fn := range subs {
			fn(show)
		}
	}
}

// Open is a programmatic open, as done after an add to cart.
func (c *Controller) Open() { c.Set(true, true) }

// Close is a programmatic close; it is ignored while locked.
func (c *Controller) Close() bool { return c.Set(false, true) }

// Dismiss is an explicit user close; it always succeeds.
func (c *Controller) Dismiss() { c.Set(false, false) }

// Visible reports whether the drawer is shown.
func (c *Controller) Visible() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.visible
}

// State reports the current state of the machine.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch {
	case !c.visible:
		return Closed
	case c.clock.Now().Before(c.lockUntil):
		return OpenLocked
	default:
		return Open
	}
}

// Subscribe registers fn for visibility changes.
func (c *Controller) Subscribe(fn func(visible bool)) {
	c.mu.Lock()
	c.subs = append(c.subs, fn)
	c.mu.Unlock()
}

// armAutoCloseLocked replaces any pending auto-close with a fresh one.
func (c *Controller) armAutoCloseLocked() {
	c.cancelAutoCloseLocked()
	gen := c.gen
	c.autoClose = c.clock.AfterFunc(c.autoCloseDelay, func() { c.fire(gen) })
}

// fire is the auto-close. It bypasses the lock.
func (c *Controller) fire(gen uint64) {
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return
	}
	c.autoClose = nil
	c.applyLocked(false, false)
}

func (c *Controller) cancelAutoCloseLocked() {
	c.gen++
	if c.autoClose != nil {
		c.autoClose.Stop()
		c.autoClose = nil
	}
}
