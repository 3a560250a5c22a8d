// Package cache provides a single-value cache whose content expires after a
// time-to-live. Expiry is enforced both on read and by a scheduled clear, and
// the cache owns at most one pending clear at any time.
package cache

import (
	"sync"
	"time"
)

// DefaultTTL is the lifetime of a value stored in a cache created without WithTTL.
const DefaultTTL = 10 * time.Minute

// Timer is a pending scheduled call that can be canceled.
type Timer interface {
	Stop() bool
}

// Scheduler runs f once after d has elapsed.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

// SchedulerFunc adapts a function to the Scheduler interface.
type SchedulerFunc func(d time.Duration, f func()) Timer

// AfterFunc calls fn(d, f).
func (fn SchedulerFunc) AfterFunc(d time.Duration, f func()) Timer {
	return fn(d, f)
}

// TimeScheduler schedules with time.AfterFunc.
var TimeScheduler Scheduler = SchedulerFunc(func(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
})

// Option configures a Cache.
type Option func(*options)

type options struct {
	ttl       time.Duration
	scheduler Scheduler
	now       func() time.Time
}

// WithTTL sets the initial time-to-live. Negative values are treated as zero.
func WithTTL(ttl time.Duration) Option {
	return func(o *options) {
		o.ttl = ttl
	}
}

// WithScheduler replaces the scheduler used for expiry clears.
func WithScheduler(s Scheduler) Option {
	return func(o *options) {
		if s != nil {
			o.scheduler = s
		}
	}
}

// WithClock replaces the time source used to compute and check expiry.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// Cache holds at most one value of type T. The zero value is not usable;
// construct with New.
type Cache[T any] struct {
	mu        sync.Mutex
	value     T
	present   bool
	ttl       time.Duration
	expiresAt time.Time
	timer     Timer
	// generation guards against a fired timer clearing a newer value.
	generation uint64
	scheduler  Scheduler
	now        func() time.Time
}

// New returns an empty cache.
func New[T any](opts ...Option) *Cache[T] {
	o := options{
		ttl:       DefaultTTL,
		scheduler: TimeScheduler,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}

	return &Cache[T]{
		ttl:       max(o.ttl, 0),
		scheduler: o.scheduler,
		now:       o.now,
	}
}

// Get returns the cached value if one is present and not yet expired.
func (c *Cache[T]) Get() (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.present || !c.now().Before(c.expiresAt) {
		var zero T
		return zero, false
	}
	return c.value, true
}

// Set stores v for the current TTL. It is a no-op while the TTL is zero.
func (c *Cache[T]) Set(v T) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.setLocked(v)
}

// SetWithTTL changes the TTL and stores v in one step.
func (c *Cache[T]) SetWithTTL(v T, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.ttl = max(ttl, 0)
	c.setLocked(v)
}

// Clear drops the value and cancels any pending scheduled clear.
func (c *Cache[T]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.clearLocked()
}

// Close cancels the pending scheduled clear and drops the value. A closed
// cache may still be used; Close exists so owners can release timers at
// shutdown.
func (c *Cache[T]) Close() {
	c.Clear()
}

// TTL returns the current time-to-live.
func (c *Cache[T]) TTL() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.ttl
}

// SetTTL changes the time-to-live. If the new TTL ends the current value's
// life earlier than its existing expiry, the expiry is moved forward and the
// scheduled clear is replaced. A TTL of zero empties the cache.
func (c *Cache[T]) SetTTL(ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.ttl = max(ttl, 0)
	if !c.present {
		return
	}
	if c.ttl == 0 {
		c.clearLocked()
		return
	}
	if end := c.now().Add(c.ttl); end.Before(c.expiresAt) {
		c.scheduleLocked(end)
	}
}

func (c *Cache[T]) setLocked(v T) {
	if c.ttl <= 0 {
		return
	}
	c.value = v
	c.present = true
	c.scheduleLocked(c.now().Add(c.ttl))
}

func (c *Cache[T]) scheduleLocked(end time.Time) {
	c.stopLocked()
	c.expiresAt = end

	generation := c.generation
	c.timer = c.scheduler.AfterFunc(end.Sub(c.now()), func() {
		c.mu.Lock()
		defer c.mu.Unlock()

		if c.generation == generation {
			c.clearLocked()
		}
	})
}

func (c *Cache[T]) clearLocked() {
	c.stopLocked()

	var zero T
	c.value = zero
	c.present = false
	c.expiresAt = time.Time{}
}

func (c *Cache[T]) stopLocked() {
	c.generation++
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}
