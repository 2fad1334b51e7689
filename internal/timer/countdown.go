package timer

import (
	"errors"
	"sync"
	"time"

	"sandglass/internal/timeutil"
)

// State is the phase a countdown is in.
type State string

const (
	StateStopped State = "stopped"
	StateRunning State = "running"
	StatePaused  State = "paused"
	StateExpired State = "expired"
)

const (
	// DefaultInterval is the tick cadence for new countdowns.
	DefaultInterval = 250 * time.Millisecond

	minInterval = 10 * time.Millisecond
	maxInterval = time.Second
)

// ErrTimerDisposed is returned by every mutator once Close has been
// called.
var ErrTimerDisposed = errors.New("timer is disposed")

type listener struct {
	id int
	fn func(Event)
}

// Countdown counts wall-clock time down toward an end instant. It
// ticks on its own goroutine and delivers events to subscribers in
// registration order. An expired countdown keeps ticking, with the
// overrun growing, until it is stopped, closed or started again.
//
// Remaining and elapsed time are updated on ticks, so reads between
// ticks can lag by up to the tick interval.
type Countdown struct {
	mu      sync.Mutex
	state   State
	start   *time.Time    // anchor, set while running or expired
	end     *time.Time    // anchor, set while running or expired
	total   time.Duration // full length of the current run
	left    time.Duration // remaining, frozen while paused
	expired time.Duration // overrun past the end, grows while expired

	interval time.Duration
	gen      uint64 // invalidates ticker goroutines from superseded runs
	closed   bool

	listeners []listener
	nextID    int

	// afterExpired runs after listeners whenever a tick crosses the
	// end. Timer hangs its loop policy here.
	afterExpired func(now time.Time)
}

// NewCountdown returns a stopped countdown with the default interval.
func NewCountdown() *Countdown {
	return &Countdown{state: StateStopped, interval: DefaultInterval}
}

// Subscribe registers fn for every event. Listeners run outside the
// countdown lock, in the order they subscribed. The returned function
// removes the listener.
func (c *Countdown) Subscribe(fn func(Event)) (cancel func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return func() {}
	}
	id := c.nextID
	c.nextID++
	c.listeners = append(c.listeners, listener{id: id, fn: fn})
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		for i, l := range c.listeners {
			if l.id == id {
				c.listeners = append(c.listeners[:i], c.listeners[i+1:]...)
				return
			}
		}
	}
}

// Start begins a run from start toward end, replacing whatever run was
// in progress. An end at or before the current time expires the
// countdown immediately.
func (c *Countdown) Start(start, end time.Time) error {
	now := time.Now()
	return c.startAt(start, end, now)
}

func (c *Countdown) startAt(start, end, now time.Time) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrTimerDisposed
	}
	events, gen, interval := c.beginRunLocked(start, end, now)
	c.mu.Unlock()

	go c.runTicker(gen, interval)
	c.publish(events)
	return nil
}

// continueExpired rolls an expired countdown into its next run. It
// reports false when the countdown is no longer expired, such as when
// a listener stopped it while the expiry event was being delivered.
func (c *Countdown) continueExpired(start, end, now time.Time) bool {
	c.mu.Lock()
	if c.closed || c.state != StateExpired {
		c.mu.Unlock()
		return false
	}
	events, gen, interval := c.beginRunLocked(start, end, now)
	c.mu.Unlock()

	go c.runTicker(gen, interval)
	c.publish(events)
	return true
}

// beginRunLocked installs a fresh run between the given anchors. An
// end before the start collapses to a zero-length run at the end
// instant.
func (c *Countdown) beginRunLocked(start, end, now time.Time) ([]Event, uint64, time.Duration) {
	if end.Before(start) {
		start = end
	}
	c.gen++
	s, e := start, end
	c.state = StateRunning
	c.start = &s
	c.end = &e
	c.total = end.Sub(start)
	c.left = c.total
	c.expired = 0
	events := []Event{c.eventLocked(EventStarted, now)}
	events = append(events, c.advanceLocked(now)...)
	return events, c.gen, c.interval
}

// Pause freezes the remaining time. Pausing anything but a running
// countdown does nothing; one that turns out to have already passed
// its end expires instead.
func (c *Countdown) Pause() error {
	return c.pauseAt(time.Now())
}

func (c *Countdown) pauseAt(now time.Time) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrTimerDisposed
	}
	if c.state != StateRunning {
		c.mu.Unlock()
		return nil
	}
	if events := c.advanceLocked(now); c.state == StateExpired {
		c.mu.Unlock()
		c.publish(events)
		return nil
	}
	c.gen++
	c.state = StatePaused
	c.start = nil
	c.end = nil
	ev := c.eventLocked(EventPaused, now)
	c.mu.Unlock()
	c.publish([]Event{ev})
	return nil
}

// Resume continues a paused countdown with the time it had left.
// Resuming anything but a paused countdown does nothing.
func (c *Countdown) Resume() error {
	return c.resumeAt(time.Now())
}

func (c *Countdown) resumeAt(now time.Time) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrTimerDisposed
	}
	if c.state != StatePaused {
		c.mu.Unlock()
		return nil
	}
	c.gen++
	gen := c.gen
	end := now.Add(c.left)
	start := end.Add(-c.total) // keeps elapsed = total - left
	c.state = StateRunning
	c.start = &start
	c.end = &end
	ev := c.eventLocked(EventResumed, now)
	interval := c.interval
	c.mu.Unlock()

	go c.runTicker(gen, interval)
	c.publish([]Event{ev})
	return nil
}

// Stop ends the run and clears all progress. Stopping a stopped
// countdown does nothing.
func (c *Countdown) Stop() error {
	return c.stopAt(time.Now())
}

func (c *Countdown) stopAt(now time.Time) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrTimerDisposed
	}
	if c.state == StateStopped {
		c.mu.Unlock()
		return nil
	}
	c.gen++
	c.state = StateStopped
	c.start = nil
	c.end = nil
	c.total = 0
	c.left = 0
	c.expired = 0
	ev := c.eventLocked(EventStopped, now)
	c.mu.Unlock()
	c.publish([]Event{ev})
	return nil
}

// Close stops the countdown and drops all listeners. A closed
// countdown cannot be started again.
func (c *Countdown) Close() {
	c.mu.Lock()
	c.gen++
	c.closed = true
	c.state = StateStopped
	c.start = nil
	c.end = nil
	c.total = 0
	c.left = 0
	c.expired = 0
	c.listeners = nil
	c.afterExpired = nil
	c.mu.Unlock()
}

// SetInterval changes the tick cadence, clamped to a sane range. A
// live ticker is replaced immediately.
func (c *Countdown) SetInterval(d time.Duration) {
	d = timeutil.ClampDuration(d, minInterval, maxInterval)
	c.mu.Lock()
	c.interval = d
	if c.state == StateRunning || c.state == StateExpired {
		c.gen++
		gen := c.gen
		c.mu.Unlock()
		go c.runTicker(gen, d)
		return
	}
	c.mu.Unlock()
}

func (c *Countdown) runTicker(gen uint64, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for now := range t.C {
		if !c.tick(now, gen) {
			return
		}
	}
}

// tick advances the countdown to now. gen guards against ticks from a
// superseded run; zero means a direct call that always applies.
func (c *Countdown) tick(now time.Time, gen uint64) bool {
	c.mu.Lock()
	if gen != 0 && gen != c.gen {
		c.mu.Unlock()
		return false
	}
	if c.state != StateRunning && c.state != StateExpired {
		c.mu.Unlock()
		return false
	}
	events := c.advanceLocked(now)
	if len(events) == 0 {
		events = []Event{c.eventLocked(EventTicked, now)}
	}
	c.mu.Unlock()
	c.publish(events)
	return true
}

// advanceLocked recomputes progress from the anchors and returns any
// transition events. Anchors survive expiry so the overrun can keep
// growing.
func (c *Countdown) advanceLocked(now time.Time) []Event {
	switch c.state {
	case StateRunning:
		left := c.end.Sub(now)
		if left > 0 {
			c.left = left
			return nil
		}
		c.left = 0
		c.expired = now.Sub(*c.end)
		c.state = StateExpired
		return []Event{c.eventLocked(EventExpired, now)}
	case StateExpired:
		c.expired = now.Sub(*c.end)
	}
	return nil
}

func (c *Countdown) eventLocked(kind EventKind, now time.Time) Event {
	return Event{
		Kind:        kind,
		At:          now,
		State:       c.state,
		TimeLeft:    c.left,
		TimeElapsed: c.total - c.left,
		TimeExpired: c.expired,
	}
}

func (c *Countdown) publish(events []Event) {
	if len(events) == 0 {
		return
	}
	c.mu.Lock()
	ls := make([]listener, len(c.listeners))
	copy(ls, c.listeners)
	after := c.afterExpired
	c.mu.Unlock()
	for _, ev := range events {
		for _, l := range ls {
			l.fn(ev)
		}
		if ev.Kind == EventExpired && after != nil {
			after(ev.At)
		}
	}
}

// State returns the current phase.
func (c *Countdown) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// TimeLeft is the remaining time as of the last tick.
func (c *Countdown) TimeLeft() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.left
}

// TimeElapsed is how much of the countdown has passed.
func (c *Countdown) TimeElapsed() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.total - c.left
}

// TimeExpired is how long ago the countdown expired, zero if it has
// not.
func (c *Countdown) TimeExpired() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.expired
}

// TotalDuration is the full length of the current run.
func (c *Countdown) TotalDuration() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.total
}

// StartTime returns the run's start anchor, nil when stopped or
// paused.
func (c *Countdown) StartTime() *time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return copyTime(c.start)
}

// EndTime returns the run's end anchor, nil when stopped or paused.
func (c *Countdown) EndTime() *time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return copyTime(c.end)
}

// Interval is the current tick cadence.
func (c *Countdown) Interval() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.interval
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
