package timer

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"sandglass/internal/timeutil"
)

const appTitle = "Sandglass"

// ErrRestartUnsupported is returned when a timer aimed at a calendar
// instant is asked to start over.
var ErrRestartUnsupported = errors.New("timer cannot restart")

// maxLoopIterations bounds how many missed loop iterations are skipped
// in one catch-up pass.
const maxLoopIterations = 10000

// Timer is a countdown bound to the parsed input that created it, plus
// per-timer options. The input is kept as a token so loops and
// restarts can recompute the end instant.
type Timer struct {
	Countdown

	id      uuid.UUID
	created time.Time

	optMu   sync.RWMutex
	opts    Options
	started *TimerStart
	loops   uint64
}

// New builds a timer from user input. The input must parse to a
// supported time pattern.
func New(input string, opts Options) (*Timer, error) {
	st, err := NewStart(input)
	if err != nil {
		return nil, err
	}
	t := &Timer{
		Countdown: *NewCountdown(),
		id:        uuid.New(),
		created:   time.Now(),
		opts:      opts.normalize(),
		started:   st,
	}
	t.afterExpired = t.maybeLoop
	return t, nil
}

// ID is the timer's stable identifier.
func (t *Timer) ID() uuid.UUID {
	return t.id
}

// CreatedAt is when the timer was first created.
func (t *Timer) CreatedAt() time.Time {
	return t.created
}

// Input is the text the timer was created from.
func (t *Timer) Input() string {
	t.optMu.RLock()
	defer t.optMu.RUnlock()
	return t.started.Input
}

// Target is the canonical rendering of the parsed input.
func (t *Timer) Target() string {
	t.optMu.RLock()
	defer t.optMu.RUnlock()
	return t.started.String()
}

// Type reports whether the timer counts a duration or down to an
// instant.
func (t *Timer) Type() StartType {
	t.optMu.RLock()
	defer t.optMu.RUnlock()
	return t.started.Type()
}

// Options returns a copy of the timer's options.
func (t *Timer) Options() Options {
	t.optMu.RLock()
	defer t.optMu.RUnlock()
	return t.opts
}

// SetOptions replaces the timer's options and notifies listeners. A
// disposed timer keeps its options and reports ErrTimerDisposed.
func (t *Timer) SetOptions(opts Options) error {
	c := &t.Countdown
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrTimerDisposed
	}
	t.optMu.Lock()
	t.opts = opts.normalize()
	t.optMu.Unlock()
	ev := c.eventLocked(EventOptionsChanged, time.Now())
	c.mu.Unlock()
	c.publish([]Event{ev})
	return nil
}

// Loops is how many times the timer has looped since its last start.
func (t *Timer) Loops() uint64 {
	t.optMu.RLock()
	defer t.optMu.RUnlock()
	return t.loops
}

// SupportsRestart reports whether Restart would work on this timer.
func (t *Timer) SupportsRestart() bool {
	t.optMu.RLock()
	defer t.optMu.RUnlock()
	return t.started.SupportsRestart()
}

// Start resolves the timer's input against the current time and begins
// counting down. Inputs that resolve into the past produce a countdown
// that expires immediately, with the overrun reflecting how far back
// the instant lies.
func (t *Timer) Start() error {
	return t.startFromAt(time.Now())
}

func (t *Timer) startFromAt(now time.Time) error {
	t.optMu.Lock()
	st := t.started
	t.loops = 0
	t.optMu.Unlock()
	end, ok := st.EndTimeAfter(now)
	if !ok {
		return fmt.Errorf("%q does not resolve to an instant", st.Input)
	}
	return t.startAt(now, end, now)
}

// Restart starts the countdown over from its full length. Only timers
// created from a duration support this.
func (t *Timer) Restart() error {
	t.optMu.RLock()
	ok := t.started.SupportsRestart()
	t.optMu.RUnlock()
	if !ok {
		return ErrRestartUnsupported
	}
	return t.startFromAt(time.Now())
}

// maybeLoop runs after expiry events and starts the next iteration
// when the loop option is on.
func (t *Timer) maybeLoop(now time.Time) {
	t.optMu.RLock()
	loop := t.opts.LoopTimer && t.started.SupportsLooping()
	st := t.started
	t.optMu.RUnlock()
	if loop {
		t.loopAt(st, now)
	}
}

// loopAt anchors the next iteration at the end of the one that just
// expired, so repeats stay on a fixed cadence instead of drifting by
// the tick interval. Iterations whose end already passed are skipped
// without events, up to a bound. A listener that stops or restarts the
// timer on expiry wins; the next iteration only starts while the
// countdown is still expired.
func (t *Timer) loopAt(st *TimerStart, now time.Time) {
	c := &t.Countdown
	c.mu.Lock()
	if c.closed || c.state != StateExpired || c.end == nil {
		c.mu.Unlock()
		return
	}
	anchor := *c.end
	c.mu.Unlock()

	for i := 0; i < maxLoopIterations; i++ {
		next, ok := st.EndTimeAfter(anchor)
		if !ok || !next.After(anchor) {
			return
		}
		if next.After(now) {
			if c.continueExpired(anchor, next, now) {
				t.optMu.Lock()
				t.loops++
				t.optMu.Unlock()
			}
			return
		}
		anchor = next
	}
}

// WindowTitle is the text a window presenting this timer should show,
// derived from the title mode, the timer's title and its progress.
func (t *Timer) WindowTitle() string {
	t.optMu.RLock()
	mode := t.opts.WindowTitleMode
	title := t.opts.Title
	t.optMu.RUnlock()

	c := &t.Countdown
	c.mu.Lock()
	state, left, total := c.state, c.left, c.total
	c.mu.Unlock()

	timeText := ""
	switch state {
	case StateExpired:
		timeText = "Timer expired"
	case StateRunning, StatePaused:
		if mode.showsElapsed() {
			timeText = timeutil.FormatDuration(total - left)
		} else {
			timeText = timeutil.FormatDuration(left)
		}
	}

	switch {
	case mode.showsTitle() && mode.showsTime():
		switch {
		case title == "" && timeText == "":
			return appTitle
		case title == "":
			return timeText
		case timeText == "":
			return title
		}
		return title + " - " + timeText
	case mode.showsTitle():
		if title == "" {
			return appTitle
		}
		return title
	case mode.showsTime():
		if timeText == "" {
			return appTitle
		}
		return timeText
	}
	return appTitle
}

// PercentComplete is countdown progress from 0 to 100.
func (t *Timer) PercentComplete() float64 {
	c := &t.Countdown
	c.mu.Lock()
	defer c.mu.Unlock()
	switch c.state {
	case StateExpired:
		return 100
	case StateStopped:
		return 0
	}
	if c.total <= 0 {
		return 0
	}
	p := float64(c.total-c.left) / float64(c.total) * 100
	return timeutil.ClampFloat(p, 0, 100)
}

// Snapshot is the persistable state of a timer.
type Snapshot struct {
	ID        uuid.UUID     `json:"id"`
	CreatedAt time.Time     `json:"created_at"`
	Start     *TimerStart   `json:"start"`
	Options   Options       `json:"options"`
	State     State         `json:"state"`
	StartTime *time.Time    `json:"start_time,omitempty"`
	EndTime   *time.Time    `json:"end_time,omitempty"`
	TimeLeft  time.Duration `json:"time_left,omitempty"`
	Total     time.Duration `json:"total,omitempty"`
}

// Snapshot captures the timer for persistence.
func (t *Timer) Snapshot() Snapshot {
	t.optMu.RLock()
	st, opts := t.started, t.opts
	t.optMu.RUnlock()
	c := &t.Countdown
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{
		ID:        t.id,
		CreatedAt: t.created,
		Start:     st,
		Options:   opts,
		State:     c.state,
		StartTime: copyTime(c.start),
		EndTime:   copyTime(c.end),
		TimeLeft:  c.left,
		Total:     c.total,
	}
}

// Restore rebuilds a timer from a snapshot. A countdown stored as
// running or expired picks up ticking again; if its end has meanwhile
// passed, the expiry fires on the first tick, so subscribers attached
// right after restoring still see it.
func Restore(snap Snapshot) (*Timer, error) {
	if snap.Start == nil || snap.Start.Token == nil {
		return nil, errors.New("snapshot has no start")
	}
	t := &Timer{
		Countdown: *NewCountdown(),
		id:        snap.ID,
		created:   snap.CreatedAt,
		opts:      snap.Options.normalize(),
		started:   snap.Start,
	}
	t.afterExpired = t.maybeLoop
	c := &t.Countdown

	switch snap.State {
	case StateRunning, StateExpired:
		if snap.StartTime == nil || snap.EndTime == nil {
			return nil, fmt.Errorf("snapshot in state %s has no anchors", snap.State)
		}
		c.state = StateRunning // expiry re-fires on the first tick
		c.start = copyTime(snap.StartTime)
		c.end = copyTime(snap.EndTime)
		c.total = snap.Total
		c.left = snap.TimeLeft
		c.gen++
		go c.runTicker(c.gen, c.interval)
	case StatePaused:
		c.state = StatePaused
		c.total = snap.Total
		c.left = snap.TimeLeft
	case StateStopped, "":
		c.state = StateStopped
	default:
		return nil, fmt.Errorf("snapshot has unknown state %q", snap.State)
	}
	return t, nil
}
