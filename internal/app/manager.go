package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"sandglass/internal/ipc"
	"sandglass/internal/sound"
	"sandglass/internal/storage"
	"sandglass/internal/theme"
	"sandglass/internal/timer"
	"sandglass/internal/timeutil"
)

// ErrTimerNotFound is returned when an id resolves to no live timer.
var ErrTimerNotFound = errors.New("timer not found")

// TimerEvent pairs a timer id with one of its state changes. Ticks are
// not forwarded; surfaces poll the timer they care about instead.
type TimerEvent struct {
	ID    uuid.UUID
	Event timer.Event
}

// Manager owns every live timer in the daemon. It persists state
// changes, applies the expiry options (sound, close) and forwards
// state changes to the events channel.
type Manager struct {
	mu           sync.RWMutex
	timers       map[uuid.UUID]*timer.Timer
	cancels      map[uuid.UUID]func()
	defaults     timer.Options
	tickInterval time.Duration

	store  storage.Store
	player sound.Player
	themes *theme.Registry
	sounds *sound.Registry

	events chan TimerEvent

	ctx    context.Context
	cancel context.CancelFunc
}

func NewManager(store storage.Store, player sound.Player, themes *theme.Registry, sounds *sound.Registry, defaults timer.Options, tickInterval time.Duration) *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		timers:       make(map[uuid.UUID]*timer.Timer),
		cancels:      make(map[uuid.UUID]func()),
		defaults:     defaults,
		tickInterval: tickInterval,
		store:        store,
		player:       player,
		themes:       themes,
		sounds:       sounds,
		events:       make(chan TimerEvent, 100),
		ctx:          ctx,
		cancel:       cancel,
	}
}

// Events is the stream of timer state changes, for logging and other
// passive consumers.
func (m *Manager) Events() <-chan TimerEvent {
	return m.events
}

// SetDefaults swaps the option set and tick cadence used for new
// timers. The cadence also applies to timers already running.
func (m *Manager) SetDefaults(defaults timer.Options, tickInterval time.Duration) {
	m.mu.Lock()
	m.defaults = defaults
	m.tickInterval = tickInterval
	timers := make([]*timer.Timer, 0, len(m.timers))
	for _, t := range m.timers {
		timers = append(timers, t)
	}
	m.mu.Unlock()

	for _, t := range timers {
		t.SetInterval(tickInterval)
	}
	log.Printf("Timer defaults updated (tick %s)", tickInterval)
}

// StartTimer parses the input, builds a timer from the configured
// defaults plus any per-timer overrides, and starts it. Inputs that
// resolve to an instant already behind the clock are rejected; the
// caller mistyped or is replaying stale history.
func (m *Manager) StartTimer(ctx context.Context, args ipc.StartTimerArgs) (ipc.TimerInfo, error) {
	st, err := timer.NewStart(args.Input)
	if err != nil {
		return ipc.TimerInfo{}, err
	}
	if !st.IsCurrent(time.Now()) {
		return ipc.TimerInfo{}, fmt.Errorf("%q has already passed", args.Input)
	}

	opts := m.buildOptions(args)
	t, err := timer.New(args.Input, opts)
	if err != nil {
		return ipc.TimerInfo{}, err
	}

	m.mu.RLock()
	tick := m.tickInterval
	m.mu.RUnlock()
	t.SetInterval(tick)

	m.attach(t)
	if err := t.Start(); err != nil {
		m.removeTimer(ctx, t.ID())
		return ipc.TimerInfo{}, err
	}

	if err := m.store.SaveInput(ctx, args.Input); err != nil {
		log.Printf("Warning: Failed to save input %q: %v", args.Input, err)
	}

	log.Printf("Timer %s started: %s", shortID(t.ID()), t.Target())
	return m.info(t), nil
}

// buildOptions layers the request's overrides over the configured
// defaults and replaces theme or sound keys no registry knows.
func (m *Manager) buildOptions(args ipc.StartTimerArgs) timer.Options {
	m.mu.RLock()
	opts := m.defaults
	m.mu.RUnlock()

	opts.Title = args.Title
	if args.Theme != nil {
		opts.Theme = *args.Theme
	}
	if args.Sound != nil {
		opts.Sound = *args.Sound
	}
	if args.LoopSound != nil {
		opts.LoopSound = *args.LoopSound
	}
	if args.LoopTimer != nil {
		opts.LoopTimer = *args.LoopTimer
	}
	if args.PopUpWhenExpired != nil {
		opts.PopUpWhenExpired = *args.PopUpWhenExpired
	}
	if args.CloseWhenExpired != nil {
		opts.CloseWhenExpired = *args.CloseWhenExpired
	}

	def := timer.DefaultOptions()
	if opts.Theme != "" && !m.themes.Has(opts.Theme) {
		log.Printf("Warning: Unknown theme %q, using %q", opts.Theme, def.Theme)
		opts.Theme = def.Theme
	}
	if opts.Sound != "" && !m.sounds.Has(opts.Sound) {
		log.Printf("Warning: Unknown sound %q, using %q", opts.Sound, def.Sound)
		opts.Sound = def.Sound
	}
	return opts
}

// attach registers the timer and subscribes the manager to its events.
// The map entry goes in first so an event arriving between the two
// steps is not mistaken for one from a removed timer.
func (m *Manager) attach(t *timer.Timer) {
	id := t.ID()
	m.mu.Lock()
	m.timers[id] = t
	m.mu.Unlock()

	cancel := t.Subscribe(func(ev timer.Event) {
		m.handleEvent(t, ev)
	})

	m.mu.Lock()
	if _, ok := m.timers[id]; ok {
		m.cancels[id] = cancel
		m.mu.Unlock()
		return
	}
	m.mu.Unlock()
	// Removed before the subscription landed. Drop it.
	cancel()
}

// handleEvent runs on the timer's own goroutine. State changes are
// persisted so a daemon restart resumes where it left off; an expiry
// additionally runs the timer's expiry options.
func (m *Manager) handleEvent(t *timer.Timer, ev timer.Event) {
	id := t.ID()

	m.mu.RLock()
	_, tracked := m.timers[id]
	m.mu.RUnlock()
	if !tracked {
		return
	}

	closing := false
	if ev.Kind == timer.EventExpired {
		closing = m.handleExpired(t)
	}

	if !ev.Kind.IsStateChange() {
		return
	}

	if closing {
		// The row is deleted rather than saved, otherwise the timer
		// would come back on the next boot.
		m.removeTimer(m.ctx, id)
	} else if err := m.store.SaveTimer(m.ctx, t.Snapshot()); err != nil {
		log.Printf("Error saving timer %s: %v", shortID(id), err)
	}

	m.emit(TimerEvent{ID: id, Event: ev})
}

// handleExpired applies the expiry options and reports whether the
// timer should be closed. A looping timer never closes, its next
// iteration is about to start.
func (m *Manager) handleExpired(t *timer.Timer) bool {
	opts := t.Options()
	if opts.Sound != "" {
		if err := m.player.Play(opts.Sound, opts.LoopSound); err != nil {
			log.Printf("Failed to play sound %q: %v", opts.Sound, err)
		}
	}
	if opts.PopUpWhenExpired {
		log.Printf("Timer %s expired: %s", shortID(t.ID()), displayName(t))
	}
	if opts.ShutDownWhenExpired {
		log.Printf("Timer %s requests a system shutdown; not honored in daemon mode", shortID(t.ID()))
	}
	return opts.CloseWhenExpired && !opts.LoopTimer
}

func (m *Manager) emit(te TimerEvent) {
	select {
	case m.events <- te:
	case <-m.ctx.Done():
	case <-time.After(100 * time.Millisecond):
		log.Printf("Warning: Timeout forwarding event for timer %s", shortID(te.ID))
	}
}

// Pause pauses the addressed timer.
func (m *Manager) Pause(idStr string) (ipc.TimerInfo, error) {
	t, err := m.resolve(idStr)
	if err != nil {
		return ipc.TimerInfo{}, err
	}
	if err := t.Pause(); err != nil {
		return ipc.TimerInfo{}, err
	}
	return m.info(t), nil
}

// Resume resumes the addressed timer.
func (m *Manager) Resume(idStr string) (ipc.TimerInfo, error) {
	t, err := m.resolve(idStr)
	if err != nil {
		return ipc.TimerInfo{}, err
	}
	if err := t.Resume(); err != nil {
		return ipc.TimerInfo{}, err
	}
	return m.info(t), nil
}

// Stop stops the addressed timer and silences any alarm.
func (m *Manager) Stop(idStr string) (ipc.TimerInfo, error) {
	t, err := m.resolve(idStr)
	if err != nil {
		return ipc.TimerInfo{}, err
	}
	if err := t.Stop(); err != nil {
		return ipc.TimerInfo{}, err
	}
	if err := m.player.Stop(); err != nil {
		log.Printf("Failed to stop sound: %v", err)
	}
	return m.info(t), nil
}

// Restart starts the addressed timer over from its full duration.
func (m *Manager) Restart(idStr string) (ipc.TimerInfo, error) {
	t, err := m.resolve(idStr)
	if err != nil {
		return ipc.TimerInfo{}, err
	}
	if err := t.Restart(); err != nil {
		return ipc.TimerInfo{}, err
	}
	if err := m.player.Stop(); err != nil {
		log.Printf("Failed to stop sound: %v", err)
	}
	return m.info(t), nil
}

// Get describes the addressed timer.
func (m *Manager) Get(idStr string) (ipc.TimerInfo, error) {
	t, err := m.resolve(idStr)
	if err != nil {
		return ipc.TimerInfo{}, err
	}
	return m.info(t), nil
}

// Remove discards the addressed timer and its saved state.
func (m *Manager) Remove(ctx context.Context, idStr string) (string, error) {
	t, err := m.resolve(idStr)
	if err != nil {
		return "", err
	}
	m.removeTimer(ctx, t.ID())
	if err := m.player.Stop(); err != nil {
		log.Printf("Failed to stop sound: %v", err)
	}
	return t.ID().String(), nil
}

func (m *Manager) removeTimer(ctx context.Context, id uuid.UUID) {
	m.mu.Lock()
	t, ok := m.timers[id]
	cancel := m.cancels[id]
	delete(m.timers, id)
	delete(m.cancels, id)
	m.mu.Unlock()

	if !ok {
		return
	}
	if cancel != nil {
		cancel()
	}
	t.Close()
	if err := m.store.DeleteTimer(ctx, id); err != nil {
		log.Printf("Error deleting timer %s: %v", shortID(id), err)
	}
	log.Printf("Timer %s removed", shortID(id))
}

// List describes every live timer, oldest first.
func (m *Manager) List() []ipc.TimerInfo {
	m.mu.RLock()
	timers := make([]*timer.Timer, 0, len(m.timers))
	for _, t := range m.timers {
		timers = append(timers, t)
	}
	m.mu.RUnlock()

	sort.Slice(timers, func(i, j int) bool {
		if timers[i].CreatedAt().Equal(timers[j].CreatedAt()) {
			return timers[i].ID().String() < timers[j].ID().String()
		}
		return timers[i].CreatedAt().Before(timers[j].CreatedAt())
	})

	infos := make([]ipc.TimerInfo, 0, len(timers))
	for _, t := range timers {
		infos = append(infos, m.info(t))
	}
	return infos
}

// RecentInputs returns the most recently used inputs, newest first.
func (m *Manager) RecentInputs(ctx context.Context, limit int) ([]string, error) {
	return m.store.RecentInputs(ctx, limit)
}

// RestoreAll loads every saved timer back into the manager. Rows that
// fail to restore are skipped so one bad snapshot cannot keep the
// daemon from starting. Expired timers that were set to close are
// dropped here; they only survived because the daemon went down before
// deleting them.
func (m *Manager) RestoreAll(ctx context.Context) (int, error) {
	snaps, err := m.store.GetTimers(ctx)
	if err != nil {
		return 0, err
	}

	m.mu.RLock()
	tick := m.tickInterval
	m.mu.RUnlock()

	restored := 0
	for _, snap := range snaps {
		if snap.State == timer.StateExpired && snap.Options.CloseWhenExpired && !snap.Options.LoopTimer {
			log.Printf("Dropping expired timer %s (close when expired)", shortID(snap.ID))
			if err := m.store.DeleteTimer(ctx, snap.ID); err != nil {
				log.Printf("Error deleting timer %s: %v", shortID(snap.ID), err)
			}
			continue
		}
		t, err := timer.Restore(snap)
		if err != nil {
			log.Printf("Skipping timer %s: %v", shortID(snap.ID), err)
			continue
		}
		t.SetInterval(tick)
		m.attach(t)
		restored++
	}
	return restored, nil
}

// CloseAll persists a final snapshot of every timer and shuts the
// manager down. Timers come back via RestoreAll on the next boot.
func (m *Manager) CloseAll(ctx context.Context) {
	m.mu.Lock()
	timers := make([]*timer.Timer, 0, len(m.timers))
	cancels := make([]func(), 0, len(m.cancels))
	for id, t := range m.timers {
		timers = append(timers, t)
		if cancel := m.cancels[id]; cancel != nil {
			cancels = append(cancels, cancel)
		}
	}
	m.timers = make(map[uuid.UUID]*timer.Timer)
	m.cancels = make(map[uuid.UUID]func())
	m.mu.Unlock()

	for _, cancel := range cancels {
		cancel()
	}
	for _, t := range timers {
		snap := t.Snapshot()
		t.Close()
		if err := m.store.SaveTimer(ctx, snap); err != nil {
			log.Printf("Error saving timer %s: %v", shortID(snap.ID), err)
		}
	}
	m.cancel()
}

// resolve matches an id string against the live timers. A full uuid
// matches exactly, anything else is treated as a prefix and must be
// unique. An empty id addresses the only live timer, when there is
// exactly one.
func (m *Manager) resolve(idStr string) (*timer.Timer, error) {
	idStr = strings.ToLower(strings.TrimSpace(idStr))

	m.mu.RLock()
	defer m.mu.RUnlock()

	if idStr == "" {
		if len(m.timers) == 1 {
			for _, t := range m.timers {
				return t, nil
			}
		}
		if len(m.timers) == 0 {
			return nil, ErrTimerNotFound
		}
		return nil, fmt.Errorf("%d timers active, specify an id", len(m.timers))
	}

	if id, err := uuid.Parse(idStr); err == nil {
		if t, ok := m.timers[id]; ok {
			return t, nil
		}
		return nil, ErrTimerNotFound
	}

	var match *timer.Timer
	for id, t := range m.timers {
		if strings.HasPrefix(id.String(), idStr) {
			if match != nil {
				return nil, fmt.Errorf("timer id %q is ambiguous", idStr)
			}
			match = t
		}
	}
	if match == nil {
		return nil, ErrTimerNotFound
	}
	return match, nil
}

func (m *Manager) info(t *timer.Timer) ipc.TimerInfo {
	opts := t.Options()
	state := t.State()
	info := ipc.TimerInfo{
		ID:              t.ID().String(),
		Title:           opts.Title,
		Input:           t.Input(),
		Target:          t.Target(),
		Type:            t.Type(),
		State:           state,
		EndTime:         t.EndTime(),
		PercentComplete: t.PercentComplete(),
		WindowTitle:     t.WindowTitle(),
		Loops:           t.Loops(),
		Theme:           opts.Theme,
		Sound:           opts.Sound,
	}
	switch state {
	case timer.StateRunning, timer.StatePaused:
		info.TimeLeft = timeutil.FormatDuration(t.TimeLeft())
		info.TimeElapsed = timeutil.FormatDuration(t.TimeElapsed())
	case timer.StateExpired:
		info.TimeExpired = timeutil.FormatDuration(t.TimeExpired())
	}
	return info
}

func shortID(id uuid.UUID) string {
	return id.String()[:8]
}

func displayName(t *timer.Timer) string {
	if title := t.Options().Title; title != "" {
		return title
	}
	return t.Input()
}
