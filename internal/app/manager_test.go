package app

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sandglass/internal/ipc"
	"sandglass/internal/sound"
	"sandglass/internal/theme"
	"sandglass/internal/timer"

	sqlitestore "sandglass/internal/storage/sqlite"
)

// fakePlayer records every play and stop instead of making noise.
type fakePlayer struct {
	mu    sync.Mutex
	keys  []string
	loops []bool
	stops int
}

func (p *fakePlayer) Play(key string, loop bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.keys = append(p.keys, key)
	p.loops = append(p.loops, loop)
	return nil
}

func (p *fakePlayer) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stops++
	return nil
}

func (p *fakePlayer) played() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.keys...)
}

func (p *fakePlayer) stopped() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stops
}

// newTestManager builds a manager over a throwaway sqlite store. The
// one second tick keeps the background tickers out of the assertions.
func newTestManager(t *testing.T) (*Manager, *fakePlayer) {
	t.Helper()

	store := sqlitestore.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"), 10)
	require.NoError(t, store.Init(context.Background()))

	player := &fakePlayer{}
	m := NewManager(store, player, theme.NewRegistry(), sound.NewRegistry(), timer.DefaultOptions(), time.Second)
	t.Cleanup(func() {
		m.CloseAll(context.Background())
		store.Close()
	})
	return m, player
}

func TestManagerStartTimer(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	info, err := m.StartTimer(ctx, ipc.StartTimerArgs{Input: "10m"})
	require.NoError(t, err)

	assert.Equal(t, timer.StateRunning, info.State)
	assert.Equal(t, timer.StartTypeDuration, info.Type)
	assert.Equal(t, "10 minutes", info.Target)
	assert.Equal(t, "10:00", info.TimeLeft)
	assert.Equal(t, "blue", info.Theme)
	assert.Equal(t, "normal-beep", info.Sound)
	assert.NotNil(t, info.EndTime)

	snaps, err := m.store.GetTimers(ctx)
	require.NoError(t, err)
	require.Len(t, snaps, 1)
	assert.Equal(t, timer.StateRunning, snaps[0].State)

	inputs, err := m.RecentInputs(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"10m"}, inputs)
}

func TestManagerStartRejectsPastInput(t *testing.T) {
	m, _ := newTestManager(t)

	_, err := m.StartTimer(context.Background(), ipc.StartTimerArgs{Input: "10 minutes ago"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already passed")
	assert.Empty(t, m.List())
}

func TestManagerStartRejectsGarbage(t *testing.T) {
	m, _ := newTestManager(t)

	_, err := m.StartTimer(context.Background(), ipc.StartTimerArgs{Input: "wibble"})
	require.ErrorIs(t, err, timer.ErrUnrecognizedInput)
}

func TestManagerStartOverrides(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	thm, snd, loop := "green", "", true
	info, err := m.StartTimer(ctx, ipc.StartTimerArgs{
		Input:     "5m",
		Title:     "Tea",
		Theme:     &thm,
		Sound:     &snd,
		LoopTimer: &loop,
	})
	require.NoError(t, err)

	assert.Equal(t, "Tea", info.Title)
	assert.Equal(t, "green", info.Theme)
	assert.Equal(t, "", info.Sound)

	snaps, err := m.store.GetTimers(ctx)
	require.NoError(t, err)
	require.Len(t, snaps, 1)
	assert.True(t, snaps[0].Options.LoopTimer)
	assert.Equal(t, "Tea", snaps[0].Options.Title)
}

func TestManagerStartUnknownThemeFallsBack(t *testing.T) {
	m, _ := newTestManager(t)

	thm, snd := "neon", "foghorn"
	info, err := m.StartTimer(context.Background(), ipc.StartTimerArgs{Input: "5m", Theme: &thm, Sound: &snd})
	require.NoError(t, err)

	assert.Equal(t, "blue", info.Theme)
	assert.Equal(t, "normal-beep", info.Sound)
}

func TestManagerPauseResumeStopPersist(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	info, err := m.StartTimer(ctx, ipc.StartTimerArgs{Input: "10m"})
	require.NoError(t, err)

	paused, err := m.Pause(info.ID)
	require.NoError(t, err)
	assert.Equal(t, timer.StatePaused, paused.State)
	assert.Equal(t, "10:00", paused.TimeLeft)

	snaps, err := m.store.GetTimers(ctx)
	require.NoError(t, err)
	require.Len(t, snaps, 1)
	assert.Equal(t, timer.StatePaused, snaps[0].State)
	assert.Nil(t, snaps[0].StartTime)
	assert.Nil(t, snaps[0].EndTime)

	resumed, err := m.Resume(info.ID)
	require.NoError(t, err)
	assert.Equal(t, timer.StateRunning, resumed.State)

	snaps, err = m.store.GetTimers(ctx)
	require.NoError(t, err)
	require.Len(t, snaps, 1)
	assert.Equal(t, timer.StateRunning, snaps[0].State)
	assert.NotNil(t, snaps[0].EndTime)

	stopped, err := m.Stop(info.ID)
	require.NoError(t, err)
	assert.Equal(t, timer.StateStopped, stopped.State)

	snaps, err = m.store.GetTimers(ctx)
	require.NoError(t, err)
	require.Len(t, snaps, 1)
	assert.Equal(t, timer.StateStopped, snaps[0].State)
	assert.Zero(t, snaps[0].TimeLeft)
}

func TestManagerPrefixResolution(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	first, err := m.StartTimer(ctx, ipc.StartTimerArgs{Input: "10m"})
	require.NoError(t, err)
	second, err := m.StartTimer(ctx, ipc.StartTimerArgs{Input: "20m"})
	require.NoError(t, err)

	got, err := m.Get(first.ID[:8])
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.ID)

	// Two timers live, an empty id cannot pick one
	_, err = m.Get("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "specify an id")

	_, err = m.Get("zzzzzzzz")
	require.ErrorIs(t, err, ErrTimerNotFound)

	_, err = m.Remove(ctx, second.ID)
	require.NoError(t, err)

	// Down to one, the empty id now addresses it
	got, err = m.Get("")
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.ID)
}

func TestManagerNotFound(t *testing.T) {
	m, _ := newTestManager(t)

	_, err := m.Pause("deadbeef")
	require.ErrorIs(t, err, ErrTimerNotFound)
}

func TestManagerExpiryPlaysSound(t *testing.T) {
	m, player := newTestManager(t)
	ctx := context.Background()

	info, err := m.StartTimer(ctx, ipc.StartTimerArgs{Input: "now"})
	require.NoError(t, err)

	assert.Equal(t, timer.StateExpired, info.State)
	assert.Equal(t, []string{"normal-beep"}, player.played())

	// Expired but not set to close: still listed and persisted
	require.Len(t, m.List(), 1)
	snaps, err := m.store.GetTimers(ctx)
	require.NoError(t, err)
	require.Len(t, snaps, 1)
	assert.Equal(t, timer.StateExpired, snaps[0].State)
}

func TestManagerCloseWhenExpiredRemoves(t *testing.T) {
	m, player := newTestManager(t)
	ctx := context.Background()

	cl := true
	info, err := m.StartTimer(ctx, ipc.StartTimerArgs{Input: "now", CloseWhenExpired: &cl})
	require.NoError(t, err)

	// The sound still played before the timer went away
	assert.Equal(t, []string{"normal-beep"}, player.played())

	_, err = m.Get(info.ID)
	require.ErrorIs(t, err, ErrTimerNotFound)

	snaps, err := m.store.GetTimers(ctx)
	require.NoError(t, err)
	assert.Empty(t, snaps)
}

func TestManagerLoopOverridesClose(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	// A zero length timer cannot actually loop, but the loop flag
	// still keeps close-when-expired from discarding it.
	lp, cl := true, true
	info, err := m.StartTimer(ctx, ipc.StartTimerArgs{Input: "now", LoopTimer: &lp, CloseWhenExpired: &cl})
	require.NoError(t, err)

	got, err := m.Get(info.ID)
	require.NoError(t, err)
	assert.Equal(t, timer.StateExpired, got.State)
}

func TestManagerLoopingTimerRestarts(t *testing.T) {
	m, player := newTestManager(t)
	ctx := context.Background()

	lp := true
	info, err := m.StartTimer(ctx, ipc.StartTimerArgs{Input: "1s", LoopTimer: &lp})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		got, err := m.Get(info.ID)
		return err == nil && got.Loops >= 1
	}, 3*time.Second, 50*time.Millisecond, "timer should have looped")

	assert.NotEmpty(t, player.played())
}

func TestManagerStopSilencesSound(t *testing.T) {
	m, player := newTestManager(t)
	ctx := context.Background()

	info, err := m.StartTimer(ctx, ipc.StartTimerArgs{Input: "now"})
	require.NoError(t, err)

	_, err = m.Stop(info.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, player.stopped())
}

func TestManagerSetDefaults(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	opts := timer.DefaultOptions()
	opts.Theme = "red"
	opts.LoopSound = true
	m.SetDefaults(opts, 500*time.Millisecond)

	info, err := m.StartTimer(ctx, ipc.StartTimerArgs{Input: "5m"})
	require.NoError(t, err)
	assert.Equal(t, "red", info.Theme)

	snaps, err := m.store.GetTimers(ctx)
	require.NoError(t, err)
	require.Len(t, snaps, 1)
	assert.True(t, snaps[0].Options.LoopSound)
}

func TestManagerRestoreAll(t *testing.T) {
	ctx := context.Background()
	store := sqlitestore.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"), 10)
	require.NoError(t, store.Init(ctx))
	t.Cleanup(func() { store.Close() })

	player := &fakePlayer{}
	m1 := NewManager(store, player, theme.NewRegistry(), sound.NewRegistry(), timer.DefaultOptions(), time.Second)

	info, err := m1.StartTimer(ctx, ipc.StartTimerArgs{Input: "10m", Title: "Tea"})
	require.NoError(t, err)
	_, err = m1.Pause(info.ID)
	require.NoError(t, err)
	m1.CloseAll(ctx)

	// Fresh manager over the same store, as after a daemon restart
	m2 := NewManager(store, player, theme.NewRegistry(), sound.NewRegistry(), timer.DefaultOptions(), time.Second)
	t.Cleanup(func() { m2.CloseAll(ctx) })

	n, err := m2.RestoreAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := m2.Get(info.ID)
	require.NoError(t, err)
	assert.Equal(t, timer.StatePaused, got.State)
	assert.Equal(t, "Tea", got.Title)
	assert.Equal(t, "10:00", got.TimeLeft)

	resumed, err := m2.Resume(info.ID)
	require.NoError(t, err)
	assert.Equal(t, timer.StateRunning, resumed.State)
}

func TestManagerRestoreDropsAndSkips(t *testing.T) {
	ctx := context.Background()
	store := sqlitestore.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"), 10)
	require.NoError(t, store.Init(ctx))
	t.Cleanup(func() { store.Close() })

	// An expired close-when-expired timer only survived in the store
	// because the daemon died before deleting it.
	doomed, err := timer.New("5m", timer.Options{CloseWhenExpired: true})
	require.NoError(t, err)
	started := time.Now().Add(-10 * time.Minute)
	ended := started.Add(5 * time.Minute)
	doomedSnap := doomed.Snapshot()
	doomedSnap.State = timer.StateExpired
	doomedSnap.StartTime = &started
	doomedSnap.EndTime = &ended
	doomedSnap.Total = 5 * time.Minute
	require.NoError(t, store.SaveTimer(ctx, doomedSnap))
	doomed.Close()

	// A paused timer that restores normally
	kept, err := timer.New("3m", timer.DefaultOptions())
	require.NoError(t, err)
	keptSnap := kept.Snapshot()
	keptSnap.State = timer.StatePaused
	keptSnap.TimeLeft = 2 * time.Minute
	keptSnap.Total = 3 * time.Minute
	require.NoError(t, store.SaveTimer(ctx, keptSnap))
	kept.Close()

	// A running snapshot without anchors cannot be rebuilt
	broken, err := timer.New("1h", timer.DefaultOptions())
	require.NoError(t, err)
	brokenSnap := broken.Snapshot()
	brokenSnap.State = timer.StateRunning
	require.NoError(t, store.SaveTimer(ctx, brokenSnap))
	broken.Close()

	m := NewManager(store, &fakePlayer{}, theme.NewRegistry(), sound.NewRegistry(), timer.DefaultOptions(), time.Second)
	t.Cleanup(func() { m.CloseAll(ctx) })

	n, err := m.RestoreAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := m.Get(kept.ID().String())
	require.NoError(t, err)
	assert.Equal(t, timer.StatePaused, got.State)
	assert.Equal(t, "02:00", got.TimeLeft)

	// The doomed row is gone, the broken row is merely skipped
	snaps, err := store.GetTimers(ctx)
	require.NoError(t, err)
	require.Len(t, snaps, 2)
	for _, snap := range snaps {
		assert.NotEqual(t, doomed.ID(), snap.ID)
	}
}
