package app

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sandglass/internal/config"
	"sandglass/internal/ipc"
	"sandglass/internal/timer"
)

func newTestApp(t *testing.T) *App {
	t.Helper()

	dir := t.TempDir()
	cfg := &config.Config{
		DatabasePath:       filepath.Join(dir, "test.db"),
		SocketPath:         filepath.Join(dir, "test.sock"),
		TickIntervalMillis: 1000,
		HistoryCap:         10,
		Defaults: config.DefaultsConfig{
			Theme:            "blue",
			Sound:            "normal-beep",
			PopUpWhenExpired: true,
			WindowTitleMode:  "app",
		},
	}

	a, err := NewApp(cfg)
	require.NoError(t, err)
	t.Cleanup(a.cleanup)
	return a
}

func start(t *testing.T, a *App, input string) ipc.TimerInfo {
	t.Helper()
	resp := a.processCommand(ipc.Command{
		Name: ipc.CmdStartTimer,
		Args: map[string]interface{}{"input": input},
	})
	require.True(t, resp.Success, resp.Message)
	info, ok := resp.Data.(ipc.TimerInfo)
	require.True(t, ok)
	return info
}

func TestProcessCommandPing(t *testing.T) {
	a := newTestApp(t)

	resp := a.processCommand(ipc.Command{Name: ipc.CmdPing})
	assert.True(t, resp.Success)
	assert.Equal(t, "pong", resp.Message)
}

func TestProcessCommandUnknown(t *testing.T) {
	a := newTestApp(t)

	resp := a.processCommand(ipc.Command{Name: "explode"})
	assert.False(t, resp.Success)
	assert.Contains(t, resp.Message, "Unknown command")
}

func TestProcessCommandStartTimer(t *testing.T) {
	a := newTestApp(t)

	// Args arrive the way the socket decoder delivers them: as a map
	resp := a.processCommand(ipc.Command{
		Name: ipc.CmdStartTimer,
		Args: map[string]interface{}{"input": "10m", "title": "Tea"},
	})
	require.True(t, resp.Success, resp.Message)
	assert.Contains(t, resp.Message, "started")

	info, ok := resp.Data.(ipc.TimerInfo)
	require.True(t, ok)
	assert.Equal(t, timer.StateRunning, info.State)
	assert.Equal(t, "Tea", info.Title)
	assert.Equal(t, "10:00", info.TimeLeft)
}

func TestProcessCommandStartRejects(t *testing.T) {
	a := newTestApp(t)

	resp := a.processCommand(ipc.Command{Name: ipc.CmdStartTimer})
	assert.False(t, resp.Success)
	assert.Contains(t, resp.Message, "empty")

	resp = a.processCommand(ipc.Command{
		Name: ipc.CmdStartTimer,
		Args: map[string]interface{}{"input": "wibble"},
	})
	assert.False(t, resp.Success)

	resp = a.processCommand(ipc.Command{
		Name: ipc.CmdStartTimer,
		Args: map[string]interface{}{"input": "5 minutes ago"},
	})
	assert.False(t, resp.Success)
	assert.Contains(t, resp.Message, "already passed")
}

func TestProcessCommandLifecycle(t *testing.T) {
	a := newTestApp(t)
	info := start(t, a, "10m")

	resp := a.processCommand(ipc.Command{
		Name: ipc.CmdPauseTimer,
		Args: map[string]interface{}{"id": info.ID[:8]},
	})
	require.True(t, resp.Success, resp.Message)
	assert.Contains(t, resp.Message, "paused")

	resp = a.processCommand(ipc.Command{
		Name: ipc.CmdResumeTimer,
		Args: map[string]interface{}{"id": info.ID[:8]},
	})
	require.True(t, resp.Success, resp.Message)
	assert.Contains(t, resp.Message, "running")

	resp = a.processCommand(ipc.Command{
		Name: ipc.CmdStopTimer,
		Args: map[string]interface{}{"id": info.ID},
	})
	require.True(t, resp.Success, resp.Message)
	assert.Contains(t, resp.Message, "stopped")

	resp = a.processCommand(ipc.Command{
		Name: ipc.CmdRestartTimer,
		Args: map[string]interface{}{"id": info.ID},
	})
	require.True(t, resp.Success, resp.Message)
	assert.Contains(t, resp.Message, "running")

	resp = a.processCommand(ipc.Command{
		Name: ipc.CmdRemoveTimer,
		Args: map[string]interface{}{"id": info.ID},
	})
	require.True(t, resp.Success, resp.Message)
	assert.Contains(t, resp.Message, "removed")

	resp = a.processCommand(ipc.Command{
		Name: ipc.CmdGetTimer,
		Args: map[string]interface{}{"id": info.ID},
	})
	assert.False(t, resp.Success)
}

func TestProcessCommandGetAndList(t *testing.T) {
	a := newTestApp(t)
	first := start(t, a, "10m")
	start(t, a, "20m")

	resp := a.processCommand(ipc.Command{
		Name: ipc.CmdGetTimer,
		Args: map[string]interface{}{"id": first.ID},
	})
	require.True(t, resp.Success, resp.Message)
	got, ok := resp.Data.(ipc.TimerInfo)
	require.True(t, ok)
	assert.Equal(t, first.ID, got.ID)

	resp = a.processCommand(ipc.Command{Name: ipc.CmdListTimers})
	require.True(t, resp.Success)
	assert.Contains(t, resp.Message, "2 active")
	list, ok := resp.Data.(ipc.TimerListData)
	require.True(t, ok)
	require.Len(t, list.Timers, 2)
	assert.Equal(t, first.ID, list.Timers[0].ID)
}

func TestProcessCommandRecentInputs(t *testing.T) {
	a := newTestApp(t)
	start(t, a, "10m")
	start(t, a, "tomorrow 9am")

	resp := a.processCommand(ipc.Command{
		Name: ipc.CmdRecentInputs,
		Args: map[string]interface{}{"limit": 5},
	})
	require.True(t, resp.Success, resp.Message)
	data, ok := resp.Data.(ipc.RecentInputsData)
	require.True(t, ok)
	assert.Equal(t, []string{"tomorrow 9am", "10m"}, data.Inputs)
}

func TestProcessCommandBadArgs(t *testing.T) {
	a := newTestApp(t)

	resp := a.processCommand(ipc.Command{
		Name: ipc.CmdPauseTimer,
		Args: map[string]interface{}{"id": 12345},
	})
	assert.False(t, resp.Success)
	assert.Contains(t, resp.Message, "Invalid args")
}
