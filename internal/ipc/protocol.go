package ipc

import (
	"time"

	"sandglass/internal/timer"
)

const SocketPath = "/tmp/sandglass.sock"

// Command represents a command sent over the socket
type Command struct {
	Name string      `json:"name"`
	Args interface{} `json:"args,omitempty"`
}

// Response represents a response sent back over the socket
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// --- Command Argument Structs ---

type StartTimerArgs struct {
	// Input is the free-form time text, "10m" or "tomorrow 9am".
	Input string `json:"input"`
	// Title labels the timer. Optional.
	Title string `json:"title,omitempty"`
	// Overrides below apply on top of the configured defaults when the
	// pointer is set.
	Theme            *string `json:"theme,omitempty"`
	Sound            *string `json:"sound,omitempty"`
	LoopSound        *bool   `json:"loop_sound,omitempty"`
	LoopTimer        *bool   `json:"loop_timer,omitempty"`
	PopUpWhenExpired *bool   `json:"pop_up_when_expired,omitempty"`
	CloseWhenExpired *bool   `json:"close_when_expired,omitempty"`
}

// TimerIDArgs addresses one timer. ID may be a full uuid or a unique
// prefix of one.
type TimerIDArgs struct {
	ID string `json:"id"`
}

type RecentInputsArgs struct {
	Limit int `json:"limit,omitempty"`
}

// --- Command Names (Constants) ---

const (
	CmdPing         = "ping"
	CmdStartTimer   = "start_timer"
	CmdPauseTimer   = "pause_timer"
	CmdResumeTimer  = "resume_timer"
	CmdStopTimer    = "stop_timer"
	CmdRestartTimer = "restart_timer"
	CmdGetTimer     = "get_timer"
	CmdListTimers   = "list_timers"
	CmdRemoveTimer  = "remove_timer"
	CmdRecentInputs = "recent_inputs"
)

// --- Response Data ---

// TimerInfo is the display snapshot of one timer.
type TimerInfo struct {
	ID              string          `json:"id"`
	Title           string          `json:"title,omitempty"`
	Input           string          `json:"input"`
	Target          string          `json:"target"`
	Type            timer.StartType `json:"type"`
	State           timer.State     `json:"state"`
	TimeLeft        string          `json:"time_left,omitempty"`
	TimeElapsed     string          `json:"time_elapsed,omitempty"`
	TimeExpired     string          `json:"time_expired,omitempty"`
	EndTime         *time.Time      `json:"end_time,omitempty"`
	PercentComplete float64         `json:"percent_complete"`
	WindowTitle     string          `json:"window_title"`
	Loops           uint64          `json:"loops,omitempty"`
	Theme           string          `json:"theme,omitempty"`
	Sound           string          `json:"sound,omitempty"`
}

type TimerListData struct {
	Timers []TimerInfo `json:"timers"`
}

type RecentInputsData struct {
	Inputs []string `json:"inputs"`
}
