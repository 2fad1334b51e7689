package timer

// WindowTitleMode selects what a timer reports as its window title.
type WindowTitleMode string

const (
	WindowTitleNone         WindowTitleMode = "none"
	WindowTitleApp          WindowTitleMode = "app"
	WindowTitleLeft         WindowTitleMode = "time_left"
	WindowTitleElapsed      WindowTitleMode = "time_elapsed"
	WindowTitleTitle        WindowTitleMode = "title"
	WindowTitleTitleLeft    WindowTitleMode = "title_time_left"
	WindowTitleTitleElapsed WindowTitleMode = "title_time_elapsed"
)

func (m WindowTitleMode) valid() bool {
	switch m {
	case WindowTitleNone, WindowTitleApp, WindowTitleLeft, WindowTitleElapsed,
		WindowTitleTitle, WindowTitleTitleLeft, WindowTitleTitleElapsed:
		return true
	}
	return false
}

func (m WindowTitleMode) showsElapsed() bool {
	return m == WindowTitleElapsed || m == WindowTitleTitleElapsed
}

func (m WindowTitleMode) showsTitle() bool {
	return m == WindowTitleTitle || m == WindowTitleTitleLeft || m == WindowTitleTitleElapsed
}

func (m WindowTitleMode) showsTime() bool {
	switch m {
	case WindowTitleLeft, WindowTitleElapsed, WindowTitleTitleLeft, WindowTitleTitleElapsed:
		return true
	}
	return false
}

// WindowSize is a remembered window geometry. It is carried for a UI
// collaborator and has no behavior here.
type WindowSize struct {
	X          int  `json:"x"`
	Y          int  `json:"y"`
	Width      int  `json:"width"`
	Height     int  `json:"height"`
	FullScreen bool `json:"full_screen,omitempty"`
}

// Options is per-timer behavior beyond the countdown itself. Options
// are plain values; replacing a timer's options fires an
// options-changed event.
type Options struct {
	// Title labels the timer in listings and window titles.
	Title string `json:"title,omitempty"`

	// AlwaysOnTop, PromptOnExit and DoNotKeepComputerAwake are window
	// preferences carried for a UI collaborator.
	AlwaysOnTop            bool `json:"always_on_top,omitempty"`
	PromptOnExit           bool `json:"prompt_on_exit,omitempty"`
	DoNotKeepComputerAwake bool `json:"do_not_keep_computer_awake,omitempty"`

	// ShowTimeElapsed displays progress as time spent rather than time
	// remaining.
	ShowTimeElapsed bool `json:"show_time_elapsed,omitempty"`

	// LoopTimer restarts the countdown each time it expires. Only
	// meaningful for duration-based starts.
	LoopTimer bool `json:"loop_timer,omitempty"`

	// PopUpWhenExpired raises the timer window on expiry.
	PopUpWhenExpired bool `json:"pop_up_when_expired,omitempty"`

	// CloseWhenExpired removes the timer once it has expired. Ignored
	// while LoopTimer is set.
	CloseWhenExpired bool `json:"close_when_expired,omitempty"`

	// ShutDownWhenExpired requests a system shutdown on expiry.
	ShutDownWhenExpired bool `json:"shut_down_when_expired,omitempty"`

	// Sound names the alarm played on expiry. Empty disables it.
	Sound string `json:"sound,omitempty"`

	// LoopSound replays the alarm until the timer is acknowledged.
	LoopSound bool `json:"loop_sound,omitempty"`

	// Theme names the color theme the timer renders with.
	Theme string `json:"theme,omitempty"`

	// WindowTitleMode picks the window title text source.
	WindowTitleMode WindowTitleMode `json:"window_title_mode,omitempty"`

	// WindowSize is the remembered geometry, nil until a resize is
	// reported.
	WindowSize *WindowSize `json:"window_size,omitempty"`
}

// DefaultOptions returns the baseline options for a new timer.
func DefaultOptions() Options {
	return Options{
		Theme:            "blue",
		Sound:            "normal-beep",
		PopUpWhenExpired: true,
		WindowTitleMode:  WindowTitleApp,
	}
}

// normalize repairs option values that came from untrusted input.
func (o Options) normalize() Options {
	if !o.WindowTitleMode.valid() {
		o.WindowTitleMode = WindowTitleApp
	}
	if o.WindowSize != nil && (o.WindowSize.Width <= 0 || o.WindowSize.Height <= 0) {
		o.WindowSize = nil
	}
	return o
}
