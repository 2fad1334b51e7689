package config

import (
	"log"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"sandglass/internal/timer"
)

// DefaultsConfig is the option set newly started timers begin with.
type DefaultsConfig struct {
	Theme               string `mapstructure:"theme"`
	Sound               string `mapstructure:"sound"`
	LoopSound           bool   `mapstructure:"loop_sound"`
	LoopTimer           bool   `mapstructure:"loop_timer"`
	ShowTimeElapsed     bool   `mapstructure:"show_time_elapsed"`
	PopUpWhenExpired    bool   `mapstructure:"pop_up_when_expired"`
	CloseWhenExpired    bool   `mapstructure:"close_when_expired"`
	ShutDownWhenExpired bool   `mapstructure:"shut_down_when_expired"`
	WindowTitleMode     string `mapstructure:"window_title_mode"`
}

type Config struct {
	DatabasePath       string         `mapstructure:"database_path"`
	SocketPath         string         `mapstructure:"socket_path"`
	TickIntervalMillis int            `mapstructure:"tick_interval_millis"`
	HistoryCap         int            `mapstructure:"history_cap"`
	ThemeFile          string         `mapstructure:"theme_file"`
	SoundDir           string         `mapstructure:"sound_dir"`
	Defaults           DefaultsConfig `mapstructure:"defaults"`
}

func LoadConfig(configPath string) (*Config, error) {
	if configPath != "" {
		viper.SetConfigFile(configPath)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME/.config/sandglass")
		viper.AddConfigPath("/etc/sandglass/")
	}

	viper.SetEnvPrefix("SANDGLASS")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.SetDefault("database_path", "sandglass.db")
	viper.SetDefault("socket_path", "/tmp/sandglass.sock")
	viper.SetDefault("tick_interval_millis", 250)
	viper.SetDefault("history_cap", 50)
	viper.SetDefault("theme_file", "")
	viper.SetDefault("sound_dir", "")
	viper.SetDefault("defaults.theme", "blue")
	viper.SetDefault("defaults.sound", "normal-beep")
	viper.SetDefault("defaults.loop_sound", false)
	viper.SetDefault("defaults.loop_timer", false)
	viper.SetDefault("defaults.show_time_elapsed", false)
	viper.SetDefault("defaults.pop_up_when_expired", true)
	viper.SetDefault("defaults.close_when_expired", false)
	viper.SetDefault("defaults.shut_down_when_expired", false)
	viper.SetDefault("defaults.window_title_mode", "app")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			log.Println("Config file not found, using defaults.")
		} else {
			return nil, err
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	applyBounds(&cfg)

	log.Printf("Configuration loaded: %+v", cfg)
	return &cfg, nil
}

func applyBounds(cfg *Config) {
	if cfg.TickIntervalMillis < 10 || cfg.TickIntervalMillis > 1000 {
		log.Printf("Warning: tick_interval_millis %d out of range, setting to 250", cfg.TickIntervalMillis)
		cfg.TickIntervalMillis = 250
	}
	if cfg.HistoryCap < 1 {
		log.Println("Warning: history_cap too low, setting to 50")
		cfg.HistoryCap = 50
	}
	if cfg.SocketPath == "" {
		cfg.SocketPath = "/tmp/sandglass.sock"
	}
	if cfg.DatabasePath == "" {
		cfg.DatabasePath = "sandglass.db"
	}
}

// Watch re-reads the config whenever its file changes and hands the
// result to apply. Viper watches the file through fsnotify; changes to
// keys the daemon cannot adjust live (socket, database) only take
// effect on restart.
func Watch(apply func(*Config)) {
	viper.OnConfigChange(func(e fsnotify.Event) {
		log.Printf("Config file changed: %s", e.Name)
		var cfg Config
		if err := viper.Unmarshal(&cfg); err != nil {
			log.Printf("Ignoring config change: %v", err)
			return
		}
		applyBounds(&cfg)
		apply(&cfg)
	})
	viper.WatchConfig()
}

// TickInterval is the configured tick cadence.
func (c *Config) TickInterval() time.Duration {
	return time.Duration(c.TickIntervalMillis) * time.Millisecond
}

// TimerOptions renders the configured defaults as options for a new
// timer. Values are repaired on intake by the timer package.
func (c *Config) TimerOptions() timer.Options {
	return timer.Options{
		Theme:               c.Defaults.Theme,
		Sound:               c.Defaults.Sound,
		LoopSound:           c.Defaults.LoopSound,
		LoopTimer:           c.Defaults.LoopTimer,
		ShowTimeElapsed:     c.Defaults.ShowTimeElapsed,
		PopUpWhenExpired:    c.Defaults.PopUpWhenExpired,
		CloseWhenExpired:    c.Defaults.CloseWhenExpired,
		ShutDownWhenExpired: c.Defaults.ShutDownWhenExpired,
		WindowTitleMode:     timer.WindowTitleMode(c.Defaults.WindowTitleMode),
	}
}
