// Package sound names the alarm sounds timers can play and defines the
// player seam the daemon hands its expiry policy. Actual audio output
// is a UI concern and lives behind the Player interface.
package sound

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Sound is an immutable reference to a playable sound.
type Sound struct {
	Key     string `json:"key"`
	Name    string `json:"name"`
	Path    string `json:"path,omitempty"`
	Builtin bool   `json:"builtin,omitempty"`
}

func builtins() []Sound {
	return []Sound{
		{Key: "quiet-beep", Name: "Quiet beep", Builtin: true},
		{Key: "normal-beep", Name: "Normal beep", Builtin: true},
		{Key: "loud-beep", Name: "Loud beep", Builtin: true},
	}
}

// audioExts are the file extensions LoadDir picks up.
var audioExts = map[string]bool{
	".wav":  true,
	".mp3":  true,
	".ogg":  true,
	".flac": true,
}

// Registry maps sound keys to sounds.
type Registry struct {
	sounds map[string]Sound
}

// NewRegistry returns a registry preloaded with the built-in beeps.
func NewRegistry() *Registry {
	r := &Registry{sounds: make(map[string]Sound)}
	for _, s := range builtins() {
		r.sounds[s.Key] = s
	}
	return r
}

// Get looks up a sound by key.
func (r *Registry) Get(key string) (Sound, bool) {
	s, ok := r.sounds[key]
	return s, ok
}

// Has reports whether key names a registered sound.
func (r *Registry) Has(key string) bool {
	_, ok := r.sounds[key]
	return ok
}

// Names returns all registered keys, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.sounds))
	for key := range r.sounds {
		names = append(names, key)
	}
	sort.Strings(names)
	return names
}

// LoadDir registers every audio file in dir, keyed by file name
// without its extension. Returns how many sounds were added.
func (r *Registry) LoadDir(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("reading sound dir: %w", err)
	}
	n := 0
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if !audioExts[ext] {
			continue
		}
		key := strings.TrimSuffix(e.Name(), filepath.Ext(e.Name()))
		r.sounds[key] = Sound{
			Key:  key,
			Name: key,
			Path: filepath.Join(dir, e.Name()),
		}
		n++
	}
	return n, nil
}

// Player plays alarm sounds.
type Player interface {
	// Play starts the sound named by key, repeating it when loop is
	// set, and replacing whatever was playing.
	Play(key string, loop bool) error
	// Stop silences the player.
	Stop() error
}

// LogPlayer is a Player that only writes to the standard logger. The
// daemon installs it because playback mechanics are out of scope.
type LogPlayer struct{}

func (LogPlayer) Play(key string, loop bool) error {
	if loop {
		log.Printf("sound: playing %q on repeat", key)
	} else {
		log.Printf("sound: playing %q", key)
	}
	return nil
}

func (LogPlayer) Stop() error {
	log.Print("sound: stopped")
	return nil
}
