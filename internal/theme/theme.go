// Package theme holds the color themes timers render with. Themes are
// immutable values looked up by key from a registry the caller passes
// around; there is no global registry.
package theme

import (
	"fmt"
	"os"
	"regexp"
	"sort"

	"gopkg.in/yaml.v3"
)

// Theme is a named set of colors. Colors are #RRGGBB strings.
type Theme struct {
	Key                string `json:"key" yaml:"-"`
	Name               string `json:"name" yaml:"name"`
	Dark               bool   `json:"dark,omitempty" yaml:"dark"`
	Background         string `json:"background" yaml:"background"`
	ProgressBar        string `json:"progress_bar" yaml:"progress_bar"`
	ProgressBackground string `json:"progress_background" yaml:"progress_background"`
	ExpirationFlash    string `json:"expiration_flash" yaml:"expiration_flash"`
	PrimaryText        string `json:"primary_text" yaml:"primary_text"`
	PrimaryHint        string `json:"primary_hint" yaml:"primary_hint"`
	SecondaryText      string `json:"secondary_text" yaml:"secondary_text"`
	SecondaryHint      string `json:"secondary_hint" yaml:"secondary_hint"`
}

var colorPattern = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

func (t Theme) validate() error {
	colors := []struct {
		name  string
		value string
	}{
		{"background", t.Background},
		{"progress_bar", t.ProgressBar},
		{"progress_background", t.ProgressBackground},
		{"expiration_flash", t.ExpirationFlash},
		{"primary_text", t.PrimaryText},
		{"primary_hint", t.PrimaryHint},
		{"secondary_text", t.SecondaryText},
		{"secondary_hint", t.SecondaryHint},
	}
	for _, c := range colors {
		if !colorPattern.MatchString(c.value) {
			return fmt.Errorf("%s: %q is not a #RRGGBB color", c.name, c.value)
		}
	}
	return nil
}

// withDefaults fills unset colors from the light or dark base palette.
func (t Theme) withDefaults() Theme {
	base := light(t.Key, t.Name, "#3665B3")
	if t.Dark {
		base = dark(t.Key, t.Name, "#3665B3")
	}
	fill := func(v *string, def string) {
		if *v == "" {
			*v = def
		}
	}
	fill(&t.Background, base.Background)
	fill(&t.ProgressBar, base.ProgressBar)
	fill(&t.ProgressBackground, base.ProgressBackground)
	fill(&t.ExpirationFlash, base.ExpirationFlash)
	fill(&t.PrimaryText, base.PrimaryText)
	fill(&t.PrimaryHint, base.PrimaryHint)
	fill(&t.SecondaryText, base.SecondaryText)
	fill(&t.SecondaryHint, base.SecondaryHint)
	return t
}

func light(key, name, accent string) Theme {
	return Theme{
		Key:                key,
		Name:               name,
		Background:         "#FFFFFF",
		ProgressBar:        accent,
		ProgressBackground: "#EEEEEE",
		ExpirationFlash:    "#C75050",
		PrimaryText:        "#000000",
		PrimaryHint:        "#808080",
		SecondaryText:      "#808080",
		SecondaryHint:      "#C0C0C0",
	}
}

func dark(key, name, accent string) Theme {
	return Theme{
		Key:                key,
		Name:               name,
		Dark:               true,
		Background:         "#1E1E1E",
		ProgressBar:        accent,
		ProgressBackground: "#333333",
		ExpirationFlash:    "#C75050",
		PrimaryText:        "#D4D4D4",
		PrimaryHint:        "#808080",
		SecondaryText:      "#808080",
		SecondaryHint:      "#505050",
	}
}

func builtins() []Theme {
	return []Theme{
		light("blue", "Blue", "#3665B3"),
		dark("blue-dark", "Blue (dark)", "#2C5199"),
		light("green", "Green", "#3B9E3B"),
		dark("green-dark", "Green (dark)", "#2F7D2F"),
		light("red", "Red", "#C75050"),
		dark("red-dark", "Red (dark)", "#A33E3E"),
		light("gray", "Gray", "#757575"),
		dark("gray-dark", "Gray (dark)", "#5C5C5C"),
		light("black", "Black", "#000000"),
		dark("black-dark", "Black (dark)", "#666666"),
	}
}

// Registry maps theme keys to themes. Lookups return copies, so a
// caller cannot mutate a registered theme.
type Registry struct {
	themes map[string]Theme
}

// NewRegistry returns a registry preloaded with the built-in themes.
func NewRegistry() *Registry {
	r := &Registry{themes: make(map[string]Theme)}
	for _, t := range builtins() {
		r.themes[t.Key] = t
	}
	return r
}

// Get looks up a theme by key.
func (r *Registry) Get(key string) (Theme, bool) {
	t, ok := r.themes[key]
	return t, ok
}

// Has reports whether key names a registered theme.
func (r *Registry) Has(key string) bool {
	_, ok := r.themes[key]
	return ok
}

// Names returns all registered keys, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.themes))
	for key := range r.themes {
		names = append(names, key)
	}
	sort.Strings(names)
	return names
}

// LoadFile merges user themes from a YAML file into the registry,
// overriding built-ins with the same key. Unset colors fall back to
// the light or dark base palette. Returns how many themes were loaded.
//
// The file looks like:
//
//	themes:
//	  solar:
//	    name: Solar
//	    background: "#FDF6E3"
//	    progress_bar: "#B58900"
func (r *Registry) LoadFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("reading theme file: %w", err)
	}
	var doc struct {
		Themes map[string]Theme `yaml:"themes"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return 0, fmt.Errorf("parsing theme file: %w", err)
	}
	n := 0
	for key, t := range doc.Themes {
		t.Key = key
		if t.Name == "" {
			t.Name = key
		}
		t = t.withDefaults()
		if err := t.validate(); err != nil {
			return n, fmt.Errorf("theme %q: %w", key, err)
		}
		r.themes[key] = t
		n++
	}
	return n, nil
}
