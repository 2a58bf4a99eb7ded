// Package config handles configuration file loading and parsing.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/pelletier/go-toml/v2"

	"github.com/wisp-notify/wisp/internal/model"
)

// Duration is a time.Duration that can be unmarshaled from
// human-readable strings like "5s" or "1m30s", or from raw integer
// milliseconds. A value of 0 means the popup never expires on its own.
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler for TOML parsing.
func (d *Duration) UnmarshalText(text []byte) error {
	s := string(text)

	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		*d = Duration(time.Duration(ms) * time.Millisecond)
		return nil
	}

	dur, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: must be like '5s', '1m30s' or milliseconds: %w", s, err)
	}
	*d = Duration(dur)
	return nil
}

// MarshalText implements encoding.TextMarshaler for TOML output.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Milliseconds returns the duration in milliseconds.
func (d Duration) Milliseconds() int64 {
	return time.Duration(d).Milliseconds()
}

// Duration returns the underlying time.Duration.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// Color is a hex color string, "#RRGGBB" or "#RRGGBBAA".
type Color string

// RGBA parses the color. Alpha is returned separately in [0,1] and
// defaults to 1 when the string carries no alpha component.
func (c Color) RGBA() (colorful.Color, float64, error) {
	s := strings.TrimSpace(string(c))
	hex := strings.TrimPrefix(s, "#")

	alpha := 1.0
	if len(hex) == 8 {
		a, err := strconv.ParseUint(hex[6:8], 16, 8)
		if err != nil {
			return colorful.Color{}, 0, fmt.Errorf("invalid color %q: %w", s, err)
		}
		alpha = float64(a) / 255.0
		hex = hex[:6]
	}
	col, err := colorful.Hex("#" + hex)
	if err != nil {
		return colorful.Color{}, 0, fmt.Errorf("invalid color %q: %w", s, err)
	}
	return col, alpha, nil
}

// Config is the wisp configuration.
type Config struct {
	Display DisplayConfig `toml:"display"`
	Audio   AudioConfig   `toml:"audio"`
}

// DisplayConfig contains popup appearance and stacking settings.
type DisplayConfig struct {
	Position      string   `toml:"position"`       // default anchor edge
	Width         int      `toml:"width"`          // popup width in pixels
	Timeout       Duration `toml:"timeout"`        // 0 = never expire
	Font          string   `toml:"font"`           // pango-style font description
	Padding       int      `toml:"padding"`        // inner padding in pixels
	BorderSize    int      `toml:"border_size"`    // border width in pixels
	BorderRadius  int      `toml:"border_radius"`  // corner radius in pixels
	Background    Color    `toml:"background"`     // "#RRGGBB[AA]"
	Text          Color    `toml:"text"`
	Border        Color    `toml:"border"`
	Edge          int      `toml:"edge"`           // margin from the screen edge
	DefaultOffset int      `toml:"default_offset"` // base offset along the stacking axis
	Gap           int      `toml:"gap"`            // gap between stacked popups
	Stack         bool     `toml:"stack"`          // register in the shared stack
}

// AudioConfig contains optional notification sound settings.
type AudioConfig struct {
	Enabled bool   `toml:"enabled"`
	File    string `toml:"file"`
	Volume  int    `toml:"volume"` // 0-100
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Display: DisplayConfig{
			Position:      string(model.EdgeTop),
			Width:         350,
			Timeout:       Duration(5 * time.Second),
			Font:          "Sans 14",
			Padding:       10,
			BorderSize:    5,
			BorderRadius:  10,
			Background:    "#1a1a1a",
			Text:          "#ffffff",
			Border:        "#ffffff",
			Edge:          20,
			DefaultOffset: 250,
			Gap:           10,
			Stack:         true,
		},
		Audio: AudioConfig{
			Enabled: false,
			Volume:  80,
		},
	}
}

// configHome returns the base config directory, honoring XDG_CONFIG_HOME.
func configHome() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config")
}

// DefaultPath returns the path to the default config file.
func DefaultPath() string {
	return filepath.Join(configHome(), "wisp", "config.toml")
}

// StylePath resolves a --style value to a config file path. A value
// containing a path separator is used verbatim; anything else names a
// style file in the wisp config directory.
func StylePath(style string) string {
	if style == "" {
		return DefaultPath()
	}
	if strings.ContainsRune(style, os.PathSeparator) {
		return style
	}
	return filepath.Join(configHome(), "wisp", style+".toml")
}

// Load reads configuration from path, overlaying file contents on the
// defaults. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes the configuration to path, creating parent directories.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	data, err := toml.Marshal(c)
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if !model.Edge(c.Display.Position).Valid() {
		return fmt.Errorf("invalid position %q, must be one of: %v", c.Display.Position, model.ValidEdges())
	}
	if c.Display.Width < 1 {
		return fmt.Errorf("width must be positive, got %d", c.Display.Width)
	}
	if c.Display.Padding < 0 || c.Display.BorderSize < 0 || c.Display.BorderRadius < 0 {
		return errors.New("padding, border_size and border_radius must not be negative")
	}
	if c.Display.Gap < 0 {
		return fmt.Errorf("gap must not be negative, got %d", c.Display.Gap)
	}
	for _, col := range []Color{c.Display.Background, c.Display.Text, c.Display.Border} {
		if _, _, err := col.RGBA(); err != nil {
			return err
		}
	}
	if c.Audio.Volume < 0 || c.Audio.Volume > 100 {
		return fmt.Errorf("volume must be between 0 and 100, got %d", c.Audio.Volume)
	}
	return nil
}

// EdgeFor returns the configured default anchor edge.
func (c *Config) EdgeFor() model.Edge {
	return model.Edge(c.Display.Position)
}
