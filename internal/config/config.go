// Package config loads viewer settings from a TOML file, with environment
// overrides for the scene parameters.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/pelletier/go-toml/v2"

	"github.com/irfansharif/scenery/internal/palette"
)

// Config holds every setting of the viewer.
type Config struct {
	Window Window `toml:"window"`
	Render Render `toml:"render"`
	Scene  Scene  `toml:"scene"`
}

// Window controls the GLFW window.
type Window struct {
	Width   int    `toml:"width"`
	Height  int    `toml:"height"`
	Title   string `toml:"title"`
	Samples int    `toml:"samples"` // MSAA samples, 0 disables
}

// Render controls the draw sequencer.
type Render struct {
	// SelectionShader draws selected instances with the highlight shader.
	SelectionShader bool `toml:"selection_shader"`
	// TransparencyCheck refreshes the transparency classification before
	// every draw.
	TransparencyCheck bool   `toml:"transparency_check"`
	HighlightColor    string `toml:"highlight_color"` // "#rrggbb" or "#rrggbbaa"
	Background        string `toml:"background"`
}

// Scene controls demo scene generation.
type Scene struct {
	Seed             int64   `toml:"seed"` // 0 picks a time-based seed
	Instances        int     `toml:"instances"`
	TransparentRatio float64 `toml:"transparent_ratio"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Window: Window{
			Width:   1280,
			Height:  800,
			Title:   "scenery",
			Samples: 4,
		},
		Render: Render{
			SelectionShader:   true,
			TransparencyCheck: true,
			HighlightColor:    "#ffb000",
			Background:        "#1e1e24",
		},
		Scene: Scene{
			Instances:        64,
			TransparentRatio: 0.25,
		},
	}
}

// Load reads path over the defaults, then applies environment overrides. A
// missing file is not an error; an empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return Config{}, fmt.Errorf("reading config: %w", err)
		default:
			if err := toml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("parsing config %s: %w", path, err)
			}
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if s := os.Getenv("SCENERY_SEED"); s != "" {
		seed, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid SCENERY_SEED value '%s': %w", s, err)
		}
		c.Scene.Seed = seed
	}
	if s := os.Getenv("SCENERY_INSTANCES"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			return fmt.Errorf("invalid SCENERY_INSTANCES value '%s': %w", s, err)
		}
		c.Scene.Instances = n
	}
	return nil
}

// Validate checks ranges and colours.
func (c Config) Validate() error {
	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		return fmt.Errorf("invalid window size %dx%d", c.Window.Width, c.Window.Height)
	}
	if c.Window.Samples < 0 {
		return fmt.Errorf("invalid sample count %d", c.Window.Samples)
	}
	if c.Scene.Instances < 0 {
		return fmt.Errorf("invalid instance count %d", c.Scene.Instances)
	}
	if c.Scene.TransparentRatio < 0 || c.Scene.TransparentRatio > 1 {
		return fmt.Errorf("transparent ratio %v outside [0,1]", c.Scene.TransparentRatio)
	}
	if _, err := palette.ParseHex(c.Render.HighlightColor); err != nil {
		return fmt.Errorf("highlight color: %w", err)
	}
	if _, err := palette.ParseHex(c.Render.Background); err != nil {
		return fmt.Errorf("background: %w", err)
	}
	return nil
}

// Encode renders c as TOML, for writing a starter config file.
func (c Config) Encode() ([]byte, error) {
	return toml.Marshal(c)
}
