// Package config loads graphpanel settings from TOML.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Dir is the per-project directory holding config and archive.
const Dir = ".graphpanel"

// Surface launch modes.
const (
	ModeInProcess = "inprocess"
	ModeProcess   = "process"
	ModeRemote    = "remote"
)

// Config holds graphpanel configuration.
type Config struct {
	Panel       PanelConfig       `toml:"panel"`
	Surface     SurfaceConfig     `toml:"surface"`
	Interaction InteractionConfig `toml:"interaction"`
	Export      ExportConfig      `toml:"export"`
	Archive     ArchiveConfig     `toml:"archive"`
	Watch       WatchConfig       `toml:"watch"`
}

// PanelConfig controls the host side.
type PanelConfig struct {
	WheelSensitivity float64 `toml:"wheel_sensitivity"`
	PixelRatio       float64 `toml:"pixel_ratio"`

	// ReadyTimeout bounds the wait for the surface; zero waits forever.
	ReadyTimeout Duration `toml:"ready_timeout"`
}

// SurfaceConfig selects and sizes the rendering surface.
type SurfaceConfig struct {
	Mode           string   `toml:"mode"` // "inprocess", "process", "remote"
	URL            string   `toml:"url"`  // websocket URL for remote mode
	Width          int      `toml:"width"`
	Height         int      `toml:"height"`
	ResizeDebounce Duration `toml:"resize_debounce"`
}

// InteractionConfig holds pointer timings.
type InteractionConfig struct {
	DoubleTapWindow Duration `toml:"double_tap_window"`
	TooltipHold     Duration `toml:"tooltip_hold"`
}

// ExportConfig controls where exports land when no path is given.
type ExportConfig struct {
	Dir string `toml:"dir"`
}

// ArchiveConfig controls the snapshot archive.
type ArchiveConfig struct {
	Enabled bool   `toml:"enabled"`
	Dir     string `toml:"dir"` // relative to the project root
}

// WatchConfig controls input file watching.
type WatchConfig struct {
	Debounce Duration `toml:"debounce"`
}

// Duration is a time.Duration written as a string such as "300ms".
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("parsing duration %q: %w", text, err)
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Panel: PanelConfig{WheelSensitivity: 1, PixelRatio: 1, ReadyTimeout: Duration{30 * time.Second}},
		Surface: SurfaceConfig{
			Mode:           ModeInProcess,
			Width:          800,
			Height:         600,
			ResizeDebounce: Duration{10 * time.Millisecond},
		},
		Interaction: InteractionConfig{
			DoubleTapWindow: Duration{300 * time.Millisecond},
			TooltipHold:     Duration{time.Second},
		},
		Export:  ExportConfig{Dir: "."},
		Archive: ArchiveConfig{Enabled: true, Dir: filepath.Join(Dir, "archive")},
		Watch:   WatchConfig{Debounce: Duration{500 * time.Millisecond}},
	}
}

// Path returns the config file path for a project root.
func Path(root string) string {
	return filepath.Join(root, Dir, "config.toml")
}

// Load reads the config file at path. A missing file yields the defaults;
// keys absent from the file keep their default values.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks values that cannot be defaulted.
func (c *Config) Validate() error {
	switch c.Surface.Mode {
	case ModeInProcess, ModeProcess:
	case ModeRemote:
		if c.Surface.URL == "" {
			return errors.New("surface.url is required in remote mode")
		}
	default:
		return fmt.Errorf("unknown surface.mode %q", c.Surface.Mode)
	}
	if c.Panel.WheelSensitivity <= 0 {
		return errors.New("panel.wheel_sensitivity must be positive")
	}
	if c.Panel.PixelRatio <= 0 {
		return errors.New("panel.pixel_ratio must be positive")
	}
	return nil
}

// Save writes the config to path, creating its directory.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}
