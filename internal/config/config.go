package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"github.com/cockroachdb/errors"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/llehouerou/segue/internal/icons"
	"github.com/llehouerou/segue/internal/sequencer"
)

const appName = "segue"

const (
	DefaultPoolRetain = 3
	DefaultSeekStep   = 5 * time.Second
	DefaultSampleRate = 44100
	DefaultBuffer     = 100 * time.Millisecond

	minSampleRate = 8000
	maxSampleRate = 192000
	maxRate       = 4.0
)

type Config struct {
	Playback PlaybackConfig `koanf:"playback"`
	Output   OutputConfig   `koanf:"output"`
	Log      LogConfig      `koanf:"log"`
	State    StateConfig    `koanf:"state"`
	UI       UIConfig       `koanf:"ui"`
}

// PlaybackConfig holds the initial player settings.
type PlaybackConfig struct {
	Volume     float64       `koanf:"volume"`      // 0.0-1.0 (default: 1.0)
	Speed      float64       `koanf:"speed"`       // (0, 4] (default: 1.0)
	Pitch      float64       `koanf:"pitch"`       // (0, 4] (default: 1.0)
	Loop       string        `koanf:"loop"`        // "none", "track" or "playlist"
	Shuffle    bool          `koanf:"shuffle"`     // start with shuffle enabled
	PoolRetain int           `koanf:"pool_retain"` // idle decoder sessions kept (default: 3)
	SeekStep   time.Duration `koanf:"seek_step"`   // relative seek step (default: 5s)
}

// OutputConfig holds the speaker settings.
type OutputConfig struct {
	SampleRate int           `koanf:"sample_rate"` // default: 44100
	Buffer     time.Duration `koanf:"buffer"`      // default: 100ms
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `koanf:"level"` // zerolog level name (default: "info")
	File  string `koanf:"file"`  // log file, empty for the default location
}

// StateConfig holds persistence settings.
type StateConfig struct {
	Enabled bool   `koanf:"enabled"` // default: true
	Path    string `koanf:"path"`    // database file, empty for the default location
}

// UIConfig holds front-end settings.
type UIConfig struct {
	Notifications bool   `koanf:"notifications"` // desktop notification on track change (default: true)
	Icons         string `koanf:"icons"`         // "nerd", "unicode" or "none" (default: "unicode")
}

// Default returns the configuration used when no file sets a key.
func Default() *Config {
	return &Config{
		Playback: PlaybackConfig{
			Volume:     1,
			Speed:      1,
			Pitch:      1,
			Loop:       sequencer.LoopNone.String(),
			PoolRetain: DefaultPoolRetain,
			SeekStep:   DefaultSeekStep,
		},
		Output: OutputConfig{
			SampleRate: DefaultSampleRate,
			Buffer:     DefaultBuffer,
		},
		Log:   LogConfig{Level: "info"},
		State: StateConfig{Enabled: true},
		UI:    UIConfig{Notifications: true, Icons: string(icons.StyleUnicode)},
	}
}

// Load reads the config files in order of priority (last wins).
func Load() (*Config, error) {
	return load(getConfigPaths())
}

func load(paths []string) (*Config, error) {
	k := koanf.New(".")

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
				return nil, errors.Wrapf(err, "load %s", path)
			}
		}
	}

	cfg := Default()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, errors.Wrap(err, "decode config")
	}
	if err := cfg.Normalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Normalize applies defaults to unset values, clamps out-of-range ones and
// expands ~ in paths. It fails on an unknown loop mode.
func (c *Config) Normalize() error {
	p := &c.Playback
	p.Volume = min(max(p.Volume, 0), 1)
	if p.Speed <= 0 {
		p.Speed = 1
	}
	p.Speed = min(p.Speed, maxRate)
	if p.Pitch <= 0 {
		p.Pitch = 1
	}
	p.Pitch = min(p.Pitch, maxRate)
	mode, err := sequencer.ParseLoopMode(p.Loop)
	if err != nil {
		return errors.Wrap(err, "playback.loop")
	}
	p.Loop = mode.String()
	if p.PoolRetain <= 0 {
		p.PoolRetain = DefaultPoolRetain
	}
	if p.SeekStep <= 0 {
		p.SeekStep = DefaultSeekStep
	}

	o := &c.Output
	if o.SampleRate == 0 {
		o.SampleRate = DefaultSampleRate
	}
	o.SampleRate = min(max(o.SampleRate, minSampleRate), maxSampleRate)
	if o.Buffer <= 0 {
		o.Buffer = DefaultBuffer
	}

	if c.UI.Icons == "" {
		c.UI.Icons = string(icons.StyleUnicode)
	}
	if !icons.Valid(c.UI.Icons) {
		return errors.Newf("ui.icons: unknown style %q", c.UI.Icons)
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	c.Log.File = expandPath(c.Log.File)
	c.State.Path = expandPath(c.State.Path)
	return nil
}

// LoopMode returns the configured loop mode.
func (c *Config) LoopMode() sequencer.LoopMode {
	m, _ := sequencer.ParseLoopMode(c.Playback.Loop)
	return m
}

func getConfigPaths() []string {
	return []string{
		// 1. $XDG_CONFIG_HOME/segue/config.toml
		filepath.Join(xdg.ConfigHome, appName, "config.toml"),
		// 2. ./config.toml (pwd, highest priority)
		"config.toml",
	}
}

func expandPath(path string) string {
	if path != "" && path[0] == '~' {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	return path
}
