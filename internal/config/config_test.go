package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/adrg/xdg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/llehouerou/segue/internal/sequencer"
)

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skipf("Could not get home dir: %v", err)
	}

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "tilde expands to home",
			input:    "~/music",
			expected: filepath.Join(home, "music"),
		},
		{
			name:     "tilde with nested path",
			input:    "~/music/library/albums",
			expected: filepath.Join(home, "music", "library", "albums"),
		},
		{
			name:     "absolute path unchanged",
			input:    "/usr/local/music",
			expected: "/usr/local/music",
		},
		{
			name:     "relative path unchanged",
			input:    "music/albums",
			expected: "music/albums",
		},
		{
			name:     "empty string unchanged",
			input:    "",
			expected: "",
		},
		{
			name:     "tilde only",
			input:    "~",
			expected: home,
		},
		{
			name:     "tilde with slash",
			input:    "~/",
			expected: filepath.Join(home, ""),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := expandPath(tt.input)
			if result != tt.expected {
				t.Errorf("expandPath(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestGetConfigPaths(t *testing.T) {
	paths := getConfigPaths()

	if len(paths) != 2 {
		t.Fatalf("getConfigPaths() returned %d paths, want 2", len(paths))
	}
	if want := filepath.Join(xdg.ConfigHome, "segue", "config.toml"); paths[0] != want {
		t.Errorf("first config path = %q, want %q", paths[0], want)
	}
	// Last path should be local config.toml
	if paths[1] != "config.toml" {
		t.Errorf("last config path = %q, want %q", paths[1], "config.toml")
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_NoFiles(t *testing.T) {
	cfg, err := load([]string{filepath.Join(t.TempDir(), "missing.toml")})
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_ParsesAllKeys(t *testing.T) {
	path := writeConfig(t, `
[playback]
volume = 0.6
speed = 1.25
loop = "playlist"
shuffle = true
pool_retain = 5
seek_step = "10s"

[output]
sample_rate = 48000
buffer = "250ms"

[log]
level = "debug"
file = "/tmp/segue.log"

[state]
enabled = false
path = "/tmp/segue.db"

[ui]
notifications = false
icons = "nerd"
`)

	cfg, err := load([]string{path})
	require.NoError(t, err)

	assert.InDelta(t, 0.6, cfg.Playback.Volume, 1e-9)
	assert.InDelta(t, 1.25, cfg.Playback.Speed, 1e-9)
	assert.InDelta(t, 1.0, cfg.Playback.Pitch, 1e-9)
	assert.Equal(t, sequencer.LoopPlaylist, cfg.LoopMode())
	assert.True(t, cfg.Playback.Shuffle)
	assert.Equal(t, 5, cfg.Playback.PoolRetain)
	assert.Equal(t, 10*time.Second, cfg.Playback.SeekStep)
	assert.Equal(t, 48000, cfg.Output.SampleRate)
	assert.Equal(t, 250*time.Millisecond, cfg.Output.Buffer)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "/tmp/segue.log", cfg.Log.File)
	assert.False(t, cfg.State.Enabled)
	assert.Equal(t, "/tmp/segue.db", cfg.State.Path)
	assert.False(t, cfg.UI.Notifications)
	assert.Equal(t, "nerd", cfg.UI.Icons)
}

func TestLoad_LastFileWins(t *testing.T) {
	first := writeConfig(t, "[playback]\nvolume = 0.2\nshuffle = true\n")
	second := writeConfig(t, "[playback]\nvolume = 0.8\n")

	cfg, err := load([]string{first, second})
	require.NoError(t, err)

	assert.InDelta(t, 0.8, cfg.Playback.Volume, 1e-9)
	assert.True(t, cfg.Playback.Shuffle)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"invalid toml", "[playback\nvolume = "},
		{"unknown loop mode", "[playback]\nloop = \"sometimes\"\n"},
		{"unknown icon style", "[ui]\nicons = \"emoji\"\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := load([]string{writeConfig(t, tt.content)})
			assert.Error(t, err)
		})
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name   string
		modify func(c *Config)
		check  func(t *testing.T, c *Config)
	}{
		{
			name:   "volume clamped to one",
			modify: func(c *Config) { c.Playback.Volume = 1.7 },
			check:  func(t *testing.T, c *Config) { assert.InDelta(t, 1.0, c.Playback.Volume, 1e-9) },
		},
		{
			name:   "negative volume is silent",
			modify: func(c *Config) { c.Playback.Volume = -0.5 },
			check:  func(t *testing.T, c *Config) { assert.InDelta(t, 0.0, c.Playback.Volume, 1e-9) },
		},
		{
			name:   "zero speed resets to normal",
			modify: func(c *Config) { c.Playback.Speed = 0 },
			check:  func(t *testing.T, c *Config) { assert.InDelta(t, 1.0, c.Playback.Speed, 1e-9) },
		},
		{
			name:   "speed capped",
			modify: func(c *Config) { c.Playback.Speed = 10 },
			check:  func(t *testing.T, c *Config) { assert.InDelta(t, 4.0, c.Playback.Speed, 1e-9) },
		},
		{
			name:   "negative pitch resets to normal",
			modify: func(c *Config) { c.Playback.Pitch = -2 },
			check:  func(t *testing.T, c *Config) { assert.InDelta(t, 1.0, c.Playback.Pitch, 1e-9) },
		},
		{
			name:   "loop alias canonicalized",
			modify: func(c *Config) { c.Playback.Loop = " ONE " },
			check:  func(t *testing.T, c *Config) { assert.Equal(t, "track", c.Playback.Loop) },
		},
		{
			name:   "icon style default",
			modify: func(c *Config) { c.UI.Icons = "" },
			check:  func(t *testing.T, c *Config) { assert.Equal(t, "unicode", c.UI.Icons) },
		},
		{
			name:   "pool retain default",
			modify: func(c *Config) { c.Playback.PoolRetain = 0 },
			check:  func(t *testing.T, c *Config) { assert.Equal(t, DefaultPoolRetain, c.Playback.PoolRetain) },
		},
		{
			name:   "seek step default",
			modify: func(c *Config) { c.Playback.SeekStep = -time.Second },
			check:  func(t *testing.T, c *Config) { assert.Equal(t, DefaultSeekStep, c.Playback.SeekStep) },
		},
		{
			name:   "sample rate default",
			modify: func(c *Config) { c.Output.SampleRate = 0 },
			check:  func(t *testing.T, c *Config) { assert.Equal(t, DefaultSampleRate, c.Output.SampleRate) },
		},
		{
			name:   "sample rate clamped",
			modify: func(c *Config) { c.Output.SampleRate = 1000 },
			check:  func(t *testing.T, c *Config) { assert.Equal(t, minSampleRate, c.Output.SampleRate) },
		},
		{
			name:   "buffer default",
			modify: func(c *Config) { c.Output.Buffer = 0 },
			check:  func(t *testing.T, c *Config) { assert.Equal(t, DefaultBuffer, c.Output.Buffer) },
		},
		{
			name:   "log level default",
			modify: func(c *Config) { c.Log.Level = "" },
			check:  func(t *testing.T, c *Config) { assert.Equal(t, "info", c.Log.Level) },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			require.NoError(t, cfg.Normalize())
			tt.check(t, cfg)
		})
	}
}

func TestNormalize_ExpandsPaths(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skipf("Could not get home dir: %v", err)
	}

	cfg := Default()
	cfg.Log.File = "~/segue.log"
	cfg.State.Path = "~/segue.db"
	require.NoError(t, cfg.Normalize())

	assert.Equal(t, filepath.Join(home, "segue.log"), cfg.Log.File)
	assert.Equal(t, filepath.Join(home, "segue.db"), cfg.State.Path)
}
