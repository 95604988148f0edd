// Package session loads a mix session from a YAML file: the output format,
// mixer policy, and the list of tracks to feed into it.
package session

import (
	"fmt"
	"os"
	"time"

	"github.com/goccy/go-yaml"

	"github.com/basswave/mixer/pkg/pcm"
)

// Config is the top-level shape of a session file.
type Config struct {
	Output       OutputConfig  `yaml:"output"`
	SilenceGapMS int           `yaml:"silence_gap_ms,omitempty"`
	AutoClose    bool          `yaml:"auto_close,omitempty"`
	Tracks       []TrackConfig `yaml:"tracks"`
}

// OutputConfig describes the mixer's output format.
type OutputConfig struct {
	SampleRate int `yaml:"sample_rate"`
	Channels   int `yaml:"channels"`
}

// TrackConfig describes one input track.
type TrackConfig struct {
	Label     string  `yaml:"label,omitempty"`
	Path      string  `yaml:"path"`
	Gain      float32 `yaml:"gain,omitempty"`
	FadeOutMS int     `yaml:"fade_out_ms,omitempty"`
}

// Load reads and parses a session file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("session: load %s: %w", path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("session: parse %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("session: %s: %w", path, err)
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Output.SampleRate <= 0 {
		return fmt.Errorf("output.sample_rate must be positive")
	}
	if c.Output.Channels != 1 && c.Output.Channels != 2 {
		return fmt.Errorf("output.channels must be 1 or 2, got %d", c.Output.Channels)
	}
	if len(c.Tracks) == 0 {
		return fmt.Errorf("at least one track is required")
	}
	for i, t := range c.Tracks {
		if t.Path == "" {
			return fmt.Errorf("tracks[%d]: path is required", i)
		}
	}
	return nil
}

// OutputFormat returns the pcm.Format described by the output section.
func (c *Config) OutputFormat() pcm.Format {
	return pcm.NewFormat(c.Output.SampleRate, c.Output.Channels)
}

// MixerOptions translates the session-level policy into pcm.MixerOptions.
func (c *Config) MixerOptions() []pcm.MixerOption {
	var opts []pcm.MixerOption
	if c.AutoClose {
		opts = append(opts, pcm.WithAutoClose())
	}
	if c.SilenceGapMS > 0 {
		opts = append(opts, pcm.WithSilenceGap(time.Duration(c.SilenceGapMS)*time.Millisecond))
	}
	return opts
}

// FadeOut returns the track's configured fade-out duration.
func (t *TrackConfig) FadeOut() time.Duration {
	return time.Duration(t.FadeOutMS) * time.Millisecond
}
