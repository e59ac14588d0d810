// Package config loads the optional montage.yaml that sets render, preview,
// audio and logging defaults for the montage command.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/phanxgames/montage/media"
)

// FileName is the configuration file looked up next to a project.
const FileName = "montage.yaml"

// Config represents montage.yaml.
type Config struct {
	Render  RenderConfig  `yaml:"render"`
	Preview PreviewConfig `yaml:"preview"`
	Audio   AudioConfig   `yaml:"audio"`
	Media   MediaConfig   `yaml:"media"`
	Log     LogConfig     `yaml:"log"`
}

// RenderConfig controls frame export.
type RenderConfig struct {
	Output   string `yaml:"output"`
	Pattern  string `yaml:"pattern"`
	First    int    `yaml:"first"`
	Last     int    `yaml:"last"`
	Backlog  int    `yaml:"backlog"`
	Realtime bool   `yaml:"realtime"`
}

// PreviewConfig controls the preview window.
type PreviewConfig struct {
	Title       string `yaml:"title"`
	Loop        bool   `yaml:"loop"`
	Audio       bool   `yaml:"audio"`
	Screenshots string `yaml:"screenshots"`
}

// AudioConfig controls the soundtrack stream.
type AudioConfig struct {
	SampleRate int `yaml:"sampleRate"`
	BlockSize  int `yaml:"blockSize"`
	Backlog    int `yaml:"backlog"`
}

// MediaConfig sets decoder defaults for media files without their own
// timing.
type MediaConfig struct {
	FrameRate string  `yaml:"frameRate"`
	DPI       float64 `yaml:"dpi"`
}

// LogConfig selects the log level and output format.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		Render: RenderConfig{
			Output:  "frames",
			Pattern: "frame_%05d.png",
			Last:    -1,
			Backlog: 4,
		},
		Preview: PreviewConfig{Title: "montage", Loop: true, Screenshots: "screenshots"},
		Audio:   AudioConfig{SampleRate: 48000, BlockSize: 1024, Backlog: 4},
		Media:   MediaConfig{FrameRate: "30", DPI: 72},
		Log:     LogConfig{Level: "info", Format: "console"},
	}
}

// Load reads path over the defaults and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return Parse(data)
}

// LoadOptional is Load, except that a missing file yields the defaults.
func LoadOptional(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

// Parse decodes YAML over the defaults. Unknown keys are rejected.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports every invalid field.
func (c *Config) Validate() error {
	var errs []error
	if c.Render.Pattern == "" || !strings.Contains(c.Render.Pattern, "%") {
		errs = append(errs, fmt.Errorf("render.pattern %q needs a frame number verb", c.Render.Pattern))
	}
	if c.Render.First < 0 {
		errs = append(errs, fmt.Errorf("render.first must not be negative"))
	}
	if c.Render.Last >= 0 && c.Render.Last < c.Render.First {
		errs = append(errs, fmt.Errorf("render.last %d is before render.first %d", c.Render.Last, c.Render.First))
	}
	if c.Render.Backlog < 1 {
		errs = append(errs, fmt.Errorf("render.backlog must be at least 1"))
	}
	if c.Audio.SampleRate < 8000 || c.Audio.SampleRate > 192000 {
		errs = append(errs, fmt.Errorf("audio.sampleRate %d out of range", c.Audio.SampleRate))
	}
	if c.Audio.BlockSize < 1 || c.Audio.Backlog < 1 {
		errs = append(errs, fmt.Errorf("audio.blockSize and audio.backlog must be positive"))
	}
	if _, err := ParseRate(c.Media.FrameRate); err != nil {
		errs = append(errs, fmt.Errorf("media.frameRate: %w", err))
	}
	if c.Media.DPI <= 0 {
		errs = append(errs, fmt.Errorf("media.dpi must be positive"))
	}
	if _, err := zerolog.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}
	switch c.Log.Format {
	case "console", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format %q is not console or json", c.Log.Format))
	}
	return errors.Join(errs...)
}

// DecoderOptions converts the media section.
func (c *Config) DecoderOptions() media.DecoderOptions {
	rate, _ := ParseRate(c.Media.FrameRate)
	return media.DecoderOptions{FrameRate: rate, DPI: c.Media.DPI}
}

// NewLogger builds the logger described by the log section.
func (c *Config) NewLogger(w io.Writer) zerolog.Logger {
	level, err := zerolog.ParseLevel(c.Log.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	if c.Log.Format == "console" {
		w = zerolog.ConsoleWriter{Out: w}
	}
	return zerolog.New(w).With().Timestamp().Logger().Level(level)
}

// ParseRate parses a frame rate written as "30" or "30000/1001".
func ParseRate(s string) (media.Rational, error) {
	num, den, found := strings.Cut(strings.TrimSpace(s), "/")
	if !found {
		den = "1"
	}
	n, err := strconv.ParseInt(num, 10, 64)
	if err != nil {
		return media.Rational{}, fmt.Errorf("invalid frame rate %q", s)
	}
	d, err := strconv.ParseInt(den, 10, 64)
	if err != nil {
		return media.Rational{}, fmt.Errorf("invalid frame rate %q", s)
	}
	if n <= 0 || d <= 0 {
		return media.Rational{}, fmt.Errorf("frame rate %q must be positive", s)
	}
	return media.Rational{Num: n, Den: d}, nil
}
