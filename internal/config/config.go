// Package config defines the typed configuration consumed by variant jobs,
// together with its defaults, validation, YAML persistence, and environment
// overrides.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

// DefaultFontPath is the platform font tried when the configured font cannot be loaded.
const DefaultFontPath = "/usr/share/fonts/truetype/dejavu/DejaVuSans-Bold.ttf"

// Config is the read-only snapshot a job runs with.
type Config struct {
	HueStart     int `yaml:"hue_start" json:"hue_start"`
	HueEnd       int `yaml:"hue_end" json:"hue_end"`
	StepCount    int `yaml:"step_count" json:"step_count"`
	FullProgress int `yaml:"full_progress" json:"full_progress"`

	OverlayEnabled   bool       `yaml:"overlay_enabled" json:"overlay_enabled"`
	BackgroundColor  string     `yaml:"background_color" json:"background_color"`
	HighTextColor    string     `yaml:"high_text_color" json:"high_text_color"`
	DownTextColor    string     `yaml:"down_text_color" json:"down_text_color"`
	UseWhiteHighText bool       `yaml:"use_white_high_text" json:"use_white_high_text"`
	Slogans          [][]string `yaml:"slogans" json:"slogans"`
	FontPath         string     `yaml:"font_path" json:"font_path"`
	FontSize         float64    `yaml:"font_size" json:"font_size"`

	JPEGQuality int `yaml:"jpeg_quality" json:"jpeg_quality"`

	// Workers bounds step fan-out. Zero and one both mean a single sequential worker.
	Workers int `yaml:"workers" json:"workers"`

	// ContinueOnWriteError skips a step whose output cannot be written instead
	// of failing the whole job.
	ContinueOnWriteError bool `yaml:"continue_on_write_error" json:"continue_on_write_error"`
}

// Defaults returns the baseline configuration.
func Defaults() Config {
	return Config{
		HueStart:         0,
		HueEnd:           360,
		StepCount:        50,
		FullProgress:     100,
		OverlayEnabled:   false,
		BackgroundColor:  "white",
		HighTextColor:    "black",
		DownTextColor:    "#8B0000",
		UseWhiteHighText: false,
		Slogans: [][]string{
			{"NO ALCOHOL CHALLENGE", "ACCORDING TO THE AGE"},
			{"NO LATE EATING CHALLENGE", "ACCORDING TO THE AGE"},
			{"NO CHEAT CHALLENGE", "ACCORDING TO THE AGE"},
			{"NO SUGAR CHALLENGE", "ACCORDING TO THE AGE"},
			{"NO BAD FAT CHALLENGE", "ACCORDING TO THE AGE"},
		},
		FontPath:    "assets/Akrobat-Bold.otf",
		FontSize:    50,
		JPEGQuality: 95,
		Workers:     1,
	}
}

// Clone returns a deep copy so a job's snapshot cannot be changed through
// the caller's slices.
func (c Config) Clone() Config {
	out := c
	if c.Slogans != nil {
		out.Slogans = make([][]string, len(c.Slogans))
		for i, group := range c.Slogans {
			out.Slogans[i] = append([]string(nil), group...)
		}
	}
	return out
}

// Validate reports the first invalid field.
func (c Config) Validate() error {
	if c.HueStart < 0 || c.HueStart > 360 {
		return fmt.Errorf("hue start must be between 0 and 360, got %d", c.HueStart)
	}

	if c.HueEnd < 0 || c.HueEnd > 360 {
		return fmt.Errorf("hue end must be between 0 and 360, got %d", c.HueEnd)
	}

	if c.StepCount <= 0 {
		return fmt.Errorf("step count must be positive, got %d", c.StepCount)
	}

	if c.FullProgress <= 0 {
		return fmt.Errorf("full progress must be positive, got %d", c.FullProgress)
	}

	if len(c.Slogans) == 0 {
		return errors.New("at least one slogan is required")
	}

	if c.FontSize < 0 {
		return fmt.Errorf("font size must be non-negative, got %g", c.FontSize)
	}

	if c.JPEGQuality < 1 || c.JPEGQuality > 100 {
		return fmt.Errorf("jpeg quality must be between 1 and 100, got %d", c.JPEGQuality)
	}

	if c.Workers < 0 {
		return fmt.Errorf("workers must be non-negative, got %d", c.Workers)
	}

	return nil
}

// Load reads a YAML configuration file on top of Defaults.
//
// A missing file yields the defaults. Keys that are not part of Config are
// rejected rather than silently ignored.
func Load(path string) (Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := Decode(bytes.NewReader(data), &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	return cfg, nil
}

// Decode strictly decodes YAML from r into cfg. Fields absent from the input
// keep their current values.
func Decode(r io.Reader, cfg *Config) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// Save writes cfg as YAML, creating parent directories as needed.
func Save(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// ApplyEnv overrides selected fields from HUE_VARIANTS_* environment variables.
// Unparseable numeric values are ignored.
func ApplyEnv(cfg *Config) {
	if v := os.Getenv("HUE_VARIANTS_FONT_PATH"); v != "" {
		cfg.FontPath = v
	}

	if v := os.Getenv("HUE_VARIANTS_STEP_COUNT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.StepCount = n
		}
	}

	if v := os.Getenv("HUE_VARIANTS_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Workers = n
		}
	}

	if v := os.Getenv("HUE_VARIANTS_JPEG_QUALITY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.JPEGQuality = n
		}
	}
}
