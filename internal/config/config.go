// Package config loads the YAML settings shared by the step counter binaries.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
	"github.com/taigrr/stepcounter/pedometer"
	"gopkg.in/yaml.v3"
)

// Config is the on-disk configuration.
type Config struct {
	// Engine holds the detection parameters tuned from the settings pages.
	Engine pedometer.Config `yaml:"engine"`

	Capacity  int    `yaml:"capacity"`   // ring size in samples
	Tick      string `yaml:"tick"`       // scheduler period, e.g. "1s"
	PassEvery int    `yaml:"pass_every"` // detection pass every N ticks

	// SampleShift scales raw sensor counts down to 1 g ≈ 16384.
	SampleShift uint `yaml:"sample_shift"`
	// Decimation keeps one in N IMU reports in sensord.
	Decimation int `yaml:"decimation"`

	Chime    bool   `yaml:"chime"`
	LogLevel string `yaml:"log_level"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Engine:      pedometer.DefaultConfig(),
		Capacity:    pedometer.DefaultCapacity,
		Tick:        "1s",
		PassEvery:   1,
		SampleShift: 2,
		Decimation:  32,
		LogLevel:    "info",
	}
}

// Load reads a YAML file on top of the defaults. Keys missing from the file
// keep their default values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	c := Default()
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return c, nil
}

// LoadOrDefault loads path, or returns the defaults when path is empty.
func LoadOrDefault(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}
	return Load(path)
}

// Save writes c to path as YAML.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Validate checks every setting.
func (c *Config) Validate() error {
	var errs []error
	if err := c.Engine.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("engine: %w", err))
	}
	if c.Capacity < pedometer.MinCapacity {
		errs = append(errs, fmt.Errorf("capacity must be at least %d, got %d", pedometer.MinCapacity, c.Capacity))
	}
	if d, err := time.ParseDuration(c.Tick); err != nil {
		errs = append(errs, fmt.Errorf("tick: %w", err))
	} else if d <= 0 {
		errs = append(errs, fmt.Errorf("tick must be positive, got %s", c.Tick))
	}
	if c.PassEvery < 1 {
		errs = append(errs, fmt.Errorf("pass_every must be positive, got %d", c.PassEvery))
	}
	if c.SampleShift > 16 {
		errs = append(errs, fmt.Errorf("sample_shift too large: %d", c.SampleShift))
	}
	if c.Decimation < 1 {
		errs = append(errs, fmt.Errorf("decimation must be positive, got %d", c.Decimation))
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// TickInterval returns the parsed scheduler period. It falls back to one
// second when Tick is invalid.
func (c *Config) TickInterval() time.Duration {
	d, err := time.ParseDuration(c.Tick)
	if err != nil || d <= 0 {
		return time.Second
	}
	return d
}

// Level returns the slog level, defaulting to info.
func (c *Config) Level() slog.Level {
	l, err := parseLevel(c.LogLevel)
	if err != nil {
		return slog.LevelInfo
	}
	return l
}

// Logger returns a colorized slog logger writing to w at c's level.
func (c *Config) Logger(w io.Writer) *slog.Logger {
	return slog.New(tint.NewHandler(w, &tint.Options{
		Level:      c.Level(),
		TimeFormat: time.TimeOnly,
	}))
}

// EngineOptions returns the pedometer options described by c.
func (c *Config) EngineOptions() []pedometer.Option {
	return []pedometer.Option{
		pedometer.WithConfig(c.Engine),
		pedometer.WithCapacity(c.Capacity),
		pedometer.WithPassEvery(c.PassEvery),
	}
}

func parseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if s == "" {
		return slog.LevelInfo, nil
	}
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return l, fmt.Errorf("log_level: %w", err)
	}
	return l, nil
}
