// Package config implements the ambient Engine Configuration: the
// immutable-per-stream tunables every other component reads, YAML-backed
// the way san-kum-dynsim's internal/config package loads and defaults its
// Config.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/mikup/stemscope/internal/faults"
)

const (
	DefaultTargetSampleRate = 48000
	DefaultFrameSize        = 2048
	FadeDurationSecs        = 0.005
	LissajousCap            = 128
	MinEmitIntervalSecs     = 0.016
	DefaultBufferSeconds    = 0.5
	DefaultPointsPerSecond  = 2
)

// EngineConfig is the realtime pipeline's per-stream configuration. It is
// loaded once at process start and never mutated for the life of a
// stream.
type EngineConfig struct {
	TargetSampleRate int     `yaml:"target_sample_rate"`
	FrameSize        int     `yaml:"frame_size"`
	BufferSeconds    float64 `yaml:"buffer_seconds"`
	PointsPerSecond  int     `yaml:"points_per_second"`
}

// FadeDurationSecs, LissajousCap and MinEmitIntervalSecs are deliberately
// not yaml fields: the spec fixes them, not the operator.

// Default returns the spec's documented defaults.
func Default() *EngineConfig {
	return &EngineConfig{
		TargetSampleRate: DefaultTargetSampleRate,
		FrameSize:        DefaultFrameSize,
		BufferSeconds:    DefaultBufferSeconds,
		PointsPerSecond:  DefaultPointsPerSecond,
	}
}

// Load reads a YAML file over the defaults, then validates.
func Load(path string) (*EngineConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", faults.ErrReadFailure, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: %w", faults.ErrReadFailure, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save writes cfg back out as YAML, for a CLI "write default config" path.
func Save(path string, cfg *EngineConfig) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0o644)
}

// Validate checks every operator-facing field against the spec's
// constraints.
func (c *EngineConfig) Validate() error {
	if c.TargetSampleRate <= 0 {
		return faults.ErrInvalidSampleRate
	}

	if c.FrameSize <= 0 {
		return faults.ErrInvalidFrameSize
	}

	if c.BufferSeconds <= 0 {
		return faults.ErrInvalidBufferSeconds
	}

	if c.PointsPerSecond != 1 && c.PointsPerSecond != 2 {
		return faults.ErrInvalidPointsPerSec
	}

	return nil
}
