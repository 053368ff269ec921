// Package channel selects propagation scenarios and applies channel models
// to modulated waveforms. Two variants exist behind one contract: a
// statistical multipath/fading model and a ray-tracing model fed by an
// external engine.
package channel

import (
	"encoding/json"
	"os"

	"github.com/sdrforge/wavesynth/internal/errs"
)

// Config mirrors the channel configuration file. Ratio fields are
// percentages on a 0-100 scale.
type Config struct {
	Probabilities Probabilities    `json:"probabilities"`
	MIMO          MIMOConfig       `json:"MIMO"`
	RayTracing    RayTracingConfig `json:"RayTracing"`
}

// Probabilities are the scenario selection weights. They need not sum to
// one; they are normalized at selection time.
type Probabilities struct {
	MIMO       float64 `json:"MIMO"`
	RayTracing float64 `json:"RayTracing"`
}

// MIMOConfig parameterizes the statistical multipath scenario.
type MIMOConfig struct {
	MaxPaths    int            `json:"MaxPaths"`
	MaxDistance DistanceConfig `json:"MaxDistance"`
	SpeedRange  [2]float64     `json:"SpeedRange"`
	MaxKFactor  float64        `json:"MaxKFactor"`
	Fading      FadingConfig   `json:"Fading"`
}

// DistanceConfig holds the indoor/outdoor link distance model: Ratio is the
// percent chance of an indoor link, Indoor the maximum indoor distance in
// meters, Outdoor the outdoor range in kilometers.
type DistanceConfig struct {
	Ratio   float64    `json:"Ratio"`
	Indoor  float64    `json:"Indoor"`
	Outdoor [2]float64 `json:"Outdoor"`
}

// FadingConfig holds the fading law draw: Ratio is the percent chance of the
// first listed distribution.
type FadingConfig struct {
	Ratio        float64   `json:"Ratio"`
	Distribution [2]string `json:"Distribution"`
}

// PropagationModelConfig bounds the ray-tracing propagation method.
type PropagationModelConfig struct {
	Method             string `json:"Method"`
	MaxNumReflections  int    `json:"MaxNumReflections"`
	MaxNumDiffractions int    `json:"MaxNumDiffractions"`
}

// RayTracingConfig points the ray-tracing scenario at its map data.
type RayTracingConfig struct {
	PropagationModelConfig PropagationModelConfig `json:"PropagationModelConfig"`
	MapFolder              string                 `json:"MapFolder"`
}

// LoadConfig reads and validates a channel configuration file.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, errs.Configf("channel file", "parse %s: %v", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks required fields. The MIMO block is only checked when the
// MIMO scenario can actually be drawn.
func (c Config) Validate() error {
	if c.Probabilities.MIMO < 0 || c.Probabilities.RayTracing < 0 {
		return errs.Configf("probabilities", "weights must be non-negative")
	}
	if c.Probabilities.MIMO+c.Probabilities.RayTracing <= 0 {
		return errs.Configf("probabilities", "at least one scenario weight must be positive")
	}
	if c.Probabilities.MIMO > 0 {
		m := c.MIMO
		if m.MaxPaths < 1 {
			return errs.Configf("MIMO.MaxPaths", "must be >= 1, got %d", m.MaxPaths)
		}
		if m.MaxDistance.Ratio < 0 || m.MaxDistance.Ratio > 100 {
			return errs.Configf("MIMO.MaxDistance.Ratio", "percent out of [0,100]: %v", m.MaxDistance.Ratio)
		}
		if m.MaxDistance.Indoor < 0 {
			return errs.Configf("MIMO.MaxDistance.Indoor", "must be non-negative, got %v", m.MaxDistance.Indoor)
		}
		if m.MaxDistance.Outdoor[0] > m.MaxDistance.Outdoor[1] {
			return errs.Configf("MIMO.MaxDistance.Outdoor", "inverted range [%v,%v]",
				m.MaxDistance.Outdoor[0], m.MaxDistance.Outdoor[1])
		}
		if m.SpeedRange[0] > m.SpeedRange[1] {
			return errs.Configf("MIMO.SpeedRange", "inverted range [%v,%v]", m.SpeedRange[0], m.SpeedRange[1])
		}
		if m.MaxKFactor < 0 {
			return errs.Configf("MIMO.MaxKFactor", "must be non-negative, got %v", m.MaxKFactor)
		}
		if m.Fading.Ratio < 0 || m.Fading.Ratio > 100 {
			return errs.Configf("MIMO.Fading.Ratio", "percent out of [0,100]: %v", m.Fading.Ratio)
		}
		for _, law := range m.Fading.Distribution {
			if law != string(Rayleigh) && law != string(Rician) {
				return errs.Configf("MIMO.Fading.Distribution", "unknown fading law %q", law)
			}
		}
	}
	if c.Probabilities.RayTracing > 0 && c.RayTracing.MapFolder == "" {
		return errs.Configf("RayTracing.MapFolder", "required when the ray-tracing scenario is enabled")
	}
	return nil
}
