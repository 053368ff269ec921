package channel

import (
	"math"

	"github.com/sdrforge/wavesynth/internal/errs"
	"github.com/sdrforge/wavesynth/internal/modulator"
)

// Path is one propagation path returned by a ray-tracing engine.
type Path struct {
	Gain   complex128
	DelayS float64
}

// Engine computes deterministic multipath from map geometry. The geometry
// lookup lives outside this package; the channel only plumbs parameters in
// and convolves the returned paths.
type Engine interface {
	TracePaths(cfg PropagationModelConfig, mapFolder string) ([]Path, error)
}

// RayTracingChannel convolves waveforms with engine-computed path gains and
// delays.
type RayTracingChannel struct {
	scenario   Scenario
	sampleRate float64
	taps       []tap
}

// NewRayTracing queries the engine once for the scenario's paths.
func NewRayTracing(sc Scenario, sampleRate float64, engine Engine) (*RayTracingChannel, error) {
	if engine == nil {
		return nil, errs.Configf("engine", "ray-tracing scenario requires an engine")
	}
	if sampleRate <= 0 {
		return nil, errs.Configf("sampleRate", "must be positive, got %v", sampleRate)
	}
	paths, err := engine.TracePaths(sc.Propagation, sc.MapFolder)
	if err != nil {
		return nil, errs.Constructionf("ray tracing", "trace paths: %v", err)
	}
	if len(paths) == 0 {
		return nil, errs.Constructionf("ray tracing", "engine returned no paths")
	}
	taps := make([]tap, len(paths))
	minDelay := math.Inf(1)
	for _, p := range paths {
		if p.DelayS < minDelay {
			minDelay = p.DelayS
		}
	}
	for i, p := range paths {
		taps[i] = tap{
			gain:  p.Gain,
			delay: int(math.Round((p.DelayS - minDelay) * sampleRate)),
		}
	}
	return &RayTracingChannel{scenario: sc, sampleRate: sampleRate, taps: taps}, nil
}

// Scenario returns the resolved parameters this channel was built from.
func (c *RayTracingChannel) Scenario() Scenario { return c.scenario }

// Apply convolves the waveform with the traced paths.
func (c *RayTracingChannel) Apply(w *modulator.Waveform) (*modulator.Waveform, error) {
	if w == nil || len(w.Streams) == 0 {
		return nil, errs.Runtimef("channel", "empty waveform")
	}
	return applyTaps(w, c.taps, c.sampleRate), nil
}
