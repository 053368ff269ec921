package channel

import (
	"math"

	"golang.org/x/exp/rand"

	"github.com/sdrforge/wavesynth/internal/errs"
	"github.com/sdrforge/wavesynth/internal/modulator"
)

// Channel applies a propagation model to a modulated waveform. Instances are
// immutable once constructed and may be applied to many waveforms.
type Channel interface {
	Apply(w *modulator.Waveform) (*modulator.Waveform, error)
}

// New builds the channel instance for a resolved scenario. The ray-tracing
// variant needs an engine; the statistical variant needs a random source for
// its one-time tap synthesis.
func New(sc Scenario, sampleRate float64, src rand.Source, engine Engine) (Channel, error) {
	switch sc.Type {
	case TypeMIMO:
		return NewMIMO(sc, sampleRate, src)
	case TypeRayTracing:
		return NewRayTracing(sc, sampleRate, engine)
	default:
		return nil, errs.Configf("scenario", "unknown scenario type %q", sc.Type)
	}
}

// tap is one resolved multipath component: a complex gain at an integer
// sample delay, rotating at a Doppler frequency.
type tap struct {
	gain    complex128
	delay   int
	doppler float64
}

// applyTaps runs every antenna stream through the tap set and combines them
// into the single received stream. Output length covers the longest delay.
func applyTaps(w *modulator.Waveform, taps []tap, sampleRate float64) *modulator.Waveform {
	maxDelay := 0
	for _, t := range taps {
		if t.delay > maxDelay {
			maxDelay = t.delay
		}
	}
	n := 0
	for _, s := range w.Streams {
		if len(s) > n {
			n = len(s)
		}
	}
	out := make([]complex128, n+maxDelay)
	scale := complex(1/math.Sqrt(float64(len(w.Streams))), 0)
	for _, stream := range w.Streams {
		for _, t := range taps {
			if t.gain == 0 {
				continue
			}
			step := 2 * math.Pi * t.doppler / sampleRate
			for i, x := range stream {
				if x == 0 {
					continue
				}
				rot := complex(math.Cos(step*float64(i)), math.Sin(step*float64(i)))
				out[i+t.delay] += scale * t.gain * rot * x
			}
		}
	}
	return &modulator.Waveform{
		Streams:     [][]complex128{out},
		SampleRate:  w.SampleRate,
		BandwidthHz: w.BandwidthHz,
	}
}
