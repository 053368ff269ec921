package modulator

import (
	"math"

	"github.com/sdrforge/wavesynth/internal/dsp"
	"github.com/sdrforge/wavesynth/internal/errs"
)

// rrcTaps designs a root-raised-cosine pulse with the given rolloff, samples
// per symbol, and span in symbols. The filter has span*sps+1 taps and unit
// energy.
func rrcTaps(beta float64, sps, span int) ([]float64, error) {
	if beta <= 0 || beta > 1 {
		return nil, errs.Constructionf("pulse filter", "rolloff must be in (0,1], got %v", beta)
	}
	if sps < 2 || span < 1 {
		return nil, errs.Constructionf("pulse filter", "invalid shape sps=%d span=%d", sps, span)
	}
	n := span*sps + 1
	taps := make([]float64, n)
	mid := float64(n-1) / 2
	for i := 0; i < n; i++ {
		// t in symbol periods
		t := (float64(i) - mid) / float64(sps)
		switch {
		case t == 0:
			taps[i] = 1 - beta + 4*beta/math.Pi
		case math.Abs(math.Abs(4*beta*t)-1) < 1e-9:
			taps[i] = (beta / math.Sqrt2) * ((1+2/math.Pi)*math.Sin(math.Pi/(4*beta)) +
				(1-2/math.Pi)*math.Cos(math.Pi/(4*beta)))
		default:
			num := math.Sin(math.Pi*t*(1-beta)) + 4*beta*t*math.Cos(math.Pi*t*(1+beta))
			den := math.Pi * t * (1 - 16*beta*beta*t*t)
			taps[i] = num / den
		}
	}
	var energy float64
	for _, v := range taps {
		energy += v * v
	}
	scale := 1 / math.Sqrt(energy)
	for i := range taps {
		taps[i] *= scale
	}
	return taps, nil
}

// upsample inserts sps-1 zeros after every symbol.
func upsample(symbols []complex128, sps int) []complex128 {
	out := make([]complex128, len(symbols)*sps)
	for i, s := range symbols {
		out[i*sps] = s
	}
	return out
}

// shape upsamples the symbols and filters them through the pulse, returning
// the full filter response.
func shape(symbols []complex128, taps []float64, sps int) []complex128 {
	return dsp.Convolve(upsample(symbols, sps), taps)
}

// offsetQuadrature delays the Q rail by half a symbol period, producing the
// OQPSK stagger. The output has the same length as the input; the first
// half-symbol of Q is zero.
func offsetQuadrature(samples []complex128, sps int) []complex128 {
	delay := sps / 2
	out := make([]complex128, len(samples))
	for i := range samples {
		q := 0.0
		if i >= delay {
			q = imag(samples[i-delay])
		}
		out[i] = complex(real(samples[i]), q)
	}
	return out
}
