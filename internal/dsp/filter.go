package dsp

import "math"

// LowpassFIR designs a windowed-sinc lowpass filter with the given cutoff.
// The taps are Hamming-windowed and normalized to unit DC gain. numTaps
// should be odd for a symmetric, linear-phase filter.
func LowpassFIR(cutoffHz, sampleRate float64, numTaps int) []float64 {
	if numTaps <= 0 || cutoffHz <= 0 || sampleRate <= 0 {
		return []float64{}
	}
	fc := cutoffHz / sampleRate
	win := Hamming(numTaps)
	taps := make([]float64, numTaps)
	mid := float64(numTaps-1) / 2
	for i := 0; i < numTaps; i++ {
		t := float64(i) - mid
		if t == 0 {
			taps[i] = 2 * fc
		} else {
			taps[i] = math.Sin(2*math.Pi*fc*t) / (math.Pi * t)
		}
		taps[i] *= win[i]
	}
	var sum float64
	for _, v := range taps {
		sum += v
	}
	if sum != 0 {
		for i := range taps {
			taps[i] /= sum
		}
	}
	return taps
}

// Convolve filters the complex input with real FIR taps, returning the full
// convolution of length len(x)+len(taps)-1.
func Convolve(x []complex128, taps []float64) []complex128 {
	if len(x) == 0 || len(taps) == 0 {
		return []complex128{}
	}
	out := make([]complex128, len(x)+len(taps)-1)
	for i, xi := range x {
		if xi == 0 {
			continue
		}
		for j, tj := range taps {
			out[i+j] += xi * complex(tj, 0)
		}
	}
	return out
}

// FilterSame filters the input and trims the group delay so that the output
// aligns with and has the same length as the input.
func FilterSame(x []complex128, taps []float64) []complex128 {
	full := Convolve(x, taps)
	if len(full) == 0 {
		return full
	}
	delay := (len(taps) - 1) / 2
	end := delay + len(x)
	if end > len(full) {
		end = len(full)
	}
	return full[delay:end]
}
