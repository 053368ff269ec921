package dsp

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tone(n int, freq, sampleRate float64) []complex128 {
	out := make([]complex128, n)
	for i := range out {
		phase := 2 * math.Pi * freq * float64(i) / sampleRate
		out[i] = complex(math.Cos(phase), math.Sin(phase))
	}
	return out
}

func TestFFTShift(t *testing.T) {
	in := []complex128{0, 1, 2, 3}
	out := FFTShift(in)
	assert.Equal(t, []complex128{2, 3, 0, 1}, out)
}

func TestPowerSpectrumPeak(t *testing.T) {
	const (
		n          = 256
		sampleRate = 1000.0
	)
	// A tone at a quarter of the sample rate peaks a quarter above center.
	p := PowerSpectrum(tone(n, sampleRate/4, sampleRate))
	require.Len(t, p, n)
	maxIdx := 0
	for i, v := range p {
		if v > p[maxIdx] {
			maxIdx = i
		}
	}
	assert.Equal(t, n/2+n/4, maxIdx)
}

func TestOccupiedBandwidthTone(t *testing.T) {
	const sampleRate = 48000.0
	bw := OccupiedBandwidth(tone(4096, 1000, sampleRate), sampleRate, 0.99)
	// A pure tone occupies a handful of bins at most.
	assert.Less(t, bw, 10*sampleRate/4096)
	assert.Greater(t, bw, 0.0)
}

func TestOccupiedBandwidthEmptyAndSilent(t *testing.T) {
	assert.Zero(t, OccupiedBandwidth(nil, 48000, 0.99))
	assert.Zero(t, OccupiedBandwidth(make([]complex128, 64), 48000, 0.99))
}

func TestMaxOccupiedBandwidth(t *testing.T) {
	const sampleRate = 48000.0
	narrow := tone(1024, 100, sampleRate)
	wide := make([]complex128, 1024)
	for i := range wide {
		// alternating impulses spread power across the band
		if i%2 == 0 {
			wide[i] = 1
		} else {
			wide[i] = -1
		}
	}
	cache := NewFFTCache()
	bwNarrow := OccupiedBandwidthCached(cache, narrow, sampleRate, 0.99)
	got := MaxOccupiedBandwidth(cache, [][]complex128{narrow, wide}, sampleRate, 0.99)
	assert.Greater(t, got, bwNarrow)
}

func TestFFTCacheMatchesDirect(t *testing.T) {
	x := tone(128, 3000, 48000)
	cache := NewFFTCache()
	p1 := cache.PowerSpectrum(x)
	p2 := PowerSpectrum(x)
	require.Equal(t, len(p2), len(p1))
	for i := range p1 {
		assert.InDelta(t, p2[i], p1[i], 1e-9)
	}
	cache.PowerSpectrum(x)
	cache.PowerSpectrum(tone(64, 3000, 48000))
	assert.Equal(t, 2, cache.Sizes())
}

func TestHamming(t *testing.T) {
	win := Hamming(11)
	require.Len(t, win, 11)
	assert.InDelta(t, 1.0, win[5], 1e-12)
	assert.InDelta(t, 0.08, win[0], 1e-12)
	assert.Empty(t, Hamming(0))
}

func TestLowpassFIRRejectsHighFrequency(t *testing.T) {
	const sampleRate = 48000.0
	taps := LowpassFIR(1000, sampleRate, 129)
	require.Len(t, taps, 129)

	low := FilterSame(tone(2048, 200, sampleRate), taps)
	high := FilterSame(tone(2048, 20000, sampleRate), taps)

	powerOfMid := func(x []complex128) float64 {
		var p float64
		for _, v := range x[512 : len(x)-512] {
			p += real(v)*real(v) + imag(v)*imag(v)
		}
		return p
	}
	assert.Greater(t, powerOfMid(low), 100*powerOfMid(high))
}

func TestConvolveLength(t *testing.T) {
	x := []complex128{1, 2, 3}
	taps := []float64{1, 1}
	out := Convolve(x, taps)
	require.Len(t, out, 4)
	assert.Equal(t, complex128(1), out[0])
	assert.Equal(t, complex128(3), out[1])
	assert.Equal(t, complex128(5), out[2])
	assert.Equal(t, complex128(3), out[3])
}

func TestAnalyticSignalSuppressesNegativeFrequencies(t *testing.T) {
	const (
		n          = 512
		sampleRate = 8000.0
	)
	x := make([]float64, n)
	for i := range x {
		x[i] = math.Cos(2 * math.Pi * 1000 * float64(i) / sampleRate)
	}
	p := PowerSpectrum(AnalyticSignal(x))
	var neg, pos float64
	for i, v := range p {
		if i < n/2 {
			neg += v
		} else {
			pos += v
		}
	}
	assert.Greater(t, pos, 1e6*neg)
}

func TestCarrierToPassband(t *testing.T) {
	c := Carrier{FrequencyHz: 1000, SampleRate: 48000}
	iq := make([]complex128, 48)
	for i := range iq {
		iq[i] = 1
	}
	real0 := c.ToPassband(iq)
	require.Len(t, real0, 48)
	// DC baseband through the carrier is the carrier cosine itself.
	for i, v := range real0 {
		want := math.Cos(2 * math.Pi * 1000 * float64(i) / 48000)
		assert.InDelta(t, want, v, 1e-12)
	}
}

func TestCarrierMixRoundTrip(t *testing.T) {
	up := Carrier{FrequencyHz: 2000, SampleRate: 48000}
	down := Carrier{FrequencyHz: -2000, SampleRate: 48000}
	x := tone(128, 500, 48000)
	y := down.Mix(up.Mix(x))
	for i := range x {
		assert.InDelta(t, real(x[i]), real(y[i]), 1e-9)
		assert.InDelta(t, imag(x[i]), imag(y[i]), 1e-9)
	}
}
