package dsp

// DefaultPowerFraction is the fraction of total spectral power that the
// occupied-bandwidth estimate must capture.
const DefaultPowerFraction = 0.9999999

// OccupiedBandwidth returns the width in Hz of the smallest symmetric band
// around the spectrum center that captures at least the given fraction of the
// total spectral power. A fraction <= 0 selects DefaultPowerFraction.
func OccupiedBandwidth(samples []complex128, sampleRate, fraction float64) float64 {
	return occupied(PowerSpectrum(samples), sampleRate, fraction)
}

// OccupiedBandwidthCached is OccupiedBandwidth using a shared FFT plan cache.
func OccupiedBandwidthCached(cache *FFTCache, samples []complex128, sampleRate, fraction float64) float64 {
	if cache == nil {
		return OccupiedBandwidth(samples, sampleRate, fraction)
	}
	return occupied(cache.PowerSpectrum(samples), sampleRate, fraction)
}

// MaxOccupiedBandwidth reduces a multi-antenna waveform to a single occupied
// bandwidth by taking the maximum across streams. The widest stream is the
// binding constraint for spectral occupancy.
func MaxOccupiedBandwidth(cache *FFTCache, streams [][]complex128, sampleRate, fraction float64) float64 {
	max := 0.0
	for _, s := range streams {
		if bw := OccupiedBandwidthCached(cache, s, sampleRate, fraction); bw > max {
			max = bw
		}
	}
	return max
}

func occupied(power []float64, sampleRate, fraction float64) float64 {
	n := len(power)
	if n == 0 {
		return 0
	}
	if fraction <= 0 {
		fraction = DefaultPowerFraction
	}
	if fraction > 1 {
		fraction = 1
	}
	total := 0.0
	for _, p := range power {
		total += p
	}
	if total == 0 {
		return 0
	}
	center := n / 2
	acc := power[center]
	half := 0
	for acc < fraction*total {
		half++
		lo := center - half
		hi := center + half
		if lo < 0 && hi >= n {
			break
		}
		if lo >= 0 {
			acc += power[lo]
		}
		if hi < n {
			acc += power[hi]
		}
	}
	bins := 2*half + 1
	if bins > n {
		bins = n
	}
	return float64(bins) * sampleRate / float64(n)
}
