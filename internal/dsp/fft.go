package dsp

import (
	"gonum.org/v1/gonum/dsp/fourier"
)

// FFTShift returns the FFT output shifted so that DC is centered.
func FFTShift(data []complex128) []complex128 {
	n := len(data)
	if n == 0 {
		return []complex128{}
	}
	half := n / 2
	shifted := append(data[half:], data[:half]...)
	return shifted
}

// PowerSpectrum computes the centered power spectral density of the samples.
// Bin i corresponds to frequency (i-n/2)*sampleRate/n.
func PowerSpectrum(samples []complex128) []float64 {
	n := len(samples)
	if n == 0 {
		return []float64{}
	}
	fft := fourier.NewCmplxFFT(n).Coefficients(nil, samples)
	return powerOf(FFTShift(fft))
}

func powerOf(spectrum []complex128) []float64 {
	p := make([]float64, len(spectrum))
	for i, v := range spectrum {
		p[i] = real(v)*real(v) + imag(v)*imag(v)
	}
	return p
}

// AnalyticSignal computes the analytic (Hilbert) representation of a real
// signal: the negative-frequency half of the spectrum is zeroed and the
// positive half doubled.
func AnalyticSignal(x []float64) []complex128 {
	n := len(x)
	if n == 0 {
		return []complex128{}
	}
	in := make([]complex128, n)
	for i, v := range x {
		in[i] = complex(v, 0)
	}
	fft := fourier.NewCmplxFFT(n)
	spec := fft.Coefficients(nil, in)
	for i := 1; i < (n+1)/2; i++ {
		spec[i] *= 2
	}
	for i := n/2 + 1; i < n; i++ {
		spec[i] = 0
	}
	out := fft.Sequence(nil, spec)
	inv := complex(1/float64(n), 0)
	for i := range out {
		out[i] *= inv
	}
	return out
}
