package dsp

import (
	"sync"

	"gonum.org/v1/gonum/dsp/fourier"
)

// FFTCache keeps FFT plans keyed by transform size so that repeated
// bandwidth estimates over equally sized batches do not re-plan the FFT.
// Plans are not safe for concurrent use, so the lock is held across the
// transform itself.
type FFTCache struct {
	mu    sync.Mutex
	plans map[int]*fourier.CmplxFFT
}

// NewFFTCache creates an empty FFT plan cache.
func NewFFTCache() *FFTCache {
	return &FFTCache{plans: make(map[int]*fourier.CmplxFFT)}
}

// PowerSpectrum computes the centered power spectral density using a cached
// plan for len(samples), creating the plan on first use.
func (c *FFTCache) PowerSpectrum(samples []complex128) []float64 {
	n := len(samples)
	if n == 0 {
		return []float64{}
	}
	c.mu.Lock()
	plan, ok := c.plans[n]
	if !ok {
		plan = fourier.NewCmplxFFT(n)
		c.plans[n] = plan
	}
	fft := plan.Coefficients(nil, samples)
	c.mu.Unlock()
	return powerOf(FFTShift(fft))
}

// Sizes returns the number of cached plans.
func (c *FFTCache) Sizes() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.plans)
}
