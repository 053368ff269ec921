package dsp

import "math"

// Carrier describes a local oscillator used by the passband stage.
type Carrier struct {
	FrequencyHz float64
	PhaseRad    float64
	SampleRate  float64
}

// IQ generates n samples of the complex exponential carrier.
func (c Carrier) IQ(n int) []complex128 {
	out := make([]complex128, n)
	step := 2 * math.Pi * c.FrequencyHz / c.SampleRate
	for i := range out {
		phase := c.PhaseRad + step*float64(i)
		out[i] = complex(math.Cos(phase), math.Sin(phase))
	}
	return out
}

// ToPassband converts complex baseband samples to a real passband signal by
// mixing with the carrier and taking the real part.
func (c Carrier) ToPassband(iq []complex128) []float64 {
	out := make([]float64, len(iq))
	step := 2 * math.Pi * c.FrequencyHz / c.SampleRate
	for i, v := range iq {
		phase := c.PhaseRad + step*float64(i)
		out[i] = real(v)*math.Cos(phase) - imag(v)*math.Sin(phase)
	}
	return out
}

// Mix shifts complex baseband samples by the carrier frequency, keeping the
// result complex. Used by modulators that place a signal at a fixed offset.
func (c Carrier) Mix(iq []complex128) []complex128 {
	out := make([]complex128, len(iq))
	step := 2 * math.Pi * c.FrequencyHz / c.SampleRate
	for i, v := range iq {
		phase := c.PhaseRad + step*float64(i)
		out[i] = v * complex(math.Cos(phase), math.Sin(phase))
	}
	return out
}
