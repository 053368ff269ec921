package modulator

import (
	"math"
	"math/cmplx"

	"golang.org/x/exp/rand"

	"github.com/sdrforge/wavesynth/internal/dsp"
	"github.com/sdrforge/wavesynth/internal/errs"
)

const gmskPulseSpanSymbols = 4

// cpmModulator implements the continuous-phase family. Symbols map to
// frequency trajectories integrated into a phase-continuous waveform; no
// pulse-shaping filter or OSTBC is involved.
type cpmModulator struct {
	scheme Scheme
	cfg    resolved

	gaussTaps []float64 // GMSK frequency pulse
	fftCache  *dsp.FFTCache

	handle Handle
}

func newCPM(scheme Scheme, cfg Config, src rand.Source) (*cpmModulator, error) {
	if scheme == MSK || scheme == GMSK {
		cfg.ModulationOrder = 2
	}
	if cfg.ModulationOrder < 2 {
		return nil, errs.Configf("ModulationOrder", "must be >= 2, got %d", cfg.ModulationOrder)
	}
	if cfg.NumTransmitAntennas > 1 {
		return nil, errs.Configf("NumTransmitAntennas", "continuous-phase schemes are single antenna")
	}
	r, err := resolveCommon(cfg, src)
	if err != nil {
		return nil, err
	}
	r.numAntennas = 1

	symbolRate := r.sampleRate / float64(r.sps)
	switch scheme {
	case FSK:
		maxSep := r.sampleRate / float64(r.order-1)
		if r.freqSeparation == 0 {
			r.freqSeparation = uniform(src, fskSepFractionMin, fskSepFractionMax) * maxSep
		}
		if r.freqSeparation*float64(r.order-1) > r.sampleRate {
			return nil, errs.Configf("FrequencySeparationHz",
				"separation %v puts tones outside the sampled band", r.freqSeparation)
		}
		if r.bandwidthPolicy == "" {
			r.bandwidthPolicy = BandwidthSeparation
		}
	case MSK, GMSK:
		// Modulation index 1/2: tones half a symbol rate apart.
		r.freqSeparation = symbolRate / 2
		// No single separation describes the shaped spectrum.
		r.bandwidthPolicy = BandwidthOccupied
	}
	if r.bandwidthPolicy != BandwidthSeparation && r.bandwidthPolicy != BandwidthOccupied {
		return nil, errs.Configf("BandwidthPolicy", "unknown policy %q", r.bandwidthPolicy)
	}

	m := &cpmModulator{scheme: scheme, cfg: r}
	if scheme == GMSK {
		m.gaussTaps, err = gaussianPulse(r.bt, r.sps)
		if err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *cpmModulator) SampleRate() float64      { return m.cfg.sampleRate }
func (m *cpmModulator) ModulationOrder() int     { return m.cfg.order }
func (m *cpmModulator) NumTransmitAntennas() int { return 1 }
func (m *cpmModulator) IsDigital() bool          { return true }

func (m *cpmModulator) GenerateHandle() (Handle, error) {
	if m.handle != nil {
		return m.handle, nil
	}
	m.fftCache = dsp.NewFFTCache()
	switch m.scheme {
	case GMSK:
		m.handle = m.gmskHandle()
	default:
		m.handle = m.fskHandle()
	}
	return m.handle, nil
}

// fskHandle covers FSK and MSK: each symbol selects a tone around the
// center, phase carried continuously across symbol boundaries.
func (m *cpmModulator) fskHandle() Handle {
	return func(symbols []int) (*Waveform, error) {
		if err := validateSymbols(symbols, m.cfg.order, string(m.scheme)); err != nil {
			return nil, err
		}
		coded := m.encodeData(symbols)
		out := make([]complex128, len(coded)*m.cfg.sps)
		phase := m.cfg.initialPhase
		center := float64(m.cfg.order-1) / 2
		for i, s := range coded {
			freq := m.cfg.freqSeparation * (float64(s) - center)
			step := 2 * math.Pi * freq / m.cfg.sampleRate
			for j := 0; j < m.cfg.sps; j++ {
				phase += step
				out[i*m.cfg.sps+j] = cmplx.Exp(complex(0, phase))
			}
		}
		return m.finish(out)
	}
}

// gmskHandle shapes the frequency impulses with a Gaussian pulse before
// phase integration.
func (m *cpmModulator) gmskHandle() Handle {
	symbolRate := m.cfg.sampleRate / float64(m.cfg.sps)
	return func(symbols []int) (*Waveform, error) {
		if err := validateSymbols(symbols, m.cfg.order, string(m.scheme)); err != nil {
			return nil, err
		}
		coded := m.encodeData(symbols)
		nrz := make([]complex128, len(coded))
		for i, s := range coded {
			nrz[i] = complex(float64(2*s-1), 0)
		}
		smoothed := dsp.Convolve(upsample(nrz, m.cfg.sps), m.gaussTaps)
		out := make([]complex128, len(smoothed))
		phase := m.cfg.initialPhase
		// Modulation index 1/2; the pulse sums to sps so each symbol
		// advances the phase by +/- pi/2 in total.
		scale := 2 * math.Pi * 0.25 * symbolRate / m.cfg.sampleRate
		for i, v := range smoothed {
			phase += scale * real(v)
			out[i] = cmplx.Exp(complex(0, phase))
		}
		return m.finish(out)
	}
}

// encodeData applies the MSK/GMSK data-encoding mode. Plain FSK transmits
// symbols directly.
func (m *cpmModulator) encodeData(symbols []int) []int {
	if m.scheme == FSK || m.cfg.dataEncoding == EncodingDirect {
		return symbols
	}
	out := make([]int, len(symbols))
	prev := 0
	for i, s := range symbols {
		out[i] = s ^ prev
		prev = out[i]
	}
	return out
}

func (m *cpmModulator) finish(samples []complex128) (*Waveform, error) {
	var bw float64
	if m.cfg.bandwidthPolicy == BandwidthSeparation {
		bw = m.cfg.freqSeparation * float64(m.cfg.order)
	} else {
		bw = dsp.OccupiedBandwidthCached(m.fftCache, samples, m.cfg.sampleRate, dsp.DefaultPowerFraction)
	}
	return &Waveform{
		Streams:     [][]complex128{samples},
		SampleRate:  m.cfg.sampleRate,
		BandwidthHz: bw,
	}, nil
}

// gaussianPulse designs the GMSK frequency pulse for the given
// time-bandwidth product, normalized so the taps sum to sps.
func gaussianPulse(bt float64, sps int) ([]float64, error) {
	if bt <= 0 || bt > 1 {
		return nil, errs.Constructionf("gaussian pulse", "BT must be in (0,1], got %v", bt)
	}
	n := gmskPulseSpanSymbols*sps + 1
	taps := make([]float64, n)
	mid := float64(n-1) / 2
	// sigma in samples for a Gaussian lowpass with 3 dB point at BT*symbolRate
	sigma := math.Sqrt(math.Ln2) / (2 * math.Pi * bt) * float64(sps)
	var sum float64
	for i := range taps {
		t := float64(i) - mid
		taps[i] = math.Exp(-t * t / (2 * sigma * sigma))
		sum += taps[i]
	}
	scale := float64(sps) / sum
	for i := range taps {
		taps[i] *= scale
	}
	return taps, nil
}
