package modulator

import (
	"math"
	"math/cmplx"

	"golang.org/x/exp/rand"

	"github.com/sdrforge/wavesynth/internal/dsp"
	"github.com/sdrforge/wavesynth/internal/errs"
)

// analogModulator implements FM, AM/DSB, and SSB. The symbol sequence is
// interpreted as a quantized message waveform, normalized by its peak
// magnitude; OSTBC and pulse shaping do not apply, and the antenna count is
// forced to one.
type analogModulator struct {
	scheme Scheme
	cfg    resolved

	lowpass  []float64
	carrier  dsp.Carrier
	fftCache *dsp.FFTCache

	handle Handle
}

func newAnalog(scheme Scheme, cfg Config, src rand.Source) (*analogModulator, error) {
	cfg.NumTransmitAntennas = 1
	cfg.ModulationOrder = 0
	r, err := resolveCommon(cfg, src)
	if err != nil {
		return nil, err
	}
	r.numAntennas = 1
	return &analogModulator{scheme: scheme, cfg: r}, nil
}

func (m *analogModulator) SampleRate() float64      { return m.cfg.sampleRate }
func (m *analogModulator) ModulationOrder() int     { return 0 }
func (m *analogModulator) NumTransmitAntennas() int { return 1 }
func (m *analogModulator) IsDigital() bool          { return false }

func (m *analogModulator) GenerateHandle() (Handle, error) {
	if m.handle != nil {
		return m.handle, nil
	}
	m.fftCache = dsp.NewFFTCache()
	switch m.scheme {
	case FM:
		m.handle = m.fmHandle()
	case AM:
		if m.cfg.sampleRate <= 2*amAudioBandwidthHz {
			return nil, errs.Constructionf("am filter",
				"sample rate %v cannot carry a %v Hz audio band", m.cfg.sampleRate, amAudioBandwidthHz)
		}
		m.lowpass = dsp.LowpassFIR(amAudioBandwidthHz, m.cfg.sampleRate, 129)
		m.handle = m.amHandle()
	case SSB:
		if m.cfg.sampleRate <= 2*(ssbCarrierOffsetHz+amAudioBandwidthHz) {
			return nil, errs.Constructionf("ssb mixer",
				"sample rate %v cannot carry a %v Hz offset", m.cfg.sampleRate, ssbCarrierOffsetHz)
		}
		m.lowpass = dsp.LowpassFIR(amAudioBandwidthHz, m.cfg.sampleRate, 129)
		offset := ssbCarrierOffsetHz
		if m.cfg.sideband == SidebandLower {
			offset = -ssbCarrierOffsetHz
		}
		m.carrier = dsp.Carrier{FrequencyHz: offset, SampleRate: m.cfg.sampleRate}
		m.handle = m.ssbHandle()
	}
	return m.handle, nil
}

// fmHandle integrates the message and phase-modulates the baseband carrier
// by 2*pi*deviation*integral. A silent message yields a pure tone.
func (m *analogModulator) fmHandle() Handle {
	return func(symbols []int) (*Waveform, error) {
		msg := message(symbols)
		out := make([]complex128, len(msg))
		phase := 0.0
		step := 2 * math.Pi * m.cfg.freqDeviation / m.cfg.sampleRate
		for i, v := range msg {
			phase += step * v
			out[i] = cmplx.Exp(complex(0, phase))
		}
		return m.finish(out)
	}
}

// amHandle lowpasses the message to the audio band and transmits it
// directly (double sideband, suppressed carrier).
func (m *analogModulator) amHandle() Handle {
	return func(symbols []int) (*Waveform, error) {
		msg := message(symbols)
		in := make([]complex128, len(msg))
		for i, v := range msg {
			in[i] = complex(v, 0)
		}
		return m.finish(dsp.FilterSame(in, m.lowpass))
	}
}

// ssbHandle builds the analytic signal of the filtered message, keeps one
// sideband, and mixes it to the fixed carrier offset.
func (m *analogModulator) ssbHandle() Handle {
	return func(symbols []int) (*Waveform, error) {
		msg := message(symbols)
		in := make([]complex128, len(msg))
		for i, v := range msg {
			in[i] = complex(v, 0)
		}
		filtered := dsp.FilterSame(in, m.lowpass)
		audio := make([]float64, len(filtered))
		for i, v := range filtered {
			audio[i] = real(v)
		}
		analytic := dsp.AnalyticSignal(audio)
		if m.cfg.sideband == SidebandLower {
			for i, v := range analytic {
				analytic[i] = cmplx.Conj(v)
			}
		}
		return m.finish(m.carrier.Mix(analytic))
	}
}

func (m *analogModulator) finish(samples []complex128) (*Waveform, error) {
	bw := dsp.OccupiedBandwidthCached(m.fftCache, samples, m.cfg.sampleRate, dsp.DefaultPowerFraction)
	return &Waveform{
		Streams:     [][]complex128{samples},
		SampleRate:  m.cfg.sampleRate,
		BandwidthHz: bw,
	}, nil
}

// message converts the integer input to a float waveform normalized by its
// peak magnitude. An all-zero input stays all-zero.
func message(symbols []int) []float64 {
	out := make([]float64, len(symbols))
	peak := 0.0
	for i, s := range symbols {
		out[i] = float64(s)
		if a := math.Abs(out[i]); a > peak {
			peak = a
		}
	}
	if peak > 0 {
		for i := range out {
			out[i] /= peak
		}
	}
	return out
}
