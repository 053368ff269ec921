package modulator

import (
	"golang.org/x/exp/rand"

	"github.com/sdrforge/wavesynth/internal/dsp"
	"github.com/sdrforge/wavesynth/internal/errs"
)

// linearModulator implements the shared digital linear pipeline:
// constellation mapping, optional differential encoding, OSTBC, upsampling,
// and root-raised-cosine pulse shaping.
type linearModulator struct {
	scheme Scheme
	cfg    resolved

	constellation *constellation
	encoder       *ostbcEncoder
	taps          []float64
	fftCache      *dsp.FFTCache

	handle Handle
}

func newLinear(scheme Scheme, cfg Config, src rand.Source) (*linearModulator, error) {
	switch scheme {
	case OOK:
		// OOK is a fixed 2-ary pipeline regardless of the requested order.
		cfg.ModulationOrder = 2
	case OQPSK:
		if cfg.ModulationOrder == 0 {
			cfg.ModulationOrder = 4
		}
		if cfg.ModulationOrder != 4 {
			return nil, errs.Configf("ModulationOrder", "oqpsk is 4-ary, got %d", cfg.ModulationOrder)
		}
	}
	if cfg.ModulationOrder < 2 {
		return nil, errs.Configf("ModulationOrder", "must be >= 2, got %d", cfg.ModulationOrder)
	}
	r, err := resolveCommon(cfg, src)
	if err != nil {
		return nil, err
	}
	if r.differential && scheme != PSK && scheme != OQPSK {
		return nil, errs.Configf("Differential", "differential encoding requires a phase scheme, not %q", scheme)
	}
	return &linearModulator{scheme: scheme, cfg: r}, nil
}

func (m *linearModulator) SampleRate() float64      { return m.cfg.sampleRate }
func (m *linearModulator) ModulationOrder() int     { return m.cfg.order }
func (m *linearModulator) NumTransmitAntennas() int { return m.cfg.numAntennas }
func (m *linearModulator) IsDigital() bool          { return true }

// GenerateHandle builds the constellation, OSTBC encoder, and pulse filter,
// then returns the stable waveform generation closure.
func (m *linearModulator) GenerateHandle() (Handle, error) {
	if m.handle != nil {
		return m.handle, nil
	}
	var err error
	m.constellation, err = newConstellation(m.scheme, m.cfg.order, m.cfg.phaseOffset, m.cfg.mapping)
	if err != nil {
		return nil, err
	}
	m.encoder, err = newOSTBC(m.cfg.numAntennas)
	if err != nil {
		return nil, err
	}
	m.taps, err = rrcTaps(m.cfg.beta, m.cfg.sps, m.cfg.span)
	if err != nil {
		return nil, err
	}
	m.fftCache = dsp.NewFFTCache()

	m.handle = func(symbols []int) (*Waveform, error) {
		if err := validateSymbols(symbols, m.cfg.order, string(m.scheme)); err != nil {
			return nil, err
		}
		points := m.constellation.mapSymbols(symbols)
		if m.cfg.differential {
			points = diffEncode(points)
		}
		streams := m.encoder.Encode(points)
		for i, s := range streams {
			shaped := shape(s, m.taps, m.cfg.sps)
			if m.scheme == OQPSK {
				shaped = offsetQuadrature(shaped, m.cfg.sps)
			}
			streams[i] = shaped
		}
		bw := dsp.MaxOccupiedBandwidth(m.fftCache, streams, m.cfg.sampleRate, dsp.DefaultPowerFraction)
		return &Waveform{Streams: streams, SampleRate: m.cfg.sampleRate, BandwidthHz: bw}, nil
	}
	return m.handle, nil
}
