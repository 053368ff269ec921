package modulator

import (
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/sdrforge/wavesynth/internal/errs"
)

// Symbol mapping rules for linear schemes.
const (
	MappingGray   = "gray"
	MappingBinary = "binary"
)

// Bandwidth reporting policies for FSK. Two historical policies coexist and
// are selected explicitly, never inferred.
const (
	// BandwidthSeparation reports frequency separation times modulation order.
	BandwidthSeparation = "separation"
	// BandwidthOccupied reports the spectral occupied-bandwidth estimate.
	BandwidthOccupied = "occupied"
)

// Data encoding modes for MSK/GMSK.
const (
	EncodingDirect       = "direct"
	EncodingDifferential = "differential"
)

// Sidebands for SSB.
const (
	SidebandUpper = "upper"
	SidebandLower = "lower"
)

// Randomized defaults applied to unset optional fields at construction time.
const (
	fmDeviationMinHz  = 5000.0
	fmDeviationMaxHz  = 75000.0
	fskSepFractionMin = 0.4
	fskSepFractionMax = 0.5
	rolloffMin        = 0.2
	rolloffMax        = 0.5
)

// Fixed analog frontend constants.
const (
	amAudioBandwidthHz = 30000.0
	ssbCarrierOffsetHz = 50000.0
)

// Config carries scheme-specific modulator parameters. Zero values on
// optional fields mean "unset" and are resolved at construction: some to
// fixed defaults, some to randomized draws (documented per field).
type Config struct {
	SampleRate          float64 `yaml:"sampleRate" json:"sampleRate"`
	ModulationOrder     int     `yaml:"modulationOrder" json:"modulationOrder"`
	SamplesPerSymbol    int     `yaml:"samplesPerSymbol" json:"samplesPerSymbol"`       // linear/CPM; default 8
	NumTransmitAntennas int     `yaml:"numTransmitAntennas" json:"numTransmitAntennas"` // linear only; 1, 2 or 4; default 1

	Mapping      string `yaml:"mapping" json:"mapping"`           // gray (default) or binary
	Differential bool   `yaml:"differential" json:"differential"` // differential phase encoding, PSK family only

	PhaseOffsetRad    float64 `yaml:"phaseOffsetRad" json:"phaseOffsetRad"`
	Beta              float64 `yaml:"beta" json:"beta"`                           // RRC rolloff; 0 draws U[0.2,0.5]
	FilterSpanSymbols int     `yaml:"filterSpanSymbols" json:"filterSpanSymbols"` // RRC span; default 8

	FrequencyDeviationHz  float64 `yaml:"frequencyDeviationHz" json:"frequencyDeviationHz"`   // FM; 0 draws U[5000,75000] Hz
	FrequencySeparationHz float64 `yaml:"frequencySeparationHz" json:"frequencySeparationHz"` // FSK; 0 draws U[0.4,0.5]*SampleRate/(M-1)
	BandwidthPolicy       string  `yaml:"bandwidthPolicy" json:"bandwidthPolicy"`             // separation (FSK default) or occupied

	DataEncoding    string   `yaml:"dataEncoding" json:"dataEncoding"`       // MSK/GMSK; empty draws direct or differential
	InitialPhaseRad *float64 `yaml:"initialPhaseRad" json:"initialPhaseRad"` // CPM; nil draws U[0,2pi)
	BT              float64  `yaml:"bt" json:"bt"`                           // GMSK Gaussian time-bandwidth product; default 0.3

	Sideband string `yaml:"sideband" json:"sideband"` // SSB; upper (default) or lower
}

// resolved is the fully-populated immutable configuration a modulator runs
// with. Randomness never leaves this step.
type resolved struct {
	sampleRate      float64
	order           int
	sps             int
	numAntennas     int
	mapping         string
	differential    bool
	phaseOffset     float64
	beta            float64
	span            int
	freqDeviation   float64
	freqSeparation  float64
	bandwidthPolicy string
	dataEncoding    string
	initialPhase    float64
	bt              float64
	sideband        string
}

func uniform(src rand.Source, min, max float64) float64 {
	return distuv.Uniform{Min: min, Max: max, Src: src}.Rand()
}

func resolveCommon(cfg Config, src rand.Source) (resolved, error) {
	if cfg.SampleRate <= 0 {
		return resolved{}, errs.Configf("SampleRate", "must be positive, got %v", cfg.SampleRate)
	}
	r := resolved{
		sampleRate:   cfg.SampleRate,
		order:        cfg.ModulationOrder,
		sps:          cfg.SamplesPerSymbol,
		numAntennas:  cfg.NumTransmitAntennas,
		mapping:      cfg.Mapping,
		differential: cfg.Differential,
		phaseOffset:  cfg.PhaseOffsetRad,
		beta:         cfg.Beta,
		span:         cfg.FilterSpanSymbols,
		bt:           cfg.BT,
	}
	if r.sps == 0 {
		r.sps = 8
	}
	if r.sps < 2 {
		return resolved{}, errs.Configf("SamplesPerSymbol", "must be >= 2, got %d", r.sps)
	}
	if r.numAntennas == 0 {
		r.numAntennas = 1
	}
	if r.mapping == "" {
		r.mapping = MappingGray
	}
	if r.mapping != MappingGray && r.mapping != MappingBinary {
		return resolved{}, errs.Configf("Mapping", "unknown mapping %q", r.mapping)
	}
	if r.beta == 0 {
		r.beta = uniform(src, rolloffMin, rolloffMax)
	}
	if r.span == 0 {
		r.span = 8
	}

	r.freqDeviation = cfg.FrequencyDeviationHz
	if r.freqDeviation == 0 {
		r.freqDeviation = uniform(src, fmDeviationMinHz, fmDeviationMaxHz)
	}

	r.bandwidthPolicy = cfg.BandwidthPolicy
	r.dataEncoding = cfg.DataEncoding
	if r.dataEncoding == "" {
		if uniform(src, 0, 1) < 0.5 {
			r.dataEncoding = EncodingDirect
		} else {
			r.dataEncoding = EncodingDifferential
		}
	}
	if r.dataEncoding != EncodingDirect && r.dataEncoding != EncodingDifferential {
		return resolved{}, errs.Configf("DataEncoding", "unknown encoding %q", r.dataEncoding)
	}

	if cfg.InitialPhaseRad != nil {
		r.initialPhase = *cfg.InitialPhaseRad
	} else {
		r.initialPhase = uniform(src, 0, 2*math.Pi)
	}
	if r.bt == 0 {
		r.bt = 0.3
	}

	r.sideband = cfg.Sideband
	if r.sideband == "" {
		r.sideband = SidebandUpper
	}
	if r.sideband != SidebandUpper && r.sideband != SidebandLower {
		return resolved{}, errs.Configf("Sideband", "unknown sideband %q", r.sideband)
	}

	// FSK separation depends on the order, resolved by the CPM constructor.
	r.freqSeparation = cfg.FrequencySeparationHz
	return r, nil
}
