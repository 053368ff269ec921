// Package modulator converts integer symbol streams into complex baseband
// waveforms annotated with occupied bandwidth.
//
// Every scheme satisfies the same contract: construct a Modulator from a
// Config, call GenerateHandle once, then invoke the returned Handle over any
// number of symbol batches. Optional config fields are resolved to defaults
// (randomized where a scheme calls for it) exactly once, at construction;
// after that the handle is a pure function of its input.
package modulator

import (
	"golang.org/x/exp/rand"

	"github.com/sdrforge/wavesynth/internal/errs"
)

// Scheme names a modulation scheme.
type Scheme string

const (
	PSK   Scheme = "psk"
	APSK  Scheme = "apsk"
	OQPSK Scheme = "oqpsk"
	ASK   Scheme = "ask"
	OOK   Scheme = "ook"
	FSK   Scheme = "fsk"
	MSK   Scheme = "msk"
	GMSK  Scheme = "gmsk"
	FM    Scheme = "fm"
	AM    Scheme = "am"
	SSB   Scheme = "ssb"
)

// Waveform is an ordered sequence of complex baseband samples per transmit
// antenna, annotated with its occupied bandwidth.
type Waveform struct {
	Streams     [][]complex128
	SampleRate  float64
	BandwidthHz float64
}

// NumAntennas returns the number of transmit streams.
func (w *Waveform) NumAntennas() int { return len(w.Streams) }

// Samples returns the first antenna stream.
func (w *Waveform) Samples() []complex128 {
	if len(w.Streams) == 0 {
		return nil
	}
	return w.Streams[0]
}

// Handle maps a symbol batch to a waveform. Handles are referentially stable:
// the same handle with the same symbols produces the same waveform.
type Handle func(symbols []int) (*Waveform, error)

// Modulator is the single contract every scheme satisfies.
type Modulator interface {
	// GenerateHandle derives filters and encoders and returns the waveform
	// generation function. Repeated calls return the same handle.
	GenerateHandle() (Handle, error)
	SampleRate() float64
	ModulationOrder() int
	NumTransmitAntennas() int
	IsDigital() bool
}

// New constructs a modulator for the given scheme. Randomized defaulting of
// unset optional fields draws from src, once, here.
func New(scheme Scheme, cfg Config, src rand.Source) (Modulator, error) {
	switch scheme {
	case PSK, APSK, OQPSK, ASK, OOK:
		return newLinear(scheme, cfg, src)
	case FSK, MSK, GMSK:
		return newCPM(scheme, cfg, src)
	case FM, AM, SSB:
		return newAnalog(scheme, cfg, src)
	default:
		return nil, errs.Configf("scheme", "unknown modulation scheme %q", scheme)
	}
}

func validateSymbols(symbols []int, order int, op string) error {
	for i, s := range symbols {
		if s < 0 || s >= order {
			return errs.Runtimef(op, "symbol %d at index %d outside [0,%d)", s, i, order)
		}
	}
	return nil
}
