package channel

import (
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/sdrforge/wavesynth/internal/errs"
	"github.com/sdrforge/wavesynth/internal/modulator"
)

const speedOfLight = 299792458.0

// MIMOChannel is the statistical multipath/fading variant. The tap set is
// synthesized once from the scenario parameters; Apply is deterministic
// thereafter.
type MIMOChannel struct {
	scenario   Scenario
	sampleRate float64
	taps       []tap
}

// NewMIMO synthesizes the fading tap set for the scenario. With a single
// path the channel degenerates to one tap with no delay diversity.
func NewMIMO(sc Scenario, sampleRate float64, src rand.Source) (*MIMOChannel, error) {
	if sc.NumPaths < 1 {
		return nil, errs.Configf("NumPaths", "must be >= 1, got %d", sc.NumPaths)
	}
	if sampleRate <= 0 {
		return nil, errs.Configf("sampleRate", "must be positive, got %v", sampleRate)
	}

	uni := func(min, max float64) float64 {
		if min == max {
			return min
		}
		return distuv.Uniform{Min: min, Max: max, Src: src}.Rand()
	}
	norm := distuv.Normal{Mu: 0, Sigma: 1, Src: src}

	// Excess delay spread grows with link distance; a tenth of the direct
	// propagation time is used as the exponential tail constant.
	spreadSamples := sc.DistanceM / speedOfLight * 0.1 * sampleRate
	if spreadSamples < 1 {
		spreadSamples = 1
	}

	// Maximum Doppler relative to the sampled band edge.
	dopplerMax := sc.SpeedMS / speedOfLight * sampleRate / 2

	delays := make([]int, sc.NumPaths)
	powers := make([]float64, sc.NumPaths)
	var totalPower float64
	for i := range delays {
		if i > 0 {
			delays[i] = 1 + int(distuv.Exponential{Rate: 1 / spreadSamples, Src: src}.Rand())
		}
		powers[i] = math.Exp(-float64(delays[i]) / spreadSamples)
		totalPower += powers[i]
	}

	taps := make([]tap, sc.NumPaths)
	for i := range taps {
		p := powers[i] / totalPower
		var gain complex128
		if sc.Fading == Rician && i == 0 {
			// Dominant component carries K/(K+1) of the tap power; the
			// remainder is scattered.
			k := sc.KFactor
			losMag := math.Sqrt(p * k / (k + 1))
			losPhase := uni(0, 2*math.Pi)
			scatter := math.Sqrt(p / (k + 1) / 2)
			gain = complex(losMag*math.Cos(losPhase)+scatter*norm.Rand(),
				losMag*math.Sin(losPhase)+scatter*norm.Rand())
		} else {
			scatter := math.Sqrt(p / 2)
			gain = complex(scatter*norm.Rand(), scatter*norm.Rand())
		}
		taps[i] = tap{
			gain:    gain,
			delay:   delays[i],
			doppler: dopplerMax * math.Cos(uni(0, 2*math.Pi)),
		}
	}
	return &MIMOChannel{scenario: sc, sampleRate: sampleRate, taps: taps}, nil
}

// Scenario returns the resolved parameters this channel was built from.
func (c *MIMOChannel) Scenario() Scenario { return c.scenario }

// Apply runs the waveform through the fading tap set.
func (c *MIMOChannel) Apply(w *modulator.Waveform) (*modulator.Waveform, error) {
	if w == nil || len(w.Streams) == 0 {
		return nil, errs.Runtimef("channel", "empty waveform")
	}
	return applyTaps(w, c.taps, c.sampleRate), nil
}
