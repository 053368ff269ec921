package channel

import (
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// ScenarioType discriminates the channel model variants.
type ScenarioType string

const (
	TypeMIMO       ScenarioType = "MIMO"
	TypeRayTracing ScenarioType = "RayTracing"
)

// FadingLaw names the multipath amplitude model.
type FadingLaw string

const (
	Rayleigh FadingLaw = "Rayleigh"
	Rician   FadingLaw = "Rician"
)

// Scenario holds resolved propagation parameters. A channel instance is
// constructed once per scenario and applied to many waveforms.
type Scenario struct {
	Type ScenarioType

	// MIMO parameters. Distances are in meters regardless of the config
	// units (outdoor config ranges are kilometers).
	Indoor    bool
	DistanceM float64
	SpeedMS   float64
	Fading    FadingLaw
	KFactor   float64
	NumPaths  int

	// Ray-tracing parameters, passed through to the engine.
	Propagation PropagationModelConfig
	MapFolder   string
}

// Selector performs the weighted scenario draw and samples all scenario
// parameters from the injected random source.
type Selector struct {
	cfg Config
	rng *rand.Rand
	src rand.Source
}

// NewSelector validates the configuration and builds a selector.
func NewSelector(cfg Config, src rand.Source) (*Selector, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Selector{cfg: cfg, rng: rand.New(src), src: src}, nil
}

func (s *Selector) uniform(min, max float64) float64 {
	if min == max {
		return min
	}
	return distuv.Uniform{Min: min, Max: max, Src: s.src}.Rand()
}

// percent draws a Bernoulli with the given 0-100 probability.
func (s *Selector) percent(ratio float64) bool {
	return s.uniform(0, 100) < ratio
}

// Select draws a scenario type from the normalized weights and samples its
// parameters.
func (s *Selector) Select() (Scenario, error) {
	total := s.cfg.Probabilities.MIMO + s.cfg.Probabilities.RayTracing
	if s.uniform(0, total) < s.cfg.Probabilities.MIMO {
		return s.selectMIMO(), nil
	}
	return Scenario{
		Type:        TypeRayTracing,
		Propagation: s.cfg.RayTracing.PropagationModelConfig,
		MapFolder:   s.cfg.RayTracing.MapFolder,
	}, nil
}

func (s *Selector) selectMIMO() Scenario {
	m := s.cfg.MIMO
	sc := Scenario{Type: TypeMIMO}

	sc.Indoor = s.percent(m.MaxDistance.Ratio)
	if sc.Indoor {
		sc.DistanceM = s.uniform(0, m.MaxDistance.Indoor)
	} else {
		const metersPerKm = 1000
		sc.DistanceM = s.uniform(m.MaxDistance.Outdoor[0], m.MaxDistance.Outdoor[1]) * metersPerKm
	}
	sc.SpeedMS = s.uniform(m.SpeedRange[0], m.SpeedRange[1])

	law := m.Fading.Distribution[1]
	if s.percent(m.Fading.Ratio) {
		law = m.Fading.Distribution[0]
	}
	sc.Fading = FadingLaw(law)
	if sc.Fading == Rician {
		sc.KFactor = s.uniform(0, m.MaxKFactor)
	}

	sc.NumPaths = 1
	if m.MaxPaths > 1 {
		sc.NumPaths = 1 + s.rng.Intn(m.MaxPaths)
	}
	return sc
}
