package channel

import (
	"errors"
	"math"
	"math/cmplx"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"

	"github.com/sdrforge/wavesynth/internal/errs"
	"github.com/sdrforge/wavesynth/internal/modulator"
)

func validConfig() Config {
	return Config{
		Probabilities: Probabilities{MIMO: 1},
		MIMO: MIMOConfig{
			MaxPaths: 8,
			MaxDistance: DistanceConfig{
				Ratio:   40,
				Indoor:  50,
				Outdoor: [2]float64{0.5, 5},
			},
			SpeedRange: [2]float64{0, 30},
			MaxKFactor: 10,
			Fading:     FadingConfig{Ratio: 50, Distribution: [2]string{"Rayleigh", "Rician"}},
		},
		RayTracing: RayTracingConfig{
			PropagationModelConfig: PropagationModelConfig{Method: "SBR", MaxNumReflections: 3},
			MapFolder:              "map/osm",
		},
	}
}

func impulse(n int) *modulator.Waveform {
	s := make([]complex128, n)
	s[0] = 1
	return &modulator.Waveform{Streams: [][]complex128{s}, SampleRate: 1e6}
}

func TestConfigValidation(t *testing.T) {
	var cfe *errs.ConfigError

	testCases := []struct {
		desc   string
		mutate func(*Config)
	}{
		{"zero weights", func(c *Config) { c.Probabilities = Probabilities{} }},
		{"negative weight", func(c *Config) { c.Probabilities.MIMO = -1 }},
		{"no paths", func(c *Config) { c.MIMO.MaxPaths = 0 }},
		{"inverted outdoor", func(c *Config) { c.MIMO.MaxDistance.Outdoor = [2]float64{5, 1} }},
		{"inverted speed", func(c *Config) { c.MIMO.SpeedRange = [2]float64{10, 1} }},
		{"ratio over 100", func(c *Config) { c.MIMO.Fading.Ratio = 150 }},
		{"unknown law", func(c *Config) { c.MIMO.Fading.Distribution[0] = "Nakagami" }},
		{"negative k", func(c *Config) { c.MIMO.MaxKFactor = -2 }},
		{
			"raytracing without map",
			func(c *Config) {
				c.Probabilities.RayTracing = 1
				c.RayTracing.MapFolder = ""
			},
		},
	}
	for _, tC := range testCases {
		t.Run(tC.desc, func(t *testing.T) {
			cfg := validConfig()
			tC.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, errors.As(err, &cfe))
		})
	}

	require.NoError(t, validConfig().Validate())
}

func TestLoadConfig(t *testing.T) {
	const doc = `{
		"probabilities": {"MIMO": 3, "RayTracing": 1},
		"MIMO": {
			"MaxPaths": 4,
			"MaxDistance": {"Ratio": 25, "Indoor": 30, "Outdoor": [1, 10]},
			"SpeedRange": [0, 15],
			"MaxKFactor": 8,
			"Fading": {"Ratio": 60, "Distribution": ["Rayleigh", "Rician"]}
		},
		"RayTracing": {
			"PropagationModelConfig": {"Method": "SBR", "MaxNumReflections": 2, "MaxNumDiffractions": 1},
			"MapFolder": "appdata/map"
		}
	}`
	path := filepath.Join(t.TempDir(), "channel.json")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 3.0, cfg.Probabilities.MIMO)
	assert.Equal(t, 4, cfg.MIMO.MaxPaths)
	assert.Equal(t, 25.0, cfg.MIMO.MaxDistance.Ratio)
	assert.Equal(t, "SBR", cfg.RayTracing.PropagationModelConfig.Method)
	assert.Equal(t, 1, cfg.RayTracing.PropagationModelConfig.MaxNumDiffractions)
}

func TestSelectorDegenerateWeights(t *testing.T) {
	cfg := validConfig()
	cfg.Probabilities = Probabilities{MIMO: 1, RayTracing: 0}
	sel, err := NewSelector(cfg, rand.NewSource(1))
	require.NoError(t, err)
	for i := 0; i < 10000; i++ {
		sc, err := sel.Select()
		require.NoError(t, err)
		require.Equal(t, TypeMIMO, sc.Type)
	}
}

func TestSelectorWeightNormalization(t *testing.T) {
	cfg := validConfig()
	cfg.Probabilities = Probabilities{MIMO: 3, RayTracing: 1}
	sel, err := NewSelector(cfg, rand.NewSource(2))
	require.NoError(t, err)
	const n = 20000
	mimo := 0
	for i := 0; i < n; i++ {
		sc, err := sel.Select()
		require.NoError(t, err)
		if sc.Type == TypeMIMO {
			mimo++
		}
	}
	assert.InDelta(t, 0.75, float64(mimo)/n, 0.02)
}

func TestSelectorParameterRanges(t *testing.T) {
	cfg := validConfig()
	sel, err := NewSelector(cfg, rand.NewSource(3))
	require.NoError(t, err)
	for i := 0; i < 5000; i++ {
		sc, err := sel.Select()
		require.NoError(t, err)
		require.Equal(t, TypeMIMO, sc.Type)
		if sc.Indoor {
			assert.LessOrEqual(t, sc.DistanceM, cfg.MIMO.MaxDistance.Indoor)
		} else {
			assert.GreaterOrEqual(t, sc.DistanceM, cfg.MIMO.MaxDistance.Outdoor[0]*1000)
			assert.LessOrEqual(t, sc.DistanceM, cfg.MIMO.MaxDistance.Outdoor[1]*1000)
		}
		assert.GreaterOrEqual(t, sc.SpeedMS, 0.0)
		assert.LessOrEqual(t, sc.SpeedMS, 30.0)
		assert.GreaterOrEqual(t, sc.NumPaths, 1)
		assert.LessOrEqual(t, sc.NumPaths, cfg.MIMO.MaxPaths)
		switch sc.Fading {
		case Rician:
			assert.GreaterOrEqual(t, sc.KFactor, 0.0)
			assert.LessOrEqual(t, sc.KFactor, cfg.MIMO.MaxKFactor)
		case Rayleigh:
			assert.Zero(t, sc.KFactor)
		default:
			t.Fatalf("unexpected fading law %q", sc.Fading)
		}
	}
}

func singleTapGain(t *testing.T, law FadingLaw, k float64, seed uint64) float64 {
	t.Helper()
	sc := Scenario{Type: TypeMIMO, Fading: law, KFactor: k, NumPaths: 1}
	ch, err := NewMIMO(sc, 1e6, rand.NewSource(seed))
	require.NoError(t, err)
	out, err := ch.Apply(impulse(4))
	require.NoError(t, err)
	return cmplx.Abs(out.Samples()[0])
}

func TestRicianZeroKMatchesRayleigh(t *testing.T) {
	const n = 4000
	var sumRay, sumRice float64
	for i := uint64(0); i < n; i++ {
		sumRay += singleTapGain(t, Rayleigh, 0, i)
		sumRice += singleTapGain(t, Rician, 0, n+i)
	}
	meanRay := sumRay / n
	meanRice := sumRice / n
	// Unit-power Rayleigh magnitude has mean sqrt(pi)/2.
	assert.InDelta(t, math.Sqrt(math.Pi)/2, meanRay, 0.03)
	assert.InDelta(t, meanRay, meanRice, 0.03)
}

func TestStrongKFactorConcentratesGain(t *testing.T) {
	const n = 2000
	var dev float64
	for i := uint64(0); i < n; i++ {
		g := singleTapGain(t, Rician, 1000, i)
		dev += math.Abs(g - 1)
	}
	// With K >> 1 almost all power is in the dominant component.
	assert.Less(t, dev/n, 0.1)
}

func TestMIMOSinglePathStaticChannelIsFlat(t *testing.T) {
	sc := Scenario{Type: TypeMIMO, Fading: Rayleigh, NumPaths: 1}
	ch, err := NewMIMO(sc, 1e6, rand.NewSource(7))
	require.NoError(t, err)

	in := &modulator.Waveform{
		Streams:    [][]complex128{{1, 2i, -1, 0.5}},
		SampleRate: 1e6,
	}
	out, err := ch.Apply(in)
	require.NoError(t, err)
	require.Equal(t, 1, out.NumAntennas())

	// Zero speed and one path: output is the input scaled by one gain.
	g := out.Samples()[0]
	require.NotZero(t, g)
	for i, x := range in.Streams[0] {
		want := g * x
		assert.InDelta(t, real(want), real(out.Samples()[i]), 1e-12)
		assert.InDelta(t, imag(want), imag(out.Samples()[i]), 1e-12)
	}
}

func TestChannelApplyIsDeterministic(t *testing.T) {
	sc := Scenario{
		Type: TypeMIMO, Fading: Rician, KFactor: 4,
		NumPaths: 5, DistanceM: 1200, SpeedMS: 20,
	}
	ch, err := NewMIMO(sc, 1e6, rand.NewSource(9))
	require.NoError(t, err)
	in := impulse(64)
	out1, err := ch.Apply(in)
	require.NoError(t, err)
	out2, err := ch.Apply(in)
	require.NoError(t, err)
	assert.Equal(t, out1.Streams, out2.Streams)
}

type fakeEngine struct {
	paths  []Path
	err    error
	calls  int
	cfg    PropagationModelConfig
	folder string
}

func (f *fakeEngine) TracePaths(cfg PropagationModelConfig, mapFolder string) ([]Path, error) {
	f.calls++
	f.cfg = cfg
	f.folder = mapFolder
	return f.paths, f.err
}

func TestRayTracingChannel(t *testing.T) {
	engine := &fakeEngine{paths: []Path{
		{Gain: 1, DelayS: 2e-6},
		{Gain: 0.5i, DelayS: 5e-6},
	}}
	sc := Scenario{
		Type:        TypeRayTracing,
		Propagation: PropagationModelConfig{Method: "SBR", MaxNumReflections: 3},
		MapFolder:   "map/osm",
	}
	ch, err := NewRayTracing(sc, 1e6, engine)
	require.NoError(t, err)
	assert.Equal(t, 1, engine.calls)
	assert.Equal(t, "map/osm", engine.folder)
	assert.Equal(t, 3, engine.cfg.MaxNumReflections)

	out, err := ch.Apply(impulse(8))
	require.NoError(t, err)
	// The earliest path lands at zero excess delay; the second 3 us later.
	assert.Equal(t, complex128(1), out.Samples()[0])
	assert.Equal(t, complex128(0.5i), out.Samples()[3])
}

func TestRayTracingRequiresEngine(t *testing.T) {
	sc := Scenario{Type: TypeRayTracing}
	_, err := New(sc, 1e6, rand.NewSource(1), nil)
	var cfe *errs.ConfigError
	require.Error(t, err)
	assert.True(t, errors.As(err, &cfe))
}

func TestNewDispatches(t *testing.T) {
	mimoSc := Scenario{Type: TypeMIMO, Fading: Rayleigh, NumPaths: 2, DistanceM: 10}
	ch, err := New(mimoSc, 1e6, rand.NewSource(4), nil)
	require.NoError(t, err)
	_, ok := ch.(*MIMOChannel)
	assert.True(t, ok)

	_, err = New(Scenario{Type: "other"}, 1e6, rand.NewSource(4), nil)
	require.Error(t, err)
}
