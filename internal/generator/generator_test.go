package generator

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sdrforge/wavesynth/internal/channel"
	"github.com/sdrforge/wavesynth/internal/errs"
	"github.com/sdrforge/wavesynth/internal/logging"
	"github.com/sdrforge/wavesynth/internal/modulator"
	"github.com/sdrforge/wavesynth/internal/telemetry"
)

func mimoOnlyConfig() channel.Config {
	return channel.Config{
		Probabilities: channel.Probabilities{MIMO: 1},
		MIMO: channel.MIMOConfig{
			MaxPaths: 4,
			MaxDistance: channel.DistanceConfig{
				Ratio:   40,
				Indoor:  50,
				Outdoor: [2]float64{0.5, 5},
			},
			SpeedRange: [2]float64{0, 30},
			MaxKFactor: 10,
			Fading:     channel.FadingConfig{Ratio: 50, Distribution: [2]string{"Rayleigh", "Rician"}},
		},
	}
}

type memSink struct {
	mu      sync.Mutex
	records []Record
	err     error
}

func (s *memSink) Write(rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.records = append(s.records, rec)
	return nil
}

func TestRunProducesLabeledRecords(t *testing.T) {
	sink := &memSink{}
	collector := telemetry.NewCollector(100)
	cfg := Config{
		Signals: []SignalConfig{
			{
				Scheme:           modulator.PSK,
				Modulator:        modulator.Config{SampleRate: 1e6, ModulationOrder: 4},
				Records:          6,
				SymbolsPerRecord: 64,
			},
			{
				Scheme:           modulator.FM,
				Modulator:        modulator.Config{SampleRate: 1e6},
				Records:          3,
				SymbolsPerRecord: 256,
			},
		},
		Workers: 3,
		Seed:    11,
	}
	p, err := New(cfg, mimoOnlyConfig(), sink,
		WithReporter(collector), WithLogger(logging.Discard()))
	require.NoError(t, err)

	stats, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 9, stats.Produced)
	assert.Zero(t, stats.Failed)
	require.Len(t, sink.records, 9)

	seen := map[string]int{}
	ids := map[string]bool{}
	for _, rec := range sink.records {
		seen[rec.Scheme]++
		require.NotEmpty(t, rec.ID)
		require.False(t, ids[rec.ID], "duplicate record id")
		ids[rec.ID] = true
		assert.Equal(t, "MIMO", rec.Scenario.Type)
		assert.NotEmpty(t, rec.IQ)
		assert.Equal(t, 1e6, rec.SampleRate)
		assert.Positive(t, rec.BandwidthHz)
		if rec.Scheme == "psk" {
			assert.Equal(t, 4, rec.ModulationOrder)
		}
	}
	assert.Equal(t, 6, seen["psk"])
	assert.Equal(t, 3, seen["fm"])
	assert.Len(t, collector.History(), 9)
}

func TestRunIsolatesFailingClass(t *testing.T) {
	sink := &memSink{}
	cfg := Config{
		Signals: []SignalConfig{
			{
				Scheme:           modulator.PSK,
				Modulator:        modulator.Config{SampleRate: 1e6, ModulationOrder: 2},
				Records:          4,
				SymbolsPerRecord: 32,
			},
			{
				// APSK has no order-8 ring layout.
				Scheme:           modulator.APSK,
				Modulator:        modulator.Config{SampleRate: 1e6, ModulationOrder: 8},
				Records:          2,
				SymbolsPerRecord: 32,
			},
		},
		Workers: 2,
		Seed:    3,
	}
	p, err := New(cfg, mimoOnlyConfig(), sink, WithLogger(logging.Discard()))
	require.NoError(t, err)

	stats, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, stats.Produced)
	assert.Equal(t, 2, stats.Failed)
	assert.Len(t, sink.records, 4)
}

func TestNewValidation(t *testing.T) {
	var cfe *errs.ConfigError
	sink := &memSink{}
	good := SignalConfig{
		Scheme:           modulator.PSK,
		Modulator:        modulator.Config{SampleRate: 1e6, ModulationOrder: 4},
		Records:          1,
		SymbolsPerRecord: 8,
	}

	_, err := New(Config{}, mimoOnlyConfig(), sink)
	require.Error(t, err)
	assert.True(t, errors.As(err, &cfe))

	bad := good
	bad.Records = 0
	_, err = New(Config{Signals: []SignalConfig{bad}}, mimoOnlyConfig(), sink)
	require.Error(t, err)
	assert.True(t, errors.As(err, &cfe))

	_, err = New(Config{Signals: []SignalConfig{good}}, mimoOnlyConfig(), nil)
	require.Error(t, err)
	assert.True(t, errors.As(err, &cfe))

	rt := mimoOnlyConfig()
	rt.Probabilities.RayTracing = 1
	rt.RayTracing.MapFolder = "map/osm"
	_, err = New(Config{Signals: []SignalConfig{good}}, rt, sink)
	require.Error(t, err)
	assert.True(t, errors.As(err, &cfe))
}

func TestRunAbortsOnSinkError(t *testing.T) {
	sink := &memSink{err: errors.New("disk full")}
	cfg := Config{
		Signals: []SignalConfig{
			{
				Scheme:           modulator.PSK,
				Modulator:        modulator.Config{SampleRate: 1e6, ModulationOrder: 4},
				Records:          8,
				SymbolsPerRecord: 16,
			},
		},
		Workers: 2,
		Seed:    5,
	}
	p, err := New(cfg, mimoOnlyConfig(), sink, WithLogger(logging.Discard()))
	require.NoError(t, err)

	_, err = p.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
}
