// Package generator runs the batch dataset pipeline: draw a channel scenario,
// build worker-private modulator and channel instances, push symbol batches
// through the modulation handle and the channel, and emit labeled IQ records.
package generator

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"golang.org/x/exp/rand"
	"golang.org/x/sync/errgroup"

	"github.com/sdrforge/wavesynth/internal/cache"
	"github.com/sdrforge/wavesynth/internal/channel"
	"github.com/sdrforge/wavesynth/internal/errs"
	"github.com/sdrforge/wavesynth/internal/logging"
	"github.com/sdrforge/wavesynth/internal/modulator"
	"github.com/sdrforge/wavesynth/internal/source"
	"github.com/sdrforge/wavesynth/internal/telemetry"
)

// analogAlphabet sizes the integer message alphabet fed to analog schemes,
// which have no modulation order of their own.
const analogAlphabet = 256

// SignalConfig describes one signal class to synthesize.
type SignalConfig struct {
	Scheme           modulator.Scheme `yaml:"scheme"`
	Modulator        modulator.Config `yaml:"modulator"`
	Records          int              `yaml:"records"`
	SymbolsPerRecord int              `yaml:"symbolsPerRecord"`
}

// Config drives a generation run.
type Config struct {
	Signals []SignalConfig `yaml:"signals"`
	Workers int            `yaml:"workers"`
	Seed    uint64         `yaml:"seed"`
}

// ScenarioLabel is the channel ground truth attached to a record.
type ScenarioLabel struct {
	Type      string  `json:"type"`
	Indoor    bool    `json:"indoor,omitempty"`
	DistanceM float64 `json:"distanceM,omitempty"`
	SpeedMS   float64 `json:"speedMS,omitempty"`
	Fading    string  `json:"fading,omitempty"`
	KFactor   float64 `json:"kFactor,omitempty"`
	NumPaths  int     `json:"numPaths,omitempty"`
}

// Record is one labeled dataset entry. IQ holds interleaved (I, Q) pairs of
// the received stream after the channel.
type Record struct {
	ID                  string        `json:"id"`
	Scheme              string        `json:"scheme"`
	ModulationOrder     int           `json:"modulationOrder"`
	NumTransmitAntennas int           `json:"numTransmitAntennas"`
	SampleRate          float64       `json:"sampleRate"`
	BandwidthHz         float64       `json:"bandwidthHz"`
	Scenario            ScenarioLabel `json:"scenario"`
	IQ                  [][2]float64  `json:"iq"`
}

// Sink receives finished records. The pipeline serializes calls.
type Sink interface {
	Write(rec Record) error
}

// Stats summarizes a run.
type Stats struct {
	Produced int
	Failed   int
}

// Pipeline is a configured generation run.
type Pipeline struct {
	cfg      Config
	chanCfg  channel.Config
	sink     Sink
	reporter telemetry.Reporter
	logger   logging.Logger
	engine   channel.Engine

	sinkMu sync.Mutex
}

// Option adjusts pipeline collaborators.
type Option func(*Pipeline)

// WithReporter installs a telemetry reporter.
func WithReporter(r telemetry.Reporter) Option {
	return func(p *Pipeline) { p.reporter = r }
}

// WithLogger installs a logger.
func WithLogger(l logging.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// WithEngine installs the ray-tracing engine collaborator.
func WithEngine(e channel.Engine) Option {
	return func(p *Pipeline) { p.engine = e }
}

// New validates the run configuration and wires the pipeline.
func New(cfg Config, chanCfg channel.Config, sink Sink, opts ...Option) (*Pipeline, error) {
	if len(cfg.Signals) == 0 {
		return nil, errs.Configf("signals", "at least one signal class required")
	}
	for i, sig := range cfg.Signals {
		if sig.Records < 1 {
			return nil, errs.Configf("signals", "signal %d: records must be >= 1, got %d", i, sig.Records)
		}
		if sig.SymbolsPerRecord < 1 {
			return nil, errs.Configf("signals", "signal %d: symbolsPerRecord must be >= 1, got %d", i, sig.SymbolsPerRecord)
		}
	}
	if err := chanCfg.Validate(); err != nil {
		return nil, err
	}
	if sink == nil {
		return nil, errs.Configf("sink", "sink required")
	}
	p := &Pipeline{cfg: cfg, chanCfg: chanCfg, sink: sink}
	for _, opt := range opts {
		opt(p)
	}
	if p.chanCfg.Probabilities.RayTracing > 0 && p.engine == nil {
		return nil, errs.Configf("engine", "ray-tracing scenarios enabled without an engine")
	}
	if p.logger == nil {
		p.logger = logging.Default()
	}
	if p.cfg.Workers <= 0 {
		p.cfg.Workers = runtime.NumCPU()
	}
	return p, nil
}

type job struct {
	signal SignalConfig
	index  int
}

// Run generates all configured records. A failing record aborts only itself;
// sink failures and context cancellation abort the run.
func (p *Pipeline) Run(ctx context.Context) (Stats, error) {
	var produced, failed atomic.Int64

	g, ctx := errgroup.WithContext(ctx)
	jobs := make(chan job)

	g.Go(func() error {
		defer close(jobs)
		for _, sig := range p.cfg.Signals {
			for i := 0; i < sig.Records; i++ {
				select {
				case jobs <- job{signal: sig, index: i}:
				case <-ctx.Done():
					return ctx.Err()
				}
			}
		}
		return nil
	})

	for w := 0; w < p.cfg.Workers; w++ {
		seed := p.cfg.Seed + uint64(w)*0x9e3779b9
		g.Go(func() error {
			return p.worker(ctx, seed, jobs, &produced, &failed)
		})
	}

	err := g.Wait()
	stats := Stats{Produced: int(produced.Load()), Failed: int(failed.Load())}
	p.logger.Info("run finished",
		logging.F("produced", stats.Produced),
		logging.F("failed", stats.Failed))
	return stats, err
}

// worker owns its random source, scenario selector and instance cache, so
// no modulator or channel state is ever shared across goroutines.
func (p *Pipeline) worker(ctx context.Context, seed uint64, jobs <-chan job, produced, failed *atomic.Int64) error {
	src := rand.NewSource(seed)
	sel, err := channel.NewSelector(p.chanCfg, src)
	if err != nil {
		return err
	}
	store := cache.NewStore()

	for jb := range jobs {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		rec, err := p.produce(jb, src, sel, store)
		if err != nil {
			failed.Add(1)
			p.report(telemetry.Event{Scheme: string(jb.signal.Scheme), Err: err.Error()})
			p.logger.Warn("record failed",
				logging.F("scheme", string(jb.signal.Scheme)),
				logging.F("index", jb.index),
				logging.F("error", err.Error()))
			continue
		}
		p.sinkMu.Lock()
		err = p.sink.Write(*rec)
		p.sinkMu.Unlock()
		if err != nil {
			return fmt.Errorf("write record: %w", err)
		}
		produced.Add(1)
		p.report(telemetry.Event{
			RecordID:    rec.ID,
			Scheme:      rec.Scheme,
			Scenario:    rec.Scenario.Type,
			Samples:     len(rec.IQ),
			BandwidthHz: rec.BandwidthHz,
		})
	}
	return nil
}

func (p *Pipeline) produce(jb job, src rand.Source, sel *channel.Selector, store *cache.Store) (*Record, error) {
	key, err := cache.Key(struct {
		Scheme modulator.Scheme
		Cfg    modulator.Config
	}{jb.signal.Scheme, jb.signal.Modulator})
	if err != nil {
		return nil, fmt.Errorf("cache key: %w", err)
	}

	// Construction is cached per worker; the handle is reused for every
	// record of the same signal class.
	v, err := store.GetOrCreate(key, func() (any, error) {
		mod, err := modulator.New(jb.signal.Scheme, jb.signal.Modulator, src)
		if err != nil {
			return nil, err
		}
		handle, err := mod.GenerateHandle()
		if err != nil {
			return nil, err
		}
		return &boundModulator{mod: mod, handle: handle}, nil
	})
	if err != nil {
		return nil, err
	}
	bm := v.(*boundModulator)

	order := bm.mod.ModulationOrder()
	alphabet := order
	if !bm.mod.IsDigital() {
		alphabet = analogAlphabet
	}
	syms, err := newSymbols(alphabet, src, jb.signal.SymbolsPerRecord)
	if err != nil {
		return nil, err
	}

	wf, err := bm.handle(syms)
	if err != nil {
		return nil, err
	}

	sc, err := sel.Select()
	if err != nil {
		return nil, err
	}
	ch, err := channel.New(sc, wf.SampleRate, src, p.engine)
	if err != nil {
		return nil, err
	}
	out, err := ch.Apply(wf)
	if err != nil {
		return nil, err
	}

	iq := make([][2]float64, len(out.Samples()))
	for i, s := range out.Samples() {
		iq[i] = [2]float64{real(s), imag(s)}
	}
	return &Record{
		ID:                  uuid.NewString(),
		Scheme:              string(jb.signal.Scheme),
		ModulationOrder:     order,
		NumTransmitAntennas: bm.mod.NumTransmitAntennas(),
		SampleRate:          wf.SampleRate,
		BandwidthHz:         wf.BandwidthHz,
		Scenario: ScenarioLabel{
			Type:      string(sc.Type),
			Indoor:    sc.Indoor,
			DistanceM: sc.DistanceM,
			SpeedMS:   sc.SpeedMS,
			Fading:    string(sc.Fading),
			KFactor:   sc.KFactor,
			NumPaths:  sc.NumPaths,
		},
		IQ: iq,
	}, nil
}

type boundModulator struct {
	mod    modulator.Modulator
	handle modulator.Handle
}

func newSymbols(alphabet int, src rand.Source, n int) ([]int, error) {
	u, err := source.NewUniform(alphabet, src)
	if err != nil {
		return nil, err
	}
	return u.Next(n)
}

func (p *Pipeline) report(ev telemetry.Event) {
	if p.reporter != nil {
		p.reporter.Report(ev)
	}
}
