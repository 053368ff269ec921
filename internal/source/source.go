// Package source supplies the symbol streams fed into modulator handles.
// Sources are small collaborators so generation pipelines can swap the
// uniform default for replayed or scripted data in tests.
package source

import (
	"golang.org/x/exp/rand"

	"github.com/sdrforge/wavesynth/internal/errs"
)

// Source emits batches of modulation symbols.
type Source interface {
	// Next fills a batch of n symbols. Implementations keep their own
	// position so successive calls continue the stream.
	Next(n int) ([]int, error)
}

// Uniform draws symbols independently and uniformly from [0, Order).
type Uniform struct {
	order int
	rng   *rand.Rand
}

// NewUniform builds a uniform symbol source over [0, order) driven by src.
func NewUniform(order int, src rand.Source) (*Uniform, error) {
	if order < 1 {
		return nil, errs.Configf("order", "must be >= 1, got %d", order)
	}
	return &Uniform{order: order, rng: rand.New(src)}, nil
}

// Order returns the alphabet size.
func (u *Uniform) Order() int { return u.order }

// Next returns n fresh symbols.
func (u *Uniform) Next(n int) ([]int, error) {
	if n < 0 {
		return nil, errs.Runtimef("source", "negative batch size %d", n)
	}
	out := make([]int, n)
	for i := range out {
		out[i] = u.rng.Intn(u.order)
	}
	return out, nil
}

// Fixed replays a predetermined symbol sequence, cycling when exhausted.
// It backs deterministic pipeline tests.
type Fixed struct {
	symbols []int
	pos     int
}

// NewFixed builds a replaying source. The sequence must be non-empty.
func NewFixed(symbols []int) (*Fixed, error) {
	if len(symbols) == 0 {
		return nil, errs.Configf("symbols", "sequence must be non-empty")
	}
	cp := make([]int, len(symbols))
	copy(cp, symbols)
	return &Fixed{symbols: cp}, nil
}

// Next returns the next n symbols, wrapping around the sequence.
func (f *Fixed) Next(n int) ([]int, error) {
	if n < 0 {
		return nil, errs.Runtimef("source", "negative batch size %d", n)
	}
	out := make([]int, n)
	for i := range out {
		out[i] = f.symbols[f.pos]
		f.pos = (f.pos + 1) % len(f.symbols)
	}
	return out, nil
}
