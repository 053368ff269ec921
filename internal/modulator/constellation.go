package modulator

import (
	"math"
	"math/cmplx"

	"github.com/sdrforge/wavesynth/internal/errs"
)

// constellation maps integer symbols to complex points with unit average
// power (except OOK, whose off state must stay at zero amplitude).
type constellation struct {
	points []complex128
}

func (c *constellation) order() int { return len(c.points) }

func (c *constellation) mapSymbols(symbols []int) []complex128 {
	out := make([]complex128, len(symbols))
	for i, s := range symbols {
		out[i] = c.points[s]
	}
	return out
}

// grayEncode converts a binary index to its Gray-coded position.
func grayEncode(k int) int { return k ^ (k >> 1) }

func newConstellation(scheme Scheme, order int, phaseOffset float64, mapping string) (*constellation, error) {
	switch scheme {
	case PSK, OQPSK:
		return pskConstellation(order, phaseOffset, mapping), nil
	case APSK:
		return apskConstellation(order, phaseOffset)
	case ASK:
		return askConstellation(order, mapping), nil
	case OOK:
		return &constellation{points: []complex128{0, 1}}, nil
	default:
		return nil, errs.Constructionf("constellation", "scheme %q has no constellation", scheme)
	}
}

func pskConstellation(order int, phaseOffset float64, mapping string) *constellation {
	points := make([]complex128, order)
	for k := 0; k < order; k++ {
		pos := k
		if mapping == MappingGray {
			pos = grayEncode(k)
		}
		angle := 2*math.Pi*float64(pos)/float64(order) + phaseOffset
		points[k] = cmplx.Exp(complex(0, angle))
	}
	return &constellation{points: points}
}

// apskRings holds the ring layouts for supported APSK orders. Radii follow
// the DVB-S2 ring ratio conventions.
var apskRings = map[int]struct {
	sizes []int
	radii []float64
}{
	16: {sizes: []int{4, 12}, radii: []float64{1.0, 2.70}},
	32: {sizes: []int{4, 12, 16}, radii: []float64{1.0, 2.64, 4.64}},
}

func apskConstellation(order int, phaseOffset float64) (*constellation, error) {
	layout, ok := apskRings[order]
	if !ok {
		return nil, errs.Constructionf("constellation", "no APSK ring layout for order %d", order)
	}
	points := make([]complex128, 0, order)
	for ring, size := range layout.sizes {
		for k := 0; k < size; k++ {
			// Odd rings are rotated half a step for larger inter-ring distance.
			angle := 2*math.Pi*(float64(k)+0.5*float64(ring%2))/float64(size) + phaseOffset
			points = append(points, complex(layout.radii[ring], 0)*cmplx.Exp(complex(0, angle)))
		}
	}
	return &constellation{points: normalizePower(points)}, nil
}

func askConstellation(order int, mapping string) *constellation {
	points := make([]complex128, order)
	for k := 0; k < order; k++ {
		pos := k
		if mapping == MappingGray {
			pos = grayEncode(k)
		}
		points[k] = complex(float64(2*pos-order+1), 0)
	}
	return &constellation{points: normalizePower(points)}
}

func normalizePower(points []complex128) []complex128 {
	var avg float64
	for _, p := range points {
		avg += real(p)*real(p) + imag(p)*imag(p)
	}
	avg /= float64(len(points))
	if avg == 0 {
		return points
	}
	scale := complex(1/math.Sqrt(avg), 0)
	for i := range points {
		points[i] *= scale
	}
	return points
}

// diffEncode applies differential phase encoding: each output point is the
// previous output rotated by the current point.
func diffEncode(points []complex128) []complex128 {
	out := make([]complex128, len(points))
	prev := complex(1, 0)
	for i, p := range points {
		prev *= p
		out[i] = prev
	}
	return out
}
