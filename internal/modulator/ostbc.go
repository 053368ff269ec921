package modulator

import (
	"math/cmplx"

	"gonum.org/v1/gonum/mat"

	"github.com/sdrforge/wavesynth/internal/errs"
)

// ostbcEncoder spreads symbols across transmit antennas using an orthogonal
// space-time block code: identity for one antenna, Alamouti for two, the
// rate-3/4 orthogonal code for four. Encoded output always has exactly one
// stream per antenna.
type ostbcEncoder struct {
	numAntennas int
	blockIn     int // symbols consumed per block
	blockOut    int // time slots emitted per block
}

func newOSTBC(numAntennas int) (*ostbcEncoder, error) {
	switch numAntennas {
	case 1:
		return &ostbcEncoder{numAntennas: 1, blockIn: 1, blockOut: 1}, nil
	case 2:
		return &ostbcEncoder{numAntennas: 2, blockIn: 2, blockOut: 2}, nil
	case 4:
		return &ostbcEncoder{numAntennas: 4, blockIn: 3, blockOut: 4}, nil
	default:
		return nil, errs.Constructionf("ostbc", "no orthogonal code for %d antennas", numAntennas)
	}
}

// Encode maps the symbol sequence to one stream per antenna. Incomplete
// trailing blocks are zero-padded.
func (e *ostbcEncoder) Encode(symbols []complex128) [][]complex128 {
	if e.numAntennas == 1 {
		stream := make([]complex128, len(symbols))
		copy(stream, symbols)
		return [][]complex128{stream}
	}

	blocks := (len(symbols) + e.blockIn - 1) / e.blockIn
	streams := make([][]complex128, e.numAntennas)
	for a := range streams {
		streams[a] = make([]complex128, blocks*e.blockOut)
	}

	buf := make([]complex128, e.blockIn)
	for b := 0; b < blocks; b++ {
		for i := range buf {
			buf[i] = 0
			if idx := b*e.blockIn + i; idx < len(symbols) {
				buf[i] = symbols[idx]
			}
		}
		block := e.encodeBlock(buf)
		for t := 0; t < e.blockOut; t++ {
			for a := 0; a < e.numAntennas; a++ {
				streams[a][b*e.blockOut+t] = block.At(t, a)
			}
		}
	}
	return streams
}

// encodeBlock builds the per-block code matrix (rows are time slots, columns
// are antennas).
func (e *ostbcEncoder) encodeBlock(s []complex128) *mat.CDense {
	m := mat.NewCDense(e.blockOut, e.numAntennas, nil)
	conj := cmplx.Conj
	switch e.numAntennas {
	case 2:
		// Alamouti G2.
		m.Set(0, 0, s[0])
		m.Set(0, 1, s[1])
		m.Set(1, 0, -conj(s[1]))
		m.Set(1, 1, conj(s[0]))
	case 4:
		// Rate-3/4 orthogonal code G4 over three symbols.
		m.Set(0, 0, s[0])
		m.Set(0, 1, s[1])
		m.Set(0, 2, s[2])
		m.Set(1, 0, -conj(s[1]))
		m.Set(1, 1, conj(s[0]))
		m.Set(1, 3, s[2])
		m.Set(2, 0, -conj(s[2]))
		m.Set(2, 2, conj(s[0]))
		m.Set(2, 3, -s[1])
		m.Set(3, 1, -conj(s[2]))
		m.Set(3, 2, conj(s[1]))
		m.Set(3, 3, s[0])
	}
	return m
}
