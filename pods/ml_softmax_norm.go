package pods

import (
	"math"

	"github.com/chewxy/math32"
)

// Epsilon stabilises every vector norm computed here: ‖v‖ ≈ sqrt(Σv² + Epsilon).
const Epsilon = 1e-7

// squashCeiling keeps the squash factor strictly below 1 once float32
// rounding would otherwise make sq/(1+sq) equal to 1.
const squashCeiling = 1 - 1e-6

// SoftmaxRows applies a max-subtracted softmax to each contiguous row of
// width cols and returns a new buffer.
func SoftmaxRows(logits []float32, cols int) ([]float32, error) {
	if cols <= 0 || len(logits)%cols != 0 {
		return nil, ErrBadShape
	}
	out := make([]float32, len(logits))
	for r := 0; r < len(logits); r += cols {
		row := logits[r : r+cols]
		mx := row[0]
		for _, v := range row[1:] {
			if v > mx {
				mx = v
			}
		}
		var sum float64
		for i, v := range row {
			e := math32.Exp(v - mx)
			out[r+i] = e
			sum += float64(e)
		}
		inv := float32(1.0 / sum)
		for i := r; i < r+cols; i++ {
			out[i] *= inv
		}
	}
	return out, nil
}

// SquashRows maps every row v of width dim to (‖v‖²/(1+‖v‖²)) · v/sqrt(‖v‖²+ε).
// Sums are accumulated in float64 so large float32 inputs stay finite.
func SquashRows(in []float32, dim int) ([]float32, error) {
	if dim <= 0 || len(in)%dim != 0 {
		return nil, ErrBadShape
	}
	out := make([]float32, len(in))
	for r := 0; r < len(in); r += dim {
		sq := sumSquares(in[r : r+dim])
		factor := sq / (1 + sq)
		if factor > squashCeiling {
			factor = squashCeiling
		}
		scale := factor / math.Sqrt(sq+Epsilon)
		for i := r; i < r+dim; i++ {
			out[i] = float32(float64(in[i]) * scale)
		}
	}
	return out, nil
}

// SafeNormRows returns sqrt(Σv² + ε) for every row of width dim.
func SafeNormRows(in []float32, dim int) ([]float32, error) {
	if dim <= 0 || len(in)%dim != 0 {
		return nil, ErrBadShape
	}
	out := make([]float32, len(in)/dim)
	for r := range out {
		out[r] = float32(math.Sqrt(sumSquares(in[r*dim:(r+1)*dim]) + Epsilon))
	}
	return out, nil
}

func sumSquares(v []float32) float64 {
	var s float64
	for _, x := range v {
		f := float64(x)
		s += f * f
	}
	return s
}
