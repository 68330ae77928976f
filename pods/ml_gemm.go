package pods

import (
	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas32"
)

// GEMV computes y = A·x for a row-major A[rows, cols], overwriting y.
func GEMV(a []float32, rows, cols int, x, y []float32) error {
	if rows <= 0 || cols <= 0 || len(a) != rows*cols || len(x) != cols || len(y) != rows {
		return ErrBadShape
	}
	blas32.Gemv(blas.NoTrans, 1,
		blas32.General{Rows: rows, Cols: cols, Stride: cols, Data: a},
		blas32.Vector{N: cols, Inc: 1, Data: x},
		0,
		blas32.Vector{N: rows, Inc: 1, Data: y},
	)
	return nil
}

// Dot returns x·y. Both slices must have the same length.
func Dot(x, y []float32) float32 {
	if len(x) != len(y) {
		panic(ErrBadShape)
	}
	if len(x) == 0 {
		return 0
	}
	return blas32.Dot(
		blas32.Vector{N: len(x), Inc: 1, Data: x},
		blas32.Vector{N: len(y), Inc: 1, Data: y},
	)
}

// AXPY accumulates y += alpha·x in place.
func AXPY(alpha float32, x, y []float32) {
	if len(x) != len(y) {
		panic(ErrBadShape)
	}
	if len(x) == 0 {
		return
	}
	blas32.Axpy(alpha,
		blas32.Vector{N: len(x), Inc: 1, Data: x},
		blas32.Vector{N: len(y), Inc: 1, Data: y},
	)
}
