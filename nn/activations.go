package nn

import (
	"fmt"

	"github.com/openfluke/capsnet/pods"
)

// Squash bounds every vector along the last axis to length < 1 without
// changing its direction:
//
//	squash(v) = (‖v‖² / (1+‖v‖²)) · v / sqrt(‖v‖² + ε)
//
// All leading axes are treated as independent vectors. squash(0) = 0.
func Squash(t pods.Tensor[float32]) (pods.Tensor[float32], error) {
	if t.Rank() == 0 {
		return pods.Tensor[float32]{}, &ShapeError{Op: "squash", Want: []int{-1}, Got: t.Shape}
	}
	data, err := pods.SquashRows(t.Data, t.Dim(-1))
	if err != nil {
		return pods.Tensor[float32]{}, fmt.Errorf("squash %v: %w", t.Shape, err)
	}
	return pods.NewTensorFromSlice(data, t.Shape...), nil
}

// SafeNorm returns sqrt(Σv² + ε) along the last axis. With keepDims the
// result keeps that axis with size 1.
func SafeNorm(t pods.Tensor[float32], keepDims bool) (pods.Tensor[float32], error) {
	if t.Rank() == 0 {
		return pods.Tensor[float32]{}, &ShapeError{Op: "safe norm", Want: []int{-1}, Got: t.Shape}
	}
	data, err := pods.SafeNormRows(t.Data, t.Dim(-1))
	if err != nil {
		return pods.Tensor[float32]{}, fmt.Errorf("safe norm %v: %w", t.Shape, err)
	}
	shape := append([]int{}, t.Shape[:t.Rank()-1]...)
	if keepDims {
		shape = append(shape, 1)
	}
	return pods.NewTensorFromSlice(data, shape...), nil
}
