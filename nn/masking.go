package nn

import (
	"fmt"

	"github.com/openfluke/capsnet/pods"
)

// MaskCapsules keeps capsule selected[b] of every sample in upper
// (batch, C, D_c) and zeroes the rest. This is the usual input to a
// reconstruction decoder.
func MaskCapsules(upper pods.Tensor[float32], selected []int) (pods.Tensor[float32], error) {
	if err := checkShape("mask", upper.Shape, len(selected), -1, -1); err != nil {
		return pods.Tensor[float32]{}, err
	}
	numCaps, dimCaps := upper.Dim(1), upper.Dim(2)
	out := pods.NewTensor[float32](upper.Shape...)
	for b, c := range selected {
		if c < 0 || c >= numCaps {
			return pods.Tensor[float32]{}, fmt.Errorf("mask sample %d: capsule %d out of range [0, %d): %w", b, c, numCaps, ErrShapeMismatch)
		}
		off := upper.Offset(b, c)
		copy(out.Data[off:off+dimCaps], upper.Data[off:off+dimCaps])
	}
	return out, nil
}

// MaskByPrediction masks every capsule except the longest one per sample.
func MaskByPrediction(upper pods.Tensor[float32]) (pods.Tensor[float32], []int, error) {
	probs, err := ClassProbabilities(upper)
	if err != nil {
		return pods.Tensor[float32]{}, nil, err
	}
	selected, err := PredictClasses(probs)
	if err != nil {
		return pods.Tensor[float32]{}, nil, err
	}
	masked, err := MaskCapsules(upper, selected)
	return masked, selected, err
}

// MaskByTarget masks every capsule except the target class (argmax of a
// one-hot row) per sample.
func MaskByTarget(upper, target pods.Tensor[float32]) (pods.Tensor[float32], error) {
	if err := checkShape("mask", upper.Shape, -1, -1, -1); err != nil {
		return pods.Tensor[float32]{}, err
	}
	if err := checkShape("mask", target.Shape, upper.Dim(0), upper.Dim(1)); err != nil {
		return pods.Tensor[float32]{}, err
	}
	selected, err := PredictClasses(target)
	if err != nil {
		return pods.Tensor[float32]{}, err
	}
	return MaskCapsules(upper, selected)
}
