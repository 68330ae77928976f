package nn

import (
	"fmt"

	"github.com/openfluke/capsnet/pods"
)

// Coupling turns routing logits (batch, P, C) into coupling coefficients:
// a softmax over the upper-capsule axis, so every (b, p) row sums to 1.
func Coupling(logits pods.Tensor[float32]) (pods.Tensor[float32], error) {
	if err := checkShape("coupling", logits.Shape, -1, -1, -1); err != nil {
		return pods.Tensor[float32]{}, err
	}
	probs, err := pods.SoftmaxRows(logits.Data, logits.Dim(-1))
	if err != nil {
		return pods.Tensor[float32]{}, fmt.Errorf("coupling %v: %w", logits.Shape, err)
	}
	return pods.NewTensorFromSlice(probs, logits.Shape...), nil
}
