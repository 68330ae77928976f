package nn

import (
	"fmt"
	"time"

	"github.com/openfluke/capsnet/pods"
)

// EvalMetrics summarises one forward pass scored against targets.
type EvalMetrics struct {
	Loss          float32       `json:"loss"`
	Accuracy      float32       `json:"accuracy"`
	Predicted     []int         `json:"predicted"`     // argmax class per sample
	Probabilities [][]float32   `json:"probabilities"` // capsule lengths per sample
	Iterations    int           `json:"routing_iterations"`
	Elapsed       time.Duration `json:"elapsed"`
}

// ClassProbabilities returns the length of every upper capsule: (batch, C).
func ClassProbabilities(upper pods.Tensor[float32]) (pods.Tensor[float32], error) {
	if err := checkShape("class probabilities", upper.Shape, -1, -1, -1); err != nil {
		return pods.Tensor[float32]{}, err
	}
	return SafeNorm(upper, false)
}

// PredictClasses returns the argmax class of every (batch, C) row.
func PredictClasses(probs pods.Tensor[float32]) ([]int, error) {
	if err := checkShape("predict classes", probs.Shape, -1, -1); err != nil {
		return nil, err
	}
	return pods.ArgmaxRows(probs.Data, probs.Dim(1))
}

// Evaluate runs layer on lower and scores the capsule lengths against
// target (batch, C) with the margin loss and accuracy.
func Evaluate(layer *CapsuleLayer, lower, target pods.Tensor[float32], cfg MarginConfig) (*EvalMetrics, error) {
	start := time.Now()
	res, err := layer.ForwardRouting(lower)
	if err != nil {
		return nil, fmt.Errorf("evaluate: %w", err)
	}
	probs, err := ClassProbabilities(res.Upper)
	if err != nil {
		return nil, fmt.Errorf("evaluate: %w", err)
	}
	loss, err := MarginLoss(target, probs, cfg)
	if err != nil {
		return nil, fmt.Errorf("evaluate: %w", err)
	}
	acc, err := Accuracy(target, probs)
	if err != nil {
		return nil, fmt.Errorf("evaluate: %w", err)
	}
	predicted, err := PredictClasses(probs)
	if err != nil {
		return nil, fmt.Errorf("evaluate: %w", err)
	}

	numCaps := probs.Dim(1)
	rows := make([][]float32, probs.Dim(0))
	for b := range rows {
		rows[b] = append([]float32(nil), probs.Data[b*numCaps:(b+1)*numCaps]...)
	}
	return &EvalMetrics{
		Loss:          loss,
		Accuracy:      acc,
		Predicted:     predicted,
		Probabilities: rows,
		Iterations:    res.Iterations,
		Elapsed:       time.Since(start),
	}, nil
}
