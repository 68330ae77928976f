package nn

import (
	"github.com/chewxy/math32"
	"github.com/openfluke/capsnet/pods"
)

// MarginTerms returns the per-class margin loss terms (batch, C):
//
//	T·max(0, m+ − p)² + λ·(1−T)·max(0, p − m−)²
func MarginTerms(target, pred pods.Tensor[float32], cfg MarginConfig) (pods.Tensor[float32], error) {
	if err := checkClassShapes("margin loss", target, pred); err != nil {
		return pods.Tensor[float32]{}, err
	}
	terms := pods.NewTensor[float32](pred.Shape...)
	for i, p := range pred.Data {
		t := target.Data[i]
		present := math32.Max(0, cfg.MPlus-p)
		absent := math32.Max(0, p-cfg.MMinus)
		terms.Data[i] = t*present*present + cfg.Lambda*(1-t)*absent*absent
	}
	return terms, nil
}

// MarginLoss is the batch mean of the per-sample sum of MarginTerms.
func MarginLoss(target, pred pods.Tensor[float32], cfg MarginConfig) (float32, error) {
	terms, err := MarginTerms(target, pred, cfg)
	if err != nil {
		return 0, err
	}
	perSample, err := pods.ReduceRows(terms.Data, terms.Dim(1), pods.ReduceSum)
	if err != nil {
		return 0, err
	}
	var total float64
	for _, v := range perSample {
		total += float64(v)
	}
	return float32(total / float64(len(perSample))), nil
}

// Accuracy is the fraction of samples whose predicted argmax class equals
// the target argmax class. Ties resolve to the lowest index on both sides.
func Accuracy(target, pred pods.Tensor[float32]) (float32, error) {
	if err := checkClassShapes("accuracy", target, pred); err != nil {
		return 0, err
	}
	numClasses := pred.Dim(1)
	want, err := pods.ArgmaxRows(target.Data, numClasses)
	if err != nil {
		return 0, err
	}
	got, err := pods.ArgmaxRows(pred.Data, numClasses)
	if err != nil {
		return 0, err
	}
	correct := 0
	for i := range got {
		if got[i] == want[i] {
			correct++
		}
	}
	return float32(correct) / float32(len(got)), nil
}

// checkClassShapes requires two identical, non-empty (batch, C) tensors.
func checkClassShapes(op string, target, pred pods.Tensor[float32]) error {
	if err := checkShape(op, pred.Shape, -1, -1); err != nil {
		return err
	}
	if err := checkShape(op, target.Shape, pred.Shape...); err != nil {
		return err
	}
	if pred.Shape[0] == 0 || pred.Shape[1] == 0 {
		return &ShapeError{Op: op, Want: []int{-1, -1}, Got: pred.Shape}
	}
	return nil
}
