package main

import (
	"fmt"
	"math/rand"

	"github.com/openfluke/capsnet/nn"
	"github.com/openfluke/capsnet/pods"
)

type forwardResult struct {
	layer   *nn.CapsuleLayer
	metrics *nn.EvalMetrics
	targets []int
}

// forwardScenario draws weights from seed and squashed lower capsules from
// seed+1, then scores the routed output against targets b mod C.
func forwardScenario(f scenarioFlags) (*forwardResult, error) {
	layer, err := nn.NewCapsuleLayer(f.config())
	if err != nil {
		return nil, err
	}
	if f.verbose {
		layer.Observer = &nn.ConsoleObserver{Verbose: true}
	}
	if err := layer.Configure(f.lowerCaps, f.lowerDim, rand.New(rand.NewSource(f.seed))); err != nil {
		return nil, err
	}

	rng := rand.New(rand.NewSource(f.seed + 1))
	raw := pods.NewTensor[float32](f.batch, f.lowerCaps, f.lowerDim)
	for i := range raw.Data {
		raw.Data[i] = float32(rng.NormFloat64())
	}
	lower, err := nn.Squash(raw)
	if err != nil {
		return nil, err
	}

	target := pods.NewTensor[float32](f.batch, f.numCaps)
	targets := make([]int, f.batch)
	for b := range targets {
		targets[b] = b % f.numCaps
		target.Set(1, b, targets[b])
	}

	metrics, err := nn.Evaluate(layer, lower, target, nn.DefaultMarginConfig())
	if err != nil {
		return nil, err
	}
	return &forwardResult{layer: layer, metrics: metrics, targets: targets}, nil
}

// agreeingPredictions builds (batch, P, C, D_c) votes where every lower
// capsule votes for class 0 along one shared direction per sample, while
// the votes for the other classes cancel pairwise.
func agreeingPredictions(rng *rand.Rand, batch, lowerCaps, numCaps, dimCaps int) pods.Tensor[float32] {
	pred := pods.NewTensor[float32](batch, lowerCaps, numCaps, dimCaps)
	for b := 0; b < batch; b++ {
		shared := unitVector(rng, dimCaps)
		noise := make([][]float32, numCaps)
		for c := 1; c < numCaps; c++ {
			noise[c] = unitVector(rng, dimCaps)
		}
		for p := 0; p < lowerCaps; p++ {
			sign := float32(1)
			if p%2 == 1 {
				sign = -1
			}
			for d := 0; d < dimCaps; d++ {
				pred.Set(0.5*shared[d], b, p, 0, d)
				for c := 1; c < numCaps; c++ {
					pred.Set(0.5*sign*noise[c][d], b, p, c, d)
				}
			}
		}
	}
	return pred
}

func unitVector(rng *rand.Rand, n int) []float32 {
	v := make([]float32, n)
	for i := range v {
		v[i] = float32(rng.NormFloat64())
	}
	norm, err := pods.SafeNormRows(v, n)
	if err != nil || norm[0] == 0 {
		v[0] = 1
		return v
	}
	for i := range v {
		v[i] /= norm[0]
	}
	return v
}

// sweepScenario routes one agreeing prediction tensor for every count and
// reports the mean length of the class-0 capsule.
func sweepScenario(f scenarioFlags, counts []int) (map[int]float32, error) {
	if f.lowerCaps <= 0 || f.numCaps <= 0 || f.dimCaps <= 0 {
		return nil, fmt.Errorf("sweep needs positive lower-caps, caps and dim")
	}
	pred := agreeingPredictions(rand.New(rand.NewSource(f.seed)), f.batch, f.lowerCaps, f.numCaps, f.dimCaps)

	var obs nn.RoutingObserver
	if f.verbose {
		obs = &nn.ConsoleObserver{}
	}
	out := make(map[int]float32, len(counts))
	for _, n := range counts {
		res, err := nn.Route(pred, n, obs)
		if err != nil {
			return nil, fmt.Errorf("route %d iterations: %w", n, err)
		}
		probs, err := nn.ClassProbabilities(res.Upper)
		if err != nil {
			return nil, err
		}
		var sum float32
		for b := 0; b < f.batch; b++ {
			sum += probs.At(b, 0)
		}
		out[n] = sum / float32(f.batch)
	}
	return out, nil
}
