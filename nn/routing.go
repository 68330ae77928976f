package nn

import (
	"fmt"

	"github.com/openfluke/capsnet/pods"
)

// RoutingState is the accumulator threaded through the routing fold. Logits
// (batch, P, C) start at zero and only ever grow by agreement terms.
type RoutingState struct {
	Logits    pods.Tensor[float32]
	Iteration int // agreement updates applied so far
}

// NewRoutingState returns all-zero logits, i.e. uniform coupling.
func NewRoutingState(batch, lowerCaps, numCaps int) RoutingState {
	return RoutingState{Logits: pods.NewTensor[float32](batch, lowerCaps, numCaps)}
}

// Consensus is the upper layer implied by one set of routing logits.
type Consensus struct {
	Coupling pods.Tensor[float32] // (batch, P, C)
	Upper    pods.Tensor[float32] // (batch, C, D_c), squashed
}

// RoutingResult is the outcome of a full routing pass.
type RoutingResult struct {
	Upper      pods.Tensor[float32] // (batch, C, D_c)
	Coupling   pods.Tensor[float32] // (batch, P, C), from the final logits
	Logits     pods.Tensor[float32] // (batch, P, C) after the last update
	Iterations int
}

// ComputeConsensus applies softmax to logits, sums the predictions
// (batch, P, C, D_c) weighted by the coupling over P, and squashes the sums.
func ComputeConsensus(pred, logits pods.Tensor[float32]) (Consensus, error) {
	if err := checkShape("consensus", pred.Shape, -1, -1, -1, -1); err != nil {
		return Consensus{}, err
	}
	batch, lowerCaps, numCaps, dimCaps := pred.Shape[0], pred.Shape[1], pred.Shape[2], pred.Shape[3]
	if err := checkShape("consensus", logits.Shape, batch, lowerCaps, numCaps); err != nil {
		return Consensus{}, err
	}

	coupling, err := Coupling(logits)
	if err != nil {
		return Consensus{}, err
	}

	sum := pods.NewTensor[float32](batch, numCaps, dimCaps)
	for b := 0; b < batch; b++ {
		for p := 0; p < lowerCaps; p++ {
			for c := 0; c < numCaps; c++ {
				off := pred.Offset(b, p, c)
				sOff := sum.Offset(b, c)
				pods.AXPY(coupling.At(b, p, c), pred.Data[off:off+dimCaps], sum.Data[sOff:sOff+dimCaps])
			}
		}
	}

	upper, err := Squash(sum)
	if err != nil {
		return Consensus{}, err
	}
	return Consensus{Coupling: coupling, Upper: upper}, nil
}

// Agreement returns û[b,p,c] · v[b,c] for every (b, p, c).
func Agreement(pred, upper pods.Tensor[float32]) (pods.Tensor[float32], error) {
	if err := checkShape("agreement", pred.Shape, -1, -1, -1, -1); err != nil {
		return pods.Tensor[float32]{}, err
	}
	batch, lowerCaps, numCaps, dimCaps := pred.Shape[0], pred.Shape[1], pred.Shape[2], pred.Shape[3]
	if err := checkShape("agreement", upper.Shape, batch, numCaps, dimCaps); err != nil {
		return pods.Tensor[float32]{}, err
	}

	agreement := pods.NewTensor[float32](batch, lowerCaps, numCaps)
	for b := 0; b < batch; b++ {
		for p := 0; p < lowerCaps; p++ {
			for c := 0; c < numCaps; c++ {
				off := pred.Offset(b, p, c)
				vOff := upper.Offset(b, c)
				agreement.Set(pods.Dot(pred.Data[off:off+dimCaps], upper.Data[vOff:vOff+dimCaps]), b, p, c)
			}
		}
	}
	return agreement, nil
}

// RoutingStep applies one agreement update. It returns the next state and
// the tentative consensus computed from the logits before the update. The
// input state is not modified.
func RoutingStep(pred pods.Tensor[float32], state RoutingState) (RoutingState, Consensus, error) {
	cons, err := ComputeConsensus(pred, state.Logits)
	if err != nil {
		return state, Consensus{}, err
	}
	agreement, err := Agreement(pred, cons.Upper)
	if err != nil {
		return state, Consensus{}, err
	}
	next := state.Logits.Clone()
	pods.AXPY(1, agreement.Data, next.Data)
	return RoutingState{Logits: next, Iteration: state.Iteration + 1}, cons, nil
}

// Route runs exactly iterations agreement updates on the predictions
// (batch, P, C, D_c) and then derives the output from the fully updated
// logits with one more consensus pass. With iterations = 0 the output is a
// single pass with uniform coupling. obs may be nil.
func Route(pred pods.Tensor[float32], iterations int, obs RoutingObserver) (*RoutingResult, error) {
	if iterations < 0 {
		return nil, &ConfigError{Field: "routing_iter", Value: iterations, Reason: "must not be negative"}
	}
	if err := checkShape("route", pred.Shape, -1, -1, -1, -1); err != nil {
		return nil, err
	}

	state := NewRoutingState(pred.Shape[0], pred.Shape[1], pred.Shape[2])
	for state.Iteration < iterations {
		next, cons, err := RoutingStep(pred, state)
		if err != nil {
			return nil, fmt.Errorf("routing iteration %d: %w", state.Iteration+1, err)
		}
		if obs != nil {
			obs.OnIteration(newRoutingEvent(next.Iteration, cons))
		}
		state = next
	}

	final, err := ComputeConsensus(pred, state.Logits)
	if err != nil {
		return nil, fmt.Errorf("final routing pass: %w", err)
	}
	return &RoutingResult{
		Upper:      final.Upper,
		Coupling:   final.Coupling,
		Logits:     state.Logits,
		Iterations: state.Iteration,
	}, nil
}
