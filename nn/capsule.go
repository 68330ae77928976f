package nn

import (
	"fmt"
	"math/rand"

	"github.com/openfluke/capsnet/pods"
)

// CapsuleLayer is an upper capsule layer fed by dynamic routing.
//
// Construction is two-phase: NewCapsuleLayer fixes C, D_c and the routing
// iteration count; Configure (or SetWeights) fixes P and D_p and allocates
// the transform weights (P, C, D_c, D_p). The weight shape never changes
// afterwards. Forward only reads the weights, so concurrent Forward calls
// are safe as long as Configure/SetWeights are not called at the same time.
type CapsuleLayer struct {
	config CapsuleConfig

	lowerCaps int // P
	lowerDim  int // D_p
	weights   pods.Tensor[float32]

	// Observer, if set, is notified after every routing iteration.
	Observer RoutingObserver
}

// NewCapsuleLayer validates cfg and returns an unconfigured layer.
func NewCapsuleLayer(cfg CapsuleConfig) (*CapsuleLayer, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if cfg.InitStdDev == 0 {
		cfg.InitStdDev = defaultInitStdDev
	}
	return &CapsuleLayer{config: cfg}, nil
}

func (l *CapsuleLayer) Config() CapsuleConfig { return l.config }

// Configured reports whether the transform weights have been allocated.
func (l *CapsuleLayer) Configured() bool { return l.weights.Data != nil }

// InputShape returns (P, D_p), or zeros before Configure.
func (l *CapsuleLayer) InputShape() (lowerCaps, lowerDim int) { return l.lowerCaps, l.lowerDim }

// Configure allocates TransformWeights for lowerCaps capsules of lowerDim
// dimensions, drawn from N(0, InitStdDev) with rng. Calling it again with
// the same shape is a no-op; a different shape is a configuration error.
func (l *CapsuleLayer) Configure(lowerCaps, lowerDim int, rng *rand.Rand) error {
	if lowerCaps <= 0 {
		return &ConfigError{Field: "lower_caps", Value: lowerCaps, Reason: "must be positive"}
	}
	if lowerDim <= 0 {
		return &ConfigError{Field: "lower_dim", Value: lowerDim, Reason: "must be positive"}
	}
	if l.Configured() {
		if lowerCaps != l.lowerCaps || lowerDim != l.lowerDim {
			return &ConfigError{
				Field:  "lower_caps",
				Value:  lowerCaps,
				Reason: fmt.Sprintf("layer already built for (%d, %d) lower capsules", l.lowerCaps, l.lowerDim),
			}
		}
		return nil
	}
	if rng == nil {
		return &ConfigError{Field: "rng", Reason: "a seeded *rand.Rand is required"}
	}

	w := pods.NewTensor[float32](lowerCaps, l.config.NumCaps, l.config.DimCaps, lowerDim)
	for i := range w.Data {
		w.Data[i] = float32(rng.NormFloat64()) * l.config.InitStdDev
	}
	l.lowerCaps, l.lowerDim, l.weights = lowerCaps, lowerDim, w
	return nil
}

// SetWeights installs a copy of w as the transform weights. An unconfigured
// layer takes P and D_p from w; a configured one requires the same shape.
func (l *CapsuleLayer) SetWeights(w pods.Tensor[float32]) error {
	if l.Configured() {
		if err := checkShape("set weights", w.Shape, l.weights.Shape...); err != nil {
			return err
		}
	} else {
		if err := checkShape("set weights", w.Shape, -1, l.config.NumCaps, l.config.DimCaps, -1); err != nil {
			return err
		}
		if w.Shape[0] <= 0 || w.Shape[3] <= 0 {
			return &ConfigError{Field: "lower_caps", Value: w.Shape[0], Reason: "weights must have positive lower capsule axes"}
		}
		l.lowerCaps, l.lowerDim = w.Shape[0], w.Shape[3]
	}
	l.weights = w.Clone()
	return nil
}

// Weights returns a copy of the (P, C, D_c, D_p) transform weights.
func (l *CapsuleLayer) Weights() pods.Tensor[float32] { return l.weights.Clone() }

// ParamCount is the number of transform weights (zero before Configure).
func (l *CapsuleLayer) ParamCount() int { return l.weights.Size() }

// Predict computes the prediction vectors û[b,p,c] = W[p,c] · u[b,p] for
// lower capsules of shape (batch, P, D_p). The result is (batch, P, C, D_c).
func (l *CapsuleLayer) Predict(lower pods.Tensor[float32]) (pods.Tensor[float32], error) {
	if err := l.checkInput(lower); err != nil {
		return pods.Tensor[float32]{}, err
	}
	batch := lower.Dim(0)
	numCaps, dimCaps := l.config.NumCaps, l.config.DimCaps
	block := dimCaps * l.lowerDim

	pred := pods.NewTensor[float32](batch, l.lowerCaps, numCaps, dimCaps)
	for b := 0; b < batch; b++ {
		for p := 0; p < l.lowerCaps; p++ {
			uOff := lower.Offset(b, p)
			u := lower.Data[uOff : uOff+l.lowerDim]
			for c := 0; c < numCaps; c++ {
				wOff := l.weights.Offset(p, c)
				yOff := pred.Offset(b, p, c)
				if err := pods.GEMV(l.weights.Data[wOff:wOff+block], dimCaps, l.lowerDim, u, pred.Data[yOff:yOff+dimCaps]); err != nil {
					return pods.Tensor[float32]{}, fmt.Errorf("predict (%d, %d): %w", p, c, err)
				}
			}
		}
	}
	return pred, nil
}

// Forward maps lower capsules (batch, P, D_p) to upper capsules (batch, C, D_c).
func (l *CapsuleLayer) Forward(lower pods.Tensor[float32]) (pods.Tensor[float32], error) {
	res, err := l.ForwardRouting(lower)
	if err != nil {
		return pods.Tensor[float32]{}, err
	}
	return res.Upper, nil
}

// ForwardRouting is Forward that also returns the final coupling coefficients and logits.
func (l *CapsuleLayer) ForwardRouting(lower pods.Tensor[float32]) (*RoutingResult, error) {
	pred, err := l.Predict(lower)
	if err != nil {
		return nil, err
	}
	return Route(pred, l.config.RoutingIter, l.Observer)
}

func (l *CapsuleLayer) checkInput(lower pods.Tensor[float32]) error {
	if !l.Configured() {
		return &ConfigError{Field: "lower_caps", Value: l.lowerCaps, Reason: "layer is not configured"}
	}
	return checkShape("forward", lower.Shape, -1, l.lowerCaps, l.lowerDim)
}
