package nn

import "github.com/openfluke/capsnet/pods"

// Epsilon is the fixed stabiliser added under every square root.
const Epsilon = pods.Epsilon

const defaultInitStdDev = 0.1

// CapsuleConfig holds everything fixed at construction of a capsule layer.
// The lower capsule count and dimension are supplied later by Configure.
type CapsuleConfig struct {
	NumCaps     int     `json:"num_caps"`     // C: number of upper capsules
	DimCaps     int     `json:"dim_caps"`     // D_c: length of each upper capsule vector
	RoutingIter int     `json:"routing_iter"` // agreement updates per forward pass; 0 = one uniform pass
	InitStdDev  float32 `json:"init_stddev"`  // stddev of N(0, σ) weight init; 0 means 0.1
}

// DefaultCapsuleConfig returns the digit-capsule setup: 10 capsules of 16 dims, 3 routing iterations.
func DefaultCapsuleConfig() CapsuleConfig {
	return CapsuleConfig{
		NumCaps:     10,
		DimCaps:     16,
		RoutingIter: 3,
		InitStdDev:  defaultInitStdDev,
	}
}

// MarginConfig holds the margin loss constants.
type MarginConfig struct {
	MPlus  float32 `json:"m_plus"`  // present classes are pushed above this length
	MMinus float32 `json:"m_minus"` // absent classes are pushed below this length
	Lambda float32 `json:"lambda"`  // down-weights the absent-class term
}

// DefaultMarginConfig returns m+ = 0.9, m- = 0.1, λ = 0.5.
func DefaultMarginConfig() MarginConfig {
	return MarginConfig{MPlus: 0.9, MMinus: 0.1, Lambda: 0.5}
}

func (c CapsuleConfig) validate() error {
	if c.NumCaps <= 0 {
		return &ConfigError{Field: "num_caps", Value: c.NumCaps, Reason: "must be positive"}
	}
	if c.DimCaps <= 0 {
		return &ConfigError{Field: "dim_caps", Value: c.DimCaps, Reason: "must be positive"}
	}
	if c.RoutingIter < 0 {
		return &ConfigError{Field: "routing_iter", Value: c.RoutingIter, Reason: "must not be negative"}
	}
	if c.InitStdDev < 0 {
		return &ConfigError{Field: "init_stddev", Value: int(c.InitStdDev), Reason: "must not be negative"}
	}
	return nil
}
