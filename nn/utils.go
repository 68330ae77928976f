package nn

import (
	"github.com/chewxy/math32"
)

// MaxAbsDiff calculates the maximum absolute difference between two slices
func MaxAbsDiff(a, b []float32) float32 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var m float32
	for i := 0; i < n; i++ {
		if d := math32.Abs(a[i] - b[i]); d > m {
			m = d
		}
	}
	return m
}

// AllFinite reports whether v contains no NaN or ±Inf
func AllFinite(v []float32) bool {
	for _, x := range v {
		if math32.IsNaN(x) || math32.IsInf(x, 0) {
			return false
		}
	}
	return true
}

// Max returns the maximum value in a slice
func Max(v []float32) float32 {
	if len(v) == 0 {
		return 0
	}
	m := v[0]
	for _, x := range v {
		if x > m {
			m = x
		}
	}
	return m
}

// Mean returns the mean value of a slice
func Mean(v []float32) float32 {
	if len(v) == 0 {
		return 0
	}
	sum := float32(0)
	for _, x := range v {
		sum += x
	}
	return sum / float32(len(v))
}
