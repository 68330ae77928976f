package nn

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/openfluke/capsnet/pods"
)

func norm64(v []float32) float64 {
	var s float64
	for _, x := range v {
		s += float64(x) * float64(x)
	}
	return math.Sqrt(s)
}

func cosine64(a, b []float32) float64 {
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot / (norm64(a) * norm64(b))
}

// TestSquashBoundedAndCollinear checks 1000 random vectors of varying
// dimension and magnitude, plus the zero vector and near-overflow vectors.
func TestSquashBoundedAndCollinear(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	vectors := [][]float32{
		{0},
		{0, 0, 0, 0},
		{math.MaxFloat32, math.MaxFloat32},
		{-3e38, 1e38, 2e38, -1e38},
	}
	for len(vectors) < 1000 {
		dim := 1 + rng.Intn(32)
		scale := math.Pow(10, -3+rng.Float64()*33)
		v := make([]float32, dim)
		for i := range v {
			v[i] = float32(rng.NormFloat64() * scale)
		}
		vectors = append(vectors, v)
	}

	for i, v := range vectors {
		out, err := Squash(pods.NewTensorFromSlice(v, len(v)))
		if err != nil {
			t.Fatalf("vector %d: %v", i, err)
		}
		if !AllFinite(out.Data) {
			t.Fatalf("vector %d: non-finite output %v", i, out.Data)
		}
		n := norm64(out.Data)
		if n < 0 || n >= 1 {
			t.Fatalf("vector %d: ‖squash(v)‖ = %.9f, want [0, 1)", i, n)
		}
		if norm64(v) == 0 {
			if n != 0 {
				t.Fatalf("vector %d: squash(0) should be 0, got %v", i, out.Data)
			}
			continue
		}
		if c := cosine64(v, out.Data); math.Abs(c-1) > 1e-5 {
			t.Fatalf("vector %d: cosine similarity %.8f, want ≈ 1", i, c)
		}
	}
}

func TestSquashMatchesFormula(t *testing.T) {
	for _, length := range []float64{0.01, 0.5, 1, 2, 10} {
		v := []float32{float32(length * 0.6), float32(length * 0.8)}
		out, err := Squash(pods.NewTensorFromSlice(v, 1, 2))
		if err != nil {
			t.Fatalf("squash: %v", err)
		}
		sq := length * length
		want := sq / (1 + sq) * length / math.Sqrt(sq+Epsilon)
		if got := norm64(out.Data); math.Abs(got-want) > 1e-6 {
			t.Errorf("length %.2f: got ‖squash‖=%.7f, want %.7f", length, got, want)
		}
	}
}

func TestSquashAppliesPerVector(t *testing.T) {
	in := pods.NewTensorFromSlice([]float32{3, 4, 0, 0, 1, 0}, 3, 2)
	out, err := Squash(in)
	if err != nil {
		t.Fatalf("squash: %v", err)
	}
	if len(out.Shape) != 2 || out.Shape[0] != 3 || out.Shape[1] != 2 {
		t.Fatalf("expected shape [3 2], got %v", out.Shape)
	}
	if out.At(1, 0) != 0 || out.At(1, 1) != 0 {
		t.Errorf("zero row should stay zero, got %v", out.Data[2:4])
	}
	if out.At(2, 1) != 0 || out.At(2, 0) <= 0 {
		t.Errorf("direction of (1, 0) not preserved, got %v", out.Data[4:6])
	}
}

func TestSafeNormKeepDims(t *testing.T) {
	in := pods.NewTensorFromSlice([]float32{3, 4, 0, 0, 6, 8, 0, 1}, 2, 2, 2)

	dropped, err := SafeNorm(in, false)
	if err != nil {
		t.Fatalf("safe norm: %v", err)
	}
	if len(dropped.Shape) != 2 || dropped.Shape[0] != 2 || dropped.Shape[1] != 2 {
		t.Fatalf("expected shape [2 2], got %v", dropped.Shape)
	}
	kept, err := SafeNorm(in, true)
	if err != nil {
		t.Fatalf("safe norm: %v", err)
	}
	if len(kept.Shape) != 3 || kept.Shape[2] != 1 {
		t.Fatalf("expected shape [2 2 1], got %v", kept.Shape)
	}

	want := []float32{5, float32(math.Sqrt(Epsilon)), 10, 1}
	if d := MaxAbsDiff(dropped.Data, want); d > 1e-6 {
		t.Errorf("got %v, want %v", dropped.Data, want)
	}
	if MaxAbsDiff(dropped.Data, kept.Data) != 0 {
		t.Errorf("keepDims must not change values")
	}
}

func TestSquashRejectsScalar(t *testing.T) {
	_, err := Squash(pods.Tensor[float32]{})
	if !errors.Is(err, ErrShapeMismatch) {
		t.Fatalf("expected ErrShapeMismatch, got %v", err)
	}
}
