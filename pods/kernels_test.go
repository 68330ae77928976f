package pods

import (
	"errors"
	"math"
	"testing"

	"github.com/chewxy/math32"
)

func TestSoftmaxRows(t *testing.T) {
	logits := []float32{1, 2, 3, 0, 0, 0, -50, 10, 1000}
	probs, err := SoftmaxRows(logits, 3)
	if err != nil {
		t.Fatalf("softmax: %v", err)
	}
	for r := 0; r < 3; r++ {
		var sum float32
		for _, p := range probs[r*3 : r*3+3] {
			if p < 0 || p > 1 || math32.IsNaN(p) {
				t.Fatalf("row %d: probability out of range: %v", r, probs[r*3:r*3+3])
			}
			sum += p
		}
		if math32.Abs(sum-1) > 1e-6 {
			t.Errorf("row %d: softmax should sum to 1.0, got %f", r, sum)
		}
	}
	for i := 3; i < 6; i++ {
		if math32.Abs(probs[i]-1.0/3) > 1e-6 {
			t.Errorf("zero logits should give uniform rows, got %v", probs[3:6])
		}
	}
	if probs[0] >= probs[1] || probs[1] >= probs[2] {
		t.Errorf("softmax should preserve ordering, got %v", probs[:3])
	}
}

func TestSoftmaxRowsBadShape(t *testing.T) {
	if _, err := SoftmaxRows([]float32{1, 2, 3}, 2); !errors.Is(err, ErrBadShape) {
		t.Fatalf("expected ErrBadShape, got %v", err)
	}
}

func TestSquashRowsKnownValue(t *testing.T) {
	out, err := SquashRows([]float32{3, 4, 0, 0}, 2)
	if err != nil {
		t.Fatalf("squash: %v", err)
	}
	// ‖(3,4)‖ = 5 -> factor 25/26, unit (0.6, 0.8)
	factor := 25.0 / 26.0 * 5 / math.Sqrt(25+Epsilon)
	want := []float32{float32(3 * factor / 5), float32(4 * factor / 5), 0, 0}
	for i := range want {
		if math32.Abs(out[i]-want[i]) > 1e-6 {
			t.Errorf("index %d: got %f, want %f", i, out[i], want[i])
		}
	}
}

func TestSquashRowsHugeInputStaysBelowOne(t *testing.T) {
	in := []float32{math.MaxFloat32, -math.MaxFloat32, math.MaxFloat32}
	out, err := SquashRows(in, 3)
	if err != nil {
		t.Fatalf("squash: %v", err)
	}
	var sq float64
	for _, v := range out {
		if math32.IsNaN(v) || math32.IsInf(v, 0) {
			t.Fatalf("non-finite output %v", out)
		}
		sq += float64(v) * float64(v)
	}
	if n := math.Sqrt(sq); n >= 1 {
		t.Errorf("norm must stay below 1, got %.9f", n)
	}
}

func TestSafeNormRows(t *testing.T) {
	out, err := SafeNormRows([]float32{3, 4, 0, 0}, 2)
	if err != nil {
		t.Fatalf("safe norm: %v", err)
	}
	if math32.Abs(out[0]-5) > 1e-6 {
		t.Errorf("expected 5, got %f", out[0])
	}
	if want := float32(math.Sqrt(Epsilon)); math32.Abs(out[1]-want) > 1e-9 {
		t.Errorf("zero vector norm: expected %g, got %g", want, out[1])
	}
}

func TestGEMV(t *testing.T) {
	a := []float32{
		1, 2, 3,
		0, 1, 0,
	}
	y := make([]float32, 2)
	if err := GEMV(a, 2, 3, []float32{1, 1, 2}, y); err != nil {
		t.Fatalf("gemv: %v", err)
	}
	if y[0] != 9 || y[1] != 1 {
		t.Errorf("expected [9 1], got %v", y)
	}
	if err := GEMV(a, 3, 3, []float32{1, 1, 2}, y); !errors.Is(err, ErrBadShape) {
		t.Errorf("expected ErrBadShape, got %v", err)
	}
}

func TestDotAndAXPY(t *testing.T) {
	x := []float32{1, 2, 3}
	y := []float32{4, 5, 6}
	if d := Dot(x, y); d != 32 {
		t.Errorf("expected 32, got %f", d)
	}
	AXPY(0.5, x, y)
	want := []float32{4.5, 6, 7.5}
	for i := range want {
		if y[i] != want[i] {
			t.Errorf("index %d: got %f, want %f", i, y[i], want[i])
		}
	}
}

func TestReduceRows(t *testing.T) {
	in := []float32{1, 5, -2, 3, 3, 3}
	cases := []struct {
		kind ReduceKind
		want []float32
	}{
		{ReduceSum, []float32{4, 9}},
		{ReduceMax, []float32{5, 3}},
		{ReduceMin, []float32{-2, 3}},
	}
	for _, c := range cases {
		got, err := ReduceRows(in, 3, c.kind)
		if err != nil {
			t.Fatalf("reduce %d: %v", c.kind, err)
		}
		for i := range c.want {
			if got[i] != c.want[i] {
				t.Errorf("reduce %d: got %v, want %v", c.kind, got, c.want)
			}
		}
	}
	if _, err := ReduceRows(in, 3, ReduceKind(99)); !errors.Is(err, ErrUnknownReduce) {
		t.Errorf("expected ErrUnknownReduce, got %v", err)
	}
}

func TestArgmaxRowsBreaksTiesLow(t *testing.T) {
	got, err := ArgmaxRows([]float32{0.2, 0.7, 0.7, 1, 1, 1}, 3)
	if err != nil {
		t.Fatalf("argmax: %v", err)
	}
	if got[0] != 1 || got[1] != 0 {
		t.Errorf("expected [1 0], got %v", got)
	}
}
