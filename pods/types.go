package pods

// Tensor is a dense row-major array. Capsule layers use Tensor[float32]
// throughout; the last axis is always the contiguous one.
type Tensor[T ~float32 | ~float64] struct {
	Data    []T
	Shape   []int // row-major
	Strides []int
}

func NewTensor[T ~float32 | ~float64](shape ...int) Tensor[T] {
	n := 1
	for _, d := range shape {
		n *= d
	}
	return Tensor[T]{Data: make([]T, n), Shape: cloneInts(shape), Strides: stridesFor(shape)}
}

// NewTensorFromSlice wraps data without copying. It panics if the element
// count does not match the shape.
func NewTensorFromSlice[T ~float32 | ~float64](data []T, shape ...int) Tensor[T] {
	if volume(shape) != len(data) {
		panic(ErrBadShape)
	}
	return Tensor[T]{Data: data, Shape: cloneInts(shape), Strides: stridesFor(shape)}
}

func (t Tensor[T]) Size() int { return len(t.Data) }

func (t Tensor[T]) Rank() int { return len(t.Shape) }

// Dim returns the size of axis i; negative i counts from the end.
func (t Tensor[T]) Dim(i int) int {
	if i < 0 {
		i += len(t.Shape)
	}
	return t.Shape[i]
}

func (t Tensor[T]) Clone() Tensor[T] {
	data := make([]T, len(t.Data))
	copy(data, t.Data)
	return Tensor[T]{Data: data, Shape: cloneInts(t.Shape), Strides: cloneInts(t.Strides)}
}

// Reshape returns a view with a new shape, or nil when the sizes differ.
func (t Tensor[T]) Reshape(shape ...int) *Tensor[T] {
	if volume(shape) != len(t.Data) {
		return nil
	}
	return &Tensor[T]{Data: t.Data, Shape: cloneInts(shape), Strides: stridesFor(shape)}
}

// Offset maps a full index to a position in Data.
func (t Tensor[T]) Offset(idx ...int) int {
	off := 0
	for i, v := range idx {
		off += v * t.Strides[i]
	}
	return off
}

func (t Tensor[T]) At(idx ...int) T { return t.Data[t.Offset(idx...)] }

func (t Tensor[T]) Set(v T, idx ...int) { t.Data[t.Offset(idx...)] = v }

// SameShape reports whether both tensors have identical shapes.
func SameShape[T, U ~float32 | ~float64](a Tensor[T], b Tensor[U]) bool {
	if len(a.Shape) != len(b.Shape) {
		return false
	}
	for i := range a.Shape {
		if a.Shape[i] != b.Shape[i] {
			return false
		}
	}
	return true
}

func stridesFor(shape []int) []int {
	strides := make([]int, len(shape))
	s := 1
	for i := len(shape) - 1; i >= 0; i-- {
		strides[i] = s
		s *= shape[i]
	}
	return strides
}

func volume(shape []int) int {
	n := 1
	for _, d := range shape {
		n *= d
	}
	return n
}

func cloneInts(v []int) []int {
	out := make([]int, len(v))
	copy(out, v)
	return out
}
