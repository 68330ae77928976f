package pods

// ReduceKind selects the reduction applied by ReduceRows.
type ReduceKind int

const (
	ReduceSum ReduceKind = iota
	ReduceMax
	ReduceMin
)

// ReduceRows reduces every row of width cols to a single value.
func ReduceRows(in []float32, cols int, kind ReduceKind) ([]float32, error) {
	if cols <= 0 || len(in)%cols != 0 {
		return nil, ErrBadShape
	}
	out := make([]float32, len(in)/cols)
	for r := range out {
		row := in[r*cols : (r+1)*cols]
		switch kind {
		case ReduceSum:
			var s float32
			for _, v := range row {
				s += v
			}
			out[r] = s
		case ReduceMax:
			m := row[0]
			for _, v := range row[1:] {
				if v > m {
					m = v
				}
			}
			out[r] = m
		case ReduceMin:
			m := row[0]
			for _, v := range row[1:] {
				if v < m {
					m = v
				}
			}
			out[r] = m
		default:
			return nil, ErrUnknownReduce
		}
	}
	return out, nil
}

// ArgmaxRows returns the index of the largest value in every row of width
// cols. Ties go to the lowest index.
func ArgmaxRows(in []float32, cols int) ([]int, error) {
	if cols <= 0 || len(in)%cols != 0 {
		return nil, ErrBadShape
	}
	out := make([]int, len(in)/cols)
	for r := range out {
		row := in[r*cols : (r+1)*cols]
		best := 0
		for i, v := range row[1:] {
			if v > row[best] {
				best = i + 1
			}
		}
		out[r] = best
	}
	return out, nil
}
