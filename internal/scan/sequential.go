package scan

import "math"

// Sequential returns the inclusive prefix sum of in, computed one element at
// a time. It is the reference the parallel engine is checked against.
func Sequential[T Element](in []T) []T {
	out := make([]T, len(in))
	if len(in) == 0 {
		return out
	}
	out[0] = in[0]
	for i := 1; i < len(in); i++ {
		out[i] = out[i-1] + in[i]
	}
	return out
}

// SequentialInPlace replaces data with its inclusive prefix sum.
func SequentialInPlace[T Element](data []T) {
	for i := 1; i < len(data); i++ {
		data[i] += data[i-1]
	}
}

// Mismatch returns the first index where got and want differ by more than
// atol + rtol*|want|, or -1 when they agree. Slices of different length
// mismatch at the shorter length.
func Mismatch[T Element](got, want []T, rtol, atol float64) int {
	n := min(len(got), len(want))
	for i := 0; i < n; i++ {
		g, w := float64(got[i]), float64(want[i])
		if math.Abs(g-w) > atol+rtol*math.Abs(w) {
			return i
		}
	}
	if len(got) != len(want) {
		return n
	}
	return -1
}
