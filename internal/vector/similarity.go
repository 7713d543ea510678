package vector

import "math"

// InnerProduct returns the inner product of two vectors, or 0 when lengths differ.
func InnerProduct(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot
}

// L2Norm returns the L2 norm of a vector.
func L2Norm(x []float32) float64 {
	var sum float64
	for _, v := range x {
		sum += float64(v) * float64(v)
	}
	return math.Sqrt(sum)
}

// L2Distance returns the Euclidean distance between a and b, or +Inf when lengths differ.
func L2Distance(a, b []float32) float64 {
	if len(a) != len(b) {
		return math.Inf(1)
	}
	return math.Sqrt(squaredL2(a, b))
}

// Cosine returns the cosine similarity of a and b in [-1, 1]. Zero vectors or
// mismatched lengths yield 0.
func Cosine(a, b []float32) float64 {
	na, nb := L2Norm(a), L2Norm(b)
	if na == 0 || nb == 0 || len(a) != len(b) {
		return 0
	}
	c := InnerProduct(a, b) / (na * nb)
	return math.Max(-1, math.Min(1, c))
}

// Mean returns the componentwise mean of vectors, or nil if there are none or
// their lengths differ.
func Mean(vectors [][]float32) []float32 {
	if len(vectors) == 0 {
		return nil
	}
	dim := len(vectors[0])
	sum := make([]float64, dim)
	for _, v := range vectors {
		if len(v) != dim {
			return nil
		}
		for i, x := range v {
			sum[i] += float64(x)
		}
	}
	out := make([]float32, dim)
	n := float64(len(vectors))
	for i, s := range sum {
		out[i] = float32(s / n)
	}
	return out
}
