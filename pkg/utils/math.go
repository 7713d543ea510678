package utils

import "math"

// NormalizeL2 scales x in place to unit length and returns the length it had.
// A zero vector is left as it is.
func NormalizeL2(x []float32) float64 {
	var sq float64
	for _, v := range x {
		sq += float64(v) * float64(v)
	}
	length := math.Sqrt(sq)
	if length == 0 {
		return 0
	}
	inv := 1 / length
	for i, v := range x {
		x[i] = float32(float64(v) * inv)
	}
	return length
}
