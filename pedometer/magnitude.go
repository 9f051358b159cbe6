// Package pedometer turns a stream of triaxial accelerometer samples into a
// daily step count using integer-only filtering and pulse validation.
package pedometer

// Sample is one raw triaxial accelerometer reading in sensor counts.
// The estimator is tuned for 1 g ≈ 16384 counts.
type Sample struct {
	X, Y, Z int32
}

// Magnitude approximates the Euclidean norm of s without a square root and
// quantizes it to 8 bits.
func Magnitude(s Sample) uint8 {
	a := abs(s.X)
	b := abs(s.Y)
	c := abs(s.Z)

	// Order a >= b >= c
	if a < b {
		a, b = b, a
	}
	if b < c {
		b, c = c, b
	}
	if a < b {
		a, b = b, a
	}

	// alpha = 15/16, beta = 3/8
	m := a + (15*b)>>4 + (3*c)>>3
	if m > 0xffff {
		m = 0xffff
	}
	return uint8(m >> 8)
}

func abs(v int32) uint64 {
	w := int64(v)
	if w < 0 {
		w = -w
	}
	return uint64(w)
}
