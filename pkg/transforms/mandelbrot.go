package transforms

import "math"

// Mandelbrot is the quadratic map z -> z² + c.
type Mandelbrot struct{}

func (Mandelbrot) Next(z complex128, c complex128) complex128 {
	return z*z + c
}

// Modulus returns |z| computed as sqrt(re² + im²).
//
// cmplx.Abs uses math.Hypot, which can round differently in the last bit;
// escape decisions compare against this exact formula.
func Modulus(z complex128) float64 {
	re, im := real(z), imag(z)
	return math.Sqrt(re*re + im*im)
}
