package escape

import (
	"iter"

	"github.com/willbeason/escape-fractal/pkg/transforms"
)

// Orbit yields (n, z_n) for the orbit of c, starting with z_0 = 0.
//
// The sequence is finite: it ends with the first value outside the escape
// radius, or with z_max if the orbit never escapes. Each call to the
// returned function restarts from z_0.
func Orbit(c complex128, p Params) iter.Seq2[int, complex128] {
	return func(yield func(int, complex128) bool) {
		m := transforms.Mandelbrot{}
		z := complex(0, 0)

		if !yield(0, z) {
			return
		}

		for n := 1; n <= p.maxIterations; n++ {
			z = m.Next(z, c)
			if !yield(n, z) {
				return
			}
			if transforms.Modulus(z) > p.escapeRadius {
				return
			}
		}
	}
}
