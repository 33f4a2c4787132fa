package escape

import (
	"errors"
	"fmt"
	"math"

	"github.com/willbeason/escape-fractal/pkg/transforms"
)

// ErrDomain is returned when the smoothing correction log(log|z|) is
// undefined, which happens when an escape radius below 2 lets |z| <= 1 at
// the escape step.
var ErrDomain = errors.New("smoothing undefined for |z| <= 1")

var invLog2 = 1.0 / math.Ln2

// Result is the outcome of classifying a single point.
type Result struct {
	// Escaped is false if the orbit stayed within the escape radius for all
	// iterations, in which case the point is treated as a member of the set.
	Escaped bool

	// Iterations is the 0-indexed iteration on which |z| first exceeded the
	// escape radius. Only meaningful if Escaped.
	Iterations int

	// Final is z at the escape step.
	Final complex128
}

// Classify iterates z <- z² + c from z = 0 for at most p.MaxIterations()
// steps and reports whether, and when, the orbit escaped.
//
// The comparison is strict: a point landing exactly on the escape radius is
// still inside.
func Classify(c complex128, p Params) Result {
	m := transforms.Mandelbrot{}
	z := complex(0, 0)

	for i := 0; i < p.maxIterations; i++ {
		z = m.Next(z, c)
		if transforms.Modulus(z) > p.escapeRadius {
			return Result{Escaped: true, Iterations: i, Final: z}
		}
	}

	return Result{}
}

// Smooth returns the normalized iteration count
//
//	n + 1 - log(log|z|) / log 2
//
// for an escaped result. It returns ErrDomain if |z| <= 1.
func (r Result) Smooth() (float64, error) {
	abs := transforms.Modulus(r.Final)
	if abs <= 1 {
		return 0, fmt.Errorf("%w: |z|=%g at iteration %d", ErrDomain, abs, r.Iterations)
	}

	return float64(r.Iterations) + 1 - math.Log(math.Log(abs))*invLog2, nil
}

// Stability returns how close c is to being a member of the set: 1.0 for
// members, otherwise the escape iteration normalized by p.MaxIterations().
//
// If smooth, the fractional escape count is used instead of the integer one.
// If clamp, the result is clamped into [0, 1]; otherwise smoothing may
// overshoot slightly and the value is returned unmodified.
func Stability(c complex128, p Params, smooth, clamp bool) (float64, error) {
	r := Classify(c, p)
	if !r.Escaped {
		return 1.0, nil
	}

	count := float64(r.Iterations)
	if smooth {
		var err error
		count, err = r.Smooth()
		if err != nil {
			return 0, err
		}
	}

	score := count / float64(p.maxIterations)
	if clamp {
		score = min(max(score, 0.0), 1.0)
	}

	return score, nil
}
