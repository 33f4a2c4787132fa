package escape

import (
	"errors"
	"fmt"
	"math"
)

// DefaultEscapeRadius is the classical bailout radius. Any point whose orbit
// leaves the disk of radius 2 diverges.
const DefaultEscapeRadius = 2.0

var ErrInvalidParameters = errors.New("invalid escape parameters")

// Params bounds a single point evaluation. It is immutable once built and is
// safe to share across goroutines.
//
// The zero Params evaluates zero iterations, so every point is reported as a
// member. Use NewParams.
type Params struct {
	maxIterations int
	escapeRadius  float64
}

// NewParams validates and returns evaluation parameters.
func NewParams(maxIterations int, escapeRadius float64) (Params, error) {
	if maxIterations <= 0 {
		return Params{}, fmt.Errorf("%w: max iterations must be positive, got %d", ErrInvalidParameters, maxIterations)
	}
	if math.IsNaN(escapeRadius) || math.IsInf(escapeRadius, 0) || escapeRadius <= 0 {
		return Params{}, fmt.Errorf("%w: escape radius must be positive and finite, got %v", ErrInvalidParameters, escapeRadius)
	}

	return Params{
		maxIterations: maxIterations,
		escapeRadius:  escapeRadius,
	}, nil
}

func (p Params) MaxIterations() int {
	return p.maxIterations
}

func (p Params) EscapeRadius() float64 {
	return p.escapeRadius
}

func (p Params) String() string {
	return fmt.Sprintf("max_iterations=%d escape_radius=%g", p.maxIterations, p.escapeRadius)
}
