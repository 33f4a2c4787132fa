package viewport

import (
	"maps"
	"slices"
)

// Landmark is an axis-aligned rectangle of the complex plane worth looking at.
type Landmark struct {
	Xmin, Xmax float64
	Ymin, Ymax float64
}

func (l Landmark) Center() complex128 {
	return complex((l.Xmin+l.Xmax)/2, (l.Ymin+l.Ymax)/2)
}

// Viewport frames the landmark's real extent on a width x height raster.
// The imaginary extent follows from the raster's aspect ratio.
func (l Landmark) Viewport(width, height int) (Viewport, error) {
	return New(width, height, l.Center(), l.Xmax-l.Xmin)
}

// Classic regions of the Mandelbrot set, keyed by name.
var Landmarks = map[string]Landmark{
	// The whole set.
	"full": {Xmin: -2.5, Xmax: 1.0, Ymin: -1.0, Ymax: 1.0},

	// Dense filaments and repeating "seahorse" curls.
	"seahorse-valley": {Xmin: -0.8, Xmax: -0.7, Ymin: 0.05, Ymax: 0.15},

	// Large bulb with trunk-like tendrils.
	"elephant-valley": {Xmin: 0.25, Xmax: 0.35, Ymin: -0.05, Ymax: 0.05},

	// Small copy of the set with tight spiral arms.
	"spiral-minibrot": {Xmin: -0.7435, Xmax: -0.7420, Ymin: 0.1310, Ymax: 0.1325},

	// Threefold symmetric spiral.
	"triple-spiral": {Xmin: -0.7480, Xmax: -0.7450, Ymin: 0.0950, Ymax: 0.0980},

	// Deep spiral filaments.
	"valley-of-the-dragon": {Xmin: -0.7400, Xmax: -0.7350, Ymin: 0.1800, Ymax: 0.1850},

	// Self-similar copy inside a spiral arm on the real axis.
	"minibrot-in-mini-spiral": {Xmin: -1.7390, Xmax: -1.7375, Ymin: -0.0235, Ymax: -0.0220},
}

// LandmarkNames returns the landmark names in sorted order.
func LandmarkNames() []string {
	return slices.Sorted(maps.Keys(Landmarks))
}
