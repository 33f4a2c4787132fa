// Package palette quantizes stability scores into colors.
package palette

import (
	"errors"
	"fmt"
	"image/color"
	"math"
	"slices"
	"strings"
)

var (
	ErrEmptyPalette   = errors.New("palette must have at least one color")
	ErrUnknownPalette = errors.New("unknown palette")
)

// Palette is an ordered, non-empty sequence of colors. The last entry is
// used for members of the set.
type Palette []color.RGBA

// Index maps a stability score onto [0, n). n must be positive.
//
// A score of exactly 1.0 lands on the last index rather than overflowing.
// Scores outside [0, 1] wrap around modulo n.
func Index(score float64, n int) int {
	i := int(math.Floor(math.Min(score*float64(n), float64(n-1))))
	return ((i % n) + n) % n
}

// At returns the color for a stability score.
func (p Palette) At(score float64) color.RGBA {
	return p[Index(score, len(p))]
}

var black = color.RGBA{A: 0xff}

// Gradient linearly interpolates n colors from start toward end.
func Gradient(start, end color.RGBA, n int) (Palette, error) {
	if n <= 0 {
		return nil, ErrEmptyPalette
	}

	p := make(Palette, n)
	for j := range p {
		fraction := float64(j) / float64(n)
		p[j] = color.RGBA{
			R: lerp(start.R, end.R, fraction),
			G: lerp(start.G, end.G, fraction),
			B: lerp(start.B, end.B, fraction),
			A: 0xff,
		}
	}

	return p, nil
}

func lerp(a, b uint8, t float64) uint8 {
	return uint8(math.Round(float64(a) + (float64(b)-float64(a))*t))
}

// HSV returns n fully saturated colors sweeping once around the hue circle.
func HSV(n int) (Palette, error) {
	if n <= 0 {
		return nil, ErrEmptyPalette
	}

	p := make(Palette, n)
	for j := range p {
		p[j] = hsv(float64(j)/float64(n), 1, 1)
	}

	return p, nil
}

// Grayscale runs from white to black.
func Grayscale(n int) (Palette, error) {
	if n <= 0 {
		return nil, ErrEmptyPalette
	}

	p := make(Palette, n)
	for j := range p {
		y := uint8(0xff)
		if n > 1 {
			y = uint8(math.Round(0xff * (1 - float64(j)/float64(n-1))))
		}
		p[j] = color.RGBA{R: y, G: y, B: y, A: 0xff}
	}

	return p, nil
}

// hsv converts hue, saturation and value, each in [0, 1], to RGB.
func hsv(h, s, v float64) color.RGBA {
	h = math.Mod(h, 1)
	i := int(h * 6)
	f := h*6 - float64(i)
	p := v * (1 - s)
	q := v * (1 - f*s)
	t := v * (1 - (1-f)*s)

	var r, g, b float64
	switch i % 6 {
	case 0:
		r, g, b = v, t, p
	case 1:
		r, g, b = q, v, p
	case 2:
		r, g, b = p, v, t
	case 3:
		r, g, b = p, q, v
	case 4:
		r, g, b = t, p, v
	case 5:
		r, g, b = v, p, q
	}

	return color.RGBA{R: uint8(r * 255), G: uint8(g * 255), B: uint8(b * 255), A: 0xff}
}

var builders = map[string]func(n int) (Palette, error){
	"hsv":  HSV,
	"gray": Grayscale,
	"fire": func(n int) (Palette, error) {
		return Gradient(color.RGBA{R: 0x20, A: 0xff}, color.RGBA{R: 0xff, G: 0xe0, B: 0x40, A: 0xff}, n)
	},
	"ocean": func(n int) (Palette, error) {
		return Gradient(color.RGBA{B: 0x30, A: 0xff}, color.RGBA{R: 0x7f, G: 0xaf, B: 0xff, A: 0xff}, n)
	},
}

// Names lists the palettes Named accepts.
func Names() []string {
	names := make([]string, 0, len(builders))
	for name := range builders {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Named builds the palette called name with n colors. The final color is
// always black so members of the set render black.
func Named(name string, n int) (Palette, error) {
	build, ok := builders[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("%w %q, want one of %s", ErrUnknownPalette, name, strings.Join(Names(), ", "))
	}
	if n <= 0 {
		return nil, ErrEmptyPalette
	}
	if n == 1 {
		return Palette{black}, nil
	}

	p, err := build(n - 1)
	if err != nil {
		return nil, err
	}

	return append(p, black), nil
}
