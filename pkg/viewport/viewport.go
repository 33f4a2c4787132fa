package viewport

import (
	"errors"
	"fmt"
	"image"
	"iter"
	"math"
)

var (
	ErrInvalidViewport = errors.New("invalid viewport")
	ErrIndexOutOfRange = errors.New("pixel out of range")
)

// Pixel is a raster coordinate. Rows increase downward.
type Pixel struct {
	Column, Row int
}

func (p Pixel) String() string {
	return fmt.Sprintf("(%d,%d)", p.Column, p.Row)
}

// A Viewport maps a width x height raster onto a rectangle of the complex
// plane centered on Center and LogicalWidth wide. Pixels are square, so the
// rectangle's height follows from the raster's aspect ratio.
//
// Viewports are immutable and safe for concurrent use.
type Viewport struct {
	width, height int
	center        complex128
	logicalWidth  float64

	// scale is the real size of each pixel.
	scale float64
	// offset is the complex coordinate of pixel (0, 0), the top-left corner.
	offset complex128
}

func New(width, height int, center complex128, logicalWidth float64) (Viewport, error) {
	if width <= 0 || height <= 0 {
		return Viewport{}, fmt.Errorf("%w: raster must be at least 1x1, got %dx%d", ErrInvalidViewport, width, height)
	}
	if math.IsNaN(logicalWidth) || math.IsInf(logicalWidth, 0) || logicalWidth <= 0 {
		return Viewport{}, fmt.Errorf("%w: logical width must be positive and finite, got %v", ErrInvalidViewport, logicalWidth)
	}
	if math.IsNaN(real(center)) || math.IsNaN(imag(center)) || math.IsInf(real(center), 0) || math.IsInf(imag(center), 0) {
		return Viewport{}, fmt.Errorf("%w: center must be finite, got %v", ErrInvalidViewport, center)
	}

	scale := logicalWidth / float64(width)
	logicalHeight := scale * float64(height)

	return Viewport{
		width:        width,
		height:       height,
		center:       center,
		logicalWidth: logicalWidth,
		scale:        scale,
		offset:       complex(real(center)-logicalWidth/2, imag(center)+logicalHeight/2),
	}, nil
}

func (v Viewport) Width() int {
	return v.width
}

func (v Viewport) Height() int {
	return v.height
}

func (v Viewport) Center() complex128 {
	return v.center
}

func (v Viewport) LogicalWidth() float64 {
	return v.logicalWidth
}

func (v Viewport) LogicalHeight() float64 {
	return v.scale * float64(v.height)
}

// Scale is the side length of one pixel in the complex plane.
func (v Viewport) Scale() float64 {
	return v.scale
}

// Offset is the complex coordinate of the top-left pixel.
func (v Viewport) Offset() complex128 {
	return v.offset
}

// Bounds is the raster rectangle, with Min at (0, 0).
func (v Viewport) Bounds() image.Rectangle {
	return image.Rect(0, 0, v.width, v.height)
}

// Len is the number of pixels in the raster.
func (v Viewport) Len() int {
	return v.width * v.height
}

func (v Viewport) Contains(p Pixel) bool {
	return p.Column >= 0 && p.Column < v.width && p.Row >= 0 && p.Row < v.height
}

// Pixels enumerates every pixel of the raster in row-major order. The
// sequence may be iterated any number of times.
func (v Viewport) Pixels() iter.Seq[Pixel] {
	return v.Window(v.Bounds())
}

// Window enumerates, in row-major order, the pixels of r that lie within the
// raster.
func (v Viewport) Window(r image.Rectangle) iter.Seq[Pixel] {
	r = r.Intersect(v.Bounds())

	return func(yield func(Pixel) bool) {
		for row := r.Min.Y; row < r.Max.Y; row++ {
			for col := r.Min.X; col < r.Max.X; col++ {
				if !yield(Pixel{Column: col, Row: row}) {
					return
				}
			}
		}
	}
}

// ToComplex returns the point of the complex plane at the top-left corner of
// pixel p. The imaginary part decreases as the row increases.
func (v Viewport) ToComplex(p Pixel) (complex128, error) {
	if !v.Contains(p) {
		return 0, fmt.Errorf("%w: %s not in %dx%d", ErrIndexOutOfRange, p, v.width, v.height)
	}

	return complex(
		real(v.offset)+float64(p.Column)*v.scale,
		imag(v.offset)-float64(p.Row)*v.scale,
	), nil
}

// ToPixel is the inverse of ToComplex, rounded to the nearest pixel. It is
// lossy: every point within half a pixel of a pixel's corner maps to that
// pixel.
func (v Viewport) ToPixel(z complex128) (Pixel, error) {
	col := math.Round((real(z) - real(v.offset)) / v.scale)
	row := math.Round((imag(v.offset) - imag(z)) / v.scale)

	if col < 0 || col >= float64(v.width) || row < 0 || row >= float64(v.height) || math.IsNaN(col) || math.IsNaN(row) {
		return Pixel{}, fmt.Errorf("%w: %v maps outside %dx%d", ErrIndexOutOfRange, z, v.width, v.height)
	}

	return Pixel{Column: int(col), Row: int(row)}, nil
}

func (v Viewport) String() string {
	return fmt.Sprintf("%dx%d center=%v width=%g", v.width, v.height, v.center, v.logicalWidth)
}
