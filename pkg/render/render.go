// Package render colors a viewport of the Mandelbrot set.
package render

import (
	"context"
	"fmt"
	"image"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/willbeason/escape-fractal/pkg/escape"
	"github.com/willbeason/escape-fractal/pkg/palette"
	"github.com/willbeason/escape-fractal/pkg/viewport"
)

const DefaultTileSize = 64

type Options struct {
	// Smooth uses the fractional escape count.
	Smooth bool
	// Clamp clamps stability scores into [0, 1] before quantizing.
	Clamp bool

	// Workers is the number of tiles rendered concurrently.
	// Defaults to runtime.NumCPU().
	Workers int
	// TileSize is the side of the square tiles the image is split into.
	// Defaults to DefaultTileSize.
	TileSize int

	// OnTile, if set, is called after each tile completes. It may be called
	// from several goroutines at once.
	OnTile func(tile image.Rectangle)
}

func (o Options) workers() int {
	if o.Workers > 0 {
		return o.Workers
	}
	return runtime.NumCPU()
}

func (o Options) tileSize() int {
	if o.TileSize > 0 {
		return o.TileSize
	}
	return DefaultTileSize
}

// Image renders the whole viewport.
//
// Tiles are rendered concurrently into a single image; each tile writes a
// disjoint set of pixels. The first error, including cancellation of ctx,
// stops the render.
func Image(ctx context.Context, vp viewport.Viewport, p escape.Params, pal palette.Palette, opts Options) (*image.RGBA, error) {
	if len(pal) == 0 {
		return nil, palette.ErrEmptyPalette
	}

	img := image.NewRGBA(vp.Bounds())
	size := opts.tileSize()

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.workers())

	for _, tile := range SplitTiles(vp.Bounds(), size, size) {
		g.Go(func() error {
			if err := draw(ctx, img, vp, p, pal, opts, tile); err != nil {
				return err
			}
			if opts.OnTile != nil {
				opts.OnTile(tile)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return img, nil
}

// Tile renders the part of tile that lies within the viewport. The returned
// image keeps global coordinates: its Bounds are tile ∩ vp.Bounds().
func Tile(ctx context.Context, vp viewport.Viewport, p escape.Params, pal palette.Palette, opts Options, tile image.Rectangle) (*image.RGBA, error) {
	if len(pal) == 0 {
		return nil, palette.ErrEmptyPalette
	}

	img := image.NewRGBA(tile.Intersect(vp.Bounds()))
	if err := draw(ctx, img, vp, p, pal, opts, img.Rect); err != nil {
		return nil, err
	}

	return img, nil
}

// draw colors the pixels of tile into img, checking ctx once per row.
func draw(ctx context.Context, img *image.RGBA, vp viewport.Viewport, p escape.Params, pal palette.Palette, opts Options, tile image.Rectangle) error {
	row := tile.Min.Y - 1

	for px := range vp.Window(tile) {
		if px.Row != row {
			row = px.Row
			if err := ctx.Err(); err != nil {
				return err
			}
		}

		c, err := vp.ToComplex(px)
		if err != nil {
			return err
		}

		score, err := escape.Stability(c, p, opts.Smooth, opts.Clamp)
		if err != nil {
			return fmt.Errorf("pixel %s: %w", px, err)
		}

		img.SetRGBA(px.Column, px.Row, pal.At(score))
	}

	return nil
}

// SplitTiles splits r into tiles of size tileW × tileH in row-major order.
// Tiles at the right and bottom edges are smaller if r is not divisible.
func SplitTiles(r image.Rectangle, tileW, tileH int) []image.Rectangle {
	if tileW <= 0 || tileH <= 0 {
		panic("tile dimensions must be positive")
	}

	var tiles []image.Rectangle

	for y := r.Min.Y; y < r.Max.Y; y += tileH {
		for x := r.Min.X; x < r.Max.X; x += tileW {
			tiles = append(tiles, image.Rect(x, y, x+tileW, y+tileH).Intersect(r))
		}
	}

	return tiles
}
