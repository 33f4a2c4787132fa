package stream

import (
	"errors"
	"fmt"
	"image"
	"net/url"
	"strconv"

	"github.com/willbeason/escape-fractal/pkg/config"
	"github.com/willbeason/escape-fractal/pkg/escape"
	"github.com/willbeason/escape-fractal/pkg/palette"
	"github.com/willbeason/escape-fractal/pkg/render"
	"github.com/willbeason/escape-fractal/pkg/viewport"
)

// Limits on what a single request may ask for.
const (
	MaxPixels      = 4096 * 4096
	MaxIterations  = 1 << 14
	MaxPaletteSize = 1 << 16
	MaxTileSize    = 1024
)

var ErrTooLarge = errors.New("request too large")

// Request asks for a rendering. Zero fields fall back to the server's
// configuration, except the booleans, which are pointers for that reason.
// The center is only read together with a non-zero LogicalWidth.
type Request struct {
	Width        int     `json:"width,omitempty"`
	Height       int     `json:"height,omitempty"`
	CenterReal   float64 `json:"center_real,omitempty"`
	CenterImag   float64 `json:"center_imag,omitempty"`
	LogicalWidth float64 `json:"logical_width,omitempty"`
	Region       string  `json:"region,omitempty"`

	MaxIterations int     `json:"max_iterations,omitempty"`
	EscapeRadius  float64 `json:"escape_radius,omitempty"`
	Smooth        *bool   `json:"smooth,omitempty"`
	Clamp         *bool   `json:"clamp,omitempty"`

	Palette     string `json:"palette,omitempty"`
	PaletteSize int    `json:"palette_size,omitempty"`
	TileSize    int    `json:"tile_size,omitempty"`
}

// TileHeader precedes each binary PNG tile on the websocket. Coordinates
// are in the full image.
type TileHeader struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

// Message is every text frame the server sends on the websocket.
type Message struct {
	Tile  *TileHeader `json:"tile,omitempty"`
	Done  bool        `json:"done,omitempty"`
	Tiles int         `json:"tiles,omitempty"`
	Error string      `json:"error,omitempty"`
}

// job is a validated Request.
type job struct {
	vp   viewport.Viewport
	p    escape.Params
	pal  palette.Palette
	opts render.Options
	key  string
}

func (r Request) apply(c config.Config) config.Config {
	if r.Width > 0 {
		c.Width = r.Width
	}
	if r.Height > 0 {
		c.Height = r.Height
	}
	if r.LogicalWidth != 0 {
		// An explicit view replaces any region.
		c.Region = ""
		c.CenterReal, c.CenterImag, c.LogicalWidth = r.CenterReal, r.CenterImag, r.LogicalWidth
	} else if r.Region != "" {
		c.Region = r.Region
	}
	if r.MaxIterations != 0 {
		c.MaxIterations = r.MaxIterations
	}
	if r.EscapeRadius != 0 {
		c.EscapeRadius = r.EscapeRadius
	}
	if r.Smooth != nil {
		c.Smooth = *r.Smooth
	}
	if r.Clamp != nil {
		c.Clamp = *r.Clamp
	}
	if r.Palette != "" {
		c.Palette = r.Palette
	}
	if r.PaletteSize != 0 {
		c.PaletteSize = r.PaletteSize
	}
	if r.TileSize > 0 {
		c.TileSize = r.TileSize
	}
	return c
}

func newJob(r Request, defaults config.Config) (job, error) {
	c := r.apply(defaults)

	if err := checkLimits(c); err != nil {
		return job{}, err
	}

	vp, err := c.Viewport()
	if err != nil {
		return job{}, err
	}
	p, err := c.Params()
	if err != nil {
		return job{}, err
	}
	pal, err := c.ColorPalette()
	if err != nil {
		return job{}, err
	}
	opts := c.RenderOptions()
	if opts.TileSize <= 0 {
		opts.TileSize = render.DefaultTileSize
	}

	return job{
		vp:   vp,
		p:    p,
		pal:  pal,
		opts: opts,
		key: fmt.Sprintf("%s|%s|%s/%d|smooth=%t|clamp=%t|tile=%d",
			vp, p, c.Palette, len(pal), opts.Smooth, opts.Clamp, opts.TileSize),
	}, nil
}

// checkLimits rejects configurations too large to serve. Non-positive
// values are left to the constructors that report them.
func checkLimits(c config.Config) error {
	if c.Width > 0 && c.Height > 0 && c.Width > MaxPixels/c.Height {
		return fmt.Errorf("%w: %dx%d exceeds %d pixels", ErrTooLarge, c.Width, c.Height, MaxPixels)
	}
	if c.MaxIterations > MaxIterations {
		return fmt.Errorf("%w: %d iterations exceeds %d", ErrTooLarge, c.MaxIterations, MaxIterations)
	}
	if c.PaletteSize > MaxPaletteSize {
		return fmt.Errorf("%w: %d colors exceeds %d", ErrTooLarge, c.PaletteSize, MaxPaletteSize)
	}
	if c.TileSize > MaxTileSize {
		return fmt.Errorf("%w: tile size %d exceeds %d", ErrTooLarge, c.TileSize, MaxTileSize)
	}
	return nil
}

func (j job) tiles() []image.Rectangle {
	return render.SplitTiles(j.vp.Bounds(), j.opts.TileSize, j.opts.TileSize)
}

// requestFromQuery reads a Request from URL parameters:
// width, height, re, im, lw, region, iter, radius, smooth, clamp, palette, colors.
func requestFromQuery(q url.Values) (Request, error) {
	var (
		r   Request
		err error
	)

	ints := []struct {
		key string
		dst *int
	}{
		{"width", &r.Width},
		{"height", &r.Height},
		{"iter", &r.MaxIterations},
		{"colors", &r.PaletteSize},
	}
	for _, f := range ints {
		if v := q.Get(f.key); v != "" {
			if *f.dst, err = strconv.Atoi(v); err != nil {
				return Request{}, fmt.Errorf("parameter %s: %w", f.key, err)
			}
		}
	}

	floats := []struct {
		key string
		dst *float64
	}{
		{"re", &r.CenterReal},
		{"im", &r.CenterImag},
		{"lw", &r.LogicalWidth},
		{"radius", &r.EscapeRadius},
	}
	for _, f := range floats {
		if v := q.Get(f.key); v != "" {
			if *f.dst, err = strconv.ParseFloat(v, 64); err != nil {
				return Request{}, fmt.Errorf("parameter %s: %w", f.key, err)
			}
		}
	}

	bools := []struct {
		key string
		dst **bool
	}{
		{"smooth", &r.Smooth},
		{"clamp", &r.Clamp},
	}
	for _, f := range bools {
		if v := q.Get(f.key); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return Request{}, fmt.Errorf("parameter %s: %w", f.key, err)
			}
			*f.dst = &b
		}
	}

	r.Region = q.Get("region")
	r.Palette = q.Get("palette")

	return r, nil
}
