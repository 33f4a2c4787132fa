// Package config holds the settings shared by the mandelbrot commands.
//
// Values come from, in increasing priority: the defaults in the struct tags,
// an optional YAML/JSON/TOML file, and command-line flags the user set.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/zeromicro/go-zero/core/conf"
	"github.com/zeromicro/go-zero/core/logx"

	"github.com/willbeason/escape-fractal/pkg/escape"
	"github.com/willbeason/escape-fractal/pkg/palette"
	"github.com/willbeason/escape-fractal/pkg/render"
	"github.com/willbeason/escape-fractal/pkg/viewport"
)

var ErrUnknownRegion = errors.New("unknown region")

type Config struct {
	// Raster size in pixels.
	Width  int `json:",default=1920"`
	Height int `json:",default=1080"`

	// The complex-plane rectangle shown. Ignored if Region is set.
	CenterReal   float64 `json:",default=-0.75"`
	CenterImag   float64 `json:",default=0"`
	LogicalWidth float64 `json:",default=3.5"`

	// Region names one of viewport.Landmarks.
	Region string `json:",optional"`

	MaxIterations int     `json:",default=256"`
	EscapeRadius  float64 `json:",default=2"`
	Smooth        bool    `json:",default=true"`
	Clamp         bool    `json:",default=true"`

	Palette     string `json:",default=hsv"`
	PaletteSize int    `json:",default=256"`

	// Workers defaults to the number of CPUs.
	Workers  int `json:",optional"`
	TileSize int `json:",default=64"`

	Output string `json:",default=mandelbrot.png"`
	Listen string `json:",default=:8080"`

	Log logx.LogConf
}

// Default returns a Config with every default filled in.
func Default() Config {
	var c Config
	if err := conf.FillDefault(&c); err != nil {
		// Only reachable if a default tag above is malformed.
		panic(fmt.Sprintf("config defaults: %v", err))
	}
	return c
}

// Load reads a config file. Fields the file omits keep their defaults.
func Load(path string) (Config, error) {
	var c Config
	if err := conf.Load(path, &c); err != nil {
		return Config{}, fmt.Errorf("loading config %q: %w", path, err)
	}
	return c, nil
}

// BindFlags registers a flag for each setting, writing into c. The current
// values of c become the flag defaults.
func BindFlags(fs *pflag.FlagSet, c *Config) {
	fs.IntVar(&c.Width, "width", c.Width, "image width in pixels")
	fs.IntVar(&c.Height, "height", c.Height, "image height in pixels")
	fs.Float64Var(&c.CenterReal, "center-real", c.CenterReal, "real part of the image center")
	fs.Float64Var(&c.CenterImag, "center-imag", c.CenterImag, "imaginary part of the image center")
	fs.Float64Var(&c.LogicalWidth, "logical-width", c.LogicalWidth, "width of the image in the complex plane")
	fs.StringVar(&c.Region, "region", c.Region,
		fmt.Sprintf("named region to render, overriding the center and width (%s)", strings.Join(viewport.LandmarkNames(), ", ")))

	fs.IntVar(&c.MaxIterations, "max-iterations", c.MaxIterations, "iterations before a point is considered a member")
	fs.Float64Var(&c.EscapeRadius, "escape-radius", c.EscapeRadius, "radius beyond which a point has escaped")
	fs.BoolVar(&c.Smooth, "smooth", c.Smooth, "use the fractional escape count")
	fs.BoolVar(&c.Clamp, "clamp", c.Clamp, "clamp stability scores into [0, 1]")

	fs.StringVar(&c.Palette, "palette", c.Palette,
		fmt.Sprintf("color palette (%s)", strings.Join(palette.Names(), ", ")))
	fs.IntVar(&c.PaletteSize, "palette-size", c.PaletteSize, "number of colors in the palette")

	fs.IntVar(&c.Workers, "workers", c.Workers, "tiles rendered concurrently, 0 for one per CPU")
	fs.IntVar(&c.TileSize, "tile-size", c.TileSize, "tile side in pixels")

	fs.StringVar(&c.Output, "output", c.Output, "output PNG path")
	fs.StringVar(&c.Listen, "listen", c.Listen, "address the server listens on")

	fs.StringVar(&c.Log.Level, "log-level", c.Log.Level, "log level (debug, info, error, severe)")
	fs.StringVar(&c.Log.Encoding, "log-encoding", c.Log.Encoding, "log encoding (json, plain)")
}

// Resolve loads the config file at path, if any, into c and then re-applies
// every flag in fs the user set explicitly, so flags win over the file.
func Resolve(fs *pflag.FlagSet, c *Config, path string) error {
	if path == "" {
		return nil
	}

	set := make(map[string]string)
	fs.Visit(func(f *pflag.Flag) {
		set[f.Name] = f.Value.String()
	})

	loaded, err := Load(path)
	if err != nil {
		return err
	}
	*c = loaded

	for name, value := range set {
		if err := fs.Set(name, value); err != nil {
			return fmt.Errorf("re-applying --%s: %w", name, err)
		}
	}

	return nil
}

func (c Config) Params() (escape.Params, error) {
	return escape.NewParams(c.MaxIterations, c.EscapeRadius)
}

func (c Config) Viewport() (viewport.Viewport, error) {
	if c.Region == "" {
		return viewport.New(c.Width, c.Height, complex(c.CenterReal, c.CenterImag), c.LogicalWidth)
	}

	l, ok := viewport.Landmarks[c.Region]
	if !ok {
		return viewport.Viewport{}, fmt.Errorf("%w %q, want one of %s",
			ErrUnknownRegion, c.Region, strings.Join(viewport.LandmarkNames(), ", "))
	}
	return l.Viewport(c.Width, c.Height)
}

func (c Config) ColorPalette() (palette.Palette, error) {
	return palette.Named(c.Palette, c.PaletteSize)
}

func (c Config) RenderOptions() render.Options {
	return render.Options{
		Smooth:   c.Smooth,
		Clamp:    c.Clamp,
		Workers:  c.Workers,
		TileSize: c.TileSize,
	}
}
