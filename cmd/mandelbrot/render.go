package main

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"
	"github.com/zeromicro/go-zero/core/logx"

	"github.com/willbeason/escape-fractal/pkg/config"
	"github.com/willbeason/escape-fractal/pkg/render"
)

func renderCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "render",
		Short: "Render an image to a PNG file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			// At this point usage information has already been printed if obviously incorrect.
			cmd.SilenceUsage = true
			return runRender(cmd, *cfg)
		},
	}
}

func runRender(cmd *cobra.Command, cfg config.Config) error {
	vp, err := cfg.Viewport()
	if err != nil {
		return err
	}
	p, err := cfg.Params()
	if err != nil {
		return err
	}
	pal, err := cfg.ColorPalette()
	if err != nil {
		return err
	}

	opts := cfg.RenderOptions()
	size := opts.TileSize
	if size <= 0 {
		size = render.DefaultTileSize
	}
	total := len(render.SplitTiles(vp.Bounds(), size, size))

	var done atomic.Int64
	opts.OnTile = func(tile image.Rectangle) {
		logx.Debugf("tile %v done (%d/%d)", tile, done.Add(1), total)
	}

	logx.Infof("rendering %s, %s, %d tiles", vp, p, total)
	start := time.Now()

	img, err := render.Image(cmd.Context(), vp, p, pal, opts)
	if err != nil {
		return fmt.Errorf("rendering: %w", err)
	}

	f, err := os.Create(cfg.Output)
	if err != nil {
		return err
	}

	err = png.Encode(f, img)
	if err != nil {
		_ = f.Close()
		return err
	}

	err = f.Close()
	if err != nil {
		return err
	}

	logx.WithDuration(time.Since(start)).Infof("wrote %s", cfg.Output)
	return nil
}
