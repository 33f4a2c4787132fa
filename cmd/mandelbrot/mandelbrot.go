package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"github.com/zeromicro/go-zero/core/logx"

	"github.com/willbeason/escape-fractal/pkg/config"
)

func mainCmd() *cobra.Command {
	cfg := config.Default()
	cfg.Log.ServiceName = "mandelbrot"
	cfg.Log.Encoding = "plain"

	var configPath string

	cmd := &cobra.Command{
		Use:   "mandelbrot",
		Short: "Render the Mandelbrot set by escape time",
		Args:  cobra.NoArgs,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := config.Resolve(cmd.Flags(), &cfg, configPath); err != nil {
				return err
			}
			return logx.SetUp(cfg.Log)
		},
	}

	config.BindFlags(cmd.PersistentFlags(), &cfg)
	cmd.PersistentFlags().StringVar(&configPath, "config", "", "YAML, JSON or TOML config file; explicit flags override it")

	cmd.AddCommand(renderCmd(&cfg), orbitCmd(&cfg), serveCmd(&cfg))

	return cmd
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)

	err := mainCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		// At this point the error has already been printed; no need to print again.
		os.Exit(1)
	}
}
