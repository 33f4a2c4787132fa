package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/willbeason/escape-fractal/pkg/config"
	"github.com/willbeason/escape-fractal/pkg/escape"
	"github.com/willbeason/escape-fractal/pkg/transforms"
)

func orbitCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "orbit <real> <imag>",
		Short: "Print the orbit of a point and how it is classified",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			re, err := strconv.ParseFloat(args[0], 64)
			if err != nil {
				return fmt.Errorf("real part: %w", err)
			}
			im, err := strconv.ParseFloat(args[1], 64)
			if err != nil {
				return fmt.Errorf("imaginary part: %w", err)
			}

			cmd.SilenceUsage = true
			return runOrbit(cmd, *cfg, complex(re, im))
		},
	}
}

func runOrbit(cmd *cobra.Command, cfg config.Config, c complex128) error {
	p, err := cfg.Params()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for n, z := range escape.Orbit(c, p) {
		fmt.Fprintf(out, "z(%d) = %v\n", n, z)
	}

	r := escape.Classify(c, p)
	if !r.Escaped {
		fmt.Fprintf(out, "%v is a member: no escape within %d iterations\n", c, p.MaxIterations())
		return nil
	}

	fmt.Fprintf(out, "%v escaped on iteration %d with |z| = %g\n", c, r.Iterations, transforms.Modulus(r.Final))

	stability, err := escape.Stability(c, p, cfg.Smooth, cfg.Clamp)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "stability %.6f\n", stability)

	return nil
}
