package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
	"github.com/spf13/cobra"

	"github.com/matzehuels/edgeprint/pkg/scale"
	"github.com/matzehuels/edgeprint/pkg/slice"
)

// sliceCommand writes the per-leaf slices of one edge design as PNGs.
func (c *CLI) sliceCommand() *cobra.Command {
	var (
		flags    layoutFlags
		position string
		mode     string
		outDir   string
		masked   bool
		others   []string
	)

	cmd := &cobra.Command{
		Use:   "slice <image|#color>",
		Short: "Cut an edge design into per-leaf slices",
		Long: `Cut an edge design into one slice per leaf and write every slice as
a PNG. With --masked, the corners shared with the positions named by --with
are mitred.`,
		Example: `  edgeprint slice side.png -n 300 -o slices/
  edgeprint slice top.png --position top --with side --masked -n 300`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := loggerFromContext(cmd.Context())

			raw, err := readSource(args[0])
			if err != nil {
				return err
			}
			src, err := slice.Parse(raw)
			if err != nil {
				return err
			}
			pos, err := slice.ParsePosition(position)
			if err != nil {
				return err
			}
			m, err := scale.Parse(mode)
			if err != nil {
				return err
			}
			res, err := flags.compute()
			if err != nil {
				return err
			}

			active := []slice.Position{pos}
			for _, o := range others {
				p, err := slice.ParsePosition(o)
				if err != nil {
					return err
				}
				active = append(active, p)
			}

			strip := res.SideStrip()
			if pos.Horizontal() {
				strip = res.HeadStrip()
			}

			prog := newProgress(logger)
			set, err := slice.Generate(src, slice.Request{
				Position:  pos,
				LeafCount: res.LeafCount,
				Mode:      m,
				Strip:     strip,
				Corners:   slice.CornersFor(pos, active),
			})
			if err != nil {
				return err
			}
			prog.done(fmt.Sprintf("Generated %d slices", set.Len()))

			if err := os.MkdirAll(outDir, 0o755); err != nil {
				return err
			}
			for leaf := range set.Len() {
				img, ok := set.Slice(leaf, masked)
				if !ok {
					continue
				}
				path := filepath.Join(outDir, fmt.Sprintf("%s-%05d.png", pos, leaf))
				if err := imaging.Save(img, path); err != nil {
					return err
				}
			}

			printSuccess("Wrote %d %s slices", set.Len(), pos)
			printDetail("Directory: %s", outDir)
			return nil
		},
	}

	flags.register(cmd, true)
	cmd.Flags().StringVar(&position, "position", string(slice.Side), "edge position: side, top or bottom")
	cmd.Flags().StringVar(&mode, "mode", string(scale.Default), "scale mode: stretch, fit, fill, none or extend-sides")
	cmd.Flags().StringVarP(&outDir, "output", "o", "slices", "output directory")
	cmd.Flags().BoolVar(&masked, "masked", false, "write the mitred variant")
	cmd.Flags().StringSliceVar(&others, "with", nil, "other decorated positions, for mitring")
	return cmd
}
