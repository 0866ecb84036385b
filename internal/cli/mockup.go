package cli

import (
	"github.com/spf13/cobra"

	"github.com/matzehuels/edgeprint/pkg/layout"
	"github.com/matzehuels/edgeprint/pkg/pipeline"
	"github.com/matzehuels/edgeprint/pkg/scale"
)

// mockupCommand renders a 3D preview of a decorated book.
func (c *CLI) mockupCommand() *cobra.Command {
	var (
		flags  layoutFlags
		cover  string
		edge   string
		mode   string
		output string
	)

	cmd := &cobra.Command{
		Use:   "mockup",
		Short: "Render a 3D preview of the decorated book",
		Long: `Render a PNG mockup: the cover is warped onto the template's marker
region and the fore-edge design onto a strip beside it, as thick as the
page block. The template comes from the [mockup] config section.`,
		Example: `  edgeprint mockup --cover cover.png --edge side.png -n 300 -o mockup.png
  edgeprint mockup --edge "#336699" -n 120`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			req := pipeline.MockupRequest{
				TrimWidth:  flags.width,
				TrimHeight: flags.height,
				PageCount:  flags.pages,
				PageType:   layout.PageType(flags.pageType),
				Mode:       scale.Mode(mode),
			}
			var err error
			if cover != "" {
				if req.Cover, err = readSource(cover); err != nil {
					return err
				}
			}
			if edge != "" {
				if req.Edge, err = readSource(edge); err != nil {
					return err
				}
			}

			runner, err := c.newRunner(ctx, false)
			if err != nil {
				return err
			}
			defer runner.Close()

			s := newSpinnerWithContext(ctx, "Rendering mockup")
			s.Start()
			png, err := runner.RenderMockup(ctx, req)
			s.Stop()
			if err != nil {
				return err
			}

			if err := writeOutput(output, png); err != nil {
				return err
			}
			if output != "-" {
				printSuccess("Rendered mockup")
				printFile(output)
			}
			return nil
		},
	}

	flags.register(cmd, true)
	cmd.Flags().StringVar(&cover, "cover", "", "cover image file")
	cmd.Flags().StringVar(&edge, "edge", "", "fore-edge design: image file or #color")
	cmd.Flags().StringVar(&mode, "mode", string(scale.Default), "scale mode for the edge design")
	cmd.Flags().StringVarP(&output, "output", "o", "mockup.png", "output file (- for stdout)")
	return cmd
}
