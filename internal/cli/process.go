package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/matzehuels/edgeprint/pkg/errors"
	"github.com/matzehuels/edgeprint/pkg/layout"
	"github.com/matzehuels/edgeprint/pkg/pipeline"
	"github.com/matzehuels/edgeprint/pkg/scale"
	"github.com/matzehuels/edgeprint/pkg/slice"
)

// designFlags describe an edge decoration.
type designFlags struct {
	layoutFlags
	side   string
	top    string
	bottom string
	mode   string
}

func (f *designFlags) register(cmd *cobra.Command) {
	f.layoutFlags.register(cmd, true)
	cmd.Flags().StringVar(&f.side, "side", "", "fore-edge design: image file or #color")
	cmd.Flags().StringVar(&f.top, "top", "", "top edge design: image file or #color")
	cmd.Flags().StringVar(&f.bottom, "bottom", "", "bottom edge design: image file or #color")
	cmd.Flags().StringVar(&f.mode, "mode", string(scale.Default), "scale mode: stretch, fit, fill, none or extend-sides")
}

// design reads the edge sources and builds a validated Design.
func (f *designFlags) design() (pipeline.Design, error) {
	d := pipeline.Design{
		TrimWidth:  f.width,
		TrimHeight: f.height,
		PageCount:  f.pages,
		Bleed:      layout.BleedType(f.bleed),
		PageType:   layout.PageType(f.pageType),
		Mode:       scale.Mode(f.mode),
		Edges:      map[slice.Position][]byte{},
	}
	for pos, src := range map[slice.Position]string{slice.Side: f.side, slice.Top: f.top, slice.Bottom: f.bottom} {
		if src == "" {
			continue
		}
		data, err := readSource(src)
		if err != nil {
			return d, errors.Wrap(errors.GetCode(err), err, "%s edge", pos)
		}
		d.Edges[pos] = data
	}
	return d, d.Validate()
}

// processCommand runs the whole pipeline in-process.
func (c *CLI) processCommand() *cobra.Command {
	var (
		flags   designFlags
		output  string
		noCache bool
		noTUI   bool
	)

	cmd := &cobra.Command{
		Use:   "process <document.pdf>",
		Short: "Print edge designs onto every page of a document",
		Long: `Process a PDF end to end: slice the edge designs, split the document
into chunks, composite every chunk and merge the result into one PDF.

At least one of --side, --top or --bottom is required. Each takes an image
file or a hex colour.`,
		Example: `  edgeprint process book.pdf --side side.png -o book-edges.pdf
  edgeprint process book.pdf --side side.png --top "#aa3300" --bleed existing_bleed`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			pdf, err := readDocument(args[0])
			if err != nil {
				return err
			}
			d, err := flags.design()
			if err != nil {
				return err
			}
			runner, err := c.newRunner(ctx, noCache)
			if err != nil {
				return err
			}
			defer runner.Close()

			var res *pipeline.Result
			work := func(ctx context.Context) error {
				var perr error
				res, perr = runner.Process(ctx, d, pdf)
				return perr
			}

			if !noTUI && isTerminal(os.Stderr) {
				restore := c.quiet()
				err = runWithProgress(ctx, "Processing "+args[0], work)
				restore()
			} else {
				prog := newProgress(c.Logger)
				err = work(ctx)
				if err == nil {
					prog.done(fmt.Sprintf("Processed %d pages", res.Stats.Pages))
				}
			}
			if err != nil {
				return err
			}

			if err := writeOutput(output, res.Data); err != nil {
				return err
			}
			if output != "-" {
				printSuccess("Processed %d pages in %d chunks", res.Stats.Pages, res.Stats.Chunks)
				printStats(res.Stats)
				printFile(output)
			}
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVarP(&output, "output", "o", "output.pdf", "output file (- for stdout)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")
	cmd.Flags().BoolVar(&noTUI, "no-progress", false, "log instead of showing a progress view")
	return cmd
}

// isTerminal reports whether f is an interactive terminal.
func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// quiet silences the logger until the returned function is called.
func (c *CLI) quiet() (restore func()) {
	c.Logger.SetOutput(io.Discard)
	return func() { c.Logger.SetOutput(c.out) }
}
