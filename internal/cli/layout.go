package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/edgeprint/pkg/calibration"
	"github.com/matzehuels/edgeprint/pkg/layout"
)

// layoutFlags are the book dimensions shared by most commands.
type layoutFlags struct {
	width    float64
	height   float64
	pages    int
	bleed    string
	pageType string
}

func (f *layoutFlags) register(cmd *cobra.Command, withPages bool) {
	cmd.Flags().Float64Var(&f.width, "width", 6, "trim width in inches")
	cmd.Flags().Float64Var(&f.height, "height", 9, "trim height in inches")
	cmd.Flags().StringVar(&f.bleed, "bleed", string(layout.AddBleed), "bleed type: add_bleed or existing_bleed")
	cmd.Flags().StringVar(&f.pageType, "page-type", string(layout.DefaultPageType), "paper stock: bw, standard or premium")
	if withPages {
		cmd.Flags().IntVarP(&f.pages, "pages", "n", 0, "page count")
	}
}

func (f *layoutFlags) params() layout.Params {
	return layout.Params{
		TrimWidth:  f.width,
		TrimHeight: f.height,
		PageCount:  f.pages,
		Bleed:      layout.BleedType(f.bleed),
		PageType:   layout.PageType(f.pageType),
	}
}

func (f *layoutFlags) compute() (layout.Result, error) {
	return layout.Compute(f.params())
}

// layoutCommand prints the derived dimensions for a book.
func (c *CLI) layoutCommand() *cobra.Command {
	var (
		flags  layoutFlags
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "layout",
		Short: "Compute page, strip and template dimensions",
		Long: `Compute the output page size, edge strip sizes, leaf count and
calibration template size for a book.`,
		Example: `  edgeprint layout --width 6 --height 9 --pages 300
  edgeprint layout -n 120 --bleed existing_bleed --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := flags.compute()
			if err != nil {
				return err
			}
			if asJSON {
				data, err := json.MarshalIndent(res, "", "  ")
				if err != nil {
					return err
				}
				fmt.Println(string(data))
				return nil
			}
			printLayout(res)
			return nil
		},
	}

	flags.register(cmd, true)
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

// templateCommand writes the calibration template PNG.
func (c *CLI) templateCommand() *cobra.Command {
	var (
		flags  layoutFlags
		output string
	)

	cmd := &cobra.Command{
		Use:   "template",
		Short: "Write a calibration template PNG",
		Long: `Write a transparent PNG sized one pixel per leaf, with guide lines
every 10 leaves and bands marking the bleed and safety area. Draw the edge
design over it at full size.`,
		Example: `  edgeprint template -n 300 -o side-template.png`,
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := flags.compute()
			if err != nil {
				return err
			}
			png, err := calibration.EncodePNG(res)
			if err != nil {
				return err
			}
			if err := writeOutput(output, png); err != nil {
				return err
			}
			if output != "-" {
				printSuccess("Template %dx%d px", res.Template.WidthPx, res.Template.HeightPx)
				printFile(output)
			}
			return nil
		},
	}

	flags.register(cmd, true)
	cmd.Flags().StringVarP(&output, "output", "o", "template.png", "output file (- for stdout)")
	return cmd
}
