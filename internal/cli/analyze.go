package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// analyzeCommand prints the page count and size of a document.
func (c *CLI) analyzeCommand() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "analyze <document.pdf>",
		Short: "Report the page count and page size of a PDF",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pdf, err := readDocument(args[0])
			if err != nil {
				return err
			}
			runner, err := c.newRunner(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer runner.Close()

			info, err := runner.Analyze(cmd.Context(), pdf)
			if err != nil {
				return err
			}
			if asJSON {
				data, err := json.MarshalIndent(info, "", "  ")
				if err != nil {
					return err
				}
				fmt.Println(string(data))
				return nil
			}

			printKeyValue("Pages", StyleNumber.Render(fmt.Sprintf("%d", info.PageCount)))
			printKeyValue("Size", fmt.Sprintf("%.3f x %.3f in", info.WidthInches, info.HeightInches))
			printKeyValue("Points", fmt.Sprintf("%.2f x %.2f pt", info.WidthPoints, info.HeightPoints))
			if !info.Uniform(0.5) {
				printWarning("Page sizes differ; the first page is reported")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}
