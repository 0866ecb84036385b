package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/edgeprint/pkg/pipeline"
)

// splitCommand starts a stepwise job and splits the document into chunks.
func (c *CLI) splitCommand() *cobra.Command {
	var (
		flags  designFlags
		resume string
		once   bool
	)

	cmd := &cobra.Command{
		Use:   "split [document.pdf]",
		Short: "Start a job and split its document into chunks",
		Long: `Start a job: validate the design, store the document and edge
sources, and split the document into chunks in the configured store.

Splitting runs in passes bounded by the processing time budget. Without
--once every pass runs until the document is split; with --once a single
pass runs and the job can be continued later with --resume.`,
		Example: `  edgeprint split book.pdf --side side.png
  edgeprint split --resume 5f0c... --once`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			runner, err := c.newRunner(ctx, false)
			if err != nil {
				return err
			}
			defer runner.Close()

			var job *pipeline.Job
			switch {
			case resume != "":
				job, err = runner.Resume(ctx, resume)
			case len(args) == 1:
				pdf, rerr := readDocument(args[0])
				if rerr != nil {
					return rerr
				}
				d, derr := flags.design()
				if derr != nil {
					return derr
				}
				job, err = runner.Start(ctx, d, pdf)
			default:
				return fmt.Errorf("a document or --resume is required")
			}
			if err != nil {
				return err
			}

			for !once && !job.SplitDone() {
				if job, err = runner.Resume(ctx, job.ID); err != nil {
					return err
				}
			}

			printSuccess("Job %s", StyleHighlight.Render(job.ID))
			printJob(job)
			if !job.SplitDone() {
				printNextStep("Continue splitting", "edgeprint split --resume "+job.ID)
			} else {
				printNextStep("Composite", "edgeprint composite "+job.ID)
			}
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVar(&resume, "resume", "", "continue splitting job ID")
	cmd.Flags().BoolVar(&once, "once", false, "run a single split pass")
	return cmd
}

// compositeCommand composites chunks of a job.
func (c *CLI) compositeCommand() *cobra.Command {
	var chunks []int

	cmd := &cobra.Command{
		Use:   "composite <job-id>",
		Short: "Composite the chunks of a split job",
		Long: `Composite chunks of a job: draw the edge slices onto every page and
store the processed chunk. Without --chunk every chunk is processed.
Processing a chunk again overwrites its previous result.`,
		Example: `  edgeprint composite 5f0c...
  edgeprint composite 5f0c... --chunk 3 --chunk 4`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			runner, err := c.newRunner(ctx, false)
			if err != nil {
				return err
			}
			defer runner.Close()

			job, err := runner.Job(ctx, args[0])
			if err != nil {
				return err
			}
			if len(chunks) == 0 {
				for i := range job.Split {
					chunks = append(chunks, i)
				}
			}

			pages := 0
			s := newSpinnerWithContext(ctx, "Compositing")
			s.Start()
			for n, idx := range chunks {
				s.Update("Compositing chunk %d (%d/%d)", idx, n+1, len(chunks))
				res, err := runner.ProcessChunk(ctx, job.ID, idx)
				if err != nil {
					s.StopWithError(fmt.Sprintf("Chunk %d failed", idx))
					return err
				}
				pages += len(res.Pages)
			}
			s.Stop()

			printSuccess("Composited %d chunks (%d pages)", len(chunks), pages)
			if job.SplitDone() {
				printNextStep("Merge", "edgeprint merge "+job.ID)
			}
			return nil
		},
	}

	cmd.Flags().IntSliceVar(&chunks, "chunk", nil, "chunk index to process (repeatable)")
	return cmd
}

// mergeCommand merges the processed chunks of a job.
func (c *CLI) mergeCommand() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "merge <job-id>",
		Short: "Merge processed chunks into the final PDF",
		Long: `Merge every processed chunk of a job in chunk order, store the final
document and remove the intermediate chunks. Merging an already merged
job returns the stored result.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			runner, err := c.newRunner(ctx, false)
			if err != nil {
				return err
			}
			defer runner.Close()

			prog := newProgress(c.Logger)
			pdf, err := runner.Finish(ctx, args[0])
			if err != nil {
				return err
			}
			prog.done("Merged job " + args[0])

			if err := writeOutput(output, pdf); err != nil {
				return err
			}
			if output != "-" {
				printSuccess("Wrote %d bytes", len(pdf))
				printFile(output)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "output.pdf", "output file (- for stdout)")
	return cmd
}
