package cli

import (
	"github.com/spf13/cobra"

	"github.com/matzehuels/edgeprint/internal/api"
)

// serveCommand runs the HTTP API.
func (c *CLI) serveCommand() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the pipeline over HTTP",
		Long: `Serve the layout, template, analyze, mockup and job endpoints over
HTTP using the configured store and cache. Stops gracefully on interrupt.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			if addr == "" {
				addr = cfg.Server.Addr
			}

			runner, err := c.newRunner(ctx, false)
			if err != nil {
				return err
			}
			defer runner.Close()

			srv := api.New(runner, c.Logger, api.Options{
				MaxBodyBytes: cfg.Server.MaxBodyBytes,
				Timeout:      cfg.Server.RequestTimeout.Duration,
			})
			return srv.ListenAndServe(ctx, addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config, :8080)")
	return cmd
}
