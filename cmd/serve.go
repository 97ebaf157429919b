// File: cmd/serve.go
package cmd

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/postlens/internal/observability"
	"github.com/xkilldash9x/postlens/internal/server"
)

// newServeCmd creates the `serve` command hosting the HTTP API.
func newServeCmd() *cobra.Command {
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serves POST /api/analyze-post over HTTP, reusing one logged-in browser session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()
			cfg, err := getConfig(cmd)
			if err != nil {
				return err
			}

			analyzer, err := newAnalyzer(cfg, logger)
			if err != nil {
				return err
			}
			// The session outlives individual requests and goes away with the process.
			defer closeAnalyzer(ctx, analyzer, logger)

			var personas server.PersonaAnalyzer
			pa, err := newPersonaAnalyzer(ctx, cfg, logger)
			if err != nil {
				return err
			}
			if pa != nil {
				personas = pa
				logger.Info("Persona analysis enabled.", zap.String("model", cfg.LLM.Model))
			}

			srv, err := server.New(cfg.Server, cfg.LinkedIn.AllowedHost, analyzer, personas, logger)
			if err != nil {
				return err
			}

			if err := srv.Run(ctx); err != nil {
				return err
			}
			logger.Info("Server stopped; releasing browser session.")
			return nil
		},
	}
	serveCmd.Flags().String("addr", "", "listen address (overrides server.addr)")
	return serveCmd
}
