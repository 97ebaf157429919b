// File: cmd/analyze.go
package cmd

import (
	"context"
	"fmt"
	"os"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/postlens/internal/config"
	"github.com/xkilldash9x/postlens/internal/engagement"
	"github.com/xkilldash9x/postlens/internal/humanoid"
	"github.com/xkilldash9x/postlens/internal/observability"
	"github.com/xkilldash9x/postlens/internal/server"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type analyzeOptions struct {
	personas bool
	output   string
	fromHTML string
}

// newAnalyzeCmd creates the one-shot `analyze` command.
func newAnalyzeCmd() *cobra.Command {
	var opts analyzeOptions

	analyzeCmd := &cobra.Command{
		Use:   "analyze <post-url>",
		Short: "Extracts a post and its reactions panel and prints the result as JSON",
		Long: `Logs in, opens the post, extracts its metadata and the profiles listed in its
reactions panel, then prints the result as JSON.

With --from-html the same extraction runs over a saved copy of a post page and
no browser is started; the URL argument is then optional.`,
		Args: func(cmd *cobra.Command, args []string) error {
			if opts.fromHTML != "" {
				return cobra.MaximumNArgs(1)(cmd, args)
			}
			return cobra.ExactArgs(1)(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger().Named("analyze")
			cfg, err := getConfig(cmd)
			if err != nil {
				return err
			}
			if opts.personas {
				if err := requireLLM(cfg); err != nil {
					return err
				}
			}

			postURL := ""
			if len(args) > 0 {
				postURL = args[0]
			}

			var result engagement.AnalysisResult
			if opts.fromHTML != "" {
				result, err = analyzeSnapshot(ctx, cfg, opts.fromHTML, logger)
			} else {
				result, err = analyzeLive(ctx, cfg, postURL, logger)
			}
			if err != nil {
				return err
			}

			resp := server.AnalyzeResponse{
				Success:      true,
				PostURL:      postURL,
				Post:         result.Post,
				Interactors:  result.Interactors,
				ProfileCount: len(result.Interactors),
			}
			if opts.personas {
				pa, err := newPersonaAnalyzer(ctx, cfg, logger)
				if err != nil {
					return err
				}
				report, err := pa.Analyze(ctx, result.Interactors)
				if err != nil {
					logger.Warn("Persona analysis failed.", zap.Error(err))
					resp.PersonaError = err.Error()
				} else {
					resp.Personas = report.Personas
				}
			}

			return writeJSON(cmd, opts.output, resp)
		},
	}

	analyzeCmd.Flags().BoolVar(&opts.personas, "personas", false, "also group the interactors into audience personas (needs an LLM API key)")
	analyzeCmd.Flags().StringVarP(&opts.output, "output", "o", "", "write the JSON result to this file instead of stdout")
	analyzeCmd.Flags().StringVar(&opts.fromHTML, "from-html", "", "analyze a saved post page instead of a live one")
	return analyzeCmd
}

func analyzeLive(ctx context.Context, cfg *config.Config, postURL string, logger *zap.Logger) (engagement.AnalysisResult, error) {
	analyzer, err := newAnalyzer(cfg, logger)
	if err != nil {
		return engagement.AnalysisResult{}, err
	}
	defer closeAnalyzer(ctx, analyzer, logger)

	return analyzer.AnalyzePost(ctx, postURL)
}

func analyzeSnapshot(ctx context.Context, cfg *config.Config, path string, logger *zap.Logger) (engagement.AnalysisResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return engagement.AnalysisResult{}, fmt.Errorf("failed to open snapshot: %w", err)
	}
	defer f.Close()

	snap, err := engagement.NewSnapshot(f)
	if err != nil {
		return engagement.AnalysisResult{}, err
	}
	if err := snap.AwaitPost(ctx); err != nil {
		logger.Warn("Snapshot has no post container; fields may be missing.", zap.Error(err))
	}

	post, err := engagement.NewPostExtractor(logger).Extract(ctx, snap)
	if err != nil {
		return engagement.AnalysisResult{}, err
	}
	interactors, err := engagement.NewCollector(humanoid.NoDelay(), cfg.Automation.MaxScrollIterations, logger).Collect(ctx, snap)
	if err != nil {
		return engagement.AnalysisResult{}, err
	}
	return engagement.AnalysisResult{Post: post, Interactors: interactors}, nil
}

func writeJSON(cmd *cobra.Command, path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	data = append(data, '\n')

	if path == "" {
		_, err = cmd.OutOrStdout().Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	cmd.PrintErrf("Result written to %s\n", path)
	return nil
}
