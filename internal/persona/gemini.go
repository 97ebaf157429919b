// internal/persona/gemini.go
package persona

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/xkilldash9x/postlens/internal/config"
)

// contentGenerator is the slice of the genai Models service we call.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiGenerator implements Generator against the Gemini API.
type GeminiGenerator struct {
	models  contentGenerator
	cfg     config.LLMConfig
	logger  *zap.Logger
	backoff func() backoff.BackOff
}

var _ Generator = (*GeminiGenerator)(nil)

// NewGeminiGenerator creates a generator from cfg. An API key is required.
func NewGeminiGenerator(ctx context.Context, cfg config.LLMConfig, logger *zap.Logger) (*GeminiGenerator, error) {
	if !cfg.Enabled() {
		return nil, errors.New("gemini API key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return newGeminiGenerator(client.Models, cfg, logger), nil
}

func newGeminiGenerator(models contentGenerator, cfg config.LLMConfig, logger *zap.Logger) *GeminiGenerator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GeminiGenerator{
		models: models,
		cfg:    cfg,
		logger: logger.Named("llm_client.gemini"),
		backoff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.MaxElapsedTime = 2 * time.Minute
			b.MaxInterval = 30 * time.Second
			return b
		},
	}
}

// Generate sends prompt to the configured model, retrying transient failures.
func (g *GeminiGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	genCfg := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(g.cfg.Temperature),
	}
	if g.cfg.MaxTokens > 0 {
		genCfg.MaxOutputTokens = int32(g.cfg.MaxTokens)
	}

	var text string
	operation := func() error {
		callCtx := ctx
		if g.cfg.APITimeout > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(ctx, g.cfg.APITimeout)
			defer cancel()
		}

		start := time.Now()
		resp, err := g.models.GenerateContent(callCtx, g.cfg.Model, genai.Text(prompt), genCfg)
		if err != nil {
			return classify(ctx, err, g.logger)
		}

		out := strings.TrimSpace(resp.Text())
		if out == "" {
			return backoff.Permanent(errors.New("gemini API returned no text"))
		}

		fields := []zap.Field{zap.Duration("duration", time.Since(start))}
		if u := resp.UsageMetadata; u != nil {
			fields = append(fields,
				zap.Int32("prompt_tokens", u.PromptTokenCount),
				zap.Int32("completion_tokens", u.CandidatesTokenCount),
				zap.Int32("total_tokens", u.TotalTokenCount),
			)
		}
		g.logger.Info("LLM generation complete (Gemini)", fields...)
		text = out
		return nil
	}

	if err := backoff.Retry(operation, backoff.WithContext(g.backoff(), ctx)); err != nil {
		return "", err
	}
	return text, nil
}

// classify marks an error transient or permanent for the retry loop.
func classify(ctx context.Context, err error, logger *zap.Logger) error {
	if ctx.Err() != nil {
		return backoff.Permanent(ctx.Err())
	}

	var apiErr genai.APIError
	var apiErrPtr *genai.APIError
	code := 0
	switch {
	case errors.As(err, &apiErr):
		code = apiErr.Code
	case errors.As(err, &apiErrPtr):
		code = apiErrPtr.Code
	default:
		logger.Warn("Network error during LLM request, retrying...", zap.Error(err))
		return fmt.Errorf("gemini request failed: %w", err)
	}

	switch code {
	case http.StatusTooManyRequests, http.StatusServiceUnavailable, http.StatusInternalServerError:
		logger.Warn("Gemini API returned transient error, retrying...", zap.Int("status", code), zap.Error(err))
		return fmt.Errorf("gemini API error: %w", err)
	default:
		logger.Error("Gemini API returned error status", zap.Int("status", code), zap.Error(err))
		return backoff.Permanent(fmt.Errorf("gemini API error: %w", err))
	}
}
