// File: cmd/wiring.go
package cmd

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/postlens/internal/browser"
	"github.com/xkilldash9x/postlens/internal/config"
	"github.com/xkilldash9x/postlens/internal/humanoid"
	"github.com/xkilldash9x/postlens/internal/orchestrator"
	"github.com/xkilldash9x/postlens/internal/persona"
)

// closeTimeout bounds browser teardown after the command's context is gone.
const closeTimeout = 30 * time.Second

// sessionOptions is extended by tests to swap the browser launcher.
var sessionOptions []browser.SessionOption

// newAnalyzer wires credentials, pacing and a fresh browser session into an Analyzer.
func newAnalyzer(cfg *config.Config, logger *zap.Logger) (*orchestrator.Analyzer, error) {
	creds, err := config.ResolveCredentials(cfg.LinkedIn.Credentials)
	if err != nil {
		return nil, err
	}
	logger.Info("Credentials resolved.", zap.Object("credentials", creds))

	pacer := humanoid.New(cfg.Automation.Delays, logger)
	session := browser.NewSession(cfg, pacer, logger, sessionOptions...)
	return orchestrator.New(session, creds, pacer, cfg.Automation, logger)
}

// newPersonaAnalyzer returns nil when no LLM key is configured.
func newPersonaAnalyzer(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*persona.Analyzer, error) {
	if !cfg.LLM.Enabled() {
		return nil, nil
	}
	gen, err := persona.NewGeminiGenerator(ctx, cfg.LLM, logger)
	if err != nil {
		return nil, err
	}
	return persona.NewAnalyzer(gen, logger)
}

// closeAnalyzer tears the session down even when ctx is already cancelled.
func closeAnalyzer(ctx context.Context, a *orchestrator.Analyzer, logger *zap.Logger) {
	closeCtx, cancel := context.WithTimeout(browser.Detach(ctx), closeTimeout)
	defer cancel()
	if err := a.Close(closeCtx); err != nil {
		logger.Warn("Session cleanup reported an error.", zap.Error(err))
	}
}

func requireLLM(cfg *config.Config) error {
	if !cfg.LLM.Enabled() {
		return fmt.Errorf("persona analysis needs an API key (set GEMINI_API_KEY or llm.api_key)")
	}
	return nil
}
