// File: internal/orchestrator/orchestrator.go
// Description: Sequences one post analysis against a long-lived browser
// session: initialize, authenticate, navigate, extract, collect.

package orchestrator

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/xkilldash9x/postlens/internal/config"
	"github.com/xkilldash9x/postlens/internal/engagement"
	"github.com/xkilldash9x/postlens/internal/humanoid"
)

// Session is the lifecycle surface the analyzer drives. *browser.Session
// satisfies it.
type Session interface {
	Initialize(ctx context.Context) error
	Login(ctx context.Context, creds config.Credentials) error
	Navigate(ctx context.Context, url string) error
	Page() engagement.PageReader
	Cleanup(ctx context.Context) error
}

// Analyzer owns one Session and runs analyses against it one at a time.
type Analyzer struct {
	session    Session
	creds      config.Credentials
	pacer      *humanoid.Policy
	extractor  *engagement.PostExtractor
	collector  *engagement.Collector
	maxRetries int
	logger     *zap.Logger

	// slot serializes AnalyzePost calls; the page is exclusively owned by one call.
	slot *semaphore.Weighted
}

// New creates an Analyzer. The session is not started until the first call.
func New(
	session Session,
	creds config.Credentials,
	pacer *humanoid.Policy,
	automation config.AutomationConfig,
	logger *zap.Logger,
) (*Analyzer, error) {
	if session == nil || pacer == nil || logger == nil {
		return nil, fmt.Errorf("cannot initialize analyzer with nil dependencies")
	}
	if creds.IsZero() {
		return nil, config.ErrMissingCredentials
	}
	l := logger.Named("analyzer")
	return &Analyzer{
		session:    session,
		creds:      creds,
		pacer:      pacer,
		extractor:  engagement.NewPostExtractor(l),
		collector:  engagement.NewCollector(pacer, automation.MaxScrollIterations, l),
		maxRetries: automation.MaxRetries,
		logger:     l,
		slot:       semaphore.NewWeighted(1),
	}, nil
}

// AnalyzePost extracts the post at url and the profiles that reacted to it.
// Session, authentication and navigation failures abort the call with their
// originating kind; interactor collection failures yield an empty list.
func (a *Analyzer) AnalyzePost(ctx context.Context, url string) (engagement.AnalysisResult, error) {
	if err := a.slot.Acquire(ctx, 1); err != nil {
		return engagement.AnalysisResult{}, err
	}
	defer a.slot.Release(1)

	logger := a.logger.With(zap.String("analysis_id", uuid.New().String()), zap.String("url", url))
	logger.Info("Starting post analysis.")

	// 1. Browser (reused when already live).
	if err := a.session.Initialize(ctx); err != nil {
		return engagement.AnalysisResult{}, err
	}

	// 2. Authentication (no-op once authenticated).
	if err := a.session.Login(ctx, a.creds); err != nil {
		logger.Error("Authentication failed.", zap.String("code", string(engagement.CodeOf(err))), zap.Error(err))
		return engagement.AnalysisResult{}, err
	}

	// 3. Navigation, retried on transient failure.
	var page engagement.PageReader
	err := a.pacer.Retry(ctx, a.maxRetries, func(ctx context.Context) error {
		if err := a.session.Navigate(ctx, url); err != nil {
			return err
		}
		page = a.session.Page()
		if page == nil {
			return engagement.NewError(engagement.ErrCodeInvalidState, "analyzer.AnalyzePost", errors.New("session has no page"))
		}
		if err := page.AwaitPost(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return engagement.NewError(engagement.ErrCodeNavigation, "analyzer.AwaitPost", err)
		}
		return nil
	})
	if err != nil {
		logger.Error("Navigation failed.", zap.Int("max_attempts", a.maxRetries), zap.Error(err))
		return engagement.AnalysisResult{}, err
	}

	// 4. The post itself.
	post, err := a.extractor.Extract(ctx, page)
	if err != nil {
		return engagement.AnalysisResult{}, err
	}

	// 5. Give the page a moment before touching the reactions control.
	if err := a.pacer.Pause(ctx, humanoid.General); err != nil {
		return engagement.AnalysisResult{}, err
	}

	// 6. Interactors; degraded failures come back as an empty list.
	interactors, err := a.collector.Collect(ctx, page)
	if err != nil {
		return engagement.AnalysisResult{}, err
	}

	logger.Info("Post analysis complete.", zap.Int("interactors", len(interactors)))
	return engagement.AnalysisResult{Post: post, Interactors: interactors}, nil
}

// Close releases the session. It does not wait for an in-flight analysis;
// that call fails promptly once the browser is gone.
func (a *Analyzer) Close(ctx context.Context) error {
	a.logger.Info("Closing analyzer session.")
	return a.session.Cleanup(ctx)
}
