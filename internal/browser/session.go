// internal/browser/session.go
package browser

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xkilldash9x/postlens/internal/config"
	"github.com/xkilldash9x/postlens/internal/engagement"
	"github.com/xkilldash9x/postlens/internal/humanoid"
)

// State is the lifecycle position of a Session.
type State int

const (
	StateUninitialized State = iota
	StateReady
	StateAuthenticated
	// StateClosed is terminal; a cleaned-up session cannot be reused.
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateReady:
		return "ready"
	case StateAuthenticated:
		return "authenticated"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Login form selectors and challenge markers.
const (
	selectorUsername          = "#username"
	selectorPassword          = "#password"
	selectorLoginSubmit       = `button[type="submit"]`
	selectorSecurityChallenge = ".security-verification-container"
	challengePathMarker       = "/checkpoint/challenge"
)

// Session owns one browser and walks it through
// Uninitialized -> Ready -> Authenticated -> Closed.
type Session struct {
	id       string
	launch   Launcher
	loginURL string
	pacer    *humanoid.Policy
	logger   *zap.Logger

	// opMu serializes lifecycle operations. Cleanup does not take it, so it
	// can interrupt an operation that is blocked on the browser.
	opMu sync.Mutex

	mu     sync.Mutex
	state  State
	driver Driver
}

// SessionOption customizes a Session.
type SessionOption func(*Session)

// WithLauncher replaces the chromedp launcher.
func WithLauncher(l Launcher) SessionOption {
	return func(s *Session) { s.launch = l }
}

// NewSession creates an uninitialized session. No browser is started until Initialize.
func NewSession(cfg *config.Config, pacer *humanoid.Policy, logger *zap.Logger, opts ...SessionOption) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	if pacer == nil {
		pacer = humanoid.NoDelay()
	}
	id := uuid.New().String()
	l := logger.Named("session").With(zap.String("session_id", id))

	s := &Session{
		id:       id,
		loginURL: cfg.LinkedIn.LoginURL,
		pacer:    pacer,
		logger:   l,
	}
	s.launch = NewLauncher(cfg.Browser, cfg.Automation, pacer, l)
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ID returns the session's unique identifier.
func (s *Session) ID() string { return s.id }

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) current() (State, Driver) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state, s.driver
}

// Page returns the reader for the session's tab, or nil before Initialize.
func (s *Session) Page() engagement.PageReader {
	_, drv := s.current()
	if drv == nil {
		return nil
	}
	return drv.Page()
}

// Initialize launches the browser with stealth settings. It is a no-op when
// a browser is already live.
func (s *Session) Initialize(ctx context.Context) error {
	const op = "session.Initialize"
	s.opMu.Lock()
	defer s.opMu.Unlock()

	switch st, _ := s.current(); st {
	case StateReady, StateAuthenticated:
		return nil
	case StateClosed:
		return engagement.NewError(engagement.ErrCodeInvalidState, op, errors.New("session has been cleaned up"))
	}

	s.logger.Info("Launching browser.")
	drv, err := s.launch(ctx)
	if err != nil {
		s.logger.Error("Browser launch failed.", zap.Error(err))
		return engagement.NewError(engagement.ErrCodeSessionInit, op, err)
	}

	s.mu.Lock()
	if s.state == StateClosed {
		// Cleanup ran while the browser was starting.
		s.mu.Unlock()
		_ = drv.Close(Detach(ctx))
		return engagement.NewError(engagement.ErrCodeInvalidState, op, errors.New("session was cleaned up during launch"))
	}
	s.driver = drv
	s.state = StateReady
	s.mu.Unlock()

	s.logger.Info("Session ready.")
	return nil
}

// Login authenticates with creds. It is a no-op once authenticated and
// requires a Ready session otherwise.
func (s *Session) Login(ctx context.Context, creds config.Credentials) error {
	const op = "session.Login"
	s.opMu.Lock()
	defer s.opMu.Unlock()

	st, drv := s.current()
	switch st {
	case StateAuthenticated:
		s.logger.Debug("Already authenticated; skipping login.")
		return nil
	case StateReady:
	default:
		return engagement.NewError(engagement.ErrCodeInvalidState, op, fmt.Errorf("cannot log in from state %s", st))
	}

	s.logger.Info("Logging in.", zap.Object("credentials", creds))
	if err := s.login(ctx, drv, creds); err != nil {
		code := engagement.ErrCodeAuthentication
		var typed *engagement.Error
		if errors.As(err, &typed) {
			if !strings.Contains(err.Error(), creds.Secret()) {
				return err
			}
			code = typed.Code
		}
		return engagement.NewError(code, op, redactError(err, creds.Secret()))
	}

	s.mu.Lock()
	if s.state != StateReady {
		s.mu.Unlock()
		return engagement.NewError(engagement.ErrCodeInvalidState, op, errors.New("session was cleaned up during login"))
	}
	s.state = StateAuthenticated
	s.mu.Unlock()
	s.logger.Info("Login succeeded.")

	// Let the landing page settle like a person would.
	return s.pacer.Pause(ctx, humanoid.Navigation)
}

func (s *Session) login(ctx context.Context, drv Driver, creds config.Credentials) error {
	// 1. Open the login form.
	if err := drv.Navigate(ctx, s.loginURL); err != nil {
		return fmt.Errorf("failed to open login page: %w", err)
	}
	if err := s.pacer.Pause(ctx, humanoid.General); err != nil {
		return err
	}

	// 2. Fill it in at typing speed.
	if err := drv.Type(ctx, selectorUsername, creds.Identifier()); err != nil {
		return fmt.Errorf("failed to enter identifier: %w", err)
	}
	if err := s.pacer.Pause(ctx, humanoid.General); err != nil {
		return err
	}
	if err := drv.Type(ctx, selectorPassword, creds.Secret()); err != nil {
		return fmt.Errorf("failed to enter secret: %w", err)
	}
	if err := s.pacer.Pause(ctx, humanoid.General); err != nil {
		return err
	}

	// 3. Submit and wait for the result page.
	if err := drv.Submit(ctx, selectorLoginSubmit); err != nil {
		return fmt.Errorf("failed to submit login form: %w", err)
	}

	// 4. A verification wall cannot be handled automatically.
	challenged, err := s.challengePresent(ctx, drv)
	if err != nil {
		return fmt.Errorf("failed to inspect post-login page: %w", err)
	}
	if challenged {
		s.logger.Warn("Security verification required; manual intervention needed.")
		return engagement.NewError(engagement.ErrCodeSecurityChallenge, "session.Login", nil)
	}
	return nil
}

func (s *Session) challengePresent(ctx context.Context, drv Driver) (bool, error) {
	found, err := drv.Exists(ctx, selectorSecurityChallenge)
	if err != nil {
		return false, err
	}
	if found {
		return true, nil
	}
	loc, err := drv.Location(ctx)
	if err != nil {
		return false, err
	}
	return strings.Contains(loc, challengePathMarker), nil
}

// redact strips secret from msg in case a lower layer echoed it.
func redact(msg, secret string) string {
	if secret == "" {
		return msg
	}
	return strings.ReplaceAll(msg, secret, "[REDACTED]")
}

// redactedError carries a scrubbed message. Only a context error survives
// as the cause.
type redactedError struct {
	msg   string
	cause error
}

func (e *redactedError) Error() string { return e.msg }
func (e *redactedError) Unwrap() error { return e.cause }

// redactError returns err unchanged when its message is clean.
func redactError(err error, secret string) error {
	if err == nil || secret == "" || !strings.Contains(err.Error(), secret) {
		return err
	}
	r := &redactedError{msg: redact(err.Error(), secret)}
	switch {
	case errors.Is(err, context.Canceled):
		r.cause = context.Canceled
	case errors.Is(err, context.DeadlineExceeded):
		r.cause = context.DeadlineExceeded
	}
	return r
}

// Navigate loads url in the authenticated tab. Failures are NavigationErrors
// and never change the lifecycle state.
func (s *Session) Navigate(ctx context.Context, url string) error {
	const op = "session.Navigate"
	s.opMu.Lock()
	defer s.opMu.Unlock()

	st, drv := s.current()
	if st != StateAuthenticated {
		return engagement.NewError(engagement.ErrCodeInvalidState, op, fmt.Errorf("cannot navigate from state %s", st))
	}
	if err := drv.Navigate(ctx, url); err != nil {
		return engagement.NewError(engagement.ErrCodeNavigation, op, err)
	}
	return nil
}

// Cleanup kills the browser and marks the session closed. It is safe to
// call from any state, repeatedly, and concurrently with other operations,
// which then fail promptly.
func (s *Session) Cleanup(ctx context.Context) error {
	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		return nil
	}
	drv := s.driver
	s.driver = nil
	s.state = StateClosed
	s.mu.Unlock()

	if drv == nil {
		s.logger.Debug("Cleanup with no live browser.")
		return nil
	}
	if err := drv.Close(Detach(ctx)); err != nil {
		s.logger.Warn("Browser did not close cleanly.", zap.Error(err))
		return err
	}
	s.logger.Info("Session cleaned up.")
	return nil
}
