// File: internal/server/server.go
// Description: HTTP front end for post analysis. Routing, middleware and the
// graceful shutdown sequence live here; request handling is in handlers.go.

package server

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/xkilldash9x/postlens/internal/config"
	"github.com/xkilldash9x/postlens/internal/engagement"
	"github.com/xkilldash9x/postlens/internal/persona"
)

// PostAnalyzer runs one post analysis. *orchestrator.Analyzer satisfies it.
type PostAnalyzer interface {
	AnalyzePost(ctx context.Context, url string) (engagement.AnalysisResult, error)
}

// PersonaAnalyzer summarizes interactors into personas. Optional.
type PersonaAnalyzer interface {
	Analyze(ctx context.Context, profiles []engagement.InteractorProfile) (persona.Report, error)
}

// Server hosts the analysis API.
type Server struct {
	cfg         config.ServerConfig
	allowedHost string
	analyzer    PostAnalyzer
	personas    PersonaAnalyzer
	limiter     *rate.Limiter
	logger      *zap.Logger
	router      chi.Router
}

// New builds the server and its routes. personas may be nil.
func New(cfg config.ServerConfig, allowedHost string, analyzer PostAnalyzer, personas PersonaAnalyzer, logger *zap.Logger) (*Server, error) {
	if analyzer == nil || logger == nil {
		return nil, fmt.Errorf("cannot initialize server with nil dependencies")
	}

	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}
	burst := cfg.RateBurst
	if burst < 1 {
		burst = 1
	}

	s := &Server{
		cfg:         cfg,
		allowedHost: allowedHost,
		analyzer:    analyzer,
		personas:    personas,
		limiter:     rate.NewLimiter(limit, burst),
		logger:      logger.Named("server"),
	}
	s.router = s.routes()
	return s, nil
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.recoverer)
	r.Use(s.cors)

	r.Get("/healthz", s.handleHealthCheck)

	r.Route("/api", func(r chi.Router) {
		if s.cfg.RequestTimeout > 0 {
			r.Use(middleware.Timeout(s.cfg.RequestTimeout))
		}
		r.Use(s.rateLimit)
		r.Post("/analyze-post", s.handleAnalyzePost)
	})
	return r
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.router }

// Run serves on cfg.Addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	httpServer := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("HTTP server starting.", zap.String("address", ln.Addr().String()))
		if err := httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		s.logger.Info("Shutting down HTTP server gracefully...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("HTTP server shutdown error", zap.Error(err))
			return err
		}
		return nil
	})

	err := g.Wait()
	s.logger.Info("HTTP server stopped.")
	return err
}

// cors provides the permissive CORS the dashboard front end relies on.
func (s *Server) cors(next http.Handler) http.Handler {
	origin := s.cfg.CORSOrigin
	if origin == "" {
		origin = "*"
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// rateLimit applies the global token bucket.
func (s *Server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		res := s.limiter.Reserve()
		if delay := res.Delay(); delay > 0 {
			res.Cancel()
			w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(delay.Seconds()))))
			s.respondWithError(w, r, http.StatusTooManyRequests, "RATE_LIMITED", "Too many analysis requests; try again later.")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// recoverer turns a handler panic into a 500 and a log entry.
func (s *Server) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				s.logger.Error("Panic in HTTP handler",
					zap.Any("panic", rec),
					zap.String("path", r.URL.Path),
					zap.String("request_id", middleware.GetReqID(r.Context())),
					zap.Stack("stack"),
				)
				s.respondWithError(w, r, http.StatusInternalServerError, "INTERNAL", "Internal server error.")
			}
		}()
		next.ServeHTTP(w, r)
	})
}
