// File: internal/server/handlers.go
package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/postlens/internal/engagement"
	"github.com/xkilldash9x/postlens/internal/persona"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const maxRequestBody = 64 << 10

// AnalyzeRequest is the body of POST /api/analyze-post.
type AnalyzeRequest struct {
	PostURL string `json:"postUrl"`
}

// AnalyzeResponse is the success body of POST /api/analyze-post.
type AnalyzeResponse struct {
	Success      bool                           `json:"success"`
	PostURL      string                         `json:"postUrl"`
	Post         engagement.PostRecord          `json:"post"`
	Interactors  []engagement.InteractorProfile `json:"interactors"`
	ProfileCount int                            `json:"profileCount"`
	Personas     []persona.Persona              `json:"personas,omitempty"`
	PersonaError string                         `json:"personaError,omitempty"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
}

func (s *Server) handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func (s *Server) handleAnalyzePost(w http.ResponseWriter, r *http.Request) {
	logger := s.logger.With(zap.String("request_id", middleware.GetReqID(r.Context())))

	var req AnalyzeRequest
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRequestBody))
	if err == nil {
		err = json.Unmarshal(body, &req)
	}
	if err != nil {
		s.respondWithError(w, r, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body.")
		return
	}

	postURL := strings.TrimSpace(req.PostURL)
	if postURL == "" {
		s.respondWithError(w, r, http.StatusBadRequest, "INVALID_REQUEST", "Missing required field: postUrl")
		return
	}
	if !strings.Contains(postURL, s.allowedHost) {
		s.respondWithError(w, r, http.StatusBadRequest, "INVALID_REQUEST", "Invalid URL: Must be a LinkedIn post URL")
		return
	}

	logger.Info("Analyzing post.", zap.String("url", postURL))
	result, err := s.analyzer.AnalyzePost(r.Context(), postURL)
	if err != nil {
		status, code := statusFor(err)
		logger.Error("Post analysis failed.", zap.Int("status", status), zap.String("code", code), zap.Error(err))
		s.respondWithError(w, r, status, code, err.Error())
		return
	}

	resp := AnalyzeResponse{
		Success:      true,
		PostURL:      postURL,
		Post:         result.Post,
		Interactors:  result.Interactors,
		ProfileCount: len(result.Interactors),
	}
	if s.personas != nil {
		report, err := s.personas.Analyze(r.Context(), result.Interactors)
		if err != nil {
			logger.Warn("Persona analysis failed; returning extraction only.", zap.Error(err))
			resp.PersonaError = err.Error()
		} else {
			resp.Personas = report.Personas
		}
	}
	s.respondJSON(w, r, http.StatusOK, resp)
}

// statusFor maps an analysis failure to an HTTP status and error code.
func statusFor(err error) (int, string) {
	if errors.Is(err, context.Canceled) {
		return http.StatusServiceUnavailable, "CANCELLED"
	}

	switch code := engagement.CodeOf(err); code {
	case engagement.ErrCodeSessionInit, engagement.ErrCodeSecurityChallenge:
		return http.StatusServiceUnavailable, string(code)
	case engagement.ErrCodeAuthentication:
		return http.StatusBadGateway, string(code)
	case engagement.ErrCodeNavigation:
		return http.StatusGatewayTimeout, string(code)
	case "":
		if errors.Is(err, context.DeadlineExceeded) {
			return http.StatusGatewayTimeout, "TIMEOUT"
		}
		return http.StatusInternalServerError, "INTERNAL"
	default:
		return http.StatusInternalServerError, string(code)
	}
}

func (s *Server) respondWithError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	s.respondJSON(w, r, status, ErrorResponse{Success: false, Error: message, Code: code})
}

func (s *Server) respondJSON(w http.ResponseWriter, r *http.Request, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Failed to encode response", zap.Error(err), zap.String("path", r.URL.Path))
	}
}
