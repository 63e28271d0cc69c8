package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/jonathan/resume-studio/internal/config"
	"github.com/jonathan/resume-studio/internal/db"
	"github.com/jonathan/resume-studio/internal/logx"
	"github.com/jonathan/resume-studio/internal/routing"
	"github.com/jonathan/resume-studio/internal/server/middleware"
	"github.com/jonathan/resume-studio/internal/server/ratelimit"
	"github.com/jonathan/resume-studio/internal/types"
)

const maxBodyBytes = 1 << 20

// ResumeGenerator tailors resumes and writes cover letters.
type ResumeGenerator interface {
	GenerateResume(ctx context.Context, base *types.ResumeContent, vacancy types.Vacancy, existing *types.GenerationResult, req types.Requester) (*types.GenerationResult, error)
	GenerateCoverLetter(ctx context.Context, base *types.ResumeContent, vacancy types.Vacancy, settings types.CoverLetterSettings, req types.Requester) (*types.CoverLetter, error)
}

// DetailScorer produces evidence-level score breakdowns.
type DetailScorer interface {
	ScoreDetails(ctx context.Context, before, after *types.ResumeContent, vacancy types.Vacancy, existing *types.ScoreDetails, req types.Requester) (*types.DetailedScoreResult, error)
}

// LetterHumanizer runs the critique/rewrite loop on an existing letter.
type LetterHumanizer interface {
	Humanize(ctx context.Context, content, subjectLine string, settings types.CoverLetterSettings, req types.Requester) (*types.HumanizeResult, error)
}

// ResultStore persists generation artifacts. A nil store disables persistence.
type ResultStore interface {
	SaveGeneration(ctx context.Context, req types.Requester, g *types.GenerationResult) error
	GetGeneration(ctx context.Context, id uuid.UUID) (*types.GenerationResult, error)
	SaveScoreDetails(ctx context.Context, generationID uuid.UUID, res *types.DetailedScoreResult) (uuid.UUID, error)
	LatestScoreDetails(ctx context.Context, generationID uuid.UUID) (*types.ScoreDetails, error)
}

// UsageReporter aggregates the LLM call ledger.
type UsageReporter interface {
	UsageByScenario(ctx context.Context, since time.Time) ([]db.ScenarioUsage, error)
}

// HealthChecker reports whether a backing service is reachable.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// Services are the collaborators the handlers call into.
type Services struct {
	Generator     ResumeGenerator
	Scorer        DetailScorer
	Humanizer     LetterHumanizer
	Resolver      routing.RouteResolver
	Admin         *routing.Admin
	FallbackModel *types.Model

	Results ResultStore
	Usage   UsageReporter
	Health  HealthChecker
}

// Config holds server configuration
type Config struct {
	Addr      string
	JWT       *config.JWTConfig
	Login     *config.AdminCredentials
	RateLimit *ratelimit.Config
}

// Server represents the HTTP server
type Server struct {
	httpServer  *http.Server
	svc         Services
	jwt         *JWTService
	login       *config.AdminCredentials
	rateLimiter *ratelimit.Limiter
	validate    *validator.Validate
}

// New creates a new server instance
func New(cfg Config, svc Services) (*Server, error) {
	if cfg.JWT == nil {
		return nil, fmt.Errorf("server requires a JWT configuration")
	}
	if svc.Generator == nil || svc.Scorer == nil || svc.Humanizer == nil || svc.Resolver == nil || svc.Admin == nil {
		return nil, fmt.Errorf("server requires generator, scorer, humanizer, resolver and admin services")
	}

	s := &Server{
		svc:         svc,
		jwt:         NewJWTService(cfg.JWT),
		login:       cfg.Login,
		rateLimiter: ratelimit.NewLimiter(cfg.RateLimit),
		validate:    validator.New(),
	}

	s.httpServer = &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.routes(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 300 * time.Second, // generation plus scoring can take minutes
		IdleTimeout:  60 * time.Second,
	}
	return s, nil
}

func (s *Server) routes() http.Handler {
	tokens := s.jwt.AsTokenValidator()
	open := middleware.OptionalAuth(tokens)
	admin := func(h http.HandlerFunc) http.Handler {
		return middleware.AuthMiddleware(tokens)(middleware.RequireRole(types.RoleSuperAdmin)(h))
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("POST /auth/token", s.handleToken)

	mux.Handle("POST /generations/resume", open(http.HandlerFunc(s.handleGenerateResume)))
	mux.Handle("POST /generations/score-details", open(http.HandlerFunc(s.handleScoreDetails)))
	mux.Handle("POST /cover-letters", open(http.HandlerFunc(s.handleCoverLetter)))
	mux.Handle("POST /cover-letters/humanize", open(http.HandlerFunc(s.handleHumanize)))
	mux.Handle("GET /routing/resolve", open(http.HandlerFunc(s.handleResolve)))

	mux.Handle("GET /admin/models", admin(s.handleListModels))
	mux.Handle("POST /admin/models", admin(s.handleCreateModel))
	mux.Handle("PUT /admin/models/{id}", admin(s.handleUpdateModel))
	mux.Handle("POST /admin/models/{id}/status", admin(s.handleSetModelStatus))
	mux.Handle("PUT /admin/routing/{scenario}/default", admin(s.handleSetScenarioDefault))
	mux.Handle("PUT /admin/routing/{scenario}/roles/{role}", admin(s.handleSetRoleOverride))
	mux.Handle("GET /admin/usage", admin(s.handleUsage))

	return s.withRateLimit(s.withLogging(s.withCORS(mux)))
}

// Handler returns the fully wrapped HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start serves until ctx is cancelled or the process receives SIGINT/SIGTERM,
// then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logx.Info().Str("addr", s.httpServer.Addr).Msg("server starting")
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			s.rateLimiter.Stop()
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
	}

	logx.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	err := s.httpServer.Shutdown(shutdownCtx)
	s.rateLimiter.Stop()
	if err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	logx.Info().Msg("server stopped")
	return nil
}

// Close releases background resources without serving.
func (s *Server) Close() {
	s.rateLimiter.Stop()
}

// withCORS adds CORS headers
func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// withRateLimit rejects clients over their endpoint budget with 429.
func (s *Server) withRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		allowed, info := s.rateLimiter.Allow(extractClientID(r), r.URL.Path, r.Method)
		setRateLimitHeaders(w, info)
		if !allowed {
			s.rateLimitResponse(w, r, info)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// withLogging adds request logging
func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		evt := logx.Info()
		if rec.status >= http.StatusInternalServerError {
			evt = logx.Warn()
		}
		evt.Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Int64("duration_ms", time.Since(start).Milliseconds()).
			Msg("request")
	})
}

// decodeJSON reads a size-limited JSON body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return &ErrValidation{Field: "body", Message: "request body is empty"}
		}
		return &ErrValidation{Field: "body", Message: err.Error()}
	}
	return nil
}

// decodeRequest decodes a request struct and checks its validate tags.
func (s *Server) decodeRequest(w http.ResponseWriter, r *http.Request, v any) error {
	if err := decodeJSON(w, r, v); err != nil {
		return err
	}
	if err := s.validate.Struct(v); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return &ErrValidation{Field: verrs[0].Field(), Message: fmt.Sprintf("failed %q check", verrs[0].Tag())}
		}
		return &ErrValidation{Field: "body", Message: err.Error()}
	}
	return nil
}

// jsonResponse writes a JSON response
func jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logx.Warn().Err(err).Msg("failed to encode response")
	}
}

// errorResponse writes an error JSON response
func errorResponse(w http.ResponseWriter, status int, message string) {
	jsonResponse(w, status, map[string]string{"error": message})
}

// writeError maps err to a status; server faults are logged and masked.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		logx.Error().Err(err).Str("path", r.URL.Path).Int("status", status).Msg("request failed")
		errorResponse(w, status, http.StatusText(status))
		return
	}
	errorResponse(w, status, err.Error())
}

// extractClientID uses the connection's IP address. Forwarded headers are
// not trusted.
func extractClientID(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// setRateLimitHeaders sets standard rate limit headers on the response.
func setRateLimitHeaders(w http.ResponseWriter, info ratelimit.Info) {
	if info.Limit > 0 {
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(info.Limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(info.Remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(info.ResetTime.Unix(), 10))
	}
}

// rateLimitResponse writes a 429 Too Many Requests response with rate limit information.
func (s *Server) rateLimitResponse(w http.ResponseWriter, r *http.Request, info ratelimit.Info) {
	response := map[string]any{
		"error":     "rate_limit_exceeded",
		"message":   "Rate limit exceeded. Please try again later.",
		"limit":     info.Limit,
		"remaining": info.Remaining,
	}
	if !info.ResetTime.IsZero() {
		response["reset_at"] = info.ResetTime.Format(time.RFC3339)
	}

	if info.RetryAfter > 0 {
		secs := int(info.RetryAfter.Round(time.Second).Seconds())
		if secs < 1 {
			secs = 1
		}
		response["retry_after"] = secs
		w.Header().Set("Retry-After", strconv.Itoa(secs))
	}

	logx.Warn().Str("client", extractClientID(r)).Str("path", r.URL.Path).Int("limit", info.Limit).Msg("rate limit exceeded")
	jsonResponse(w, http.StatusTooManyRequests, response)
}
