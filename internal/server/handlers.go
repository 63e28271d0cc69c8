package server

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/resume-studio/internal/logx"
	"github.com/jonathan/resume-studio/internal/routing"
	"github.com/jonathan/resume-studio/internal/server/middleware"
	"github.com/jonathan/resume-studio/internal/types"
)

// GenerateResumeRequest is the body of POST /generations/resume.
type GenerateResumeRequest struct {
	BaseResume types.ResumeContent `json:"base_resume"`
	Vacancy    types.Vacancy       `json:"vacancy"`
	// ExistingID regenerates a stored generation in place.
	ExistingID *uuid.UUID `json:"existing_id,omitempty"`
}

// ScoreDetailsRequest is the body of POST /generations/score-details. When
// GenerationID names a stored generation, After defaults to its content and
// previously extracted signals are reused.
type ScoreDetailsRequest struct {
	GenerationID *uuid.UUID           `json:"generation_id,omitempty"`
	Before       types.ResumeContent  `json:"before"`
	After        *types.ResumeContent `json:"after,omitempty"`
	Vacancy      types.Vacancy        `json:"vacancy"`
}

// CoverLetterRequest is the body of POST /cover-letters.
type CoverLetterRequest struct {
	BaseResume types.ResumeContent       `json:"base_resume"`
	Vacancy    types.Vacancy             `json:"vacancy"`
	Settings   types.CoverLetterSettings `json:"settings"`
}

// HumanizeRequest is the body of POST /cover-letters/humanize.
type HumanizeRequest struct {
	Content     string                    `json:"content" validate:"required"`
	SubjectLine string                    `json:"subject_line"`
	Settings    types.CoverLetterSettings `json:"settings"`
}

// TokenRequest is the body of POST /auth/token.
type TokenRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// ResolveResponse is returned by GET /routing/resolve.
type ResolveResponse struct {
	Resolved bool                 `json:"resolved"`
	Route    *types.ResolvedRoute `json:"route"`
}

func requesterOf(r *http.Request) types.Requester {
	if req, ok := middleware.RequesterFrom(r.Context()); ok {
		return req
	}
	return types.Requester{Role: types.RolePublic}
}

func checkInputs(base *types.ResumeContent, vacancy types.Vacancy) error {
	if base.Text() == "" {
		return &ErrValidation{Field: "base_resume", Message: "resume is empty"}
	}
	if strings.TrimSpace(vacancy.Description) == "" && strings.TrimSpace(vacancy.Title) == "" {
		return &ErrValidation{Field: "vacancy", Message: "vacancy needs a title or description"}
	}
	return nil
}

// handleHealth reports liveness, and database reachability when configured.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.svc.Health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.svc.Health.Ping(ctx); err != nil {
			logx.Warn().Err(err).Msg("health check failed")
			jsonResponse(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
			return
		}
	}
	jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleToken exchanges operator credentials for a super_admin token.
func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	if s.login == nil || !s.login.Enabled() {
		errorResponse(w, http.StatusNotFound, "operator login is not configured")
		return
	}

	var body TokenRequest
	if err := s.decodeRequest(w, r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	if !s.login.Verify(body.Username, body.Password) {
		logx.Warn().Str("client", extractClientID(r)).Msg("operator login failed")
		writeError(w, r, &ErrInvalidCredentials{})
		return
	}

	userID := uuid.NewSHA1(uuid.NameSpaceURL, []byte("resume-studio:operator:"+body.Username))
	token, err := s.jwt.GenerateToken(userID, types.RoleSuperAdmin)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, map[string]any{
		"token":      token,
		"token_type": "Bearer",
		"expires_in": s.jwt.config.ExpirationHours * 3600,
	})
}

// ownedGeneration loads a stored generation for req. Generations owned by
// someone else are reported as not found.
func (s *Server) ownedGeneration(ctx context.Context, id uuid.UUID, req types.Requester) (*types.GenerationResult, error) {
	g, err := s.svc.Results.GetGeneration(ctx, id)
	if err != nil {
		return nil, err
	}
	if g == nil || g.UserID != req.UserID {
		return nil, &ErrNotFound{Resource: "generation", ID: id.String()}
	}
	return g, nil
}

func (s *Server) handleGenerateResume(w http.ResponseWriter, r *http.Request) {
	var body GenerateResumeRequest
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	if err := checkInputs(&body.BaseResume, body.Vacancy); err != nil {
		writeError(w, r, err)
		return
	}

	req := requesterOf(r)
	var existing *types.GenerationResult
	if body.ExistingID != nil {
		if s.svc.Results == nil {
			writeError(w, r, &ErrValidation{Field: "existing_id", Message: "generations are not stored"})
			return
		}
		g, err := s.ownedGeneration(r.Context(), *body.ExistingID, req)
		if err != nil {
			writeError(w, r, err)
			return
		}
		existing = g
	}

	result, err := s.svc.Generator.GenerateResume(r.Context(), &body.BaseResume, body.Vacancy, existing, req)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if s.svc.Results != nil {
		if err := s.svc.Results.SaveGeneration(r.Context(), req, result); err != nil {
			logx.Error().Err(err).Str("generation_id", result.ID.String()).Msg("failed to store generation")
		}
	}
	jsonResponse(w, http.StatusOK, result)
}

func (s *Server) handleScoreDetails(w http.ResponseWriter, r *http.Request) {
	var body ScoreDetailsRequest
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, r, err)
		return
	}

	var existing *types.ScoreDetails
	after := body.After
	if body.GenerationID != nil && s.svc.Results != nil {
		g, err := s.ownedGeneration(r.Context(), *body.GenerationID, requesterOf(r))
		if err != nil {
			writeError(w, r, err)
			return
		}
		if after == nil {
			after = &g.Content
		}
		if existing, err = s.svc.Results.LatestScoreDetails(r.Context(), *body.GenerationID); err != nil {
			logx.Warn().Err(err).Msg("failed to load previous score details")
			existing = nil
		}
	}
	if err := checkInputs(&body.Before, body.Vacancy); err != nil {
		writeError(w, r, err)
		return
	}
	if after == nil {
		writeError(w, r, &ErrValidation{Field: "after", Message: "after resume or generation_id is required"})
		return
	}

	result, err := s.svc.Scorer.ScoreDetails(r.Context(), &body.Before, after, body.Vacancy, existing, requesterOf(r))
	if err != nil {
		writeError(w, r, err)
		return
	}

	if body.GenerationID != nil && s.svc.Results != nil {
		if _, err := s.svc.Results.SaveScoreDetails(r.Context(), *body.GenerationID, result); err != nil {
			logx.Error().Err(err).Str("generation_id", body.GenerationID.String()).Msg("failed to store score details")
		}
	}
	jsonResponse(w, http.StatusOK, result)
}

func (s *Server) handleCoverLetter(w http.ResponseWriter, r *http.Request) {
	var body CoverLetterRequest
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	if err := checkInputs(&body.BaseResume, body.Vacancy); err != nil {
		writeError(w, r, err)
		return
	}

	letter, err := s.svc.Generator.GenerateCoverLetter(r.Context(), &body.BaseResume, body.Vacancy, body.Settings, requesterOf(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, letter)
}

func (s *Server) handleHumanize(w http.ResponseWriter, r *http.Request) {
	var body HumanizeRequest
	if err := s.decodeRequest(w, r, &body); err != nil {
		writeError(w, r, err)
		return
	}

	result, err := s.svc.Humanizer.Humanize(r.Context(), body.Content, body.SubjectLine, body.Settings, requesterOf(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, result)
}

// handleResolve shows which route a scenario resolves to. Only super admins
// may ask on behalf of another role.
func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	req := requesterOf(r)
	scenario := types.ScenarioKey(r.URL.Query().Get("scenario"))
	if scenario == "" {
		writeError(w, r, &ErrValidation{Field: "scenario", Message: "scenario is required"})
		return
	}

	role := req.Role
	if q := r.URL.Query().Get("role"); q != "" {
		role = types.Role(q)
		if !role.Valid() {
			writeError(w, r, &ErrValidation{Field: "role", Message: "unknown role " + q})
			return
		}
		if role != req.Role && req.Role != types.RoleSuperAdmin {
			errorResponse(w, http.StatusForbidden, "Forbidden")
			return
		}
	}

	route, err := s.svc.Resolver.Resolve(r.Context(), role, scenario)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if route == nil {
		jsonResponse(w, http.StatusOK, ResolveResponse{
			Resolved: false,
			Route:    routing.FallbackRoute(role, scenario, s.svc.FallbackModel),
		})
		return
	}
	jsonResponse(w, http.StatusOK, ResolveResponse{Resolved: true, Route: route})
}
