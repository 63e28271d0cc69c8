package server

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/resume-studio/internal/types"
)

// ModelStatusRequest is the body of POST /admin/models/{id}/status.
type ModelStatusRequest struct {
	Status types.ModelStatus `json:"status" validate:"required,oneof=active inactive"`
}

// defaultUsageWindow is how far back GET /admin/usage looks without ?since.
const defaultUsageWindow = 30 * 24 * time.Hour

func pathUUID(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(r.PathValue(name))
	if err != nil {
		return uuid.Nil, &ErrValidation{Field: name, Message: "invalid id"}
	}
	return id, nil
}

func (s *Server) handleListModels(w http.ResponseWriter, r *http.Request) {
	models, err := s.svc.Admin.ListModels(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, map[string]any{"models": models})
}

func (s *Server) handleCreateModel(w http.ResponseWriter, r *http.Request) {
	var m types.Model
	if err := decodeJSON(w, r, &m); err != nil {
		writeError(w, r, err)
		return
	}
	m.ID = uuid.Nil

	created, err := s.svc.Admin.CreateModel(r.Context(), m)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusCreated, created)
}

func (s *Server) handleUpdateModel(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var m types.Model
	if err := decodeJSON(w, r, &m); err != nil {
		writeError(w, r, err)
		return
	}
	m.ID = id

	updated, err := s.svc.Admin.UpdateModel(r.Context(), m)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, updated)
}

func (s *Server) handleSetModelStatus(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var body ModelStatusRequest
	if err := s.decodeRequest(w, r, &body); err != nil {
		writeError(w, r, err)
		return
	}

	m, err := s.svc.Admin.SetModelStatus(r.Context(), id, body.Status)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, m)
}

func (s *Server) handleSetScenarioDefault(w http.ResponseWriter, r *http.Request) {
	var a types.RoutingAssignment
	if err := decodeJSON(w, r, &a); err != nil {
		writeError(w, r, err)
		return
	}

	saved, err := s.svc.Admin.SetScenarioDefault(r.Context(), types.ScenarioKey(r.PathValue("scenario")), a)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, saved)
}

func (s *Server) handleSetRoleOverride(w http.ResponseWriter, r *http.Request) {
	role := types.Role(r.PathValue("role"))
	if !role.Valid() {
		writeError(w, r, &ErrValidation{Field: "role", Message: "unknown role " + string(role)})
		return
	}
	var a types.RoutingAssignment
	if err := decodeJSON(w, r, &a); err != nil {
		writeError(w, r, err)
		return
	}

	saved, err := s.svc.Admin.SetRoleOverride(r.Context(), types.ScenarioKey(r.PathValue("scenario")), role, a)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, saved)
}

func (s *Server) handleUsage(w http.ResponseWriter, r *http.Request) {
	if s.svc.Usage == nil {
		errorResponse(w, http.StatusNotFound, "usage ledger is not configured")
		return
	}

	since := time.Now().Add(-defaultUsageWindow)
	if q := r.URL.Query().Get("since"); q != "" {
		t, err := time.Parse(time.RFC3339, q)
		if err != nil {
			writeError(w, r, &ErrValidation{Field: "since", Message: "expected an RFC 3339 timestamp"})
			return
		}
		since = t
	}

	usage, err := s.svc.Usage.UsageByScenario(r.Context(), since)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, map[string]any{"since": since, "usage": usage})
}
