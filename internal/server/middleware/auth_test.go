package middleware

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/resume-studio/internal/types"
)

// testTokenValidator maps literal tokens to principals.
type testTokenValidator struct {
	valid map[string]testPrincipal
}

type testPrincipal struct {
	userID uuid.UUID
	role   types.Role
}

func (p testPrincipal) GetUserID() uuid.UUID { return p.userID }
func (p testPrincipal) GetRole() types.Role  { return p.role }

func (v *testTokenValidator) ValidateToken(token string) (Principal, error) {
	p, ok := v.valid[token]
	if !ok {
		return nil, fmt.Errorf("invalid token")
	}
	return p, nil
}

func newValidator() (*testTokenValidator, uuid.UUID) {
	id := uuid.New()
	return &testTokenValidator{valid: map[string]testPrincipal{
		"admin-token":  {userID: id, role: types.RoleSuperAdmin},
		"friend-token": {userID: id, role: types.RoleFriend},
		"bogus-role":   {userID: id, role: types.Role("root")},
	}}, id
}

// captureRequester returns a handler that records the requester it sees.
func captureRequester(got *types.Requester, called *bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*called = true
		req, ok := RequesterFrom(r.Context())
		if ok {
			*got = req
		}
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	validator, userID := newValidator()
	var got types.Requester
	var called bool

	h := AuthMiddleware(validator)(captureRequester(&got, &called))
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set("Authorization", "Bearer admin-token")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	require.True(t, called)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, types.Requester{Role: types.RoleSuperAdmin, UserID: userID}, got)
}

func TestAuthMiddleware_Rejects(t *testing.T) {
	validator, _ := newValidator()

	tests := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"missing Bearer prefix", "admin-token"},
		{"only Bearer", "Bearer"},
		{"extra fields", "Bearer admin-token extra"},
		{"unknown token", "Bearer nope"},
		{"unknown role", "Bearer bogus-role"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got types.Requester
			var called bool
			h := AuthMiddleware(validator)(captureRequester(&got, &called))

			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)

			assert.False(t, called)
			assert.Equal(t, http.StatusUnauthorized, w.Code)
		})
	}
}

func TestAuthMiddleware_CaseInsensitiveScheme(t *testing.T) {
	validator, _ := newValidator()
	var got types.Requester
	var called bool

	h := AuthMiddleware(validator)(captureRequester(&got, &called))
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set("Authorization", "bEaReR   friend-token")
	h.ServeHTTP(httptest.NewRecorder(), req)

	assert.True(t, called)
	assert.Equal(t, types.RoleFriend, got.Role)
}

func TestOptionalAuth(t *testing.T) {
	validator, _ := newValidator()

	t.Run("anonymous is public", func(t *testing.T) {
		var got types.Requester
		var called bool
		h := OptionalAuth(validator)(captureRequester(&got, &called))
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/generations/resume", nil))

		assert.True(t, called)
		assert.Equal(t, types.RolePublic, got.Role)
		assert.Equal(t, uuid.Nil, got.UserID)
	})

	t.Run("invalid token still rejected", func(t *testing.T) {
		var got types.Requester
		var called bool
		h := OptionalAuth(validator)(captureRequester(&got, &called))
		req := httptest.NewRequest(http.MethodPost, "/generations/resume", nil)
		req.Header.Set("Authorization", "Bearer nope")
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)

		assert.False(t, called)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestRequireRole(t *testing.T) {
	validator, _ := newValidator()
	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) })
	h := AuthMiddleware(validator)(RequireRole(types.RoleSuperAdmin)(ok))

	tests := []struct {
		token string
		want  int
	}{
		{"admin-token", http.StatusNoContent},
		{"friend-token", http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/admin/models", nil)
			req.Header.Set("Authorization", "Bearer "+tt.token)
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)
			assert.Equal(t, tt.want, w.Code)
		})
	}

	// without an auth middleware in front there is no requester
	w := httptest.NewRecorder()
	RequireRole(types.RoleSuperAdmin)(ok).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/admin/models", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
