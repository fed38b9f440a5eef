package middleware

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"eventticketing/internal/delivery/http/helpers"
	"eventticketing/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testLogger = slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))

// fakeTokenVerifier implements domain.TokenVerifier for tests.
type fakeTokenVerifier struct {
	principal domain.Principal
	err       error
}

func (f *fakeTokenVerifier) Verify(_ string) (domain.Principal, error) {
	if f.err != nil {
		return domain.Principal{}, f.err
	}
	return f.principal, nil
}

func TestRequireAuth(t *testing.T) {
	staff := domain.Principal{UserID: "user-123", Roles: []string{domain.RoleStaff}}

	tests := []struct {
		name          string
		authHeader    string
		verifier      domain.TokenVerifier
		wantStatus    int
		nextCalled    bool
		wantContextID string
	}{
		{"valid token sets context and calls next", "Bearer valid-token", &fakeTokenVerifier{principal: staff}, http.StatusOK, true, "user-123"},
		{"missing authorization header", "", &fakeTokenVerifier{principal: staff}, http.StatusUnauthorized, false, ""},
		{"invalid authorization format no Bearer prefix", "Basic abc", &fakeTokenVerifier{principal: staff}, http.StatusUnauthorized, false, ""},
		{"empty token after Bearer", "Bearer ", &fakeTokenVerifier{principal: staff}, http.StatusUnauthorized, false, ""},
		{"verifier returns error", "Bearer bad-token", &fakeTokenVerifier{err: errors.New("expired")}, http.StatusUnauthorized, false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nextCalled := false
			var captured domain.Principal
			next := func(w http.ResponseWriter, r *http.Request) {
				nextCalled = true
				captured, _ = PrincipalFromContext(r.Context())
				w.WriteHeader(http.StatusOK)
			}
			handler := RequireAuth(tt.verifier, testLogger)(next)

			req := httptest.NewRequest(http.MethodPost, "http://test/tickets", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			rr := httptest.NewRecorder()
			handler(rr, req)

			require.Equal(t, tt.wantStatus, rr.Code)
			assert.Equal(t, tt.nextCalled, nextCalled)
			if tt.nextCalled {
				assert.Equal(t, tt.wantContextID, captured.UserID)
				assert.True(t, captured.HasRole(domain.RoleStaff))
				return
			}
			var envelope helpers.APIResponse
			require.NoError(t, json.NewDecoder(rr.Body).Decode(&envelope))
			require.NotNil(t, envelope.Error)
			assert.Equal(t, helpers.ErrCodeUnauthorized, envelope.Error.Code)
		})
	}
}

func TestRequireRole(t *testing.T) {
	ok := func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) }
	handler := RequireRole(domain.RoleStaff, domain.RoleOrganizer)(ok)

	tests := []struct {
		name       string
		principal  *domain.Principal
		wantStatus int
	}{
		{"staff allowed", &domain.Principal{UserID: "u", Roles: []string{domain.RoleStaff}}, http.StatusNoContent},
		{"organizer allowed", &domain.Principal{UserID: "u", Roles: []string{domain.RoleOrganizer}}, http.StatusNoContent},
		{"attendee forbidden", &domain.Principal{UserID: "u", Roles: []string{domain.RoleAttendee}}, http.StatusForbidden},
		{"anonymous", nil, http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/checkin/t-1", nil)
			if tt.principal != nil {
				req = req.WithContext(SetPrincipal(req.Context(), *tt.principal))
			}
			rr := httptest.NewRecorder()
			handler(rr, req)
			assert.Equal(t, tt.wantStatus, rr.Code)
		})
	}
}
