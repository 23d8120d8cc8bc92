package testutil

import (
	"context"
	"net/http"
	"net/http/httptest"

	"github.com/go-chi/chi/v5"

	"github.com/dalemusser/rosterhub/internal/app/system/auth"
	"github.com/dalemusser/rosterhub/internal/domain/models"
)

// WithChiURLParam adds a chi URL parameter to the request context.
// Use this in handler tests that need to access chi.URLParam values.
func WithChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// TeacherIdentity returns a verified teacher identity for handler tests.
func TeacherIdentity(accountID, email string) auth.Identity {
	return auth.Identity{
		AccountID: accountID,
		Email:     email,
		Verified:  true,
		Role:      models.RoleTeacher,
	}
}

// GuardianIdentity returns a verified guardian identity for handler tests.
func GuardianIdentity(accountID, email string) auth.Identity {
	return auth.Identity{
		AccountID: accountID,
		Email:     email,
		Verified:  true,
		Role:      models.RoleGuardian,
	}
}

// NewAuthenticatedRequest creates an HTTP request with an identity in
// context, bypassing token verification.
func NewAuthenticatedRequest(method, target string, id auth.Identity) *http.Request {
	req := httptest.NewRequest(method, target, nil)
	return auth.WithTestIdentity(req, id)
}
