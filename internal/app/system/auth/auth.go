// Package auth consumes identities issued by the external identity provider.
//
// RosterHub never authenticates anyone itself: the provider signs a token
// carrying the opaque account id, the email, and whether that email has been
// verified. This package verifies the signature and puts the claims into the
// request context; everything downstream treats the identity as given.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/dalemusser/rosterhub/internal/app/system/normalize"
)

// Identity is what the identity provider asserts about the caller.
type Identity struct {
	AccountID string
	Email     string // lowercase
	Verified  bool
	Role      string // teacher | guardian
}

// Claims is the token payload the identity provider signs.
type Claims struct {
	jwt.RegisteredClaims
	Email    string `json:"email"`
	Verified bool   `json:"email_verified"`
	Role     string `json:"role"`
}

var (
	ErrNoToken      = errors.New("missing bearer token")
	ErrInvalidToken = errors.New("invalid identity token")
)

// Verifier validates identity-provider tokens.
type Verifier struct {
	key    []byte
	issuer string
	log    *zap.Logger
}

// NewVerifier builds a Verifier for tokens signed with the shared key by the
// given issuer.
func NewVerifier(key, issuer string, logger *zap.Logger) *Verifier {
	return &Verifier{key: []byte(key), issuer: issuer, log: logger}
}

// Verify parses and validates a raw token string.
func (v *Verifier) Verify(raw string) (Identity, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims,
		func(t *jwt.Token) (any, error) { return v.key, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(v.issuer),
	)
	if err != nil {
		return Identity{}, ErrInvalidToken
	}
	if claims.Subject == "" || claims.Email == "" {
		return Identity{}, ErrInvalidToken
	}
	return Identity{
		AccountID: claims.Subject,
		Email:     normalize.Email(claims.Email),
		Verified:  claims.Verified,
		Role:      claims.Role,
	}, nil
}

type ctxKey string

const identityKey ctxKey = "identity"

// CurrentIdentity returns the identity & "found?" flag.
func CurrentIdentity(r *http.Request) (Identity, bool) {
	id, ok := r.Context().Value(identityKey).(Identity)
	return id, ok
}

// LoadIdentity injects the caller's identity into context when a valid
// bearer token is present. Requests without a token pass through untouched;
// RequireVerified decides whether that is acceptable per route.
func (v *Verifier) LoadIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := bearerToken(r)
		if raw != "" {
			id, err := v.Verify(raw)
			if err != nil {
				v.log.Debug("identity token rejected", zap.Error(err))
			} else {
				r = r.WithContext(context.WithValue(r.Context(), identityKey, id))
			}
		}
		next.ServeHTTP(w, r)
	})
}

// RequireVerified ensures the caller has an identity with a verified email.
// Unverified accounts can exist but are never reconciled or allowed to
// mutate rosters.
func RequireVerified(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := CurrentIdentity(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		if !id.Verified {
			writeError(w, http.StatusForbidden, "email not verified")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireRole ensures the caller's identity carries one of the given roles.
func RequireRole(allowed ...string) func(http.Handler) http.Handler {
	set := make(map[string]struct{}, len(allowed))
	for _, role := range allowed {
		set[strings.ToLower(strings.TrimSpace(role))] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := CurrentIdentity(r)
			if !ok {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			if _, allowed := set[id.Role]; !allowed {
				writeError(w, http.StatusForbidden, "forbidden")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// WithTestIdentity injects an identity directly into the request context.
// For handler tests only; bypasses token verification.
func WithTestIdentity(r *http.Request, id Identity) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), identityKey, id))
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if h == "" {
		return ""
	}
	parts := strings.SplitN(h, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func writeError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
