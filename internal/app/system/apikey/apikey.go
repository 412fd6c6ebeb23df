// Package apikey implements the x-api-key credential scheme: key
// generation, digesting, and the middleware that resolves a request's key
// to its user.
//
// Keys are 256-bit random values presented as hex. Only a SHA3-256 digest
// is stored, so a leaked database does not leak usable credentials.
package apikey

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/dalemusser/trackhub/internal/domain/models"
	"go.uber.org/zap"
	"golang.org/x/crypto/sha3"
)

// Header is the request header carrying the credential.
const Header = "x-api-key"

// Generate returns a fresh 64-hex-character key.
func Generate() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate api key: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// Digest returns the stored form of a key.
func Digest(key string) string {
	sum := sha3.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

// Resolver maps a key digest to its unbanned owner. The boolean reports
// whether the digest matched; errors are reserved for storage failures.
// userstore satisfies this; tests substitute fakes.
type Resolver interface {
	Lookup(ctx context.Context, digest string) (models.User, bool, error)
}

type ctxKey struct{}

// CurrentUser returns the authenticated caller placed in context by
// Require, and whether one is present.
func CurrentUser(r *http.Request) (models.User, bool) {
	u, ok := r.Context().Value(ctxKey{}).(models.User)
	return u, ok
}

// WithTestUser injects a caller directly, bypassing the middleware.
// Handler tests use this.
func WithTestUser(r *http.Request, u models.User) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), ctxKey{}, u))
}

// Require rejects requests without a valid key with 401 and otherwise
// injects the caller into the request context. Lookup failures other than
// "no such user" are surfaced as 503: the credential may be fine, the
// store is not, and the caller should retry.
func Require(users Resolver, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get(Header)
			if key == "" {
				unauthorized(w)
				return
			}
			u, found, err := users.Lookup(r.Context(), Digest(key))
			if err != nil {
				logger.Error("api key lookup failed", zap.Error(err))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusServiceUnavailable)
				_ = json.NewEncoder(w).Encode(map[string]string{
					"response": "ERROR",
					"text":     "Storage unavailable, retry.",
				})
				return
			}
			if !found {
				unauthorized(w)
				return
			}
			next.ServeHTTP(w, WithTestUser(r, u))
		})
	}
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"response": "ERROR",
		"text":     "Unauthorized.",
	})
}
