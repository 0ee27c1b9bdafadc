package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// contextKey is unexported so only this package can read or write the
// authenticated username in a request context.
type contextKey string

const usernameKey contextKey = "username"

// Middleware turns a Verifier into chi-compatible middleware.
type Middleware struct {
	verifier *Verifier
	now      func() time.Time
	logger   *slog.Logger
}

// NewMiddleware creates the auth middleware. now is the clock used for
// expiry checks; pass time.Now outside tests.
func NewMiddleware(verifier *Verifier, now func() time.Time, logger *slog.Logger) *Middleware {
	return &Middleware{verifier: verifier, now: now, logger: logger}
}

// RequireAuth rejects the request with 401 unless it carries a valid token.
// On success the username is stored in the request context.
func (m *Middleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		username, err := m.verifier.VerifyRequest(r, m.now())
		if err != nil {
			m.reject(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithUsername(r.Context(), username)))
	})
}

// OptionalAuth lets anonymous requests through but still rejects a token
// that is present and invalid. Handlers check UsernameFromContext.
func (m *Middleware) OptionalAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		username, err := m.verifier.VerifyRequest(r, m.now())
		switch {
		case err == nil:
			r = r.WithContext(WithUsername(r.Context(), username))
		case ReasonOf(err) == ReasonMissing:
			// anonymous
		default:
			m.reject(w, r, err)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (m *Middleware) reject(w http.ResponseWriter, r *http.Request, err error) {
	reason := ReasonOf(err)
	if reason == "" {
		reason = ReasonMalformed
	}
	if reason != ReasonMissing {
		var authErr *Error
		if errors.As(err, &authErr) && authErr.Err != nil {
			m.logger.Info("token rejected",
				slog.String("reason", string(reason)),
				slog.String("path", r.URL.Path),
				slog.String("error", authErr.Err.Error()),
			)
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token"`)
	w.WriteHeader(http.StatusUnauthorized)
	fmt.Fprintf(w, `{"error":"unauthorized","message":%q}`+"\n", string(reason))
}

// WithUsername returns a copy of ctx carrying the authenticated username.
func WithUsername(ctx context.Context, username string) context.Context {
	return context.WithValue(ctx, usernameKey, username)
}

// UsernameFromContext returns the authenticated username, or ("", false)
// for anonymous requests.
func UsernameFromContext(ctx context.Context) (string, bool) {
	name, ok := ctx.Value(usernameKey).(string)
	return name, ok && name != ""
}
