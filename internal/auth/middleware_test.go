package auth

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerifyRequest_Extraction(t *testing.T) {
	issuer, verifier := newTestIssuerVerifier(t)
	token, err := issuer.Issue("jake", epoch)
	require.NoError(t, err)

	tests := []struct {
		name    string
		prepare func(r *http.Request)
		want    string
		reason  Reason
	}{
		{
			name:    "bearer header",
			prepare: func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+token) },
			want:    "jake",
		},
		{
			name:    "bearer scheme is case-insensitive",
			prepare: func(r *http.Request) { r.Header.Set("Authorization", "bearer "+token) },
			want:    "jake",
		},
		{
			name:    "Token scheme via fallback",
			prepare: func(r *http.Request) { r.Header.Set("Authorization", "Token "+token) },
			want:    "jake",
		},
		{
			name:    "query parameter via fallback",
			prepare: func(r *http.Request) { r.URL.RawQuery = "access_token=" + token },
			want:    "jake",
		},
		{
			name: "bearer header wins over query parameter",
			prepare: func(r *http.Request) {
				r.Header.Set("Authorization", "Bearer "+token)
				r.URL.RawQuery = "access_token=garbage"
			},
			want: "jake",
		},
		{
			name:    "cookie is not part of the default fallback",
			prepare: func(r *http.Request) { r.AddCookie(&http.Cookie{Name: "token", Value: token}) },
			reason:  ReasonMissing,
		},
		{
			name:    "nothing present",
			prepare: func(r *http.Request) {},
			reason:  ReasonMissing,
		},
		{
			name:    "empty bearer",
			prepare: func(r *http.Request) { r.Header.Set("Authorization", "Bearer ") },
			reason:  ReasonMissing,
		},
		{
			name:    "bad token in fallback location is still verified",
			prepare: func(r *http.Request) { r.URL.RawQuery = "access_token=garbage" },
			reason:  ReasonMalformed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/api/user", nil)
			tt.prepare(r)

			got, err := verifier.VerifyRequest(r, epoch)
			if tt.reason != "" {
				require.Error(t, err)
				assert.Equal(t, tt.reason, ReasonOf(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestVerifyRequest_CustomFallback(t *testing.T) {
	kp := testKeyPair(t)
	token, err := NewIssuer(kp, time.Hour, "conduit").Issue("jake", epoch)
	require.NoError(t, err)

	r := httptest.NewRequest(http.MethodGet, "/api/stream", nil)
	r.AddCookie(&http.Cookie{Name: "jwt", Value: token})

	_, err = NewVerifier(kp, nil).VerifyRequest(r, epoch)
	assert.Equal(t, ReasonMissing, ReasonOf(err), "no fallback configured")

	got, err := NewVerifier(kp, FirstOf(TokenScheme, Cookie("jwt"))).VerifyRequest(r, epoch)
	require.NoError(t, err)
	assert.Equal(t, "jake", got)
}

func newTestMiddleware(t *testing.T, now time.Time) (*Middleware, *Issuer) {
	t.Helper()
	issuer, verifier := newTestIssuerVerifier(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewMiddleware(verifier, func() time.Time { return now }, logger), issuer
}

// echoUser writes the username from the context, or "anonymous".
var echoUser = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	if name, ok := UsernameFromContext(r.Context()); ok {
		io.WriteString(w, name)
		return
	}
	io.WriteString(w, "anonymous")
})

func TestRequireAuth(t *testing.T) {
	mw, issuer := newTestMiddleware(t, epoch.Add(time.Minute))
	token, err := issuer.Issue("jake", epoch)
	require.NoError(t, err)
	h := mw.RequireAuth(echoUser)

	t.Run("valid token", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/api/user", nil)
		r.Header.Set("Authorization", "Token "+token)
		rr := httptest.NewRecorder()

		h.ServeHTTP(rr, r)

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "jake", rr.Body.String())
	})

	t.Run("missing token", func(t *testing.T) {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/user", nil))

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
		assert.Contains(t, rr.Body.String(), string(ReasonMissing))
		assert.NotEmpty(t, rr.Header().Get("WWW-Authenticate"))
	})

	t.Run("expired token", func(t *testing.T) {
		late, _ := newTestMiddleware(t, epoch.Add(2*time.Hour))
		r := httptest.NewRequest(http.MethodGet, "/api/user", nil)
		r.Header.Set("Authorization", "Bearer "+token)
		rr := httptest.NewRecorder()

		late.RequireAuth(echoUser).ServeHTTP(rr, r)

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
		assert.Contains(t, rr.Body.String(), string(ReasonExpired))
	})
}

func TestOptionalAuth(t *testing.T) {
	mw, issuer := newTestMiddleware(t, epoch)
	token, err := issuer.Issue("jake", epoch)
	require.NoError(t, err)
	h := mw.OptionalAuth(echoUser)

	t.Run("anonymous passes through", func(t *testing.T) {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/articles", nil))

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "anonymous", rr.Body.String())
	})

	t.Run("valid token sets the user", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/api/articles", nil)
		r.Header.Set("Authorization", "Bearer "+token)
		rr := httptest.NewRecorder()

		h.ServeHTTP(rr, r)

		assert.Equal(t, "jake", rr.Body.String())
	})

	t.Run("invalid token is rejected, not downgraded", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/api/articles", nil)
		r.Header.Set("Authorization", "Bearer "+tamperSignature(t, token, 3))
		rr := httptest.NewRecorder()

		h.ServeHTTP(rr, r)

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})
}
