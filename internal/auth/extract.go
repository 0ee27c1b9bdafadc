package auth

import (
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5/request"
)

// TOKEN EXTRACTION:
// Finding the token in a request is a separate step from validating it.
// The Verifier always tries the standard "Authorization: Bearer <jwt>"
// header first. If that header is absent it hands the request to a
// fallback hook, any request.Extractor, before giving up with MissingToken.
//
// Browsers cannot set headers on EventSource or WebSocket connections, so
// streaming clients pass the token in the query string instead; the
// RealWorld front-ends send "Authorization: Token <jwt>".

// BearerHeader extracts "Authorization: Bearer <jwt>". The scheme is
// matched case-insensitively.
var BearerHeader request.Extractor = schemeExtractor("Bearer")

// TokenScheme extracts "Authorization: Token <jwt>".
var TokenScheme request.Extractor = schemeExtractor("Token")

type schemeExtractor string

func (s schemeExtractor) ExtractToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	prefix := string(s) + " "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", request.ErrNoTokenInRequest
	}
	token := strings.TrimSpace(header[len(prefix):])
	if token == "" {
		return "", request.ErrNoTokenInRequest
	}
	return token, nil
}

// QueryParam extracts the token from the named URL query parameter.
func QueryParam(name string) request.Extractor {
	return queryExtractor(name)
}

type queryExtractor string

func (q queryExtractor) ExtractToken(r *http.Request) (string, error) {
	if v := r.URL.Query().Get(string(q)); v != "" {
		return v, nil
	}
	return "", request.ErrNoTokenInRequest
}

// Cookie extracts the token from the named cookie.
func Cookie(name string) request.Extractor {
	return cookieExtractor(name)
}

type cookieExtractor string

func (c cookieExtractor) ExtractToken(r *http.Request) (string, error) {
	cookie, err := r.Cookie(string(c))
	if err != nil || cookie.Value == "" {
		return "", request.ErrNoTokenInRequest
	}
	return cookie.Value, nil
}

// FirstOf tries each extractor in order and returns the first token found.
func FirstOf(extractors ...request.Extractor) request.Extractor {
	return request.MultiExtractor(extractors)
}

// DefaultFallback is the hook used when no Bearer header is present: the
// "Token" scheme, then the access_token query parameter.
func DefaultFallback() request.Extractor {
	return FirstOf(TokenScheme, QueryParam("access_token"))
}
