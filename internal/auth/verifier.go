package auth

import (
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/golang-jwt/jwt/v5/request"
)

// Verifier validates access tokens against the public half of the key
// pair. Like Issuer it is immutable and safe for concurrent use.
//
// VALIDATION CHECKS:
//   - Algorithm is RS256 (rejects "none" and HMAC confusion attacks)
//   - Signature matches the public key
//   - "exp" is present and later than the supplied time
//
// Audience and issuer are NOT checked. Tokens carry an "iss" claim for
// diagnostics only.
type Verifier struct {
	public   *rsa.PublicKey
	fallback request.Extractor
}

// NewVerifier creates a Verifier for kp. fallback is consulted when the
// request carries no Bearer header; nil disables the fallback.
func NewVerifier(kp *KeyPair, fallback request.Extractor) *Verifier {
	return &Verifier{public: kp.PublicKey(), fallback: fallback}
}

// Verify checks raw at time now and returns the identity it asserts.
// Every failure is an *Error.
func (v *Verifier) Verify(raw string, now time.Time) (string, error) {
	if raw == "" {
		return "", &Error{Reason: ReasonMissing}
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return now }),
		jwt.WithStrictDecoding(),
	)

	token, err := parser.ParseWithClaims(raw, &claims{}, func(*jwt.Token) (any, error) {
		return v.public, nil
	})
	if err != nil {
		return "", &Error{Reason: classify(raw, err), Err: err}
	}

	c, ok := token.Claims.(*claims)
	if !ok || !token.Valid {
		return "", &Error{Reason: ReasonMalformed, Err: errors.New("unexpected claims type")}
	}
	if c.Subject == "" {
		return "", &Error{Reason: ReasonMalformed, Err: errors.New("token has no subject")}
	}
	return c.Subject, nil
}

// VerifyRequest extracts the token from r and verifies it at time now.
func (v *Verifier) VerifyRequest(r *http.Request, now time.Time) (string, error) {
	raw, err := v.extract(r)
	if err != nil {
		return "", &Error{Reason: ReasonMissing}
	}
	return v.Verify(raw, now)
}

func (v *Verifier) extract(r *http.Request) (string, error) {
	raw, err := BearerHeader.ExtractToken(r)
	if err == nil {
		return raw, nil
	}
	if v.fallback == nil || !errors.Is(err, request.ErrNoTokenInRequest) {
		return "", err
	}
	return v.fallback.ExtractToken(r)
}

// classify maps a jwt parse error to a rejection reason. The signature is
// checked before the claims, so an expired token with a bad signature
// reports InvalidSignature.
func classify(raw string, err error) Reason {
	switch {
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return ReasonInvalidSignature
	case errors.Is(err, jwt.ErrTokenExpired):
		return ReasonExpired
	case errors.Is(err, jwt.ErrTokenMalformed):
		// A well-formed header and payload followed by an undecodable
		// signature, or by a signature split with extra dots, means the
		// signature was altered.
		if headerAndPayloadWellFormed(raw) {
			return ReasonInvalidSignature
		}
		return ReasonMalformed
	default:
		return ReasonMalformed
	}
}

func headerAndPayloadWellFormed(raw string) bool {
	parts := strings.Split(raw, ".")
	if len(parts) < 3 {
		return false
	}
	enc := base64.RawURLEncoding.Strict()
	for _, part := range parts[:2] {
		b, err := enc.DecodeString(part)
		if err != nil || !json.Valid(b) {
			return false
		}
	}
	return true
}
