package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultTokenTTL is the lifetime of an access token when the configuration
// does not override it.
const DefaultTokenTTL = time.Hour

// claims is the JWT payload. Subject carries the username.
type claims struct {
	jwt.RegisteredClaims
}

// Issuer mints RS256 access tokens. It holds no mutable state, so one
// Issuer serves every request concurrently.
type Issuer struct {
	key    *KeyPair
	ttl    time.Duration
	issuer string
}

// NewIssuer creates an Issuer signing with kp. A non-positive ttl falls
// back to DefaultTokenTTL. name is written to the "iss" claim; verifiers do
// not check it.
func NewIssuer(kp *KeyPair, ttl time.Duration, name string) *Issuer {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &Issuer{key: kp, ttl: ttl, issuer: name}
}

// TTL reports the lifetime of tokens minted by this Issuer.
func (i *Issuer) TTL() time.Duration { return i.ttl }

// Issue signs a token asserting identity, valid from now until now+TTL.
//
// The caller must already have checked the user's credentials; Issue does
// not consult the store. Identical inputs produce identical tokens.
func (i *Issuer) Issue(identity string, now time.Time) (string, error) {
	if identity == "" {
		return "", errors.New("auth: cannot issue a token for an empty identity")
	}

	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    i.issuer,
			Subject:   identity,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, c)
	signed, err := token.SignedString(i.key.PrivateKey())
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}
	return signed, nil
}
