package auth

import (
	"errors"
	"fmt"

	"github.com/sakif/conduit/internal/apperror"
)

// Reason classifies why a token was rejected.
type Reason string

const (
	ReasonExpired          Reason = "ExpiredToken"
	ReasonInvalidSignature Reason = "InvalidSignature"
	ReasonMalformed        Reason = "Malformed"
	ReasonMissing          Reason = "MissingToken"
)

// Error is returned by the Verifier for every rejected token. It unwraps to
// apperror.ErrUnauthorized so the HTTP layer answers 401 without knowing
// about tokens.
type Error struct {
	Reason Reason
	Err    error // underlying jwt error, nil for ReasonMissing
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("auth: %s", e.Reason)
	}
	return fmt.Sprintf("auth: %s: %v", e.Reason, e.Err)
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{apperror.ErrUnauthorized}
	}
	return []error{apperror.ErrUnauthorized, e.Err}
}

// ReasonOf returns the rejection reason carried by err, or "" if err is not
// an *Error.
func ReasonOf(err error) Reason {
	var authErr *Error
	if errors.As(err, &authErr) {
		return authErr.Reason
	}
	return ""
}

var (
	ErrIncorrectPassphrase = errors.New("incorrect passphrase")
	ErrNoPrivateKey        = errors.New("container holds no RSA private key")
)

// CertificateLoadError is fatal at startup: without the key pair the
// process cannot issue or verify tokens.
type CertificateLoadError struct {
	Path string
	Err  error
}

func (e *CertificateLoadError) Error() string {
	return fmt.Sprintf("auth: loading certificate %q: %v", e.Path, e.Err)
}

func (e *CertificateLoadError) Unwrap() error {
	return e.Err
}
