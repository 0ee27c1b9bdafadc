// Package service contains the business rules of the application.
//
//	Handler (HTTP)  → parses requests, writes responses
//	Service         → validates, enforces ownership, orchestrates
//	Repository      → reads and writes the store
//
// Services take repository interfaces, never *sqlite.DB, and return
// apperror values that the handler layer maps to HTTP status codes. None of
// them know about HTTP.
package service

import (
	"time"

	"github.com/sakif/conduit/internal/repository"
)

const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

// Clock returns the current time. Services take one so tests can pin it.
type Clock func() time.Time

func systemClock() time.Time { return time.Now() }

// clampList keeps paging parameters in a sane range.
func clampList(opts repository.ListOptions) repository.ListOptions {
	if opts.Limit <= 0 {
		opts.Limit = DefaultListLimit
	}
	if opts.Limit > MaxListLimit {
		opts.Limit = MaxListLimit
	}
	if opts.Offset < 0 {
		opts.Offset = 0
	}
	return opts
}
