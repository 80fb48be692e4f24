// Package port defines the interfaces (ports) for external dependencies.
// Following hexagonal architecture, these ports decouple the service layer
// from the concrete backend client.
package port

import (
	"context"
	"net/url"

	"github.com/boddenberg/logistica-web-go/internal/domain"
)

// Backend is the logistics REST backend as seen by services. Every call is
// made on behalf of a session; a nil session sends no bearer token.
// A non-2xx answer is returned as *domain.ErrUpstream carrying the raw body.
type Backend interface {
	GetJSON(ctx context.Context, s *domain.Session, path string, query url.Values, out any) error
	SendJSON(ctx context.Context, s *domain.Session, method, path string, in, out any) error
}

