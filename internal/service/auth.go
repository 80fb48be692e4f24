// Package service holds the page-level use cases: signing staff in, loading
// orders and dashboards, and creating or splitting orders.
package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/boddenberg/logistica-web-go/internal/domain"
	"github.com/boddenberg/logistica-web-go/internal/port"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var authTracer = otel.Tracer("service/auth")

// Backend paths used by the sign-in flow.
const (
	tokenPath = "/accounts/token/"
	mePath    = "/accounts/me"
)

// AuthService turns credentials into a Session.
type AuthService struct {
	backend port.Backend
	logger  *zap.Logger
}

// NewAuthService creates a new auth service.
func NewAuthService(backend port.Backend, logger *zap.Logger) *AuthService {
	return &AuthService{
		backend: backend,
		logger:  logger,
	}
}

// ============================================================
// SignIn — POST / and POST /api/auth/signin
// ============================================================

func (s *AuthService) SignIn(ctx context.Context, creds domain.Credentials) (*domain.Session, error) {
	ctx, span := authTracer.Start(ctx, "AuthService.SignIn")
	defer span.End()

	creds.Email = strings.TrimSpace(strings.ToLower(creds.Email))
	if creds.Email == "" || creds.Password == "" {
		return nil, &domain.ErrValidation{Field: "email", Message: "Informe e-mail e senha"}
	}
	span.SetAttributes(attribute.String("user.email", creds.Email))

	var pair domain.TokenPair
	if err := s.backend.SendJSON(ctx, nil, http.MethodPost, tokenPath, creds, &pair); err != nil {
		if rejected(err) {
			s.logger.Info("sign-in rejected", zap.String("email", creds.Email))
			return nil, &domain.ErrUnauthorized{Message: "E-mail ou senha inválidos"}
		}
		return nil, fmt.Errorf("obtain token: %w", err)
	}
	if pair.Access == "" {
		return nil, &domain.ErrUnauthorized{Message: "E-mail ou senha inválidos"}
	}

	sess, err := s.load(ctx, pair.Access)
	if err != nil {
		return nil, err
	}

	s.logger.Info("signed in",
		zap.String("user_id", sess.UserID),
		zap.Bool("superuser", sess.IsSuperuser),
	)
	return sess, nil
}

// ============================================================
// Refresh — POST /api/auth/session
// ============================================================

// Refresh reloads /accounts/me with the session's token so permission and
// profile changes show up without signing in again.
func (s *AuthService) Refresh(ctx context.Context, current *domain.Session) (*domain.Session, error) {
	ctx, span := authTracer.Start(ctx, "AuthService.Refresh")
	defer span.End()

	if !current.HasToken() {
		return nil, &domain.ErrUnauthorized{Message: "Sessão expirada"}
	}
	return s.load(ctx, current.AccessToken)
}

func (s *AuthService) load(ctx context.Context, token string) (*domain.Session, error) {
	var me domain.Me
	if err := s.backend.GetJSON(ctx, &domain.Session{AccessToken: token}, mePath, nil, &me); err != nil {
		if rejected(err) {
			return nil, &domain.ErrUnauthorized{Message: "Sessão expirada"}
		}
		return nil, fmt.Errorf("load profile: %w", err)
	}
	return me.ToSession(token), nil
}

// rejected reports whether the backend refused the credentials or token.
func rejected(err error) bool {
	var upstream *domain.ErrUpstream
	if !errors.As(err, &upstream) {
		return false
	}
	switch upstream.Status {
	case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden:
		return true
	}
	return false
}
