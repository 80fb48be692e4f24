package session

import (
	"context"
	"net/http"

	"github.com/boddenberg/logistica-web-go/internal/domain"

	"go.uber.org/zap"
)

// CookieName is the session cookie.
const CookieName = "logistica_session"

// Manager resolves the session of incoming requests and writes the cookie.
type Manager struct {
	codec  *Codec
	secure bool
	logger *zap.Logger
}

// NewManager creates a Manager. secure sets the cookie Secure flag.
func NewManager(codec *Codec, secure bool, logger *zap.Logger) *Manager {
	return &Manager{codec: codec, secure: secure, logger: logger}
}

// Resolve returns the request's session or nil. It never fails: any problem
// reading the cookie degrades to "no session".
func (m *Manager) Resolve(r *http.Request) *domain.Session {
	c, err := r.Cookie(CookieName)
	if err != nil || c.Value == "" {
		return nil
	}
	s, err := m.codec.Open(c.Value)
	if err != nil {
		m.logger.Debug("session: discarding unreadable cookie",
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		return nil
	}
	return s
}

// Issue seals s into the session cookie.
func (m *Manager) Issue(w http.ResponseWriter, s *domain.Session) error {
	value, err := m.codec.Seal(s)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   int(m.codec.TTL().Seconds()),
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// Clear expires the session cookie.
func (m *Manager) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

type contextKey struct{}

// WithSession stores s in ctx.
func WithSession(ctx context.Context, s *domain.Session) context.Context {
	return context.WithValue(ctx, contextKey{}, s)
}

// FromContext returns the session stored by WithSession, or nil.
func FromContext(ctx context.Context) *domain.Session {
	s, _ := ctx.Value(contextKey{}).(*domain.Session)
	return s
}
