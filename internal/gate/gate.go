// Package gate decides whether a page navigation may proceed for the current
// session, and redirects it otherwise.
package gate

import (
	"net/http"
	"path"
	"strings"

	"github.com/boddenberg/logistica-web-go/internal/domain"
	"github.com/boddenberg/logistica-web-go/internal/infra/observability"
	"github.com/boddenberg/logistica-web-go/internal/session"

	"go.uber.org/zap"
)

// DeniedMarker is appended to redirects caused by a missing permission.
const DeniedMarker = "acesso=negado"

// Redirect reasons, used as metric labels.
const (
	ReasonAnonymous = "anonymous"
	ReasonHome      = "home_variant"
	ReasonDenied    = "denied"
)

// Decision is the outcome for one navigation.
type Decision struct {
	Allow    bool
	Redirect string
	Reason   string
}

func allow() Decision {
	return Decision{Allow: true}
}

func redirect(to, reason string) Decision {
	return Decision{Redirect: to, Reason: reason}
}

// Decide evaluates path for s. It never calls the backend.
func Decide(s *domain.Session, p string) Decision {
	if bypass(p) {
		return allow()
	}
	if s == nil {
		return redirect(domain.LoginPath, ReasonAnonymous)
	}
	if s.IsSuperuser {
		return allow()
	}

	switch p = strings.TrimRight(p, "/"); {
	case p == domain.HomePath && s.IsDefaultProfile():
		return redirect(domain.DefaultHomePath, ReasonHome)
	case p == domain.DefaultHomePath && !s.IsDefaultProfile():
		return redirect(domain.HomePath, ReasonHome)
	}

	screen, ok := domain.ScreenForPath(p)
	if !ok || screen.ID == domain.ScreenInicio {
		return allow()
	}
	if s.Permits(screen.ID) {
		return allow()
	}
	return redirect(fallback(s)+"?"+DeniedMarker, ReasonDenied)
}

// fallback is the first screen the session may open, in the order the
// backend listed the permissions, or the home variant.
func fallback(s *domain.Session) string {
	for _, id := range s.Permissions {
		if id == domain.ScreenInicio {
			continue
		}
		if screen, ok := domain.LookupScreen(id); ok {
			return screen.Path
		}
	}
	return domain.HomeFor(s)
}

func bypass(p string) bool {
	if p == "" || p == domain.LoginPath {
		return true
	}
	return path.Ext(path.Base(p)) != ""
}

// Middleware applies Decide to every request it wraps. The session must
// already be in the request context.
func Middleware(metrics *observability.Metrics, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			d := Decide(session.FromContext(r.Context()), r.URL.Path)
			if d.Allow {
				next.ServeHTTP(w, r)
				return
			}

			metrics.IncrGateRedirect(d.Reason)
			logger.Debug("gate: redirect",
				zap.String("path", r.URL.Path),
				zap.String("to", d.Redirect),
				zap.String("reason", d.Reason),
			)
			http.Redirect(w, r, d.Redirect, http.StatusTemporaryRedirect)
		})
	}
}
