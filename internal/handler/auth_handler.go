package handler

import (
	"net/http"

	"github.com/boddenberg/logistica-web-go/internal/domain"
	"github.com/boddenberg/logistica-web-go/internal/service"
	"github.com/boddenberg/logistica-web-go/internal/session"

	"go.uber.org/zap"
)

type signInResponse struct {
	Session  *domain.Session `json:"session"`
	Redirect string          `json:"redirect"`
}

// ============================================================
// Session — GET /api/auth/session
// ============================================================

// sessionHandler returns the current session without its access token, or
// null when signed out.
func sessionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, session.FromContext(r.Context()).Public())
	}
}

// ============================================================
// Session update — POST /api/auth/session
// ============================================================

func sessionUpdateHandler(authSvc *service.AuthService, sessions *session.Manager, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /api/auth/session")
		defer span.End()

		current := session.FromContext(ctx)
		if current == nil {
			writeError(w, http.StatusUnauthorized, "Sessão expirada")
			return
		}

		updated, err := authSvc.Refresh(ctx, current)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		if err := sessions.Issue(w, updated); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, updated.Public())
	}
}

// ============================================================
// Sign-in — POST /api/auth/signin
// ============================================================

func signInHandler(authSvc *service.AuthService, sessions *session.Manager, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /api/auth/signin")
		defer span.End()

		var creds domain.Credentials
		if err := decodeJSON(w, r, &creds); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		sess, err := authSvc.SignIn(ctx, creds)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		if err := sessions.Issue(w, sess); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, signInResponse{Session: sess.Public(), Redirect: domain.HomeFor(sess)})
	}
}

// ============================================================
// Sign-out — POST /api/auth/signout
// ============================================================

func signOutHandler(sessions *session.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessions.Clear(w)
		w.WriteHeader(http.StatusNoContent)
	}
}
