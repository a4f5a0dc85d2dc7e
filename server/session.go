package server

import (
	"context"
	"errors"
	"net/http"

	"highroll/models"
	"highroll/service"

	log "github.com/sirupsen/logrus"
)

type sessionContextKey struct{}

// SessionFromContext returns the session loaded by requireSession
func SessionFromContext(ctx context.Context) (*models.Session, bool) {
	session, ok := ctx.Value(sessionContextKey{}).(*models.Session)
	return session, ok && session != nil
}

func withSession(ctx context.Context, session *models.Session) context.Context {
	return context.WithValue(ctx, sessionContextKey{}, session)
}

// requireSession loads the session named by the cookie and calls onMissing when there is none
func (s *Server) requireSession(onMissing http.HandlerFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(s.cookieName)
			if err != nil || cookie.Value == "" {
				onMissing(w, r)
				return
			}

			session, err := s.sessions.Get(r.Context(), cookie.Value)
			if errors.Is(err, service.ErrSessionNotFound) {
				s.clearSessionCookie(w)
				onMissing(w, r)
				return
			}
			if err != nil {
				log.WithError(err).Error("Failed to load session")
				writeError(w, http.StatusInternalServerError, msgServerError)
				return
			}

			next.ServeHTTP(w, r.WithContext(withSession(r.Context(), session)))
		})
	}
}

func (s *Server) setSessionCookie(w http.ResponseWriter, session *models.Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.cookieName,
		Value:    session.ID,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.secureCookies,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(s.sessionTTL.Seconds()),
		Expires:  session.ExpiresAt,
	})
}

func (s *Server) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.cookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   s.secureCookies,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}

// endCurrentSession destroys the session named by the request cookie, if any
func (s *Server) endCurrentSession(r *http.Request) {
	cookie, err := r.Cookie(s.cookieName)
	if err != nil || cookie.Value == "" {
		return
	}
	if err := s.sessions.Destroy(r.Context(), cookie.Value); err != nil {
		log.WithError(err).Warn("Failed to destroy session")
	}
}
