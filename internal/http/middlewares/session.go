package middlewares

import (
	"net/http"
	"time"

	httperrors "github.com/dayoff-kr/moimlink/internal/http/errors"
	"github.com/dayoff-kr/moimlink/internal/session"
)

// RequireSession resolves the session cookie and rejects the request with 401
// when it is missing, unknown or expired. The session is injected into the
// context for handlers downstream.
func RequireSession(store session.Store, cfg session.CookieConfig) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sid := session.IDFromRequest(r, cfg)
			if sid == "" {
				httperrors.WriteError(w, httperrors.ErrUnauthorized.WithDetail("missing session"))
				return
			}
			sess, err := store.Get(r.Context(), sid)
			if err != nil || !sess.Valid(time.Now()) {
				httperrors.WriteError(w, httperrors.ErrUnauthorized.WithDetail("invalid session"))
				return
			}
			next.ServeHTTP(w, r.WithContext(setSession(r.Context(), sess)))
		})
	}
}

// OptionalSession resolves the session cookie when present but never fails
// the request. Endpoints that behave differently for signed-in callers, like
// the OAuth callback, use this.
func OptionalSession(store session.Store, cfg session.CookieConfig) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sid := session.IDFromRequest(r, cfg)
			if sid == "" {
				next.ServeHTTP(w, r)
				return
			}
			sess, err := store.Get(r.Context(), sid)
			if err != nil || !sess.Valid(time.Now()) {
				next.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(setSession(r.Context(), sess)))
		})
	}
}
