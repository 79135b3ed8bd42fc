// Package router assembles the HTTP surface of the service.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	healthctrl "github.com/dayoff-kr/moimlink/internal/http/controllers/health"
	linkctrl "github.com/dayoff-kr/moimlink/internal/http/controllers/link"
	mw "github.com/dayoff-kr/moimlink/internal/http/middlewares"
	"github.com/dayoff-kr/moimlink/internal/rate"
	"github.com/dayoff-kr/moimlink/internal/session"
)

// Deps contains everything the router needs to wire routes.
type Deps struct {
	Link        *linkctrl.Controllers
	Health      *healthctrl.HealthController
	Sessions    session.Store
	Cookie      session.CookieConfig
	Limiter     rate.Limiter // nil disables rate limiting
	CORSOrigins []string
}

// New builds the service router.
func New(d Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(
		mw.WithRecover(),
		mw.WithRequestID(),
		mw.WithSecurityHeaders(),
	)
	if len(d.CORSOrigins) > 0 {
		r.Use(mw.WithCORS(d.CORSOrigins))
	}
	r.Use(mw.WithLogging())

	r.Get("/healthz", d.Health.Healthz)

	registerLinkRoutes(r, d)

	return r
}
