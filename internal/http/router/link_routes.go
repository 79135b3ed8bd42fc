package router

import (
	"github.com/go-chi/chi/v5"

	mw "github.com/dayoff-kr/moimlink/internal/http/middlewares"
)

// registerLinkRoutes wires the account-linking endpoints.
func registerLinkRoutes(r chi.Router, d Deps) {
	c := d.Link

	// Browser-facing OAuth flow. The callback is reachable signed out (sign
	// in) and signed in (link), so the session is optional there. Both
	// endpoints are attacker-reachable and get per-IP limiting.
	r.Group(func(r chi.Router) {
		r.Use(
			mw.WithNoStore(),
			mw.WithRateLimit(mw.RateLimitConfig{
				Limiter: d.Limiter,
				KeyFunc: mw.IPOnlyRateKey,
			}),
			mw.OptionalSession(d.Sessions, d.Cookie),
		)
		r.Get("/account/callback", c.Callback.Callback)
		r.Get("/account/link/{provider}/start", c.Start.Start)
	})

	// Session-gated JSON API over existing links.
	r.Route("/v1/accounts", func(r chi.Router) {
		r.Use(
			mw.WithNoStore(),
			mw.WithRateLimit(mw.RateLimitConfig{
				Limiter: d.Limiter,
				KeyFunc: mw.IPRateKey,
			}),
			mw.RequireSession(d.Sessions, d.Cookie),
		)
		r.Get("/", c.Accounts.List)
		r.Delete("/{id}", c.Accounts.Unlink)
	})
}
