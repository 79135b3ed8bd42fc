package link

import (
	"net/http"
	"strings"

	httperrors "github.com/dayoff-kr/moimlink/internal/http/errors"
	"github.com/dayoff-kr/moimlink/internal/http/middlewares"
	svc "github.com/dayoff-kr/moimlink/internal/http/services/link"
	"github.com/dayoff-kr/moimlink/internal/observability/logger"
	"github.com/dayoff-kr/moimlink/internal/session"
)

// CallbackController handles the provider callback endpoint.
type CallbackController struct {
	service     svc.CallbackService
	cookie      session.CookieConfig
	defaultNext string
}

// NewCallbackController creates a new CallbackController.
func NewCallbackController(service svc.CallbackService, cookie session.CookieConfig, defaultNext string) *CallbackController {
	if defaultNext == "" {
		defaultNext = svc.DefaultNext
	}
	return &CallbackController{service: service, cookie: cookie, defaultNext: defaultNext}
}

// Callback handles GET /account/callback. It always answers with a redirect:
// outcomes travel as query params on the next target, never as response
// bodies the provider round trip could leak.
func (c *CallbackController) Callback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("CallbackController.Callback"))

	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		httperrors.WriteError(w, httperrors.ErrMethodNotAllowed)
		return
	}

	q := r.URL.Query()
	code := strings.TrimSpace(q.Get("code"))
	next := svc.SafeNext(q.Get("next"), c.defaultNext)
	providerHint := strings.TrimSpace(q.Get("provider"))

	// Without a code there is nothing to exchange: send the user where they
	// were going, unannotated.
	if code == "" {
		log.Warn("callback without code", logger.Provider(providerHint))
		http.Redirect(w, r, next, http.StatusFound)
		return
	}

	res, err := c.service.Callback(ctx, svc.CallbackRequest{
		Code:         code,
		ProviderHint: providerHint,
		State:        strings.TrimSpace(q.Get("state")),
		Session:      middlewares.GetSession(ctx),
	})
	if err != nil {
		http.Redirect(w, r, svc.BuildRedirect(next, svc.OutcomeError, providerHint), http.StatusFound)
		return
	}

	if res.Session != nil {
		http.SetCookie(w, session.BuildCookie(res.Session, c.cookie))
	}
	http.Redirect(w, r, svc.BuildRedirect(next, res.Outcome, res.Provider), http.StatusFound)
}
