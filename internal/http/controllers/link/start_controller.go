package link

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	dtol "github.com/dayoff-kr/moimlink/internal/http/dto/link"
	httperrors "github.com/dayoff-kr/moimlink/internal/http/errors"
	svc "github.com/dayoff-kr/moimlink/internal/http/services/link"
	"github.com/dayoff-kr/moimlink/internal/observability/logger"
)

// StartController handles the start-of-link endpoint.
type StartController struct {
	service svc.StartService
	baseURL string
}

// NewStartController creates a new StartController.
func NewStartController(service svc.StartService, baseURL string) *StartController {
	return &StartController{service: service, baseURL: baseURL}
}

// Start handles GET /account/link/{provider}/start. Browsers get a 302 to
// the provider consent page; JSON clients get the URL to follow themselves.
func (c *StartController) Start(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("StartController.Start"))

	provider := chi.URLParam(r, "provider")
	if provider == "" {
		httperrors.WriteError(w, httperrors.ErrInvalidParameter.WithDetail("missing provider"))
		return
	}

	res, err := c.service.Start(ctx, svc.StartRequest{
		Provider: provider,
		Next:     r.URL.Query().Get("next"),
		BaseURL:  c.baseURL,
	})
	if err != nil {
		log.Warn("start rejected", logger.Provider(provider), logger.Err(err))
		if errors.Is(err, svc.ErrStartProviderUnknown) {
			httperrors.WriteError(w, httperrors.ErrInvalidParameter.WithDetail("unsupported provider"))
			return
		}
		httperrors.WriteError(w, httperrors.ErrInternalServerError)
		return
	}

	if wantsJSON(r) {
		httperrors.WriteJSON(w, http.StatusOK, dtol.StartLinkResponse{AuthorizeURL: res.RedirectURL})
		return
	}
	http.Redirect(w, r, res.RedirectURL, http.StatusFound)
}

func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}
