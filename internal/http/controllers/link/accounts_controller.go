package link

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	dtol "github.com/dayoff-kr/moimlink/internal/http/dto/link"
	httperrors "github.com/dayoff-kr/moimlink/internal/http/errors"
	"github.com/dayoff-kr/moimlink/internal/http/middlewares"
	svc "github.com/dayoff-kr/moimlink/internal/http/services/link"
	"github.com/dayoff-kr/moimlink/internal/observability/logger"
	"github.com/dayoff-kr/moimlink/internal/store/core"
)

// AccountsController handles the linked-accounts API. All routes require a
// session.
type AccountsController struct {
	service svc.AccountsService
}

// NewAccountsController creates a new AccountsController.
func NewAccountsController(service svc.AccountsService) *AccountsController {
	return &AccountsController{service: service}
}

// List handles GET /v1/accounts.
func (c *AccountsController) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middlewares.GetUserID(ctx)

	links, err := c.service.List(ctx, userID)
	if err != nil {
		logger.From(ctx).Error("list accounts failed",
			logger.Layer("controller"),
			logger.Op("AccountsController.List"),
			logger.Err(err),
		)
		httperrors.WriteError(w, httperrors.ErrInternalServerError)
		return
	}

	resp := dtol.ListAccountsResponse{
		Accounts: make([]dtol.LinkedAccount, 0, len(links)),
		Total:    len(links),
	}
	for _, ln := range links {
		resp.Accounts = append(resp.Accounts, toDTO(ln))
	}
	httperrors.WriteJSON(w, http.StatusOK, resp)
}

// Unlink handles DELETE /v1/accounts/{id}.
func (c *AccountsController) Unlink(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middlewares.GetUserID(ctx)

	linkID := chi.URLParam(r, "id")
	if linkID == "" {
		httperrors.WriteError(w, httperrors.ErrInvalidParameter.WithDetail("missing account id"))
		return
	}

	err := c.service.Unlink(ctx, userID, linkID)
	switch {
	case errors.Is(err, svc.ErrAccountNotFound):
		httperrors.WriteError(w, httperrors.ErrNotFound)
	case errors.Is(err, svc.ErrLastLinkedIdentity):
		httperrors.WriteError(w, httperrors.ErrConflict.WithDetail("cannot remove the last linked identity"))
	case err != nil:
		logger.From(ctx).Error("unlink failed",
			logger.Layer("controller"),
			logger.Op("AccountsController.Unlink"),
			logger.LinkID(linkID),
			logger.Err(err),
		)
		httperrors.WriteError(w, httperrors.ErrInternalServerError)
	default:
		w.WriteHeader(http.StatusNoContent)
	}
}

func toDTO(ln core.LinkedAccount) dtol.LinkedAccount {
	out := dtol.LinkedAccount{
		ID:        ln.ID,
		Provider:  ln.Provider,
		CreatedAt: ln.CreatedAt,
	}
	if ln.Email != nil {
		out.Email = *ln.Email
	}
	if ln.Username != nil {
		out.Username = *ln.Username
	}
	if ln.Avatar != nil {
		out.Avatar = *ln.Avatar
	}
	return out
}
