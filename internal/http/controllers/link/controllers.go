// Package link contains the controllers for the account-linking endpoints.
package link

import (
	svc "github.com/dayoff-kr/moimlink/internal/http/services/link"
	"github.com/dayoff-kr/moimlink/internal/session"
)

// Controllers groups the controllers of the link domain.
type Controllers struct {
	Callback *CallbackController
	Start    *StartController
	Accounts *AccountsController
}

// ControllersDeps carries the request-independent wiring for the domain.
type ControllersDeps struct {
	Services    svc.Services
	Cookie      session.CookieConfig
	BaseURL     string
	DefaultNext string
}

// NewControllers creates the link controllers aggregator.
func NewControllers(d ControllersDeps) *Controllers {
	return &Controllers{
		Callback: NewCallbackController(d.Services.Callback, d.Cookie, d.DefaultNext),
		Start:    NewStartController(d.Services.Start, d.BaseURL),
		Accounts: NewAccountsController(d.Services.Accounts),
	}
}
