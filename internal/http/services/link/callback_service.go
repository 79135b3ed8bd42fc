package link

import (
	"context"
	"errors"

	"github.com/dayoff-kr/moimlink/internal/session"
)

// CallbackService handles the callback phase of sign-in and account linking.
type CallbackService interface {
	// Callback runs the exchange and persistence for one provider callback.
	// Service errors map to the `error` outcome at the controller; they stay
	// distinguishable only in logs and metrics.
	Callback(ctx context.Context, req CallbackRequest) (*CallbackResult, error)
}

// CallbackRequest contains the parameters for processing a callback.
type CallbackRequest struct {
	Code string
	// ProviderHint is the unverified provider query param, used for display
	// and metrics only. The exchange re-derives the real provider.
	ProviderHint string
	// State is the optional signed state token from the start endpoint.
	State string
	// Session is the caller's current session, nil when signed out. Its
	// presence alone decides sign-in versus link.
	Session *session.Session
}

// CallbackResult contains the terminal outcome of a callback.
type CallbackResult struct {
	Outcome  Outcome
	Provider string
	// Session is set only on the sign-in path; the controller turns it into
	// a cookie. Never set on the link path.
	Session *session.Session
}

// Errors for the callback service.
var (
	ErrCallbackExchangeFailed      = errors.New("code exchange failed")
	ErrCallbackIncompleteAssertion = errors.New("assertion missing provider or subject")
	ErrCallbackIdentityClaimed     = errors.New("identity linked to another user")
	ErrCallbackRepository          = errors.New("repository failure")
	ErrCallbackSessionFailed       = errors.New("session creation failed")
)
