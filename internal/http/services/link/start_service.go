package link

import (
	"context"
	"errors"
)

// StartService handles the start phase of account linking.
type StartService interface {
	// Start validates the provider and returns the consent URL to redirect
	// the caller to.
	Start(ctx context.Context, req StartRequest) (*StartResult, error)
}

// StartRequest contains the parameters for starting a link.
type StartRequest struct {
	Provider string
	Next     string
	// BaseURL is the externally visible base of this service, used to build
	// the callback URL.
	BaseURL string
}

// StartResult contains the result of starting a link.
type StartResult struct {
	RedirectURL string
}

// Errors for the start service.
var (
	ErrStartProviderUnknown = errors.New("unknown provider")
	ErrStartSigningFailed   = errors.New("failed to sign state")
)
