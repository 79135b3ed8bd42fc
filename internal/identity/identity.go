// Package identity defines the gateway to the hosted auth backend that turns
// an OAuth authorization code into a normalized identity assertion.
package identity

import (
	"context"
	"errors"
)

// Assertion is the ephemeral result of one code exchange. Only derived fields
// are ever persisted; the raw provider tokens are discarded after use and the
// assertion itself never becomes the application session during linking.
type Assertion struct {
	Provider string
	// Subject is the provider-assigned stable user id. The authorization
	// code is never an acceptable substitute: it is single-use and
	// non-stable.
	Subject   string
	Email     string
	Name      string
	AvatarURL string

	// Provider-issued tokens from the exchange. The sign-in path binds a new
	// application session to the asserted user; the link path throws these
	// away.
	AccessToken  string
	RefreshToken string
	ExpiresIn    int
}

// ErrExchangeFailed covers every way a code exchange can fail: network or
// provider outage, invalid or expired code, malformed response. Authorization
// codes are single-use, so callers must not retry.
var ErrExchangeFailed = errors.New("identity: code exchange failed")

// Gateway performs the code exchange against the auth backend.
type Gateway interface {
	// ExchangeCode redeems a single-use authorization code.
	ExchangeCode(ctx context.Context, code string) (*Assertion, error)

	// Isolated returns a gateway whose HTTP transport shares no cookie jar
	// or session state with any other client. The link path must exchange
	// through an isolated gateway so the caller's session is never touched.
	Isolated() Gateway

	// AuthorizeURL builds the provider consent URL for starting a link.
	AuthorizeURL(provider, redirectTo string) string
}
