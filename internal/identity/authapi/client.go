// Package authapi implements the identity.Gateway against the hosted auth
// backend's REST API. The backend talks to the social providers itself and
// returns the exchanged session together with the user's provider identities.
package authapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dayoff-kr/moimlink/internal/identity"
)

const (
	tokenPath     = "/v1/token"
	authorizePath = "/v1/authorize"
)

// Client is the auth backend HTTP client. A Client built by New or Isolated
// carries a bare http.Client: no cookie jar, so an exchange can never read or
// clobber the caller's ambient session.
type Client struct {
	BaseURL    string
	ServiceKey string

	timeout time.Duration
	http    *http.Client
}

func New(baseURL, serviceKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		ServiceKey: serviceKey,
		timeout:    timeout,
		http:       &http.Client{Timeout: timeout},
	}
}

// Isolated returns a copy with a fresh transport. Even if someone attaches a
// jar to the original client, the copy starts clean.
func (c *Client) Isolated() identity.Gateway {
	return &Client{
		BaseURL:    c.BaseURL,
		ServiceKey: c.ServiceKey,
		timeout:    c.timeout,
		http:       &http.Client{Timeout: c.timeout},
	}
}

// tokenResponse mirrors the backend's exchange payload.
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	User         struct {
		ID          string `json:"id"`
		Email       string `json:"email"`
		AppMetadata struct {
			Provider string `json:"provider"`
		} `json:"app_metadata"`
		UserMetadata struct {
			FullName  string `json:"full_name"`
			Name      string `json:"name"`
			AvatarURL string `json:"avatar_url"`
		} `json:"user_metadata"`
		Identities []struct {
			ID       string `json:"id"`
			Provider string `json:"provider"`
		} `json:"identities"`
	} `json:"user"`
	Error     string `json:"error,omitempty"`
	ErrorDesc string `json:"error_description,omitempty"`
}

// ExchangeCode redeems the authorization code and normalizes the response
// into an identity.Assertion. Every failure collapses into
// identity.ErrExchangeFailed; codes are single-use so nothing here retries.
func (c *Client) ExchangeCode(ctx context.Context, code string) (*identity.Assertion, error) {
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.BaseURL+tokenPath, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", identity.ErrExchangeFailed, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.ServiceKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", identity.ErrExchangeFailed, err)
	}
	defer resp.Body.Close()

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", identity.ErrExchangeFailed, err)
	}

	if tr.Error != "" {
		return nil, fmt.Errorf("%w: %s %s", identity.ErrExchangeFailed, tr.Error, tr.ErrorDesc)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", identity.ErrExchangeFailed, resp.StatusCode)
	}
	if tr.AccessToken == "" {
		return nil, fmt.Errorf("%w: no access_token in response", identity.ErrExchangeFailed)
	}

	return normalize(&tr), nil
}

// normalize extracts provider and subject. The subject comes from the
// identity entry matching the asserted provider; missing fields are left
// empty for the orchestrator to reject, not guessed at here.
func normalize(tr *tokenResponse) *identity.Assertion {
	provider := strings.ToLower(strings.TrimSpace(tr.User.AppMetadata.Provider))

	var subject string
	for _, id := range tr.User.Identities {
		if strings.EqualFold(id.Provider, provider) {
			subject = id.ID
			break
		}
	}

	name := tr.User.UserMetadata.FullName
	if name == "" {
		name = tr.User.UserMetadata.Name
	}

	return &identity.Assertion{
		Provider:     provider,
		Subject:      subject,
		Email:        tr.User.Email,
		Name:         name,
		AvatarURL:    tr.User.UserMetadata.AvatarURL,
		AccessToken:  tr.AccessToken,
		RefreshToken: tr.RefreshToken,
		ExpiresIn:    tr.ExpiresIn,
	}
}

// AuthorizeURL builds the consent redirect for provider, returning the user
// to redirectTo after the provider round-trip.
func (c *Client) AuthorizeURL(provider, redirectTo string) string {
	u, err := url.Parse(c.BaseURL + authorizePath)
	if err != nil {
		return c.BaseURL + authorizePath
	}
	q := u.Query()
	q.Set("provider", provider)
	if redirectTo != "" {
		q.Set("redirect_to", redirectTo)
	}
	u.RawQuery = q.Encode()
	return u.String()
}
