package link

import "time"

// LinkedAccount is the wire shape for a provider identity attached to a user.
type LinkedAccount struct {
	ID        string    `json:"id"`
	Provider  string    `json:"provider"`
	Email     string    `json:"provider_email,omitempty"`
	Username  string    `json:"provider_username,omitempty"`
	Avatar    string    `json:"provider_avatar,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// ListAccountsResponse is the response for GET /v1/accounts.
type ListAccountsResponse struct {
	Accounts []LinkedAccount `json:"accounts"`
	Total    int             `json:"total"`
}

// StartLinkResponse is the JSON variant of the start-of-link redirect, for
// clients that prefer to follow the consent URL themselves.
type StartLinkResponse struct {
	AuthorizeURL string `json:"authorize_url"`
}
