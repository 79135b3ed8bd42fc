// Package core defines the storage types and the repository contract for
// users and their linked provider identities.
package core

import "time"

type User struct {
	ID        string
	Email     string
	Username  string
	Avatar    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// LinkedAccount is the persistent mapping between an application user and an
// external provider identity. Subject is the provider-assigned stable user id
// (never the authorization code, which is single-use and non-stable).
type LinkedAccount struct {
	ID        string
	UserID    string
	Provider  string
	Subject   string
	Email     *string
	Username  *string
	Avatar    *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CreateLinkInput carries the fields persisted for a new link. Display
// metadata is optional; provider and subject are not.
type CreateLinkInput struct {
	UserID   string
	Provider string
	Subject  string
	Email    *string
	Username *string
	Avatar   *string
}

// CreateUserInput provisions an application user on first social sign-in.
type CreateUserInput struct {
	Email    string
	Username string
	Avatar   string
}
