package core

import "context"

// Repository is the linked-identity store. CreateLink is the single point
// that serializes concurrent writers: implementations must use a conditional
// insert backed by the (provider, subject) uniqueness constraint, never a
// check-then-insert. Reads may be stale; the insert's constraint re-validates
// them.
type Repository interface {
	Ping(ctx context.Context) error

	// Links
	FindLink(ctx context.Context, userID, provider, subject string) (*LinkedAccount, error)
	FindLinkBySubject(ctx context.Context, provider, subject string) (*LinkedAccount, error)
	CreateLink(ctx context.Context, in CreateLinkInput) (*LinkedAccount, error)
	ListLinks(ctx context.Context, userID string) ([]LinkedAccount, error)
	GetLink(ctx context.Context, linkID string) (*LinkedAccount, error)
	DeleteLink(ctx context.Context, linkID string) error
	CountLinks(ctx context.Context, userID string) (int, error)

	// Users (sign-in path provisioning)
	GetUser(ctx context.Context, userID string) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	CreateUser(ctx context.Context, in CreateUserInput) (*User, error)

	Close()
}
