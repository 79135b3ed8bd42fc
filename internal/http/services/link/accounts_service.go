package link

import (
	"context"
	"errors"
	"fmt"

	"github.com/dayoff-kr/moimlink/internal/metrics"
	"github.com/dayoff-kr/moimlink/internal/observability/logger"
	"github.com/dayoff-kr/moimlink/internal/store/core"
)

// AccountsService manages a user's linked accounts after they exist.
type AccountsService interface {
	// List returns the user's linked accounts, newest first.
	List(ctx context.Context, userID string) ([]core.LinkedAccount, error)

	// Unlink removes one linked account. The last remaining identity cannot
	// be removed: it would strand the user without a way back in.
	Unlink(ctx context.Context, userID, linkID string) error
}

// Errors for the accounts service.
var (
	ErrAccountNotFound    = errors.New("linked account not found")
	ErrLastLinkedIdentity = errors.New("cannot remove the last linked identity")
	ErrAccountsRepository = errors.New("repository failure")
)

// AccountsDeps contains dependencies for the accounts service.
type AccountsDeps struct {
	Repo core.Repository
}

type accountsService struct {
	repo core.Repository
}

// NewAccountsService creates a new AccountsService.
func NewAccountsService(d AccountsDeps) AccountsService {
	return &accountsService{repo: d.Repo}
}

func (s *accountsService) List(ctx context.Context, userID string) ([]core.LinkedAccount, error) {
	links, err := s.repo.ListLinks(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAccountsRepository, err)
	}
	return links, nil
}

func (s *accountsService) Unlink(ctx context.Context, userID, linkID string) error {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("link.accounts"),
		logger.UserID(userID),
		logger.LinkID(linkID),
	)

	ln, err := s.repo.GetLink(ctx, linkID)
	if errors.Is(err, core.ErrNotFound) {
		return ErrAccountNotFound
	}
	if err != nil {
		return fmt.Errorf("%w: %v", ErrAccountsRepository, err)
	}
	// Another user's link is indistinguishable from a missing one.
	if ln.UserID != userID {
		return ErrAccountNotFound
	}

	n, err := s.repo.CountLinks(ctx, userID)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrAccountsRepository, err)
	}
	if n <= 1 {
		log.Warn("unlink rejected, last identity")
		return ErrLastLinkedIdentity
	}

	if err := s.repo.DeleteLink(ctx, linkID); err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return ErrAccountNotFound
		}
		return fmt.Errorf("%w: %v", ErrAccountsRepository, err)
	}

	metrics.Unlinks.Inc()
	log.Info("account unlinked", logger.Provider(ln.Provider))
	return nil
}
