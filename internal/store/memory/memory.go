// Package memory implements core.Repository in-process for development and
// tests. The mutex-guarded conditional insert gives the same atomicity
// contract as the Postgres unique constraint.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dayoff-kr/moimlink/internal/store/core"
)

type Store struct {
	mu    sync.Mutex
	links map[string]*core.LinkedAccount // by link id
	users map[string]*core.User          // by user id
}

func New() *Store {
	return &Store{
		links: make(map[string]*core.LinkedAccount),
		users: make(map[string]*core.User),
	}
}

func (s *Store) Ping(context.Context) error { return nil }
func (s *Store) Close()                     {}

func copyLink(la *core.LinkedAccount) *core.LinkedAccount {
	cp := *la
	return &cp
}

func (s *Store) FindLink(_ context.Context, userID, provider, subject string) (*core.LinkedAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, la := range s.links {
		if la.UserID == userID && la.Provider == provider && la.Subject == subject {
			return copyLink(la), nil
		}
	}
	return nil, core.ErrNotFound
}

func (s *Store) FindLinkBySubject(_ context.Context, provider, subject string) (*core.LinkedAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if la := s.findBySubjectLocked(provider, subject); la != nil {
		return copyLink(la), nil
	}
	return nil, core.ErrNotFound
}

func (s *Store) findBySubjectLocked(provider, subject string) *core.LinkedAccount {
	for _, la := range s.links {
		if la.Provider == provider && la.Subject == subject {
			return la
		}
	}
	return nil
}

func (s *Store) CreateLink(_ context.Context, in core.CreateLinkInput) (*core.LinkedAccount, error) {
	if in.UserID == "" || in.Provider == "" || in.Subject == "" {
		return nil, core.ErrInvalid
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// check and insert under one lock, same guarantee as the DB constraint
	if s.findBySubjectLocked(in.Provider, in.Subject) != nil {
		return nil, core.ErrConflict
	}

	now := time.Now().UTC()
	la := &core.LinkedAccount{
		ID:        uuid.NewString(),
		UserID:    in.UserID,
		Provider:  in.Provider,
		Subject:   in.Subject,
		Email:     in.Email,
		Username:  in.Username,
		Avatar:    in.Avatar,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.links[la.ID] = la
	return copyLink(la), nil
}

func (s *Store) ListLinks(_ context.Context, userID string) ([]core.LinkedAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []core.LinkedAccount
	for _, la := range s.links {
		if la.UserID == userID {
			out = append(out, *la)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) GetLink(_ context.Context, linkID string) (*core.LinkedAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	la, ok := s.links[linkID]
	if !ok {
		return nil, core.ErrNotFound
	}
	return copyLink(la), nil
}

func (s *Store) DeleteLink(_ context.Context, linkID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.links[linkID]; !ok {
		return core.ErrNotFound
	}
	delete(s.links, linkID)
	return nil
}

func (s *Store) CountLinks(_ context.Context, userID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, la := range s.links {
		if la.UserID == userID {
			n++
		}
	}
	return n, nil
}

func (s *Store) GetUser(_ context.Context, userID string) (*core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return nil, core.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (*core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	email = strings.ToLower(email)
	for _, u := range s.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, core.ErrNotFound
}

func (s *Store) CreateUser(_ context.Context, in core.CreateUserInput) (*core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	email := strings.ToLower(in.Email)
	for _, u := range s.users {
		if u.Email == email {
			return nil, core.ErrConflict
		}
	}

	now := time.Now().UTC()
	u := &core.User{
		ID:        uuid.NewString(),
		Email:     email,
		Username:  in.Username,
		Avatar:    in.Avatar,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.users[u.ID] = u
	cp := *u
	return &cp, nil
}
