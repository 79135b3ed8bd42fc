// Package session reads and writes application sessions. During account
// linking the store is used strictly read-only: the orchestrator looks up the
// caller's session and must never replace or invalidate it. Create exists for
// the sign-in path only, where there is no session to protect.
package session

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"time"

	"github.com/dayoff-kr/moimlink/internal/cache"
)

var (
	ErrNotFound = errors.New("session: not found")
	ErrExpired  = errors.New("session: expired")
)

type Session struct {
	ID        string    `json:"-"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Valid reports whether the session is usable at time now.
func (s *Session) Valid(now time.Time) bool {
	return s != nil && s.UserID != "" && now.Before(s.ExpiresAt)
}

// Store persists sessions in the cache layer.
type Store interface {
	// Get returns the session for id. ErrNotFound when missing, ErrExpired
	// when present but past its expiry.
	Get(ctx context.Context, id string) (*Session, error)

	// Create issues a new session for userID with the configured TTL.
	Create(ctx context.Context, userID string) (*Session, error)

	// Delete removes a session. Missing sessions are not an error.
	Delete(ctx context.Context, id string) error
}

const keyPrefix = "sess:"

type cacheStore struct {
	cache cache.Client
	ttl   time.Duration
}

// NewStore creates a cache-backed session store.
func NewStore(c cache.Client, ttl time.Duration) Store {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &cacheStore{cache: c, ttl: ttl}
}

func (s *cacheStore) Get(ctx context.Context, id string) (*Session, error) {
	if id == "" {
		return nil, ErrNotFound
	}
	b, err := s.cache.Get(ctx, keyPrefix+id)
	if err != nil {
		if cache.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	var sess Session
	if err := json.Unmarshal(b, &sess); err != nil {
		return nil, ErrNotFound
	}
	sess.ID = id

	if !time.Now().UTC().Before(sess.ExpiresAt) {
		return nil, ErrExpired
	}
	return &sess, nil
}

func (s *cacheStore) Create(ctx context.Context, userID string) (*Session, error) {
	id, err := newID()
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	sess := &Session{
		ID:        id,
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}

	b, err := json.Marshal(sess)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Set(ctx, keyPrefix+id, b, s.ttl); err != nil {
		return nil, err
	}
	return sess, nil
}

func (s *cacheStore) Delete(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	return s.cache.Delete(ctx, keyPrefix+id)
}

// newID returns a 256-bit random, URL-safe session id.
func newID() (string, error) {
	var b [32]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b[:]), nil
}
