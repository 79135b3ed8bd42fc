// Package pg implements the core.Repository on Postgres via pgx.
package pg

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dayoff-kr/moimlink/internal/store/core"
)

type Store struct{ pool *pgxpool.Pool }

// Tuning mirrors the storage.postgres config block.
type Tuning struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime string
}

func New(ctx context.Context, dsn string, t Tuning) (*Store, error) {
	pcfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}

	if t.MaxOpenConns > 0 {
		pcfg.MaxConns = int32(t.MaxOpenConns)
	}
	// pgxpool has no idle count, MinConns is the closest knob
	if t.MaxIdleConns > 0 {
		pcfg.MinConns = int32(t.MaxIdleConns)
	}
	if t.ConnMaxLifetime != "" {
		if d, err := time.ParseDuration(t.ConnMaxLifetime); err == nil {
			pcfg.MaxConnLifetime = d
			pcfg.MaxConnIdleTime = d
		}
	}
	if pcfg.MaxConns == 0 {
		pcfg.MaxConns = 8
	}

	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, err
	}

	return &Store{pool: pool}, nil
}

// Pool exposes the underlying pool (migrations, health).
func (s *Store) Pool() *pgxpool.Pool {
	if s == nil {
		return nil
	}
	return s.pool
}

func (s *Store) Ping(ctx context.Context) error { return s.pool.Ping(ctx) }

func (s *Store) Close() {
	if s != nil && s.pool != nil {
		s.pool.Close()
	}
}

const linkCols = `id, user_id, provider, provider_subject_id, provider_email, provider_username, provider_avatar, created_at, updated_at`

func scanLink(row pgx.Row) (*core.LinkedAccount, error) {
	var la core.LinkedAccount
	err := row.Scan(&la.ID, &la.UserID, &la.Provider, &la.Subject,
		&la.Email, &la.Username, &la.Avatar, &la.CreatedAt, &la.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, core.ErrNotFound
		}
		return nil, err
	}
	return &la, nil
}

func (s *Store) FindLink(ctx context.Context, userID, provider, subject string) (*core.LinkedAccount, error) {
	q := `SELECT ` + linkCols + ` FROM linked_account
WHERE user_id = $1 AND provider = $2 AND provider_subject_id = $3`
	return scanLink(s.pool.QueryRow(ctx, q, userID, provider, subject))
}

func (s *Store) FindLinkBySubject(ctx context.Context, provider, subject string) (*core.LinkedAccount, error) {
	q := `SELECT ` + linkCols + ` FROM linked_account
WHERE provider = $1 AND provider_subject_id = $2`
	return scanLink(s.pool.QueryRow(ctx, q, provider, subject))
}

// CreateLink inserts conditionally: the UNIQUE (provider, provider_subject_id)
// constraint is the only serialization point for concurrent callbacks, so a
// lost race surfaces as core.ErrConflict instead of a duplicate row.
func (s *Store) CreateLink(ctx context.Context, in core.CreateLinkInput) (*core.LinkedAccount, error) {
	if in.UserID == "" || in.Provider == "" || in.Subject == "" {
		return nil, core.ErrInvalid
	}
	q := `
INSERT INTO linked_account (id, user_id, provider, provider_subject_id, provider_email, provider_username, provider_avatar)
VALUES (gen_random_uuid(), $1, $2, $3, $4, $5, $6)
ON CONFLICT (provider, provider_subject_id) DO NOTHING
RETURNING ` + linkCols
	la, err := scanLink(s.pool.QueryRow(ctx, q,
		in.UserID, in.Provider, in.Subject, in.Email, in.Username, in.Avatar))
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			// zero rows: constraint fired
			return nil, core.ErrConflict
		}
		return nil, err
	}
	return la, nil
}

func (s *Store) ListLinks(ctx context.Context, userID string) ([]core.LinkedAccount, error) {
	q := `SELECT ` + linkCols + ` FROM linked_account
WHERE user_id = $1 ORDER BY created_at DESC`
	rows, err := s.pool.Query(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []core.LinkedAccount
	for rows.Next() {
		var la core.LinkedAccount
		if err := rows.Scan(&la.ID, &la.UserID, &la.Provider, &la.Subject,
			&la.Email, &la.Username, &la.Avatar, &la.CreatedAt, &la.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, la)
	}
	return out, rows.Err()
}

func (s *Store) GetLink(ctx context.Context, linkID string) (*core.LinkedAccount, error) {
	q := `SELECT ` + linkCols + ` FROM linked_account WHERE id = $1`
	return scanLink(s.pool.QueryRow(ctx, q, linkID))
}

func (s *Store) DeleteLink(ctx context.Context, linkID string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM linked_account WHERE id = $1`, linkID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (s *Store) CountLinks(ctx context.Context, userID string) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM linked_account WHERE user_id = $1`, userID).Scan(&n)
	return n, err
}

func (s *Store) GetUser(ctx context.Context, userID string) (*core.User, error) {
	return s.scanUser(s.pool.QueryRow(ctx,
		`SELECT id, email, username, avatar, created_at, updated_at FROM app_user WHERE id = $1`, userID))
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*core.User, error) {
	return s.scanUser(s.pool.QueryRow(ctx,
		`SELECT id, email, username, avatar, created_at, updated_at FROM app_user WHERE email = LOWER($1)`, email))
}

func (s *Store) CreateUser(ctx context.Context, in core.CreateUserInput) (*core.User, error) {
	q := `
INSERT INTO app_user (id, email, username, avatar)
VALUES (gen_random_uuid(), LOWER($1), $2, $3)
ON CONFLICT (email) DO NOTHING
RETURNING id, email, username, avatar, created_at, updated_at`
	u, err := s.scanUser(s.pool.QueryRow(ctx, q, in.Email, in.Username, in.Avatar))
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, core.ErrConflict
		}
		return nil, err
	}
	return u, nil
}

func (s *Store) scanUser(row pgx.Row) (*core.User, error) {
	var u core.User
	err := row.Scan(&u.ID, &u.Email, &u.Username, &u.Avatar, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, core.ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

// RunMigrations applies *_up.sql files from fsys/dir in lexical order.
// fsys is usually the embedded migrations FS; os.DirFS works for ad-hoc runs.
func (s *Store) RunMigrations(ctx context.Context, fsys fs.FS, dir string) error {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return err
	}
	var files []string
	for _, e := range entries {
		if e.Type().IsRegular() && strings.HasSuffix(strings.ToLower(e.Name()), "_up.sql") {
			files = append(files, dir+"/"+e.Name())
		}
	}
	sort.Strings(files)
	for _, f := range files {
		b, err := fs.ReadFile(fsys, f)
		if err != nil {
			return err
		}
		if _, err := s.pool.Exec(ctx, string(b)); err != nil {
			return fmt.Errorf("exec %s: %w", f, err)
		}
	}
	return nil
}
