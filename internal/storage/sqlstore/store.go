package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/yndnr/skillgate-go/internal/core/domain"
	"github.com/yndnr/skillgate-go/internal/core/service"
)

// Pool bounds.
const (
	DefaultMaxOpenConns = 10
	MinMaxOpenConns     = 1
	MaxMaxOpenConns     = 100
)

// Config configures the SQLite store.
type Config struct {
	// Path is the database file. Parent directories are created.
	Path string

	// MaxOpenConns bounds the connection pool (1-100).
	MaxOpenConns int

	// BusyTimeout is how long a connection waits on a locked database.
	BusyTimeout time.Duration
}

// Store is a SQLite-backed credential repository.
type Store struct {
	db *sql.DB
}

var _ service.CredentialRepository = (*Store)(nil)

// Open opens (creating if needed) the database at cfg.Path and applies the
// schema.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, errors.New("sqlite path required")
	}
	if cfg.MaxOpenConns == 0 {
		cfg.MaxOpenConns = DefaultMaxOpenConns
	}
	if cfg.MaxOpenConns < MinMaxOpenConns || cfg.MaxOpenConns > MaxMaxOpenConns {
		return nil, fmt.Errorf("max_open_conns must be between %d and %d", MinMaxOpenConns, MaxMaxOpenConns)
	}
	if cfg.BusyTimeout <= 0 {
		cfg.BusyTimeout = 5 * time.Second
	}

	if dir := filepath.Dir(cfg.Path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("create sqlite dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dsn(cfg))
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxOpenConns)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

// dsn builds a connection string whose pragmas apply to every pooled
// connection, not just the first.
func dsn(cfg Config) string {
	q := url.Values{}
	q.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", cfg.BusyTimeout.Milliseconds()))
	q.Add("_pragma", "journal_mode(WAL)")
	q.Add("_pragma", "synchronous(NORMAL)")
	q.Add("_pragma", "foreign_keys(1)")
	return "file:" + cfg.Path + "?" + q.Encode()
}

// Close closes the pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the pool for health checks.
func (s *Store) DB() *sql.DB {
	return s.db
}

// withConn borrows a connection for the duration of fn.
func (s *Store) withConn(ctx context.Context, fn func(conn *sql.Conn) error) error {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return domain.ErrStorage.WithCause(err)
	}
	defer conn.Close()
	return classify(fn(conn))
}

// withTx runs fn in a transaction on a borrowed connection.
func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	return s.withConn(ctx, func(conn *sql.Conn) error {
		tx, err := conn.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		if err := fn(tx); err != nil {
			_ = tx.Rollback()
			return err
		}
		return tx.Commit()
	})
}

const tokenColumns = `id, user_id, name, token_hash, is_active, expires_at_ns, last_used_at_ns, created_at_ns`

const userColumns = `id, email, username, is_active, is_superuser, created_at_ns`

// LookupByDigest retrieves a token by the digest of its plaintext.
func (s *Store) LookupByDigest(ctx context.Context, digest string) (*domain.APIToken, error) {
	var tok *domain.APIToken
	err := s.withConn(ctx, func(conn *sql.Conn) error {
		row := conn.QueryRowContext(ctx, `SELECT `+tokenColumns+` FROM api_tokens WHERE token_hash = ?`, digest)
		var err error
		tok, err = scanToken(row)
		return err
	})
	return tok, err
}

// GetUser retrieves a user by ID.
func (s *Store) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	var u *domain.User
	err := s.withConn(ctx, func(conn *sql.Conn) error {
		row := conn.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, userID)
		var err error
		u, err = scanUser(row)
		return err
	})
	return u, err
}

// MarkUsed sets the token's last-used instant.
func (s *Store) MarkUsed(ctx context.Context, tokenID string, at time.Time) error {
	return s.withConn(ctx, func(conn *sql.Conn) error {
		res, err := conn.ExecContext(ctx, `UPDATE api_tokens SET last_used_at_ns = ? WHERE id = ?`, at.UnixNano(), tokenID)
		if err != nil {
			return err
		}
		return requireRow(res, domain.ErrTokenNotFound)
	})
}

// CreateUser stores a new user.
func (s *Store) CreateUser(ctx context.Context, u *domain.User) error {
	return s.withConn(ctx, func(conn *sql.Conn) error {
		_, err := conn.ExecContext(ctx,
			`INSERT INTO users (`+userColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
			u.ID, u.Email, u.Username, u.IsActive, u.IsSuperuser, u.CreatedAt.UnixNano(),
		)
		if isConstraint(err) {
			return domain.ErrUserConflict
		}
		return err
	})
}

// UpdateUser replaces an existing user.
func (s *Store) UpdateUser(ctx context.Context, u *domain.User) error {
	return s.withConn(ctx, func(conn *sql.Conn) error {
		res, err := conn.ExecContext(ctx,
			`UPDATE users SET email = ?, username = ?, is_active = ?, is_superuser = ? WHERE id = ?`,
			u.Email, u.Username, u.IsActive, u.IsSuperuser, u.ID,
		)
		if isConstraint(err) {
			return domain.ErrUserConflict
		}
		if err != nil {
			return err
		}
		return requireRow(res, domain.ErrUserNotFound)
	})
}

// ListUsers returns all users ordered by creation time.
func (s *Store) ListUsers(ctx context.Context) ([]*domain.User, error) {
	var users []*domain.User
	err := s.withConn(ctx, func(conn *sql.Conn) error {
		rows, err := conn.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at_ns, id`)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			u, err := scanUser(rows)
			if err != nil {
				return err
			}
			users = append(users, u)
		}
		return rows.Err()
	})
	return users, err
}

// CreateToken stores a new token.
func (s *Store) CreateToken(ctx context.Context, tok *domain.APIToken) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		var one int
		err := tx.QueryRowContext(ctx, `SELECT 1 FROM users WHERE id = ?`, tok.UserID).Scan(&one)
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrUserNotFound
		}
		if err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx,
			`INSERT INTO api_tokens (`+tokenColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			tok.ID, tok.UserID, tok.Name, tok.TokenHash, tok.IsActive,
			nullTime(tok.ExpiresAt), nullTime(tok.LastUsedAt), tok.CreatedAt.UnixNano(),
		)
		if isConstraint(err) {
			return domain.ErrStorage.WithDetails("token already exists")
		}
		return err
	})
}

// GetToken retrieves a token by ID.
func (s *Store) GetToken(ctx context.Context, tokenID string) (*domain.APIToken, error) {
	var tok *domain.APIToken
	err := s.withConn(ctx, func(conn *sql.Conn) error {
		row := conn.QueryRowContext(ctx, `SELECT `+tokenColumns+` FROM api_tokens WHERE id = ?`, tokenID)
		var err error
		tok, err = scanToken(row)
		return err
	})
	return tok, err
}

// UpdateToken replaces the mutable fields of an existing token. The digest
// and owner are fixed at creation, and last_used_at is left to MarkUsed.
func (s *Store) UpdateToken(ctx context.Context, tok *domain.APIToken) error {
	return s.withConn(ctx, func(conn *sql.Conn) error {
		res, err := conn.ExecContext(ctx,
			`UPDATE api_tokens SET name = ?, is_active = ?, expires_at_ns = ? WHERE id = ? AND token_hash = ? AND user_id = ?`,
			tok.Name, tok.IsActive, nullTime(tok.ExpiresAt), tok.ID, tok.TokenHash, tok.UserID,
		)
		if err != nil {
			return err
		}
		if n, err := res.RowsAffected(); err != nil || n > 0 {
			return err
		}

		var exists int
		err = conn.QueryRowContext(ctx, `SELECT 1 FROM api_tokens WHERE id = ?`, tok.ID).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrTokenNotFound
		}
		if err != nil {
			return err
		}
		return domain.ErrInvalidArgument.WithDetails("token digest and owner are immutable")
	})
}

// ListTokens returns the user's tokens ordered by creation time.
func (s *Store) ListTokens(ctx context.Context, userID string) ([]*domain.APIToken, error) {
	var tokens []*domain.APIToken
	err := s.withConn(ctx, func(conn *sql.Conn) error {
		rows, err := conn.QueryContext(ctx,
			`SELECT `+tokenColumns+` FROM api_tokens WHERE user_id = ? ORDER BY created_at_ns, id`, userID)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			tok, err := scanToken(rows)
			if err != nil {
				return err
			}
			tokens = append(tokens, tok)
		}
		return rows.Err()
	})
	return tokens, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(row scanner) (*domain.User, error) {
	var (
		u         domain.User
		createdNS int64
	)
	err := row.Scan(&u.ID, &u.Email, &u.Username, &u.IsActive, &u.IsSuperuser, &createdNS)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	u.CreatedAt = time.Unix(0, createdNS).UTC()
	return &u, nil
}

func scanToken(row scanner) (*domain.APIToken, error) {
	var (
		tok               domain.APIToken
		expires, lastUsed sql.NullInt64
		createdNS         int64
	)
	err := row.Scan(&tok.ID, &tok.UserID, &tok.Name, &tok.TokenHash, &tok.IsActive, &expires, &lastUsed, &createdNS)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrTokenNotFound
	}
	if err != nil {
		return nil, err
	}
	tok.CreatedAt = time.Unix(0, createdNS).UTC()
	tok.ExpiresAt = fromNull(expires)
	tok.LastUsedAt = fromNull(lastUsed)
	return &tok, nil
}

func nullTime(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UnixNano(), Valid: true}
}

func fromNull(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := time.Unix(0, v.Int64).UTC()
	return &t
}

func requireRow(res sql.Result, sentinel *domain.DomainError) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sentinel
	}
	return nil
}

func isConstraint(err error) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	switch se.Code() {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return true
	}
	return false
}

// classify passes domain errors through and wraps everything else as
// STORAGE_ERROR.
func classify(err error) error {
	if err == nil || domain.IsDomainError(err, "") {
		return err
	}
	return domain.ErrStorage.WithCause(err)
}

// Count returns the number of stored users and tokens.
func (s *Store) Count(ctx context.Context) (users, tokens int, err error) {
	err = s.withConn(ctx, func(conn *sql.Conn) error {
		return conn.QueryRowContext(ctx,
			`SELECT (SELECT COUNT(*) FROM users), (SELECT COUNT(*) FROM api_tokens)`).Scan(&users, &tokens)
	})
	return users, tokens, err
}
