package member

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

const memberColumns = "id, email, password_hash, authorities, active, created_at"

// SQLStore is the member directory backed by database/sql.
type SQLStore struct {
	db      *sql.DB
	dialect Dialect
	now     func() time.Time
}

// NewSQLStore wraps an open database. The schema must already be migrated.
func NewSQLStore(db *sql.DB, dialect Dialect) *SQLStore {
	return &SQLStore{db: db, dialect: dialect, now: time.Now}
}

// FindByEmail looks a member up by normalized email.
func (s *SQLStore) FindByEmail(ctx context.Context, email string) (*Member, error) {
	query := s.rebind("SELECT " + memberColumns + " FROM members WHERE email = ?")
	return s.scanOne(s.db.QueryRowContext(ctx, query, NormalizeEmail(email)))
}

// FindByID looks a member up by id.
func (s *SQLStore) FindByID(ctx context.Context, id string) (*Member, error) {
	query := s.rebind("SELECT " + memberColumns + " FROM members WHERE id = ?")
	return s.scanOne(s.db.QueryRowContext(ctx, query, id))
}

// Create inserts an active member with a fresh id. A duplicate email yields
// ErrExists, including when two signups race on the unique index.
func (s *SQLStore) Create(ctx context.Context, nm NewMember) (*Member, error) {
	m := &Member{
		ID:           uuid.NewString(),
		Email:        NormalizeEmail(nm.Email),
		PasswordHash: nm.PasswordHash,
		Active:       true,
		CreatedAt:    s.now().UTC().Truncate(time.Millisecond),
	}
	authorities := joinAuthorities(nm.Authorities)
	m.Authorities = splitAuthorities(authorities)

	query := s.rebind(`INSERT INTO members (` + memberColumns + `) VALUES (?, ?, ?, ?, ?, ?)`)
	_, err := s.db.ExecContext(ctx, query,
		m.ID, m.Email, m.PasswordHash, authorities, m.Active, m.CreatedAt.UnixMilli())
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: %s", ErrExists, m.Email)
		}
		return nil, fmt.Errorf("failed to create member: %w", err)
	}
	return m, nil
}

// SetActive enables or disables a member. Disabled members cannot log in or
// reissue tokens.
func (s *SQLStore) SetActive(ctx context.Context, id string, active bool) error {
	query := s.rebind("UPDATE members SET active = ? WHERE id = ?")
	result, err := s.db.ExecContext(ctx, query, active, id)
	if err != nil {
		return fmt.Errorf("failed to update member: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdatePasswordHash replaces a member's stored hash, used when a login
// upgrades a legacy or weaker hash.
func (s *SQLStore) UpdatePasswordHash(ctx context.Context, id, hash string) error {
	query := s.rebind("UPDATE members SET password_hash = ? WHERE id = ?")
	result, err := s.db.ExecContext(ctx, query, hash, id)
	if err != nil {
		return fmt.Errorf("failed to update password hash: %w", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLStore) scanOne(row *sql.Row) (*Member, error) {
	var (
		m           Member
		authorities string
		createdAt   int64
	)
	err := row.Scan(&m.ID, &m.Email, &m.PasswordHash, &authorities, &m.Active, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load member: %w", err)
	}
	m.Authorities = splitAuthorities(authorities)
	m.CreatedAt = time.UnixMilli(createdAt).UTC()
	return &m, nil
}

// rebind rewrites ? placeholders to $n for Postgres.
func (s *SQLStore) rebind(query string) string {
	if s.dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		switch liteErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return true
		}
	}
	// Primary result codes only say SQLITE_CONSTRAINT.
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
