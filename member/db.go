package member

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

//go:embed migrations/sqlite/*.sql migrations/postgres/*.sql
var migrationFS embed.FS

// Dialect selects SQL flavour and driver.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

// ParseDSN picks the dialect for dsn. postgres:// and postgresql:// URLs use
// pgx; anything else is treated as a SQLite file path, optionally prefixed
// with sqlite://.
func ParseDSN(dsn string) (Dialect, string, error) {
	dsn = strings.TrimSpace(dsn)
	switch {
	case dsn == "":
		return "", "", errors.New("database DSN is empty")
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		return DialectPostgres, dsn, nil
	default:
		return DialectSQLite, strings.TrimPrefix(dsn, "sqlite://"), nil
	}
}

// Open opens and pings the database named by dsn. Caller must call Close.
func Open(ctx context.Context, dsn string) (*sql.DB, Dialect, error) {
	dialect, target, err := ParseDSN(dsn)
	if err != nil {
		return nil, "", err
	}

	var db *sql.DB
	switch dialect {
	case DialectPostgres:
		db, err = sql.Open("pgx", target)
	default:
		db, err = sql.Open("sqlite", sqliteDSN(target))
		if err == nil {
			// SQLite allows a single writer.
			db.SetMaxOpenConns(1)
		}
	}
	if err != nil {
		return nil, "", fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, "", fmt.Errorf("failed to ping database: %w", err)
	}
	return db, dialect, nil
}

const sqlitePragmas = "_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"

// sqliteDSN appends the connection pragmas, keeping any query the caller
// already supplied.
func sqliteDSN(target string) string {
	sep := "?"
	if strings.Contains(target, "?") {
		sep = "&"
	}
	return target + sep + sqlitePragmas
}

// Migrate applies every pending up migration for dsn. Already being at the
// latest version is not an error.
func Migrate(dsn string) error {
	dialect, target, err := ParseDSN(dsn)
	if err != nil {
		return err
	}

	sub, err := fs.Sub(migrationFS, "migrations/"+string(dialect))
	if err != nil {
		return fmt.Errorf("migrate source: %w", err)
	}
	sourceDriver, err := iofs.New(sub, ".")
	if err != nil {
		return fmt.Errorf("migrate source: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", sourceDriver, migrateURL(dialect, target))
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	defer func() { _, _ = m.Close() }()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate up: %w", err)
	}
	return nil
}

func migrateURL(dialect Dialect, target string) string {
	if dialect == DialectPostgres {
		// The pgx/v5 migrate driver registers the pgx5 scheme.
		return "pgx5://" + strings.SplitN(target, "://", 2)[1]
	}
	return "sqlite://" + target
}
