package member

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
)

type directory interface {
	FindByEmail(ctx context.Context, email string) (*Member, error)
	FindByID(ctx context.Context, id string) (*Member, error)
	Create(ctx context.Context, nm NewMember) (*Member, error)
	SetActive(ctx context.Context, id string, active bool) error
	UpdatePasswordHash(ctx context.Context, id, hash string) error
}

func newSQLiteStore(t *testing.T) *SQLStore {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "members.db")
	if err := Migrate(dsn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	// Migrating twice is a no-op.
	if err := Migrate(dsn); err != nil {
		t.Fatalf("second migrate: %v", err)
	}
	db, dialect, err := Open(context.Background(), dsn)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if dialect != DialectSQLite {
		t.Fatalf("expected sqlite dialect, got %s", dialect)
	}
	return NewSQLStore(db, dialect)
}

func stores(t *testing.T) map[string]directory {
	return map[string]directory{
		"sqlite": newSQLiteStore(t),
		"memory": NewMemoryStore(),
	}
}

func TestCreateAndFind(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			created, err := store.Create(ctx, NewMember{
				Email:        "  Ann@Example.com ",
				PasswordHash: "$argon2id$hash",
				Authorities:  []string{"ROLE_MEMBER", " ", "ROLE_WRITER"},
			})
			if err != nil {
				t.Fatalf("create: %v", err)
			}
			if created.Email != "ann@example.com" || !created.Active || created.ID == "" {
				t.Fatalf("unexpected member: %+v", created)
			}

			byEmail, err := store.FindByEmail(ctx, "ANN@example.com")
			if err != nil {
				t.Fatalf("find by email: %v", err)
			}
			if byEmail.ID != created.ID || byEmail.PasswordHash != "$argon2id$hash" {
				t.Fatalf("unexpected lookup result: %+v", byEmail)
			}
			if len(byEmail.Authorities) != 2 || byEmail.Authorities[0] != "ROLE_MEMBER" || byEmail.Authorities[1] != "ROLE_WRITER" {
				t.Fatalf("unexpected authorities: %v", byEmail.Authorities)
			}

			byID, err := store.FindByID(ctx, created.ID)
			if err != nil || byID.Email != created.Email {
				t.Fatalf("find by id: %+v %v", byID, err)
			}
		})
	}
}

func TestNotFound(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			if _, err := store.FindByEmail(ctx, "nobody@example.com"); !errors.Is(err, ErrNotFound) {
				t.Fatalf("expected ErrNotFound, got %v", err)
			}
			if _, err := store.FindByID(ctx, "missing"); !errors.Is(err, ErrNotFound) {
				t.Fatalf("expected ErrNotFound, got %v", err)
			}
			if err := store.SetActive(ctx, "missing", false); !errors.Is(err, ErrNotFound) {
				t.Fatalf("expected ErrNotFound, got %v", err)
			}
		})
	}
}

func TestDuplicateEmail(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			if _, err := store.Create(ctx, NewMember{Email: "dup@example.com", PasswordHash: "h"}); err != nil {
				t.Fatalf("create: %v", err)
			}
			_, err := store.Create(ctx, NewMember{Email: "DUP@example.com", PasswordHash: "h"})
			if !errors.Is(err, ErrExists) {
				t.Fatalf("expected ErrExists, got %v", err)
			}
		})
	}
}

func TestConcurrentSignupSingleWinner(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			var (
				wg       sync.WaitGroup
				mu       sync.Mutex
				created  int
				existing int
			)
			for i := 0; i < 8; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					_, err := store.Create(ctx, NewMember{Email: "race@example.com", PasswordHash: "h"})
					mu.Lock()
					defer mu.Unlock()
					switch {
					case err == nil:
						created++
					case errors.Is(err, ErrExists):
						existing++
					default:
						t.Errorf("unexpected error: %v", err)
					}
				}()
			}
			wg.Wait()
			if created != 1 || existing != 7 {
				t.Fatalf("expected 1 created and 7 duplicates, got %d and %d", created, existing)
			}
		})
	}
}

func TestSetActive(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			m, err := store.Create(ctx, NewMember{Email: "off@example.com", PasswordHash: "h"})
			if err != nil {
				t.Fatalf("create: %v", err)
			}
			if err := store.SetActive(ctx, m.ID, false); err != nil {
				t.Fatalf("set active: %v", err)
			}
			got, err := store.FindByID(ctx, m.ID)
			if err != nil || got.Active {
				t.Fatalf("expected inactive member, got %+v %v", got, err)
			}
		})
	}
}

func TestUpdatePasswordHash(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			m, err := store.Create(ctx, NewMember{Email: "rehash@example.com", PasswordHash: "old"})
			if err != nil {
				t.Fatalf("create: %v", err)
			}
			if err := store.UpdatePasswordHash(ctx, m.ID, "new"); err != nil {
				t.Fatalf("update: %v", err)
			}
			got, err := store.FindByEmail(ctx, "rehash@example.com")
			if err != nil || got.PasswordHash != "new" {
				t.Fatalf("expected updated hash, got %+v %v", got, err)
			}
			if err := store.UpdatePasswordHash(ctx, "missing", "x"); !errors.Is(err, ErrNotFound) {
				t.Fatalf("expected ErrNotFound, got %v", err)
			}
		})
	}
}

func TestParseDSN(t *testing.T) {
	cases := []struct {
		dsn     string
		dialect Dialect
		target  string
	}{
		{"postgres://u:p@localhost:5432/board", DialectPostgres, "postgres://u:p@localhost:5432/board"},
		{"postgresql://localhost/board", DialectPostgres, "postgresql://localhost/board"},
		{"sqlite:///var/lib/board/members.db", DialectSQLite, "/var/lib/board/members.db"},
		{"./members.db", DialectSQLite, "./members.db"},
	}
	for _, tc := range cases {
		dialect, target, err := ParseDSN(tc.dsn)
		if err != nil {
			t.Fatalf("parse %q: %v", tc.dsn, err)
		}
		if dialect != tc.dialect || target != tc.target {
			t.Fatalf("parse %q: got %s %q", tc.dsn, dialect, target)
		}
	}
	if _, _, err := ParseDSN(" "); err == nil {
		t.Fatal("expected empty DSN to fail")
	}
	if got := migrateURL(DialectPostgres, "postgres://localhost/board"); got != "pgx5://localhost/board" {
		t.Fatalf("unexpected migrate url %q", got)
	}
}

func TestSQLiteDSNKeepsCallerQuery(t *testing.T) {
	if got := sqliteDSN("/data/m.db"); got != "/data/m.db?"+sqlitePragmas {
		t.Fatalf("unexpected dsn %q", got)
	}
	if got := sqliteDSN("/data/m.db?_txlock=immediate"); got != "/data/m.db?_txlock=immediate&"+sqlitePragmas {
		t.Fatalf("unexpected dsn %q", got)
	}

	path := filepath.Join(t.TempDir(), "members.db") + "?_pragma=synchronous(NORMAL)"
	db, dialect, err := Open(context.Background(), path)
	if err != nil {
		t.Fatalf("open with query: %v", err)
	}
	defer db.Close()
	if dialect != DialectSQLite {
		t.Fatalf("unexpected dialect %s", dialect)
	}
}

func TestRebind(t *testing.T) {
	pg := &SQLStore{dialect: DialectPostgres}
	if got := pg.rebind("UPDATE members SET active = ? WHERE id = ?"); got != "UPDATE members SET active = $1 WHERE id = $2" {
		t.Fatalf("unexpected rebind %q", got)
	}
	lite := &SQLStore{dialect: DialectSQLite}
	if got := lite.rebind("id = ?"); got != "id = ?" {
		t.Fatalf("sqlite query should be unchanged, got %q", got)
	}
}
