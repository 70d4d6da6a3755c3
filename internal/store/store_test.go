package store

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
)

func TestOpen_CreatesDataDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "data")
	s, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	if err := s.DB().PingContext(context.Background()); err != nil {
		t.Fatalf("PingContext: %v", err)
	}
}

func TestMigrate_AppliesOnce(t *testing.T) {
	s, err := New(":memory:")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer s.Close()

	calls := 0
	migrations := []Migration{
		{
			Version:     1,
			Description: "create widgets",
			Up: func(tx *sql.Tx) error {
				calls++
				_, err := tx.Exec(`CREATE TABLE widgets (id INTEGER PRIMARY KEY)`)
				return err
			},
		},
	}

	ctx := context.Background()
	if err := s.Migrate(ctx, "test", migrations); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	if err := s.Migrate(ctx, "test", migrations); err != nil {
		t.Fatalf("second Migrate: %v", err)
	}
	if calls != 1 {
		t.Errorf("migration ran %d times, want 1", calls)
	}
}

func TestMigrate_VersionsPerOwner(t *testing.T) {
	s, err := New(":memory:")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer s.Close()

	ctx := context.Background()
	table := func(name string) []Migration {
		return []Migration{{
			Version:     1,
			Description: "create " + name,
			Up: func(tx *sql.Tx) error {
				_, err := tx.Exec(`CREATE TABLE ` + name + ` (id INTEGER PRIMARY KEY)`)
				return err
			},
		}}
	}
	if err := s.Migrate(ctx, "catalog", table("sessions")); err != nil {
		t.Fatalf("Migrate catalog: %v", err)
	}
	if err := s.Migrate(ctx, "exclusions", table("exclusions")); err != nil {
		t.Fatalf("Migrate exclusions: %v", err)
	}

	var n int
	if err := s.DB().QueryRowContext(ctx, "SELECT COUNT(*) FROM _migrations WHERE version = 1").Scan(&n); err != nil {
		t.Fatalf("count migrations: %v", err)
	}
	if n != 2 {
		t.Errorf("recorded %d version-1 migrations, want one per owner", n)
	}
}

func TestTx_RollsBackOnError(t *testing.T) {
	s, err := New(":memory:")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer s.Close()

	ctx := context.Background()
	if _, err := s.DB().ExecContext(ctx, `CREATE TABLE t (v INTEGER)`); err != nil {
		t.Fatalf("create: %v", err)
	}

	boom := errors.New("boom")
	err = s.Tx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `INSERT INTO t (v) VALUES (1)`); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("Tx err = %v, want boom", err)
	}

	var n int
	if err := s.DB().QueryRowContext(ctx, `SELECT COUNT(*) FROM t`).Scan(&n); err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 0 {
		t.Errorf("rows after rollback = %d, want 0", n)
	}
}
