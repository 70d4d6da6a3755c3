package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/HerbHall/wificomp/internal/exclusion"
	"github.com/HerbHall/wificomp/internal/store"
)

// Compile-time interface guard.
var _ exclusion.Store = (*SQLiteExclusionRepository)(nil)

// SQLiteExclusionRepository persists permanent exclusion rules.
type SQLiteExclusionRepository struct {
	db *sql.DB
}

// NewSQLiteExclusionRepository runs the exclusions migrations and returns the
// repository.
func NewSQLiteExclusionRepository(ctx context.Context, s Store) (*SQLiteExclusionRepository, error) {
	if err := s.Migrate(ctx, "exclusions", exclusionMigrations); err != nil {
		return nil, fmt.Errorf("exclusion migrations: %w", err)
	}
	return &SQLiteExclusionRepository{db: s.DB()}, nil
}

func (r *SQLiteExclusionRepository) ListExclusions(ctx context.Context) ([]exclusion.Key, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT kind, value FROM exclusions ORDER BY kind, value`)
	if err != nil {
		return nil, fmt.Errorf("list exclusions: %w", err)
	}
	defer rows.Close()

	var keys []exclusion.Key
	for rows.Next() {
		var k exclusion.Key
		var kind string
		if err := rows.Scan(&kind, &k.Value); err != nil {
			return nil, fmt.Errorf("scan exclusion row: %w", err)
		}
		k.Kind = exclusion.Kind(kind)
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// AddExclusion is idempotent: re-adding an existing rule is not an error.
func (r *SQLiteExclusionRepository) AddExclusion(ctx context.Context, key exclusion.Key) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO exclusions (kind, value, created_at)
		VALUES (?, ?, ?)
		ON CONFLICT (kind, value) DO NOTHING`,
		string(key.Kind), key.Value, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("add exclusion %s: %w", key, err)
	}
	return nil
}

func (r *SQLiteExclusionRepository) RemoveExclusion(ctx context.Context, key exclusion.Key) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM exclusions WHERE kind = ? AND value = ?`, string(key.Kind), key.Value)
	if err != nil {
		return fmt.Errorf("remove exclusion %s: %w", key, err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// exclusionMigrations defines the database schema for exclusions.
var exclusionMigrations = []store.Migration{
	{
		Version:     1,
		Description: "create exclusions table",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
				CREATE TABLE exclusions (
					kind       TEXT NOT NULL,
					value      TEXT NOT NULL,
					created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
					PRIMARY KEY (kind, value)
				)`)
			return err
		},
	},
}
