package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/HerbHall/wificomp/internal/store"
	"github.com/HerbHall/wificomp/pkg/models"
)

// CatalogRepository indexes saved session files for fast listing.
type CatalogRepository interface {
	// Get returns a single entry by ID.
	Get(ctx context.Context, id string) (*models.SessionInfo, error)

	// GetByPath returns the entry for a session file path.
	GetByPath(ctx context.Context, path string) (*models.SessionInfo, error)

	// List returns a paginated list ordered by session start time.
	// SortBy may be "started_at" (default), "adapter_name", or "scan_count".
	List(ctx context.Context, adapter string, opts ListOptions) (*ListResult[models.SessionInfo], error)

	// Upsert inserts or refreshes the entry for info.Path. If info.ID is
	// empty, a UUID is generated or the existing ID is reused.
	Upsert(ctx context.Context, info *models.SessionInfo) error

	// Delete removes an entry by ID.
	Delete(ctx context.Context, id string) error

	// Adapters summarizes entries per adapter name, alphabetically.
	Adapters(ctx context.Context) ([]models.AdapterSummary, error)
}

// Compile-time interface guard.
var _ CatalogRepository = (*SQLiteCatalogRepository)(nil)

// SQLiteCatalogRepository implements CatalogRepository using SQLite.
type SQLiteCatalogRepository struct {
	db *sql.DB
}

// NewSQLiteCatalogRepository runs the catalog migrations and returns the
// repository.
func NewSQLiteCatalogRepository(ctx context.Context, s Store) (*SQLiteCatalogRepository, error) {
	if err := s.Migrate(ctx, "catalog", catalogMigrations); err != nil {
		return nil, fmt.Errorf("catalog migrations: %w", err)
	}
	return &SQLiteCatalogRepository{db: s.DB()}, nil
}

const catalogColumns = `id, path, adapter_name, interface, chipset, label,
	started_at, scan_count, ap_count, quarantined, indexed_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanInfo(row rowScanner) (models.SessionInfo, error) {
	var info models.SessionInfo
	err := row.Scan(&info.ID, &info.Path, &info.AdapterName, &info.Interface,
		&info.Chipset, &info.Label, &info.StartedAt, &info.ScanCount,
		&info.APCount, &info.Quarantined, &info.IndexedAt)
	return info, err
}

func (r *SQLiteCatalogRepository) Get(ctx context.Context, id string) (*models.SessionInfo, error) {
	info, err := scanInfo(r.db.QueryRowContext(ctx,
		`SELECT `+catalogColumns+` FROM session_catalog WHERE id = ?`, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get catalog entry %q: %w", id, err)
	}
	return &info, nil
}

func (r *SQLiteCatalogRepository) GetByPath(ctx context.Context, path string) (*models.SessionInfo, error) {
	info, err := scanInfo(r.db.QueryRowContext(ctx,
		`SELECT `+catalogColumns+` FROM session_catalog WHERE path = ?`, path))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get catalog entry for %q: %w", path, err)
	}
	return &info, nil
}

func (r *SQLiteCatalogRepository) List(ctx context.Context, adapter string, opts ListOptions) (*ListResult[models.SessionInfo], error) {
	opts = normalizeListOptions(opts)

	where := ""
	args := []any{}
	if adapter != "" {
		where = "WHERE adapter_name = ?"
		args = append(args, adapter)
	}

	var total int
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM session_catalog `+where, args...,
	).Scan(&total); err != nil {
		return nil, fmt.Errorf("count catalog: %w", err)
	}

	sortCol := "started_at"
	switch opts.SortBy {
	case "adapter_name", "scan_count":
		sortCol = opts.SortBy
	}
	orderDir := "DESC"
	if opts.SortOrder == "asc" {
		orderDir = "ASC"
	}

	//nolint:gosec // sortCol and orderDir are validated above
	query := fmt.Sprintf(`SELECT %s FROM session_catalog %s ORDER BY %s %s, path LIMIT ? OFFSET ?`,
		catalogColumns, where, sortCol, orderDir)

	rows, err := r.db.QueryContext(ctx, query, append(args, opts.Limit, opts.Offset)...)
	if err != nil {
		return nil, fmt.Errorf("list catalog: %w", err)
	}
	defer rows.Close()

	items := []models.SessionInfo{}
	for rows.Next() {
		info, err := scanInfo(rows)
		if err != nil {
			return nil, fmt.Errorf("scan catalog row: %w", err)
		}
		items = append(items, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate catalog: %w", err)
	}

	return &ListResult[models.SessionInfo]{Items: items, Total: total}, nil
}

func (r *SQLiteCatalogRepository) Upsert(ctx context.Context, info *models.SessionInfo) error {
	if info.ID == "" {
		existing, err := r.GetByPath(ctx, info.Path)
		switch {
		case err == nil:
			info.ID = existing.ID
		case err == ErrNotFound:
			info.ID = uuid.New().String()
		default:
			return err
		}
	}
	if info.IndexedAt.IsZero() {
		info.IndexedAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO session_catalog (`+catalogColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (path) DO UPDATE SET
			adapter_name = excluded.adapter_name,
			interface    = excluded.interface,
			chipset      = excluded.chipset,
			label        = excluded.label,
			started_at   = excluded.started_at,
			scan_count   = excluded.scan_count,
			ap_count     = excluded.ap_count,
			quarantined  = excluded.quarantined,
			indexed_at   = excluded.indexed_at`,
		info.ID, info.Path, info.AdapterName, info.Interface, info.Chipset, info.Label,
		info.StartedAt.UTC(), info.ScanCount, info.APCount, info.Quarantined, info.IndexedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert catalog entry %q: %w", info.Path, err)
	}
	return nil
}

func (r *SQLiteCatalogRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM session_catalog WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete catalog entry %q: %w", id, err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *SQLiteCatalogRepository) Adapters(ctx context.Context) ([]models.AdapterSummary, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT adapter_name, COUNT(*) FROM session_catalog
		WHERE quarantined = 0
		GROUP BY adapter_name
		ORDER BY LOWER(adapter_name)`)
	if err != nil {
		return nil, fmt.Errorf("list adapters: %w", err)
	}
	defer rows.Close()

	var out []models.AdapterSummary
	for rows.Next() {
		var a models.AdapterSummary
		if err := rows.Scan(&a.Name, &a.SessionCount); err != nil {
			return nil, fmt.Errorf("scan adapter row: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// catalogMigrations defines the database schema for session_catalog.
var catalogMigrations = []store.Migration{
	{
		Version:     1,
		Description: "create session_catalog table",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
				CREATE TABLE session_catalog (
					id           TEXT PRIMARY KEY,
					path         TEXT NOT NULL UNIQUE,
					adapter_name TEXT NOT NULL,
					interface    TEXT NOT NULL,
					chipset      TEXT NOT NULL,
					label        TEXT NOT NULL DEFAULT '',
					started_at   DATETIME NOT NULL,
					scan_count   INTEGER NOT NULL DEFAULT 0,
					ap_count     INTEGER NOT NULL DEFAULT 0,
					quarantined  BOOLEAN NOT NULL DEFAULT 0,
					indexed_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
				)`)
			if err != nil {
				return err
			}
			_, err = tx.Exec(`CREATE INDEX idx_session_catalog_adapter ON session_catalog (adapter_name)`)
			return err
		},
	},
}
