package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/amishk599/bountybot/internal/model"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS tenant_destinations (
	tenant_id      TEXT PRIMARY KEY,
	destination_id TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS subscriptions (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	tenant_id  TEXT NOT NULL,
	keyword    TEXT NOT NULL,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	UNIQUE(tenant_id, keyword)
);
CREATE TABLE IF NOT EXISTS processed_listings (
	listing_id   TEXT PRIMARY KEY,
	processed_at DATETIME DEFAULT CURRENT_TIMESTAMP
);`

// SQLiteStore persists destinations, subscriptions and processed listing IDs
// in a single SQLite file.
type SQLiteStore struct {
	db *sql.DB
}

var (
	_ model.Store = (*SQLiteStore)(nil)
	_ Pruner      = (*SQLiteStore)(nil)
)

// NewSQLiteStore opens (or creates) a SQLite database at dbPath and ensures the
// schema exists.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}
	// A single connection serializes writes and keeps read-your-writes simple.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging sqlite db: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// SetDestination creates or replaces the destination for a tenant.
func (s *SQLiteStore) SetDestination(ctx context.Context, tenantID, destinationID string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO tenant_destinations (tenant_id, destination_id) VALUES (?, ?)",
		tenantID, destinationID)
	if err != nil {
		return &model.StoreError{Op: "set destination", Err: err}
	}
	return nil
}

// GetDestination returns the tenant's destination, with ok=false if none is set.
func (s *SQLiteStore) GetDestination(ctx context.Context, tenantID string) (string, bool, error) {
	var dest string
	err := s.db.QueryRowContext(ctx,
		"SELECT destination_id FROM tenant_destinations WHERE tenant_id = ?", tenantID).Scan(&dest)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, &model.StoreError{Op: "get destination", Err: err}
	}
	return dest, true, nil
}

// ListTenantDestinations returns every tenant with a destination, ordered by tenant ID.
func (s *SQLiteStore) ListTenantDestinations(ctx context.Context) ([]model.TenantDestination, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT tenant_id, destination_id FROM tenant_destinations ORDER BY tenant_id")
	if err != nil {
		return nil, &model.StoreError{Op: "list destinations", Err: err}
	}
	defer rows.Close()

	var out []model.TenantDestination
	for rows.Next() {
		var td model.TenantDestination
		if err := rows.Scan(&td.TenantID, &td.DestinationID); err != nil {
			return nil, &model.StoreError{Op: "list destinations", Err: err}
		}
		out = append(out, td)
	}
	if err := rows.Err(); err != nil {
		return nil, &model.StoreError{Op: "list destinations", Err: err}
	}
	return out, nil
}

// AddSubscription inserts the (tenant, keyword) pair. It reports false when the
// pair already existed.
func (s *SQLiteStore) AddSubscription(ctx context.Context, tenantID, keyword string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		"INSERT OR IGNORE INTO subscriptions (tenant_id, keyword) VALUES (?, ?)", tenantID, keyword)
	if err != nil {
		return false, &model.StoreError{Op: "add subscription", Err: err}
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, &model.StoreError{Op: "add subscription", Err: err}
	}
	return n > 0, nil
}

// RemoveSubscription deletes the pair. Removing an absent pair is not an error.
func (s *SQLiteStore) RemoveSubscription(ctx context.Context, tenantID, keyword string) error {
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM subscriptions WHERE tenant_id = ? AND keyword = ?", tenantID, keyword)
	if err != nil {
		return &model.StoreError{Op: "remove subscription", Err: err}
	}
	return nil
}

// ListSubscriptions returns the tenant's keywords in insertion order.
func (s *SQLiteStore) ListSubscriptions(ctx context.Context, tenantID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT keyword FROM subscriptions WHERE tenant_id = ? ORDER BY id", tenantID)
	if err != nil {
		return nil, &model.StoreError{Op: "list subscriptions", Err: err}
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var kw string
		if err := rows.Scan(&kw); err != nil {
			return nil, &model.StoreError{Op: "list subscriptions", Err: err}
		}
		out = append(out, kw)
	}
	if err := rows.Err(); err != nil {
		return nil, &model.StoreError{Op: "list subscriptions", Err: err}
	}
	return out, nil
}

// IsProcessed returns true if the listing ID has already been recorded.
func (s *SQLiteStore) IsProcessed(ctx context.Context, listingID string) (bool, error) {
	var exists int
	err := s.db.QueryRowContext(ctx,
		"SELECT 1 FROM processed_listings WHERE listing_id = ?", listingID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, &model.StoreError{Op: "is processed", Err: fmt.Errorf("listing %s: %w", listingID, err)}
	}
	return true, nil
}

// MarkProcessed records a listing ID. If it already exists the call is a no-op.
func (s *SQLiteStore) MarkProcessed(ctx context.Context, listingID string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT OR IGNORE INTO processed_listings (listing_id) VALUES (?)", listingID)
	if err != nil {
		return &model.StoreError{Op: "mark processed", Err: fmt.Errorf("listing %s: %w", listingID, err)}
	}
	return nil
}

// PruneProcessed deletes processed records older than the given duration.
func (s *SQLiteStore) PruneProcessed(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-olderThan).Format(time.DateTime)
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM processed_listings WHERE processed_at < ?", cutoff)
	if err != nil {
		return 0, &model.StoreError{Op: "prune processed", Err: fmt.Errorf("older than %v: %w", olderThan, err)}
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, &model.StoreError{Op: "prune processed", Err: err}
	}
	return n, nil
}

// CountProcessed returns how many listing IDs are recorded.
func (s *SQLiteStore) CountProcessed(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM processed_listings").Scan(&count); err != nil {
		return 0, &model.StoreError{Op: "count processed", Err: err}
	}
	return count, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
