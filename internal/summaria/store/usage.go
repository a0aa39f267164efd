package store

import (
	"context"
	"database/sql"
	"fmt"
)

// Count returns the usage counter for the given UTC date. A missing row
// reads as zero. Implements guard.CounterStore.
func (s *Store) Count(ctx context.Context, day string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT count FROM usage_daily WHERE date = ?`, day,
	).Scan(&n)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("store: read usage counter: %w", err)
	}
	return n, nil
}

// Increment adds cost to the counter for day and returns the new value.
// The upsert and read run on the store's single shared connection, so the
// read-modify-write is serialized. Implements guard.CounterStore.
func (s *Store) Increment(ctx context.Context, day string, cost int) (int, error) {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO usage_daily (date, count) VALUES (?, ?)
		ON CONFLICT(date) DO UPDATE SET count = count + excluded.count`,
		day, cost,
	)
	if err != nil {
		return 0, fmt.Errorf("store: increment usage counter: %w", err)
	}
	return s.Count(ctx, day)
}

// PruneUsage deletes counters older than the given UTC date. Old rows are
// inert either way; this just keeps the table tidy.
func (s *Store) PruneUsage(ctx context.Context, before string) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM usage_daily WHERE date < ?`, before,
	); err != nil {
		return fmt.Errorf("store: prune usage counters: %w", err)
	}
	return nil
}
