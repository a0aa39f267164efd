package store

import (
	"context"
	"fmt"
	"time"

	"github.com/TirzGirlsBot/TirzGirlsTLDR/internal/summaria/retention"
)

// timeLayout is RFC3339 with fixed-width nanoseconds so that lexical order
// on the stored strings equals chronological order.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Insert persists one record in the durable message log.
// Implements retention.DurableTier.
func (s *Store) Insert(ctx context.Context, key retention.ConversationKey, rec retention.Record) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO messages (chat_id, thread_id, author_id, author_name, text, timestamp)
		VALUES (?, ?, ?, ?, ?, ?)`,
		key.ChatID,
		key.ThreadID,
		rec.AuthorID,
		rec.Author,
		rec.Text,
		rec.Timestamp.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("store: insert message: %w", err)
	}
	return nil
}

// Since returns durable records for key newer than since, oldest first.
// Rows with unparseable timestamps are skipped rather than failing the whole
// query; the durable tier may have been written by a different process.
// Implements retention.DurableTier.
func (s *Store) Since(ctx context.Context, key retention.ConversationKey, since time.Time) ([]retention.Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT author_id, author_name, text, timestamp
		FROM messages
		WHERE chat_id = ? AND thread_id = ? AND timestamp > ?
		ORDER BY timestamp ASC`,
		key.ChatID,
		key.ThreadID,
		since.UTC().Format(timeLayout),
	)
	if err != nil {
		return nil, fmt.Errorf("store: query messages: %w", err)
	}
	defer rows.Close()

	var out []retention.Record
	for rows.Next() {
		var rec retention.Record
		var ts string
		if err := rows.Scan(&rec.AuthorID, &rec.Author, &rec.Text, &ts); err != nil {
			return nil, fmt.Errorf("store: scan message row: %w", err)
		}
		t, err := time.Parse(timeLayout, ts)
		if err != nil {
			continue
		}
		rec.Timestamp = t
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: iterate message rows: %w", err)
	}
	return out, nil
}

// PruneMessages deletes durable rows older than the cutoff. Called
// periodically so the message log tracks the retention horizon instead of
// growing without bound. Returns the number of rows removed.
func (s *Store) PruneMessages(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM messages WHERE timestamp <= ?`,
		cutoff.UTC().Format(timeLayout),
	)
	if err != nil {
		return 0, fmt.Errorf("store: prune messages: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, nil
	}
	return n, nil
}

// Compile-time interface satisfaction check.
var _ retention.DurableTier = (*Store)(nil)
