package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"quill/internal/config"
)

// Kind classifies a journal entry.
type Kind string

const (
	KindJoined          Kind = "joined"
	KindLeft            Kind = "left"
	KindEvicted         Kind = "evicted"
	KindChannelPruned   Kind = "channel_pruned"
	KindDeliveryFailed  Kind = "delivery_failed"
	KindOperatorEvicted Kind = "operator_evicted"
)

// Entry is one recorded operational event.
type Entry struct {
	ID            int64     `json:"id"`
	CreatedAt     time.Time `json:"created_at"`
	ChannelID     string    `json:"channel_id"`
	ParticipantID string    `json:"participant_id,omitempty"`
	Kind          Kind      `json:"kind"`
	Detail        string    `json:"detail,omitempty"`
}

// ChannelStats aggregates journal counters for one channel.
type ChannelStats struct {
	ChannelID        string `json:"channel_id"`
	Joins            int    `json:"joins"`
	Leaves           int    `json:"leaves"`
	Evictions        int    `json:"evictions"`
	DeliveryFailures int    `json:"delivery_failures"`
}

// Store manages journal persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the journal database and applies the schema.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	return OpenPath(cfg.JournalPath())
}

// OpenPath opens the journal at an explicit location.
func OpenPath(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path}
	if err := store.applySchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database location.
func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

// Append records one entry. Timestamps default to now.
func (s *Store) Append(ctx context.Context, entry Entry) error {
	if s == nil || s.db == nil {
		return errors.New("journal store unavailable")
	}
	if strings.TrimSpace(entry.ChannelID) == "" {
		return errors.New("journal entry requires a channel id")
	}
	if entry.Kind == "" {
		return errors.New("journal entry requires a kind")
	}
	created := entry.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO events (created_at, channel_id, participant_id, kind, detail) VALUES (?, ?, ?, ?, ?)`,
		created.Format(time.RFC3339Nano), entry.ChannelID, entry.ParticipantID, string(entry.Kind), entry.Detail,
	)
	if err != nil {
		return fmt.Errorf("append journal entry: %w", err)
	}
	return nil
}

// Recent returns the newest entries, most recent first. A non-empty channelID
// filters to one channel.
func (s *Store) Recent(ctx context.Context, channelID string, limit int) ([]Entry, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("journal store unavailable")
	}
	if limit <= 0 {
		limit = 100
	}

	query := `SELECT id, created_at, channel_id, participant_id, kind, detail FROM events`
	args := []any{}
	if channelID != "" {
		query += ` WHERE channel_id = ?`
		args = append(args, channelID)
	}
	query += ` ORDER BY id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query journal: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var created string
		if err := rows.Scan(&e.ID, &created, &e.ChannelID, &e.ParticipantID, (*string)(&e.Kind), &e.Detail); err != nil {
			return nil, fmt.Errorf("scan journal entry: %w", err)
		}
		if ts, parseErr := time.Parse(time.RFC3339Nano, created); parseErr == nil {
			e.CreatedAt = ts
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Stats aggregates per-channel counters across the whole journal.
func (s *Store) Stats(ctx context.Context) ([]ChannelStats, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("journal store unavailable")
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT channel_id,
			SUM(CASE WHEN kind = 'joined' THEN 1 ELSE 0 END),
			SUM(CASE WHEN kind = 'left' THEN 1 ELSE 0 END),
			SUM(CASE WHEN kind IN ('evicted', 'operator_evicted') THEN 1 ELSE 0 END),
			SUM(CASE WHEN kind = 'delivery_failed' THEN 1 ELSE 0 END)
		FROM events
		GROUP BY channel_id
		ORDER BY channel_id`)
	if err != nil {
		return nil, fmt.Errorf("query journal stats: %w", err)
	}
	defer rows.Close()

	var stats []ChannelStats
	for rows.Next() {
		var st ChannelStats
		if err := rows.Scan(&st.ChannelID, &st.Joins, &st.Leaves, &st.Evictions, &st.DeliveryFailures); err != nil {
			return nil, fmt.Errorf("scan journal stats: %w", err)
		}
		stats = append(stats, st)
	}
	return stats, rows.Err()
}

// Prune removes entries older than the retention window and returns the
// number deleted.
func (s *Store) Prune(ctx context.Context, olderThan time.Duration) (int64, error) {
	if s == nil || s.db == nil {
		return 0, errors.New("journal store unavailable")
	}
	cutoff := time.Now().UTC().Add(-olderThan).Format(time.RFC3339Nano)
	res, err := s.db.ExecContext(ctx, `DELETE FROM events WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune journal: %w", err)
	}
	return res.RowsAffected()
}
