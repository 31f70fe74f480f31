package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"decktrack/api/models"
)

type PostgresLogStore struct {
	db *sql.DB
}

// NewPostgresLogStore creates a LogStore over the access_logs table.
func NewPostgresLogStore(db *sql.DB) *PostgresLogStore {
	return &PostgresLogStore{db: db}
}

func (s *PostgresLogStore) Append(ctx context.Context, entry models.LogEntry) error {
	query := `
		INSERT INTO access_logs (id, token, kind, ts, user_agent, slide_index, duration_ms)
		VALUES ($1, $2, $3, $4, $5, $6, $7);
	`
	_, err := s.db.ExecContext(ctx, query,
		entry.ID,
		entry.Token,
		string(entry.Kind),
		entry.Timestamp,
		nullString(entry.UserAgent),
		nullInt(entry.SlideIndex),
		nullInt64(entry.DurationMs),
	)
	if err != nil {
		return fmt.Errorf("failed to append %s log for token %s: %w", entry.Kind, entry.Token, err)
	}
	return nil
}

func (s *PostgresLogStore) LatestStay(ctx context.Context, token string, slideIndex int) (*models.LogEntry, error) {
	query := `
		SELECT id, token, kind, ts, user_agent, slide_index, duration_ms
		FROM access_logs
		WHERE token = $1 AND kind = 'STAY' AND slide_index = $2
		ORDER BY ts DESC, id DESC
		LIMIT 1;
	`
	entry, err := scanEntry(s.db.QueryRowContext(ctx, query, token, slideIndex))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find latest stay for token %s slide %d: %w", token, slideIndex, err)
	}
	return entry, nil
}

func (s *PostgresLogStore) UpdateStay(ctx context.Context, id string, prevAt time.Time, durationMs int64, at time.Time) (bool, error) {
	query := `
		UPDATE access_logs
		SET duration_ms = $1, ts = $2
		WHERE id = $3 AND kind = 'STAY' AND ts = $4;
	`
	res, err := s.db.ExecContext(ctx, query, durationMs, at, id, prevAt)
	if err != nil {
		return false, fmt.Errorf("failed to update stay %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected for stay %s: %w", id, err)
	}
	return n == 1, nil
}

func (s *PostgresLogStore) ListByToken(ctx context.Context, token string) ([]models.LogEntry, error) {
	query := `
		SELECT id, token, kind, ts, user_agent, slide_index, duration_ms
		FROM access_logs
		WHERE token = $1
		ORDER BY ts ASC, id ASC;
	`
	rows, err := s.db.QueryContext(ctx, query, token)
	if err != nil {
		return nil, fmt.Errorf("failed to list logs for token %s: %w", token, err)
	}
	defer rows.Close()

	entries := make([]models.LogEntry, 0)
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan log row: %w", err)
		}
		entries = append(entries, *entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating logs for token %s: %w", token, err)
	}
	return entries, nil
}

func (s *PostgresLogStore) CountByKind(ctx context.Context, kind models.EventKind) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM access_logs WHERE kind = $1;`, string(kind)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count %s logs: %w", kind, err)
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (*models.LogEntry, error) {
	var (
		entry     models.LogEntry
		kind      string
		userAgent sql.NullString
		slide     sql.NullInt64
		duration  sql.NullInt64
	)
	if err := row.Scan(&entry.ID, &entry.Token, &kind, &entry.Timestamp, &userAgent, &slide, &duration); err != nil {
		return nil, err
	}
	entry.Kind = models.EventKind(kind)
	entry.Timestamp = entry.Timestamp.UTC()
	entry.UserAgent = userAgent.String
	if slide.Valid {
		v := int(slide.Int64)
		entry.SlideIndex = &v
	}
	if duration.Valid {
		v := duration.Int64
		entry.DurationMs = &v
	}
	return &entry, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func nullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}
