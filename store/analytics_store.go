package store

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"decktrack/api/database"
	"decktrack/api/logging"
	"decktrack/api/models"
	"decktrack/api/utils"
)

var ErrInvalidInterval = errors.New("invalid interval")

// AnalyticsStore archives every raw viewer event in ClickHouse, including each
// STAY heartbeat before it is merged, and answers time-series queries over it.
type AnalyticsStore struct {
	DB *database.ClickHouseClient
}

func NewAnalyticsStore(chClient *database.ClickHouseClient) *AnalyticsStore {
	return &AnalyticsStore{
		DB: chClient,
	}
}

const engagementEventsDDL = `
	CREATE TABLE IF NOT EXISTS engagement_events (
		event_id    String,
		event_type  LowCardinality(String),
		token       String,
		timestamp   DateTime64(3, 'UTC'),
		slide_index Int32,
		duration_ms Int64,
		user_agent  String,
		ip_address  String
	)
	ENGINE = MergeTree
	ORDER BY (token, timestamp)
`

func (s *AnalyticsStore) EnsureSchema(ctx context.Context) error {
	if err := s.DB.Conn.Exec(ctx, engagementEventsDDL); err != nil {
		return fmt.Errorf("failed to create engagement_events table: %w", err)
	}
	return nil
}

func (s *AnalyticsStore) InsertEvents(ctx context.Context, events []models.ArchivedEvent) error {
	if len(events) == 0 {
		return nil
	}

	// Column order must match engagementEventsDDL.
	batch, err := s.DB.Conn.PrepareBatch(ctx, `
		INSERT INTO engagement_events (
			event_id, event_type, token, timestamp, slide_index, duration_ms, user_agent, ip_address
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare batch insert: %w", err)
	}

	for _, event := range events {
		err := batch.Append(
			event.EventID,
			string(event.EventType),
			event.Token,
			event.Timestamp,
			event.SlideIndex,
			event.DurationMs,
			event.UserAgent,
			event.IPAddress,
		)
		if err != nil {
			logging.Warn().Err(err).Str("event_id", event.EventID).Msg("failed to append event to batch")
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("failed to send batch: %w", err)
	}
	return nil
}

func (s *AnalyticsStore) GetEventCountsOverTime(ctx context.Context, interval string, start, end time.Time, eventTypeFilter string) ([]models.EventCountByTime, error) {
	bucket, ok := utils.NormalizeInterval(interval)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrInvalidInterval, interval)
	}

	args := []any{start, end}
	selectCols := fmt.Sprintf("toStartOf%s(timestamp) AS time_bucket, count() AS total_events", bucket)
	groupByCols := "time_bucket"
	whereClause := "WHERE timestamp >= ? AND timestamp <= ?"
	orderByCols := "time_bucket ASC"
	isFilteringByType := eventTypeFilter != ""

	if isFilteringByType {
		selectCols += ", event_type"
		groupByCols += ", event_type"
		whereClause += " AND event_type = ?"
		args = append(args, eventTypeFilter)
		orderByCols += ", event_type ASC"
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM engagement_events
		%s
		GROUP BY %s
		ORDER BY %s
	`, selectCols, whereClause, groupByCols, orderByCols)

	rows, err := s.DB.Conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query event counts over time: %w", err)
	}
	defer rows.Close()

	results := make([]models.EventCountByTime, 0)
	for rows.Next() {
		var (
			timeBucket  time.Time
			count       uint64
			eventTypeDB string
			current     models.EventCountByTime
		)
		if isFilteringByType {
			if err := rows.Scan(&timeBucket, &count, &eventTypeDB); err != nil {
				return nil, fmt.Errorf("failed to scan event count row: %w", err)
			}
			current.EventType = &eventTypeDB
		} else if err := rows.Scan(&timeBucket, &count); err != nil {
			return nil, fmt.Errorf("failed to scan event count row: %w", err)
		}
		current.Time = timeBucket
		current.Count = count
		results = append(results, current)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row error during event counts over time query: %w", err)
	}
	return results, nil
}

// GetAverageDwell averages the cumulative duration carried by STAY heartbeats.
// An empty token averages across all presentations.
func (s *AnalyticsStore) GetAverageDwell(ctx context.Context, token string, start, end time.Time) (float64, error) {
	query := `SELECT avg(duration_ms) FROM engagement_events WHERE event_type = 'STAY' AND timestamp >= ? AND timestamp <= ?`
	args := []any{start, end}
	if token != "" {
		query += ` AND token = ?`
		args = append(args, token)
	}

	var avgDuration float64
	if err := s.DB.Conn.QueryRow(ctx, query, args...).Scan(&avgDuration); err != nil {
		return 0, fmt.Errorf("failed to query average dwell: %w", err)
	}
	// avg() over no rows is NaN, which JSON cannot carry.
	if math.IsNaN(avgDuration) {
		return 0, nil
	}
	return avgDuration, nil
}

func (s *AnalyticsStore) GetTopSlides(ctx context.Context, token string, start, end time.Time, limit uint64) ([]models.TopSlideResult, error) {
	if limit == 0 {
		limit = 10
	}

	query := `
		SELECT slide_index, count() AS heartbeats
		FROM engagement_events
		WHERE event_type = 'STAY' AND token = ? AND timestamp >= ? AND timestamp <= ?
		GROUP BY slide_index
		ORDER BY heartbeats DESC, slide_index ASC
		LIMIT ?
	`
	rows, err := s.DB.Conn.Query(ctx, query, token, start, end, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query top slides: %w", err)
	}
	defer rows.Close()

	results := make([]models.TopSlideResult, 0)
	for rows.Next() {
		var r models.TopSlideResult
		if err := rows.Scan(&r.SlideIndex, &r.Heartbeats); err != nil {
			return nil, fmt.Errorf("failed to scan top slide row: %w", err)
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows for top slides: %w", err)
	}
	return results, nil
}
