package engagement

import (
	"context"
	"fmt"
	"strings"

	"decktrack/api/logging"
	"decktrack/api/metrics"
	"decktrack/api/models"

	"github.com/google/uuid"
)

// Record dispatches a combined tracking event by its kind.
func (e *Engine) Record(ctx context.Context, ev models.TrackEvent) error {
	switch ev.EventType {
	case models.EventOpen:
		return e.RecordOpen(ctx, ev.Token, ev.Payload.UserAgent)
	case models.EventStay:
		if ev.Payload.SlideIndex == nil || ev.Payload.Duration == nil {
			metrics.RecordIngest(string(ev.EventType), "invalid")
			return fmt.Errorf("%w: slideIndex and duration are required", ErrInvalidEvent)
		}
		return e.RecordStay(ctx, ev.Token, *ev.Payload.SlideIndex, *ev.Payload.Duration)
	case models.EventComplete:
		return e.RecordComplete(ctx, ev.Token)
	default:
		metrics.RecordIngest("unknown", "invalid")
		return fmt.Errorf("%w: unknown event type %q", ErrInvalidEvent, ev.EventType)
	}
}

// RecordOpen appends an OPEN entry. Every call counts as a view.
func (e *Engine) RecordOpen(ctx context.Context, token, userAgent string) error {
	if err := validateToken(models.EventOpen, token); err != nil {
		return err
	}

	entry := models.LogEntry{
		ID:        uuid.NewString(),
		Token:     token,
		Kind:      models.EventOpen,
		Timestamp: e.now(),
		UserAgent: userAgent,
	}
	if err := e.logs.Append(ctx, entry); err != nil {
		metrics.RecordIngest(string(models.EventOpen), "error")
		return fmt.Errorf("record open: %w", err)
	}

	e.archiveEntry(ctx, entry)
	metrics.RecordIngest(string(models.EventOpen), "ok")
	logging.Info().Str("token", token).Msg("open recorded")
	return nil
}

// RecordStay merges a cumulative dwell heartbeat into the live visit record
// for the slide, or starts a new visit.
func (e *Engine) RecordStay(ctx context.Context, token string, slideIndex int, durationMs int64) error {
	if err := validateToken(models.EventStay, token); err != nil {
		return err
	}
	if slideIndex < 0 || durationMs < 0 {
		metrics.RecordIngest(string(models.EventStay), "invalid")
		return fmt.Errorf("%w: slideIndex and duration must be non-negative", ErrInvalidEvent)
	}

	outcome, entry, err := e.mergeStay(ctx, token, slideIndex, durationMs)
	if err != nil {
		metrics.RecordIngest(string(models.EventStay), "error")
		return fmt.Errorf("record stay: %w", err)
	}

	// The archive keeps every heartbeat, not the merged record.
	e.archiveEntry(ctx, entry)
	metrics.RecordIngest(string(models.EventStay), "ok")
	logging.Debug().
		Str("token", token).
		Int("slide", slideIndex).
		Int64("duration_ms", durationMs).
		Str("outcome", outcome.String()).
		Msg("stay recorded")
	return nil
}

// RecordComplete appends a COMPLETE entry and, without waiting, notifies the
// CRM deal linked to the presentation.
func (e *Engine) RecordComplete(ctx context.Context, token string) error {
	if err := validateToken(models.EventComplete, token); err != nil {
		return err
	}

	entry := models.LogEntry{
		ID:        uuid.NewString(),
		Token:     token,
		Kind:      models.EventComplete,
		Timestamp: e.now(),
	}
	if err := e.logs.Append(ctx, entry); err != nil {
		metrics.RecordIngest(string(models.EventComplete), "error")
		return fmt.Errorf("record complete: %w", err)
	}

	e.archiveEntry(ctx, entry)
	metrics.RecordIngest(string(models.EventComplete), "ok")
	logging.Info().Str("token", token).Msg("completion recorded")

	e.notifyCompletion(token)
	return nil
}

func validateToken(kind models.EventKind, token string) error {
	if strings.TrimSpace(token) == "" {
		metrics.RecordIngest(string(kind), "invalid")
		return fmt.Errorf("%w: token is required", ErrInvalidEvent)
	}
	return nil
}

func (e *Engine) archiveEntry(ctx context.Context, entry models.LogEntry) {
	if e.archive == nil {
		return
	}
	e.archive.Enqueue(models.ArchivedEvent{
		EventID:    uuid.NewString(),
		EventType:  entry.Kind,
		Token:      entry.Token,
		Timestamp:  entry.Timestamp,
		SlideIndex: int32(entry.Slide()),
		DurationMs: entry.Duration(),
		UserAgent:  entry.UserAgent,
		IPAddress:  clientIP(ctx),
	})
}
