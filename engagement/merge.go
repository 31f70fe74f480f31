package engagement

import (
	"context"
	"fmt"
	"strconv"

	"decktrack/api/logging"
	"decktrack/api/metrics"
	"decktrack/api/models"

	"github.com/google/uuid"
)

const maxMergeAttempts = 3

type MergeOutcome int

const (
	MergeNone MergeOutcome = iota
	// MergeUpdated means the live visit record took the new duration.
	MergeUpdated
	// MergeAppended means a new visit record was created.
	MergeAppended
)

func (o MergeOutcome) String() string {
	switch o {
	case MergeUpdated:
		return "updated"
	case MergeAppended:
		return "appended"
	default:
		return "none"
	}
}

func stayKey(token string, slideIndex int) string {
	return token + "#" + strconv.Itoa(slideIndex)
}

// mergeStay is the read-decide-write for one (token, slide) pair. It runs under
// the pair's lock, and the update itself is a compare-and-swap on the record's
// previous timestamp, so a writer that bypassed the lock is detected and the
// decision is retaken.
//
// The window is measured from the record's last update, not from the start of
// the visit: heartbeats that keep arriving keep the same visit open.
//
// It returns the heartbeat as a log entry for archiving.
func (e *Engine) mergeStay(ctx context.Context, token string, slideIndex int, durationMs int64) (MergeOutcome, models.LogEntry, error) {
	key := stayKey(token, slideIndex)

	lockCtx, cancel := context.WithTimeout(ctx, e.lockTimeout)
	defer cancel()
	unlock, err := e.locker.Lock(lockCtx, key)
	if err != nil {
		return MergeNone, models.LogEntry{}, fmt.Errorf("lock %s: %w", key, err)
	}
	defer unlock()

	for attempt := 1; attempt <= maxMergeAttempts; attempt++ {
		now := e.now()
		heartbeat := models.LogEntry{
			ID:         uuid.NewString(),
			Token:      token,
			Kind:       models.EventStay,
			Timestamp:  now,
			SlideIndex: &slideIndex,
			DurationMs: &durationMs,
		}

		live, err := e.logs.LatestStay(ctx, token, slideIndex)
		if err != nil {
			return MergeNone, models.LogEntry{}, fmt.Errorf("find live stay: %w", err)
		}

		if live == nil || now.Sub(live.Timestamp) >= e.window {
			if err := e.logs.Append(ctx, heartbeat); err != nil {
				return MergeNone, models.LogEntry{}, fmt.Errorf("append stay: %w", err)
			}
			metrics.StayMerges.WithLabelValues(MergeAppended.String()).Inc()
			return MergeAppended, heartbeat, nil
		}

		ok, err := e.logs.UpdateStay(ctx, live.ID, live.Timestamp, durationMs, now)
		if err != nil {
			return MergeNone, models.LogEntry{}, fmt.Errorf("update stay: %w", err)
		}
		if ok {
			metrics.StayMerges.WithLabelValues(MergeUpdated.String()).Inc()
			return MergeUpdated, heartbeat, nil
		}

		metrics.StayMerges.WithLabelValues("conflict").Inc()
		logging.Warn().Str("key", key).Int("attempt", attempt).Msg("live stay record changed during merge, retrying")
	}

	// The live record kept moving. Keep the heartbeat as a new visit rather
	// than fail the viewer.
	heartbeat := models.LogEntry{
		ID:         uuid.NewString(),
		Token:      token,
		Kind:       models.EventStay,
		Timestamp:  e.now(),
		SlideIndex: &slideIndex,
		DurationMs: &durationMs,
	}
	if err := e.logs.Append(ctx, heartbeat); err != nil {
		return MergeNone, models.LogEntry{}, fmt.Errorf("append stay after conflicts: %w", err)
	}
	logging.Warn().Str("key", key).Int("attempts", maxMergeAttempts).Msg("stay merge kept conflicting, started a new visit")
	metrics.StayMerges.WithLabelValues(MergeAppended.String()).Inc()
	return MergeAppended, heartbeat, nil
}
