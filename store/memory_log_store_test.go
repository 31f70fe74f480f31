package store

import (
	"context"
	"testing"
	"time"

	"decktrack/api/models"
)

var base = time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC)

func stayEntry(id, token string, slide int, dur int64, at time.Time) models.LogEntry {
	return models.LogEntry{ID: id, Token: token, Kind: models.EventStay, Timestamp: at, SlideIndex: &slide, DurationMs: &dur}
}

func TestLatestStayPicksMaxTimestamp(t *testing.T) {
	s := NewMemoryLogStore()
	ctx := context.Background()

	_ = s.Append(ctx, stayEntry("mid", "tok", 1, 10, base.Add(time.Minute)))
	_ = s.Append(ctx, stayEntry("late", "tok", 1, 20, base.Add(time.Hour)))
	_ = s.Append(ctx, stayEntry("early", "tok", 1, 30, base))
	_ = s.Append(ctx, stayEntry("other-slide", "tok", 2, 40, base.Add(2*time.Hour)))
	_ = s.Append(ctx, stayEntry("other-token", "x", 1, 50, base.Add(3*time.Hour)))

	got, err := s.LatestStay(ctx, "tok", 1)
	if err != nil {
		t.Fatal(err)
	}
	if got == nil || got.ID != "late" {
		t.Fatalf("expected late record, got %+v", got)
	}

	none, err := s.LatestStay(ctx, "tok", 99)
	if err != nil || none != nil {
		t.Fatalf("expected nil, nil; got %+v, %v", none, err)
	}
}

func TestUpdateStayCompareAndSwap(t *testing.T) {
	s := NewMemoryLogStore()
	ctx := context.Background()
	_ = s.Append(ctx, stayEntry("a", "tok", 0, 100, base))

	ok, err := s.UpdateStay(ctx, "a", base.Add(time.Second), 999, base.Add(time.Minute))
	if err != nil || ok {
		t.Fatalf("stale prevAt must not update: ok=%v err=%v", ok, err)
	}

	ok, err = s.UpdateStay(ctx, "a", base, 500, base.Add(time.Minute))
	if err != nil || !ok {
		t.Fatalf("expected update: ok=%v err=%v", ok, err)
	}

	got, _ := s.LatestStay(ctx, "tok", 0)
	if got.Duration() != 500 || !got.Timestamp.Equal(base.Add(time.Minute)) {
		t.Fatalf("unexpected record after update %+v", got)
	}

	ok, _ = s.UpdateStay(ctx, "missing", base, 1, base)
	if ok {
		t.Fatal("update of unknown id must report false")
	}
}

func TestReturnedEntriesAreDetached(t *testing.T) {
	s := NewMemoryLogStore()
	ctx := context.Background()
	_ = s.Append(ctx, stayEntry("a", "tok", 0, 100, base))

	got, _ := s.LatestStay(ctx, "tok", 0)
	*got.DurationMs = 12345

	again, _ := s.LatestStay(ctx, "tok", 0)
	if again.Duration() != 100 {
		t.Fatalf("caller mutation leaked into the store: %d", again.Duration())
	}
}

func TestListAndCount(t *testing.T) {
	s := NewMemoryLogStore()
	ctx := context.Background()
	_ = s.Append(ctx, models.LogEntry{ID: "1", Token: "a", Kind: models.EventOpen, Timestamp: base})
	_ = s.Append(ctx, models.LogEntry{ID: "2", Token: "b", Kind: models.EventOpen, Timestamp: base})
	_ = s.Append(ctx, models.LogEntry{ID: "3", Token: "a", Kind: models.EventComplete, Timestamp: base})

	logs, _ := s.ListByToken(ctx, "a")
	if len(logs) != 2 {
		t.Fatalf("expected 2 logs for a, got %d", len(logs))
	}
	empty, _ := s.ListByToken(ctx, "zzz")
	if empty == nil || len(empty) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", empty)
	}
	if n, _ := s.CountByKind(ctx, models.EventOpen); n != 2 {
		t.Fatalf("expected 2 opens, got %d", n)
	}
}
