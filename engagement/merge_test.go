package engagement

import (
	"context"
	"sync"
	"testing"
	"time"

	"decktrack/api/metrics"
	"decktrack/api/models"
	"decktrack/api/store"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestStayMergesWithinWindow(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	for _, d := range []int64{5000, 10000, 15000, 20000} {
		if err := env.engine.RecordStay(ctx, "tok", 3, d); err != nil {
			t.Fatalf("RecordStay(%d): %v", d, err)
		}
		env.clock.Advance(5 * time.Second)
	}

	logs, _ := env.logs.ListByToken(ctx, "tok")
	stays := staysFor(logs, 3)
	if len(stays) != 1 {
		t.Fatalf("expected one stay record, got %d", len(stays))
	}
	if stays[0].Duration() != 20000 {
		t.Fatalf("expected last duration 20000, got %d", stays[0].Duration())
	}
	if want := t0.Add(15 * time.Second); !stays[0].Timestamp.Equal(want) {
		t.Fatalf("expected timestamp %s, got %s", want, stays[0].Timestamp)
	}
}

func TestStayAfterWindowStartsNewVisit(t *testing.T) {
	tests := []struct {
		name    string
		gap     time.Duration
		records int
	}{
		{name: "just inside window", gap: 30*time.Minute - time.Second, records: 1},
		{name: "exactly at window", gap: 30 * time.Minute, records: 2},
		{name: "well past window", gap: 2 * time.Hour, records: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv()
			ctx := context.Background()

			if err := env.engine.RecordStay(ctx, "tok", 1, 3000); err != nil {
				t.Fatal(err)
			}
			env.clock.Advance(tt.gap)
			if err := env.engine.RecordStay(ctx, "tok", 1, 2000); err != nil {
				t.Fatal(err)
			}

			logs, _ := env.logs.ListByToken(ctx, "tok")
			stays := staysFor(logs, 1)
			if len(stays) != tt.records {
				t.Fatalf("expected %d stay records, got %d", tt.records, len(stays))
			}
			if tt.records == 2 && (stays[0].Duration() != 3000 || stays[1].Duration() != 2000) {
				t.Fatalf("visits must not be merged: %d, %d", stays[0].Duration(), stays[1].Duration())
			}
		})
	}
}

func TestStayWindowSlidesWithEachUpdate(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	// Each heartbeat lands just inside the window measured from the previous
	// one, so the visit keeps extending.
	for i := int64(1); i <= 5; i++ {
		if err := env.engine.RecordStay(ctx, "tok", 0, i*1000); err != nil {
			t.Fatal(err)
		}
		env.clock.Advance(29 * time.Minute)
	}

	logs, _ := env.logs.ListByToken(ctx, "tok")
	if stays := staysFor(logs, 0); len(stays) != 1 || stays[0].Duration() != 5000 {
		t.Fatalf("expected a single extended visit, got %+v", stays)
	}
}

func TestStaySlidesAndTokensAreIndependent(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	_ = env.engine.RecordStay(ctx, "a", 1, 1000)
	_ = env.engine.RecordStay(ctx, "a", 2, 2000)
	_ = env.engine.RecordStay(ctx, "b", 1, 3000)

	logsA, _ := env.logs.ListByToken(ctx, "a")
	logsB, _ := env.logs.ListByToken(ctx, "b")
	if len(logsA) != 2 || len(logsB) != 1 {
		t.Fatalf("unexpected record counts: a=%d b=%d", len(logsA), len(logsB))
	}
}

func TestStayUpdatesMostRecentRecord(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	recent := models.LogEntry{ID: "recent", Token: "tok", Kind: models.EventStay,
		Timestamp: t0.Add(-10 * time.Minute), SlideIndex: intPtr(4), DurationMs: int64Ptr(100)}
	older := models.LogEntry{ID: "older", Token: "tok", Kind: models.EventStay,
		Timestamp: t0.Add(-40 * time.Minute), SlideIndex: intPtr(4), DurationMs: int64Ptr(900)}
	// Stored out of temporal order on purpose.
	_ = env.logs.Append(ctx, recent)
	_ = env.logs.Append(ctx, older)

	if err := env.engine.RecordStay(ctx, "tok", 4, 5000); err != nil {
		t.Fatal(err)
	}

	logs, _ := env.logs.ListByToken(ctx, "tok")
	if len(logs) != 2 {
		t.Fatalf("expected no new record, got %d records", len(logs))
	}
	for _, e := range logs {
		switch e.ID {
		case "recent":
			if e.Duration() != 5000 || !e.Timestamp.Equal(t0) {
				t.Fatalf("recent record not updated: %+v", e)
			}
		case "older":
			if e.Duration() != 900 {
				t.Fatalf("older record must not change: %+v", e)
			}
		}
	}
}

func TestConcurrentStaysCreateSingleRecord(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(d int64) {
			defer wg.Done()
			if err := env.engine.RecordStay(ctx, "race", 7, d); err != nil {
				t.Errorf("RecordStay: %v", err)
			}
		}(int64(i * 100))
	}
	wg.Wait()

	logs, _ := env.logs.ListByToken(ctx, "race")
	if stays := staysFor(logs, 7); len(stays) != 1 {
		t.Fatalf("expected exactly one live record, got %d", len(stays))
	}
}

func TestMergeRetriesAfterConflict(t *testing.T) {
	logs := &conflictingLogStore{MemoryLogStore: store.NewMemoryLogStore(), conflicts: 2}
	clock := newFakeClock(t0)
	engine := NewEngine(Options{Logs: logs, Now: clock.Now})
	ctx := context.Background()

	if err := engine.RecordStay(ctx, "tok", 1, 1000); err != nil {
		t.Fatal(err)
	}
	clock.Advance(5 * time.Second)
	if err := engine.RecordStay(ctx, "tok", 1, 6000); err != nil {
		t.Fatalf("expected merge to succeed after retries: %v", err)
	}

	entries, _ := logs.ListByToken(ctx, "tok")
	if stays := staysFor(entries, 1); len(stays) != 1 || stays[0].Duration() != 6000 {
		t.Fatalf("unexpected stays %+v", stays)
	}
}

func TestMergeKeepsHeartbeatAfterRepeatedConflicts(t *testing.T) {
	logs := &conflictingLogStore{MemoryLogStore: store.NewMemoryLogStore(), conflicts: 100}
	clock := newFakeClock(t0)
	engine := NewEngine(Options{Logs: logs, Now: clock.Now})
	ctx := context.Background()
	conflicts := metrics.StayMerges.WithLabelValues("conflict")
	before := testutil.ToFloat64(conflicts)

	if err := engine.RecordStay(ctx, "tok", 1, 1000); err != nil {
		t.Fatal(err)
	}
	clock.Advance(5 * time.Second)
	if err := engine.RecordStay(ctx, "tok", 1, 2000); err != nil {
		t.Fatalf("heartbeat must not fail the viewer: %v", err)
	}

	entries, _ := logs.ListByToken(ctx, "tok")
	stays := staysFor(entries, 1)
	if len(stays) != 2 {
		t.Fatalf("expected the heartbeat to start a new visit, got %d records", len(stays))
	}
	latest, _ := logs.LatestStay(ctx, "tok", 1)
	if latest.Duration() != 2000 || !latest.Timestamp.Equal(t0.Add(5*time.Second)) {
		t.Fatalf("unexpected fallback record %+v", latest)
	}
	if got := testutil.ToFloat64(conflicts) - before; got != maxMergeAttempts {
		t.Fatalf("expected %d conflicts counted, got %v", maxMergeAttempts, got)
	}
}

func TestMergeOutcomeString(t *testing.T) {
	if MergeUpdated.String() != "updated" || MergeAppended.String() != "appended" || MergeNone.String() != "none" {
		t.Fatal("unexpected outcome names")
	}
}
