package engagement

import (
	"context"
	"os"
	"testing"
	"time"

	"decktrack/api/database"
	"decktrack/api/store"

	"github.com/google/uuid"
)

// Postgres keeps microseconds. A clock with nanosecond noise must still let
// the second heartbeat find and update the first record.
func TestStayMergeOnPostgres(t *testing.T) {
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		t.Skip("DATABASE_URL not set")
	}
	ctx := context.Background()
	client, err := database.NewPostgresDB(ctx, dbURL)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer client.Close()
	if err := database.Migrate(ctx, client.DB); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	logs := store.NewPostgresLogStore(client.DB)
	clock := newFakeClock(time.Now().UTC().Add(123 * time.Nanosecond))
	engine := NewEngine(Options{Logs: logs, Now: clock.Now})
	token := "it-" + uuid.NewString()[:8]

	if err := engine.RecordStay(ctx, token, 3, 1000); err != nil {
		t.Fatal(err)
	}
	clock.Advance(10*time.Second + 789*time.Nanosecond)
	if err := engine.RecordStay(ctx, token, 3, 11000); err != nil {
		t.Fatal(err)
	}

	entries, _ := logs.ListByToken(ctx, token)
	stays := staysFor(entries, 3)
	if len(stays) != 1 || stays[0].Duration() != 11000 {
		t.Fatalf("expected one merged record with 11000ms, got %+v", stays)
	}
}
