package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"decktrack/api/models"
)

type memorySink struct {
	mu      sync.Mutex
	batches [][]models.ArchivedEvent
	err     error
}

func (s *memorySink) InsertEvents(_ context.Context, events []models.ArchivedEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batches = append(s.batches, append([]models.ArchivedEvent(nil), events...))
	return s.err
}

func (s *memorySink) total() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, b := range s.batches {
		n += len(b)
	}
	return n
}

func TestBatcherFlushesOnSize(t *testing.T) {
	sink := &memorySink{}
	b := NewEventBatcher(sink, 100, 3, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	go b.Run(ctx)

	for i := 0; i < 3; i++ {
		b.Enqueue(models.ArchivedEvent{EventID: "e", EventType: models.EventStay})
	}

	deadline := time.After(2 * time.Second)
	for sink.total() < 3 {
		select {
		case <-deadline:
			t.Fatal("batch was not flushed on size")
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()
	<-b.Done()
}

func TestBatcherDrainsOnShutdown(t *testing.T) {
	sink := &memorySink{}
	b := NewEventBatcher(sink, 100, 50, time.Hour)
	for i := 0; i < 7; i++ {
		b.Enqueue(models.ArchivedEvent{EventID: "e"})
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	b.Run(ctx)

	if got := sink.total(); got != 7 {
		t.Fatalf("expected 7 drained events, got %d", got)
	}
}

func TestBatcherDropsWhenFull(t *testing.T) {
	b := NewEventBatcher(&memorySink{}, 2, 10, time.Hour)
	if !b.Enqueue(models.ArchivedEvent{}) || !b.Enqueue(models.ArchivedEvent{}) {
		t.Fatal("expected buffer to accept two events")
	}
	if b.Enqueue(models.ArchivedEvent{}) {
		t.Fatal("expected third event to be dropped")
	}
}

func TestBatcherSurvivesSinkErrors(t *testing.T) {
	sink := &memorySink{err: errors.New("clickhouse down")}
	b := NewEventBatcher(sink, 10, 1, time.Hour)
	b.Enqueue(models.ArchivedEvent{})
	b.Enqueue(models.ArchivedEvent{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	b.Run(ctx)
	if sink.total() != 2 {
		t.Fatalf("expected both events offered to the sink, got %d", sink.total())
	}
}
