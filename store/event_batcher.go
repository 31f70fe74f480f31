package store

import (
	"context"
	"time"

	"decktrack/api/logging"
	"decktrack/api/metrics"
	"decktrack/api/models"
)

// EventSink receives batches of archived events.
type EventSink interface {
	InsertEvents(ctx context.Context, events []models.ArchivedEvent) error
}

// EventBatcher buffers archived events and writes them to a sink in batches,
// off the request path. When the buffer is full new events are dropped.
type EventBatcher struct {
	sink      EventSink
	events    chan models.ArchivedEvent
	batchSize int
	interval  time.Duration
	done      chan struct{}
}

func NewEventBatcher(sink EventSink, bufferSize, batchSize int, interval time.Duration) *EventBatcher {
	return &EventBatcher{
		sink:      sink,
		events:    make(chan models.ArchivedEvent, bufferSize),
		batchSize: batchSize,
		interval:  interval,
		done:      make(chan struct{}),
	}
}

// Enqueue offers an event without blocking. It reports whether it was accepted.
func (b *EventBatcher) Enqueue(event models.ArchivedEvent) bool {
	select {
	case b.events <- event:
		return true
	default:
		metrics.ArchiveDropped.Inc()
		logging.Warn().Str("event_id", event.EventID).Msg("archive buffer full, dropping event")
		return false
	}
}

// Run flushes until ctx is cancelled, then drains what is buffered.
func (b *EventBatcher) Run(ctx context.Context) {
	defer close(b.done)

	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	batch := make([]models.ArchivedEvent, 0, b.batchSize)
	for {
		select {
		case event := <-b.events:
			batch = append(batch, event)
			if len(batch) >= b.batchSize {
				batch = b.flush(batch)
			}
		case <-ticker.C:
			batch = b.flush(batch)
		case <-ctx.Done():
			for {
				select {
				case event := <-b.events:
					batch = append(batch, event)
				default:
					b.flush(batch)
					return
				}
			}
		}
	}
}

// Done is closed once Run has returned.
func (b *EventBatcher) Done() <-chan struct{} {
	return b.done
}

func (b *EventBatcher) flush(batch []models.ArchivedEvent) []models.ArchivedEvent {
	if len(batch) == 0 {
		return batch
	}
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := b.sink.InsertEvents(ctx, batch); err != nil {
		metrics.ArchiveFlushes.WithLabelValues("error").Inc()
		logging.Error().Err(err).Int("events", len(batch)).Msg("failed to flush archive batch")
	} else {
		metrics.ArchiveFlushes.WithLabelValues("ok").Inc()
		logging.Debug().Int("events", len(batch)).Msg("archive batch flushed")
	}
	return batch[:0]
}
