package engagement

import (
	"context"
	"errors"
	"sync"
	"time"

	"decktrack/api/models"
	"decktrack/api/store"
)

var t0 = time.Date(2026, 3, 2, 14, 0, 0, 0, time.UTC)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(start time.Time) *fakeClock {
	return &fakeClock{now: start}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type recordingNotifier struct {
	mu       sync.Mutex
	calls    []notifyCall
	err      error
	release  chan struct{}
	received chan struct{}
}

type notifyCall struct {
	dealID  string
	content string
}

func (n *recordingNotifier) PostDealComment(ctx context.Context, dealID, content string) error {
	if n.received != nil {
		n.received <- struct{}{}
	}
	if n.release != nil {
		<-n.release
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, notifyCall{dealID: dealID, content: content})
	return n.err
}

func (n *recordingNotifier) Calls() []notifyCall {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]notifyCall(nil), n.calls...)
}

type recordingArchive struct {
	mu     sync.Mutex
	events []models.ArchivedEvent
}

func (a *recordingArchive) Enqueue(event models.ArchivedEvent) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.events = append(a.events, event)
	return true
}

// failingLogStore fails every operation.
type failingLogStore struct{}

var errStoreDown = errors.New("store unavailable")

func (failingLogStore) Append(context.Context, models.LogEntry) error { return errStoreDown }
func (failingLogStore) LatestStay(context.Context, string, int) (*models.LogEntry, error) {
	return nil, errStoreDown
}
func (failingLogStore) UpdateStay(context.Context, string, time.Time, int64, time.Time) (bool, error) {
	return false, errStoreDown
}
func (failingLogStore) ListByToken(context.Context, string) ([]models.LogEntry, error) {
	return nil, errStoreDown
}
func (failingLogStore) CountByKind(context.Context, models.EventKind) (int, error) {
	return 0, errStoreDown
}

// conflictingLogStore makes the first n UpdateStay calls lose the race.
type conflictingLogStore struct {
	*store.MemoryLogStore
	mu        sync.Mutex
	conflicts int
}

func (s *conflictingLogStore) UpdateStay(ctx context.Context, id string, prevAt time.Time, durationMs int64, at time.Time) (bool, error) {
	s.mu.Lock()
	if s.conflicts > 0 {
		s.conflicts--
		s.mu.Unlock()
		return false, nil
	}
	s.mu.Unlock()
	return s.MemoryLogStore.UpdateStay(ctx, id, prevAt, durationMs, at)
}

type testEnv struct {
	engine   *Engine
	logs     *store.MemoryLogStore
	catalog  *store.MemoryCatalog
	clock    *fakeClock
	notifier *recordingNotifier
	archive  *recordingArchive
}

func newTestEnv() *testEnv {
	env := &testEnv{
		logs:     store.NewMemoryLogStore(),
		catalog:  store.NewMemoryCatalog(),
		clock:    newFakeClock(t0),
		notifier: &recordingNotifier{},
		archive:  &recordingArchive{},
	}
	env.engine = NewEngine(Options{
		Logs:          env.logs,
		Presentations: env.catalog,
		Notifier:      env.notifier,
		Archive:       env.archive,
		Now:           env.clock.Now,
	})
	return env
}

func staysFor(entries []models.LogEntry, slide int) []models.LogEntry {
	var out []models.LogEntry
	for _, e := range entries {
		if e.Kind == models.EventStay && e.Slide() == slide {
			out = append(out, e)
		}
	}
	return out
}

func intPtr(v int) *int       { return &v }
func int64Ptr(v int64) *int64 { return &v }
