// Package engagement turns viewer events into per-presentation engagement
// records and derives analytics from them.
//
// Ingestion appends OPEN and COMPLETE events and merges STAY heartbeats into
// one record per slide visit. A visit stays live while its record was updated
// less than the session window ago; after that a new record is started.
package engagement

import (
	"context"
	"errors"
	"sync"
	"time"

	"decktrack/api/models"
	"decktrack/api/store"
)

// DefaultSessionWindow is the inactivity gap after which a STAY heartbeat
// starts a new visit instead of extending the previous one.
const DefaultSessionWindow = 30 * time.Minute

// ErrInvalidEvent marks malformed ingestion input. Nothing is written.
var ErrInvalidEvent = errors.New("invalid event")

// PresentationLookup resolves the presentation behind an access token.
type PresentationLookup interface {
	GetPresentationByToken(ctx context.Context, token string) (*models.Presentation, error)
}

// Notifier posts a human-readable message to a CRM deal.
type Notifier interface {
	PostDealComment(ctx context.Context, dealID, content string) error
}

// Archiver receives a copy of every accepted raw event.
type Archiver interface {
	Enqueue(event models.ArchivedEvent) bool
}

type Options struct {
	Logs          store.LogStore
	Locker        store.KeyLocker
	Presentations PresentationLookup
	Notifier      Notifier
	Archive       Archiver

	SessionWindow time.Duration
	LockTimeout   time.Duration
	NotifyTimeout time.Duration
	Now           func() time.Time
}

// Engine is the ingestion side: it validates events and writes them to the log store.
type Engine struct {
	logs          store.LogStore
	locker        store.KeyLocker
	presentations PresentationLookup
	notifier      Notifier
	archive       Archiver

	window        time.Duration
	lockTimeout   time.Duration
	notifyTimeout time.Duration
	clock         func() time.Time

	inflight sync.WaitGroup
}

func NewEngine(opts Options) *Engine {
	e := &Engine{
		logs:          opts.Logs,
		locker:        opts.Locker,
		presentations: opts.Presentations,
		notifier:      opts.Notifier,
		archive:       opts.Archive,
		window:        opts.SessionWindow,
		lockTimeout:   opts.LockTimeout,
		notifyTimeout: opts.NotifyTimeout,
		clock:         opts.Now,
	}
	if e.locker == nil {
		e.locker = store.NewLocalLocker()
	}
	if e.window <= 0 {
		e.window = DefaultSessionWindow
	}
	if e.lockTimeout <= 0 {
		e.lockTimeout = 5 * time.Second
	}
	if e.notifyTimeout <= 0 {
		e.notifyTimeout = 15 * time.Second
	}
	if e.clock == nil {
		e.clock = time.Now
	}
	return e
}

// now is truncated to microseconds so that timestamps survive a round trip
// through Postgres unchanged, which the STAY compare-and-swap relies on.
func (e *Engine) now() time.Time {
	return e.clock().UTC().Truncate(time.Microsecond)
}

// Wait blocks until detached completion notifications have finished.
func (e *Engine) Wait() {
	e.inflight.Wait()
}

type clientIPKey struct{}

// WithClientIP attaches the viewer's address for the raw event archive.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPKey{}, ip)
}

func clientIP(ctx context.Context) string {
	ip, _ := ctx.Value(clientIPKey{}).(string)
	return ip
}
