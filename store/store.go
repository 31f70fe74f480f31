package store

import (
	"context"
	"errors"
	"time"

	"decktrack/api/models"
)

var ErrNotFound = errors.New("not found")

// LogStore is the system of record for viewer events. Entries are never deleted;
// the only mutation is the conditional STAY update.
type LogStore interface {
	Append(ctx context.Context, entry models.LogEntry) error
	// LatestStay returns the STAY entry for (token, slideIndex) with the greatest
	// timestamp, or nil when there is none.
	LatestStay(ctx context.Context, token string, slideIndex int) (*models.LogEntry, error)
	// UpdateStay overwrites duration and timestamp of a STAY entry only if its
	// timestamp still equals prevAt. It reports whether the row was updated.
	UpdateStay(ctx context.Context, id string, prevAt time.Time, durationMs int64, at time.Time) (bool, error)
	ListByToken(ctx context.Context, token string) ([]models.LogEntry, error)
	CountByKind(ctx context.Context, kind models.EventKind) (int, error)
}

// Catalog holds the operator-managed clients and presentations.
type Catalog interface {
	CreateClient(ctx context.Context, c models.Client) (*models.Client, error)
	ListClients(ctx context.Context) ([]models.Client, error)
	UpdateClient(ctx context.Context, id string, c models.Client) (*models.Client, error)
	DeleteClient(ctx context.Context, id string) error
	CountClients(ctx context.Context) (int, error)

	CreatePresentation(ctx context.Context, req models.PresentationRequest) (*models.Presentation, error)
	ListPresentations(ctx context.Context) ([]models.Presentation, error)
	// GetPresentationByToken returns nil, nil when no presentation has the token.
	GetPresentationByToken(ctx context.Context, token string) (*models.Presentation, error)
	UpdatePresentation(ctx context.Context, id string, req models.PresentationRequest) (*models.Presentation, error)
	DeletePresentation(ctx context.Context, id string) error
	CountPresentations(ctx context.Context) (int, error)
}

// KeyLocker provides mutual exclusion per key. The returned unlock func must be
// called exactly once.
type KeyLocker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}
