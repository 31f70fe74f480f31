package engagement

import (
	"context"
	"fmt"
	"sort"

	"decktrack/api/models"
	"decktrack/api/store"
)

// CatalogReader is the read side of the presentation catalog used by analytics.
type CatalogReader interface {
	PresentationLookup
	ListPresentations(ctx context.Context) ([]models.Presentation, error)
	CountClients(ctx context.Context) (int, error)
	CountPresentations(ctx context.Context) (int, error)
}

// Analytics answers operator queries. Reads do not take merge locks, so a
// query may observe a STAY record mid-visit.
type Analytics struct {
	logs    store.LogStore
	catalog CatalogReader
}

func NewAnalytics(logs store.LogStore, catalog CatalogReader) *Analytics {
	return &Analytics{logs: logs, catalog: catalog}
}

// TokenDetail returns the raw log, the presentation and the report for a token.
// An unknown token is a normal outcome: no presentation and an empty log.
func (a *Analytics) TokenDetail(ctx context.Context, token string) (*models.TokenDetail, error) {
	logs, err := a.logs.ListByToken(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("list logs: %w", err)
	}
	pres, err := a.catalog.GetPresentationByToken(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("lookup presentation: %w", err)
	}

	sort.SliceStable(logs, func(i, j int) bool {
		if !logs[i].Timestamp.Equal(logs[j].Timestamp) {
			return logs[i].Timestamp.Before(logs[j].Timestamp)
		}
		return logs[i].ID < logs[j].ID
	})

	return &models.TokenDetail{
		Presentation: pres,
		Logs:         logs,
		Report:       Aggregate(logs),
	}, nil
}

func (a *Analytics) Summary(ctx context.Context) (*models.Summary, error) {
	clients, err := a.catalog.CountClients(ctx)
	if err != nil {
		return nil, fmt.Errorf("count clients: %w", err)
	}
	presentations, err := a.catalog.CountPresentations(ctx)
	if err != nil {
		return nil, fmt.Errorf("count presentations: %w", err)
	}
	views, err := a.logs.CountByKind(ctx, models.EventOpen)
	if err != nil {
		return nil, fmt.Errorf("count views: %w", err)
	}
	return &models.Summary{Clients: clients, Presentations: presentations, Views: views}, nil
}

// EnrichedPresentations lists presentations newest first, each annotated with
// its completion state.
func (a *Analytics) EnrichedPresentations(ctx context.Context) ([]models.EnrichedPresentation, error) {
	presentations, err := a.catalog.ListPresentations(ctx)
	if err != nil {
		return nil, fmt.Errorf("list presentations: %w", err)
	}

	out := make([]models.EnrichedPresentation, 0, len(presentations))
	for _, p := range presentations {
		logs, err := a.logs.ListByToken(ctx, p.Token)
		if err != nil {
			return nil, fmt.Errorf("list logs for %s: %w", p.Token, err)
		}
		report := Aggregate(logs)
		out = append(out, models.EnrichedPresentation{
			Presentation:     p,
			TotalViews:       report.TotalViews,
			IsCompleted:      report.IsCompleted,
			CompletedAt:      report.CompletedAt,
			LastPageViewTime: report.LastPageViewTime,
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return newerFirst(out[i].Presentation, out[j].Presentation)
	})
	return out, nil
}

func newerFirst(a, b models.Presentation) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID > b.ID
}
