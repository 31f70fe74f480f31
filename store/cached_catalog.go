package store

import (
	"context"
	"time"

	"decktrack/api/models"

	"github.com/patrickmn/go-cache"
)

// CachedCatalog fronts token lookups with a short TTL cache. The COMPLETE path
// resolves the presentation on every event, so this keeps it off the database.
type CachedCatalog struct {
	Catalog
	byToken *cache.Cache
}

func NewCachedCatalog(inner Catalog, ttl time.Duration) *CachedCatalog {
	return &CachedCatalog{
		Catalog: inner,
		byToken: cache.New(ttl, 2*ttl),
	}
}

func (c *CachedCatalog) GetPresentationByToken(ctx context.Context, token string) (*models.Presentation, error) {
	if v, ok := c.byToken.Get(token); ok {
		p := v.(models.Presentation)
		return &p, nil
	}
	p, err := c.Catalog.GetPresentationByToken(ctx, token)
	if err != nil || p == nil {
		return p, err
	}
	c.byToken.Set(token, *p, cache.DefaultExpiration)
	return p, nil
}

func (c *CachedCatalog) UpdatePresentation(ctx context.Context, id string, req models.PresentationRequest) (*models.Presentation, error) {
	p, err := c.Catalog.UpdatePresentation(ctx, id, req)
	if err != nil {
		return nil, err
	}
	c.byToken.Delete(p.Token)
	return p, nil
}

func (c *CachedCatalog) DeletePresentation(ctx context.Context, id string) error {
	if err := c.Catalog.DeletePresentation(ctx, id); err != nil {
		return err
	}
	// The token is not known from the id alone.
	c.byToken.Flush()
	return nil
}
