package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"decktrack/api/models"
	"decktrack/api/utils"

	"github.com/google/uuid"
)

type MemoryCatalog struct {
	mu            sync.RWMutex
	clients       map[string]models.Client
	presentations map[string]models.Presentation
	now           func() time.Time
}

func NewMemoryCatalog() *MemoryCatalog {
	return &MemoryCatalog{
		clients:       map[string]models.Client{},
		presentations: map[string]models.Presentation{},
		now:           time.Now,
	}
}

func (m *MemoryCatalog) CreateClient(_ context.Context, c models.Client) (*models.Client, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c.ID = uuid.NewString()
	c.CreatedAt = m.now().UTC()
	m.clients[c.ID] = c
	return &c, nil
}

func (m *MemoryCatalog) ListClients(_ context.Context) ([]models.Client, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	items := make([]models.Client, 0, len(m.clients))
	for _, c := range m.clients {
		items = append(items, c)
	}
	sort.Slice(items, func(i, j int) bool { return newerFirst(items[i].CreatedAt, items[j].CreatedAt, items[i].ID, items[j].ID) })
	return items, nil
}

func (m *MemoryCatalog) UpdateClient(_ context.Context, id string, c models.Client) (*models.Client, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.clients[id]
	if !ok {
		return nil, ErrNotFound
	}
	existing.Name = c.Name
	existing.Email = c.Email
	existing.Company = c.Company
	m.clients[id] = existing
	return &existing, nil
}

func (m *MemoryCatalog) DeleteClient(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.clients, id)
	return nil
}

func (m *MemoryCatalog) CountClients(_ context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.clients), nil
}

func (m *MemoryCatalog) CreatePresentation(_ context.Context, req models.PresentationRequest) (*models.Presentation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var token string
	for {
		t, err := utils.NewAccessToken()
		if err != nil {
			return nil, err
		}
		if !m.tokenTaken(t) {
			token = t
			break
		}
	}

	p := models.Presentation{
		ID:            uuid.NewString(),
		Title:         req.Title,
		SourceURL:     req.SourceURL,
		PloomesDealID: req.PloomesDealID,
		ClientID:      req.ClientID,
		Token:         token,
		CreatedAt:     m.now().UTC(),
	}
	m.presentations[p.ID] = p
	return &p, nil
}

func (m *MemoryCatalog) tokenTaken(token string) bool {
	for _, p := range m.presentations {
		if p.Token == token {
			return true
		}
	}
	return false
}

func (m *MemoryCatalog) ListPresentations(_ context.Context) ([]models.Presentation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	items := make([]models.Presentation, 0, len(m.presentations))
	for _, p := range m.presentations {
		items = append(items, p)
	}
	sort.Slice(items, func(i, j int) bool { return newerFirst(items[i].CreatedAt, items[j].CreatedAt, items[i].ID, items[j].ID) })
	return items, nil
}

func (m *MemoryCatalog) GetPresentationByToken(_ context.Context, token string) (*models.Presentation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, p := range m.presentations {
		if p.Token == token {
			found := p
			return &found, nil
		}
	}
	return nil, nil
}

func (m *MemoryCatalog) UpdatePresentation(_ context.Context, id string, req models.PresentationRequest) (*models.Presentation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.presentations[id]
	if !ok {
		return nil, fmt.Errorf("presentation %s: %w", id, ErrNotFound)
	}
	p.Title = req.Title
	p.SourceURL = req.SourceURL
	p.PloomesDealID = req.PloomesDealID
	p.ClientID = req.ClientID
	m.presentations[id] = p
	return &p, nil
}

func (m *MemoryCatalog) DeletePresentation(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.presentations, id)
	return nil
}

func (m *MemoryCatalog) CountPresentations(_ context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.presentations), nil
}

func newerFirst(a, b time.Time, aID, bID string) bool {
	if !a.Equal(b) {
		return a.After(b)
	}
	return aID > bID
}
