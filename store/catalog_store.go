package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"decktrack/api/logging"
	"decktrack/api/models"
	"decktrack/api/utils"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

const tokenAttempts = 5

type PostgresCatalog struct {
	db *sql.DB
}

// NewPostgresCatalog creates a Catalog over the clients and presentations tables.
func NewPostgresCatalog(db *sql.DB) *PostgresCatalog {
	return &PostgresCatalog{db: db}
}

func (s *PostgresCatalog) CreateClient(ctx context.Context, c models.Client) (*models.Client, error) {
	query := `
		INSERT INTO clients (id, name, email, company)
		VALUES ($1, $2, $3, $4)
		RETURNING id, name, email, company, created_at;
	`
	out := &models.Client{}
	err := s.db.QueryRowContext(ctx, query, uuid.NewString(), c.Name, c.Email, c.Company).Scan(
		&out.ID, &out.Name, &out.Email, &out.Company, &out.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}
	return out, nil
}

func (s *PostgresCatalog) ListClients(ctx context.Context) ([]models.Client, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, email, company, created_at
		FROM clients
		ORDER BY created_at DESC, id DESC;
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list clients: %w", err)
	}
	defer rows.Close()

	clients := make([]models.Client, 0)
	for rows.Next() {
		var c models.Client
		if err := rows.Scan(&c.ID, &c.Name, &c.Email, &c.Company, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan client row: %w", err)
		}
		clients = append(clients, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating clients: %w", err)
	}
	return clients, nil
}

func (s *PostgresCatalog) UpdateClient(ctx context.Context, id string, c models.Client) (*models.Client, error) {
	query := `
		UPDATE clients SET name = $2, email = $3, company = $4
		WHERE id = $1
		RETURNING id, name, email, company, created_at;
	`
	out := &models.Client{}
	err := s.db.QueryRowContext(ctx, query, id, c.Name, c.Email, c.Company).Scan(
		&out.ID, &out.Name, &out.Email, &out.Company, &out.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("client %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to update client %s: %w", id, err)
	}
	return out, nil
}

func (s *PostgresCatalog) DeleteClient(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM clients WHERE id = $1;`, id); err != nil {
		return fmt.Errorf("failed to delete client %s: %w", id, err)
	}
	return nil
}

func (s *PostgresCatalog) CountClients(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM clients;`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count clients: %w", err)
	}
	return n, nil
}

const presentationColumns = `id, title, source_url, ploomes_deal_id, client_id, token, created_at`

func (s *PostgresCatalog) CreatePresentation(ctx context.Context, req models.PresentationRequest) (*models.Presentation, error) {
	query := `
		INSERT INTO presentations (id, title, source_url, ploomes_deal_id, client_id, token)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + presentationColumns + `;`

	for attempt := 1; attempt <= tokenAttempts; attempt++ {
		token, err := utils.NewAccessToken()
		if err != nil {
			return nil, err
		}
		p, err := scanPresentation(s.db.QueryRowContext(ctx, query,
			uuid.NewString(), req.Title, req.SourceURL, req.PloomesDealID, req.ClientID, token,
		))
		if err == nil {
			return p, nil
		}
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			logging.Warn().Int("attempt", attempt).Msg("access token collision, retrying")
			continue
		}
		return nil, fmt.Errorf("failed to create presentation: %w", err)
	}
	return nil, fmt.Errorf("failed to allocate a unique access token after %d attempts", tokenAttempts)
}

func (s *PostgresCatalog) ListPresentations(ctx context.Context) ([]models.Presentation, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+presentationColumns+` FROM presentations ORDER BY created_at DESC, id DESC;`)
	if err != nil {
		return nil, fmt.Errorf("failed to list presentations: %w", err)
	}
	defer rows.Close()

	items := make([]models.Presentation, 0)
	for rows.Next() {
		p, err := scanPresentation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan presentation row: %w", err)
		}
		items = append(items, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating presentations: %w", err)
	}
	return items, nil
}

func (s *PostgresCatalog) GetPresentationByToken(ctx context.Context, token string) (*models.Presentation, error) {
	p, err := scanPresentation(s.db.QueryRowContext(ctx, `SELECT `+presentationColumns+` FROM presentations WHERE token = $1;`, token))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get presentation by token %s: %w", token, err)
	}
	return p, nil
}

func (s *PostgresCatalog) UpdatePresentation(ctx context.Context, id string, req models.PresentationRequest) (*models.Presentation, error) {
	query := `
		UPDATE presentations
		SET title = $2, source_url = $3, ploomes_deal_id = $4, client_id = $5
		WHERE id = $1
		RETURNING ` + presentationColumns + `;`
	p, err := scanPresentation(s.db.QueryRowContext(ctx, query, id, req.Title, req.SourceURL, req.PloomesDealID, req.ClientID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("presentation %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to update presentation %s: %w", id, err)
	}
	return p, nil
}

// DeletePresentation removes the catalog row only; its access logs are kept.
func (s *PostgresCatalog) DeletePresentation(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM presentations WHERE id = $1;`, id); err != nil {
		return fmt.Errorf("failed to delete presentation %s: %w", id, err)
	}
	return nil
}

func (s *PostgresCatalog) CountPresentations(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM presentations;`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count presentations: %w", err)
	}
	return n, nil
}

func scanPresentation(row rowScanner) (*models.Presentation, error) {
	p := &models.Presentation{}
	if err := row.Scan(&p.ID, &p.Title, &p.SourceURL, &p.PloomesDealID, &p.ClientID, &p.Token, &p.CreatedAt); err != nil {
		return nil, err
	}
	return p, nil
}
