package access

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository provê acesso à tabela de pedidos de acesso.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository cria instância do repositório.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const accessColumns = `id, name, email, phone, type, status, resolved_by, resolved_at, created_at`

// Create insere o pedido com status pending.
func (r *Repository) Create(ctx context.Context, input CreateInput) (*AccessRequest, error) {
	row := r.pool.QueryRow(ctx, `
        INSERT INTO access_requests (id, name, email, phone, type, status)
        VALUES ($1, $2, $3, $4, $5, 'pending')
        RETURNING `+accessColumns,
		uuid.New(), input.Name, input.Email, input.Phone, input.Type)
	return scanAccessRequest(row)
}

// List devolve os pedidos, mais recentes primeiro.
func (r *Repository) List(ctx context.Context, onlyPending bool) ([]AccessRequest, error) {
	query := `SELECT ` + accessColumns + ` FROM access_requests`
	if onlyPending {
		query += ` WHERE status = 'pending'`
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var requests []AccessRequest
	for rows.Next() {
		req, err := scanAccessRequest(rows)
		if err != nil {
			return nil, err
		}
		requests = append(requests, *req)
	}
	return requests, rows.Err()
}

// Resolve fecha um pedido pendente. A guarda de status impede dupla
// resolução.
func (r *Repository) Resolve(ctx context.Context, id, resolverID uuid.UUID, status string, when time.Time) (*AccessRequest, error) {
	row := r.pool.QueryRow(ctx, `
        UPDATE access_requests
        SET status = $3, resolved_by = $2, resolved_at = $4
        WHERE id = $1 AND status = 'pending'
        RETURNING `+accessColumns,
		id, resolverID, status, when)
	return scanAccessRequest(row)
}

// GetByID busca um pedido.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*AccessRequest, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+accessColumns+` FROM access_requests WHERE id = $1`, id)
	return scanAccessRequest(row)
}

func scanAccessRequest(row pgx.Row) (*AccessRequest, error) {
	var req AccessRequest
	err := row.Scan(&req.ID, &req.Name, &req.Email, &req.Phone, &req.Type,
		&req.Status, &req.ResolvedBy, &req.ResolvedAt, &req.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &req, nil
}
