package visit

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository provê acesso à tabela de visitas.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository cria instância do repositório.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const visitColumns = `
        v.id, v.property_id, v.prefeito_id, v.date, v.type,
        v.service_request_id, v.photos, v.created_at`

const visitColumnsJoined = visitColumns + `,
        COALESCE(p.endereco, 'Endereço não disponível'),
        COALESCE(pr.full_name, 'Usuário desconhecido')`

const visitJoins = `
        FROM visits v
        LEFT JOIN properties p ON p.id = v.property_id
        LEFT JOIN profiles pr ON pr.id = v.prefeito_id`

// InsertTx insere a visita dentro da transação da saga.
func (r *Repository) InsertTx(ctx context.Context, tx pgx.Tx, input insertInput) (*Visit, error) {
	photos := input.Photos
	if photos == nil {
		photos = []string{}
	}

	row := tx.QueryRow(ctx, `
        INSERT INTO visits (id, property_id, prefeito_id, date, type, service_request_id, photos)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        RETURNING id, property_id, prefeito_id, date, type, service_request_id, photos, created_at
    `,
		uuid.New(),
		input.PropertyID,
		input.PrefeitoID,
		input.Date,
		input.Type,
		input.ServiceRequestID,
		photos,
	)

	var v Visit
	err := row.Scan(&v.ID, &v.PropertyID, &v.PrefeitoID, &v.Date, &v.Type,
		&v.ServiceRequestID, &v.Photos, &v.CreatedAt)
	if err != nil {
		return nil, err
	}
	if v.Photos == nil {
		v.Photos = []string{}
	}
	return &v, nil
}

// GetByID busca uma visita com os campos denormalizados.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Visit, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+visitColumnsJoined+visitJoins+` WHERE v.id = $1`, id)
	v, err := scanVisitJoined(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return v, nil
}

// ListByProperty devolve as visitas de um imóvel, mais recentes primeiro.
func (r *Repository) ListByProperty(ctx context.Context, propertyID uuid.UUID) ([]Visit, error) {
	return r.list(ctx, `SELECT `+visitColumnsJoined+visitJoins+` WHERE v.property_id = $1 ORDER BY v.date DESC`, propertyID)
}

// ListByPrefeito devolve as visitas registradas por um prefeito.
func (r *Repository) ListByPrefeito(ctx context.Context, prefeitoID uuid.UUID) ([]Visit, error) {
	return r.list(ctx, `SELECT `+visitColumnsJoined+visitJoins+` WHERE v.prefeito_id = $1 ORDER BY v.date DESC`, prefeitoID)
}

func (r *Repository) list(ctx context.Context, query string, arg any) ([]Visit, error) {
	rows, err := r.pool.Query(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var visits []Visit
	for rows.Next() {
		v, err := scanVisitJoined(rows)
		if err != nil {
			return nil, err
		}
		visits = append(visits, *v)
	}
	return visits, rows.Err()
}

func scanVisitJoined(row pgx.Row) (*Visit, error) {
	var v Visit
	err := row.Scan(&v.ID, &v.PropertyID, &v.PrefeitoID, &v.Date, &v.Type,
		&v.ServiceRequestID, &v.Photos, &v.CreatedAt, &v.PropertyAddress, &v.PrefeitoNome)
	if err != nil {
		return nil, err
	}
	if v.Photos == nil {
		v.Photos = []string{}
	}
	return &v, nil
}
