package property

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository provê acesso à tabela de imóveis.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository cria instância do repositório.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const propertyColumns = `
        id, utilizacao, situacao, nome_completo, endereco, bairro, cidade,
        estado, regiao, proprietario, prefeito, image_url, criado_em`

// List devolve imóveis ordenados pelo nome, restritos aos estados do
// chamador quando a lista não é vazia.
func (r *Repository) List(ctx context.Context, filter ListFilter) ([]Property, error) {
	var (
		clauses []string
		args    []any
		idx     = 1
	)

	if len(filter.States) > 0 {
		clauses = append(clauses, fmt.Sprintf("estado = ANY($%d)", idx))
		args = append(args, filter.States)
		idx++
	}
	if q := strings.TrimSpace(filter.Query); q != "" {
		clauses = append(clauses, fmt.Sprintf(
			"(nome_completo ILIKE $%d OR endereco ILIKE $%d OR bairro ILIKE $%d OR cidade ILIKE $%d)",
			idx, idx, idx, idx))
		args = append(args, "%"+q+"%")
		idx++
	}

	query := `SELECT ` + propertyColumns + ` FROM properties`
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}

	limit := filter.Limit
	if limit <= 0 || limit > 500 {
		limit = 200
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	query += fmt.Sprintf(" ORDER BY nome_completo ASC LIMIT $%d OFFSET $%d", idx, idx+1)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var properties []Property
	for rows.Next() {
		prop, err := scanProperty(rows)
		if err != nil {
			return nil, err
		}
		properties = append(properties, *prop)
	}
	return properties, rows.Err()
}

// GetByID busca um imóvel.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Property, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+propertyColumns+` FROM properties WHERE id = $1`, id)
	return scanProperty(row)
}

// Create insere um imóvel.
func (r *Repository) Create(ctx context.Context, input UpsertInput) (*Property, error) {
	row := r.pool.QueryRow(ctx, `
        INSERT INTO properties
            (id, utilizacao, situacao, nome_completo, endereco, bairro, cidade,
             estado, regiao, proprietario, prefeito, image_url)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
        RETURNING `+propertyColumns,
		uuid.New(),
		input.Utilizacao,
		input.Situacao,
		input.NomeCompleto,
		input.Endereco,
		input.Bairro,
		input.Cidade,
		input.Estado,
		input.Regiao,
		input.Proprietario,
		input.Prefeito,
		input.ImageURL,
	)
	return scanProperty(row)
}

// Update sobrescreve os campos editáveis de um imóvel.
func (r *Repository) Update(ctx context.Context, id uuid.UUID, input UpsertInput) (*Property, error) {
	row := r.pool.QueryRow(ctx, `
        UPDATE properties
        SET utilizacao = $2, situacao = $3, nome_completo = $4, endereco = $5,
            bairro = $6, cidade = $7, estado = $8, regiao = $9,
            proprietario = $10, prefeito = $11, image_url = $12
        WHERE id = $1
        RETURNING `+propertyColumns,
		id,
		input.Utilizacao,
		input.Situacao,
		input.NomeCompleto,
		input.Endereco,
		input.Bairro,
		input.Cidade,
		input.Estado,
		input.Regiao,
		input.Proprietario,
		input.Prefeito,
		input.ImageURL,
	)
	return scanProperty(row)
}

// Delete remove um imóvel.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM properties WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// History devolve os eventos de manutenção derivados das requisições
// aprovadas ou rejeitadas do imóvel, mais recentes primeiro.
func (r *Repository) History(ctx context.Context, propertyID uuid.UUID) ([]HistoryEntry, error) {
	rows, err := r.pool.Query(ctx, `
        SELECT id, title, service_type, status, status_execucao, valor, approved_at, updated_at
        FROM service_requests
        WHERE property_id = $1 AND status IN ('aprovado', 'rejeitado')
        ORDER BY updated_at DESC
    `, propertyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []HistoryEntry
	for rows.Next() {
		var e HistoryEntry
		if err := rows.Scan(&e.RequestID, &e.Title, &e.ServiceType, &e.Status,
			&e.Execucao, &e.Valor, &e.ApprovedAt, &e.UpdatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Visits devolve o resumo das visitas do imóvel, mais recentes primeiro.
func (r *Repository) Visits(ctx context.Context, propertyID uuid.UUID) ([]VisitEntry, error) {
	rows, err := r.pool.Query(ctx, `
        SELECT v.id, COALESCE(pr.full_name, 'Usuário desconhecido'), v.date, v.type,
               COALESCE(array_length(v.photos, 1), 0)
        FROM visits v
        LEFT JOIN profiles pr ON pr.id = v.prefeito_id
        WHERE v.property_id = $1
        ORDER BY v.date DESC
    `, propertyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []VisitEntry
	for rows.Next() {
		var e VisitEntry
		if err := rows.Scan(&e.VisitID, &e.PrefeitoNome, &e.Date, &e.Type, &e.PhotoCount); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func scanProperty(row pgx.Row) (*Property, error) {
	var prop Property
	err := row.Scan(
		&prop.ID, &prop.Utilizacao, &prop.Situacao, &prop.NomeCompleto,
		&prop.Endereco, &prop.Bairro, &prop.Cidade, &prop.Estado, &prop.Regiao,
		&prop.Proprietario, &prop.Prefeito, &prop.ImageURL, &prop.CriadoEm,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &prop, nil
}
