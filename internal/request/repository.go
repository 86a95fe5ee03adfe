package request

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository provê acesso à tabela de requisições de serviço.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository cria instância do repositório.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const requestColumns = `
        sr.id, sr.property_id, sr.requester_id, sr.title, sr.description, sr.service_type,
        sr.valor, sr.documento_url, sr.photos, sr.status, sr.status_execucao,
        sr.observacao_execucao, sr.approved_by, sr.approved_at, sr.rejection_reason,
        sr.created_at, sr.updated_at`

const requestColumnsJoined = requestColumns + `,
        COALESCE(p.endereco, 'Endereço não disponível'),
        COALESCE(pr.full_name, 'Usuário desconhecido')`

const requestJoins = `
        FROM service_requests sr
        LEFT JOIN properties p ON p.id = sr.property_id
        LEFT JOIN profiles pr ON pr.id = sr.requester_id`

// Create insere uma requisição já validada, sempre pendente.
func (r *Repository) Create(ctx context.Context, input CreateInput) (*Request, error) {
	photos := input.Photos
	if photos == nil {
		photos = []string{}
	}

	row := r.pool.QueryRow(ctx, `
        INSERT INTO service_requests
            (id, property_id, requester_id, title, description, service_type, valor, documento_url, photos, status)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, 'pendente')
        RETURNING id, property_id, requester_id, title, description, service_type,
            valor, documento_url, photos, status, status_execucao, observacao_execucao,
            approved_by, approved_at, rejection_reason, created_at, updated_at
    `,
		uuid.New(),
		input.PropertyID,
		input.RequesterID,
		strings.TrimSpace(input.Title),
		strings.TrimSpace(input.Description),
		input.ServiceType,
		input.Valor,
		input.DocumentoURL,
		photos,
	)
	return scanRequest(row)
}

// CreateTx insere a requisição dentro de uma transação existente.
// Usado pela saga de visitas para garantir atomicidade com a visita.
func (r *Repository) CreateTx(ctx context.Context, tx pgx.Tx, input CreateInput) (*Request, error) {
	photos := input.Photos
	if photos == nil {
		photos = []string{}
	}

	row := tx.QueryRow(ctx, `
        INSERT INTO service_requests
            (id, property_id, requester_id, title, description, service_type, valor, documento_url, photos, status)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, 'pendente')
        RETURNING id, property_id, requester_id, title, description, service_type,
            valor, documento_url, photos, status, status_execucao, observacao_execucao,
            approved_by, approved_at, rejection_reason, created_at, updated_at
    `,
		uuid.New(),
		input.PropertyID,
		input.RequesterID,
		strings.TrimSpace(input.Title),
		strings.TrimSpace(input.Description),
		input.ServiceType,
		input.Valor,
		input.DocumentoURL,
		photos,
	)
	return scanRequest(row)
}

// GetByID busca uma requisição específica com campos denormalizados.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Request, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+requestColumnsJoined+requestJoins+` WHERE sr.id = $1`, id)
	return scanRequestJoined(row)
}

// List devolve requisições com endereço do imóvel e nome do
// solicitante, aplicando filtro de aba e escopo por solicitante.
func (r *Repository) List(ctx context.Context, filter ListFilter) ([]Request, error) {
	var (
		clauses []string
		args    []any
		idx     = 1
	)

	switch filter.Filter {
	case FiltroPendente:
		clauses = append(clauses, "sr.status = 'pendente'")
	case FiltroAprovado:
		clauses = append(clauses, "sr.status = 'aprovado'", "sr.status_execucao = 'em_andamento'")
	case FiltroFinalizado:
		clauses = append(clauses, "sr.status = 'aprovado'", fmt.Sprintf("sr.status_execucao = ANY($%d)", idx))
		args = append(args, finalizedExecutions)
		idx++
	case FiltroRejeitado:
		clauses = append(clauses, "sr.status = 'rejeitado'")
	case FiltroTodos:
		// sem cláusula de status
	}

	if filter.RequesterID != nil {
		clauses = append(clauses, fmt.Sprintf("sr.requester_id = $%d", idx))
		args = append(args, *filter.RequesterID)
		idx++
	}
	if filter.PropertyID != nil {
		clauses = append(clauses, fmt.Sprintf("sr.property_id = $%d", idx))
		args = append(args, *filter.PropertyID)
		idx++
	}

	query := `SELECT ` + requestColumnsJoined + requestJoins
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}

	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 100
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	query += fmt.Sprintf(" ORDER BY sr.created_at DESC LIMIT $%d OFFSET $%d", idx, idx+1)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var requests []Request
	for rows.Next() {
		req, err := scanRequestJoined(rows)
		if err != nil {
			return nil, err
		}
		requests = append(requests, *req)
	}
	return requests, rows.Err()
}

// Approve executa a transição pendente→aprovado de forma condicional:
// a cláusula WHERE só casa quando o status ainda é pendente, de modo
// que dois aprovadores concorrentes não sobrescrevem um ao outro.
func (r *Repository) Approve(ctx context.Context, id, approverID uuid.UUID, when time.Time) (*Request, error) {
	row := r.pool.QueryRow(ctx, `
        UPDATE service_requests
        SET status = 'aprovado',
            status_execucao = 'em_andamento',
            approved_by = $2,
            approved_at = $3,
            updated_at = $3
        WHERE id = $1 AND status = 'pendente'
        RETURNING id, property_id, requester_id, title, description, service_type,
            valor, documento_url, photos, status, status_execucao, observacao_execucao,
            approved_by, approved_at, rejection_reason, created_at, updated_at
    `, id, approverID, when)
	return scanRequest(row)
}

// Reject executa a transição pendente→rejeitado com a mesma guarda
// condicional de Approve. status_execucao permanece nulo.
func (r *Repository) Reject(ctx context.Context, id, approverID uuid.UUID, reason *string, when time.Time) (*Request, error) {
	row := r.pool.QueryRow(ctx, `
        UPDATE service_requests
        SET status = 'rejeitado',
            approved_by = $2,
            approved_at = $3,
            rejection_reason = $4,
            updated_at = $3
        WHERE id = $1 AND status = 'pendente'
        RETURNING id, property_id, requester_id, title, description, service_type,
            valor, documento_url, photos, status, status_execucao, observacao_execucao,
            approved_by, approved_at, rejection_reason, created_at, updated_at
    `, id, approverID, when, reason)
	return scanRequest(row)
}

// UpdateExecution muda o status de execução de uma requisição aprovada
// em andamento, restrito ao solicitante original.
func (r *Repository) UpdateExecution(ctx context.Context, id, requesterID uuid.UUID, execucao string, observacao *string, when time.Time) (*Request, error) {
	row := r.pool.QueryRow(ctx, `
        UPDATE service_requests
        SET status_execucao = $3,
            observacao_execucao = COALESCE($4, observacao_execucao),
            updated_at = $5
        WHERE id = $1
          AND requester_id = $2
          AND status = 'aprovado'
          AND status_execucao = 'em_andamento'
        RETURNING id, property_id, requester_id, title, description, service_type,
            valor, documento_url, photos, status, status_execucao, observacao_execucao,
            approved_by, approved_at, rejection_reason, created_at, updated_at
    `, id, requesterID, execucao, observacao, when)
	return scanRequest(row)
}

// CountPendingSince conta requisições pendentes criadas após a marca.
func (r *Repository) CountPendingSince(ctx context.Context, since time.Time) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx, `
        SELECT count(*) FROM service_requests
        WHERE status = 'pendente' AND created_at >= $1
    `, since).Scan(&count)
	return count, err
}

// CountFinalizedSince conta requisições com execução encerrada
// atualizadas após a marca.
func (r *Repository) CountFinalizedSince(ctx context.Context, since time.Time) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx, `
        SELECT count(*) FROM service_requests
        WHERE status = 'aprovado' AND status_execucao = ANY($1) AND updated_at >= $2
    `, finalizedExecutions, since).Scan(&count)
	return count, err
}

// CountApprovedInProgressSince conta aprovações recentes do solicitante.
func (r *Repository) CountApprovedInProgressSince(ctx context.Context, requesterID uuid.UUID, since time.Time) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx, `
        SELECT count(*) FROM service_requests
        WHERE requester_id = $1
          AND status = 'aprovado'
          AND status_execucao = 'em_andamento'
          AND approved_at >= $2
    `, requesterID, since).Scan(&count)
	return count, err
}

// CountRejectedSince conta rejeições recentes do solicitante.
func (r *Repository) CountRejectedSince(ctx context.Context, requesterID uuid.UUID, since time.Time) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx, `
        SELECT count(*) FROM service_requests
        WHERE requester_id = $1 AND status = 'rejeitado' AND approved_at >= $2
    `, requesterID, since).Scan(&count)
	return count, err
}

// CountResponsesSince conta respostas (aprovações e rejeições) dadas
// ao solicitante após a marca. Alimenta o selo global de notificações.
func (r *Repository) CountResponsesSince(ctx context.Context, requesterID uuid.UUID, since time.Time) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx, `
        SELECT count(*) FROM service_requests
        WHERE requester_id = $1 AND status = ANY($2) AND approved_at >= $3
    `, requesterID, []string{StatusAprovado, StatusRejeitado}, since).Scan(&count)
	return count, err
}

func scanRequest(row pgx.Row) (*Request, error) {
	var req Request
	err := row.Scan(
		&req.ID, &req.PropertyID, &req.RequesterID, &req.Title, &req.Description,
		&req.ServiceType, &req.Valor, &req.DocumentoURL, &req.Photos, &req.Status,
		&req.StatusExecucao, &req.ObservacaoExecucao, &req.ApprovedBy, &req.ApprovedAt,
		&req.RejectionReason, &req.CreatedAt, &req.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if req.Photos == nil {
		req.Photos = []string{}
	}
	return &req, nil
}

func scanRequestJoined(row pgx.Row) (*Request, error) {
	var req Request
	err := row.Scan(
		&req.ID, &req.PropertyID, &req.RequesterID, &req.Title, &req.Description,
		&req.ServiceType, &req.Valor, &req.DocumentoURL, &req.Photos, &req.Status,
		&req.StatusExecucao, &req.ObservacaoExecucao, &req.ApprovedBy, &req.ApprovedAt,
		&req.RejectionReason, &req.CreatedAt, &req.UpdatedAt,
		&req.PropertyAddress, &req.RequesterName,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if req.Photos == nil {
		req.Photos = []string{}
	}
	return &req, nil
}
