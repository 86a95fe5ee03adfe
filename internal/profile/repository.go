package profile

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gestaopredial/patrimonio/internal/util"
)

// Repository provê acesso à tabela de perfis e aos refresh tokens.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository cria instância do repositório.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const profileColumns = "id, email, full_name, role, states, senha_hash, ativo, criado_em"

// GetByID busca perfil pelo identificador.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Profile, error) {
	row := r.pool.QueryRow(ctx, `
        SELECT `+profileColumns+`
        FROM profiles
        WHERE id = $1
    `, id)
	return scanProfile(row)
}

// GetByEmail busca perfil pelo e-mail normalizado.
func (r *Repository) GetByEmail(ctx context.Context, email string) (*Profile, error) {
	row := r.pool.QueryRow(ctx, `
        SELECT `+profileColumns+`
        FROM profiles
        WHERE lower(email) = lower($1)
    `, strings.TrimSpace(email))
	return scanProfile(row)
}

// List devolve todos os perfis ordenados por nome.
func (r *Repository) List(ctx context.Context) ([]Profile, error) {
	rows, err := r.pool.Query(ctx, `
        SELECT `+profileColumns+`
        FROM profiles
        ORDER BY full_name ASC
    `)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var profiles []Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, *p)
	}
	return profiles, rows.Err()
}

// Create insere novo perfil.
func (r *Repository) Create(ctx context.Context, input CreateInput, senhaHash string) (*Profile, error) {
	row := r.pool.QueryRow(ctx, `
        INSERT INTO profiles (id, email, full_name, role, states, senha_hash, ativo)
        VALUES ($1, $2, $3, $4, $5, $6, true)
        RETURNING `+profileColumns+`
    `,
		uuid.New(),
		strings.ToLower(strings.TrimSpace(input.Email)),
		strings.TrimSpace(input.FullName),
		NormalizeRole(input.Role),
		NormalizeStates(input.States),
		senhaHash,
	)
	return scanProfile(row)
}

// Update altera campos do perfil (parcial).
func (r *Repository) Update(ctx context.Context, input UpdateInput) (*Profile, error) {
	setParts := []string{}
	args := []any{}
	idx := 1

	if input.FullName != nil {
		setParts = append(setParts, fmt.Sprintf("full_name = $%d", idx))
		args = append(args, strings.TrimSpace(*input.FullName))
		idx++
	}
	if input.Role != nil {
		setParts = append(setParts, fmt.Sprintf("role = $%d", idx))
		args = append(args, NormalizeRole(*input.Role))
		idx++
	}
	if input.States != nil {
		setParts = append(setParts, fmt.Sprintf("states = $%d", idx))
		args = append(args, NormalizeStates(input.States))
		idx++
	}

	if len(setParts) == 0 {
		return r.GetByID(ctx, input.ID)
	}

	args = append(args, input.ID)
	query := fmt.Sprintf(`
        UPDATE profiles
        SET %s
        WHERE id = $%d
        RETURNING %s`, strings.Join(setParts, ", "), idx, profileColumns)

	row := r.pool.QueryRow(ctx, query, args...)
	return scanProfile(row)
}

// Delete remove a linha do perfil. O acesso é revogado na prática,
// ainda que a identidade de autenticação persista.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM profiles WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// InsertRefreshToken registra novo refresh token.
func (r *Repository) InsertRefreshToken(ctx context.Context, token RefreshToken) error {
	_, err := r.pool.Exec(ctx, `
        INSERT INTO refresh_tokens (id, subject, token_hash, expiracao, criado_em, revogado)
        VALUES ($1, $2, $3, $4, $5, false)
    `, token.ID, token.Subject, token.TokenHash, token.Expiracao, token.CriadoEm)
	return err
}

// GetRefreshTokenByHash recupera refresh token pelo hash.
func (r *Repository) GetRefreshTokenByHash(ctx context.Context, hash string) (*RefreshToken, error) {
	var t RefreshToken
	err := r.pool.QueryRow(ctx, `
        SELECT id, subject, token_hash, expiracao, criado_em, revogado
        FROM refresh_tokens
        WHERE token_hash = $1
    `, hash).Scan(&t.ID, &t.Subject, &t.TokenHash, &t.Expiracao, &t.CriadoEm, &t.Revogado)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}

// RevokeRefreshToken marca um refresh token como revogado.
func (r *Repository) RevokeRefreshToken(ctx context.Context, hash string) error {
	cmd, err := r.pool.Exec(ctx, `
        UPDATE refresh_tokens SET revogado = true WHERE token_hash = $1
    `, hash)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// InvalidateOtherRefreshTokens revoga todas as sessões do sujeito
// exceto a recém-criada.
func (r *Repository) InvalidateOtherRefreshTokens(ctx context.Context, subject uuid.UUID, keepHash string) error {
	_, err := r.pool.Exec(ctx, `
        UPDATE refresh_tokens
        SET revogado = true
        WHERE subject = $1 AND token_hash <> $2 AND NOT revogado
    `, subject, keepHash)
	return err
}

// ActiveSessionCallers devolve os usuários com sessão viva (refresh
// token não revogado e dentro da validade). Alimenta o snapshot
// periódico de notificações.
func (r *Repository) ActiveSessionCallers(ctx context.Context) ([]Caller, error) {
	rows, err := r.pool.Query(ctx, `
        SELECT DISTINCT p.id, p.role, p.states
        FROM refresh_tokens rt
        JOIN profiles p ON p.id = rt.subject
        WHERE NOT rt.revogado AND rt.expiracao > $1 AND p.ativo
    `, util.Now())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var callers []Caller
	for rows.Next() {
		var c Caller
		if err := rows.Scan(&c.ID, &c.Role, &c.States); err != nil {
			return nil, err
		}
		if c.States == nil {
			c.States = []string{}
		}
		callers = append(callers, c)
	}
	return callers, rows.Err()
}

// PurgeExpiredRefreshTokens limpa tokens vencidos.
func (r *Repository) PurgeExpiredRefreshTokens(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM refresh_tokens WHERE expiracao < $1`, util.Now())
	return err
}

func scanProfile(row pgx.Row) (*Profile, error) {
	var p Profile
	if err := row.Scan(&p.ID, &p.Email, &p.FullName, &p.Role, &p.States, &p.SenhaHash, &p.Ativo, &p.CriadoEm); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if p.States == nil {
		p.States = []string{}
	}
	return &p, nil
}
