package profile

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound    = errors.New("perfil não encontrado")
	ErrInvalidRole = errors.New("papel inválido")
	ErrEmailInUse  = errors.New("e-mail já cadastrado")
)

const (
	RoleAdmin    = "admin"
	RoleGestor   = "gestor"
	RolePrefeito = "prefeito"
)

var validRoles = map[string]struct{}{
	RoleAdmin:    {},
	RoleGestor:   {},
	RolePrefeito: {},
}

// Profile representa um usuário autenticável do aplicativo.
// A ausência da linha revoga o acesso mesmo que a identidade
// de autenticação continue existindo.
type Profile struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	FullName  string    `json:"full_name"`
	Role      string    `json:"role"`
	States    []string  `json:"states"`
	SenhaHash string    `json:"-"`
	Ativo     bool      `json:"ativo"`
	CriadoEm  time.Time `json:"criado_em"`
}

// Caller identifica quem está executando uma operação, extraído
// das claims do token de acesso.
type Caller struct {
	ID     uuid.UUID
	Role   string
	States []string
}

// IsModerator indica se o chamador pode aprovar/rejeitar requisições
// e administrar o catálogo.
func (c Caller) IsModerator() bool {
	return c.Role == RoleAdmin || c.Role == RoleGestor
}

// IsAdmin indica acesso total, inclusive gestão de usuários.
func (c Caller) IsAdmin() bool {
	return c.Role == RoleAdmin
}

// CreateInput encapsula os campos de cadastro de um perfil.
type CreateInput struct {
	Email    string
	FullName string
	Password string
	Role     string
	States   []string
}

// UpdateInput permite atualização parcial de um perfil.
type UpdateInput struct {
	ID       uuid.UUID
	FullName *string
	Role     *string
	States   []string
}

// RefreshToken modela a tabela de refresh tokens.
type RefreshToken struct {
	ID        uuid.UUID
	Subject   uuid.UUID
	TokenHash string
	Expiracao time.Time
	CriadoEm  time.Time
	Revogado  bool
}

// NormalizeRole padroniza papel em minúsculas.
func NormalizeRole(role string) string {
	return strings.ToLower(strings.TrimSpace(role))
}

// IsValidRole indica se o papel é aceito.
func IsValidRole(role string) bool {
	_, ok := validRoles[NormalizeRole(role)]
	return ok
}

// NormalizeStates remove entradas vazias e padroniza siglas em maiúsculas.
func NormalizeStates(states []string) []string {
	out := make([]string, 0, len(states))
	for _, uf := range states {
		uf = strings.ToUpper(strings.TrimSpace(uf))
		if uf == "" {
			continue
		}
		out = append(out, uf)
	}
	return out
}
