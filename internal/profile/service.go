package profile

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/gestaopredial/patrimonio/internal/auth"
	"github.com/gestaopredial/patrimonio/internal/util"
)

var (
	// ErrForbidden indica acesso negado à operação de gestão.
	ErrForbidden = errors.New("sem acesso")
	// ErrValidation agrupa falhas de validação de entrada.
	ErrValidation = errors.New("dados inválidos")
)

// ManagementRepository abstrai o repositório para o serviço de gestão.
type ManagementRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Profile, error)
	GetByEmail(ctx context.Context, email string) (*Profile, error)
	List(ctx context.Context) ([]Profile, error)
	Create(ctx context.Context, input CreateInput, senhaHash string) (*Profile, error)
	Update(ctx context.Context, input UpdateInput) (*Profile, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// Service reúne as regras de gestão de usuários.
type Service struct {
	repo ManagementRepository
}

// NewService cria uma nova instância do serviço.
func NewService(repo ManagementRepository) *Service {
	return &Service{repo: repo}
}

// List devolve os perfis visíveis ao chamador.
func (s *Service) List(ctx context.Context, caller Caller) ([]Profile, error) {
	if !caller.IsModerator() {
		return nil, ErrForbidden
	}
	return s.repo.List(ctx)
}

// Get devolve um perfil específico.
func (s *Service) Get(ctx context.Context, caller Caller, id uuid.UUID) (*Profile, error) {
	if !caller.IsModerator() && caller.ID != id {
		return nil, ErrForbidden
	}
	return s.repo.GetByID(ctx, id)
}

// Create cadastra um perfil novo com senha inicial.
func (s *Service) Create(ctx context.Context, caller Caller, input CreateInput) (*Profile, error) {
	if !caller.IsAdmin() {
		return nil, ErrForbidden
	}
	if err := util.ValidateEmail(input.Email); err != nil {
		return nil, errValidation(err.Error())
	}
	if err := util.RequireString(input.FullName, "nome"); err != nil {
		return nil, errValidation(err.Error())
	}
	if err := util.ValidatePassword(input.Password); err != nil {
		return nil, errValidation(err.Error())
	}
	input.Role = NormalizeRole(input.Role)
	if !IsValidRole(input.Role) {
		return nil, ErrInvalidRole
	}
	input.States = NormalizeStates(input.States)
	for _, uf := range input.States {
		if err := util.ValidateUF(uf); err != nil {
			return nil, errValidation(err.Error())
		}
	}

	if existing, err := s.repo.GetByEmail(ctx, input.Email); err == nil && existing != nil {
		return nil, ErrEmailInUse
	} else if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	hash, err := auth.Hash(input.Password)
	if err != nil {
		return nil, err
	}

	return s.repo.Create(ctx, input, hash)
}

// Update altera nome, papel e estados atribuídos.
func (s *Service) Update(ctx context.Context, caller Caller, input UpdateInput) (*Profile, error) {
	if !caller.IsAdmin() {
		return nil, ErrForbidden
	}
	if input.FullName != nil && strings.TrimSpace(*input.FullName) == "" {
		return nil, errValidation("nome obrigatório")
	}
	if input.Role != nil {
		normalized := NormalizeRole(*input.Role)
		if !IsValidRole(normalized) {
			return nil, ErrInvalidRole
		}
		input.Role = &normalized
	}
	if input.States != nil {
		input.States = NormalizeStates(input.States)
		for _, uf := range input.States {
			if err := util.ValidateUF(uf); err != nil {
				return nil, errValidation(err.Error())
			}
		}
	}
	return s.repo.Update(ctx, input)
}

// Delete remove o perfil, revogando o acesso do usuário.
func (s *Service) Delete(ctx context.Context, caller Caller, id uuid.UUID) error {
	if !caller.IsAdmin() {
		return ErrForbidden
	}
	if caller.ID == id {
		return errValidation("não é possível excluir o próprio perfil")
	}
	return s.repo.Delete(ctx, id)
}

func errValidation(msg string) error {
	return fmt.Errorf("%w: %s", ErrValidation, msg)
}
