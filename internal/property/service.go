package property

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/gestaopredial/patrimonio/internal/profile"
	"github.com/gestaopredial/patrimonio/internal/util"
)

// CatalogRepository descreve o que o serviço precisa do banco.
type CatalogRepository interface {
	List(ctx context.Context, filter ListFilter) ([]Property, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Property, error)
	Create(ctx context.Context, input UpsertInput) (*Property, error)
	Update(ctx context.Context, id uuid.UUID, input UpsertInput) (*Property, error)
	Delete(ctx context.Context, id uuid.UUID) error
	History(ctx context.Context, propertyID uuid.UUID) ([]HistoryEntry, error)
	Visits(ctx context.Context, propertyID uuid.UUID) ([]VisitEntry, error)
}

// Service concentra as regras do catálogo de imóveis.
type Service struct {
	repo CatalogRepository
}

// NewService cria o serviço do catálogo.
func NewService(repo CatalogRepository) *Service {
	return &Service{repo: repo}
}

// List devolve o catálogo visível ao chamador. Não-admin só enxerga
// imóveis dos estados atribuídos ao seu perfil.
func (s *Service) List(ctx context.Context, caller profile.Caller, query string, limit, offset int) ([]Property, error) {
	filter := ListFilter{Query: query, Limit: limit, Offset: offset}
	if !caller.IsAdmin() {
		if len(caller.States) == 0 {
			return []Property{}, nil
		}
		filter.States = caller.States
	}
	return s.repo.List(ctx, filter)
}

// Get busca um imóvel respeitando o escopo de estados do chamador.
func (s *Service) Get(ctx context.Context, caller profile.Caller, id uuid.UUID) (*Property, error) {
	prop, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !s.visible(caller, prop) {
		return nil, ErrNotFound
	}
	return prop, nil
}

// Detail agrega o imóvel ao histórico de manutenção derivado das
// requisições e ao resumo das visitas.
func (s *Service) Detail(ctx context.Context, caller profile.Caller, id uuid.UUID) (*Detail, error) {
	prop, err := s.Get(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	history, err := s.repo.History(ctx, id)
	if err != nil {
		return nil, err
	}
	visits, err := s.repo.Visits(ctx, id)
	if err != nil {
		return nil, err
	}
	if history == nil {
		history = []HistoryEntry{}
	}
	if visits == nil {
		visits = []VisitEntry{}
	}
	return &Detail{Property: *prop, History: history, Visits: visits}, nil
}

// Create cadastra um imóvel. Restrito a admin e gestor.
func (s *Service) Create(ctx context.Context, caller profile.Caller, input UpsertInput) (*Property, error) {
	if !caller.IsModerator() {
		return nil, ErrForbidden
	}
	if err := validateUpsert(&input); err != nil {
		return nil, err
	}
	return s.repo.Create(ctx, input)
}

// Update sobrescreve um imóvel. Restrito a admin e gestor.
func (s *Service) Update(ctx context.Context, caller profile.Caller, id uuid.UUID, input UpsertInput) (*Property, error) {
	if !caller.IsModerator() {
		return nil, ErrForbidden
	}
	if err := validateUpsert(&input); err != nil {
		return nil, err
	}
	return s.repo.Update(ctx, id, input)
}

// Delete remove um imóvel. Restrito a admin.
func (s *Service) Delete(ctx context.Context, caller profile.Caller, id uuid.UUID) error {
	if !caller.IsAdmin() {
		return ErrForbidden
	}
	return s.repo.Delete(ctx, id)
}

func (s *Service) visible(caller profile.Caller, prop *Property) bool {
	if caller.IsAdmin() {
		return true
	}
	for _, uf := range caller.States {
		if uf == prop.Estado {
			return true
		}
	}
	return false
}

func validateUpsert(input *UpsertInput) error {
	input.NomeCompleto = strings.TrimSpace(input.NomeCompleto)
	input.Endereco = strings.TrimSpace(input.Endereco)
	input.Estado = strings.ToUpper(strings.TrimSpace(input.Estado))

	if err := util.RequireString(input.NomeCompleto, "nome"); err != nil {
		return fmt.Errorf("%w: %s", ErrValidation, err.Error())
	}
	if err := util.RequireString(input.Endereco, "endereço"); err != nil {
		return fmt.Errorf("%w: %s", ErrValidation, err.Error())
	}
	if err := util.ValidateUF(input.Estado); err != nil {
		return fmt.Errorf("%w: %s", ErrValidation, err.Error())
	}
	return nil
}
