package access

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/gestaopredial/patrimonio/internal/mailer"
	"github.com/gestaopredial/patrimonio/internal/profile"
	"github.com/gestaopredial/patrimonio/internal/util"
)

// IntakeRepository descreve o que o serviço precisa do banco.
type IntakeRepository interface {
	Create(ctx context.Context, input CreateInput) (*AccessRequest, error)
	List(ctx context.Context, onlyPending bool) ([]AccessRequest, error)
	Resolve(ctx context.Context, id, resolverID uuid.UUID, status string, when time.Time) (*AccessRequest, error)
	GetByID(ctx context.Context, id uuid.UUID) (*AccessRequest, error)
}

// Service concentra as regras dos pedidos públicos de acesso.
type Service struct {
	repo    IntakeRepository
	mail    mailer.Mailer
	adminTo string
	log     zerolog.Logger
}

// NewService cria o serviço. mail pode ser nil (envio desligado).
func NewService(repo IntakeRepository, mail mailer.Mailer, adminTo string, log zerolog.Logger) *Service {
	return &Service{repo: repo, mail: mail, adminTo: adminTo, log: log}
}

// Submit grava o pedido e dispara o aviso por e-mail em melhor-esforço:
// a linha já está salva, falha de envio só gera warning.
func (s *Service) Submit(ctx context.Context, input CreateInput) (*AccessRequest, error) {
	input.Name = strings.TrimSpace(input.Name)
	input.Phone = strings.TrimSpace(input.Phone)
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))
	input.Type = strings.ToLower(strings.TrimSpace(input.Type))

	if input.Name == "" {
		return nil, errValidation("nome obrigatório")
	}
	if err := util.ValidateEmail(input.Email); err != nil {
		return nil, errValidation(err.Error())
	}
	if input.Type == "" {
		input.Type = "prefeito"
	}

	req, err := s.repo.Create(ctx, input)
	if err != nil {
		return nil, err
	}

	if s.mail != nil && s.adminTo != "" {
		msg := mailer.Message{
			To:      s.adminTo,
			Subject: "Novo pedido de acesso: " + req.Name,
			Body: fmt.Sprintf("Nome: %s\nE-mail: %s\nTelefone: %s\nPerfil: %s",
				req.Name, req.Email, req.Phone, req.Type),
		}
		if err := s.mail.Send(ctx, msg); err != nil {
			s.log.Warn().Err(err).Str("email", req.Email).Msg("access: aviso por e-mail falhou")
		}
	}
	return req, nil
}

// List devolve os pedidos para triagem. Restrito a admin.
func (s *Service) List(ctx context.Context, caller profile.Caller, onlyPending bool) ([]AccessRequest, error) {
	if !caller.IsAdmin() {
		return nil, ErrForbidden
	}
	return s.repo.List(ctx, onlyPending)
}

// Resolve aprova ou nega um pedido pendente. Restrito a admin.
func (s *Service) Resolve(ctx context.Context, caller profile.Caller, id uuid.UUID, approve bool) (*AccessRequest, error) {
	if !caller.IsAdmin() {
		return nil, ErrForbidden
	}
	status := StatusDenied
	if approve {
		status = StatusApproved
	}
	req, err := s.repo.Resolve(ctx, id, caller.ID, status, util.Now())
	if err == nil {
		return req, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	if _, getErr := s.repo.GetByID(ctx, id); getErr != nil {
		return nil, getErr
	}
	return nil, ErrResolved
}

func errValidation(msg string) error {
	return fmt.Errorf("%w: %s", ErrValidation, msg)
}
