package access

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound   = errors.New("pedido de acesso não encontrado")
	ErrValidation = errors.New("dados inválidos")
	ErrForbidden  = errors.New("sem acesso")
	ErrResolved   = errors.New("pedido já resolvido")
)

// Status dos pedidos de acesso.
const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusDenied   = "denied"
)

// AccessRequest é um pedido público de credenciais para o aplicativo.
type AccessRequest struct {
	ID         uuid.UUID  `json:"id"`
	Name       string     `json:"name"`
	Email      string     `json:"email"`
	Phone      string     `json:"phone"`
	Type       string     `json:"type"`
	Status     string     `json:"status"`
	ResolvedBy *uuid.UUID `json:"resolved_by,omitempty"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// CreateInput encapsula o formulário público.
type CreateInput struct {
	Name  string
	Email string
	Phone string
	Type  string
}
