package visit

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound   = errors.New("visita não encontrada")
	ErrValidation = errors.New("dados inválidos")
)

// Tipos de visita.
const (
	TipoSemIntercorrencia     = "sem_intercorrencia"
	TipoComSolicitacaoServico = "com_solicitacao_servico"
)

// Visit registra uma ida do prefeito a um imóvel, com ou sem abertura
// de requisição de serviço acoplada.
type Visit struct {
	ID               uuid.UUID  `json:"id"`
	PropertyID       uuid.UUID  `json:"property_id"`
	PrefeitoID       uuid.UUID  `json:"prefeito_id"`
	Date             time.Time  `json:"date"`
	Type             string     `json:"type"`
	ServiceRequestID *uuid.UUID `json:"service_request_id,omitempty"`
	Photos           []string   `json:"photos"`
	CreatedAt        time.Time  `json:"created_at"`
	PropertyAddress  string     `json:"property_address,omitempty"`
	PrefeitoNome     string     `json:"prefeito_nome,omitempty"`
}

// RecordInput reúne os dados de uma visita e, quando houver, da
// requisição de serviço aberta junto.
type RecordInput struct {
	PropertyID uuid.UUID
	Date       time.Time
	Type       string

	// Campos da requisição acoplada, ignorados em sem_intercorrencia.
	Title       string
	Description string
	ServiceType string
	Valor       *float64
}

// insertInput é o registro pronto para persistir.
type insertInput struct {
	PropertyID       uuid.UUID
	PrefeitoID       uuid.UUID
	Date             time.Time
	Type             string
	ServiceRequestID *uuid.UUID
	Photos           []string
}
