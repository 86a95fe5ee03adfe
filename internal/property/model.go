package property

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound   = errors.New("imóvel não encontrado")
	ErrValidation = errors.New("dados inválidos")
	ErrForbidden  = errors.New("sem acesso")
)

// Property representa um imóvel público do catálogo.
type Property struct {
	ID           uuid.UUID `json:"id"`
	Utilizacao   string    `json:"utilizacao"`
	Situacao     string    `json:"situacao"`
	NomeCompleto string    `json:"nome_completo"`
	Endereco     string    `json:"endereco"`
	Bairro       string    `json:"bairro"`
	Cidade       string    `json:"cidade"`
	Estado       string    `json:"estado"`
	Regiao       string    `json:"regiao"`
	Proprietario string    `json:"proprietario"`
	Prefeito     string    `json:"prefeito"`
	ImageURL     *string   `json:"image_url,omitempty"`
	CriadoEm     time.Time `json:"criado_em"`
}

// HistoryEntry é um evento do histórico de manutenção do imóvel,
// derivado das requisições de serviço aprovadas ou encerradas.
type HistoryEntry struct {
	RequestID   uuid.UUID  `json:"request_id"`
	Title       string     `json:"title"`
	ServiceType string     `json:"service_type"`
	Status      string     `json:"status"`
	Execucao    *string    `json:"status_execucao,omitempty"`
	Valor       *float64   `json:"valor,omitempty"`
	ApprovedAt  *time.Time `json:"approved_at,omitempty"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// VisitEntry resume uma visita registrada no imóvel.
type VisitEntry struct {
	VisitID      uuid.UUID `json:"visit_id"`
	PrefeitoNome string    `json:"prefeito_nome"`
	Date         time.Time `json:"date"`
	Type         string    `json:"type"`
	PhotoCount   int       `json:"photo_count"`
}

// Detail agrega o imóvel ao seu histórico.
type Detail struct {
	Property Property       `json:"property"`
	History  []HistoryEntry `json:"history"`
	Visits   []VisitEntry   `json:"visits"`
}

// ListFilter parametriza a listagem do catálogo.
type ListFilter struct {
	States []string // vazio = sem restrição (admin)
	Query  string   // busca textual em nome/endereço/bairro/cidade
	Limit  int
	Offset int
}

// UpsertInput encapsula os campos editáveis de um imóvel.
type UpsertInput struct {
	Utilizacao   string
	Situacao     string
	NomeCompleto string
	Endereco     string
	Bairro       string
	Cidade       string
	Estado       string
	Regiao       string
	Proprietario string
	Prefeito     string
	ImageURL     *string
}
