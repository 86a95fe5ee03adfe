package request

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound = errors.New("requisição não encontrada")
	// ErrValidation cobre entradas inválidas detectadas antes de
	// qualquer escrita.
	ErrValidation = errors.New("dados inválidos")
	// ErrInvalidTransition indica tentativa de mudança de estado fora
	// das transições permitidas.
	ErrInvalidTransition = errors.New("transição de estado não permitida")
	// ErrForbidden indica chamador sem permissão para a operação.
	ErrForbidden = errors.New("sem acesso")
)

// Status de aprovação da requisição.
const (
	StatusPendente  = "pendente"
	StatusAprovado  = "aprovado"
	StatusRejeitado = "rejeitado"
)

// Status de execução, válido apenas quando a requisição foi aprovada.
const (
	ExecucaoEmAndamento  = "em_andamento"
	ExecucaoConcluido    = "concluido"
	ExecucaoNaoRealizado = "nao_realizado"
	ExecucaoParalisado   = "paralisado"
)

// Tipos de serviço aceitos.
const (
	TipoReparo  = "reparo"
	TipoReforma = "reforma"
	TipoPintura = "pintura"
	TipoLimpeza = "limpeza"
	TipoObra    = "obra"
	TipoOutro   = "outro"
)

// Filtros de listagem.
const (
	FiltroPendente   = "pendente"
	FiltroAprovado   = "aprovado"
	FiltroFinalizado = "finalizado"
	FiltroRejeitado  = "rejeitado"
	FiltroTodos      = "todos"
)

var validServiceTypes = map[string]struct{}{
	TipoReparo:  {},
	TipoReforma: {},
	TipoPintura: {},
	TipoLimpeza: {},
	TipoObra:    {},
	TipoOutro:   {},
}

var validFilters = map[string]struct{}{
	FiltroPendente:   {},
	FiltroAprovado:   {},
	FiltroFinalizado: {},
	FiltroRejeitado:  {},
	FiltroTodos:      {},
}

// finalizedExecutions agrupa os status de execução encerrados.
var finalizedExecutions = []string{ExecucaoConcluido, ExecucaoNaoRealizado, ExecucaoParalisado}

// Request representa uma requisição de serviço sobre um imóvel.
type Request struct {
	ID                 uuid.UUID  `json:"id"`
	PropertyID         uuid.UUID  `json:"property_id"`
	RequesterID        uuid.UUID  `json:"requester_id"`
	Title              string     `json:"title"`
	Description        string     `json:"description"`
	ServiceType        string     `json:"service_type"`
	Valor              *float64   `json:"valor,omitempty"`
	DocumentoURL       *string    `json:"documento_url,omitempty"`
	Photos             []string   `json:"photos"`
	Status             string     `json:"status"`
	StatusExecucao     *string    `json:"status_execucao,omitempty"`
	ObservacaoExecucao *string    `json:"observacao_execucao,omitempty"`
	ApprovedBy         *uuid.UUID `json:"approved_by,omitempty"`
	ApprovedAt         *time.Time `json:"approved_at,omitempty"`
	RejectionReason    *string    `json:"rejection_reason,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
	PropertyAddress    string     `json:"property_address,omitempty"`
	RequesterName      string     `json:"requester_name,omitempty"`
}

// Situacao condensa os dois campos de estado em um único valor,
// para que as regras de transição fiquem centralizadas e combinações
// ilegais não circulem pelo código.
type Situacao struct {
	Status   string
	Execucao string // vazio quando Status != aprovado
}

// SituacaoOf extrai a situação corrente de uma requisição.
func SituacaoOf(r *Request) Situacao {
	s := Situacao{Status: r.Status}
	if r.StatusExecucao != nil {
		s.Execucao = *r.StatusExecucao
	}
	return s
}

// Valida verifica a coerência interna da situação: execução só existe
// em requisições aprovadas.
func (s Situacao) Valida() bool {
	switch s.Status {
	case StatusPendente, StatusRejeitado:
		return s.Execucao == ""
	case StatusAprovado:
		switch s.Execucao {
		case ExecucaoEmAndamento, ExecucaoConcluido, ExecucaoNaoRealizado, ExecucaoParalisado:
			return true
		}
		return false
	}
	return false
}

// Terminal indica se nenhuma transição adicional é permitida.
// Rejeitado e todos os status de execução encerrados são terminais;
// a volta de nao_realizado/paralisado para em_andamento não existe.
func (s Situacao) Terminal() bool {
	if s.Status == StatusRejeitado {
		return true
	}
	if s.Status == StatusAprovado {
		return s.Execucao != ExecucaoEmAndamento
	}
	return false
}

// PodeModerar indica se a situação aceita aprovação ou rejeição.
func (s Situacao) PodeModerar() bool {
	return s.Status == StatusPendente
}

// PodeAtualizarExecucao indica se a execução pode mudar para o alvo.
func (s Situacao) PodeAtualizarExecucao(alvo string) bool {
	if s.Status != StatusAprovado || s.Execucao != ExecucaoEmAndamento {
		return false
	}
	switch alvo {
	case ExecucaoConcluido, ExecucaoNaoRealizado, ExecucaoParalisado:
		return true
	}
	return false
}

// ExigeObservacao indica se o status de execução alvo requer
// justificativa textual.
func ExigeObservacao(execucao string) bool {
	return execucao == ExecucaoNaoRealizado || execucao == ExecucaoParalisado
}

// NormalizeServiceType padroniza o tipo de serviço.
func NormalizeServiceType(t string) string {
	t = strings.ToLower(strings.TrimSpace(t))
	if t == "" {
		return TipoOutro
	}
	return t
}

// IsValidServiceType indica se o tipo é aceito.
func IsValidServiceType(t string) bool {
	_, ok := validServiceTypes[t]
	return ok
}

// NormalizeFilter padroniza o filtro de listagem.
func NormalizeFilter(f string) string {
	f = strings.ToLower(strings.TrimSpace(f))
	if f == "" {
		return FiltroPendente
	}
	return f
}

// IsValidFilter indica se o filtro é aceito.
func IsValidFilter(f string) bool {
	_, ok := validFilters[f]
	return ok
}

// CreateInput encapsula os campos de abertura de requisição.
type CreateInput struct {
	PropertyID   uuid.UUID
	RequesterID  uuid.UUID
	Title        string
	Description  string
	ServiceType  string
	Valor        *float64
	DocumentoURL *string
	Photos       []string
}

// ListFilter parametriza a listagem.
type ListFilter struct {
	Filter      string
	RequesterID *uuid.UUID // escopo por solicitante (prefeito)
	PropertyID  *uuid.UUID
	Limit       int
	Offset      int
}

// CategoryCounts agrega os contadores de aba relativos às marcas
// d'água do usuário.
type CategoryCounts struct {
	Pendente   int64 `json:"pendente"`
	Aprovado   int64 `json:"aprovado"`
	Rejeitado  int64 `json:"rejeitado"`
	Finalizado int64 `json:"finalizado"`
}
