package request

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/gestaopredial/patrimonio/internal/profile"
	"github.com/gestaopredial/patrimonio/internal/storage"
	"github.com/gestaopredial/patrimonio/internal/util"
)

// LifecycleRepository descreve o que o serviço precisa do banco.
type LifecycleRepository interface {
	Create(ctx context.Context, input CreateInput) (*Request, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Request, error)
	List(ctx context.Context, filter ListFilter) ([]Request, error)
	Approve(ctx context.Context, id, approverID uuid.UUID, when time.Time) (*Request, error)
	Reject(ctx context.Context, id, approverID uuid.UUID, reason *string, when time.Time) (*Request, error)
	UpdateExecution(ctx context.Context, id, requesterID uuid.UUID, execucao string, observacao *string, when time.Time) (*Request, error)
	CountPendingSince(ctx context.Context, since time.Time) (int64, error)
	CountFinalizedSince(ctx context.Context, since time.Time) (int64, error)
	CountApprovedInProgressSince(ctx context.Context, requesterID uuid.UUID, since time.Time) (int64, error)
	CountRejectedSince(ctx context.Context, requesterID uuid.UUID, since time.Time) (int64, error)
}

// WatermarkStore guarda, por usuário e categoria, o instante da última
// visualização. Ausência de marca cai na janela padrão do serviço.
type WatermarkStore interface {
	LastSeen(ctx context.Context, userID uuid.UUID, category string) (time.Time, bool, error)
	MarkSeen(ctx context.Context, userID uuid.UUID, category string, when time.Time) error
}

// Categorias de contagem expostas nas abas do app.
const (
	CategoriaPendente   = "pendente"
	CategoriaAprovado   = "aprovado"
	CategoriaRejeitado  = "rejeitado"
	CategoriaFinalizado = "finalizado"
)

var validCategories = map[string]struct{}{
	CategoriaPendente:   {},
	CategoriaAprovado:   {},
	CategoriaRejeitado:  {},
	CategoriaFinalizado: {},
}

// Attachments agrupa os arquivos enviados junto com a abertura.
type Attachments struct {
	Fotos     []storage.Evidence
	Documento *storage.Evidence
}

// Service concentra as regras do ciclo de vida das requisições.
type Service struct {
	repo     LifecycleRepository
	uploader storage.Uploader
	marks    WatermarkStore
	lookback time.Duration
	log      zerolog.Logger
}

// NewService cria o serviço de requisições.
func NewService(repo LifecycleRepository, uploader storage.Uploader, marks WatermarkStore, lookback time.Duration, log zerolog.Logger) *Service {
	if lookback <= 0 {
		lookback = 7 * 24 * time.Hour
	}
	return &Service{repo: repo, uploader: uploader, marks: marks, lookback: lookback, log: log}
}

// Create valida e insere uma requisição pendente aberta pelo chamador.
// Anexos sobem antes da escrita em modo melhor-esforço: falha de
// upload vira warning no log e a inserção segue com o que deu certo.
func (s *Service) Create(ctx context.Context, caller profile.Caller, input CreateInput, att Attachments) (*Request, error) {
	input.Title = strings.TrimSpace(input.Title)
	input.Description = strings.TrimSpace(input.Description)
	if input.Title == "" {
		return nil, errValidation("título obrigatório")
	}
	if input.Description == "" {
		return nil, errValidation("descrição obrigatória")
	}
	if input.PropertyID == uuid.Nil {
		return nil, errValidation("imóvel obrigatório")
	}
	input.ServiceType = NormalizeServiceType(input.ServiceType)
	if !IsValidServiceType(input.ServiceType) {
		return nil, errValidation("tipo de serviço inválido")
	}
	if input.Valor != nil && *input.Valor < 0 {
		return nil, errValidation("valor não pode ser negativo")
	}
	input.RequesterID = caller.ID

	if len(att.Fotos) > 0 {
		input.Photos = storage.UploadAll(ctx, s.uploader, s.log, "requisicoes", caller.ID, att.Fotos)
	}
	if att.Documento != nil && len(att.Documento.Body) > 0 {
		urls := storage.UploadAll(ctx, s.uploader, s.log, "requisicoes/documentos", caller.ID, []storage.Evidence{*att.Documento})
		if len(urls) > 0 {
			input.DocumentoURL = &urls[0]
		}
	}

	return s.repo.Create(ctx, input)
}

// List devolve as requisições da aba pedida. Prefeito sempre enxerga
// apenas as próprias, independentemente do filtro.
func (s *Service) List(ctx context.Context, caller profile.Caller, filter ListFilter) ([]Request, error) {
	filter.Filter = NormalizeFilter(filter.Filter)
	if !IsValidFilter(filter.Filter) {
		return nil, errValidation("filtro inválido")
	}
	if caller.Role == profile.RolePrefeito {
		id := caller.ID
		filter.RequesterID = &id
	}
	return s.repo.List(ctx, filter)
}

// Get busca uma requisição. Para o prefeito, requisição de terceiro é
// indistinguível de inexistente.
func (s *Service) Get(ctx context.Context, caller profile.Caller, id uuid.UUID) (*Request, error) {
	req, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if caller.Role == profile.RolePrefeito && req.RequesterID != caller.ID {
		return nil, ErrNotFound
	}
	if sit := SituacaoOf(req); !sit.Valida() {
		s.log.Warn().Str("request_id", req.ID.String()).
			Str("status", sit.Status).Str("execucao", sit.Execucao).
			Msg("situação incoerente no banco")
	}
	return req, nil
}

// Approve move pendente→aprovado/em_andamento de forma condicional.
// Perder a corrida para outro moderador resulta em ErrInvalidTransition
// sem nenhuma escrita.
func (s *Service) Approve(ctx context.Context, caller profile.Caller, id uuid.UUID) (*Request, error) {
	if !caller.IsModerator() {
		return nil, ErrForbidden
	}
	req, err := s.repo.Approve(ctx, id, caller.ID, util.Now())
	if err != nil {
		return nil, s.resolveStateError(ctx, id, err)
	}
	return req, nil
}

// Reject move pendente→rejeitado sob a mesma guarda de Approve.
func (s *Service) Reject(ctx context.Context, caller profile.Caller, id uuid.UUID, reason string) (*Request, error) {
	if !caller.IsModerator() {
		return nil, ErrForbidden
	}
	var reasonPtr *string
	if trimmed := strings.TrimSpace(reason); trimmed != "" {
		reasonPtr = &trimmed
	}
	req, err := s.repo.Reject(ctx, id, caller.ID, reasonPtr, util.Now())
	if err != nil {
		return nil, s.resolveStateError(ctx, id, err)
	}
	return req, nil
}

// UpdateExecution encerra a execução de uma requisição aprovada.
// Restrito ao solicitante original; nao_realizado e paralisado exigem
// justificativa antes de qualquer escrita.
func (s *Service) UpdateExecution(ctx context.Context, caller profile.Caller, id uuid.UUID, execucao, observacao string) (*Request, error) {
	execucao = strings.ToLower(strings.TrimSpace(execucao))
	switch execucao {
	case ExecucaoConcluido, ExecucaoNaoRealizado, ExecucaoParalisado:
	default:
		return nil, errValidation("status de execução inválido")
	}

	observacao = strings.TrimSpace(observacao)
	if ExigeObservacao(execucao) && observacao == "" {
		return nil, errValidation("observação obrigatória para " + execucao)
	}
	var obsPtr *string
	if observacao != "" {
		obsPtr = &observacao
	}

	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.RequesterID != caller.ID {
		return nil, ErrForbidden
	}
	sit := SituacaoOf(current)
	if sit.Terminal() {
		return nil, fmt.Errorf("%w: requisição já encerrada", ErrInvalidTransition)
	}
	if !sit.PodeAtualizarExecucao(execucao) {
		return nil, ErrInvalidTransition
	}

	req, err := s.repo.UpdateExecution(ctx, id, caller.ID, execucao, obsPtr, util.Now())
	if err != nil {
		// A guarda condicional do update ainda vale: zero linhas aqui
		// significa que o estado mudou entre a leitura e a escrita.
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidTransition
		}
		return nil, err
	}
	return req, nil
}

// CategoryCounts calcula os selos de aba relativos às marcas d'água do
// chamador. Só consultas de contagem; nada é materializado.
func (s *Service) CategoryCounts(ctx context.Context, caller profile.Caller) (*CategoryCounts, error) {
	counts := &CategoryCounts{}

	if caller.Role == profile.RolePrefeito {
		sinceAprovado, err := s.watermark(ctx, caller.ID, CategoriaAprovado)
		if err != nil {
			return nil, err
		}
		if counts.Aprovado, err = s.repo.CountApprovedInProgressSince(ctx, caller.ID, sinceAprovado); err != nil {
			return nil, err
		}
		sinceRejeitado, err := s.watermark(ctx, caller.ID, CategoriaRejeitado)
		if err != nil {
			return nil, err
		}
		if counts.Rejeitado, err = s.repo.CountRejectedSince(ctx, caller.ID, sinceRejeitado); err != nil {
			return nil, err
		}
		return counts, nil
	}

	sincePendente, err := s.watermark(ctx, caller.ID, CategoriaPendente)
	if err != nil {
		return nil, err
	}
	if counts.Pendente, err = s.repo.CountPendingSince(ctx, sincePendente); err != nil {
		return nil, err
	}
	sinceFinalizado, err := s.watermark(ctx, caller.ID, CategoriaFinalizado)
	if err != nil {
		return nil, err
	}
	if counts.Finalizado, err = s.repo.CountFinalizedSince(ctx, sinceFinalizado); err != nil {
		return nil, err
	}
	return counts, nil
}

// MarkSeen zera o selo de uma categoria movendo a marca d'água do
// chamador para agora. Só as contagens do próprio usuário mudam.
func (s *Service) MarkSeen(ctx context.Context, caller profile.Caller, category string) error {
	category = strings.ToLower(strings.TrimSpace(category))
	if _, ok := validCategories[category]; !ok {
		return errValidation("categoria inválida")
	}
	return s.marks.MarkSeen(ctx, caller.ID, category, util.Now())
}

func (s *Service) watermark(ctx context.Context, userID uuid.UUID, category string) (time.Time, error) {
	seen, ok, err := s.marks.LastSeen(ctx, userID, category)
	if err != nil {
		return time.Time{}, err
	}
	if !ok {
		return util.Now().Add(-s.lookback), nil
	}
	return seen, nil
}

// resolveStateError traduz o zero-linhas do update condicional:
// requisição existente cuja situação não aceita mais moderação vira
// ErrInvalidTransition.
func (s *Service) resolveStateError(ctx context.Context, id uuid.UUID, err error) error {
	if !errors.Is(err, ErrNotFound) {
		return err
	}
	current, getErr := s.repo.GetByID(ctx, id)
	if getErr != nil {
		return getErr
	}
	if SituacaoOf(current).PodeModerar() {
		// A leitura ainda vê pendente; a decisão concorrente entrou
		// entre o update e esta consulta.
		s.log.Warn().Str("request_id", id.String()).Msg("moderação perdeu corrida com leitura pendente")
	}
	return ErrInvalidTransition
}

func errValidation(msg string) error {
	return fmt.Errorf("%w: %s", ErrValidation, msg)
}
