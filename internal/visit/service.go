package visit

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/gestaopredial/patrimonio/internal/profile"
	"github.com/gestaopredial/patrimonio/internal/request"
	"github.com/gestaopredial/patrimonio/internal/storage"
	"github.com/gestaopredial/patrimonio/internal/util"
)

// VisitRepository descreve o que o serviço precisa do banco.
type VisitRepository interface {
	InsertTx(ctx context.Context, tx pgx.Tx, input insertInput) (*Visit, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Visit, error)
	ListByProperty(ctx context.Context, propertyID uuid.UUID) ([]Visit, error)
	ListByPrefeito(ctx context.Context, prefeitoID uuid.UUID) ([]Visit, error)
}

// RequestWriter insere a requisição acoplada dentro da mesma transação
// da visita.
type RequestWriter interface {
	CreateTx(ctx context.Context, tx pgx.Tx, input request.CreateInput) (*request.Request, error)
}

// TxRunner executa fn dentro de uma transação do banco.
type TxRunner func(ctx context.Context, fn func(ctx context.Context, tx pgx.Tx) error) error

// Service concentra a saga de registro de visitas.
type Service struct {
	repo     VisitRepository
	requests RequestWriter
	uploader storage.Uploader
	runTx    TxRunner
	log      zerolog.Logger
}

// NewService cria o serviço de visitas.
func NewService(repo VisitRepository, requests RequestWriter, uploader storage.Uploader, runTx TxRunner, log zerolog.Logger) *Service {
	return &Service{repo: repo, requests: requests, uploader: uploader, runTx: runTx, log: log}
}

// Record registra uma visita. Fotos e documento sobem antes, em modo
// melhor-esforço. Quando a visita abre uma requisição de serviço, a
// requisição e a visita entram na mesma transação: falha em qualquer
// uma desfaz as duas, nunca fica órfão de nenhum lado.
func (s *Service) Record(ctx context.Context, caller profile.Caller, input RecordInput, fotos []storage.Evidence, documento *storage.Evidence) (*Visit, *request.Request, error) {
	if input.PropertyID == uuid.Nil {
		return nil, nil, errValidation("imóvel obrigatório")
	}
	input.Type = strings.ToLower(strings.TrimSpace(input.Type))
	switch input.Type {
	case TipoSemIntercorrencia, TipoComSolicitacaoServico:
	default:
		return nil, nil, errValidation("tipo de visita inválido")
	}
	if input.Date.IsZero() {
		input.Date = util.Now()
	}

	var reqInput request.CreateInput
	if input.Type == TipoComSolicitacaoServico {
		input.Title = strings.TrimSpace(input.Title)
		input.Description = strings.TrimSpace(input.Description)
		if input.Title == "" {
			return nil, nil, errValidation("título da solicitação obrigatório")
		}
		if input.Description == "" {
			return nil, nil, errValidation("descrição da solicitação obrigatória")
		}
		serviceType := request.NormalizeServiceType(input.ServiceType)
		if !request.IsValidServiceType(serviceType) {
			return nil, nil, errValidation("tipo de serviço inválido")
		}
		reqInput = request.CreateInput{
			PropertyID:  input.PropertyID,
			RequesterID: caller.ID,
			Title:       input.Title,
			Description: input.Description,
			ServiceType: serviceType,
			Valor:       input.Valor,
		}
	}

	photoURLs := storage.UploadAll(ctx, s.uploader, s.log, "visitas", caller.ID, fotos)

	if input.Type == TipoComSolicitacaoServico {
		reqInput.Photos = photoURLs
		if documento != nil && len(documento.Body) > 0 {
			urls := storage.UploadAll(ctx, s.uploader, s.log, "visitas/documentos", caller.ID, []storage.Evidence{*documento})
			if len(urls) > 0 {
				reqInput.DocumentoURL = &urls[0]
			}
		}
	}

	var (
		created    *Visit
		createdReq *request.Request
	)
	err := s.runTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		insert := insertInput{
			PropertyID: input.PropertyID,
			PrefeitoID: caller.ID,
			Date:       input.Date,
			Type:       input.Type,
			Photos:     photoURLs,
		}
		if input.Type == TipoComSolicitacaoServico {
			req, err := s.requests.CreateTx(ctx, tx, reqInput)
			if err != nil {
				return err
			}
			createdReq = req
			insert.ServiceRequestID = &req.ID
		}
		v, err := s.repo.InsertTx(ctx, tx, insert)
		if err != nil {
			return err
		}
		created = v
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return created, createdReq, nil
}

// Get busca uma visita. Prefeito só enxerga as próprias.
func (s *Service) Get(ctx context.Context, caller profile.Caller, id uuid.UUID) (*Visit, error) {
	v, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if caller.Role == profile.RolePrefeito && v.PrefeitoID != caller.ID {
		return nil, ErrNotFound
	}
	return v, nil
}

// ListByProperty devolve as visitas de um imóvel. Prefeito recebe só
// as que ele mesmo registrou.
func (s *Service) ListByProperty(ctx context.Context, caller profile.Caller, propertyID uuid.UUID) ([]Visit, error) {
	visits, err := s.repo.ListByProperty(ctx, propertyID)
	if err != nil {
		return nil, err
	}
	if caller.Role != profile.RolePrefeito {
		return visits, nil
	}
	own := make([]Visit, 0, len(visits))
	for _, v := range visits {
		if v.PrefeitoID == caller.ID {
			own = append(own, v)
		}
	}
	return own, nil
}

// ListMine devolve as visitas registradas pelo chamador.
func (s *Service) ListMine(ctx context.Context, caller profile.Caller) ([]Visit, error) {
	return s.repo.ListByPrefeito(ctx, caller.ID)
}

func errValidation(msg string) error {
	return fmt.Errorf("%w: %s", ErrValidation, msg)
}
