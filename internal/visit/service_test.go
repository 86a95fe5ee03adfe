package visit

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/gestaopredial/patrimonio/internal/profile"
	"github.com/gestaopredial/patrimonio/internal/request"
	"github.com/gestaopredial/patrimonio/internal/storage"
)

type stubVisitRepo struct {
	visits   []Visit
	inserted []insertInput
}

func (s *stubVisitRepo) InsertTx(ctx context.Context, tx pgx.Tx, input insertInput) (*Visit, error) {
	s.inserted = append(s.inserted, input)
	v := Visit{
		ID:               uuid.New(),
		PropertyID:       input.PropertyID,
		PrefeitoID:       input.PrefeitoID,
		Date:             input.Date,
		Type:             input.Type,
		ServiceRequestID: input.ServiceRequestID,
		Photos:           input.Photos,
	}
	s.visits = append(s.visits, v)
	return &v, nil
}

func (s *stubVisitRepo) GetByID(ctx context.Context, id uuid.UUID) (*Visit, error) {
	for _, v := range s.visits {
		if v.ID == id {
			copied := v
			return &copied, nil
		}
	}
	return nil, ErrNotFound
}

func (s *stubVisitRepo) ListByProperty(ctx context.Context, propertyID uuid.UUID) ([]Visit, error) {
	var out []Visit
	for _, v := range s.visits {
		if v.PropertyID == propertyID {
			out = append(out, v)
		}
	}
	return out, nil
}

func (s *stubVisitRepo) ListByPrefeito(ctx context.Context, prefeitoID uuid.UUID) ([]Visit, error) {
	var out []Visit
	for _, v := range s.visits {
		if v.PrefeitoID == prefeitoID {
			out = append(out, v)
		}
	}
	return out, nil
}

type stubRequestWriter struct {
	created []request.CreateInput
	fail    error
}

func (s *stubRequestWriter) CreateTx(ctx context.Context, tx pgx.Tx, input request.CreateInput) (*request.Request, error) {
	if s.fail != nil {
		return nil, s.fail
	}
	s.created = append(s.created, input)
	return &request.Request{
		ID:          uuid.New(),
		PropertyID:  input.PropertyID,
		RequesterID: input.RequesterID,
		Title:       input.Title,
		Status:      request.StatusPendente,
		Photos:      input.Photos,
	}, nil
}

type okUploader struct{ uploads int }

func (u *okUploader) Upload(ctx context.Context, input storage.UploadInput) (*storage.UploadResult, error) {
	u.uploads++
	return &storage.UploadResult{URL: "https://cdn.example/" + input.Key}, nil
}

type failUploader struct{}

func (failUploader) Upload(ctx context.Context, input storage.UploadInput) (*storage.UploadResult, error) {
	return nil, errors.New("indisponível")
}

// fakeTx passa direto para fn, sem banco; commitada==false indica
// rollback solicitado pela saga.
func fakeTx(committed *bool) TxRunner {
	return func(ctx context.Context, fn func(ctx context.Context, tx pgx.Tx) error) error {
		if err := fn(ctx, nil); err != nil {
			return err
		}
		if committed != nil {
			*committed = true
		}
		return nil
	}
}

func prefeito() profile.Caller {
	return profile.Caller{ID: uuid.New(), Role: profile.RolePrefeito, States: []string{"BA"}}
}

func TestRecordSemIntercorrencia(t *testing.T) {
	repo := &stubVisitRepo{}
	writer := &stubRequestWriter{}
	svc := NewService(repo, writer, &okUploader{}, fakeTx(nil), zerolog.Nop())
	caller := prefeito()

	v, req, err := svc.Record(context.Background(), caller, RecordInput{
		PropertyID: uuid.New(),
		Type:       TipoSemIntercorrencia,
	}, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req != nil {
		t.Fatal("sem_intercorrencia não abre requisição")
	}
	if v.ServiceRequestID != nil {
		t.Fatal("service_request_id deveria ser NULL")
	}
	if v.Date.IsZero() {
		t.Fatal("data deveria ganhar default")
	}
	if len(writer.created) != 0 {
		t.Fatal("nenhuma requisição deveria ser criada")
	}
}

func TestRecordComSolicitacao(t *testing.T) {
	repo := &stubVisitRepo{}
	writer := &stubRequestWriter{}
	up := &okUploader{}
	committed := false
	svc := NewService(repo, writer, up, fakeTx(&committed), zerolog.Nop())
	caller := prefeito()

	v, req, err := svc.Record(context.Background(), caller, RecordInput{
		PropertyID:  uuid.New(),
		Type:        TipoComSolicitacaoServico,
		Title:       "Muro caído",
		Description: "Muro lateral desabou após a chuva",
		ServiceType: "obra",
	}, []storage.Evidence{{Name: "muro.jpg", Body: []byte("x")}}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !committed {
		t.Fatal("transação não confirmada")
	}
	if req == nil || req.Status != request.StatusPendente {
		t.Fatalf("requisição acoplada ausente ou fora de pendente: %+v", req)
	}
	if v.ServiceRequestID == nil || *v.ServiceRequestID != req.ID {
		t.Fatal("visita não referencia a requisição criada")
	}
	// Fotos compartilhadas entre visita e requisição.
	if len(v.Photos) != 1 || len(req.Photos) != 1 || v.Photos[0] != req.Photos[0] {
		t.Fatalf("fotos não compartilhadas: %v vs %v", v.Photos, req.Photos)
	}
}

func TestRecordValidationBeforeWrite(t *testing.T) {
	repo := &stubVisitRepo{}
	writer := &stubRequestWriter{}
	svc := NewService(repo, writer, &okUploader{}, fakeTx(nil), zerolog.Nop())
	caller := prefeito()

	tests := []struct {
		name  string
		input RecordInput
	}{
		{"sem imovel", RecordInput{Type: TipoSemIntercorrencia}},
		{"tipo invalido", RecordInput{PropertyID: uuid.New(), Type: "inspecao"}},
		{"solicitacao sem titulo", RecordInput{PropertyID: uuid.New(), Type: TipoComSolicitacaoServico, Description: "algo"}},
		{"solicitacao sem descricao", RecordInput{PropertyID: uuid.New(), Type: TipoComSolicitacaoServico, Title: "Muro"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, _, err := svc.Record(context.Background(), caller, tc.input, nil, nil); !errors.Is(err, ErrValidation) {
				t.Fatalf("expected ErrValidation got %v", err)
			}
		})
	}
	if len(repo.inserted) != 0 || len(writer.created) != 0 {
		t.Fatal("validação deveria impedir qualquer escrita")
	}
}

func TestRecordRollsBackWhenRequestFails(t *testing.T) {
	repo := &stubVisitRepo{}
	writer := &stubRequestWriter{fail: errors.New("constraint")}
	committed := false
	svc := NewService(repo, writer, &okUploader{}, fakeTx(&committed), zerolog.Nop())
	caller := prefeito()

	_, _, err := svc.Record(context.Background(), caller, RecordInput{
		PropertyID:  uuid.New(),
		Type:        TipoComSolicitacaoServico,
		Title:       "Muro caído",
		Description: "Muro lateral desabou",
	}, nil, nil)
	if err == nil {
		t.Fatal("expected error")
	}
	if committed {
		t.Fatal("transação deveria ter sido desfeita")
	}
	if len(repo.inserted) != 0 {
		t.Fatal("visita órfã inserida apesar da falha na requisição")
	}
}

func TestRecordUploadFailureDoesNotAbort(t *testing.T) {
	repo := &stubVisitRepo{}
	writer := &stubRequestWriter{}
	svc := NewService(repo, writer, failUploader{}, fakeTx(nil), zerolog.Nop())
	caller := prefeito()

	v, _, err := svc.Record(context.Background(), caller, RecordInput{
		PropertyID: uuid.New(),
		Type:       TipoSemIntercorrencia,
	}, []storage.Evidence{{Name: "foto.jpg", Body: []byte("x")}}, nil)
	if err != nil {
		t.Fatalf("falha de upload não pode abortar a visita: %v", err)
	}
	if len(v.Photos) != 0 {
		t.Fatalf("fotos fantasma: %v", v.Photos)
	}
}

func TestGetAndListSelfScoped(t *testing.T) {
	repo := &stubVisitRepo{}
	writer := &stubRequestWriter{}
	svc := NewService(repo, writer, &okUploader{}, fakeTx(nil), zerolog.Nop())
	owner := prefeito()
	other := prefeito()
	propertyID := uuid.New()

	v, _, err := svc.Record(context.Background(), owner, RecordInput{
		PropertyID: propertyID,
		Type:       TipoSemIntercorrencia,
	}, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := svc.Get(context.Background(), other, v.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound got %v", err)
	}

	visits, err := svc.ListByProperty(context.Background(), other, propertyID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(visits) != 0 {
		t.Fatal("prefeito enxergou visita de terceiro")
	}

	gestor := profile.Caller{ID: uuid.New(), Role: profile.RoleGestor}
	visits, err = svc.ListByProperty(context.Background(), gestor, propertyID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(visits) != 1 {
		t.Fatalf("gestor deveria ver 1 visita, viu %d", len(visits))
	}
}
