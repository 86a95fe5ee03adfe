package request

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/gestaopredial/patrimonio/internal/profile"
	"github.com/gestaopredial/patrimonio/internal/storage"
)

type stubLifecycleRepo struct {
	requests map[uuid.UUID]*Request
	created  []CreateInput

	pendingCount   int64
	finalizedCount int64
	approvedCount  int64
	rejectedCount  int64
	lastSince      map[string]time.Time
}

func newStubRepo() *stubLifecycleRepo {
	return &stubLifecycleRepo{
		requests:  map[uuid.UUID]*Request{},
		lastSince: map[string]time.Time{},
	}
}

func (s *stubLifecycleRepo) put(req *Request) *Request {
	if req.ID == uuid.Nil {
		req.ID = uuid.New()
	}
	s.requests[req.ID] = req
	return req
}

func (s *stubLifecycleRepo) Create(ctx context.Context, input CreateInput) (*Request, error) {
	s.created = append(s.created, input)
	return s.put(&Request{
		PropertyID:   input.PropertyID,
		RequesterID:  input.RequesterID,
		Title:        input.Title,
		Description:  input.Description,
		ServiceType:  input.ServiceType,
		Valor:        input.Valor,
		DocumentoURL: input.DocumentoURL,
		Photos:       input.Photos,
		Status:       StatusPendente,
	}), nil
}

func (s *stubLifecycleRepo) GetByID(ctx context.Context, id uuid.UUID) (*Request, error) {
	req, ok := s.requests[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *req
	return &copied, nil
}

func (s *stubLifecycleRepo) List(ctx context.Context, filter ListFilter) ([]Request, error) {
	var out []Request
	for _, req := range s.requests {
		if filter.RequesterID != nil && req.RequesterID != *filter.RequesterID {
			continue
		}
		out = append(out, *req)
	}
	return out, nil
}

func (s *stubLifecycleRepo) Approve(ctx context.Context, id, approverID uuid.UUID, when time.Time) (*Request, error) {
	req, ok := s.requests[id]
	if !ok || req.Status != StatusPendente {
		return nil, ErrNotFound
	}
	exec := ExecucaoEmAndamento
	req.Status = StatusAprovado
	req.StatusExecucao = &exec
	req.ApprovedBy = &approverID
	req.ApprovedAt = &when
	req.UpdatedAt = when
	copied := *req
	return &copied, nil
}

func (s *stubLifecycleRepo) Reject(ctx context.Context, id, approverID uuid.UUID, reason *string, when time.Time) (*Request, error) {
	req, ok := s.requests[id]
	if !ok || req.Status != StatusPendente {
		return nil, ErrNotFound
	}
	req.Status = StatusRejeitado
	req.ApprovedBy = &approverID
	req.ApprovedAt = &when
	req.RejectionReason = reason
	req.UpdatedAt = when
	copied := *req
	return &copied, nil
}

func (s *stubLifecycleRepo) UpdateExecution(ctx context.Context, id, requesterID uuid.UUID, execucao string, observacao *string, when time.Time) (*Request, error) {
	req, ok := s.requests[id]
	if !ok || req.RequesterID != requesterID || req.Status != StatusAprovado ||
		req.StatusExecucao == nil || *req.StatusExecucao != ExecucaoEmAndamento {
		return nil, ErrNotFound
	}
	req.StatusExecucao = &execucao
	if observacao != nil {
		req.ObservacaoExecucao = observacao
	}
	req.UpdatedAt = when
	copied := *req
	return &copied, nil
}

func (s *stubLifecycleRepo) CountPendingSince(ctx context.Context, since time.Time) (int64, error) {
	s.lastSince[CategoriaPendente] = since
	return s.pendingCount, nil
}

func (s *stubLifecycleRepo) CountFinalizedSince(ctx context.Context, since time.Time) (int64, error) {
	s.lastSince[CategoriaFinalizado] = since
	return s.finalizedCount, nil
}

func (s *stubLifecycleRepo) CountApprovedInProgressSince(ctx context.Context, requesterID uuid.UUID, since time.Time) (int64, error) {
	s.lastSince[CategoriaAprovado] = since
	return s.approvedCount, nil
}

func (s *stubLifecycleRepo) CountRejectedSince(ctx context.Context, requesterID uuid.UUID, since time.Time) (int64, error) {
	s.lastSince[CategoriaRejeitado] = since
	return s.rejectedCount, nil
}

type stubMarks struct {
	seen map[string]time.Time
}

func newStubMarks() *stubMarks {
	return &stubMarks{seen: map[string]time.Time{}}
}

func (s *stubMarks) key(userID uuid.UUID, category string) string {
	return userID.String() + ":" + category
}

func (s *stubMarks) LastSeen(ctx context.Context, userID uuid.UUID, category string) (time.Time, bool, error) {
	when, ok := s.seen[s.key(userID, category)]
	return when, ok, nil
}

func (s *stubMarks) MarkSeen(ctx context.Context, userID uuid.UUID, category string, when time.Time) error {
	s.seen[s.key(userID, category)] = when
	return nil
}

// flakyUploader falha nos uploads cujo nome de arquivo está em fail.
type flakyUploader struct {
	fail    map[string]bool
	uploads int
}

func (f *flakyUploader) Upload(ctx context.Context, input storage.UploadInput) (*storage.UploadResult, error) {
	f.uploads++
	for name, shouldFail := range f.fail {
		if shouldFail && strings.HasSuffix(input.Key, name) {
			return nil, errors.New("indisponível")
		}
	}
	return &storage.UploadResult{URL: "https://cdn.example/" + input.Key}, nil
}

func newTestService(repo *stubLifecycleRepo, marks *stubMarks, up storage.Uploader) *Service {
	if up == nil {
		up = &flakyUploader{}
	}
	return NewService(repo, up, marks, 7*24*time.Hour, zerolog.Nop())
}

func moderator() profile.Caller {
	return profile.Caller{ID: uuid.New(), Role: profile.RoleGestor}
}

func prefeito() profile.Caller {
	return profile.Caller{ID: uuid.New(), Role: profile.RolePrefeito, States: []string{"BA"}}
}

func pendingRequest(repo *stubLifecycleRepo, requesterID uuid.UUID) *Request {
	return repo.put(&Request{
		PropertyID:  uuid.New(),
		RequesterID: requesterID,
		Title:       "Telhado",
		Description: "Goteira na sala principal",
		ServiceType: TipoReparo,
		Status:      StatusPendente,
		Photos:      []string{},
	})
}

func approvedRequest(repo *stubLifecycleRepo, requesterID uuid.UUID) *Request {
	exec := ExecucaoEmAndamento
	return repo.put(&Request{
		PropertyID:     uuid.New(),
		RequesterID:    requesterID,
		Title:          "Pintura",
		Description:    "Fachada desbotada",
		ServiceType:    TipoPintura,
		Status:         StatusAprovado,
		StatusExecucao: &exec,
	})
}

func TestCreateValidation(t *testing.T) {
	repo := newStubRepo()
	svc := newTestService(repo, newStubMarks(), nil)
	caller := prefeito()

	tests := []struct {
		name  string
		input CreateInput
	}{
		{"titulo vazio", CreateInput{PropertyID: uuid.New(), Title: "   ", Description: "algo"}},
		{"descricao vazia", CreateInput{PropertyID: uuid.New(), Title: "Telhado", Description: ""}},
		{"sem imovel", CreateInput{Title: "Telhado", Description: "Goteira"}},
		{"tipo invalido", CreateInput{PropertyID: uuid.New(), Title: "Telhado", Description: "Goteira", ServiceType: "demolicao"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.Create(context.Background(), caller, tc.input, Attachments{}); !errors.Is(err, ErrValidation) {
				t.Fatalf("expected ErrValidation got %v", err)
			}
		})
	}
	if len(repo.created) != 0 {
		t.Fatalf("nenhuma escrita esperada, houve %d", len(repo.created))
	}
}

func TestCreateBestEffortUploads(t *testing.T) {
	repo := newStubRepo()
	up := &flakyUploader{fail: map[string]bool{"quebrada.jpg": true}}
	svc := newTestService(repo, newStubMarks(), up)
	caller := prefeito()

	req, err := svc.Create(context.Background(), caller, CreateInput{
		PropertyID:  uuid.New(),
		Title:       "Telhado",
		Description: "Goteira na sala",
		ServiceType: TipoReparo,
	}, Attachments{
		Fotos: []storage.Evidence{
			{Name: "quebrada.jpg", Body: []byte("x")},
			{Name: "ok.jpg", Body: []byte("y")},
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(req.Photos) != 1 {
		t.Fatalf("expected 1 foto got %d", len(req.Photos))
	}
	if req.RequesterID != caller.ID {
		t.Fatal("requester deveria ser o chamador")
	}
	if req.Status != StatusPendente {
		t.Fatalf("expected pendente got %s", req.Status)
	}
}

func TestListPrefeitoSelfScoped(t *testing.T) {
	repo := newStubRepo()
	svc := newTestService(repo, newStubMarks(), nil)
	caller := prefeito()

	pendingRequest(repo, caller.ID)
	pendingRequest(repo, uuid.New())

	out, err := svc.List(context.Background(), caller, ListFilter{Filter: FiltroTodos})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("expected 1 got %d", len(out))
	}
	if out[0].RequesterID != caller.ID {
		t.Fatal("listagem vazou requisição de terceiro")
	}
}

func TestApprove(t *testing.T) {
	repo := newStubRepo()
	svc := newTestService(repo, newStubMarks(), nil)
	mod := moderator()

	req := pendingRequest(repo, uuid.New())

	approved, err := svc.Approve(context.Background(), mod, req.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if approved.Status != StatusAprovado {
		t.Fatalf("expected aprovado got %s", approved.Status)
	}
	if approved.StatusExecucao == nil || *approved.StatusExecucao != ExecucaoEmAndamento {
		t.Fatal("execução deveria nascer em_andamento")
	}
	if approved.ApprovedBy == nil || *approved.ApprovedBy != mod.ID {
		t.Fatal("approved_by deveria registrar o moderador")
	}
}

func TestApproveLostRace(t *testing.T) {
	repo := newStubRepo()
	svc := newTestService(repo, newStubMarks(), nil)
	req := pendingRequest(repo, uuid.New())

	first := moderator()
	second := moderator()

	if _, err := svc.Approve(context.Background(), first, req.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.Reject(context.Background(), second, req.ID, "duplicada"); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition got %v", err)
	}

	// A decisão do primeiro moderador permanece intacta.
	stored := repo.requests[req.ID]
	if stored.Status != StatusAprovado {
		t.Fatalf("perdedor da corrida sobrescreveu: %s", stored.Status)
	}
	if *stored.ApprovedBy != first.ID {
		t.Fatal("approved_by sobrescrito pelo perdedor")
	}
}

func TestApproveForbiddenAndMissing(t *testing.T) {
	repo := newStubRepo()
	svc := newTestService(repo, newStubMarks(), nil)

	if _, err := svc.Approve(context.Background(), prefeito(), uuid.New()); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden got %v", err)
	}
	if _, err := svc.Approve(context.Background(), moderator(), uuid.New()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound got %v", err)
	}
}

func TestRejectBlankReasonIsNull(t *testing.T) {
	repo := newStubRepo()
	svc := newTestService(repo, newStubMarks(), nil)
	req := pendingRequest(repo, uuid.New())

	rejected, err := svc.Reject(context.Background(), moderator(), req.ID, "   ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rejected.RejectionReason != nil {
		t.Fatal("motivo em branco deveria virar NULL")
	}
	if rejected.StatusExecucao != nil {
		t.Fatal("rejeitado não carrega status de execução")
	}
}

func TestUpdateExecutionRequiresObservacao(t *testing.T) {
	repo := newStubRepo()
	svc := newTestService(repo, newStubMarks(), nil)
	caller := prefeito()
	req := approvedRequest(repo, caller.ID)

	for _, alvo := range []string{ExecucaoNaoRealizado, ExecucaoParalisado} {
		if _, err := svc.UpdateExecution(context.Background(), caller, req.ID, alvo, "  "); !errors.Is(err, ErrValidation) {
			t.Fatalf("%s sem observação: expected ErrValidation got %v", alvo, err)
		}
	}

	// Nada foi escrito pelas tentativas inválidas.
	stored := repo.requests[req.ID]
	if *stored.StatusExecucao != ExecucaoEmAndamento {
		t.Fatalf("execução mudou sem validação: %s", *stored.StatusExecucao)
	}
}

func TestUpdateExecutionConcluido(t *testing.T) {
	repo := newStubRepo()
	svc := newTestService(repo, newStubMarks(), nil)
	caller := prefeito()
	req := approvedRequest(repo, caller.ID)

	updated, err := svc.UpdateExecution(context.Background(), caller, req.ID, ExecucaoConcluido, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if *updated.StatusExecucao != ExecucaoConcluido {
		t.Fatalf("expected concluido got %s", *updated.StatusExecucao)
	}

	// Estado encerrado é terminal.
	if _, err := svc.UpdateExecution(context.Background(), caller, req.ID, ExecucaoParalisado, "obra parou"); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition got %v", err)
	}
}

func TestUpdateExecutionOutsideEmAndamento(t *testing.T) {
	repo := newStubRepo()
	svc := newTestService(repo, newStubMarks(), nil)
	caller := prefeito()

	// Ainda pendente: não há execução a encerrar.
	pendente := pendingRequest(repo, caller.ID)
	if _, err := svc.UpdateExecution(context.Background(), caller, pendente.ID, ExecucaoConcluido, ""); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("pendente: expected ErrInvalidTransition got %v", err)
	}
	if repo.requests[pendente.ID].StatusExecucao != nil {
		t.Fatal("pendente ganhou status de execução")
	}

	// Rejeitada é terminal independente do alvo.
	rejeitada := pendingRequest(repo, caller.ID)
	if _, err := svc.Reject(context.Background(), moderator(), rejeitada.ID, "fora de escopo"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.UpdateExecution(context.Background(), caller, rejeitada.ID, ExecucaoParalisado, "obra parou"); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("rejeitada: expected ErrInvalidTransition got %v", err)
	}
	if repo.requests[rejeitada.ID].Status != StatusRejeitado {
		t.Fatal("rejeição sobrescrita pela tentativa de execução")
	}
}

func TestUpdateExecutionWrongOwner(t *testing.T) {
	repo := newStubRepo()
	svc := newTestService(repo, newStubMarks(), nil)
	req := approvedRequest(repo, uuid.New())

	other := prefeito()
	if _, err := svc.UpdateExecution(context.Background(), other, req.ID, ExecucaoConcluido, ""); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden got %v", err)
	}
}

func TestCategoryCountsByRole(t *testing.T) {
	repo := newStubRepo()
	repo.pendingCount = 3
	repo.finalizedCount = 2
	repo.approvedCount = 4
	repo.rejectedCount = 1
	marks := newStubMarks()
	svc := newTestService(repo, marks, nil)

	counts, err := svc.CategoryCounts(context.Background(), moderator())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if counts.Pendente != 3 || counts.Finalizado != 2 || counts.Aprovado != 0 || counts.Rejeitado != 0 {
		t.Fatalf("contagens de moderador erradas: %+v", counts)
	}

	counts, err = svc.CategoryCounts(context.Background(), prefeito())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if counts.Aprovado != 4 || counts.Rejeitado != 1 || counts.Pendente != 0 || counts.Finalizado != 0 {
		t.Fatalf("contagens de prefeito erradas: %+v", counts)
	}
}

func TestCategoryCountsIdempotent(t *testing.T) {
	repo := newStubRepo()
	repo.pendingCount = 3
	repo.finalizedCount = 2
	repo.approvedCount = 4
	repo.rejectedCount = 1
	marks := newStubMarks()
	svc := newTestService(repo, marks, nil)

	for _, caller := range []profile.Caller{moderator(), prefeito()} {
		first, err := svc.CategoryCounts(context.Background(), caller)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		second, err := svc.CategoryCounts(context.Background(), caller)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if *first != *second {
			t.Fatalf("contagem divergiu entre chamadas: %+v vs %+v", first, second)
		}
	}

	// Consultar contadores nunca move marca d'água.
	if len(marks.seen) != 0 {
		t.Fatalf("contagem gravou marca d'água: %v", marks.seen)
	}
}

func TestCategoryCountsDefaultLookback(t *testing.T) {
	repo := newStubRepo()
	marks := newStubMarks()
	svc := NewService(repo, &flakyUploader{}, marks, 48*time.Hour, zerolog.Nop())

	before := time.Now().UTC().Add(-48 * time.Hour)
	if _, err := svc.CategoryCounts(context.Background(), moderator()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	after := time.Now().UTC().Add(-48 * time.Hour)

	got := repo.lastSince[CategoriaPendente]
	if got.Before(before.Add(-time.Second)) || got.After(after.Add(time.Second)) {
		t.Fatalf("janela padrão não aplicada: %v", got)
	}
}

func TestMarkSeenMovesWatermark(t *testing.T) {
	repo := newStubRepo()
	marks := newStubMarks()
	svc := newTestService(repo, marks, nil)
	caller := moderator()

	if err := svc.MarkSeen(context.Background(), caller, CategoriaPendente); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := marks.seen[marks.key(caller.ID, CategoriaPendente)]; !ok {
		t.Fatal("marca d'água não gravada")
	}

	if err := svc.MarkSeen(context.Background(), caller, "inexistente"); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation got %v", err)
	}

	// Contagem passa a usar a marca recém-gravada.
	if _, err := svc.CategoryCounts(context.Background(), caller); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := marks.seen[marks.key(caller.ID, CategoriaPendente)]
	if !repo.lastSince[CategoriaPendente].Equal(want) {
		t.Fatalf("contagem ignorou a marca: %v vs %v", repo.lastSince[CategoriaPendente], want)
	}
}
