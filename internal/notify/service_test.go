package notify

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/gestaopredial/patrimonio/internal/config"
	"github.com/gestaopredial/patrimonio/internal/profile"
)

type stubCounts struct {
	pending   int64
	finalized int64
	responses int64
	calls     int
}

func (s *stubCounts) CountPendingSince(ctx context.Context, since time.Time) (int64, error) {
	s.calls++
	return s.pending, nil
}

func (s *stubCounts) CountFinalizedSince(ctx context.Context, since time.Time) (int64, error) {
	s.calls++
	return s.finalized, nil
}

func (s *stubCounts) CountResponsesSince(ctx context.Context, requesterID uuid.UUID, since time.Time) (int64, error) {
	s.calls++
	return s.responses, nil
}

type memMarks struct {
	seen map[string]time.Time
}

func (m *memMarks) LastSeen(ctx context.Context, userID uuid.UUID, category string) (time.Time, bool, error) {
	when, ok := m.seen[userID.String()+":"+category]
	return when, ok, nil
}

func (m *memMarks) MarkSeen(ctx context.Context, userID uuid.UUID, category string, when time.Time) error {
	m.seen[userID.String()+":"+category] = when
	return nil
}

type memSnaps struct {
	snaps map[uuid.UUID]int64
}

func (m *memSnaps) GetSnapshot(ctx context.Context, userID uuid.UUID) (int64, bool, error) {
	count, ok := m.snaps[userID]
	return count, ok, nil
}

func (m *memSnaps) SetSnapshot(ctx context.Context, userID uuid.UUID, count int64, ttl time.Duration) error {
	m.snaps[userID] = count
	return nil
}

type stubUsers struct {
	callers []profile.Caller
}

func (s *stubUsers) ActiveSessionCallers(ctx context.Context) ([]profile.Caller, error) {
	return s.callers, nil
}

func newTestNotify(counts *stubCounts, users *stubUsers) (*Service, *memMarks, *memSnaps) {
	marks := &memMarks{seen: map[string]time.Time{}}
	snaps := &memSnaps{snaps: map[uuid.UUID]int64{}}
	svc := NewService(counts, marks, snaps, users, config.NotifyConfig{
		Interval: time.Minute,
		Lookback: 7 * 24 * time.Hour,
		CacheTTL: 25 * time.Second,
	}, zerolog.Nop())
	return svc, marks, snaps
}

func TestComputeByRole(t *testing.T) {
	counts := &stubCounts{pending: 2, finalized: 3, responses: 5}
	svc, _, _ := newTestNotify(counts, &stubUsers{})

	gestor := profile.Caller{ID: uuid.New(), Role: profile.RoleGestor}
	total, err := svc.Compute(context.Background(), gestor)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 5 {
		t.Fatalf("gestor: expected 5 got %d", total)
	}

	pref := profile.Caller{ID: uuid.New(), Role: profile.RolePrefeito}
	total, err = svc.Compute(context.Background(), pref)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 5 {
		t.Fatalf("prefeito: expected 5 got %d", total)
	}
}

func TestComputeServesSnapshot(t *testing.T) {
	counts := &stubCounts{pending: 2, finalized: 3}
	svc, _, snaps := newTestNotify(counts, &stubUsers{})
	caller := profile.Caller{ID: uuid.New(), Role: profile.RoleAdmin}

	if _, err := svc.Compute(context.Background(), caller); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	queriesAfterFirst := counts.calls
	if snaps.snaps[caller.ID] != 5 {
		t.Fatalf("snapshot não gravado: %d", snaps.snaps[caller.ID])
	}

	// Segunda chamada sai do cache, sem bater no banco.
	total, err := svc.Compute(context.Background(), caller)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 5 {
		t.Fatalf("expected 5 got %d", total)
	}
	if counts.calls != queriesAfterFirst {
		t.Fatal("snapshot fresco não deveria recalcular")
	}
}

func TestMarkSeenZeroesBadge(t *testing.T) {
	counts := &stubCounts{pending: 2, finalized: 3}
	svc, marks, _ := newTestNotify(counts, &stubUsers{})
	caller := profile.Caller{ID: uuid.New(), Role: profile.RoleAdmin}

	if err := svc.MarkSeen(context.Background(), caller); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := marks.seen[caller.ID.String()+":"+CategoriaGeral]; !ok {
		t.Fatal("marca geral não gravada")
	}

	total, err := svc.Compute(context.Background(), caller)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 0 {
		t.Fatalf("selo deveria zerar, got %d", total)
	}
}

func TestRedisStoresWireIntoService(t *testing.T) {
	// Sem rede: só valida que os armazéns Redis encaixam nas
	// interfaces do serviço como o roteador os monta.
	rdb := redis.NewClient(&redis.Options{Addr: "localhost:0"})
	defer rdb.Close()

	svc := NewService(&stubCounts{}, NewRedisWatermarks(rdb), NewRedisSnapshots(rdb), &stubUsers{}, config.NotifyConfig{}, zerolog.Nop())
	if svc == nil {
		t.Fatal("serviço não construído")
	}
}

func TestStartStop(t *testing.T) {
	svc, _, _ := newTestNotify(&stubCounts{}, &stubUsers{})

	svc.Stop() // antes do Start não há loop para encerrar

	svc.Start(context.Background())
	svc.Start(context.Background()) // segunda chamada não abre outro loop
	svc.Stop()
	svc.Stop()
}

func TestRunOnceSnapshotsActiveUsers(t *testing.T) {
	counts := &stubCounts{pending: 1, finalized: 1, responses: 4}
	gestor := profile.Caller{ID: uuid.New(), Role: profile.RoleGestor}
	pref := profile.Caller{ID: uuid.New(), Role: profile.RolePrefeito}
	svc, _, snaps := newTestNotify(counts, &stubUsers{callers: []profile.Caller{gestor, pref}})

	if err := svc.RunOnce(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snaps.snaps[gestor.ID] != 2 {
		t.Fatalf("gestor: expected 2 got %d", snaps.snaps[gestor.ID])
	}
	if snaps.snaps[pref.ID] != 4 {
		t.Fatalf("prefeito: expected 4 got %d", snaps.snaps[pref.ID])
	}
}
