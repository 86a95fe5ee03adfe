package notify

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/gestaopredial/patrimonio/internal/config"
	"github.com/gestaopredial/patrimonio/internal/profile"
	"github.com/gestaopredial/patrimonio/internal/util"
)

// CategoriaGeral marca a visualização do sino de notificações.
const CategoriaGeral = "geral"

// CountSource são as consultas de contagem sobre as requisições.
type CountSource interface {
	CountPendingSince(ctx context.Context, since time.Time) (int64, error)
	CountFinalizedSince(ctx context.Context, since time.Time) (int64, error)
	CountResponsesSince(ctx context.Context, requesterID uuid.UUID, since time.Time) (int64, error)
}

// WatermarkStore guarda a marca de última visualização por usuário.
type WatermarkStore interface {
	LastSeen(ctx context.Context, userID uuid.UUID, category string) (time.Time, bool, error)
	MarkSeen(ctx context.Context, userID uuid.UUID, category string, when time.Time) error
}

// SnapshotStore cacheia o total de não lidos por usuário.
type SnapshotStore interface {
	GetSnapshot(ctx context.Context, userID uuid.UUID) (int64, bool, error)
	SetSnapshot(ctx context.Context, userID uuid.UUID, count int64, ttl time.Duration) error
}

// ActiveUserSource lista os usuários com sessão viva, alvo do
// snapshot periódico.
type ActiveUserSource interface {
	ActiveSessionCallers(ctx context.Context) ([]profile.Caller, error)
}

// Service calcula o selo global de notificações e mantém o snapshot
// em segundo plano.
type Service struct {
	counts CountSource
	marks  WatermarkStore
	snaps  SnapshotStore
	users  ActiveUserSource
	cfg    config.NotifyConfig
	log    zerolog.Logger

	once   sync.Once
	cancel context.CancelFunc
}

// NewService cria o serviço de notificações.
func NewService(counts CountSource, marks WatermarkStore, snaps SnapshotStore, users ActiveUserSource, cfg config.NotifyConfig, log zerolog.Logger) *Service {
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Second
	}
	if cfg.Lookback <= 0 {
		cfg.Lookback = 7 * 24 * time.Hour
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 25 * time.Second
	}
	return &Service{counts: counts, marks: marks, snaps: snaps, users: users, cfg: cfg, log: log}
}

// Compute devolve o total de não lidos do chamador. Serve o snapshot
// quando fresco e recalcula quando não há.
func (s *Service) Compute(ctx context.Context, caller profile.Caller) (int64, error) {
	if count, ok, err := s.snaps.GetSnapshot(ctx, caller.ID); err == nil && ok {
		return count, nil
	} else if err != nil {
		s.log.Warn().Err(err).Msg("notify: leitura do snapshot falhou")
	}

	count, err := s.computeFresh(ctx, caller)
	if err != nil {
		return 0, err
	}
	if err := s.snaps.SetSnapshot(ctx, caller.ID, count, s.cfg.CacheTTL); err != nil {
		s.log.Warn().Err(err).Msg("notify: escrita do snapshot falhou")
	}
	return count, nil
}

// MarkSeen move a marca geral do chamador para agora e zera o selo.
func (s *Service) MarkSeen(ctx context.Context, caller profile.Caller) error {
	if err := s.marks.MarkSeen(ctx, caller.ID, CategoriaGeral, util.Now()); err != nil {
		return err
	}
	if err := s.snaps.SetSnapshot(ctx, caller.ID, 0, s.cfg.CacheTTL); err != nil {
		s.log.Warn().Err(err).Msg("notify: zerar snapshot falhou")
	}
	return nil
}

func (s *Service) computeFresh(ctx context.Context, caller profile.Caller) (int64, error) {
	since, ok, err := s.marks.LastSeen(ctx, caller.ID, CategoriaGeral)
	if err != nil {
		return 0, err
	}
	if !ok {
		since = util.Now().Add(-s.cfg.Lookback)
	}

	if caller.IsModerator() {
		pending, err := s.counts.CountPendingSince(ctx, since)
		if err != nil {
			return 0, err
		}
		finalized, err := s.counts.CountFinalizedSince(ctx, since)
		if err != nil {
			return 0, err
		}
		return pending + finalized, nil
	}
	return s.counts.CountResponsesSince(ctx, caller.ID, since)
}

// Start inicia o snapshot periódico. Safe para chamar múltiplas vezes.
func (s *Service) Start(parent context.Context) {
	s.once.Do(func() {
		ctx, cancel := context.WithCancel(parent)
		s.cancel = cancel
		go s.runLoop(ctx)
	})
}

// Stop encerra o loop periódico.
func (s *Service) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
}

func (s *Service) runLoop(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	s.log.Info().Dur("interval", s.cfg.Interval).Msg("notify: loop iniciado")

	if err := s.RunOnce(ctx); err != nil {
		s.log.Error().Err(err).Msg("notify: primeira execução falhou")
	}

	for {
		select {
		case <-ctx.Done():
			s.log.Info().Msg("notify: loop encerrado")
			return
		case <-ticker.C:
			if err := s.RunOnce(ctx); err != nil {
				s.log.Error().Err(err).Msg("notify: execução periódica falhou")
			}
		}
	}
}

// RunOnce recalcula o snapshot de cada usuário com sessão ativa.
func (s *Service) RunOnce(ctx context.Context) error {
	callers, err := s.users.ActiveSessionCallers(ctx)
	if err != nil {
		return err
	}

	for _, caller := range callers {
		count, err := s.computeFresh(ctx, caller)
		if err != nil {
			s.log.Warn().Err(err).Str("user", caller.ID.String()).Msg("notify: cálculo falhou")
			continue
		}
		if err := s.snaps.SetSnapshot(ctx, caller.ID, count, s.cfg.CacheTTL); err != nil {
			s.log.Warn().Err(err).Str("user", caller.ID.String()).Msg("notify: snapshot falhou")
		}
	}
	return nil
}
