package notify

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisSnapshots guarda o total de não lidos por usuário com TTL
// curto, para que o polling do app não recalcule a cada chamada.
type RedisSnapshots struct {
	rdb *redis.Client
}

// NewRedisSnapshots cria o cache de snapshots.
func NewRedisSnapshots(rdb *redis.Client) *RedisSnapshots {
	return &RedisSnapshots{rdb: rdb}
}

func snapshotKey(userID uuid.UUID) string {
	return fmt.Sprintf("notify:snapshot:%s", userID)
}

// GetSnapshot devolve o total cacheado, se ainda fresco.
func (s *RedisSnapshots) GetSnapshot(ctx context.Context, userID uuid.UUID) (int64, bool, error) {
	raw, err := s.rdb.Get(ctx, snapshotKey(userID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, false, nil
		}
		return 0, false, err
	}
	count, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false, nil
	}
	return count, true, nil
}

// SetSnapshot grava o total com validade limitada.
func (s *RedisSnapshots) SetSnapshot(ctx context.Context, userID uuid.UUID, count int64, ttl time.Duration) error {
	return s.rdb.Set(ctx, snapshotKey(userID), strconv.FormatInt(count, 10), ttl).Err()
}
