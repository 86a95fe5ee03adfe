package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisWatermarks guarda marcas d'água de visualização em chaves
// simples `notify:lastseen:<user>:<categoria>` com timestamp RFC3339.
type RedisWatermarks struct {
	rdb *redis.Client
}

// NewRedisWatermarks cria o armazém de marcas.
func NewRedisWatermarks(rdb *redis.Client) *RedisWatermarks {
	return &RedisWatermarks{rdb: rdb}
}

func watermarkKey(userID uuid.UUID, category string) string {
	return fmt.Sprintf("notify:lastseen:%s:%s", userID, category)
}

// LastSeen devolve a marca da categoria. O segundo retorno indica se
// havia marca gravada; sem marca o chamador aplica a janela padrão.
func (w *RedisWatermarks) LastSeen(ctx context.Context, userID uuid.UUID, category string) (time.Time, bool, error) {
	raw, err := w.rdb.Get(ctx, watermarkKey(userID, category)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return time.Time{}, false, nil
		}
		return time.Time{}, false, err
	}
	when, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		// Marca corrompida equivale a marca ausente.
		return time.Time{}, false, nil
	}
	return when, true, nil
}

// MarkSeen grava a marca da categoria. Sem TTL: a marca vale até a
// próxima visualização.
func (w *RedisWatermarks) MarkSeen(ctx context.Context, userID uuid.UUID, category string, when time.Time) error {
	return w.rdb.Set(ctx, watermarkKey(userID, category), when.UTC().Format(time.RFC3339Nano), 0).Err()
}
