package storage

import (
	"context"
	"fmt"
	"strconv"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/skalibog/sigwatch/internal/config"
	"github.com/skalibog/sigwatch/internal/ledger"
	"github.com/skalibog/sigwatch/pkg/logger"
	"go.uber.org/zap"
)

// hashClient подмножество команд Redis, нужное хранилищу
type hashClient interface {
	HGetAll(ctx context.Context, key string) *goredis.StringStringMapCmd
	HSet(ctx context.Context, key string, values ...interface{}) *goredis.IntCmd
	Del(ctx context.Context, keys ...string) *goredis.IntCmd
	Rename(ctx context.Context, key, newkey string) *goredis.StatusCmd
	Close() error
}

// RedisStore хранит журнал в одном хэше Redis
type RedisStore struct {
	client hashClient
	key    string
}

// NewRedisStore подключается к Redis и проверяет соединение
func NewRedisStore(ctx context.Context, cfg config.RedisConfig) (*RedisStore, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ошибка соединения с Redis %s: %w", cfg.Addr, err)
	}

	logger.Info("Подключено к Redis", zap.String("addr", cfg.Addr), zap.String("key", cfg.Key))
	return newRedisStore(client, cfg.Key), nil
}

func newRedisStore(client hashClient, key string) *RedisStore {
	return &RedisStore{client: client, key: key}
}

// Load читает хэш целиком. Пустой или отсутствующий хэш дает пустой журнал.
func (s *RedisStore) Load(ctx context.Context) (*ledger.Ledger, error) {
	fields, err := s.client.HGetAll(ctx, s.key).Result()
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения журнала из Redis: %w", err)
	}

	raw := make(map[string]any, len(fields))
	for k, v := range fields {
		raw[k] = v
	}
	return ledger.FromMap(raw)
}

// Save пишет снимок во временный ключ и атомарно подменяет им основной
func (s *RedisStore) Save(ctx context.Context, l *ledger.Ledger) error {
	values := encodeSnapshot(l.Snapshot())
	if len(values) == 0 {
		if err := s.client.Del(ctx, s.key).Err(); err != nil {
			return fmt.Errorf("ошибка очистки журнала в Redis: %w", err)
		}
		return nil
	}

	tmp := s.key + ":tmp"
	if err := s.client.Del(ctx, tmp).Err(); err != nil {
		return fmt.Errorf("ошибка подготовки журнала в Redis: %w", err)
	}
	if err := s.client.HSet(ctx, tmp, values).Err(); err != nil {
		return fmt.Errorf("ошибка записи журнала в Redis: %w", err)
	}
	if err := s.client.Rename(ctx, tmp, s.key).Err(); err != nil {
		return fmt.Errorf("ошибка сохранения журнала в Redis: %w", err)
	}
	return nil
}

// Close закрывает соединение
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// encodeSnapshot приводит значения к строкам: go-redis пишет bool как 1/0,
// что неотличимо от метки времени
func encodeSnapshot(snap map[string]any) map[string]interface{} {
	out := make(map[string]interface{}, len(snap))
	for k, v := range snap {
		switch val := v.(type) {
		case int64:
			out[k] = strconv.FormatInt(val, 10)
		case bool:
			out[k] = strconv.FormatBool(val)
		}
	}
	return out
}
