package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/skalibog/sigwatch/internal/config"
	"github.com/skalibog/sigwatch/internal/ledger"
	"github.com/skalibog/sigwatch/pkg/models"
)

// ErrNotConfigured хранилище выключено в конфигурации
var ErrNotConfigured = errors.New("хранилище не настроено")

// LedgerStore хранит журнал срабатываний между запусками
type LedgerStore interface {
	// Load возвращает пустой журнал, если сохраненного состояния еще нет
	Load(ctx context.Context) (*ledger.Ledger, error)
	Save(ctx context.Context, l *ledger.Ledger) error
	Close() error
}

// Journal записывает сработавшие сигналы и проанализированные свечи
type Journal interface {
	SaveSignal(ctx context.Context, event models.SignalEvent) error
	SaveCandles(ctx context.Context, symbol, interval string, candles []models.Candle) error
	Close()
}

// NewLedgerStore создает хранилище журнала по типу из конфигурации
func NewLedgerStore(ctx context.Context, cfg config.LedgerConfig) (LedgerStore, error) {
	switch cfg.Type {
	case "", "file":
		return NewFileStore(cfg.Path), nil
	case "redis":
		s, err := NewRedisStore(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("неизвестный тип хранилища журнала: %q", cfg.Type)
	}
}

// NewJournal подключает журнал сигналов. Если он выключен, возвращает ErrNotConfigured.
func NewJournal(ctx context.Context, cfg config.InfluxConfig) (Journal, error) {
	if !cfg.Enabled {
		return nil, ErrNotConfigured
	}
	s, err := NewInfluxDBStorage(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return s, nil
}
