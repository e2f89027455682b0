package exchange

import (
	"context"
	"fmt"
	"time"

	"github.com/adshao/go-binance/v2/futures"
	"github.com/jpillora/backoff"
	"github.com/shopspring/decimal"
	"github.com/skalibog/sigwatch/internal/config"
	"github.com/skalibog/sigwatch/pkg/logger"
	"github.com/skalibog/sigwatch/pkg/models"
	"go.uber.org/zap"
)

// klineFetcher источник сырых свечей фьючерсного рынка
type klineFetcher interface {
	Klines(ctx context.Context, symbol, interval string, limit int) ([]*futures.Kline, error)
}

type futuresFetcher struct {
	client *futures.Client
}

func (f futuresFetcher) Klines(ctx context.Context, symbol, interval string, limit int) ([]*futures.Kline, error) {
	return f.client.NewKlinesService().
		Symbol(symbol).
		Interval(interval).
		Limit(limit).
		Do(ctx)
}

// BinanceClient клиент для взаимодействия с Binance
type BinanceClient struct {
	fetcher    klineFetcher
	maxRetries int
	backoff    backoff.Backoff
}

// NewBinanceClient создает новый клиент Binance
func NewBinanceClient(cfg config.BinanceConfig) *BinanceClient {
	// адрес API выбирается при создании клиента по глобальному флагу пакета
	futures.UseTestnet = cfg.Testnet
	futuresClient := futures.NewClient(cfg.APIKey, cfg.APISecret)

	return newClient(futuresFetcher{client: futuresClient}, cfg.MaxRetries, backoff.Backoff{
		Min:    500 * time.Millisecond,
		Max:    10 * time.Second,
		Factor: 2,
		Jitter: true,
	})
}

func newClient(f klineFetcher, maxRetries int, b backoff.Backoff) *BinanceClient {
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &BinanceClient{
		fetcher:    f,
		maxRetries: maxRetries,
		backoff:    b,
	}
}

// GetKlines получает исторические свечи, повторяя запрос при сбоях
func (c *BinanceClient) GetKlines(ctx context.Context, symbol, interval string, limit int) ([]models.Candle, error) {
	b := c.backoff
	b.Reset()

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			wait := b.Duration()
			logger.Warn("Повтор запроса свечей",
				zap.String("symbol", symbol),
				zap.String("interval", interval),
				zap.Int("attempt", attempt),
				zap.Duration("wait", wait),
				zap.Error(lastErr))

			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(wait):
			}
		}

		klines, err := c.fetcher.Klines(ctx, symbol, interval, limit)
		if err == nil {
			return toCandles(klines)
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		lastErr = err
	}
	return nil, fmt.Errorf("ошибка получения свечей %s %s: %w", symbol, interval, lastErr)
}

// toCandles разбирает строковые цены Binance. Время должно строго возрастать.
func toCandles(klines []*futures.Kline) ([]models.Candle, error) {
	candles := make([]models.Candle, 0, len(klines))
	for i, k := range klines {
		var vals [6]float64
		for j, raw := range [...]string{k.Open, k.High, k.Low, k.Close, k.Volume, k.QuoteAssetVolume} {
			d, err := decimal.NewFromString(raw)
			if err != nil {
				return nil, fmt.Errorf("свеча %d: некорректное значение %q: %w", i, raw, err)
			}
			vals[j] = d.InexactFloat64()
		}

		if n := len(candles); n > 0 && k.OpenTime <= candles[n-1].Time {
			return nil, fmt.Errorf("свеча %d: время %d не возрастает", i, k.OpenTime)
		}

		candles = append(candles, models.Candle{
			Time:        k.OpenTime,
			Open:        vals[0],
			High:        vals[1],
			Low:         vals[2],
			Close:       vals[3],
			Volume:      vals[4],
			QuoteVolume: vals[5],
		})
	}
	return candles, nil
}
