// internal/storage/influxdb.go
package storage

import (
	"context"
	"fmt"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	influxhttp "github.com/influxdata/influxdb-client-go/v2/api/http"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/skalibog/sigwatch/internal/config"
	"github.com/skalibog/sigwatch/pkg/logger"
	"github.com/skalibog/sigwatch/pkg/models"
	"go.uber.org/zap"
)

const (
	measurementSignals = "signals"
	measurementCandles = "candles"
)

// pointWriter часть api.WriteAPI, которую использует журнал
type pointWriter interface {
	WritePoint(point *write.Point)
	Flush()
}

// InfluxDBStorage реализует Journal с использованием InfluxDB
type InfluxDBStorage struct {
	client   influxdb2.Client
	queryAPI api.QueryAPI
	writeAPI pointWriter
	bucket   string
}

// NewInfluxDBStorage создает новое хранилище InfluxDB
func NewInfluxDBStorage(ctx context.Context, cfg config.InfluxConfig) (*InfluxDBStorage, error) {
	client := influxdb2.NewClient(cfg.URL, cfg.Token)

	// Проверка соединения
	health, err := client.Health(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("ошибка соединения с InfluxDB: %w", err)
	}
	if health == nil || health.Status != "pass" {
		client.Close()
		return nil, fmt.Errorf("InfluxDB не в состоянии 'pass': %+v", health)
	}

	writeAPI := client.WriteAPI(cfg.Organization, cfg.Bucket)
	writeAPI.SetWriteFailedCallback(func(batch string, err influxhttp.Error, retryAttempts uint) bool {
		logger.Warn("Ошибка записи в InfluxDB",
			zap.Uint("attempts", retryAttempts),
			zap.Error(&err))
		return retryAttempts < 3
	})

	logger.Info("Подключено к InfluxDB", zap.String("url", cfg.URL), zap.String("bucket", cfg.Bucket))
	return &InfluxDBStorage{
		client:   client,
		queryAPI: client.QueryAPI(cfg.Organization),
		writeAPI: writeAPI,
		bucket:   cfg.Bucket,
	}, nil
}

// Close дописывает буфер и закрывает соединение
func (s *InfluxDBStorage) Close() {
	s.writeAPI.Flush()
	if s.client != nil {
		s.client.Close()
	}
}

// SaveSignal сохраняет сработавший сигнал
func (s *InfluxDBStorage) SaveSignal(ctx context.Context, event models.SignalEvent) error {
	s.writeAPI.WritePoint(signalPoint(event))
	s.writeAPI.Flush()
	return nil
}

// SaveCandles архивирует проанализированные свечи
func (s *InfluxDBStorage) SaveCandles(ctx context.Context, symbol, interval string, candles []models.Candle) error {
	for _, candle := range candles {
		s.writeAPI.WritePoint(candlePoint(symbol, interval, candle))
	}
	s.writeAPI.Flush()
	return nil
}

// GetSignalHistory получает историю сигналов по символу, новые первыми
func (s *InfluxDBStorage) GetSignalHistory(ctx context.Context, symbol string, limit int) ([]models.SignalEvent, error) {
	query := fmt.Sprintf(`
		from(bucket: "%s")
			|> range(start: -30d)
			|> filter(fn: (r) => r._measurement == "%s")
			|> filter(fn: (r) => r.symbol == "%s")
			|> pivot(rowKey:["_time"], columnKey: ["_field"], valueColumn: "_value")
			|> group()
			|> sort(columns: ["_time"], desc: true)
			|> limit(n: %d)
	`, s.bucket, measurementSignals, symbol, limit)

	result, err := s.queryAPI.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("ошибка запроса истории сигналов: %w", err)
	}

	var events []models.SignalEvent
	for result.Next() {
		events = append(events, signalFromValues(result.Record().Time().UnixMilli(), result.Record().Values()))
	}
	if result.Err() != nil {
		return nil, fmt.Errorf("ошибка при обработке результатов: %w", result.Err())
	}
	return events, nil
}

func signalPoint(e models.SignalEvent) *write.Point {
	return influxdb2.NewPoint(
		measurementSignals,
		map[string]string{
			"symbol":    e.Symbol,
			"timeframe": e.Timeframe,
			"type":      string(e.Type),
		},
		map[string]interface{}{
			"title":  e.Title,
			"body":   e.Body,
			"accent": e.Accent,
			"icon":   e.Icon,
		},
		e.FiredAt(),
	)
}

func candlePoint(symbol, interval string, c models.Candle) *write.Point {
	return influxdb2.NewPoint(
		measurementCandles,
		map[string]string{
			"symbol":   symbol,
			"interval": interval,
		},
		map[string]interface{}{
			"open":         c.Open,
			"high":         c.High,
			"low":          c.Low,
			"close":        c.Close,
			"volume":       c.Volume,
			"quote_volume": c.QuoteVolume,
		},
		c.OpenTime(),
	)
}

func signalFromValues(ms int64, values map[string]interface{}) models.SignalEvent {
	str := func(k string) string {
		v, _ := values[k].(string)
		return v
	}
	return models.SignalEvent{
		Type:      models.AlertType(str("type")),
		Symbol:    str("symbol"),
		Timeframe: str("timeframe"),
		Title:     str("title"),
		Body:      str("body"),
		Accent:    str("accent"),
		Icon:      str("icon"),
		Time:      ms,
	}
}
