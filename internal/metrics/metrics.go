package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/skalibog/sigwatch/pkg/logger"
	"go.uber.org/zap"
)

// Metrics набор метрик Prometheus для движка сигналов
type Metrics struct {
	PassesTotal    prometheus.Counter
	PassDuration   prometheus.Histogram
	PairsTotal     *prometheus.CounterVec // labels: timeframe, outcome
	SignalsTotal   *prometheus.CounterVec // labels: type
	FetchErrors    *prometheus.CounterVec // labels: symbol
	NotifyFailures prometheus.Counter
	LedgerEntries  prometheus.Gauge

	registry *prometheus.Registry
}

// NewMetrics создает и регистрирует метрики в собственном реестре
func NewMetrics() *Metrics {
	m := &Metrics{
		PassesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sigwatch_passes_total",
			Help: "Completed evaluation passes",
		}),
		PassDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "sigwatch_pass_duration_seconds",
			Help:    "Wall time of one evaluation pass over all pairs",
			Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
		}),
		PairsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sigwatch_pairs_total",
			Help: "Evaluated symbol/timeframe pairs by outcome",
		}, []string{"timeframe", "outcome"}),
		SignalsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sigwatch_signals_total",
			Help: "Fired signals by alert type",
		}, []string{"type"}),
		FetchErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sigwatch_fetch_errors_total",
			Help: "Kline fetch failures after retries",
		}, []string{"symbol"}),
		NotifyFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sigwatch_notify_failures_total",
			Help: "Failed notification deliveries",
		}),
		LedgerEntries: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "sigwatch_ledger_entries",
			Help: "Stamps and flags held in the alert ledger",
		}),
		registry: prometheus.NewRegistry(),
	}

	m.registry.MustRegister(
		m.PassesTotal,
		m.PassDuration,
		m.PairsTotal,
		m.SignalsTotal,
		m.FetchErrors,
		m.NotifyFailures,
		m.LedgerEntries,
		collectors.NewGoCollector(),
	)
	return m
}

// Handler отдает метрики в формате Prometheus
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve поднимает /metrics и останавливает сервер при отмене контекста
func (m *Metrics) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	logger.Info("Метрики доступны", zap.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
