package aggregator

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/skalibog/sigwatch/internal/analysis/alerts"
	"github.com/skalibog/sigwatch/internal/analysis/technical"
	"github.com/skalibog/sigwatch/internal/config"
	"github.com/skalibog/sigwatch/internal/ledger"
	"github.com/skalibog/sigwatch/internal/metrics"
	"github.com/skalibog/sigwatch/internal/notify"
	"github.com/skalibog/sigwatch/internal/storage"
	"github.com/skalibog/sigwatch/pkg/logger"
	"github.com/skalibog/sigwatch/pkg/models"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// CandleSource источник свечей
type CandleSource interface {
	GetKlines(ctx context.Context, symbol, interval string, limit int) ([]models.Candle, error)
}

// PairResult итог обработки одной пары символ/таймфрейм
type PairResult struct {
	Symbol    string
	Timeframe string
	Candles   int
	Events    []models.SignalEvent
	// Skipped - истории не хватило для расчета индикаторов
	Skipped bool
	Err     error
}

// PassResult итог одного прохода по всем парам
type PassResult struct {
	RunID    string
	Started  time.Time
	Duration time.Duration
	Pairs    []PairResult
}

// Events все сработавшие сигналы прохода в порядке пар
func (r *PassResult) Events() []models.SignalEvent {
	var out []models.SignalEvent
	for _, p := range r.Pairs {
		out = append(out, p.Events...)
	}
	return out
}

// Failed количество пар, завершившихся ошибкой
func (r *PassResult) Failed() int {
	n := 0
	for _, p := range r.Pairs {
		if p.Err != nil {
			n++
		}
	}
	return n
}

// Analyzer объединяет получение свечей, расчет индикаторов, проверку сигналов и доставку
type Analyzer struct {
	watch      config.WatchConfig
	cooldown   time.Duration
	source     CandleSource
	technical  *technical.Analyzer
	evaluator  *alerts.Evaluator
	dispatcher *notify.Dispatcher
	journal    storage.Journal
	metrics    *metrics.Metrics
	now        func() time.Time
}

// Option необязательная зависимость анализатора
type Option func(*Analyzer)

// WithJournal записывать сигналы и свечи в журнал
func WithJournal(j storage.Journal) Option {
	return func(a *Analyzer) { a.journal = j }
}

// WithMetrics обновлять метрики Prometheus
func WithMetrics(m *metrics.Metrics) Option {
	return func(a *Analyzer) { a.metrics = m }
}

// WithClock подменяет источник текущего времени
func WithClock(now func() time.Time) Option {
	return func(a *Analyzer) { a.now = now }
}

// NewAnalyzer создает новый анализатор
func NewAnalyzer(cfg *config.Config, source CandleSource, dispatcher *notify.Dispatcher, opts ...Option) *Analyzer {
	a := &Analyzer{
		watch:      cfg.Watch,
		cooldown:   cfg.Alerts.Cooldown,
		source:     source,
		technical:  technical.NewAnalyzer(cfg.Analysis.Technical),
		evaluator:  alerts.NewEvaluator(cfg.Alerts, cfg.Alerts.RulesConfig()),
		dispatcher: dispatcher,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Run выполняет один проход по всем парам. Сбой одной пары не прерывает остальные;
// ошибка возвращается только при отмене контекста.
func (a *Analyzer) Run(ctx context.Context, l *ledger.Ledger) (*PassResult, error) {
	started := a.now()
	result := &PassResult{RunID: uuid.NewString(), Started: started}
	log := logger.Named("aggregator").With(zap.String("run_id", result.RunID))

	// повторная пара делила бы раздел журнала с первой, поэтому пары уникальны
	type pair struct{ symbol, timeframe string }
	var pairs []pair
	seen := make(map[pair]struct{})
	for _, symbol := range a.watch.Symbols {
		for _, tf := range a.watch.Timeframes {
			p := pair{symbol, tf}
			if _, ok := seen[p]; ok {
				continue
			}
			seen[p] = struct{}{}
			pairs = append(pairs, p)
		}
	}
	result.Pairs = make([]PairResult, len(pairs))

	log.Info("Начало прохода", zap.Int("pairs", len(pairs)), zap.Int("workers", a.watch.Workers))

	// одно значение now на весь проход: окна охлаждения у всех пар согласованы
	now := started.UnixMilli()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(a.watch.Workers, 1))
	for i, p := range pairs {
		i, p := i, p
		g.Go(func() error {
			result.Pairs[i] = a.evaluatePair(gctx, log, l, p.symbol, p.timeframe, now)
			return nil
		})
	}
	g.Wait()

	// метки разовых ключей (дивергенции по времени пивота) иначе копились бы бесконечно
	if pruned := l.Prune(now, a.cooldown); pruned > 0 {
		log.Debug("Удалены устаревшие метки", zap.Int("pruned", pruned))
	}

	result.Duration = a.now().Sub(started)
	if a.metrics != nil {
		a.metrics.PassesTotal.Inc()
		a.metrics.PassDuration.Observe(result.Duration.Seconds())
		a.metrics.LedgerEntries.Set(float64(l.Len()))
	}

	log.Info("Проход завершен",
		zap.Int("events", len(result.Events())),
		zap.Int("failed", result.Failed()),
		zap.Duration("duration", result.Duration))

	if err := ctx.Err(); err != nil {
		return result, err
	}
	return result, nil
}

func (a *Analyzer) evaluatePair(ctx context.Context, log *zap.Logger, l *ledger.Ledger, symbol, tf string, now int64) PairResult {
	res := PairResult{Symbol: symbol, Timeframe: tf}
	log = log.With(zap.String("symbol", symbol), zap.String("timeframe", tf))

	candles, err := a.source.GetKlines(ctx, symbol, tf, a.watch.Limit)
	if err != nil {
		res.Err = err
		a.countPair(tf, "fetch_error")
		if a.metrics != nil {
			a.metrics.FetchErrors.WithLabelValues(symbol).Inc()
		}
		log.Error("Ошибка получения свечей", zap.Error(err))
		return res
	}
	res.Candles = len(candles)

	bundle, err := a.technical.Compute(candles)
	if errors.Is(err, technical.ErrInsufficientData) {
		res.Skipped = true
		a.countPair(tf, "skipped")
		log.Info("Пропуск: недостаточно свечей", zap.Int("candles", len(candles)))
		return res
	}
	if err != nil {
		res.Err = err
		a.countPair(tf, "error")
		log.Error("Ошибка расчета индикаторов", zap.Error(err))
		return res
	}

	// каждая пара работает со своим разделом журнала
	part := l.Partition(symbol, tf)
	res.Events = a.evaluator.Evaluate(symbol, tf, bundle, part, now)
	l.Merge(part)
	a.countPair(tf, "ok")

	if a.journal != nil {
		if err := a.journal.SaveCandles(ctx, symbol, tf, candles); err != nil {
			log.Warn("Ошибка архивирования свечей", zap.Error(err))
		}
	}
	if len(res.Events) == 0 {
		return res
	}

	failed := a.dispatcher.Dispatch(ctx, res.Events)
	for _, e := range res.Events {
		if a.metrics != nil {
			a.metrics.SignalsTotal.WithLabelValues(string(e.Type)).Inc()
		}
		if a.journal != nil {
			if err := a.journal.SaveSignal(ctx, e); err != nil {
				log.Warn("Ошибка записи сигнала в журнал", zap.String("type", string(e.Type)), zap.Error(err))
			}
		}
	}
	if a.metrics != nil && failed > 0 {
		a.metrics.NotifyFailures.Add(float64(failed))
	}
	return res
}

func (a *Analyzer) countPair(tf, outcome string) {
	if a.metrics != nil {
		a.metrics.PairsTotal.WithLabelValues(tf, outcome).Inc()
	}
}
