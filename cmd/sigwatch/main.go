package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/skalibog/sigwatch/internal/analysis/aggregator"
	"github.com/skalibog/sigwatch/internal/config"
	"github.com/skalibog/sigwatch/internal/exchange"
	"github.com/skalibog/sigwatch/internal/ledger"
	"github.com/skalibog/sigwatch/internal/metrics"
	"github.com/skalibog/sigwatch/internal/notify"
	"github.com/skalibog/sigwatch/internal/report"
	"github.com/skalibog/sigwatch/internal/storage"
	"github.com/skalibog/sigwatch/pkg/logger"
	"go.uber.org/zap"
)

func main() {
	// Обработка флагов командной строки
	configPath := flag.String("config", "config.yaml", "путь к файлу конфигурации")
	envPath := flag.String("env", ".env", "путь к файлу с переменными окружения")
	once := flag.Bool("once", false, "выполнить один проход и выйти (запуск по cron)")
	history := flag.String("history", "", "показать последние сигналы символа из InfluxDB и выйти")
	flag.Parse()

	// Без файла конфигурации работаем на значениях по умолчанию и переменных окружения
	path := *configPath
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		logger.Warn("Файл конфигурации не найден, используются значения по умолчанию", zap.String("path", path))
		path = ""
	}

	cfg, err := config.Load(path, *envPath)
	if err != nil {
		logger.Fatal("Ошибка загрузки конфигурации", zap.Error(err))
	}
	if err := logger.Init(logger.Options{Level: cfg.Log.Level, JSONFile: cfg.Log.File}); err != nil {
		logger.Fatal("Ошибка инициализации логгера", zap.Error(err))
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *history != "" {
		showHistory(ctx, cfg.Storage.Influx, *history)
		return
	}

	// Журнал срабатываний
	store, err := storage.NewLedgerStore(ctx, cfg.Storage.Ledger)
	if err != nil {
		logger.Fatal("Ошибка инициализации хранилища журнала", zap.Error(err))
	}
	defer store.Close()

	ledg, err := store.Load(ctx)
	if err != nil {
		logger.Fatal("Ошибка загрузки журнала", zap.Error(err))
	}
	logger.Info("Журнал загружен", zap.String("store", cfg.Storage.Ledger.Type), zap.Int("entries", ledg.Len()))

	m := metrics.NewMetrics()
	opts := []aggregator.Option{aggregator.WithMetrics(m)}

	journal, err := storage.NewJournal(ctx, cfg.Storage.Influx)
	switch {
	case err == nil:
		defer journal.Close()
		opts = append(opts, aggregator.WithJournal(journal))
	case errors.Is(err, storage.ErrNotConfigured):
	default:
		logger.Warn("Журнал сигналов недоступен, продолжаем без него", zap.Error(err))
	}

	if cfg.Metrics.Addr != "" && !*once {
		go func() {
			if err := m.Serve(ctx, cfg.Metrics.Addr); err != nil {
				logger.Error("Ошибка сервера метрик", zap.Error(err))
			}
		}()
	}

	dispatcher := notify.FromConfig(cfg.Notify)
	logger.Info("Каналы доставки", zap.Strings("channels", dispatcher.Channels()))

	client := exchange.NewBinanceClient(cfg.Binance)
	analyzer := aggregator.NewAnalyzer(cfg, client, dispatcher, opts...)

	runPass(ctx, analyzer, store, ledg)
	if *once {
		return
	}

	ticker := time.NewTicker(time.Duration(cfg.Watch.IntervalSeconds) * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			runPass(ctx, analyzer, store, ledg)
		case <-ctx.Done():
			logger.Info("Завершение работы...")
			return
		}
	}
}

// runPass выполняет проход и сохраняет журнал. Журнал сохраняется и после
// прерывания: уже отправленные сигналы не должны повториться при следующем запуске.
func runPass(ctx context.Context, analyzer *aggregator.Analyzer, store storage.LedgerStore, ledg *ledger.Ledger) {
	res, err := analyzer.Run(ctx, ledg)
	if res != nil {
		fmt.Println(report.Summary(res))
	}
	if err != nil {
		logger.Warn("Проход прерван", zap.Error(err))
	}

	saveCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := store.Save(saveCtx, ledg); err != nil {
		logger.Error("Ошибка сохранения журнала", zap.Error(err))
	}
}

func showHistory(ctx context.Context, cfg config.InfluxConfig, symbol string) {
	if !cfg.Enabled {
		logger.Fatal("Журнал сигналов выключен", zap.Error(storage.ErrNotConfigured))
	}
	influx, err := storage.NewInfluxDBStorage(ctx, cfg)
	if err != nil {
		logger.Fatal("Ошибка подключения к InfluxDB", zap.Error(err))
	}
	defer influx.Close()

	events, err := influx.GetSignalHistory(ctx, symbol, 20)
	if err != nil {
		logger.Fatal("Ошибка чтения истории сигналов", zap.Error(err))
	}
	fmt.Println(report.History(symbol, events))
}
