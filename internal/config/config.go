package config

import (
	"fmt"
	"os"
	"time"

	"github.com/skalibog/sigwatch/pkg/logger"
	"go.uber.org/zap"
	"gopkg.in/yaml.v2"
)

// Config представляет полную конфигурацию приложения
type Config struct {
	Binance  BinanceConfig  `yaml:"binance"`
	Watch    WatchConfig    `yaml:"watch"`
	Analysis AnalysisConfig `yaml:"analysis"`
	Alerts   AlertsConfig   `yaml:"alerts"`
	Storage  StorageConfig  `yaml:"storage"`
	Notify   NotifyConfig   `yaml:"notify"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Log      LogConfig      `yaml:"log"`
}

// BinanceConfig содержит настройки подключения к Binance
type BinanceConfig struct {
	APIKey     string `yaml:"api_key"`
	APISecret  string `yaml:"api_secret"`
	Testnet    bool   `yaml:"testnet"`
	MaxRetries int    `yaml:"max_retries"`
}

// WatchConfig что и как часто проверять
type WatchConfig struct {
	Symbols    []string `yaml:"symbols"`
	Timeframes []string `yaml:"timeframes"`
	// Limit количество запрашиваемых свечей
	Limit           int `yaml:"limit"`
	IntervalSeconds int `yaml:"interval_seconds"`
	Workers         int `yaml:"workers"`
}

// AnalysisConfig параметры индикаторов
type AnalysisConfig struct {
	Technical TechnicalConfig `yaml:"technical"`
}

// TechnicalConfig настройки технического анализа
type TechnicalConfig struct {
	MinCandles         int `yaml:"min_candles"`
	RSIPeriod          int `yaml:"rsi_period"`
	RSISMAPeriod       int `yaml:"rsi_sma_period"`
	StochLength        int `yaml:"stoch_length"`
	StochK             int `yaml:"stoch_k"`
	StochD             int `yaml:"stoch_d"`
	WTChannel          int `yaml:"wt_channel"`
	WTAverage          int `yaml:"wt_average"`
	WTSignal           int `yaml:"wt_signal"`
	SMAFast            int `yaml:"sma_fast"`
	SMASlow            int `yaml:"sma_slow"`
	VolumeLookback     int `yaml:"volume_lookback"`
	TrailDataLength    int `yaml:"trail_data_length"`
	TrailDistribution  int `yaml:"trail_distribution"`
	GoldenPocketWindow int `yaml:"golden_pocket_window"`
}

// AlertsConfig пороги правил и период охлаждения
type AlertsConfig struct {
	Rules    map[string]bool `yaml:"rules"`
	Cooldown time.Duration   `yaml:"cooldown"`

	RSIOverbought float64 `yaml:"rsi_overbought"`
	RSIOversold   float64 `yaml:"rsi_oversold"`

	// WaveTrendThreshold порог перепроданности wt2, WaveTrendThresholds - переопределения по таймфреймам
	WaveTrendThreshold  float64            `yaml:"wavetrend_threshold"`
	WaveTrendThresholds map[string]float64 `yaml:"wavetrend_thresholds"`

	HighConviction HighConvictionConfig `yaml:"high_conviction"`
	Kiwi           KiwiConfig           `yaml:"kiwihunt"`
}

// HighConvictionConfig условия сигнала high-conviction-buy
type HighConvictionConfig struct {
	Timeframes   []string `yaml:"timeframes"`
	StochMax     float64  `yaml:"stoch_max"`
	VolumeFactor float64  `yaml:"volume_factor"`
	DeepWT       float64  `yaml:"deep_wt"`
	CrossWT      float64  `yaml:"cross_wt"`
}

// KiwiConfig зоны осциллятора KiwiHunt
type KiwiConfig struct {
	Oversold   float64 `yaml:"oversold"`
	Overbought float64 `yaml:"overbought"`
	Midline    float64 `yaml:"midline"`
}

// StorageConfig настройки хранения данных
type StorageConfig struct {
	Ledger LedgerConfig `yaml:"ledger"`
	Influx InfluxConfig `yaml:"influxdb"`
}

// LedgerConfig где хранить журнал срабатываний: file или redis
type LedgerConfig struct {
	Type  string      `yaml:"type"`
	Path  string      `yaml:"path"`
	Redis RedisConfig `yaml:"redis"`
}

// RedisConfig параметры подключения к Redis
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Key      string `yaml:"key"`
}

// InfluxConfig журнал сигналов и архив свечей
type InfluxConfig struct {
	Enabled      bool   `yaml:"enabled"`
	URL          string `yaml:"url"`
	Token        string `yaml:"token"`
	Organization string `yaml:"organization"`
	Bucket       string `yaml:"bucket"`
}

// NotifyConfig каналы доставки сигналов
type NotifyConfig struct {
	Timeout  time.Duration  `yaml:"timeout"`
	Log      bool           `yaml:"log"`
	Discord  DiscordConfig  `yaml:"discord"`
	Telegram TelegramConfig `yaml:"telegram"`
}

// DiscordConfig настройки вебхука Discord
type DiscordConfig struct {
	WebhookURL string `yaml:"webhook_url"`
}

// TelegramConfig настройки Telegram бота
type TelegramConfig struct {
	BotToken string `yaml:"bot_token"`
	ChatID   string `yaml:"chat_id"`
	APIURL   string `yaml:"api_url"`
}

// MetricsConfig адрес для /metrics, пусто - метрики не публикуются
type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

// LogConfig настройки логирования
type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// Default возвращает конфигурацию по умолчанию
func Default() *Config {
	rules := make(map[string]bool, len(AllRules))
	for _, r := range AllRules {
		rules[string(r)] = true
	}

	return &Config{
		Binance: BinanceConfig{MaxRetries: 3},
		Watch: WatchConfig{
			Symbols:         []string{"BTCUSDT", "ETHUSDT"},
			Timeframes:      []string{"15m", "1h", "4h"},
			Limit:           300,
			IntervalSeconds: 300,
			Workers:         4,
		},
		Analysis: AnalysisConfig{
			Technical: TechnicalConfig{
				MinCandles:         101,
				RSIPeriod:          14,
				RSISMAPeriod:       14,
				StochLength:        14,
				StochK:             3,
				StochD:             3,
				WTChannel:          9,
				WTAverage:          12,
				WTSignal:           3,
				SMAFast:            50,
				SMASlow:            100,
				VolumeLookback:     20,
				TrailDataLength:    1,
				TrailDistribution:  10,
				GoldenPocketWindow: 100,
			},
		},
		Alerts: AlertsConfig{
			Rules:              rules,
			Cooldown:           3 * time.Hour,
			RSIOverbought:      75,
			RSIOversold:        25,
			WaveTrendThreshold: -53,
			HighConviction: HighConvictionConfig{
				Timeframes:   []string{"1h", "4h"},
				StochMax:     25,
				VolumeFactor: 0.9,
				DeepWT:       -55,
				CrossWT:      -40,
			},
			Kiwi: KiwiConfig{
				Oversold:   20,
				Overbought: 80,
				Midline:    50,
			},
		},
		Storage: StorageConfig{
			Ledger: LedgerConfig{
				Type: "file",
				Path: "alert_state.json",
				Redis: RedisConfig{
					Addr: "localhost:6379",
					Key:  "sigwatch:ledger",
				},
			},
		},
		Notify: NotifyConfig{
			Timeout: 10 * time.Second,
			Log:     true,
		},
		Log: LogConfig{Level: "info"},
	}
}

// Load загружает конфигурацию из файла поверх значений по умолчанию
// и применяет переменные окружения (в том числе из .env).
func Load(path, envPath string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("ошибка чтения файла конфигурации: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("ошибка разбора файла конфигурации: %w", err)
		}
	}

	if err := loadDotEnv(envPath); err != nil {
		logger.Warn("Не удалось загрузить .env", zap.String("path", envPath), zap.Error(err))
	}
	if err := applyEnv(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("некорректная конфигурация: %w", err)
	}

	logger.Debug("Загружена конфигурация", zap.String("path", path), zap.Any("config", cfg.redacted()))
	logger.Info("Загружена конфигурация",
		zap.Strings("symbols", cfg.Watch.Symbols),
		zap.Strings("timeframes", cfg.Watch.Timeframes))
	return cfg, nil
}

// Validate проверяет согласованность настроек
func (c *Config) Validate() error {
	if len(c.Watch.Symbols) == 0 {
		return fmt.Errorf("не задан ни один символ")
	}
	if len(c.Watch.Timeframes) == 0 {
		return fmt.Errorf("не задан ни один таймфрейм")
	}
	for _, tf := range c.Watch.Timeframes {
		if _, err := TimeframeDuration(tf); err != nil {
			return err
		}
	}
	// пара символ/таймфрейм владеет своим разделом журнала, повторы недопустимы
	if dup := firstDuplicate(c.Watch.Symbols); dup != "" {
		return fmt.Errorf("символ %q указан повторно", dup)
	}
	if dup := firstDuplicate(c.Watch.Timeframes); dup != "" {
		return fmt.Errorf("таймфрейм %q указан повторно", dup)
	}
	if c.Watch.IntervalSeconds < 1 {
		return fmt.Errorf("interval_seconds должно быть >= 1, получено %d", c.Watch.IntervalSeconds)
	}
	if c.Watch.Workers < 1 {
		return fmt.Errorf("workers должно быть >= 1, получено %d", c.Watch.Workers)
	}

	t := c.Analysis.Technical
	if err := t.validateLengths(); err != nil {
		return err
	}
	if t.MinCandles < t.SMASlow+1 {
		return fmt.Errorf("min_candles (%d) меньше sma_slow+1 (%d)", t.MinCandles, t.SMASlow+1)
	}
	if c.Watch.Limit < t.MinCandles {
		return fmt.Errorf("limit (%d) меньше min_candles (%d)", c.Watch.Limit, t.MinCandles)
	}

	if c.Alerts.Cooldown <= 0 {
		return fmt.Errorf("cooldown должен быть положительным")
	}
	for name := range c.Alerts.Rules {
		if !knownRule(Rule(name)) {
			return fmt.Errorf("неизвестное правило %q", name)
		}
	}

	switch c.Storage.Ledger.Type {
	case "file":
		if c.Storage.Ledger.Path == "" {
			return fmt.Errorf("не задан путь файла журнала")
		}
	case "redis":
		if c.Storage.Ledger.Redis.Addr == "" {
			return fmt.Errorf("не задан адрес redis")
		}
	default:
		return fmt.Errorf("неизвестный тип хранилища журнала %q", c.Storage.Ledger.Type)
	}

	if in := c.Storage.Influx; in.Enabled && (in.URL == "" || in.Bucket == "") {
		return fmt.Errorf("для InfluxDB нужны url и bucket")
	}
	return nil
}

// validateLengths периоды индикаторов должны быть положительными
func (t TechnicalConfig) validateLengths() error {
	for _, l := range []struct {
		name string
		val  int
		min  int
	}{
		{"rsi_period", t.RSIPeriod, 1},
		{"rsi_sma_period", t.RSISMAPeriod, 1},
		{"stoch_length", t.StochLength, 1},
		{"stoch_k", t.StochK, 1},
		{"stoch_d", t.StochD, 1},
		{"wt_channel", t.WTChannel, 1},
		{"wt_average", t.WTAverage, 1},
		{"wt_signal", t.WTSignal, 1},
		{"sma_fast", t.SMAFast, 1},
		{"sma_slow", t.SMASlow, 1},
		{"volume_lookback", t.VolumeLookback, 1},
		{"trail_data_length", t.TrailDataLength, 1},
		// стандартное отклонение требует минимум двух значений
		{"trail_distribution", t.TrailDistribution, 2},
		{"golden_pocket_window", t.GoldenPocketWindow, 2},
	} {
		if l.val < l.min {
			return fmt.Errorf("%s должно быть >= %d, получено %d", l.name, l.min, l.val)
		}
	}
	return nil
}

func firstDuplicate(items []string) string {
	seen := make(map[string]struct{}, len(items))
	for _, it := range items {
		if _, ok := seen[it]; ok {
			return it
		}
		seen[it] = struct{}{}
	}
	return ""
}

// RulesConfig возвращает неизменяемый набор включенных правил
func (a AlertsConfig) RulesConfig() RulesConfig {
	m := make(map[Rule]bool, len(a.Rules))
	for name, on := range a.Rules {
		m[Rule(name)] = on
	}
	return NewRules(m)
}

// WaveTrendThresholdFor порог wt2 для таймфрейма
func (a AlertsConfig) WaveTrendThresholdFor(timeframe string) float64 {
	if v, ok := a.WaveTrendThresholds[timeframe]; ok {
		return v
	}
	return a.WaveTrendThreshold
}

// redacted копия без секретов для отладочного лога
func (c *Config) redacted() Config {
	out := *c
	mask := func(s string) string {
		if s == "" {
			return ""
		}
		return "***"
	}
	out.Binance.APIKey = mask(out.Binance.APIKey)
	out.Binance.APISecret = mask(out.Binance.APISecret)
	out.Storage.Ledger.Redis.Password = mask(out.Storage.Ledger.Redis.Password)
	out.Storage.Influx.Token = mask(out.Storage.Influx.Token)
	out.Notify.Discord.WebhookURL = mask(out.Notify.Discord.WebhookURL)
	out.Notify.Telegram.BotToken = mask(out.Notify.Telegram.BotToken)
	return out
}
