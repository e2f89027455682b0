package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// loadDotEnv загружает .env, если он есть. Уже заданные переменные не перезаписываются.
func loadDotEnv(path string) error {
	if path == "" {
		path = ".env"
	}
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return godotenv.Load(path)
}

// applyEnv переопределяет секреты и списки из окружения
func applyEnv(cfg *Config) error {
	setString(&cfg.Binance.APIKey, "BINANCE_API_KEY")
	setString(&cfg.Binance.APISecret, "BINANCE_API_SECRET")
	setString(&cfg.Notify.Discord.WebhookURL, "DISCORD_WEBHOOK_URL")
	setString(&cfg.Notify.Telegram.BotToken, "TELEGRAM_BOT_TOKEN")
	setString(&cfg.Notify.Telegram.ChatID, "TELEGRAM_CHAT_ID")
	setString(&cfg.Storage.Ledger.Type, "LEDGER_STORE")
	setString(&cfg.Storage.Ledger.Redis.Addr, "REDIS_ADDR")
	setString(&cfg.Storage.Ledger.Redis.Password, "REDIS_PASSWORD")
	setString(&cfg.Storage.Influx.Token, "INFLUXDB_TOKEN")
	setString(&cfg.Metrics.Addr, "METRICS_ADDR")
	setString(&cfg.Log.Level, "LOG_LEVEL")

	if v, ok := os.LookupEnv("SYMBOLS_TO_CHECK"); ok {
		cfg.Watch.Symbols = splitList(v)
	}
	if v, ok := os.LookupEnv("TIMEFRAMES_TO_CHECK"); ok {
		cfg.Watch.Timeframes = splitList(v)
	}

	if cfg.Alerts.Rules == nil {
		cfg.Alerts.Rules = make(map[string]bool)
	}
	for rule, name := range ruleEnv {
		v, ok := os.LookupEnv(name)
		if !ok {
			continue
		}
		on, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("переменная %s: %w", name, err)
		}
		cfg.Alerts.Rules[string(rule)] = on
	}
	return nil
}

func setString(dst *string, name string) {
	if v, ok := os.LookupEnv(name); ok && v != "" {
		*dst = v
	}
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// TimeframeDuration переводит интервал Binance (15m, 1h, 1d, 1w) в длительность.
// Месячный интервал считается за 30 дней.
func TimeframeDuration(tf string) (time.Duration, error) {
	if len(tf) < 2 {
		return 0, fmt.Errorf("некорректный таймфрейм %q", tf)
	}
	n, err := strconv.Atoi(tf[:len(tf)-1])
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("некорректный таймфрейм %q", tf)
	}

	var unit time.Duration
	switch tf[len(tf)-1] {
	case 'm':
		unit = time.Minute
	case 'h':
		unit = time.Hour
	case 'd':
		unit = 24 * time.Hour
	case 'w':
		unit = 7 * 24 * time.Hour
	case 'M':
		unit = 30 * 24 * time.Hour
	default:
		return 0, fmt.Errorf("некорректный таймфрейм %q", tf)
	}
	return time.Duration(n) * unit, nil
}
