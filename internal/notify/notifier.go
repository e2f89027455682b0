// Package notify доставляет сработавшие сигналы во внешние каналы.
package notify

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/skalibog/sigwatch/internal/config"
	"github.com/skalibog/sigwatch/pkg/logger"
	"github.com/skalibog/sigwatch/pkg/models"
	"go.uber.org/zap"
)

// Notifier канал доставки сигналов
type Notifier interface {
	Name() string
	Send(ctx context.Context, event models.SignalEvent) error
}

// LogNotifier пишет сигналы в лог
type LogNotifier struct{}

func (LogNotifier) Name() string { return "log" }

func (LogNotifier) Send(ctx context.Context, e models.SignalEvent) error {
	logger.Info("Сигнал",
		zap.String("symbol", e.Symbol),
		zap.String("timeframe", e.Timeframe),
		zap.String("type", string(e.Type)),
		zap.String("title", e.Title),
		zap.String("body", e.Body))
	return nil
}

// Dispatcher рассылает сигналы во все каналы. Ошибки доставки
// логируются и не возвращаются вызывающему.
type Dispatcher struct {
	notifiers []Notifier
	timeout   time.Duration
}

// NewDispatcher создает рассыльщик с таймаутом на одну отправку
func NewDispatcher(timeout time.Duration, notifiers ...Notifier) *Dispatcher {
	return &Dispatcher{notifiers: notifiers, timeout: timeout}
}

// FromConfig собирает каналы, для которых заданы реквизиты
func FromConfig(cfg config.NotifyConfig) *Dispatcher {
	client := &http.Client{Timeout: cfg.Timeout}

	var notifiers []Notifier
	if cfg.Log {
		notifiers = append(notifiers, LogNotifier{})
	}
	if cfg.Discord.WebhookURL != "" {
		notifiers = append(notifiers, NewDiscordNotifier(client, cfg.Discord.WebhookURL))
	}
	if cfg.Telegram.BotToken != "" && cfg.Telegram.ChatID != "" {
		notifiers = append(notifiers, NewTelegramNotifier(client, cfg.Telegram))
	}
	return NewDispatcher(cfg.Timeout, notifiers...)
}

// Channels имена подключенных каналов
func (d *Dispatcher) Channels() []string {
	names := make([]string, len(d.notifiers))
	for i, n := range d.notifiers {
		names[i] = n.Name()
	}
	return names
}

// Dispatch отправляет события по порядку и возвращает число неудачных отправок
func (d *Dispatcher) Dispatch(ctx context.Context, events []models.SignalEvent) int {
	failed := 0
	for _, e := range events {
		for _, n := range d.notifiers {
			if err := d.send(ctx, n, e); err != nil {
				failed++
				logger.Error("Ошибка отправки сигнала",
					zap.String("channel", n.Name()),
					zap.String("symbol", e.Symbol),
					zap.String("type", string(e.Type)),
					zap.Error(err))
			}
		}
	}
	return failed
}

func (d *Dispatcher) send(ctx context.Context, n Notifier, e models.SignalEvent) error {
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}
	return n.Send(ctx, e)
}

// checkStatus превращает ответ не из диапазона 2xx в ошибку
func checkStatus(channel string, resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return fmt.Errorf("%s: статус %d: %s", channel, resp.StatusCode, body)
}
