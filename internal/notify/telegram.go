package notify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/skalibog/sigwatch/internal/config"
	"github.com/skalibog/sigwatch/pkg/models"
)

const (
	telegramAPIURL       = "https://api.telegram.org"
	telegramDefaultEmoji = "🔔"
)

var telegramEmoji = map[string]string{
	"fa-arrow-trend-up":          "📈",
	"fa-arrow-trend-down":        "📉",
	"fa-angles-up":               "🔼",
	"fa-angles-down":             "🔽",
	"fa-chart-line":              "📊",
	"fa-level-up-alt":            "⤴️",
	"fa-signal":                  "📶",
	"fa-magnet":                  "🧲",
	"fa-wave-square":             "🌊",
	"fa-bolt":                    "⚡️",
	"fa-skull-crossbones":        "☠️",
	"fa-box-archive":             "📦",
	"fa-water":                   "💧",
	"fa-circle-check":            "✅",
	"fa-check-double":            "☑️",
	"fa-water-arrow-up":          "⬆️💧",
	"fa-anchor-circle-up":        "⚓️⬆️",
	"fa-anchor-circle-down":      "⚓️⬇️",
	"fa-gem":                     "💎",
	"fa-arrow-down-to-bracket":   "📥",
	"fa-arrow-up-to-bracket":     "📤",
	"fa-arrow-up-from-bracket":   "⏫",
	"fa-arrow-down-from-bracket": "⏬",
	"fa-rocket":                  "🚀",
	"fa-bolt-lightning":          "⚡️",
	"fa-play-circle":             "▶️",
	"fa-battery-quarter":         "🔋",
	"fa-balance-scale-left":      "⚖️",
	"fa-balance-scale-right":     "⚖️",
	"fa-retweet":                 "🔄",
}

// TelegramEmoji эмодзи для класса иконки
func TelegramEmoji(icon string) string {
	if e, ok := telegramEmoji[icon]; ok {
		return e
	}
	return telegramDefaultEmoji
}

// TelegramText текст сообщения в разметке Markdown
func TelegramText(e models.SignalEvent) string {
	return fmt.Sprintf("*%s %s*\n%s", TelegramEmoji(e.Icon), e.Title, e.Body)
}

// TelegramNotifier отправляет сигналы через Bot API
type TelegramNotifier struct {
	client   *http.Client
	endpoint string
	chatID   string
}

// NewTelegramNotifier создает отправителя в Telegram
func NewTelegramNotifier(client *http.Client, cfg config.TelegramConfig) *TelegramNotifier {
	base := cfg.APIURL
	if base == "" {
		base = telegramAPIURL
	}
	return &TelegramNotifier{
		client:   client,
		endpoint: fmt.Sprintf("%s/bot%s/sendMessage", strings.TrimRight(base, "/"), cfg.BotToken),
		chatID:   cfg.ChatID,
	}
}

func (n *TelegramNotifier) Name() string { return "telegram" }

func (n *TelegramNotifier) Send(ctx context.Context, e models.SignalEvent) error {
	q := url.Values{}
	q.Set("chat_id", n.chatID)
	q.Set("text", TelegramText(e))
	q.Set("parse_mode", "Markdown")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, n.endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return fmt.Errorf("telegram: создание запроса: %w", err)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		// url.Error содержит адрес с токеном бота
		var ue *url.Error
		if errors.As(err, &ue) {
			err = ue.Err
		}
		return fmt.Errorf("telegram: отправка: %w", err)
	}
	defer resp.Body.Close()
	return checkStatus("telegram", resp)
}
