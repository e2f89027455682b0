package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/skalibog/sigwatch/pkg/models"
)

const discordDefaultColor = 10070709

// цвета embed по классу акцента
var discordColors = map[string]int{
	"bg-red-500":     15158332,
	"bg-red-600":     15158332,
	"bg-green-500":   3066993,
	"bg-green-600":   3066993,
	"bg-sky-500":     3581519,
	"bg-purple-500":  10181046,
	"bg-cyan-500":    1420087,
	"bg-blue-500":    3447003,
	"bg-amber-500":   16753920,
	"bg-amber-600":   16753920,
	"bg-fuchsia-500": 14550272,
	"bg-yellow-500":  15844367,
	"bg-slate-500":   6724016,
	"bg-indigo-500":  6373356,
	"bg-teal-500":    1356708,
	"bg-orange-500":  16753920,
	"bg-orange-600":  16753920,
	"bg-cyan-400":    2523880,
	"bg-sky-400":     5981938,
	"bg-rose-500":    15883392,
	"bg-gray-500":    discordDefaultColor,
}

// DiscordColor цвет embed для акцента, серый для неизвестных
func DiscordColor(accent string) int {
	if c, ok := discordColors[accent]; ok {
		return c
	}
	return discordDefaultColor
}

type discordEmbed struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Color       int    `json:"color"`
	Timestamp   string `json:"timestamp"`
}

type discordPayload struct {
	Embeds []discordEmbed `json:"embeds"`
}

// DiscordNotifier отправляет сигналы в вебхук Discord
type DiscordNotifier struct {
	client     *http.Client
	webhookURL string
}

// NewDiscordNotifier создает отправителя в Discord
func NewDiscordNotifier(client *http.Client, webhookURL string) *DiscordNotifier {
	return &DiscordNotifier{client: client, webhookURL: webhookURL}
}

func (n *DiscordNotifier) Name() string { return "discord" }

func (n *DiscordNotifier) Send(ctx context.Context, e models.SignalEvent) error {
	body, err := json.Marshal(discordPayload{Embeds: []discordEmbed{{
		Title:       e.Title,
		Description: e.Body,
		Color:       DiscordColor(e.Accent),
		Timestamp:   e.FiredAt().Format("2006-01-02T15:04:05.000Z07:00"),
	}}})
	if err != nil {
		return fmt.Errorf("discord: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("discord: создание запроса: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("discord: отправка: %w", err)
	}
	defer resp.Body.Close()
	return checkStatus("discord", resp)
}
