package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/skalibog/sigwatch/internal/config"
	"github.com/skalibog/sigwatch/pkg/models"
)

func sampleEvent() models.SignalEvent {
	return models.SignalEvent{
		Type:      models.AlertRSIOverbought,
		Symbol:    "BTCUSDT",
		Timeframe: "1h",
		Title:     "BTCUSDT RSI Overbought (1h)",
		Body:      "RSI is 81.20",
		Accent:    "bg-red-600",
		Icon:      "fa-angles-up",
		Time:      1_700_000_000_000,
	}
}

func TestDiscordColor(t *testing.T) {
	tests := []struct {
		accent string
		want   int
	}{
		{"bg-red-600", 15158332},
		{"bg-green-500", 3066993},
		{"bg-sky-500", 3581519},
		{"bg-rose-500", 15883392},
		{"bg-gray-500", 10070709},
		{"bg-unknown", 10070709},
		{"", 10070709},
	}
	for _, tt := range tests {
		if got := DiscordColor(tt.accent); got != tt.want {
			t.Errorf("DiscordColor(%q) = %d, want %d", tt.accent, got, tt.want)
		}
	}
}

func TestTelegramText(t *testing.T) {
	if got, want := TelegramText(sampleEvent()), "*🔼 BTCUSDT RSI Overbought (1h)*\nRSI is 81.20"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
	e := sampleEvent()
	e.Icon = "fa-does-not-exist"
	if got := TelegramEmoji(e.Icon); got != "🔔" {
		t.Errorf("fallback emoji = %q", got)
	}
}

func TestDiscordNotifier_Send(t *testing.T) {
	var got discordPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("unexpected request %s %s", r.Method, r.Header.Get("Content-Type"))
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Error(err)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	n := NewDiscordNotifier(srv.Client(), srv.URL)
	if err := n.Send(context.Background(), sampleEvent()); err != nil {
		t.Fatal(err)
	}
	if len(got.Embeds) != 1 {
		t.Fatalf("embeds = %d", len(got.Embeds))
	}
	embed := got.Embeds[0]
	if embed.Title != "BTCUSDT RSI Overbought (1h)" || embed.Description != "RSI is 81.20" || embed.Color != 15158332 {
		t.Errorf("embed = %+v", embed)
	}
	if embed.Timestamp != "2023-11-14T22:13:20.000Z" {
		t.Errorf("timestamp = %s", embed.Timestamp)
	}
}

func TestDiscordNotifier_BadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	if err := NewDiscordNotifier(srv.Client(), srv.URL).Send(context.Background(), sampleEvent()); err == nil {
		t.Fatal("expected error on 429")
	}
}

func TestTelegramNotifier_Send(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("method = %s", r.Method)
		}
		if r.URL.Path != "/botTOKEN/sendMessage" {
			t.Errorf("path = %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("chat_id") != "42" || q.Get("parse_mode") != "Markdown" {
			t.Errorf("query = %v", q)
		}
		if q.Get("text") != TelegramText(sampleEvent()) {
			t.Errorf("text = %q", q.Get("text"))
		}
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	n := NewTelegramNotifier(srv.Client(), config.TelegramConfig{BotToken: "TOKEN", ChatID: "42", APIURL: srv.URL + "/"})
	if err := n.Send(context.Background(), sampleEvent()); err != nil {
		t.Fatal(err)
	}
}

type recordingNotifier struct {
	name string
	err  error
	sent []models.SignalEvent
}

func (r *recordingNotifier) Name() string { return r.name }

func (r *recordingNotifier) Send(ctx context.Context, e models.SignalEvent) error {
	if _, ok := ctx.Deadline(); !ok {
		return errors.New("no deadline")
	}
	r.sent = append(r.sent, e)
	return r.err
}

func TestDispatcher_FailuresDoNotStopFanOut(t *testing.T) {
	broken := &recordingNotifier{name: "broken", err: errors.New("down")}
	ok := &recordingNotifier{name: "ok"}
	d := NewDispatcher(time.Second, broken, ok)

	second := sampleEvent()
	second.Symbol = "ETHUSDT"
	failed := d.Dispatch(context.Background(), []models.SignalEvent{sampleEvent(), second})

	if failed != 2 {
		t.Errorf("failed = %d, want 2", failed)
	}
	if len(ok.sent) != 2 || ok.sent[0].Symbol != "BTCUSDT" || ok.sent[1].Symbol != "ETHUSDT" {
		t.Errorf("ok notifier got %+v", ok.sent)
	}
	if len(broken.sent) != 2 {
		t.Errorf("broken notifier attempts = %d", len(broken.sent))
	}
}

func TestFromConfig(t *testing.T) {
	cfg := config.NotifyConfig{
		Timeout:  time.Second,
		Log:      true,
		Discord:  config.DiscordConfig{WebhookURL: "http://discord.invalid/hook"},
		Telegram: config.TelegramConfig{BotToken: "T"},
	}
	got := FromConfig(cfg).Channels()
	// без chat_id Telegram не подключается
	if len(got) != 2 || got[0] != "log" || got[1] != "discord" {
		t.Fatalf("channels = %v", got)
	}
}
