package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/skalibog/sigwatch/internal/config"
	"github.com/skalibog/sigwatch/internal/ledger"
	"github.com/skalibog/sigwatch/pkg/models"
)

func sampleLedger() *ledger.Ledger {
	l := ledger.New()
	l.SetStamp(ledger.Key("BTCUSDT", "1h", models.AlertRSIOverbought), 1_700_000_000_000)
	l.SetStamp(ledger.Key("ETHUSDT", "4h", models.AlertBullishDivergence, "1699990000000"), 1_700_000_360_000)
	l.SetFlag(ledger.Key("BTCUSDT", "1h", models.AlertKiwiPullback), true)
	return l
}

func assertSample(t *testing.T, l *ledger.Ledger) {
	t.Helper()
	if ms, ok := l.Stamp(ledger.Key("BTCUSDT", "1h", models.AlertRSIOverbought)); !ok || ms != 1_700_000_000_000 {
		t.Errorf("rsi stamp = %d, %v", ms, ok)
	}
	if ms, ok := l.Stamp(ledger.Key("ETHUSDT", "4h", models.AlertBullishDivergence, "1699990000000")); !ok || ms != 1_700_000_360_000 {
		t.Errorf("divergence stamp = %d, %v", ms, ok)
	}
	if !l.Flag(ledger.Key("BTCUSDT", "1h", models.AlertKiwiPullback)) {
		t.Error("pullback flag lost")
	}
	if l.Len() != 3 {
		t.Errorf("len = %d, want 3", l.Len())
	}
}

func TestFileStore_MissingFile(t *testing.T) {
	s := NewFileStore(filepath.Join(t.TempDir(), "state.json"))
	l, err := s.Load(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if l.Len() != 0 {
		t.Fatalf("expected empty ledger, got %d entries", l.Len())
	}
}

func TestFileStore_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	s := NewFileStore(path)
	ctx := context.Background()

	if err := s.Save(ctx, sampleLedger()); err != nil {
		t.Fatal(err)
	}
	l, err := s.Load(ctx)
	if err != nil {
		t.Fatal(err)
	}
	assertSample(t, l)

	// повторное сохранение перезаписывает файл целиком
	if err := s.Save(ctx, ledger.New()); err != nil {
		t.Fatal(err)
	}
	l, err = s.Load(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if l.Len() != 0 {
		t.Fatalf("expected empty ledger after overwrite, got %d", l.Len())
	}
}

func TestFileStore_Corrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewFileStore(path).Load(context.Background()); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestFileStore_EmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	l, err := NewFileStore(path).Load(context.Background())
	if err != nil || l.Len() != 0 {
		t.Fatalf("got %v entries, err %v", l, err)
	}
}

func TestNewLedgerStore(t *testing.T) {
	s, err := NewLedgerStore(context.Background(), config.LedgerConfig{Type: "file", Path: "x.json"})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := s.(*FileStore); !ok {
		t.Errorf("got %T, want *FileStore", s)
	}
	if _, err := NewLedgerStore(context.Background(), config.LedgerConfig{Type: "etcd"}); err == nil {
		t.Error("unknown store type must fail")
	}
}

func TestNewJournal_Disabled(t *testing.T) {
	if _, err := NewJournal(context.Background(), config.InfluxConfig{}); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}
