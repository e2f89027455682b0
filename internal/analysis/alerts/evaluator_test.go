package alerts

import (
	"math"
	"strings"
	"testing"

	"github.com/skalibog/sigwatch/internal/analysis/fib"
	"github.com/skalibog/sigwatch/internal/analysis/oscillator"
	"github.com/skalibog/sigwatch/internal/analysis/series"
	"github.com/skalibog/sigwatch/internal/analysis/technical"
	"github.com/skalibog/sigwatch/internal/analysis/trail"
	"github.com/skalibog/sigwatch/internal/config"
	"github.com/skalibog/sigwatch/internal/ledger"
	"github.com/skalibog/sigwatch/pkg/logger"
	"github.com/skalibog/sigwatch/pkg/models"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

const hour = int64(3_600_000)

func flatCandles(n int, price float64) []models.Candle {
	out := make([]models.Candle, n)
	for i := range out {
		out[i] = models.Candle{
			Time:        int64(i) * hour,
			Open:        price,
			High:        price + 1,
			Low:         price - 1,
			Close:       price,
			Volume:      10,
			QuoteVolume: 100,
		}
	}
	return out
}

// withTail ряд по свечам, в котором заданы только последние значения
func withTail(candles []models.Candle, tail ...float64) series.Series {
	s := series.Empty(candles)
	start := len(s) - len(tail)
	for i, v := range tail {
		s[start+i].Value = v
		s[start+i].Valid = true
	}
	return s
}

func emptyBundle(n int) *technical.Bundle {
	candles := flatCandles(n, 100)
	return &technical.Bundle{
		Candles: candles,
		RSI:     series.Empty(candles),
		RSISMA:  series.Empty(candles),
		StochK:  series.Empty(candles),
		StochD:  series.Empty(candles),
		SMAFast: series.Empty(candles),
		SMASlow: series.Empty(candles),
		WT1:     series.Empty(candles),
		WT2:     series.Empty(candles),
		Trail:   make([]trail.Point, n),
	}
}

func only(rules ...config.Rule) config.RulesConfig {
	m := make(map[config.Rule]bool, len(rules))
	for _, r := range rules {
		m[r] = true
	}
	return config.NewRules(m)
}

func evaluator(rules config.RulesConfig) *Evaluator {
	return NewEvaluator(config.Default().Alerts, rules)
}

func types(events []models.SignalEvent) []models.AlertType {
	out := make([]models.AlertType, len(events))
	for i, e := range events {
		out[i] = e.Type
	}
	return out
}

func TestCooldownBoundary(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	logger.SetLogger(zap.New(core))
	defer logger.SetLogger(zap.NewNop())

	b := emptyBundle(120)
	b.RSI = withTail(b.Candles, 30, 20)

	cooldown := config.Default().Alerts.Cooldown.Milliseconds()
	ev := evaluator(only(config.RuleRSIExtremes))
	l := ledger.New()

	events := ev.Evaluate("BTCUSDT", "1h", b, l, 0)
	if len(events) != 1 || events[0].Type != models.AlertRSIOversold {
		t.Fatalf("first pass: %v", types(events))
	}
	if v, ok := l.Stamp("BTCUSDT-1h-rsi-extreme-oversold"); !ok || v != 0 {
		t.Fatalf("stamp not written: %d %v", v, ok)
	}

	if events := ev.Evaluate("BTCUSDT", "1h", b, l, cooldown-1); len(events) != 0 {
		t.Fatalf("must stay on cooldown, got %v", types(events))
	}
	if logs.FilterMessage("Сигнал на охлаждении").Len() != 1 {
		t.Error("cooldown must be logged")
	}

	events = ev.Evaluate("BTCUSDT", "1h", b, l, cooldown+1)
	if len(events) != 1 {
		t.Fatalf("must re-fire after cooldown, got %v", types(events))
	}
	if v, _ := l.Stamp("BTCUSDT-1h-rsi-extreme-oversold"); v != cooldown+1 {
		t.Fatalf("stamp not refreshed: %d", v)
	}
}

func TestRSIRules(t *testing.T) {
	tests := []struct {
		name string
		rsi  []float64
		sma  []float64
		want []models.AlertType
	}{
		{"overbought cross", []float64{75, 76}, nil, []models.AlertType{models.AlertRSIOverbought}},
		{"already overbought", []float64{76, 80}, nil, nil},
		{"oversold cross", []float64{25, 24.9}, nil, []models.AlertType{models.AlertRSIOversold}},
		{"sma bullish cross", []float64{48, 52}, []float64{50, 50}, []models.AlertType{models.AlertRSISMABullishCross}},
		{"sma bearish cross", []float64{50, 45}, []float64{50, 49}, []models.AlertType{models.AlertRSISMABearishCross}},
		{"no cross", []float64{51, 52}, []float64{50, 50}, nil},
		{"single point", []float64{80}, nil, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := emptyBundle(120)
			b.RSI = withTail(b.Candles, tt.rsi...)
			b.RSISMA = withTail(b.Candles, tt.sma...)
			events := evaluator(only(config.RuleRSIExtremes, config.RuleRSISMACross)).
				Evaluate("ETHUSDT", "4h", b, ledger.New(), 1)
			got := types(events)
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Fatalf("got %v, want %v", got, tt.want)
				}
			}
		})
	}
}

func TestTrailFlip(t *testing.T) {
	b := emptyBundle(120)
	n := len(b.Trail)
	b.Trail[n-2] = trail.Point{Bias: trail.Bearish, Tracked: true}
	b.Trail[n-1] = trail.Point{Bias: trail.Bullish, Tracked: true}

	events := evaluator(only(config.RuleTrailFlip)).Evaluate("BTCUSDT", "1h", b, ledger.New(), 1)
	if len(events) != 1 || events[0].Type != models.AlertTrailBullishFlip {
		t.Fatalf("got %v", types(events))
	}
	e := events[0]
	if e.Title != "BTCUSDT Bot Buys (1h)" || !strings.Contains(e.Body, "$100.0000") {
		t.Errorf("unexpected text %q / %q", e.Title, e.Body)
	}
	if e.Accent != "bg-green-500" || e.Icon != "fa-arrow-trend-up" || e.Time != 1 {
		t.Errorf("unexpected display %+v", e)
	}

	b.Trail[n-1].Bias = trail.Bearish
	b.Trail[n-2].Bias = trail.Bullish
	events = evaluator(only(config.RuleTrailFlip)).Evaluate("BTCUSDT", "1h", b, ledger.New(), 1)
	if len(events) != 1 || events[0].Type != models.AlertTrailBearishFlip {
		t.Fatalf("got %v", types(events))
	}
}

func divergenceBundle() *technical.Bundle {
	const n = 120
	candles := flatCandles(n, 120)
	rsi := make([]float64, n)
	for i := range rsi {
		rsi[i] = 60
	}
	dip := func(c int, low, step float64, dst []float64, price bool) {
		for j := -6; j <= 6; j++ {
			v := low + step*math.Abs(float64(j))
			if price {
				candles[c+j].Low = v
			} else {
				dst[c+j] = v
			}
		}
	}
	for i := range candles {
		candles[i].Low = 120
	}
	dip(60, 100, 2, nil, true)
	dip(100, 90, 2, nil, true)
	dip(60, 30, 3, rsi, false)
	dip(100, 42, 2, rsi, false)

	b := emptyBundle(n)
	b.Candles = candles
	b.RSI = withTail(candles, rsi...)
	return b
}

func TestDivergenceKeyedByPivotTime(t *testing.T) {
	b := divergenceBundle()
	ev := evaluator(only(config.RuleDivergence))
	l := ledger.New()

	// старая дивергенция на охлаждении не мешает новой
	l.SetStamp("BTCUSDT-1h-bullish-divergence-0", 5)

	events := ev.Evaluate("BTCUSDT", "1h", b, l, 10)
	if len(events) != 1 || events[0].Type != models.AlertBullishDivergence {
		t.Fatalf("got %v", types(events))
	}
	if !strings.Contains(events[0].Body, "42.00") {
		t.Errorf("body %q", events[0].Body)
	}
	if _, ok := l.Stamp("BTCUSDT-1h-bullish-divergence-360000000"); !ok {
		t.Fatalf("stamp must be keyed by pivot time, ledger: %v", l.Snapshot())
	}

	if events := ev.Evaluate("BTCUSDT", "1h", b, l, 11); len(events) != 0 {
		t.Fatalf("same pivot must be on cooldown, got %v", types(events))
	}
}

func TestWaveTrendThresholdPerTimeframe(t *testing.T) {
	cfg := config.Default().Alerts
	cfg.WaveTrendThresholds = map[string]float64{"15m": -70}
	ev := NewEvaluator(cfg, only(config.RuleWaveTrend))

	b := emptyBundle(120)
	b.WT1 = withTail(b.Candles, -70, -60)
	b.WT2 = withTail(b.Candles, -65, -64)

	events := ev.Evaluate("BTCUSDT", "1h", b, ledger.New(), 1)
	if len(events) != 1 || events[0].Type != models.AlertWaveTrendConfluence {
		t.Fatalf("1h: got %v", types(events))
	}
	if events[0].Title != "BTCUSDT Cipher Buy Signal (1h)" {
		t.Errorf("title %q", events[0].Title)
	}
	if events := ev.Evaluate("BTCUSDT", "15m", b, ledger.New(), 1); len(events) != 0 {
		t.Fatalf("15m threshold -70 must block, got %v", types(events))
	}
}

func highConvictionBundle() *technical.Bundle {
	b := emptyBundle(120)
	last := len(b.Candles) - 1
	b.Candles[last].QuoteVolume = 95
	b.AvgQuoteVolume = 100
	b.StochK = withTail(b.Candles, 10)
	b.SMAFast = withTail(b.Candles, 99, 99)
	b.SMASlow = withTail(b.Candles, 105, 105)
	b.WT1 = withTail(b.Candles, -60, -58)
	b.WT2 = withTail(b.Candles, -59, -59)
	return b
}

func TestHighConviction(t *testing.T) {
	ev := evaluator(only(config.RuleHighConviction))

	t.Run("deep oversold above sma", func(t *testing.T) {
		events := ev.Evaluate("BTCUSDT", "1h", highConvictionBundle(), ledger.New(), 1)
		if len(events) != 1 || events[0].Type != models.AlertHighConvictionBuy {
			t.Fatalf("got %v", types(events))
		}
	})

	t.Run("timeframe not allowed", func(t *testing.T) {
		if events := ev.Evaluate("BTCUSDT", "15m", highConvictionBundle(), ledger.New(), 1); len(events) != 0 {
			t.Fatalf("got %v", types(events))
		}
	})

	t.Run("volume not confirmed", func(t *testing.T) {
		b := highConvictionBundle()
		b.Candles[len(b.Candles)-1].QuoteVolume = 90
		if events := ev.Evaluate("BTCUSDT", "1h", b, ledger.New(), 1); len(events) != 0 {
			t.Fatalf("got %v", types(events))
		}
	})

	t.Run("stoch too high", func(t *testing.T) {
		b := highConvictionBundle()
		b.StochK = withTail(b.Candles, 25)
		if events := ev.Evaluate("BTCUSDT", "1h", b, ledger.New(), 1); len(events) != 0 {
			t.Fatalf("got %v", types(events))
		}
	})

	t.Run("cross with sma tap", func(t *testing.T) {
		b := highConvictionBundle()
		b.WT2 = withTail(b.Candles, -48, -47)
		b.WT1 = withTail(b.Candles, -49, -45)
		// low 99 касается SMA 99.5, закрытие 100 выше
		b.SMAFast = withTail(b.Candles, 99.5, 99.5)
		events := ev.Evaluate("BTCUSDT", "4h", b, ledger.New(), 1)
		if len(events) != 1 {
			t.Fatalf("got %v", types(events))
		}
	})

	t.Run("cross without sma interaction", func(t *testing.T) {
		b := highConvictionBundle()
		b.WT2 = withTail(b.Candles, -48, -47)
		b.WT1 = withTail(b.Candles, -49, -45)
		b.SMAFast = withTail(b.Candles, 90, 90)
		b.SMASlow = withTail(b.Candles, 90, 90)
		if events := ev.Evaluate("BTCUSDT", "4h", b, ledger.New(), 1); len(events) != 0 {
			t.Fatalf("got %v", types(events))
		}
	})
}

func kiwiBundle(q1, trig []float64, q3 float64) *technical.Bundle {
	b := emptyBundle(120)
	b.HasKiwi = true
	b.Kiwi = oscillator.KiwiLines{
		Q1:      withTail(b.Candles, q1...),
		Trigger: withTail(b.Candles, trig...),
		Q3:      withTail(b.Candles, q3),
	}
	return b
}

func TestKiwiHuntCrosses(t *testing.T) {
	ev := evaluator(only(config.RuleKiwiHunt))

	events := ev.Evaluate("BTCUSDT", "1h", kiwiBundle([]float64{10, 18}, []float64{15, 16}, 30), ledger.New(), 1)
	if len(events) != 1 || events[0].Type != models.AlertKiwiBullishCross {
		t.Fatalf("bullish: got %v", types(events))
	}

	events = ev.Evaluate("BTCUSDT", "1h", kiwiBundle([]float64{90, 82}, []float64{85, 84}, 30), ledger.New(), 1)
	if len(events) != 1 || events[0].Type != models.AlertKiwiBearishCross {
		t.Fatalf("bearish: got %v", types(events))
	}

	// пересечение вне зоны перепроданности
	events = ev.Evaluate("BTCUSDT", "1h", kiwiBundle([]float64{30, 40}, []float64{35, 36}, 30), ledger.New(), 1)
	if len(events) != 0 {
		t.Fatalf("outside band: got %v", types(events))
	}
}

func TestKiwiHuntPullbackFiresOnEntryOnly(t *testing.T) {
	ev := evaluator(only(config.RuleKiwiHunt))
	cooldown := config.Default().Alerts.Cooldown.Milliseconds()
	l := ledger.New()
	in := kiwiBundle([]float64{15, 15}, []float64{15, 15}, 60)
	out := kiwiBundle([]float64{40, 40}, []float64{40, 40}, 60)

	if got := types(ev.Evaluate("BTCUSDT", "1h", in, l, 0)); len(got) != 1 || got[0] != models.AlertKiwiPullback {
		t.Fatalf("entry: got %v", got)
	}
	if got := ev.Evaluate("BTCUSDT", "1h", in, l, 2*cooldown); len(got) != 0 {
		t.Fatalf("still inside: got %v", types(got))
	}
	if got := ev.Evaluate("BTCUSDT", "1h", out, l, 3*cooldown); len(got) != 0 {
		t.Fatalf("exit: got %v", types(got))
	}
	if l.Flag("BTCUSDT-1h-kiwihunt-pullback") {
		t.Fatal("flag must be cleared on exit")
	}
	if got := types(ev.Evaluate("BTCUSDT", "1h", in, l, 4*cooldown)); len(got) != 1 || got[0] != models.AlertKiwiPullback {
		t.Fatalf("re-entry: got %v", got)
	}
}

func TestKiwiHuntContinuation(t *testing.T) {
	ev := evaluator(only(config.RuleKiwiHunt))
	events := ev.Evaluate("BTCUSDT", "1h", kiwiBundle([]float64{55, 60}, []float64{56, 57}, 70), ledger.New(), 1)
	if len(events) != 1 || events[0].Type != models.AlertKiwiContinuation {
		t.Fatalf("got %v", types(events))
	}
}

func TestKiwiHuntUnavailableResetsFlags(t *testing.T) {
	l := ledger.New()
	l.SetFlag("BTCUSDT-1h-kiwihunt-pullback", true)
	events := evaluator(only(config.RuleKiwiHunt)).Evaluate("BTCUSDT", "1h", emptyBundle(120), l, 1)
	if len(events) != 0 || l.Flag("BTCUSDT-1h-kiwihunt-pullback") {
		t.Fatalf("events %v, flag %v", types(events), l.Flag("BTCUSDT-1h-kiwihunt-pullback"))
	}
}

func TestGoldenPocketEntry(t *testing.T) {
	ev := evaluator(only(config.RuleGoldenPocket))
	cooldown := config.Default().Alerts.Cooldown.Milliseconds()
	l := ledger.New()

	b := emptyBundle(120)
	b.HasPocket = true
	b.Pocket = fib.Zone{Leg: fib.LegUp, Bottom: 95, Top: 105}

	if got := types(ev.Evaluate("BTCUSDT", "1h", b, l, 0)); len(got) != 1 || got[0] != models.AlertGoldenPocketBullish {
		t.Fatalf("entry: got %v", got)
	}
	if got := ev.Evaluate("BTCUSDT", "1h", b, l, 2*cooldown); len(got) != 0 {
		t.Fatalf("holding: got %v", types(got))
	}

	b.Pocket.Leg = fib.LegDown
	if got := types(ev.Evaluate("BTCUSDT", "1h", b, l, 3*cooldown)); len(got) != 1 || got[0] != models.AlertGoldenPocketBearish {
		t.Fatalf("bearish leg: got %v", got)
	}
	if l.Flag("BTCUSDT-1h-golden-pocket-bullish") {
		t.Fatal("bullish flag must be cleared when the leg changes")
	}

	b.Pocket = fib.Zone{Leg: fib.LegDown, Bottom: 110, Top: 115}
	ev.Evaluate("BTCUSDT", "1h", b, l, 4*cooldown)
	if l.Flag("BTCUSDT-1h-golden-pocket-bearish") {
		t.Fatal("flag must be cleared outside the zone")
	}
}

func TestDisabledRulesDoNothing(t *testing.T) {
	b := emptyBundle(120)
	b.RSI = withTail(b.Candles, 30, 20)
	b.HasPocket = true
	b.Pocket = fib.Zone{Leg: fib.LegUp, Bottom: 95, Top: 105}
	l := ledger.New()

	events := evaluator(config.NewRules(nil)).Evaluate("BTCUSDT", "1h", b, l, 1)
	if len(events) != 0 || l.Len() != 0 {
		t.Fatalf("events %v, ledger %v", types(events), l.Snapshot())
	}
}

func TestDisplayCoversAllTypes(t *testing.T) {
	for _, at := range models.AllAlertTypes {
		accent, icon := Display(at)
		if accent == "" || icon == "" || accent == "bg-gray-500" {
			t.Errorf("%s has no display", at)
		}
	}
	if accent, _ := Display("unknown"); accent != "bg-gray-500" {
		t.Errorf("fallback accent %q", accent)
	}
}

// scriptedCandles рост, ускоряющееся падение до перепроданности WaveTrend
// и разворот вверх на баре 240
func scriptedCandles() []models.Candle {
	out := make([]models.Candle, 300)
	p := 100.0
	for i := range out {
		switch {
		case i < 200:
			p += 0.5
		case i < 240:
			p -= 0.2 * math.Pow(1.08, float64(i-200))
		default:
			p += 3
		}
		out[i] = models.Candle{
			Time:        int64(i) * hour,
			Open:        p,
			High:        p + 0.4,
			Low:         p - 0.4,
			Close:       p,
			Volume:      1,
			QuoteVolume: p,
		}
	}
	return out
}

func TestEndToEndWaveTrendScenario(t *testing.T) {
	const designedBar = 240

	cfg := config.Default()
	analyzer := technical.NewAnalyzer(cfg.Analysis.Technical)
	ev := NewEvaluator(cfg.Alerts, only(config.RuleWaveTrend))
	l := ledger.New()
	candles := scriptedCandles()

	var fired []int
	for i := cfg.Analysis.Technical.MinCandles - 1; i < len(candles); i++ {
		b, err := analyzer.Compute(candles[:i+1])
		if err != nil {
			t.Fatalf("bar %d: %v", i, err)
		}
		for _, e := range ev.Evaluate("BTCUSDT", "1h", b, l, candles[i].Time+hour) {
			if e.Type != models.AlertWaveTrendConfluence {
				t.Fatalf("bar %d: unexpected %s", i, e.Type)
			}
			fired = append(fired, i)
		}
	}

	if len(fired) != 1 || fired[0] != designedBar {
		t.Fatalf("expected exactly one wavetrend-confluence-buy at bar %d, got %v", designedBar, fired)
	}
}
