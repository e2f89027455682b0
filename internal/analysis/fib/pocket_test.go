package fib

import (
	"math"
	"testing"

	"github.com/skalibog/sigwatch/pkg/models"
)

func legCandles(from, to float64, n int) []models.Candle {
	out := make([]models.Candle, n)
	step := (to - from) / float64(n-1)
	for i := range out {
		p := from + step*float64(i)
		out[i] = models.Candle{Time: int64(i) * 60_000, Open: p, High: p + 1, Low: p - 1, Close: p}
	}
	return out
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestPocket_UpLeg(t *testing.T) {
	candles := legCandles(100, 200, 100)
	z, ok := Pocket(candles, DefaultLookback, DefaultLo, DefaultHi)
	if !ok {
		t.Fatal("expected zone")
	}
	if z.Leg != LegUp {
		t.Fatalf("leg = %s", z.Leg)
	}
	// диапазон 99..201
	if !almostEqual(z.Top, 201-0.618*102) || !almostEqual(z.Bottom, 201-0.65*102) {
		t.Fatalf("unexpected zone %+v", z)
	}
	if !z.Contains((z.Top+z.Bottom)/2) || z.Contains(z.Top+0.01) || z.Contains(z.Bottom-0.01) {
		t.Fatalf("Contains is wrong for %+v", z)
	}
}

func TestPocket_DownLeg(t *testing.T) {
	candles := legCandles(200, 100, 100)
	z, ok := Pocket(candles, DefaultLookback, DefaultLo, DefaultHi)
	if !ok || z.Leg != LegDown {
		t.Fatalf("expected down leg, got %+v %v", z, ok)
	}
	if !almostEqual(z.Bottom, 99+0.618*102) || !almostEqual(z.Top, 99+0.65*102) {
		t.Fatalf("unexpected zone %+v", z)
	}
	if z.Bottom > z.Top {
		t.Fatal("bottom above top")
	}
}

func TestPocket_UsesTrailingWindow(t *testing.T) {
	// старый минимум вне окна не учитывается
	candles := append(legCandles(10, 10, 20), legCandles(100, 200, 50)...)
	for i := range candles {
		candles[i].Time = int64(i) * 60_000
	}
	z, ok := Pocket(candles, 50, DefaultLo, DefaultHi)
	if !ok || z.SwingLow != 99 {
		t.Fatalf("got %+v %v", z, ok)
	}
}

func TestPocket_Degenerate(t *testing.T) {
	if _, ok := Pocket(legCandles(100, 200, 10), DefaultLookback, DefaultLo, DefaultHi); ok {
		t.Fatal("short input must not produce a zone")
	}

	flat := legCandles(100, 100, 100)
	for i := range flat {
		flat[i].High, flat[i].Low = 100, 100
	}
	if _, ok := Pocket(flat, DefaultLookback, DefaultLo, DefaultHi); ok {
		t.Fatal("flat input must not produce a zone")
	}
}
