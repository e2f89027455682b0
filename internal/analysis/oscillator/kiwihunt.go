package oscillator

import (
	"math"

	"github.com/skalibog/sigwatch/internal/analysis/series"
	"github.com/skalibog/sigwatch/pkg/models"
)

// KiwiParams параметры осциллятора KiwiHunt (Ehlers Early Onset Trend)
type KiwiParams struct {
	// HighPassPeriod период среза фильтра верхних частот
	HighPassPeriod float64
	FastPeriod     float64
	FastK          float64
	SlowPeriod     float64
	SlowK          float64
	TriggerLen     int
	// MinBars меньше этого количества свечей осциллятор недоступен
	MinBars int
}

// DefaultKiwiParams быстрая линия 6/0, медленная 27/0.8
var DefaultKiwiParams = KiwiParams{
	HighPassPeriod: 100,
	FastPeriod:     6,
	FastK:          0,
	SlowPeriod:     27,
	SlowK:          0.8,
	TriggerLen:     2,
	MinBars:        50,
}

const (
	peakDecay  = 0.991
	kiwiScale  = 60
	kiwiOffset = 50
)

// KiwiLines линии осциллятора в шкале ~0..100
type KiwiLines struct {
	Q1      series.Series
	Trigger series.Series
	Q3      series.Series
}

// KiwiHunt рассчитывает Q1, Trigger = SMA(Q1) и Q3.
// При недостатке истории возвращает ok == false: осциллятор не считается, а не заполняется нулями.
func KiwiHunt(candles []models.Candle, p KiwiParams) (KiwiLines, bool) {
	if len(candles) < p.MinBars {
		return KiwiLines{}, false
	}

	closes := make([]float64, len(candles))
	for i, c := range candles {
		closes[i] = c.Close
	}
	hp := highPass(closes, p.HighPassPeriod)

	q1 := scaled(candles, eot(hp, p.FastPeriod, p.FastK))
	q3 := scaled(candles, eot(hp, p.SlowPeriod, p.SlowK))

	return KiwiLines{
		Q1:      q1,
		Trigger: series.SMA(q1, p.TriggerLen),
		Q3:      q3,
	}, true
}

// highPass двухполюсный рекурсивный фильтр верхних частот
func highPass(closes []float64, period float64) []float64 {
	out := make([]float64, len(closes))
	arg := 0.707 * 2 * math.Pi / period
	alpha := (math.Cos(arg) + math.Sin(arg) - 1) / math.Cos(arg)
	a := (1 - alpha/2) * (1 - alpha/2)
	b := 2 * (1 - alpha)
	c := (1 - alpha) * (1 - alpha)

	for i := 2; i < len(closes); i++ {
		out[i] = a*(closes[i]-2*closes[i-1]+closes[i-2]) + b*out[i-1] - c*out[i-2]
	}
	return out
}

// eot Super Smoother поверх high-pass, нормировка затухающим пиком и AGC-преобразование
func eot(hp []float64, period, k float64) []float64 {
	a1 := math.Exp(-1.414 * math.Pi / period)
	b1 := 2 * a1 * math.Cos(1.414*math.Pi/period)
	c2 := b1
	c3 := -a1 * a1
	c1 := 1 - c2 - c3

	filt := make([]float64, len(hp))
	out := make([]float64, len(hp))
	var peak float64
	for i := range hp {
		var prevHP, f1, f2 float64
		if i >= 1 {
			prevHP = hp[i-1]
			f1 = filt[i-1]
		}
		if i >= 2 {
			f2 = filt[i-2]
		}
		filt[i] = c1*(hp[i]+prevHP)/2 + c2*f1 + c3*f2

		peak = math.Max(math.Abs(filt[i]), peakDecay*peak)
		x := 0.0
		if peak != 0 {
			x = filt[i] / peak
		}

		denom := k*x + 1
		if denom == 0 {
			out[i] = 0
			continue
		}
		out[i] = (x + k) / denom
	}
	return out
}

func scaled(candles []models.Candle, q []float64) series.Series {
	out := make(series.Series, len(candles))
	for i, c := range candles {
		out[i] = series.Point{Time: c.Time, Value: q[i]*kiwiScale + kiwiOffset, Valid: true}
	}
	return out
}
