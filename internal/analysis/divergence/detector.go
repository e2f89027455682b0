// Package divergence ищет расхождения между пивотами цены и осциллятора.
package divergence

import (
	"github.com/skalibog/sigwatch/internal/analysis/series"
	"github.com/skalibog/sigwatch/pkg/models"
)

// Detector параметры поиска дивергенций
type Detector struct {
	// Lookback ширина окна пивота с каждой стороны
	Lookback int
	// RangeMin и RangeMax допустимое расстояние между ценовыми пивотами в барах
	RangeMin int
	RangeMax int
	// PivotMatch максимальное расстояние между пивотом цены и пивотом осциллятора
	PivotMatch int
	// BullishMax оба пивота осциллятора должны быть не выше для бычьей дивергенции
	BullishMax float64
	// BearishMin оба пивота осциллятора должны быть не ниже для медвежьей дивергенции
	BearishMin float64
}

// DefaultDetector настройки для RSI
var DefaultDetector = Detector{
	Lookback:   5,
	RangeMin:   5,
	RangeMax:   60,
	PivotMatch: 3,
	BullishMax: 45,
	BearishMin: 55,
}

// Result найденная дивергенция: время и значение сопоставленного свежего пивота осциллятора
type Result struct {
	PivotTime int64
	Value     float64
	PriceFrom Pivot
	PriceTo   Pivot
	OscFrom   Pivot
	OscTo     Pivot
}

// DetectBullish цена обновляет минимум, осциллятор в зоне перепроданности растет
func (d Detector) DetectBullish(candles []models.Candle, osc series.Series) (Result, bool) {
	lows := series.FromCandles(candles, func(c models.Candle) float64 { return c.Low })
	return d.detect(candles, lows, osc, false)
}

// DetectBearish цена обновляет максимум, осциллятор в зоне перекупленности падает
func (d Detector) DetectBearish(candles []models.Candle, osc series.Series) (Result, bool) {
	highs := series.FromCandles(candles, func(c models.Candle) float64 { return c.High })
	return d.detect(candles, highs, osc, true)
}

func (d Detector) detect(candles []models.Candle, price, osc series.Series, isHigh bool) (Result, bool) {
	if len(candles) < d.RangeMax {
		return Result{}, false
	}

	// осциллятор сопоставляется со свечами по времени
	osc = series.Align(price, osc)

	pricePivots := FindPivots(price, d.Lookback, d.Lookback, isHigh)
	oscPivots := FindPivots(osc, d.Lookback, d.Lookback, isHigh)
	if len(pricePivots) < 2 {
		return Result{}, false
	}

	recent := pricePivots[len(pricePivots)-1]
	recentOsc, ok := FindClosestPivot(recent, oscPivots, d.PivotMatch)
	if !ok {
		return Result{}, false
	}

	for i := len(pricePivots) - 2; i >= 0; i-- {
		earlier := pricePivots[i]
		if !d.priceDiverges(earlier, recent, isHigh) {
			continue
		}
		earlierOsc, ok := FindClosestPivot(earlier, oscPivots, d.PivotMatch)
		if !ok || earlierOsc.Time == recentOsc.Time {
			continue
		}
		if !d.oscConfirms(earlierOsc, recentOsc, isHigh) {
			continue
		}
		bars := recent.Index - earlier.Index
		if bars < d.RangeMin || bars > d.RangeMax {
			continue
		}

		return Result{
			PivotTime: recentOsc.Time,
			Value:     recentOsc.Value,
			PriceFrom: earlier,
			PriceTo:   recent,
			OscFrom:   earlierOsc,
			OscTo:     recentOsc,
		}, true
	}
	return Result{}, false
}

// priceDiverges для бычьего случая нужен более низкий минимум, для медвежьего - более высокий максимум
func (d Detector) priceDiverges(earlier, recent Pivot, isHigh bool) bool {
	if isHigh {
		return recent.Value > earlier.Value
	}
	return recent.Value < earlier.Value
}

// oscConfirms осциллятор идет в обратную сторону и оба пивота лежат в экстремальной зоне
func (d Detector) oscConfirms(earlier, recent Pivot, isHigh bool) bool {
	if isHigh {
		return earlier.Value >= d.BearishMin && recent.Value >= d.BearishMin && recent.Value < earlier.Value
	}
	return earlier.Value <= d.BullishMax && recent.Value <= d.BullishMax && recent.Value > earlier.Value
}
