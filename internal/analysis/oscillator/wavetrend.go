package oscillator

import (
	"math"

	"github.com/skalibog/sigwatch/internal/analysis/series"
	"github.com/skalibog/sigwatch/pkg/models"
)

// WaveTrendParams параметры WaveTrend
type WaveTrendParams struct {
	ChannelLen int
	AvgLen     int
	MALen      int
}

// DefaultWaveTrendParams 9/12/3
var DefaultWaveTrendParams = WaveTrendParams{ChannelLen: 9, AvgLen: 12, MALen: 3}

// WaveTrend рассчитывает линии wt1 и wt2.
// hlc3 -> esa = EMA(hlc3) -> de = EMA(|hlc3-esa|) -> ci = (hlc3-esa)/(0.015*de) -> wt1 = EMA(ci), wt2 = SMA(wt1).
func WaveTrend(candles []models.Candle, p WaveTrendParams) (wt1, wt2 series.Series) {
	if len(candles) < p.ChannelLen+p.AvgLen+p.MALen {
		return series.Empty(candles), series.Empty(candles)
	}

	hlc3 := series.HLC3(candles)
	esa := series.EMA(hlc3, p.ChannelLen)
	absDiff := hlc3.Map(func(i int, v float64) (float64, bool) {
		if !esa[i].Valid {
			return 0, false
		}
		return math.Abs(v - esa[i].Value), true
	})
	de := series.EMA(absDiff, p.ChannelLen)

	ci := hlc3.Map(func(i int, v float64) (float64, bool) {
		if !esa[i].Valid || !de[i].Valid {
			return 0, false
		}
		if de[i].Value == 0 {
			return 0, true
		}
		return (v - esa[i].Value) / (0.015 * de[i].Value), true
	})

	wt1 = series.EMA(ci, p.AvgLen)
	wt2 = series.SMA(wt1, p.MALen)
	return wt1, wt2
}

// BullishCross линия a пересекла b снизу вверх между двумя соседними барами
func BullishCross(prevA, prevB, lastA, lastB float64) bool {
	return prevA <= prevB && lastA > lastB
}

// BearishCross линия a пересекла b сверху вниз между двумя соседними барами
func BearishCross(prevA, prevB, lastA, lastB float64) bool {
	return prevA >= prevB && lastA < lastB
}
