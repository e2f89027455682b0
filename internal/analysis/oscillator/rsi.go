// Package oscillator реализует осцилляторы поверх примитивов series:
// RSI, Stochastic RSI, WaveTrend и KiwiHunt (Ehlers EOT).
package oscillator

import (
	"github.com/skalibog/sigwatch/internal/analysis/series"
	"github.com/skalibog/sigwatch/pkg/models"
)

// DefaultRSILength стандартный период RSI
const DefaultRSILength = 14

// RSI рассчитывает индекс относительной силы со сглаживанием Уайлдера.
// Первое значение появляется на свече length: средние прироста и падения берутся
// как арифметическое среднее первых length изменений. При нулевом среднем падении RSI = 100.
func RSI(candles []models.Candle, length int) series.Series {
	out := series.Empty(candles)
	if length <= 0 || len(candles) <= length {
		return out
	}

	var avgGain, avgLoss float64
	for i := 1; i <= length; i++ {
		gain, loss := change(candles[i-1].Close, candles[i].Close)
		avgGain += gain
		avgLoss += loss
	}
	p := float64(length)
	avgGain /= p
	avgLoss /= p
	out[length].Value = rsiValue(avgGain, avgLoss)
	out[length].Valid = true

	for i := length + 1; i < len(candles); i++ {
		gain, loss := change(candles[i-1].Close, candles[i].Close)
		avgGain = (avgGain*(p-1) + gain) / p
		avgLoss = (avgLoss*(p-1) + loss) / p
		out[i].Value = rsiValue(avgGain, avgLoss)
		out[i].Valid = true
	}
	return out
}

func change(prev, cur float64) (gain, loss float64) {
	d := cur - prev
	if d > 0 {
		return d, 0
	}
	return 0, -d
}

// rsiValue RS = +Inf при нулевом падении, поэтому RSI = 100
func rsiValue(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}
