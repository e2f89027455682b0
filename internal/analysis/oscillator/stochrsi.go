package oscillator

import (
	"math"

	"github.com/skalibog/sigwatch/internal/analysis/series"
)

// StochRSIParams параметры Stochastic RSI
type StochRSIParams struct {
	StochLength int
	KSmooth     int
	DSmooth     int
}

// DefaultStochRSIParams 14/3/3
var DefaultStochRSIParams = StochRSIParams{StochLength: 14, KSmooth: 3, DSmooth: 3}

// StochRSIResult ряды Stochastic RSI, выровненные по времени свечей исходного RSI
type StochRSIResult struct {
	Stoch series.Series
	K     series.Series
	D     series.Series
}

// StochRSI применяет стохастик к ряду RSI. Расчет идет по валидным точкам RSI,
// результат возвращается на времена входного ряда, поэтому длина сохраняется.
func StochRSI(rsi series.Series, p StochRSIParams) StochRSIResult {
	empty := StochRSIResult{
		Stoch: series.Align(rsi, nil),
		K:     series.Align(rsi, nil),
		D:     series.Align(rsi, nil),
	}
	if p.StochLength <= 0 || p.KSmooth <= 0 || p.DSmooth <= 0 {
		return empty
	}

	valid := rsi.Compact()
	if len(valid) < p.StochLength {
		return empty
	}

	stoch := make(series.Series, 0, len(valid)-p.StochLength+1)
	for i := p.StochLength - 1; i < len(valid); i++ {
		lo, hi := math.Inf(1), math.Inf(-1)
		for _, q := range valid[i-p.StochLength+1 : i+1] {
			lo = math.Min(lo, q.Value)
			hi = math.Max(hi, q.Value)
		}
		v := 0.0
		if hi-lo != 0 {
			v = (valid[i].Value - lo) / (hi - lo) * 100
		}
		stoch = append(stoch, series.Point{Time: valid[i].Time, Value: v, Valid: true})
	}

	// Сглаживание строгое: окна считаются только по полностью заполненным данным
	k := series.SMA(stoch, p.KSmooth).Compact()
	d := series.SMA(k, p.DSmooth).Compact()

	return StochRSIResult{
		Stoch: series.Align(rsi, stoch),
		K:     series.Align(rsi, k),
		D:     series.Align(rsi, d),
	}
}
