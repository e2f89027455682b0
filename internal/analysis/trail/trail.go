// Package trail реализует статистический трейлинг-стоп: уровень отстоит от hlc3
// на delta = exp(mean + 2*stdev) распределения логарифма true range.
package trail

import (
	"math"

	"github.com/skalibog/sigwatch/internal/analysis/series"
	"github.com/skalibog/sigwatch/pkg/models"
)

// Bias направление трейла
type Bias int

const (
	Bearish Bias = iota
	Bullish
)

func (b Bias) String() string {
	if b == Bullish {
		return "bullish"
	}
	return "bearish"
}

// Параметры по умолчанию
const (
	DefaultDataLength         = 1
	DefaultDistributionLength = 10
)

// State состояние трейла на одном проходе по истории
type State struct {
	Bias  Bias
	Delta float64
	Level float64
}

// Point состояние трейла после бара Time. Tracked == false - трейл еще не инициализирован.
type Point struct {
	Time    int64
	Bias    Bias
	Level   float64
	Tracked bool
}

// Compute выполняет один проход по свечам и возвращает состояние после каждого бара.
// Длина результата всегда равна длине входа.
func Compute(candles []models.Candle, dataLength, distributionLength int) []Point {
	out := make([]Point, len(candles))
	for i, c := range candles {
		out[i] = Point{Time: c.Time}
	}
	if len(candles) < distributionLength+dataLength+2 {
		return out
	}

	logTR := make(series.Series, len(candles))
	for i, c := range candles {
		logTR[i] = series.Point{Time: c.Time}
		if tr, ok := series.TrueRange(candles, i, dataLength); ok && tr > 0 {
			logTR[i].Value = math.Log(tr)
			logTR[i].Valid = true
		}
	}

	var st *State
	for i := distributionLength - 1; i < len(candles); i++ {
		window := logTR[i-distributionLength+1 : i+1].Values()

		var delta float64
		switch {
		case len(window) > 1:
			mean := series.MeanTail(window, distributionLength)
			std := series.Stdev(window, distributionLength)
			delta = math.Exp(mean + 2*std)
		case st != nil:
			delta = st.Delta
		default:
			continue
		}

		c := candles[i]
		hlc3 := c.HLC3()
		if st == nil {
			st = &State{Bias: Bearish, Level: hlc3 + delta}
		}
		st.step(c.Close, hlc3, delta)

		out[i].Bias = st.Bias
		out[i].Level = st.Level
		out[i].Tracked = true
	}
	return out
}

// step один шаг храповика: переворот при пробое уровня, иначе подтягивание уровня
func (s *State) step(price, hlc3, delta float64) {
	s.Delta = delta
	lower := math.Max(hlc3-delta, 0)
	upper := hlc3 + delta

	flip := (s.Bias == Bearish && price >= s.Level) || (s.Bias == Bullish && price <= s.Level)
	switch {
	case flip && s.Bias == Bearish:
		s.Bias = Bullish
		s.Level = lower
	case flip:
		s.Bias = Bearish
		s.Level = upper
	case s.Bias == Bearish:
		s.Level = math.Min(s.Level, upper)
	default:
		s.Level = math.Max(s.Level, lower)
	}
}

// Flip сообщает о смене направления между двумя последними барами.
// Оба бара должны быть отслежены, иначе переворота нет.
func Flip(points []Point) (to Bias, ok bool) {
	if len(points) < 2 {
		return 0, false
	}
	prev, last := points[len(points)-2], points[len(points)-1]
	if !prev.Tracked || !last.Tracked || prev.Bias == last.Bias {
		return 0, false
	}
	return last.Bias, true
}
