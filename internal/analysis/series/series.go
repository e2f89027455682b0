// Package series содержит примитивы над временными рядами, выровненными по свечам.
//
// Каждая точка несет время свечи, поэтому ряды с разным прогревом
// сопоставляются по времени, а не по вычисленным смещениям индексов.
package series

import (
	"fmt"
	"math"

	"github.com/markcheno/go-talib"
	"github.com/skalibog/sigwatch/pkg/models"
)

// Point значение ряда в момент Time. Valid == false означает "нет значения".
type Point struct {
	Time  int64
	Value float64
	Valid bool
}

// Series упорядоченный по времени ряд
type Series []Point

// Empty создает ряд без значений на временах свечей
func Empty(candles []models.Candle) Series {
	out := make(Series, len(candles))
	for i, c := range candles {
		out[i] = Point{Time: c.Time}
	}
	return out
}

// FromCandles строит ряд из поля свечи
func FromCandles(candles []models.Candle, field func(models.Candle) float64) Series {
	out := make(Series, len(candles))
	for i, c := range candles {
		out[i] = Point{Time: c.Time, Value: field(c), Valid: true}
	}
	return out
}

// Closes ряд цен закрытия
func Closes(candles []models.Candle) Series {
	return FromCandles(candles, func(c models.Candle) float64 { return c.Close })
}

// HLC3 ряд (high+low+close)/3
func HLC3(candles []models.Candle) Series {
	return FromCandles(candles, models.Candle.HLC3)
}

// Map применяет fn к каждой валидной точке; fn может объявить результат невалидным
func (s Series) Map(fn func(i int, v float64) (float64, bool)) Series {
	out := make(Series, len(s))
	for i, p := range s {
		out[i] = Point{Time: p.Time}
		if !p.Valid {
			continue
		}
		v, ok := fn(i, p.Value)
		if ok && !math.IsNaN(v) && !math.IsInf(v, 0) {
			out[i].Value = v
			out[i].Valid = true
		}
	}
	return out
}

// Values возвращает значения валидных точек по порядку
func (s Series) Values() []float64 {
	out := make([]float64, 0, len(s))
	for _, p := range s {
		if p.Valid {
			out = append(out, p.Value)
		}
	}
	return out
}

// ValidCount количество валидных точек
func (s Series) ValidCount() int {
	n := 0
	for _, p := range s {
		if p.Valid {
			n++
		}
	}
	return n
}

// Last возвращает точку, отстоящую на back баров от конца (0 - последняя)
func (s Series) Last(back int) (Point, bool) {
	i := len(s) - 1 - back
	if i < 0 || i >= len(s) {
		return Point{}, false
	}
	return s[i], s[i].Valid
}

// LastPair возвращает предпоследнее и последнее значения, если оба валидны
func (s Series) LastPair() (prev, last float64, ok bool) {
	lp, ok1 := s.Last(0)
	pp, ok2 := s.Last(1)
	if !ok1 || !ok2 {
		return 0, 0, false
	}
	return pp.Value, lp.Value, true
}

// At ищет точку по времени. Ряды упорядочены, поэтому используется бинарный поиск.
func (s Series) At(t int64) (Point, bool) {
	lo, hi := 0, len(s)
	for lo < hi {
		mid := (lo + hi) / 2
		if s[mid].Time < t {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	if lo < len(s) && s[lo].Time == t {
		return s[lo], true
	}
	return Point{}, false
}

// Align переносит значения other на времена base. Времена, которых нет в other,
// получают "нет значения".
func Align(base, other Series) Series {
	out := make(Series, len(base))
	for i, p := range base {
		out[i] = Point{Time: p.Time}
		if q, ok := other.At(p.Time); ok && q.Valid {
			out[i].Value = q.Value
			out[i].Valid = true
		}
	}
	return out
}

// Compact отбрасывает точки без значения
func (s Series) Compact() Series {
	out := make(Series, 0, len(s))
	for _, p := range s {
		if p.Valid {
			out = append(out, p)
		}
	}
	return out
}

// MustAlign проверяет, что ряд построен по тем же свечам.
// Несовпадение - ошибка программиста, а не данных.
func MustAlign(name string, s Series, candles []models.Candle) {
	if len(s) != len(candles) {
		panic(fmt.Sprintf("series %s: длина %d != %d свечей", name, len(s), len(candles)))
	}
	for i := range s {
		if s[i].Time != candles[i].Time {
			panic(fmt.Sprintf("series %s: время точки %d не совпадает со свечой", name, i))
		}
	}
}

// PriceSMA простая скользящая средняя цены закрытия.
// Цены не содержат пропусков, поэтому расчет отдается talib.
func PriceSMA(candles []models.Candle, length int) Series {
	out := Empty(candles)
	if length <= 0 || len(candles) < length {
		return out
	}
	closes := make([]float64, len(candles))
	for i, c := range candles {
		closes[i] = c.Close
	}
	sma := talib.Sma(closes, length)
	for i := length - 1; i < len(candles); i++ {
		out[i].Value = sma[i]
		out[i].Valid = true
	}
	return out
}
