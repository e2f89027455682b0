package series

import (
	"math"

	"github.com/skalibog/sigwatch/pkg/models"
)

// SMA скользящая средняя по последним length точкам.
// Пропуски внутри окна не ломают расчет: среднее берется по валидным точкам окна.
// Окно без единой валидной точки, как и первые length-1 баров, дает "нет значения".
func SMA(s Series, length int) Series {
	out := make(Series, len(s))
	for i, p := range s {
		out[i] = Point{Time: p.Time}
	}
	if length <= 0 || len(s) < length {
		return out
	}

	for i := length - 1; i < len(s); i++ {
		var sum float64
		n := 0
		for _, p := range s[i-length+1 : i+1] {
			if p.Valid {
				sum += p.Value
				n++
			}
		}
		if n == 0 {
			continue
		}
		out[i].Value = sum / float64(n)
		out[i].Valid = true
	}
	return out
}

// MeanTail строгое среднее по последним min(len, length) значениям.
// Используется для затравки индикаторов: пустой вход дает нейтральный 0.
func MeanTail(values []float64, length int) float64 {
	n := min(len(values), length)
	if n < 1 {
		return 0
	}
	var sum float64
	for _, v := range values[len(values)-n:] {
		sum += v
	}
	return sum / float64(n)
}

// Stdev стандартное отклонение генеральной совокупности по последним
// min(len, length) значениям. Пустой вход дает 0.
func Stdev(values []float64, length int) float64 {
	n := min(len(values), length)
	if n < 1 {
		return 0
	}
	tail := values[len(values)-n:]
	mean := MeanTail(tail, n)
	var variance float64
	for _, v := range tail {
		variance += (v - mean) * (v - mean)
	}
	variance /= float64(n)
	if math.IsNaN(variance) {
		return 0
	}
	return math.Sqrt(variance)
}

// EMA экспоненциальная средняя, alpha = 2/(length+1).
// Затравка - первое валидное значение. После затравки пропуск во входе
// удерживает предыдущее значение EMA.
func EMA(s Series, length int) Series {
	out := make(Series, len(s))
	alpha := 2 / float64(length+1)

	seeded := false
	var prev float64
	for i, p := range s {
		out[i] = Point{Time: p.Time}
		switch {
		case !seeded && !p.Valid:
			continue
		case !seeded:
			prev = p.Value
			seeded = true
		case p.Valid:
			prev = alpha*p.Value + (1-alpha)*prev
		}
		out[i].Value = prev
		out[i].Valid = true
	}
	return out
}

// TrueRange истинный диапазон бара i: max(h-l, |h-pc|, |l-pc|), где h/l - экстремумы
// последних dataLength баров, а pc - закрытие на dataLength+1 баров раньше.
func TrueRange(candles []models.Candle, i, dataLength int) (float64, bool) {
	if dataLength < 1 {
		dataLength = 1
	}
	back := dataLength + 1
	if i < back || i >= len(candles) {
		return 0, false
	}

	h := candles[i].High
	l := candles[i].Low
	for _, c := range candles[i-dataLength+1 : i+1] {
		h = math.Max(h, c.High)
		l = math.Min(l, c.Low)
	}
	prevClose := candles[i-back].Close

	return math.Max(h-l, math.Max(math.Abs(h-prevClose), math.Abs(l-prevClose))), true
}
