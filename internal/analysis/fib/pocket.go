// Package fib строит зону "золотого кармана" (61.8-65%) по последнему импульсу.
package fib

import (
	"github.com/skalibog/sigwatch/pkg/models"
)

// Leg направление импульса, по которому строится откат
type Leg int

const (
	// LegUp минимум раньше максимума, откат вниз
	LegUp Leg = iota + 1
	// LegDown максимум раньше минимума, откат вверх
	LegDown
)

func (l Leg) String() string {
	switch l {
	case LegUp:
		return "up"
	case LegDown:
		return "down"
	}
	return "none"
}

// Параметры по умолчанию
const (
	DefaultLookback = 100
	DefaultLo       = 0.618
	DefaultHi       = 0.65
)

// Zone зона отката импульса
type Zone struct {
	Leg       Leg
	SwingHigh float64
	SwingLow  float64
	HighTime  int64
	LowTime   int64
	// Bottom <= Top всегда
	Bottom float64
	Top    float64
}

// Contains проверяет, лежит ли цена в зоне (границы включены)
func (z Zone) Contains(price float64) bool {
	return price >= z.Bottom && price <= z.Top
}

// Pocket ищет экстремумы за последние lookback свечей и строит зону откатов lo..hi.
// Если экстремумы на одном баре или диапазон нулевой, зоны нет.
func Pocket(candles []models.Candle, lookback int, lo, hi float64) (Zone, bool) {
	if lookback < 2 || len(candles) < lookback || lo > hi {
		return Zone{}, false
	}

	window := candles[len(candles)-lookback:]
	hiIdx, loIdx := 0, 0
	for i, c := range window {
		if c.High > window[hiIdx].High {
			hiIdx = i
		}
		if c.Low < window[loIdx].Low {
			loIdx = i
		}
	}
	if hiIdx == loIdx {
		return Zone{}, false
	}

	high, low := window[hiIdx].High, window[loIdx].Low
	rng := high - low
	if rng <= 0 {
		return Zone{}, false
	}

	z := Zone{
		SwingHigh: high,
		SwingLow:  low,
		HighTime:  window[hiIdx].Time,
		LowTime:   window[loIdx].Time,
	}
	if loIdx < hiIdx {
		z.Leg = LegUp
		z.Bottom = high - hi*rng
		z.Top = high - lo*rng
	} else {
		z.Leg = LegDown
		z.Bottom = low + lo*rng
		z.Top = low + hi*rng
	}
	return z, true
}
