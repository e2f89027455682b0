package divergence

import (
	"github.com/skalibog/sigwatch/internal/analysis/series"
)

// Pivot локальный экстремум ряда
type Pivot struct {
	Index int
	Value float64
	Time  int64
}

// FindPivots ищет локальные максимумы (isHigh) или минимумы ряда.
// Слева сравнение нестрогое, справа строгое: из серии равных значений пивотом
// считается самое правое, а свежий бар не подтверждается раньше времени.
// Точка без значения в окне исключает кандидата.
func FindPivots(s series.Series, left, right int, isHigh bool) []Pivot {
	if len(s) < left+right+1 {
		return nil
	}

	var pivots []Pivot
	for i := left; i < len(s)-right; i++ {
		p := s[i]
		if !p.Valid {
			continue
		}
		if isPivot(s, i, left, right, isHigh) {
			pivots = append(pivots, Pivot{Index: i, Value: p.Value, Time: p.Time})
		}
	}
	return pivots
}

func isPivot(s series.Series, i, left, right int, isHigh bool) bool {
	cur := s[i].Value
	for j := 1; j <= left; j++ {
		q := s[i-j]
		if !q.Valid {
			return false
		}
		if (isHigh && q.Value > cur) || (!isHigh && q.Value < cur) {
			return false
		}
	}
	for j := 1; j <= right; j++ {
		q := s[i+j]
		if !q.Valid {
			return false
		}
		if (isHigh && q.Value >= cur) || (!isHigh && q.Value <= cur) {
			return false
		}
	}
	return true
}

// FindClosestPivot возвращает ближайший по индексу пивот не дальше maxBarsApart.
// При равном расстоянии побеждает найденный первым.
func FindClosestPivot(p Pivot, candidates []Pivot, maxBarsApart int) (Pivot, bool) {
	var closest Pivot
	found := false
	best := maxBarsApart + 1
	for _, c := range candidates {
		diff := p.Index - c.Index
		if diff < 0 {
			diff = -diff
		}
		if diff <= maxBarsApart && diff < best {
			best = diff
			closest = c
			found = true
		}
	}
	return closest, found
}
