// Package ledger хранит время последнего срабатывания каждого сигнала и флаги состояний.
package ledger

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/skalibog/sigwatch/pkg/models"
)

// flagSuffix суффикс ключа флага "условие уже выполнялось"
const flagSuffix = "-active"

// Key составной ключ symbol-timeframe-type[-discriminator]
func Key(symbol, timeframe string, t models.AlertType, disc ...string) string {
	parts := append([]string{symbol, timeframe, string(t)}, disc...)
	return strings.Join(parts, "-")
}

// FlagKey ключ флага для ключа сигнала
func FlagKey(key string) string {
	return key + flagSuffix
}

// Ledger журнал срабатываний. Безопасен для конкурентного доступа,
// но правила одной пары должны работать с собственным разделом (Partition).
type Ledger struct {
	mu     sync.RWMutex
	prefix string
	stamps map[string]int64
	flags  map[string]bool
}

// New создает пустой журнал
func New() *Ledger {
	return &Ledger{
		stamps: make(map[string]int64),
		flags:  make(map[string]bool),
	}
}

// Stamp время последнего срабатывания в миллисекундах
func (l *Ledger) Stamp(key string) (int64, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	v, ok := l.stamps[key]
	return v, ok
}

// SetStamp записывает время срабатывания
func (l *Ledger) SetStamp(key string, ms int64) {
	l.mu.Lock()
	l.stamps[key] = ms
	l.mu.Unlock()
}

// Flag значение флага состояния, отсутствие - false
func (l *Ledger) Flag(key string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.flags[FlagKey(key)]
}

// SetFlag устанавливает флаг состояния. false удаляет запись.
func (l *Ledger) SetFlag(key string, on bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if on {
		l.flags[FlagKey(key)] = true
		return
	}
	delete(l.flags, FlagKey(key))
}

// CanFire true, если сигнал еще не срабатывал или с прошлого раза прошло больше cooldown
func (l *Ledger) CanFire(key string, now int64, cooldown time.Duration) bool {
	last, ok := l.Stamp(key)
	return !ok || now-last > cooldown.Milliseconds()
}

// Prune удаляет метки, которые уже не могут заблокировать срабатывание
// (с момента срабатывания прошло больше cooldown). Флаги не трогает.
// Возвращает количество удаленных меток.
func (l *Ledger) Prune(now int64, cooldown time.Duration) int {
	limit := cooldown.Milliseconds()
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for k, v := range l.stamps {
		if now-v > limit {
			delete(l.stamps, k)
			n++
		}
	}
	return n
}

// Len количество записей
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.stamps) + len(l.flags)
}

func partitionPrefix(symbol, timeframe string) string {
	return symbol + "-" + timeframe + "-"
}

// Partition копия записей одной пары symbol/timeframe
func (l *Ledger) Partition(symbol, timeframe string) *Ledger {
	prefix := partitionPrefix(symbol, timeframe)
	p := New()
	p.prefix = prefix

	l.mu.RLock()
	defer l.mu.RUnlock()
	for k, v := range l.stamps {
		if strings.HasPrefix(k, prefix) {
			p.stamps[k] = v
		}
	}
	for k, v := range l.flags {
		if strings.HasPrefix(k, prefix) {
			p.flags[k] = v
		}
	}
	return p
}

// Merge заменяет раздел пары содержимым p. Ключи вне раздела p игнорируются.
func (l *Ledger) Merge(p *Ledger) {
	if p.prefix == "" {
		panic("ledger: Merge принимает только раздел, полученный через Partition")
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	l.mu.Lock()
	defer l.mu.Unlock()

	for k := range l.stamps {
		if strings.HasPrefix(k, p.prefix) {
			delete(l.stamps, k)
		}
	}
	for k := range l.flags {
		if strings.HasPrefix(k, p.prefix) {
			delete(l.flags, k)
		}
	}
	for k, v := range p.stamps {
		if strings.HasPrefix(k, p.prefix) {
			l.stamps[k] = v
		}
	}
	for k, v := range p.flags {
		if strings.HasPrefix(k, p.prefix) {
			l.flags[k] = v
		}
	}
}

// Snapshot плоская карта для сохранения: метки времени int64, флаги bool
func (l *Ledger) Snapshot() map[string]any {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make(map[string]any, len(l.stamps)+len(l.flags))
	for k, v := range l.stamps {
		out[k] = v
	}
	for k, v := range l.flags {
		out[k] = v
	}
	return out
}

// FromMap восстанавливает журнал из плоской карты. Понимает числа из JSON,
// json.Number и строки (так значения приходят из Redis).
func FromMap(m map[string]any) (*Ledger, error) {
	l := New()
	for k, raw := range m {
		switch v := raw.(type) {
		case bool:
			l.setRaw(k, v)
		case int64:
			l.stamps[k] = v
		case int:
			l.stamps[k] = int64(v)
		case float64:
			l.stamps[k] = int64(v)
		case json.Number:
			n, err := v.Int64()
			if err != nil {
				return nil, fmt.Errorf("ledger: ключ %s: %w", k, err)
			}
			l.stamps[k] = n
		case string:
			if err := l.parseString(k, v); err != nil {
				return nil, err
			}
		default:
			return nil, fmt.Errorf("ledger: ключ %s: неподдерживаемый тип %T", k, raw)
		}
	}
	return l, nil
}

func (l *Ledger) setRaw(k string, on bool) {
	if on {
		l.flags[k] = true
	}
}

func (l *Ledger) parseString(k, v string) error {
	if n, err := strconv.ParseInt(v, 10, 64); err == nil {
		l.stamps[k] = n
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("ledger: ключ %s: значение %q не число и не bool", k, v)
	}
	l.setRaw(k, b)
	return nil
}
