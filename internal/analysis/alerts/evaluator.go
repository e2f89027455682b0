// Package alerts проверяет правила сигналов по набору индикаторов и журналу срабатываний.
package alerts

import (
	"fmt"
	"slices"
	"strconv"

	"github.com/skalibog/sigwatch/internal/analysis/divergence"
	"github.com/skalibog/sigwatch/internal/analysis/fib"
	"github.com/skalibog/sigwatch/internal/analysis/oscillator"
	"github.com/skalibog/sigwatch/internal/analysis/technical"
	"github.com/skalibog/sigwatch/internal/analysis/trail"
	"github.com/skalibog/sigwatch/internal/config"
	"github.com/skalibog/sigwatch/internal/ledger"
	"github.com/skalibog/sigwatch/pkg/logger"
	"github.com/skalibog/sigwatch/pkg/models"
	"go.uber.org/zap"
)

// highConvictionBars минимальная история для high-conviction-buy
const highConvictionBars = 101

// Evaluator применяет включенные правила к одной паре символ/таймфрейм
type Evaluator struct {
	cfg      config.AlertsConfig
	rules    config.RulesConfig
	detector divergence.Detector
}

// NewEvaluator создает оценщик. Набор правил передается явно и не меняется.
func NewEvaluator(cfg config.AlertsConfig, rules config.RulesConfig) *Evaluator {
	return &Evaluator{
		cfg:      cfg,
		rules:    rules,
		detector: divergence.DefaultDetector,
	}
}

// Evaluate проверяет правила на последнем баре и возвращает сработавшие сигналы.
// Журнал l изменяется на месте: метки времени сработавших сигналов и флаги состояний.
func (e *Evaluator) Evaluate(symbol, timeframe string, b *technical.Bundle, l *ledger.Ledger, now int64) []models.SignalEvent {
	p := &pass{
		e:         e,
		symbol:    symbol,
		timeframe: timeframe,
		b:         b,
		l:         l,
		now:       now,
	}

	if e.rules.Enabled(config.RuleTrailFlip) {
		p.trailFlip()
	}
	if e.rules.Enabled(config.RuleRSIExtremes) {
		p.rsiExtremes()
	}
	if e.rules.Enabled(config.RuleRSISMACross) {
		p.rsiSMACross()
	}
	if e.rules.Enabled(config.RuleDivergence) {
		p.divergences()
	}
	if e.rules.Enabled(config.RuleWaveTrend) {
		p.waveTrendConfluence()
	}
	if e.rules.Enabled(config.RuleHighConviction) {
		p.highConviction()
	}
	if e.rules.Enabled(config.RuleKiwiHunt) {
		p.kiwiHunt()
	}
	if e.rules.Enabled(config.RuleGoldenPocket) {
		p.goldenPocket()
	}
	return p.events
}

// pass состояние одного вызова Evaluate
type pass struct {
	e         *Evaluator
	symbol    string
	timeframe string
	b         *technical.Bundle
	l         *ledger.Ledger
	now       int64
	events    []models.SignalEvent
}

func (p *pass) key(t models.AlertType, disc ...string) string {
	return ledger.Key(p.symbol, p.timeframe, t, disc...)
}

// fire добавляет сигнал, если ключ не на охлаждении
func (p *pass) fire(t models.AlertType, key, title, body string) bool {
	if !p.l.CanFire(key, p.now, p.e.cfg.Cooldown) {
		logger.Debug("Сигнал на охлаждении", zap.String("key", key))
		return false
	}

	accent, icon := Display(t)
	p.events = append(p.events, models.SignalEvent{
		Type:      t,
		Symbol:    p.symbol,
		Timeframe: p.timeframe,
		Title:     title,
		Body:      body,
		Accent:    accent,
		Icon:      icon,
		Time:      p.now,
	})
	p.l.SetStamp(key, p.now)

	logger.Info("Сигнал подготовлен",
		zap.String("type", string(t)),
		zap.String("symbol", p.symbol),
		zap.String("timeframe", p.timeframe),
		zap.String("title", title))
	return true
}

// entry срабатывает только при переходе условия из false в true
func (p *pass) entry(t models.AlertType, active bool, title, body string) {
	key := p.key(t)
	was := p.l.Flag(key)
	p.l.SetFlag(key, active)
	if active && !was {
		p.fire(t, key, title, body)
	}
}

func (p *pass) trailFlip() {
	to, ok := trail.Flip(p.b.Trail)
	if !ok {
		return
	}
	price := p.b.Last().Close
	if to == trail.Bullish {
		p.fire(models.AlertTrailBullishFlip, p.key(models.AlertTrailBullishFlip),
			fmt.Sprintf("%s Bot Buys (%s)", p.symbol, p.timeframe),
			fmt.Sprintf("Trailing stop flipped to Bullish at $%.4f", price))
		return
	}
	p.fire(models.AlertTrailBearishFlip, p.key(models.AlertTrailBearishFlip),
		fmt.Sprintf("%s Bot Sells (%s)", p.symbol, p.timeframe),
		fmt.Sprintf("Trailing stop flipped to Bearish at $%.4f", price))
}

func (p *pass) rsiExtremes() {
	prev, last, ok := p.b.RSI.LastPair()
	if !ok {
		return
	}
	overbought, oversold := p.e.cfg.RSIOverbought, p.e.cfg.RSIOversold

	if last > overbought && prev <= overbought {
		p.fire(models.AlertRSIOverbought, p.key(models.AlertRSIOverbought),
			fmt.Sprintf("%s Extreme Overbought (%s)", p.symbol, p.timeframe),
			fmt.Sprintf("RSI is now %.2f, crossing above %g.", last, overbought))
	}
	if last < oversold && prev >= oversold {
		p.fire(models.AlertRSIOversold, p.key(models.AlertRSIOversold),
			fmt.Sprintf("%s Extreme Oversold (%s)", p.symbol, p.timeframe),
			fmt.Sprintf("RSI is now %.2f, crossing below %g.", last, oversold))
	}
}

func (p *pass) rsiSMACross() {
	prevRSI, lastRSI, ok1 := p.b.RSI.LastPair()
	prevSMA, lastSMA, ok2 := p.b.RSISMA.LastPair()
	if !ok1 || !ok2 {
		return
	}

	if oscillator.BullishCross(prevRSI, prevSMA, lastRSI, lastSMA) {
		p.fire(models.AlertRSISMABullishCross, p.key(models.AlertRSISMABullishCross),
			fmt.Sprintf("%s RSI/SMA Bullish Cross (%s)", p.symbol, p.timeframe),
			fmt.Sprintf("RSI has crossed above its SMA. RSI is now %.2f.", lastRSI))
	}
	if oscillator.BearishCross(prevRSI, prevSMA, lastRSI, lastSMA) {
		p.fire(models.AlertRSISMABearishCross, p.key(models.AlertRSISMABearishCross),
			fmt.Sprintf("%s RSI/SMA Bearish Cross (%s)", p.symbol, p.timeframe),
			fmt.Sprintf("RSI has crossed below its SMA. RSI is now %.2f.", lastRSI))
	}
}

// divergences ключ дополняется временем пивота: новая дивергенция не гасится охлаждением старой
func (p *pass) divergences() {
	if res, ok := p.e.detector.DetectBullish(p.b.Candles, p.b.RSI); ok {
		key := p.key(models.AlertBullishDivergence, strconv.FormatInt(res.PivotTime, 10))
		p.fire(models.AlertBullishDivergence, key,
			fmt.Sprintf("%s Bullish Divergence (%s)", p.symbol, p.timeframe),
			fmt.Sprintf("A bullish divergence has been detected. RSI is at %.2f.", res.Value))
	}
	if res, ok := p.e.detector.DetectBearish(p.b.Candles, p.b.RSI); ok {
		key := p.key(models.AlertBearishDivergence, strconv.FormatInt(res.PivotTime, 10))
		p.fire(models.AlertBearishDivergence, key,
			fmt.Sprintf("%s Bearish Divergence (%s)", p.symbol, p.timeframe),
			fmt.Sprintf("A bearish divergence has been detected. RSI is at %.2f.", res.Value))
	}
}

func (p *pass) waveTrendConfluence() {
	prev1, last1, ok1 := p.b.WT1.LastPair()
	prev2, last2, ok2 := p.b.WT2.LastPair()
	if !ok1 || !ok2 {
		return
	}

	threshold := p.e.cfg.WaveTrendThresholdFor(p.timeframe)
	if oscillator.BullishCross(prev1, prev2, last1, last2) && last2 < threshold {
		p.fire(models.AlertWaveTrendConfluence, p.key(models.AlertWaveTrendConfluence),
			fmt.Sprintf("%s Cipher Buy Signal (%s)", p.symbol, p.timeframe),
			fmt.Sprintf("Bullish cross detected while WaveTrend is oversold (%.2f).", last2))
	}
}

func (p *pass) highConviction() {
	hc := p.e.cfg.HighConviction
	if !slices.Contains(hc.Timeframes, p.timeframe) || len(p.b.Candles) < highConvictionBars {
		return
	}

	stochK, ok := p.b.StochK.Last(0)
	if !ok {
		return
	}
	prevWT1, lastWT1, ok1 := p.b.WT1.LastPair()
	prevWT2, lastWT2, ok2 := p.b.WT2.LastPair()
	prevFast, lastFast, ok3 := p.b.SMAFast.LastPair()
	prevSlow, lastSlow, ok4 := p.b.SMASlow.LastPair()
	if !ok1 || !ok2 || !ok3 || !ok4 {
		return
	}

	last, prev := p.b.Last(), p.b.Prev()
	if stochK.Value >= hc.StochMax || last.QuoteVolume <= p.b.AvgQuoteVolume*hc.VolumeFactor {
		return
	}

	// сценарий 1: глубокая перепроданность WaveTrend, цена выше одной из средних
	scenario := lastWT2 < hc.DeepWT && (last.Close > lastFast || last.Close > lastSlow)

	// сценарий 2: бычье пересечение WaveTrend с касанием или возвратом над средней
	if oscillator.BullishCross(prevWT1, prevWT2, lastWT1, lastWT2) && lastWT2 < hc.CrossWT {
		tapped := (last.Low <= lastFast && last.Close > lastFast) ||
			(last.Low <= lastSlow && last.Close > lastSlow)
		reclaimed := (prev.Close < prevFast && last.Close > lastFast) ||
			(prev.Close < prevSlow && last.Close > lastSlow)
		scenario = scenario || tapped || reclaimed
	}

	if scenario {
		p.fire(models.AlertHighConvictionBuy, p.key(models.AlertHighConvictionBuy),
			fmt.Sprintf("%s High-Conviction Buy (%s)", p.symbol, p.timeframe),
			"Multiple bullish confluence factors detected.")
	}
}

func (p *pass) kiwiHunt() {
	var (
		prevQ1, lastQ1, prevTrig, lastTrig float64
		q3                                 float64
		ready                              bool
	)
	if p.b.HasKiwi {
		var ok1, ok2 bool
		prevQ1, lastQ1, ok1 = p.b.Kiwi.Q1.LastPair()
		prevTrig, lastTrig, ok2 = p.b.Kiwi.Trigger.LastPair()
		last3, ok3 := p.b.Kiwi.Q3.Last(0)
		q3 = last3.Value
		ready = ok1 && ok2 && ok3
	}

	k := p.e.cfg.Kiwi
	if !ready {
		// осциллятор недоступен: состояния сбрасываются, чтобы следующий вход был замечен
		p.entry(models.AlertKiwiPullback, false, "", "")
		p.entry(models.AlertKiwiContinuation, false, "", "")
		return
	}

	if oscillator.BullishCross(prevQ1, prevTrig, lastQ1, lastTrig) && lastTrig <= k.Oversold {
		p.fire(models.AlertKiwiBullishCross, p.key(models.AlertKiwiBullishCross),
			fmt.Sprintf("%s KiwiHunt Bullish Cross (%s)", p.symbol, p.timeframe),
			fmt.Sprintf("Q1 crossed above its trigger in the oversold zone (%.2f).", lastQ1))
	}
	if oscillator.BearishCross(prevQ1, prevTrig, lastQ1, lastTrig) && lastTrig >= k.Overbought {
		p.fire(models.AlertKiwiBearishCross, p.key(models.AlertKiwiBearishCross),
			fmt.Sprintf("%s KiwiHunt Bearish Cross (%s)", p.symbol, p.timeframe),
			fmt.Sprintf("Q1 crossed below its trigger in the overbought zone (%.2f).", lastQ1))
	}

	uptrend := q3 >= k.Midline
	p.entry(models.AlertKiwiPullback, uptrend && lastQ1 <= k.Oversold,
		fmt.Sprintf("%s KiwiHunt Pullback (%s)", p.symbol, p.timeframe),
		fmt.Sprintf("Fast line dipped to %.2f while the slow trend holds (%.2f).", lastQ1, q3))
	p.entry(models.AlertKiwiContinuation, uptrend && lastQ1 > lastTrig && lastQ1 >= k.Midline,
		fmt.Sprintf("%s KiwiHunt Continuation (%s)", p.symbol, p.timeframe),
		fmt.Sprintf("Fast line resumed above its trigger (%.2f) with the trend (%.2f).", lastQ1, q3))
}

func (p *pass) goldenPocket() {
	z, ok := p.b.Pocket, p.b.HasPocket
	price := p.b.Last().Close
	inZone := ok && z.Contains(price)

	p.entry(models.AlertGoldenPocketBullish, inZone && z.Leg == fib.LegUp,
		fmt.Sprintf("%s Golden Pocket Bullish (%s)", p.symbol, p.timeframe),
		fmt.Sprintf("Price $%.4f pulled back into the golden pocket %.4f-%.4f.", price, z.Bottom, z.Top))
	p.entry(models.AlertGoldenPocketBearish, inZone && z.Leg == fib.LegDown,
		fmt.Sprintf("%s Golden Pocket Bearish (%s)", p.symbol, p.timeframe),
		fmt.Sprintf("Price $%.4f retraced up into the golden pocket %.4f-%.4f.", price, z.Bottom, z.Top))
}
