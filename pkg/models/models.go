package models

import (
	"time"
)

// Candle представляет свечу (kline). Time - время открытия в миллисекундах.
type Candle struct {
	Time        int64
	Open        float64
	High        float64
	Low         float64
	Close       float64
	Volume      float64
	QuoteVolume float64
}

// OpenTime возвращает время открытия свечи
func (c Candle) OpenTime() time.Time {
	return time.UnixMilli(c.Time).UTC()
}

// HLC3 возвращает (high+low+close)/3
func (c Candle) HLC3() float64 {
	return (c.High + c.Low + c.Close) / 3
}

// AlertType вид сигнала
type AlertType string

const (
	AlertTrailBullishFlip    AlertType = "luxalgo-bullish-flip"
	AlertTrailBearishFlip    AlertType = "luxalgo-bearish-flip"
	AlertRSIOverbought       AlertType = "rsi-extreme-overbought"
	AlertRSIOversold         AlertType = "rsi-extreme-oversold"
	AlertRSISMABullishCross  AlertType = "rsi-sma-bullish-cross"
	AlertRSISMABearishCross  AlertType = "rsi-sma-bearish-cross"
	AlertBullishDivergence   AlertType = "bullish-divergence"
	AlertBearishDivergence   AlertType = "bearish-divergence"
	AlertWaveTrendConfluence AlertType = "wavetrend-confluence-buy"
	AlertHighConvictionBuy   AlertType = "high-conviction-buy"
	AlertKiwiBullishCross    AlertType = "kiwihunt-bullish-cross"
	AlertKiwiBearishCross    AlertType = "kiwihunt-bearish-cross"
	AlertKiwiPullback        AlertType = "kiwihunt-pullback"
	AlertKiwiContinuation    AlertType = "kiwihunt-continuation"
	AlertGoldenPocketBullish AlertType = "golden-pocket-bullish"
	AlertGoldenPocketBearish AlertType = "golden-pocket-bearish"
)

// AllAlertTypes перечисляет все известные виды сигналов
var AllAlertTypes = []AlertType{
	AlertTrailBullishFlip,
	AlertTrailBearishFlip,
	AlertRSIOverbought,
	AlertRSIOversold,
	AlertRSISMABullishCross,
	AlertRSISMABearishCross,
	AlertBullishDivergence,
	AlertBearishDivergence,
	AlertWaveTrendConfluence,
	AlertHighConvictionBuy,
	AlertKiwiBullishCross,
	AlertKiwiBearishCross,
	AlertKiwiPullback,
	AlertKiwiContinuation,
	AlertGoldenPocketBullish,
	AlertGoldenPocketBearish,
}

// SignalEvent представляет сработавший сигнал
type SignalEvent struct {
	Type      AlertType
	Symbol    string
	Timeframe string
	Title     string
	Body      string
	// Accent - класс цвета (bg-green-500 и т.п.), Icon - класс иконки (fa-*)
	Accent string
	Icon   string
	// Time - момент срабатывания в миллисекундах
	Time int64
}

// FiredAt возвращает время срабатывания сигнала
func (e SignalEvent) FiredAt() time.Time {
	return time.UnixMilli(e.Time).UTC()
}
