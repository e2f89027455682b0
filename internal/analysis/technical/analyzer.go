package technical

import (
	"errors"
	"fmt"

	"github.com/skalibog/sigwatch/internal/analysis/fib"
	"github.com/skalibog/sigwatch/internal/analysis/oscillator"
	"github.com/skalibog/sigwatch/internal/analysis/series"
	"github.com/skalibog/sigwatch/internal/analysis/trail"
	"github.com/skalibog/sigwatch/internal/config"
	"github.com/skalibog/sigwatch/pkg/models"
)

// ErrInsufficientData свечей меньше минимума: проход пропускается, это не сбой
var ErrInsufficientData = errors.New("недостаточно данных для анализа")

// Analyzer рассчитывает набор индикаторов для одной пары символ/таймфрейм
type Analyzer struct {
	config config.TechnicalConfig
}

// NewAnalyzer создает новый анализатор технических индикаторов
func NewAnalyzer(cfg config.TechnicalConfig) *Analyzer {
	return &Analyzer{
		config: cfg,
	}
}

// Bundle все индикаторы, нужные правилам сигналов. Каждый ряд выровнен по Candles.
type Bundle struct {
	Candles []models.Candle

	RSI    series.Series
	RSISMA series.Series
	StochK series.Series
	StochD series.Series

	SMAFast series.Series
	SMASlow series.Series

	WT1 series.Series
	WT2 series.Series

	Trail []trail.Point

	// Kiwi доступен только при HasKiwi
	Kiwi    oscillator.KiwiLines
	HasKiwi bool

	Pocket    fib.Zone
	HasPocket bool

	// AvgQuoteVolume средний оборот за VolumeLookback баров перед последним
	AvgQuoteVolume float64
}

// Last последняя свеча
func (b *Bundle) Last() models.Candle {
	return b.Candles[len(b.Candles)-1]
}

// Prev предпоследняя свеча
func (b *Bundle) Prev() models.Candle {
	return b.Candles[len(b.Candles)-2]
}

// Compute рассчитывает индикаторы. При нехватке свечей возвращает ErrInsufficientData.
func (a *Analyzer) Compute(candles []models.Candle) (*Bundle, error) {
	if len(candles) < a.config.MinCandles || len(candles) < 2 {
		return nil, fmt.Errorf("%w: %d свечей, нужно %d", ErrInsufficientData, len(candles), a.config.MinCandles)
	}

	rsi := oscillator.RSI(candles, a.config.RSIPeriod)
	stoch := oscillator.StochRSI(rsi, oscillator.StochRSIParams{
		StochLength: a.config.StochLength,
		KSmooth:     a.config.StochK,
		DSmooth:     a.config.StochD,
	})
	wt1, wt2 := oscillator.WaveTrend(candles, oscillator.WaveTrendParams{
		ChannelLen: a.config.WTChannel,
		AvgLen:     a.config.WTAverage,
		MALen:      a.config.WTSignal,
	})

	b := &Bundle{
		Candles: candles,
		RSI:     rsi,
		RSISMA:  series.SMA(rsi, a.config.RSISMAPeriod),
		StochK:  stoch.K,
		StochD:  stoch.D,
		SMAFast: series.PriceSMA(candles, a.config.SMAFast),
		SMASlow: series.PriceSMA(candles, a.config.SMASlow),
		WT1:     wt1,
		WT2:     wt2,
		Trail:   trail.Compute(candles, a.config.TrailDataLength, a.config.TrailDistribution),
	}

	b.Kiwi, b.HasKiwi = oscillator.KiwiHunt(candles, oscillator.DefaultKiwiParams)
	b.Pocket, b.HasPocket = fib.Pocket(candles, a.config.GoldenPocketWindow, fib.DefaultLo, fib.DefaultHi)
	b.AvgQuoteVolume = averageQuoteVolume(candles, a.config.VolumeLookback)

	b.mustAlign()
	return b, nil
}

// averageQuoteVolume средний оборот lookback свечей, предшествующих последней
func averageQuoteVolume(candles []models.Candle, lookback int) float64 {
	end := len(candles) - 1
	start := end - lookback
	if start < 0 {
		start = 0
	}
	values := make([]float64, 0, end-start)
	for _, c := range candles[start:end] {
		values = append(values, c.QuoteVolume)
	}
	return series.MeanTail(values, lookback)
}

type namedSeries struct {
	name string
	s    series.Series
}

// mustAlign паникует, если какой-либо ряд не совпадает со свечами
func (b *Bundle) mustAlign() {
	named := []namedSeries{
		{"rsi", b.RSI},
		{"rsi_sma", b.RSISMA},
		{"stoch_k", b.StochK},
		{"stoch_d", b.StochD},
		{"sma_fast", b.SMAFast},
		{"sma_slow", b.SMASlow},
		{"wt1", b.WT1},
		{"wt2", b.WT2},
	}
	if b.HasKiwi {
		named = append(named,
			namedSeries{"kiwi_q1", b.Kiwi.Q1},
			namedSeries{"kiwi_trigger", b.Kiwi.Trigger},
			namedSeries{"kiwi_q3", b.Kiwi.Q3},
		)
	}
	for _, n := range named {
		series.MustAlign(n.name, n.s, b.Candles)
	}
	if len(b.Trail) != len(b.Candles) {
		panic(fmt.Sprintf("technical: trail длина %d != %d свечей", len(b.Trail), len(b.Candles)))
	}
}
