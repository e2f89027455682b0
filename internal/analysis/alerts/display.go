package alerts

import (
	"github.com/skalibog/sigwatch/pkg/models"
)

type display struct {
	accent string
	icon   string
}

// displays акцент и иконка для каждого вида сигнала
var displays = map[models.AlertType]display{
	models.AlertTrailBullishFlip:    {"bg-green-500", "fa-arrow-trend-up"},
	models.AlertTrailBearishFlip:    {"bg-red-500", "fa-arrow-trend-down"},
	models.AlertRSIOverbought:       {"bg-red-600", "fa-angles-up"},
	models.AlertRSIOversold:         {"bg-green-600", "fa-angles-down"},
	models.AlertRSISMABullishCross:  {"bg-green-500", "fa-chart-line"},
	models.AlertRSISMABearishCross:  {"bg-red-500", "fa-chart-line"},
	models.AlertBullishDivergence:   {"bg-green-500", "fa-anchor-circle-up"},
	models.AlertBearishDivergence:   {"bg-red-500", "fa-anchor-circle-down"},
	models.AlertWaveTrendConfluence: {"bg-sky-500", "fa-wave-square"},
	models.AlertHighConvictionBuy:   {"bg-cyan-500", "fa-rocket"},
	models.AlertKiwiBullishCross:    {"bg-teal-500", "fa-bolt"},
	models.AlertKiwiBearishCross:    {"bg-rose-500", "fa-bolt-lightning"},
	models.AlertKiwiPullback:        {"bg-amber-500", "fa-water"},
	models.AlertKiwiContinuation:    {"bg-indigo-500", "fa-play-circle"},
	models.AlertGoldenPocketBullish: {"bg-yellow-500", "fa-gem"},
	models.AlertGoldenPocketBearish: {"bg-orange-500", "fa-magnet"},
}

// Display возвращает класс цвета и иконки сигнала
func Display(t models.AlertType) (accent, icon string) {
	d, ok := displays[t]
	if !ok {
		return "bg-gray-500", ""
	}
	return d.accent, d.icon
}
