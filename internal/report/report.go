// Package report рисует итог прохода для терминала.
package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/skalibog/sigwatch/internal/analysis/aggregator"
	"github.com/skalibog/sigwatch/internal/notify"
	"github.com/skalibog/sigwatch/pkg/models"
)

// Стили
var (
	primaryColor   = lipgloss.Color("#0077cc")
	secondaryColor = lipgloss.Color("#333333")
	errorColor     = lipgloss.Color("#cc3300")
	successColor   = lipgloss.Color("#33cc33")
	warningColor   = lipgloss.Color("#cccc00")

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#ffffff")).
			Background(primaryColor).
			Padding(0, 1)
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#ffffff")).
			Background(secondaryColor).
			Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	footerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#999999")).
			Padding(0, 1)
)

// Summary итог прохода: заголовок, таблица сигналов и счетчики пар
func Summary(r *aggregator.PassResult) string {
	var b strings.Builder

	b.WriteString(titleStyle.Render(fmt.Sprintf("sigwatch %s", r.Started.UTC().Format(time.DateTime))))
	b.WriteString("\n")

	events := r.Events()
	if len(events) == 0 {
		b.WriteString(footerStyle.Render("Новых сигналов нет"))
	} else {
		b.WriteString(signalsTable(events))
	}
	b.WriteString("\n")

	b.WriteString(pairsLine(r))
	b.WriteString("\n")
	b.WriteString(footerStyle.Render(fmt.Sprintf("run %s, %s", r.RunID, r.Duration.Round(time.Millisecond))))
	return b.String()
}

// History таблица сигналов из журнала
func History(symbol string, events []models.SignalEvent) string {
	title := titleStyle.Render(fmt.Sprintf("%s: последние сигналы", symbol))
	if len(events) == 0 {
		return title + "\n" + footerStyle.Render("Журнал пуст")
	}
	return title + "\n" + signalsTable(events)
}

func signalsTable(events []models.SignalEvent) string {
	rows := make([][]string, len(events))
	for i, e := range events {
		rows[i] = []string{e.FiredAt().Format("15:04:05"), e.Symbol, e.Timeframe, e.Title}
	}

	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(secondaryColor)).
		Headers("Время", "Символ", "ТФ", "Сигнал").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			if col == 3 {
				return cellStyle.Foreground(AccentColor(events[row].Accent))
			}
			return cellStyle
		}).
		Render()
}

func pairsLine(r *aggregator.PassResult) string {
	var ok, skipped, failed int
	for _, p := range r.Pairs {
		switch {
		case p.Err != nil:
			failed++
		case p.Skipped:
			skipped++
		default:
			ok++
		}
	}

	parts := []string{
		lipgloss.NewStyle().Foreground(successColor).Render(fmt.Sprintf("обработано %d", ok)),
		lipgloss.NewStyle().Foreground(warningColor).Render(fmt.Sprintf("пропущено %d", skipped)),
		lipgloss.NewStyle().Foreground(errorColor).Render(fmt.Sprintf("ошибок %d", failed)),
	}
	return cellStyle.Render(strings.Join(parts, "  "))
}

// AccentColor цвет терминала для класса акцента, тот же, что у embed в Discord
func AccentColor(accent string) lipgloss.Color {
	return lipgloss.Color(fmt.Sprintf("#%06x", notify.DiscordColor(accent)))
}
