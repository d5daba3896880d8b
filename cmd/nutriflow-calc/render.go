package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/fangcao20/nutrition-app-sub000/internal/model"
	"github.com/fangcao20/nutrition-app-sub000/internal/service/excel"
	"github.com/fangcao20/nutrition-app-sub000/internal/service/report"
	"github.com/fangcao20/nutrition-app-sub000/internal/util"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7DD3FC"))
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#94A3B8")).Width(22)
	valueStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#F8FAFC"))
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#64748B"))
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#4ADE80"))
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FBBF24"))
	errorStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#F87171"))
	cardStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("#334155")).Padding(0, 1)
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#E2E8F0"))
)

func line(label, value string) string {
	return labelStyle.Render(label) + valueStyle.Render(value)
}

// renderSummary 批次汇总卡片
func renderSummary(period string, sheet *excel.UsageSheet, result *model.BatchResult) string {
	s := result.Summary
	lines := []string{
		titleStyle.Render("Usage calculation " + period),
		mutedStyle.Render(fmt.Sprintf("sheet %q, batch %s", sheet.SheetName, result.BatchID)),
		"",
		line("Rows", fmt.Sprintf("%d", s.TotalRows)),
		line("Matched", okStyle.Render(fmt.Sprintf("%d", s.MatchedRows))),
		line("Not found", notFoundValue(s.NotFoundRows)),
		line("Total calories", util.FormatCalories(s.TotalCalories)),
		line("Used calories", util.FormatCalories(s.TotalUsedCalories)),
		line("Remaining calories", util.FormatCalories(s.TotalRemainingCalories)),
	}
	for _, code := range model.Components {
		if v, ok := s.ComponentCalories[code]; ok {
			lines = append(lines, line(code.Label()+" calories", util.FormatCalories(v)))
		}
	}
	if sheet.Skipped > 0 || len(sheet.Warnings) > 0 {
		lines = append(lines, "", warnStyle.Render(fmt.Sprintf("%d rows skipped, %d warnings", sheet.Skipped, len(sheet.Warnings))))
		for _, w := range sheet.Warnings {
			lines = append(lines, mutedStyle.Render(fmt.Sprintf("  row %d: %s", w.Row, w.Message)))
		}
	}
	return cardStyle.Render(strings.Join(lines, "\n"))
}

func notFoundValue(n int) string {
	if n == 0 {
		return okStyle.Render("0")
	}
	return warnStyle.Render(fmt.Sprintf("%d", n))
}

// renderTable 将报表渲染为等宽文本表
func renderTable(t report.Table) string {
	widths := make([]int, len(t.Headers))
	cells := make([][]string, len(t.Rows))
	for i, h := range t.Headers {
		widths[i] = lipgloss.Width(h)
	}
	for r, row := range t.Rows {
		cells[r] = make([]string, len(row))
		for i, v := range row {
			var text string
			switch x := v.(type) {
			case float64:
				text = util.FormatCalories(x)
			default:
				text = fmt.Sprint(x)
			}
			cells[r][i] = text
			if i < len(widths) && lipgloss.Width(text) > widths[i] {
				widths[i] = lipgloss.Width(text)
			}
		}
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(t.Title))
	b.WriteString("\n")
	for i, h := range t.Headers {
		b.WriteString(headerStyle.Width(widths[i] + 2).Render(h))
	}
	b.WriteString("\n")
	for _, row := range cells {
		for i, text := range row {
			if i >= len(widths) {
				break
			}
			b.WriteString(lipgloss.NewStyle().Width(widths[i] + 2).Render(text))
		}
		b.WriteString("\n")
	}
	if len(cells) == 0 {
		b.WriteString(mutedStyle.Render("no data"))
		b.WriteString("\n")
	}
	return b.String()
}
