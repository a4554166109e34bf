package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"DopamineBreaker/internal/model"
	"DopamineBreaker/internal/service"
)

var (
	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true).
			Padding(0, 1)

	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true)
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))

	tierStyles = map[model.Tier]lipgloss.Style{
		model.TierBronze:   lipgloss.NewStyle().Foreground(lipgloss.Color("130")),
		model.TierSilver:   lipgloss.NewStyle().Foreground(lipgloss.Color("250")),
		model.TierGold:     lipgloss.NewStyle().Foreground(lipgloss.Color("220")),
	}
)

func renderHeader(title string) string {
	return headerStyle.Render(title)
}

func renderOutcome(o service.Outcome) string {
	line := fmt.Sprintf("%s %s", o.Status, o.Date)
	if o.Reason != "" {
		line += dimStyle.Render(" (" + o.Reason + ")")
	}
	switch o.Status {
	case service.OutcomeCreated:
		return successStyle.Render(line)
	case service.OutcomeAlreadyExists:
		return warnStyle.Render(line)
	default:
		return errorStyle.Render(line)
	}
}

func renderMissions(missions []model.MissionItem) string {
	if len(missions) == 0 {
		return dimStyle.Render("  (none)")
	}
	var b strings.Builder
	for _, m := range missions {
		style, ok := tierStyles[m.Tier]
		if !ok {
			style = lipgloss.NewStyle()
		}
		fmt.Fprintf(&b, "%3d  %s  %-40s %s\n",
			m.ID,
			style.Render(fmt.Sprintf("%-8s", m.Tier)),
			m.Title,
			dimStyle.Render(fmt.Sprintf("%d min · %s", m.Duration, m.Category)),
		)
	}
	return strings.TrimRight(b.String(), "\n")
}
