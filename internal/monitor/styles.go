// Copyright (c) 2024 Neomantra Corp

package monitor

import (
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"
)

var (
	colorDarkPurple  = lipgloss.Color("#3F3080")
	colorLightPurple = lipgloss.Color("#655BA7")
	colorRed         = lipgloss.Color("#E24F36")
	colorGrue        = lipgloss.Color("#4495AA")
	colorYellow      = lipgloss.Color("#FBF4A5")

	tileBorderStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), true).
			BorderForeground(colorLightPurple).
			Padding(0, 1)

	tileTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(colorGrue)
	tileAlertStyle = lipgloss.NewStyle().Bold(true).Foreground(colorRed)

	monitorTableStyles = table.Styles{
		Header:   lipgloss.NewStyle().Bold(true).Foreground(colorRed).Padding(0, 1),
		Selected: lipgloss.NewStyle().Bold(true).Foreground(colorGrue),
		Cell:     lipgloss.NewStyle().Padding(0, 1),
	}
)
