package main

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/sopforge/core/internal/risk"
)

var (
	colorAccent  = lipgloss.Color("#5FAFD7")
	colorSuccess = lipgloss.Color("#5FD75F")
	colorWarning = lipgloss.Color("#F4D03F")
	colorError   = lipgloss.Color("#E74C3C")
	colorMuted   = lipgloss.Color("#6C7A89")
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)
	headerStyle  = lipgloss.NewStyle().Bold(true)
	successStyle = lipgloss.NewStyle().Foreground(colorSuccess)
	warningStyle = lipgloss.NewStyle().Foreground(colorWarning)
	errorStyle   = lipgloss.NewStyle().Foreground(colorError)
	mutedStyle   = lipgloss.NewStyle().Foreground(colorMuted)
)

func riskStyle(l risk.Level) lipgloss.Style {
	switch l {
	case risk.Critical:
		return errorStyle.Bold(true)
	case risk.High:
		return errorStyle
	case risk.Medium:
		return warningStyle
	}
	return successStyle
}
