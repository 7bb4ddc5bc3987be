package tui

import (
	catppuccin "github.com/catppuccin/go"
	"github.com/charmbracelet/lipgloss"
)

var flavour = catppuccin.Mocha

func color(c catppuccin.Color) lipgloss.Color {
	return lipgloss.Color(c.Hex)
}

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(color(flavour.Mauve()))
	sectionStyle = lipgloss.NewStyle().Bold(true).Foreground(color(flavour.Blue()))
	cursorStyle  = lipgloss.NewStyle().Bold(true).Foreground(color(flavour.Peach()))
	valueStyle   = lipgloss.NewStyle().Foreground(color(flavour.Green()))
	mutedStyle   = lipgloss.NewStyle().Foreground(color(flavour.Overlay1()))
	invalidStyle = lipgloss.NewStyle().Foreground(color(flavour.Red()))
	statusStyle  = lipgloss.NewStyle().Foreground(color(flavour.Yellow()))
)
