package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/ramshi122/crazy-time-predictor/internal/wheel"
)

var segmentColors = map[wheel.Key]lipgloss.Color{
	wheel.Key1:      "#f43f5e",
	wheel.Key2:      "#3b82f6",
	wheel.Key5:      "#22c55e",
	wheel.Key10:     "#f97316",
	wheel.Pachinko:  "#fbbf24",
	wheel.CashHunt:  "#818cf8",
	wheel.CoinFlip:  "#34d399",
	wheel.CrazyTime: "#F4C542",
}

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#F4C542"))
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#6b7280"))
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#f43f5e"))
	liveStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#22c55e"))
	localStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#f97316"))

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#374151")).
			Padding(0, 1).
			Width(26)

	winnerBoxStyle = boxStyle.BorderForeground(lipgloss.Color("#F4C542"))

	tagStyles = map[string]lipgloss.Style{
		"HOT":  lipgloss.NewStyle().Foreground(lipgloss.Color("#f43f5e")),
		"COLD": lipgloss.NewStyle().Foreground(lipgloss.Color("#3b82f6")),
		"DUE":  lipgloss.NewStyle().Foreground(lipgloss.Color("#fbbf24")),
	}
)

func segmentStyle(k wheel.Key) lipgloss.Style {
	return lipgloss.NewStyle().Bold(true).Foreground(segmentColors[k])
}

func tile(k wheel.Key) string {
	return lipgloss.NewStyle().
		Foreground(lipgloss.Color("#0b0b0b")).
		Background(segmentColors[k]).
		Padding(0, 1).
		Render(wheel.Lookup(k).Icon)
}
