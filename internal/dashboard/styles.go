package dashboard

import (
	"github.com/charmbracelet/lipgloss"

	"slurm-watch/internal/slurm"
)

var (
	subtle      = theme.TextMuted
	highlight   = theme.Accent
	panelBorder = theme.Border

	metaPillStyle = lipgloss.NewStyle().
			Foreground(highlight).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(panelBorder).
			Padding(0, 1).
			Bold(true).
			Align(lipgloss.Center)

	metaMutedPillStyle = metaPillStyle.Copy().
				Foreground(subtle)

	focusTagStyle = lipgloss.NewStyle().
			Foreground(theme.TextOnAccent).
			Background(highlight).
			Padding(0, 1).
			Bold(true).
			MarginLeft(1)

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(panelBorder).
			Padding(0, 1)

	focusedPanelStyle = panelStyle.Copy().
				BorderForeground(highlight)

	panelTitleStyle = lipgloss.NewStyle().
			Foreground(subtle).
			Bold(true)

	focusedTitleStyle = panelTitleStyle.Copy().
				Foreground(highlight)

	tableHeaderStyle = lipgloss.NewStyle().
				Foreground(subtle).
				Bold(true).
				Padding(0, 1)

	tableRowStyle = lipgloss.NewStyle().
			Padding(0, 1)

	tableSelectedStyle = lipgloss.NewStyle().
				Foreground(theme.SelectionFg).
				Background(theme.SelectionBg).
				Bold(true).
				Padding(0, 1)

	statusBadgeStyle = lipgloss.NewStyle().
				Bold(true)

	placeholderStyle = lipgloss.NewStyle().
				Foreground(subtle).
				Italic(true)

	lineRangeStyle = lipgloss.NewStyle().
			Foreground(theme.TextDim)

	helpStyle = lipgloss.NewStyle().
			Foreground(subtle)
)

var statusColorMap = map[slurm.Status]lipgloss.TerminalColor{
	slurm.StatusRunning:   theme.AccentGreen,
	slurm.StatusQueued:    theme.AccentOrange,
	slurm.StatusCompleted: theme.AccentBlue,
	slurm.StatusFailed:    theme.Danger,
}

func statusColor(status slurm.Status) lipgloss.TerminalColor {
	if c, ok := statusColorMap[status]; ok {
		return c
	}
	return theme.TextDim
}
