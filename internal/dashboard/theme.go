package dashboard

import (
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

const envTheme = "SLURM_WATCH_THEME"

type ThemeMode string

const (
	ThemeAuto  ThemeMode = "auto"
	ThemeDark  ThemeMode = "dark"
	ThemeLight ThemeMode = "light"
)

type Theme struct {
	Mode ThemeMode

	Text         lipgloss.TerminalColor
	TextMuted    lipgloss.TerminalColor
	TextStrong   lipgloss.TerminalColor
	TextOnAccent lipgloss.TerminalColor
	TextDim      lipgloss.TerminalColor

	Accent lipgloss.TerminalColor
	Border lipgloss.TerminalColor

	AccentOrange lipgloss.TerminalColor
	AccentGreen  lipgloss.TerminalColor
	AccentBlue   lipgloss.TerminalColor
	Danger       lipgloss.TerminalColor

	SelectionBg lipgloss.TerminalColor
	SelectionFg lipgloss.TerminalColor
}

var theme = loadTheme()

func loadTheme() Theme {
	mode := parseThemeMode(os.Getenv(envTheme))

	if mode == ThemeDark {
		lipgloss.SetHasDarkBackground(true)
	} else if mode == ThemeLight {
		lipgloss.SetHasDarkBackground(false)
	}

	return Theme{
		Mode:         mode,
		Text:         lipgloss.NoColor{},
		TextMuted:    pickColor(mode, "#6B7394", "#B6B8C9"),
		TextStrong:   pickColor(mode, "#0B0D19", "#F8F8F2"),
		TextOnAccent: pickColor(mode, "#F8FBFF", "#282A36"),
		TextDim:      pickColor(mode, "#8890A8", "#7D8297"),

		Accent: pickColor(mode, "#6C63FF", "#A78BFA"),
		Border: pickColor(mode, "#D7DBF5", "#44475A"),

		AccentOrange: lipgloss.Color("#FFB86C"),
		AccentGreen:  lipgloss.Color("#50FA7B"),
		AccentBlue:   lipgloss.Color("#6EA8FE"),
		Danger:       lipgloss.Color("#FF5555"),

		SelectionBg: pickColor(mode, "#E6E9F6", "#44475A"),
		SelectionFg: pickColor(mode, "#0B0D19", "#F8F8F2"),
	}
}

func parseThemeMode(value string) ThemeMode {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "dark":
		return ThemeDark
	case "light":
		return ThemeLight
	default:
		return ThemeAuto
	}
}

func pickColor(mode ThemeMode, light, dark string) lipgloss.TerminalColor {
	switch mode {
	case ThemeDark:
		return lipgloss.Color(dark)
	case ThemeLight:
		return lipgloss.Color(light)
	default:
		return lipgloss.AdaptiveColor{Light: light, Dark: dark}
	}
}
