package dashboard

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"github.com/muesli/reflow/truncate"

	"slurm-watch/internal/slurm"
)

const (
	minWidth  = 60
	minHeight = 14

	// statusPanelWidth is the left column holding the job table.
	statusPanelWidth = 42
)

// Render draws the whole dashboard into a string for the given
// terminal size. footer is the help line the caller renders (it knows
// the keymap). Render also feeds the pane content height back into
// the state so scroll clamping matches what is on screen.
func Render(s *State, width, height int, footer string) string {
	if width < minWidth || height < minHeight {
		return placeholderStyle.Render(
			fmt.Sprintf("Terminal too small (%dx%d, need %dx%d)", width, height, minWidth, minHeight))
	}

	header := renderHeader(s, width)
	footer = clampViewWidth(helpStyle.Render(footer), width)

	bodyHeight := height - lipgloss.Height(header) - lipgloss.Height(footer)
	if bodyHeight < 6 {
		bodyHeight = 6
	}

	// Two stacked log panes share the right column. Each pane spends
	// two rows on its border and one on its title.
	paneOuterHeight := bodyHeight / 2
	paneContentHeight := paneOuterHeight - 3
	if paneContentHeight < 1 {
		paneContentHeight = 1
	}
	s.SetViewportHeight(paneContentHeight)

	logWidth := width - statusPanelWidth - 2
	if logWidth < 20 {
		logWidth = 20
	}

	statusPanel := renderStatusPanel(s, statusPanelWidth, bodyHeight)
	stdoutPane := renderPane(s, slurm.StreamStdout, logWidth, paneContentHeight)
	stderrPane := renderPane(s, slurm.StreamStderr, logWidth, paneContentHeight)

	logs := lipgloss.JoinVertical(lipgloss.Left, stdoutPane, stderrPane)
	body := lipgloss.JoinHorizontal(lipgloss.Top, statusPanel, logs)

	view := lipgloss.JoinVertical(lipgloss.Left, header, body, footer)
	return clampViewHeight(clampViewWidth(view, width), height)
}

func clampViewWidth(view string, width int) string {
	lines := strings.Split(strings.ReplaceAll(view, "\r\n", "\n"), "\n")
	for i, line := range lines {
		if lipgloss.Width(line) > width {
			lines[i] = truncate.String(line, uint(width))
		}
	}
	return strings.Join(lines, "\n")
}

func clampViewHeight(view string, height int) string {
	if height <= 0 {
		return ""
	}
	lines := strings.Split(strings.ReplaceAll(view, "\r\n", "\n"), "\n")
	if len(lines) <= height {
		return strings.Join(lines, "\n")
	}
	return strings.Join(lines[:height], "\n")
}

func renderHeader(s *State, width int) string {
	jobs := s.Jobs()
	running := 0
	for _, j := range jobs {
		if j.Status == slurm.StatusRunning {
			running++
		}
	}

	title := metaPillStyle.Render("slurm-watch")
	count := metaMutedPillStyle.Render(fmt.Sprintf("%d jobs / %d running", len(jobs), running))
	focus := focusTagStyle.Render("focus: " + string(s.Focus()))

	row := lipgloss.JoinHorizontal(lipgloss.Center, title, " ", count, focus)
	return clampViewWidth(row, width)
}

func renderStatusPanel(s *State, width, height int) string {
	innerWidth := width - 4

	var b strings.Builder
	b.WriteString(panelTitleStyle.Render("Jobs"))
	b.WriteString("\n")
	b.WriteString(tableHeaderStyle.Render(padCell("ID", 9) + padCell("Name", innerWidth-26) + padCell("State", 10) + "Time"))
	b.WriteString("\n")

	jobs := s.Jobs()
	if len(jobs) == 0 {
		b.WriteString(placeholderStyle.Render("no jobs tracked"))
	}
	rows := height - 5
	for i, j := range jobs {
		if i >= rows {
			break
		}
		marker := "  "
		if j.Selected {
			marker = "▶ "
		}
		badge := statusBadgeStyle.Copy().Foreground(statusColor(j.Status)).Render(padCell(string(j.Status), 10))
		line := marker + padCell(j.ID.String(), 7) + padCell(j.Info.Name, innerWidth-26) + badge + j.Info.Elapsed

		style := tableRowStyle
		if j.Selected {
			style = tableSelectedStyle
		}
		b.WriteString(style.Render(truncate.String(line, uint(innerWidth))))
		b.WriteString("\n")
	}

	return panelStyle.Copy().
		Width(width - 2).
		Height(height - 2).
		Render(strings.TrimRight(b.String(), "\n"))
}

func renderPane(s *State, stream slurm.Stream, width, contentHeight int) string {
	view := s.Visible(stream, contentHeight)
	innerWidth := width - 4

	title := panelTitleStyle
	panel := panelStyle
	if view.Focused {
		title = focusedTitleStyle
		panel = focusedPanelStyle
	}

	mode := "following"
	if !view.Pinned {
		mode = "scrolled"
	}
	rangeText := ""
	if view.Total > 0 {
		rangeText = fmt.Sprintf("  lines %d-%d/%d", view.First, view.Last, view.Total)
	}
	titleText := title.Render(strings.ToUpper(string(stream))) +
		lineRangeStyle.Render("  ["+mode+"]"+rangeText)

	var b strings.Builder
	b.WriteString(truncate.String(titleText, uint(innerWidth)))
	b.WriteString("\n")
	for i, line := range view.Lines {
		if view.Total == 0 {
			line = placeholderStyle.Render(line)
		}
		b.WriteString(truncate.String(line, uint(innerWidth)))
		if i < len(view.Lines)-1 {
			b.WriteString("\n")
		}
	}

	return panel.Copy().
		Width(width - 2).
		Height(contentHeight + 1).
		Render(b.String())
}

func padCell(text string, width int) string {
	if width < 1 {
		return ""
	}
	if runewidth.StringWidth(text) > width {
		return runewidth.Truncate(text, width, "…")
	}
	return runewidth.FillRight(text, width)
}
