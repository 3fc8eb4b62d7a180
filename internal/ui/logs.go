package ui

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/five82/nearby/internal/logtail"
)

type logTailMsg struct {
	lines []string
}

func readLogsCmd(path string) tea.Cmd {
	return func() tea.Msg {
		if path == "" {
			return logTailMsg{}
		}
		lines, err := logtail.Read(path, LogTailLimit)
		if err != nil {
			return logTailMsg{lines: []string{"failed to read log: " + err.Error()}}
		}
		return logTailMsg{lines: lines}
	}
}

// updateLogViewport re-renders the tail and follows the newest line.
func (m *Model) updateLogViewport() {
	styles := m.theme.Styles()
	entries := logtail.ParseLines(m.logs)
	rendered := make([]string, 0, len(entries))
	for _, e := range entries {
		rendered = append(rendered, m.renderLogEntry(styles, e))
	}
	if len(rendered) == 0 {
		rendered = append(rendered, styles.FaintText.Render("log is empty"))
	}
	m.logView.SetContent(strings.Join(rendered, "\n"))
	m.logView.GotoBottom()
}

func (m Model) renderLogEntry(styles Styles, e logtail.Entry) string {
	var b strings.Builder
	if e.Time != "" {
		b.WriteString(styles.FaintText.Render(e.Time))
		b.WriteString(" ")
	}
	if e.Component != "" {
		b.WriteString(styles.AccentText.Render(padRight(e.Component, 8)))
		b.WriteString(" ")
	}
	b.WriteString(levelStyle(styles, e.Level).Render(e.Message))
	return b.String()
}

func levelStyle(styles Styles, level logtail.Level) lipgloss.Style {
	switch level {
	case logtail.LevelError:
		return styles.DangerText
	case logtail.LevelWarn:
		return styles.WarningText
	case logtail.LevelDebug:
		return styles.FaintText
	default:
		return styles.Text
	}
}

// renderLogs renders the log pane with its title line.
func (m Model) renderLogs() string {
	styles := m.theme.Styles().WithBackground(m.theme.SurfaceAlt)
	bg := NewBgStyle(m.theme.SurfaceAlt)
	title := bg.Join([]string{
		bg.Render("Log", styles.AccentText.Bold(true)),
		bg.Render(truncateMiddle(m.logPath, max(m.width-10, 10)), styles.FaintText),
	}, "  ")
	return lipgloss.JoinVertical(lipgloss.Left,
		bg.FillLine(title, m.width),
		m.logView.View(),
	)
}
