package ui

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"

	"github.com/five82/nearby/internal/api"
)

const (
	colNameWidth     = 18
	colDistanceWidth = 9
	colAgeWidth      = 4
	colSeenWidth     = 9
)

func newUserTable() table.Model {
	return table.New(
		table.WithColumns(userColumns(colNameWidth)),
		table.WithFocused(true),
		table.WithHeight(5),
	)
}

func userColumns(nameWidth int) []table.Column {
	return []table.Column{
		{Title: "Name", Width: nameWidth},
		{Title: "Distance", Width: colDistanceWidth},
		{Title: "Age", Width: colAgeWidth},
		{Title: "Seen", Width: colSeenWidth},
	}
}

// applyTheme restyles the components that keep their own styles.
func (m *Model) applyTheme() {
	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color(m.theme.Border)).
		BorderBottom(true).
		Foreground(lipgloss.Color(m.theme.Accent)).
		Bold(true)
	s.Cell = s.Cell.Foreground(lipgloss.Color(m.theme.Text))
	s.Selected = lipgloss.NewStyle().
		Background(lipgloss.Color(m.theme.SelectionBg)).
		Foreground(lipgloss.Color(m.theme.SelectionText))
	m.users.SetStyles(s)

	m.spinner.Style = lipgloss.NewStyle().Foreground(lipgloss.Color(m.theme.Accent))
}

// sortedUsers orders the nearby users by distance from the current fix,
// keeping server order when there is no fix yet.
func (m Model) sortedUsers() []api.NearbyUser {
	users := slices.Clone(m.snapshot.NearbyUsers)
	if m.snapshot.CurrentLocation == nil {
		return users
	}
	from := *m.snapshot.CurrentLocation
	slices.SortStableFunc(users, func(a, b api.NearbyUser) int {
		da, db := a.Distance(from), b.Distance(from)
		switch {
		case da < db:
			return -1
		case da > db:
			return 1
		default:
			return 0
		}
	})
	return users
}

// syncUserTable rebuilds the rows and keeps the cursor on the selected user.
func (m *Model) syncUserTable() {
	users := m.sortedUsers()
	rows := make([]table.Row, 0, len(users))
	now := m.now()
	cursor := 0
	for i, u := range users {
		name := u.DisplayName
		if strings.TrimSpace(name) == "" {
			name = u.ID
		}
		if u.IsVerified {
			name += " ✓"
		}
		distance := "-"
		if m.snapshot.CurrentLocation != nil {
			distance = formatDistance(u.Distance(*m.snapshot.CurrentLocation), m.units)
		}
		age := ""
		if u.Age > 0 {
			age = strconv.Itoa(u.Age)
		}
		rows = append(rows, table.Row{name, distance, age, formatSince(u.ParsedLastSeen(), now)})
		if u.ID == m.snapshot.SelectedUserID {
			cursor = i
		}
	}
	m.users.SetRows(rows)
	if len(rows) > 0 {
		m.users.SetCursor(cursor)
	}
}

// renderUsers renders the list and, when there is room, the selected user.
func (m Model) renderUsers(width, height int) string {
	styles := m.theme.Styles().WithBackground(m.theme.Surface)
	bg := NewBgStyle(m.theme.Surface)

	title := fmt.Sprintf("Nearby (%d)", len(m.snapshot.NearbyUsers))
	header := bg.Render(title, styles.AccentText.Bold(true))
	if m.snapshot.IsLoading {
		header += bg.Space() + m.spinner.View()
	}

	detail := ""
	if width >= LayoutDetailWidth {
		if u, ok := m.snapshot.SelectedUser(); ok {
			detail = m.renderUserDetail(u, width)
		}
	}
	detailHeight := 0
	if detail != "" {
		detailHeight = lipgloss.Height(detail)
	}

	var list string
	if len(m.snapshot.NearbyUsers) == 0 {
		msg := "No one nearby yet."
		if m.snapshot.IsLoading {
			msg = "Looking for people nearby..."
		}
		list = styles.MutedText.Render(msg)
	} else {
		list = m.users.View()
	}

	parts := []string{bg.FillLine(header, width), list}
	if detail != "" && height-detailHeight > 4 {
		parts = append(parts, detail)
	}
	return lipgloss.NewStyle().
		Width(width).
		Height(height).
		MaxHeight(height).
		Background(lipgloss.Color(m.theme.Surface)).
		Render(lipgloss.JoinVertical(lipgloss.Left, parts...))
}

func (m Model) renderUserDetail(u api.NearbyUser, width int) string {
	styles := m.theme.Styles().WithBackground(m.theme.SurfaceAlt)
	lines := []string{styles.Text.Bold(true).Render(truncate(u.DisplayName, width-2))}
	if u.Bio != "" {
		lines = append(lines, styles.MutedText.Render(truncate(u.Bio, width-2)))
	}
	if len(u.Interests) > 0 {
		lines = append(lines, styles.InfoText.Render(truncate(strings.Join(u.Interests, " · "), width-2)))
	}
	if m.snapshot.CurrentLocation != nil {
		lines = append(lines, styles.FaintText.Render(fmt.Sprintf("%.5f,%.5f", u.Latitude, u.Longitude)))
	}
	return lipgloss.NewStyle().
		Width(width).
		Padding(0, 1).
		Background(lipgloss.Color(m.theme.SurfaceAlt)).
		Render(strings.Join(lines, "\n"))
}
