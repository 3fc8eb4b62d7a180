package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/five82/nearby/internal/apperr"
	"github.com/five82/nearby/internal/permission"
	"github.com/five82/nearby/internal/tracker"
)

// renderHeader renders the status bar.
func (m Model) renderHeader() string {
	styles := m.theme.Styles().WithBackground(m.theme.Surface)
	bg := NewBgStyle(m.theme.Surface)
	snap := m.snapshot

	parts := []string{
		bg.Render("nearby", styles.Logo),
		styles.StatusStyle(m.phase.String()).Render(strings.ToUpper(m.phase.String())),
	}
	if snap.IsOffline() {
		parts = append(parts, styles.StatusStyle("offline").Render("OFFLINE"))
	}

	perm := "location " + snap.Permission.String()
	permStyle := styles.MutedText
	switch snap.Permission {
	case permission.Granted:
		permStyle = styles.SuccessText
	case permission.Denied, permission.Blocked:
		permStyle = styles.DangerText
	}
	parts = append(parts, bg.Render(perm, permStyle))

	parts = append(parts, bg.Render(fmt.Sprintf("%d nearby", len(snap.NearbyUsers)), styles.Text))

	if snap.CurrentLocation != nil {
		accuracy := ""
		if snap.CurrentLocation.HasAccuracy() {
			accuracy = " ±" + formatDistance(snap.CurrentLocation.Accuracy, m.units)
		}
		parts = append(parts, bg.Render("fix "+formatSince(snap.LastLocationUpdateAt, m.now())+accuracy, styles.MutedText))
	}

	if snap.IsLoading || snap.IsLocationLoading || m.refreshing {
		parts = append(parts, m.spinner.View())
	}

	if snap.Error != nil {
		parts = append(parts, bg.Render("ERROR", styles.DangerText))
	}

	return styles.Header.Width(m.width).Render(bg.Join(parts, "  "))
}

// renderBanner renders the error line, or the selection summary when there
// is nothing wrong.
func (m Model) renderBanner() string {
	styles := m.theme.Styles().WithBackground(m.theme.Background)
	bg := NewBgStyle(m.theme.Background)
	snap := m.snapshot

	var content string
	switch {
	case snap.Error != nil:
		msg := fmt.Sprintf("%s %s", snap.Error.Code, snap.Error.Message)
		if snap.ConsecutiveFailures > 1 {
			msg += fmt.Sprintf(" (%d in a row)", snap.ConsecutiveFailures)
		}
		content = bg.Join([]string{
			bg.Render(truncate(msg, max(m.width-24, 10)), styles.DangerText),
			bg.Render("r retry  c dismiss", styles.FaintText),
		}, "  ")
	case m.started && m.phase == tracker.Idle:
		content = bg.Join([]string{
			bg.Render("Not signed in.", styles.WarningText),
			bg.Render("Set api.token or api.token_file in the config, then press r.", styles.MutedText),
		}, "  ")
	default:
		if u, ok := snap.SelectedUser(); ok && snap.CurrentLocation != nil {
			content = bg.Render("selected "+u.DisplayName+" "+formatDistance(u.Distance(*snap.CurrentLocation), m.units), styles.AccentText)
		} else if !m.lastUpdated.IsZero() {
			content = bg.Render("updated "+m.lastUpdated.Format("15:04:05"), styles.FaintText)
		}
	}
	return bg.FillLine(" "+content, m.width)
}

// renderBody lays out the map and the user list, or the full-size
// initialization error when there is nothing to show yet.
func (m Model) renderBody() string {
	width, height := m.bodySize()
	if m.initFailed() {
		return m.renderInitError(width, height)
	}

	if width < LayoutCompactWidth {
		mapHeight := max(height/2, 4)
		return lipgloss.JoinVertical(lipgloss.Left,
			m.renderRadar(width, mapHeight),
			m.renderUsers(width, height-mapHeight),
		)
	}

	mapWidth := width * 3 / 5
	return lipgloss.JoinHorizontal(lipgloss.Top,
		m.renderRadar(mapWidth, height),
		m.renderUsers(width-mapWidth, height),
	)
}

// initFailed reports an error with no location ever obtained, which is the
// state a failed first cycle leaves behind.
func (m Model) initFailed() bool {
	return m.snapshot.Error != nil && m.snapshot.CurrentLocation == nil
}

func (m Model) renderInitError(width, height int) string {
	styles := m.theme.Styles()
	err := m.snapshot.Error

	lines := []string{
		styles.DangerText.Render(initErrorTitle(err, m.snapshot.Permission)),
		"",
		styles.Text.Render(err.Message),
		"",
	}
	for _, hint := range initErrorHints(err, m.snapshot.Permission) {
		lines = append(lines, styles.MutedText.Render(hint))
	}

	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(m.theme.Danger)).
		Padding(1, 3).
		Width(min(64, max(width-4, 20))).
		Render(strings.Join(lines, "\n"))

	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, box,
		lipgloss.WithWhitespaceChars(" "))
}

func initErrorTitle(err *apperr.Error, state permission.State) string {
	switch err.Code {
	case apperr.PermissionBlocked:
		return "Location access is blocked"
	case apperr.PermissionDenied:
		if permission.NeedsSettings(state) {
			return "Location access is blocked"
		}
		return "Location permission denied"
	case apperr.Unavailable:
		return "Location services unavailable"
	case apperr.Timeout:
		return "Could not get a location fix"
	case apperr.Unauthorized:
		return "Signed out"
	default:
		return "Could not load the map"
	}
}

func initErrorHints(err *apperr.Error, state permission.State) []string {
	switch {
	case err.Code == apperr.PermissionBlocked || permission.NeedsSettings(state):
		return []string{
			"Allow location in settings: set [permission] status = \"granted\"",
			"in the config file, then press r.",
		}
	case err.Code == apperr.PermissionDenied:
		return []string{"Press r to be asked again."}
	case err.Code == apperr.Unauthorized:
		return []string{"Sign in again and restart nearby."}
	default:
		return []string{"Press r to retry."}
	}
}

// renderCommandBar renders the short key help.
func (m Model) renderCommandBar() string {
	styles := m.theme.Styles().WithBackground(m.theme.Surface)
	bg := NewBgStyle(m.theme.Surface)

	parts := make([]string, 0, len(m.keys.ShortHelp()))
	for _, b := range m.keys.ShortHelp() {
		h := b.Help()
		parts = append(parts, bg.Render(h.Key, styles.WarningText)+bg.Space()+bg.Render(h.Desc, styles.MutedText))
	}
	return styles.Footer.Width(m.width).Render(bg.Join(parts, "  "))
}

// bodySize is the space left between the header lines and the command bar.
func (m Model) bodySize() (int, int) {
	height := m.height - 3
	if m.showLogs {
		height -= LogPaneHeight + 1
	}
	return m.width, max(height, 3)
}

// resize fits the components to the current window.
func (m *Model) resize() {
	width, height := m.bodySize()
	tableWidth := width - width*3/5
	if width < LayoutCompactWidth {
		tableWidth = width
		height -= max(height/2, 4)
	}
	nameWidth := max(tableWidth-colDistanceWidth-colAgeWidth-colSeenWidth-8, 8)
	m.users.SetColumns(userColumns(nameWidth))
	m.users.SetWidth(tableWidth)
	m.users.SetHeight(max(height-2, 3))

	m.logView.Width = m.width
	m.logView.Height = LogPaneHeight
	m.updateLogViewport()
}
