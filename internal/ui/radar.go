package ui

import (
	"math"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/five82/nearby/internal/api"
	"github.com/five82/nearby/internal/geo"
)

// metersPerDegree is the length of one degree of latitude.
const metersPerDegree = 111320.0

type markKind int

const (
	markUser markKind = iota
	markCluster
	markSelected
	markSelf
)

// radarMark is one occupied cell of the radar grid.
type radarMark struct {
	row, col int
	kind     markKind
	count    int
	clamped  bool // the user lies outside the range and sits on the border
}

// radarPlot is the projection of the nearby users onto a cols x rows grid
// centred on the current fix.
type radarPlot struct {
	cols, rows  int
	rangeMeters float64
	marks       map[[2]int]*radarMark
}

// plotRadar projects users around center. The range covers at least the
// visible region and stretches to fit the farthest user.
func plotRadar(center geo.Fix, region geo.Region, users []api.NearbyUser, selectedID string, cols, rows int) radarPlot {
	plot := radarPlot{cols: cols, rows: rows, marks: make(map[[2]int]*radarMark)}
	if cols < 3 || rows < 3 {
		return plot
	}

	plot.rangeMeters = regionHalfSpan(center, region)
	for _, u := range users {
		if d := geo.HaversineMeters(center.Latitude, center.Longitude, u.Latitude, u.Longitude); d*1.1 > plot.rangeMeters {
			plot.rangeMeters = d * 1.1
		}
	}

	cx := (cols - 1) / 2
	cy := (rows - 1) / 2
	halfCols := float64(cols-1) / 2
	halfRows := float64(rows-1) / 2

	for _, u := range users {
		d := geo.HaversineMeters(center.Latitude, center.Longitude, u.Latitude, u.Longitude)
		b := geo.DegreesToRadians(geo.BearingDegrees(center.Latitude, center.Longitude, u.Latitude, u.Longitude))
		north := d * math.Cos(b)
		east := d * math.Sin(b)

		col := cx + int(math.Round(east/plot.rangeMeters*halfCols))
		row := cy - int(math.Round(north/plot.rangeMeters*halfRows))
		clamped := false
		if col < 0 || col >= cols || row < 0 || row >= rows {
			clamped = true
			col = min(max(col, 0), cols-1)
			row = min(max(row, 0), rows-1)
		}
		if row == cy && col == cx {
			// Never hide the current location marker.
			if east >= 0 {
				col++
			} else {
				col--
			}
		}

		key := [2]int{row, col}
		mark, ok := plot.marks[key]
		if !ok {
			mark = &radarMark{row: row, col: col, kind: markUser}
			plot.marks[key] = mark
		}
		mark.count++
		mark.clamped = mark.clamped || clamped
		switch {
		case u.ID == selectedID:
			mark.kind = markSelected
		case mark.count > 1 && mark.kind != markSelected:
			mark.kind = markCluster
		}
	}

	plot.marks[[2]int{cy, cx}] = &radarMark{row: cy, col: cx, kind: markSelf, count: 1}
	return plot
}

// regionHalfSpan is the smaller half-extent of the region in meters, with a
// floor so a degenerate region still draws.
func regionHalfSpan(center geo.Fix, region geo.Region) float64 {
	north := region.LatitudeDelta / 2 * metersPerDegree
	east := region.LongitudeDelta / 2 * metersPerDegree * math.Cos(geo.DegreesToRadians(center.Latitude))
	span := math.Min(north, east)
	if math.IsNaN(span) || span < 100 {
		return 100
	}
	return span
}

func (p radarPlot) glyph(row, col int) (string, markKind, bool) {
	mark, ok := p.marks[[2]int{row, col}]
	if !ok {
		return "", 0, false
	}
	switch mark.kind {
	case markSelf:
		return "@", markSelf, true
	case markSelected:
		return "◆", markSelected, true
	case markCluster:
		if mark.count > 9 {
			return "+", markCluster, true
		}
		return strconv.Itoa(mark.count), markCluster, true
	default:
		if mark.clamped {
			return "◦", markUser, true
		}
		return "•", markUser, true
	}
}

// renderRadar draws the plot with a faint crosshair through the centre.
func (m Model) renderRadar(width, height int) string {
	styles := m.theme.Styles().WithBackground(m.theme.Surface)
	bg := NewBgStyle(m.theme.Surface)
	snap := m.snapshot

	if snap.CurrentLocation == nil {
		msg := "Waiting for a location fix..."
		if snap.IsLocationLoading {
			msg = m.spinner.View() + " Locating..."
		}
		return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center,
			styles.MutedText.Render(msg),
			lipgloss.WithWhitespaceBackground(lipgloss.Color(m.theme.Surface)))
	}

	region := snap.Region
	if !snap.HasRegion {
		region = geo.RegionAround(*snap.CurrentLocation)
	}
	rows := max(height-1, 3)
	plot := plotRadar(*snap.CurrentLocation, region, snap.NearbyUsers, snap.SelectedUserID, width, rows)

	cx := (width - 1) / 2
	cy := (rows - 1) / 2
	lines := make([]string, 0, rows+1)
	for r := 0; r < rows; r++ {
		var line strings.Builder
		for c := 0; c < width; c++ {
			if g, kind, ok := plot.glyph(r, c); ok {
				line.WriteString(markStyle(styles, kind).Render(g))
				continue
			}
			switch {
			case r == cy && c == cx:
				line.WriteString(styles.Ring.Render("+"))
			case r == cy:
				line.WriteString(styles.Ring.Render("·"))
			case c == cx:
				line.WriteString(styles.Ring.Render(":"))
			default:
				line.WriteString(bg.Space())
			}
		}
		lines = append(lines, line.String())
	}

	legend := bg.Join([]string{
		bg.Render("@ you", styles.Self),
		bg.Render("• user", styles.Marker),
		bg.Render("◆ selected", styles.AccentText),
		bg.Render("range "+formatDistance(plot.rangeMeters, m.units), styles.MutedText),
		bg.Render(snap.CurrentLocation.String(), styles.FaintText),
	}, "  ")
	lines = append(lines, bg.FillLine(legend, width))
	return strings.Join(lines, "\n")
}

func markStyle(styles Styles, kind markKind) lipgloss.Style {
	switch kind {
	case markSelf:
		return styles.Self
	case markSelected:
		return styles.AccentText.Bold(true)
	case markCluster:
		return styles.WarningText
	default:
		return styles.Marker
	}
}
