package ui

import (
	"slices"

	"github.com/charmbracelet/lipgloss"
)

// Theme is a named palette. Colors are hex strings.
type Theme struct {
	Name string

	Background string
	Surface    string // header, map and user list
	SurfaceAlt string // log pane and user detail
	Border     string

	SelectionBg   string
	SelectionText string

	Text    string
	Muted   string
	Faint   string
	Accent  string
	Success string
	Warning string
	Danger  string
	Info    string

	Self   string // the current location
	Marker string // nearby users
	Ring   string // crosshair and border

	// StatusColors holds badge colors keyed by tracker phase name and by
	// "offline".
	StatusColors map[string]string
}

// Styles holds the lipgloss styles the views render with.
type Styles struct {
	Text        lipgloss.Style
	MutedText   lipgloss.Style
	FaintText   lipgloss.Style
	AccentText  lipgloss.Style
	SuccessText lipgloss.Style
	WarningText lipgloss.Style
	DangerText  lipgloss.Style
	InfoText    lipgloss.Style

	Header lipgloss.Style
	Footer lipgloss.Style
	Logo   lipgloss.Style

	Self   lipgloss.Style
	Marker lipgloss.Style
	Ring   lipgloss.Style

	statusColors map[string]string
	background   string
	muted        string
}

func fg(color string) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(color))
}

// Styles builds the styles for t.
func (t Theme) Styles() Styles {
	bar := lipgloss.NewStyle().Background(lipgloss.Color(t.Surface)).Padding(0, 1)
	return Styles{
		Text:        fg(t.Text),
		MutedText:   fg(t.Muted),
		FaintText:   fg(t.Faint),
		AccentText:  fg(t.Accent),
		SuccessText: fg(t.Success).Bold(true),
		WarningText: fg(t.Warning),
		DangerText:  fg(t.Danger).Bold(true),
		InfoText:    fg(t.Info),

		Header: bar.Foreground(lipgloss.Color(t.Text)),
		Footer: bar.Foreground(lipgloss.Color(t.Muted)),
		Logo:   fg(t.Warning).Bold(true),

		Self:   fg(t.Self).Bold(true),
		Marker: fg(t.Marker),
		Ring:   fg(t.Ring),

		statusColors: t.StatusColors,
		background:   t.Background,
		muted:        t.Muted,
	}
}

// StatusStyle returns the badge style for a phase name or "offline". Unknown
// names get the muted color.
func (s Styles) StatusStyle(status string) lipgloss.Style {
	color, ok := s.statusColors[status]
	if !ok || color == "" {
		color = s.muted
	}
	return lipgloss.NewStyle().
		Foreground(lipgloss.Color(s.background)).
		Background(lipgloss.Color(color)).
		Padding(0, 1)
}

// WithBackground returns a copy with every style painted on bgColor, so text
// inside a colored panel does not punch through to the terminal background.
func (s Styles) WithBackground(bgColor string) Styles {
	bg := lipgloss.Color(bgColor)
	out := s
	for _, style := range []*lipgloss.Style{
		&out.Text, &out.MutedText, &out.FaintText, &out.AccentText,
		&out.SuccessText, &out.WarningText, &out.DangerText, &out.InfoText,
		&out.Header, &out.Footer, &out.Logo,
		&out.Self, &out.Marker, &out.Ring,
	} {
		*style = style.Background(bg)
	}
	return out
}

// Palettes: Nightfox (EdenEast/nightfox.nvim), Kanagawa (rebelot/kanagawa.nvim)
// and Slate (Tailwind slate/sky).
var themes = []Theme{
	{
		Name:       "Nightfox",
		Background: "#131a24",
		Surface:    "#192330",
		SurfaceAlt: "#212e3f",
		Border:     "#39506d",

		SelectionBg:   "#2b3b51",
		SelectionText: "#cdcecf",

		Text:    "#cdcecf",
		Muted:   "#738091",
		Faint:   "#71839b",
		Accent:  "#719cd6",
		Success: "#81b29a",
		Warning: "#dbc074",
		Danger:  "#c94f6d",
		Info:    "#63cdcf",

		Self:   "#dbc074",
		Marker: "#63cdcf",
		Ring:   "#39506d",

		StatusColors: map[string]string{
			"idle":         "#738091",
			"initializing": "#719cd6",
			"ready":        "#81b29a",
			"error":        "#c94f6d",
			"offline":      "#f4a261",
		},
	},
	{
		Name:       "Kanagawa",
		Background: "#16161D",
		Surface:    "#1F1F28",
		SurfaceAlt: "#2A2A37",
		Border:     "#54546D",

		SelectionBg:   "#2D4F67",
		SelectionText: "#DCD7BA",

		Text:    "#DCD7BA",
		Muted:   "#C8C093",
		Faint:   "#727169",
		Accent:  "#7E9CD8",
		Success: "#98BB6C",
		Warning: "#E6C384",
		Danger:  "#E46876",
		Info:    "#7FB4CA",

		Self:   "#E6C384",
		Marker: "#7FB4CA",
		Ring:   "#54546D",

		StatusColors: map[string]string{
			"idle":         "#727169",
			"initializing": "#7E9CD8",
			"ready":        "#98BB6C",
			"error":        "#E46876",
			"offline":      "#FFA066",
		},
	},
	{
		Name:       "Slate",
		Background: "#020617",
		Surface:    "#0f172a",
		SurfaceAlt: "#1e293b",
		Border:     "#334155",

		SelectionBg:   "#0284c7",
		SelectionText: "#f8fafc",

		Text:    "#f1f5f9",
		Muted:   "#94a3b8",
		Faint:   "#64748b",
		Accent:  "#38bdf8",
		Success: "#22c55e",
		Warning: "#f59e0b",
		Danger:  "#ef4444",
		Info:    "#06b6d4",

		Self:   "#f59e0b",
		Marker: "#38bdf8",
		Ring:   "#334155",

		StatusColors: map[string]string{
			"idle":         "#64748b",
			"initializing": "#0ea5e9",
			"ready":        "#22c55e",
			"error":        "#dc2626",
			"offline":      "#f59e0b",
		},
	},
}

// GetTheme returns the named theme, or the first one when name is unknown.
func GetTheme(name string) Theme {
	i := slices.IndexFunc(themes, func(t Theme) bool { return t.Name == name })
	if i < 0 {
		return themes[0]
	}
	return themes[i]
}

// NextTheme returns the theme after current, wrapping around.
func NextTheme(current string) string {
	names := ThemeNames()
	i := slices.Index(names, current)
	return names[(i+1)%len(names)]
}

// ThemeNames lists the themes in cycle order.
func ThemeNames() []string {
	names := make([]string, len(themes))
	for i, t := range themes {
		names[i] = t.Name
	}
	return names
}
