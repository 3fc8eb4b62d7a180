package ui

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/nearby/internal/prefs"
	"github.com/five82/nearby/internal/state"
	"github.com/five82/nearby/internal/tracker"
)

// Tracker is the part of the location manager the UI drives.
type Tracker interface {
	Mount(ctx context.Context) error
	Refresh(ctx context.Context) error
	Phase() tracker.Phase
}

// Options configures the UI.
type Options struct {
	Context   context.Context
	Tracker   Tracker
	Store     *state.Store
	LogPath   string
	PollTick  time.Duration
	ThemeName string
	Units     string
	PrefsPath string
}

// Model is the root application state for Bubble Tea.
type Model struct {
	// Configuration
	ctx       context.Context
	tracker   Tracker
	store     *state.Store
	logPath   string
	prefsPath string
	pollTick  time.Duration
	keys      keyMap

	// UI state
	theme    Theme
	units    string
	width    int
	height   int
	ready    bool
	showHelp bool
	showLogs bool

	// Data state
	snapshot    state.Snapshot
	phase       tracker.Phase
	lastUpdated time.Time
	refreshing  bool
	started     bool // the first Mount returned

	// Components
	spinner spinner.Model
	users   table.Model
	logView viewport.Model
	logs    []string

	now func() time.Time
}

// New creates a new Bubble Tea model.
func New(opts Options) Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}

	pollTick := opts.PollTick
	if pollTick == 0 {
		pollTick = DefaultUIInterval
	}

	themeName := opts.ThemeName
	if themeName == "" {
		themeName = prefs.Default().Theme
	}

	prefsPath := opts.PrefsPath
	if prefsPath == "" {
		prefsPath = prefs.DefaultPath()
	}

	m := Model{
		ctx:       ctx,
		tracker:   opts.Tracker,
		store:     opts.Store,
		logPath:   opts.LogPath,
		prefsPath: prefsPath,
		pollTick:  pollTick,
		keys:      DefaultKeyMap(),
		theme:     GetTheme(themeName),
		units:     prefs.NormalizeUnits(opts.Units),
		spinner:   spinner.New(spinner.WithSpinner(spinner.Dot)),
		users:     newUserTable(),
		logView:   viewport.New(0, 0),
		now:       time.Now,
	}
	m.applyTheme()
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		tea.EnterAltScreen,
		tickCmd(m.pollTick),
		m.spinner.Tick,
	}
	if m.store != nil {
		cmds = append(cmds, fetchSnapshotCmd(m.store))
	}
	if m.tracker != nil {
		cmds = append(cmds, mountCmd(m.ctx, m.tracker))
	}
	return tea.Batch(cmds...)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.resize()
		return m, nil

	case tickMsg:
		return m.handleTick()

	case snapshotMsg:
		m.snapshot = state.Snapshot(msg)
		m.lastUpdated = m.now()
		if m.tracker != nil {
			m.phase = m.tracker.Phase()
		}
		m.syncUserTable()
		return m, nil

	case refreshDoneMsg:
		m.refreshing = false
		m.started = true
		if m.store != nil {
			return m, fetchSnapshotCmd(m.store)
		}
		return m, nil

	case logTailMsg:
		m.logs = msg.lines
		m.updateLogViewport()
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	if m.showHelp {
		return m.renderHelp()
	}
	return m.renderMain()
}

// handleKey processes keyboard input.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.showHelp {
		// Any key closes help
		m.showHelp = false
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
		return m, nil

	case key.Matches(msg, m.keys.CycleTheme):
		m.theme = GetTheme(NextTheme(m.theme.Name))
		m.applyTheme()
		m.savePrefs()
		return m, nil

	case key.Matches(msg, m.keys.CycleUnits):
		m.units = prefs.NextUnits(m.units)
		m.syncUserTable()
		m.savePrefs()
		return m, nil

	case key.Matches(msg, m.keys.ToggleLogs):
		m.showLogs = !m.showLogs
		m.resize()
		if m.showLogs {
			return m, readLogsCmd(m.logPath)
		}
		return m, nil

	case key.Matches(msg, m.keys.Refresh):
		if m.tracker == nil || m.refreshing {
			return m, nil
		}
		m.refreshing = true
		return m, refreshCmd(m.ctx, m.tracker)

	case key.Matches(msg, m.keys.ClearError):
		if m.store != nil {
			m.store.ClearError()
			m.snapshot.Error = nil
		}
		return m, nil

	case key.Matches(msg, m.keys.Deselect):
		m.selectUser("")
		return m, nil
	}

	return m.handleUserNavigation(msg)
}

// handleUserNavigation moves the selection through the user list.
func (m Model) handleUserNavigation(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	users := m.sortedUsers()
	if len(users) == 0 {
		return m, nil
	}

	cursor := m.users.Cursor()
	if _, ok := m.snapshot.SelectedUser(); !ok {
		cursor = -1
	}
	switch {
	case key.Matches(msg, m.keys.Down):
		cursor = min(cursor+1, len(users)-1)
	case key.Matches(msg, m.keys.Up):
		cursor = max(cursor-1, 0)
	case key.Matches(msg, m.keys.Top):
		cursor = 0
	case key.Matches(msg, m.keys.Bottom):
		cursor = len(users) - 1
	default:
		return m, nil
	}

	m.users.SetCursor(cursor)
	m.selectUser(users[cursor].ID)
	return m, nil
}

// selectUser records the selection in the shared store and locally so the
// next frame shows it before the store round-trips.
func (m *Model) selectUser(id string) {
	if m.store != nil {
		m.store.SetSelectedUser(id)
	}
	m.snapshot.SelectedUserID = id
	m.syncUserTable()
}

// handleTick processes the polling tick.
func (m Model) handleTick() (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	if m.store != nil {
		cmds = append(cmds, fetchSnapshotCmd(m.store))
	}
	if m.showLogs {
		cmds = append(cmds, readLogsCmd(m.logPath))
	}
	cmds = append(cmds, tickCmd(m.pollTick))

	return m, tea.Batch(cmds...)
}

func (m *Model) savePrefs() {
	if m.prefsPath == "" {
		return
	}
	_ = prefs.Save(m.prefsPath, prefs.Prefs{Theme: m.theme.Name, Units: m.units})
}

// renderMain renders the full UI.
func (m Model) renderMain() string {
	var b strings.Builder

	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(m.renderBanner())
	b.WriteString("\n")
	b.WriteString(m.renderBody())
	if m.showLogs {
		b.WriteString("\n")
		b.WriteString(m.renderLogs())
	}
	b.WriteString("\n")
	b.WriteString(m.renderCommandBar())

	return b.String()
}

// Messages

type tickMsg time.Time

type snapshotMsg state.Snapshot

type refreshDoneMsg struct{ err error }

// Commands

func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func fetchSnapshotCmd(store *state.Store) tea.Cmd {
	return func() tea.Msg {
		return snapshotMsg(store.Snapshot())
	}
}

// mountCmd starts the tracker. Failures land in the store, so the returned
// error only ends the wait.
func mountCmd(ctx context.Context, t Tracker) tea.Cmd {
	return func() tea.Msg {
		return refreshDoneMsg{err: t.Mount(ctx)}
	}
}

func refreshCmd(ctx context.Context, t Tracker) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(ctx, RefreshTimeout)
		defer cancel()
		return refreshDoneMsg{err: t.Refresh(ctx)}
	}
}

// Run starts the Bubble Tea program.
func Run(opts Options) error {
	m := New(opts)
	p := tea.NewProgram(m, tea.WithAltScreen())

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-m.ctx.Done():
			p.Quit()
		case <-done:
		}
	}()

	_, err := p.Run()
	return err
}
