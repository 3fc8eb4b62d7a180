package ui

import "time"

// Terminal width thresholds for responsive layouts.
const (
	// LayoutCompactWidth is the threshold below which the map and the user
	// list are stacked instead of side by side.
	LayoutCompactWidth = 100

	// LayoutDetailWidth is the minimum list width that shows bio and interests
	// for the selected user.
	LayoutDetailWidth = 48
)

// Log pane limits.
const (
	// LogTailLimit is the number of log lines read on each refresh.
	LogTailLimit = 200

	// LogPaneHeight is the height of the log pane when it is open.
	LogPaneHeight = 8
)

// Timing constants.
const (
	// DefaultUIInterval is the default UI refresh interval.
	DefaultUIInterval = time.Second

	// RefreshTimeout bounds a manual refresh started from the keyboard.
	RefreshTimeout = 30 * time.Second
)
