// Package ui provides the terminal map view for the nearby client.
//
// # Architecture Overview
//
// The UI is a Bubble Tea program. Model owns only presentation state; the map
// state lives in a shared state.Store that the location manager writes and the
// UI polls on a tick:
//
//	tickMsg ──> fetchSnapshotCmd ──> snapshotMsg ──> Model.snapshot ──> View()
//
// Init mounts the tracker in a command, so the first cycle (permission,
// location fix, nearby sync) never blocks rendering. Keyboard refresh runs
// Tracker.Refresh the same way and ignores repeats until it returns.
//
// # Package Structure
//
//   - app.go: Model, Options, Update loop, commands and Run
//   - header.go: status bar, error banner, body layout and the init error screen
//   - radar.go: projection of nearby users onto a character grid around the fix
//   - users.go: nearby user table and selected user detail
//   - logs.go: log pane fed by logtail
//   - keys.go, help.go: key bindings and the help overlay
//   - theme.go, style_helpers.go: palettes and background-safe rendering
//
// # Map Rendering
//
// The radar places each user by haversine distance and initial bearing from
// the current fix. The range covers the visible region and grows to fit the
// farthest user, so everyone is on screen. Cells holding several users show a
// count; the selected user is drawn as ◆ and the current location as @.
//
// # Errors
//
// An error with no location ever obtained replaces the map with a full-size
// message and a hint: blocked permission points at the [permission] config
// section, which stands in for device settings. Later errors appear in the
// banner while the last map stays visible.
//
// # Preferences
//
// Theme (T) and distance units (u) are saved to the prefs file as soon as they
// change.
package ui
