// Package app is the composition root of the nearby client.
//
// # Overview
//
// This package wires configuration, the session, the permission gate, the
// location provider, the nearby synchronizer and the location manager into a
// shared state.Store, then hands the store and the manager to the UI.
//
// # Architecture
//
//  1. Load ~/.config/nearby/config.toml (or the -config path)
//  2. Open the log file and route all logging there; the TUI owns the terminal
//  3. Load the bearer token (inline or token_file) into a session.Holder
//  4. Build the API client, the permission gate over the configured platform
//     status, and the simulated location provider
//  5. Build the tracker.Manager around a fresh state.Store
//  6. Start the TUI, which mounts the manager from its Init command
//  7. Unmount the manager when the TUI exits or the context is cancelled
//
// # Data Flow
//
//	┌──────────────┐
//	│   Run()      │
//	└──────┬───────┘
//	       ├─────> config.Load()        Read config
//	       ├─────> openLog()            Log file, debug logger when enabled
//	       ├─────> Build()              Wire the location subsystem
//	       │        ├─> session.LoadToken / FromToken
//	       │        ├─> api.NewClient
//	       │        ├─> permission.NewGate
//	       │        ├─> geolocation.NewProvider(NewSimulator)
//	       │        ├─> nearby.NewSynchronizer
//	       │        └─> tracker.New
//	       └─────> ui.Run()             TUI (blocks), Mount on init
//
// Build is separate from Run so the wiring can be exercised without a
// terminal; its tests run the manager against an in-process devserver.
//
// # Error Handling
//
// Fatal errors (returned from Run):
//   - Configuration file invalid
//   - Log file cannot be opened
//   - Token file unreadable or token not a JWT
//   - Unknown permission status spelling
//
// Everything after startup (permission refusals, fix timeouts, network and
// server failures) is recorded in the store and shown by the UI; the manager
// keeps its timer running and the user can retry with r.
//
// A missing token is not fatal: the manager stays idle and the UI says so.
//
// # Configuration
//
// Options override parts of the config file:
//
//   - ConfigPath: config.toml path (default: ~/.config/nearby/config.toml)
//   - PrefsPath: prefs.toml path (default: ~/.config/nearby/prefs.toml)
//   - PollEvery: refresh interval in seconds (default: tracker.refresh_interval)
//   - Radius: search radius in meters (default: tracker.radius_meters)
package app
