// Package config loads the nearby client configuration.
//
// # Configuration Discovery
//
// The Load function follows this resolution order:
//
//  1. If a path is explicitly provided, use it
//  2. Otherwise, use ~/.config/nearby/config.toml (default)
//  3. If the config file doesn't exist, fall back to hardcoded defaults
//  4. If the file exists but fields are missing/empty, use defaults
//
// # File Format
//
//	log_file = "~/.local/share/nearby/nearby.log"
//	debug = false
//
//	[api]
//	base_url = "http://127.0.0.1:8080"
//	token = ""                  # bearer token, or
//	token_file = "~/.config/nearby/token"
//
//	[tracker]
//	refresh_interval = "30s"
//	radius_meters = 5000.0
//	limit = 50
//	watch = false               # continuous location updates while mounted
//	fix_timeout = "15s"
//	fix_max_age = "10s"
//	high_accuracy = true
//	upload_interval = "10s"     # minimum spacing between location uploads
//
//	[permission]
//	status = "ask"              # granted | ask | blocked | unavailable
//	answer = "granted"          # what a prompt resolves to
//
//	[simulator]
//	latitude = 37.78825
//	longitude = -122.4324
//	jitter_meters = 25.0
//	accuracy_meters = 10.0
//	latency = "200ms"
//	watch_interval = "5s"
//
// Durations use time.ParseDuration syntax. The [permission] section plays the
// part of the device settings: a blocked status can only be lifted by editing
// it.
//
// # Path Expansion
//
// Paths starting with ~ are expanded to the user's home directory and made
// absolute.
//
// # Error Handling
//
// Load returns an error for unreadable files, TOML syntax errors and values
// out of range (negative durations, non-positive radius or limit, simulator
// coordinates outside WGS84). A missing file is not an error.
package config
