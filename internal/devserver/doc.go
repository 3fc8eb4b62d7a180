// Package devserver is an in-memory stand-in for the nearby-users backend,
// used for local development and end-to-end tests of the client.
//
// # Endpoints
//
//	GET  /healthz                 liveness, no auth
//	GET  /users/nearby            latitude, longitude (required), radius, limit
//	PUT  /users/location          {"latitude", "longitude", "accuracy", "timestamp"}
//	GET  /users/me/location       last upload of the caller
//
// Everything under /users requires an HS256 bearer token signed with
// Config.Secret; IssueToken mints one. Missing, malformed, expired or foreign
// tokens get 401 with a JSON error body.
//
// # Population
//
// Each 0.01° grid cell holds Config.Population synthetic users whose ids are
// UUIDv5 values derived from the seed and the cell, so the same query always
// returns the same people. Users who uploaded a location are listed to
// everyone else. Results are filtered by radius, sorted nearest first and
// capped by limit. InvalidRecords appends records without an id or position
// so the client's filtering can be exercised against a real server.
package devserver
