// Package api provides an HTTP client for the nearby-users backend.
//
// # Overview
//
// The client covers the two endpoints the location subsystem consumes:
//
//   - GET /users/nearby?latitude&longitude&radius&limit: users around a point
//   - PUT /users/location: upload of the current fix (response ignored)
//
// The backend is owned by another service; the client accepts a bare JSON
// array or a {"users": [...]} / {"data": [...]} envelope for the nearby list.
//
// # Request Handling
//
// All requests:
//   - Use context for cancellation and timeout control
//   - Set Accept: application/json and User-Agent: nearby/0.1
//   - Carry a fresh X-Request-ID (UUID v4) for server-side correlation
//   - Carry Authorization: Bearer <token> through an oauth2.Transport when a
//     token source is configured
//   - Have a 10-second transport timeout
//
// # Error Handling
//
// Failures are returned as *apperr.Error:
//
//   - NETWORK_ERROR: connection refused, DNS failure, reset
//   - TIMEOUT: deadline exceeded on the request context or transport
//   - UNAUTHORIZED: HTTP 401 (session expired or revoked)
//   - SERVER_ERROR: other 4xx/5xx statuses and undecodable bodies
//
// Example messages:
//   - "SERVER_ERROR: api /users/nearby returned status 500"
//   - "SERVER_ERROR: decode response: unexpected end of JSON input"
//
// # Records
//
// NearbyUser decodes missing coordinates as NaN rather than zero, so a record
// without a position can never be mistaken for one at 0,0. Filtering is left
// to the caller (see package nearby); the client returns exactly what the
// server sent, in server order.
//
// # Design Rationale
//
// Like the rest of the transport layer the client is intentionally minimal:
//   - No caching (the location manager owns refresh cadence)
//   - No retries (the next tick is the retry)
//   - No state mutation (callers publish results)
package api
