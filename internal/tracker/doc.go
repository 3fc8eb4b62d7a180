// Package tracker drives location tracking and nearby-user refresh for the
// map view.
//
// # Lifecycle
//
//	           Mount (signed in)
//	  Idle ───────────────────────→ Initializing
//	   ↑                              │      │
//	   │ Unmount            success   │      │ failure
//	   │                              ↓      ↓
//	   └─────────────────────────── Ready   Error ──Refresh──→ Initializing
//
// Initialization runs in order: permission gate, one-shot fix, publish fix,
// upload fix, nearby sync, publish users. A permission outcome other than
// granted publishes PERMISSION_DENIED (or PERMISSION_BLOCKED) and stops before
// the location provider or backend is touched.
//
// Once Ready a ticker repeats the fix and sync every RefreshInterval (default
// 30s). Tick failures publish an error and leave the manager Ready; the last
// good nearby list stays in the store.
//
// # Concurrency
//
// One cycle runs at a time, guarded by a weighted semaphore. A tick or Refresh
// that finds a cycle in flight is skipped rather than queued.
//
// Every write to the store happens under the manager mutex after checking the
// mount epoch. Unmount bumps the epoch and cancels the run context while
// holding the same mutex, so once it returns no late result can reach the
// store, even from a platform call that ignores cancellation.
//
// Location uploads are fire-and-forget and rate limited (UploadInterval,
// default 10s). A 401 from either endpoint clears the session.
package tracker
