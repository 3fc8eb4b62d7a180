// Package state holds the shared map state for the nearby client.
//
// # Overview
//
// The Store is the coordination point between the location manager, which
// writes, and the map view, which reads. Writers only use the named
// transitions; readers take a Snapshot or the narrower View.
//
//	Producer (tracker.Manager):      Consumer (ui):
//	┌──────────────────────┐       ┌──────────────────┐
//	│ SetLocationLoading() │       │                  │
//	│ SetLocation(fix)     │       │                  │
//	│ SetLoading()         │──────→│ store.Snapshot() │
//	│ SetNearbyUsers()     │(mutex)│       ↓          │
//	│ SetError()           │       │   render map     │
//	└──────────────────────┘       └──────────────────┘
//
// # Transitions
//
//	SetLocation(fix)        CurrentLocation = fix, LastLocationUpdateAt = now,
//	                        IsLocationLoading = false, Region centred on fix
//	SetNearbyUsers(users)   NearbyUsers = renderable users in server order,
//	                        IsLoading = false, ConsecutiveFailures = 0
//	SetLoading(b)           IsLoading = b
//	SetLocationLoading(b)   IsLocationLoading = b
//	SetError(err)           Error = err, both loading flags cleared,
//	                        NearbyUsers unchanged; nil clears the error
//	SetPermission(p)        Permission = p
//	SetSelectedUser(id)     SelectedUserID = id
//	SetRegion(r)            Region = r
//
// Every transition bumps Version, which observers use to detect change.
//
// # Invariants
//
//   - NearbyUsers only ever holds records with a non-empty id and finite
//     coordinates; SetNearbyUsers filters again at this boundary.
//   - An error never clears NearbyUsers. The last good list stays visible.
//   - Snapshot and View return deep copies; callers may mutate them freely.
//
// # Testing Considerations
//
// The zero Store is ready to use:
//
//	var store state.Store
//	store.SetLoading(true)
package state
