package state

import (
	"sync"
	"time"

	"github.com/five82/nearby/internal/api"
	"github.com/five82/nearby/internal/apperr"
	"github.com/five82/nearby/internal/geo"
	"github.com/five82/nearby/internal/permission"
)

// Snapshot is the full map state at a point in time.
type Snapshot struct {
	CurrentLocation      *geo.Fix
	NearbyUsers          []api.NearbyUser // server order
	IsLoading            bool
	IsLocationLoading    bool
	Error                *apperr.Error
	LastLocationUpdateAt time.Time // zero until the first fix
	Permission           permission.State
	SelectedUserID       string
	Region               geo.Region
	HasRegion            bool
	ConsecutiveFailures  int    // errors since the last successful nearby sync
	Version              uint64 // bumped by every transition
}

// IsOffline returns true when the backend has failed for multiple cycles.
func (s Snapshot) IsOffline() bool {
	return s.ConsecutiveFailures >= 2
}

// SelectedUser returns the selected user when it is still in the nearby list.
func (s Snapshot) SelectedUser() (api.NearbyUser, bool) {
	if s.SelectedUserID == "" {
		return api.NearbyUser{}, false
	}
	for _, u := range s.NearbyUsers {
		if u.ID == s.SelectedUserID {
			return u, true
		}
	}
	return api.NearbyUser{}, false
}

// View is the read interface handed to renderers.
type View struct {
	CurrentLocation *geo.Fix
	NearbyUsers     []api.NearbyUser
	IsLoading       bool
	Error           *apperr.Error
}

// Store guards the map state. The zero value is ready to use.
type Store struct {
	mu       sync.RWMutex
	snapshot Snapshot
	now      func() time.Time
}

// SetLocation records a new fix and recentres the map region on it.
func (s *Store) SetLocation(fix geo.Fix) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snapshot.CurrentLocation = &fix
	s.snapshot.LastLocationUpdateAt = s.clock()
	s.snapshot.IsLocationLoading = false
	s.snapshot.Region = geo.RegionAround(fix)
	s.snapshot.HasRegion = true
	s.snapshot.Version++
}

// SetNearbyUsers replaces the nearby list. Records that cannot be placed on
// the map are dropped here as well, so readers never see them.
func (s *Store) SetNearbyUsers(users []api.NearbyUser) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snapshot.NearbyUsers = cloneRenderable(users)
	s.snapshot.IsLoading = false
	s.snapshot.ConsecutiveFailures = 0
	s.snapshot.Version++
}

// SetLoading marks a nearby sync as in flight.
func (s *Store) SetLoading(loading bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snapshot.IsLoading = loading
	s.snapshot.Version++
}

// SetLocationLoading marks a fix request as in flight.
func (s *Store) SetLocationLoading(loading bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snapshot.IsLocationLoading = loading
	s.snapshot.Version++
}

// SetError records err and ends any loading state. A nil err clears the error
// without touching the failure count. The nearby list is kept either way.
func (s *Store) SetError(err *apperr.Error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err == nil {
		s.snapshot.Error = nil
		s.snapshot.Version++
		return
	}
	s.snapshot.Error = err.Clone()
	s.snapshot.IsLoading = false
	s.snapshot.IsLocationLoading = false
	s.snapshot.ConsecutiveFailures++
	s.snapshot.Version++
}

// ClearError drops the current error.
func (s *Store) ClearError() {
	s.SetError(nil)
}

// SetPermission records the latest permission outcome.
func (s *Store) SetPermission(p permission.State) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snapshot.Permission = p
	s.snapshot.Version++
}

// SetSelectedUser selects a user by id; an empty id clears the selection.
func (s *Store) SetSelectedUser(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snapshot.SelectedUserID = id
	s.snapshot.Version++
}

// SetRegion overrides the visible region until the next fix.
func (s *Store) SetRegion(r geo.Region) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snapshot.Region = r
	s.snapshot.HasRegion = true
	s.snapshot.Version++
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := s.snapshot
	snap.NearbyUsers = cloneUsers(s.snapshot.NearbyUsers)
	if s.snapshot.CurrentLocation != nil {
		fix := *s.snapshot.CurrentLocation
		snap.CurrentLocation = &fix
	}
	if s.snapshot.Error != nil {
		snap.Error = s.snapshot.Error.Clone()
	}
	return snap
}

// View returns the read-only projection consumed by the map view.
func (s *Store) View() View {
	snap := s.Snapshot()
	return View{
		CurrentLocation: snap.CurrentLocation,
		NearbyUsers:     snap.NearbyUsers,
		IsLoading:       snap.IsLoading,
		Error:           snap.Error,
	}
}

// Version returns the transition counter without copying the state.
func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot.Version
}

func (s *Store) clock() time.Time {
	if s.now != nil {
		return s.now()
	}
	return time.Now()
}

func cloneRenderable(users []api.NearbyUser) []api.NearbyUser {
	if len(users) == 0 {
		return nil
	}
	dup := make([]api.NearbyUser, 0, len(users))
	for _, u := range users {
		if u.Renderable() {
			dup = append(dup, u.Clone())
		}
	}
	return dup
}

func cloneUsers(users []api.NearbyUser) []api.NearbyUser {
	if len(users) == 0 {
		return nil
	}
	dup := make([]api.NearbyUser, len(users))
	for i, u := range users {
		dup[i] = u.Clone()
	}
	return dup
}
