package state

import (
	"math"
	"testing"
	"time"

	"github.com/five82/nearby/internal/api"
	"github.com/five82/nearby/internal/apperr"
	"github.com/five82/nearby/internal/geo"
	"github.com/five82/nearby/internal/permission"
)

func TestStore_SetLocationAndSnapshotClone(t *testing.T) {
	var s Store
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	s.SetLocationLoading(true)
	fix := geo.Fix{Latitude: 37.78825, Longitude: -122.4324, Accuracy: 5, CapturedAt: now}
	s.SetLocation(fix)

	snap := s.Snapshot()
	if snap.CurrentLocation == nil || *snap.CurrentLocation != fix {
		t.Fatalf("CurrentLocation = %v, want %v", snap.CurrentLocation, fix)
	}
	if snap.IsLocationLoading {
		t.Fatalf("IsLocationLoading = true after SetLocation")
	}
	if !snap.LastLocationUpdateAt.Equal(now) {
		t.Fatalf("LastLocationUpdateAt = %v, want %v", snap.LastLocationUpdateAt, now)
	}
	if !snap.HasRegion || snap.Region.Latitude != fix.Latitude || snap.Region.LatitudeDelta != 0.01 {
		t.Fatalf("Region = %+v, want centred on fix", snap.Region)
	}

	// Returned snapshot should be independent of the stored one.
	snap.CurrentLocation.Latitude = 0
	if s.Snapshot().CurrentLocation.Latitude != fix.Latitude {
		t.Fatalf("Snapshot should copy CurrentLocation")
	}
}

func TestStore_SetNearbyUsersFiltersAndClones(t *testing.T) {
	var s Store
	d := 120.0
	s.SetLoading(true)
	s.SetNearbyUsers([]api.NearbyUser{
		{ID: "b", Latitude: 1, Longitude: 1, DistanceMeters: &d, Interests: []string{"go"}},
		{ID: "bad", Latitude: math.NaN(), Longitude: 1},
		{ID: "", Latitude: 1, Longitude: 1},
		{ID: "a", Latitude: 2, Longitude: 2},
	})

	snap := s.Snapshot()
	if snap.IsLoading {
		t.Fatalf("IsLoading = true after SetNearbyUsers")
	}
	if len(snap.NearbyUsers) != 2 || snap.NearbyUsers[0].ID != "b" || snap.NearbyUsers[1].ID != "a" {
		t.Fatalf("NearbyUsers = %+v, want [b a]", snap.NearbyUsers)
	}

	snap.NearbyUsers[0].Interests[0] = "rust"
	*snap.NearbyUsers[0].DistanceMeters = 1
	again := s.Snapshot()
	if again.NearbyUsers[0].Interests[0] != "go" || *again.NearbyUsers[0].DistanceMeters != 120 {
		t.Fatalf("Snapshot should deep-copy users; got %+v", again.NearbyUsers[0])
	}
}

func TestStore_SetErrorKeepsUsers(t *testing.T) {
	var s Store
	s.SetNearbyUsers([]api.NearbyUser{{ID: "a", Latitude: 1, Longitude: 1}})
	s.SetLoading(true)
	s.SetLocationLoading(true)

	orig := apperr.New(apperr.NetworkError, "offline")
	s.SetError(orig)

	snap := s.Snapshot()
	if snap.Error == nil || snap.Error.Code != apperr.NetworkError {
		t.Fatalf("Error = %v, want NETWORK_ERROR", snap.Error)
	}
	if snap.Error == orig {
		t.Fatalf("Snapshot should clone the error instance")
	}
	if snap.IsLoading || snap.IsLocationLoading {
		t.Fatalf("loading flags not cleared by SetError")
	}
	if len(snap.NearbyUsers) != 1 {
		t.Fatalf("NearbyUsers = %d, want 1 kept after error", len(snap.NearbyUsers))
	}

	s.ClearError()
	if s.Snapshot().Error != nil {
		t.Fatalf("Error not cleared")
	}
}

func TestStore_ConsecutiveFailures(t *testing.T) {
	var s Store

	if s.Snapshot().IsOffline() {
		t.Fatal("IsOffline() = true, want false with 0 failures")
	}
	s.SetError(apperr.New(apperr.Timeout, "fail 1"))
	if snap := s.Snapshot(); snap.ConsecutiveFailures != 1 || snap.IsOffline() {
		t.Fatalf("after 1 failure: %d offline=%v", snap.ConsecutiveFailures, snap.IsOffline())
	}
	s.SetError(apperr.New(apperr.Timeout, "fail 2"))
	if snap := s.Snapshot(); snap.ConsecutiveFailures != 2 || !snap.IsOffline() {
		t.Fatalf("after 2 failures: %d offline=%v", snap.ConsecutiveFailures, snap.IsOffline())
	}

	// Clearing the error alone is not a success.
	s.SetError(nil)
	if s.Snapshot().ConsecutiveFailures != 2 {
		t.Fatalf("SetError(nil) reset the failure count")
	}

	s.SetNearbyUsers(nil)
	if snap := s.Snapshot(); snap.ConsecutiveFailures != 0 || snap.IsOffline() {
		t.Fatalf("success should reset failures, got %d", snap.ConsecutiveFailures)
	}
}

func TestStore_VersionBumpsOnEveryTransition(t *testing.T) {
	var s Store
	steps := []func(){
		func() { s.SetLocationLoading(true) },
		func() { s.SetLocation(geo.Fix{Latitude: 1, Longitude: 1}) },
		func() { s.SetLoading(true) },
		func() { s.SetNearbyUsers(nil) },
		func() { s.SetError(apperr.New(apperr.Unknown, "x")) },
		func() { s.ClearError() },
		func() { s.SetPermission(permission.Granted) },
		func() { s.SetSelectedUser("a") },
		func() { s.SetRegion(geo.Region{Latitude: 2, Longitude: 2}) },
	}
	for i, step := range steps {
		before := s.Version()
		step()
		if s.Version() != before+1 {
			t.Fatalf("step %d: Version = %d, want %d", i, s.Version(), before+1)
		}
	}
}

func TestStore_ViewAndSelectedUser(t *testing.T) {
	var s Store
	s.SetLocation(geo.Fix{Latitude: 1, Longitude: 1})
	s.SetNearbyUsers([]api.NearbyUser{{ID: "a", DisplayName: "Ada", Latitude: 1, Longitude: 1}})
	s.SetLoading(true)

	v := s.View()
	if v.CurrentLocation == nil || len(v.NearbyUsers) != 1 || !v.IsLoading || v.Error != nil {
		t.Fatalf("View() = %+v", v)
	}

	snap := s.Snapshot()
	if _, ok := snap.SelectedUser(); ok {
		t.Fatalf("SelectedUser() ok with no selection")
	}
	s.SetSelectedUser("a")
	if u, ok := s.Snapshot().SelectedUser(); !ok || u.DisplayName != "Ada" {
		t.Fatalf("SelectedUser() = %+v, %v", u, ok)
	}
	s.SetSelectedUser("gone")
	if _, ok := s.Snapshot().SelectedUser(); ok {
		t.Fatalf("SelectedUser() ok for a user not in the list")
	}
}
