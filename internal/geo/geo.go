// Package geo holds the location record shared by the provider, the manager
// and the map state, plus the small amount of spherical geometry the client
// needs.
package geo

import (
	"fmt"
	"math"
	"time"
)

// EarthRadiusMeters is the mean Earth radius used by Haversine.
const EarthRadiusMeters = 6371000.0

// regionDelta is the span applied around a fix when centring the map.
const regionDelta = 0.01

// Fix is a single captured position. Values are never mutated after
// construction; later fixes supersede earlier ones.
type Fix struct {
	Latitude   float64
	Longitude  float64
	Accuracy   float64 // meters; zero when the platform did not report one
	CapturedAt time.Time
}

// HasAccuracy reports whether the platform reported an accuracy radius.
func (f Fix) HasAccuracy() bool {
	return f.Accuracy > 0 && !math.IsInf(f.Accuracy, 0)
}

// Valid reports whether both coordinates are finite and in range.
func (f Fix) Valid() bool {
	return ValidCoordinate(f.Latitude, f.Longitude)
}

func (f Fix) String() string {
	return fmt.Sprintf("%.5f,%.5f", f.Latitude, f.Longitude)
}

// ValidCoordinate reports whether lat/lng are finite and inside WGS84 bounds.
func ValidCoordinate(lat, lng float64) bool {
	if math.IsNaN(lat) || math.IsNaN(lng) || math.IsInf(lat, 0) || math.IsInf(lng, 0) {
		return false
	}
	return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180
}

// Region is the visible map window.
type Region struct {
	Latitude       float64
	Longitude      float64
	LatitudeDelta  float64
	LongitudeDelta float64
}

// RegionAround centres a region on the fix.
func RegionAround(f Fix) Region {
	return Region{
		Latitude:       f.Latitude,
		Longitude:      f.Longitude,
		LatitudeDelta:  regionDelta,
		LongitudeDelta: regionDelta,
	}
}

// Contains reports whether the point falls inside the region.
func (r Region) Contains(lat, lng float64) bool {
	return math.Abs(lat-r.Latitude) <= r.LatitudeDelta/2 &&
		math.Abs(lng-r.Longitude) <= r.LongitudeDelta/2
}

// DegreesToRadians converts degrees to radians.
func DegreesToRadians(d float64) float64 {
	return d * math.Pi / 180.0
}

// HaversineMeters returns the great-circle distance between two points.
func HaversineMeters(lat1, lng1, lat2, lng2 float64) float64 {
	rlat1 := DegreesToRadians(lat1)
	rlat2 := DegreesToRadians(lat2)
	dLat := rlat2 - rlat1
	dLng := DegreesToRadians(lng2 - lng1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(rlat1)*math.Cos(rlat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return EarthRadiusMeters * c
}

// BearingDegrees returns the initial bearing from point 1 to point 2,
// clockwise from north in [0, 360).
func BearingDegrees(lat1, lng1, lat2, lng2 float64) float64 {
	rlat1 := DegreesToRadians(lat1)
	rlat2 := DegreesToRadians(lat2)
	dLng := DegreesToRadians(lng2 - lng1)

	y := math.Sin(dLng) * math.Cos(rlat2)
	x := math.Cos(rlat1)*math.Sin(rlat2) - math.Sin(rlat1)*math.Cos(rlat2)*math.Cos(dLng)
	deg := math.Atan2(y, x) * 180 / math.Pi
	return math.Mod(deg+360, 360)
}

// Offset moves a point by the given meters north and east. Accurate enough
// for the few kilometres the client deals with.
func Offset(lat, lng, northMeters, eastMeters float64) (float64, float64) {
	dLat := northMeters / EarthRadiusMeters
	dLng := eastMeters / (EarthRadiusMeters * math.Cos(DegreesToRadians(lat)))
	return lat + dLat*180/math.Pi, lng + dLng*180/math.Pi
}
