package api

import (
	"encoding/json"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/five82/nearby/internal/geo"
)

// NearbyUser is a candidate user returned by /users/nearby. Coordinates that
// are missing from the payload decode to NaN so Renderable rejects them.
type NearbyUser struct {
	ID             string
	DisplayName    string
	Latitude       float64
	Longitude      float64
	DistanceMeters *float64
	Age            int
	Avatar         string
	Bio            string
	Interests      []string
	IsVerified     bool
	LastSeen       string
}

// Renderable reports whether the record can be placed on the map: non-empty
// id and finite coordinates.
func (u NearbyUser) Renderable() bool {
	if strings.TrimSpace(u.ID) == "" {
		return false
	}
	return geo.ValidCoordinate(u.Latitude, u.Longitude)
}

// Distance returns the server distance when present, otherwise the haversine
// distance from the given fix.
func (u NearbyUser) Distance(from geo.Fix) float64 {
	if u.DistanceMeters != nil && !math.IsNaN(*u.DistanceMeters) {
		return *u.DistanceMeters
	}
	return geo.HaversineMeters(from.Latitude, from.Longitude, u.Latitude, u.Longitude)
}

// ParsedLastSeen returns LastSeen as time.Time, zero when absent or invalid.
func (u NearbyUser) ParsedLastSeen() time.Time {
	return parseTime(u.LastSeen)
}

// Clone returns a copy that shares no slices or pointers with u.
func (u NearbyUser) Clone() NearbyUser {
	dup := u
	if u.DistanceMeters != nil {
		d := *u.DistanceMeters
		dup.DistanceMeters = &d
	}
	dup.Interests = slices.Clone(u.Interests)
	return dup
}

// nearbyUserPayload mirrors the wire shape of a nearby user.
type nearbyUserPayload struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Latitude   *float64 `json:"latitude"`
	Longitude  *float64 `json:"longitude"`
	Distance   *float64 `json:"distance,omitempty"`
	Age        int      `json:"age,omitempty"`
	Avatar     string   `json:"avatar,omitempty"`
	Bio        *bio     `json:"bio,omitempty"`
	Interests  []string `json:"interests,omitempty"`
	IsVerified bool     `json:"is_verified,omitempty"`
	LastSeen   string   `json:"last_seen,omitempty"`
}

type bio struct {
	Content   string   `json:"content"`
	Interests []string `json:"interests,omitempty"`
}

// UnmarshalJSON decodes the wire payload.
func (u *NearbyUser) UnmarshalJSON(data []byte) error {
	var p nearbyUserPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*u = NearbyUser{
		ID:             p.ID,
		DisplayName:    p.Name,
		Latitude:       floatOrNaN(p.Latitude),
		Longitude:      floatOrNaN(p.Longitude),
		DistanceMeters: p.Distance,
		Age:            p.Age,
		Avatar:         p.Avatar,
		Interests:      p.Interests,
		IsVerified:     p.IsVerified,
		LastSeen:       p.LastSeen,
	}
	if p.Bio != nil {
		u.Bio = p.Bio.Content
		if len(u.Interests) == 0 {
			u.Interests = p.Bio.Interests
		}
	}
	return nil
}

// MarshalJSON encodes non-finite coordinates as null.
func (u NearbyUser) MarshalJSON() ([]byte, error) {
	p := nearbyUserPayload{
		ID:         u.ID,
		Name:       u.DisplayName,
		Latitude:   finiteOrNil(u.Latitude),
		Longitude:  finiteOrNil(u.Longitude),
		Distance:   u.DistanceMeters,
		Age:        u.Age,
		Avatar:     u.Avatar,
		Interests:  u.Interests,
		IsVerified: u.IsVerified,
		LastSeen:   u.LastSeen,
	}
	if u.Bio != "" {
		p.Bio = &bio{Content: u.Bio}
	}
	return json.Marshal(p)
}

// NearbyUsersResponse is the envelope some backends wrap the list in.
type NearbyUsersResponse struct {
	Users []NearbyUser `json:"users"`
	Data  []NearbyUser `json:"data"`
}

// LocationUpdate is the body of PUT /users/location.
type LocationUpdate struct {
	Latitude  float64  `json:"latitude"`
	Longitude float64  `json:"longitude"`
	Accuracy  *float64 `json:"accuracy,omitempty"`
	Timestamp string   `json:"timestamp"`
}

// NewLocationUpdate converts a fix into the upload body.
func NewLocationUpdate(f geo.Fix) LocationUpdate {
	update := LocationUpdate{
		Latitude:  f.Latitude,
		Longitude: f.Longitude,
		Timestamp: f.CapturedAt.UTC().Format(time.RFC3339Nano),
	}
	if f.HasAccuracy() {
		acc := f.Accuracy
		update.Accuracy = &acc
	}
	return update
}

func floatOrNaN(v *float64) float64 {
	if v == nil {
		return math.NaN()
	}
	return *v
}

func finiteOrNil(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func parseTime(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339} {
		if t, err := time.Parse(layout, value); err == nil {
			return t
		}
	}
	return time.Time{}
}
