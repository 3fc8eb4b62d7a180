package devserver

import (
	"encoding/binary"
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/five82/nearby/internal/api"
	"github.com/five82/nearby/internal/geo"
)

// cellDegrees is the grid the synthetic population is anchored to, so small
// moves of the caller keep the same people in the same places.
const cellDegrees = 0.01

var (
	firstNames = []string{
		"Ada", "Bea", "Cal", "Dee", "Eli", "Fay", "Gus", "Hal",
		"Ivy", "Jo", "Kit", "Lou", "Max", "Nia", "Oz", "Pia",
	}
	interestPool = []string{
		"climbing", "coffee", "film", "hiking", "jazz", "board games",
		"running", "cooking", "photography", "cycling", "books", "yoga",
	}
	bios = []string{
		"New in town.", "Always up for a walk.", "Ask me about my dog.",
		"Looking for a tennis partner.", "", "Weekend baker.",
	}
)

// syntheticUsers returns the population of the grid cell around lat/lng.
func (s *Server) syntheticUsers(lat, lng float64) []api.NearbyUser {
	cellLat := math.Round(lat/cellDegrees) * cellDegrees
	cellLng := math.Round(lng/cellDegrees) * cellDegrees
	now := s.now()

	users := make([]api.NearbyUser, 0, s.cfg.Population)
	for i := 0; i < s.cfg.Population; i++ {
		name := fmt.Sprintf("%s/%.2f,%.2f/%d", s.cfg.Seed, cellLat, cellLng, i)
		id := uuid.NewSHA1(uuid.NameSpaceURL, []byte(name))
		b := id[:]

		bearing := unitFloat(b[0:4]) * 360
		distance := math.Sqrt(unitFloat(b[4:8])) * s.cfg.SpreadMeters
		rad := geo.DegreesToRadians(bearing)
		uLat, uLng := geo.Offset(cellLat, cellLng, distance*math.Cos(rad), distance*math.Sin(rad))

		users = append(users, api.NearbyUser{
			ID:          id.String(),
			DisplayName: firstNames[int(b[9])%len(firstNames)],
			Latitude:    uLat,
			Longitude:   uLng,
			Age:         18 + int(b[8])%40,
			Bio:         bios[int(b[10])%len(bios)],
			Interests: []string{
				interestPool[int(b[11])%len(interestPool)],
				interestPool[int(b[12])%len(interestPool)],
			},
			IsVerified: b[13]%3 == 0,
			LastSeen:   now.Add(-time.Duration(b[14]%90) * time.Minute).UTC().Format(time.RFC3339),
		})
	}
	return users
}

// invalidUsers are records the client is expected to drop.
func invalidUsers(n int) []api.NearbyUser {
	out := make([]api.NearbyUser, 0, n)
	for i := 0; i < n; i++ {
		if i%2 == 0 {
			out = append(out, api.NearbyUser{ID: "", DisplayName: "no id", Latitude: 0, Longitude: 0})
			continue
		}
		out = append(out, api.NearbyUser{
			ID:          fmt.Sprintf("broken-%d", i),
			DisplayName: "no position",
			Latitude:    math.NaN(),
			Longitude:   math.NaN(),
		})
	}
	return out
}

// within keeps users inside radius of lat/lng, sets their distance, sorts
// them nearest first and applies limit.
func within(users []api.NearbyUser, lat, lng, radius float64, limit int) []api.NearbyUser {
	out := make([]api.NearbyUser, 0, len(users))
	for _, u := range users {
		d := geo.HaversineMeters(lat, lng, u.Latitude, u.Longitude)
		if d > radius {
			continue
		}
		d = math.Round(d*10) / 10
		u.DistanceMeters = &d
		out = append(out, u)
	}
	slices.SortStableFunc(out, func(a, b api.NearbyUser) int {
		switch {
		case *a.DistanceMeters < *b.DistanceMeters:
			return -1
		case *a.DistanceMeters > *b.DistanceMeters:
			return 1
		default:
			return 0
		}
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func unitFloat(b []byte) float64 {
	return float64(binary.BigEndian.Uint32(b)) / math.MaxUint32
}
