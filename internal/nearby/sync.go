// Package nearby fetches the users around a fix and drops records the map
// cannot place.
package nearby

import (
	"context"
	"errors"
	"io"
	"log"
	"strings"

	"github.com/five82/nearby/internal/api"
	"github.com/five82/nearby/internal/apperr"
	"github.com/five82/nearby/internal/geo"
)

const (
	DefaultRadiusMeters = 5000.0
	DefaultLimit        = 50
)

// maxLoggedIDs caps how many dropped ids one debug line carries.
const maxLoggedIDs = 10

// Synchronizer issues one nearby request per Sync call. It holds no state
// between calls and never touches the map state.
type Synchronizer struct {
	fetcher api.NearbyFetcher
	limit   int
	debug   *log.Logger
}

// NewSynchronizer wraps fetcher. limit <= 0 uses DefaultLimit; a nil debug
// logger discards output.
func NewSynchronizer(fetcher api.NearbyFetcher, limit int, debug *log.Logger) *Synchronizer {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if debug == nil {
		debug = log.New(io.Discard, "", 0)
	}
	return &Synchronizer{fetcher: fetcher, limit: limit, debug: debug}
}

// Sync returns the renderable users around fix, in server order. radius <= 0
// uses DefaultRadiusMeters. Failures are *apperr.Error with NETWORK_ERROR,
// TIMEOUT, UNAUTHORIZED, SERVER_ERROR or INVALID_DATA.
func (s *Synchronizer) Sync(ctx context.Context, fix geo.Fix, radiusMeters float64) ([]api.NearbyUser, error) {
	if s == nil || s.fetcher == nil {
		return nil, apperr.New(apperr.Unknown, "nearby synchronizer has no backend")
	}
	if !fix.Valid() {
		return nil, apperr.New(apperr.InvalidData, "cannot query nearby users without a valid location").
			WithDetail("location", fix.String())
	}
	if radiusMeters <= 0 {
		radiusMeters = DefaultRadiusMeters
	}

	users, err := s.fetcher.FetchNearbyUsers(ctx, api.NearbyQuery{
		Latitude:     fix.Latitude,
		Longitude:    fix.Longitude,
		RadiusMeters: radiusMeters,
		Limit:        s.limit,
	})
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		return nil, apperr.Normalize(err, apperr.NetworkError)
	}

	kept, dropped := Filter(users)
	if len(dropped) > 0 {
		ids := dropped
		if len(ids) > maxLoggedIDs {
			ids = ids[:maxLoggedIDs]
		}
		s.debug.Printf("nearby: dropped %d invalid record(s) of %d: %s",
			len(dropped), len(users), strings.Join(ids, ","))
	}
	return kept, nil
}

// Filter splits users into renderable records (order preserved) and the ids of
// the rejected ones. Rejected records without an id are reported as "<none>".
func Filter(users []api.NearbyUser) ([]api.NearbyUser, []string) {
	kept := make([]api.NearbyUser, 0, len(users))
	var dropped []string
	for _, u := range users {
		if u.Renderable() {
			kept = append(kept, u)
			continue
		}
		id := strings.TrimSpace(u.ID)
		if id == "" {
			id = "<none>"
		}
		dropped = append(dropped, id)
	}
	return kept, dropped
}
