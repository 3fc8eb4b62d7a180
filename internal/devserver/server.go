package devserver

import (
	"errors"
	"io"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/five82/nearby/internal/api"
	"github.com/five82/nearby/internal/geo"
)

const (
	defaultPopulation   = 40
	defaultSpreadMeters = 3000
	defaultRadiusMeters = 5000
	maxRadiusMeters     = 50000
	defaultLimit        = 50
	maxLimit            = 200
)

// Config configures the development backend.
type Config struct {
	Secret         []byte  // HS256 signing key; required
	Seed           string  // varies the synthetic population
	Population     int     // synthetic users per grid cell
	SpreadMeters   float64 // how far synthetic users sit from the cell centre
	InvalidRecords int     // unplaceable records appended to every response
	Envelope       bool    // wrap the list in {"users": [...]}
	Logger         *log.Logger
}

// Location is the last position a user uploaded.
type Location struct {
	UserID    string
	Name      string
	Latitude  float64
	Longitude float64
	Accuracy  *float64
	Timestamp string
	UpdatedAt time.Time
}

// Server is an in-memory implementation of the nearby-users backend.
type Server struct {
	cfg    Config
	logger *log.Logger
	now    func() time.Time

	mu        sync.RWMutex
	locations map[string]Location
}

// New returns a Server. Zero values in cfg fall back to defaults.
func New(cfg Config) (*Server, error) {
	if len(cfg.Secret) == 0 {
		return nil, errors.New("devserver: secret is required")
	}
	if cfg.Population < 0 {
		cfg.Population = 0
	} else if cfg.Population == 0 {
		cfg.Population = defaultPopulation
	}
	if cfg.SpreadMeters <= 0 {
		cfg.SpreadMeters = defaultSpreadMeters
	}
	if cfg.Seed == "" {
		cfg.Seed = "nearby"
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Server{
		cfg:       cfg,
		logger:    logger,
		now:       time.Now,
		locations: make(map[string]Location),
	}, nil
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	users := r.Group("/users", s.authRequired())
	users.GET("/nearby", s.nearbyUsers)
	users.PUT("/location", s.updateLocation)
	users.GET("/me/location", s.myLocation)

	return r
}

// Location returns the last upload of userID.
func (s *Server) Location(userID string) (Location, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	loc, ok := s.locations[userID]
	return loc, ok
}

type nearbyQuery struct {
	Latitude  *float64 `form:"latitude" binding:"required"`
	Longitude *float64 `form:"longitude" binding:"required"`
	Radius    float64  `form:"radius"`
	Limit     int      `form:"limit"`
}

func (s *Server) nearbyUsers(c *gin.Context) {
	var q nearbyQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !geo.ValidCoordinate(*q.Latitude, *q.Longitude) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "coordinates out of range"})
		return
	}
	radius := q.Radius
	if radius <= 0 {
		radius = defaultRadiusMeters
	}
	radius = min(radius, maxRadiusMeters)
	limit := q.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	limit = min(limit, maxLimit)

	caller := userID(c)
	candidates := s.syntheticUsers(*q.Latitude, *q.Longitude)
	candidates = append(candidates, s.others(caller)...)

	result := within(candidates, *q.Latitude, *q.Longitude, radius, limit)
	result = append(result, invalidUsers(s.cfg.InvalidRecords)...)

	s.logger.Printf("devserver: %s nearby %.5f,%.5f r=%.0f -> %d", caller, *q.Latitude, *q.Longitude, radius, len(result))
	if s.cfg.Envelope {
		c.JSON(http.StatusOK, gin.H{"users": result})
		return
	}
	c.JSON(http.StatusOK, result)
}

// others returns the uploaded locations of everyone but caller as users.
func (s *Server) others(caller string) []api.NearbyUser {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]api.NearbyUser, 0, len(s.locations))
	for id, loc := range s.locations {
		if id == caller {
			continue
		}
		name := loc.Name
		if name == "" {
			name = id
		}
		out = append(out, api.NearbyUser{
			ID:          id,
			DisplayName: name,
			Latitude:    loc.Latitude,
			Longitude:   loc.Longitude,
			LastSeen:    loc.UpdatedAt.UTC().Format(time.RFC3339),
		})
	}
	return out
}

func (s *Server) updateLocation(c *gin.Context) {
	var req api.LocationUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !geo.ValidCoordinate(req.Latitude, req.Longitude) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "coordinates out of range"})
		return
	}

	loc := Location{
		UserID:    userID(c),
		Name:      c.GetString(ctxName),
		Latitude:  req.Latitude,
		Longitude: req.Longitude,
		Accuracy:  req.Accuracy,
		Timestamp: req.Timestamp,
		UpdatedAt: s.now(),
	}
	s.mu.Lock()
	s.locations[loc.UserID] = loc
	s.mu.Unlock()

	s.logger.Printf("devserver: %s moved to %.5f,%.5f", loc.UserID, loc.Latitude, loc.Longitude)
	c.Status(http.StatusNoContent)
}

func (s *Server) myLocation(c *gin.Context) {
	loc, ok := s.Location(userID(c))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no location uploaded"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"latitude":   loc.Latitude,
		"longitude":  loc.Longitude,
		"accuracy":   loc.Accuracy,
		"timestamp":  loc.Timestamp,
		"updated_at": loc.UpdatedAt,
	})
}
