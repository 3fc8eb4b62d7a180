package devserver

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/five82/nearby/internal/api"
	"github.com/five82/nearby/internal/session"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newServer(t *testing.T, cfg Config) *Server {
	t.Helper()
	if cfg.Secret == nil {
		cfg.Secret = []byte("test-secret")
	}
	s, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

func token(t *testing.T, s *Server, user string) string {
	t.Helper()
	tok, err := s.IssueToken(user, "Name "+user, time.Hour)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	return tok
}

func do(t *testing.T, s *Server, method, target, tok string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, target, &buf)
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func nearbyURL(lat, lng, radius float64, limit int) string {
	v := url.Values{}
	v.Set("latitude", fmt.Sprint(lat))
	v.Set("longitude", fmt.Sprint(lng))
	if radius > 0 {
		v.Set("radius", fmt.Sprint(radius))
	}
	if limit > 0 {
		v.Set("limit", fmt.Sprint(limit))
	}
	return "/users/nearby?" + v.Encode()
}

func decodeUsers(t *testing.T, rec *httptest.ResponseRecorder) []api.NearbyUser {
	t.Helper()
	var users []api.NearbyUser
	if err := json.Unmarshal(rec.Body.Bytes(), &users); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return users
}

func TestNew_RequiresSecret(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Fatalf("New without secret returned nil error")
	}
}

func TestAuth(t *testing.T) {
	s := newServer(t, Config{})
	other := newServer(t, Config{Secret: []byte("other-secret")})

	expired, err := s.IssueToken("u1", "", -time.Minute)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	noneAlg, err := jwt.NewWithClaims(jwt.SigningMethodNone, session.Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "u1"},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none: %v", err)
	}

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"not bearer", "Token abc", http.StatusUnauthorized},
		{"garbage", "Bearer abc", http.StatusUnauthorized},
		{"expired", "Bearer " + expired, http.StatusUnauthorized},
		{"wrong key", "Bearer " + token(t, other, "u1"), http.StatusUnauthorized},
		{"alg none", "Bearer " + noneAlg, http.StatusUnauthorized},
		{"valid", "Bearer " + token(t, s, "u1"), http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, nearbyURL(37.78, -122.43, 0, 0), nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			s.Handler().ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, tt.want, rec.Body.String())
			}
		})
	}
}

func TestIssuedTokenReadsAsSession(t *testing.T) {
	s := newServer(t, Config{})
	sess, err := session.FromToken(token(t, s, "u42"))
	if err != nil {
		t.Fatalf("FromToken: %v", err)
	}
	if sess.UserID != "u42" || sess.Name != "Name u42" || sess.ExpiresAt.IsZero() {
		t.Fatalf("session = %+v", sess)
	}
}

func TestNearby_DeterministicSortedAndBounded(t *testing.T) {
	s := newServer(t, Config{Population: 30, SpreadMeters: 2000})
	tok := token(t, s, "u1")

	first := decodeUsers(t, do(t, s, http.MethodGet, nearbyURL(37.78, -122.43, 5000, 0), tok, nil))
	second := decodeUsers(t, do(t, s, http.MethodGet, nearbyURL(37.78, -122.43, 5000, 0), tok, nil))
	if len(first) != 30 {
		t.Fatalf("got %d users, want the whole population of 30", len(first))
	}
	for i := range first {
		if first[i].ID != second[i].ID || first[i].Latitude != second[i].Latitude {
			t.Fatalf("population not deterministic at %d", i)
		}
		if !first[i].Renderable() || first[i].DistanceMeters == nil {
			t.Fatalf("user %d not renderable or missing distance: %+v", i, first[i])
		}
		if i > 0 && *first[i].DistanceMeters < *first[i-1].DistanceMeters {
			t.Fatalf("users not sorted by distance at %d", i)
		}
		if *first[i].DistanceMeters > 5000 {
			t.Fatalf("user %d outside radius: %v", i, *first[i].DistanceMeters)
		}
	}

	limited := decodeUsers(t, do(t, s, http.MethodGet, nearbyURL(37.78, -122.43, 5000, 5), tok, nil))
	if len(limited) != 5 || limited[0].ID != first[0].ID {
		t.Fatalf("limit 5 returned %d users", len(limited))
	}

	small := decodeUsers(t, do(t, s, http.MethodGet, nearbyURL(37.78, -122.43, 300, 0), tok, nil))
	for _, u := range small {
		if *u.DistanceMeters > 300 {
			t.Fatalf("radius 300 returned user at %v", *u.DistanceMeters)
		}
	}
}

func TestNearby_RejectsBadQueries(t *testing.T) {
	s := newServer(t, Config{})
	tok := token(t, s, "u1")

	for _, target := range []string{
		"/users/nearby",
		"/users/nearby?latitude=37.7",
		"/users/nearby?latitude=abc&longitude=1",
		nearbyURL(91, 0, 0, 0),
	} {
		if rec := do(t, s, http.MethodGet, target, tok, nil); rec.Code != http.StatusBadRequest {
			t.Errorf("GET %s status = %d, want 400", target, rec.Code)
		}
	}
}

func TestNearby_InvalidRecordsAndEnvelope(t *testing.T) {
	s := newServer(t, Config{Population: 3, InvalidRecords: 2, Envelope: true})
	rec := do(t, s, http.MethodGet, nearbyURL(10, 10, 0, 0), token(t, s, "u1"), nil)

	var envelope api.NearbyUsersResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(envelope.Users) != 5 {
		t.Fatalf("got %d records, want 3 users + 2 invalid", len(envelope.Users))
	}
	bad := 0
	for _, u := range envelope.Users {
		if !u.Renderable() {
			bad++
		}
	}
	if bad != 2 {
		t.Fatalf("unrenderable records = %d, want 2", bad)
	}
	last := envelope.Users[len(envelope.Users)-1]
	if !math.IsNaN(last.Latitude) {
		t.Fatalf("record without position decoded latitude %v, want NaN", last.Latitude)
	}
}

func TestLocationUpload_VisibleToOthers(t *testing.T) {
	s := newServer(t, Config{Population: -1})
	alice := token(t, s, "alice")
	bob := token(t, s, "bob")

	rec := do(t, s, http.MethodPut, "/users/location", alice, api.LocationUpdate{
		Latitude: 37.78, Longitude: -122.43, Timestamp: "2025-10-08T12:00:00Z",
	})
	if rec.Code != http.StatusNoContent {
		t.Fatalf("PUT status = %d, want 204: %s", rec.Code, rec.Body.String())
	}
	if rec.Body.Len() != 0 {
		t.Fatalf("PUT body = %q, want empty", rec.Body.String())
	}
	if loc, ok := s.Location("alice"); !ok || loc.Latitude != 37.78 || loc.Name != "Name alice" {
		t.Fatalf("Location(alice) = %+v, %v", loc, ok)
	}

	users := decodeUsers(t, do(t, s, http.MethodGet, nearbyURL(37.781, -122.43, 1000, 0), bob, nil))
	if len(users) != 1 || users[0].ID != "alice" {
		t.Fatalf("bob sees %+v, want alice only", users)
	}
	self := decodeUsers(t, do(t, s, http.MethodGet, nearbyURL(37.781, -122.43, 1000, 0), alice, nil))
	if len(self) != 0 {
		t.Fatalf("alice sees herself: %+v", self)
	}

	if rec := do(t, s, http.MethodGet, "/users/me/location", alice, nil); rec.Code != http.StatusOK {
		t.Fatalf("GET me/location status = %d", rec.Code)
	}
	if rec := do(t, s, http.MethodGet, "/users/me/location", bob, nil); rec.Code != http.StatusNotFound {
		t.Fatalf("GET me/location for bob status = %d, want 404", rec.Code)
	}
}

func TestLocationUpload_RejectsInvalid(t *testing.T) {
	s := newServer(t, Config{})
	tok := token(t, s, "u1")

	rec := do(t, s, http.MethodPut, "/users/location", tok, api.LocationUpdate{Latitude: 95, Longitude: 0})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	req := httptest.NewRequest(http.MethodPut, "/users/location", bytes.NewBufferString("{"))
	req.Header.Set("Authorization", "Bearer "+tok)
	req.Header.Set("Content-Type", "application/json")
	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("malformed body status = %d, want 400", rec.Code)
	}
	if _, ok := s.Location("u1"); ok {
		t.Fatalf("invalid upload was stored")
	}
}

func TestHealthz(t *testing.T) {
	s := newServer(t, Config{})
	if rec := do(t, s, http.MethodGet, "/healthz", "", nil); rec.Code != http.StatusOK {
		t.Fatalf("healthz status = %d", rec.Code)
	}
}
