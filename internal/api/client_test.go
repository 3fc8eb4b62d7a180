package api

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/five82/nearby/internal/apperr"
	"github.com/five82/nearby/internal/geo"
)

func TestParseBaseURL_DefaultsAndNormalizes(t *testing.T) {
	u, err := parseBaseURL("")
	if err != nil {
		t.Fatalf("parseBaseURL returned error: %v", err)
	}
	if u.Scheme != "http" || u.Host != "127.0.0.1:8080" {
		t.Fatalf("default url = %q, want http://127.0.0.1:8080", u.String())
	}

	u, err = parseBaseURL("https://example.com/api/?x=1#frag")
	if err != nil {
		t.Fatalf("parseBaseURL returned error: %v", err)
	}
	if u.Path != "/api" || u.RawQuery != "" || u.Fragment != "" {
		t.Fatalf("url not normalized: %q", u.String())
	}
	if got := u.JoinPath("users/nearby").Path; got != "/api/users/nearby" {
		t.Fatalf("joined path = %q, want /api/users/nearby", got)
	}
}

func TestClient_FetchNearbyUsersEncodesQueryAndHeaders(t *testing.T) {
	t.Parallel()

	var gotQuery url.Values
	var gotAuth, gotAgent, gotRequestID string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/users/nearby" {
			http.NotFound(w, r)
			return
		}
		gotQuery = r.URL.Query()
		gotAuth = r.Header.Get("Authorization")
		gotAgent = r.Header.Get("User-Agent")
		gotRequestID = r.Header.Get("X-Request-ID")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"id":"u1","name":"Ada","latitude":37.789,"longitude":-122.43,"distance":120.5},
			{"id":"u2","name":"Bo","latitude":null,"longitude":-122.43}
		]`))
	}))
	t.Cleanup(server.Close)

	c, err := NewClient(server.URL, StaticToken("secret-token"))
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)

	users, err := c.FetchNearbyUsers(ctx, NearbyQuery{Latitude: 37.78825, Longitude: -122.4324, RadiusMeters: 5000, Limit: 50})
	if err != nil {
		t.Fatalf("FetchNearbyUsers returned error: %v", err)
	}
	if len(users) != 2 {
		t.Fatalf("users = %#v, want 2 records", users)
	}
	if users[0].ID != "u1" || users[0].DisplayName != "Ada" || users[0].DistanceMeters == nil || *users[0].DistanceMeters != 120.5 {
		t.Fatalf("users[0] = %#v, want decoded Ada", users[0])
	}
	if !math.IsNaN(users[1].Latitude) {
		t.Fatalf("missing latitude decoded as %v, want NaN", users[1].Latitude)
	}

	if gotQuery.Get("latitude") != "37.78825" ||
		gotQuery.Get("longitude") != "-122.4324" ||
		gotQuery.Get("radius") != "5000" ||
		gotQuery.Get("limit") != "50" {
		t.Fatalf("query = %v, want params encoded", gotQuery)
	}
	if gotAuth != "Bearer secret-token" {
		t.Fatalf("Authorization = %q, want bearer token", gotAuth)
	}
	if !strings.HasPrefix(gotAgent, "nearby/") {
		t.Fatalf("User-Agent = %q, want nearby/*", gotAgent)
	}
	if _, err := uuid.Parse(gotRequestID); err != nil {
		t.Fatalf("X-Request-ID = %q, want uuid: %v", gotRequestID, err)
	}
}

func TestClient_FetchNearbyUsersAcceptsEnvelope(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"users":[{"id":"u9","latitude":1,"longitude":2}]}`))
	}))
	t.Cleanup(server.Close)

	c, err := NewClient(server.URL, nil)
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	users, err := c.FetchNearbyUsers(context.Background(), NearbyQuery{})
	if err != nil {
		t.Fatalf("FetchNearbyUsers returned error: %v", err)
	}
	if len(users) != 1 || users[0].ID != "u9" {
		t.Fatalf("users = %#v, want u9", users)
	}
}

func TestClient_FetchNearbyUsersKeepsGoodRecordsNextToMalformedOnes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
	}{
		{"array", `[{"id":"a","latitude":1,"longitude":2},{"id":"c","latitude":"NaN","longitude":2},{"id":42,"latitude":1,"longitude":2},"junk",{"id":"b","latitude":1.5,"longitude":2}]`},
		{"envelope", `{"data":[{"id":"a","latitude":1,"longitude":2},{"id":"c","latitude":"37.1","longitude":2},{"id":"b","latitude":1.5,"longitude":2}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(tt.body))
			}))
			t.Cleanup(server.Close)

			c, err := NewClient(server.URL, nil)
			if err != nil {
				t.Fatalf("NewClient returned error: %v", err)
			}
			users, err := c.FetchNearbyUsers(context.Background(), NearbyQuery{})
			if err != nil {
				t.Fatalf("FetchNearbyUsers returned error: %v", err)
			}
			var renderable []string
			for _, u := range users {
				if u.Renderable() {
					renderable = append(renderable, u.ID)
				}
			}
			if strings.Join(renderable, ",") != "a,b" {
				t.Fatalf("renderable users = %v, want [a b]", renderable)
			}
			if len(users) == len(renderable) {
				t.Fatalf("malformed records vanished instead of coming back invalid: %#v", users)
			}
		})
	}
}

func TestClient_FetchNearbyUsersRejectsUnreadableBody(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"users":"nope"}`))
	}))
	t.Cleanup(server.Close)

	c, err := NewClient(server.URL, nil)
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	if _, err := c.FetchNearbyUsers(context.Background(), NearbyQuery{}); apperr.CodeOf(err) != apperr.ServerError {
		t.Fatalf("error = %v, want SERVER_ERROR", err)
	}
}

func TestClient_UpdateLocationSendsBody(t *testing.T) {
	t.Parallel()

	var got LocationUpdate
	var gotMethod string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	t.Cleanup(server.Close)

	c, err := NewClient(server.URL, nil)
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	captured := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	fix := geo.Fix{Latitude: 37.78825, Longitude: -122.4324, Accuracy: 8, CapturedAt: captured}
	if err := c.UpdateLocation(context.Background(), fix); err != nil {
		t.Fatalf("UpdateLocation returned error: %v", err)
	}
	if gotMethod != http.MethodPut {
		t.Fatalf("method = %s, want PUT", gotMethod)
	}
	if got.Latitude != fix.Latitude || got.Longitude != fix.Longitude {
		t.Fatalf("body = %#v, want fix coordinates", got)
	}
	if got.Accuracy == nil || *got.Accuracy != 8 {
		t.Fatalf("accuracy = %v, want 8", got.Accuracy)
	}
	if got.Timestamp != "2025-03-01T12:00:00Z" {
		t.Fatalf("timestamp = %q, want capture time", got.Timestamp)
	}
}

func TestClient_HTTPErrorsAreNormalized(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("latitude") {
		case "1":
			_, _ = w.Write([]byte("{not-json"))
		case "2":
			http.Error(w, "nope", http.StatusInternalServerError)
		default:
			http.Error(w, "expired", http.StatusUnauthorized)
		}
	}))
	t.Cleanup(server.Close)

	c, err := NewClient(server.URL, nil)
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}

	_, err = c.FetchNearbyUsers(context.Background(), NearbyQuery{Latitude: 1})
	if apperr.CodeOf(err) != apperr.ServerError || !strings.Contains(err.Error(), "decode response") {
		t.Fatalf("decode error = %v, want SERVER_ERROR decode response", err)
	}

	_, err = c.FetchNearbyUsers(context.Background(), NearbyQuery{Latitude: 2})
	if apperr.CodeOf(err) != apperr.ServerError || !strings.Contains(err.Error(), "returned status 500") {
		t.Fatalf("status error = %v, want SERVER_ERROR status 500", err)
	}
	var appErr *apperr.Error
	if !errors.As(err, &appErr) || appErr.Details["status"] != http.StatusInternalServerError {
		t.Fatalf("details = %#v, want status 500", appErr)
	}

	_, err = c.FetchNearbyUsers(context.Background(), NearbyQuery{Latitude: 3})
	if apperr.CodeOf(err) != apperr.Unauthorized {
		t.Fatalf("401 error = %v, want UNAUTHORIZED", err)
	}
}

func TestClient_ConnectionRefusedIsNetworkError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	addr := server.URL
	server.Close()

	c, err := NewClient(addr, nil)
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	_, err = c.FetchNearbyUsers(context.Background(), NearbyQuery{})
	if apperr.CodeOf(err) != apperr.NetworkError {
		t.Fatalf("error = %v, want NETWORK_ERROR", err)
	}
}

func TestStaticToken_EmptyIsNil(t *testing.T) {
	if StaticToken("   ") != nil {
		t.Fatalf("StaticToken(blank) should be nil")
	}
	if StaticToken("abc") == nil {
		t.Fatalf("StaticToken(abc) should not be nil")
	}
}
