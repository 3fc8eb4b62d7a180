package api

import (
	"encoding/json"
	"math"
	"strings"
	"testing"

	"github.com/five82/nearby/internal/geo"
)

func TestNearbyUser_Renderable(t *testing.T) {
	tests := []struct {
		name string
		user NearbyUser
		want bool
	}{
		{"valid", NearbyUser{ID: "a", Latitude: 1, Longitude: 2}, true},
		{"empty id", NearbyUser{ID: "", Latitude: 1, Longitude: 2}, false},
		{"blank id", NearbyUser{ID: "  ", Latitude: 1, Longitude: 2}, false},
		{"nan latitude", NearbyUser{ID: "a", Latitude: math.NaN(), Longitude: 2}, false},
		{"inf longitude", NearbyUser{ID: "a", Latitude: 1, Longitude: math.Inf(-1)}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.user.Renderable(); got != tt.want {
				t.Fatalf("Renderable() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNearbyUser_DecodesBioObject(t *testing.T) {
	var u NearbyUser
	err := json.Unmarshal([]byte(`{"id":"x","latitude":1,"longitude":2,"bio":{"content":"hi","interests":["hiking"]}}`), &u)
	if err != nil {
		t.Fatalf("Unmarshal returned error: %v", err)
	}
	if u.Bio != "hi" || len(u.Interests) != 1 || u.Interests[0] != "hiking" {
		t.Fatalf("decoded = %#v, want bio and interests", u)
	}
}

func TestNearbyUser_MarshalsNaNAsNull(t *testing.T) {
	data, err := json.Marshal(NearbyUser{ID: "x", Latitude: math.NaN(), Longitude: 3})
	if err != nil {
		t.Fatalf("Marshal returned error: %v", err)
	}
	if !strings.Contains(string(data), `"latitude":null`) {
		t.Fatalf("json = %s, want latitude null", data)
	}
}

func TestNearbyUser_DistanceFallsBackToHaversine(t *testing.T) {
	from := geo.Fix{Latitude: 0, Longitude: 0}
	u := NearbyUser{ID: "x", Latitude: 1, Longitude: 0}
	if d := u.Distance(from); math.Abs(d-111195) > 50 {
		t.Fatalf("Distance = %.1f, want ~111195", d)
	}
	server := 42.0
	u.DistanceMeters = &server
	if d := u.Distance(from); d != 42 {
		t.Fatalf("Distance = %.1f, want server value 42", d)
	}
}

func TestNearbyUser_CloneIsIndependent(t *testing.T) {
	d := 10.0
	u := NearbyUser{ID: "x", DistanceMeters: &d, Interests: []string{"a"}}
	dup := u.Clone()
	*dup.DistanceMeters = 99
	dup.Interests[0] = "b"
	if *u.DistanceMeters != 10 || u.Interests[0] != "a" {
		t.Fatalf("Clone shares memory with original")
	}
}

func TestParseTime(t *testing.T) {
	if parseTime("").IsZero() != true {
		t.Fatalf("parseTime(\"\") should be zero")
	}
	if parseTime("2025-12-13T10:11:12Z").IsZero() {
		t.Fatalf("parseTime should parse RFC3339")
	}
	if !parseTime("yesterday").IsZero() {
		t.Fatalf("parseTime should reject garbage")
	}
}
