package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"github.com/five82/nearby/internal/apperr"
	"github.com/five82/nearby/internal/geo"
)

// NearbyFetcher defines the read side used by the synchronizer.
// This interface is implemented by *Client and can be used for testing.
type NearbyFetcher interface {
	FetchNearbyUsers(ctx context.Context, query NearbyQuery) ([]NearbyUser, error)
}

// LocationUploader defines the write side used by the location manager.
type LocationUploader interface {
	UpdateLocation(ctx context.Context, fix geo.Fix) error
}

// Ensure Client implements both interfaces at compile time.
var (
	_ NearbyFetcher    = (*Client)(nil)
	_ LocationUploader = (*Client)(nil)
)

// Client talks to the backend REST API.
type Client struct {
	baseURL      *url.URL
	http         *http.Client
	userAgent    string
	newRequestID func() string
}

const (
	defaultBaseURL   = "http://127.0.0.1:8080"
	defaultUserAgent = "nearby/0.1"
	requestTimeout   = 10 * time.Second
	maxErrorBody     = 512
)

// NewClient builds a Client for baseURL. When tokens is non-nil every request
// carries its bearer token.
func NewClient(baseURL string, tokens oauth2.TokenSource) (*Client, error) {
	base, err := parseBaseURL(baseURL)
	if err != nil {
		return nil, err
	}
	transport := http.DefaultTransport
	if tokens != nil {
		transport = &oauth2.Transport{
			Source: oauth2.ReuseTokenSource(nil, tokens),
			Base:   http.DefaultTransport,
		}
	}
	return &Client{
		baseURL: base,
		http: &http.Client{
			Timeout:   requestTimeout,
			Transport: transport,
		},
		userAgent:    defaultUserAgent,
		newRequestID: uuid.NewString,
	}, nil
}

// StaticToken wraps a bearer token in a TokenSource. Empty tokens yield nil.
func StaticToken(token string) oauth2.TokenSource {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil
	}
	return oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"})
}

// NearbyQuery configures /users/nearby requests.
type NearbyQuery struct {
	Latitude     float64
	Longitude    float64
	RadiusMeters float64
	Limit        int
}

// FetchNearbyUsers retrieves users around the query point in server order.
func (c *Client) FetchNearbyUsers(ctx context.Context, query NearbyQuery) ([]NearbyUser, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}
	values := url.Values{}
	values.Set("latitude", strconv.FormatFloat(query.Latitude, 'f', -1, 64))
	values.Set("longitude", strconv.FormatFloat(query.Longitude, 'f', -1, 64))
	if query.RadiusMeters > 0 {
		values.Set("radius", strconv.FormatFloat(query.RadiusMeters, 'f', -1, 64))
	}
	if query.Limit > 0 {
		values.Set("limit", strconv.Itoa(query.Limit))
	}

	var raw json.RawMessage
	if err := c.do(ctx, http.MethodGet, "users/nearby", values, nil, &raw); err != nil {
		return nil, err
	}
	users, err := decodeNearby(raw)
	if err != nil {
		return nil, apperr.Wrap(apperr.ServerError, "decode response", err)
	}
	return users, nil
}

// UpdateLocation uploads the fix. Only the status code of the response is
// inspected.
func (c *Client) UpdateLocation(ctx context.Context, fix geo.Fix) error {
	if c == nil {
		return fmt.Errorf("client is nil")
	}
	return c.do(ctx, http.MethodPut, "users/location", nil, NewLocationUpdate(fix), nil)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, dest any) error {
	reqURL := c.baseURL.JoinPath(path)
	if len(query) > 0 {
		reqURL.RawQuery = query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL.String(), reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("X-Request-ID", c.newRequestID())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return apperr.Normalize(err, apperr.NetworkError)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		return statusError(path, resp)
	}
	if dest == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return apperr.Wrap(apperr.ServerError, "decode response", err)
	}
	return nil
}

func statusError(path string, resp *http.Response) error {
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	code := apperr.ServerError
	if resp.StatusCode == http.StatusUnauthorized {
		code = apperr.Unauthorized
	}
	err := apperr.New(code, fmt.Sprintf("api /%s returned status %d", path, resp.StatusCode)).
		WithDetail("status", resp.StatusCode)
	if body := strings.TrimSpace(string(snippet)); body != "" {
		err = err.WithDetail("body", body)
	}
	return err
}

// decodeNearby accepts a bare array or a {"users": [...]} / {"data": [...]}
// envelope. Records are decoded one at a time; a record that does not decode
// comes back as an invalid user so the caller's filter drops it instead of
// losing the whole list.
func decodeNearby(raw json.RawMessage) ([]NearbyUser, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}

	var records []json.RawMessage
	if trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &records); err != nil {
			return nil, err
		}
	} else {
		var envelope struct {
			Users []json.RawMessage `json:"users"`
			Data  []json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal(trimmed, &envelope); err != nil {
			return nil, err
		}
		records = envelope.Users
		if records == nil {
			records = envelope.Data
		}
	}
	if records == nil {
		return nil, nil
	}

	users := make([]NearbyUser, 0, len(records))
	for _, record := range records {
		var u NearbyUser
		if err := json.Unmarshal(record, &u); err != nil {
			u = malformedUser()
		}
		users = append(users, u)
	}
	return users, nil
}

// malformedUser stands in for a record that could not be decoded. It fails
// Renderable, so it never reaches the map.
func malformedUser() NearbyUser {
	return NearbyUser{Latitude: math.NaN(), Longitude: math.NaN()}
}

func parseBaseURL(baseURL string) (*url.URL, error) {
	trimmed := strings.TrimSpace(baseURL)
	if trimmed == "" {
		trimmed = defaultBaseURL
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "http://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse base_url %q: %w", baseURL, err)
	}
	u.Path = strings.TrimRight(u.Path, "/")
	u.RawPath = ""
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}
