// Package geocode resolves free-text locations to coordinates through the
// Mapbox forward geocoding API.
package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultBaseURL = "https://api.mapbox.com"
	cacheTTL       = 24 * time.Hour
)

// ErrNoResults is returned when the query matches no known place. Callers
// surface this to the user instead of treating it as a server fault.
var ErrNoResults = errors.New("no geocoding results")

// Point is a geocoded location in GeoJSON orientation (longitude first).
type Point struct {
	Type      string  `json:"type"`
	Longitude float64 `json:"longitude"`
	Latitude  float64 `json:"latitude"`
}

// Client calls the Mapbox geocoding API. Results are cached in Redis when
// a client is available, since the same location strings recur.
type Client struct {
	token   string
	httpc   *http.Client
	cache   *redis.Client

	// Overridable for testing.
	baseURL string
}

// NewClient creates a geocoding client. The Redis client may be nil, in
// which case caching is disabled.
func NewClient(token string, cache *redis.Client) (*Client, error) {
	if token == "" {
		return nil, fmt.Errorf("MAPBOX_TOKEN is required")
	}
	return &Client{
		token:   token,
		httpc:   &http.Client{Timeout: 10 * time.Second},
		cache:   cache,
		baseURL: defaultBaseURL,
	}, nil
}

// Forward geocodes a location string and returns the first result only,
// matching how the listing form consumes it.
func (c *Client) Forward(ctx context.Context, query string) (Point, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return Point{}, ErrNoResults
	}

	key := "geo:" + strings.ToLower(query)
	if c.cache != nil {
		if raw, err := c.cache.Get(ctx, key).Bytes(); err == nil {
			var p Point
			if json.Unmarshal(raw, &p) == nil {
				return p, nil
			}
		}
	}

	u := fmt.Sprintf("%s/geocoding/v5/mapbox.places/%s.json?access_token=%s&limit=1",
		c.baseURL, url.PathEscape(query), url.QueryEscape(c.token))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return Point{}, err
	}
	resp, err := c.httpc.Do(req)
	if err != nil {
		return Point{}, fmt.Errorf("geocoding request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Point{}, fmt.Errorf("geocoding status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var out struct {
		Features []struct {
			Geometry struct {
				Type        string    `json:"type"`
				Coordinates []float64 `json:"coordinates"`
			} `json:"geometry"`
		} `json:"features"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Point{}, fmt.Errorf("decoding geocoding response: %w", err)
	}
	if len(out.Features) == 0 || len(out.Features[0].Geometry.Coordinates) < 2 {
		return Point{}, ErrNoResults
	}

	g := out.Features[0].Geometry
	p := Point{Type: g.Type, Longitude: g.Coordinates[0], Latitude: g.Coordinates[1]}
	if p.Type == "" {
		p.Type = "Point"
	}

	if c.cache != nil {
		if raw, err := json.Marshal(p); err == nil {
			// Best effort; a cache write failure never fails the lookup.
			_ = c.cache.Set(ctx, key, raw, cacheTTL).Err()
		}
	}
	return p, nil
}
