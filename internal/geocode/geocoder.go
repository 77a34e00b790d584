package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/fieldserve/ticket-tracker/internal/config"
	"github.com/fieldserve/ticket-tracker/internal/domain"
)

// ErrNoMatch is returned when the lookup succeeds but resolves nothing.
var ErrNoMatch = errors.New("no match for address")

// Geocoder resolves a free-text address to coordinates.
type Geocoder interface {
	Resolve(ctx context.Context, address string) (domain.Coordinates, error)
}

// Client queries a Nominatim-compatible search endpoint.
type Client struct {
	baseURL   string
	userAgent string
	http      *http.Client
}

// NewClient builds a geocoding client from configuration.
func NewClient(cfg config.GeocoderConfig) *Client {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:   cfg.BaseURL,
		userAgent: cfg.UserAgent,
		http:      &http.Client{Timeout: timeout},
	}
}

type searchResult struct {
	Lat string `json:"lat"`
	Lon string `json:"lon"`
}

// Resolve looks up the address and returns the first match.
func (c *Client) Resolve(ctx context.Context, address string) (domain.Coordinates, error) {
	query := url.Values{}
	query.Set("q", address)
	query.Set("format", "json")
	query.Set("limit", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+query.Encode(), nil)
	if err != nil {
		return domain.Coordinates{}, err
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return domain.Coordinates{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.Coordinates{}, fmt.Errorf("geocoder returned status %d", resp.StatusCode)
	}

	var results []searchResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return domain.Coordinates{}, err
	}
	if len(results) == 0 {
		return domain.Coordinates{}, ErrNoMatch
	}

	lat, err := strconv.ParseFloat(results[0].Lat, 64)
	if err != nil {
		return domain.Coordinates{}, fmt.Errorf("parse latitude: %w", err)
	}
	lon, err := strconv.ParseFloat(results[0].Lon, 64)
	if err != nil {
		return domain.Coordinates{}, fmt.Errorf("parse longitude: %w", err)
	}
	return domain.Coordinates{Latitude: lat, Longitude: lon}, nil
}
