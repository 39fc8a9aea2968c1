// Package geocode resolves coordinates to place names through a
// geocode.maps.co compatible reverse-geocoding API.
package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/barbizo19/mapty/internal/domain"
)

// DefaultBaseURL is the public reverse-geocoding endpoint.
const DefaultBaseURL = "https://geocode.maps.co"

// Client calls GET {base}/reverse?lat=..&lon=..
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient constructs a Client. An empty baseURL falls back to DefaultBaseURL.
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// ReverseGeocode looks up the place containing coords.
func (c *Client) ReverseGeocode(ctx context.Context, coords domain.Coordinates) (domain.Place, error) {
	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(coords.Lat, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(coords.Lng, 'f', -1, 64))
	if c.apiKey != "" {
		q.Set("api_key", c.apiKey)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/reverse?"+q.Encode(), nil)
	if err != nil {
		return domain.Place{}, fmt.Errorf("%w: %w", domain.ErrGeocodeFailed, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.Place{}, fmt.Errorf("%w: %w", domain.ErrGeocodeFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return domain.Place{}, &StatusError{Status: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	var payload struct {
		Error   string `json:"error"`
		Address struct {
			City   string `json:"city"`
			Town   string `json:"town"`
			County string `json:"county"`
		} `json:"address"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return domain.Place{}, fmt.Errorf("%w: decode response: %w", domain.ErrGeocodeFailed, err)
	}
	if payload.Error != "" {
		return domain.Place{}, fmt.Errorf("%w: %s", domain.ErrGeocodeFailed, payload.Error)
	}

	city := payload.Address.City
	if city == "" {
		city = payload.Address.Town
	}
	return domain.Place{City: city, County: payload.Address.County}, nil
}

// StatusError represents a non-successful geocoder response.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return "reverse geocoding failed with status " + http.StatusText(e.Status)
	}
	return fmt.Sprintf("reverse geocoding failed with status %s: %s", http.StatusText(e.Status), e.Body)
}

// Unwrap lets errors.Is(err, domain.ErrGeocodeFailed) match.
func (e *StatusError) Unwrap() error { return domain.ErrGeocodeFailed }
