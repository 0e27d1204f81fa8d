// Package places talks to the Google Places Nearby Search API.
package places

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// TypeGasStation is the provider category used for fuel retailers.
const TypeGasStation = "gas_station"

// ErrUnavailable wraps every failure to get an answer from the provider:
// connection errors, timeouts and truncated bodies.
var ErrUnavailable = errors.New("places provider unavailable")

// StatusError is returned when the provider answered but reported a failure,
// e.g. REQUEST_DENIED or OVER_QUERY_LIMIT.
type StatusError struct {
	Status  string
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return "places provider status " + e.Status
	}
	return fmt.Sprintf("places provider status %s: %s", e.Status, e.Message)
}

// Place is one nearby-search result.
type Place struct {
	ID      string
	Name    string
	Address string
	Lat     float64
	Lng     float64
	Types   []string
	Rating  *float64
	OpenNow *bool
}

// NearbyRequest describes a category search around a point.
type NearbyRequest struct {
	Lat          float64
	Lng          float64
	RadiusMeters float64
	Type         string
}

// Provider abstracts the places lookup for testability.
type Provider interface {
	NearbySearch(ctx context.Context, req NearbyRequest) ([]Place, error)
}

// Client is the HTTP implementation of Provider.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a client for baseURL (without the trailing /nearbysearch/json).
func NewClient(apiKey, baseURL string, timeout time.Duration) *Client {
	return &Client{
		apiKey:     apiKey,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type nearbyResponse struct {
	Status       string         `json:"status"`
	ErrorMessage string         `json:"error_message"`
	Results      []nearbyResult `json:"results"`
}

type nearbyResult struct {
	PlaceID  string   `json:"place_id"`
	Name     string   `json:"name"`
	Vicinity string   `json:"vicinity"`
	Types    []string `json:"types"`
	Rating   *float64 `json:"rating"`
	Geometry struct {
		Location struct {
			Lat float64 `json:"lat"`
			Lng float64 `json:"lng"`
		} `json:"location"`
	} `json:"geometry"`
	OpeningHours *struct {
		OpenNow *bool `json:"open_now"`
	} `json:"opening_hours"`
}

// NearbySearch runs one nearby search. ZERO_RESULTS is reported as an empty slice.
func (c *Client) NearbySearch(ctx context.Context, req NearbyRequest) ([]Place, error) {
	params := url.Values{}
	params.Set("location", strconv.FormatFloat(req.Lat, 'f', -1, 64)+","+strconv.FormatFloat(req.Lng, 'f', -1, 64))
	params.Set("radius", strconv.FormatFloat(req.RadiusMeters, 'f', -1, 64))
	if req.Type != "" {
		params.Set("type", req.Type)
	}
	params.Set("key", c.apiKey)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/nearbysearch/json?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build places request: %w", err)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{Status: "HTTP_" + strconv.Itoa(resp.StatusCode)}
	}

	var body nearbyResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		if ctx.Err() != nil || isTimeout(err) {
			return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
		}
		return nil, &StatusError{Status: "INVALID_RESPONSE", Message: err.Error()}
	}

	switch body.Status {
	case "OK":
	case "ZERO_RESULTS":
		return []Place{}, nil
	default:
		return nil, &StatusError{Status: body.Status, Message: body.ErrorMessage}
	}

	out := make([]Place, 0, len(body.Results))
	for _, r := range body.Results {
		if r.PlaceID == "" {
			continue
		}
		p := Place{
			ID:      r.PlaceID,
			Name:    r.Name,
			Address: r.Vicinity,
			Lat:     r.Geometry.Location.Lat,
			Lng:     r.Geometry.Location.Lng,
			Types:   r.Types,
			Rating:  r.Rating,
		}
		if r.OpeningHours != nil {
			p.OpenNow = r.OpeningHours.OpenNow
		}
		out = append(out, p)
	}
	return out, nil
}

func isTimeout(err error) bool {
	var te interface{ Timeout() bool }
	return errors.As(err, &te) && te.Timeout()
}
