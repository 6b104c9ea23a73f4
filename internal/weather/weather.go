// Package weather fetches current conditions from weatherapi.com.
package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

// HTTPClient is the interface for performing HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

const currentWeatherURL = "http://api.weatherapi.com/v1/current.json"

// Current holds the current conditions for one location.
type Current struct {
	Location  string
	Condition string
	TempC     float64
	FeelsC    float64
	Humidity  int
	WindKph   float64
}

// Client queries the weather API.
type Client struct {
	apiKey string
	client HTTPClient
}

// NewClient creates a Client with the given API key.
func NewClient(apiKey string, client HTTPClient) *Client {
	return &Client{apiKey: apiKey, client: client}
}

// Current returns the current conditions for a location query
// (city name, postal code, or "lat,lon").
func (c *Client) Current(ctx context.Context, location string) (*Current, error) {
	q := url.Values{}
	q.Set("key", c.apiKey)
	q.Set("q", location)
	q.Set("aqi", "no")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, currentWeatherURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http get: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var payload struct {
		Location struct {
			Name    string `json:"name"`
			Country string `json:"country"`
		} `json:"location"`
		Current struct {
			TempC     float64 `json:"temp_c"`
			FeelsC    float64 `json:"feelslike_c"`
			Humidity  int     `json:"humidity"`
			WindKph   float64 `json:"wind_kph"`
			Condition struct {
				Text string `json:"text"`
			} `json:"condition"`
		} `json:"current"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1024*1024)).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	return &Current{
		Location:  fmt.Sprintf("%s, %s", payload.Location.Name, payload.Location.Country),
		Condition: payload.Current.Condition.Text,
		TempC:     payload.Current.TempC,
		FeelsC:    payload.Current.FeelsC,
		Humidity:  payload.Current.Humidity,
		WindKph:   payload.Current.WindKph,
	}, nil
}
