// Package eccc fetches Canadian hydrometric and climate readings from the
// ECCC MSC GeoMet OGC API.
package eccc

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/couchcryptid/invasive-risk-service/internal/domain"
	"github.com/couchcryptid/invasive-risk-service/internal/observability"
)

// Client queries the GeoMet OGC API feature collections.
type Client struct {
	httpClient *http.Client
	baseURL    string
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates a GeoMet client.
func NewClient(timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    "https://api.weather.gc.ca",
		metrics:    metrics,
		logger:     logger,
	}
}

// HydrometricReading fetches the most recent real-time discharge for a
// hydrometric station number.
func (c *Client) HydrometricReading(ctx context.Context, stationNumber string) (domain.LiveReading, error) {
	params := url.Values{
		"STATION_NUMBER": {stationNumber},
		"sortby":         {"-DATETIME"},
		"limit":          {"1"},
		"f":              {"json"},
	}

	props, err := c.latestFeature(ctx, domain.ProviderECCCHydrometric, "/collections/hydrometric-realtime/items", params)
	if err != nil {
		return domain.LiveReading{}, err
	}

	reading := domain.LiveReading{Citation: "ECCC hydrometric station " + stationNumber}
	if props == nil {
		return reading, nil
	}
	if v, ok := props["DISCHARGE"].(float64); ok {
		reading.Discharge = &v
		reading.DischargeUnit = "m³/s"
	}
	return reading, nil
}

// ClimateReading fetches the most recent hourly air temperature for a
// climate station name.
func (c *Client) ClimateReading(ctx context.Context, stationName string) (domain.LiveReading, error) {
	params := url.Values{
		"STATION_NAME": {stationName},
		"sortby":       {"-LOCAL_DATE"},
		"limit":        {"1"},
		"f":            {"json"},
	}

	props, err := c.latestFeature(ctx, domain.ProviderECCCClimate, "/collections/climate-hourly/items", params)
	if err != nil {
		return domain.LiveReading{}, err
	}

	reading := domain.LiveReading{Citation: "ECCC climate-hourly " + stationName}
	if props == nil {
		return reading, nil
	}
	if v, ok := props["TEMP"].(float64); ok {
		reading.Temperature = &v
	}
	return reading, nil
}

// latestFeature returns the first feature's properties, or nil when the
// collection query matches nothing.
func (c *Client) latestFeature(ctx context.Context, source, path string, params url.Values) (map[string]any, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	c.metrics.UpstreamDuration.WithLabelValues(source).Observe(time.Since(start).Seconds())
	if err != nil {
		c.metrics.UpstreamRequests.WithLabelValues(source, "error").Inc()
		return nil, fmt.Errorf("GeoMet request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.metrics.UpstreamRequests.WithLabelValues(source, "error").Inc()
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("GeoMet API error: status %d: %s", resp.StatusCode, body)
	}

	var collection struct {
		Features []struct {
			Properties map[string]any `json:"properties"`
		} `json:"features"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&collection); err != nil {
		c.metrics.UpstreamRequests.WithLabelValues(source, "error").Inc()
		return nil, fmt.Errorf("decode GeoMet response: %w", err)
	}

	c.metrics.UpstreamRequests.WithLabelValues(source, "success").Inc()
	if len(collection.Features) == 0 {
		return nil, nil
	}
	return collection.Features[0].Properties, nil
}

// HydrometricSource adapts Client's hydrometric endpoint to
// domain.StationReader.
type HydrometricSource struct{ *Client }

func (s HydrometricSource) StationReading(ctx context.Context, stationID string) (domain.LiveReading, error) {
	return s.HydrometricReading(ctx, stationID)
}

// ClimateSource adapts Client's climate endpoint to domain.StationReader.
type ClimateSource struct{ *Client }

func (s ClimateSource) StationReading(ctx context.Context, stationID string) (domain.LiveReading, error) {
	return s.ClimateReading(ctx, stationID)
}

var (
	_ domain.StationReader = HydrometricSource{}
	_ domain.StationReader = ClimateSource{}
)
