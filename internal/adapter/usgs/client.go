// Package usgs fetches instantaneous river readings from the USGS NWIS
// water services API.
package usgs

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/couchcryptid/invasive-risk-service/internal/domain"
	"github.com/couchcryptid/invasive-risk-service/internal/observability"
)

// NWIS parameter codes for the series this service consumes.
const (
	paramDischarge = "00060" // discharge, cubic feet per second
	paramWaterTemp = "00010" // water temperature, degrees C
)

// Client implements domain.StationReader against the NWIS
// instantaneous-values endpoint.
type Client struct {
	httpClient *http.Client
	baseURL    string
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates a USGS NWIS client.
func NewClient(timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    "https://waterservices.usgs.gov/nwis/iv",
		metrics:    metrics,
		logger:     logger,
	}
}

// StationReading fetches the most recent discharge and water temperature for
// a site code. Either series may be absent; a reading with at least one live
// value is returned as-is, and a site with neither is still a valid (empty)
// reading with its citation set.
func (c *Client) StationReading(ctx context.Context, siteCode string) (domain.LiveReading, error) {
	params := url.Values{
		"format":      {"json"},
		"sites":       {siteCode},
		"parameterCd": {paramDischarge + "," + paramWaterTemp},
		"siteStatus":  {"all"},
	}

	start := time.Now()
	body, err := c.get(ctx, c.baseURL+"?"+params.Encode())
	c.metrics.UpstreamDuration.WithLabelValues(domain.ProviderUSGS).Observe(time.Since(start).Seconds())
	if err != nil {
		c.metrics.UpstreamRequests.WithLabelValues(domain.ProviderUSGS, "error").Inc()
		return domain.LiveReading{}, err
	}
	c.metrics.UpstreamRequests.WithLabelValues(domain.ProviderUSGS, "success").Inc()

	var resp nwisResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return domain.LiveReading{}, fmt.Errorf("decode NWIS response: %w", err)
	}

	reading := domain.LiveReading{Citation: "USGS NWIS " + siteCode}
	for _, series := range resp.Value.TimeSeries {
		value, ok := latestValue(series)
		if !ok {
			continue
		}
		switch paramCode(series) {
		case paramDischarge:
			v := value
			reading.Discharge = &v
			reading.DischargeUnit = "ft³/s"
		case paramWaterTemp:
			v := value
			reading.Temperature = &v
		}
	}
	return reading, nil
}

func (c *Client) get(ctx context.Context, fullURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("NWIS request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("NWIS API error: status %d: %s", resp.StatusCode, body)
	}

	return io.ReadAll(resp.Body)
}

// latestValue extracts the most recent numeric value of a time series.
// NWIS returns values newest-last within each block.
func latestValue(series timeSeries) (float64, bool) {
	for i := len(series.Values) - 1; i >= 0; i-- {
		vals := series.Values[i].Value
		for j := len(vals) - 1; j >= 0; j-- {
			v, err := strconv.ParseFloat(vals[j].Value, 64)
			if err != nil {
				continue
			}
			// -999999 is the NWIS sentinel for unavailable data.
			if v <= -999990 {
				continue
			}
			return v, true
		}
	}
	return 0, false
}

func paramCode(series timeSeries) string {
	if len(series.Variable.VariableCode) == 0 {
		return ""
	}
	return series.Variable.VariableCode[0].Value
}

// NWIS API response types (waterml-flavored JSON, heavily nested).

type nwisResponse struct {
	Value struct {
		TimeSeries []timeSeries `json:"timeSeries"`
	} `json:"value"`
}

type timeSeries struct {
	Variable struct {
		VariableCode []struct {
			Value string `json:"value"`
		} `json:"variableCode"`
	} `json:"variable"`
	Values []struct {
		Value []struct {
			Value    string `json:"value"`
			DateTime string `json:"dateTime"`
		} `json:"value"`
	} `json:"values"`
}
