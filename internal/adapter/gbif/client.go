// Package gbif searches species occurrence records via the GBIF occurrence
// API. Lookups are decorated with a rate limiter (public-API etiquette) and
// a size-bounded LRU cache; see NewRateLimited and NewCached.
package gbif

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/couchcryptid/invasive-risk-service/internal/domain"
	"github.com/couchcryptid/invasive-risk-service/internal/observability"
)

// resultLimit caps the raw occurrence page size. The count field covers the
// full match; the page is provenance detail only.
const resultLimit = 20

// Client implements domain.OccurrenceSearcher against the GBIF occurrence
// search API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates a GBIF client.
func NewClient(timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    "https://api.gbif.org/v1/occurrence/search",
		metrics:    metrics,
		logger:     logger,
	}
}

// Search queries occurrences of a scientific name within a bounding box.
func (c *Client) Search(ctx context.Context, scientificName string, box domain.BoundingBox) (domain.OccurrenceResult, error) {
	params := url.Values{
		"scientificName":   {scientificName},
		"decimalLatitude":  {fmt.Sprintf("%.4f,%.4f", box.MinLat, box.MaxLat)},
		"decimalLongitude": {fmt.Sprintf("%.4f,%.4f", box.MinLon, box.MaxLon)},
		"limit":            {fmt.Sprintf("%d", resultLimit)},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return domain.OccurrenceResult{}, fmt.Errorf("create request: %w", err)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	c.metrics.UpstreamDuration.WithLabelValues(domain.ProviderGBIF).Observe(time.Since(start).Seconds())
	if err != nil {
		c.metrics.UpstreamRequests.WithLabelValues(domain.ProviderGBIF, "error").Inc()
		return domain.OccurrenceResult{}, fmt.Errorf("GBIF request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.metrics.UpstreamRequests.WithLabelValues(domain.ProviderGBIF, "error").Inc()
		body, _ := io.ReadAll(resp.Body)
		return domain.OccurrenceResult{}, fmt.Errorf("GBIF API error: status %d: %s", resp.StatusCode, body)
	}

	var page struct {
		Count   int                       `json:"count"`
		Results []domain.OccurrenceRecord `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		c.metrics.UpstreamRequests.WithLabelValues(domain.ProviderGBIF, "error").Inc()
		return domain.OccurrenceResult{}, fmt.Errorf("decode GBIF response: %w", err)
	}

	c.metrics.UpstreamRequests.WithLabelValues(domain.ProviderGBIF, "success").Inc()
	return domain.OccurrenceResult{
		Count:    page.Count,
		Records:  page.Results,
		Citation: fmt.Sprintf("GBIF occurrence search (%s)", scientificName),
	}, nil
}

// RateLimited wraps an OccurrenceSearcher with a token-bucket rate limit so
// concurrent per-cell lookups stay within the public API's comfort zone.
type RateLimited struct {
	inner   domain.OccurrenceSearcher
	limiter *rate.Limiter
}

// NewRateLimited creates a rate-limiting decorator. rps may be fractional.
func NewRateLimited(inner domain.OccurrenceSearcher, rps float64) *RateLimited {
	return &RateLimited{
		inner:   inner,
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
	}
}

func (r *RateLimited) Search(ctx context.Context, scientificName string, box domain.BoundingBox) (domain.OccurrenceResult, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return domain.OccurrenceResult{}, fmt.Errorf("rate limit wait canceled: %w", err)
	}
	return r.inner.Search(ctx, scientificName, box)
}

var (
	_ domain.OccurrenceSearcher = (*Client)(nil)
	_ domain.OccurrenceSearcher = (*RateLimited)(nil)
)
