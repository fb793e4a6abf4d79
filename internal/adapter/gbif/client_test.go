package gbif

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/invasive-risk-service/internal/domain"
	"github.com/couchcryptid/invasive-risk-service/internal/observability"
)

const occurrenceFixture = `{
  "count": 37,
  "results": [
    {"scientificName": "Petromyzon marinus", "decimalLatitude": 44.2, "decimalLongitude": -87.3, "year": 2025},
    {"scientificName": "Petromyzon marinus", "decimalLatitude": 44.1, "decimalLongitude": -87.4, "year": 2024}
  ]
}`

var testBox = domain.BoundingBox{MinLat: 44.0, MaxLat: 44.5, MinLon: -87.5, MaxLon: -87.0}

func testClient(baseURL string) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 5 * time.Second},
		baseURL:    baseURL,
		metrics:    observability.NewMetricsForTesting(),
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func TestClient_Search_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Petromyzon marinus", r.URL.Query().Get("scientificName"))
		assert.Equal(t, "44.0000,44.5000", r.URL.Query().Get("decimalLatitude"))
		assert.Equal(t, "-87.5000,-87.0000", r.URL.Query().Get("decimalLongitude"))
		assert.Equal(t, "20", r.URL.Query().Get("limit"))
		_, _ = w.Write([]byte(occurrenceFixture))
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	result, err := c.Search(context.Background(), "Petromyzon marinus", testBox)
	require.NoError(t, err)

	assert.Equal(t, 37, result.Count)
	require.Len(t, result.Records, 2)
	assert.Equal(t, 2025, result.Records[0].Year)
	assert.Equal(t, "GBIF occurrence search (Petromyzon marinus)", result.Citation)
}

func TestClient_Search_ZeroMatches(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"count": 0, "results": []}`))
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	result, err := c.Search(context.Background(), "Dreissena polymorpha", testBox)
	require.NoError(t, err)
	assert.Zero(t, result.Count)
	assert.Empty(t, result.Records)
	assert.Equal(t, "GBIF occurrence search (Dreissena polymorpha)", result.Citation)
}

func TestClient_Search_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	_, err := c.Search(context.Background(), "Petromyzon marinus", testBox)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestClient_Search_MalformedPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("oops"))
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	_, err := c.Search(context.Background(), "Petromyzon marinus", testBox)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode GBIF response")
}

func TestRateLimited_ForwardsToInner(t *testing.T) {
	inner := &countingSearcher{result: domain.OccurrenceResult{Count: 3}}
	limited := NewRateLimited(inner, 1000)

	result, err := limited.Search(context.Background(), "Petromyzon marinus", testBox)
	require.NoError(t, err)
	assert.Equal(t, 3, result.Count)
	assert.Equal(t, 1, inner.calls)
}

func TestRateLimited_CanceledContext(t *testing.T) {
	inner := &countingSearcher{}
	// With 0.001 rps the second call would wait ~17 minutes; the canceled
	// context must surface instead.
	limited := NewRateLimited(inner, 0.001)
	_, _ = limited.Search(context.Background(), "a", testBox)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := limited.Search(ctx, "b", testBox)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limit wait canceled")
	assert.Equal(t, 1, inner.calls)
}
