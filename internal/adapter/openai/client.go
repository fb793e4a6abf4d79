// Package openai generates natural-language risk narratives via the OpenAI
// chat completions API.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/couchcryptid/invasive-risk-service/internal/domain"
	"github.com/couchcryptid/invasive-risk-service/internal/observability"
)

// Generation settings. The token budget keeps narratives to dashboard-card
// length; temperature is low for consistency but nonzero so repeated
// requests read naturally rather than verbatim.
const (
	maxTokens   = 120
	temperature = 0.2
)

// Client implements domain.Narrator using the chat completions API.
type Client struct {
	apiKey     string
	model      string
	httpClient *http.Client
	baseURL    string
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates a narrative generation client.
func NewClient(apiKey, model string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		apiKey:     apiKey,
		model:      model,
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    "https://api.openai.com/v1/chat/completions",
		metrics:    metrics,
		logger:     logger,
	}
}

// Narrate produces a short risk assessment for one cell. Callers handle any
// error by substituting the static fallback; nothing here retries.
func (c *Client) Narrate(ctx context.Context, species string, scorePct int, drivers, citations []string) (string, error) {
	payload := request{
		Model: c.model,
		Messages: []message{
			{
				Role: "system",
				Content: "You are an aquatic invasive species analyst. Respond with at most " +
					"3 sentences, plain prose, no headings.",
			},
			{
				Role: "user",
				Content: fmt.Sprintf(
					"Colonization risk for %s is %d%%. Key drivers: %s. Data sources: %s. "+
						"Briefly explain the risk level for a monitoring dashboard.",
					species, scorePct, strings.Join(drivers, "; "), strings.Join(citations, "; "),
				),
			},
		},
		MaxTokens:   maxTokens,
		Temperature: temperature,
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal completion request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.NarrativeRequests.WithLabelValues("error").Inc()
		return "", fmt.Errorf("completion request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.metrics.NarrativeRequests.WithLabelValues("error").Inc()
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("completion API error: status %d: %s", resp.StatusCode, body)
	}

	var completion response
	if err := json.NewDecoder(resp.Body).Decode(&completion); err != nil {
		c.metrics.NarrativeRequests.WithLabelValues("error").Inc()
		return "", fmt.Errorf("decode completion response: %w", err)
	}

	if len(completion.Choices) == 0 || strings.TrimSpace(completion.Choices[0].Message.Content) == "" {
		c.metrics.NarrativeRequests.WithLabelValues("error").Inc()
		return "", fmt.Errorf("completion response has no content")
	}

	c.metrics.NarrativeRequests.WithLabelValues("success").Inc()
	return strings.TrimSpace(completion.Choices[0].Message.Content), nil
}

var _ domain.Narrator = (*Client)(nil)

// Chat completions API request/response types.

type request struct {
	Model       string    `json:"model"`
	Messages    []message `json:"messages"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature float64   `json:"temperature"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type response struct {
	Choices []struct {
		Message message `json:"message"`
	} `json:"choices"`
}
