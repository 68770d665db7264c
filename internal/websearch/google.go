// Package websearch provides the rag.WebSearcher implementation used by the
// hybrid query mode. Google Custom Search is reached via plain HTTP — the
// JSON API needs no SDK.
package websearch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/skywalkers77/astro-rag/internal/rag"
)

// defaultEndpoint is the Google Custom Search JSON API endpoint.
const defaultEndpoint = "https://www.googleapis.com/customsearch/v1"

// defaultNumResults is how many results to request per search.
const defaultNumResults = 5

// GoogleSearcher implements rag.WebSearcher using the Google Custom Search
// JSON API. It is safe for concurrent use.
type GoogleSearcher struct {
	// endpoint is the API base URL, overridable for tests.
	endpoint string
	// apiKey is the Google API key.
	apiKey string
	// engineID is the programmable search engine id (cx parameter).
	engineID string
	// numResults is how many results to request per search.
	numResults int
	// client is the shared HTTP client with a sensible timeout.
	client *http.Client
}

// GoogleConfig holds the settings for constructing a GoogleSearcher.
type GoogleConfig struct {
	// APIKey is the Google API key.
	APIKey string
	// EngineID is the programmable search engine id (cx parameter).
	EngineID string
	// Endpoint overrides the API base URL. Empty means the public endpoint.
	Endpoint string
	// NumResults is how many results to request (0 = default of 5, max 10).
	NumResults int
}

// NewGoogleSearcher constructs a GoogleSearcher from the given config.
func NewGoogleSearcher(cfg *GoogleConfig) (*GoogleSearcher, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("websearch: google requires an API key")
	}
	if cfg.EngineID == "" {
		return nil, fmt.Errorf("websearch: google requires a search engine id")
	}
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = defaultEndpoint
	}
	n := cfg.NumResults
	if n <= 0 {
		n = defaultNumResults
	}
	if n > 10 {
		// The JSON API caps num at 10 per request.
		n = 10
	}
	return &GoogleSearcher{
		endpoint:   endpoint,
		apiKey:     cfg.APIKey,
		engineID:   cfg.EngineID,
		numResults: n,
		client:     &http.Client{Timeout: 15 * time.Second},
	}, nil
}

// NewFromEnv constructs a GoogleSearcher from GOOGLE_SEARCH_API_KEY (falling
// back to GOOGLE_API_KEY), GOOGLE_SEARCH_ENGINE_ID and, when set,
// GOOGLE_SEARCH_NUM_RESULTS. It returns nil with no
// error when search is not configured — hybrid mode then degrades to
// database-only context.
func NewFromEnv() (*GoogleSearcher, error) {
	apiKey := os.Getenv("GOOGLE_SEARCH_API_KEY")
	if apiKey == "" {
		apiKey = os.Getenv("GOOGLE_API_KEY")
	}
	engineID := os.Getenv("GOOGLE_SEARCH_ENGINE_ID")
	if apiKey == "" || engineID == "" {
		return nil, nil
	}
	numResults := 0
	if v := os.Getenv("GOOGLE_SEARCH_NUM_RESULTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			numResults = n
		}
	}
	return NewGoogleSearcher(&GoogleConfig{APIKey: apiKey, EngineID: engineID, NumResults: numResults})
}

// googleSearchResponse is the subset of the JSON API response we consume.
type googleSearchResponse struct {
	Items []struct {
		Title   string `json:"title"`
		Link    string `json:"link"`
		Snippet string `json:"snippet"`
	} `json:"items"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Search runs a web search and returns the result summaries. A query that
// matches nothing returns an empty slice, not an error.
func (s *GoogleSearcher) Search(ctx context.Context, query string) ([]rag.WebResult, error) {
	params := url.Values{}
	params.Set("key", s.apiKey)
	params.Set("cx", s.engineID)
	params.Set("q", query)
	params.Set("num", strconv.Itoa(s.numResults))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("websearch: create request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("websearch: request failed: %w", err)
	}
	defer resp.Body.Close()

	var result googleSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("websearch: decode response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := fmt.Sprintf("HTTP %d", resp.StatusCode)
		if result.Error != nil {
			msg = result.Error.Message
		}
		return nil, fmt.Errorf("websearch: %s", msg)
	}

	out := make([]rag.WebResult, 0, len(result.Items))
	for _, item := range result.Items {
		out = append(out, rag.WebResult{
			Title:   item.Title,
			Link:    item.Link,
			Snippet: item.Snippet,
		})
	}
	return out, nil
}
