// Package lens finds visually similar images on the web through the
// SerpApi Google Lens engine.
package lens

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	defaultBaseURL = "https://serpapi.com"
	searchTimeout  = 30 * time.Second
)

// SearchError reports a failed reverse image search. Searches are
// advisory, so callers typically log it and continue with zero matches.
type SearchError struct {
	Message string
}

func (e *SearchError) Error() string {
	return "reverse image search failed: " + e.Message
}

// Match is one raw visual match from the search engine.
type Match struct {
	Title     string `json:"title"`
	Link      string `json:"link"`
	Thumbnail string `json:"thumbnail"`
	Source    string `json:"source"`
}

// Results holds the parsed search response. KnowledgeGraph entries are
// opaque extra context; the engine returns either a list or a single
// object, normalized here to a list.
type Results struct {
	Matches        []Match          `json:"visual_matches"`
	KnowledgeGraph []map[string]any `json:"knowledge_graph"`
}

// Client queries SerpApi.
type Client struct {
	apiKey     string
	baseURL    string
	language   string
	country    string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL points the client at a different endpoint (used in tests).
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimSuffix(baseURL, "/")
	}
}

// WithLocale sets the interface language and country of the search.
func WithLocale(language, country string) Option {
	return func(c *Client) {
		if language != "" {
			c.language = language
		}
		if country != "" {
			c.country = country
		}
	}
}

// NewClient creates a SerpApi Google Lens client.
func NewClient(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:     apiKey,
		baseURL:    defaultBaseURL,
		language:   "en",
		country:    "us",
		httpClient: &http.Client{Timeout: searchTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// rawResponse mirrors just the fields of the SerpApi payload we read.
type rawResponse struct {
	Error         string            `json:"error"`
	VisualMatches []json.RawMessage `json:"visual_matches"`
	// knowledge_graph is either an object or a list.
	KnowledgeGraph json.RawMessage `json:"knowledge_graph"`
}

// Search runs a reverse image search for a publicly fetchable image URL.
func (c *Client) Search(ctx context.Context, imageURL string) (*Results, error) {
	params := url.Values{}
	params.Set("engine", "google_lens")
	params.Set("url", imageURL)
	params.Set("hl", c.language)
	params.Set("country", c.country)
	params.Set("api_key", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/search.json?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("could not create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &SearchError{Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &SearchError{Message: fmt.Sprintf("status %d", resp.StatusCode)}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("could not read search response: %w", err)
	}

	var raw rawResponse
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("could not unmarshal search response: %w", err)
	}
	if raw.Error != "" {
		return nil, &SearchError{Message: raw.Error}
	}

	return parseResults(&raw)
}

// parseResults converts the raw payload into Results, tolerating missing
// fields on individual matches.
func parseResults(raw *rawResponse) (*Results, error) {
	results := &Results{}

	for _, rawMatch := range raw.VisualMatches {
		var m Match
		if err := json.Unmarshal(rawMatch, &m); err != nil {
			continue // skip malformed entries, keep the rest
		}
		results.Matches = append(results.Matches, m)
	}

	if len(raw.KnowledgeGraph) > 0 {
		// Try a list first, then a single object.
		var list []map[string]any
		if err := json.Unmarshal(raw.KnowledgeGraph, &list); err == nil {
			results.KnowledgeGraph = list
		} else {
			var single map[string]any
			if err := json.Unmarshal(raw.KnowledgeGraph, &single); err == nil {
				results.KnowledgeGraph = []map[string]any{single}
			}
		}
	}

	return results, nil
}
