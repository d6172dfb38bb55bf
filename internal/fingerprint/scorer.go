package fingerprint

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/pavelbre/copycheck/internal/risk"
)

const (
	// SentinelScore marks a comparison that could not be computed.
	// It must never be treated as a real similarity value.
	SentinelScore = -1.0

	defaultFetchTimeout = 10 * time.Second
	maxThumbnailBytes   = 5 << 20 // 5MB
)

// Fetcher retrieves the bytes of a reference image by URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// HTTPFetcher fetches reference thumbnails over plain HTTP.
type HTTPFetcher struct {
	client *http.Client
}

// NewHTTPFetcher creates a fetcher backed by the given client,
// or http.DefaultClient when nil.
func NewHTTPFetcher(client *http.Client) *HTTPFetcher {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPFetcher{client: client}
}

// Fetch downloads a thumbnail. Responses that are not 200 OK or not an
// image content type are rejected.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("could not create request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("could not fetch thumbnail: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("thumbnail fetch failed with status %d", resp.StatusCode)
	}

	ct := resp.Header.Get("Content-Type")
	// Strip MIME parameters: "image/jpeg; charset=utf-8" -> "image/jpeg"
	if idx := strings.IndexByte(ct, ';'); idx >= 0 {
		ct = strings.TrimSpace(ct[:idx])
	}
	if ct != "" && !strings.HasPrefix(ct, "image/") {
		return nil, fmt.Errorf("unexpected content type %q", ct)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxThumbnailBytes))
	if err != nil {
		return nil, fmt.Errorf("could not read thumbnail body: %w", err)
	}

	return data, nil
}

// Scorer compares one target image against reference thumbnails using
// perceptual hashes. Comparisons are advisory: any failure yields the
// sentinel score for that reference instead of an error.
type Scorer struct {
	fetcher Fetcher
	timeout time.Duration
}

// NewScorer creates a scorer with a 10s per-comparison timeout.
func NewScorer(fetcher Fetcher) *Scorer {
	return &Scorer{
		fetcher: fetcher,
		timeout: defaultFetchTimeout,
	}
}

// NewScorerWithTimeout creates a scorer with a custom per-comparison timeout.
func NewScorerWithTimeout(fetcher Fetcher, timeout time.Duration) *Scorer {
	if timeout <= 0 {
		timeout = defaultFetchTimeout
	}
	return &Scorer{fetcher: fetcher, timeout: timeout}
}

// Score compares targetData against every match that carries a thumbnail
// URL. Matches without a thumbnail are skipped. All comparisons run
// concurrently, each with its own timeout; failures (fetch error,
// timeout, undecodable image) resolve to the sentinel score without
// affecting sibling comparisons. Results keep the input match order.
func (s *Scorer) Score(ctx context.Context, targetData []byte, matches []risk.Match) []risk.Score {
	targetHash, targetErr := Compute(targetData)

	scores := make([]risk.Score, 0, len(matches))
	indexes := make([]int, 0, len(matches))
	for _, m := range matches {
		if m.Thumbnail == "" {
			continue
		}
		indexes = append(indexes, len(scores))
		scores = append(scores, risk.Score{
			URL:        m.Link,
			Title:      m.Title,
			Similarity: SentinelScore,
		})
	}

	if targetErr != nil {
		// Target itself cannot be hashed: every comparison fails.
		return scores
	}

	var wg sync.WaitGroup
	pos := 0
	for _, m := range matches {
		if m.Thumbnail == "" {
			continue
		}
		idx := indexes[pos]
		pos++

		wg.Add(1)
		go func(thumbnail string, idx int) {
			defer wg.Done()
			scores[idx].Similarity = s.scoreOne(ctx, targetHash, thumbnail)
		}(m.Thumbnail, idx)
	}
	wg.Wait()

	return scores
}

// scoreOne fetches and hashes a single reference, returning the sentinel
// on any failure.
func (s *Scorer) scoreOne(ctx context.Context, targetHash Hash, thumbnailURL string) float64 {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	data, err := s.fetcher.Fetch(ctx, thumbnailURL)
	if err != nil {
		return SentinelScore
	}

	refHash, err := Compute(data)
	if err != nil {
		return SentinelScore
	}

	return Similarity(targetHash, refHash)
}
