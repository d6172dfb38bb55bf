package pipeline

import (
	"context"

	"github.com/pavelbre/copycheck/internal/lens"
	"github.com/pavelbre/copycheck/internal/risk"
)

// LensSearcher adapts a lens.Client to the Searcher interface,
// converting the vendor match shape to the fusion input type.
type LensSearcher struct {
	Client *lens.Client
}

func (s *LensSearcher) Search(ctx context.Context, imageURL string) ([]risk.Match, error) {
	results, err := s.Client.Search(ctx, imageURL)
	if err != nil {
		return nil, err
	}

	matches := make([]risk.Match, 0, len(results.Matches))
	for _, m := range results.Matches {
		matches = append(matches, risk.Match{
			Title:     m.Title,
			Link:      m.Link,
			Thumbnail: m.Thumbnail,
			Source:    m.Source,
		})
	}
	return matches, nil
}
