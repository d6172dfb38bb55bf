package fingerprint

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pavelbre/copycheck/internal/risk"
)

// fakeFetcher serves canned responses keyed by URL.
type fakeFetcher struct {
	responses map[string][]byte
	errs      map[string]error
}

func (f *fakeFetcher) Fetch(_ context.Context, url string) ([]byte, error) {
	if err, ok := f.errs[url]; ok {
		return nil, err
	}
	if data, ok := f.responses[url]; ok {
		return data, nil
	}
	return nil, errors.New("unexpected URL: " + url)
}

// blockingFetcher never returns until the context is cancelled.
type blockingFetcher struct{}

func (blockingFetcher) Fetch(ctx context.Context, _ string) ([]byte, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestScorerIdenticalImage(t *testing.T) {
	data := encodePNG(t, gradientImage(64, 64))
	fetcher := &fakeFetcher{responses: map[string][]byte{"http://ref/thumb.png": data}}
	scorer := NewScorer(fetcher)

	scores := scorer.Score(context.Background(), data, []risk.Match{
		{Title: "same image", Link: "http://ref/page", Thumbnail: "http://ref/thumb.png"},
	})

	if len(scores) != 1 {
		t.Fatalf("expected 1 score, got %d", len(scores))
	}
	if scores[0].Similarity != 1.0 {
		t.Errorf("identical image similarity = %v; want 1.0", scores[0].Similarity)
	}
	if scores[0].URL != "http://ref/page" || scores[0].Title != "same image" {
		t.Errorf("score metadata not carried over: %+v", scores[0])
	}
}

func TestScorerFetchFailureYieldsSentinel(t *testing.T) {
	target := encodePNG(t, gradientImage(64, 64))
	fetcher := &fakeFetcher{
		responses: map[string][]byte{"http://ok/thumb": target},
		errs:      map[string]error{"http://broken/thumb": errors.New("connection refused")},
	}
	scorer := NewScorer(fetcher)

	scores := scorer.Score(context.Background(), target, []risk.Match{
		{Title: "broken", Link: "http://broken", Thumbnail: "http://broken/thumb"},
		{Title: "ok", Link: "http://ok", Thumbnail: "http://ok/thumb"},
	})

	if len(scores) != 2 {
		t.Fatalf("expected 2 scores, got %d", len(scores))
	}
	if scores[0].Similarity != SentinelScore {
		t.Errorf("failed fetch similarity = %v; want sentinel", scores[0].Similarity)
	}
	if scores[1].Similarity != 1.0 {
		t.Errorf("sibling comparison affected by failure: %v", scores[1].Similarity)
	}
}

func TestScorerUndecodableReference(t *testing.T) {
	target := encodePNG(t, gradientImage(64, 64))
	fetcher := &fakeFetcher{responses: map[string][]byte{"http://ref/thumb": []byte("not an image")}}
	scorer := NewScorer(fetcher)

	scores := scorer.Score(context.Background(), target, []risk.Match{
		{Thumbnail: "http://ref/thumb"},
	})

	if scores[0].Similarity != SentinelScore {
		t.Errorf("undecodable reference similarity = %v; want sentinel", scores[0].Similarity)
	}
}

func TestScorerUndecodableTarget(t *testing.T) {
	ref := encodePNG(t, gradientImage(64, 64))
	fetcher := &fakeFetcher{responses: map[string][]byte{"http://ref/thumb": ref}}
	scorer := NewScorer(fetcher)

	scores := scorer.Score(context.Background(), []byte("garbage"), []risk.Match{
		{Thumbnail: "http://ref/thumb"},
	})

	if len(scores) != 1 {
		t.Fatalf("expected 1 score, got %d", len(scores))
	}
	if scores[0].Similarity != SentinelScore {
		t.Errorf("undecodable target similarity = %v; want sentinel", scores[0].Similarity)
	}
}

func TestScorerSkipsEmptyThumbnails(t *testing.T) {
	target := encodePNG(t, gradientImage(64, 64))
	fetcher := &fakeFetcher{responses: map[string][]byte{"http://ref/thumb": target}}
	scorer := NewScorer(fetcher)

	scores := scorer.Score(context.Background(), target, []risk.Match{
		{Title: "no thumbnail", Link: "http://a"},
		{Title: "with thumbnail", Link: "http://b", Thumbnail: "http://ref/thumb"},
	})

	if len(scores) != 1 {
		t.Fatalf("expected 1 score, got %d", len(scores))
	}
	if scores[0].Title != "with thumbnail" {
		t.Errorf("wrong match scored: %+v", scores[0])
	}
}

func TestScorerTimeout(t *testing.T) {
	target := encodePNG(t, gradientImage(64, 64))
	scorer := NewScorerWithTimeout(blockingFetcher{}, 50*time.Millisecond)

	start := time.Now()
	scores := scorer.Score(context.Background(), target, []risk.Match{
		{Thumbnail: "http://slow/thumb"},
	})
	elapsed := time.Since(start)

	if scores[0].Similarity != SentinelScore {
		t.Errorf("timed-out comparison similarity = %v; want sentinel", scores[0].Similarity)
	}
	if elapsed > 2*time.Second {
		t.Errorf("timeout not enforced, took %v", elapsed)
	}
}

func TestScorerPreservesOrder(t *testing.T) {
	target := encodePNG(t, gradientImage(64, 64))
	checker := encodePNG(t, checkerboardImage(64, 64, 8))
	fetcher := &fakeFetcher{responses: map[string][]byte{
		"http://a/thumb": target,
		"http://b/thumb": checker,
		"http://c/thumb": target,
	}}
	scorer := NewScorer(fetcher)

	scores := scorer.Score(context.Background(), target, []risk.Match{
		{Title: "a", Thumbnail: "http://a/thumb"},
		{Title: "b", Thumbnail: "http://b/thumb"},
		{Title: "c", Thumbnail: "http://c/thumb"},
	})

	if len(scores) != 3 {
		t.Fatalf("expected 3 scores, got %d", len(scores))
	}
	for i, want := range []string{"a", "b", "c"} {
		if scores[i].Title != want {
			t.Errorf("scores[%d].Title = %q; want %q", i, scores[i].Title, want)
		}
	}
	if scores[0].Similarity != 1.0 || scores[2].Similarity != 1.0 {
		t.Errorf("identical references should score 1.0: %v, %v", scores[0].Similarity, scores[2].Similarity)
	}
	if scores[1].Similarity >= scores[0].Similarity {
		t.Errorf("different image should score below identical: %v", scores[1].Similarity)
	}
}
