// Package risk combines the independent signals gathered for one image
// (AI style verdict, reverse-search matches, perceptual similarity scores)
// into a single risk recommendation.
package risk

import (
	"strings"

	"golang.org/x/text/cases"
)

// Recommendation is a three-level risk classification.
type Recommendation string

// Recommendation levels, ordered from harmless to harmful.
const (
	Safe    Recommendation = "SAFE"
	Caution Recommendation = "CAUTION"
	Danger  Recommendation = "DANGER"
)

// Valid reports whether r is one of the three known levels.
func (r Recommendation) Valid() bool {
	return r == Safe || r == Caution || r == Danger
}

// DefaultThreshold is the perceptual similarity above which a match is
// considered close enough to warrant a CAUTION verdict.
const DefaultThreshold = 0.85

// StyleVerdict is the AI style analyzer's opinion about one image.
type StyleVerdict struct {
	SimilarArtists   []string       `json:"similar_artists"`
	StyleDescription string         `json:"style_description"`
	RiskFactors      []string       `json:"risk_factors"`
	Recommendation   Recommendation `json:"recommendation"`
}

// Match is a single reverse image search hit.
type Match struct {
	Title     string `json:"title"`
	Link      string `json:"link"`
	Thumbnail string `json:"thumbnail"`
	Source    string `json:"source"`
}

// Score is the perceptual similarity between the analyzed image and one
// reference image. Similarity is in [0, 1], or -1 when the comparison
// could not be computed (unreachable reference, decode failure, timeout).
type Score struct {
	URL        string  `json:"url"`
	Title      string  `json:"title"`
	Similarity float64 `json:"similarity"`
}

// MaxValidScore returns the highest similarity among scores, skipping the
// -1 sentinel. The second return value is false when no score is usable.
func MaxValidScore(scores []Score) (float64, bool) {
	best := -1.0
	found := false
	for _, s := range scores {
		if s.Similarity < 0 {
			continue
		}
		if !found || s.Similarity > best {
			best = s.Similarity
			found = true
		}
	}
	return best, found
}

// Fuse combines the three signals into one recommendation. Rules are
// evaluated in order and the first hit wins:
//
//  1. style verdict DANGER  -> DANGER
//  2. style verdict CAUTION -> CAUTION
//  3. any match title contains a similar-artist name -> CAUTION
//  4. max valid similarity strictly above threshold  -> CAUTION
//  5. otherwise SAFE
//
// The artist-name check is a case-insensitive substring match. A perfect
// similarity of 1.0 never escalates past CAUTION on its own; only the
// style analyzer can produce DANGER.
func Fuse(verdict StyleVerdict, matches []Match, scores []Score, threshold float64) Recommendation {
	if verdict.Recommendation == Danger {
		return Danger
	}
	if verdict.Recommendation == Caution {
		return Caution
	}

	if len(verdict.SimilarArtists) > 0 && len(matches) > 0 {
		fold := cases.Fold()
		for _, m := range matches {
			title := fold.String(m.Title)
			for _, artist := range verdict.SimilarArtists {
				if artist != "" && strings.Contains(title, fold.String(artist)) {
					return Caution
				}
			}
		}
	}

	if best, ok := MaxValidScore(scores); ok && best > threshold {
		return Caution
	}

	return Safe
}
