// Package report holds the terminal artifact of one image analysis and
// its export formats.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/pavelbre/copycheck/internal/risk"
)

const timestampFormat = "2006-01-02 15:04:05"

// maxMatches limits how many reverse-search matches a report keeps.
const maxMatches = 5

// ImageReport is the complete analysis result for one image. It is
// created once at the end of the image's pipeline run and never mutated.
type ImageReport struct {
	Filename  string              `json:"filename"`
	Timestamp string              `json:"timestamp"`
	Matches   []risk.Match        `json:"matches"`
	Style     risk.StyleVerdict   `json:"style"`
	Scores    []risk.Score        `json:"scores"`
	Overall   risk.Recommendation `json:"overall_recommendation"`
}

// Build assembles an ImageReport. The overall recommendation is always
// derived from the inputs through risk.Fuse, never set independently.
func Build(filename string, matches []risk.Match, style risk.StyleVerdict, scores []risk.Score, threshold float64) ImageReport {
	overall := risk.Fuse(style, matches, scores, threshold)

	if len(matches) > maxMatches {
		matches = matches[:maxMatches]
	}

	return ImageReport{
		Filename:  filename,
		Timestamp: time.Now().Format(timestampFormat),
		Matches:   matches,
		Style:     style,
		Scores:    scores,
		Overall:   overall,
	}
}

// csvHeader lists the flattened report columns, one row per image.
var csvHeader = []string{
	"filename",
	"analyzed_at",
	"overall_recommendation",
	"similar_artists",
	"style_description",
	"risk_factors",
	"top_match_title",
	"top_match_url",
	"max_phash_similarity",
}

// WriteCSV writes reports as CSV, one row per image, with a header row.
func WriteCSV(w io.Writer, reports []ImageReport) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("could not write CSV header: %w", err)
	}

	for _, r := range reports {
		var topTitle, topURL string
		if len(r.Matches) > 0 {
			topTitle = r.Matches[0].Title
			topURL = r.Matches[0].Link
		}

		maxSim := ""
		if best, ok := risk.MaxValidScore(r.Scores); ok {
			maxSim = fmt.Sprintf("%.3f", best)
		}

		row := []string{
			r.Filename,
			r.Timestamp,
			string(r.Overall),
			strings.Join(r.Style.SimilarArtists, ", "),
			r.Style.StyleDescription,
			strings.Join(r.Style.RiskFactors, ", "),
			topTitle,
			topURL,
			maxSim,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("could not write CSV row for %s: %w", r.Filename, err)
		}
	}

	cw.Flush()
	return cw.Error()
}
