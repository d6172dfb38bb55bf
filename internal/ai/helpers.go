package ai

import (
	_ "embed"
	"encoding/json"
	"strings"

	"github.com/pavelbre/copycheck/internal/risk"
)

//go:embed prompts/style_analysis.txt
var styleAnalysisPrompt string

const (
	maxSimilarArtists = 5
	// fallbackDescriptionLimit caps the raw-text description used when
	// the model response is not valid JSON.
	fallbackDescriptionLimit = 200
)

// parseStyleVerdict turns a model response into a StyleVerdict. The
// response is expected to be JSON, possibly wrapped in a markdown code
// fence. A response that cannot be parsed never produces an error;
// instead a best-effort verdict is returned carrying the truncated raw
// text and a CAUTION recommendation, so a confused model biases toward
// caution rather than silence.
func parseStyleVerdict(content string) *risk.StyleVerdict {
	text := stripMarkdownFence(content)

	var verdict risk.StyleVerdict
	if err := json.Unmarshal([]byte(text), &verdict); err != nil {
		return fallbackVerdict(content)
	}

	if len(verdict.SimilarArtists) > maxSimilarArtists {
		verdict.SimilarArtists = verdict.SimilarArtists[:maxSimilarArtists]
	}
	if !verdict.Recommendation.Valid() {
		// Missing or unknown level: treat as the model having no
		// objection, matching how an absent field is read.
		verdict.Recommendation = risk.Safe
	}

	return &verdict
}

// fallbackVerdict builds the degraded verdict for an unparseable response.
func fallbackVerdict(raw string) *risk.StyleVerdict {
	description := strings.TrimSpace(raw)
	if runes := []rune(description); len(runes) > fallbackDescriptionLimit {
		description = string(runes[:fallbackDescriptionLimit])
	}
	return &risk.StyleVerdict{
		SimilarArtists:   []string{},
		StyleDescription: description,
		RiskFactors:      []string{},
		Recommendation:   risk.Caution,
	}
}

// stripMarkdownFence removes a surrounding ```json ... ``` fence if present.
func stripMarkdownFence(content string) string {
	text := strings.TrimSpace(content)
	if !strings.HasPrefix(text, "```") {
		return text
	}

	// Drop the opening fence line (``` or ```json).
	if idx := strings.IndexByte(text, '\n'); idx >= 0 {
		text = text[idx+1:]
	} else {
		return text
	}
	// Drop the closing fence.
	if idx := strings.LastIndex(text, "```"); idx >= 0 {
		text = text[:idx]
	}
	return strings.TrimSpace(text)
}
