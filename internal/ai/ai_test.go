package ai

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"strings"
	"testing"

	"github.com/pavelbre/copycheck/internal/risk"
)

// Helper functions for creating test images

func createTestImage(width, height int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for x := range width {
		for y := range height {
			img.Set(x, y, c)
		}
	}
	return img
}

func encodeJPEG(img image.Image) []byte {
	var buf bytes.Buffer
	jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90})
	return buf.Bytes()
}

// --- parseStyleVerdict tests ---

func TestParseStyleVerdict_PlainJSON(t *testing.T) {
	content := `{
		"similar_artists": ["Alice Smith"],
		"style_description": "soft watercolor touch",
		"risk_factors": ["close to the style of a famous series"],
		"recommendation": "CAUTION"
	}`

	verdict := parseStyleVerdict(content)

	if len(verdict.SimilarArtists) != 1 || verdict.SimilarArtists[0] != "Alice Smith" {
		t.Errorf("SimilarArtists = %v", verdict.SimilarArtists)
	}
	if verdict.StyleDescription != "soft watercolor touch" {
		t.Errorf("StyleDescription = %q", verdict.StyleDescription)
	}
	if verdict.Recommendation != risk.Caution {
		t.Errorf("Recommendation = %q; want CAUTION", verdict.Recommendation)
	}
}

func TestParseStyleVerdict_MarkdownFence(t *testing.T) {
	content := "```json\n{\"similar_artists\": [], \"style_description\": \"flat colors\", \"risk_factors\": [], \"recommendation\": \"SAFE\"}\n```"

	verdict := parseStyleVerdict(content)

	if verdict.Recommendation != risk.Safe {
		t.Errorf("Recommendation = %q; want SAFE", verdict.Recommendation)
	}
	if verdict.StyleDescription != "flat colors" {
		t.Errorf("StyleDescription = %q", verdict.StyleDescription)
	}
}

func TestParseStyleVerdict_InvalidJSONFallsBack(t *testing.T) {
	content := "I could not analyze this image because it is too abstract for me."

	verdict := parseStyleVerdict(content)

	if verdict.Recommendation != risk.Caution {
		t.Errorf("fallback Recommendation = %q; want CAUTION", verdict.Recommendation)
	}
	if len(verdict.SimilarArtists) != 0 || len(verdict.RiskFactors) != 0 {
		t.Errorf("fallback structured fields should be empty: %+v", verdict)
	}
	if verdict.StyleDescription != content {
		t.Errorf("fallback description = %q; want raw text", verdict.StyleDescription)
	}
}

func TestParseStyleVerdict_FallbackTruncates(t *testing.T) {
	content := strings.Repeat("x", 500)

	verdict := parseStyleVerdict(content)

	if got := len([]rune(verdict.StyleDescription)); got != 200 {
		t.Errorf("fallback description length = %d; want 200", got)
	}
}

func TestParseStyleVerdict_ClampsArtists(t *testing.T) {
	content := `{"similar_artists": ["a","b","c","d","e","f","g"], "recommendation": "SAFE"}`

	verdict := parseStyleVerdict(content)

	if len(verdict.SimilarArtists) != 5 {
		t.Errorf("kept %d artists; want 5", len(verdict.SimilarArtists))
	}
}

func TestParseStyleVerdict_UnknownRecommendation(t *testing.T) {
	content := `{"similar_artists": [], "recommendation": "MAYBE"}`

	verdict := parseStyleVerdict(content)

	if verdict.Recommendation != risk.Safe {
		t.Errorf("unknown level mapped to %q; want SAFE", verdict.Recommendation)
	}
}

// --- DetectMIMEType tests ---

func TestDetectMIMEType(t *testing.T) {
	tests := []struct {
		name     string
		data     []byte
		expected string
	}{
		{"jpeg", []byte{0xFF, 0xD8, 0xFF, 0xE0, 0, 0, 0, 0}, "image/jpeg"},
		{"png", []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}, "image/png"},
		{"gif", []byte("GIF89a\x00\x00"), "image/gif"},
		{"webp", []byte("RIFF\x00\x00\x00\x00WEBP"), "image/webp"},
		{"unknown", []byte("plain text data"), "application/octet-stream"},
		{"too short", []byte{0xFF}, "application/octet-stream"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := DetectMIMEType(tc.data); got != tc.expected {
				t.Errorf("DetectMIMEType = %q; want %q", got, tc.expected)
			}
		})
	}
}

// --- ResizeImage tests ---

func TestResizeImage_NoResizeNeeded(t *testing.T) {
	data := encodeJPEG(createTestImage(100, 100, color.White))

	resized, err := ResizeImage(data, 200)
	if err != nil {
		t.Fatalf("ResizeImage failed: %v", err)
	}

	_, format, err := image.Decode(bytes.NewReader(resized))
	if err != nil {
		t.Fatalf("failed to decode result: %v", err)
	}
	if format != "jpeg" {
		t.Errorf("expected jpeg format, got %s", format)
	}
}

func TestResizeImage_Landscape(t *testing.T) {
	data := encodeJPEG(createTestImage(2000, 1000, color.White))

	resized, err := ResizeImage(data, 500)
	if err != nil {
		t.Fatalf("ResizeImage failed: %v", err)
	}

	img, _, err := image.Decode(bytes.NewReader(resized))
	if err != nil {
		t.Fatalf("failed to decode resized image: %v", err)
	}
	if img.Bounds().Dx() != 500 {
		t.Errorf("width = %d; want 500", img.Bounds().Dx())
	}
	if img.Bounds().Dy() != 250 {
		t.Errorf("height = %d; want 250", img.Bounds().Dy())
	}
}

func TestResizeImage_InvalidData(t *testing.T) {
	if _, err := ResizeImage([]byte("not an image"), 500); err == nil {
		t.Error("expected error for invalid image data")
	}
}

// --- Usage tests ---

func TestUsageTrack(t *testing.T) {
	var u Usage
	pricing := RequestPricing{Input: 1.0, Output: 2.0}

	u.track(1_000_000, 500_000, pricing)

	if u.InputTokens != 1_000_000 {
		t.Errorf("InputTokens = %d", u.InputTokens)
	}
	if u.OutputTokens != 500_000 {
		t.Errorf("OutputTokens = %d", u.OutputTokens)
	}
	if u.TotalCost != 2.0 {
		t.Errorf("TotalCost = %v; want 2.0", u.TotalCost)
	}
}
