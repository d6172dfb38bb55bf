package ai

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"

	"github.com/pavelbre/copycheck/internal/risk"
)

const geminiModel = "gemini-2.5-flash"

// GeminiAnalyzer analyzes image style using the Gemini API.
type GeminiAnalyzer struct {
	client  *genai.Client
	usage   Usage
	pricing RequestPricing
}

// NewGeminiAnalyzer creates a Gemini-backed style analyzer.
func NewGeminiAnalyzer(ctx context.Context, apiKey string, pricing RequestPricing) (*GeminiAnalyzer, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiAnalyzer{
		client:  client,
		pricing: pricing,
	}, nil
}

func (a *GeminiAnalyzer) Name() string {
	return geminiModel
}

func (a *GeminiAnalyzer) GetUsage() *Usage {
	return &a.usage
}

func (a *GeminiAnalyzer) ResetUsage() {
	a.usage = Usage{}
}

// AnalyzeStyle asks Gemini for a style verdict on the image. API errors
// are returned to the caller; an unparseable model response is not an
// error and degrades to a cautious verdict instead.
func (a *GeminiAnalyzer) AnalyzeStyle(ctx context.Context, imageData []byte, mimeType string) (*risk.StyleVerdict, error) {
	// Resize image to max 800px to save costs.
	resizedData, err := ResizeImage(imageData, 800)
	if err != nil {
		return nil, fmt.Errorf("failed to resize image: %w", err)
	}
	if mimeType == "" {
		mimeType = DetectMIMEType(imageData)
	}

	contents := []*genai.Content{
		{
			Role: "user",
			Parts: []*genai.Part{
				{Text: styleAnalysisPrompt},
				{InlineData: &genai.Blob{Data: resizedData, MIMEType: "image/jpeg"}},
			},
		},
	}

	config := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
	}

	result, err := a.client.Models.GenerateContent(ctx, geminiModel, contents, config)
	if err != nil {
		return nil, fmt.Errorf("gemini API error: %w", err)
	}

	if result.UsageMetadata != nil {
		a.usage.track(
			int(result.UsageMetadata.PromptTokenCount),
			int(result.UsageMetadata.CandidatesTokenCount),
			a.pricing,
		)
	}

	content := result.Text()
	if content == "" {
		return nil, errors.New("no response from Gemini")
	}

	return parseStyleVerdict(content), nil
}
