package ai

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"github.com/pavelbre/copycheck/internal/risk"
)

const chatModel = openai.ChatModelGPT4_1Mini

// OpenAIAnalyzer analyzes image style using the OpenAI chat API.
type OpenAIAnalyzer struct {
	client  *openai.Client
	usage   Usage
	pricing RequestPricing
}

// NewOpenAIAnalyzer creates an OpenAI-backed style analyzer.
func NewOpenAIAnalyzer(apiKey string, pricing RequestPricing) *OpenAIAnalyzer {
	client := openai.NewClient(option.WithAPIKey(apiKey))
	return &OpenAIAnalyzer{
		client:  &client,
		pricing: pricing,
	}
}

func (a *OpenAIAnalyzer) Name() string {
	return chatModel
}

func (a *OpenAIAnalyzer) GetUsage() *Usage {
	return &a.usage
}

func (a *OpenAIAnalyzer) ResetUsage() {
	a.usage = Usage{}
}

// AnalyzeStyle asks the model for a style verdict on the image. API
// errors are returned to the caller; an unparseable model response
// degrades to a cautious verdict instead.
func (a *OpenAIAnalyzer) AnalyzeStyle(ctx context.Context, imageData []byte, mimeType string) (*risk.StyleVerdict, error) {
	// Resize image to max 800px to save costs.
	resizedData, err := ResizeImage(imageData, 800)
	if err != nil {
		return nil, fmt.Errorf("failed to resize image: %w", err)
	}

	base64Image := base64.StdEncoding.EncodeToString(resizedData)
	imageURL := "data:image/jpeg;base64," + base64Image

	messages := []openai.ChatCompletionMessageParamUnion{
		{
			OfSystem: &openai.ChatCompletionSystemMessageParam{
				Content: openai.ChatCompletionSystemMessageParamContentUnion{
					OfString: openai.String(styleAnalysisPrompt),
				},
			},
		},
		{
			OfUser: &openai.ChatCompletionUserMessageParam{
				Content: openai.ChatCompletionUserMessageParamContentUnion{
					OfArrayOfContentParts: []openai.ChatCompletionContentPartUnionParam{
						openai.TextContentPart("Assess the copyright risk of this image."),
						openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
							URL:    imageURL,
							Detail: "low",
						}),
					},
				},
			},
		},
	}

	resp, err := a.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:    chatModel,
		Messages: messages,
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		},
		MaxTokens: openai.Int(500),
	})
	if err != nil {
		return nil, fmt.Errorf("OpenAI API error: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, errors.New("no response from OpenAI")
	}

	if resp.Usage.PromptTokens > 0 || resp.Usage.CompletionTokens > 0 {
		a.usage.track(int(resp.Usage.PromptTokens), int(resp.Usage.CompletionTokens), a.pricing)
	}

	return parseStyleVerdict(resp.Choices[0].Message.Content), nil
}
