// Package ai provides style analysis of images through vision-language
// model backends. All backends implement the Analyzer interface so the
// pipeline can be tested against deterministic fakes.
package ai

import (
	"context"

	"github.com/pavelbre/copycheck/internal/risk"
)

// Analyzer is the interface for style analysis backends.
type Analyzer interface {
	Name() string
	AnalyzeStyle(ctx context.Context, imageData []byte, mimeType string) (*risk.StyleVerdict, error)

	// Usage tracking.
	GetUsage() *Usage
	ResetUsage()
}

// Usage tracks token usage and calculates cost.
type Usage struct {
	InputTokens  int
	OutputTokens int
	TotalCost    float64 // in USD
}

// RequestPricing holds input/output prices per 1M tokens.
type RequestPricing struct {
	Input  float64
	Output float64
}

func (u *Usage) track(inputTokens, outputTokens int, pricing RequestPricing) {
	u.InputTokens += inputTokens
	u.OutputTokens += outputTokens
	u.TotalCost += float64(inputTokens) / 1_000_000 * pricing.Input
	u.TotalCost += float64(outputTokens) / 1_000_000 * pricing.Output
}
