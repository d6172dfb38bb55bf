// Package constants provides shared constants used across the codebase.
package constants

// Event channel constants
const (
	// EventChannelBuffer is the buffer size for event channels
	EventChannelBuffer = 100
)

// File upload constants
const (
	// MaxUploadSize is the maximum request body size in bytes (100MB)
	MaxUploadSize = 100 << 20

	// MaxImagesPerRequest limits how many images one check request may carry
	MaxImagesPerRequest = 50
)

// Provider constants
const (
	// ProviderOpenAI is the default AI provider name
	ProviderOpenAI = "openai"

	// ProviderGemini selects the Gemini AI provider
	ProviderGemini = "gemini"
)
