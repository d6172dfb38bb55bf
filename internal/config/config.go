package config

import (
	_ "embed"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

//go:embed prices.yaml
var pricesYAML []byte

type Config struct {
	OpenAI   OpenAIConfig
	Gemini   GeminiConfig
	SerpAPI  SerpAPIConfig
	Hosting  HostingConfig
	Analysis AnalysisConfig
	Web      WebConfig
	Prices   PricesConfig
}

type OpenAIConfig struct {
	Token string
}

type GeminiConfig struct {
	APIKey string
}

type SerpAPIConfig struct {
	APIKey  string
	Locale  string // search interface language (default en)
	Country string // search country code (default us)
}

type HostingConfig struct {
	BaseURL string // temporary image hosting endpoint, empty selects the default
}

type AnalysisConfig struct {
	Threshold  float64 // pHash similarity above which a match escalates risk
	MaxMatches int     // reverse-search matches considered per image
}

type WebConfig struct {
	Port int // defaults to 8080
}

type PricesConfig struct {
	Models map[string]ModelPricing `yaml:"models"`
}

// ModelPricing holds input/output prices per 1M tokens.
type ModelPricing struct {
	Input  float64 `yaml:"input"`
	Output float64 `yaml:"output"`
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envFloat reads an environment variable and parses it as a float in (0, 1].
// Returns the default value if the env var is unset, empty, or out of range.
func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f > 0 && f <= 1 {
		return f
	}
	return defaultVal
}

func envString(key, defaultVal string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return defaultVal
}

func Load() *Config {
	var prices PricesConfig
	if err := yaml.Unmarshal(pricesYAML, &prices); err != nil {
		// This is an embedded file so this error should never happen in practice
		panic("failed to unmarshal embedded prices.yaml: " + err.Error())
	}

	return &Config{
		OpenAI: OpenAIConfig{
			Token: os.Getenv("OPENAI_TOKEN"),
		},
		Gemini: GeminiConfig{
			APIKey: os.Getenv("GEMINI_API_KEY"),
		},
		SerpAPI: SerpAPIConfig{
			APIKey:  os.Getenv("SERPAPI_API_KEY"),
			Locale:  envString("SERPAPI_LOCALE", "en"),
			Country: envString("SERPAPI_COUNTRY", "us"),
		},
		Hosting: HostingConfig{
			BaseURL: os.Getenv("HOSTING_BASE_URL"),
		},
		Analysis: AnalysisConfig{
			Threshold:  envFloat("PHASH_THRESHOLD", 0.85),
			MaxMatches: envInt("MAX_MATCHES", 5),
		},
		Web: WebConfig{
			Port: envInt("PORT", 8080),
		},
		Prices: prices,
	}
}

// GetModelPricing returns pricing for a specific model, with fallback defaults
func (c *Config) GetModelPricing(modelName string) ModelPricing {
	if pricing, ok := c.Prices.Models[modelName]; ok {
		return pricing
	}
	// Return zero pricing if model not found
	return ModelPricing{}
}
