package config

import (
	"os"
	"time"
)

// Classifier providers
const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
	ProviderMock   = "mock"
)

// ClassifierModels defines which model each provider uses for branch classification
type ClassifierModels struct {
	Gemini string `json:"gemini"`
	OpenAI string `json:"openai"`
}

// BreakerConfig tunes the circuit breaker in front of the classifier
type BreakerConfig struct {
	MaxRequests      uint32        `json:"maxRequests"`      // Probes allowed while half-open
	Interval         time.Duration `json:"interval"`         // Closed-state counter reset period
	OpenTimeout      time.Duration `json:"openTimeout"`      // Time spent open before probing
	FailureThreshold uint32        `json:"failureThreshold"` // Consecutive failures that trip it
}

// AIConfig holds all classifier-related configuration
type AIConfig struct {
	Provider     string           `json:"provider"`
	GeminiAPIKey string           `json:"-"` // Never serialize
	OpenAIAPIKey string           `json:"-"`
	OpenAIURL    string           `json:"openaiBaseUrl,omitempty"`
	Models       ClassifierModels `json:"models"`
	TimeoutMS    int              `json:"timeoutMs"`
	Breaker      BreakerConfig    `json:"breaker"`
}

// DefaultAIConfig returns the classifier configuration from the environment.
// Without an explicit provider the first one with an API key wins, falling
// back to the mock classifier.
func DefaultAIConfig() *AIConfig {
	cfg := &AIConfig{
		Provider:     os.Getenv("CLASSIFIER_PROVIDER"),
		GeminiAPIKey: os.Getenv("GEMINI_API_KEY"),
		OpenAIAPIKey: os.Getenv("OPENAI_API_KEY"),
		OpenAIURL:    os.Getenv("OPENAI_BASE_URL"),
		Models: ClassifierModels{
			Gemini: getEnvOrDefault("GEMINI_MODEL_CLASSIFIER", "gemini-2.0-flash"),
			OpenAI: getEnvOrDefault("OPENAI_MODEL_CLASSIFIER", "gpt-4o-mini"),
		},
		TimeoutMS: getEnvInt("CLASSIFIER_TIMEOUT_MS", 10000), // 10 second default timeout
		Breaker: BreakerConfig{
			MaxRequests:      uint32(getEnvInt("CLASSIFIER_BREAKER_MAX_REQUESTS", 1)),
			Interval:         getEnvDuration("CLASSIFIER_BREAKER_INTERVAL", time.Minute),
			OpenTimeout:      getEnvDuration("CLASSIFIER_BREAKER_TIMEOUT", 30*time.Second),
			FailureThreshold: uint32(getEnvInt("CLASSIFIER_BREAKER_FAILURES", 5)),
		},
	}

	if cfg.TimeoutMS <= 0 {
		cfg.TimeoutMS = 10000
	}
	if cfg.Provider == "" {
		switch {
		case cfg.GeminiAPIKey != "":
			cfg.Provider = ProviderGemini
		case cfg.OpenAIAPIKey != "":
			cfg.Provider = ProviderOpenAI
		default:
			cfg.Provider = ProviderMock
		}
	}
	return cfg
}

// IsEnabled returns true if a real provider is configured with its key
func (c *AIConfig) IsEnabled() bool {
	switch c.Provider {
	case ProviderGemini:
		return c.GeminiAPIKey != ""
	case ProviderOpenAI:
		return c.OpenAIAPIKey != ""
	}
	return false
}

// Timeout is the per-call classifier deadline
func (c *AIConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutMS) * time.Millisecond
}
