package llm

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"horse.fit/lens/internal/config"
)

// Config holds the per-request provider settings for a Client.
type Config struct {
	Provider    string
	Endpoint    string
	APIKey      string
	Model       string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
	MaxRetries  int
}

// ConfigFromSettings extracts a client config from the LLM section of the
// user settings.
func ConfigFromSettings(settings config.LLMSettings) Config {
	timeout := settings.Timeout
	if timeout < 1 {
		timeout = 30
	}
	return Config{
		Provider:    strings.TrimSpace(settings.Provider),
		Endpoint:    strings.TrimSpace(settings.APIEndpoint),
		APIKey:      strings.TrimSpace(settings.APIKey),
		Model:       strings.TrimSpace(settings.ModelName),
		Temperature: settings.Temperature,
		MaxTokens:   settings.MaxTokens,
		Timeout:     time.Duration(timeout) * time.Second,
		MaxRetries:  settings.MaxRetries,
	}
}

// RetryPolicy derives the retry policy for this config: the configured
// attempt budget with the default delays.
func (c Config) RetryPolicy() RetryPolicy {
	policy := DefaultRetryPolicy()
	if c.MaxRetries > 0 {
		policy.MaxAttempts = c.MaxRetries
	}
	return policy
}

// Validate checks the config is usable for requests. Ollama runs without an
// API key; every other provider requires one.
func (c Config) Validate() error {
	if c.Endpoint == "" {
		return fmt.Errorf("endpoint is required")
	}
	if _, err := url.Parse(c.Endpoint); err != nil {
		return fmt.Errorf("invalid endpoint %q: %w", c.Endpoint, err)
	}
	if c.Model == "" {
		return fmt.Errorf("model name is required")
	}
	if c.Provider != config.ProviderOllama && c.APIKey == "" {
		return fmt.Errorf("api key is required for provider %q", c.Provider)
	}
	return nil
}

// isOllama reports whether requests use the Ollama generate API rather than
// the OpenAI-compatible chat completions API.
func (c Config) isOllama() bool {
	return c.Provider == config.ProviderOllama
}

// requestURL builds the completion endpoint URL for the provider family.
func (c Config) requestURL() string {
	endpoint := strings.TrimRight(c.Endpoint, "/")
	if c.isOllama() {
		if strings.HasSuffix(endpoint, "/api/generate") {
			return endpoint
		}
		return endpoint + "/api/generate"
	}
	switch {
	case strings.HasSuffix(endpoint, "/chat/completions"):
		return endpoint
	case strings.HasSuffix(endpoint, "/v1"):
		return endpoint + "/chat/completions"
	default:
		return endpoint + "/v1/chat/completions"
	}
}
