package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Completion is the result of one non-streaming request.
type Completion struct {
	Text             string
	Model            string
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
	Latency          time.Duration
}

// RetryPolicy controls how failed requests are repeated. Network-class
// failures back off exponentially; other retryable failures wait a flat
// delay.
type RetryPolicy struct {
	MaxAttempts int
	NetworkBase time.Duration
	FlatDelay   time.Duration
}

// DefaultRetryPolicy matches the behavior downstream callers expect: three
// attempts, 2^attempt seconds after a network failure, one second otherwise.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		NetworkBase: time.Second,
		FlatDelay:   time.Second,
	}
}

// Delay returns the wait before retrying after the given zero-based attempt.
func (p RetryPolicy) Delay(attempt int, network bool) time.Duration {
	if network {
		return p.NetworkBase * time.Duration(1<<attempt)
	}
	return p.FlatDelay
}

// Client sends completion requests to an OpenAI-compatible or Ollama
// endpoint. The underlying HTTP client is created on first use so that a
// Client can be built from settings without touching the network.
type Client struct {
	cfg    Config
	retry  RetryPolicy
	logger zerolog.Logger

	httpClient *http.Client
}

// NewClient builds a client for the given provider config.
func NewClient(cfg Config, retry RetryPolicy, logger zerolog.Logger) *Client {
	if retry.MaxAttempts < 1 {
		retry = DefaultRetryPolicy()
	}
	return &Client{cfg: cfg, retry: retry, logger: logger}
}

func (c *Client) ensureHTTPClient() *http.Client {
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: c.cfg.Timeout}
	}
	return c.httpClient
}

// Close releases the idle connections held by the HTTP client.
func (c *Client) Close() {
	if c == nil || c.httpClient == nil {
		return
	}
	c.httpClient.CloseIdleConnections()
	c.httpClient = nil
}

// Complete sends the prompt and returns the full completion, retrying per
// the client's retry policy. Auth, rate-limit, and unknown-model errors are
// returned immediately without retry.
func (c *Client) Complete(ctx context.Context, prompt string) (*Completion, error) {
	if c == nil {
		return nil, fmt.Errorf("llm client is nil")
	}
	if strings.TrimSpace(prompt) == "" {
		return nil, fmt.Errorf("prompt is required")
	}
	if err := c.cfg.Validate(); err != nil {
		return nil, fmt.Errorf("llm config: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < c.retry.MaxAttempts; attempt++ {
		if attempt > 0 {
			_, network := lastErr.(*NetworkError)
			delay := c.retry.Delay(attempt-1, network)
			c.logger.Warn().
				Err(lastErr).
				Int("attempt", attempt).
				Dur("delay", delay).
				Msg("completion request failed, retrying")
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		completion, err := c.completeOnce(ctx, prompt, false, nil)
		if err == nil {
			return completion, nil
		}
		if !retryable(err) {
			return nil, err
		}
		lastErr = err
	}
	return nil, lastErr
}

// retryable reports whether the request may be repeated. Auth, rate-limit,
// and model lookup failures are permanent until the user changes settings.
func retryable(err error) bool {
	switch err.(type) {
	case *AuthError, *RateLimitError, *ModelNotFoundError:
		return false
	}
	return true
}

func (c *Client) completeOnce(ctx context.Context, prompt string, stream bool, onChunk func(string)) (*Completion, error) {
	body, err := c.buildRequestBody(prompt, stream)
	if err != nil {
		return nil, &ParseError{Message: "encode request", Cause: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.requestURL(), bytes.NewReader(body))
	if err != nil {
		return nil, &ParseError{Message: "build request", Cause: err}
	}
	req.Header.Set("Content-Type", "application/json")
	if !c.cfg.isOllama() && c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	started := time.Now()
	resp, err := c.ensureHTTPClient().Do(req)
	if err != nil {
		return nil, &NetworkError{Message: "send completion request", Cause: err}
	}
	defer resp.Body.Close()

	if err := c.statusError(resp); err != nil {
		return nil, err
	}

	if stream {
		text, err := c.consumeStream(resp.Body, onChunk)
		if err != nil {
			return nil, err
		}
		return &Completion{Text: text, Model: c.cfg.Model, Latency: time.Since(started)}, nil
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &NetworkError{Message: "read completion response", Cause: err}
	}
	completion, err := c.parseResponse(respBody)
	if err != nil {
		return nil, err
	}
	completion.Latency = time.Since(started)
	return completion, nil
}

// statusError maps non-2xx responses onto the error taxonomy. 5xx counts as
// a network-class failure so it is retried with backoff.
func (c *Client) statusError(resp *http.Response) error {
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusUnauthorized:
		return &AuthError{Provider: c.cfg.Provider}
	case resp.StatusCode == http.StatusTooManyRequests:
		return &RateLimitError{Provider: c.cfg.Provider}
	case resp.StatusCode == http.StatusNotFound:
		return &ModelNotFoundError{Model: c.cfg.Model}
	case resp.StatusCode >= 500:
		return &NetworkError{Message: fmt.Sprintf("server error %d", resp.StatusCode)}
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &Error{Message: fmt.Sprintf("completion endpoint status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))}
	}
}

func (c *Client) buildRequestBody(prompt string, stream bool) ([]byte, error) {
	if c.cfg.isOllama() {
		return json.Marshal(ollamaRequest{
			Model:  c.cfg.Model,
			Prompt: prompt,
			Stream: stream,
			Options: ollamaOptions{
				Temperature: c.cfg.Temperature,
				NumPredict:  c.cfg.MaxTokens,
			},
		})
	}
	return json.Marshal(chatRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{
			{Role: "user", Content: prompt},
		},
		Temperature: c.cfg.Temperature,
		MaxTokens:   c.cfg.MaxTokens,
		Stream:      stream,
	})
}

func (c *Client) parseResponse(body []byte) (*Completion, error) {
	if c.cfg.isOllama() {
		var parsed ollamaResponse
		if err := json.Unmarshal(body, &parsed); err != nil {
			return nil, &ParseError{Message: "decode ollama response", Cause: err}
		}
		text := strings.TrimSpace(parsed.Response)
		if text == "" {
			return nil, &ParseError{Message: "ollama response was empty"}
		}
		return &Completion{
			Text:             text,
			Model:            c.cfg.Model,
			PromptTokens:     parsed.PromptEvalCount,
			CompletionTokens: parsed.EvalCount,
			TotalTokens:      parsed.PromptEvalCount + parsed.EvalCount,
		}, nil
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, &ParseError{Message: "decode chat response", Cause: err}
	}
	if len(parsed.Choices) == 0 {
		return nil, &ParseError{Message: "chat response missing choices"}
	}
	text := strings.TrimSpace(parsed.Choices[0].Message.Content)
	if text == "" {
		return nil, &ParseError{Message: "chat response was empty"}
	}
	return &Completion{
		Text:             text,
		Model:            c.cfg.Model,
		PromptTokens:     parsed.Usage.PromptTokens,
		CompletionTokens: parsed.Usage.CompletionTokens,
		TotalTokens:      parsed.Usage.TotalTokens,
	}, nil
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Stream      bool          `json:"stream,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

type ollamaRequest struct {
	Model   string        `json:"model"`
	Prompt  string        `json:"prompt"`
	Stream  bool          `json:"stream"`
	Options ollamaOptions `json:"options"`
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature,omitempty"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type ollamaResponse struct {
	Response        string `json:"response"`
	Done            bool   `json:"done"`
	PromptEvalCount int    `json:"prompt_eval_count"`
	EvalCount       int    `json:"eval_count"`
}
