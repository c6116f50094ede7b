package llm

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"
)

const streamDoneSentinel = "[DONE]"

// CompleteStream sends the prompt with streaming enabled, invoking onChunk
// for each delta as it arrives, and returns the assembled text. Retries
// follow the same policy as Complete; chunks already delivered before a
// retried failure are delivered again on the next attempt.
func (c *Client) CompleteStream(ctx context.Context, prompt string, onChunk func(chunk string)) (*Completion, error) {
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
				Msg("streaming request failed, retrying")
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		completion, err := c.completeOnce(ctx, prompt, true, onChunk)
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

// consumeStream reads server-sent chunks until the stream ends, appending
// each delta to the assembled result. Malformed chunks are skipped rather
// than failing the whole stream.
func (c *Client) consumeStream(body io.Reader, onChunk func(string)) (string, error) {
	var assembled strings.Builder
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		payload := line
		if strings.HasPrefix(line, "data: ") {
			payload = strings.TrimPrefix(line, "data: ")
		}
		if payload == streamDoneSentinel {
			break
		}

		delta, done, ok := c.decodeChunk(payload)
		if !ok {
			continue
		}
		if delta != "" {
			assembled.WriteString(delta)
			if onChunk != nil {
				onChunk(delta)
			}
		}
		if done {
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return "", &NetworkError{Message: "read completion stream", Cause: err}
	}

	text := strings.TrimSpace(assembled.String())
	if text == "" {
		return "", &ParseError{Message: "stream produced no content"}
	}
	return text, nil
}

// decodeChunk extracts the text delta from one stream payload. ok is false
// for chunks that do not decode.
func (c *Client) decodeChunk(payload string) (delta string, done bool, ok bool) {
	if c.cfg.isOllama() {
		var chunk ollamaResponse
		if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
			return "", false, false
		}
		return chunk.Response, chunk.Done, true
	}

	var chunk chatStreamChunk
	if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
		return "", false, false
	}
	if len(chunk.Choices) == 0 {
		return "", false, true
	}
	return chunk.Choices[0].Delta.Content, chunk.Choices[0].FinishReason != "", true
}

type chatStreamChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}
