package llm

import "fmt"

// Error is the base failure type for completion requests.
type Error struct {
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// AuthError reports a rejected API key (HTTP 401). Not retried.
type AuthError struct {
	Provider string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("authentication failed for provider %q: check the API key", e.Provider)
}

// RateLimitError reports quota exhaustion (HTTP 429). Not retried.
type RateLimitError struct {
	Provider string
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded for provider %q", e.Provider)
}

// ModelNotFoundError reports an unknown model name (HTTP 404). Not retried.
type ModelNotFoundError struct {
	Model string
}

func (e *ModelNotFoundError) Error() string {
	return fmt.Sprintf("model %q not found", e.Model)
}

// NetworkError reports a transport failure or server-side error. Retried
// with exponential backoff.
type NetworkError struct {
	Message string
	Cause   error
}

func (e *NetworkError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("network error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("network error: %s", e.Message)
}

func (e *NetworkError) Unwrap() error {
	return e.Cause
}

// ParseError reports a response the client could not decode.
type ParseError struct {
	Message string
	Cause   error
}

func (e *ParseError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("parse error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("parse error: %s", e.Message)
}

func (e *ParseError) Unwrap() error {
	return e.Cause
}
