package llm

import "fmt"

// APIError is a non-retryable provider-side failure: bad request, safety
// block, or a success response with no usable text content.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("model API error (status %d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("model API error: %s", e.Message)
}

// RateLimitError marks a 429/503 response. The retry loop absorbs these
// until the attempt budget is spent.
type RateLimitError struct {
	StatusCode int
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("model endpoint returned status %d", e.StatusCode)
}

// TransportError wraps a network-level failure (connection error, timeout).
// Retryable.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("model request transport failure: %v", e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// RetriesExhaustedError wraps the last transport or rate-limit error after
// the retry budget is spent.
type RetriesExhaustedError struct {
	Attempts int
	Last     error
}

func (e *RetriesExhaustedError) Error() string {
	return fmt.Sprintf("model request failed after %d attempts: %v", e.Attempts, e.Last)
}

func (e *RetriesExhaustedError) Unwrap() error {
	return e.Last
}
