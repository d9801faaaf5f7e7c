// Package llm performs request/response exchanges with generative model
// endpoints and classifies their failures.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Generator sends one (system prompt, user prompt) pair to a model and
// returns the raw text payload.
type Generator interface {
	Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

const (
	DefaultBaseURL = "https://generativelanguage.googleapis.com"
	DefaultModel   = "gemini-2.5-flash"

	defaultMaxAttempts = 5
	defaultBackoffBase = time.Second

	generationTemperature = 0.2
	generationTopP        = 1.0
	generationTopK        = 32
	maxOutputTokens       = 8192
)

// The content is translation of existing assessment text, not generated
// content, so every safety category is relaxed.
var safetyCategories = []string{
	"HARM_CATEGORY_HARASSMENT",
	"HARM_CATEGORY_HATE_SPEECH",
	"HARM_CATEGORY_SEXUALLY_EXPLICIT",
	"HARM_CATEGORY_DANGEROUS_CONTENT",
}

type requestPart struct {
	Text string `json:"text"`
}

type requestContent struct {
	Parts []requestPart `json:"parts"`
}

type generationConfig struct {
	Temperature     float64 `json:"temperature"`
	TopP            float64 `json:"topP"`
	TopK            int     `json:"topK"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

type safetySetting struct {
	Category  string `json:"category"`
	Threshold string `json:"threshold"`
}

type generateRequest struct {
	Contents          []requestContent `json:"contents"`
	SystemInstruction *requestContent  `json:"systemInstruction,omitempty"`
	GenerationConfig  generationConfig `json:"generationConfig"`
	SafetySettings    []safetySetting  `json:"safetySettings"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []requestPart `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

type errorResponse struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// GeminiConfig configures a GeminiClient. Zero values fall back to the
// production defaults.
type GeminiConfig struct {
	APIKey      string
	Model       string
	BaseURL     string
	HTTPClient  *http.Client
	MaxAttempts int
	BackoffBase time.Duration
}

// GeminiClient talks to the Gemini REST endpoint directly. The credential is
// transmitted as a query parameter on the endpoint URL. Transient failures
// (transport errors, 429, 503) are retried with exponential backoff starting
// at BackoffBase and doubling after every retry, up to MaxAttempts total.
type GeminiClient struct {
	httpClient  *http.Client
	baseURL     string
	model       string
	apiKey      string
	maxAttempts int
	backoffBase time.Duration
	logger      *zap.Logger
	sleep       func(context.Context, time.Duration) error
}

func NewGeminiClient(cfg GeminiConfig, logger *zap.Logger) *GeminiClient {
	c := &GeminiClient{
		httpClient:  cfg.HTTPClient,
		baseURL:     cfg.BaseURL,
		model:       cfg.Model,
		apiKey:      cfg.APIKey,
		maxAttempts: cfg.MaxAttempts,
		backoffBase: cfg.BackoffBase,
		logger:      logger,
		sleep:       sleepContext,
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: 120 * time.Second}
	}
	if c.baseURL == "" {
		c.baseURL = DefaultBaseURL
	}
	if c.model == "" {
		c.model = DefaultModel
	}
	if c.maxAttempts <= 0 {
		c.maxAttempts = defaultMaxAttempts
	}
	if c.backoffBase <= 0 {
		c.backoffBase = defaultBackoffBase
	}
	return c
}

// Generate implements Generator against the raw REST wire contract.
func (c *GeminiClient) Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	body, err := json.Marshal(buildGenerateRequest(systemPrompt, userPrompt))
	if err != nil {
		return "", fmt.Errorf("encoding request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s",
		strings.TrimSuffix(c.baseURL, "/"), c.model, url.QueryEscape(c.apiKey))

	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		text, err := c.doRequest(ctx, endpoint, body)
		if err == nil {
			return text, nil
		}
		if !isRetryable(err) {
			return "", err
		}
		lastErr = err
		if attempt == c.maxAttempts {
			break
		}

		delay := c.backoffBase << (attempt - 1)
		c.logger.Warn("model request failed; backing off",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", c.maxAttempts),
			zap.Duration("delay", delay),
			zap.Error(err),
		)
		if serr := c.sleep(ctx, delay); serr != nil {
			return "", serr
		}
	}

	return "", &RetriesExhaustedError{Attempts: c.maxAttempts, Last: lastErr}
}

func (c *GeminiClient) doRequest(ctx context.Context, endpoint string, body []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", &TransportError{Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &TransportError{Err: err}
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests,
		resp.StatusCode == http.StatusServiceUnavailable:
		return "", &RateLimitError{StatusCode: resp.StatusCode}
	case resp.StatusCode != http.StatusOK:
		return "", &APIError{
			StatusCode: resp.StatusCode,
			Message:    providerErrorMessage(respBody),
		}
	}

	var parsed generateResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", &APIError{Message: fmt.Sprintf("invalid response body: %v", err)}
	}

	text := extractCandidateText(parsed)
	if text == "" {
		return "", &APIError{Message: "no usable text content in response (empty candidates or safety block)"}
	}
	return text, nil
}

func buildGenerateRequest(systemPrompt, userPrompt string) generateRequest {
	req := generateRequest{
		Contents: []requestContent{
			{Parts: []requestPart{{Text: userPrompt}}},
		},
		GenerationConfig: generationConfig{
			Temperature:     generationTemperature,
			TopP:            generationTopP,
			TopK:            generationTopK,
			MaxOutputTokens: maxOutputTokens,
		},
	}
	if systemPrompt != "" {
		req.SystemInstruction = &requestContent{Parts: []requestPart{{Text: systemPrompt}}}
	}
	for _, cat := range safetyCategories {
		req.SafetySettings = append(req.SafetySettings, safetySetting{
			Category:  cat,
			Threshold: "BLOCK_NONE",
		})
	}
	return req
}

func extractCandidateText(resp generateResponse) string {
	if len(resp.Candidates) == 0 {
		return ""
	}
	var texts []string
	for _, part := range resp.Candidates[0].Content.Parts {
		if part.Text != "" {
			texts = append(texts, part.Text)
		}
	}
	return strings.Join(texts, "")
}

func providerErrorMessage(body []byte) string {
	var parsed errorResponse
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Error.Message != "" {
		return parsed.Error.Message
	}
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return "no error details provided"
	}
	return trimmed
}

func isRetryable(err error) bool {
	var rl *RateLimitError
	if errors.As(err, &rl) {
		return true
	}
	var tr *TransportError
	return errors.As(err, &tr)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
