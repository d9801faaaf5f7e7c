package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"
)

const successBody = `{"candidates":[{"content":{"parts":[{"text":"translated"}]}}]}`

func newTestClient(t *testing.T, handler http.HandlerFunc) (*GeminiClient, *[]time.Duration) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client := NewGeminiClient(GeminiConfig{
		APIKey:  "test-key",
		Model:   "gemini-2.5-flash",
		BaseURL: srv.URL,
	}, zap.NewNop())

	var delays []time.Duration
	client.sleep = func(_ context.Context, d time.Duration) error {
		delays = append(delays, d)
		return nil
	}
	return client, &delays
}

func TestGenerate_Success(t *testing.T) {
	var gotPath, gotKey string
	var gotBody generateRequest

	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.URL.Query().Get("key")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		fmt.Fprint(w, successBody)
	})

	text, err := client.Generate(context.Background(), "system text", "user text")
	if err != nil {
		t.Fatalf("error: %v", err)
	}
	if text != "translated" {
		t.Errorf("text = %q", text)
	}
	if gotPath != "/v1beta/models/gemini-2.5-flash:generateContent" {
		t.Errorf("path = %q", gotPath)
	}
	if gotKey != "test-key" {
		t.Errorf("key = %q", gotKey)
	}
	if gotBody.SystemInstruction == nil || gotBody.SystemInstruction.Parts[0].Text != "system text" {
		t.Errorf("system instruction = %+v", gotBody.SystemInstruction)
	}
	if len(gotBody.Contents) != 1 || gotBody.Contents[0].Parts[0].Text != "user text" {
		t.Errorf("contents = %+v", gotBody.Contents)
	}
	if gotBody.GenerationConfig.Temperature != 0.2 {
		t.Errorf("temperature = %v", gotBody.GenerationConfig.Temperature)
	}
	if gotBody.GenerationConfig.MaxOutputTokens != 8192 {
		t.Errorf("maxOutputTokens = %v", gotBody.GenerationConfig.MaxOutputTokens)
	}
	if len(gotBody.SafetySettings) != 4 {
		t.Fatalf("safetySettings = %+v", gotBody.SafetySettings)
	}
	for _, s := range gotBody.SafetySettings {
		if s.Threshold != "BLOCK_NONE" {
			t.Errorf("threshold = %q for %q", s.Threshold, s.Category)
		}
	}
}

// 503 three times then success: exactly 4 calls with backoff 1s, 2s, 4s.
func TestGenerate_RetriesOverloadedThenSucceeds(t *testing.T) {
	calls := 0
	client, delays := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls <= 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			fmt.Fprint(w, `{"error":{"message":"model is overloaded"}}`)
			return
		}
		fmt.Fprint(w, successBody)
	})

	text, err := client.Generate(context.Background(), "", "hello")
	if err != nil {
		t.Fatalf("error: %v", err)
	}
	if text != "translated" {
		t.Errorf("text = %q", text)
	}
	if calls != 4 {
		t.Errorf("calls = %d, want 4", calls)
	}
	want := []time.Duration{time.Second, 2 * time.Second, 4 * time.Second}
	if len(*delays) != len(want) {
		t.Fatalf("delays = %v", *delays)
	}
	for i, d := range want {
		if (*delays)[i] != d {
			t.Errorf("delay[%d] = %v, want %v", i, (*delays)[i], d)
		}
	}
}

func TestGenerate_RetriesRateLimited(t *testing.T) {
	calls := 0
	client, delays := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		fmt.Fprint(w, successBody)
	})

	if _, err := client.Generate(context.Background(), "", "hello"); err != nil {
		t.Fatalf("error: %v", err)
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
	if len(*delays) != 1 || (*delays)[0] != time.Second {
		t.Errorf("delays = %v", *delays)
	}
}

func TestGenerate_ExhaustsRetryBudget(t *testing.T) {
	calls := 0
	client, delays := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := client.Generate(context.Background(), "", "hello")
	var exhausted *RetriesExhaustedError
	if !errors.As(err, &exhausted) {
		t.Fatalf("error type = %T (%v)", err, err)
	}
	if calls != 5 {
		t.Errorf("calls = %d, want 5", calls)
	}
	if exhausted.Attempts != 5 {
		t.Errorf("Attempts = %d", exhausted.Attempts)
	}
	var rl *RateLimitError
	if !errors.As(err, &rl) {
		t.Errorf("wrapped error = %v", exhausted.Last)
	}
	want := []time.Duration{time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second}
	if len(*delays) != len(want) {
		t.Fatalf("delays = %v", *delays)
	}
	for i, d := range want {
		if (*delays)[i] != d {
			t.Errorf("delay[%d] = %v, want %v", i, (*delays)[i], d)
		}
	}
}

func TestGenerate_BadRequestIsNotRetried(t *testing.T) {
	calls := 0
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error":{"message":"API key not valid"}}`)
	})

	_, err := client.Generate(context.Background(), "", "hello")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error type = %T (%v)", err, err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
	if apiErr.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d", apiErr.StatusCode)
	}
	if apiErr.Message != "API key not valid" {
		t.Errorf("message = %q", apiErr.Message)
	}
}

func TestGenerate_EmptyCandidatesIsNotRetried(t *testing.T) {
	calls := 0
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		fmt.Fprint(w, `{"candidates":[]}`)
	})

	_, err := client.Generate(context.Background(), "", "hello")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error type = %T (%v)", err, err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestGenerate_JoinsMultipleParts(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"candidates":[{"content":{"parts":[{"text":"part one "},{"text":"part two"}]}}]}`)
	})

	text, err := client.Generate(context.Background(), "", "hello")
	if err != nil {
		t.Fatalf("error: %v", err)
	}
	if text != "part one part two" {
		t.Errorf("text = %q", text)
	}
}

func TestFallbackGenerator_UsesSecondaryOnFailure(t *testing.T) {
	primary := &stubGenerator{err: &APIError{Message: "boom"}}
	secondary := &stubGenerator{text: "rescued"}
	gen := NewFallbackGenerator(primary, secondary, zap.NewNop())

	text, err := gen.Generate(context.Background(), "s", "u")
	if err != nil {
		t.Fatalf("error: %v", err)
	}
	if text != "rescued" {
		t.Errorf("text = %q", text)
	}
	if primary.calls != 1 || secondary.calls != 1 {
		t.Errorf("calls = %d/%d", primary.calls, secondary.calls)
	}
}

func TestFallbackGenerator_PrefersPrimary(t *testing.T) {
	primary := &stubGenerator{text: "primary"}
	secondary := &stubGenerator{text: "secondary"}
	gen := NewFallbackGenerator(primary, secondary, zap.NewNop())

	text, err := gen.Generate(context.Background(), "s", "u")
	if err != nil {
		t.Fatalf("error: %v", err)
	}
	if text != "primary" {
		t.Errorf("text = %q", text)
	}
	if secondary.calls != 0 {
		t.Errorf("secondary called %d times", secondary.calls)
	}
}

type stubGenerator struct {
	text  string
	err   error
	calls int
}

func (s *stubGenerator) Generate(context.Context, string, string) (string, error) {
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	return s.text, nil
}
