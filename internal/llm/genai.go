package llm

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

// SDKClient generates through the official Gemini SDK instead of the raw
// REST endpoint. Useful when the ambient environment already authenticates
// via the SDK; the REST client remains the default backend.
type SDKClient struct {
	client *genai.Client
	model  string
	logger *zap.Logger
}

func NewSDKClient(ctx context.Context, apiKey, model string, logger *zap.Logger) (*SDKClient, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	if model == "" {
		model = DefaultModel
	}
	return &SDKClient{client: client, model: model, logger: logger}, nil
}

// Generate implements Generator.
func (c *SDKClient) Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	temp := float32(generationTemperature)
	topP := float32(generationTopP)
	topK := float32(generationTopK)

	cfg := &genai.GenerateContentConfig{
		Temperature:     &temp,
		TopP:            &topP,
		TopK:            &topK,
		MaxOutputTokens: maxOutputTokens,
		SafetySettings: []*genai.SafetySetting{
			{Category: genai.HarmCategoryHarassment, Threshold: genai.HarmBlockThresholdBlockNone},
			{Category: genai.HarmCategoryHateSpeech, Threshold: genai.HarmBlockThresholdBlockNone},
			{Category: genai.HarmCategorySexuallyExplicit, Threshold: genai.HarmBlockThresholdBlockNone},
			{Category: genai.HarmCategoryDangerousContent, Threshold: genai.HarmBlockThresholdBlockNone},
		},
	}
	if systemPrompt != "" {
		cfg.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: systemPrompt}}}
	}

	c.logger.Debug("generating via Gemini SDK", zap.String("model", c.model))

	resp, err := c.client.Models.GenerateContent(ctx, c.model, []*genai.Content{
		{Parts: []*genai.Part{{Text: userPrompt}}},
	}, cfg)
	if err != nil {
		return "", fmt.Errorf("gemini generation failed: %w", err)
	}

	text := extractSDKText(resp)
	if text == "" {
		return "", &APIError{Message: "no usable text content in response (empty candidates or safety block)"}
	}
	return text, nil
}

func extractSDKText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return ""
	}
	var texts []string
	for _, part := range candidate.Content.Parts {
		if part.Text != "" {
			texts = append(texts, part.Text)
		}
	}
	return strings.Join(texts, "")
}
