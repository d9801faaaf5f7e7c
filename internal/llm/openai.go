package llm

import (
	"context"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"go.uber.org/zap"
)

const defaultOpenAIModel = "gpt-4.1-mini"

// OpenAIClient is an alternate text generator used as a fallback backend
// when the Gemini endpoint is unavailable.
type OpenAIClient struct {
	client *openai.Client
	model  string
	logger *zap.Logger
}

// NewOpenAIClient returns nil when no API key is configured.
func NewOpenAIClient(apiKey, model string, logger *zap.Logger) *OpenAIClient {
	if apiKey == "" {
		return nil
	}
	if model == "" {
		model = defaultOpenAIModel
	}
	client := openai.NewClient(option.WithAPIKey(apiKey))
	return &OpenAIClient{client: &client, model: model, logger: logger}
}

// Generate implements Generator.
func (c *OpenAIClient) Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	messages := []openai.ChatCompletionMessageParamUnion{
		openai.UserMessage(userPrompt),
	}
	if systemPrompt != "" {
		messages = []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(userPrompt),
		}
	}

	c.logger.Debug("generating via OpenAI", zap.String("model", c.model))

	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:               openai.ChatModel(c.model),
		Messages:            messages,
		MaxCompletionTokens: openai.Int(maxOutputTokens),
		Temperature:         openai.Float(generationTemperature),
		TopP:                openai.Float(generationTopP),
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", &APIError{Message: "no choices in OpenAI response"}
	}

	text := resp.Choices[0].Message.Content
	if text == "" {
		return "", &APIError{Message: "empty message content in OpenAI response"}
	}
	return text, nil
}
