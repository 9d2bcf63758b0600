package extraction

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAI implements the Extractor interface against any OpenAI-compatible
// chat completions endpoint with vision support. Pointing the base URL at
// Ollama's /v1 endpoint works for local models.
type OpenAI struct {
	client     *openai.Client
	model      string
	categories []string
	prompt     string
}

// NewOpenAI creates a new OpenAI Extractor instance. baseURL may be empty
// for the hosted API.
func NewOpenAI(apiKey, baseURL, modelName string, categories []string) (*OpenAI, error) {
	if apiKey == "" && baseURL == "" {
		return nil, fmt.Errorf("openai api key is required")
	}
	if modelName == "" {
		modelName = "gpt-4o-mini"
	}

	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	// Vision models can be slow, especially self-hosted ones.
	config.HTTPClient.Timeout = 120 * time.Second

	return &OpenAI{
		client:     openai.NewClientWithConfig(config),
		model:      modelName,
		categories: categories,
		prompt:     buildPrompt(categories),
	}, nil
}

// Extract analyzes a receipt and derives expense fields.
func (o *OpenAI) Extract(imageData []byte, contentType string) (*ExpenseData, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()

	finalImageData, err := prepareImageData(imageData, contentType)
	if err != nil {
		return nil, err
	}

	imageURL := "data:image/png;base64," + base64.StdEncoding.EncodeToString(finalImageData)

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: "You are an expert at reading and extracting information from receipts and invoices. You must carefully read all text in images and extract accurate information.",
			},
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{
						Type:     openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{URL: imageURL},
					},
					{
						Type: openai.ChatMessagePartTypeText,
						Text: o.prompt,
					},
				},
			},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("calling chat completions API: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no response from model")
	}

	data, err := parseExpenseJSON(resp.Choices[0].Message.Content, o.categories)
	if err != nil {
		slog.Warn("Unparseable extraction response, using defaults", "error", err)
		return Fallback(time.Now(), o.categories), nil
	}
	return data, nil
}

// Close closes the client (no-op for the HTTP client).
func (o *OpenAI) Close() error {
	return nil
}
