package extraction

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// Gemini implements the Extractor interface using Google Gemini.
type Gemini struct {
	client     *genai.Client
	model      *genai.GenerativeModel
	categories []string
	prompt     string
}

// NewGemini creates a new Gemini Extractor instance.
func NewGemini(apiKey, modelName string, categories []string) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	if modelName == "" {
		modelName = "gemini-2.5-flash"
	}

	ctx := context.Background()
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}

	model := client.GenerativeModel(modelName)
	// Low temperature for factual extraction; JSON keeps parsing simple.
	model.SetTemperature(0.1)
	model.ResponseMIMEType = "application/json"

	return &Gemini{
		client:     client,
		model:      model,
		categories: categories,
		prompt:     buildPrompt(categories),
	}, nil
}

// Extract analyzes a receipt and derives expense fields.
func (g *Gemini) Extract(imageData []byte, contentType string) (*ExpenseData, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	finalImageData, err := prepareImageData(imageData, contentType)
	if err != nil {
		return nil, err
	}

	// genai.ImageData wants the format suffix, not a full MIME type; after
	// prepareImageData everything is PNG.
	parts := []genai.Part{
		genai.ImageData("png", finalImageData),
		genai.Text(g.prompt),
	}

	resp, err := g.model.GenerateContent(ctx, parts...)
	if err != nil {
		return nil, fmt.Errorf("generating content: %w", err)
	}

	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("no response from gemini")
	}

	var responseText strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			responseText.WriteString(string(text))
		}
	}

	data, err := parseExpenseJSON(responseText.String(), g.categories)
	if err != nil {
		// The provider answered but nothing usable came back. Give the
		// user an editable row with safe defaults instead of failing.
		slog.Warn("Unparseable extraction response, using defaults", "error", err)
		return Fallback(time.Now(), g.categories), nil
	}
	return data, nil
}

// Close closes the Gemini client.
func (g *Gemini) Close() error {
	return g.client.Close()
}
