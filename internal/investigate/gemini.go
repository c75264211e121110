package investigate

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// GeminiGenerator calls the Gemini API. It reads credentials from the
// environment (GEMINI_API_KEY or application default credentials).
type GeminiGenerator struct {
	client *genai.Client
	model  string
}

// NewGeminiGenerator creates a Gemini-backed generator for the given model.
func NewGeminiGenerator(ctx context.Context, model string) (*GeminiGenerator, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &GeminiGenerator{
		client: client,
		model:  model,
	}, nil
}

// Generate sends the prompt and returns the raw text reply.
func (g *GeminiGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	contents := []*genai.Content{
		{
			Role: "user",
			Parts: []*genai.Part{
				{Text: prompt},
			},
		},
	}

	// Low temperature keeps assessments consistent across retries.
	temperature := float32(0.2)
	config := &genai.GenerateContentConfig{
		Temperature: &temperature,
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, config)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("empty response from model")
	}
	return text, nil
}
