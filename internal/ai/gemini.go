package ai

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

const defaultGeminiModel = "gemini-2.0-flash"

// GeminiProvider calls the Gemini API through the official SDK.
type GeminiProvider struct {
	client *genai.Client
	model  string
}

func geminiModel(cfg Config) string {
	if cfg.Model != "" {
		return cfg.Model
	}
	return defaultGeminiModel
}

// NewGemini creates a Gemini provider.
func NewGemini(apiKey string, cfg Config) (*GeminiProvider, error) {
	model := geminiModel(cfg)

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	return &GeminiProvider{client: client, model: model}, nil
}

func (g *GeminiProvider) Name() string { return "gemini" }

// Complete sends a single-turn generation request.
func (g *GeminiProvider) Complete(ctx context.Context, prompt string, temperature float64) (string, error) {
	temp := float32(temperature)
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), &genai.GenerateContentConfig{
		Temperature: &temp,
	})
	if err != nil {
		return "", fmt.Errorf("gemini generate failed: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("gemini returned empty response")
	}

	return text, nil
}
