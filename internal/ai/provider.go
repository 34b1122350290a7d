// Package ai is the LLM boundary: it turns dataset metadata and user text
// into structured insights, chart parameter suggestions, and inferred
// tables. It is the only package that calls an external service.
package ai

import (
	"context"
	"fmt"
	"os"
	"time"
)

// Provider completes a prompt against a hosted language model.
// Implementations: Groq (OpenAI-compatible chat completions) and Gemini.
type Provider interface {
	Complete(ctx context.Context, prompt string, temperature float64) (string, error)
	Name() string
}

// Config holds provider configuration.
type Config struct {
	Provider string // "groq" or "gemini"
	Model    string
	Endpoint string // Groq-compatible endpoint override (empty = default)
	Timeout  time.Duration
	Retries  int
}

// ProviderError carries the HTTP status from a failed provider call so the
// caller can decide whether a retry is worthwhile.
type ProviderError struct {
	Provider   string
	StatusCode int
	Message    string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s API returned %d: %s", e.Provider, e.StatusCode, e.Message)
}

// Retryable reports whether the error is a rate limit or server-side
// failure worth retrying.
func (e *ProviderError) Retryable() bool {
	return e.StatusCode == 429 || e.StatusCode >= 500
}

// NewProvider builds a provider from config. API keys come from the
// environment: GROQ_API_KEY or GEMINI_API_KEY.
func NewProvider(cfg Config) (Provider, error) {
	switch cfg.Provider {
	case "", "groq":
		key := os.Getenv("GROQ_API_KEY")
		if key == "" {
			return nil, fmt.Errorf("GROQ_API_KEY is not set")
		}
		return NewGroq(key, cfg), nil
	case "gemini":
		key := os.Getenv("GEMINI_API_KEY")
		if key == "" {
			return nil, fmt.Errorf("GEMINI_API_KEY is not set")
		}
		return NewGemini(key, cfg)
	default:
		return nil, fmt.Errorf("unknown AI provider: %q", cfg.Provider)
	}
}
