package ai

import "testing"

func TestGeminiModelSelection(t *testing.T) {
	if got := geminiModel(Config{}); got != defaultGeminiModel {
		t.Errorf("Expected %s, got %s", defaultGeminiModel, got)
	}
	if got := geminiModel(Config{Provider: "gemini", Model: "gemini-2.5-pro"}); got != "gemini-2.5-pro" {
		t.Errorf("Expected configured model to win, got %s", got)
	}
}
