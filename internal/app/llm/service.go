/*
Package llm talks to the Gemini REST API. It serves three callers: the coach
(text generation), the chat pipeline (food image analysis), and the food
retriever (embeddings).
*/
package llm

import (
	"context"
	"errors"
)

// Service is the language-model surface consumed by the rest of the app.
type Service interface {
	// GenerateText answers a plain text prompt.
	GenerateText(ctx context.Context, prompt string) (string, error)

	// AnalyzeImage answers a prompt about the given image bytes.
	AnalyzeImage(ctx context.Context, prompt string, image []byte, mimeType string) (string, error)

	// EmbedTexts returns one embedding vector per input text, in input order.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// Config carries the Gemini connection settings.
type Config struct {
	// APIKey authenticates every request; required.
	APIKey string

	// Model is the generation model id; empty selects gemini-1.5-flash.
	Model string

	// EmbedModel is the embedding model id; empty selects text-embedding-004.
	EmbedModel string

	// BaseURL overrides the public API endpoint, mainly for tests.
	BaseURL string
}

// NewService builds the Gemini-backed Service.
func NewService(cfg Config) (Service, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("gemini api key required")
	}
	return newGeminiClient(cfg), nil
}
