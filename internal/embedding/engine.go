// Package embedding provides vector embedding generation for guideline
// retrieval. Two backends are supported: Ollama (local) and Google
// GenAI (cloud). Embeddings are deterministic per model version with a
// fixed output dimensionality.
package embedding

import (
	"context"
	"fmt"

	"brandstudio/internal/logging"
)

// Engine generates vector embeddings for text.
type Engine interface {
	// Embed generates an embedding for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the embedding dimensionality.
	Dimensions() int

	// Name returns the engine name.
	Name() string
}

// Config holds embedding engine configuration.
type Config struct {
	Provider string // "ollama" or "genai"

	OllamaEndpoint string
	OllamaModel    string

	GenAIAPIKey string
	GenAIModel  string
	// TaskType for GenAI: RETRIEVAL_DOCUMENT or RETRIEVAL_QUERY.
	TaskType string
}

// NewEngine creates an embedding engine from configuration.
func NewEngine(cfg Config) (Engine, error) {
	timer := logging.StartTimer(logging.CategoryEmbedding, "NewEngine")
	defer timer.Stop()

	var engine Engine
	var err error

	switch cfg.Provider {
	case "ollama":
		engine, err = NewOllamaEngine(cfg.OllamaEndpoint, cfg.OllamaModel)
	case "genai":
		engine, err = NewGenAIEngine(cfg.GenAIAPIKey, cfg.GenAIModel, cfg.TaskType)
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s (use 'ollama' or 'genai')", cfg.Provider)
	}

	if err != nil {
		logging.Get(logging.CategoryEmbedding).Error("failed to create embedding engine: %v", err)
		return nil, err
	}

	logging.Embedding("embedding engine ready: name=%s dimensions=%d", engine.Name(), engine.Dimensions())
	return engine, nil
}
