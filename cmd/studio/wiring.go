package main

import (
	"errors"
	"fmt"

	"brandstudio/internal/embedding"
	"brandstudio/internal/generation"
	"brandstudio/internal/index"
	"brandstudio/internal/kb"
	"brandstudio/internal/logging"
	"brandstudio/internal/retrieval"
	"brandstudio/internal/validator"
)

// newEngine builds the embedding engine for the given task type
// (RETRIEVAL_DOCUMENT for indexing, RETRIEVAL_QUERY for search).
func newEngine(taskType string) (embedding.Engine, error) {
	return embedding.NewEngine(embedding.Config{
		Provider:       cfg.Embedding.Provider,
		OllamaEndpoint: cfg.Embedding.OllamaEndpoint,
		OllamaModel:    cfg.Embedding.OllamaModel,
		GenAIAPIKey:    cfg.Embedding.GenAIAPIKey,
		GenAIModel:     cfg.Embedding.GenAIModel,
		TaskType:       taskType,
	})
}

// loadRetriever opens the persisted index and wraps it in a retriever.
// A missing index is reported as nil retriever, not an error, so
// callers can run without guideline context.
func loadRetriever() (*retrieval.Retriever, error) {
	engine, err := newEngine("RETRIEVAL_QUERY")
	if err != nil {
		return nil, err
	}

	ix := index.New(engine)
	if err := ix.Load(cfg.Index.VectorPath, cfg.Index.DocsPath); err != nil {
		if errors.Is(err, index.ErrIndexNotFound) {
			logging.Boot("no guideline index at %s, retrieval disabled (run 'studio index build')", cfg.Index.VectorPath)
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load guideline index: %w", err)
	}

	logging.Boot("guideline index loaded: %d documents", ix.Len())
	return retrieval.New(ix, cfg.Index.TopK), nil
}

// newKBValidator builds a KB-driven validator over the configured
// knowledge base.
func newKBValidator() (*validator.Validator, *kb.Loader) {
	loader := kb.NewLoader(cfg.Knowledge.Path)
	return validator.NewFromKB(loader), loader
}

// newGenerator builds the Gemini generator with the disk cache.
func newGenerator() (generation.Generator, error) {
	cache, err := generation.NewCache(cfg.Cache.Dir, cfg.Cache.ExpiryHours)
	if err != nil {
		logging.Boot("WARN: response cache unavailable: %v", err)
		cache = nil
	}
	return generation.NewGenAIGenerator(cfg.LLM.APIKey, cfg.LLM.Model, cfg.GetLLMTimeout(), cache)
}
