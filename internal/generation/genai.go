package generation

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/genai"

	"brandstudio/internal/logging"
)

// GenAIGenerator generates marketing copy via Google's Gemini API,
// with an optional disk cache in front of the model.
type GenAIGenerator struct {
	client  *genai.Client
	model   string
	cache   *Cache
	timeout time.Duration
}

// NewGenAIGenerator creates a Gemini-backed generator. cache may be nil
// to disable response caching.
func NewGenAIGenerator(apiKey, model string, timeout time.Duration, cache *Cache) (*GenAIGenerator, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("GenAI API key is required")
	}
	if model == "" {
		model = "gemini-2.5-flash"
	}
	if timeout <= 0 {
		timeout = 120 * time.Second
	}

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	return &GenAIGenerator{client: client, model: model, cache: cache, timeout: timeout}, nil
}

// Generate produces marketing copy for the request. Identical prompts
// within the cache TTL are served from disk without a model call.
func (g *GenAIGenerator) Generate(ctx context.Context, req Request) (string, error) {
	prompt := BuildMarketingCopyPrompt(req)

	if g.cache != nil {
		if cached, ok := g.cache.Get(prompt, g.model); ok {
			logging.Generation("cache hit for campaign %q", req.CampaignName)
			return cached, nil
		}
	}

	timer := logging.StartTimer(logging.CategoryGeneration, "Generate")
	defer timer.Stop()

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	resp, err := g.client.Models.GenerateContent(ctx, g.model,
		genai.Text(prompt),
		&genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText(systemPrompt, genai.RoleUser),
		})
	if err != nil {
		return "", fmt.Errorf("GenAI generation failed: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("GenAI returned empty response")
	}

	if g.cache != nil {
		g.cache.Set(prompt, text, g.model)
	}

	logging.Generation("generated %d chars for campaign %q", len(text), req.CampaignName)
	return text, nil
}
